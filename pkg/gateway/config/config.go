package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/boncukgram/boncuk/pkg/core"
	"github.com/boncukgram/boncuk/pkg/settings"
)

// LogFormat selects the slog handler used by the gateway.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// Default model identifiers.
const (
	DefaultTextModel = "gemini-3-flash-preview"
	DefaultLiveModel = "gemini-2.5-flash-native-audio-preview-12-2025"
	DefaultLiveVoice = "Kore"
)

// apiKeyEnv lists the variables consulted for the model API key, in order.
var apiKeyEnv = []string{"BONCUK_GEMINI_API_KEY", "GEMINI_API_KEY", "VITE_API_KEY", "API_KEY"}

type Config struct {
	Addr      string
	LogFormat LogFormat

	// GeminiAPIKey is required by every model-backed route.
	GeminiAPIKey  string
	GeminiBaseURL string
	TextModel     string
	LiveModel     string
	LiveVoice     string

	MaxBodyBytes int64

	// CORS
	CORSAllowedOrigins map[string]struct{} // empty => disabled

	// Settings store.
	SettingsBackend string
	SettingsPath    string
	DatabaseURL     string
	SettingsProfile string

	// Live WebSocket mode (/v1/live).
	LiveMaxMessageBytes  int64
	LiveHandshakeTimeout time.Duration
	LiveWriteTimeout     time.Duration
	LivePingInterval     time.Duration
	// LiveMaxDuration caps a live session when > 0. Zero leaves sessions
	// open until the client stops them.
	LiveMaxDuration      time.Duration
	LiveMaxSessions      int

	// Per-client limits on the model-backed companion routes. Zero disables.
	LimitRPS                   float64
	LimitBurst                 int
	LimitMaxConcurrentRequests int

	// Operational defaults
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	HandlerTimeout      time.Duration
	ShutdownGracePeriod time.Duration

	// Upstream HTTP client defaults
	UpstreamResponseHeaderTimeout time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                          envOr("BONCUK_ADDR", ":8080"),
		LogFormat:                     LogFormat(strings.ToLower(envOr("BONCUK_LOG_FORMAT", string(LogFormatText)))),
		GeminiAPIKey:                  APIKeyFromEnv(),
		GeminiBaseURL:                 envOr("BONCUK_GEMINI_BASE_URL", ""),
		TextModel:                     envOr("BONCUK_TEXT_MODEL", DefaultTextModel),
		LiveModel:                     envOr("BONCUK_LIVE_MODEL", DefaultLiveModel),
		LiveVoice:                     envOr("BONCUK_LIVE_VOICE", DefaultLiveVoice),
		MaxBodyBytes:                  envInt64Or("BONCUK_MAX_BODY_BYTES", 16<<20), // 16 MiB, six mood frames plus slack
		CORSAllowedOrigins:            make(map[string]struct{}),
		SettingsBackend:               strings.ToLower(envOr("BONCUK_SETTINGS_BACKEND", settings.BackendFile)),
		SettingsPath:                  envOr("BONCUK_SETTINGS_PATH", ""),
		DatabaseURL:                   envOr("BONCUK_DATABASE_URL", ""),
		SettingsProfile:               envOr("BONCUK_SETTINGS_PROFILE", settings.DefaultProfile),
		LiveMaxMessageBytes:           envInt64Or("BONCUK_LIVE_MAX_MESSAGE_BYTES", 1<<20),
		LiveHandshakeTimeout:          envDurationOr("BONCUK_LIVE_HANDSHAKE_TIMEOUT", 5*time.Second),
		LiveWriteTimeout:              envDurationOr("BONCUK_LIVE_WRITE_TIMEOUT", 5*time.Second),
		LivePingInterval:              envDurationOr("BONCUK_LIVE_PING_INTERVAL", 20*time.Second),
		LiveMaxDuration:               envDurationOr("BONCUK_LIVE_MAX_DURATION", 0),
		LiveMaxSessions:               envIntOr("BONCUK_LIVE_MAX_SESSIONS", 32),
		LimitRPS:                      envFloatOr("BONCUK_LIMIT_RPS", 2),
		LimitBurst:                    envIntOr("BONCUK_LIMIT_BURST", 10),
		LimitMaxConcurrentRequests:    envIntOr("BONCUK_LIMIT_MAX_CONCURRENT_REQUESTS", 4),
		ReadHeaderTimeout:             envDurationOr("BONCUK_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:                   envDurationOr("BONCUK_READ_TIMEOUT", 30*time.Second),
		HandlerTimeout:                envDurationOr("BONCUK_REQUEST_TIMEOUT", 2*time.Minute),
		ShutdownGracePeriod:           envDurationOr("BONCUK_SHUTDOWN_GRACE", 30*time.Second),
		UpstreamResponseHeaderTimeout: envDurationOr("BONCUK_RESPONSE_HEADER_TIMEOUT", 60*time.Second),
	}

	for _, origin := range splitCSV(os.Getenv("BONCUK_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}

	switch cfg.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return Config{}, fmt.Errorf("BONCUK_LOG_FORMAT must be one of text|json")
	}
	switch cfg.SettingsBackend {
	case settings.BackendMemory, settings.BackendFile:
	case settings.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("BONCUK_DATABASE_URL must be set when BONCUK_SETTINGS_BACKEND=postgres")
		}
	default:
		return Config{}, fmt.Errorf("BONCUK_SETTINGS_BACKEND must be one of memory|file|postgres")
	}

	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("BONCUK_MAX_BODY_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.TextModel) == "" {
		return Config{}, fmt.Errorf("BONCUK_TEXT_MODEL must not be empty")
	}
	if strings.TrimSpace(cfg.LiveModel) == "" {
		return Config{}, fmt.Errorf("BONCUK_LIVE_MODEL must not be empty")
	}
	if cfg.LiveMaxMessageBytes <= 0 {
		return Config{}, fmt.Errorf("BONCUK_LIVE_MAX_MESSAGE_BYTES must be > 0")
	}
	if cfg.LiveHandshakeTimeout <= 0 {
		return Config{}, fmt.Errorf("BONCUK_LIVE_HANDSHAKE_TIMEOUT must be > 0")
	}
	if cfg.LiveWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("BONCUK_LIVE_WRITE_TIMEOUT must be > 0")
	}
	if cfg.LivePingInterval <= 0 {
		return Config{}, fmt.Errorf("BONCUK_LIVE_PING_INTERVAL must be > 0")
	}
	if cfg.LiveMaxDuration < 0 {
		return Config{}, fmt.Errorf("BONCUK_LIVE_MAX_DURATION must be >= 0")
	}
	if cfg.LiveMaxSessions < 0 {
		return Config{}, fmt.Errorf("BONCUK_LIVE_MAX_SESSIONS must be >= 0")
	}
	if cfg.LimitRPS < 0 || cfg.LimitBurst < 0 || cfg.LimitMaxConcurrentRequests < 0 {
		return Config{}, fmt.Errorf("BONCUK_LIMIT_* values must be >= 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("BONCUK_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout <= 0 {
		return Config{}, fmt.Errorf("BONCUK_READ_TIMEOUT must be > 0")
	}
	if cfg.HandlerTimeout <= 0 {
		return Config{}, fmt.Errorf("BONCUK_REQUEST_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("BONCUK_SHUTDOWN_GRACE must be > 0")
	}
	if cfg.UpstreamResponseHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("BONCUK_RESPONSE_HEADER_TIMEOUT must be > 0")
	}

	if cfg.GeminiAPIKey == "" {
		return Config{}, core.NewCredentialMissingError(fmt.Sprintf("one of %s must be set", strings.Join(apiKeyEnv, ", ")))
	}

	return cfg, nil
}

// SettingsOptions returns the store options described by cfg.
func (c Config) SettingsOptions() settings.OpenOptions {
	return settings.OpenOptions{
		Backend:     c.SettingsBackend,
		Path:        c.SettingsPath,
		DatabaseURL: c.DatabaseURL,
		Profile:     c.SettingsProfile,
	}
}

// APIKeyFromEnv returns the first non-empty model API key variable.
func APIKeyFromEnv() string {
	return APIKeyFrom(os.Getenv)
}

// APIKeyFrom is APIKeyFromEnv over an arbitrary lookup.
func APIKeyFrom(getenv func(string) string) string {
	for _, k := range apiKeyEnv {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// APIKeyEnv lists the variables consulted for the model API key, in order.
func APIKeyEnv() []string {
	return append([]string(nil), apiKeyEnv...)
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envFloatOr(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
