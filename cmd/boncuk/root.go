package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/boncukgram/boncuk/internal/dotenv"
	"github.com/boncukgram/boncuk/pkg/core"
	"github.com/boncukgram/boncuk/pkg/core/advisor"
	"github.com/boncukgram/boncuk/pkg/core/providers/gemini"
	"github.com/boncukgram/boncuk/pkg/gateway/config"
	"github.com/boncukgram/boncuk/pkg/settings"
)

// envFileName is looked up under the XDG config dirs after the local files.
const envFileName = "boncuk/env"

// app carries the state shared by every subcommand.
type app struct {
	debug    bool
	envFiles []string

	getenv func(string) string
	stderr io.Writer
	logger *slog.Logger
}

func newApp(getenv func(string) string) *app {
	return &app{getenv: getenv, stderr: io.Discard, logger: slog.Default()}
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boncuk",
		Short: "Boncuk bird companion",
		Long: `Boncuk watches and listens to your bird together with a realtime model.

Run "boncuk serve" to start the gateway used by the mobile app, or use the
terminal commands to talk to the model directly from this machine.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVar(&a.debug, "debug", false, "Enable debug logging")
	flags.StringArrayVar(&a.envFiles, "env-file", nil, "Extra env file to load before .env.local and .env (repeatable)")

	cmd.AddCommand(
		newServeCommand(a, defaultServeDeps()),
		newMigrateCommand(a),
		newLiveCommand(a),
		newChatCommand(a),
		newMoodCommand(a),
		newExpertCommand(a),
		newSettingsCommand(a),
	)
	return cmd
}

// init loads env files and builds the logger. Earlier files win, and the
// process environment wins over all of them.
func (a *app) init(stderr io.Writer) error {
	paths := append([]string(nil), a.envFiles...)
	paths = append(paths, ".env.local", ".env")
	if p, err := xdg.SearchConfigFile(envFileName); err == nil {
		paths = append(paths, p)
	}
	if err := dotenv.Load(paths...); err != nil {
		return err
	}

	a.stderr = stderr
	a.logger = newLogger(stderr, config.LogFormat(strings.ToLower(a.getenv("BONCUK_LOG_FORMAT"))), a.debug)
	slog.SetDefault(a.logger)
	return nil
}

func newLogger(w io.Writer, format config.LogFormat, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// clientConfig is the subset of gateway configuration the terminal commands
// need. Unlike the gateway, a missing API key only fails commands that call
// the model.
type clientConfig struct {
	APIKey    string
	BaseURL   string
	TextModel string
	LiveModel string
	LiveVoice string
	Settings  settings.OpenOptions
}

func loadClientConfig(getenv func(string) string) clientConfig {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	return clientConfig{
		APIKey:    config.APIKeyFrom(getenv),
		BaseURL:   get("BONCUK_GEMINI_BASE_URL", ""),
		TextModel: get("BONCUK_TEXT_MODEL", config.DefaultTextModel),
		LiveModel: get("BONCUK_LIVE_MODEL", config.DefaultLiveModel),
		LiveVoice: get("BONCUK_LIVE_VOICE", config.DefaultLiveVoice),
		Settings: settings.OpenOptions{
			Backend:     strings.ToLower(get("BONCUK_SETTINGS_BACKEND", settings.BackendFile)),
			Path:        get("BONCUK_SETTINGS_PATH", ""),
			DatabaseURL: get("BONCUK_DATABASE_URL", ""),
			Profile:     get("BONCUK_SETTINGS_PROFILE", settings.DefaultProfile),
		},
	}
}

func (c clientConfig) requireAPIKey() error {
	if c.APIKey == "" {
		return core.NewCredentialMissingError(fmt.Sprintf("one of %s must be set", strings.Join(config.APIKeyEnv(), ", ")))
	}
	return nil
}

func (a *app) clientConfig() clientConfig {
	return loadClientConfig(a.getenv)
}

func (a *app) provider(ctx context.Context) (*gemini.Provider, error) {
	cfg := a.clientConfig()
	if err := cfg.requireAPIKey(); err != nil {
		return nil, err
	}
	opts := []gemini.Option{gemini.WithLogger(a.logger)}
	if cfg.BaseURL != "" {
		opts = append(opts, gemini.WithBaseURL(cfg.BaseURL))
	}
	return gemini.New(ctx, cfg.APIKey, opts...)
}

func (a *app) advisor(ctx context.Context) (*advisor.Advisor, error) {
	p, err := a.provider(ctx)
	if err != nil {
		return nil, err
	}
	return advisor.New(p, advisor.WithModel(a.clientConfig().TextModel), advisor.WithLogger(a.logger)), nil
}

func (a *app) settings(ctx context.Context) (*settings.Settings, func(), error) {
	opts := a.clientConfig().Settings
	opts.Logger = a.logger
	store, err := settings.Open(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	return settings.New(store), func() { _ = store.Close() }, nil
}
