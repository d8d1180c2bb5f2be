package settings

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/boncukgram/boncuk/pkg/core"
)

// Persisted keys.
const (
	KeyUnlocked = "boncuk_unlocked"
	KeyLanguage = "boncuk_lang"
	KeyUserName = "boncuk_user_name"
)

const (
	// DefaultLanguage is used until the user picks one.
	DefaultLanguage = "tr"

	defaultUserNameTR    = "Boncuk Dostu"
	defaultUserNameOther = "Bird Friend"
)

var languageCode = regexp.MustCompile(`^[a-z]{2}$`)

// Snapshot is the full typed view of the settings.
type Snapshot struct {
	Unlocked bool   `json:"unlocked"`
	Language string `json:"language"`
	UserName string `json:"user_name"`
}

// Settings is the typed facade over a Store.
type Settings struct {
	store Store
}

// New wraps store.
func New(store Store) *Settings {
	return &Settings{store: store}
}

// Store returns the underlying store.
func (s *Settings) Store() Store { return s.store }

// Unlocked reports whether the dashboard has been unlocked.
func (s *Settings) Unlocked(ctx context.Context) (bool, error) {
	v, _, err := s.store.Get(ctx, KeyUnlocked)
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

// Unlock marks the dashboard unlocked.
func (s *Settings) Unlock(ctx context.Context) error {
	return s.store.Set(ctx, KeyUnlocked, "true")
}

// Lock removes the unlock flag.
func (s *Settings) Lock(ctx context.Context) error {
	return s.store.Delete(ctx, KeyUnlocked)
}

// Language returns the selected UI language, DefaultLanguage when unset.
func (s *Settings) Language(ctx context.Context) (string, error) {
	v, ok, err := s.store.Get(ctx, KeyLanguage)
	if err != nil {
		return "", err
	}
	if !ok || v == "" {
		return DefaultLanguage, nil
	}
	return v, nil
}

// SetLanguage stores a two-letter lowercase language code.
func (s *Settings) SetLanguage(ctx context.Context, lang string) error {
	lang = strings.TrimSpace(lang)
	if !languageCode.MatchString(lang) {
		return core.NewInvalidRequestErrorWithParam(fmt.Sprintf("unsupported language %q", lang), "language")
	}
	return s.store.Set(ctx, KeyLanguage, lang)
}

// UserName returns the display name, or a language-dependent default.
func (s *Settings) UserName(ctx context.Context) (string, error) {
	v, ok, err := s.store.Get(ctx, KeyUserName)
	if err != nil {
		return "", err
	}
	if ok && v != "" {
		return v, nil
	}
	lang, err := s.Language(ctx)
	if err != nil {
		return "", err
	}
	return DefaultUserName(lang), nil
}

// SetUserName stores name as entered. Blank names are rejected.
func (s *Settings) SetUserName(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return core.NewInvalidRequestErrorWithParam("user name must not be blank", "user_name")
	}
	return s.store.Set(ctx, KeyUserName, name)
}

// Snapshot reads every setting.
func (s *Settings) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.Unlocked, err = s.Unlocked(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Language, err = s.Language(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.UserName, err = s.UserName(ctx); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// DefaultUserName returns the display name shown before the user sets one.
func DefaultUserName(lang string) string {
	if lang == "tr" {
		return defaultUserNameTR
	}
	return defaultUserNameOther
}

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// OpenOptions selects and configures a backend.
type OpenOptions struct {
	Backend     string
	Path        string
	DatabaseURL string
	Profile     string
	Logger      *slog.Logger
}

// Open creates the configured store.
func Open(ctx context.Context, opts OpenOptions) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendFile:
		s, err := OpenFile(opts.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory:
		return NewMemoryStore(nil), nil
	case BackendPostgres:
		s, err := OpenPostgres(ctx, opts.DatabaseURL, opts.Profile, opts.Logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("settings: unknown backend %q", opts.Backend)
	}
}
