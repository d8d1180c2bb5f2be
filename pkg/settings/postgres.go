package settings

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// DefaultProfile is used when no profile is configured.
const DefaultProfile = "default"

// Migrate applies the embedded schema migrations to the database at dsn.
func Migrate(ctx context.Context, dsn string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("settings: open database: %w", err)
	}
	defer db.Close()

	migrations, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return fmt.Errorf("settings: migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("settings: migrate: %w", err)
	}
	for _, r := range results {
		logger.Info("settings migration applied", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// PostgresStore keeps one profile's settings in the boncuk_settings table.
type PostgresStore struct {
	pool    *pgxpool.Pool
	profile string
}

// OpenPostgres migrates the schema and connects a pool for profile.
func OpenPostgres(ctx context.Context, dsn, profile string, logger *slog.Logger) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("settings: database url is required")
	}
	if profile == "" {
		profile = DefaultProfile
	}
	if err := Migrate(ctx, dsn, logger); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("settings: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("settings: ping: %w", err)
	}
	return &PostgresStore{pool: pool, profile: profile}, nil
}

// Profile returns the profile this store reads and writes.
func (s *PostgresStore) Profile() string { return s.profile }

func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM boncuk_settings WHERE profile = $1 AND key = $2`,
		s.profile, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("settings: get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO boncuk_settings (profile, key, value, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (profile, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		s.profile, key, value,
	)
	if err != nil {
		return fmt.Errorf("settings: set %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM boncuk_settings WHERE profile = $1 AND key = $2`,
		s.profile, key,
	); err != nil {
		return fmt.Errorf("settings: delete %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, value FROM boncuk_settings WHERE profile = $1`,
		s.profile,
	)
	if err != nil {
		return nil, fmt.Errorf("settings: list: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("settings: list: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
