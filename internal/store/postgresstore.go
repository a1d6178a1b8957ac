package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/steamlink/steamlink/internal/auth/steam"
	log "github.com/sirupsen/logrus"
)

const (
	defaultSettingsTable = "settings"
	defaultUsersTable    = "users"
)

// PostgresStoreConfig captures configuration required to initialize a Postgres-backed store.
type PostgresStoreConfig struct {
	DSN           string
	Schema        string
	SettingsTable string
	UsersTable    string
	Clock         Clock
}

// PostgresStore persists settings and profiles in PostgreSQL, for installs that
// share one profile database between machines.
type PostgresStore struct {
	db  *sql.DB
	cfg PostgresStoreConfig
}

// NewPostgresStore establishes a connection to PostgreSQL.
// Call EnsureSchema before first use.
func NewPostgresStore(ctx context.Context, cfg PostgresStoreConfig) (*PostgresStore, error) {
	trimmedDSN := strings.TrimSpace(cfg.DSN)
	if trimmedDSN == "" {
		return nil, fmt.Errorf("postgres store: DSN is required")
	}
	cfg.DSN = trimmedDSN
	if cfg.SettingsTable == "" {
		cfg.SettingsTable = defaultSettingsTable
	}
	if cfg.UsersTable == "" {
		cfg.UsersTable = defaultUsersTable
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres store: open database connection: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres store: ping database: %w", err)
	}
	return &PostgresStore{db: db, cfg: cfg}, nil
}

// Close releases the underlying database connection.
func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// EnsureSchema creates the required tables (and schema when provided).
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store: not initialized")
	}
	if schema := strings.TrimSpace(s.cfg.Schema); schema != "" {
		query := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", quoteIdentifier(schema))
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("postgres store: create schema: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			setting_id BIGSERIAL PRIMARY KEY,
			key TEXT UNIQUE NOT NULL,
			value TEXT
		)
	`, s.fullTableName(s.cfg.SettingsTable))); err != nil {
		return fmt.Errorf("postgres store: create settings table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			user_id BIGSERIAL PRIMARY KEY,
			steam_id64 TEXT UNIQUE NOT NULL,
			persona_name TEXT,
			avatar_full TEXT,
			avatar_medium TEXT,
			avatar TEXT,
			profile_url TEXT,
			real_name TEXT,
			visibility INTEGER,
			time_created BIGINT,
			last_logoff BIGINT,
			loc_country_code TEXT,
			loc_state_code TEXT,
			loc_city_id BIGINT,
			updated_at BIGINT
		)
	`, s.fullTableName(s.cfg.UsersTable))); err != nil {
		return fmt.Errorf("postgres store: create users table: %w", err)
	}
	return nil
}

// GetCredential returns the setting stored under name.
func (s *PostgresStore) GetCredential(ctx context.Context, name string) (string, bool, error) {
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = $1", s.fullTableName(s.cfg.SettingsTable))
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, query, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres store: read setting %s: %w", name, err)
	}
	if !value.Valid || value.String == "" {
		return "", false, nil
	}
	return value.String, true, nil
}

// SetCredential saves value under name, replacing any previous value.
func (s *PostgresStore) SetCredential(ctx context.Context, name, value string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, s.fullTableName(s.cfg.SettingsTable))
	if _, err := s.db.ExecContext(ctx, query, name, value); err != nil {
		return fmt.Errorf("postgres store: save setting %s: %w", name, err)
	}
	return nil
}

// DeleteCredential removes the setting stored under name.
func (s *PostgresStore) DeleteCredential(ctx context.Context, name string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE key = $1", s.fullTableName(s.cfg.SettingsTable))
	if _, err := s.db.ExecContext(ctx, query, name); err != nil {
		return fmt.Errorf("postgres store: delete setting %s: %w", name, err)
	}
	return nil
}

// UpsertProfile inserts or overwrites the profile keyed by steam_id64 in one statement.
func (s *PostgresStore) UpsertProfile(ctx context.Context, profile *steam.Profile) error {
	if profile == nil || strings.TrimSpace(profile.SteamID64) == "" {
		return fmt.Errorf("postgres store: profile without steamid")
	}
	table := s.fullTableName(s.cfg.UsersTable)
	query := fmt.Sprintf(`
		INSERT INTO %s AS u (
			steam_id64, persona_name, avatar_full, avatar_medium, avatar,
			profile_url, real_name, visibility, time_created, last_logoff,
			loc_country_code, loc_state_code, loc_city_id, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (steam_id64) DO UPDATE SET
			persona_name = EXCLUDED.persona_name,
			avatar_full = EXCLUDED.avatar_full,
			avatar_medium = EXCLUDED.avatar_medium,
			avatar = EXCLUDED.avatar,
			profile_url = EXCLUDED.profile_url,
			real_name = EXCLUDED.real_name,
			visibility = EXCLUDED.visibility,
			time_created = EXCLUDED.time_created,
			last_logoff = EXCLUDED.last_logoff,
			loc_country_code = EXCLUDED.loc_country_code,
			loc_state_code = EXCLUDED.loc_state_code,
			loc_city_id = EXCLUDED.loc_city_id,
			updated_at = GREATEST(COALESCE(u.updated_at, 0), EXCLUDED.updated_at)
	`, table)
	if _, err := s.db.ExecContext(ctx, query, profileArgs(profile, s.cfg.Clock().Unix())...); err != nil {
		return fmt.Errorf("postgres store: upsert profile %s: %w", profile.SteamID64, err)
	}
	log.Debugf("postgres store: upserted profile %s", profile.SteamID64)
	return nil
}

// GetProfile returns the stored profile for steamID, or nil when there is none.
func (s *PostgresStore) GetProfile(ctx context.Context, steamID string) (*steam.Profile, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE steam_id64 = $1", profileColumns, s.fullTableName(s.cfg.UsersTable))
	return s.scanOne(s.db.QueryRowContext(ctx, query, steamID), "get profile "+steamID)
}

// FirstProfile returns the oldest stored profile, or nil when the table is empty.
func (s *PostgresStore) FirstProfile(ctx context.Context) (*steam.Profile, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY user_id LIMIT 1", profileColumns, s.fullTableName(s.cfg.UsersTable))
	return s.scanOne(s.db.QueryRowContext(ctx, query), "first profile")
}

// DeleteProfile removes the row with userID and reports whether one existed.
func (s *PostgresStore) DeleteProfile(ctx context.Context, userID int64) (bool, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE user_id = $1", s.fullTableName(s.cfg.UsersTable))
	res, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("postgres store: delete profile %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("postgres store: delete profile %d: %w", userID, err)
	}
	return n > 0, nil
}

func (s *PostgresStore) scanOne(row *sql.Row, op string) (*steam.Profile, error) {
	profile, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: %s: %w", op, err)
	}
	return profile, nil
}

func (s *PostgresStore) fullTableName(name string) string {
	if strings.TrimSpace(s.cfg.Schema) == "" {
		return quoteIdentifier(name)
	}
	return quoteIdentifier(s.cfg.Schema) + "." + quoteIdentifier(name)
}

func quoteIdentifier(identifier string) string {
	replaced := strings.ReplaceAll(identifier, "\"", "\"\"")
	return "\"" + replaced + "\""
}
