package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/steamlink/steamlink/internal/auth/steam"
	log "github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"
)

// DefaultDatabaseFile is the database file name inside the data directory.
const DefaultDatabaseFile = "app.db"

// SQLiteStore keeps settings and profiles in an embedded SQLite database.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	clock Clock
}

// SQLiteOption customizes a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithClock overrides the clock used for updated_at.
func WithClock(clock Clock) SQLiteOption {
	return func(s *SQLiteStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewSQLiteStore opens (creating if needed) the database at path and applies migrations.
// An existing database with the same tables is adopted as is.
func NewSQLiteStore(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite store: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("sqlite store: create directory: %w", err)
	}

	dsn := "file:" + filepath.ToSlash(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open database: %w", err)
	}
	// One writer keeps SQLITE_BUSY out of the login path.
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite store: ping database: %w", err)
	}
	if err = runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite store: %w", err)
	}

	s := &SQLiteStore{db: db, path: path, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	log.Debugf("sqlite store: opened %s", path)
	return s, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetCredential returns the setting stored under name.
// ok is false when the setting has never been saved.
func (s *SQLiteStore) GetCredential(ctx context.Context, name string) (string, bool, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite store: read setting %s: %w", name, err)
	}
	if !value.Valid || value.String == "" {
		return "", false, nil
	}
	return value.String, true, nil
}

// SetCredential saves value under name, replacing any previous value.
func (s *SQLiteStore) SetCredential(ctx context.Context, name, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		name, value,
	)
	if err != nil {
		return fmt.Errorf("sqlite store: save setting %s: %w", name, err)
	}
	return nil
}

// DeleteCredential removes the setting stored under name. Removing a missing setting is not an error.
func (s *SQLiteStore) DeleteCredential(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, name); err != nil {
		return fmt.Errorf("sqlite store: delete setting %s: %w", name, err)
	}
	return nil
}

// UpsertProfile inserts the profile or overwrites every mutable column of the
// existing row with the same steam_id64, in one statement. updated_at never moves backwards.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, profile *steam.Profile) error {
	if profile == nil || strings.TrimSpace(profile.SteamID64) == "" {
		return fmt.Errorf("sqlite store: profile without steamid")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (
			steam_id64, persona_name, avatar_full, avatar_medium, avatar,
			profile_url, real_name, visibility, time_created, last_logoff,
			loc_country_code, loc_state_code, loc_city_id, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(steam_id64) DO UPDATE SET
			persona_name = excluded.persona_name,
			avatar_full = excluded.avatar_full,
			avatar_medium = excluded.avatar_medium,
			avatar = excluded.avatar,
			profile_url = excluded.profile_url,
			real_name = excluded.real_name,
			visibility = excluded.visibility,
			time_created = excluded.time_created,
			last_logoff = excluded.last_logoff,
			loc_country_code = excluded.loc_country_code,
			loc_state_code = excluded.loc_state_code,
			loc_city_id = excluded.loc_city_id,
			updated_at = MAX(COALESCE(users.updated_at, 0), excluded.updated_at)`,
		profileArgs(profile, s.clock().Unix())...,
	)
	if err != nil {
		return fmt.Errorf("sqlite store: upsert profile %s: %w", profile.SteamID64, err)
	}
	return nil
}

// GetProfile returns the stored profile for steamID, or nil when there is none.
func (s *SQLiteStore) GetProfile(ctx context.Context, steamID string) (*steam.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM users WHERE steam_id64 = ?`, steamID)
	return s.scanOne(row, "get profile "+steamID)
}

// FirstProfile returns the oldest stored profile, or nil when the table is empty.
func (s *SQLiteStore) FirstProfile(ctx context.Context) (*steam.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM users ORDER BY user_id LIMIT 1`)
	return s.scanOne(row, "first profile")
}

// DeleteProfile removes the row with userID and reports whether one existed.
func (s *SQLiteStore) DeleteProfile(ctx context.Context, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("sqlite store: delete profile %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite store: delete profile %d: %w", userID, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) scanOne(row *sql.Row, op string) (*steam.Profile, error) {
	profile, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite store: %s: %w", op, err)
	}
	return profile, nil
}
