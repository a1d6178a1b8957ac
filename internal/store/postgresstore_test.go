package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_TableNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		schema string
		table  string
		want   string
	}{
		{"no schema", "", "users", `"users"`},
		{"schema", "companion", "users", `"companion"."users"`},
		{"quoted", `we"ird`, "users", `"we""ird"."users"`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := &PostgresStore{cfg: PostgresStoreConfig{Schema: tt.schema}}
			assert.Equal(t, tt.want, s.fullTableName(tt.table))
		})
	}
}

func TestNewPostgresStore_RequiresDSN(t *testing.T) {
	t.Parallel()
	_, err := NewPostgresStore(context.Background(), PostgresStoreConfig{DSN: "  "})
	assert.Error(t, err)
}

// TestPostgresStore_Integration runs against a real server when PGSTORE_TEST_DSN is set.
func TestPostgresStore_Integration(t *testing.T) {
	dsn := os.Getenv("PGSTORE_TEST_DSN")
	if dsn == "" {
		t.Skip("PGSTORE_TEST_DSN not set")
	}
	ctx := context.Background()
	now := time.Unix(1_760_000_000, 0)
	schema := "steamlink_test_" + time.Now().Format("150405")

	s, err := NewPostgresStore(ctx, PostgresStoreConfig{DSN: dsn, Schema: schema, Clock: func() time.Time { return now }})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(context.Background(), "DROP SCHEMA "+quoteIdentifier(schema)+" CASCADE")
		_ = s.Close()
	})
	require.NoError(t, s.EnsureSchema(ctx))

	require.NoError(t, s.SetCredential(ctx, "steam_api_key", "ABC123"))
	value, ok, err := s.GetCredential(ctx, "steam_api_key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ABC123", value)
	require.NoError(t, s.DeleteCredential(ctx, "steam_api_key"))
	_, ok, err = s.GetCredential(ctx, "steam_api_key")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.UpsertProfile(ctx, aliceProfile()))
	now = now.Add(time.Minute)
	require.NoError(t, s.UpsertProfile(ctx, aliceProfile()))

	got, err := s.GetProfile(ctx, "76561197960287930")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Alice", got.PersonaName)
	assert.Equal(t, now.Unix(), got.UpdatedAt)

	deleted, err := s.DeleteProfile(ctx, got.UserID)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = s.DeleteProfile(ctx, got.UserID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
