package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringCredentialStore(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	k := NewKeyringCredentialStore("")

	_, ok, err := k.GetCredential(ctx, "steam_api_key")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, k.SetCredential(ctx, "steam_api_key", "ABC123"))
	value, ok, err := k.GetCredential(ctx, "steam_api_key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ABC123", value)

	require.NoError(t, k.DeleteCredential(ctx, "steam_api_key"))
	require.NoError(t, k.DeleteCredential(ctx, "steam_api_key"))
	_, ok, err = k.GetCredential(ctx, "steam_api_key")
	require.NoError(t, err)
	assert.False(t, ok)
}
