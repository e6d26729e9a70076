package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDenylist(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDenylist()

	revoked, err := d.IsRevoked(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, d.Revoke(ctx, "jti-1", time.Minute))
	revoked, err = d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestMemoryDenylistExpiry(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDenylist()

	// Zero or negative TTL means the token is already dead; storing it
	// would only grow the map.
	require.NoError(t, d.Revoke(ctx, "expired", -time.Second))
	revoked, err := d.IsRevoked(ctx, "expired")
	require.NoError(t, err)
	assert.False(t, revoked)
}
