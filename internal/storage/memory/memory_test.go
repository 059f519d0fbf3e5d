package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/sun8-storefront/internal/storage"
)

func TestStore_GetPut(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	buf := []byte(`["w1"]`)
	require.NoError(t, s.Put(ctx, "sun8_wishlist", buf))
	buf[2] = 'x'

	got, err := s.Get(ctx, "sun8_wishlist")
	require.NoError(t, err)
	assert.Equal(t, `["w1"]`, string(got))
}
