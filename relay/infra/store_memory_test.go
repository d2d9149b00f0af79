package infra

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ExpiresOnRead(t *testing.T) {
	now := time.Unix(0, 0)
	s := NewMemoryStore(WithMemoryClock(func() time.Time { return now }), WithMemoryCleanupEvery(0))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte("v"), 10*time.Second))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(v))

	now = now.Add(10 * time.Second)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_ZeroTTLNeverExpires(t *testing.T) {
	now := time.Unix(0, 0)
	s := NewMemoryStore(WithMemoryClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte("v"), 0))
	now = now.Add(24 * time.Hour)
	s.Cleanup()

	_, ok, _ := s.Get(ctx, "k")
	assert.True(t, ok)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	in := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", in, 0))
	in[0] = 'z'

	v, _, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(v))
}

func TestMemoryStore_CleanupAndDelete(t *testing.T) {
	now := time.Unix(0, 0)
	s := NewMemoryStore(WithMemoryClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a", []byte("1"), time.Second))
	require.NoError(t, s.Put(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, s.Put(ctx, "c", []byte("3"), 0))

	now = now.Add(2 * time.Second)
	s.Cleanup()
	assert.Equal(t, 2, s.Len())

	require.NoError(t, s.Delete(ctx, "b", "c"))
	assert.Equal(t, 0, s.Len())
}
