package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "stock:AAPL:info", []byte("v1"), time.Minute))
	require.NoError(t, s.Set(ctx, "forever", []byte("v2"), 0))

	b, ok, err := s.Get(ctx, "stock:AAPL:info")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", string(b))

	now = now.Add(2 * time.Minute)
	_, ok, err = s.Get(ctx, "stock:AAPL:info")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = s.Get(ctx, "forever")
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "forever"))
	_, ok, _ = s.Get(ctx, "forever")
	assert.False(t, ok)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	v := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", v, 0))
	v[0] = 'x'

	b, _, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(b))
	b[0] = 'y'
	b, _, _ = s.Get(ctx, "k")
	assert.Equal(t, "abc", string(b))
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	type quote struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	require.NoError(t, SetJSON(ctx, s, "q", quote{"AAPL", "150.25"}, time.Minute))

	var got quote
	ok, err := GetJSON(ctx, s, "q", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, quote{"AAPL", "150.25"}, got)

	require.NoError(t, s.Set(ctx, "broken", []byte("{"), 0))
	ok, err = GetJSON(ctx, s, "broken", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = GetJSON(ctx, s, "missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}
