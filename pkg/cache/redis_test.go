package cache

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbd54566975/cwt-verifier/pkg/testutil"
)

type document struct {
	ID      string   `json:"id"`
	Methods []string `json:"methods"`
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips values as JSON", func(tt *testing.T) {
		client, server := testutil.NewRedisClient(tt)
		c := NewRedisCache[document](client, nil)

		doc := document{ID: "did:web:example.com", Methods: []string{"#key-1"}}
		require.True(tt, c.Set(ctx, doc.ID, doc))

		got, ok := c.Get(ctx, doc.ID)
		require.True(tt, ok)
		assert.Equal(tt, doc, got)

		assert.True(tt, server.Exists(defaultRedisNamespace+":entry:"+doc.ID))
		assert.Equal(tt, DefaultMaxAge, server.TTL(defaultRedisNamespace+":entry:"+doc.ID))
	})

	t.Run("miss", func(tt *testing.T) {
		client, _ := testutil.NewRedisClient(tt)
		c := NewRedisCache[document](client, nil)
		_, ok := c.Get(ctx, "did:web:nothing")
		assert.False(tt, ok)
	})

	t.Run("entries expire", func(tt *testing.T) {
		client, server := testutil.NewRedisClient(tt)
		c := NewRedisCache[string](client, []Option{WithMaxAge(time.Minute)}, WithNamespace("test"))

		require.True(tt, c.Set(ctx, "a", "doc"))
		server.FastForward(time.Minute + time.Second)

		_, ok := c.Get(ctx, "a")
		assert.False(tt, ok)

		assert.False(tt, server.Exists("test:index"))
	})

	t.Run("evicts the least recently used entry", func(tt *testing.T) {
		client, server := testutil.NewRedisClient(tt)
		mockClock := clock.NewMock()
		c := NewRedisCache[int](client, []Option{WithMaxSize(2)}, WithClock(mockClock), WithNamespace("test"))

		c.Set(ctx, "a", 1)
		mockClock.Add(time.Second)
		c.Set(ctx, "b", 2)
		mockClock.Add(time.Second)

		_, ok := c.Get(ctx, "a")
		require.True(tt, ok)
		mockClock.Add(time.Second)

		c.Set(ctx, "c", 3)

		_, ok = c.Get(ctx, "b")
		assert.False(tt, ok)
		assert.False(tt, server.Exists("test:entry:b"))

		for _, key := range []string{"a", "c"} {
			_, ok = c.Get(ctx, key)
			assert.True(tt, ok, key)
		}
	})

	t.Run("backend failures are misses", func(tt *testing.T) {
		client, server := testutil.NewRedisClient(tt)
		c := NewRedisCache[int](client, nil)
		require.True(tt, c.Set(ctx, "a", 1))

		server.Close()
		_, ok := c.Get(ctx, "a")
		assert.False(tt, ok)
		assert.False(tt, c.Set(ctx, "b", 2))
	})

	t.Run("undecodable entries are misses", func(tt *testing.T) {
		client, server := testutil.NewRedisClient(tt)
		c := NewRedisCache[int](client, nil, WithNamespace("test"))
		require.NoError(tt, server.Set("test:entry:a", "not json"))

		_, ok := c.Get(ctx, "a")
		assert.False(tt, ok)
	})
}

func TestNewRedisClient(t *testing.T) {
	_, server := testutil.NewRedisClient(t)
	addr := server.Addr()

	client, err := NewRedisClient(context.Background(), addr, "")
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()).Err())

	// miniredis forgets its address once closed
	server.Close()
	_, err = NewRedisClient(context.Background(), addr, "")
	assert.Error(t, err)
}
