package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medinsight/internal/model"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSessionStore(client, ttl), mr
}

func sampleSession(id string) *model.Session {
	s := model.NewSession(id)
	s.Append(model.RoleUser, "What is glaucoma?")
	s.Append(model.RoleAssistant, "A group of eye diseases.")
	return s
}

func TestRedisSessionStore_RoundTrip(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, sampleSession("abc")))
	assert.True(t, mr.Exists("medinsight:session:abc"))
	assert.Equal(t, time.Minute, mr.TTL("medinsight:session:abc"))

	got, ok, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", got.ID)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, model.RoleAssistant, got.Messages[1].Role)
	assert.Equal(t, "A group of eye diseases.", got.Messages[1].Content)

	require.NoError(t, store.Delete(ctx, "abc"))
	_, ok, err = store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSessionStore_Expiry(t *testing.T) {
	store, mr := newRedisStore(t, 30*time.Second)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession("abc")))
	mr.FastForward(31 * time.Second)

	_, ok, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSessionStore_CorruptValue(t *testing.T) {
	store, mr := newRedisStore(t, 0)
	require.NoError(t, mr.Set("medinsight:session:bad", "{not json"))

	_, _, err := store.Get(context.Background(), "bad")
	assert.Error(t, err)
}

func TestRedisSessionStore_Unavailable(t *testing.T) {
	store, mr := newRedisStore(t, 0)
	mr.Close()

	_, _, err := store.Get(context.Background(), "abc")
	assert.Error(t, err)
	assert.Error(t, store.Save(context.Background(), sampleSession("abc")))
}

func TestMemorySessionStore_RoundTrip(t *testing.T) {
	store := NewMemorySessionStore(10, time.Minute)
	ctx := context.Background()

	original := sampleSession("abc")
	require.NoError(t, store.Save(ctx, original))
	assert.Equal(t, 1, store.Len())

	// Later changes to the caller's copy do not leak into the store.
	original.Append(model.RoleUser, "unsaved")

	got, ok, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got.Messages, 2)

	got.Append(model.RoleUser, "also unsaved")
	again, _, _ := store.Get(ctx, "abc")
	assert.Len(t, again.Messages, 2)

	require.NoError(t, store.Delete(ctx, "abc"))
	_, ok, _ = store.Get(ctx, "abc")
	assert.False(t, ok)
}

func TestMemorySessionStore_Bounded(t *testing.T) {
	store := NewMemorySessionStore(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(ctx, sampleSession(fmt.Sprintf("s%d", i))))
	}
	assert.Equal(t, 3, store.Len())

	_, ok, _ := store.Get(ctx, "s0")
	assert.False(t, ok, "oldest session evicted")
	_, ok, _ = store.Get(ctx, "s4")
	assert.True(t, ok)
}

func TestMemorySessionStore_OnSizeChange(t *testing.T) {
	store := NewMemorySessionStore(2, time.Minute)
	ctx := context.Background()

	var sizes []int
	store.OnSizeChange(func(n int) { sizes = append(sizes, n) })

	require.NoError(t, store.Save(ctx, sampleSession("a")))
	require.NoError(t, store.Save(ctx, sampleSession("b")))
	require.NoError(t, store.Save(ctx, sampleSession("c")))
	require.NoError(t, store.Delete(ctx, "c"))

	assert.Equal(t, []int{1, 2, 2, 1}, sizes)
}

func TestMemorySessionStore_Expiry(t *testing.T) {
	store := NewMemorySessionStore(10, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession("abc")))
	assert.Eventually(t, func() bool {
		_, ok, _ := store.Get(ctx, "abc")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
