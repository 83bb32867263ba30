package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()

	a := store.Open("a")
	require.NoError(t, a.Append(ctx, Entry{Role: RoleUser, Content: "analyze TCS"}))
	require.NoError(t, a.Append(ctx, Entry{Role: RoleAssistant, Content: "**Key Financial Summary for TCS:**"}))
	require.NoError(t, store.Open("b").Append(ctx, Entry{Role: RoleUser, Content: "hello"}))

	entries, err := store.Open("a").Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, RoleUser, entries[0].Role)
	assert.Equal(t, "analyze TCS", entries[0].Content)
	assert.Equal(t, RoleAssistant, entries[1].Role)
	assert.False(t, entries[0].CreatedAt.IsZero())

	empty, err := store.Open("missing").Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.ErrorIs(t, a.Append(ctx, Entry{Role: "system", Content: "x"}), ErrInvalidEntry)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Stop()
	exerciseStore(t, store)
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Stop()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Open("shared").Append(ctx, Entry{Role: RoleUser, Content: fmt.Sprint(i)})
		}(i)
	}
	wg.Wait()

	entries, err := store.Open("shared").Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 50)
}

func TestMemoryEntriesIsACopy(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Stop()
	ctx := context.Background()
	log := store.Open("s")
	require.NoError(t, log.Append(ctx, Entry{Role: RoleUser, Content: "one"}))

	entries, _ := log.Entries(ctx)
	entries[0].Content = "changed"

	again, _ := log.Entries(ctx)
	assert.Equal(t, "one", again[0].Content)
}

func TestMemoryStoreDropsIdleSessions(t *testing.T) {
	store := NewMemoryStore(30 * time.Minute)
	defer store.Stop()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	ctx := context.Background()

	require.NoError(t, store.Open("idle").Append(ctx, Entry{Role: RoleUser, Content: "hello"}))
	clock = clock.Add(20 * time.Minute)
	require.NoError(t, store.Open("active").Append(ctx, Entry{Role: RoleUser, Content: "analyze TCS"}))

	clock = clock.Add(15 * time.Minute)
	idle, err := store.Open("idle").Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, idle)

	store.evictIdle()
	assert.Equal(t, 1, store.Len())

	active, err := store.Open("active").Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestMemoryStoreAppendRefreshesIdleTimer(t *testing.T) {
	store := NewMemoryStore(30 * time.Minute)
	defer store.Stop()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	ctx := context.Background()
	log := store.Open("s")

	require.NoError(t, log.Append(ctx, Entry{Role: RoleUser, Content: "first"}))
	clock = clock.Add(25 * time.Minute)
	require.NoError(t, log.Append(ctx, Entry{Role: RoleAssistant, Content: "second"}))
	clock = clock.Add(25 * time.Minute)

	store.evictIdle()
	entries, err := log.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	clock = clock.Add(time.Hour)
	require.NoError(t, log.Append(ctx, Entry{Role: RoleUser, Content: "fresh start"}))
	entries, err = log.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh start", entries[0].Content)
}

func TestMemoryStoreWithoutTTLKeepsSessions(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Stop()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	require.NoError(t, store.Open("s").Append(context.Background(), Entry{Role: RoleUser, Content: "x"}))

	clock = clock.Add(365 * 24 * time.Hour)
	store.evictIdle()
	assert.Equal(t, 1, store.Len())
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(mr.Addr(), "", 0, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisStore(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)
	exerciseStore(t, store)
}

func TestRedisStoreRefreshesTTL(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()
	log := store.Open("s1")

	require.NoError(t, log.Append(ctx, Entry{Role: RoleUser, Content: "first"}))
	mr.FastForward(50 * time.Minute)
	require.NoError(t, log.Append(ctx, Entry{Role: RoleAssistant, Content: "second"}))
	mr.FastForward(50 * time.Minute)

	assert.True(t, mr.Exists("session:s1:history"))
	assert.Equal(t, 10*time.Minute, mr.TTL("session:s1:history"))

	entries, err := log.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	mr.FastForward(2 * time.Hour)
	assert.False(t, mr.Exists("session:s1:history"))
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(addr, "", 0, time.Minute)
	assert.Error(t, err)
}
