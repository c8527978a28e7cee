package kv_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/storage/kv"
	"github.com/trezcool/shule/tests"
)

func stores(t *testing.T) map[string]core.ExpiringKVStore {
	s := map[string]core.ExpiringKVStore{
		"memory": kv.NewMemoryStore(),
		"sql":    kv.NewSQLStore(testutil.OpenDB(t)),
	}
	if addr := os.Getenv("TEST_REDIS_ADDR"); addr != "" {
		rs := kv.NewRedisStore(addr)
		t.Cleanup(func() { _ = rs.Close() })
		require.NoError(t, rs.Ping(context.Background()))
		s["redis"] = kv.WithPrefix(rs, "shule-test:"+t.Name()+":").(core.ExpiringKVStore)
	}
	return s
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "missing")
			assert.Equal(t, core.ErrKeyNotFound, err)

			require.NoError(t, store.Set(ctx, "auth.email", "admin@school.com"))
			val, err := store.Get(ctx, "auth.email")
			require.NoError(t, err)
			assert.Equal(t, "admin@school.com", val)

			// overwrite
			require.NoError(t, store.Set(ctx, "auth.email", "teacher@school.com"))
			val, err = store.Get(ctx, "auth.email")
			require.NoError(t, err)
			assert.Equal(t, "teacher@school.com", val)

			require.NoError(t, store.Set(ctx, "auth.role", "teacher"))
			require.NoError(t, store.Delete(ctx, "auth.email", "auth.role", "never-set"))
			_, err = store.Get(ctx, "auth.email")
			assert.Equal(t, core.ErrKeyNotFound, err)
			_, err = store.Get(ctx, "auth.role")
			assert.Equal(t, core.ErrKeyNotFound, err)

			assert.NoError(t, store.Delete(ctx))
		})
	}
}

func TestWithPrefix(t *testing.T) {
	ctx := context.Background()
	shared := kv.NewMemoryStore()
	alice := kv.WithPrefix(shared, "client:a:")
	bob := kv.WithPrefix(shared, "client:b:")

	require.NoError(t, alice.Set(ctx, "auth.role", "admin"))
	require.NoError(t, bob.Set(ctx, "auth.role", "student"))

	val, err := shared.Get(ctx, "client:a:auth.role")
	require.NoError(t, err)
	assert.Equal(t, "admin", val)

	val, err = bob.Get(ctx, "auth.role")
	require.NoError(t, err)
	assert.Equal(t, "student", val)

	require.NoError(t, alice.Delete(ctx, "auth.role"))
	_, err = alice.Get(ctx, "auth.role")
	assert.Equal(t, core.ErrKeyNotFound, err)
	val, err = bob.Get(ctx, "auth.role")
	require.NoError(t, err)
	assert.Equal(t, "student", val)
	assert.Equal(t, 1, shared.Keys())
}

func TestStore_SetWithTTL(t *testing.T) {
	ctx := context.Background()
	ttl := 50 * time.Millisecond

	for name, store := range stores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.SetWithTTL(ctx, "auth.role", "admin", ttl))
			require.NoError(t, store.SetWithTTL(ctx, "auth.email", "admin@school.com", ttl))
			val, err := store.Get(ctx, "auth.role")
			require.NoError(t, err)
			assert.Equal(t, "admin", val)

			// a plain Set clears the expiry
			require.NoError(t, store.Set(ctx, "auth.email", "teacher@school.com"))

			time.Sleep(2 * ttl)
			_, err = store.Get(ctx, "auth.role")
			assert.Equal(t, core.ErrKeyNotFound, err)
			val, err = store.Get(ctx, "auth.email")
			require.NoError(t, err)
			assert.Equal(t, "teacher@school.com", val)

			// expired keys can be set again
			require.NoError(t, store.SetWithTTL(ctx, "auth.role", "student", time.Minute))
			val, err = store.Get(ctx, "auth.role")
			require.NoError(t, err)
			assert.Equal(t, "student", val)
		})
	}
}

func TestMemoryStore_purgesExpiredKeys(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()

	require.NoError(t, store.SetWithTTL(ctx, "client:a:auth.role", "admin", 20*time.Millisecond))
	require.NoError(t, store.Set(ctx, "auth.users", "[]"))
	assert.Equal(t, 2, store.Keys())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 1, store.Keys())

	require.NoError(t, store.SetWithTTL(ctx, "client:b:auth.role", "student", time.Minute))
	assert.Equal(t, 2, store.Keys())
}

func TestWithTTL(t *testing.T) {
	ctx := context.Background()
	shared := kv.NewMemoryStore()
	session := kv.WithTTL(kv.WithPrefix(shared, "client:a:"), 30*time.Millisecond)

	require.NoError(t, session.Set(ctx, "auth.role", "admin"))
	val, err := shared.Get(ctx, "client:a:auth.role")
	require.NoError(t, err)
	assert.Equal(t, "admin", val)

	time.Sleep(60 * time.Millisecond)
	_, err = session.Get(ctx, "auth.role")
	assert.Equal(t, core.ErrKeyNotFound, err)
	assert.Equal(t, 0, shared.Keys())

	// stores without expiry keep the entry
	var plain core.KVStore = struct{ core.KVStore }{kv.NewMemoryStore()}
	noExpiry := kv.WithTTL(plain, 10*time.Millisecond)
	require.NoError(t, noExpiry.Set(ctx, "auth.role", "admin"))
	time.Sleep(20 * time.Millisecond)
	val, err = noExpiry.Get(ctx, "auth.role")
	require.NoError(t, err)
	assert.Equal(t, "admin", val)

	// zero ttl is a no-op wrapper
	assert.Equal(t, shared, kv.WithTTL(shared, 0))
}
