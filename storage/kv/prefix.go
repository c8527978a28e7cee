package kv

import (
	"context"
	"time"

	"github.com/trezcool/shule/core"
)

type prefixed struct {
	store  core.KVStore
	prefix string
}

var _ core.ExpiringKVStore = prefixed{}

// WithPrefix namespaces every key of store with prefix.
// It is used to give each API client its own session slots on a shared store.
func WithPrefix(store core.KVStore, prefix string) core.KVStore {
	return prefixed{store: store, prefix: prefix}
}

func (p prefixed) Get(ctx context.Context, key string) (string, error) {
	return p.store.Get(ctx, p.prefix+key)
}

func (p prefixed) Set(ctx context.Context, key, value string) error {
	return p.store.Set(ctx, p.prefix+key, value)
}

func (p prefixed) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return SetWithTTL(ctx, p.store, p.prefix+key, value, ttl)
}

func (p prefixed) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, p.prefix+key)
	}
	return p.store.Delete(ctx, full...)
}

type expiring struct {
	core.KVStore
	ttl time.Duration
}

// WithTTL makes every Set of store expire after ttl.
// Stores that cannot expire entries keep them until deleted.
func WithTTL(store core.KVStore, ttl time.Duration) core.KVStore {
	if ttl <= 0 {
		return store
	}
	return expiring{KVStore: store, ttl: ttl}
}

func (e expiring) Set(ctx context.Context, key, value string) error {
	return SetWithTTL(ctx, e.KVStore, key, value, e.ttl)
}

// SetWithTTL sets key with an expiry when store supports it, and without one otherwise.
func SetWithTTL(ctx context.Context, store core.KVStore, key, value string, ttl time.Duration) error {
	if es, ok := store.(core.ExpiringKVStore); ok && ttl > 0 {
		return es.SetWithTTL(ctx, key, value, ttl)
	}
	return store.Set(ctx, key, value)
}
