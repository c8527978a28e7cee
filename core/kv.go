package core

import (
	"context"
	"errors"
	"time"
)

var ErrKeyNotFound = errors.New("key not found")

// KVStore is a durable key-value slot.
// Get returns ErrKeyNotFound when the key is not set. Delete ignores missing keys.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// ExpiringKVStore is a KVStore whose entries can expire.
// An expired entry behaves as if it was never set.
type ExpiringKVStore interface {
	KVStore
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
}
