package kv

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// SQLStore is a core.KVStore backed by the kv_entries table.
// expires_at holds unix milliseconds; NULL never expires.
type SQLStore struct {
	db *sqlx.DB
}

var _ core.ExpiringKVStore = (*SQLStore)(nil) // interface compliance check

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func unixMilli(t time.Time) int64 { return t.UnixNano() / int64(time.Millisecond) }

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	var val string
	q := s.db.Rebind(`
		SELECT entry_value FROM kv_entries
		WHERE entry_key = ? AND (expires_at IS NULL OR expires_at > ?)`)
	if err := s.db.GetContext(ctx, &val, q, key, unixMilli(time.Now())); err != nil {
		if err == sql.ErrNoRows {
			return "", core.ErrKeyNotFound
		}
		return "", errors.Wrapf(err, "selecting kv entry %s", key)
	}
	return val, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	return s.upsert(ctx, key, value, sql.NullInt64{})
}

// SetWithTTL also deletes the entries that have expired so far.
func (s *SQLStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Set(ctx, key, value)
	}
	now := time.Now()
	q := s.db.Rebind(`DELETE FROM kv_entries WHERE expires_at IS NOT NULL AND expires_at <= ?`)
	if _, err := s.db.ExecContext(ctx, q, unixMilli(now)); err != nil {
		return errors.Wrap(err, "purging expired kv entries")
	}
	return s.upsert(ctx, key, value, sql.NullInt64{Int64: unixMilli(now.Add(ttl)), Valid: true})
}

func (s *SQLStore) upsert(ctx context.Context, key, value string, expiresAt sql.NullInt64) error {
	q := s.db.Rebind(`
		INSERT INTO kv_entries (entry_key, entry_value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT (entry_key) DO UPDATE SET entry_value = excluded.entry_value, expires_at = excluded.expires_at`)
	_, err := s.db.ExecContext(ctx, q, key, value, expiresAt)
	return errors.Wrapf(err, "upserting kv entry %s", key)
}

func (s *SQLStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM kv_entries WHERE entry_key IN (?)`, keys)
	if err != nil {
		return errors.Wrap(err, "building kv delete")
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(q), args...)
	return errors.Wrap(err, "deleting kv entries")
}
