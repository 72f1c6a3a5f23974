package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/thebtf/soilsense/internal/kv"
)

// KVStore implements kv.Store on top of the kv_entries table.
type KVStore struct {
	store *Store
}

var _ kv.Store = (*KVStore)(nil)

// NewKVStore creates a key-value view over store.
func NewKVStore(store *Store) *KVStore {
	return &KVStore{store: store}
}

// Get returns the value stored under key.
func (k *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT value FROM kv_entries WHERE key = ?`

	var value string
	err := k.store.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set upserts value under key.
func (k *KVStore) Set(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO kv_entries (key, value, updated_at, updated_at_epoch)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at,
			updated_at_epoch = excluded.updated_at_epoch
	`
	now := time.Now()
	_, err := k.store.ExecContext(ctx, query, key, value, now.Format(time.RFC3339), now.UnixMilli())
	return err
}

// Delete removes key.
func (k *KVStore) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM kv_entries WHERE key = ?`
	_, err := k.store.ExecContext(ctx, query, key)
	return err
}

// Close closes the underlying store.
func (k *KVStore) Close() error {
	return k.store.Close()
}
