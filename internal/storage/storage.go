package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrKeyNotFound is returned by KV.Get for absent or expired keys.
	ErrKeyNotFound = errors.New("key not found")

	// ErrMailboxNotFound is the repository-level view of an absent key.
	// Absence from the store is the deleted/expired state; there is no
	// tombstone.
	ErrMailboxNotFound = errors.New("mailbox not found")
)

// KV is the narrow interface over the external key-value store. The store
// must provide atomic single-key get/set/delete and native expiry; nothing
// here performs read-modify-write locking, so concurrent writers to the
// same key race (last writer wins).
type KV interface {
	// Get returns the raw value at key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key. A non-zero expiresAt makes the store evict
	// the key at that absolute time; a zero expiresAt leaves whatever
	// expiry was previously set on the key untouched.
	Set(ctx context.Context, key, value string, expiresAt time.Time) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	Close() error
}
