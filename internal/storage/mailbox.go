package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"driftmail/internal/domain"
)

const mailboxKeyPrefix = "mailbox:"

// MailboxRepository persists mailbox records as JSON values in the
// key-value store, keyed by the local part of the address. TTL handling is
// delegated to the store: a save with an expiry propagates it, a save
// without one keeps the original, so repeated ingestion never extends a
// mailbox's life.
type MailboxRepository struct {
	kv KV
}

// NewMailboxRepository wraps a KV store.
func NewMailboxRepository(kv KV) *MailboxRepository {
	return &MailboxRepository{kv: kv}
}

// Get loads the mailbox stored under username.
func (r *MailboxRepository) Get(ctx context.Context, username string) (*domain.Mailbox, error) {
	raw, err := r.kv.Get(ctx, mailboxKey(username))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrMailboxNotFound
		}
		return nil, fmt.Errorf("get mailbox: %w", err)
	}

	var mailbox domain.Mailbox
	if err := json.Unmarshal([]byte(raw), &mailbox); err != nil {
		return nil, fmt.Errorf("decode mailbox: %w", err)
	}
	return &mailbox, nil
}

// Save writes the mailbox under username. A non-zero expiresAt sets the
// store's native expiry; a zero value preserves the expiry already on the
// key.
func (r *MailboxRepository) Save(ctx context.Context, username string, mailbox *domain.Mailbox, expiresAt time.Time) error {
	raw, err := json.Marshal(mailbox)
	if err != nil {
		return fmt.Errorf("encode mailbox: %w", err)
	}
	if err := r.kv.Set(ctx, mailboxKey(username), string(raw), expiresAt); err != nil {
		return fmt.Errorf("save mailbox: %w", err)
	}
	return nil
}

// Delete removes the mailbox under username. Absent keys are not an error.
func (r *MailboxRepository) Delete(ctx context.Context, username string) error {
	if err := r.kv.Delete(ctx, mailboxKey(username)); err != nil {
		return fmt.Errorf("delete mailbox: %w", err)
	}
	return nil
}

func mailboxKey(username string) string {
	return mailboxKeyPrefix + username
}
