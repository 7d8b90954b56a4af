package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"driftmail/internal/config"
	"driftmail/internal/storage"
	"driftmail/internal/storage/memory"
)

func testConfig() *config.Config {
	return &config.Config{
		Mailbox: config.MailboxConfig{
			Domain:     "drift.mail",
			DefaultTTL: time.Hour,
		},
	}
}

func newTestMailboxService(t *testing.T) (*MailboxService, *memory.Store) {
	t.Helper()
	kv := memory.NewStore()
	t.Cleanup(func() { kv.Close() })
	repo := storage.NewMailboxRepository(kv)
	return NewMailboxService(repo, testConfig(), zap.NewNop()), kv
}

func TestMailboxServiceCreate(t *testing.T) {
	svc, kv := newTestMailboxService(t)
	ctx := context.Background()

	before := time.Now().Unix()
	mailbox, err := svc.Create(ctx, 0)
	require.NoError(t, err)

	username, domainPart, found := strings.Cut(mailbox.Address, "@")
	require.True(t, found)
	assert.Len(t, username, 12)
	assert.Equal(t, "drift.mail", domainPart)
	for _, r := range username {
		assert.Contains(t, tokenAlphabet, string(r))
	}

	// default ttl is one hour
	assert.GreaterOrEqual(t, mailbox.ExpiresAt, before+3600)
	assert.LessOrEqual(t, mailbox.ExpiresAt, time.Now().Unix()+3600)
	assert.Empty(t, mailbox.Emails)

	// native store expiry matches the record's expiresAt
	expiresAt, ok := kv.ExpiresAt("mailbox:" + username)
	require.True(t, ok)
	assert.Equal(t, mailbox.ExpiresAt, expiresAt.Unix())
}

func TestMailboxServiceCreateCustomTTL(t *testing.T) {
	svc, _ := newTestMailboxService(t)

	before := time.Now().Unix()
	mailbox, err := svc.Create(context.Background(), 120)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, mailbox.ExpiresAt, before+120)
	assert.LessOrEqual(t, mailbox.ExpiresAt, time.Now().Unix()+120)
}

func TestMailboxServiceRoundTrip(t *testing.T) {
	svc, _ := newTestMailboxService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, 300)
	require.NoError(t, err)

	username, _, _ := strings.Cut(created.Address, "@")
	fetched, err := svc.Get(ctx, username)
	require.NoError(t, err)

	assert.Equal(t, created.Address, fetched.Address)
	assert.Equal(t, created.ExpiresAt, fetched.ExpiresAt)
	assert.Empty(t, fetched.Emails)
}

func TestMailboxServiceGetAbsent(t *testing.T) {
	svc, _ := newTestMailboxService(t)

	_, err := svc.Get(context.Background(), "neverexisted")
	assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
}

func TestMailboxServiceDeleteIdempotent(t *testing.T) {
	svc, _ := newTestMailboxService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Delete(ctx, "neverexisted"))

	created, err := svc.Create(ctx, 300)
	require.NoError(t, err)
	username, _, _ := strings.Cut(created.Address, "@")

	require.NoError(t, svc.Delete(ctx, username))
	_, err = svc.Get(ctx, username)
	assert.ErrorIs(t, err, storage.ErrMailboxNotFound)

	assert.NoError(t, svc.Delete(ctx, username))
}
