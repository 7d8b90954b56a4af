package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"driftmail/internal/config"
	"driftmail/internal/domain"
	"driftmail/internal/storage"
)

// MailboxService allocates temporary addresses and serves mailbox fetch
// and delete. Every operation round-trips through the store; the service
// keeps no state between requests.
type MailboxService struct {
	repo *storage.MailboxRepository
	cfg  *config.Config
	log  *zap.Logger
}

// NewMailboxService creates the mailbox service.
func NewMailboxService(repo *storage.MailboxRepository, cfg *config.Config, log *zap.Logger) *MailboxService {
	return &MailboxService{
		repo: repo,
		cfg:  cfg,
		log:  log,
	}
}

// Create allocates a fresh address with a random username and writes an
// empty mailbox to the store with native expiry at now + ttl. A
// non-positive ttl falls back to the configured default.
func (s *MailboxService) Create(ctx context.Context, ttlSeconds int64) (*domain.Mailbox, error) {
	if ttlSeconds <= 0 {
		ttlSeconds = int64(s.cfg.Mailbox.DefaultTTL.Seconds())
	}

	username := randomToken(usernameLength)
	expiresAt := time.Now().Unix() + ttlSeconds

	mailbox := &domain.Mailbox{
		Address:   fmt.Sprintf("%s@%s", username, s.cfg.Mailbox.Domain),
		ExpiresAt: expiresAt,
		Emails:    []domain.Email{},
	}

	if err := s.repo.Save(ctx, username, mailbox, time.Unix(expiresAt, 0)); err != nil {
		return nil, err
	}

	s.log.Info("address created",
		zap.String("address", mailbox.Address),
		zap.Int64("expires_at", expiresAt),
	)
	return mailbox, nil
}

// Get fetches the mailbox stored under username. Returns
// storage.ErrMailboxNotFound for absent or expired addresses.
func (s *MailboxService) Get(ctx context.Context, username string) (*domain.Mailbox, error) {
	return s.repo.Get(ctx, username)
}

// Delete removes the mailbox under username. Deleting an address that was
// never created, or has already expired, succeeds.
func (s *MailboxService) Delete(ctx context.Context, username string) error {
	if err := s.repo.Delete(ctx, username); err != nil {
		return err
	}
	s.log.Info("address deleted", zap.String("username", username))
	return nil
}
