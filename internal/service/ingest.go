package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"driftmail/internal/config"
	"driftmail/internal/domain"
	"driftmail/internal/storage"
)

// ErrInvalidRecipient marks an inbound message whose recipient is
// unparseable or addressed to a foreign domain. No store access happens
// in that case.
var ErrInvalidRecipient = errors.New("invalid recipient")

// InboundMessage is a raw inbound message as delivered by the webhook or
// the SMTP listener. Any field may be empty except To.
type InboundMessage struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// IngestService stores inbound messages into their addressed mailbox.
//
// Ingestion is a plain read-modify-write with no compare-and-swap: two
// concurrent messages to the same mailbox can both read the same prior
// state, and the later write wins. The store's single-key atomicity is the
// only guarantee relied on.
type IngestService struct {
	repo *storage.MailboxRepository
	cfg  *config.Config
	log  *zap.Logger
}

// NewIngestService creates the ingest service.
func NewIngestService(repo *storage.MailboxRepository, cfg *config.Config, log *zap.Logger) *IngestService {
	return &IngestService{
		repo: repo,
		cfg:  cfg,
		log:  log,
	}
}

// Ingest validates the recipient, appends the message to its mailbox
// (newest first, capped at domain.MaxStoredEmails) and persists the result
// without touching the mailbox's expiry.
func (s *IngestService) Ingest(ctx context.Context, msg InboundMessage) error {
	addr, ok := domain.ParseAddress(msg.To)
	if !ok || addr.Domain != s.cfg.Mailbox.Domain {
		return ErrInvalidRecipient
	}

	mailbox, err := s.repo.Get(ctx, addr.Username)
	if err != nil {
		return err
	}

	email := domain.NewEmail(
		randomToken(messageIDLength),
		msg.From,
		msg.To,
		msg.Subject,
		msg.Text,
		msg.HTML,
	)
	mailbox.Prepend(email)

	// zero expiry: the store keeps the TTL set at creation, so repeated
	// deliveries never extend an address's life
	if err := s.repo.Save(ctx, addr.Username, mailbox, time.Time{}); err != nil {
		return err
	}

	s.log.Info("email stored",
		zap.String("to", msg.To),
		zap.String("message_id", email.ID),
		zap.Int("stored", len(mailbox.Emails)),
	)
	return nil
}
