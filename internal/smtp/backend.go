package smtp

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"driftmail/internal/config"
	"driftmail/internal/domain"
	"driftmail/internal/service"
	"driftmail/internal/storage"
)

const (
	maxMessageBytes = 10 << 20
	sessionTimeout  = 10 * time.Second
)

// Backend implements the go-smtp backend for a receiving-only server.
// Recipients must resolve to a live mailbox on the configured domain;
// everything else is refused at RCPT time, so the server can never relay.
type Backend struct {
	mailboxes *service.MailboxService
	ingest    *service.IngestService
	cfg       *config.Config
	limiter   *ConnectionLimiter
	log       *zap.Logger
}

// NewBackend creates the SMTP backend.
func NewBackend(mailboxes *service.MailboxService, ingest *service.IngestService, cfg *config.Config, log *zap.Logger) *Backend {
	return &Backend{
		mailboxes: mailboxes,
		ingest:    ingest,
		cfg:       cfg,
		limiter:   NewConnectionLimiter(64, 20),
		log:       log,
	}
}

// NewSession admits a connection, subject to the connection limiter.
func (b *Backend) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	if !b.limiter.Acquire() {
		return nil, &gosmtp.SMTPError{
			Code:         421,
			EnhancedCode: gosmtp.EnhancedCode{4, 7, 0},
			Message:      "too many connections, try again later",
		}
	}
	return &session{backend: b}, nil
}

type session struct {
	backend     *Backend
	fromAddress string
	recipients  []string
}

// Mail records the envelope sender.
func (s *session) Mail(from string, opts *gosmtp.MailOptions) error {
	s.fromAddress = from
	return nil
}

// Rcpt accepts only recipients that parse, carry the service domain, and
// have a live mailbox. Foreign domains get a relay refusal.
func (s *session) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	addr := normalizeAddress(to)

	parsed, ok := domain.ParseAddress(addr)
	if !ok {
		return &gosmtp.SMTPError{
			Code:         501,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 3},
			Message:      "invalid recipient address",
		}
	}
	if parsed.Domain != s.backend.cfg.Mailbox.Domain {
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 7, 1},
			Message:      "relay access denied - domain not managed by this server",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), sessionTimeout)
	defer cancel()
	if _, err := s.backend.mailboxes.Get(ctx, parsed.Username); err != nil {
		if errors.Is(err, storage.ErrMailboxNotFound) {
			return &gosmtp.SMTPError{
				Code:         550,
				EnhancedCode: gosmtp.EnhancedCode{5, 1, 1},
				Message:      "recipient mailbox not found",
			}
		}
		return err
	}

	s.recipients = append(s.recipients, addr)
	return nil
}

// Data parses the message and hands one copy per recipient to the
// ingestor.
func (s *session) Data(r io.Reader) error {
	raw, err := io.ReadAll(io.LimitReader(r, maxMessageBytes))
	if err != nil {
		return err
	}

	parsed, err := ParseEmail(raw)
	if err != nil {
		s.backend.log.Warn("failed to parse inbound message", zap.Error(err))
		return &gosmtp.SMTPError{
			Code:         554,
			EnhancedCode: gosmtp.EnhancedCode{5, 6, 0},
			Message:      "message could not be parsed",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), sessionTimeout)
	defer cancel()

	for _, rcpt := range s.recipients {
		err := s.backend.ingest.Ingest(ctx, service.InboundMessage{
			From:    s.fromAddress,
			To:      rcpt,
			Subject: parsed.Subject,
			Text:    parsed.Text,
			HTML:    parsed.HTML,
		})
		if err != nil {
			// the mailbox may have expired between RCPT and DATA
			s.backend.log.Warn("inbound delivery failed",
				zap.String("to", rcpt),
				zap.Error(err),
			)
			return err
		}
	}
	return nil
}

// Reset clears the envelope.
func (s *session) Reset() {
	s.fromAddress = ""
	s.recipients = nil
}

// Logout releases the connection slot.
func (s *session) Logout() error {
	s.backend.limiter.Release()
	return nil
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.Trim(addr, "<>")
	return strings.ToLower(addr)
}
