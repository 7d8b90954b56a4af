package domain

// MaxStoredEmails caps how many messages a mailbox retains. Ingestion
// prepends and truncates, so the slice always holds the newest messages
// first.
const MaxStoredEmails = 50

// Mailbox is the persisted record of one temporary address and its
// received messages. It lives exclusively in the key-value store under the
// local part of Address; the server holds no copy between requests.
type Mailbox struct {
	Address   string  `json:"address"`
	ExpiresAt int64   `json:"expiresAt"`
	Emails    []Email `json:"emails"`
}

// Prepend inserts an email at the front and discards anything beyond the
// retention cap.
func (m *Mailbox) Prepend(email Email) {
	m.Emails = append([]Email{email}, m.Emails...)
	if len(m.Emails) > MaxStoredEmails {
		m.Emails = m.Emails[:MaxStoredEmails]
	}
}
