package domain

import "time"

// Placeholder content used when an inbound message omits a field.
const (
	DefaultSubject = "(No subject)"
	DefaultText    = "(No text content)"
	DefaultHTML    = "(No content)"
)

// Email is one stored message. Immutable once created.
type Email struct {
	ID         string `json:"id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Text       string `json:"text"`
	HTML       string `json:"html"`
	ReceivedAt int64  `json:"receivedAt"`
}

// NewEmail builds an Email from raw inbound fields, applying placeholder
// defaults. The HTML fallback is derived from the original text field:
// a plain-text-only message gets its text wrapped in a paragraph, a fully
// empty one gets the placeholder.
func NewEmail(id, from, to, subject, text, html string) Email {
	if html == "" {
		if text != "" {
			html = "<p>" + text + "</p>"
		} else {
			html = DefaultHTML
		}
	}
	if text == "" {
		text = DefaultText
	}
	if subject == "" {
		subject = DefaultSubject
	}
	return Email{
		ID:         id,
		From:       from,
		To:         to,
		Subject:    subject,
		Text:       text,
		HTML:       html,
		ReceivedAt: time.Now().Unix(),
	}
}
