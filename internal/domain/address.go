package domain

import "strings"

// EmailAddress is a parsed recipient address. It is transient: it never
// gets persisted, only used to route an inbound message to its mailbox.
type EmailAddress struct {
	Username string
	Domain   string
}

// ParseAddress splits a raw address on a single "@". Addresses with zero
// or more than one "@", or with an empty local part or domain, yield no
// value.
func ParseAddress(raw string) (EmailAddress, bool) {
	parts := strings.Split(raw, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return EmailAddress{}, false
	}
	return EmailAddress{Username: parts[0], Domain: parts[1]}, true
}
