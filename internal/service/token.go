package service

import "math/rand"

// tokenAlphabet matches the address alphabet: usernames and message IDs
// are drawn uniformly from lowercase letters and digits. There is no
// cross-request uniqueness check; collisions are possible and accepted
// (a colliding username silently overwrites the existing mailbox).
const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

const (
	usernameLength  = 12
	messageIDLength = 16
)

func randomToken(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = tokenAlphabet[rand.Intn(len(tokenAlphabet))]
	}
	return string(b)
}
