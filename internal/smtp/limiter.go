package smtp

import (
	"sync"

	"golang.org/x/time/rate"
)

// ConnectionLimiter bounds both the number of concurrent SMTP sessions and
// the rate of new ones.
type ConnectionLimiter struct {
	mu       sync.Mutex
	current  int
	maxConns int
	rate     *rate.Limiter
}

// NewConnectionLimiter allows at most maxConns concurrent sessions and
// perSecond new sessions per second (with an equal burst).
func NewConnectionLimiter(maxConns, perSecond int) *ConnectionLimiter {
	return &ConnectionLimiter{
		maxConns: maxConns,
		rate:     rate.NewLimiter(rate.Limit(perSecond), perSecond),
	}
}

// Acquire claims a session slot. It never blocks; a refused connection is
// answered with a transient SMTP error instead.
func (l *ConnectionLimiter) Acquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current >= l.maxConns {
		return false
	}
	if !l.rate.Allow() {
		return false
	}
	l.current++
	return true
}

// Release frees a session slot.
func (l *ConnectionLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current > 0 {
		l.current--
	}
}

// Current reports the number of active sessions.
func (l *ConnectionLimiter) Current() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}
