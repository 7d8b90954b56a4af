package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"

	"driftmail/internal/storage"
)

// Checker exposes liveness and readiness over the healthcheck handler. The
// only hard dependency is the key-value store, so readiness is a store
// ping with a short deadline.
type Checker struct {
	handler healthcheck.Handler
}

// NewChecker builds the health checker for the given store.
func NewChecker(kv storage.KV) *Checker {
	handler := healthcheck.NewHandler()

	handler.AddReadinessCheck("store", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return kv.Ping(ctx)
	})
	handler.AddLivenessCheck("goroutine-count", healthcheck.GoroutineCountCheck(500))

	return &Checker{handler: handler}
}

// LiveEndpoint serves liveness probes.
func (c *Checker) LiveEndpoint() http.HandlerFunc {
	return c.handler.LiveEndpoint
}

// ReadyEndpoint serves readiness probes.
func (c *Checker) ReadyEndpoint() http.HandlerFunc {
	return c.handler.ReadyEndpoint
}
