package httptransport

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"driftmail/internal/config"
	"driftmail/internal/health"
	"driftmail/internal/middleware"
	"driftmail/internal/monitoring"
	"driftmail/internal/service"
	"driftmail/internal/storage"
)

// Handler aggregates the HTTP handlers over the services.
type Handler struct {
	mailboxes *service.MailboxService
	ingest    *service.IngestService
}

// RouterDependencies carries everything the router needs, threaded in
// explicitly at startup.
type RouterDependencies struct {
	Config         *config.Config
	MailboxService *service.MailboxService
	IngestService  *service.IngestService
	Metrics        *monitoring.Metrics
	Health         *health.Checker
	Logger         *zap.Logger
}

// NewRouter builds the gin engine with the full middleware chain and the
// dispatch table. The shared-secret gate covers everything except the
// webhook and the operational endpoints.
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()
	// no trailing-slash redirects: unmatched paths answer 404 outright
	router.RedirectTrailingSlash = false

	mon := middleware.NewMonitoringMiddleware(deps.Metrics, deps.Logger)
	router.Use(mon.PanicRecovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(1 * 1024 * 1024))

	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.APIKeyHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowAllOrigins = true
			corsConfig.AllowOrigins = nil
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	router.Use(mon.HTTPMetrics())
	router.Use(mon.BusinessMetrics())
	router.Use(middleware.SharedSecretAuth(deps.Config.Auth.APIKey,
		"/webhook", "/health", "/metrics"))

	handler := &Handler{
		mailboxes: deps.MailboxService,
		ingest:    deps.IngestService,
	}

	router.POST("/address", handler.createAddress)
	router.GET("/address/:username", handler.getAddress)
	router.DELETE("/address/:username", handler.deleteAddress)
	// :username never matches an empty segment, so the bare path needs its
	// own route to answer 400 instead of falling through to NoRoute
	router.GET("/address/", handler.missingUsername)
	router.DELETE("/address/", handler.missingUsername)
	router.POST("/webhook", handler.handleWebhook)

	if deps.Health != nil {
		router.GET("/health/live", gin.WrapF(deps.Health.LiveEndpoint()))
		router.GET("/health/ready", gin.WrapF(deps.Health.ReadyEndpoint()))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	router.NoRoute(func(c *gin.Context) {
		NotFound(c, MsgNotFound)
	})

	return router
}

type createAddressRequest struct {
	TTL int64 `json:"ttl"`
}

type createAddressResponse struct {
	Address   string `json:"address"`
	ExpiresAt int64  `json:"expiresAt"`
}

// createAddress allocates a new temporary address. The body is optional;
// an absent or zero ttl falls back to the configured default.
func (h *Handler) createAddress(c *gin.Context) {
	var req createAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	mailbox, err := h.mailboxes.Create(c.Request.Context(), req.TTL)
	if err != nil {
		Failure(c, err)
		return
	}

	Success(c, createAddressResponse{
		Address:   mailbox.Address,
		ExpiresAt: mailbox.ExpiresAt,
	})
}

// getAddress returns the full mailbox record. An absent or expired address
// is a 400, matching the public API contract.
func (h *Handler) getAddress(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		BadRequest(c, MsgUsernameRequired)
		return
	}

	mailbox, err := h.mailboxes.Get(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, storage.ErrMailboxNotFound) {
			BadRequest(c, MsgAddressNotFound)
			return
		}
		Failure(c, err)
		return
	}

	Success(c, mailbox)
}

// missingUsername answers requests whose username segment is empty.
func (h *Handler) missingUsername(c *gin.Context) {
	BadRequest(c, MsgUsernameRequired)
}

// deleteAddress removes the mailbox unconditionally: deleting an address
// that never existed still answers 204.
func (h *Handler) deleteAddress(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		BadRequest(c, MsgUsernameRequired)
		return
	}

	if err := h.mailboxes.Delete(c.Request.Context(), username); err != nil {
		Failure(c, err)
		return
	}
	NoContent(c)
}

// handleWebhook ingests one inbound message posted by the upstream mail
// router as form fields. Responses are plain text to match that system's
// expectations.
func (h *Handler) handleWebhook(c *gin.Context) {
	msg := service.InboundMessage{
		From:    c.PostForm("from"),
		To:      c.PostForm("to"),
		Subject: c.PostForm("subject"),
		Text:    c.PostForm("text"),
		HTML:    c.PostForm("html"),
	}

	err := h.ingest.Ingest(c.Request.Context(), msg)
	switch {
	case err == nil:
		c.String(http.StatusOK, "Email stored")
	case errors.Is(err, service.ErrInvalidRecipient):
		c.String(http.StatusBadRequest, "Invalid recipient")
	case errors.Is(err, storage.ErrMailboxNotFound):
		c.String(http.StatusNotFound, MsgAddressNotFound)
	default:
		c.String(http.StatusBadRequest, "Failed to store email")
	}
}
