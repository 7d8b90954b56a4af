package httptransport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"driftmail/internal/config"
	"driftmail/internal/domain"
	"driftmail/internal/monitoring"
	"driftmail/internal/service"
	"driftmail/internal/storage"
	"driftmail/internal/storage/memory"
)

// promauto registers against the default registry, so the instruments are
// shared across all tests in this package.
var testMetrics = monitoring.NewMetrics()

func newTestRouter(t *testing.T, apiKey string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Mailbox: config.MailboxConfig{
			Domain:     "drift.mail",
			DefaultTTL: time.Hour,
		},
		Auth: config.AuthConfig{APIKey: apiKey},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}

	kv := memory.NewStore()
	t.Cleanup(func() { kv.Close() })
	repo := storage.NewMailboxRepository(kv)
	log := zap.NewNop()

	return NewRouter(RouterDependencies{
		Config:         cfg,
		MailboxService: service.NewMailboxService(repo, cfg, log),
		IngestService:  service.NewIngestService(repo, cfg, log),
		Metrics:        testMetrics,
		Logger:         log,
	})
}

func doJSON(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doForm(router *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createAddress(t *testing.T, router *gin.Engine, body string) createAddressResponse {
	t.Helper()
	w := doJSON(router, http.MethodPost, "/address", body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp createAddressResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Address)
	return resp
}

func TestCreateAndFetchAddress(t *testing.T) {
	router := newTestRouter(t, "")

	before := time.Now().Unix()
	created := createAddress(t, router, `{"ttl":120}`)
	assert.True(t, strings.HasSuffix(created.Address, "@drift.mail"))
	assert.GreaterOrEqual(t, created.ExpiresAt, before+120)

	username, _, _ := strings.Cut(created.Address, "@")
	w := doJSON(router, http.MethodGet, "/address/"+username, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var mailbox domain.Mailbox
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mailbox))
	assert.Equal(t, created.Address, mailbox.Address)
	assert.Equal(t, created.ExpiresAt, mailbox.ExpiresAt)
	assert.NotNil(t, mailbox.Emails)
	assert.Empty(t, mailbox.Emails)
}

func TestCreateAddressDefaultTTL(t *testing.T) {
	router := newTestRouter(t, "")

	before := time.Now().Unix()
	created := createAddress(t, router, "")
	assert.GreaterOrEqual(t, created.ExpiresAt, before+3600)
	assert.LessOrEqual(t, created.ExpiresAt, time.Now().Unix()+3600)
}

func TestCreateAddressMalformedBody(t *testing.T) {
	router := newTestRouter(t, "")

	w := doJSON(router, http.MethodPost, "/address", `{"ttl":`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAbsentAddress(t *testing.T) {
	router := newTestRouter(t, "")

	w := doJSON(router, http.MethodGet, "/address/neverexisted", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Address not found"}`, w.Body.String())
}

func TestDeleteAddressIdempotent(t *testing.T) {
	router := newTestRouter(t, "")

	// deleting an address that never existed still answers 204
	w := doJSON(router, http.MethodDelete, "/address/neverexisted", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	created := createAddress(t, router, `{"ttl":120}`)
	username, _, _ := strings.Cut(created.Address, "@")

	w = doJSON(router, http.MethodDelete, "/address/"+username, "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(router, http.MethodGet, "/address/"+username, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookStoresEmail(t *testing.T) {
	router := newTestRouter(t, "")
	created := createAddress(t, router, `{"ttl":300}`)

	w := doForm(router, "/webhook", url.Values{
		"from":    {"sender@example.com"},
		"to":      {created.Address},
		"subject": {"hello"},
		"text":    {"body"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Email stored", w.Body.String())

	username, _, _ := strings.Cut(created.Address, "@")
	resp := doJSON(router, http.MethodGet, "/address/"+username, "", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var mailbox domain.Mailbox
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &mailbox))
	require.Len(t, mailbox.Emails, 1)
	assert.Equal(t, "hello", mailbox.Emails[0].Subject)
	assert.Equal(t, "<p>body</p>", mailbox.Emails[0].HTML)
}

func TestWebhookInvalidRecipient(t *testing.T) {
	router := newTestRouter(t, "")
	created := createAddress(t, router, `{"ttl":300}`)
	username, _, _ := strings.Cut(created.Address, "@")

	// a live username under a foreign domain is still rejected
	w := doForm(router, "/webhook", url.Values{
		"to": {username + "@wrong-domain.example"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid recipient", w.Body.String())
}

func TestWebhookUnknownMailbox(t *testing.T) {
	router := newTestRouter(t, "")

	w := doForm(router, "/webhook", url.Values{
		"to": {"neverexisted@drift.mail"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Address not found", w.Body.String())
}

func TestSharedSecretGating(t *testing.T) {
	router := newTestRouter(t, "topsecret")

	t.Run("missing key is rejected", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/address", `{"ttl":60}`, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong key is rejected", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/address", `{"ttl":60}`,
			map[string]string{"X-API-Key": "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("matching key passes", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/address", `{"ttl":60}`,
			map[string]string{"X-API-Key": "topsecret"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("webhook bypasses the gate", func(t *testing.T) {
		w := doForm(router, "/webhook", url.Values{
			"to": {"neverexisted@drift.mail"},
		})
		// 404 from the mailbox lookup, not 401 from the gate
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAddressEmptyUsernameSegment(t *testing.T) {
	router := newTestRouter(t, "")

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		w := doJSON(router, method, "/address/", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, method)
		assert.JSONEq(t, `{"error":"Username is required"}`, w.Body.String(), method)
	}

	// the bare path without a trailing slash stays a plain 404
	w := doJSON(router, http.MethodGet, "/address", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	router := newTestRouter(t, "")

	w := doJSON(router, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, w.Body.String())
}

func TestRetentionCapOverHTTP(t *testing.T) {
	router := newTestRouter(t, "")
	created := createAddress(t, router, `{"ttl":600}`)

	for i := 0; i <= domain.MaxStoredEmails; i++ {
		w := doForm(router, "/webhook", url.Values{
			"to":      {created.Address},
			"subject": {"n" + strings.Repeat("x", i%3)},
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	username, _, _ := strings.Cut(created.Address, "@")
	resp := doJSON(router, http.MethodGet, "/address/"+username, "", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var mailbox domain.Mailbox
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &mailbox))
	assert.Len(t, mailbox.Emails, domain.MaxStoredEmails)
}
