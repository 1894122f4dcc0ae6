package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/portfolio/internal/audit"
	"github.com/Zachkp/portfolio/internal/config"
	"github.com/Zachkp/portfolio/internal/logging"
	"github.com/Zachkp/portfolio/internal/relay"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router   *gin.Engine
	store    *audit.Store
	webhook  *httptest.Server
	received atomic.Int32
}

func newTestEnv(t *testing.T, vars map[string]string, webhookStatus int) *testEnv {
	t.Helper()
	env := &testEnv{}

	env.webhook = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.received.Add(1)
		w.WriteHeader(webhookStatus)
	}))
	t.Cleanup(env.webhook.Close)

	all := map[string]string{
		"N8N_WEBHOOK_URL": env.webhook.URL,
		"N8N_BASIC_USER":  "portfolio",
		"N8N_BASIC_PASS":  "s3cret",
	}
	for k, v := range vars {
		all[k] = v
	}
	cfg, err := config.FromMap(all)
	require.NoError(t, err)

	env.store, err = audit.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.store.Close() })

	env.router, err = setupRouter(cfg, logging.Discard(), relay.NewClient(cfg.Relay()), env.store)
	require.NoError(t, err)
	return env
}

func (e *testEnv) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return e.doRequest(newRequest(method, path, body), cookies...)
}

func (e *testEnv) doRequest(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func newRequest(method, path, body string) *http.Request {
	if body == "" {
		return httptest.NewRequest(method, path, nil)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

const goodMessage = `{"name":"Ana","email":"ana@example.com","message":"Let's build something together."}`

func TestRouter_ContactPipeline(t *testing.T) {
	env := newTestEnv(t, nil, http.StatusOK)

	w := env.do(http.MethodPost, "/api/messages", goodMessage)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, int32(1), env.received.Load())

	w = env.do(http.MethodPost, "/api/messages", `{"name":"A","email":"bad","message":"short"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"Name must be at least 2 characters","field":"name"}`, w.Body.String())
	assert.Equal(t, int32(1), env.received.Load())
}

func TestRouter_WebhookFailure(t *testing.T) {
	env := newTestEnv(t, nil, http.StatusInternalServerError)

	w := env.do(http.MethodPost, "/api/messages", goodMessage)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to send message"}`, w.Body.String())
}

func TestRouter_RateLimitsContact(t *testing.T) {
	env := newTestEnv(t, map[string]string{"CONTACT_RATE_BURST": "2"}, http.StatusOK)

	assert.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/messages", goodMessage).Code)
	assert.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/messages", goodMessage).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do(http.MethodPost, "/api/messages", goodMessage).Code)
	assert.Equal(t, int32(2), env.received.Load())

	// health is not rate limited
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health", "").Code)
}

func TestRouter_RateLimitIgnoresForwardedFor(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"CONTACT_RATE_PER_MINUTE": "1",
		"CONTACT_RATE_BURST":      "1",
	}, http.StatusOK)

	var codes []int
	for i := 0; i < 5; i++ {
		req := newRequest(http.MethodPost, "/api/messages", goodMessage)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i+1))
		codes = append(codes, env.doRequest(req).Code)
	}

	assert.Equal(t, []int{
		http.StatusCreated,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, codes)
	assert.Equal(t, int32(1), env.received.Load())
}

func TestRouter_TrustedProxySetsClientIP(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"CONTACT_RATE_PER_MINUTE": "1",
		"CONTACT_RATE_BURST":      "1",
		// httptest.NewRequest uses 192.0.2.1 as the peer address
		"TRUSTED_PROXIES": "192.0.2.0/24",
	}, http.StatusOK)

	for _, ip := range []string{"203.0.113.1", "203.0.113.2"} {
		req := newRequest(http.MethodPost, "/api/messages", goodMessage)
		req.Header.Set("X-Forwarded-For", ip)
		assert.Equal(t, http.StatusCreated, env.doRequest(req).Code, ip)
	}
	assert.Equal(t, int32(2), env.received.Load())
}

func TestSetupRouter_RejectsInvalidTrustedProxies(t *testing.T) {
	cfg, err := config.FromMap(map[string]string{
		"N8N_WEBHOOK_URL": "https://n8n.example.com/webhook/contact",
		"N8N_BASIC_USER":  "portfolio",
		"N8N_BASIC_PASS":  "s3cret",
		"TRUSTED_PROXIES": "not-an-ip",
	})
	require.NoError(t, err)

	_, err = setupRouter(cfg, logging.Discard(), relay.NewClient(cfg.Relay()), nil)
	assert.Error(t, err)
}

func TestRouter_AdminDisabledWithoutCredentials(t *testing.T) {
	env := newTestEnv(t, nil, http.StatusOK)
	w := env.do(http.MethodPost, "/admin/login", `{"username":"root","password":"pw"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_LoginAndStats(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"ADMIN_USERNAME": "root",
		"ADMIN_PASSWORD": "pw",
	}, http.StatusOK)

	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/messages", goodMessage).Code)
	require.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/messages", `{"name":"Ana","email":"x","message":"Let's build something together."}`).Code)

	// protected without a cookie
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/admin/api/stats", "").Code)

	// wrong password
	w := env.do(http.MethodPost, "/admin/login", `{"username":"root","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPost, "/admin/login", `{"username":"root","password":"pw"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == adminCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	w = env.do(http.MethodGet, "/admin/api/stats", "", session)
	require.Equal(t, http.StatusOK, w.Code)
	var stats audit.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Delivered)
	assert.Equal(t, int64(1), stats.Rejected)

	w = env.do(http.MethodGet, "/admin/api/attempts?limit=1", "", session)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Attempts []audit.Attempt `json:"attempts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Attempts, 1)
	assert.Equal(t, audit.OutcomeRejected, list.Attempts[0].Outcome)
	assert.Equal(t, "email", list.Attempts[0].Field)
	assert.NotContains(t, w.Body.String(), "ana@example.com")

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/admin/api/attempts?limit=-3", "", session).Code)

	w = env.do(http.MethodPost, "/admin/privacy/cleanup", "", session)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"removed":0}`, w.Body.String())

	forged := &http.Cookie{Name: adminCookie, Value: strings.Repeat("0", 64)}
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/admin/api/stats", "", forged).Code)
}

func TestAdmin_LoginRequiresBothFields(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"ADMIN_USERNAME": "root",
		"ADMIN_PASSWORD": "pw",
	}, http.StatusOK)

	w := env.do(http.MethodPost, "/admin/login", `{"username":"root"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
