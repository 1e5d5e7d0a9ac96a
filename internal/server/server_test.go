package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"farmlink/internal/config"
	"farmlink/internal/models"
	"farmlink/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret-that-is-long-enough"

type testEnv struct {
	srv   *Server
	app   *fiber.App
	db    *gorm.DB
	redis *miniredis.Miniredis
	store *testutil.MemoryStore
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                  "test",
		JWTSecret:            testJWTSecret,
		JWTTTLHours:          1,
		AllowedOrigins:       "http://localhost:5173",
		FeatureFlags:         "pdf_export=on,weather=on,market_prices=on,realtime_feed=on",
		StorageBackend:       "local",
		MediaBaseURL:         "/media",
		ImageMaxUploadSizeMB: 2,
		ImageMaxDimension:    256,
	}
}

// newTestEnv builds a full app on an in-memory database and a miniredis
// instance. mutate adjusts the configuration before the server is built.
func newTestEnv(t *testing.T, mutate func(*config.Config), opts ...Option) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}

	db := testutil.NewDB(t)
	store := testutil.NewMemoryStore()
	srv, err := NewServer(context.Background(), cfg, db, rdb, append([]Option{WithStore(store)}, opts...)...)
	require.NoError(t, err)

	return &testEnv{srv: srv, app: srv.NewApp(), db: db, redis: mr, store: store}
}

// do sends a JSON request and returns the response status and body.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(t, req, token)
}

func (e *testEnv) send(t *testing.T, req *http.Request, token string) (int, []byte) {
	t.Helper()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

// register creates an account through the API and returns its token.
func (e *testEnv) register(t *testing.T, phone string) string {
	t.Helper()

	status, body := e.do(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"phone":    phone,
		"name":     "Account " + phone,
		"password": "secret-pass",
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	var res struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	require.NotEmpty(t, res.Token)
	return res.Token
}

// login authenticates an account created directly in the database.
func (e *testEnv) login(t *testing.T, phone string) string {
	t.Helper()

	status, body := e.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"phone":    phone,
		"password": "secret-pass",
	})
	require.Equal(t, http.StatusOK, status, string(body))

	var res struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	return res.Token
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	return decode[models.ErrorResponse](t, body).Code
}

func TestHealthChecks(t *testing.T) {
	env := newTestEnv(t, nil)

	status, _ := env.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body := env.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status, string(body))

	env.redis.Close()
	status, body = env.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, string(body), `"redis":"unhealthy"`)
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, models.CodeNotFound, errorCode(t, body))
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(context.Background(), nil, nil, nil)
	assert.Error(t, err)
}

func TestDisabledFeatureFlagHidesRoute(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.FeatureFlags = "pdf_export=off" })

	status, body := env.do(t, http.MethodGet, "/api/market/prices?commodity=wheat", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, models.CodeNotFound, errorCode(t, body))

	status, _ = env.do(t, http.MethodGet, "/api/posts/1/pdf", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func newRawRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (s *Server) issueTestToken(t *testing.T, accountID uint) string {
	t.Helper()

	token, err := newTokenIssuer(s.config).Issue(accountID)
	require.NoError(t, err)
	return token
}
