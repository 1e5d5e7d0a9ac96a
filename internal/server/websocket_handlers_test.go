package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"farmlink/internal/middleware"
	"farmlink/internal/models"
	"farmlink/internal/notifications"
	"farmlink/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen serves the test app on a loopback port and returns its address.
func (e *testEnv) listen(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = e.app.Listener(ln) }()
	t.Cleanup(func() { _ = e.app.Shutdown() })
	return ln.Addr().String()
}

func dialFeed(t *testing.T, addr, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws/feed"}
	if token != "" {
		u.RawQuery = url.Values{"token": {token}}.Encode()
	}
	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	return dialer.Dial(u.String(), nil)
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestFeedWebsocket_RequiresUpgrade(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "9990001111")

	status, body := env.do(t, http.MethodGet, "/ws/feed?token="+token, "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, status)
	assert.Equal(t, models.CodeValidation, errorCode(t, body))
}

func TestFeedWebsocket_TokenValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	sign := func(claims jwt.MapClaims) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		str, err := token.SignedString([]byte(testJWTSecret))
		require.NoError(t, err)
		return str
	}
	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": strconv.Itoa(1),
			"iss": middleware.TokenIssuer,
			"aud": middleware.TokenAudience,
			"exp": time.Now().Add(time.Hour).Unix(),
			"jti": "feed-test-jti",
		}
	}

	wrongIssuer := base()
	wrongIssuer["iss"] = "someone-else"
	expired := base()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"garbage token", "not.a.token"},
		{"wrong issuer", sign(wrongIssuer)},
		{"expired", sign(expired)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := env.do(t, http.MethodGet, "/ws/feed?token="+tt.token, "", nil)
			assert.Equal(t, http.StatusUnauthorized, status)
		})
	}
}

func TestFeedWebsocket_WithoutRedis(t *testing.T) {
	db := testutil.NewDB(t)
	store := testutil.NewMemoryStore()
	srv, err := NewServer(context.Background(), testConfig(), db, nil, WithStore(store))
	require.NoError(t, err)
	env := &testEnv{srv: srv, app: srv.NewApp(), db: db, store: store}

	account := testutil.CreateAccount(t, db, "9990004444", models.RoleFarmer)
	token := srv.issueTestToken(t, account.ID)
	req, err := http.NewRequest(http.MethodGet, "/ws/feed?token="+token, nil)
	require.NoError(t, err)
	req.Header.Set(fiber.HeaderConnection, "Upgrade")
	req.Header.Set(fiber.HeaderUpgrade, "websocket")
	status, body := env.send(t, req, "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, models.CodeInternal, errorCode(t, body))
}

func TestFeedWebsocket_ReceivesPostEvents(t *testing.T) {
	env := newTestEnv(t, nil)
	author := env.register(t, "9990002222")
	watcher := env.register(t, "9990003333")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, env.srv.hub.StartWiring(ctx, env.srv.notifier))

	addr := env.listen(t)
	conn, resp, err := dialFeed(t, addr, watcher)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	hello := readMessage(t, conn)
	assert.Equal(t, "connected", hello["type"])

	post := createPost(t, env, author, fiber.Map{"content": "Locust warning for the district"})

	event := readMessage(t, conn)
	assert.Equal(t, notifications.EventPostCreated, event["type"])
	assert.Equal(t, float64(post.ID), event["post_id"])
}

func TestFeedWebsocket_HubShutdownSendsGoingAway(t *testing.T) {
	env := newTestEnv(t, nil)
	watcher := env.register(t, "9990005555")

	addr := env.listen(t)
	conn, _, err := dialFeed(t, addr, watcher)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	assert.Equal(t, "connected", readMessage(t, conn)["type"])

	require.NoError(t, env.srv.hub.Shutdown(context.Background()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	assert.Eventually(t, func() bool { return env.srv.hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}
