package notifications

import (
	"context"
	"errors"
	"sync"

	"farmlink/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
)

// Connection limits.
const (
	maxConnsPerAccount = 5
	maxTotalConns      = 10000
)

var (
	// ErrServerFull is returned when the hub holds maxTotalConns clients.
	ErrServerFull = errors.New("server connection limit reached")
	// ErrAccountLimit is returned when one account holds too many clients.
	ErrAccountLimit = errors.New("account connection limit reached")
	// ErrHubClosed is returned after Shutdown.
	ErrHubClosed = errors.New("feed hub is shut down")
)

// Hub fans feed events out to every connected websocket client.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
	closed     bool
	presence   *Presence
}

// NewHub creates a Hub. rdb may be nil, in which case presence is tracked
// locally only.
func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		conns:    make(map[uint]map[*Client]struct{}),
		presence: NewPresence(rdb, 0),
	}
}

// Register adds a connection for accountID.
func (h *Hub) Register(accountID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, ErrServerFull
	}
	m, ok := h.conns[accountID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[accountID] = m
	}
	if len(m) >= maxConnsPerAccount {
		h.mu.Unlock()
		return nil, ErrAccountLimit
	}

	client := newClient(h, conn, accountID)
	m[client] = struct{}{}
	h.totalConns++
	h.mu.Unlock()

	observability.WebSocketConnections.Inc()
	h.presence.Register(accountID)
	return client, nil
}

// UnregisterClient removes client and closes its send channel. Calling it
// more than once is harmless.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if m, ok := h.conns[client.AccountID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			close(client.Send)
			h.totalConns--
			removed = true
		}
		if len(m) == 0 {
			delete(h.conns, client.AccountID)
		}
	}
	h.mu.Unlock()

	if removed {
		observability.WebSocketConnections.Dec()
		h.presence.Unregister(client.AccountID)
	}
}

// BroadcastAll sends message to every connected client and returns how many
// clients accepted it.
func (h *Hub) BroadcastAll(message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, clients := range h.conns {
		for c := range clients {
			if c.TrySend(message) {
				delivered++
			}
		}
	}
	return delivered
}

// ClientCount returns the number of open connections on this instance.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// OnlineCount returns the number of distinct accounts watching the feed
// across all instances.
func (h *Hub) OnlineCount(ctx context.Context) int {
	return h.presence.OnlineCount(ctx)
}

// StartWiring subscribes the hub to the feed channel.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartFeedSubscriber(ctx, func(payload string) {
		h.BroadcastAll([]byte(payload))
	})
}

// Shutdown closes every client's send channel. Each WritePump then sends the
// going-away frame and closes its connection, so the pump stays the only
// writer on the socket.
func (h *Hub) Shutdown(_ context.Context) error {
	h.presence.Stop()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for _, clients := range h.conns {
		for client := range clients {
			close(client.Send)
		}
	}
	observability.WebSocketConnections.Sub(float64(h.totalConns))
	h.conns = make(map[uint]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
