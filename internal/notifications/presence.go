package notifications

import (
	"context"
	"strconv"
	"sync"
	"time"

	"farmlink/internal/middleware"
	"farmlink/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	defaultOnlineSetKey   = "feed:online"
	defaultLastSeenPrefix = "feed:last_seen:"
	defaultLastSeenTTL    = 90 * time.Second
	defaultReapInterval   = 60 * time.Second
)

// Presence tracks which accounts are watching the feed. Local connection
// counts are authoritative for this process; Redis mirrors them so that every
// instance reports the same viewer count.
type Presence struct {
	rdb *redis.Client

	mu     sync.RWMutex
	counts map[uint]int

	onlineSetKey   string
	lastSeenPrefix string
	lastSeenTTL    time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewPresence creates a tracker and starts the stale-entry reaper when Redis
// is available.
func NewPresence(rdb *redis.Client, reapInterval time.Duration) *Presence {
	p := &Presence{
		rdb:            rdb,
		counts:         make(map[uint]int),
		onlineSetKey:   defaultOnlineSetKey,
		lastSeenPrefix: defaultLastSeenPrefix,
		lastSeenTTL:    defaultLastSeenTTL,
		stopCh:         make(chan struct{}),
	}
	if reapInterval <= 0 {
		reapInterval = defaultReapInterval
	}
	if rdb != nil {
		go p.reapLoop(reapInterval)
	}
	return p
}

// Register records one more connection for accountID.
func (p *Presence) Register(accountID uint) {
	p.mu.Lock()
	p.counts[accountID]++
	p.mu.Unlock()
	p.Touch(accountID)
}

// Unregister records a closed connection. The Redis entry is removed when the
// last local connection of the account goes away.
func (p *Presence) Unregister(accountID uint) {
	p.mu.Lock()
	n := p.counts[accountID] - 1
	if n > 0 {
		p.counts[accountID] = n
		p.mu.Unlock()
		return
	}
	delete(p.counts, accountID)
	p.mu.Unlock()

	if p.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pipe := p.rdb.TxPipeline()
	pipe.SRem(ctx, p.onlineSetKey, member(accountID))
	pipe.Del(ctx, p.lastSeenKey(accountID))
	if _, err := pipe.Exec(ctx); err != nil {
		observability.RedisErrors.WithLabelValues("presence_remove").Inc()
	}
}

// Touch refreshes the last-seen key of accountID.
func (p *Presence) Touch(accountID uint) {
	if p.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pipe := p.rdb.TxPipeline()
	pipe.SAdd(ctx, p.onlineSetKey, member(accountID))
	pipe.SetEx(ctx, p.lastSeenKey(accountID), strconv.FormatInt(time.Now().Unix(), 10), p.lastSeenTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		observability.RedisErrors.WithLabelValues("presence_touch").Inc()
		middleware.Logger.Warn("presence touch failed", "account_id", accountID, "error", err)
	}
}

// OnlineCount returns the number of distinct accounts watching the feed.
// Without Redis, or when Redis fails, only local connections are counted.
func (p *Presence) OnlineCount(ctx context.Context) int {
	p.mu.RLock()
	local := len(p.counts)
	p.mu.RUnlock()
	if p.rdb == nil {
		return local
	}
	n, err := p.rdb.SCard(ctx, p.onlineSetKey).Result()
	if err != nil {
		observability.RedisErrors.WithLabelValues("scard").Inc()
		return local
	}
	if int(n) < local {
		return local
	}
	return int(n)
}

// reapOnce removes online-set members whose last-seen key has expired.
func (p *Presence) reapOnce(ctx context.Context) int {
	if p.rdb == nil {
		return 0
	}
	members, err := p.rdb.SMembers(ctx, p.onlineSetKey).Result()
	if err != nil {
		return 0
	}
	removed := 0
	for _, raw := range members {
		exists, err := p.rdb.Exists(ctx, p.lastSeenPrefix+raw).Result()
		if err != nil || exists > 0 {
			continue
		}
		if err := p.rdb.SRem(ctx, p.onlineSetKey, raw).Err(); err == nil {
			removed++
		}
	}
	return removed
}

func (p *Presence) reapLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.reapOnce(context.Background())
		}
	}
}

// Stop terminates the reaper.
func (p *Presence) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

func (p *Presence) lastSeenKey(accountID uint) string {
	return p.lastSeenPrefix + member(accountID)
}

func member(accountID uint) string {
	return strconv.FormatUint(uint64(accountID), 10)
}
