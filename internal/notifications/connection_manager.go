package notifications

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"resort/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	defaultOnlineSetKey      = "realtime:online"
	defaultLastSeenKeyPrefix = "realtime:last_seen:"
	defaultPresenceTTL       = 90 * time.Second
	defaultOfflineGrace      = 5 * time.Second
	defaultReaperInterval    = 60 * time.Second
)

// ConnectionManagerConfig tunes Redis presence tracking. Zero values use defaults.
type ConnectionManagerConfig struct {
	OnlineSetKey       string
	LastSeenKeyPrefix  string
	LastSeenTTL        time.Duration
	OfflineGracePeriod time.Duration
	ReaperInterval     time.Duration
}

// ConnectionManager counts local connections per profile and mirrors them
// into a Redis set shared by every instance. Each member carries a
// last-seen key with a TTL; members whose key expired are reaped.
type ConnectionManager struct {
	rdb *redis.Client

	mu            sync.Mutex
	local         map[uint]int
	offlineTimers map[uint]*time.Timer

	onlineSetKey      string
	lastSeenKeyPrefix string
	lastSeenTTL       time.Duration
	offlineGrace      time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewConnectionManager creates a manager and starts its reaper when rdb is set.
func NewConnectionManager(rdb *redis.Client, cfg ConnectionManagerConfig) *ConnectionManager {
	m := &ConnectionManager{
		rdb:               rdb,
		local:             make(map[uint]int),
		offlineTimers:     make(map[uint]*time.Timer),
		onlineSetKey:      defaultOnlineSetKey,
		lastSeenKeyPrefix: defaultLastSeenKeyPrefix,
		lastSeenTTL:       defaultPresenceTTL,
		offlineGrace:      defaultOfflineGrace,
		stopCh:            make(chan struct{}),
	}
	if cfg.OnlineSetKey != "" {
		m.onlineSetKey = cfg.OnlineSetKey
	}
	if cfg.LastSeenKeyPrefix != "" {
		m.lastSeenKeyPrefix = cfg.LastSeenKeyPrefix
	}
	if cfg.LastSeenTTL > 0 {
		m.lastSeenTTL = cfg.LastSeenTTL
	}
	if cfg.OfflineGracePeriod > 0 {
		m.offlineGrace = cfg.OfflineGracePeriod
	}
	interval := defaultReaperInterval
	if cfg.ReaperInterval > 0 {
		interval = cfg.ReaperInterval
	}
	if rdb != nil {
		go m.reaperLoop(interval)
	}
	return m
}

// Stop halts the reaper and pending offline timers.
func (m *ConnectionManager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.mu.Lock()
		for id, t := range m.offlineTimers {
			t.Stop()
			delete(m.offlineTimers, id)
		}
		m.mu.Unlock()
	})
}

// Register counts a new local connection for profileID.
func (m *ConnectionManager) Register(ctx context.Context, profileID uint) {
	m.mu.Lock()
	if t, ok := m.offlineTimers[profileID]; ok {
		t.Stop()
		delete(m.offlineTimers, profileID)
	}
	m.local[profileID]++
	m.mu.Unlock()

	m.Touch(ctx, profileID)
}

// Touch refreshes profileID's presence in Redis.
func (m *ConnectionManager) Touch(ctx context.Context, profileID uint) {
	if m.rdb == nil {
		return
	}
	pipe := m.rdb.TxPipeline()
	pipe.SAdd(ctx, m.onlineSetKey, strconv.FormatUint(uint64(profileID), 10))
	pipe.SetEx(ctx, m.lastSeenKey(profileID), strconv.FormatInt(time.Now().Unix(), 10), m.lastSeenTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		middleware.Logger.WarnContext(ctx, "presence touch failed",
			slog.Uint64("profile_id", uint64(profileID)),
			slog.String("error", err.Error()),
		)
	}
}

// Unregister drops one local connection. When the last one goes, the set
// member is pruned after the grace period once its last-seen key has lapsed.
func (m *ConnectionManager) Unregister(_ context.Context, profileID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.local[profileID] - 1; n > 0 {
		m.local[profileID] = n
		return
	}
	delete(m.local, profileID)
	if t, ok := m.offlineTimers[profileID]; ok {
		t.Stop()
	}
	m.offlineTimers[profileID] = time.AfterFunc(m.offlineGrace, func() {
		m.finalizeOffline(context.Background(), profileID)
	})
}

// IsOnline reports whether profileID is connected here or on another instance.
func (m *ConnectionManager) IsOnline(ctx context.Context, profileID uint) bool {
	m.mu.Lock()
	local := m.local[profileID] > 0
	m.mu.Unlock()
	if local || m.rdb == nil {
		return local
	}
	n, err := m.rdb.Exists(ctx, m.lastSeenKey(profileID)).Result()
	return err == nil && n > 0
}

// OnlineProfileIDs returns the union of live Redis members and local
// connections, sorted ascending. Stale Redis members are pruned on the way.
func (m *ConnectionManager) OnlineProfileIDs(ctx context.Context) ([]uint, error) {
	seen := map[uint]struct{}{}
	m.mu.Lock()
	for id, n := range m.local {
		if n > 0 {
			seen[id] = struct{}{}
		}
	}
	m.mu.Unlock()

	if m.rdb != nil {
		live, err := m.liveMembers(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range live {
			seen[id] = struct{}{}
		}
	}

	out := make([]uint, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *ConnectionManager) liveMembers(ctx context.Context) ([]uint, error) {
	members, err := m.rdb.SMembers(ctx, m.onlineSetKey).Result()
	if err != nil {
		return nil, err
	}
	live := make([]uint, 0, len(members))
	for _, raw := range members {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			_ = m.rdb.SRem(ctx, m.onlineSetKey, raw).Err()
			continue
		}
		n, err := m.rdb.Exists(ctx, m.lastSeenKey(uint(id))).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			_ = m.rdb.SRem(ctx, m.onlineSetKey, raw).Err()
			continue
		}
		live = append(live, uint(id))
	}
	return live, nil
}

func (m *ConnectionManager) reaperLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			if _, err := m.liveMembers(context.Background()); err != nil {
				middleware.Logger.Warn("presence reap failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (m *ConnectionManager) finalizeOffline(ctx context.Context, profileID uint) {
	m.mu.Lock()
	delete(m.offlineTimers, profileID)
	reconnected := m.local[profileID] > 0
	m.mu.Unlock()
	if reconnected || m.rdb == nil {
		return
	}
	// A live key means another instance still holds a connection.
	if n, err := m.rdb.Exists(ctx, m.lastSeenKey(profileID)).Result(); err == nil && n > 0 {
		return
	}
	_ = m.rdb.SRem(ctx, m.onlineSetKey, strconv.FormatUint(uint64(profileID), 10)).Err()
}

func (m *ConnectionManager) lastSeenKey(profileID uint) string {
	return m.lastSeenKeyPrefix + strconv.FormatUint(uint64(profileID), 10)
}
