package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func recv(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	case <-time.After(testEventuallyTimeout):
		t.Fatalf("no frame for profile %d", c.ProfileID)
		return nil
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected frame for profile %d: %s", c.ProfileID, msg)
	case <-time.After(5 * testPollInterval):
	}
}

func TestHub_ConnectionCaps(t *testing.T) {
	hub := NewHub(nil)
	defer func() { _ = hub.Shutdown(context.Background()) }()

	var first *Client
	for i := 0; i < maxConnsPerProfile; i++ {
		c, err := hub.Register(1, nil)
		require.NoError(t, err)
		if first == nil {
			first = c
		}
	}
	_, err := hub.Register(1, nil)
	assert.ErrorIs(t, err, ErrProfileFull)
	assert.Equal(t, maxConnsPerProfile, hub.ClientCount(1))

	_, err = hub.Register(2, nil)
	assert.NoError(t, err)

	hub.UnregisterClient(first)
	hub.UnregisterClient(first)
	assert.Equal(t, maxConnsPerProfile-1, hub.ClientCount(1))
	_, err = hub.Register(1, nil)
	assert.NoError(t, err)
}

func TestHub_RegisterAfterShutdown(t *testing.T) {
	hub := NewHub(nil)
	_, err := hub.Register(1, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Equal(t, 0, hub.ClientCount(1))

	_, err = hub.Register(1, nil)
	assert.ErrorIs(t, err, ErrServerFull)
}

func TestHub_ShutdownLeavesWritesToPump(t *testing.T) {
	hub := NewHub(nil)
	a, err := hub.Register(1, nil)
	require.NoError(t, err)
	b, err := hub.Register(2, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))

	for _, c := range []*Client{a, b} {
		select {
		case <-c.closed:
		default:
			t.Fatalf("client %d not signalled to stop", c.ProfileID)
		}
		c.TrySend([]byte(`{"type":"late"}`))
		assert.Empty(t, c.Send, "closed clients take no frames")
	}
}

func TestHub_Route(t *testing.T) {
	hub := NewHub(nil)
	defer func() { _ = hub.Shutdown(context.Background()) }()

	a1, _ := hub.Register(1, nil)
	a2, _ := hub.Register(1, nil)
	b, _ := hub.Register(2, nil)

	hub.route(UserChannel(1), `{"type":"x"}`)
	assert.Equal(t, `{"type":"x"}`, string(recv(t, a1)))
	assert.Equal(t, `{"type":"x"}`, string(recv(t, a2)))
	assertSilent(t, b)

	hub.route(BroadcastChannel, `{"type":"all"}`)
	for _, c := range []*Client{a1, a2, b} {
		assert.Equal(t, `{"type":"all"}`, string(recv(t, c)))
	}

	hub.route("notifications:user:abc", "bad")
	hub.route("listings:feed", "bad")
	hub.route(UserChannel(0), "bad")
	assertSilent(t, a1)
	assertSilent(t, b)
}

func TestHub_OnlineProfileIDsWithoutRedis(t *testing.T) {
	hub := NewHub(nil)
	defer func() { _ = hub.Shutdown(context.Background()) }()

	_, _ = hub.Register(9, nil)
	c, _ := hub.Register(3, nil)

	ids, err := hub.OnlineProfileIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 9}, ids)
	assert.True(t, hub.IsOnline(context.Background(), 3))

	hub.UnregisterClient(c)
	ids, err = hub.OnlineProfileIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint{9}, ids)
	assert.False(t, hub.IsOnline(context.Background(), 3))
}

func TestConnectionManager_RedisPresence(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()

	m := NewConnectionManager(rdb, ConnectionManagerConfig{
		OfflineGracePeriod: 10 * time.Millisecond,
		ReaperInterval:     time.Hour,
	})
	defer m.Stop()

	m.Register(ctx, 5)
	isMember, err := rdb.SIsMember(ctx, defaultOnlineSetKey, "5").Result()
	require.NoError(t, err)
	assert.True(t, isMember)

	// Another instance's profile, still fresh in Redis.
	require.NoError(t, rdb.SAdd(ctx, defaultOnlineSetKey, "8").Err())
	require.NoError(t, rdb.Set(ctx, defaultLastSeenKeyPrefix+"8", "1", time.Minute).Err())
	// A stale member without a last-seen key.
	require.NoError(t, rdb.SAdd(ctx, defaultOnlineSetKey, "44").Err())

	ids, err := m.OnlineProfileIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{5, 8}, ids)
	assert.True(t, m.IsOnline(ctx, 8))

	isMember, err = rdb.SIsMember(ctx, defaultOnlineSetKey, "44").Result()
	require.NoError(t, err)
	assert.False(t, isMember)

	mr.FastForward(2 * time.Minute)
	m.Unregister(ctx, 5)

	assert.Eventually(t, func() bool {
		ok, err := rdb.SIsMember(ctx, defaultOnlineSetKey, "5").Result()
		return err == nil && !ok
	}, testEventuallyTimeout, testPollInterval)
	assert.False(t, m.IsOnline(ctx, 5))

	ids, err = m.OnlineProfileIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestConnectionManager_ReconnectWithinGrace(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	m := NewConnectionManager(rdb, ConnectionManagerConfig{
		OfflineGracePeriod: 30 * time.Millisecond,
		ReaperInterval:     time.Hour,
	})
	defer m.Stop()

	m.Register(ctx, 10)
	m.Unregister(ctx, 10)
	m.Register(ctx, 10)

	assert.Never(t, func() bool {
		ok, err := rdb.SIsMember(ctx, defaultOnlineSetKey, "10").Result()
		return err != nil || !ok
	}, 10*testPollInterval, testPollInterval)
	assert.True(t, m.IsOnline(ctx, 10))
}

func TestClient_TrySendBackpressure(t *testing.T) {
	hub := NewHub(nil)
	c := NewClient(hub, nil, 1)

	for i := 0; i < sendBuffer; i++ {
		c.TrySend([]byte("x"))
	}
	c.TrySend([]byte("overflow"))
	assert.Len(t, c.Send, sendBuffer)

	c.Close()
	c.Close()
	c.TrySend([]byte("after close"))
	assert.Len(t, c.Send, sendBuffer)
}

func TestClient_InboundLimiter(t *testing.T) {
	c := NewClient(NewHub(nil), nil, 1)
	allowed := 0
	for i := 0; i < inboundBurst+5; i++ {
		if c.Allow() {
			allowed++
		}
	}
	assert.Equal(t, inboundBurst, allowed)
}
