package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		_ = client.Close()
		client = nil
	})
	return mr
}

type cachedThing struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestAside(t *testing.T) {
	useMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedThing) func() error {
		return func() error {
			calls++
			*dest = cachedThing{Name: "cabin", Count: calls}
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, "thing", &first, time.Minute, fetch(&first)))
	assert.Equal(t, 1, first.Count)

	var second cachedThing
	require.NoError(t, Aside(ctx, "thing", &second, time.Minute, fetch(&second)))
	assert.Equal(t, 1, second.Count, "second read should come from cache")
	assert.Equal(t, 1, calls)

	Invalidate(ctx, "thing")
	var third cachedThing
	require.NoError(t, Aside(ctx, "thing", &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, third.Count)
}

func TestAside_FetchErrorNotCached(t *testing.T) {
	mr := useMiniredis(t)
	var dest cachedThing
	err := Aside(context.Background(), "broken", &dest, time.Minute, func() error {
		return errors.New("db down")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists("broken"))
}

func TestAside_WithoutRedis(t *testing.T) {
	client = nil
	var dest cachedThing
	err := Aside(context.Background(), "k", &dest, time.Minute, func() error {
		dest.Name = "live"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "live", dest.Name)
}

func TestListingsBrowseKey_VersionBump(t *testing.T) {
	useMiniredis(t)
	ctx := context.Background()

	before := ListingsBrowseKey(ctx, "accommodation", "q=lake")
	InvalidateListings(ctx, "accommodation")
	after := ListingsBrowseKey(ctx, "accommodation", "q=lake")
	assert.NotEqual(t, before, after)

	assert.Equal(t, ListingsBrowseKey(ctx, "experience", "q=lake"), "listings:experience:v0:q=lake")
}

func TestAnalyticsKey_VersionBump(t *testing.T) {
	useMiniredis(t)
	ctx := context.Background()

	before := AnalyticsKey(ctx, "get_trending_content", "7")
	InvalidateAnalytics(ctx)
	assert.NotEqual(t, before, AnalyticsKey(ctx, "get_trending_content", "7"))
}
