package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	profileKeyFmt       = "profile:%d"
	listingsVersionKey  = "listings:%s:version"
	listingsBrowseFmt   = "listings:%s:v%d:%s"
	analyticsVersionKey = "analytics:version"
	analyticsKeyFmt     = "analytics:v%d:%s:%s"
)

const (
	ProfileTTL = 5 * time.Minute
	ListTTL    = 60 * time.Second
)

// ProfileKey is the cache key for one profile.
func ProfileKey(profileID uint) string {
	return fmt.Sprintf(profileKeyFmt, profileID)
}

// ListingsBrowseKey is the versioned cache key for one browse query of
// contentType. Bumping the version orphans every cached page at once.
func ListingsBrowseKey(ctx context.Context, contentType, query string) string {
	return fmt.Sprintf(listingsBrowseFmt, contentType, version(ctx, fmt.Sprintf(listingsVersionKey, contentType)), query)
}

// AnalyticsKey is the versioned cache key for one analytics RPC call.
func AnalyticsKey(ctx context.Context, rpc, args string) string {
	return fmt.Sprintf(analyticsKeyFmt, version(ctx, analyticsVersionKey), rpc, args)
}

// Invalidate deletes key.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateProfile drops the cached profile.
func InvalidateProfile(ctx context.Context, profileID uint) {
	Invalidate(ctx, ProfileKey(profileID))
}

// InvalidateListings bumps the browse version for contentType.
func InvalidateListings(ctx context.Context, contentType string) {
	bump(ctx, fmt.Sprintf(listingsVersionKey, contentType))
}

// InvalidateAnalytics bumps the analytics version.
func InvalidateAnalytics(ctx context.Context) {
	bump(ctx, analyticsVersionKey)
}

func version(ctx context.Context, key string) int64 {
	if client == nil {
		return 0
	}
	v, err := client.Get(ctx, key).Int64()
	if err != nil {
		return 0
	}
	return v
}

func bump(ctx context.Context, key string) {
	if client != nil {
		client.Incr(ctx, key)
	}
}
