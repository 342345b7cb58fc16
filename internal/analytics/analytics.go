// Package analytics serves the admin analytics RPCs. Live aggregations are
// cached in Redis; when one fails and the analytics_fallback flag is on, a
// deterministic generated dataset is returned instead.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"resort/internal/cache"
	"resort/internal/featureflags"
	"resort/internal/middleware"
	"resort/internal/observability"
	"resort/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// RPC names.
const (
	RPCTrending         = "get_trending_content"
	RPCRecentEngagement = "get_recent_engagement"
	RPCContent          = "get_content_analytics"
	RPCRetention        = "get_retention_metrics"
)

// Response sources.
const (
	SourceLive     = "live"
	SourceFallback = "fallback"
)

// Defaults and bounds for RPC arguments.
const (
	DefaultTrendingDays   = 7
	DefaultTrendingLimit  = 10
	DefaultEngagementDays = 14
	DefaultRetentionWeeks = 8

	maxDays  = 90
	maxLimit = 50
	maxWeeks = 26
)

// Result is the response envelope of every analytics RPC.
type Result struct {
	Data   any    `json:"data"`
	Source string `json:"source"`
}

// Repos groups the repositories the aggregations read.
type Repos struct {
	Engagement     repository.EngagementRepository
	Accommodations repository.AccommodationRepository
	Experiences    repository.ExperienceRepository
}

// Service runs the analytics aggregations.
type Service struct {
	repos Repos
	flags *featureflags.Manager
	ttl   time.Duration
	now   func() time.Time
}

// NewService returns a Service caching live results for ttl.
func NewService(repos Repos, flags *featureflags.Manager, ttl time.Duration) *Service {
	return &Service{repos: repos, flags: flags, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// Trending scores listings by weighted engagement over the last days.
func (s *Service) Trending(ctx context.Context, days, limit int) (*Result, error) {
	days = clamp(days, DefaultTrendingDays, maxDays)
	limit = clamp(limit, DefaultTrendingLimit, maxLimit)
	return serve(ctx, s, RPCTrending, fmt.Sprintf("%d:%d", days, limit),
		func(ctx context.Context) ([]TrendingItem, error) { return s.trending(ctx, days, limit) },
		func() []TrendingItem { return fallbackTrending(limit) },
	)
}

// RecentEngagement returns one zero-filled row per day, oldest first.
func (s *Service) RecentEngagement(ctx context.Context, days int) (*Result, error) {
	days = clamp(days, DefaultEngagementDays, maxDays)
	return serve(ctx, s, RPCRecentEngagement, fmt.Sprint(days),
		func(ctx context.Context) ([]DayEngagement, error) { return s.recentEngagement(ctx, days) },
		func() []DayEngagement { return fallbackEngagement(s.now(), days) },
	)
}

// ContentAnalytics summarizes each content type.
func (s *Service) ContentAnalytics(ctx context.Context) (*Result, error) {
	return serve(ctx, s, RPCContent, "all",
		s.contentAnalytics,
		fallbackContent,
	)
}

// Retention returns weekly signup cohorts with their activity per following week.
func (s *Service) Retention(ctx context.Context, weeks int) (*Result, error) {
	weeks = clamp(weeks, DefaultRetentionWeeks, maxWeeks)
	return serve(ctx, s, RPCRetention, fmt.Sprint(weeks),
		func(ctx context.Context) ([]Cohort, error) { return s.retention(ctx, weeks) },
		func() []Cohort { return fallbackRetention(s.now(), weeks) },
	)
}

// Warm recomputes every RPC with default arguments and refreshes the cache.
func (s *Service) Warm(ctx context.Context) error {
	cache.InvalidateAnalytics(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.Trending(gctx, DefaultTrendingDays, DefaultTrendingLimit)
		return err
	})
	g.Go(func() error {
		_, err := s.RecentEngagement(gctx, DefaultEngagementDays)
		return err
	})
	g.Go(func() error {
		_, err := s.ContentAnalytics(gctx)
		return err
	})
	g.Go(func() error {
		_, err := s.Retention(gctx, DefaultRetentionWeeks)
		return err
	})
	return g.Wait()
}

func serve[T any](
	ctx context.Context,
	s *Service,
	rpc, args string,
	live func(context.Context) ([]T, error),
	fallback func() []T,
) (*Result, error) {
	key := cache.AnalyticsKey(ctx, rpc, args)

	var data []T
	if found, err := cache.GetJSON(ctx, key, &data); err == nil && found {
		observability.AnalyticsRequests.WithLabelValues(rpc, "cache").Inc()
		return &Result{Data: nonNil(data), Source: SourceLive}, nil
	}

	spanCtx, span := observability.StartSpan(ctx, "analytics."+rpc, attribute.String("analytics.args", args))
	data, err := live(spanCtx)
	observability.EndSpan(span, err)
	if err != nil {
		if !s.flags.On(featureflags.AnalyticsFallback) {
			return nil, err
		}
		middleware.Logger.WarnContext(ctx, "analytics aggregation failed, serving fallback",
			slog.String("rpc", rpc),
			slog.String("error", err.Error()),
		)
		observability.AnalyticsRequests.WithLabelValues(rpc, SourceFallback).Inc()
		return &Result{Data: fallback(), Source: SourceFallback}, nil
	}

	data = nonNil(data)
	if err := cache.SetJSON(ctx, key, data, s.ttl); err != nil {
		middleware.Logger.DebugContext(ctx, "analytics cache write failed", slog.String("rpc", rpc), slog.String("error", err.Error()))
	}
	observability.AnalyticsRequests.WithLabelValues(rpc, SourceLive).Inc()
	return &Result{Data: data, Source: SourceLive}, nil
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

func clamp(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
