// Package jobs runs the periodic background work: analytics cache warm-up,
// the retention snapshot and the presence flush.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"resort/internal/analytics"
	"resort/internal/config"
	"resort/internal/middleware"
	"resort/internal/observability"
	"resort/internal/repository"

	"github.com/robfig/cron/v3"
)

// Job names.
const (
	JobAnalyticsWarm     = "analytics_warm"
	JobRetentionSnapshot = "retention_snapshot"
	JobPresenceFlush     = "presence_flush"
)

const retentionSchedule = "0 3 * * *"

// Presence reports which profiles currently hold a realtime connection.
type Presence interface {
	OnlineProfileIDs(ctx context.Context) ([]uint, error)
}

// Deps are the collaborators the jobs drive.
type Deps struct {
	Analytics *analytics.Service
	Profiles  repository.ProfileRepository
	Presence  Presence
}

type job struct {
	name     string
	schedule string
	timeout  time.Duration
	run      func(ctx context.Context) error
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron   *cron.Cron
	jobs   map[string]job
	logger *slog.Logger
	now    func() time.Time
	base   context.Context
}

// New registers every job on its configured schedule.
func New(cfg *config.Config, deps Deps) (*Scheduler, error) {
	logger := middleware.Logger.With(slog.String("component", "jobs"))
	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))),
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		jobs:   map[string]job{},
		logger: logger,
		now:    time.Now,
		base:   context.Background(),
	}

	warm, flush := "*/10 * * * *", "@every 1m"
	if cfg != nil {
		if cfg.AnalyticsWarmSchedule != "" {
			warm = cfg.AnalyticsWarmSchedule
		}
		if cfg.PresenceFlushSchedule != "" {
			flush = cfg.PresenceFlushSchedule
		}
	}

	all := []job{
		{name: JobAnalyticsWarm, schedule: warm, timeout: 2 * time.Minute, run: deps.warmAnalytics},
		{name: JobRetentionSnapshot, schedule: retentionSchedule, timeout: 2 * time.Minute, run: s.retentionSnapshot(deps)},
		{name: JobPresenceFlush, schedule: flush, timeout: 30 * time.Second, run: s.flushPresence(deps)},
	}
	for _, j := range all {
		if _, err := s.cron.AddFunc(j.schedule, func() { _ = s.execute(s.base, j) }); err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", j.name, j.schedule, err)
		}
		s.jobs[j.name] = j
	}
	return s, nil
}

// Start runs the scheduler until Stop. Jobs inherit ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.base = ctx
	s.cron.Start()
	s.logger.InfoContext(ctx, "job scheduler started", slog.Int("jobs", len(s.jobs)))
}

// Stop halts scheduling and waits for running jobs or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "job scheduler stop timed out")
	}
}

// Names lists registered jobs.
func (s *Scheduler) Names() []string {
	out := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Run executes one job immediately.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.execute(ctx, j)
}

func (s *Scheduler) execute(parent context.Context, j job) error {
	ctx, cancel := context.WithTimeout(parent, j.timeout)
	defer cancel()

	ctx, span := observability.StartSpan(ctx, "job."+j.name)
	started := time.Now()
	err := j.run(ctx)
	observability.EndSpan(span, err)
	observability.JobRuns.WithLabelValues(j.name, observability.ResultLabel(err)).Inc()
	observability.LogJob(ctx, s.logger, j.name, started, err)
	return err
}

func (d Deps) warmAnalytics(ctx context.Context) error {
	if d.Analytics == nil {
		return nil
	}
	return d.Analytics.Warm(ctx)
}

func (s *Scheduler) retentionSnapshot(d Deps) func(context.Context) error {
	return func(ctx context.Context) error {
		if d.Analytics == nil {
			return nil
		}
		res, err := d.Analytics.Retention(ctx, analytics.DefaultRetentionWeeks)
		if err != nil {
			return err
		}
		cohorts, _ := res.Data.([]analytics.Cohort)
		signups := 0
		for _, c := range cohorts {
			signups += c.Size
		}
		attrs := []any{
			slog.String("source", res.Source),
			slog.Int("cohorts", len(cohorts)),
			slog.Int("signups", signups),
		}
		if n := len(cohorts); n >= 2 && len(cohorts[n-2].Retention) > 1 {
			attrs = append(attrs, slog.Float64("last_week_retention", cohorts[n-2].Retention[1]))
		}
		s.logger.InfoContext(ctx, "retention snapshot", attrs...)
		return nil
	}
}

func (s *Scheduler) flushPresence(d Deps) func(context.Context) error {
	return func(ctx context.Context) error {
		if d.Presence == nil || d.Profiles == nil {
			return nil
		}
		ids, err := d.Presence.OnlineProfileIDs(ctx)
		if err != nil {
			return err
		}
		n, err := d.Profiles.TouchLastSeen(ctx, ids, s.now().UTC())
		if err != nil {
			return err
		}
		s.logger.DebugContext(ctx, "presence flushed", slog.Int("online", len(ids)), slog.Int64("updated", n))
		return nil
	}
}
