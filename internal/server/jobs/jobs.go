// Package jobs runs the periodic maintenance work: the impact refresh and the
// optional zone rebuild.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/reforest/internal/logging"
	"github.com/dmitrijs2005/reforest/internal/server/clustering"
	"github.com/dmitrijs2005/reforest/internal/server/services"
	"github.com/go-co-op/gocron/v2"
)

// Task is one periodic job. A zero Interval disables it.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type Refresher interface {
	RefreshAll(ctx context.Context) (*services.RefreshReport, error)
}

type Rebuilder interface {
	RebuildAll(ctx context.Context, searchRadiusKm float64, minMembers int) (*clustering.RebuildReport, error)
}

func ImpactRefreshTask(r Refresher, every time.Duration) Task {
	return Task{
		Name:     "impact-refresh",
		Interval: every,
		Run: func(ctx context.Context) error {
			_, err := r.RefreshAll(ctx)
			return err
		},
	}
}

func ZoneRebuildTask(r Rebuilder, every time.Duration, radiusKm float64, minMembers int) Task {
	return Task{
		Name:     "zone-rebuild",
		Interval: every,
		Run: func(ctx context.Context) error {
			_, err := r.RebuildAll(ctx, radiusKm, minMembers)
			return err
		},
	}
}

// Runner schedules tasks on a gocron scheduler. Runs of one task never
// overlap; a tick that arrives while the previous run is busy is skipped.
type Runner struct {
	sched gocron.Scheduler
	log   logging.Logger
	added int
}

func NewRunner(log logging.Logger, opts ...gocron.SchedulerOption) (*Runner, error) {
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Runner{sched: s, log: log}, nil
}

// Add registers t. Tasks run with ctx, so cancelling it also cancels a run in
// progress. When immediately is set the first run starts right away instead
// of after one interval.
func (r *Runner) Add(ctx context.Context, t Task, immediately bool) error {
	if t.Interval <= 0 {
		r.log.Info(ctx, "job disabled", "job", t.Name)
		return nil
	}

	jobOpts := []gocron.JobOption{
		gocron.WithName(t.Name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if immediately {
		jobOpts = append(jobOpts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	_, err := r.sched.NewJob(
		gocron.DurationJob(t.Interval),
		gocron.NewTask(func() {
			start := time.Now()
			if err := t.Run(ctx); err != nil {
				r.log.Error(ctx, "job failed", "job", t.Name, "error", err)
				return
			}
			r.log.Info(ctx, "job finished", "job", t.Name, "took", time.Since(start).String())
		}),
		jobOpts...,
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", t.Name, err)
	}

	r.added++
	r.log.Info(ctx, "job scheduled", "job", t.Name, "every", t.Interval.String())
	return nil
}

// Jobs is the number of enabled tasks.
func (r *Runner) Jobs() int { return r.added }

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to return.
func (r *Runner) Run(ctx context.Context) error {
	r.sched.Start()
	<-ctx.Done()
	if err := r.sched.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	return nil
}
