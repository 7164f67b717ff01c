// Package scheduler runs the background jobs on their intervals: document
// conversion, envelope expiration and the daily artifact purge.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/signvault/internal/logging"
)

// JobFunc is one runnable job body.
type JobFunc func(ctx context.Context) error

// Job couples a name with its body and an in-flight guard. A tick that
// arrives while the previous run is still going is skipped, so slow jobs
// never pile up.
type Job struct {
	Name    string
	Run     JobFunc
	running atomic.Bool
}

// Runner owns all scheduled jobs and their goroutines.
type Runner struct {
	logger logging.Logger
	wg     sync.WaitGroup
}

func NewRunner(logger logging.Logger) *Runner {
	return &Runner{logger: logger}
}

// Every starts a goroutine running the job on a fixed interval until the
// context is canceled.
func (r *Runner) Every(ctx context.Context, interval time.Duration, job *Job) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.execute(ctx, job)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// DailyAt starts a goroutine running the job once a day at the given local
// hour until the context is canceled.
func (r *Runner) DailyAt(ctx context.Context, hour int, job *Job) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		for {
			timer := time.NewTimer(untilNext(time.Now(), hour))
			select {
			case <-timer.C:
				r.execute(ctx, job)
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}()
}

// Wait blocks until every job goroutine has exited.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) execute(ctx context.Context, job *Job) {
	if !job.running.CompareAndSwap(false, true) {
		r.logger.Debug(ctx, "job still running, tick skipped", "job", job.Name)
		return
	}
	defer job.running.Store(false)

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		r.logger.Error(ctx, "job failed", "job", job.Name, "error", err)
		return
	}
	r.logger.Debug(ctx, "job finished", "job", job.Name, "elapsed", time.Since(start))
}

// untilNext returns the duration from now to the next occurrence of the
// given local hour.
func untilNext(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
