package scheduler

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/signvault/internal/logging"
	"github.com/stretchr/testify/assert"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
}

func TestRunner_EveryRunsAndStops(t *testing.T) {
	r := NewRunner(testLogger())

	var runs atomic.Int64
	job := &Job{Name: "count", Run: func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	r.Every(ctx, 10*time.Millisecond, job)

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cancel()
	r.Wait()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after cancel")
}

func TestRunner_SkipsOverlappingTicks(t *testing.T) {
	r := NewRunner(testLogger())

	var concurrent, peak atomic.Int64
	job := &Job{Name: "slow", Run: func(ctx context.Context) error {
		n := concurrent.Add(1)
		if n > peak.Load() {
			peak.Store(n)
		}
		time.Sleep(50 * time.Millisecond)
		concurrent.Add(-1)
		return nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	r.Every(ctx, 5*time.Millisecond, job)

	time.Sleep(150 * time.Millisecond)
	cancel()
	r.Wait()

	assert.Equal(t, int64(1), peak.Load(), "runs must never overlap")
}

func TestUntilNext(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

	assert.Equal(t, 30*time.Minute, untilNext(now, 11))
	// Hour already passed today: schedule for tomorrow.
	assert.Equal(t, 16*time.Hour+30*time.Minute, untilNext(now, 3))
}
