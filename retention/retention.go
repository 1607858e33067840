// Package retention prunes old job logs from the log directory.
//
// Job logs accumulate one file per job per process, so a long-lived
// orchestrator sweeps the directory on a cron schedule and removes logs
// older than the configured maximum age. The sweeper only ever touches
// .log files; anything else in the directory is left alone.
package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidCronSpec is returned when the cron specification cannot be parsed.
var ErrInvalidCronSpec = errors.New("invalid cron spec")

// Sweeper removes expired job logs on a cron schedule.
type Sweeper struct {
	logdir   string
	maxAge   time.Duration
	schedule cron.Schedule
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper for the given log directory.
// The spec follows standard cron format (5 fields: minute, hour, day,
// month, weekday). Returns ErrInvalidCronSpec if it cannot be parsed.
func NewSweeper(logdir string, maxAge time.Duration, spec string, logger *slog.Logger) (*Sweeper, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronSpec, err)
	}

	return &Sweeper{
		logdir:   logdir,
		maxAge:   maxAge,
		schedule: schedule,
		logger:   logger,
	}, nil
}

// Start launches a goroutine that sweeps according to the schedule.
// Returns immediately. The goroutine exits when ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go s.loop(ctx)
}

// NextRun returns the next scheduled sweep time from now.
func (s *Sweeper) NextRun() time.Time {
	return s.schedule.Next(time.Now())
}

// loop is the scheduling loop that runs in a goroutine.
func (s *Sweeper) loop(ctx context.Context) {
	for {
		nextRun := s.schedule.Next(time.Now())
		waitDuration := time.Until(nextRun)

		s.logger.Debug("waiting for next log sweep",
			"next_run", nextRun,
			"wait_duration", waitDuration,
		)

		select {
		case <-ctx.Done():
			s.logger.Info("log sweeper shutting down")
			return
		case <-time.After(waitDuration):
			if n, err := s.Sweep(); err != nil {
				s.logger.Warn("log sweep completed with error", "error", err)
			} else {
				s.logger.Info("log sweep completed", "removed", n)
			}
		}
	}
}

// Sweep removes all .log files older than the maximum age and returns
// how many were removed. A missing log directory is not an error; no
// jobs have run yet.
func (s *Sweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(s.logdir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading log directory: %w", err)
	}

	cutoff := time.Now().Add(-s.maxAge)
	removed := 0
	var errs []error

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.logdir, entry.Name())
		if err := os.Remove(path); err != nil {
			errs = append(errs, err)
			continue
		}
		s.logger.Debug("removed expired job log", "path", path)
		removed++
	}

	return removed, errors.Join(errs...)
}
