// Package retention implements the scheduled archive-retention sweep: a
// cron job that deletes live_id directories under the cache root once
// they are older than the configured retention window.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper walks cacheRoot/<platform>/<room_id>/<live_id> directories and
// removes any whose modification time is older than retentionDays.
type Sweeper struct {
	cacheRoot     string
	retentionDays int
	logger        *slog.Logger

	cronSchedule string
	cronRunner   *cron.Cron
}

// New builds a Sweeper. retentionDays <= 0 disables deletion; Sweep still
// runs but removes nothing.
func New(cacheRoot string, retentionDays int, cronSchedule string, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		cacheRoot:     cacheRoot,
		retentionDays: retentionDays,
		cronSchedule:  cronSchedule,
		logger:        logger,
	}
}

// Start registers the sweep on the configured cron schedule and begins
// running it in the background. Call Stop to shut it down cleanly.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.cronSchedule == "" {
		return fmt.Errorf("retention: cron schedule is empty")
	}

	s.cronRunner = cron.New(cron.WithParser(
		cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	))

	if _, err := s.cronRunner.AddFunc(s.cronSchedule, func() {
		removed, err := s.Sweep(ctx)
		if err != nil {
			s.logger.Error("retention sweep failed", "error", err)
			return
		}
		if removed > 0 {
			s.logger.Info("retention sweep removed archives", "count", removed)
		}
	}); err != nil {
		return fmt.Errorf("retention: invalid cron schedule %q: %w", s.cronSchedule, err)
	}

	s.cronRunner.Start()
	return nil
}

// Stop halts the cron runner, waiting for any in-flight sweep to finish.
func (s *Sweeper) Stop() {
	if s.cronRunner == nil {
		return
	}
	stopCtx := s.cronRunner.Stop()
	<-stopCtx.Done()
}

// Sweep deletes every live_id directory under cacheRoot whose most recent
// modification is older than retentionDays, and returns how many were
// removed. A retentionDays of 0 or less is a no-op.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	if s.retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)

	platformDirs, err := os.ReadDir(s.cacheRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading cache root: %w", err)
	}

	removed := 0
	for _, platformDir := range platformDirs {
		if !platformDir.IsDir() {
			continue
		}
		platformPath := filepath.Join(s.cacheRoot, platformDir.Name())

		roomDirs, err := os.ReadDir(platformPath)
		if err != nil {
			s.logger.Warn("retention: reading platform dir failed", "path", platformPath, "error", err)
			continue
		}

		for _, roomDir := range roomDirs {
			if ctx.Err() != nil {
				return removed, ctx.Err()
			}
			if !roomDir.IsDir() {
				continue
			}
			roomPath := filepath.Join(platformPath, roomDir.Name())

			liveDirs, err := os.ReadDir(roomPath)
			if err != nil {
				s.logger.Warn("retention: reading room dir failed", "path", roomPath, "error", err)
				continue
			}

			for _, liveDir := range liveDirs {
				if !liveDir.IsDir() {
					continue
				}
				livePath := filepath.Join(roomPath, liveDir.Name())

				info, err := liveDir.Info()
				if err != nil {
					continue
				}
				if info.ModTime().After(cutoff) {
					continue
				}

				if err := os.RemoveAll(livePath); err != nil {
					s.logger.Warn("retention: removing archive failed", "path", livePath, "error", err)
					continue
				}
				s.logger.Info("retention: removed archive", "path", livePath, "age_days", int(time.Since(info.ModTime()).Hours()/24))
				removed++
			}
		}
	}

	return removed, nil
}
