package core

// scheduler.go runs the periodic refresh.
//
// Each tick reloads reference data and offices from the configured
// sources. A failed or skipped run is logged and the scheduler keeps
// going; the stored dataset is only replaced by a run that succeeds.

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/JonMunkholm/officesearch/internal/ingest"
)

// StartRefreshScheduler refreshes immediately, then every interval, until
// ctx is cancelled. A tick that finds another run holding the lock is
// skipped.
func (s *Service) StartRefreshScheduler(ctx context.Context, interval time.Duration) {
	slog.Info("refresh scheduler started", "interval", interval.String())

	s.runRefreshJob(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("refresh scheduler stopped")
			return
		case <-ticker.C:
			s.runRefreshJob(ctx)
		}
	}
}

// runRefreshJob performs one refresh cycle.
func (s *Service) runRefreshJob(ctx context.Context) {
	slog.Debug("refresh job started")
	start := time.Now()

	report, err := s.Refresh(ctx)
	switch {
	case errors.Is(err, ingest.ErrIngestionInProgress):
		slog.Info("refresh skipped, ingestion in progress")
		return
	case ctx.Err() != nil:
		return
	case err != nil:
		slog.Error("refresh failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}

	attrs := []any{"duration_ms", time.Since(start).Milliseconds()}
	if report.Reference != nil {
		attrs = append(attrs, "postcodes", report.Reference.Postcodes)
	}
	if report.Offices != nil {
		attrs = append(attrs,
			"offices", report.Offices.Offices,
			"opening_times", report.Offices.OpeningTimes,
		)
	}
	slog.Info("refresh job completed", attrs...)
}
