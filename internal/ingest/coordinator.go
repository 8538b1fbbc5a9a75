package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/officesearch/internal/logging"
	"github.com/google/uuid"
)

// Result summarises one office ingestion run.
type Result struct {
	RunID        string        `json:"run_id"`
	Offices      int64         `json:"offices"`
	ServedAreas  int64         `json:"served_areas"`
	OpeningTimes int64         `json:"opening_times"`
	Dropped      Drops         `json:"dropped"`
	Duration     time.Duration `json:"duration"`
}

// Coordinator replaces the office dataset atomically.
type Coordinator struct {
	store Store
}

// NewCoordinator creates a Coordinator writing through store.
func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{store: store}
}

// Load validates every source header, then deletes and rebuilds offices,
// served areas and opening times in one transaction. On any error the
// stored dataset is left exactly as it was. authorities is the set of
// local authority ids that office references are checked against.
//
// Load does not serialise itself; callers hold a Lock.
func (c *Coordinator) Load(ctx context.Context, src Sources, authorities AuthoritySet) (res *Result, err error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := logging.WithFields(ctx, "run_id", runID, "kind", "offices")

	defer func() {
		runsTotal.WithLabelValues("offices", outcome(err)).Inc()
		runDuration.WithLabelValues("offices").Observe(time.Since(start).Seconds())
		if err != nil {
			logger.Error("office ingestion failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		}
	}()

	if err := src.Validate(); err != nil {
		return nil, err
	}
	logger.Info("office ingestion started", "authorities", len(authorities))

	res = &Result{RunID: runID}
	graphBuilder := NewOfficeGraphBuilder(logger)
	timeBuilder := NewOpeningTimeBuilder(logger)

	err = c.store.InTx(ctx, func(tx Tx) error {
		if err := tx.DeferConstraints(ctx, officeConstraints...); err != nil {
			return fmt.Errorf("defer constraints: %w", err)
		}
		if err := tx.DeleteOfficeData(ctx); err != nil {
			return fmt.Errorf("delete office data: %w", err)
		}

		graph, err := graphBuilder.Build(src, authorities)
		if err != nil {
			return err
		}
		times, err := timeBuilder.Build(src.OpeningHours, graph.IDs(), graph.Drops)
		if err != nil {
			return err
		}
		res.Dropped = graph.Drops

		if res.Offices, err = tx.InsertOffices(ctx, graph.List()); err != nil {
			return fmt.Errorf("insert offices: %w", err)
		}
		if res.ServedAreas, err = tx.InsertServedAreas(ctx, graph.ServedAreas); err != nil {
			return fmt.Errorf("insert served areas: %w", err)
		}
		if res.OpeningTimes, err = tx.InsertOpeningTimes(ctx, times); err != nil {
			return fmt.Errorf("insert opening times: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	recordsWritten.WithLabelValues("offices").Add(float64(res.Offices))
	recordsWritten.WithLabelValues("served_areas").Add(float64(res.ServedAreas))
	recordsWritten.WithLabelValues("opening_times").Add(float64(res.OpeningTimes))

	logger.Info("office ingestion completed",
		"offices", res.Offices,
		"served_areas", res.ServedAreas,
		"opening_times", res.OpeningTimes,
		"dropped", res.Dropped.Total(),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
