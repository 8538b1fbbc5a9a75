package ingest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/JonMunkholm/officesearch/internal/directory"
	"github.com/JonMunkholm/officesearch/internal/logging"
	"github.com/JonMunkholm/officesearch/internal/schema"
	"github.com/JonMunkholm/officesearch/internal/source"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultPostcodeBatchSize is the number of postcodes per upsert statement.
const DefaultPostcodeBatchSize = 10000

// ReferenceResult summarises one reference-data load.
type ReferenceResult struct {
	RunID       string        `json:"run_id"`
	Authorities AuthoritySet  `json:"-"`
	Postcodes   int64         `json:"postcodes"`
	Pruned      PruneCounts   `json:"pruned"`
	Dropped     Drops         `json:"dropped"`
	Duration    time.Duration `json:"duration"`
}

// ReferenceLoader replaces local authorities and upserts postcodes.
type ReferenceLoader struct {
	store     Store
	batchSize int
}

// NewReferenceLoader creates a loader writing batchSize postcodes per
// statement.
func NewReferenceLoader(store Store, batchSize int) *ReferenceLoader {
	if batchSize <= 0 {
		batchSize = DefaultPostcodeBatchSize
	}
	return &ReferenceLoader{store: store, batchSize: batchSize}
}

// Load reads the postcode directory export. Rows without an authority code
// and name, a postcode or usable coordinates are dropped. The set of
// authorities seen in the file replaces the stored set; references to
// authorities that disappeared are cleared in the same transaction.
//
// Load does not serialise itself; callers hold a Lock.
func (l *ReferenceLoader) Load(ctx context.Context, r source.Reader) (res *ReferenceResult, err error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := logging.WithFields(ctx, "run_id", runID, "kind", "postcodes")

	defer func() {
		runsTotal.WithLabelValues("postcodes", outcome(err)).Inc()
		runDuration.WithLabelValues("postcodes").Observe(time.Since(start).Seconds())
		if err != nil {
			logger.Error("reference load failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		}
	}()

	if err := schema.Postcodes.Check(r.Header()); err != nil {
		return nil, err
	}
	logger.Info("reference load started", "batch_size", l.batchSize)

	res = &ReferenceResult{RunID: runID, Dropped: make(Drops)}
	names := make(map[string]string)

	err = l.store.InTx(ctx, func(tx Tx) error {
		if err := tx.DeferConstraints(ctx, referenceConstraints...); err != nil {
			return fmt.Errorf("defer constraints: %w", err)
		}
		if err := tx.DeleteLocalAuthorities(ctx); err != nil {
			return fmt.Errorf("delete local authorities: %w", err)
		}

		written, err := l.upsertChunks(ctx, tx, r, names, res.Dropped)
		if err != nil {
			return err
		}
		res.Postcodes = written

		authorities := make([]directory.LocalAuthority, 0, len(names))
		for id, name := range names {
			authorities = append(authorities, directory.LocalAuthority{ID: id, Name: name})
		}
		sort.Slice(authorities, func(i, j int) bool { return authorities[i].ID < authorities[j].ID })
		if _, err := tx.InsertLocalAuthorities(ctx, authorities); err != nil {
			return fmt.Errorf("insert local authorities: %w", err)
		}

		if res.Pruned, err = tx.PruneAuthorityReferences(ctx); err != nil {
			return fmt.Errorf("prune authority references: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Authorities = make(AuthoritySet, len(names))
	for id := range names {
		res.Authorities[id] = struct{}{}
	}
	res.Duration = time.Since(start)
	recordsWritten.WithLabelValues("postcodes").Add(float64(res.Postcodes))
	recordsWritten.WithLabelValues("local_authorities").Add(float64(len(names)))

	logger.Info("reference load completed",
		"postcodes", res.Postcodes,
		"local_authorities", len(names),
		"offices_cleared", res.Pruned.OfficesCleared,
		"served_areas_deleted", res.Pruned.ServedAreasDeleted,
		"postcodes_deleted", res.Pruned.PostcodesDeleted,
		"dropped", res.Dropped.Total(),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// upsertChunks reads chunk N+1 while chunk N is written. Only the writer
// goroutine touches tx.
func (l *ReferenceLoader) upsertChunks(ctx context.Context, tx Tx, r source.Reader, names map[string]string, drops Drops) (int64, error) {
	g, gctx := errgroup.WithContext(ctx)
	chunks := make(chan []directory.Postcode, 1)

	g.Go(func() error {
		defer close(chunks)

		batch := make([]directory.Postcode, 0, l.batchSize)
		send := func() error {
			if len(batch) == 0 {
				return nil
			}
			select {
			case chunks <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
			batch = make([]directory.Postcode, 0, l.batchSize)
			return nil
		}

		err := source.Each(r, func(row source.Row) error {
			pc, authority, reason := postcodeFromRow(row)
			if authority.ID != "" {
				names[authority.ID] = authority.Name
			}
			if reason != "" {
				drops.add(schema.SourcePostcodes, reason)
				return nil
			}
			batch = append(batch, pc)
			if len(batch) >= l.batchSize {
				return send()
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("read postcodes: %w", err)
		}
		return send()
	})

	var written int64
	g.Go(func() error {
		for chunk := range chunks {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := tx.UpsertPostcodes(gctx, chunk)
			if err != nil {
				return fmt.Errorf("upsert postcodes: %w", err)
			}
			written += n
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return written, nil
}

// postcodeFromRow returns the row's authority whenever its code and name
// are present, even when the postcode itself is dropped.
func postcodeFromRow(row source.Row) (directory.Postcode, directory.LocalAuthority, string) {
	code, name := row.Str("local_authority_code"), row.Str("local_authority_name")
	if !code.Valid || !name.Valid {
		return directory.Postcode{}, directory.LocalAuthority{}, reasonBlankAuthority
	}
	authority := directory.LocalAuthority{ID: code.String, Name: name.String}

	canonical := row.Get("postcode")
	if canonical == "" {
		return directory.Postcode{}, authority, reasonBlankPostcode
	}
	lat, latOK := row.Float("lat")
	lon, lonOK := row.Float("lon")
	if !latOK || !lonOK {
		return directory.Postcode{}, authority, reasonInvalidLocation
	}
	p, err := directory.NewPoint(lat, lon)
	if err != nil {
		return directory.Postcode{}, authority, reasonInvalidLocation
	}
	return directory.Postcode{Canonical: canonical, Location: p, LocalAuthorityID: code.String}, authority, ""
}
