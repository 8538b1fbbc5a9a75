package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/officesearch/internal/directory"
	"github.com/JonMunkholm/officesearch/internal/ingest"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

const upsertPostcodeConflict = "ON CONFLICT (normalised) DO UPDATE SET " +
	"latitude = EXCLUDED.latitude, " +
	"longitude = EXCLUDED.longitude, " +
	"local_authority_id = EXCLUDED.local_authority_id"

// writer implements ingest.Tx inside one pgx.Tx.
type writer struct {
	db DBTX
}

func (w *writer) DeferConstraints(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	if _, err := w.db.Exec(ctx, deferConstraintsSQL(names)); err != nil {
		return err
	}
	return nil
}

func (w *writer) DeleteOfficeData(ctx context.Context) error {
	for _, table := range []string{"served_areas", "opening_times", "offices"} {
		if err := w.exec(ctx, psql.Delete(table)); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}

func (w *writer) InsertOffices(ctx context.Context, offices []*directory.Office) (int64, error) {
	return w.db.CopyFrom(ctx, pgx.Identifier{"offices"}, officeColumns,
		pgx.CopyFromSlice(len(offices), func(i int) ([]any, error) {
			return officeRow(offices[i]), nil
		}))
}

func (w *writer) InsertServedAreas(ctx context.Context, areas []directory.ServedArea) (int64, error) {
	return w.db.CopyFrom(ctx, pgx.Identifier{"served_areas"}, servedAreaColumns,
		pgx.CopyFromSlice(len(areas), func(i int) ([]any, error) {
			return []any{areas[i].OfficeID, areas[i].LocalAuthorityID}, nil
		}))
}

func (w *writer) InsertOpeningTimes(ctx context.Context, times []directory.OpeningTime) (int64, error) {
	return w.db.CopyFrom(ctx, pgx.Identifier{"opening_times"}, openingTimeColumns,
		pgx.CopyFromSlice(len(times), func(i int) ([]any, error) {
			return openingTimeRow(times[i]), nil
		}))
}

func (w *writer) DeleteLocalAuthorities(ctx context.Context) error {
	return w.exec(ctx, psql.Delete("local_authorities"))
}

func (w *writer) InsertLocalAuthorities(ctx context.Context, authorities []directory.LocalAuthority) (int64, error) {
	return w.db.CopyFrom(ctx, pgx.Identifier{"local_authorities"}, localAuthorityColumns,
		pgx.CopyFromSlice(len(authorities), func(i int) ([]any, error) {
			return []any{authorities[i].ID, authorities[i].Name}, nil
		}))
}

func (w *writer) UpsertPostcodes(ctx context.Context, postcodes []directory.Postcode) (int64, error) {
	if len(postcodes) == 0 {
		return 0, nil
	}
	query, args, err := upsertPostcodesQuery(postcodes).ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := w.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (w *writer) PruneAuthorityReferences(ctx context.Context) (ingest.PruneCounts, error) {
	var counts ingest.PruneCounts

	steps := []struct {
		name string
		q    sq.Sqlizer
		n    *int64
	}{
		{"clear office authorities", pruneOfficesQuery(), &counts.OfficesCleared},
		{"delete served areas", pruneServedAreasQuery(), &counts.ServedAreasDeleted},
		{"delete postcodes", prunePostcodesQuery(), &counts.PostcodesDeleted},
	}
	for _, s := range steps {
		query, args, err := s.q.ToSql()
		if err != nil {
			return counts, err
		}
		tag, err := w.db.Exec(ctx, query, args...)
		if err != nil {
			return counts, fmt.Errorf("%s: %w", s.name, err)
		}
		*s.n = tag.RowsAffected()
	}
	return counts, nil
}

func (w *writer) exec(ctx context.Context, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return err
	}
	_, err = w.db.Exec(ctx, query, args...)
	return err
}

func deferConstraintsSQL(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = pgx.Identifier{n}.Sanitize()
	}
	return "SET CONSTRAINTS " + strings.Join(quoted, ", ") + " DEFERRED"
}

// upsertPostcodesQuery collapses postcodes sharing a normalised key, since
// one statement cannot update the same row twice. The first spelling and
// the last location win.
func upsertPostcodesQuery(postcodes []directory.Postcode) sq.InsertBuilder {
	index := make(map[string]int, len(postcodes))
	merged := make([]directory.Postcode, 0, len(postcodes))
	for _, pc := range postcodes {
		key := pc.Normalised()
		if i, ok := index[key]; ok {
			merged[i].Location = pc.Location
			merged[i].LocalAuthorityID = pc.LocalAuthorityID
			continue
		}
		index[key] = len(merged)
		merged = append(merged, pc)
	}

	q := psql.Insert("postcodes").Columns("canonical", "latitude", "longitude", "local_authority_id")
	for _, pc := range merged {
		q = q.Values(pc.Canonical, pc.Location.Lat, pc.Location.Lon, pc.LocalAuthorityID)
	}
	return q.Suffix(upsertPostcodeConflict)
}

func authorityMissing(column string) sq.Sqlizer {
	return sq.Expr("NOT EXISTS (SELECT 1 FROM local_authorities la WHERE la.id = " + column + ")")
}

func pruneOfficesQuery() sq.UpdateBuilder {
	return psql.Update("offices").
		Set("local_authority_id", nil).
		Where(sq.NotEq{"local_authority_id": nil}).
		Where(authorityMissing("offices.local_authority_id"))
}

func pruneServedAreasQuery() sq.DeleteBuilder {
	return psql.Delete("served_areas").Where(authorityMissing("served_areas.local_authority_id"))
}

func prunePostcodesQuery() sq.DeleteBuilder {
	return psql.Delete("postcodes").Where(authorityMissing("postcodes.local_authority_id"))
}
