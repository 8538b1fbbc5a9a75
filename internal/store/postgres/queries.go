package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/officesearch/internal/directory"
	"github.com/JonMunkholm/officesearch/internal/resolve"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

const pointExpr = "ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography"

// reader implements resolve.Queries and directory.Reader over any DBTX.
type reader struct {
	db DBTX
}

func (r reader) FindPostcode(ctx context.Context, normalised string) (*directory.Postcode, error) {
	query, args, err := findPostcodeQuery(normalised).ToSql()
	if err != nil {
		return nil, err
	}
	pc, err := scanPostcode(r.db.QueryRow(ctx, query, args...))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find postcode: %w", err)
	}
	return &pc, nil
}

func (r reader) NearestOffices(ctx context.Context, q resolve.NearestQuery) ([]directory.Office, error) {
	return r.offices(ctx, nearestOfficesQuery(q))
}

func (r reader) MatchOffices(ctx context.Context, q resolve.MatchQuery) ([]directory.Office, error) {
	return r.offices(ctx, matchOfficesQuery(q))
}

func (r reader) Office(ctx context.Context, id string) (*directory.Office, error) {
	return r.office(ctx, sq.Eq{"o.id": id})
}

func (r reader) OfficeByLegacyID(ctx context.Context, legacyID int) (*directory.Office, error) {
	return r.office(ctx, sq.Eq{"o.legacy_id": legacyID})
}

func (r reader) Children(ctx context.Context, parentID string) ([]directory.Office, error) {
	return r.offices(ctx, selectOffices().Where(sq.Eq{"o.parent_id": parentID}).OrderBy("o.name", "o.id"))
}

func (r reader) OpeningTimes(ctx context.Context, officeID string) ([]directory.OpeningTime, error) {
	query, args, err := openingTimesQuery(officeID).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query opening times: %w", err)
	}
	return pgx.CollectRows(rows, scanOpeningTime)
}

func (r reader) ServedAuthorities(ctx context.Context, officeID string) ([]directory.LocalAuthority, error) {
	query, args, err := servedAuthoritiesQuery(officeID).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query served authorities: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (directory.LocalAuthority, error) {
		var la directory.LocalAuthority
		err := row.Scan(&la.ID, &la.Name)
		return la, err
	})
}

func (r reader) office(ctx context.Context, pred any) (*directory.Office, error) {
	query, args, err := selectOffices().Where(pred).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}
	o, err := scanOffice(r.db.QueryRow(ctx, query, args...))
	if isNoRows(err) {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query office: %w", err)
	}
	return &o, nil
}

func (r reader) offices(ctx context.Context, q sq.SelectBuilder) ([]directory.Office, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query offices: %w", err)
	}
	return pgx.CollectRows(rows, collectOffice)
}

func selectOffices() sq.SelectBuilder {
	cols := make([]string, len(officeColumns))
	for i, c := range officeColumns {
		cols[i] = "o." + c
	}
	return psql.Select(cols...).From("offices o")
}

// eligibleOffices selects kind=office rows, optionally only those
// recruiting volunteers.
func eligibleOffices(onlyWithVacancies bool) sq.SelectBuilder {
	q := selectOffices().Where(sq.Eq{"o.office_type": string(directory.KindOffice)})
	if onlyWithVacancies {
		q = q.Where("cardinality(o.volunteer_roles) > 0")
	}
	return q
}

// nearestOfficesQuery orders by geodesic distance; offices with no
// location have a NULL distance and sort last. Ties keep whatever order
// the planner produces.
func nearestOfficesQuery(q resolve.NearestQuery) sq.SelectBuilder {
	b := eligibleOffices(q.OnlyWithVacancies)
	if q.LocalAuthorityID != "" {
		b = b.Where(sq.Expr(
			"EXISTS (SELECT 1 FROM served_areas sa WHERE sa.office_id = o.id AND sa.local_authority_id = ?)",
			q.LocalAuthorityID,
		))
	}
	b = b.OrderByClause("ST_Distance(o.location, "+pointExpr+") ASC NULLS LAST", q.Point.Lon, q.Point.Lat)
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}
	return b
}

// matchOfficesQuery matches on office name or any served authority name.
// EXISTS keeps each office to one row without DISTINCT, which geography
// columns do not support.
func matchOfficesQuery(q resolve.MatchQuery) sq.SelectBuilder {
	pattern := "%" + escapeLike(q.Term) + "%"
	b := eligibleOffices(q.OnlyWithVacancies).
		Where(sq.Or{
			sq.ILike{"o.name": pattern},
			sq.Expr(`EXISTS (SELECT 1 FROM served_areas sa
				JOIN local_authorities la ON la.id = sa.local_authority_id
				WHERE sa.office_id = o.id AND la.name ILIKE ?)`, pattern),
		}).
		OrderBy("o.name", "o.id")
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}
	return b
}

func findPostcodeQuery(normalised string) sq.SelectBuilder {
	return psql.Select(postcodeColumns...).
		From("postcodes").
		Where(sq.Eq{"normalised": normalised}).
		Limit(1)
}

func openingTimesQuery(officeID string) sq.SelectBuilder {
	return psql.Select(openingTimeColumns...).
		From("opening_times").
		Where(sq.Eq{"office_id": officeID}).
		OrderBy("opening_time_for", "opens")
}

func servedAuthoritiesQuery(officeID string) sq.SelectBuilder {
	return psql.Select("la.id", "la.name").
		From("served_areas sa").
		Join("local_authorities la ON la.id = sa.local_authority_id").
		Where(sq.Eq{"sa.office_id": officeID}).
		OrderBy("la.name")
}

func countsQuery() sq.SelectBuilder {
	return psql.Select(
		"(SELECT count(*) FROM offices)",
		"(SELECT count(*) FROM served_areas)",
		"(SELECT count(*) FROM opening_times)",
		"(SELECT count(*) FROM local_authorities)",
		"(SELECT count(*) FROM postcodes)",
	)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
