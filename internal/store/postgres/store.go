// Package postgres is the PostGIS-backed store. Offices and postcodes carry
// a generated geography column so distance ordering happens in the
// database; reference constraints are created DEFERRABLE so ingestion can
// replace whole tables inside one transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/officesearch/internal/directory"
	"github.com/JonMunkholm/officesearch/internal/ingest"
	"github.com/JonMunkholm/officesearch/internal/resolve"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store implements ingest.Store and resolve.Store on a connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InTx runs fn in a read-write transaction.
func (s *Store) InTx(ctx context.Context, fn func(ingest.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	if err := fn(&writer{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Snapshot runs fn in a read-only repeatable-read transaction, so every
// query inside sees the same committed dataset.
func (s *Store) Snapshot(ctx context.Context, fn func(resolve.Queries) error) error {
	return s.readOnly(ctx, func(r reader) error { return fn(r) })
}

// View is Snapshot for office page reads.
func (s *Store) View(ctx context.Context, fn func(directory.Reader) error) error {
	return s.readOnly(ctx, func(r reader) error { return fn(r) })
}

func (s *Store) readOnly(ctx context.Context, fn func(reader) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(reader{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Counts sizes every table.
func (s *Store) Counts(ctx context.Context) (directory.Counts, error) {
	query, args, err := countsQuery().ToSql()
	if err != nil {
		return directory.Counts{}, err
	}
	var c directory.Counts
	err = s.pool.QueryRow(ctx, query, args...).Scan(
		&c.Offices, &c.ServedAreas, &c.OpeningTimes, &c.LocalAuthorities, &c.Postcodes,
	)
	if err != nil {
		return directory.Counts{}, fmt.Errorf("count rows: %w", err)
	}
	return c, nil
}

// Office returns the office with id or directory.ErrNotFound.
func (s *Store) Office(ctx context.Context, id string) (*directory.Office, error) {
	return reader{db: s.pool}.Office(ctx, id)
}

// OfficeByLegacyID finds an office by its numeric legacy id.
func (s *Store) OfficeByLegacyID(ctx context.Context, legacyID int) (*directory.Office, error) {
	return reader{db: s.pool}.OfficeByLegacyID(ctx, legacyID)
}

// Children lists offices whose parent is parentID, by name.
func (s *Store) Children(ctx context.Context, parentID string) ([]directory.Office, error) {
	return reader{db: s.pool}.Children(ctx, parentID)
}

// OpeningTimes lists the opening times of an office.
func (s *Store) OpeningTimes(ctx context.Context, officeID string) ([]directory.OpeningTime, error) {
	return reader{db: s.pool}.OpeningTimes(ctx, officeID)
}

// ServedAuthorities lists the local authorities an office serves, by name.
func (s *Store) ServedAuthorities(ctx context.Context, officeID string) ([]directory.LocalAuthority, error) {
	return reader{db: s.pool}.ServedAuthorities(ctx, officeID)
}

// LocalAuthorityIDs lists the loaded authority ids.
func (s *Store) LocalAuthorityIDs(ctx context.Context) ([]string, error) {
	query, args, err := psql.Select("id").From("local_authorities").OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query local authorities: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Postcode returns the stored postcode for a normalised key or
// directory.ErrNotFound.
func (s *Store) Postcode(ctx context.Context, normalised string) (*directory.Postcode, error) {
	pc, err := reader{db: s.pool}.FindPostcode(ctx, normalised)
	if err != nil {
		return nil, err
	}
	if pc == nil {
		return nil, directory.ErrNotFound
	}
	return pc, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
