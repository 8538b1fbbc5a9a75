// Package memory is an in-process store implementing the same contracts as
// the Postgres store. Every write transaction works on a private copy that
// is checked for referential integrity and published only on success, so
// readers always see a committed state.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JonMunkholm/officesearch/internal/directory"
	"github.com/JonMunkholm/officesearch/internal/ingest"
	"github.com/JonMunkholm/officesearch/internal/resolve"
)

// ErrConstraint is returned when a transaction would commit an
// inconsistent dataset, or when a write violates a key immediately.
var ErrConstraint = errors.New("constraint violation")

// Store holds the dataset in memory.
type Store struct {
	writeMu sync.Mutex

	mu  sync.RWMutex
	cur *state
}

// New returns an empty store.
func New() *Store {
	return &Store{cur: newState()}
}

// InTx runs fn on a copy of the current state and publishes it if fn
// succeeds and the result is consistent.
func (s *Store) InTx(ctx context.Context, fn func(ingest.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.current().clone()
	if err := fn(&tx{st: next}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := next.check(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.mu.Lock()
	s.cur = next
	s.mu.Unlock()
	return nil
}

// Snapshot runs fn against the state current at call time.
func (s *Store) Snapshot(ctx context.Context, fn func(resolve.Queries) error) error {
	return fn(view{st: s.current()})
}

// View runs fn against the state current at call time.
func (s *Store) View(ctx context.Context, fn func(directory.Reader) error) error {
	return fn(view{st: s.current()})
}

func (s *Store) current() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Counts sizes the current dataset.
func (s *Store) Counts(context.Context) (directory.Counts, error) {
	st := s.current()
	return directory.Counts{
		Offices:          int64(len(st.offices)),
		ServedAreas:      int64(len(st.servedAreas)),
		OpeningTimes:     int64(len(st.openingTimes)),
		LocalAuthorities: int64(len(st.authorities)),
		Postcodes:        int64(len(st.postcodes)),
	}, nil
}

// Office returns a copy of the office with id.
func (s *Store) Office(ctx context.Context, id string) (*directory.Office, error) {
	return view{st: s.current()}.Office(ctx, id)
}

// OfficeByLegacyID finds an office by its numeric legacy id.
func (s *Store) OfficeByLegacyID(ctx context.Context, legacyID int) (*directory.Office, error) {
	return view{st: s.current()}.OfficeByLegacyID(ctx, legacyID)
}

// Children lists offices whose parent is parentID.
func (s *Store) Children(ctx context.Context, parentID string) ([]directory.Office, error) {
	return view{st: s.current()}.Children(ctx, parentID)
}

// OpeningTimes lists the opening times of an office.
func (s *Store) OpeningTimes(ctx context.Context, officeID string) ([]directory.OpeningTime, error) {
	return view{st: s.current()}.OpeningTimes(ctx, officeID)
}

// ServedAuthorities lists the local authorities an office serves.
func (s *Store) ServedAuthorities(ctx context.Context, officeID string) ([]directory.LocalAuthority, error) {
	return view{st: s.current()}.ServedAuthorities(ctx, officeID)
}

// LocalAuthorityIDs lists the loaded authority ids.
func (s *Store) LocalAuthorityIDs(context.Context) ([]string, error) {
	st := s.current()
	ids := make([]string, 0, len(st.authorities))
	for id := range st.authorities {
		ids = append(ids, id)
	}
	return ids, nil
}

// Postcode returns a copy of the stored postcode for a normalised key.
func (s *Store) Postcode(_ context.Context, normalised string) (*directory.Postcode, error) {
	pc, ok := s.current().postcodes[normalised]
	if !ok {
		return nil, directory.ErrNotFound
	}
	c := *pc
	return &c, nil
}
