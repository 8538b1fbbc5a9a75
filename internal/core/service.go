package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/officesearch/internal/directory"
	"github.com/JonMunkholm/officesearch/internal/ingest"
	"github.com/JonMunkholm/officesearch/internal/resolve"
	"github.com/JonMunkholm/officesearch/internal/source"
)

// DefaultIngestTimeout bounds one refresh when Options.IngestTimeout is zero.
const DefaultIngestTimeout = 30 * time.Minute

// ErrSourceNotConfigured means a refresh needs a source location that was
// never configured.
var ErrSourceNotConfigured = errors.New("source not configured")

// Directory is the read surface used for office pages and status.
type Directory interface {
	Ping(ctx context.Context) error
	Counts(ctx context.Context) (directory.Counts, error)
	LocalAuthorityIDs(ctx context.Context) ([]string, error)

	// View runs fn against one consistent, read-only view of the offices.
	View(ctx context.Context, fn func(directory.Reader) error) error
}

// Store is everything the service needs from storage. Both
// store/postgres.Store and store/memory.Store satisfy it.
type Store interface {
	ingest.Store
	resolve.Store
	Directory
}

// Opener opens a named source at a location.
type Opener interface {
	OpenSource(ctx context.Context, name, location string) (source.Reader, error)
}

// Locator maps a source name to its configured location, "" when unset.
type Locator interface {
	Location(name string) string
}

// Options configures a Service. Zero values pick defaults.
type Options struct {
	Lock              ingest.Lock
	Opener            Opener
	Sources           Locator
	PostcodeBatchSize int
	ResultLimit       int
	IngestTimeout     time.Duration
}

// Service is the entry point for ingestion, resolution and office lookups.
// It is safe for concurrent use; ingestion runs are serialised by the lock.
type Service struct {
	store   Store
	lock    ingest.Lock
	opener  Opener
	sources Locator
	timeout time.Duration

	coordinator *ingest.Coordinator
	reference   *ingest.ReferenceLoader
	resolver    *resolve.Resolver

	mu   sync.RWMutex
	last *RefreshReport
}

// NewService creates a Service over store.
func NewService(store Store, opts Options) *Service {
	if opts.Lock == nil {
		opts.Lock = ingest.NewRunLock(ingest.DefaultLockWait)
	}
	if opts.IngestTimeout <= 0 {
		opts.IngestTimeout = DefaultIngestTimeout
	}
	return &Service{
		store:       store,
		lock:        opts.Lock,
		opener:      opts.Opener,
		sources:     opts.Sources,
		timeout:     opts.IngestTimeout,
		coordinator: ingest.NewCoordinator(store),
		reference:   ingest.NewReferenceLoader(store, opts.PostcodeBatchSize),
		resolver:    resolve.New(store, opts.ResultLimit),
	}
}

// Resolve answers a location query.
func (s *Service) Resolve(ctx context.Context, query string, opts resolve.Options) (*resolve.Result, error) {
	return s.resolver.Resolve(ctx, query, opts)
}

// LoadReference replaces local authorities and upserts postcodes from r.
// The caller keeps ownership of r. Like every run it is bounded by the
// ingest timeout.
func (s *Service) LoadReference(ctx context.Context, r source.Reader) (*ingest.ReferenceResult, error) {
	if err := s.lock.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.lock.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.reference.Load(ctx, r)
}

// LoadOffices replaces the office dataset from src, checking authority
// references against the authorities currently stored. The caller keeps
// ownership of src.
func (s *Service) LoadOffices(ctx context.Context, src ingest.Sources) (*ingest.Result, error) {
	if err := s.lock.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.lock.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.loadOffices(ctx, src, nil)
}

// loadOffices runs the office load with the lock held. A nil authorities
// set is read from the store.
func (s *Service) loadOffices(ctx context.Context, src ingest.Sources, authorities ingest.AuthoritySet) (*ingest.Result, error) {
	if authorities == nil {
		ids, err := s.store.LocalAuthorityIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("load local authorities: %w", err)
		}
		authorities = ingest.NewAuthoritySet(ids...)
	}
	return s.coordinator.Load(ctx, src, authorities)
}

// Ingesting reports whether an ingestion run holds the lock.
func (s *Service) Ingesting(ctx context.Context) bool {
	return s.lock.Busy(ctx)
}

// WaitForIngestion blocks until no run holds the lock or ctx is done.
func (s *Service) WaitForIngestion(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for s.lock.Busy(ctx) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
