package resolve

import (
	"context"

	"github.com/JonMunkholm/officesearch/internal/directory"
)

// Store opens consistent read snapshots.
type Store interface {
	// Snapshot runs fn against one consistent, read-only view of the data.
	// A concurrent ingestion is either entirely visible or not at all.
	Snapshot(ctx context.Context, fn func(Queries) error) error
}

// Queries are the reads a resolution needs.
type Queries interface {
	// FindPostcode looks a postcode up by normalised key; nil when absent.
	FindPostcode(ctx context.Context, normalised string) (*directory.Postcode, error)

	// NearestOffices returns offices ordered by ascending distance from
	// q.Point. Offices without a location sort last.
	NearestOffices(ctx context.Context, q NearestQuery) ([]directory.Office, error)

	// MatchOffices returns offices whose name, or the name of a local
	// authority they serve, contains q.Term case-insensitively. Each
	// office appears once.
	MatchOffices(ctx context.Context, q MatchQuery) ([]directory.Office, error)
}

// NearestQuery selects offices of kind office around a point.
type NearestQuery struct {
	Point directory.Point

	// LocalAuthorityID restricts to offices serving that authority when set.
	LocalAuthorityID string

	OnlyWithVacancies bool

	// Limit caps the result; 0 means no cap.
	Limit int
}

// MatchQuery selects offices of kind office by substring.
type MatchQuery struct {
	Term              string
	OnlyWithVacancies bool
	Limit             int
}
