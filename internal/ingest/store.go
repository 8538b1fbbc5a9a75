package ingest

import (
	"context"

	"github.com/JonMunkholm/officesearch/internal/directory"
)

// Constraint names, created DEFERRABLE by the migrations.
const (
	ConstraintOfficeParent           = "offices_parent_id_fkey"
	ConstraintOfficeLocalAuthority   = "offices_local_authority_id_fkey"
	ConstraintServedAreaOffice       = "served_areas_office_id_fkey"
	ConstraintServedAreaAuthority    = "served_areas_local_authority_id_fkey"
	ConstraintOpeningTimeOffice      = "opening_times_office_id_fkey"
	ConstraintPostcodeLocalAuthority = "postcodes_local_authority_id_fkey"
)

// Store opens write transactions.
type Store interface {
	// InTx runs fn in a single transaction. The transaction commits only
	// if fn returns nil; deferred constraints are checked at commit.
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the write surface used by ingestion. Implementations are not safe
// for concurrent use.
type Tx interface {
	DeferConstraints(ctx context.Context, names ...string) error

	// DeleteOfficeData removes all served areas, opening times and offices.
	DeleteOfficeData(ctx context.Context) error
	InsertOffices(ctx context.Context, offices []*directory.Office) (int64, error)
	InsertServedAreas(ctx context.Context, areas []directory.ServedArea) (int64, error)
	InsertOpeningTimes(ctx context.Context, times []directory.OpeningTime) (int64, error)

	DeleteLocalAuthorities(ctx context.Context) error
	InsertLocalAuthorities(ctx context.Context, authorities []directory.LocalAuthority) (int64, error)

	// UpsertPostcodes inserts or updates by normalised postcode. A
	// postcode already present keeps its id and canonical form.
	UpsertPostcodes(ctx context.Context, postcodes []directory.Postcode) (int64, error)

	// PruneAuthorityReferences clears references to local authorities
	// that no longer exist.
	PruneAuthorityReferences(ctx context.Context) (PruneCounts, error)
}

// PruneCounts reports what PruneAuthorityReferences changed.
type PruneCounts struct {
	OfficesCleared     int64 `json:"offices_cleared"`
	ServedAreasDeleted int64 `json:"served_areas_deleted"`
	PostcodesDeleted   int64 `json:"postcodes_deleted"`
}

// officeConstraints are deferred for the office replace.
var officeConstraints = []string{
	ConstraintOfficeParent,
	ConstraintOfficeLocalAuthority,
	ConstraintServedAreaOffice,
	ConstraintServedAreaAuthority,
	ConstraintOpeningTimeOffice,
}

// referenceConstraints are deferred for the authority replace.
var referenceConstraints = []string{
	ConstraintPostcodeLocalAuthority,
	ConstraintOfficeLocalAuthority,
	ConstraintServedAreaAuthority,
}
