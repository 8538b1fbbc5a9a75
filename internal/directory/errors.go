package directory

import (
	"context"
	"errors"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("not found")

// Counts sizes the stored dataset.
type Counts struct {
	Offices          int64 `json:"offices"`
	ServedAreas      int64 `json:"served_areas"`
	OpeningTimes     int64 `json:"opening_times"`
	LocalAuthorities int64 `json:"local_authorities"`
	Postcodes        int64 `json:"postcodes"`
}

// Reader is the read surface behind an office page. Implementations passed
// to a view callback answer every call from the same committed dataset.
type Reader interface {
	Office(ctx context.Context, id string) (*Office, error)
	OfficeByLegacyID(ctx context.Context, legacyID int) (*Office, error)
	Children(ctx context.Context, parentID string) ([]Office, error)
	OpeningTimes(ctx context.Context, officeID string) ([]OpeningTime, error)
	ServedAuthorities(ctx context.Context, officeID string) ([]LocalAuthority, error)
}
