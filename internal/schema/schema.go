// Package schema defines the header contracts of every ingestion source.
//
// Header names and their order are versioned with the upstream exports. A
// mismatch means the export changed shape and must abort ingestion before
// anything is written.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrHeaderMismatch is wrapped by every HeaderError.
var ErrHeaderMismatch = errors.New("not in expected format")

// Contract is the expected header row of one source.
type Contract struct {
	// Source is the short name used in config, logs and errors.
	Source string

	// Label is the operator-facing name, e.g. "Members CSV file".
	Label string

	Columns []string
}

// HeaderError names the source whose header did not match and the first
// position where it diverged.
type HeaderError struct {
	Contract Contract
	Position int
	Want     string
	Got      string
}

func (e *HeaderError) Error() string {
	msg := fmt.Sprintf("%s was %s", e.Contract.Label, ErrHeaderMismatch)
	switch {
	case e.Want == "":
		return fmt.Sprintf("%s: unexpected column %d %q", msg, e.Position+1, e.Got)
	case e.Got == "":
		return fmt.Sprintf("%s: missing column %d %q", msg, e.Position+1, e.Want)
	default:
		return fmt.Sprintf("%s: column %d is %q, expected %q", msg, e.Position+1, e.Got, e.Want)
	}
}

func (e *HeaderError) Unwrap() error { return ErrHeaderMismatch }

// Check compares header with the contract, exact names in exact order.
func (c Contract) Check(header []string) error {
	n := len(c.Columns)
	if len(header) > n {
		n = len(header)
	}
	for i := 0; i < n; i++ {
		var want, got string
		if i < len(c.Columns) {
			want = c.Columns[i]
		}
		if i < len(header) {
			got = strings.TrimSpace(header[i])
		}
		if want != got {
			return &HeaderError{Contract: c, Position: i, Want: want, Got: got}
		}
	}
	return nil
}

// Source names.
const (
	SourceMembers         = "members"
	SourceAdviceLocations = "advice_locations"
	SourceOpeningHours    = "opening_hours"
	SourceVolunteerRoles  = "volunteer_roles"
	SourceAccessibility   = "accessibility"
	SourcePostcodes       = "postcodes"
)

// OfficeContracts lists the office-ingestion sources in validation order.
func OfficeContracts() []Contract {
	return []Contract{Members, AdviceLocations, OpeningHours, VolunteerRoles, Accessibility}
}

// ByName looks a contract up by source name.
func ByName(source string) (Contract, bool) {
	for _, c := range append(OfficeContracts(), Postcodes) {
		if c.Source == source {
			return c, true
		}
	}
	return Contract{}, false
}
