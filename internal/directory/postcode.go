package directory

import "strings"

// Postcode is a reference record mapping a postcode to a point and its
// owning local authority. ID is assigned by storage on first insert and is
// stable across repeat imports.
type Postcode struct {
	ID               int64  `json:"id"`
	Canonical        string `json:"canonical"`
	Location         Point  `json:"location"`
	LocalAuthorityID string `json:"local_authority_id"`
}

// Normalised returns the lookup key for the postcode.
func (p Postcode) Normalised() string {
	return Normalise(p.Canonical)
}

// Normalise folds a postcode-like string to its lookup key: all
// whitespace removed, lower-cased. "AB1 0AA", "ab10aa" and " Ab1  0aA"
// share a key.
func Normalise(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}
