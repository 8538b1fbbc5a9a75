package ingest

import (
	"fmt"
	"sort"

	"github.com/JonMunkholm/officesearch/internal/schema"
	"github.com/JonMunkholm/officesearch/internal/source"
)

// Sources holds one reader per office-ingestion export.
type Sources struct {
	Members         source.Reader
	AdviceLocations source.Reader
	OpeningHours    source.Reader
	VolunteerRoles  source.Reader
	Accessibility   source.Reader
}

func (s Sources) pairs() []struct {
	contract schema.Contract
	reader   source.Reader
} {
	return []struct {
		contract schema.Contract
		reader   source.Reader
	}{
		{schema.Members, s.Members},
		{schema.AdviceLocations, s.AdviceLocations},
		{schema.OpeningHours, s.OpeningHours},
		{schema.VolunteerRoles, s.VolunteerRoles},
		{schema.Accessibility, s.Accessibility},
	}
}

// Validate checks every header against its contract, in source order.
func (s Sources) Validate() error {
	for _, p := range s.pairs() {
		if p.reader == nil {
			return fmt.Errorf("%s: source not provided", p.contract.Label)
		}
		if err := p.contract.Check(p.reader.Header()); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every reader.
func (s Sources) Close() error {
	return source.CloseAll(s.Members, s.AdviceLocations, s.OpeningHours, s.VolunteerRoles, s.Accessibility)
}

// AuthoritySet is the set of local authority ids currently loaded.
type AuthoritySet map[string]struct{}

// NewAuthoritySet builds a set from ids.
func NewAuthoritySet(ids ...string) AuthoritySet {
	s := make(AuthoritySet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s AuthoritySet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the ids sorted.
func (s AuthoritySet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
