package memory

import (
	"fmt"

	"github.com/JonMunkholm/officesearch/internal/directory"
)

type state struct {
	offices      map[string]*directory.Office
	order        []string
	servedAreas  []directory.ServedArea
	openingTimes []directory.OpeningTime
	authorities  map[string]directory.LocalAuthority
	postcodes    map[string]*directory.Postcode

	nextPostcodeID int64
}

func newState() *state {
	return &state{
		offices:     make(map[string]*directory.Office),
		authorities: make(map[string]directory.LocalAuthority),
		postcodes:   make(map[string]*directory.Postcode),
	}
}

func (s *state) clone() *state {
	c := &state{
		offices:        make(map[string]*directory.Office, len(s.offices)),
		order:          append([]string(nil), s.order...),
		servedAreas:    append([]directory.ServedArea(nil), s.servedAreas...),
		openingTimes:   append([]directory.OpeningTime(nil), s.openingTimes...),
		authorities:    make(map[string]directory.LocalAuthority, len(s.authorities)),
		postcodes:      make(map[string]*directory.Postcode, len(s.postcodes)),
		nextPostcodeID: s.nextPostcodeID,
	}
	for id, o := range s.offices {
		c.offices[id] = o.Clone()
	}
	for id, la := range s.authorities {
		c.authorities[id] = la
	}
	for k, pc := range s.postcodes {
		p := *pc
		c.postcodes[k] = &p
	}
	return c
}

// check is the commit-time equivalent of the deferred foreign keys.
func (s *state) check() error {
	for _, id := range s.order {
		o := s.offices[id]
		if o.ParentID.Valid {
			if _, ok := s.offices[o.ParentID.String]; !ok {
				return fmt.Errorf("%w: office %s parent %s does not exist", ErrConstraint, o.ID, o.ParentID.String)
			}
		}
		if o.LocalAuthorityID.Valid {
			if _, ok := s.authorities[o.LocalAuthorityID.String]; !ok {
				return fmt.Errorf("%w: office %s local authority %s does not exist", ErrConstraint, o.ID, o.LocalAuthorityID.String)
			}
		}
	}
	for _, sa := range s.servedAreas {
		if _, ok := s.offices[sa.OfficeID]; !ok {
			return fmt.Errorf("%w: served area office %s does not exist", ErrConstraint, sa.OfficeID)
		}
		if _, ok := s.authorities[sa.LocalAuthorityID]; !ok {
			return fmt.Errorf("%w: served area local authority %s does not exist", ErrConstraint, sa.LocalAuthorityID)
		}
	}
	for _, ot := range s.openingTimes {
		if _, ok := s.offices[ot.OfficeID]; !ok {
			return fmt.Errorf("%w: opening time office %s does not exist", ErrConstraint, ot.OfficeID)
		}
	}
	for _, pc := range s.postcodes {
		if _, ok := s.authorities[pc.LocalAuthorityID]; !ok {
			return fmt.Errorf("%w: postcode %s local authority %s does not exist", ErrConstraint, pc.Canonical, pc.LocalAuthorityID)
		}
	}
	return nil
}
