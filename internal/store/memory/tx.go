package memory

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/officesearch/internal/directory"
	"github.com/JonMunkholm/officesearch/internal/ingest"
)

type tx struct {
	st *state
}

// DeferConstraints is a no-op: references are always checked at commit.
// Key and check constraints still fail immediately.
func (t *tx) DeferConstraints(context.Context, ...string) error { return nil }

func (t *tx) DeleteOfficeData(context.Context) error {
	t.st.servedAreas = nil
	t.st.openingTimes = nil
	t.st.offices = make(map[string]*directory.Office)
	t.st.order = nil
	return nil
}

func (t *tx) InsertOffices(_ context.Context, offices []*directory.Office) (int64, error) {
	for _, o := range offices {
		if _, dup := t.st.offices[o.ID]; dup {
			return 0, fmt.Errorf("%w: duplicate office id %s", ErrConstraint, o.ID)
		}
		t.st.offices[o.ID] = o.Clone()
		t.st.order = append(t.st.order, o.ID)
	}
	return int64(len(offices)), nil
}

func (t *tx) InsertServedAreas(_ context.Context, areas []directory.ServedArea) (int64, error) {
	existing := make(map[directory.ServedArea]struct{}, len(t.st.servedAreas))
	for _, sa := range t.st.servedAreas {
		existing[sa] = struct{}{}
	}
	for _, sa := range areas {
		if _, dup := existing[sa]; dup {
			return 0, fmt.Errorf("%w: duplicate served area %s/%s", ErrConstraint, sa.OfficeID, sa.LocalAuthorityID)
		}
		existing[sa] = struct{}{}
		t.st.servedAreas = append(t.st.servedAreas, sa)
	}
	return int64(len(areas)), nil
}

func (t *tx) InsertOpeningTimes(_ context.Context, times []directory.OpeningTime) (int64, error) {
	for _, ot := range times {
		if !ot.Valid() {
			return 0, fmt.Errorf("%w: opening time for %s closes at or before it opens", ErrConstraint, ot.OfficeID)
		}
		t.st.openingTimes = append(t.st.openingTimes, ot)
	}
	return int64(len(times)), nil
}

func (t *tx) DeleteLocalAuthorities(context.Context) error {
	t.st.authorities = make(map[string]directory.LocalAuthority)
	return nil
}

func (t *tx) InsertLocalAuthorities(_ context.Context, authorities []directory.LocalAuthority) (int64, error) {
	for _, la := range authorities {
		if _, dup := t.st.authorities[la.ID]; dup {
			return 0, fmt.Errorf("%w: duplicate local authority %s", ErrConstraint, la.ID)
		}
		t.st.authorities[la.ID] = la
	}
	return int64(len(authorities)), nil
}

func (t *tx) UpsertPostcodes(_ context.Context, postcodes []directory.Postcode) (int64, error) {
	for _, pc := range postcodes {
		key := pc.Normalised()
		if existing, ok := t.st.postcodes[key]; ok {
			existing.Location = pc.Location
			existing.LocalAuthorityID = pc.LocalAuthorityID
			continue
		}
		t.st.nextPostcodeID++
		stored := pc
		stored.ID = t.st.nextPostcodeID
		t.st.postcodes[key] = &stored
	}
	return int64(len(postcodes)), nil
}

func (t *tx) PruneAuthorityReferences(context.Context) (ingest.PruneCounts, error) {
	var counts ingest.PruneCounts
	for _, id := range t.st.order {
		o := t.st.offices[id]
		if !o.LocalAuthorityID.Valid {
			continue
		}
		if _, ok := t.st.authorities[o.LocalAuthorityID.String]; !ok {
			o.LocalAuthorityID.Valid = false
			o.LocalAuthorityID.String = ""
			counts.OfficesCleared++
		}
	}

	kept := t.st.servedAreas[:0]
	for _, sa := range t.st.servedAreas {
		if _, ok := t.st.authorities[sa.LocalAuthorityID]; ok {
			kept = append(kept, sa)
			continue
		}
		counts.ServedAreasDeleted++
	}
	t.st.servedAreas = kept

	for key, pc := range t.st.postcodes {
		if _, ok := t.st.authorities[pc.LocalAuthorityID]; !ok {
			delete(t.st.postcodes, key)
			counts.PostcodesDeleted++
		}
	}
	return counts, nil
}
