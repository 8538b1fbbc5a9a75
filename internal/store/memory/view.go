package memory

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/JonMunkholm/officesearch/internal/directory"
	"github.com/JonMunkholm/officesearch/internal/resolve"
)

type view struct {
	st *state
}

func (v view) Office(_ context.Context, id string) (*directory.Office, error) {
	o, ok := v.st.offices[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return o.Clone(), nil
}

func (v view) OfficeByLegacyID(_ context.Context, legacyID int) (*directory.Office, error) {
	for _, id := range v.st.order {
		o := v.st.offices[id]
		if o.LegacyID.Valid && o.LegacyID.Int == legacyID {
			return o.Clone(), nil
		}
	}
	return nil, directory.ErrNotFound
}

func (v view) Children(_ context.Context, parentID string) ([]directory.Office, error) {
	var out []directory.Office
	for _, id := range v.st.order {
		o := v.st.offices[id]
		if o.ParentID.Valid && o.ParentID.String == parentID {
			out = append(out, *o.Clone())
		}
	}
	return out, nil
}

func (v view) OpeningTimes(_ context.Context, officeID string) ([]directory.OpeningTime, error) {
	var out []directory.OpeningTime
	for _, ot := range v.st.openingTimes {
		if ot.OfficeID == officeID {
			out = append(out, ot)
		}
	}
	return out, nil
}

func (v view) ServedAuthorities(_ context.Context, officeID string) ([]directory.LocalAuthority, error) {
	var out []directory.LocalAuthority
	for _, sa := range v.st.servedAreas {
		if sa.OfficeID == officeID {
			out = append(out, v.st.authorities[sa.LocalAuthorityID])
		}
	}
	return out, nil
}

func (v view) FindPostcode(_ context.Context, normalised string) (*directory.Postcode, error) {
	pc, ok := v.st.postcodes[normalised]
	if !ok {
		return nil, nil
	}
	c := *pc
	return &c, nil
}

func (v view) NearestOffices(_ context.Context, q resolve.NearestQuery) ([]directory.Office, error) {
	var served map[string]struct{}
	if q.LocalAuthorityID != "" {
		served = make(map[string]struct{})
		for _, sa := range v.st.servedAreas {
			if sa.LocalAuthorityID == q.LocalAuthorityID {
				served[sa.OfficeID] = struct{}{}
			}
		}
	}

	type candidate struct {
		office   *directory.Office
		distance float64
	}
	var candidates []candidate
	for _, id := range v.st.order {
		o := v.st.offices[id]
		if !v.eligible(o, q.OnlyWithVacancies) {
			continue
		}
		if served != nil {
			if _, ok := served[o.ID]; !ok {
				continue
			}
		}
		d := math.Inf(1)
		if o.Location != nil {
			d = q.Point.DistanceTo(*o.Location)
		}
		candidates = append(candidates, candidate{office: o, distance: d})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if q.Limit > 0 && len(candidates) > q.Limit {
		candidates = candidates[:q.Limit]
	}

	out := make([]directory.Office, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, *c.office.Clone())
	}
	return out, nil
}

func (v view) MatchOffices(_ context.Context, q resolve.MatchQuery) ([]directory.Office, error) {
	term := strings.ToLower(q.Term)

	authorityMatch := make(map[string]struct{})
	for _, sa := range v.st.servedAreas {
		la, ok := v.st.authorities[sa.LocalAuthorityID]
		if ok && strings.Contains(strings.ToLower(la.Name), term) {
			authorityMatch[sa.OfficeID] = struct{}{}
		}
	}

	var out []directory.Office
	for _, id := range v.st.order {
		o := v.st.offices[id]
		if !v.eligible(o, q.OnlyWithVacancies) {
			continue
		}
		_, viaAuthority := authorityMatch[o.ID]
		if !viaAuthority && !strings.Contains(strings.ToLower(o.Name), term) {
			continue
		}
		out = append(out, *o.Clone())
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (v view) eligible(o *directory.Office, onlyWithVacancies bool) bool {
	if o.Kind != directory.KindOffice {
		return false
	}
	return !onlyWithVacancies || o.HasVacancies()
}
