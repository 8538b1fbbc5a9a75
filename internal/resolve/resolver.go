// Package resolve classifies a free-text location query and finds the
// offices that answer it.
//
// A query that normalises to a known postcode is an exact match, unless the
// postcode's local authority lies in a territory the network does not
// cover. Anything else is matched by substring against office and local
// authority names; no match at all is an unknown location.
package resolve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/officesearch/internal/directory"
	"github.com/JonMunkholm/officesearch/internal/logging"
)

// DefaultLimit caps fuzzy results and unscoped nearest results.
const DefaultLimit = 10

// MatchType classifies a resolution.
type MatchType string

const (
	MatchExact     MatchType = "exact"
	MatchFuzzy     MatchType = "fuzzy"
	MatchUnknown   MatchType = "unknown"
	MatchOutOfArea MatchType = "out_of_area"
)

// Territory is a region outside network coverage.
type Territory string

const (
	Scotland        Territory = "scotland"
	NorthernIreland Territory = "ni"
)

// Name is the display name of the territory.
func (t Territory) Name() string {
	switch t {
	case Scotland:
		return "Scotland"
	case NorthernIreland:
		return "Northern Ireland"
	}
	return string(t)
}

// TerritoryOf returns the uncovered territory a local authority belongs
// to. ONS codes for Scottish authorities start with S, Northern Irish with N.
func TerritoryOf(localAuthorityID string) (Territory, bool) {
	switch {
	case strings.HasPrefix(localAuthorityID, "S"):
		return Scotland, true
	case strings.HasPrefix(localAuthorityID, "N"):
		return NorthernIreland, true
	}
	return "", false
}

// Options narrow a resolution.
type Options struct {
	// OnlyWithVacancies keeps offices recruiting for at least one role.
	OnlyWithVacancies bool

	// OnlyInServedArea keeps, for exact matches, offices serving the
	// postcode's local authority instead of the nearest few overall.
	OnlyInServedArea bool
}

// Match is one office in a result. DistanceMeters is zero for fuzzy
// matches and for offices with no location.
type Match struct {
	Office         directory.Office
	DistanceMeters float64
}

// Result is the outcome of one resolution. Point, Postcode and
// LocalAuthorityID are set for exact and out-of-area results; Territory
// only for out-of-area.
type Result struct {
	Type             MatchType
	Point            *directory.Point
	Postcode         string
	LocalAuthorityID string
	Territory        Territory
	Offices          []Match
}

// Label is the match type as reported to clients, with the territory
// appended for out-of-area results (e.g. "out_of_area_scotland").
func (r *Result) Label() string {
	if r.Type == MatchOutOfArea {
		return string(MatchOutOfArea) + "_" + string(r.Territory)
	}
	return string(r.Type)
}

// Resolver answers location queries. It is safe for concurrent use.
type Resolver struct {
	store Store
	limit int
}

// New creates a Resolver. limit <= 0 uses DefaultLimit.
func New(store Store, limit int) *Resolver {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Resolver{store: store, limit: limit}
}

// Resolve classifies query and builds the matching office list inside one
// read snapshot.
func (r *Resolver) Resolve(ctx context.Context, query string, opts Options) (*Result, error) {
	start := time.Now()
	var res *Result

	err := r.store.Snapshot(ctx, func(q Queries) error {
		var err error
		res, err = r.resolve(ctx, q, query, opts)
		return err
	})
	if err != nil {
		resolutions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("resolve %q: %w", query, err)
	}

	resolutions.WithLabelValues(string(res.Type)).Inc()
	resolveDuration.WithLabelValues(string(res.Type)).Observe(time.Since(start).Seconds())
	logging.FromContext(ctx).Debug("location resolved",
		"query", query,
		"match_type", res.Label(),
		"offices", len(res.Offices),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, q Queries, query string, opts Options) (*Result, error) {
	key := directory.Normalise(query)
	if key != "" {
		pc, err := q.FindPostcode(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("find postcode: %w", err)
		}
		if pc != nil {
			return r.exact(ctx, q, pc, opts)
		}
	}
	return r.fuzzy(ctx, q, query, opts)
}

func (r *Resolver) exact(ctx context.Context, q Queries, pc *directory.Postcode, opts Options) (*Result, error) {
	point := pc.Location
	res := &Result{
		Type:             MatchExact,
		Point:            &point,
		Postcode:         pc.Canonical,
		LocalAuthorityID: pc.LocalAuthorityID,
	}

	if t, ok := TerritoryOf(pc.LocalAuthorityID); ok {
		res.Type = MatchOutOfArea
		res.Territory = t
		return res, nil
	}

	nq := NearestQuery{Point: point, OnlyWithVacancies: opts.OnlyWithVacancies}
	if opts.OnlyInServedArea {
		nq.LocalAuthorityID = pc.LocalAuthorityID
	} else {
		nq.Limit = r.limit
	}
	offices, err := q.NearestOffices(ctx, nq)
	if err != nil {
		return nil, fmt.Errorf("nearest offices: %w", err)
	}

	res.Offices = make([]Match, 0, len(offices))
	for _, o := range offices {
		m := Match{Office: o}
		if o.Location != nil {
			m.DistanceMeters = point.DistanceTo(*o.Location)
		}
		res.Offices = append(res.Offices, m)
	}
	return res, nil
}

func (r *Resolver) fuzzy(ctx context.Context, q Queries, query string, opts Options) (*Result, error) {
	term := strings.TrimSpace(query)
	if term == "" {
		return &Result{Type: MatchUnknown}, nil
	}

	offices, err := q.MatchOffices(ctx, MatchQuery{
		Term:              term,
		OnlyWithVacancies: opts.OnlyWithVacancies,
		Limit:             r.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("match offices: %w", err)
	}

	seen := make(map[string]struct{}, len(offices))
	matches := make([]Match, 0, len(offices))
	for _, o := range offices {
		if _, dup := seen[o.ID]; dup {
			continue
		}
		seen[o.ID] = struct{}{}
		matches = append(matches, Match{Office: o})
	}
	if len(matches) == 0 {
		return &Result{Type: MatchUnknown}, nil
	}
	return &Result{Type: MatchFuzzy, Offices: matches}, nil
}
