package ingest

import (
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/officesearch/internal/directory"
	"github.com/JonMunkholm/officesearch/internal/schema"
	"github.com/JonMunkholm/officesearch/internal/source"
)

// Location type codes carried by the advice-location export.
const (
	LocationTypeOffice   = "0124K0000000qqTQAQ"
	LocationTypeOutreach = "0124K0000000qqUQAQ"
)

// Drop reasons.
const (
	reasonBlankID          = "blank_id"
	reasonExcluded         = "excluded"
	reasonUnknownOffice    = "unknown_office"
	reasonBlankValue       = "blank_value"
	reasonInvalidLocation  = "invalid_location"
	reasonDanglingParent   = "dangling_parent"
	reasonUnknownAuthority = "unknown_local_authority"
	reasonBlankSession     = "blank_session_type"
	reasonBlankTime        = "blank_time"
	reasonInvalidTime      = "invalid_time"
	reasonClosesBeforeOpen = "closes_before_opens"
	reasonBlankAuthority   = "blank_local_authority"
	reasonBlankPostcode    = "blank_postcode"
)

// Drops counts soft data-quality issues, keyed "source/reason".
type Drops map[string]int

func (d Drops) add(src, reason string) {
	d[src+"/"+reason]++
	rowsDropped.WithLabelValues(src, reason).Inc()
}

// Total sums every counter.
func (d Drops) Total() int {
	var n int
	for _, v := range d {
		n += v
	}
	return n
}

// OfficeSet is the set of office ids present in a built graph.
type OfficeSet map[string]struct{}

// Has reports membership.
func (s OfficeSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// OfficeGraph is the in-memory result of OfficeGraphBuilder.Build.
type OfficeGraph struct {
	Offices     map[string]*directory.Office
	ServedAreas []directory.ServedArea
	Drops       Drops

	order  []string
	served map[directory.ServedArea]struct{}
}

func newOfficeGraph() *OfficeGraph {
	return &OfficeGraph{
		Offices: make(map[string]*directory.Office),
		Drops:   make(Drops),
		served:  make(map[directory.ServedArea]struct{}),
	}
}

// put indexes o, replacing any earlier office with the same id. A replaced
// office loses the served area its earlier record declared.
func (g *OfficeGraph) put(o *directory.Office) {
	if _, seen := g.Offices[o.ID]; seen {
		g.unserve(o.ID)
	} else {
		g.order = append(g.order, o.ID)
	}
	g.Offices[o.ID] = o
}

func (g *OfficeGraph) unserve(officeID string) {
	kept := g.ServedAreas[:0]
	for _, sa := range g.ServedAreas {
		if sa.OfficeID == officeID {
			delete(g.served, sa)
			continue
		}
		kept = append(kept, sa)
	}
	g.ServedAreas = kept
}

func (g *OfficeGraph) serve(o *directory.Office) {
	if !o.LocalAuthorityID.Valid {
		return
	}
	sa := directory.ServedArea{OfficeID: o.ID, LocalAuthorityID: o.LocalAuthorityID.String}
	if _, dup := g.served[sa]; dup {
		return
	}
	g.served[sa] = struct{}{}
	g.ServedAreas = append(g.ServedAreas, sa)
}

// List returns the offices in first-seen order.
func (g *OfficeGraph) List() []*directory.Office {
	out := make([]*directory.Office, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.Offices[id])
	}
	return out
}

// IDs returns the set of office ids.
func (g *OfficeGraph) IDs() OfficeSet {
	ids := make(OfficeSet, len(g.Offices))
	for id := range g.Offices {
		ids[id] = struct{}{}
	}
	return ids
}

// OfficeGraphBuilder builds the office graph from the member,
// advice-location, accessibility and volunteer-role exports.
type OfficeGraphBuilder struct {
	logger *slog.Logger
}

// NewOfficeGraphBuilder creates a builder that logs dropped rows at warn.
func NewOfficeGraphBuilder(logger *slog.Logger) *OfficeGraphBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &OfficeGraphBuilder{logger: logger}
}

// Build reads members first and advice locations second, so an id present
// in both ends up with the advice-location record. Parent and authority
// references are repaired only after every office has been indexed.
func (b *OfficeGraphBuilder) Build(src Sources, authorities AuthoritySet) (*OfficeGraph, error) {
	g := newOfficeGraph()

	err := source.Each(src.Members, func(row source.Row) error {
		o := b.memberFromRow(g, row)
		if o.ID == "" {
			b.dropRow(g, schema.SourceMembers, row.Line, reasonBlankID)
			return nil
		}
		g.put(o)
		g.serve(o)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read members: %w", err)
	}

	err = source.Each(src.AdviceLocations, func(row source.Row) error {
		id := row.Get("salesforce_advice_location_id")
		if id == "" || id == "null" {
			b.dropRow(g, schema.SourceAdviceLocations, row.Line, reasonBlankID)
			return nil
		}
		if row.Bool("excluded_from_lss_front_end") || row.Bool("excluded_from_lss_reports") {
			b.dropRow(g, schema.SourceAdviceLocations, row.Line, reasonExcluded)
			return nil
		}
		o, err := b.adviceLocationFromRow(g, row)
		if err != nil {
			return err
		}
		g.put(o)
		g.serve(o)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read advice locations: %w", err)
	}

	err = b.appendTags(g, src.Accessibility, schema.SourceAccessibility, "advice_location_accessibility",
		func(o *directory.Office, tag string) {
			o.AccessibilityInformation = append(o.AccessibilityInformation, tag)
		})
	if err != nil {
		return nil, fmt.Errorf("read accessibility: %w", err)
	}

	err = b.appendTags(g, src.VolunteerRoles, schema.SourceVolunteerRoles, "advice_location_volunteer_roles_recruiting_status",
		func(o *directory.Office, tag string) {
			o.VolunteerRoles = append(o.VolunteerRoles, tag)
		})
	if err != nil {
		return nil, fmt.Errorf("read volunteer roles: %w", err)
	}

	b.repairParents(g)
	b.repairAuthorities(g, authorities)

	return g, nil
}

// appendTags applies a sparse per-office list source. Rows for offices not
// in the graph are ignored; the office may have been excluded.
func (b *OfficeGraphBuilder) appendTags(g *OfficeGraph, r source.Reader, src, column string, apply func(*directory.Office, string)) error {
	return source.Each(r, func(row source.Row) error {
		o, ok := g.Offices[row.Get("salesforce_advice_location_id")]
		if !ok {
			b.dropRow(g, src, row.Line, reasonUnknownOffice)
			return nil
		}
		tag := row.Str(column)
		if !tag.Valid {
			b.dropRow(g, src, row.Line, reasonBlankValue)
			return nil
		}
		apply(o, tag.String)
		return nil
	})
}

func (b *OfficeGraphBuilder) repairParents(g *OfficeGraph) {
	for _, id := range g.order {
		o := g.Offices[id]
		if !o.ParentID.Valid {
			continue
		}
		if _, ok := g.Offices[o.ParentID.String]; ok {
			continue
		}
		b.logger.Warn("clearing dangling parent", "office_id", o.ID, "parent_id", o.ParentID.String)
		g.Drops.add("offices", reasonDanglingParent)
		o.ParentID.Valid = false
		o.ParentID.String = ""
	}
}

func (b *OfficeGraphBuilder) repairAuthorities(g *OfficeGraph, authorities AuthoritySet) {
	for _, id := range g.order {
		o := g.Offices[id]
		if !o.LocalAuthorityID.Valid || authorities.Has(o.LocalAuthorityID.String) {
			continue
		}
		b.logger.Warn("clearing unknown local authority", "office_id", o.ID, "local_authority_id", o.LocalAuthorityID.String)
		g.Drops.add("offices", reasonUnknownAuthority)
		o.LocalAuthorityID.Valid = false
		o.LocalAuthorityID.String = ""
	}

	kept := g.ServedAreas[:0]
	for _, sa := range g.ServedAreas {
		if authorities.Has(sa.LocalAuthorityID) {
			kept = append(kept, sa)
			continue
		}
		delete(g.served, sa)
	}
	g.ServedAreas = kept
}

func (b *OfficeGraphBuilder) memberFromRow(g *OfficeGraph, row source.Row) *directory.Office {
	return &directory.Office{
		ID:                       row.Str("salesforce_id").String,
		Kind:                     directory.KindMember,
		Name:                     row.Get("member_full_name"),
		ParentID:                 row.Str("salesforce_parent_id"),
		LegacyID:                 row.Int("resource_directory_id"),
		MembershipNumber:         row.Str("membership_number"),
		CharityNumber:            row.Str("charity_number"),
		CompanyNumber:            row.Str("company_number"),
		Street:                   row.Str("street_name"),
		City:                     row.Str("city"),
		County:                   row.Str("county"),
		Postcode:                 row.Str("postcode"),
		Location:                 b.location(g, schema.SourceMembers, row),
		LocalAuthorityID:         row.Str("local_authority_ons_code"),
		Email:                    row.Str("enquiries_email"),
		Website:                  row.Str("public_website"),
		AccessibilityInformation: []string{},
		VolunteerRoles:           []string{},
	}
}

func (b *OfficeGraphBuilder) adviceLocationFromRow(g *OfficeGraph, row source.Row) (*directory.Office, error) {
	var kind directory.Kind
	switch code := row.Get("location_type_id"); code {
	case LocationTypeOffice:
		kind = directory.KindOffice
	case LocationTypeOutreach:
		kind = directory.KindOutreach
	default:
		return nil, unrecognised(schema.SourceAdviceLocations, row.Line, "location type", code)
	}

	return &directory.Office{
		ID:                        row.Get("salesforce_advice_location_id"),
		Kind:                      kind,
		Name:                      row.Get("advice_location_name"),
		ParentID:                  row.Str("salesforce_parent_id"),
		LegacyID:                  row.Int("resource_directory_id"),
		MembershipNumber:          row.Str("membership_number"),
		About:                     row.Str("advice_service_information"),
		Street:                    row.Str("street_name"),
		City:                      row.Str("city"),
		County:                    row.Str("county"),
		Postcode:                  row.Str("postcode"),
		Location:                  b.location(g, schema.SourceAdviceLocations, row),
		LocalAuthorityID:          row.Str("local_authority_ons_code"),
		Email:                     row.Str("enquiries_email"),
		VolunteerRecruitmentEmail: row.Str("volunteer_recruitment_email"),
		Website:                   row.Str("public_website"),
		Phone:                     row.Str("phone"),
		AllowsDropIns:             row.Bool("allows_drop_in_visits"),
		OpeningHoursInformation:   row.Str("face_to_face_advice_hours_information"),
		TelephoneHoursInformation: row.Str("telephone_advice_hours_information"),
		AccessibilityInformation:  []string{},
		VolunteerRoles:            []string{},
	}, nil
}

// location returns nil unless both coordinates are present and in range.
func (b *OfficeGraphBuilder) location(g *OfficeGraph, src string, row source.Row) *directory.Point {
	lat, latOK := row.Float("latitude")
	lon, lonOK := row.Float("longitude")
	if !latOK || !lonOK {
		return nil
	}
	p, err := directory.NewPoint(lat, lon)
	if err != nil {
		b.dropRow(g, src, row.Line, reasonInvalidLocation)
		return nil
	}
	return &p
}

func (b *OfficeGraphBuilder) dropRow(g *OfficeGraph, src string, line int, reason string) {
	b.logger.Warn("dropping row", "source", src, "line", line, "reason", reason)
	g.Drops.add(src, reason)
}
