package web

import (
	"github.com/aarondl/null/v8"

	"github.com/JonMunkholm/officesearch/internal/core"
	"github.com/JonMunkholm/officesearch/internal/directory"
	"github.com/JonMunkholm/officesearch/internal/resolve"
)

// searchResponse is the body of GET /api/v2/offices/search.
type searchResponse struct {
	MatchType string         `json:"match_type"`
	Location  *locationView  `json:"location,omitempty"`
	Results   []searchResult `json:"results"`
}

type locationView struct {
	Postcode         string          `json:"postcode"`
	LocalAuthorityID string          `json:"local_authority_id"`
	Point            directory.Point `json:"point"`
}

// searchResult carries a distance only for exact matches with a located office.
type searchResult struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	ContactMethods []string `json:"contact_methods"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
}

func newSearchResponse(res *resolve.Result) searchResponse {
	resp := searchResponse{
		MatchType: res.Label(),
		Results:   make([]searchResult, 0, len(res.Offices)),
	}
	if res.Type == resolve.MatchExact && res.Point != nil {
		resp.Location = &locationView{
			Postcode:         res.Postcode,
			LocalAuthorityID: res.LocalAuthorityID,
			Point:            *res.Point,
		}
	}
	for _, m := range res.Offices {
		r := searchResult{
			ID:             m.Office.ID,
			Name:           m.Office.Name,
			ContactMethods: m.Office.ContactMethods(),
		}
		if res.Type == resolve.MatchExact && m.Office.Location != nil {
			d := m.DistanceMeters
			r.DistanceMeters = &d
		}
		resp.Results = append(resp.Results, r)
	}
	return resp
}

// officeResponse is the body of GET /api/v2/offices/{id}.
type officeResponse struct {
	ID                       string                     `json:"id"`
	Type                     directory.Kind             `json:"type"`
	Name                     string                     `json:"name"`
	AboutText                null.String                `json:"about_text"`
	AccessibilityInformation []string                   `json:"accessibility_information"`
	Street                   null.String                `json:"street"`
	City                     null.String                `json:"city"`
	County                   null.String                `json:"county"`
	Postcode                 null.String                `json:"postcode"`
	Location                 *directory.Point           `json:"location"`
	Email                    null.String                `json:"email"`
	Website                  null.String                `json:"website"`
	Phone                    null.String                `json:"phone"`
	AllowsDropIns            bool                       `json:"allows_drop_ins"`
	VolunteerRoles           []string                   `json:"volunteer_roles"`
	ContactMethods           []string                   `json:"contact_methods"`
	ServedAreas              []directory.LocalAuthority `json:"served_areas"`
	Relations                []relationView             `json:"relations"`
	OpeningHours             openingTimesView           `json:"opening_hours"`
	TelephoneAdviceHours     openingTimesView           `json:"telephone_advice_hours"`
}

type relationView struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Type directory.Kind `json:"type"`
}

// openingTimesView is keyed by "information" plus one key per weekday.
type openingTimesView map[string]any

func newOpeningTimesView(information null.String, days map[directory.Weekday][]directory.Session) openingTimesView {
	v := openingTimesView{"information": information}
	for day, sessions := range days {
		v[string(day)] = sessions
	}
	return v
}

func newOfficeResponse(d *core.OfficeDetail) officeResponse {
	o := d.Office
	resp := officeResponse{
		ID:                       o.ID,
		Type:                     o.Kind,
		Name:                     o.Name,
		AboutText:                o.About,
		AccessibilityInformation: nonNil(o.AccessibilityInformation),
		Street:                   o.Street,
		City:                     o.City,
		County:                   o.County,
		Postcode:                 o.Postcode,
		Location:                 o.Location,
		Email:                    o.Email,
		Website:                  o.Website,
		Phone:                    o.Phone,
		AllowsDropIns:            o.AllowsDropIns,
		VolunteerRoles:           nonNil(o.VolunteerRoles),
		ContactMethods:           o.ContactMethods(),
		ServedAreas:              d.ServedAuthorities,
		Relations:                []relationView{},
		OpeningHours:             newOpeningTimesView(o.OpeningHoursInformation, d.OfficeHours),
		TelephoneAdviceHours:     newOpeningTimesView(o.TelephoneHoursInformation, d.TelephoneHours),
	}
	if resp.ServedAreas == nil {
		resp.ServedAreas = []directory.LocalAuthority{}
	}
	if d.Parent != nil {
		resp.Relations = append(resp.Relations, relationView{ID: d.Parent.ID, Name: d.Parent.Name, Type: d.Parent.Kind})
	}
	for _, c := range d.Children {
		resp.Relations = append(resp.Relations, relationView{ID: c.ID, Name: c.Name, Type: c.Kind})
	}
	return resp
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
