// Package directory holds the advice office domain model shared by the
// ingestion pipeline, the location resolver and the HTTP layer.
//
// Values in this package are produced by ingestion only. Everything else
// reads them.
package directory

import (
	"fmt"

	"github.com/aarondl/null/v8"
)

// Kind discriminates the three tiers of the office hierarchy.
type Kind string

const (
	KindMember   Kind = "member"
	KindOffice   Kind = "office"
	KindOutreach Kind = "outreach"
)

// ParseKind maps a stored kind back to its constant.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindMember, KindOffice, KindOutreach:
		return k, nil
	}
	return "", fmt.Errorf("invalid office kind %q", s)
}

// Office is a member organisation, a physical office or an outreach
// location. ID is assigned upstream and never generated here.
type Office struct {
	ID       string      `json:"id"`
	Kind     Kind        `json:"office_type"`
	ParentID null.String `json:"parent_id"`
	LegacyID null.Int    `json:"legacy_id"`

	MembershipNumber null.String `json:"membership_number"`
	CharityNumber    null.String `json:"charity_number"`
	CompanyNumber    null.String `json:"company_number"`

	Name     string      `json:"name"`
	About    null.String `json:"about_text"`
	Street   null.String `json:"street"`
	City     null.String `json:"city"`
	County   null.String `json:"county"`
	Postcode null.String `json:"postcode"`
	Location *Point      `json:"location"`

	Email                     null.String `json:"email"`
	Phone                     null.String `json:"phone"`
	Website                   null.String `json:"website"`
	VolunteerRecruitmentEmail null.String `json:"volunteer_recruitment_email"`

	AllowsDropIns            bool     `json:"allows_drop_ins"`
	AccessibilityInformation []string `json:"accessibility_information"`
	VolunteerRoles           []string `json:"volunteer_roles"`

	OpeningHoursInformation   null.String `json:"opening_hours_information"`
	TelephoneHoursInformation null.String `json:"telephone_advice_hours_information"`

	LocalAuthorityID null.String `json:"local_authority_id"`
}

// HasVacancies reports whether the office is recruiting for any role.
func (o *Office) HasVacancies() bool {
	return len(o.VolunteerRoles) > 0
}

// Contact method names.
const (
	ContactDropIn = "drop_in"
	ContactPhone  = "phone"
	ContactEmail  = "email"
)

// ContactMethods lists the ways a client can reach the office, in the
// order drop-in, phone, email.
func (o *Office) ContactMethods() []string {
	methods := make([]string, 0, 3)
	if o.AllowsDropIns {
		methods = append(methods, ContactDropIn)
	}
	if o.Phone.Valid && o.Phone.String != "" {
		methods = append(methods, ContactPhone)
	}
	if o.Email.Valid && o.Email.String != "" {
		methods = append(methods, ContactEmail)
	}
	return methods
}

// Clone returns a deep copy of the office.
func (o *Office) Clone() *Office {
	c := *o
	if o.Location != nil {
		p := *o.Location
		c.Location = &p
	}
	c.AccessibilityInformation = append([]string(nil), o.AccessibilityInformation...)
	c.VolunteerRoles = append([]string(nil), o.VolunteerRoles...)
	return &c
}

// ServedArea says an office serves queries originating in a local authority.
type ServedArea struct {
	OfficeID         string `json:"office_id"`
	LocalAuthorityID string `json:"local_authority_id"`
}

// LocalAuthority is an administrative area, e.g. E06000001 Hartlepool.
type LocalAuthority struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
