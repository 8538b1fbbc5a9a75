package postgres

import (
	"github.com/JonMunkholm/officesearch/internal/directory"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// officeColumns lists offices columns in CopyFrom and scan order. The
// generated location column is never written.
var officeColumns = []string{
	"id", "office_type", "parent_id", "legacy_id",
	"membership_number", "charity_number", "company_number",
	"name", "about", "street", "city", "county", "postcode",
	"latitude", "longitude",
	"email", "phone", "website", "volunteer_recruitment_email",
	"allows_drop_ins", "accessibility_information", "volunteer_roles",
	"opening_hours_information", "telephone_hours_information",
	"local_authority_id",
}

var (
	servedAreaColumns     = []string{"office_id", "local_authority_id"}
	openingTimeColumns    = []string{"office_id", "opening_time_for", "day_of_week", "opens", "closes"}
	localAuthorityColumns = []string{"id", "name"}
	postcodeColumns       = []string{"id", "canonical", "latitude", "longitude", "local_authority_id"}
)

// officeRow encodes o for CopyFrom. The null types are driver.Valuers.
func officeRow(o *directory.Office) []any {
	var lat, lon pgtype.Float8
	if o.Location != nil {
		lat = pgtype.Float8{Float64: o.Location.Lat, Valid: true}
		lon = pgtype.Float8{Float64: o.Location.Lon, Valid: true}
	}
	return []any{
		o.ID, string(o.Kind), o.ParentID, o.LegacyID,
		o.MembershipNumber, o.CharityNumber, o.CompanyNumber,
		o.Name, o.About, o.Street, o.City, o.County, o.Postcode,
		lat, lon,
		o.Email, o.Phone, o.Website, o.VolunteerRecruitmentEmail,
		o.AllowsDropIns, nonNil(o.AccessibilityInformation), nonNil(o.VolunteerRoles),
		o.OpeningHoursInformation, o.TelephoneHoursInformation,
		o.LocalAuthorityID,
	}
}

func scanOffice(row pgx.Row) (directory.Office, error) {
	var (
		o        directory.Office
		kind     string
		lat, lon pgtype.Float8
	)
	err := row.Scan(
		&o.ID, &kind, &o.ParentID, &o.LegacyID,
		&o.MembershipNumber, &o.CharityNumber, &o.CompanyNumber,
		&o.Name, &o.About, &o.Street, &o.City, &o.County, &o.Postcode,
		&lat, &lon,
		&o.Email, &o.Phone, &o.Website, &o.VolunteerRecruitmentEmail,
		&o.AllowsDropIns, &o.AccessibilityInformation, &o.VolunteerRoles,
		&o.OpeningHoursInformation, &o.TelephoneHoursInformation,
		&o.LocalAuthorityID,
	)
	if err != nil {
		return directory.Office{}, err
	}
	o.Kind = directory.Kind(kind)
	if lat.Valid && lon.Valid {
		o.Location = &directory.Point{Lat: lat.Float64, Lon: lon.Float64}
	}
	o.AccessibilityInformation = nonNil(o.AccessibilityInformation)
	o.VolunteerRoles = nonNil(o.VolunteerRoles)
	return o, nil
}

func collectOffice(row pgx.CollectableRow) (directory.Office, error) {
	return scanOffice(row)
}

func openingTimeRow(ot directory.OpeningTime) []any {
	return []any{ot.OfficeID, string(ot.Purpose), string(ot.Day), pgTime(ot.Opens), pgTime(ot.Closes)}
}

func scanOpeningTime(row pgx.CollectableRow) (directory.OpeningTime, error) {
	var (
		ot            directory.OpeningTime
		purpose, day  string
		opens, closes pgtype.Time
	)
	if err := row.Scan(&ot.OfficeID, &purpose, &day, &opens, &closes); err != nil {
		return directory.OpeningTime{}, err
	}
	ot.Purpose = directory.Purpose(purpose)
	ot.Day = directory.Weekday(day)
	ot.Opens = timeOfDay(opens)
	ot.Closes = timeOfDay(closes)
	return ot, nil
}

func scanPostcode(row pgx.Row) (directory.Postcode, error) {
	var pc directory.Postcode
	err := row.Scan(&pc.ID, &pc.Canonical, &pc.Location.Lat, &pc.Location.Lon, &pc.LocalAuthorityID)
	return pc, err
}

func pgTime(t directory.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * 1_000_000, Valid: true}
}

func timeOfDay(t pgtype.Time) directory.TimeOfDay {
	return directory.TimeOfDay(t.Microseconds / 1_000_000)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
