package schema

// Members is the member-organisation export.
var Members = Contract{
	Source: SourceMembers,
	Label:  "Members CSV file",
	Columns: []string{
		"salesforce_id", "location_type_id", "salesforce_parent_id", "street_name", "city",
		"latitude", "longitude", "public_website", "last_modified_date",
		"excluded_from_lss_front_end", "membership_number", "charity_number", "company_number",
		"membership_end_date", "government_region", "membership_status", "member_short_name",
		"membership_start_date", "local_authority_ons_name", "resource_directory_id",
		"enquiries_email", "member_full_name", "county", "postcode", "local_authority_ons_code",
	},
}

// AdviceLocations is the office and outreach export.
var AdviceLocations = Contract{
	Source: SourceAdviceLocations,
	Label:  "Advice Locations CSV file",
	Columns: []string{
		"salesforce_advice_location_id", "advice_location_name", "location_type_name",
		"salesforce_parent_id", "street_name", "city", "county", "postcode", "latitude",
		"longitude", "phone", "public_website", "last_modified_date", "allows_drop_in_visits",
		"enquiries_email", "emergency_contact_email", "excluded_from_lss_front_end",
		"has_referral_service", "resource_directory_id", "service_notes", "is_location_closed",
		"membership_number", "advice_service_information", "government_region",
		"currently_recruiting_volunteers", "face_to_face_advice_hours_information",
		"telephone_advice_hours_information", "excluded_from_lss_reports", "closed_from",
		"reopened_from", "location_status", "volunteer_recruitment_email",
		"local_authority_ons_name", "local_authority_ons_code", "location_type_id",
	},
}

// OpeningHours holds one session per row.
var OpeningHours = Contract{
	Source: SourceOpeningHours,
	Label:  "Opening Hours CSV file",
	Columns: []string{
		"advice_location_salesforce_id", "session_day", "session_start_time",
		"session_end_time", "session_type",
	},
}

// VolunteerRoles holds one recruiting role per row.
var VolunteerRoles = Contract{
	Source:  SourceVolunteerRoles,
	Label:   "Volunteer roles CSV file",
	Columns: []string{"salesforce_advice_location_id", "advice_location_volunteer_roles_recruiting_status"},
}

// Accessibility holds one accessibility feature per row.
var Accessibility = Contract{
	Source:  SourceAccessibility,
	Label:   "Accessibility info CSV file",
	Columns: []string{"salesforce_advice_location_id", "advice_location_accessibility"},
}
