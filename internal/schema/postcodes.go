package schema

// Postcodes is the ONS postcode directory extract.
var Postcodes = Contract{
	Source: SourcePostcodes,
	Label:  "Postcodes CSV file",
	Columns: []string{
		"postcode", "postcode_no_space", "postcode_area", "postcode_district", "date_start",
		"date_end", "state", "onspd_version", "easting", "northing", "positional_quality",
		"lat", "lon", "european_economic_region_code", "european_economic_region_name",
		"county_code", "county_name", "local_authority_code", "local_authority_name",
		"ward_code", "ward_name", "county_electoral_division_code",
		"county_electoral_division_name", "parish_code", "parish_name",
		"parliamentary_constituency_code", "parliamentary_constituency_name",
		"census_output_area_2021_code", "lower_super_output_area_2021_code",
		"census_output_area_2011_code", "lower_super_output_area_2011_code",
		"rural_urban_area_2011_code", "imd_rank", "primary_care_trust_code",
		"integrated_care_board_subdivision_code", "integrated_care_board_subdivision_name",
		"police_force_area_code", "police_force_area_name", "integrated_care_board_code",
		"integrated_care_board_name", "westminster_member_of_parliment",
		"westminster_political_party",
	},
}
