package core_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/officesearch/internal/core"
	"github.com/JonMunkholm/officesearch/internal/fetch"
	"github.com/JonMunkholm/officesearch/internal/ingest"
	"github.com/JonMunkholm/officesearch/internal/schema"
	"github.com/JonMunkholm/officesearch/internal/source"
	"github.com/JonMunkholm/officesearch/internal/store/memory"
	"github.com/stretchr/testify/require"
)

const (
	laHartlepool    = "E06000001"
	laMiddlesbrough = "E06000002"
	memberTypeID    = "0124K000000HyUGQA0"
)

type fields map[string]string

// locations maps source names to files, standing in for config.SourcesConfig.
type locations map[string]string

func (l locations) Location(name string) string { return l[name] }

// exports is a full set of source files keyed by source name.
type exports map[string][]fields

func defaultExports() exports {
	return exports{
		schema.SourcePostcodes: {
			{"postcode": "TS24 7AA", "local_authority_code": laHartlepool, "local_authority_name": "Hartlepool", "lat": "54.69", "lon": "-1.21"},
			{"postcode": "TS1 1AA", "local_authority_code": laMiddlesbrough, "local_authority_name": "Middlesbrough", "lat": "54.57", "lon": "-1.23"},
		},
		schema.SourceMembers: {
			{"salesforce_id": "M1", "member_full_name": "Hartlepool Advice Network", "location_type_id": memberTypeID, "local_authority_ons_code": laHartlepool},
		},
		schema.SourceAdviceLocations: {
			{
				"salesforce_advice_location_id": "O1", "advice_location_name": "Hartlepool Central",
				"location_type_id": ingest.LocationTypeOffice, "salesforce_parent_id": "M1",
				"resource_directory_id": "1234", "latitude": "54.6863", "longitude": "-1.2126",
				"local_authority_ons_code": laHartlepool, "excluded_from_lss_front_end": "FALSE",
			},
			{
				"salesforce_advice_location_id": "O2", "advice_location_name": "Middlesbrough Outreach",
				"location_type_id": ingest.LocationTypeOutreach, "salesforce_parent_id": "O1",
				"local_authority_ons_code": laMiddlesbrough, "excluded_from_lss_front_end": "FALSE",
			},
		},
		schema.SourceOpeningHours: {
			{"advice_location_salesforce_id": "O1", "session_day": "Monday", "session_start_time": "13:00", "session_end_time": "17:00", "session_type": ingest.SessionOfficeHours},
			{"advice_location_salesforce_id": "O1", "session_day": "Monday", "session_start_time": "09:00", "session_end_time": "12:00", "session_type": ingest.SessionOfficeHours},
			{"advice_location_salesforce_id": "O1", "session_day": "Tuesday", "session_start_time": "10:00", "session_end_time": "14:00", "session_type": ingest.SessionTelephoneHours},
		},
		schema.SourceVolunteerRoles: {
			{"salesforce_advice_location_id": "O1", "advice_location_volunteer_roles_recruiting_status": "Adviser"},
		},
		schema.SourceAccessibility: {
			{"salesforce_advice_location_id": "O2", "advice_location_accessibility": "Hearing loop"},
		},
	}
}

// write renders every export as a CSV file under a temp dir.
func (e exports) write(t *testing.T) locations {
	t.Helper()
	dir := t.TempDir()
	locs := make(locations)
	for name, rows := range e {
		c, ok := schema.ByName(name)
		require.True(t, ok, name)
		path := filepath.Join(dir, name+".csv")
		writeCSV(t, path, c.Columns, rows)
		locs[name] = path
	}
	return locs
}

func writeCSV(t *testing.T, path string, header []string, rows []fields) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.Write(header))
	for _, r := range rows {
		rec := make([]string, len(header))
		for i, col := range header {
			rec[i] = r[col]
		}
		require.NoError(t, w.Write(rec))
	}
	w.Flush()
	require.NoError(t, w.Error())
}

func newService(t *testing.T, locs locations, lock ingest.Lock) (*core.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	opener := fetch.New("")
	t.Cleanup(func() { opener.Close() })
	svc := core.NewService(store, core.Options{
		Lock:    lock,
		Opener:  opener,
		Sources: locs,
	})
	return svc, store
}

func openSource(t *testing.T, locs locations, name string) (source.Reader, error) {
	t.Helper()
	opener := fetch.New("")
	r, err := opener.OpenSource(context.Background(), name, locs[name])
	if err != nil {
		return nil, err
	}
	t.Cleanup(func() { r.Close() })
	return r, nil
}
