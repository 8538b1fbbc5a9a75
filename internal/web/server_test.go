package web

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/officesearch/internal/core"
	"github.com/JonMunkholm/officesearch/internal/ingest"
	"github.com/JonMunkholm/officesearch/internal/schema"
	"github.com/JonMunkholm/officesearch/internal/source"
	"github.com/JonMunkholm/officesearch/internal/store/memory"
)

type fields map[string]string

func csvReader(t *testing.T, c schema.Contract, rows ...fields) source.Reader {
	t.Helper()
	var b strings.Builder
	w := csv.NewWriter(&b)
	require.NoError(t, w.Write(c.Columns))
	for _, row := range rows {
		rec := make([]string, len(c.Columns))
		for i, col := range c.Columns {
			rec[i] = row[col]
		}
		require.NoError(t, w.Write(rec))
	}
	w.Flush()

	r, err := source.NewCSV(c.Source, io.NopCloser(strings.NewReader(b.String())))
	require.NoError(t, err)
	return r
}

func office(id, name, kind, parent, la, lat, lon string, extra ...string) fields {
	f := fields{
		"salesforce_advice_location_id": id,
		"advice_location_name":          name,
		"location_type_id":              kind,
		"salesforce_parent_id":          parent,
		"local_authority_ons_code":      la,
		"latitude":                      lat,
		"longitude":                     lon,
	}
	for i := 0; i+1 < len(extra); i += 2 {
		f[extra[i]] = extra[i+1]
	}
	return f
}

// newTestServer loads a small directory:
//
//	M1 member
//	├── O1 office, Hartlepool, legacy id 77, drop-ins + phone
//	│   └── X1 outreach
//	└── O2 office, Hartlepool, further away, recruiting
func newTestServer(t *testing.T, opts Options) (*Server, *core.Service) {
	t.Helper()
	ctx := context.Background()
	svc := core.NewService(memory.New(), core.Options{Lock: ingest.NewRunLock(20 * time.Millisecond)})

	_, err := svc.LoadReference(ctx, csvReader(t, schema.Postcodes,
		fields{"postcode": "TS24 7AA", "local_authority_code": "E06000001", "local_authority_name": "Hartlepool", "lat": "54.69", "lon": "-1.21"},
		fields{"postcode": "EH1 1AA", "local_authority_code": "S12000036", "local_authority_name": "City of Edinburgh", "lat": "55.95", "lon": "-3.19"},
	))
	require.NoError(t, err)

	_, err = svc.LoadOffices(ctx, ingest.Sources{
		Members: csvReader(t, schema.Members, fields{
			"salesforce_id": "M1", "member_full_name": "Hartlepool Advice", "location_type_id": "0124K000000HyUGQA0",
			"local_authority_ons_code": "E06000001",
		}),
		AdviceLocations: csvReader(t, schema.AdviceLocations,
			office("O1", "Hartlepool Central", ingest.LocationTypeOffice, "M1", "E06000001", "54.691", "-1.211",
				"resource_directory_id", "77", "allows_drop_in_visits", "TRUE", "phone", "01429 000000",
				"face_to_face_advice_hours_information", "Walk in"),
			office("O2", "Hartlepool North", ingest.LocationTypeOffice, "M1", "E06000001", "54.75", "-1.25"),
			office("X1", "Hartlepool Library", ingest.LocationTypeOutreach, "O1", "E06000001", "", ""),
		),
		OpeningHours: csvReader(t, schema.OpeningHours, fields{
			"advice_location_salesforce_id": "O1", "session_day": "Monday",
			"session_start_time": "09:00", "session_end_time": "17:00", "session_type": ingest.SessionOfficeHours,
		}),
		VolunteerRoles: csvReader(t, schema.VolunteerRoles, fields{
			"salesforce_advice_location_id": "O2", "advice_location_volunteer_roles_recruiting_status": "Adviser",
		}),
		Accessibility: csvReader(t, schema.Accessibility),
	})
	require.NoError(t, err)

	return NewServer(svc, opts), svc
}

func do(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestSearch(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	tests := []struct {
		name      string
		target    string
		wantType  string
		wantIDs   []string
		wantDists bool
	}{
		{"exact in served area", "/api/v2/offices/search?q=TS24+7AA", "exact", []string{"O1", "O2"}, true},
		{"exact with vacancies", "/api/v2/offices/search?q=ts247aa&vacancies=true", "exact", []string{"O2"}, true},
		{"exact unscoped", "/api/v2/offices/search?q=TS24%207AA&served_area=false", "exact", []string{"O1", "O2"}, true},
		{"fuzzy by authority name", "/api/v2/offices/search?q=hartlepool", "fuzzy", nil, false},
		{"out of area", "/api/v2/offices/search?q=EH1+1AA", "out_of_area_scotland", []string{}, false},
		{"unknown", "/api/v2/offices/search?q=nowhere", "unknown", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.target)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			resp := decode[searchResponse](t, rec)
			assert.Equal(t, tt.wantType, resp.MatchType)

			ids := make([]string, 0, len(resp.Results))
			for _, r := range resp.Results {
				ids = append(ids, r.ID)
				assert.Equal(t, tt.wantDists, r.DistanceMeters != nil, r.ID)
			}
			if tt.wantIDs != nil {
				assert.Equal(t, tt.wantIDs, ids)
			} else {
				assert.ElementsMatch(t, []string{"O1", "O2"}, ids)
			}
		})
	}
}

func TestSearch_ResultShape(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	rec := do(t, s, http.MethodGet, "/api/v2/offices/search?q=TS24+7AA")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[searchResponse](t, rec)
	require.NotNil(t, resp.Location)
	assert.Equal(t, "TS24 7AA", resp.Location.Postcode)
	assert.Equal(t, "E06000001", resp.Location.LocalAuthorityID)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, []string{"drop_in", "phone"}, resp.Results[0].ContactMethods)
	assert.Less(t, *resp.Results[0].DistanceMeters, *resp.Results[1].DistanceMeters)
}

func TestSearch_BadRequest(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	for _, target := range []string{
		"/api/v2/offices/search",
		"/api/v2/offices/search?q=",
		"/api/v2/offices/search?q=TS24&vacancies=maybe",
		"/api/v2/offices/search?q=" + strings.Repeat("a", 201),
	} {
		t.Run(target, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, target)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, "REQ002", resp.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestOffice(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	rec := do(t, s, http.MethodGet, "/api/v2/offices/O1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "O1", body["id"])
	assert.Equal(t, "office", body["type"])
	assert.Equal(t, []any{"drop_in", "phone"}, body["contact_methods"])
	assert.Equal(t, []any{
		map[string]any{"id": "M1", "name": "Hartlepool Advice", "type": "member"},
		map[string]any{"id": "X1", "name": "Hartlepool Library", "type": "outreach"},
	}, body["relations"])

	hours := body["opening_hours"].(map[string]any)
	assert.Equal(t, "Walk in", hours["information"])
	assert.Equal(t, []any{map[string]any{"opens": "09:00", "closes": "17:00"}}, hours["monday"])
	assert.Equal(t, []any{}, hours["sunday"])

	phone := body["telephone_advice_hours"].(map[string]any)
	assert.Nil(t, phone["information"])
}

func TestOffice_LegacyRedirect(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	rec := do(t, s, http.MethodGet, "/api/v2/offices/77")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/api/v2/offices/O1", rec.Header().Get("Location"))

	for _, target := range []string{"/api/v2/offices/78", "/api/v2/offices/99999999999999999999", "/api/v2/offices/nope"} {
		rec := do(t, s, http.MethodGet, target)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Equal(t, "REQ001", decode[ErrorResponse](t, rec).Code)
	}
}

func TestStatus(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	rec := do(t, s, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	st := decode[core.Status](t, rec)
	assert.Equal(t, "ok", st.Database)
	assert.False(t, st.Ingesting)
	require.NotNil(t, st.Counts)
	assert.EqualValues(t, 4, st.Counts.Offices)
}

func TestIngest(t *testing.T) {
	t.Run("not mounted by default", func(t *testing.T) {
		s, _ := newTestServer(t, Options{})
		rec := do(t, s, http.MethodPost, "/api/admin/ingest")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("sources not configured", func(t *testing.T) {
		s, _ := newTestServer(t, Options{AdminEndpoint: true})
		rec := do(t, s, http.MethodPost, "/api/admin/ingest")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "SRC002", decode[ErrorResponse](t, rec).Code)
	})

	t.Run("conflict while another run holds the lock", func(t *testing.T) {
		lock := ingest.NewRunLock(10 * time.Millisecond)
		require.True(t, lock.TryAcquire())
		defer lock.Release()

		svc := core.NewService(memory.New(), core.Options{Lock: lock})
		s := NewServer(svc, Options{AdminEndpoint: true})

		rec := do(t, s, http.MethodPost, "/api/admin/ingest")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "ING002", decode[ErrorResponse](t, rec).Code)

		rec = do(t, s, http.MethodGet, "/status")
		assert.True(t, decode[core.Status](t, rec).Ingesting)
	})
}

func TestMetricsRoute(t *testing.T) {
	s, _ := newTestServer(t, Options{MetricsPath: "/metrics"})

	do(t, s, http.MethodGet, "/api/v2/offices/search?q=TS24+7AA")
	rec := do(t, s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "officesearch_resolutions_total")
	assert.Contains(t, rec.Body.String(), "officesearch_http_requests_total")
}

func TestSecurityHeaders(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	rec := do(t, s, http.MethodGet, "/status")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
