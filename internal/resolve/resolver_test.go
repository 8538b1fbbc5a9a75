package resolve_test

import (
	"context"
	"testing"

	"github.com/JonMunkholm/officesearch/internal/directory"
	"github.com/JonMunkholm/officesearch/internal/ingest"
	"github.com/JonMunkholm/officesearch/internal/resolve"
	"github.com/JonMunkholm/officesearch/internal/store/memory"
	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	laHartlepool    = "E06000001"
	laMiddlesbrough = "E06000002"
	laEmptyshire    = "E06000099"
	laNorthTest     = "E07000998"
	laSouthTest     = "E07000999"
	laAberdeen      = "S12000033"
	laBelfast       = "N09000003"
)

func pt(lat, lon float64) *directory.Point {
	return &directory.Point{Lat: lat, Lon: lon}
}

func office(id, name string, kind directory.Kind, la string, loc *directory.Point, roles ...string) *directory.Office {
	if roles == nil {
		roles = []string{}
	}
	return &directory.Office{
		ID:                       id,
		Kind:                     kind,
		Name:                     name,
		Location:                 loc,
		LocalAuthorityID:         null.NewString(la, la != ""),
		VolunteerRoles:           roles,
		AccessibilityInformation: []string{},
	}
}

func seed(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	ctx := context.Background()

	err := store.InTx(ctx, func(tx ingest.Tx) error {
		if _, err := tx.InsertLocalAuthorities(ctx, []directory.LocalAuthority{
			{ID: laHartlepool, Name: "Hartlepool"},
			{ID: laMiddlesbrough, Name: "Middlesbrough"},
			{ID: laEmptyshire, Name: "Emptyshire"},
			{ID: laNorthTest, Name: "North Testshire"},
			{ID: laSouthTest, Name: "South Testshire"},
			{ID: laAberdeen, Name: "Aberdeen City"},
			{ID: laBelfast, Name: "Belfast"},
		}); err != nil {
			return err
		}
		if _, err := tx.UpsertPostcodes(ctx, []directory.Postcode{
			{Canonical: "TS24 7AA", Location: directory.Point{Lat: 54.69, Lon: -1.21}, LocalAuthorityID: laHartlepool},
			{Canonical: "AB1 0AA", Location: directory.Point{Lat: 52.0, Lon: -1.0}, LocalAuthorityID: laEmptyshire},
			{Canonical: "AB10 1AA", Location: directory.Point{Lat: 57.14, Lon: -2.10}, LocalAuthorityID: laAberdeen},
			{Canonical: "BT1 1AA", Location: directory.Point{Lat: 54.60, Lon: -5.93}, LocalAuthorityID: laBelfast},
		}); err != nil {
			return err
		}
		if _, err := tx.InsertOffices(ctx, []*directory.Office{
			office("T1", "Tees Valley Advice", directory.KindOffice, laNorthTest, pt(53.0, -1.0)),
			office("M1", "Middlesbrough Town", directory.KindOffice, laMiddlesbrough, pt(54.57, -1.23)),
			office("H2", "Hartlepool Seaton", directory.KindOffice, laHartlepool, pt(54.66, -1.19)),
			office("N1", "Nowhere Office", directory.KindOffice, laHartlepool, nil),
			office("X1", "Hartlepool Outreach", directory.KindOutreach, laHartlepool, pt(54.69, -1.21)),
			office("H1", "Hartlepool Central", directory.KindOffice, laHartlepool, pt(54.686, -1.213), "Adviser"),
		}); err != nil {
			return err
		}
		_, err := tx.InsertServedAreas(ctx, []directory.ServedArea{
			{OfficeID: "T1", LocalAuthorityID: laNorthTest},
			{OfficeID: "T1", LocalAuthorityID: laSouthTest},
			{OfficeID: "M1", LocalAuthorityID: laMiddlesbrough},
			{OfficeID: "H2", LocalAuthorityID: laHartlepool},
			{OfficeID: "N1", LocalAuthorityID: laHartlepool},
			{OfficeID: "X1", LocalAuthorityID: laHartlepool},
			{OfficeID: "H1", LocalAuthorityID: laHartlepool},
		})
		return err
	})
	require.NoError(t, err)
	return store
}

func ids(matches []resolve.Match) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Office.ID)
	}
	return out
}

func TestResolve_ExactOrdersByDistance(t *testing.T) {
	r := resolve.New(seed(t), 0)

	res, err := r.Resolve(context.Background(), "ts24 7aa", resolve.Options{})
	require.NoError(t, err)

	assert.Equal(t, resolve.MatchExact, res.Type)
	assert.Equal(t, "exact", res.Label())
	assert.Equal(t, "TS24 7AA", res.Postcode)
	assert.Equal(t, laHartlepool, res.LocalAuthorityID)
	require.NotNil(t, res.Point)
	assert.Equal(t, []string{"H1", "H2", "M1", "T1", "N1"}, ids(res.Offices))

	for i := 1; i < 4; i++ {
		assert.Less(t, res.Offices[i-1].DistanceMeters, res.Offices[i].DistanceMeters)
	}
	assert.InDelta(t, 500, res.Offices[0].DistanceMeters, 150)
	assert.Zero(t, res.Offices[4].DistanceMeters)
}

func TestResolve_ExactFilters(t *testing.T) {
	tests := []struct {
		name string
		opts resolve.Options
		want []string
	}{
		{"served area", resolve.Options{OnlyInServedArea: true}, []string{"H1", "H2", "N1"}},
		{"vacancies", resolve.Options{OnlyWithVacancies: true}, []string{"H1"}},
		{"both", resolve.Options{OnlyInServedArea: true, OnlyWithVacancies: true}, []string{"H1"}},
	}

	r := resolve.New(seed(t), 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(context.Background(), "TS247AA", tt.opts)
			require.NoError(t, err)
			assert.Equal(t, resolve.MatchExact, res.Type)
			assert.Equal(t, tt.want, ids(res.Offices))
		})
	}
}

func TestResolve_ExactLimitAppliesOnlyWhenUnscoped(t *testing.T) {
	r := resolve.New(seed(t), 2)

	res, err := r.Resolve(context.Background(), "TS24 7AA", resolve.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"H1", "H2"}, ids(res.Offices))

	res, err = r.Resolve(context.Background(), "TS24 7AA", resolve.Options{OnlyInServedArea: true})
	require.NoError(t, err)
	assert.Len(t, res.Offices, 3)
}

func TestResolve_ExactWithNoServingOffices(t *testing.T) {
	r := resolve.New(seed(t), 0)

	res, err := r.Resolve(context.Background(), "AB1 0AA", resolve.Options{OnlyInServedArea: true})
	require.NoError(t, err)

	assert.Equal(t, resolve.MatchExact, res.Type)
	assert.Equal(t, laEmptyshire, res.LocalAuthorityID)
	require.NotNil(t, res.Point)
	assert.Empty(t, res.Offices)
}

func TestResolve_OutOfArea(t *testing.T) {
	tests := []struct {
		query     string
		territory resolve.Territory
		label     string
		name      string
	}{
		{"AB10 1AA", resolve.Scotland, "out_of_area_scotland", "Scotland"},
		{"bt11aa", resolve.NorthernIreland, "out_of_area_ni", "Northern Ireland"},
	}

	r := resolve.New(seed(t), 0)
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res, err := r.Resolve(context.Background(), tt.query, resolve.Options{})
			require.NoError(t, err)
			assert.Equal(t, resolve.MatchOutOfArea, res.Type)
			assert.Equal(t, tt.territory, res.Territory)
			assert.Equal(t, tt.label, res.Label())
			assert.Equal(t, tt.name, res.Territory.Name())
			assert.NotNil(t, res.Point)
			assert.Empty(t, res.Offices)
		})
	}
}

func TestResolve_FuzzyByServedAuthorityName(t *testing.T) {
	r := resolve.New(seed(t), 0)

	res, err := r.Resolve(context.Background(), "Testshire", resolve.Options{})
	require.NoError(t, err)

	assert.Equal(t, resolve.MatchFuzzy, res.Type)
	assert.Nil(t, res.Point)
	assert.Equal(t, []string{"T1"}, ids(res.Offices))
	assert.Zero(t, res.Offices[0].DistanceMeters)
}

func TestResolve_FuzzyByOfficeName(t *testing.T) {
	r := resolve.New(seed(t), 0)

	res, err := r.Resolve(context.Background(), "  HARTLEPOOL ", resolve.Options{})
	require.NoError(t, err)
	assert.Equal(t, resolve.MatchFuzzy, res.Type)
	assert.ElementsMatch(t, []string{"H1", "H2", "N1"}, ids(res.Offices))

	res, err = r.Resolve(context.Background(), "hartlepool", resolve.Options{OnlyWithVacancies: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"H1"}, ids(res.Offices))

	res, err = resolve.New(seed(t), 2).Resolve(context.Background(), "hartlepool", resolve.Options{})
	require.NoError(t, err)
	assert.Len(t, res.Offices, 2)
}

func TestResolve_Unknown(t *testing.T) {
	r := resolve.New(seed(t), 0)

	for _, q := range []string{"AB1 2CD", "", "   "} {
		res, err := r.Resolve(context.Background(), q, resolve.Options{})
		require.NoError(t, err)
		assert.Equal(t, resolve.MatchUnknown, res.Type, "query %q", q)
		assert.Nil(t, res.Point)
		assert.Empty(t, res.Offices)
	}
}

func TestTerritoryOf(t *testing.T) {
	tests := []struct {
		id   string
		want resolve.Territory
		ok   bool
	}{
		{"S12000033", resolve.Scotland, true},
		{"N09000003", resolve.NorthernIreland, true},
		{"E06000001", "", false},
		{"W06000015", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := resolve.TerritoryOf(tt.id)
		assert.Equal(t, tt.want, got, tt.id)
		assert.Equal(t, tt.ok, ok, tt.id)
	}
}
