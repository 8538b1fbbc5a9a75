package directory

import (
	"testing"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalise(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AB1 0AA", "ab10aa"},
		{"ab10aa", "ab10aa"},
		{"  Ab1   0aA ", "ab10aa"},
		{"Testshire", "testshire"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalise(tt.in))
		})
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:30", NewTimeOfDay(9, 30, 0), false},
		{"00:00", 0, false},
		{"23:59:59", NewTimeOfDay(23, 59, 59), false},
		{"9:30", 0, true},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeOfDay_String(t *testing.T) {
	assert.Equal(t, "09:05", NewTimeOfDay(9, 5, 0).String())
	assert.Equal(t, "17:00:30", NewTimeOfDay(17, 0, 30).String())
}

func TestParseWeekday(t *testing.T) {
	d, ok := ParseWeekday("Monday")
	assert.True(t, ok)
	assert.Equal(t, Monday, d)

	_, ok = ParseWeekday("Funday")
	assert.False(t, ok)
}

func TestGroupOpeningTimes(t *testing.T) {
	entries := []OpeningTime{
		{OfficeID: "a", Purpose: PurposeOffice, Day: Monday, Opens: NewTimeOfDay(13, 0, 0), Closes: NewTimeOfDay(16, 0, 0)},
		{OfficeID: "a", Purpose: PurposeOffice, Day: Monday, Opens: NewTimeOfDay(9, 0, 0), Closes: NewTimeOfDay(12, 0, 0)},
		{OfficeID: "a", Purpose: PurposeTelephone, Day: Tuesday, Opens: NewTimeOfDay(10, 0, 0), Closes: NewTimeOfDay(11, 0, 0)},
	}

	office := GroupOpeningTimes(entries, PurposeOffice)
	require.Len(t, office, 7)
	require.Len(t, office[Monday], 2)
	assert.Equal(t, NewTimeOfDay(9, 0, 0), office[Monday][0].Opens)
	assert.Equal(t, NewTimeOfDay(13, 0, 0), office[Monday][1].Opens)
	assert.Empty(t, office[Tuesday])

	phone := GroupOpeningTimes(entries, PurposeTelephone)
	assert.Len(t, phone[Tuesday], 1)
}

func TestPoint_DistanceTo(t *testing.T) {
	london := Point{Lat: 51.5074, Lon: -0.1278}
	paris := Point{Lat: 48.8566, Lon: 2.3522}

	d := london.DistanceTo(paris)
	assert.InDelta(t, 343_500, d, 2_000)
	assert.Zero(t, london.DistanceTo(london))
}

func TestNewPoint(t *testing.T) {
	_, err := NewPoint(91, 0)
	assert.Error(t, err)

	p, err := NewPoint(54.5, -1.2)
	require.NoError(t, err)
	assert.Equal(t, "POINT(-1.2 54.5)", p.String())
}

func TestOffice_ContactMethods(t *testing.T) {
	o := &Office{AllowsDropIns: true, Email: null.StringFrom("a@example.org")}
	assert.Equal(t, []string{ContactDropIn, ContactEmail}, o.ContactMethods())

	o = &Office{Phone: null.StringFrom("")}
	assert.Empty(t, o.ContactMethods())
}

func TestOffice_Clone(t *testing.T) {
	o := &Office{ID: "x", VolunteerRoles: []string{"adviser"}, Location: &Point{Lat: 1, Lon: 2}}
	c := o.Clone()
	c.VolunteerRoles[0] = "changed"
	c.Location.Lat = 9

	assert.Equal(t, "adviser", o.VolunteerRoles[0])
	assert.Equal(t, 1.0, o.Location.Lat)
}
