package ingest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/JonMunkholm/officesearch/internal/directory"
	"github.com/JonMunkholm/officesearch/internal/ingest"
	"github.com/JonMunkholm/officesearch/internal/schema"
	"github.com/JonMunkholm/officesearch/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullDataset() dataset {
	return dataset{
		members: []fields{member("M1", "Hartlepool Advice Network")},
		advice: []fields{
			adviceLocation("O1", "Hartlepool Central",
				"salesforce_parent_id", "M1", "latitude", "54.6863", "longitude", "-1.2126"),
			adviceLocation("O2", "Middlesbrough Outreach",
				"salesforce_parent_id", "O1",
				"location_type_id", ingest.LocationTypeOutreach,
				"local_authority_ons_code", laMiddlesbrough),
		},
		hours: []fields{
			session("O1", "Monday", "09:00", "17:00", ingest.SessionOfficeHours),
			session("O1", "Tuesday", "10:00", "14:00", ingest.SessionTelephoneHours),
			session("O2", "Wednesday", "17:00", "09:00", ingest.SessionOfficeHours),
		},
		roles:  []fields{role("O1", "Adviser")},
		access: []fields{accessibility("O2", "Hearing loop")},
	}
}

func newLoadedStore(t *testing.T) (*memory.Store, ingest.AuthoritySet) {
	t.Helper()
	store := memory.New()
	authorities := seedAuthorities(t, store, laHartlepool, laMiddlesbrough)
	_, err := ingest.NewCoordinator(store).Load(context.Background(), fullDataset().sources(t), authorities)
	require.NoError(t, err)
	return store, authorities
}

func counts(t *testing.T, store *memory.Store) directory.Counts {
	t.Helper()
	c, err := store.Counts(context.Background())
	require.NoError(t, err)
	return c
}

func TestCoordinator_Load(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	authorities := seedAuthorities(t, store, laHartlepool, laMiddlesbrough)

	res, err := ingest.NewCoordinator(store).Load(ctx, fullDataset().sources(t), authorities)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.EqualValues(t, 3, res.Offices)
	assert.EqualValues(t, 3, res.ServedAreas)
	assert.EqualValues(t, 2, res.OpeningTimes)
	assert.Equal(t, 1, res.Dropped["opening_hours/closes_before_opens"])

	o1, err := store.Office(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, "M1", o1.ParentID.String)
	assert.Equal(t, []string{"Adviser"}, o1.VolunteerRoles)

	children, err := store.Children(ctx, "O1")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "O2", children[0].ID)

	times, err := store.OpeningTimes(ctx, "O1")
	require.NoError(t, err)
	assert.Len(t, times, 2)
}

func TestCoordinator_ReplacesPreviousDataset(t *testing.T) {
	ctx := context.Background()
	store, authorities := newLoadedStore(t)

	_, err := ingest.NewCoordinator(store).Load(ctx, dataset{
		advice: []fields{adviceLocation("N1", "New Office")},
	}.sources(t), authorities)
	require.NoError(t, err)

	c := counts(t, store)
	assert.EqualValues(t, 1, c.Offices)
	assert.EqualValues(t, 1, c.ServedAreas)
	assert.EqualValues(t, 0, c.OpeningTimes)

	_, err = store.Office(ctx, "O1")
	assert.ErrorIs(t, err, directory.ErrNotFound)
}

func TestCoordinator_FailuresLeaveDatasetUntouched(t *testing.T) {
	badHours := func(t *testing.T) ingest.Sources {
		src := fullDataset().sources(t)
		src.OpeningHours = readerWithHeader(t, schema.SourceOpeningHours,
			[]string{"advice_location_salesforce_id", "day", "start", "end", "type"})
		return src
	}
	badCode := func(t *testing.T) ingest.Sources {
		d := fullDataset()
		d.advice = append(d.advice, adviceLocation("O9", "Mystery", "location_type_id", "0124K000000XXXXXXX"))
		return d.sources(t)
	}
	badDay := func(t *testing.T) ingest.Sources {
		d := fullDataset()
		d.hours = append(d.hours, session("O1", "Caturday", "09:00", "10:00", ingest.SessionOfficeHours))
		return d.sources(t)
	}

	tests := []struct {
		name    string
		sources func(*testing.T) ingest.Sources
		store   func(*memory.Store) ingest.Store
		wantErr error
	}{
		{"header mismatch in third source", badHours, nil, schema.ErrHeaderMismatch},
		{"unrecognised location type", badCode, nil, ingest.ErrUnrecognisedCode},
		{"unrecognised day", badDay, nil, ingest.ErrUnrecognisedCode},
		{
			name:    "write failure on last insert",
			sources: func(t *testing.T) ingest.Sources { return fullDataset().sources(t) },
			store: func(s *memory.Store) ingest.Store {
				return failingStore{inner: s, failOn: "opening_times"}
			},
			wantErr: errInjected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, authorities := newLoadedStore(t)
			before := counts(t, store)
			o1Before, err := store.Office(ctx, "O1")
			require.NoError(t, err)

			var target ingest.Store = store
			if tt.store != nil {
				target = tt.store(store)
			}

			_, err = ingest.NewCoordinator(target).Load(ctx, tt.sources(t), authorities)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, before, counts(t, store))
			o1After, err := store.Office(ctx, "O1")
			require.NoError(t, err)
			assert.Equal(t, o1Before, o1After)
		})
	}
}

func TestCoordinator_HeaderErrorNamesTheFile(t *testing.T) {
	store := memory.New()
	src := fullDataset().sources(t)
	src.Accessibility = readerWithHeader(t, schema.SourceAccessibility, []string{"salesforce_advice_location_id"})

	_, err := ingest.NewCoordinator(store).Load(context.Background(), src, ingest.NewAuthoritySet())

	var headerErr *schema.HeaderError
	require.True(t, errors.As(err, &headerErr))
	assert.Equal(t, "Accessibility info CSV file", headerErr.Contract.Label)
}

func TestCoordinator_MissingSource(t *testing.T) {
	src := fullDataset().sources(t)
	src.VolunteerRoles = nil

	_, err := ingest.NewCoordinator(memory.New()).Load(context.Background(), src, ingest.NewAuthoritySet())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Volunteer roles CSV file")
}

func TestCoordinator_CancelledContext(t *testing.T) {
	store, authorities := newLoadedStore(t)
	before := counts(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ingest.NewCoordinator(store).Load(ctx, dataset{}.sources(t), authorities)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, counts(t, store))
}
