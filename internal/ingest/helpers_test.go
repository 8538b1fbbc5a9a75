package ingest_test

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/JonMunkholm/officesearch/internal/directory"
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

// csvText renders rows under the given header; missing columns are blank.
func csvText(header []string, rows ...fields) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	w.Write(header)
	for _, r := range rows {
		rec := make([]string, len(header))
		for i, col := range header {
			rec[i] = r[col]
		}
		w.Write(rec)
	}
	w.Flush()
	return b.String()
}

func reader(t *testing.T, c schema.Contract, rows ...fields) source.Reader {
	t.Helper()
	return readerWithHeader(t, c.Source, c.Columns, rows...)
}

func readerWithHeader(t *testing.T, name string, header []string, rows ...fields) source.Reader {
	t.Helper()
	r, err := source.NewCSV(name, io.NopCloser(strings.NewReader(csvText(header, rows...))))
	require.NoError(t, err)
	return r
}

func member(id, name string, kv ...string) fields {
	f := fields{
		"salesforce_id":            id,
		"member_full_name":         name,
		"location_type_id":         memberTypeID,
		"local_authority_ons_code": laHartlepool,
	}
	return with(f, kv...)
}

func adviceLocation(id, name string, kv ...string) fields {
	f := fields{
		"salesforce_advice_location_id": id,
		"advice_location_name":          name,
		"location_type_id":              ingest.LocationTypeOffice,
		"local_authority_ons_code":      laHartlepool,
		"excluded_from_lss_front_end":   "FALSE",
		"excluded_from_lss_reports":     "FALSE",
	}
	return with(f, kv...)
}

func session(officeID, day, start, end, kind string) fields {
	return fields{
		"advice_location_salesforce_id": officeID,
		"session_day":                   day,
		"session_start_time":            start,
		"session_end_time":              end,
		"session_type":                  kind,
	}
}

func accessibility(officeID, tag string) fields {
	return fields{"salesforce_advice_location_id": officeID, "advice_location_accessibility": tag}
}

func role(officeID, tag string) fields {
	return fields{"salesforce_advice_location_id": officeID, "advice_location_volunteer_roles_recruiting_status": tag}
}

func with(f fields, kv ...string) fields {
	for i := 0; i+1 < len(kv); i += 2 {
		f[kv[i]] = kv[i+1]
	}
	return f
}

// dataset is one complete set of office exports.
type dataset struct {
	members, advice, hours, roles, access []fields
}

func (d dataset) sources(t *testing.T) ingest.Sources {
	t.Helper()
	return ingest.Sources{
		Members:         reader(t, schema.Members, d.members...),
		AdviceLocations: reader(t, schema.AdviceLocations, d.advice...),
		OpeningHours:    reader(t, schema.OpeningHours, d.hours...),
		VolunteerRoles:  reader(t, schema.VolunteerRoles, d.roles...),
		Accessibility:   reader(t, schema.Accessibility, d.access...),
	}
}

func seedAuthorities(t *testing.T, store *memory.Store, ids ...string) ingest.AuthoritySet {
	t.Helper()
	err := store.InTx(context.Background(), func(tx ingest.Tx) error {
		las := make([]directory.LocalAuthority, 0, len(ids))
		for _, id := range ids {
			las = append(las, directory.LocalAuthority{ID: id, Name: "Authority " + id})
		}
		_, err := tx.InsertLocalAuthorities(context.Background(), las)
		return err
	})
	require.NoError(t, err)
	return ingest.NewAuthoritySet(ids...)
}

var errInjected = errors.New("injected failure")

// failingStore wraps a memory store and fails one write step.
type failingStore struct {
	inner  *memory.Store
	failOn string
}

func (s failingStore) InTx(ctx context.Context, fn func(ingest.Tx) error) error {
	return s.inner.InTx(ctx, func(tx ingest.Tx) error {
		return fn(failingTx{Tx: tx, failOn: s.failOn})
	})
}

type failingTx struct {
	ingest.Tx
	failOn string
}

func (t failingTx) InsertOpeningTimes(ctx context.Context, times []directory.OpeningTime) (int64, error) {
	if t.failOn == "opening_times" {
		return 0, errInjected
	}
	return t.Tx.InsertOpeningTimes(ctx, times)
}

func (t failingTx) UpsertPostcodes(ctx context.Context, pcs []directory.Postcode) (int64, error) {
	if t.failOn == "postcodes" {
		return 0, errInjected
	}
	return t.Tx.UpsertPostcodes(ctx, pcs)
}
