package ingest

import (
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/officesearch/internal/directory"
	"github.com/JonMunkholm/officesearch/internal/schema"
	"github.com/JonMunkholm/officesearch/internal/source"
)

// Session type labels used by the opening-hours export.
const (
	SessionOfficeHours    = "Local office opening hours"
	SessionTelephoneHours = "Telephone advice hours"
)

// OpeningTimeBuilder turns opening-hours sessions into opening times for
// offices that survived graph building.
type OpeningTimeBuilder struct {
	logger *slog.Logger
}

// NewOpeningTimeBuilder creates a builder that logs dropped rows at warn.
func NewOpeningTimeBuilder(logger *slog.Logger) *OpeningTimeBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpeningTimeBuilder{logger: logger}
}

// Build reads every session row. Rows with a blank session type, an unknown
// office, a blank or malformed time or a range that does not close after it
// opens are dropped and counted in drops. Unknown session types and day
// names are fatal.
func (b *OpeningTimeBuilder) Build(r source.Reader, offices OfficeSet, drops Drops) ([]directory.OpeningTime, error) {
	var times []directory.OpeningTime

	err := source.Each(r, func(row source.Row) error {
		sessionType := row.Str("session_type")
		officeID := row.Get("advice_location_salesforce_id")
		if !sessionType.Valid {
			b.drop(drops, row.Line, reasonBlankSession)
			return nil
		}
		if !offices.Has(officeID) {
			b.drop(drops, row.Line, reasonUnknownOffice)
			return nil
		}

		purpose, err := sessionPurpose(sessionType.String)
		if err != nil {
			return &RowError{Source: schema.SourceOpeningHours, Line: row.Line, Err: err}
		}

		start, end := row.Str("session_start_time"), row.Str("session_end_time")
		if !start.Valid || !end.Valid {
			b.drop(drops, row.Line, reasonBlankTime)
			return nil
		}
		opens, err := directory.ParseTimeOfDay(start.String)
		if err != nil {
			b.drop(drops, row.Line, reasonInvalidTime)
			return nil
		}
		closes, err := directory.ParseTimeOfDay(end.String)
		if err != nil {
			b.drop(drops, row.Line, reasonInvalidTime)
			return nil
		}

		day, ok := directory.ParseWeekday(row.Get("session_day"))
		if !ok {
			return unrecognised(schema.SourceOpeningHours, row.Line, "session day", row.Get("session_day"))
		}

		ot := directory.OpeningTime{
			OfficeID: officeID,
			Purpose:  purpose,
			Day:      day,
			Opens:    opens,
			Closes:   closes,
		}
		if !ot.Valid() {
			b.drop(drops, row.Line, reasonClosesBeforeOpen)
			return nil
		}
		times = append(times, ot)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read opening hours: %w", err)
	}
	return times, nil
}

func sessionPurpose(sessionType string) (directory.Purpose, error) {
	switch sessionType {
	case SessionOfficeHours:
		return directory.PurposeOffice, nil
	case SessionTelephoneHours:
		return directory.PurposeTelephone, nil
	}
	return "", fmt.Errorf("%w: session type %q", ErrUnrecognisedCode, sessionType)
}

func (b *OpeningTimeBuilder) drop(drops Drops, line int, reason string) {
	b.logger.Warn("dropping row", "source", schema.SourceOpeningHours, "line", line, "reason", reason)
	if drops != nil {
		drops.add(schema.SourceOpeningHours, reason)
	}
}
