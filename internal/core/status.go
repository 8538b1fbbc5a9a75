package core

import (
	"context"

	"github.com/JonMunkholm/officesearch/internal/directory"
)

// Status is the health report served at /status.
type Status struct {
	Database    string            `json:"database"`
	Ingesting   bool              `json:"ingesting"`
	Counts      *directory.Counts `json:"counts,omitempty"`
	LastRefresh *RefreshReport    `json:"last_refresh,omitempty"`
}

// Healthy reports whether the database answered.
func (st *Status) Healthy() bool {
	return st.Database == "ok"
}

// Status pings the database and reports the ingestion state. A failed
// ping is reported in the result, not as an error.
func (s *Service) Status(ctx context.Context) *Status {
	st := &Status{
		Database:    "ok",
		Ingesting:   s.lock.Busy(ctx),
		LastRefresh: s.LastRefresh(),
	}
	if err := s.store.Ping(ctx); err != nil {
		st.Database = MapError(err).Message
		return st
	}
	if counts, err := s.store.Counts(ctx); err == nil {
		st.Counts = &counts
	}
	return st
}
