package web

import (
	"context"
	"net/http"
)

// handleStatus answers 200 when the database responds and 503 otherwise.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.service.Status(r.Context())

	status := http.StatusOK
	if !st.Healthy() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, st)
}

// handleIngest runs a full refresh and returns its report. The refresh
// continues if the client disconnects.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.Refresh(context.WithoutCancel(r.Context()))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}
