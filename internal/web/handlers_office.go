package web

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/officesearch/internal/core"
	"github.com/JonMunkholm/officesearch/internal/directory"
	"github.com/JonMunkholm/officesearch/internal/resolve"
)

var legacyIDPattern = regexp.MustCompile(`^\d+$`)

// searchRequest holds the parsed search query parameters.
type searchRequest struct {
	Query      string `validate:"required,max=200"`
	Vacancies  bool
	ServedArea bool
}

// handleSearch resolves ?q= to offices. served_area defaults to true;
// vacancies defaults to false.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseSearch(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	res, err := s.service.Resolve(r.Context(), req.Query, resolve.Options{
		OnlyWithVacancies: req.Vacancies,
		OnlyInServedArea:  req.ServedArea,
	})
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, newSearchResponse(res))
}

func (s *Server) parseSearch(r *http.Request) (searchRequest, error) {
	q := r.URL.Query()
	req := searchRequest{Query: q.Get("q"), ServedArea: true}

	var err error
	if req.Vacancies, err = parseBoolParam(q, "vacancies", req.Vacancies); err != nil {
		return req, err
	}
	if req.ServedArea, err = parseBoolParam(q, "served_area", req.ServedArea); err != nil {
		return req, err
	}
	if err := s.validate.Struct(req); err != nil {
		return req, fmt.Errorf("%w: %v", core.ErrBadRequest, err)
	}
	return req, nil
}

// parseBoolParam reads an optional boolean query parameter.
func parseBoolParam(q url.Values, name string, defaultVal bool) (bool, error) {
	val := q.Get(name)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be true or false", core.ErrBadRequest, name)
	}
	return b, nil
}

// handleOffice returns one office. Numeric ids come from the previous
// site and are redirected to the office's current URL.
func (s *Server) handleOffice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if legacyIDPattern.MatchString(id) {
		s.redirectLegacyID(w, r, id)
		return
	}

	detail, err := s.service.OfficeDetail(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, newOfficeResponse(detail))
}

func (s *Server) redirectLegacyID(w http.ResponseWriter, r *http.Request, raw string) {
	legacyID, err := strconv.Atoi(raw)
	if err != nil {
		// Too large to be a legacy id.
		s.respondError(w, r, fmt.Errorf("legacy id %s: %w", raw, directory.ErrNotFound), http.StatusNotFound)
		return
	}

	id, err := s.service.ResolveLegacyID(r.Context(), legacyID)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	http.Redirect(w, r, "/api/v2/offices/"+url.PathEscape(id), http.StatusFound)
}
