package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/officesearch/internal/ingest"
	"github.com/JonMunkholm/officesearch/internal/logging"
	"github.com/JonMunkholm/officesearch/internal/schema"
	"github.com/JonMunkholm/officesearch/internal/source"
)

// RefreshReport describes the latest refresh, successful or not.
type RefreshReport struct {
	StartedAt time.Time               `json:"started_at"`
	Duration  time.Duration           `json:"duration"`
	Reference *ingest.ReferenceResult `json:"reference,omitempty"`
	Offices   *ingest.Result          `json:"offices,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

// Refresh reloads everything from the configured sources under one lock
// hold: postcodes and local authorities first when a postcode source is
// configured, then the office dataset. Each stage is its own transaction,
// so a failed office load leaves the new reference data in place.
func (s *Service) Refresh(ctx context.Context) (*RefreshReport, error) {
	if err := s.lock.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.lock.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report := &RefreshReport{StartedAt: time.Now()}
	err := s.refresh(ctx, report)
	report.Duration = time.Since(report.StartedAt)
	if err != nil {
		report.Error = err.Error()
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	return report, err
}

func (s *Service) refresh(ctx context.Context, report *RefreshReport) error {
	if s.opener == nil || s.sources == nil {
		return fmt.Errorf("%w: no source opener", ErrSourceNotConfigured)
	}

	var authorities ingest.AuthoritySet
	if loc := s.sources.Location(schema.SourcePostcodes); loc != "" {
		r, err := s.opener.OpenSource(ctx, schema.SourcePostcodes, loc)
		if err != nil {
			return fmt.Errorf("open postcodes: %w", err)
		}
		defer r.Close()

		res, err := s.reference.Load(ctx, r)
		if err != nil {
			return err
		}
		report.Reference = res
		authorities = res.Authorities
	} else {
		logging.FromContext(ctx).Info("postcode source not configured, keeping reference data")
	}

	src, err := s.openOfficeSources(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	res, err := s.loadOffices(ctx, src, authorities)
	if err != nil {
		return err
	}
	report.Offices = res
	return nil
}

// openOfficeSources opens every office export or none.
func (s *Service) openOfficeSources(ctx context.Context) (ingest.Sources, error) {
	var (
		src    ingest.Sources
		opened []source.Reader
	)
	targets := []struct {
		name string
		dst  *source.Reader
	}{
		{schema.SourceMembers, &src.Members},
		{schema.SourceAdviceLocations, &src.AdviceLocations},
		{schema.SourceOpeningHours, &src.OpeningHours},
		{schema.SourceVolunteerRoles, &src.VolunteerRoles},
		{schema.SourceAccessibility, &src.Accessibility},
	}

	for _, t := range targets {
		loc := s.sources.Location(t.name)
		if loc == "" {
			source.CloseAll(opened...)
			return ingest.Sources{}, fmt.Errorf("%w: %s", ErrSourceNotConfigured, t.name)
		}
		r, err := s.opener.OpenSource(ctx, t.name, loc)
		if err != nil {
			source.CloseAll(opened...)
			return ingest.Sources{}, fmt.Errorf("open %s: %w", t.name, err)
		}
		*t.dst = r
		opened = append(opened, r)
	}
	return src, nil
}

// LastRefresh returns the report of the latest refresh, if any.
func (s *Service) LastRefresh() *RefreshReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// RefreshReference reloads local authorities and postcodes from the
// configured postcode source.
func (s *Service) RefreshReference(ctx context.Context) (*ingest.ReferenceResult, error) {
	if s.opener == nil || s.sources == nil {
		return nil, fmt.Errorf("%w: no source opener", ErrSourceNotConfigured)
	}
	loc := s.sources.Location(schema.SourcePostcodes)
	if loc == "" {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotConfigured, schema.SourcePostcodes)
	}

	if err := s.lock.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.lock.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	r, err := s.opener.OpenSource(ctx, schema.SourcePostcodes, loc)
	if err != nil {
		return nil, fmt.Errorf("open postcodes: %w", err)
	}
	defer r.Close()

	return s.reference.Load(ctx, r)
}

// RefreshOffices reloads the office dataset from the configured office
// sources, checking authority references against the stored authorities.
func (s *Service) RefreshOffices(ctx context.Context) (*ingest.Result, error) {
	if s.opener == nil || s.sources == nil {
		return nil, fmt.Errorf("%w: no source opener", ErrSourceNotConfigured)
	}

	if err := s.lock.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.lock.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	src, err := s.openOfficeSources(ctx)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return s.loadOffices(ctx, src, nil)
}
