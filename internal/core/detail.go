package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/officesearch/internal/directory"
)

// OfficeDetail is everything shown on an office page.
type OfficeDetail struct {
	Office            directory.Office
	Parent            *directory.Office
	Children          []directory.Office
	ServedAuthorities []directory.LocalAuthority
	OfficeHours       map[directory.Weekday][]directory.Session
	TelephoneHours    map[directory.Weekday][]directory.Session
}

// OfficeDetail loads an office with its parent, children, served
// authorities and opening times from one view of the data. A missing
// office is directory.ErrNotFound; a missing parent is tolerated.
func (s *Service) OfficeDetail(ctx context.Context, id string) (*OfficeDetail, error) {
	var detail *OfficeDetail
	err := s.store.View(ctx, func(r directory.Reader) error {
		var err error
		detail, err = officeDetail(ctx, r, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func officeDetail(ctx context.Context, r directory.Reader, id string) (*OfficeDetail, error) {
	office, err := r.Office(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &OfficeDetail{Office: *office}

	if office.ParentID.Valid {
		parent, err := r.Office(ctx, office.ParentID.String)
		switch {
		case errors.Is(err, directory.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("load parent of %s: %w", id, err)
		default:
			detail.Parent = parent
		}
	}

	if detail.Children, err = r.Children(ctx, id); err != nil {
		return nil, fmt.Errorf("load children of %s: %w", id, err)
	}
	if detail.ServedAuthorities, err = r.ServedAuthorities(ctx, id); err != nil {
		return nil, fmt.Errorf("load served areas of %s: %w", id, err)
	}

	times, err := r.OpeningTimes(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load opening times of %s: %w", id, err)
	}
	detail.OfficeHours = directory.GroupOpeningTimes(times, directory.PurposeOffice)
	detail.TelephoneHours = directory.GroupOpeningTimes(times, directory.PurposeTelephone)

	return detail, nil
}

// ResolveLegacyID maps a numeric id from the previous site to the
// office's current id.
func (s *Service) ResolveLegacyID(ctx context.Context, legacyID int) (string, error) {
	var id string
	err := s.store.View(ctx, func(r directory.Reader) error {
		office, err := r.OfficeByLegacyID(ctx, legacyID)
		if err != nil {
			return err
		}
		id = office.ID
		return nil
	})
	return id, err
}
