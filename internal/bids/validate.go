package bids

import (
	"context"
	"errors"
	"fmt"

	"dormitory/internal/apperr"
	"dormitory/models"
)

const (
	minDepartureDays = 1
	maxDepartureDays = 60
)

func (m *Manager) validate(ctx context.Context, r Repository, p models.Payload) error {
	switch p := p.(type) {
	case models.OccupationPayload:
		return m.validateOccupation(ctx, r, p)
	case models.DeparturePayload:
		return m.validateDeparture(p)
	case models.RoomChangePayload:
		return m.validateRoomChange(ctx, r, p)
	case models.EvictionPayload:
		return nil
	default:
		return apperr.BadRequest("Unknown bid payload")
	}
}

func (m *Manager) validateOccupation(ctx context.Context, r Repository, p models.OccupationPayload) error {
	if _, err := r.GetUniversity(ctx, p.UniversityID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return apperr.NotFound("No such university")
		}
		return fmt.Errorf("get university %d: %w", p.UniversityID, err)
	}
	ok, err := r.DormitoryBelongsToUniversity(ctx, p.UniversityID, p.DormitoryID)
	if err != nil {
		return fmt.Errorf("check dormitory %d of university %d: %w", p.DormitoryID, p.UniversityID, err)
	}
	if !ok {
		return apperr.BadRequest("No such dormitory or this dormitory is not linked with the university")
	}
	return nil
}

// validateDeparture: обе даты не в прошлом, отъезд от 1 до 60 дней.
func (m *Manager) validateDeparture(p models.DeparturePayload) error {
	if p.DayFrom.IsZero() || p.DayTo.IsZero() {
		return apperr.BadRequest("dayFrom and dayTo are required")
	}
	today := models.DateOf(m.clock.Now())
	if p.DayFrom.Before(today.Time) || p.DayTo.Before(today.Time) {
		return apperr.BadRequest("Departure days must not be in the past")
	}
	days := p.DayFrom.DaysUntil(p.DayTo)
	if days < minDepartureDays || days > maxDepartureDays {
		return apperr.BadRequest("Departure must last from %d to %d days", minDepartureDays, maxDepartureDays)
	}
	return nil
}

func (m *Manager) validateRoomChange(ctx context.Context, r Repository, p models.RoomChangePayload) error {
	if (p.RoomTo == nil) == (p.PreferType == nil) {
		return apperr.BadRequest("Exactly one of roomToId and roomPreferType must be set")
	}
	if p.PreferType != nil {
		if !models.ValidRoomType(*p.PreferType) {
			return apperr.BadRequest("Invalid room type")
		}
		return nil
	}
	if _, err := r.GetRoom(ctx, *p.RoomTo); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return apperr.NotFound("No such room")
		}
		return fmt.Errorf("get room %d: %w", *p.RoomTo, err)
	}
	return nil
}
