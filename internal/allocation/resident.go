package allocation

import (
	"context"
	"errors"
	"fmt"

	"dormitory/internal/apperr"
	"dormitory/models"
)

// Catalog: комнаты вместе с проживающими.
type Catalog interface {
	Rooms
	GetRoom(ctx context.Context, id int) (*models.Room, error)
	GetResident(ctx context.Context, login string) (*models.Resident, error)
}

// ResidentRooms подбирает комнаты для переезда проживающего.
type ResidentRooms struct {
	catalog Catalog
	alloc   *Allocator
}

func NewResidentRooms(c Catalog) *ResidentRooms {
	return &ResidentRooms{catalog: c, alloc: New(c)}
}

// AvailableFor: свободные комнаты общежития проживающего, кроме его собственной.
func (r *ResidentRooms) AvailableFor(ctx context.Context, login string) ([]models.Room, error) {
	res, err := r.catalog.GetResident(ctx, login)
	if errors.Is(err, models.ErrNotFound) {
		return nil, apperr.NotFound("No such resident")
	}
	if err != nil {
		return nil, fmt.Errorf("get resident %s: %w", login, err)
	}
	room, err := r.catalog.GetRoom(ctx, res.RoomID)
	if err != nil {
		return nil, fmt.Errorf("get room %d: %w", res.RoomID, err)
	}
	return r.alloc.Available(ctx, room.DormitoryID, room.ID)
}
