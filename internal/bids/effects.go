package bids

import (
	"context"
	"errors"
	"fmt"

	"dormitory/internal/allocation"
	"dormitory/internal/apperr"
	"dormitory/models"
)

// AutoDenyComment ставится открытым заявкам выселяемого.
const AutoDenyComment = "Auto-denied by eviction"

// effect применяет последствия принятой заявки bid внутри транзакции.
type effect func(ctx context.Context, r Repository, out *outbox, manager models.User, bid *models.Bid) error

func (m *Manager) acceptOccupation(ctx context.Context, r Repository, _ *outbox, _ models.User, bid *models.Bid) error {
	p, ok := bid.Payload.(models.OccupationPayload)
	if !ok {
		return fmt.Errorf("bid %d: unexpected payload %T", bid.ID, bid.Payload)
	}
	room, ok, err := allocation.New(r).FindFreeFallback(ctx, p.DormitoryID, models.RoomBlock, models.RoomAisle)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.BadRequest("No free room")
	}

	if err := r.SetUserRole(ctx, bid.Sender, models.RoleResident); err != nil {
		return fmt.Errorf("promote %s: %w", bid.Sender, err)
	}
	if err := r.AttachResident(ctx, bid.Sender, p.UniversityID, room.ID); err != nil {
		return fmt.Errorf("attach %s to room %d: %w", bid.Sender, room.ID, err)
	}
	return m.appendEvent(ctx, r, models.EventOccupation, bid.Sender, room.ID)
}

func (m *Manager) acceptEviction(ctx context.Context, r Repository, out *outbox, manager models.User, bid *models.Bid) error {
	return m.evictResident(ctx, r, out, manager.Login, bid.Sender)
}

// acceptDeparture ничего не меняет: фиксируется только статус.
func (m *Manager) acceptDeparture(context.Context, Repository, *outbox, models.User, *models.Bid) error {
	return nil
}

func (m *Manager) acceptRoomChange(ctx context.Context, r Repository, _ *outbox, _ models.User, bid *models.Bid) error {
	p, ok := bid.Payload.(models.RoomChangePayload)
	if !ok {
		return fmt.Errorf("bid %d: unexpected payload %T", bid.ID, bid.Payload)
	}
	res, err := getResident(ctx, r, bid.Sender)
	if err != nil {
		return err
	}
	alloc := allocation.New(r)

	var target *models.Room
	switch {
	case p.RoomTo != nil:
		target, err = r.GetRoom(ctx, *p.RoomTo)
		if errors.Is(err, models.ErrNotFound) {
			return apperr.NotFound("No such room")
		}
		if err != nil {
			return fmt.Errorf("get room %d: %w", *p.RoomTo, err)
		}
		free, err := alloc.IsFree(ctx, *target)
		if err != nil {
			return err
		}
		if !free {
			return apperr.BadRequest("Room is not free")
		}
	case p.PreferType != nil:
		current, err := r.GetRoom(ctx, res.RoomID)
		if err != nil {
			return fmt.Errorf("get room %d of %s: %w", res.RoomID, res.Login, err)
		}
		var found bool
		target, found, err = alloc.FindFree(ctx, current.DormitoryID, *p.PreferType)
		if err != nil {
			return err
		}
		if !found {
			return apperr.BadRequest("No free room")
		}
	default:
		return apperr.BadRequest("Exactly one of roomToId and roomPreferType must be set")
	}

	if err := r.MoveResident(ctx, res.Login, target.ID); err != nil {
		return fmt.Errorf("move %s to room %d: %w", res.Login, target.ID, err)
	}
	return m.appendEvent(ctx, r, models.EventRoomChange, res.Login, target.ID)
}

// evictResident сперва отклоняет все открытые заявки проживающего,
// затем освобождает комнату и понижает роль.
func (m *Manager) evictResident(ctx context.Context, r Repository, out *outbox, manager, login string) error {
	res, err := getResident(ctx, r, login)
	if err != nil {
		return err
	}

	open, err := r.BidsBySenderAndStatus(ctx, login, models.OpenStatuses...)
	if err != nil {
		return fmt.Errorf("list open bids of %s: %w", login, err)
	}
	comment := AutoDenyComment
	for _, b := range open {
		ok, err := r.TransitionBid(ctx, b.ID, models.OpenStatuses, models.BidDenied, manager, &comment)
		if err != nil {
			return fmt.Errorf("auto-deny bid %d: %w", b.ID, err)
		}
		if !ok {
			return fmt.Errorf("auto-deny bid %d: bid is no longer open", b.ID)
		}
		b.Status = models.BidDenied
		b.Manager = &manager
		b.Comment = &comment
		out.resolved = append(out.resolved, b)
	}

	if err := r.DetachResident(ctx, login); err != nil {
		return fmt.Errorf("detach %s: %w", login, err)
	}
	if err := r.SetUserRole(ctx, login, models.RoleNonResident); err != nil {
		return fmt.Errorf("demote %s: %w", login, err)
	}
	return m.appendEvent(ctx, r, models.EventEviction, login, res.RoomID)
}

func (m *Manager) appendEvent(ctx context.Context, r Repository, t models.EventType, login string, roomID int) error {
	e := &models.Event{
		Type:      t,
		Timestamp: m.clock.Now(),
		RoomID:    &roomID,
		User:      login,
	}
	if err := r.AppendEvent(ctx, e); err != nil {
		return fmt.Errorf("append %s event of %s: %w", t, login, err)
	}
	return nil
}

func getResident(ctx context.Context, r Repository, login string) (*models.Resident, error) {
	res, err := r.GetResident(ctx, login)
	if errors.Is(err, models.ErrNotFound) {
		return nil, apperr.NotFound("No such resident")
	}
	if err != nil {
		return nil, fmt.Errorf("get resident %s: %w", login, err)
	}
	return res, nil
}
