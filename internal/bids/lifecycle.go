package bids

import (
	"context"
	"errors"
	"fmt"

	"dormitory/internal/apperr"
	"dormitory/models"
)

func (m *Manager) Create(ctx context.Context, caller models.User, req Request) (*models.Bid, error) {
	if req.Payload == nil {
		return nil, apperr.BadRequest("Bid payload is required")
	}
	var bid models.Bid
	out := &outbox{}
	err := m.tx(ctx, func(r Repository) error {
		*out = outbox{}
		t := req.Payload.BidType()
		exists, err := r.OpenBidExists(ctx, caller.Login, t)
		if err != nil {
			return fmt.Errorf("check open %s bid of %s: %w", t, caller.Login, err)
		}
		if exists {
			return apperr.BadRequest("Not closed bid with this type already exists")
		}
		if err := m.validate(ctx, r, req.Payload); err != nil {
			return err
		}

		bid = models.Bid{
			Type:    t,
			Status:  models.BidInProcess,
			Text:    req.Text,
			Sender:  caller.Login,
			Payload: req.Payload,
		}
		if err := r.CreateBid(ctx, &bid); err != nil {
			return err
		}
		if err := r.LinkBidFiles(ctx, bid.ID, req.Attachments); err != nil {
			return fmt.Errorf("link files to bid %d: %w", bid.ID, err)
		}
		bid.Attachments = attachments(req.Attachments)
		out.created = append(out.created, bid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.WithField("bid", bid.ID).WithField("type", bid.Type).Info("bid created")
	m.dispatch(ctx, out)
	return &bid, nil
}

// Update перезаписывает открытую заявку отправителя и снова отдаёт её на рассмотрение.
func (m *Manager) Update(ctx context.Context, caller models.User, id int64, req Request) (*models.Bid, error) {
	if req.Payload == nil {
		return nil, apperr.BadRequest("Bid payload is required")
	}
	var bid *models.Bid
	out := &outbox{}
	err := m.tx(ctx, func(r Repository) error {
		*out = outbox{}
		var err error
		bid, err = loadBid(ctx, r, id)
		if err != nil {
			return err
		}
		if bid.Sender != caller.Login {
			return apperr.Forbidden("Only sender can change the bid")
		}
		if bid.Type != req.Payload.BidType() {
			return apperr.BadRequest("Bid %d is not of type %s", id, req.Payload.BidType())
		}
		if !bid.Status.Editable() {
			return apperr.BadRequest("Bid is already %s and cannot be changed", bid.Status)
		}
		if err := m.validate(ctx, r, req.Payload); err != nil {
			return err
		}

		bid.Text = req.Text
		bid.Payload = req.Payload
		if err := r.UpdateBid(ctx, bid); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return apperr.NotFound("No bid with such id")
			}
			return fmt.Errorf("update bid %d: %w", id, err)
		}
		if err := r.LinkBidFiles(ctx, bid.ID, req.Attachments); err != nil {
			return fmt.Errorf("link files to bid %d: %w", bid.ID, err)
		}
		bid.Attachments = attachments(req.Attachments)
		out.created = append(out.created, *bid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.WithField("bid", bid.ID).Info("bid updated")
	m.dispatch(ctx, out)
	return bid, nil
}

// Accept принимает заявку и применяет её последствия в той же транзакции.
// Если последствие не применилось, статус не меняется.
func (m *Manager) Accept(ctx context.Context, caller models.User, id int64) (*models.Bid, error) {
	var bid *models.Bid
	out := &outbox{}
	err := m.tx(ctx, func(r Repository) error {
		*out = outbox{}
		var err error
		bid, err = m.resolve(ctx, r, id, models.BidAccepted, caller.Login, nil)
		if err != nil {
			return err
		}
		apply, ok := m.effects[bid.Type]
		if !ok {
			return fmt.Errorf("no acceptance effect for bid type %s", bid.Type)
		}
		if err := apply(ctx, r, out, caller, bid); err != nil {
			return err
		}
		out.resolved = append(out.resolved, *bid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.WithField("bid", id).WithField("manager", caller.Login).Info("bid accepted")
	m.dispatch(ctx, out)
	return bid, nil
}

func (m *Manager) Deny(ctx context.Context, caller models.User, id int64, comment string) (*models.Bid, error) {
	var bid *models.Bid
	out := &outbox{}
	err := m.tx(ctx, func(r Repository) error {
		*out = outbox{}
		var err error
		bid, err = m.resolve(ctx, r, id, models.BidDenied, caller.Login, &comment)
		if err != nil {
			return err
		}
		out.resolved = append(out.resolved, *bid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.WithField("bid", id).WithField("manager", caller.Login).Info("bid denied")
	m.dispatch(ctx, out)
	return bid, nil
}

// Pend возвращает заявку отправителю на доработку.
func (m *Manager) Pend(ctx context.Context, caller models.User, id int64, comment string) (*models.Bid, error) {
	var bid *models.Bid
	out := &outbox{}
	err := m.tx(ctx, func(r Repository) error {
		*out = outbox{}
		var err error
		bid, err = m.resolve(ctx, r, id, models.BidPendingRevision, caller.Login, &comment)
		if err != nil {
			return err
		}
		out.revision = append(out.revision, *bid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.WithField("bid", id).WithField("manager", caller.Login).Info("bid sent for revision")
	m.dispatch(ctx, out)
	return bid, nil
}

// EvictResident выселяет проживающего по решению менеджера.
func (m *Manager) EvictResident(ctx context.Context, caller models.User, login string) error {
	out := &outbox{}
	err := m.tx(ctx, func(r Repository) error {
		*out = outbox{}
		return m.evictResident(ctx, r, out, caller.Login, login)
	})
	if err != nil {
		return err
	}
	m.log.WithField("resident", login).WithField("manager", caller.Login).Info("resident evicted")
	m.dispatch(ctx, out)
	return nil
}

// resolve переводит заявку из IN_PROCESS в to одним условным UPDATE.
func (m *Manager) resolve(ctx context.Context, r Repository, id int64, to models.BidStatus, manager string, comment *string) (*models.Bid, error) {
	ok, err := r.TransitionBid(ctx, id, []models.BidStatus{models.BidInProcess}, to, manager, comment)
	if err != nil {
		return nil, fmt.Errorf("move bid %d to %s: %w", id, to, err)
	}
	if !ok {
		return nil, apperr.NotFound("No such bid in process")
	}
	return loadBid(ctx, r, id)
}

func loadBid(ctx context.Context, r Repository, id int64) (*models.Bid, error) {
	bid, err := r.GetBid(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, apperr.NotFound("No bid with such id")
	}
	if err != nil {
		return nil, fmt.Errorf("get bid %d: %w", id, err)
	}
	return bid, nil
}

func attachments(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}
