// Package guard отмечает входы и выходы проживающих на проходной.
package guard

import (
	"context"
	"errors"
	"fmt"

	"dormitory/internal/apperr"
	"dormitory/internal/clock"
	"dormitory/models"
)

type Repository interface {
	GetResident(ctx context.Context, login string) (*models.Resident, error)
	EventsByUser(ctx context.Context, login string, types ...models.EventType) ([]models.Event, error)
	AppendEvent(ctx context.Context, e *models.Event) error
}

type TxFunc func(ctx context.Context, fn func(Repository) error) error

type Service struct {
	repo  Repository
	tx    TxFunc
	clock clock.Clock
}

func NewService(repo Repository, tx TxFunc, c clock.Clock) *Service {
	return &Service{repo: repo, tx: tx, clock: c}
}

func (s *Service) Entry(ctx context.Context, login string) error {
	return s.mark(ctx, login, models.EventIn)
}

func (s *Service) Exit(ctx context.Context, login string) error {
	return s.mark(ctx, login, models.EventOut)
}

// History: входы и выходы проживающего, новые первыми.
func (s *Service) History(ctx context.Context, login string) ([]models.Event, error) {
	if err := checkResident(ctx, s.repo, login); err != nil {
		return nil, err
	}
	events, err := s.repo.EventsByUser(ctx, login, models.EventIn, models.EventOut)
	if err != nil {
		return nil, fmt.Errorf("load guard events of %s: %w", login, err)
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

// mark пишет событие t, если последнее событие проходной было другим.
func (s *Service) mark(ctx context.Context, login string, t models.EventType) error {
	return s.tx(ctx, func(r Repository) error {
		if err := checkResident(ctx, r, login); err != nil {
			return err
		}
		last, err := r.EventsByUser(ctx, login, models.EventIn, models.EventOut)
		if err != nil {
			return fmt.Errorf("load guard events of %s: %w", login, err)
		}
		if len(last) > 0 && last[0].Type == t {
			return apperr.BadRequest("Last guard event was the same")
		}
		return r.AppendEvent(ctx, &models.Event{Type: t, Timestamp: s.clock.Now(), User: login})
	})
}

func checkResident(ctx context.Context, r Repository, login string) error {
	_, err := r.GetResident(ctx, login)
	if errors.Is(err, models.ErrNotFound) {
		return apperr.NotFound("No such resident")
	}
	if err != nil {
		return fmt.Errorf("get resident %s: %w", login, err)
	}
	return nil
}
