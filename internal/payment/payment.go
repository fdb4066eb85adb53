// Package payment показывает проживающему долг и принимает оплату.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dormitory/internal/apperr"
	"dormitory/internal/clock"
	"dormitory/internal/eviction"
	"dormitory/models"

	"github.com/sirupsen/logrus"
)

type Repository interface {
	eviction.Events
	GetResident(ctx context.Context, login string) (*models.Resident, error)
	GetRoom(ctx context.Context, id int) (*models.Room, error)
	AppendEvent(ctx context.Context, e *models.Event) error
}

type TxFunc func(ctx context.Context, fn func(Repository) error) error

// Info: сводка по оплате проживающего.
type Info struct {
	Debt            int            `json:"debt"`
	RoomCost        int            `json:"roomCost"`
	LastPaymentTime *time.Time     `json:"lastPaymentTime,omitempty"`
	History         []models.Event `json:"history"`
}

type Service struct {
	repo  Repository
	tx    TxFunc
	clock clock.Clock
	loc   *time.Location
	log   logrus.FieldLogger
}

func NewService(repo Repository, tx TxFunc, c clock.Clock, loc *time.Location, log logrus.FieldLogger) *Service {
	return &Service{repo: repo, tx: tx, clock: c, loc: loc, log: log}
}

func (s *Service) Info(ctx context.Context, login string) (*Info, error) {
	res, err := getResident(ctx, s.repo, login)
	if err != nil {
		return nil, err
	}
	room, err := s.repo.GetRoom(ctx, res.RoomID)
	if err != nil {
		return nil, fmt.Errorf("get room %d: %w", res.RoomID, err)
	}
	history, err := s.repo.EventsByUser(ctx, login, models.EventPayment)
	if err != nil {
		return nil, fmt.Errorf("load payments of %s: %w", login, err)
	}
	if history == nil {
		history = []models.Event{}
	}

	engine := eviction.New(s.repo, s.clock, s.loc)
	debt, err := engine.CalculateDebt(ctx, login)
	if err != nil {
		return nil, err
	}
	info := &Info{Debt: debt, RoomCost: room.Cost, History: history}
	last, ok, err := engine.LastPaymentTime(ctx, login)
	if err != nil {
		return nil, err
	}
	if ok {
		info.LastPaymentTime = &last
	}
	return info, nil
}

// Pay принимает оплату ровно на сумму текущего долга.
func (s *Service) Pay(ctx context.Context, login string, sum int) error {
	err := s.tx(ctx, func(r Repository) error {
		res, err := getResident(ctx, r, login)
		if err != nil {
			return err
		}
		debt, err := eviction.New(r, s.clock, s.loc).CalculateDebt(ctx, login)
		if err != nil {
			return err
		}
		if sum != debt {
			return apperr.BadRequest("Payment sum must be equal to the debt %d", debt)
		}
		roomID := res.RoomID
		return r.AppendEvent(ctx, &models.Event{
			Type:       models.EventPayment,
			Timestamp:  s.clock.Now(),
			RoomID:     &roomID,
			User:       login,
			PaymentSum: &sum,
		})
	})
	if err != nil {
		return err
	}
	s.log.WithField("resident", login).WithField("sum", sum).Info("payment accepted")
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
