// Package users: списки проживающих и персонала для менеджера, увольнение охранников.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dormitory/internal/apperr"
	"dormitory/models"
)

type Repository interface {
	GetUser(ctx context.Context, login string) (*models.User, error)
	UsersByRole(ctx context.Context, roles ...models.Role) ([]models.User, error)
	Residents(ctx context.Context) ([]models.Resident, error)
	LastEvents(ctx context.Context, types ...models.EventType) ([]models.Event, error)
	DeleteUser(ctx context.Context, login string, role models.Role) error
}

// Debts считает текущий долг проживающего.
type Debts interface {
	CalculateDebt(ctx context.Context, login string) (int, error)
}

// ResidentInfo: проживающий с долгом и временем последнего входа или выхода.
type ResidentInfo struct {
	models.Resident
	Debt      int        `json:"debt"`
	LastInOut *time.Time `json:"lastInOut,omitempty"`
}

type Service struct {
	repo  Repository
	debts Debts
}

func NewService(repo Repository, debts Debts) *Service {
	return &Service{repo: repo, debts: debts}
}

// Residents: все проживающие по логину.
func (s *Service) Residents(ctx context.Context) ([]ResidentInfo, error) {
	residents, err := s.repo.Residents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list residents: %w", err)
	}
	last, err := s.repo.LastEvents(ctx, models.EventIn, models.EventOut)
	if err != nil {
		return nil, fmt.Errorf("load last in/out events: %w", err)
	}
	lastByLogin := make(map[string]time.Time, len(last))
	for _, e := range last {
		lastByLogin[e.User] = e.Timestamp
	}

	out := make([]ResidentInfo, 0, len(residents))
	for _, r := range residents {
		debt, err := s.debts.CalculateDebt(ctx, r.Login)
		if err != nil {
			return nil, fmt.Errorf("debt of %s: %w", r.Login, err)
		}
		info := ResidentInfo{Resident: r, Debt: debt}
		if ts, ok := lastByLogin[r.Login]; ok {
			info.LastInOut = &ts
		}
		out = append(out, info)
	}
	return out, nil
}

// Staff: охранники и менеджеры.
func (s *Service) Staff(ctx context.Context) ([]models.User, error) {
	return s.repo.UsersByRole(ctx, models.RoleGuard, models.RoleManager)
}

// Fire удаляет охранника. Других пользователей так удалить нельзя.
func (s *Service) Fire(ctx context.Context, login string) error {
	u, err := s.repo.GetUser(ctx, login)
	if errors.Is(err, models.ErrNotFound) {
		return apperr.NotFound("User not found")
	}
	if err != nil {
		return fmt.Errorf("get user %s: %w", login, err)
	}
	if u.Role != models.RoleGuard {
		return apperr.BadRequest("Wrong role")
	}
	err = s.repo.DeleteUser(ctx, login, models.RoleGuard)
	if errors.Is(err, models.ErrNotFound) {
		return apperr.NotFound("User not found")
	}
	return err
}
