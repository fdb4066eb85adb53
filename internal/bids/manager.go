// Package bids ведёт жизненный цикл заявок: создание, правку отправителем,
// рассмотрение менеджером и последствия принятия.
package bids

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"dormitory/internal/allocation"
	"dormitory/internal/apperr"
	"dormitory/internal/clock"
	"dormitory/models"

	"github.com/sirupsen/logrus"
)

// Repository: хранилище, которое нужно менеджеру заявок.
// Внутри транзакции GetBid, GetRoom, GetResident и выборки комнат блокируют строки.
type Repository interface {
	GetBid(ctx context.Context, id int64) (*models.Bid, error)
	CreateBid(ctx context.Context, b *models.Bid) error
	UpdateBid(ctx context.Context, b *models.Bid) error
	TransitionBid(ctx context.Context, id int64, from []models.BidStatus, to models.BidStatus, manager string, comment *string) (bool, error)
	BidsByStatus(ctx context.Context, statuses ...models.BidStatus) ([]models.Bid, error)
	BidsBySender(ctx context.Context, sender string) ([]models.Bid, error)
	BidsBySenderAndStatus(ctx context.Context, sender string, statuses ...models.BidStatus) ([]models.Bid, error)
	OpenBidExists(ctx context.Context, sender string, t models.BidType) (bool, error)
	OpenBidTypes(ctx context.Context, sender string) ([]models.BidType, error)
	LinkBidFiles(ctx context.Context, bidID int64, keys []string) error

	GetUniversity(ctx context.Context, id int) (*models.University, error)
	DormitoryBelongsToUniversity(ctx context.Context, universityID, dormitoryID int) (bool, error)
	GetRoom(ctx context.Context, id int) (*models.Room, error)
	allocation.Rooms

	SetUserRole(ctx context.Context, login string, role models.Role) error
	GetResident(ctx context.Context, login string) (*models.Resident, error)
	AttachResident(ctx context.Context, login string, universityID, roomID int) error
	DetachResident(ctx context.Context, login string) error
	MoveResident(ctx context.Context, login string, roomID int) error

	AppendEvent(ctx context.Context, e *models.Event) error
}

// TxFunc выполняет fn атомарно. fn может быть вызвана повторно.
type TxFunc func(ctx context.Context, fn func(Repository) error) error

// Notifier получает уведомления после фиксации транзакции. Ошибок не возвращает.
type Notifier interface {
	NotifyManagersOfNewBid(ctx context.Context, bid models.Bid)
	NotifySenderOfStatusChange(ctx context.Context, bid models.Bid)
	NotifySenderNeedsRevision(ctx context.Context, bid models.Bid)
}

// Request: то, что отправитель присылает при создании и правке заявки.
type Request struct {
	Text        string
	Attachments []string
	Payload     models.Payload
}

type Manager struct {
	repo     Repository
	tx       TxFunc
	notifier Notifier
	clock    clock.Clock
	log      logrus.FieldLogger
	effects  map[models.BidType]effect
}

func NewManager(repo Repository, tx TxFunc, notifier Notifier, c clock.Clock, log logrus.FieldLogger) *Manager {
	m := &Manager{
		repo:     repo,
		tx:       tx,
		notifier: notifier,
		clock:    c,
		log:      log,
	}
	m.effects = map[models.BidType]effect{
		models.BidOccupation: m.acceptOccupation,
		models.BidEviction:   m.acceptEviction,
		models.BidDeparture:  m.acceptDeparture,
		models.BidRoomChange: m.acceptRoomChange,
	}
	return m
}

// Get отдаёт заявку отправителю или любому менеджеру.
func (m *Manager) Get(ctx context.Context, caller models.User, id int64) (*models.Bid, error) {
	bid, err := m.repo.GetBid(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, apperr.NotFound("No bid with such id")
	}
	if err != nil {
		return nil, fmt.Errorf("get bid %d: %w", id, err)
	}
	if caller.Role != models.RoleManager && bid.Sender != caller.Login {
		return nil, apperr.Forbidden("You are not allowed to get bid by this user")
	}
	return bid, nil
}

// SelfBids: заявки вызывающего, новые первыми.
func (m *Manager) SelfBids(ctx context.Context, caller models.User) ([]models.Bid, error) {
	return m.repo.BidsBySender(ctx, caller.Login)
}

// OpenTypes: типы, по которым у вызывающего есть открытая заявка.
func (m *Manager) OpenTypes(ctx context.Context, caller models.User) ([]models.BidType, error) {
	return m.repo.OpenBidTypes(ctx, caller.Login)
}

// InProcess: очередь менеджера: сначала его заявки, затем ничьи, затем чужие.
func (m *Manager) InProcess(ctx context.Context, caller models.User) ([]models.Bid, error) {
	bids, err := m.repo.BidsByStatus(ctx, models.BidInProcess)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(bids, InProcessOrder(caller.Login))
	return bids, nil
}

func (m *Manager) Pending(ctx context.Context) ([]models.Bid, error) {
	return m.repo.BidsByStatus(ctx, models.BidPendingRevision)
}

func (m *Manager) Archived(ctx context.Context) ([]models.Bid, error) {
	return m.repo.BidsByStatus(ctx, models.ArchivedStatuses...)
}

// outbox копит уведомления транзакции; отправляются только после фиксации.
type outbox struct {
	created  []models.Bid
	resolved []models.Bid
	revision []models.Bid
}

func (m *Manager) dispatch(ctx context.Context, out *outbox) {
	for _, b := range out.created {
		m.notifier.NotifyManagersOfNewBid(ctx, b)
	}
	for _, b := range out.resolved {
		m.notifier.NotifySenderOfStatusChange(ctx, b)
	}
	for _, b := range out.revision {
		m.notifier.NotifySenderNeedsRevision(ctx, b)
	}
}
