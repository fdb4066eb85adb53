package handlers

import (
	"context"

	"dormitory/internal/bids"
	"dormitory/internal/eviction"
	"dormitory/internal/payment"
	"dormitory/internal/users"
	"dormitory/models"
)

type UserStore interface {
	GetUser(ctx context.Context, login string) (*models.User, error)
}

type BidService interface {
	Create(ctx context.Context, caller models.User, req bids.Request) (*models.Bid, error)
	Update(ctx context.Context, caller models.User, id int64, req bids.Request) (*models.Bid, error)
	Accept(ctx context.Context, caller models.User, id int64) (*models.Bid, error)
	Deny(ctx context.Context, caller models.User, id int64, comment string) (*models.Bid, error)
	Pend(ctx context.Context, caller models.User, id int64, comment string) (*models.Bid, error)
	Get(ctx context.Context, caller models.User, id int64) (*models.Bid, error)
	SelfBids(ctx context.Context, caller models.User) ([]models.Bid, error)
	OpenTypes(ctx context.Context, caller models.User) ([]models.BidType, error)
	InProcess(ctx context.Context, caller models.User) ([]models.Bid, error)
	Pending(ctx context.Context) ([]models.Bid, error)
	Archived(ctx context.Context) ([]models.Bid, error)
	EvictResident(ctx context.Context, caller models.User, login string) error
}

type EvictionService interface {
	Candidates(ctx context.Context) ([]eviction.Candidate, error)
}

type RoomService interface {
	AvailableFor(ctx context.Context, login string) ([]models.Room, error)
}

type PaymentService interface {
	Info(ctx context.Context, login string) (*payment.Info, error)
	Pay(ctx context.Context, login string, sum int) error
}

type GuardService interface {
	Entry(ctx context.Context, login string) error
	Exit(ctx context.Context, login string) error
	History(ctx context.Context, login string) ([]models.Event, error)
}

type InboxService interface {
	Unread(ctx context.Context, receiver string) ([]models.Notification, error)
	MarkRead(ctx context.Context, receiver string, id int64) error
	MarkAllRead(ctx context.Context, receiver string) error
}

type StaffService interface {
	Residents(ctx context.Context) ([]users.ResidentInfo, error)
	Staff(ctx context.Context) ([]models.User, error)
	Fire(ctx context.Context, login string) error
}

// Services: всё, чем пользуются обработчики.
type Services struct {
	Users    UserStore
	Bids     BidService
	Eviction EvictionService
	Rooms    RoomService
	Payments PaymentService
	Guard    GuardService
	Inbox    InboxService
	Staff    StaffService
}
