package notify

import (
	"context"
	"errors"
	"fmt"

	"dormitory/internal/apperr"
	"dormitory/models"
)

// Inbox: входящие уведомления пользователя.
type Inbox struct {
	store Store
}

func NewInbox(store Store) *Inbox {
	return &Inbox{store: store}
}

// Unread: непрочитанные уведомления, новые первыми.
func (i *Inbox) Unread(ctx context.Context, receiver string) ([]models.Notification, error) {
	return i.store.NotificationsByReceiver(ctx, receiver, models.NotificationCreated)
}

func (i *Inbox) MarkRead(ctx context.Context, receiver string, id int64) error {
	n, err := i.store.GetNotification(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return apperr.NotFound("Notification not found")
	}
	if err != nil {
		return fmt.Errorf("get notification %d: %w", id, err)
	}
	if n.Receiver != receiver {
		return apperr.Forbidden("No rights")
	}
	return i.store.MarkNotificationRead(ctx, id)
}

func (i *Inbox) MarkAllRead(ctx context.Context, receiver string) error {
	return i.store.MarkAllNotificationsRead(ctx, receiver)
}
