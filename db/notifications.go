package db

import (
	"context"

	"dormitory/models"

	sq "github.com/Masterminds/squirrel"
)

var notificationColumns = []string{"id", "bid_id", "receiver", "text", "status", "created_at"}

// CreateNotifications вставляет уведомления одним запросом.
func (q *Queries) CreateNotifications(ctx context.Context, ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	b := psql().Insert("notification").Columns("bid_id", "receiver", "text", "status")
	for _, n := range ns {
		b = b.Values(n.BidID, n.Receiver, n.Text, string(models.NotificationCreated))
	}
	_, err := q.exec(ctx, b)
	return err
}

func (q *Queries) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	n := &models.Notification{}
	if err := q.get(ctx, n, psql().Select(notificationColumns...).From("notification").Where(sq.Eq{"id": id})); err != nil {
		return nil, err
	}
	return n, nil
}

func (q *Queries) NotificationsByReceiver(ctx context.Context, receiver string, status models.NotificationStatus) ([]models.Notification, error) {
	ns := []models.Notification{}
	b := psql().Select(notificationColumns...).From("notification").
		Where(sq.Eq{"receiver": receiver, "status": string(status)}).
		OrderBy("id DESC")
	err := q.selectAll(ctx, &ns, b)
	return ns, err
}

func (q *Queries) MarkNotificationRead(ctx context.Context, id int64) error {
	_, err := q.exec(ctx, psql().Update("notification").
		Set("status", string(models.NotificationRead)).
		Where(sq.Eq{"id": id}))
	return err
}

func (q *Queries) MarkAllNotificationsRead(ctx context.Context, receiver string) error {
	_, err := q.exec(ctx, psql().Update("notification").
		Set("status", string(models.NotificationRead)).
		Where(sq.Eq{"receiver": receiver, "status": string(models.NotificationCreated)}))
	return err
}
