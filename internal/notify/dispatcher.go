// Package notify раздаёт уведомления о заявках: пишет их во входящие
// получателей и, если настроен NATS, публикует в subject получателя.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"dormitory/models"

	"github.com/sirupsen/logrus"
)

const (
	textNewBid   = "Появилась новая заявка"
	textRevision = "Заявка возвращена на доработку"
	textAccepted = "Заявка принята"
	textDenied   = "Заявка отклонена"
)

// SubjectPrefix + логин получателя: subject в NATS.
const SubjectPrefix = "dorm.notifications."

type Store interface {
	UsersByRole(ctx context.Context, roles ...models.Role) ([]models.User, error)
	CreateNotifications(ctx context.Context, ns []models.Notification) error
	GetNotification(ctx context.Context, id int64) (*models.Notification, error)
	NotificationsByReceiver(ctx context.Context, receiver string, status models.NotificationStatus) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllNotificationsRead(ctx context.Context, receiver string) error
}

// Publisher: то, что нужно от *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Message: тело сообщения в NATS.
type Message struct {
	Receiver string           `json:"receiver"`
	BidID    int64            `json:"bidId"`
	BidType  models.BidType   `json:"bidType"`
	Status   models.BidStatus `json:"status"`
	Text     string           `json:"text"`
}

type Dispatcher struct {
	store Store
	pub   Publisher
	log   logrus.FieldLogger
}

// NewDispatcher: pub может быть nil, тогда уведомления только пишутся в базу.
func NewDispatcher(store Store, pub Publisher, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{store: store, pub: pub, log: log}
}

// NotifyManagersOfNewBid уведомляет всех менеджеров о заявке в статусе IN_PROCESS.
func (d *Dispatcher) NotifyManagersOfNewBid(ctx context.Context, bid models.Bid) {
	if bid.Status != models.BidInProcess {
		return
	}
	managers, err := d.store.UsersByRole(ctx, models.RoleManager)
	if err != nil {
		d.log.WithError(err).WithField("bid", bid.ID).Error("list managers for notification")
		return
	}
	receivers := make([]string, len(managers))
	for i, m := range managers {
		receivers[i] = m.Login
	}
	d.send(ctx, bid, textNewBid, receivers...)
}

func (d *Dispatcher) NotifySenderOfStatusChange(ctx context.Context, bid models.Bid) {
	text := textAccepted
	if bid.Status == models.BidDenied {
		text = textDenied
	}
	d.send(ctx, bid, text, bid.Sender)
}

func (d *Dispatcher) NotifySenderNeedsRevision(ctx context.Context, bid models.Bid) {
	d.send(ctx, bid, textRevision, bid.Sender)
}

// send пишет уведомления и публикует их; ошибки только логируются.
func (d *Dispatcher) send(ctx context.Context, bid models.Bid, text string, receivers ...string) {
	if len(receivers) == 0 {
		return
	}
	log := d.log.WithField("bid", bid.ID)

	ns := make([]models.Notification, len(receivers))
	for i, r := range receivers {
		ns[i] = models.Notification{BidID: bid.ID, Receiver: r, Text: text, Status: models.NotificationCreated}
	}
	if err := d.store.CreateNotifications(ctx, ns); err != nil {
		log.WithError(err).Error("save notifications")
	}

	if d.pub == nil {
		return
	}
	for _, r := range receivers {
		if err := d.publish(r, bid, text); err != nil {
			log.WithError(err).WithField("receiver", r).Warn("publish notification")
		}
	}
}

func (d *Dispatcher) publish(receiver string, bid models.Bid, text string) error {
	data, err := json.Marshal(Message{
		Receiver: receiver,
		BidID:    bid.ID,
		BidType:  bid.Type,
		Status:   bid.Status,
		Text:     text,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return d.pub.Publish(SubjectPrefix+receiver, data)
}
