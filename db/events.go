package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dormitory/models"

	sq "github.com/Masterminds/squirrel"
)

var eventColumns = []string{"e.id", "e.type", "e.timestamp", "e.room_id", "e.usr", "e.payment_sum"}

func eventTypes(types []models.EventType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func (q *Queries) AppendEvent(ctx context.Context, e *models.Event) error {
	query := `
        INSERT INTO event (type, timestamp, room_id, usr, payment_sum)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`
	return q.q.QueryRowxContext(ctx, query, string(e.Type), e.Timestamp, e.RoomID, e.User, e.PaymentSum).
		Scan(&e.ID)
}

// EventsByUser: события пользователя указанных типов, новые первыми.
func (q *Queries) EventsByUser(ctx context.Context, login string, types ...models.EventType) ([]models.Event, error) {
	events := []models.Event{}
	b := psql().Select(eventColumns...).From("event e").
		Where(sq.Eq{"e.usr": login, "e.type": eventTypes(types)}).
		OrderBy("e.timestamp DESC", "e.id DESC")
	err := q.selectAll(ctx, &events, b)
	return events, err
}

// LastEvents: последнее событие указанных типов для каждого текущего проживающего.
func (q *Queries) LastEvents(ctx context.Context, types ...models.EventType) ([]models.Event, error) {
	events := []models.Event{}
	b := psql().Select(eventColumns...).Options("DISTINCT ON (e.usr)").
		From("event e").
		Join("resident r ON r.login = e.usr").
		Where(sq.Eq{"e.type": eventTypes(types)}).
		OrderBy("e.usr", "e.timestamp DESC", "e.id DESC")
	err := q.selectAll(ctx, &events, b)
	return events, err
}

// LastEventTimes: время последнего события указанных типов по каждому текущему проживающему.
func (q *Queries) LastEventTimes(ctx context.Context, types ...models.EventType) (map[string]time.Time, error) {
	var rows []struct {
		Login string    `db:"usr"`
		Last  time.Time `db:"last"`
	}
	b := psql().Select("e.usr", "MAX(e.timestamp) AS last").
		From("event e").
		Join("resident r ON r.login = e.usr").
		Where(sq.Eq{"e.type": eventTypes(types)}).
		GroupBy("e.usr")
	if err := q.selectAll(ctx, &rows, b); err != nil {
		return nil, err
	}
	out := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		out[r.Login] = r.Last
	}
	return out, nil
}

func (q *Queries) ResidentRoomCost(ctx context.Context, login string) (int, error) {
	var cost int
	query := `
        SELECT rm.cost
        FROM resident r
        JOIN room rm ON rm.id = r.room_id
        WHERE r.login = $1`
	err := q.q.QueryRowxContext(ctx, query, login).Scan(&cost)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return cost, err
}
