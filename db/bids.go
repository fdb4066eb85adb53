package db

import (
	"context"
	"fmt"
	"time"

	"dormitory/internal/apperr"
	"dormitory/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

const openBidIndex = "bid_one_open_per_sender_type"

var bidColumns = []string{
	"b.id", "b.type", "b.status", "b.text", "b.sender", "b.manager", "b.comment",
	"b.university_id", "b.dormitory_id", "b.day_from", "b.day_to",
	"b.room_to_id", "b.room_prefer_type", "b.created_at",
	"COALESCE((SELECT array_agg(f.key ORDER BY f.key) FROM bid_file f WHERE f.bid_id = b.id), '{}') AS attachments",
}

// Строка таблицы bid: поля всех типов заявок в одной таблице
type bidRow struct {
	ID             int64            `db:"id"`
	Type           models.BidType   `db:"type"`
	Status         models.BidStatus `db:"status"`
	Text           string           `db:"text"`
	Sender         string           `db:"sender"`
	Manager        *string          `db:"manager"`
	Comment        *string          `db:"comment"`
	UniversityID   *int             `db:"university_id"`
	DormitoryID    *int             `db:"dormitory_id"`
	DayFrom        *time.Time       `db:"day_from"`
	DayTo          *time.Time       `db:"day_to"`
	RoomToID       *int             `db:"room_to_id"`
	RoomPreferType *models.RoomType `db:"room_prefer_type"`
	CreatedAt      time.Time        `db:"created_at"`
	Attachments    pq.StringArray   `db:"attachments"`
}

func (r *bidRow) toModel() models.Bid {
	b := models.Bid{
		ID:          r.ID,
		Type:        r.Type,
		Status:      r.Status,
		Text:        r.Text,
		Sender:      r.Sender,
		Manager:     r.Manager,
		Comment:     r.Comment,
		Attachments: []string(r.Attachments),
		CreatedAt:   r.CreatedAt,
	}
	switch r.Type {
	case models.BidOccupation:
		p := models.OccupationPayload{}
		if r.UniversityID != nil {
			p.UniversityID = *r.UniversityID
		}
		if r.DormitoryID != nil {
			p.DormitoryID = *r.DormitoryID
		}
		b.Payload = p
	case models.BidDeparture:
		p := models.DeparturePayload{}
		if r.DayFrom != nil {
			p.DayFrom = models.DateOf(*r.DayFrom)
		}
		if r.DayTo != nil {
			p.DayTo = models.DateOf(*r.DayTo)
		}
		b.Payload = p
	case models.BidRoomChange:
		b.Payload = models.RoomChangePayload{RoomTo: r.RoomToID, PreferType: r.RoomPreferType}
	default:
		b.Payload = models.EvictionPayload{}
	}
	return b
}

// payloadColumns раскладывает данные заявки по колонкам; колонки чужих типов обнуляются.
func payloadColumns(p models.Payload) map[string]any {
	cols := map[string]any{
		"university_id":    nil,
		"dormitory_id":     nil,
		"day_from":         nil,
		"day_to":           nil,
		"room_to_id":       nil,
		"room_prefer_type": nil,
	}
	switch p := p.(type) {
	case models.OccupationPayload:
		cols["university_id"] = p.UniversityID
		cols["dormitory_id"] = p.DormitoryID
	case models.DeparturePayload:
		cols["day_from"] = p.DayFrom.Time
		cols["day_to"] = p.DayTo.Time
	case models.RoomChangePayload:
		if p.RoomTo != nil {
			cols["room_to_id"] = *p.RoomTo
		}
		if p.PreferType != nil {
			cols["room_prefer_type"] = string(*p.PreferType)
		}
	}
	return cols
}

func (q *Queries) selectBids() sq.SelectBuilder {
	return psql().Select(bidColumns...).From("bid b")
}

func (q *Queries) listBids(ctx context.Context, b sq.SelectBuilder) ([]models.Bid, error) {
	var rows []bidRow
	if err := q.selectAll(ctx, &rows, b); err != nil {
		return nil, err
	}
	bids := make([]models.Bid, 0, len(rows))
	for i := range rows {
		bids = append(bids, rows[i].toModel())
	}
	return bids, nil
}

// GetBid внутри транзакции блокирует строку заявки.
func (q *Queries) GetBid(ctx context.Context, id int64) (*models.Bid, error) {
	var row bidRow
	if err := q.get(ctx, &row, q.bidByID(id)); err != nil {
		return nil, err
	}
	bid := row.toModel()
	return &bid, nil
}

func (q *Queries) bidByID(id int64) sq.SelectBuilder {
	return q.forUpdate(q.selectBids().Where(sq.Eq{"b.id": id}), "b")
}

func (q *Queries) CreateBid(ctx context.Context, b *models.Bid) error {
	cols := payloadColumns(b.Payload)
	cols["type"] = string(b.Type)
	cols["status"] = string(b.Status)
	cols["text"] = b.Text
	cols["sender"] = b.Sender

	query, args, err := psql().Insert("bid").SetMap(cols).Suffix("RETURNING id, created_at").ToSql()
	if err != nil {
		return fmt.Errorf("build insert bid query: %w", err)
	}
	err = q.q.QueryRowxContext(ctx, query, args...).Scan(&b.ID, &b.CreatedAt)
	if isUniqueViolation(err, openBidIndex) {
		return apperr.BadRequest("Not closed bid with this type already exists")
	}
	return err
}

// UpdateBid перезаписывает текст и данные открытой заявки и возвращает её в IN_PROCESS.
func (q *Queries) UpdateBid(ctx context.Context, b *models.Bid) error {
	n, err := q.exec(ctx, updateBidQuery(b))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	b.Status = models.BidInProcess
	return nil
}

// TransitionBid переводит заявку из одного из статусов from в статус to одним UPDATE.
// false означает, что заявки с таким id в статусах from нет.
func (q *Queries) TransitionBid(ctx context.Context, id int64, from []models.BidStatus, to models.BidStatus, manager string, comment *string) (bool, error) {
	n, err := q.exec(ctx, transitionBidQuery(id, from, to, manager, comment))
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Правка проходит только для открытой заявки того же типа.
func updateBidQuery(b *models.Bid) sq.UpdateBuilder {
	cols := payloadColumns(b.Payload)
	cols["text"] = b.Text
	cols["status"] = string(models.BidInProcess)
	return psql().Update("bid").SetMap(cols).
		Where(sq.Eq{"id": b.ID, "type": string(b.Type), "status": models.OpenStatuses})
}

func transitionBidQuery(id int64, from []models.BidStatus, to models.BidStatus, manager string, comment *string) sq.UpdateBuilder {
	set := map[string]any{"status": string(to), "manager": manager}
	if comment != nil {
		set["comment"] = *comment
	}
	return psql().Update("bid").SetMap(set).Where(sq.Eq{"id": id, "status": from})
}

func (q *Queries) BidsByStatus(ctx context.Context, statuses ...models.BidStatus) ([]models.Bid, error) {
	return q.listBids(ctx, q.selectBids().Where(sq.Eq{"b.status": statuses}).OrderBy("b.id"))
}

// BidsBySender: заявки отправителя, новые первыми.
func (q *Queries) BidsBySender(ctx context.Context, sender string) ([]models.Bid, error) {
	return q.listBids(ctx, q.selectBids().Where(sq.Eq{"b.sender": sender}).OrderBy("b.id DESC"))
}

func (q *Queries) BidsBySenderAndStatus(ctx context.Context, sender string, statuses ...models.BidStatus) ([]models.Bid, error) {
	b := q.selectBids().Where(sq.Eq{"b.sender": sender, "b.status": statuses}).OrderBy("b.id")
	return q.listBids(ctx, q.forUpdate(b, "b"))
}

func (q *Queries) OpenBidExists(ctx context.Context, sender string, t models.BidType) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM bid WHERE sender = $1 AND type = $2 AND status = ANY($3))`
	err := q.q.QueryRowxContext(ctx, query, sender, string(t), pq.Array(statusStrings(models.OpenStatuses))).Scan(&exists)
	return exists, err
}

func (q *Queries) OpenBidTypes(ctx context.Context, sender string) ([]models.BidType, error) {
	types := []models.BidType{}
	b := psql().Select("DISTINCT type").From("bid").
		Where(sq.Eq{"sender": sender, "status": models.OpenStatuses}).OrderBy("type")
	err := q.selectAll(ctx, &types, b)
	return types, err
}

// LinkBidFiles отвязывает от заявки прежние файлы и привязывает файлы с ключами keys.
func (q *Queries) LinkBidFiles(ctx context.Context, bidID int64, keys []string) error {
	if _, err := q.q.ExecContext(ctx, `UPDATE bid_file SET bid_id = NULL WHERE bid_id = $1`, bidID); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	_, err := q.q.ExecContext(ctx, `UPDATE bid_file SET bid_id = $1 WHERE key = ANY($2)`, bidID, pq.Array(keys))
	return err
}

func statusStrings(statuses []models.BidStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
