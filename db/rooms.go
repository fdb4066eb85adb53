package db

import (
	"context"

	"dormitory/models"

	sq "github.com/Masterminds/squirrel"
)

var roomColumns = []string{"r.id", "r.dormitory_id", "r.number", "r.type", "r.capacity", "r.floor", "r.cost"}

// GetRoom внутри транзакции блокирует строку комнаты.
func (q *Queries) GetRoom(ctx context.Context, id int) (*models.Room, error) {
	room := &models.Room{}
	b := psql().Select(roomColumns...).From("room r").Where(sq.Eq{"r.id": id})
	if err := q.get(ctx, room, q.forUpdate(b, "r")); err != nil {
		return nil, err
	}
	return room, nil
}

// RoomsByDormitoryAndType возвращает комнаты в порядке каталога (по id).
func (q *Queries) RoomsByDormitoryAndType(ctx context.Context, dormitoryID int, t models.RoomType) ([]models.Room, error) {
	rooms := []models.Room{}
	b := psql().Select(roomColumns...).From("room r").
		Where(sq.Eq{"r.dormitory_id": dormitoryID, "r.type": string(t)}).
		OrderBy("r.id")
	err := q.selectAll(ctx, &rooms, q.forUpdate(b, "r"))
	return rooms, err
}

func (q *Queries) RoomsByDormitory(ctx context.Context, dormitoryID int) ([]models.Room, error) {
	rooms := []models.Room{}
	b := psql().Select(roomColumns...).From("room r").
		Where(sq.Eq{"r.dormitory_id": dormitoryID}).
		OrderBy("r.id")
	err := q.selectAll(ctx, &rooms, q.forUpdate(b, "r"))
	return rooms, err
}

func (q *Queries) ResidentCount(ctx context.Context, roomID int) (int, error) {
	var n int
	err := q.q.QueryRowxContext(ctx, `SELECT COUNT(1) FROM resident WHERE room_id = $1`, roomID).Scan(&n)
	return n, err
}

func (q *Queries) GetUniversity(ctx context.Context, id int) (*models.University, error) {
	u := &models.University{}
	b := psql().Select("id", "name", "address").From("university").Where(sq.Eq{"id": id})
	if err := q.get(ctx, u, b); err != nil {
		return nil, err
	}
	return u, nil
}

func (q *Queries) DormitoryBelongsToUniversity(ctx context.Context, universityID, dormitoryID int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM university_dormitory WHERE university_id = $1 AND dormitory_id = $2)`
	err := q.q.QueryRowxContext(ctx, query, universityID, dormitoryID).Scan(&exists)
	return exists, err
}
