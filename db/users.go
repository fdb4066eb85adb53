package db

import (
	"context"

	"dormitory/models"

	sq "github.com/Masterminds/squirrel"
)

func (q *Queries) GetUser(ctx context.Context, login string) (*models.User, error) {
	u := &models.User{}
	b := psql().Select("login", "name", "surname", "role").From("usr").Where(sq.Eq{"login": login})
	if err := q.get(ctx, u, b); err != nil {
		return nil, err
	}
	return u, nil
}

func (q *Queries) UsersByRole(ctx context.Context, roles ...models.Role) ([]models.User, error) {
	users := []models.User{}
	b := psql().Select("login", "name", "surname", "role").From("usr").
		Where(sq.Eq{"role": roles}).OrderBy("login")
	err := q.selectAll(ctx, &users, b)
	return users, err
}

func (q *Queries) SetUserRole(ctx context.Context, login string, role models.Role) error {
	n, err := q.exec(ctx, psql().Update("usr").Set("role", string(role)).Where(sq.Eq{"login": login}))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetResident внутри транзакции блокирует строку проживающего.
func (q *Queries) GetResident(ctx context.Context, login string) (*models.Resident, error) {
	r := &models.Resident{}
	b := psql().Select("u.login", "u.name", "u.surname", "u.role", "r.university_id", "r.room_id").
		From("resident r").
		Join("usr u ON u.login = r.login").
		Where(sq.Eq{"r.login": login})
	if err := q.get(ctx, r, q.forUpdate(b, "r")); err != nil {
		return nil, err
	}
	return r, nil
}

func (q *Queries) AttachResident(ctx context.Context, login string, universityID, roomID int) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO resident (login, university_id, room_id) VALUES ($1, $2, $3)`,
		login, universityID, roomID)
	return err
}

func (q *Queries) DetachResident(ctx context.Context, login string) error {
	_, err := q.q.ExecContext(ctx, `DELETE FROM resident WHERE login = $1`, login)
	return err
}

func (q *Queries) MoveResident(ctx context.Context, login string, roomID int) error {
	n, err := q.exec(ctx, psql().Update("resident").Set("room_id", roomID).Where(sq.Eq{"login": login}))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Residents: все проживающие по логину.
func (q *Queries) Residents(ctx context.Context) ([]models.Resident, error) {
	residents := []models.Resident{}
	b := psql().Select("u.login", "u.name", "u.surname", "u.role", "r.university_id", "r.room_id").
		From("resident r").
		Join("usr u ON u.login = r.login").
		OrderBy("u.login")
	err := q.selectAll(ctx, &residents, b)
	return residents, err
}

// DeleteUser удаляет пользователя, только если у него роль role.
func (q *Queries) DeleteUser(ctx context.Context, login string, role models.Role) error {
	n, err := q.exec(ctx, psql().Delete("usr").Where(sq.Eq{"login": login, "role": string(role)}))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
