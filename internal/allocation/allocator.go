// Package allocation отвечает на вопросы о свободных местах в комнатах.
package allocation

import (
	"context"
	"fmt"

	"dormitory/models"
)

// Rooms: источник каталога комнат и числа жильцов.
// Внутри транзакции реализация обязана блокировать возвращаемые комнаты.
type Rooms interface {
	RoomsByDormitoryAndType(ctx context.Context, dormitoryID int, t models.RoomType) ([]models.Room, error)
	RoomsByDormitory(ctx context.Context, dormitoryID int) ([]models.Room, error)
	ResidentCount(ctx context.Context, roomID int) (int, error)
}

type Allocator struct {
	rooms Rooms
}

func New(rooms Rooms) *Allocator {
	return &Allocator{rooms: rooms}
}

// IsFree: жильцов меньше, чем мест.
func (a *Allocator) IsFree(ctx context.Context, room models.Room) (bool, error) {
	n, err := a.rooms.ResidentCount(ctx, room.ID)
	if err != nil {
		return false, fmt.Errorf("count residents of room %d: %w", room.ID, err)
	}
	return n < room.Capacity, nil
}

// FindFree возвращает первую свободную комнату типа t в порядке каталога.
// Лучшая по заполненности не ищется.
func (a *Allocator) FindFree(ctx context.Context, dormitoryID int, t models.RoomType) (*models.Room, bool, error) {
	rooms, err := a.rooms.RoomsByDormitoryAndType(ctx, dormitoryID, t)
	if err != nil {
		return nil, false, fmt.Errorf("list %s rooms of dormitory %d: %w", t, dormitoryID, err)
	}
	for i := range rooms {
		free, err := a.IsFree(ctx, rooms[i])
		if err != nil {
			return nil, false, err
		}
		if free {
			return &rooms[i], true, nil
		}
	}
	return nil, false, nil
}

// FindFreeFallback перебирает типы по порядку и отдаёт первую найденную комнату.
func (a *Allocator) FindFreeFallback(ctx context.Context, dormitoryID int, types ...models.RoomType) (*models.Room, bool, error) {
	for _, t := range types {
		room, ok, err := a.FindFree(ctx, dormitoryID, t)
		if err != nil || ok {
			return room, ok, err
		}
	}
	return nil, false, nil
}

// Available: все свободные комнаты общежития, кроме exceptRoomID.
func (a *Allocator) Available(ctx context.Context, dormitoryID, exceptRoomID int) ([]models.Room, error) {
	rooms, err := a.rooms.RoomsByDormitory(ctx, dormitoryID)
	if err != nil {
		return nil, fmt.Errorf("list rooms of dormitory %d: %w", dormitoryID, err)
	}
	free := make([]models.Room, 0, len(rooms))
	for _, r := range rooms {
		if r.ID == exceptRoomID {
			continue
		}
		ok, err := a.IsFree(ctx, r)
		if err != nil {
			return nil, err
		}
		if ok {
			free = append(free, r)
		}
	}
	return free, nil
}
