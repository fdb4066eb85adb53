package models

import "time"

type Role string

const (
	RoleNonResident Role = "NON_RESIDENT"
	RoleResident    Role = "RESIDENT"
	RoleManager     Role = "MANAGER"
	RoleGuard       Role = "GUARD"
)

// Сущность Пользователя
type User struct {
	Login   string `db:"login" json:"login"`
	Name    string `db:"name" json:"name"`
	Surname string `db:"surname" json:"surname"`
	Role    Role   `db:"role" json:"role"`
}

// Сущность Проживающего: пользователь с привязкой к университету и комнате
type Resident struct {
	User
	UniversityID int `db:"university_id" json:"universityId"`
	RoomID       int `db:"room_id" json:"roomId"`
}

// Сущность Университета
type University struct {
	ID      int    `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Address string `db:"address" json:"address"`
}

type RoomType string

const (
	RoomBlock RoomType = "BLOCK"
	RoomAisle RoomType = "AISLE"
)

func ValidRoomType(t RoomType) bool {
	switch t {
	case RoomBlock, RoomAisle:
		return true
	default:
		return false
	}
}

// Сущность Комнаты. Список жильцов не хранится, он вычисляется запросом.
type Room struct {
	ID          int      `db:"id" json:"id"`
	DormitoryID int      `db:"dormitory_id" json:"dormitoryId"`
	Number      int      `db:"number" json:"number"`
	Type        RoomType `db:"type" json:"type"`
	Capacity    int      `db:"capacity" json:"capacity"`
	Floor       int      `db:"floor" json:"floor"`
	Cost        int      `db:"cost" json:"cost"`
}

type EventType string

const (
	EventPayment    EventType = "PAYMENT"
	EventIn         EventType = "IN"
	EventOut        EventType = "OUT"
	EventOccupation EventType = "OCCUPATION"
	EventEviction   EventType = "EVICTION"
	EventRoomChange EventType = "ROOM_CHANGE"
)

// Сущность События. Журнал только дописывается.
type Event struct {
	ID         int64     `db:"id" json:"id"`
	Type       EventType `db:"type" json:"type"`
	Timestamp  time.Time `db:"timestamp" json:"timestamp"`
	RoomID     *int      `db:"room_id" json:"roomId,omitempty"`
	User       string    `db:"usr" json:"user"`
	PaymentSum *int      `db:"payment_sum" json:"paymentSum,omitempty"`
}

type NotificationStatus string

const (
	NotificationCreated NotificationStatus = "CREATED"
	NotificationRead    NotificationStatus = "READ"
)

// Сущность Уведомления
type Notification struct {
	ID        int64              `db:"id" json:"id"`
	BidID     int64              `db:"bid_id" json:"bidId"`
	Receiver  string             `db:"receiver" json:"receiver"`
	Text      string             `db:"text" json:"text"`
	Status    NotificationStatus `db:"status" json:"status"`
	CreatedAt time.Time          `db:"created_at" json:"createdAt"`
}
