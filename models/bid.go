package models

import "time"

type BidType string

const (
	BidOccupation BidType = "OCCUPATION"
	BidDeparture  BidType = "DEPARTURE"
	BidRoomChange BidType = "ROOM_CHANGE"
	BidEviction   BidType = "EVICTION"
)

func ValidBidType(t BidType) bool {
	switch t {
	case BidOccupation, BidDeparture, BidRoomChange, BidEviction:
		return true
	default:
		return false
	}
}

type BidStatus string

const (
	BidInProcess       BidStatus = "IN_PROCESS"
	BidPendingRevision BidStatus = "PENDING_REVISION"
	BidAccepted        BidStatus = "ACCEPTED"
	BidDenied          BidStatus = "DENIED"
)

// OpenStatuses: статусы, в которых заявка считается открытой.
var OpenStatuses = []BidStatus{BidInProcess, BidPendingRevision}

// ArchivedStatuses: терминальные статусы.
var ArchivedStatuses = []BidStatus{BidAccepted, BidDenied}

// Editable сообщает, может ли отправитель менять заявку в этом статусе.
func (s BidStatus) Editable() bool {
	return s == BidInProcess || s == BidPendingRevision
}

// Payload: данные, специфичные для типа заявки.
// Реализации: OccupationPayload, DeparturePayload, RoomChangePayload, EvictionPayload.
type Payload interface {
	BidType() BidType
}

type OccupationPayload struct {
	UniversityID int `json:"universityId"`
	DormitoryID  int `json:"dormitoryId"`
}

func (OccupationPayload) BidType() BidType { return BidOccupation }

type DeparturePayload struct {
	DayFrom Date `json:"dayFrom"`
	DayTo   Date `json:"dayTo"`
}

func (DeparturePayload) BidType() BidType { return BidDeparture }

// RoomChangePayload: задаётся ровно одно из RoomTo и PreferType.
type RoomChangePayload struct {
	RoomTo     *int      `json:"roomToId,omitempty"`
	PreferType *RoomType `json:"roomPreferType,omitempty"`
}

func (RoomChangePayload) BidType() BidType { return BidRoomChange }

type EvictionPayload struct{}

func (EvictionPayload) BidType() BidType { return BidEviction }

// Сущность Заявки
type Bid struct {
	ID          int64     `json:"id"`
	Type        BidType   `json:"type"`
	Status      BidStatus `json:"status"`
	Text        string    `json:"text"`
	Sender      string    `json:"sender"`
	Manager     *string   `json:"manager,omitempty"`
	Comment     *string   `json:"comment,omitempty"`
	Payload     Payload   `json:"payload"`
	Attachments []string  `json:"attachmentKeys"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ManagedBy сообщает, назначен ли на заявку менеджер login.
func (b *Bid) ManagedBy(login string) bool {
	return b.Manager != nil && *b.Manager == login
}
