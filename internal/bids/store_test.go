package bids_test

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"dormitory/internal/bids"
	"dormitory/models"
)

// memStore: хранилище в памяти. Транзакции идут по одной под mu
// и откатываются восстановлением снимка.
type memStore struct {
	mu           sync.Mutex
	bids         map[int64]models.Bid
	nextBid      int64
	users        map[string]models.User
	residents    map[string]models.Resident
	rooms        []models.Room
	universities map[int][]int
	events       []models.Event
	ops          []string
	txCalls      int
}

func newMemStore() *memStore {
	return &memStore{
		bids:         map[int64]models.Bid{},
		users:        map[string]models.User{},
		residents:    map[string]models.Resident{},
		universities: map[int][]int{},
	}
}

type memSnapshot struct {
	bids      map[int64]models.Bid
	nextBid   int64
	users     map[string]models.User
	residents map[string]models.Resident
	events    []models.Event
	ops       []string
}

func (s *memStore) snapshot() memSnapshot {
	return memSnapshot{
		bids:      maps.Clone(s.bids),
		nextBid:   s.nextBid,
		users:     maps.Clone(s.users),
		residents: maps.Clone(s.residents),
		events:    slices.Clone(s.events),
		ops:       slices.Clone(s.ops),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.bids = snap.bids
	s.nextBid = snap.nextBid
	s.users = snap.users
	s.residents = snap.residents
	s.events = snap.events
	s.ops = snap.ops
}

func (s *memStore) inTx(ctx context.Context, fn func(r bids.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCalls++
	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) addUser(login string, role models.Role) {
	s.users[login] = models.User{Login: login, Name: login, Surname: login, Role: role}
}

func (s *memStore) addResident(login string, universityID, roomID int) {
	s.addUser(login, models.RoleResident)
	s.residents[login] = models.Resident{User: s.users[login], UniversityID: universityID, RoomID: roomID}
}

func (s *memStore) addRoom(id, dormitoryID int, t models.RoomType, capacity int) {
	s.rooms = append(s.rooms, models.Room{ID: id, DormitoryID: dormitoryID, Number: id, Type: t, Capacity: capacity, Cost: 1000})
}

func (s *memStore) bid(id int64) models.Bid {
	return s.bids[id]
}

func (s *memStore) putBid(b models.Bid) int64 {
	s.nextBid++
	b.ID = s.nextBid
	s.bids[b.ID] = b
	return b.ID
}

func (s *memStore) GetBid(ctx context.Context, id int64) (*models.Bid, error) {
	b, ok := s.bids[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &b, nil
}

func (s *memStore) CreateBid(ctx context.Context, b *models.Bid) error {
	s.nextBid++
	b.ID = s.nextBid
	b.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.bids[b.ID] = *b
	return nil
}

func (s *memStore) UpdateBid(ctx context.Context, b *models.Bid) error {
	cur, ok := s.bids[b.ID]
	if !ok || cur.Type != b.Type || !cur.Status.Editable() {
		return models.ErrNotFound
	}
	cur.Text = b.Text
	cur.Payload = b.Payload
	cur.Status = models.BidInProcess
	s.bids[b.ID] = cur
	b.Status = models.BidInProcess
	return nil
}

func (s *memStore) TransitionBid(ctx context.Context, id int64, from []models.BidStatus, to models.BidStatus, manager string, comment *string) (bool, error) {
	b, ok := s.bids[id]
	if !ok || !slices.Contains(from, b.Status) {
		return false, nil
	}
	b.Status = to
	b.Manager = &manager
	if comment != nil {
		c := *comment
		b.Comment = &c
	}
	s.bids[id] = b
	s.ops = append(s.ops, fmt.Sprintf("bid %d %s", id, to))
	return true, nil
}

func (s *memStore) filter(keep func(models.Bid) bool) []models.Bid {
	out := []models.Bid{}
	for _, b := range s.bids {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) BidsByStatus(ctx context.Context, statuses ...models.BidStatus) ([]models.Bid, error) {
	return s.filter(func(b models.Bid) bool { return slices.Contains(statuses, b.Status) }), nil
}

func (s *memStore) BidsBySender(ctx context.Context, sender string) ([]models.Bid, error) {
	out := s.filter(func(b models.Bid) bool { return b.Sender == sender })
	slices.Reverse(out)
	return out, nil
}

func (s *memStore) BidsBySenderAndStatus(ctx context.Context, sender string, statuses ...models.BidStatus) ([]models.Bid, error) {
	return s.filter(func(b models.Bid) bool {
		return b.Sender == sender && slices.Contains(statuses, b.Status)
	}), nil
}

func (s *memStore) OpenBidExists(ctx context.Context, sender string, t models.BidType) (bool, error) {
	open := s.filter(func(b models.Bid) bool {
		return b.Sender == sender && b.Type == t && b.Status.Editable()
	})
	return len(open) > 0, nil
}

func (s *memStore) OpenBidTypes(ctx context.Context, sender string) ([]models.BidType, error) {
	types := []models.BidType{}
	for _, b := range s.filter(func(b models.Bid) bool { return b.Sender == sender && b.Status.Editable() }) {
		if !slices.Contains(types, b.Type) {
			types = append(types, b.Type)
		}
	}
	slices.Sort(types)
	return types, nil
}

func (s *memStore) LinkBidFiles(ctx context.Context, bidID int64, keys []string) error {
	b := s.bids[bidID]
	b.Attachments = slices.Clone(keys)
	s.bids[bidID] = b
	return nil
}

func (s *memStore) GetUniversity(ctx context.Context, id int) (*models.University, error) {
	if _, ok := s.universities[id]; !ok {
		return nil, models.ErrNotFound
	}
	return &models.University{ID: id, Name: fmt.Sprintf("U%d", id)}, nil
}

func (s *memStore) DormitoryBelongsToUniversity(ctx context.Context, universityID, dormitoryID int) (bool, error) {
	return slices.Contains(s.universities[universityID], dormitoryID), nil
}

func (s *memStore) GetRoom(ctx context.Context, id int) (*models.Room, error) {
	for _, r := range s.rooms {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *memStore) RoomsByDormitoryAndType(ctx context.Context, dormitoryID int, t models.RoomType) ([]models.Room, error) {
	var out []models.Room
	for _, r := range s.rooms {
		if r.DormitoryID == dormitoryID && r.Type == t {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) RoomsByDormitory(ctx context.Context, dormitoryID int) ([]models.Room, error) {
	var out []models.Room
	for _, r := range s.rooms {
		if r.DormitoryID == dormitoryID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) ResidentCount(ctx context.Context, roomID int) (int, error) {
	n := 0
	for _, r := range s.residents {
		if r.RoomID == roomID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) SetUserRole(ctx context.Context, login string, role models.Role) error {
	u, ok := s.users[login]
	if !ok {
		return models.ErrNotFound
	}
	u.Role = role
	s.users[login] = u
	s.ops = append(s.ops, fmt.Sprintf("role %s %s", login, role))
	return nil
}

func (s *memStore) GetResident(ctx context.Context, login string) (*models.Resident, error) {
	r, ok := s.residents[login]
	if !ok {
		return nil, models.ErrNotFound
	}
	r.User = s.users[login]
	return &r, nil
}

func (s *memStore) AttachResident(ctx context.Context, login string, universityID, roomID int) error {
	s.residents[login] = models.Resident{User: s.users[login], UniversityID: universityID, RoomID: roomID}
	s.ops = append(s.ops, fmt.Sprintf("attach %s %d", login, roomID))
	return nil
}

func (s *memStore) DetachResident(ctx context.Context, login string) error {
	delete(s.residents, login)
	s.ops = append(s.ops, fmt.Sprintf("detach %s", login))
	return nil
}

func (s *memStore) MoveResident(ctx context.Context, login string, roomID int) error {
	r := s.residents[login]
	r.RoomID = roomID
	s.residents[login] = r
	s.ops = append(s.ops, fmt.Sprintf("move %s %d", login, roomID))
	return nil
}

func (s *memStore) AppendEvent(ctx context.Context, e *models.Event) error {
	e.ID = int64(len(s.events) + 1)
	s.events = append(s.events, *e)
	s.ops = append(s.ops, fmt.Sprintf("event %s %s", e.User, e.Type))
	return nil
}

// overfilled: комнаты, где жильцов больше, чем мест.
func (s *memStore) overfilled() []int {
	var out []int
	for _, r := range s.rooms {
		n, _ := s.ResidentCount(context.Background(), r.ID)
		if n > r.Capacity {
			out = append(out, r.ID)
		}
	}
	return out
}

type recordingNotifier struct {
	mu       sync.Mutex
	created  []models.Bid
	resolved []models.Bid
	revision []models.Bid
}

func (n *recordingNotifier) NotifyManagersOfNewBid(ctx context.Context, bid models.Bid) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, bid)
}

func (n *recordingNotifier) NotifySenderOfStatusChange(ctx context.Context, bid models.Bid) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resolved = append(n.resolved, bid)
}

func (n *recordingNotifier) NotifySenderNeedsRevision(ctx context.Context, bid models.Bid) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.revision = append(n.revision, bid)
}
