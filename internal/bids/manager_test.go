package bids_test

import (
	"context"
	"io"
	"testing"
	"time"

	"dormitory/internal/apperr"
	"dormitory/internal/bids"
	"dormitory/internal/clock"
	"dormitory/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var (
	now     = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	manager = models.User{Login: "m1", Role: models.RoleManager}
	u1      = models.User{Login: "u1", Role: models.RoleNonResident}
)

type fixture struct {
	store    *memStore
	notifier *recordingNotifier
	clock    *clock.FakeClock
	m        *bids.Manager
}

// newFixture: университет 1 с общежитием 1; в общежитии AISLE комната 1 и BLOCK комната 2.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := newMemStore()
	s.universities[1] = []int{1}
	s.universities[2] = nil
	s.addRoom(1, 1, models.RoomAisle, 2)
	s.addRoom(2, 1, models.RoomBlock, 2)
	s.addUser(u1.Login, models.RoleNonResident)
	s.addUser(manager.Login, models.RoleManager)

	log := logrus.New()
	log.SetOutput(io.Discard)
	n := &recordingNotifier{}
	c := clock.Fake(now)
	return &fixture{
		store:    s,
		notifier: n,
		clock:    c,
		m:        bids.NewManager(s, s.inTx, n, c, log),
	}
}

func occupation(universityID, dormitoryID int) bids.Request {
	return bids.Request{
		Text:    "please",
		Payload: models.OccupationPayload{UniversityID: universityID, DormitoryID: dormitoryID},
	}
}

func intPtr(v int) *int { return &v }

func TestCreateAndAcceptOccupation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bid, err := f.m.Create(ctx, u1, bids.Request{
		Text:        "please",
		Attachments: []string{"passport.pdf"},
		Payload:     models.OccupationPayload{UniversityID: 1, DormitoryID: 1},
	})
	require.NoError(t, err)
	require.Equal(t, models.BidInProcess, bid.Status)
	require.Equal(t, models.BidOccupation, bid.Type)
	require.Equal(t, []string{"passport.pdf"}, f.store.bid(bid.ID).Attachments)
	require.Len(t, f.notifier.created, 1)

	accepted, err := f.m.Accept(ctx, manager, bid.ID)
	require.NoError(t, err)
	require.Equal(t, models.BidAccepted, accepted.Status)
	require.True(t, accepted.ManagedBy(manager.Login))

	res := f.store.residents[u1.Login]
	require.Equal(t, 2, res.RoomID, "BLOCK room goes first")
	require.Equal(t, 1, res.UniversityID)
	require.Equal(t, models.RoleResident, f.store.users[u1.Login].Role)
	require.Len(t, f.store.events, 1)
	require.Equal(t, models.EventOccupation, f.store.events[0].Type)
	require.Equal(t, now, f.store.events[0].Timestamp)
	require.Equal(t, 2, *f.store.events[0].RoomID)
	require.Len(t, f.notifier.resolved, 1)
}

func TestAcceptOccupationFallsBackToAisle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.addResident("a", 1, 2)
	f.store.addResident("b", 1, 2)

	bid, err := f.m.Create(ctx, u1, occupation(1, 1))
	require.NoError(t, err)
	_, err = f.m.Accept(ctx, manager, bid.ID)
	require.NoError(t, err)
	require.Equal(t, 1, f.store.residents[u1.Login].RoomID)
}

func TestAcceptOccupationNoFreeRoomRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.addResident("a", 1, 1)
	f.store.addResident("b", 1, 1)
	f.store.addResident("c", 1, 2)
	f.store.addResident("d", 1, 2)

	bid, err := f.m.Create(ctx, u1, occupation(1, 1))
	require.NoError(t, err)

	_, err = f.m.Accept(ctx, manager, bid.ID)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindBadRequest))
	require.Equal(t, "No free room", err.Error())

	stored := f.store.bid(bid.ID)
	require.Equal(t, models.BidInProcess, stored.Status)
	require.Nil(t, stored.Manager)
	require.Equal(t, models.RoleNonResident, f.store.users[u1.Login].Role)
	require.Empty(t, f.store.events)
	require.Empty(t, f.notifier.resolved)
}

func TestAcceptNeverOverfillsRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.rooms = nil
	f.store.addRoom(7, 1, models.RoomBlock, 1)

	for _, login := range []string{"x", "y"} {
		f.store.addUser(login, models.RoleNonResident)
	}
	first, err := f.m.Create(ctx, models.User{Login: "x"}, occupation(1, 1))
	require.NoError(t, err)
	second, err := f.m.Create(ctx, models.User{Login: "y"}, occupation(1, 1))
	require.NoError(t, err)

	_, err = f.m.Accept(ctx, manager, first.ID)
	require.NoError(t, err)
	_, err = f.m.Accept(ctx, manager, second.ID)
	require.True(t, apperr.Is(err, apperr.KindBadRequest))
	require.Empty(t, f.store.overfilled())
}

func TestCreateDuplicateOpenBid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.m.Create(ctx, u1, occupation(1, 1))
	require.NoError(t, err)

	_, err = f.m.Create(ctx, u1, occupation(1, 1))
	require.True(t, apperr.Is(err, apperr.KindBadRequest))
	require.Len(t, f.store.bids, 1)
	require.Len(t, f.notifier.created, 1)
}

func TestCreateAfterDenyIsAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bid, err := f.m.Create(ctx, u1, occupation(1, 1))
	require.NoError(t, err)
	_, err = f.m.Deny(ctx, manager, bid.ID, "no")
	require.NoError(t, err)

	_, err = f.m.Create(ctx, u1, occupation(1, 1))
	require.NoError(t, err)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		req  bids.Request
		kind apperr.Kind
	}{
		{"unknown university", occupation(9, 1), apperr.KindNotFound},
		{"dormitory of another university", occupation(2, 1), apperr.KindBadRequest},
		{"no payload", bids.Request{Text: "x"}, apperr.KindBadRequest},
		{
			"room change with both fields",
			bids.Request{Payload: models.RoomChangePayload{RoomTo: intPtr(1), PreferType: ptr(models.RoomBlock)}},
			apperr.KindBadRequest,
		},
		{"room change with no fields", bids.Request{Payload: models.RoomChangePayload{}}, apperr.KindBadRequest},
		{"room change to missing room", bids.Request{Payload: models.RoomChangePayload{RoomTo: intPtr(99)}}, apperr.KindNotFound},
		{
			"departure in the past",
			bids.Request{Payload: models.DeparturePayload{DayFrom: models.NewDate(2024, 3, 1), DayTo: models.NewDate(2024, 3, 20)}},
			apperr.KindBadRequest,
		},
		{
			"departure too long",
			bids.Request{Payload: models.DeparturePayload{DayFrom: models.NewDate(2024, 3, 11), DayTo: models.NewDate(2024, 6, 1)}},
			apperr.KindBadRequest,
		},
		{
			"departure ends before start",
			bids.Request{Payload: models.DeparturePayload{DayFrom: models.NewDate(2024, 3, 20), DayTo: models.NewDate(2024, 3, 12)}},
			apperr.KindBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.m.Create(context.Background(), u1, tt.req)
			require.Error(t, err)
			require.Equal(t, tt.kind, apperr.KindOf(err))
			require.Empty(t, f.store.bids)
			require.Empty(t, f.notifier.created)
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestCreateDeparture(t *testing.T) {
	f := newFixture(t)
	f.store.addResident("r1", 1, 2)

	bid, err := f.m.Create(context.Background(), models.User{Login: "r1"}, bids.Request{
		Payload: models.DeparturePayload{DayFrom: models.NewDate(2024, 3, 10), DayTo: models.NewDate(2024, 3, 15)},
	})
	require.NoError(t, err)

	_, err = f.m.Accept(context.Background(), manager, bid.ID)
	require.NoError(t, err)
	require.Empty(t, f.store.events, "departure acceptance changes nothing but status")
	require.Equal(t, 2, f.store.residents["r1"].RoomID)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("pending bid returns to the queue", func(t *testing.T) {
		f := newFixture(t)
		bid, err := f.m.Create(ctx, u1, occupation(1, 1))
		require.NoError(t, err)
		_, err = f.m.Pend(ctx, manager, bid.ID, "fix text")
		require.NoError(t, err)
		require.Len(t, f.notifier.revision, 1)

		updated, err := f.m.Update(ctx, u1, bid.ID, bids.Request{
			Text:    "fixed",
			Payload: models.OccupationPayload{UniversityID: 1, DormitoryID: 1},
		})
		require.NoError(t, err)
		require.Equal(t, models.BidInProcess, updated.Status)
		require.Equal(t, "fixed", f.store.bid(bid.ID).Text)
		require.Len(t, f.notifier.created, 2)
	})

	t.Run("missing bid", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.m.Update(ctx, u1, 42, occupation(1, 1))
		require.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("not the sender", func(t *testing.T) {
		f := newFixture(t)
		bid, err := f.m.Create(ctx, u1, occupation(1, 1))
		require.NoError(t, err)
		_, err = f.m.Update(ctx, models.User{Login: "u2"}, bid.ID, occupation(1, 1))
		require.True(t, apperr.Is(err, apperr.KindForbidden))
	})

	t.Run("type mismatch", func(t *testing.T) {
		f := newFixture(t)
		bid, err := f.m.Create(ctx, u1, occupation(1, 1))
		require.NoError(t, err)
		_, err = f.m.Update(ctx, u1, bid.ID, bids.Request{Payload: models.EvictionPayload{}})
		require.True(t, apperr.Is(err, apperr.KindBadRequest))
	})

	t.Run("terminal bid", func(t *testing.T) {
		f := newFixture(t)
		bid, err := f.m.Create(ctx, u1, occupation(1, 1))
		require.NoError(t, err)
		_, err = f.m.Deny(ctx, manager, bid.ID, "no")
		require.NoError(t, err)
		_, err = f.m.Update(ctx, u1, bid.ID, occupation(1, 1))
		require.True(t, apperr.Is(err, apperr.KindBadRequest))
		require.Equal(t, models.BidDenied, f.store.bid(bid.ID).Status)
	})
}

func TestDenyTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bid, err := f.m.Create(ctx, u1, occupation(1, 1))
	require.NoError(t, err)

	denied, err := f.m.Deny(ctx, manager, bid.ID, "no rooms for you")
	require.NoError(t, err)
	require.Equal(t, models.BidDenied, denied.Status)
	require.Equal(t, "no rooms for you", *denied.Comment)

	_, err = f.m.Deny(ctx, manager, bid.ID, "again")
	require.True(t, apperr.Is(err, apperr.KindNotFound))
	require.Equal(t, "no rooms for you", *f.store.bid(bid.ID).Comment)
	require.Len(t, f.notifier.resolved, 1)
}

func TestResolveRequiresInProcess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bid, err := f.m.Create(ctx, u1, occupation(1, 1))
	require.NoError(t, err)
	_, err = f.m.Pend(ctx, manager, bid.ID, "more docs")
	require.NoError(t, err)

	_, err = f.m.Accept(ctx, manager, bid.ID)
	require.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = f.m.Deny(ctx, manager, bid.ID, "x")
	require.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = f.m.Accept(ctx, manager, 404)
	require.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestEvictionDeniesOpenBidsFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.addResident("r1", 1, 2)
	r1 := models.User{Login: "r1", Role: models.RoleResident}

	change, err := f.m.Create(ctx, r1, bids.Request{Payload: models.RoomChangePayload{PreferType: ptr(models.RoomAisle)}})
	require.NoError(t, err)
	pendedDeparture, err := f.m.Create(ctx, r1, bids.Request{
		Payload: models.DeparturePayload{DayFrom: models.NewDate(2024, 3, 11), DayTo: models.NewDate(2024, 3, 12)},
	})
	require.NoError(t, err)
	_, err = f.m.Pend(ctx, manager, pendedDeparture.ID, "dates?")
	require.NoError(t, err)
	eviction, err := f.m.Create(ctx, r1, bids.Request{Payload: models.EvictionPayload{}})
	require.NoError(t, err)
	f.store.ops = nil

	_, err = f.m.Accept(ctx, manager, eviction.ID)
	require.NoError(t, err)

	for _, id := range []int64{change.ID, pendedDeparture.ID} {
		b := f.store.bid(id)
		require.Equal(t, models.BidDenied, b.Status)
		require.Equal(t, bids.AutoDenyComment, *b.Comment)
	}
	require.Equal(t, models.BidAccepted, f.store.bid(eviction.ID).Status)
	require.Equal(t, models.RoleNonResident, f.store.users["r1"].Role)
	require.NotContains(t, f.store.residents, "r1")

	require.Equal(t, []string{
		"bid 3 ACCEPTED",
		"bid 1 DENIED",
		"bid 2 DENIED",
		"detach r1",
		"role r1 NON_RESIDENT",
		"event r1 EVICTION",
	}, f.store.ops)
	last := f.store.events[len(f.store.events)-1]
	require.Equal(t, 2, *last.RoomID)
	require.Len(t, f.notifier.resolved, 3)
}

func TestEvictResidentByManager(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.m.EvictResident(ctx, manager, "ghost")
	require.True(t, apperr.Is(err, apperr.KindNotFound))

	f.store.addResident("r1", 1, 1)
	require.NoError(t, f.m.EvictResident(ctx, manager, "r1"))
	require.Equal(t, models.RoleNonResident, f.store.users["r1"].Role)
	require.Equal(t, models.EventEviction, f.store.events[0].Type)
}

func TestAcceptRoomChange(t *testing.T) {
	ctx := context.Background()
	r1 := models.User{Login: "r1", Role: models.RoleResident}

	t.Run("explicit target", func(t *testing.T) {
		f := newFixture(t)
		f.store.addResident("r1", 1, 2)
		bid, err := f.m.Create(ctx, r1, bids.Request{Payload: models.RoomChangePayload{RoomTo: intPtr(1)}})
		require.NoError(t, err)

		_, err = f.m.Accept(ctx, manager, bid.ID)
		require.NoError(t, err)
		require.Equal(t, 1, f.store.residents["r1"].RoomID)
		require.Equal(t, models.EventRoomChange, f.store.events[0].Type)
	})

	t.Run("explicit target filled since creation", func(t *testing.T) {
		f := newFixture(t)
		f.store.addResident("r1", 1, 2)
		bid, err := f.m.Create(ctx, r1, bids.Request{Payload: models.RoomChangePayload{RoomTo: intPtr(1)}})
		require.NoError(t, err)
		f.store.addResident("a", 1, 1)
		f.store.addResident("b", 1, 1)

		_, err = f.m.Accept(ctx, manager, bid.ID)
		require.True(t, apperr.Is(err, apperr.KindBadRequest))
		require.Equal(t, "Room is not free", err.Error())
		require.Equal(t, models.BidInProcess, f.store.bid(bid.ID).Status)
		require.Equal(t, 2, f.store.residents["r1"].RoomID)
	})

	t.Run("preferred type in current dormitory", func(t *testing.T) {
		f := newFixture(t)
		f.store.addRoom(3, 2, models.RoomAisle, 4)
		f.store.addResident("r1", 1, 2)
		bid, err := f.m.Create(ctx, r1, bids.Request{Payload: models.RoomChangePayload{PreferType: ptr(models.RoomAisle)}})
		require.NoError(t, err)

		_, err = f.m.Accept(ctx, manager, bid.ID)
		require.NoError(t, err)
		require.Equal(t, 1, f.store.residents["r1"].RoomID)
	})

	t.Run("no free room of preferred type", func(t *testing.T) {
		f := newFixture(t)
		f.store.addResident("r1", 1, 2)
		f.store.addResident("a", 1, 1)
		f.store.addResident("b", 1, 1)
		bid, err := f.m.Create(ctx, r1, bids.Request{Payload: models.RoomChangePayload{PreferType: ptr(models.RoomAisle)}})
		require.NoError(t, err)

		_, err = f.m.Accept(ctx, manager, bid.ID)
		require.True(t, apperr.Is(err, apperr.KindBadRequest))
		require.Equal(t, "No free room", err.Error())
	})
}

func TestGetVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bid, err := f.m.Create(ctx, u1, occupation(1, 1))
	require.NoError(t, err)

	_, err = f.m.Get(ctx, u1, bid.ID)
	require.NoError(t, err)
	_, err = f.m.Get(ctx, manager, bid.ID)
	require.NoError(t, err)
	_, err = f.m.Get(ctx, models.User{Login: "u2", Role: models.RoleNonResident}, bid.ID)
	require.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = f.m.Get(ctx, manager, 77)
	require.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestOneOpenBidPerSenderAndType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.addResident("r1", 1, 2)
	r1 := models.User{Login: "r1", Role: models.RoleResident}

	steps := []func() error{
		func() error {
			_, err := f.m.Create(ctx, r1, bids.Request{Payload: models.EvictionPayload{}})
			return err
		},
		func() error {
			_, err := f.m.Create(ctx, r1, bids.Request{Payload: models.EvictionPayload{}})
			return err
		},
		func() error { _, err := f.m.Pend(ctx, manager, 1, "why"); return err },
		func() error {
			_, err := f.m.Create(ctx, r1, bids.Request{Payload: models.EvictionPayload{}})
			return err
		},
		func() error { _, err := f.m.Update(ctx, r1, 1, bids.Request{Payload: models.EvictionPayload{}}); return err },
		func() error {
			_, err := f.m.Create(ctx, r1, bids.Request{Payload: models.EvictionPayload{}})
			return err
		},
	}
	for _, step := range steps {
		_ = step()
		open, err := f.store.BidsBySenderAndStatus(ctx, "r1", models.OpenStatuses...)
		require.NoError(t, err)
		require.LessOrEqual(t, len(open), 1)
	}
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.addResident("r1", 1, 2)
	r1 := models.User{Login: "r1", Role: models.RoleResident}
	other := "m2"

	f.store.putBid(models.Bid{Type: models.BidEviction, Status: models.BidInProcess, Sender: "r1", Manager: &other})
	f.store.putBid(models.Bid{Type: models.BidDeparture, Status: models.BidInProcess, Sender: "r1"})
	f.store.putBid(models.Bid{Type: models.BidRoomChange, Status: models.BidInProcess, Sender: "r1", Manager: &manager.Login})
	f.store.putBid(models.Bid{Type: models.BidOccupation, Status: models.BidAccepted, Sender: "r1"})
	f.store.putBid(models.Bid{Type: models.BidOccupation, Status: models.BidPendingRevision, Sender: "u1"})

	queue, err := f.m.InProcess(ctx, manager)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 2, 1}, ids(queue))

	pending, err := f.m.Pending(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{5}, ids(pending))

	archived, err := f.m.Archived(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{4}, ids(archived))

	mine, err := f.m.SelfBids(ctx, r1)
	require.NoError(t, err)
	require.Equal(t, []int64{4, 3, 2, 1}, ids(mine))

	types, err := f.m.OpenTypes(ctx, r1)
	require.NoError(t, err)
	require.Equal(t, []models.BidType{models.BidDeparture, models.BidEviction, models.BidRoomChange}, types)
}

func ids(list []models.Bid) []int64 {
	out := make([]int64, len(list))
	for i, b := range list {
		out[i] = b.ID
	}
	return out
}
