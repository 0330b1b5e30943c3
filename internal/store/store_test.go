package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/reservation-assistant/internal/model"
	"github.com/capitalize-ai/reservation-assistant/pkg/logger"
)

func testRooms() []model.Room {
	return []model.Room{
		{ID: 1, Name: "Standard", Capacity: 2, PricePerNight: decimal.NewFromInt(1500), Status: model.RoomStatusAvailable},
		{ID: 2, Name: "Family", Capacity: 4, PricePerNight: decimal.NewFromInt(2800), Status: model.RoomStatusAvailable},
		{ID: 3, Name: "Attic", Capacity: 2, PricePerNight: decimal.NewFromInt(900), Status: "maintenance"},
	}
}

func newGormTestStore(t *testing.T) Store {
	t.Helper()
	db, err := OpenGorm("sqlite", filepath.Join(t.TempDir(), "nested", "reservations.db"))
	require.NoError(t, err)
	s, err := NewGormStore(db, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newMemoryTestStore(t *testing.T) Store {
	t.Helper()
	return NewMemoryStore()
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()
	impls := map[string]func(*testing.T) Store{
		"gorm":   newGormTestStore,
		"memory": newMemoryTestStore,
	}
	for name, build := range impls {
		t.Run(name, func(t *testing.T) {
			s := build(t)
			require.NoError(t, s.SeedRooms(context.Background(), testRooms()))
			fn(t, s)
		})
	}
}

func booking(roomID uint, in, out string, guests int) model.NewReservation {
	return model.NewReservation{
		RoomID:   roomID,
		FullName: "Ayse Yilmaz",
		Phone:    "+90 555 123 45 67",
		Email:    "ayse@example.com",
		CheckIn:  in,
		CheckOut: out,
		Guests:   guests,
	}
}

func TestParseReference(t *testing.T) {
	cases := map[string]uint{
		"42":         42,
		" 42 ":       42,
		"RSV-000042": 42,
		"rsv-000042": 42,
		"RSV42":      42,
		"#7":         7,
	}
	for in, want := range cases {
		got, err := ParseReference(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "RSV-", "abc", "0", "-3", "RSV-12x"} {
		_, err := ParseReference(bad)
		assert.ErrorIs(t, err, model.ErrNotFound, bad)
	}
}

func TestStore_SeedIsIdempotent(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.SeedRooms(ctx, DefaultRooms()))

		rooms, err := s.ListRooms(ctx)
		require.NoError(t, err)
		require.Len(t, rooms, 3)
		assert.Equal(t, "Standard", rooms[0].Name)
		assert.True(t, rooms[1].PricePerNight.Equal(decimal.NewFromInt(2800)))
	})
}

func TestStore_FindAvailable(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		rooms, err := s.FindAvailable(ctx, "2026-05-10", "2026-05-12", 2)
		require.NoError(t, err)
		require.Len(t, rooms, 2, "maintenance room is never offered")
		assert.Equal(t, uint(1), rooms[0].ID)

		rooms, err = s.FindAvailable(ctx, "2026-05-10", "2026-05-12", 3)
		require.NoError(t, err)
		require.Len(t, rooms, 1)
		assert.Equal(t, uint(2), rooms[0].ID)

		_, err = s.InsertReservation(ctx, booking(1, "2026-05-10", "2026-05-12", 2))
		require.NoError(t, err)

		rooms, err = s.FindAvailable(ctx, "2026-05-11", "2026-05-13", 2)
		require.NoError(t, err)
		require.Len(t, rooms, 1)
		assert.Equal(t, uint(2), rooms[0].ID)

		// Checkout day is free for the next arrival.
		rooms, err = s.FindAvailable(ctx, "2026-05-12", "2026-05-14", 2)
		require.NoError(t, err)
		assert.Len(t, rooms, 2)
	})
}

func TestStore_InsertAndGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		res, err := s.InsertReservation(ctx, booking(2, "2026-06-01", "2026-06-04", 3))
		require.NoError(t, err)
		assert.Equal(t, model.ReferenceCode(res.ID), res.ReferenceCode)
		assert.Equal(t, model.ReservationActive, res.Status)
		assert.Equal(t, 3, res.Nights())

		byRef, err := s.GetReservation(ctx, res.ReferenceCode)
		require.NoError(t, err)
		assert.Equal(t, res.ID, byRef.ID)
		assert.Equal(t, res.ReferenceCode, byRef.ReferenceCode)

		byID, err := s.GetReservation(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, "ayse@example.com", byID.Email)

		_, err = s.GetReservation(ctx, "RSV-000999")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestStore_InsertRejections(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.InsertReservation(ctx, booking(99, "2026-06-01", "2026-06-02", 1))
		assert.ErrorIs(t, err, model.ErrNotFound)

		_, err = s.InsertReservation(ctx, booking(1, "2026-06-01", "2026-06-02", 3))
		assert.ErrorIs(t, err, model.ErrCapacity)

		_, err = s.InsertReservation(ctx, booking(3, "2026-06-01", "2026-06-02", 1))
		assert.ErrorIs(t, err, model.ErrConflict)

		_, err = s.InsertReservation(ctx, booking(1, "2026-06-01", "2026-06-05", 2))
		require.NoError(t, err)
		_, err = s.InsertReservation(ctx, booking(1, "2026-06-03", "2026-06-04", 1))
		assert.ErrorIs(t, err, model.ErrConflict)
	})
}

func TestStore_CancelThenGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		res, err := s.InsertReservation(ctx, booking(1, "2026-07-01", "2026-07-03", 2))
		require.NoError(t, err)

		cancelled, err := s.CancelReservation(ctx, res.ReferenceCode)
		require.NoError(t, err)
		assert.Equal(t, model.ReservationCancelled, cancelled.Status)

		got, err := s.GetReservation(ctx, res.ReferenceCode)
		require.NoError(t, err)
		assert.Equal(t, model.ReservationCancelled, got.Status)

		_, err = s.CancelReservation(ctx, res.ReferenceCode)
		assert.ErrorIs(t, err, model.ErrAlreadyCancelled)

		// A cancelled stay frees the room.
		_, err = s.InsertReservation(ctx, booking(1, "2026-07-01", "2026-07-03", 2))
		assert.NoError(t, err)
	})
}

func TestStore_UpdateGuestsOnly(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		res, err := s.InsertReservation(ctx, booking(2, "2026-08-01", "2026-08-05", 2))
		require.NoError(t, err)

		guests := 4
		updated, err := s.UpdateReservation(ctx, res.ReferenceCode, model.ReservationPatch{Guests: &guests})
		require.NoError(t, err)
		assert.Equal(t, 4, updated.Guests)

		got, err := s.GetReservation(ctx, res.ReferenceCode)
		require.NoError(t, err)
		assert.Equal(t, 4, got.Guests)
		assert.Equal(t, res.CheckIn, got.CheckIn)
		assert.Equal(t, res.CheckOut, got.CheckOut)
		assert.Equal(t, res.RoomID, got.RoomID)
		assert.Equal(t, model.ReservationActive, got.Status)
		assert.Equal(t, res.ReferenceCode, got.ReferenceCode)
	})
}

func TestStore_UpdateRechecksAvailability(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		first, err := s.InsertReservation(ctx, booking(1, "2026-09-01", "2026-09-03", 2))
		require.NoError(t, err)
		second, err := s.InsertReservation(ctx, booking(1, "2026-09-05", "2026-09-07", 2))
		require.NoError(t, err)

		// Moving within its own window never conflicts with itself.
		out := "2026-09-04"
		_, err = s.UpdateReservation(ctx, first.ReferenceCode, model.ReservationPatch{CheckOut: &out})
		require.NoError(t, err)

		in := "2026-09-03"
		_, err = s.UpdateReservation(ctx, second.ReferenceCode, model.ReservationPatch{CheckIn: &in})
		assert.ErrorIs(t, err, model.ErrConflict)

		guests := 5
		_, err = s.UpdateReservation(ctx, second.ReferenceCode, model.ReservationPatch{Guests: &guests})
		assert.ErrorIs(t, err, model.ErrCapacity)

		email := "new@example.com"
		updated, err := s.UpdateReservation(ctx, second.ReferenceCode, model.ReservationPatch{Email: &email})
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", updated.Email)

		_, err = s.CancelReservation(ctx, second.ReferenceCode)
		require.NoError(t, err)
		_, err = s.UpdateReservation(ctx, second.ReferenceCode, model.ReservationPatch{Email: &email})
		assert.ErrorIs(t, err, model.ErrAlreadyCancelled)
	})
}

func TestStore_ConcurrentConflictingInserts(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		const attempts = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.InsertReservation(ctx, booking(1, "2026-10-10", "2026-10-12", 2))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case assert.ErrorIs(t, err, model.ErrConflict):
					conflicts++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, attempts-1, conflicts)
	})
}

func TestOpen(t *testing.T) {
	s, err := Open("memory", "", logger.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open("oracle", "dsn", logger.NewNop())
	assert.Error(t, err)

	_, err = Open("postgres", "", logger.NewNop())
	assert.Error(t, err)
}

func TestSQLiteFilePath(t *testing.T) {
	path, ok := sqliteFilePath("data/app.db?_pragma=foreign_keys(1)")
	assert.True(t, ok)
	assert.Equal(t, "data/app.db", path)

	_, ok = sqliteFilePath(":memory:")
	assert.False(t, ok)

	_, ok = sqliteFilePath("file:test.db?mode=memory")
	assert.False(t, ok)

	assert.Equal(t, "a.db?x=1&_pragma=busy_timeout(5000)", withBusyTimeout("a.db?x=1"))
	assert.Equal(t, "a.db?_pragma=busy_timeout(5000)", withBusyTimeout("a.db"))
}
