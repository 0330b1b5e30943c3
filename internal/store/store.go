// Package store persists rooms and reservations behind a swappable interface.
package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/capitalize-ai/reservation-assistant/internal/model"
	"github.com/capitalize-ai/reservation-assistant/pkg/logger"
)

// Store is the reservation persistence contract used by the tool dispatcher.
//
// Write operations are atomic per reservation: two concurrent inserts or
// updates that would overlap on the same room cannot both succeed.
type Store interface {
	// ListRooms returns every room ordered by id.
	ListRooms(ctx context.Context) ([]model.Room, error)

	// GetRoom returns a room or model.ErrNotFound.
	GetRoom(ctx context.Context, id uint) (model.Room, error)

	// FindAvailable returns bookable rooms with enough capacity and no
	// active reservation overlapping [checkIn, checkOut).
	FindAvailable(ctx context.Context, checkIn, checkOut string, guests int) ([]model.Room, error)

	// InsertReservation re-checks availability and inserts an active reservation.
	InsertReservation(ctx context.Context, in model.NewReservation) (model.Reservation, error)

	// GetReservation resolves a numeric id or RSV-XXXXXX reference, including cancelled ones.
	GetReservation(ctx context.Context, idOrRef string) (model.Reservation, error)

	// CancelReservation flips the status to cancelled without deleting the row.
	CancelReservation(ctx context.Context, idOrRef string) (model.Reservation, error)

	// UpdateReservation applies a patch, re-checking availability when the stay changes.
	UpdateReservation(ctx context.Context, idOrRef string, patch model.ReservationPatch) (model.Reservation, error)

	// SeedRooms inserts rooms when none exist yet.
	SeedRooms(ctx context.Context, rooms []model.Room) error

	Ping(ctx context.Context) error
	Close() error
}

// ParseReference turns "42", "RSV-000042" or "rsv-42" into a reservation id.
func ParseReference(idOrRef string) (uint, error) {
	raw := strings.ToUpper(strings.TrimSpace(idOrRef))
	raw = strings.TrimPrefix(raw, "#")
	raw = strings.TrimPrefix(raw, "RSV-")
	raw = strings.TrimPrefix(raw, "RSV")
	if raw == "" {
		return 0, fmt.Errorf("invalid reservation reference %q: %w", idOrRef, model.ErrNotFound)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid reservation reference %q: %w", idOrRef, model.ErrNotFound)
	}
	return uint(id), nil
}

// DefaultRooms is the seed catalog used when the rooms table is empty.
func DefaultRooms() []model.Room {
	return []model.Room{
		{Name: "Standart Oda", Capacity: 2, PricePerNight: decimal.NewFromInt(1500), Status: model.RoomStatusAvailable},
		{Name: "Deluxe Oda", Capacity: 3, PricePerNight: decimal.NewFromInt(2200), Status: model.RoomStatusAvailable},
		{Name: "Aile Odası", Capacity: 4, PricePerNight: decimal.NewFromInt(2800), Status: model.RoomStatusAvailable},
		{Name: "Suit", Capacity: 2, PricePerNight: decimal.NewFromInt(4000), Status: model.RoomStatusAvailable},
	}
}

// checkRoomFor verifies that a room can host the stay, apart from overlaps.
func checkRoomFor(room model.Room, guests int) error {
	if room.Status != model.RoomStatusAvailable {
		return fmt.Errorf("room %d is %s: %w", room.ID, room.Status, model.ErrConflict)
	}
	if guests > room.Capacity {
		return fmt.Errorf("room %d holds %d guests, %d requested: %w", room.ID, room.Capacity, guests, model.ErrCapacity)
	}
	return nil
}

// Open builds the Store selected by driver: "memory", "sqlite" or "postgres".
func Open(driver, dsn string, log *logger.Logger) (Store, error) {
	if strings.EqualFold(strings.TrimSpace(driver), "memory") {
		return NewMemoryStore(), nil
	}
	db, err := OpenGorm(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return NewGormStore(db, log)
}
