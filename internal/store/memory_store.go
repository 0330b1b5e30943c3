package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/capitalize-ai/reservation-assistant/internal/model"
)

// MemoryStore is an in-process Store used by tests and DB_DRIVER=memory.
type MemoryStore struct {
	rooms        map[uint]model.Room
	reservations map[uint]model.Reservation
	nextRoomID   uint
	nextResID    uint
	mu           sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:        make(map[uint]model.Room),
		reservations: make(map[uint]model.Reservation),
		nextRoomID:   1,
		nextResID:    1,
	}
}

func (s *MemoryStore) ListRooms(ctx context.Context) ([]model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]model.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}

func (s *MemoryStore) GetRoom(ctx context.Context, id uint) (model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return model.Room{}, fmt.Errorf("room %d: %w", id, model.ErrNotFound)
	}
	return room, nil
}

func (s *MemoryStore) FindAvailable(ctx context.Context, checkIn, checkOut string, guests int) ([]model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rooms []model.Room
	for _, room := range s.rooms {
		if checkRoomFor(room, guests) != nil {
			continue
		}
		if s.overlapLocked(room.ID, checkIn, checkOut, 0) {
			continue
		}
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool {
		if c := rooms[i].PricePerNight.Cmp(rooms[j].PricePerNight); c != 0 {
			return c < 0
		}
		return rooms[i].ID < rooms[j].ID
	})
	return rooms, nil
}

func (s *MemoryStore) InsertReservation(ctx context.Context, in model.NewReservation) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[in.RoomID]
	if !ok {
		return model.Reservation{}, fmt.Errorf("room %d: %w", in.RoomID, model.ErrNotFound)
	}
	if err := checkRoomFor(room, in.Guests); err != nil {
		return model.Reservation{}, err
	}
	if s.overlapLocked(in.RoomID, in.CheckIn, in.CheckOut, 0) {
		return model.Reservation{}, fmt.Errorf("room %d between %s and %s: %w", in.RoomID, in.CheckIn, in.CheckOut, model.ErrConflict)
	}

	now := time.Now().UTC()
	id := s.nextResID
	s.nextResID++
	res := model.Reservation{
		ID:            id,
		ReferenceCode: model.ReferenceCode(id),
		RoomID:        in.RoomID,
		FullName:      in.FullName,
		Phone:         in.Phone,
		Email:         in.Email,
		CheckIn:       in.CheckIn,
		CheckOut:      in.CheckOut,
		Guests:        in.Guests,
		Notes:         in.Notes,
		Status:        model.ReservationActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.reservations[id] = res
	return res, nil
}

func (s *MemoryStore) GetReservation(ctx context.Context, idOrRef string) (model.Reservation, error) {
	id, err := ParseReference(idOrRef)
	if err != nil {
		return model.Reservation{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.reservations[id]
	if !ok {
		return model.Reservation{}, fmt.Errorf("reservation %d: %w", id, model.ErrNotFound)
	}
	return res, nil
}

func (s *MemoryStore) CancelReservation(ctx context.Context, idOrRef string) (model.Reservation, error) {
	id, err := ParseReference(idOrRef)
	if err != nil {
		return model.Reservation{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[id]
	if !ok {
		return model.Reservation{}, fmt.Errorf("reservation %d: %w", id, model.ErrNotFound)
	}
	if res.Status == model.ReservationCancelled {
		return model.Reservation{}, fmt.Errorf("reservation %d: %w", id, model.ErrAlreadyCancelled)
	}
	res.Status = model.ReservationCancelled
	res.UpdatedAt = time.Now().UTC()
	s.reservations[id] = res
	return res, nil
}

func (s *MemoryStore) UpdateReservation(ctx context.Context, idOrRef string, patch model.ReservationPatch) (model.Reservation, error) {
	id, err := ParseReference(idOrRef)
	if err != nil {
		return model.Reservation{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[id]
	if !ok {
		return model.Reservation{}, fmt.Errorf("reservation %d: %w", id, model.ErrNotFound)
	}
	if res.Status == model.ReservationCancelled {
		return model.Reservation{}, fmt.Errorf("reservation %d: %w", id, model.ErrAlreadyCancelled)
	}

	next := patch.Apply(res)
	if patch.TouchesAvailability() {
		room, ok := s.rooms[next.RoomID]
		if !ok {
			return model.Reservation{}, fmt.Errorf("room %d: %w", next.RoomID, model.ErrNotFound)
		}
		if err := checkRoomFor(room, next.Guests); err != nil {
			return model.Reservation{}, err
		}
		if s.overlapLocked(next.RoomID, next.CheckIn, next.CheckOut, id) {
			return model.Reservation{}, fmt.Errorf("room %d between %s and %s: %w", next.RoomID, next.CheckIn, next.CheckOut, model.ErrConflict)
		}
	}
	next.UpdatedAt = time.Now().UTC()
	s.reservations[id] = next
	return next, nil
}

func (s *MemoryStore) SeedRooms(ctx context.Context, rooms []model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.rooms) > 0 {
		return nil
	}
	for _, r := range rooms {
		if r.ID == 0 {
			r.ID = s.nextRoomID
		}
		if r.Status == "" {
			r.Status = model.RoomStatusAvailable
		}
		s.rooms[r.ID] = r
		if r.ID >= s.nextRoomID {
			s.nextRoomID = r.ID + 1
		}
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// overlapLocked must be called with mu held.
func (s *MemoryStore) overlapLocked(roomID uint, checkIn, checkOut string, exclude uint) bool {
	for _, r := range s.reservations {
		if r.ID == exclude || r.RoomID != roomID || r.Status != model.ReservationActive {
			continue
		}
		if model.Overlaps(checkIn, checkOut, r.CheckIn, r.CheckOut) {
			return true
		}
	}
	return false
}
