package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/capitalize-ai/reservation-assistant/internal/model"
	"github.com/capitalize-ai/reservation-assistant/pkg/logger"
)

type roomRow struct {
	ID            uint            `gorm:"primaryKey"`
	Name          string          `gorm:"size:191;not null"`
	Capacity      int             `gorm:"not null"`
	PricePerNight decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Status        string          `gorm:"size:32;not null;default:available"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (roomRow) TableName() string { return "rooms" }

type reservationRow struct {
	ID uint `gorm:"primaryKey"`
	// ReferenceCode is NULL between insert and code assignment in the same transaction.
	ReferenceCode *string `gorm:"size:32;uniqueIndex"`
	RoomID        uint    `gorm:"not null;index:idx_reservations_room_status,priority:1"`
	FullName      string  `gorm:"size:191;not null"`
	Phone         string  `gorm:"size:64;not null"`
	Email         string  `gorm:"size:191;not null"`
	CheckIn       string  `gorm:"size:10;not null"`
	CheckOut      string  `gorm:"size:10;not null"`
	Guests        int     `gorm:"not null"`
	Notes         string  `gorm:"type:text"`
	Status        string  `gorm:"size:16;not null;index:idx_reservations_room_status,priority:2"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (reservationRow) TableName() string { return "reservations" }

// GormStore implements Store on sqlite or postgres.
type GormStore struct {
	db     *gorm.DB
	logger *logger.Logger
	// writeMu serializes writers inside this process; postgres additionally
	// takes a row lock on the room so separate processes serialize too.
	writeMu sync.Mutex
}

// NewGormStore migrates the schema and returns a ready store.
func NewGormStore(db *gorm.DB, log *logger.Logger) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("gorm db is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	if err := db.AutoMigrate(&roomRow{}, &reservationRow{}); err != nil {
		return nil, fmt.Errorf("migrate reservation schema: %w", err)
	}
	return &GormStore{db: db, logger: log.With(zap.String("component", "store"))}, nil
}

func (s *GormStore) ListRooms(ctx context.Context) ([]model.Room, error) {
	var rows []roomRow
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return toRooms(rows), nil
}

func (s *GormStore) GetRoom(ctx context.Context, id uint) (model.Room, error) {
	return getRoom(s.db.WithContext(ctx), id, false)
}

func (s *GormStore) FindAvailable(ctx context.Context, checkIn, checkOut string, guests int) ([]model.Room, error) {
	busy := s.db.Model(&reservationRow{}).
		Select("room_id").
		Where("status = ? AND check_in < ? AND ? < check_out", string(model.ReservationActive), checkOut, checkIn)

	var rows []roomRow
	err := s.db.WithContext(ctx).
		Where("status = ? AND capacity >= ?", model.RoomStatusAvailable, guests).
		Where("id NOT IN (?)", busy).
		Order("price_per_night ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find available rooms: %w", err)
	}
	return toRooms(rows), nil
}

func (s *GormStore) InsertReservation(ctx context.Context, in model.NewReservation) (model.Reservation, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var out reservationRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := getRoom(tx, in.RoomID, true)
		if err != nil {
			return err
		}
		if err := checkRoomFor(room, in.Guests); err != nil {
			return err
		}
		if err := checkOverlap(tx, in.RoomID, in.CheckIn, in.CheckOut, 0); err != nil {
			return err
		}

		row := reservationRow{
			RoomID:   in.RoomID,
			FullName: in.FullName,
			Phone:    in.Phone,
			Email:    in.Email,
			CheckIn:  in.CheckIn,
			CheckOut: in.CheckOut,
			Guests:   in.Guests,
			Notes:    in.Notes,
			Status:   string(model.ReservationActive),
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		code := model.ReferenceCode(row.ID)
		if err := tx.Model(&row).Update("reference_code", code).Error; err != nil {
			return fmt.Errorf("assign reference code: %w", err)
		}
		row.ReferenceCode = &code
		out = row
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}

	s.logger.Info("Reservation created",
		zap.String("reference_code", *out.ReferenceCode),
		zap.Uint("room_id", out.RoomID),
		zap.String("check_in", out.CheckIn),
		zap.String("check_out", out.CheckOut),
	)
	return toReservation(out), nil
}

func (s *GormStore) GetReservation(ctx context.Context, idOrRef string) (model.Reservation, error) {
	id, err := ParseReference(idOrRef)
	if err != nil {
		return model.Reservation{}, err
	}
	row, err := getReservation(s.db.WithContext(ctx), id)
	if err != nil {
		return model.Reservation{}, err
	}
	return toReservation(row), nil
}

func (s *GormStore) CancelReservation(ctx context.Context, idOrRef string) (model.Reservation, error) {
	id, err := ParseReference(idOrRef)
	if err != nil {
		return model.Reservation{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var out reservationRow
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := getReservation(tx, id)
		if err != nil {
			return err
		}
		if row.Status == string(model.ReservationCancelled) {
			return fmt.Errorf("reservation %d: %w", id, model.ErrAlreadyCancelled)
		}
		if err := tx.Model(&row).Update("status", string(model.ReservationCancelled)).Error; err != nil {
			return fmt.Errorf("cancel reservation: %w", err)
		}
		row.Status = string(model.ReservationCancelled)
		out = row
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}
	return toReservation(out), nil
}

func (s *GormStore) UpdateReservation(ctx context.Context, idOrRef string, patch model.ReservationPatch) (model.Reservation, error) {
	id, err := ParseReference(idOrRef)
	if err != nil {
		return model.Reservation{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var out model.Reservation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := getReservation(tx, id)
		if err != nil {
			return err
		}
		if row.Status == string(model.ReservationCancelled) {
			return fmt.Errorf("reservation %d: %w", id, model.ErrAlreadyCancelled)
		}

		next := patch.Apply(toReservation(row))
		if patch.TouchesAvailability() {
			room, err := getRoom(tx, next.RoomID, true)
			if err != nil {
				return err
			}
			if err := checkRoomFor(room, next.Guests); err != nil {
				return err
			}
			if err := checkOverlap(tx, next.RoomID, next.CheckIn, next.CheckOut, row.ID); err != nil {
				return err
			}
		}

		err = tx.Model(&row).Updates(map[string]any{
			"room_id":   next.RoomID,
			"full_name": next.FullName,
			"phone":     next.Phone,
			"email":     next.Email,
			"check_in":  next.CheckIn,
			"check_out": next.CheckOut,
			"guests":    next.Guests,
			"notes":     next.Notes,
		}).Error
		if err != nil {
			return fmt.Errorf("update reservation: %w", err)
		}
		out = next
		out.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}
	return out, nil
}

func (s *GormStore) SeedRooms(ctx context.Context, rooms []model.Room) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&roomRow{}).Count(&count).Error; err != nil {
			return fmt.Errorf("count rooms: %w", err)
		}
		if count > 0 || len(rooms) == 0 {
			return nil
		}
		rows := make([]roomRow, 0, len(rooms))
		for _, r := range rooms {
			status := r.Status
			if status == "" {
				status = model.RoomStatusAvailable
			}
			rows = append(rows, roomRow{
				ID:            r.ID,
				Name:          r.Name,
				Capacity:      r.Capacity,
				PricePerNight: r.PricePerNight,
				Status:        status,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("seed rooms: %w", err)
		}
		s.logger.Info("Seeded rooms", zap.Int("count", len(rows)))
		return nil
	})
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func getRoom(db *gorm.DB, id uint, lock bool) (model.Room, error) {
	if lock && db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row roomRow
	if err := db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Room{}, fmt.Errorf("room %d: %w", id, model.ErrNotFound)
		}
		return model.Room{}, fmt.Errorf("get room: %w", err)
	}
	return toRoom(row), nil
}

func getReservation(db *gorm.DB, id uint) (reservationRow, error) {
	var row reservationRow
	if err := db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reservationRow{}, fmt.Errorf("reservation %d: %w", id, model.ErrNotFound)
		}
		return reservationRow{}, fmt.Errorf("get reservation: %w", err)
	}
	return row, nil
}

func checkOverlap(tx *gorm.DB, roomID uint, checkIn, checkOut string, exclude uint) error {
	q := tx.Model(&reservationRow{}).
		Where("room_id = ? AND status = ?", roomID, string(model.ReservationActive)).
		Where("check_in < ? AND ? < check_out", checkOut, checkIn)
	if exclude != 0 {
		q = q.Where("id <> ?", exclude)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("room %d between %s and %s: %w", roomID, checkIn, checkOut, model.ErrConflict)
	}
	return nil
}

func toRoom(r roomRow) model.Room {
	return model.Room{
		ID:            r.ID,
		Name:          r.Name,
		Capacity:      r.Capacity,
		PricePerNight: r.PricePerNight,
		Status:        r.Status,
	}
}

func toRooms(rows []roomRow) []model.Room {
	rooms := make([]model.Room, 0, len(rows))
	for _, r := range rows {
		rooms = append(rooms, toRoom(r))
	}
	return rooms
}

func toReservation(r reservationRow) model.Reservation {
	res := model.Reservation{
		ID:        r.ID,
		RoomID:    r.RoomID,
		FullName:  r.FullName,
		Phone:     r.Phone,
		Email:     r.Email,
		CheckIn:   r.CheckIn,
		CheckOut:  r.CheckOut,
		Guests:    r.Guests,
		Notes:     r.Notes,
		Status:    model.ReservationStatus(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.ReferenceCode != nil {
		res.ReferenceCode = *r.ReferenceCode
	} else {
		res.ReferenceCode = model.ReferenceCode(r.ID)
	}
	return res
}
