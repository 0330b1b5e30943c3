package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format of stay dates.
const DateLayout = "2006-01-02"

// RoomStatusAvailable marks a room that can be offered to guests.
const RoomStatusAvailable = "available"

// Room is reference data read by price and availability lookups.
type Room struct {
	ID            uint            `json:"id"`
	Name          string          `json:"name"`
	Capacity      int             `json:"capacity"`
	PricePerNight decimal.Decimal `json:"price_per_night"`
	Status        string          `json:"status"`
}

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation is a booked stay.
type Reservation struct {
	ID            uint              `json:"id"`
	ReferenceCode string            `json:"reference_code"`
	RoomID        uint              `json:"room_id"`
	FullName      string            `json:"full_name"`
	Phone         string            `json:"phone"`
	Email         string            `json:"email"`
	CheckIn       string            `json:"check_in"`
	CheckOut      string            `json:"check_out"`
	Guests        int               `json:"guests"`
	Notes         string            `json:"notes,omitempty"`
	Status        ReservationStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Nights returns the number of nights of the stay.
func (r Reservation) Nights() int {
	return Nights(r.CheckIn, r.CheckOut)
}

// NewReservation carries the validated fields of a reservation to insert.
type NewReservation struct {
	RoomID   uint
	FullName string
	Phone    string
	Email    string
	CheckIn  string
	CheckOut string
	Guests   int
	Notes    string
}

// ReservationPatch is a partial update; nil fields are left unchanged.
type ReservationPatch struct {
	RoomID   *uint
	CheckIn  *string
	CheckOut *string
	Guests   *int
	FullName *string
	Phone    *string
	Email    *string
	Notes    *string
}

// Empty reports whether the patch changes nothing.
func (p ReservationPatch) Empty() bool {
	return p.RoomID == nil && p.CheckIn == nil && p.CheckOut == nil && p.Guests == nil &&
		p.FullName == nil && p.Phone == nil && p.Email == nil && p.Notes == nil
}

// TouchesAvailability reports whether the patch requires an availability re-check.
func (p ReservationPatch) TouchesAvailability() bool {
	return p.RoomID != nil || p.CheckIn != nil || p.CheckOut != nil || p.Guests != nil
}

// Apply returns a copy of r with the patch applied.
func (p ReservationPatch) Apply(r Reservation) Reservation {
	if p.RoomID != nil {
		r.RoomID = *p.RoomID
	}
	if p.CheckIn != nil {
		r.CheckIn = *p.CheckIn
	}
	if p.CheckOut != nil {
		r.CheckOut = *p.CheckOut
	}
	if p.Guests != nil {
		r.Guests = *p.Guests
	}
	if p.FullName != nil {
		r.FullName = *p.FullName
	}
	if p.Phone != nil {
		r.Phone = *p.Phone
	}
	if p.Email != nil {
		r.Email = *p.Email
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	return r
}

// ReferenceCode formats the human readable code for a reservation id.
func ReferenceCode(id uint) string {
	return fmt.Sprintf("RSV-%06d", id)
}

// Overlaps reports whether two half-open stays [in, out) intersect.
// Dates must be in DateLayout; lexical order equals chronological order.
func Overlaps(in1, out1, in2, out2 string) bool {
	return in1 < out2 && in2 < out1
}

// Nights counts the nights between two DateLayout dates, or 0 if unparsable.
func Nights(checkIn, checkOut string) int {
	in, err := time.Parse(DateLayout, checkIn)
	if err != nil {
		return 0
	}
	out, err := time.Parse(DateLayout, checkOut)
	if err != nil {
		return 0
	}
	return int(out.Sub(in).Hours() / 24)
}
