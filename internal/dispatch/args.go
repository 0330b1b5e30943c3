package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/invopop/jsonschema"
)

// Tool names exposed to the model.
const (
	ToolGetRoomPrices     = "get_room_prices"
	ToolCheckAvailability = "check_availability"
	ToolCreateReservation = "create_reservation"
	ToolGetReservation    = "get_reservation"
	ToolCancelReservation = "cancel_reservation"
	ToolUpdateReservation = "update_reservation"
)

// ReservationID accepts 42, "42" or "RSV-000042".
type ReservationID string

func (r *ReservationID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = ReservationID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("reservation_id must be a number or a reference code")
	}
	if _, err := strconv.ParseUint(n.String(), 10, 64); err != nil {
		return fmt.Errorf("reservation_id must be a positive integer")
	}
	*r = ReservationID(n.String())
	return nil
}

// JSONSchema describes the accepted forms to the model.
func (ReservationID) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: "Reservation reference code such as RSV-000042, or the numeric id",
	}
}

// GetRoomPricesArgs takes no arguments.
type GetRoomPricesArgs struct{}

// CheckAvailabilityArgs are the arguments of check_availability.
type CheckAvailabilityArgs struct {
	CheckIn  string `json:"check_in" jsonschema:"description=Check-in date in YYYY-MM-DD" validate:"required"`
	CheckOut string `json:"check_out" jsonschema:"description=Check-out date in YYYY-MM-DD; must be after check_in" validate:"required"`
	Guests   *int   `json:"guests,omitempty" jsonschema:"description=Number of guests,minimum=1,maximum=20" validate:"omitempty,min=1,max=20"`
}

// CreateReservationArgs are the arguments of create_reservation.
type CreateReservationArgs struct {
	FullName string `json:"full_name" jsonschema:"description=Guest full name exactly as the guest wrote it" validate:"required"`
	Phone    string `json:"phone" jsonschema:"description=Guest phone number with at least 10 digits" validate:"required"`
	Email    string `json:"email" jsonschema:"description=Guest email address" validate:"required"`
	CheckIn  string `json:"check_in" jsonschema:"description=Check-in date in YYYY-MM-DD" validate:"required"`
	CheckOut string `json:"check_out" jsonschema:"description=Check-out date in YYYY-MM-DD" validate:"required"`
	Guests   int    `json:"guests" jsonschema:"description=Number of guests,minimum=1,maximum=20" validate:"required,min=1,max=20"`
	RoomID   int    `json:"room_id" jsonschema:"description=Room id taken from check_availability,minimum=1" validate:"required,min=1"`
	Notes    string `json:"notes,omitempty" jsonschema:"description=Optional special requests" validate:"max=500"`
}

// ReservationRefArgs identify one reservation.
type ReservationRefArgs struct {
	ReservationID ReservationID `json:"reservation_id" validate:"required"`
}

// UpdateReservationArgs carry the reservation and the fields to change.
type UpdateReservationArgs struct {
	ReservationID ReservationID `json:"reservation_id" validate:"required"`
	CheckIn       *string       `json:"check_in,omitempty" jsonschema:"description=New check-in date in YYYY-MM-DD"`
	CheckOut      *string       `json:"check_out,omitempty" jsonschema:"description=New check-out date in YYYY-MM-DD"`
	Guests        *int          `json:"guests,omitempty" jsonschema:"description=New number of guests,minimum=1,maximum=20" validate:"omitempty,min=1,max=20"`
	RoomID        *int          `json:"room_id,omitempty" jsonschema:"description=New room id,minimum=1" validate:"omitempty,min=1"`
	FullName      *string       `json:"full_name,omitempty" jsonschema:"description=Corrected guest full name"`
	Phone         *string       `json:"phone,omitempty" jsonschema:"description=New phone number"`
	Email         *string       `json:"email,omitempty" jsonschema:"description=New email address"`
	Notes         *string       `json:"notes,omitempty" jsonschema:"description=New special requests" validate:"omitempty,max=500"`
}
