package dispatch

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/capitalize-ai/reservation-assistant/internal/model"
	"github.com/capitalize-ai/reservation-assistant/internal/validate"
	"github.com/capitalize-ai/reservation-assistant/pkg/metrics"
)

type roomView struct {
	ID            uint   `json:"room_id"`
	Name          string `json:"name"`
	Capacity      int    `json:"capacity"`
	PricePerNight string `json:"price_per_night"`
	TotalPrice    string `json:"total_price,omitempty"`
}

type reservationView struct {
	ReferenceCode string `json:"reference_code"`
	ID            uint   `json:"id"`
	Status        string `json:"status"`
	RoomID        uint   `json:"room_id"`
	RoomName      string `json:"room_name,omitempty"`
	FullName      string `json:"full_name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	Nights        int    `json:"nights"`
	Guests        int    `json:"guests"`
	TotalPrice    string `json:"total_price,omitempty"`
	Currency      string `json:"currency,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

func price(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func newRoomView(r model.Room, nights int) roomView {
	v := roomView{
		ID:            r.ID,
		Name:          r.Name,
		Capacity:      r.Capacity,
		PricePerNight: price(r.PricePerNight),
	}
	if nights > 0 {
		v.TotalPrice = price(r.PricePerNight.Mul(decimal.NewFromInt(int64(nights))))
	}
	return v
}

func (d *Dispatcher) newReservationView(ctx context.Context, r model.Reservation) reservationView {
	v := reservationView{
		ReferenceCode: r.ReferenceCode,
		ID:            r.ID,
		Status:        string(r.Status),
		RoomID:        r.RoomID,
		FullName:      r.FullName,
		Phone:         r.Phone,
		Email:         r.Email,
		CheckIn:       r.CheckIn,
		CheckOut:      r.CheckOut,
		Nights:        r.Nights(),
		Guests:        r.Guests,
		Notes:         r.Notes,
	}
	if room, err := d.store.GetRoom(ctx, r.RoomID); err == nil {
		v.RoomName = room.Name
		v.TotalPrice = price(room.PricePerNight.Mul(decimal.NewFromInt(int64(v.Nights))))
		v.Currency = Currency
	}
	return v
}

// checkStayDates validates a stay and rejects check-in dates before today.
func (d *Dispatcher) checkStayDates(checkIn, checkOut string) *model.ToolError {
	if res := validate.Dates(checkIn, checkOut); !res.OK {
		return model.NewValidationError(res.Field, res.Reason)
	}
	today := d.now().Format(model.DateLayout)
	if strings.TrimSpace(checkIn) < today {
		return model.NewValidationError("check_in", "must not be in the past (today is "+today+")")
	}
	return nil
}

func toolErr(res validate.Result) *model.ToolError {
	if res.OK {
		return nil
	}
	return model.NewValidationError(res.Field, res.Reason)
}

func (d *Dispatcher) getRoomPrices(ctx context.Context) Result {
	rooms, err := d.store.ListRooms(ctx)
	if err != nil {
		return failure(storeError(err, ""))
	}
	views := make([]roomView, 0, len(rooms))
	for _, r := range rooms {
		if r.Status != model.RoomStatusAvailable {
			continue
		}
		views = append(views, newRoomView(r, 0))
	}
	return success(map[string]any{
		"currency": Currency,
		"rooms":    views,
	})
}

func (d *Dispatcher) checkAvailability(ctx context.Context, session string, a CheckAvailabilityArgs) Result {
	checkIn, checkOut := strings.TrimSpace(a.CheckIn), strings.TrimSpace(a.CheckOut)
	if err := d.checkStayDates(checkIn, checkOut); err != nil {
		return failure(err)
	}
	guests := 1
	if a.Guests != nil {
		guests = *a.Guests
		if err := toolErr(validate.Guests(guests)); err != nil {
			return failure(err)
		}
	}

	rooms, err := d.store.FindAvailable(ctx, checkIn, checkOut, guests)
	if err != nil {
		return failure(storeError(err, ""))
	}

	nights := model.Nights(checkIn, checkOut)
	views := make([]roomView, 0, len(rooms))
	for _, r := range rooms {
		views = append(views, newRoomView(r, nights))
	}

	d.withFlow(session, func(f *flowState) {
		f.recordAvailability(checkIn, checkOut, a.Guests != nil)
	})

	return success(map[string]any{
		"check_in":        checkIn,
		"check_out":       checkOut,
		"nights":          nights,
		"guests":          guests,
		"available":       len(views) > 0,
		"available_rooms": views,
		"currency":        Currency,
	})
}

func (d *Dispatcher) createReservation(ctx context.Context, session string, a CreateReservationArgs) Result {
	in := model.NewReservation{
		RoomID:   uint(a.RoomID),
		FullName: strings.TrimSpace(a.FullName),
		Phone:    strings.TrimSpace(a.Phone),
		Email:    strings.TrimSpace(a.Email),
		CheckIn:  strings.TrimSpace(a.CheckIn),
		CheckOut: strings.TrimSpace(a.CheckOut),
		Guests:   a.Guests,
		Notes:    strings.TrimSpace(a.Notes),
	}

	// Checklist order: dates, guests, name, phone, email.
	if err := d.checkStayDates(in.CheckIn, in.CheckOut); err != nil {
		return failure(err)
	}
	checks := []validate.Result{
		validate.Guests(in.Guests),
		validate.Name(in.FullName),
		validate.Phone(in.Phone),
		validate.Email(in.Email),
	}
	var flowErr *model.ToolError
	d.withFlow(session, func(f *flowState) {
		for _, res := range checks {
			if !res.OK {
				break
			}
			switch res.Field {
			case "guests":
				f.guests = true
			case "full_name":
				f.name = true
			case "phone":
				f.phone = true
			case "email":
				f.email = true
			}
		}
		if d.strict && !f.checkedFor(in.CheckIn, in.CheckOut) {
			flowErr = model.NewValidationError("flow", "call check_availability for "+in.CheckIn+" to "+in.CheckOut+" before creating the reservation")
		}
	})
	if err := toolErr(validate.First(checks...)); err != nil {
		return failure(err)
	}
	if flowErr != nil {
		return failure(flowErr)
	}

	res, err := d.store.InsertReservation(ctx, in)
	if err != nil {
		return failure(storeError(err, "room_id"))
	}
	metrics.RecordReservation("created")
	d.ResetSession(session)

	return success(map[string]any{
		"reservation": d.newReservationView(ctx, res),
	})
}

func (d *Dispatcher) getReservation(ctx context.Context, a ReservationRefArgs) Result {
	res, err := d.store.GetReservation(ctx, string(a.ReservationID))
	if err != nil {
		return failure(storeError(err, "reservation_id"))
	}
	return success(map[string]any{
		"reservation": d.newReservationView(ctx, res),
	})
}

func (d *Dispatcher) cancelReservation(ctx context.Context, a ReservationRefArgs) Result {
	res, err := d.store.CancelReservation(ctx, string(a.ReservationID))
	if err != nil {
		return failure(storeError(err, "reservation_id"))
	}
	metrics.RecordReservation("cancelled")

	return success(map[string]any{
		"reservation": d.newReservationView(ctx, res),
	})
}

func (d *Dispatcher) updateReservation(ctx context.Context, a UpdateReservationArgs) Result {
	patch := model.ReservationPatch{
		CheckIn:  trimmed(a.CheckIn),
		CheckOut: trimmed(a.CheckOut),
		Guests:   a.Guests,
		FullName: trimmed(a.FullName),
		Phone:    trimmed(a.Phone),
		Email:    trimmed(a.Email),
		Notes:    trimmed(a.Notes),
	}
	if a.RoomID != nil {
		id := uint(*a.RoomID)
		patch.RoomID = &id
	}
	if patch.Empty() {
		return failure(model.NewValidationError("arguments", "provide at least one field to change"))
	}

	current, err := d.store.GetReservation(ctx, string(a.ReservationID))
	if err != nil {
		return failure(storeError(err, "reservation_id"))
	}
	if current.Status == model.ReservationCancelled {
		return failure(storeError(model.ErrAlreadyCancelled, "reservation_id"))
	}

	next := patch.Apply(current)
	switch {
	case patch.CheckIn != nil:
		if err := d.checkStayDates(next.CheckIn, next.CheckOut); err != nil {
			return failure(err)
		}
	case patch.CheckOut != nil:
		// A stay that already began keeps its check-in; only the order is checked.
		if err := toolErr(validate.Dates(next.CheckIn, next.CheckOut)); err != nil {
			return failure(err)
		}
	}
	var checks []validate.Result
	if patch.Guests != nil {
		checks = append(checks, validate.Guests(*patch.Guests))
	}
	if patch.FullName != nil {
		checks = append(checks, validate.Name(*patch.FullName))
	}
	if patch.Phone != nil {
		checks = append(checks, validate.Phone(*patch.Phone))
	}
	if patch.Email != nil {
		checks = append(checks, validate.Email(*patch.Email))
	}
	if err := toolErr(validate.First(checks...)); err != nil {
		return failure(err)
	}

	updated, err := d.store.UpdateReservation(ctx, string(a.ReservationID), patch)
	if err != nil {
		te := storeError(err, "reservation_id")
		if errors.Is(err, model.ErrNotFound) && patch.RoomID != nil {
			te.Field = "room_id"
		}
		return failure(te)
	}
	metrics.RecordReservation("updated")

	return success(map[string]any{
		"reservation": d.newReservationView(ctx, updated),
	})
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
