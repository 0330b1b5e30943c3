// Package dispatch executes the model's tool calls against the reservation store.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/capitalize-ai/reservation-assistant/internal/model"
	"github.com/capitalize-ai/reservation-assistant/internal/store"
	"github.com/capitalize-ai/reservation-assistant/pkg/logger"
	"github.com/capitalize-ai/reservation-assistant/pkg/metrics"
	"github.com/capitalize-ai/reservation-assistant/pkg/tracing"
)

// Currency is reported next to every price so the model never guesses it.
const Currency = "TRY"

// Result is the outcome of one tool call.
type Result struct {
	OK    bool
	Data  any
	Error *model.ToolError
}

type envelope struct {
	OK    bool             `json:"ok"`
	Data  any              `json:"data,omitempty"`
	Error *model.ToolError `json:"error,omitempty"`
}

// JSON renders the result as the tool message content sent to the model.
func (r Result) JSON() string {
	data, err := json.Marshal(envelope{OK: r.OK, Data: r.Data, Error: r.Error})
	if err != nil {
		return `{"ok":false,"error":{"kind":"internal","reason":"result encoding failed"}}`
	}
	return string(data)
}

func success(data any) Result {
	return Result{OK: true, Data: data}
}

func failure(err *model.ToolError) Result {
	return Result{Error: err}
}

// Options tune the dispatcher.
type Options struct {
	// StrictBookingFlow rejects create_reservation without a prior
	// successful check_availability for the same dates in the session.
	StrictBookingFlow bool
	// Now is the clock used to reject past check-in dates.
	Now func() time.Time
}

// Dispatcher maps tool names to reservation operations.
type Dispatcher struct {
	store    store.Store
	logger   *logger.Logger
	validate *validator.Validate
	strict   bool
	now      func() time.Time

	flows map[string]*flowState
	mu    sync.Mutex
}

// New creates a dispatcher on top of a store.
func New(s store.Store, log *logger.Logger, opts Options) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		store:    s,
		logger:   log.With(zap.String("component", "dispatcher")),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		strict:   opts.StrictBookingFlow,
		now:      now,
		flows:    make(map[string]*flowState),
	}
}

// Dispatch runs one tool call. Failures come back as a Result so the model can
// recover; Dispatch itself never returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, session, name string, args json.RawMessage) Result {
	ctx, span := tracing.StartSpan(ctx, "tool.dispatch",
		attribute.String("tool", name),
		attribute.String("session_id", session),
	)
	defer span.End()

	start := time.Now()
	res := d.run(ctx, session, name, args)

	outcome := "ok"
	if !res.OK {
		outcome = string(res.Error.Kind)
		tracing.RecordError(span, res.Error)
	}
	metrics.RecordToolDispatch(name, outcome)

	fields := []zap.Field{
		zap.String("session_id", session),
		zap.String("tool", name),
		zap.String("outcome", outcome),
		zap.Duration("duration", time.Since(start)),
	}
	switch {
	case res.OK:
		d.logger.Info("Tool executed", fields...)
	case res.Error.Kind == model.KindInternal:
		d.logger.Error("Tool failed", append(fields, zap.Error(res.Error.Cause))...)
	default:
		d.logger.Info("Tool rejected", append(fields,
			zap.String("field", res.Error.Field),
			zap.String("reason", res.Error.Reason),
		)...)
	}
	return res
}

func (d *Dispatcher) run(ctx context.Context, session, name string, args json.RawMessage) Result {
	switch name {
	case ToolGetRoomPrices:
		return d.getRoomPrices(ctx)
	case ToolCheckAvailability:
		var a CheckAvailabilityArgs
		if err := d.decode(args, &a); err != nil {
			return failure(err)
		}
		return d.checkAvailability(ctx, session, a)
	case ToolCreateReservation:
		var a CreateReservationArgs
		if err := d.decode(args, &a); err != nil {
			return failure(err)
		}
		return d.createReservation(ctx, session, a)
	case ToolGetReservation:
		var a ReservationRefArgs
		if err := d.decode(args, &a); err != nil {
			return failure(err)
		}
		return d.getReservation(ctx, a)
	case ToolCancelReservation:
		var a ReservationRefArgs
		if err := d.decode(args, &a); err != nil {
			return failure(err)
		}
		return d.cancelReservation(ctx, a)
	case ToolUpdateReservation:
		var a UpdateReservationArgs
		if err := d.decode(args, &a); err != nil {
			return failure(err)
		}
		return d.updateReservation(ctx, a)
	default:
		return failure(model.NewValidationError("tool", fmt.Sprintf("unknown tool %q", name)))
	}
}

// Progress reports the booking checklist position of a session.
func (d *Dispatcher) Progress(session string) Progress {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f, ok := d.flows[session]; ok {
		return f.progress()
	}
	return NeedsCheckIn
}

// ResetSession forgets the booking progress of a session.
func (d *Dispatcher) ResetSession(session string) {
	d.mu.Lock()
	delete(d.flows, session)
	d.mu.Unlock()
}

func (d *Dispatcher) withFlow(session string, fn func(f *flowState)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.flows[session]
	if !ok {
		f = &flowState{}
		d.flows[session] = f
	}
	fn(f)
}

// decode parses arguments and applies struct validation rules. Unknown
// arguments are ignored.
func (d *Dispatcher) decode(args json.RawMessage, dst any) *model.ToolError {
	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, dst); err != nil {
		return decodeError(err)
	}
	if err := d.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func decodeError(err error) *model.ToolError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		kind := "string"
		switch typeErr.Type.Kind() {
		case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint64, reflect.Float64:
			kind = "number"
		}
		return model.NewValidationError(typeErr.Field, "must be a "+kind)
	}
	msg := err.Error()
	if strings.Contains(msg, "reservation_id") {
		return model.NewValidationError("reservation_id", msg)
	}
	return model.NewValidationError("arguments", "arguments must be a JSON object: "+msg)
}

func validationError(err error) *model.ToolError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return model.NewValidationError("arguments", err.Error())
	}
	fe := verrs[0]
	field := jsonFieldName(fe.StructField())
	switch fe.Tag() {
	case "required":
		return model.NewValidationError(field, "is required")
	case "min":
		return model.NewValidationError(field, "must be at least "+fe.Param())
	case "max":
		return model.NewValidationError(field, "must be at most "+fe.Param())
	default:
		return model.NewValidationError(field, "failed "+fe.Tag()+" check")
	}
}

var jsonNames = map[string]string{
	"CheckIn":       "check_in",
	"CheckOut":      "check_out",
	"Guests":        "guests",
	"FullName":      "full_name",
	"Phone":         "phone",
	"Email":         "email",
	"RoomID":        "room_id",
	"Notes":         "notes",
	"ReservationID": "reservation_id",
}

func jsonFieldName(structField string) string {
	if name, ok := jsonNames[structField]; ok {
		return name
	}
	return strings.ToLower(structField)
}

// storeError translates store failures into tool errors. Unknown errors
// become internal errors whose cause is logged, not shown.
func storeError(err error, field string) *model.ToolError {
	var te *model.ToolError
	switch {
	case errors.As(err, &te):
		return te
	case errors.Is(err, model.ErrAlreadyCancelled):
		return model.NewConflictError("reservation is already cancelled", err)
	case errors.Is(err, model.ErrCapacity):
		return &model.ToolError{Kind: model.KindValidation, Field: "guests", Reason: "exceeds the capacity of the selected room", Cause: err}
	case errors.Is(err, model.ErrConflict):
		return model.NewConflictError("room is not available for the requested dates", err)
	case errors.Is(err, model.ErrNotFound):
		return &model.ToolError{Kind: model.KindNotFound, Field: field, Reason: "no matching record", Cause: err}
	default:
		return &model.ToolError{Kind: model.KindInternal, Reason: "internal error", Cause: err}
	}
}
