package dispatch

// Progress is how far a session has moved through the booking checklist.
type Progress int

const (
	NeedsCheckIn Progress = iota
	NeedsCheckOut
	NeedsAvailability
	NeedsGuests
	NeedsName
	NeedsPhone
	NeedsEmail
	Ready
)

func (p Progress) String() string {
	switch p {
	case NeedsCheckIn:
		return "needs_check_in"
	case NeedsCheckOut:
		return "needs_check_out"
	case NeedsAvailability:
		return "needs_availability"
	case NeedsGuests:
		return "needs_guests"
	case NeedsName:
		return "needs_name"
	case NeedsPhone:
		return "needs_phone"
	case NeedsEmail:
		return "needs_email"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// flowState records which checklist steps succeeded in a session.
type flowState struct {
	checkIn   string
	checkOut  string
	available bool
	guests    bool
	name      bool
	phone     bool
	email     bool
}

func (f *flowState) progress() Progress {
	switch {
	case f.checkIn == "":
		return NeedsCheckIn
	case f.checkOut == "":
		return NeedsCheckOut
	case !f.available:
		return NeedsAvailability
	case !f.guests:
		return NeedsGuests
	case !f.name:
		return NeedsName
	case !f.phone:
		return NeedsPhone
	case !f.email:
		return NeedsEmail
	default:
		return Ready
	}
}

// recordAvailability stores a successful availability check. New dates
// invalidate everything collected for the previous ones.
func (f *flowState) recordAvailability(checkIn, checkOut string, guests bool) {
	if f.checkIn != checkIn || f.checkOut != checkOut {
		*f = flowState{}
	}
	f.checkIn = checkIn
	f.checkOut = checkOut
	f.available = true
	f.guests = f.guests || guests
}

// checkedFor reports whether availability was confirmed for exactly these dates.
func (f *flowState) checkedFor(checkIn, checkOut string) bool {
	return f.available && f.checkIn == checkIn && f.checkOut == checkOut
}
