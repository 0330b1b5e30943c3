// Package validate holds the pure field checks applied before any reservation write.
package validate

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/capitalize-ai/reservation-assistant/internal/model"
)

const (
	minPhoneDigits = 10
	maxGuests      = 20
	maxNameLength  = 100
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@([^\s@.]+\.)+[A-Za-z]{2,}$`)

// Placeholder values models tend to invent when the guest did not answer.
var placeholderNames = map[string]struct{}{
	"-":            {},
	"n/a":          {},
	"none":         {},
	"null":         {},
	"test":         {},
	"name":         {},
	"full name":    {},
	"guest":        {},
	"guest name":   {},
	"john doe":     {},
	"jane doe":     {},
	"patient name": {},
	"ad soyad":     {},
	"adı soyadı":   {},
	"isim":         {},
	"misafir":      {},
	"asdf":         {},
	"xxx":          {},
}

// Result is the outcome of a single check.
type Result struct {
	OK     bool
	Field  string
	Reason string
}

func pass(field string) Result {
	return Result{OK: true, Field: field}
}

func fail(field, reason string) Result {
	return Result{Field: field, Reason: reason}
}

// Err converts a failed result into a validation ToolError, or nil.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return model.NewValidationError(r.Field, r.Reason)
}

// First returns the first failing result, or a passing one.
func First(results ...Result) Result {
	for _, r := range results {
		if !r.OK {
			return r
		}
	}
	return Result{OK: true}
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(value string) (time.Time, bool) {
	t, err := time.Parse(model.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Date checks that value is a real calendar date in YYYY-MM-DD form.
func Date(field, value string) Result {
	if strings.TrimSpace(value) == "" {
		return fail(field, "date is required")
	}
	if _, ok := ParseDate(value); !ok {
		return fail(field, "date must be a real calendar date in YYYY-MM-DD format")
	}
	return pass(field)
}

// Dates checks both stay dates and that check-out is strictly after check-in.
func Dates(checkIn, checkOut string) Result {
	if r := Date("check_in", checkIn); !r.OK {
		return r
	}
	if r := Date("check_out", checkOut); !r.OK {
		return r
	}
	in, _ := ParseDate(checkIn)
	out, _ := ParseDate(checkOut)
	if !out.After(in) {
		return fail("check_out", "check-out must be after check-in")
	}
	return pass("check_out")
}

// Name checks that a guest name is present and not an obvious placeholder.
func Name(name string) Result {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fail("full_name", "full name is required")
	}
	if len([]rune(trimmed)) > maxNameLength {
		return fail("full_name", "full name is too long")
	}
	letters := 0
	for _, r := range trimmed {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < 2 {
		return fail("full_name", "full name must contain letters")
	}
	if _, ok := placeholderNames[strings.ToLower(trimmed)]; ok {
		return fail("full_name", "full name looks like a placeholder, ask the guest for their real name")
	}
	return pass("full_name")
}

// Phone checks that the number has at least ten digits, ignoring separators.
func Phone(phone string) Result {
	if DigitCount(phone) < minPhoneDigits {
		return fail("phone", "phone number must contain at least 10 digits")
	}
	return pass("phone")
}

// DigitCount counts ASCII digits in s.
func DigitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// Email checks the local@domain.tld shape.
func Email(email string) Result {
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return fail("email", "email must look like name@domain.tld")
	}
	return pass("email")
}

// Guests checks the party size.
func Guests(n int) Result {
	if n < 1 {
		return fail("guests", "guest count must be at least 1")
	}
	if n > maxGuests {
		return fail("guests", "guest count is too large")
	}
	return pass("guests")
}
