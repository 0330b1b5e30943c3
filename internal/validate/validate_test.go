package validate

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/reservation-assistant/internal/model"
)

func TestPhone(t *testing.T) {
	tests := []struct {
		phone string
		ok    bool
	}{
		{"5551234567", true},
		{"+90 (555) 123-45-67", true},
		{"555-123-4567", true},
		{"555123", false},
		{"555 123 456", false},
		{"", false},
		{"phone: none", false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			r := Phone(tt.phone)
			assert.Equal(t, tt.ok, r.OK)
			if !tt.ok {
				assert.Equal(t, "phone", r.Field)
				assert.NotEmpty(t, r.Reason)
			}
		})
	}
}

func TestPhoneDigitCountProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	separators := []rune{' ', '-', '(', ')', '+', '.', '/'}

	for i := 0; i < 500; i++ {
		var b strings.Builder
		digits := 0
		for j := rng.Intn(25); j > 0; j-- {
			if rng.Intn(3) == 0 {
				b.WriteRune(separators[rng.Intn(len(separators))])
				continue
			}
			b.WriteByte(byte('0' + rng.Intn(10)))
			digits++
		}
		phone := b.String()
		assert.Equal(t, digits >= 10, Phone(phone).OK, "phone %q with %d digits", phone, digits)
	}
}

func TestEmail(t *testing.T) {
	tests := []struct {
		email string
		ok    bool
	}{
		{"ayse@example.com", true},
		{"first.last+tag@mail.example.com.tr", true},
		{"  guest@hotel.io ", true},
		{"guest.example.com", false},
		{"guest@", false},
		{"@example.com", false},
		{"guest@example", false},
		{"guest@.com", false},
		{"guest@example.c", false},
		{"gu est@example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.ok, Email(tt.email).OK)
		})
	}
}

func TestDates(t *testing.T) {
	tests := []struct {
		name     string
		checkIn  string
		checkOut string
		ok       bool
		field    string
	}{
		{"valid", "2026-05-10", "2026-05-12", true, ""},
		{"one night", "2026-12-31", "2027-01-01", true, ""},
		{"same day", "2026-05-10", "2026-05-10", false, "check_out"},
		{"reversed", "2026-05-12", "2026-05-10", false, "check_out"},
		{"not a real day", "2026-02-30", "2026-03-02", false, "check_in"},
		{"wrong format", "10/05/2026", "2026-05-12", false, "check_in"},
		{"missing check-out", "2026-05-10", "", false, "check_out"},
		{"leap day", "2028-02-29", "2028-03-01", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Dates(tt.checkIn, tt.checkOut)
			assert.Equal(t, tt.ok, r.OK)
			if !tt.ok {
				assert.Equal(t, tt.field, r.Field)
			}
		})
	}
}

func TestName(t *testing.T) {
	assert.True(t, Name("Ayşe Yılmaz").OK)
	assert.True(t, Name("  John Smith ").OK)
	assert.False(t, Name("").OK)
	assert.False(t, Name("   ").OK)
	assert.False(t, Name("12345").OK)
	assert.False(t, Name("Ad Soyad").OK)
	assert.False(t, Name("test").OK)
	assert.False(t, Name(strings.Repeat("a", 101)).OK)
}

func TestGuests(t *testing.T) {
	assert.False(t, Guests(0).OK)
	assert.True(t, Guests(1).OK)
	assert.True(t, Guests(20).OK)
	assert.False(t, Guests(21).OK)
}

func TestResultErr(t *testing.T) {
	require.NoError(t, Phone("5551234567").Err())

	err := Phone("555123").Err()
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindValidation))

	var te *model.ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "phone", te.Field)
}

func TestFirst(t *testing.T) {
	r := First(Name("Ayşe Yılmaz"), Phone("123"), Email("bad"))
	assert.False(t, r.OK)
	assert.Equal(t, "phone", r.Field)

	assert.True(t, First(Name("Ayşe Yılmaz"), Guests(2)).OK)
}
