package orchestrator

import (
	"fmt"
	"strings"

	"github.com/capitalize-ai/reservation-assistant/internal/language"
	"github.com/capitalize-ai/reservation-assistant/internal/model"
)

const groundingCorrection = "Your previous reply stated a price that no tool returned. " +
	"Do not guess prices. Call get_room_prices or check_availability and answer only with the amounts they return."

// systemPrompt builds the instructions for one turn.
func (o *Orchestrator) systemPrompt(lang language.Lang) string {
	h := o.cfg.Hotel
	today := o.cfg.Now()

	var b strings.Builder
	fmt.Fprintf(&b, "You are the reservation assistant of %s.\n", h.Name)
	fmt.Fprintf(&b, "Hotel contact: phone %s, email %s, address %s.\n", h.Phone, h.Email, h.Address)
	fmt.Fprintf(&b, "Today is %s (%s).\n\n", today.Format(model.DateLayout), today.Weekday())

	fmt.Fprintf(&b, "Language: reply only in %s, even if earlier messages used another language.\n\n", lang.Name())

	b.WriteString("Rules:\n")
	b.WriteString("- Never state prices, availability or reservation details that did not come from a tool result in this conversation. Call the tool first.\n")
	b.WriteString("- Never invent or fill in guest data. Ask the guest for anything missing and never use placeholders such as \"Test\" or \"Ad Soyad\".\n")
	b.WriteString("- Dates passed to tools use the YYYY-MM-DD format. Resolve relative dates against today.\n")
	b.WriteString("- When a tool returns ok=false, explain the problem briefly and ask for the corrected value.\n")
	b.WriteString("- Reservations are identified by reference codes like RSV-000042. Always give the code after booking.\n")
	b.WriteString("- Prices are in Turkish lira (TRY).\n\n")

	b.WriteString("Booking checklist, in order. Ask for one missing item at a time:\n")
	steps := []string{
		"check-in date",
		"check-out date",
		"check_availability for those dates",
		"number of guests",
		"guest full name",
		"phone number (at least 10 digits)",
		"email address",
		"confirm every detail with the guest",
		"create_reservation",
	}
	for i, s := range steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return b.String()
}
