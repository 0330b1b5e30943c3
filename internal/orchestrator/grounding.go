package orchestrator

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// amountPattern matches a number next to a currency marker on either side.
	amountPattern = regexp.MustCompile(`(?i)(?:(?:₺|\$|€|\b(?:TRY|TL|USD|EUR))\s?(\d[\d.,]*))|(?:(\d[\d.,]*)\s?(?:₺|\$|€|(?:TRY|TL|USD|EUR|lira|euros?|dollars?)\b))`)
	numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// ungroundedAmount returns the first currency amount in reply that does not
// appear in any tool result.
func ungroundedAmount(reply string, toolResults []string) (string, bool) {
	matches := amountPattern.FindAllStringSubmatch(reply, -1)
	if len(matches) == 0 {
		return "", false
	}

	known := make([]decimal.Decimal, 0)
	for _, content := range toolResults {
		for _, n := range numberPattern.FindAllString(content, -1) {
			if d, err := decimal.NewFromString(n); err == nil {
				known = append(known, d)
			}
		}
	}

	for _, m := range matches {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		amount, ok := parseAmount(raw)
		if !ok {
			continue
		}
		if !containsAmount(known, amount) {
			return strings.TrimSpace(m[0]), true
		}
	}
	return "", false
}

func containsAmount(known []decimal.Decimal, amount decimal.Decimal) bool {
	for _, k := range known {
		if k.Equal(amount) {
			return true
		}
	}
	return false
}

// parseAmount reads a human formatted number such as "1.500", "1,500.00" or
// "2.200,50". A separator followed by exactly three digits groups thousands.
func parseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimRight(raw, ".,")
	if s == "" {
		return decimal.Decimal{}, false
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		s = normalizeSeparator(s, ".")
	case lastComma >= 0:
		s = normalizeSeparator(s, ",")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func normalizeSeparator(s, sep string) string {
	parts := strings.Split(s, sep)
	if len(parts) == 2 && len(parts[1]) != 3 {
		return parts[0] + "." + parts[1]
	}
	return strings.Join(parts, "")
}
