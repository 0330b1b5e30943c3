// Package language detects the guest's language per turn and holds the
// localized replies the assistant sends without asking a model.
package language

import (
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
)

// Lang is an ISO 639-1 code.
type Lang string

const (
	Turkish Lang = "tr"
	English Lang = "en"
)

// Default is used when nothing can be inferred.
const Default = Turkish

const (
	// minConfidence is the whatlanggo confidence below which the previous language is kept.
	minConfidence = 0.2
	// minLetters is the shortest input handed to statistical detection.
	minLetters = 12
)

var detectOptions = whatlanggo.Options{
	Whitelist: map[whatlanggo.Lang]bool{
		whatlanggo.Tur: true,
		whatlanggo.Eng: true,
	},
}

// Turkish words that are common in booking chats but written without
// Turkish letters, so the letter check alone misses them.
var turkishHints = map[string]bool{
	"merhaba": true, "oda": true, "odasi": true, "fiyat": true, "fiyati": true,
	"rezervasyon": true, "kisi": true, "kac": true, "icin": true, "tarih": true,
	"mayis": true, "haziran": true, "temmuz": true, "evet": true, "hayir": true,
	"tesekkurler": true, "lutfen": true, "iptal": true, "nedir": true, "var": true,
}

var englishHints = map[string]bool{
	"hello": true, "hi": true, "room": true, "rooms": true, "price": true,
	"prices": true, "book": true, "booking": true, "reservation": true,
	"please": true, "thanks": true, "the": true, "would": true, "cancel": true,
}

// Detect returns the language of text. previous is kept for inputs that are
// too short or ambiguous to classify, such as a bare phone number.
func Detect(text string, previous Lang) Lang {
	if previous == "" {
		previous = Default
	}
	if hasTurkishLetters(text) {
		return Turkish
	}

	words, letters := plainWords(text)
	if len(words) == 0 {
		return previous
	}
	for _, w := range words {
		if turkishHints[w] {
			return Turkish
		}
	}
	for _, w := range words {
		if englishHints[w] {
			return English
		}
	}
	if letters < minLetters {
		return previous
	}

	info := whatlanggo.DetectWithOptions(strings.Join(words, " "), detectOptions)
	if info.Confidence < minConfidence {
		return previous
	}
	switch info.Lang {
	case whatlanggo.Tur:
		return Turkish
	case whatlanggo.Eng:
		return English
	default:
		return previous
	}
}

// plainWords lowercases text and drops tokens that carry no language signal
// such as emails, dates and phone numbers.
func plainWords(text string) ([]string, int) {
	var (
		words   []string
		letters int
	)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		if strings.ContainsAny(tok, "@0123456789") {
			continue
		}
		word := strings.TrimFunc(tok, func(r rune) bool { return !unicode.IsLetter(r) })
		if word == "" {
			continue
		}
		words = append(words, word)
		letters += len([]rune(word))
	}
	return words, letters
}

func hasTurkishLetters(text string) bool {
	return strings.ContainsAny(text, "çğıöşüÇĞİÖŞÜ")
}

// Name is the English name used inside the system prompt.
func (l Lang) Name() string {
	switch l {
	case English:
		return "English"
	default:
		return "Turkish"
	}
}

// Parse maps a stored code back to a Lang, falling back to Default.
func Parse(code string) Lang {
	switch Lang(strings.ToLower(strings.TrimSpace(code))) {
	case English:
		return English
	case Turkish:
		return Turkish
	default:
		return Default
	}
}
