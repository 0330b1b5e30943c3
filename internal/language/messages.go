package language

// Message identifies a canned reply.
type Message int

const (
	// ProvidersUnavailable is sent when every LLM provider failed.
	ProvidersUnavailable Message = iota
	// ToolRoundsExhausted is sent when the model kept calling tools.
	ToolRoundsExhausted
	// PriceCheck replaces a reply that quoted prices without looking them up.
	PriceCheck
	// SessionReset acknowledges /start.
	SessionReset
	// InternalError is the generic apology for unexpected failures.
	InternalError
)

var catalog = map[Message]map[Lang]string{
	ProvidersUnavailable: {
		Turkish: "Üzgünüm, şu anda yanıt veremiyorum. Lütfen birkaç dakika sonra tekrar deneyin.",
		English: "Sorry, I can't respond right now. Please try again in a few minutes.",
	},
	ToolRoundsExhausted: {
		Turkish: "Üzgünüm, isteğinizi tamamlayamadım. Lütfen talebinizi farklı bir şekilde yazar mısınız?",
		English: "Sorry, I couldn't complete your request. Could you please rephrase it?",
	},
	PriceCheck: {
		Turkish: "Güncel fiyatları kontrol etmem gerekiyor. Giriş ve çıkış tarihlerinizi ve kişi sayısını paylaşır mısınız?",
		English: "Let me check the current prices for you. Could you share your check-in and check-out dates and the number of guests?",
	},
	SessionReset: {
		Turkish: "Merhaba! Size rezervasyon konusunda nasıl yardımcı olabilirim?",
		English: "Hello! How can I help you with your reservation?",
	},
	InternalError: {
		Turkish: "Üzgünüm, bir hata oluştu. Lütfen tekrar deneyin.",
		English: "Sorry, something went wrong. Please try again.",
	},
}

// Text returns the localized text of m.
func Text(m Message, l Lang) string {
	texts, ok := catalog[m]
	if !ok {
		return ""
	}
	if s, ok := texts[l]; ok {
		return s
	}
	return texts[Default]
}
