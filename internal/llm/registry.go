package llm

import (
	"fmt"

	"github.com/capitalize-ai/reservation-assistant/internal/config"
)

// NewClient builds the client for one configured provider.
func NewClient(p config.ProviderConfig) (Client, error) {
	switch p.Kind {
	case config.ProviderOpenAI, config.ProviderGroq:
		return NewOpenAIClient(OpenAIConfig{
			Name:       p.Kind,
			APIKey:     p.APIKey,
			BaseURL:    p.BaseURL,
			Model:      p.Model,
			RequireKey: true,
		})
	case config.ProviderVLLM:
		return NewOpenAIClient(OpenAIConfig{
			Name:    p.Kind,
			APIKey:  p.APIKey,
			BaseURL: p.BaseURL,
			Model:   p.Model,
		})
	case config.ProviderAnthropic:
		return NewAnthropicClient(p.APIKey, p.BaseURL, p.Model)
	case config.ProviderOllama:
		return NewOllamaClient(p.BaseURL, p.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", p.Kind)
	}
}
