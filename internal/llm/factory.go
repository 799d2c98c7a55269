package llm

import (
	"fmt"

	"github.com/ziadkadry99/pdfchat/internal/config"
)

// NewProvider creates a provider for a stored credential. baseURL overrides
// the provider's public endpoint when non-empty.
func NewProvider(kind config.ProviderType, apiKey, model, baseURL string) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: api key is empty", kind)
	}
	if model == "" {
		model = config.DefaultModel(kind)
	}

	switch kind {
	case config.ProviderGroq:
		if baseURL == "" {
			baseURL = GroqBaseURL
		}
		return NewOpenAIProvider("groq", apiKey, baseURL, model), nil
	case config.ProviderOpenAI:
		return NewOpenAIProvider("openai", apiKey, baseURL, model), nil
	case config.ProviderOpenRouter:
		if baseURL == "" {
			baseURL = OpenRouterBaseURL
		}
		return NewOpenAIProvider("openrouter", apiKey, baseURL, model), nil
	case config.ProviderAnthropic:
		return NewAnthropicProvider(apiKey, baseURL, model), nil
	case config.ProviderGoogle:
		return NewGoogleProvider(apiKey, baseURL, model), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", kind)
	}
}
