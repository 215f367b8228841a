package provider

import (
	"fmt"

	"quill/config"
	"quill/model"
)

// New creates a provider from its configuration entry. API keys come from
// the credential store; Ollama needs none.
func New(cfg config.ProviderConfig, creds *config.CredentialStore) (model.Provider, error) {
	apiKey := ""
	if creds != nil {
		apiKey = creds.Get(cfg.ID)
	}

	switch cfg.ID {
	case "ollama":
		return NewOllamaProvider(cfg.BaseURL, cfg.Model)
	case "openai":
		return NewOpenAIProvider(cfg.BaseURL, apiKey, cfg.Model)
	case "anthropic":
		return NewAnthropicProvider(cfg.BaseURL, apiKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.ID)
	}
}

// NewFromConfig resolves the provider id against the loaded configuration
// and builds it.
func NewFromConfig(cfg *config.Config, providerID string) (model.Provider, error) {
	for _, pc := range cfg.Providers {
		if pc.ID == providerID {
			if !pc.Enabled {
				return nil, fmt.Errorf("provider %s is disabled", providerID)
			}
			return New(pc, cfg.CredentialStore)
		}
	}
	return nil, fmt.Errorf("provider %s is not configured", providerID)
}
