package llm

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// ProviderGemini selects the Google Gemini backend.
	ProviderGemini = "gemini"
	// ProviderClaude selects the Anthropic Claude backend.
	ProviderClaude = "claude"
)

// BackendConfig carries what a backend needs to reach its provider.
type BackendConfig struct {
	Provider     string
	APIKey       string
	Model        string
	BaseURL      string
	HistoryLimit int
	Logger       logrus.FieldLogger
}

// NewBackend builds the backend named by cfg.Provider. An empty provider selects Gemini.
func NewBackend(cfg BackendConfig) (backend Backend, err error) {
	if cfg.Logger == nil {
		cfg.Logger = defaultLogger()
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		backend = NewGeminiBackend(cfg)
	case ProviderClaude:
		backend = NewClaudeBackend(cfg)
	default:
		err = errors.Errorf("unknown AI provider %q (want %s or %s)", cfg.Provider, ProviderGemini, ProviderClaude)
	}
	return backend, err
}
