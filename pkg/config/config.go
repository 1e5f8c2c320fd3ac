package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/nikogura/resume-ai/pkg/llm"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultListen is the address the HTTP API binds when none is configured.
const DefaultListen = ":3000"

// Config represents the application configuration.
type Config struct {
	Provider        string           `json:"provider"`
	Model           string           `json:"model,omitempty"`
	BaseURL         string           `json:"base_url,omitempty"`
	GoogleAPIKey    string           `json:"google_api_key,omitempty"`
	AnthropicAPIKey string           `json:"anthropic_api_key,omitempty"`
	HistoryLimit    int              `json:"history_limit"`
	Generation      GenerationConfig `json:"generation"`
	Server          ServerConfig     `json:"server"`
}

// GenerationConfig holds the sampling parameters new sessions start with.
type GenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	TopP            float32 `json:"top_p"`
	TopK            int32   `json:"top_k"`
	MaxOutputTokens int32   `json:"max_output_tokens"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Listen      string `json:"listen"`
	DatabaseURL string `json:"database_url,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() (cfg Config) {
	settings := llm.DefaultGenerationSettings()
	cfg = Config{
		Provider: llm.ProviderGemini,
		Model:    llm.GeminiDefaultModel,
		Generation: GenerationConfig{
			Temperature:     settings.Temperature,
			TopP:            settings.TopP,
			TopK:            settings.TopK,
			MaxOutputTokens: settings.MaxOutputTokens,
		},
		Server: ServerConfig{
			Listen: DefaultListen,
		},
	}
	return cfg
}

// DefaultPath returns ~/.resume-ai/config.json.
func DefaultPath() (path string, err error) {
	var homeDir string
	homeDir, err = os.UserHomeDir()
	if err != nil {
		err = errors.Wrap(err, "failed to get user home directory")
		return path, err
	}
	path = filepath.Join(homeDir, ".resume-ai", "config.json")
	return path, err
}

// Load reads configuration from file with environment variable overrides.
// A missing file is not an error: defaults plus environment apply.
func Load(configPath string) (cfg Config, err error) {
	cfg = Default()

	path := configPath
	if path == "" {
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	var data []byte
	data, err = os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		err = nil
	case err != nil:
		err = errors.Wrapf(err, "failed to read config file: %s", path)
		return cfg, err
	default:
		err = json.Unmarshal(data, &cfg)
		if err != nil {
			err = errors.Wrapf(err, "failed to parse config file: %s", path)
			return cfg, err
		}
	}

	cfg.applyEnv()

	err = cfg.Validate()
	if err != nil {
		err = errors.Wrap(err, "config validation failed")
		return cfg, err
	}

	return cfg, err
}

func (c *Config) applyEnv() {
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.GoogleAPIKey = key
	} else if key = os.Getenv("VITE_GOOGLE_API_KEY"); key != "" {
		c.GoogleAPIKey = key
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.AnthropicAPIKey = key
	}

	if provider := os.Getenv("RESUME_AI_PROVIDER"); provider != "" {
		if !strings.EqualFold(provider, c.Provider) && os.Getenv("RESUME_AI_MODEL") == "" {
			c.Model = ""
		}
		c.Provider = provider
	}

	if model := os.Getenv("RESUME_AI_MODEL"); model != "" {
		c.Model = model
	}

	if baseURL := os.Getenv("RESUME_AI_BASE_URL"); baseURL != "" {
		c.BaseURL = baseURL
	}

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Server.DatabaseURL = dsn
	}

	if port := os.Getenv("PORT"); port != "" {
		c.Server.Listen = ":" + strings.TrimPrefix(port, ":")
	}
}

// Validate checks provider and numeric ranges. Credentials are not checked
// here; a missing key surfaces on the first AI call.
func (c *Config) Validate() (err error) {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = llm.ProviderGemini
	}

	if c.Provider != llm.ProviderGemini && c.Provider != llm.ProviderClaude {
		err = errors.Errorf("provider must be %s or %s, got %q", llm.ProviderGemini, llm.ProviderClaude, c.Provider)
		return err
	}

	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		err = errors.Errorf("generation.temperature must be between 0 and 2, got %v", c.Generation.Temperature)
		return err
	}

	if c.Generation.TopP < 0 || c.Generation.TopP > 1 {
		err = errors.Errorf("generation.top_p must be between 0 and 1, got %v", c.Generation.TopP)
		return err
	}

	if c.Generation.TopK < 0 {
		err = errors.Errorf("generation.top_k must not be negative, got %d", c.Generation.TopK)
		return err
	}

	if c.Generation.MaxOutputTokens <= 0 {
		err = errors.Errorf("generation.max_output_tokens must be positive, got %d", c.Generation.MaxOutputTokens)
		return err
	}

	if c.HistoryLimit < 0 {
		err = errors.Errorf("history_limit must not be negative, got %d", c.HistoryLimit)
		return err
	}

	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}

	return err
}

// GetModel returns the configured model or the provider's default.
func (c *Config) GetModel() (model string) {
	if c.Model != "" {
		model = c.Model
		return model
	}
	if c.Provider == llm.ProviderClaude {
		model = llm.ClaudeDefaultModel
		return model
	}
	model = llm.GeminiDefaultModel
	return model
}

// APIKey returns the credential for the configured provider.
func (c *Config) APIKey() (key string) {
	if c.Provider == llm.ProviderClaude {
		key = c.AnthropicAPIKey
		return key
	}
	key = c.GoogleAPIKey
	return key
}

// BackendConfig maps the configuration onto what llm.NewBackend needs.
func (c *Config) BackendConfig(logger logrus.FieldLogger) (bc llm.BackendConfig) {
	bc = llm.BackendConfig{
		Provider:     c.Provider,
		APIKey:       c.APIKey(),
		Model:        c.GetModel(),
		BaseURL:      c.BaseURL,
		HistoryLimit: c.HistoryLimit,
		Logger:       logger,
	}
	return bc
}

// GenerationSettings returns the session defaults with JSON output forced.
func (c *Config) GenerationSettings() (settings llm.GenerationSettings) {
	settings = llm.GenerationSettings{
		Temperature:     c.Generation.Temperature,
		TopP:            c.Generation.TopP,
		TopK:            c.Generation.TopK,
		MaxOutputTokens: c.Generation.MaxOutputTokens,
		JSONMode:        true,
	}
	return settings
}

// InitConfig creates a default configuration file.
func InitConfig(configPath string) (err error) {
	path := configPath
	if path == "" {
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0750)
	if err != nil {
		err = errors.Wrapf(err, "failed to create config directory: %s", dir)
		return err
	}

	_, err = os.Stat(path)
	if err == nil {
		err = errors.Errorf("config file already exists: %s", path)
		return err
	}

	defaultConfig := Default()
	defaultConfig.GoogleAPIKey = "your-google-api-key"

	var data []byte
	data, err = json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		err = errors.Wrap(err, "failed to marshal default config")
		return err
	}

	err = os.WriteFile(path, data, 0600)
	if err != nil {
		err = errors.Wrapf(err, "failed to write config file: %s", path)
		return err
	}

	return err
}
