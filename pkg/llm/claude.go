package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"
)

const (
	// ClaudeDefaultModel is used when no model is configured.
	ClaudeDefaultModel = "claude-sonnet-4-20250514"
	// ClaudeCredentialEnv names the variable holding the Anthropic key.
	ClaudeCredentialEnv = "ANTHROPIC_API_KEY"

	jsonModeInstruction = "Respond with a single valid JSON value and nothing else. Do not wrap it in markdown."
)

// ClaudeBackend talks to the Anthropic Messages API.
type ClaudeBackend struct {
	cfg    BackendConfig
	client anthropic.Client
}

// NewClaudeBackend creates a Claude backend.
func NewClaudeBackend(cfg BackendConfig) (backend *ClaudeBackend) {
	if cfg.Model == "" {
		cfg.Model = ClaudeDefaultModel
	}
	if cfg.Logger == nil {
		cfg.Logger = defaultLogger()
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	backend = &ClaudeBackend{
		cfg:    cfg,
		client: anthropic.NewClient(opts...),
	}
	return backend
}

// Name returns the provider name.
func (b *ClaudeBackend) Name() (name string) {
	name = ProviderClaude
	return name
}

// StartSession opens a conversation with empty history.
func (b *ClaudeBackend) StartSession(settings GenerationSettings) (session Session) {
	session = &claudeSession{
		backend:  b,
		settings: settings,
		log:      &history{limit: b.cfg.HistoryLimit},
	}
	return session
}

// Close is a no-op; the SDK client holds no resources.
func (b *ClaudeBackend) Close() (err error) {
	return err
}

// ListModels lists the models visible to the configured key.
func (b *ClaudeBackend) ListModels(ctx context.Context) (list ModelList, err error) {
	if b.cfg.APIKey == "" {
		err = errors.Wrapf(ErrMissingCredential, "set %s", ClaudeCredentialEnv)
		return list, err
	}

	page, err := b.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		err = errors.Wrap(err, "failed to list Claude models")
		return list, err
	}

	list.Source = "sdk"
	for _, m := range page.Data {
		list.Models = append(list.Models, ModelInfo{
			ID:          m.ID,
			DisplayName: m.DisplayName,
		})
	}
	return list, err
}

type claudeSession struct {
	backend  *ClaudeBackend
	settings GenerationSettings
	log      *history
}

func (s *claudeSession) Send(ctx context.Context, prompt string, opts ...SendOption) (reply string, err error) {
	settings := s.settings.with(opts)
	logger := s.backend.cfg.Logger

	if s.backend.cfg.APIKey == "" {
		err = errors.Wrapf(ErrMissingCredential, "set %s", ClaudeCredentialEnv)
		err = classifyTransportError(logger, ProviderClaude, ClaudeCredentialEnv, err)
		return reply, err
	}

	messages := claudeHistory(s.log.snapshot())
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))

	// Temperature and top_p may not be combined on current models, so only
	// temperature and top_k are sent.
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(s.backend.cfg.Model),
		MaxTokens:   int64(settings.MaxOutputTokens),
		Temperature: anthropic.Float(float64(min(settings.Temperature, 1))),
		TopK:        anthropic.Int(int64(settings.TopK)),
		Messages:    messages,
	}
	if settings.JSONMode {
		params.System = []anthropic.TextBlockParam{{Text: jsonModeInstruction}}
	}

	var resp *anthropic.Message
	resp, err = s.backend.client.Messages.New(ctx, params)
	if err != nil {
		err = classifyTransportError(logger, ProviderClaude, ClaudeCredentialEnv, err)
		return reply, err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	reply = sb.String()

	s.log.commit(prompt, reply)
	return reply, err
}

func (s *claudeSession) Reset() {
	s.log.reset()
}

func (s *claudeSession) Turns() (n int) {
	n = s.log.exchanges()
	return n
}

func claudeHistory(turns []Turn) (messages []anthropic.MessageParam) {
	messages = make([]anthropic.MessageParam, 0, len(turns)+1)
	for _, t := range turns {
		if t.Role == RoleModel {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Text)))
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Text)))
	}
	return messages
}
