package llm

import (
	"context"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	// GeminiDefaultModel is used when no model is configured.
	GeminiDefaultModel = "gemini-2.5-flash"
	// GeminiCredentialEnv names the variable holding the Gemini key.
	GeminiCredentialEnv = "GOOGLE_API_KEY"
)

// GeminiBackend talks to Google's Generative Language API. The SDK client is
// created on first use so a missing key surfaces as a TransportError on the
// first Send rather than at startup.
type GeminiBackend struct {
	cfg BackendConfig

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiBackend creates a Gemini backend.
func NewGeminiBackend(cfg BackendConfig) (backend *GeminiBackend) {
	if cfg.Model == "" {
		cfg.Model = GeminiDefaultModel
	}
	if cfg.Logger == nil {
		cfg.Logger = defaultLogger()
	}
	backend = &GeminiBackend{cfg: cfg}
	return backend
}

// Name returns the provider name.
func (b *GeminiBackend) Name() (name string) {
	name = ProviderGemini
	return name
}

// StartSession opens a chat session with empty history.
func (b *GeminiBackend) StartSession(settings GenerationSettings) (session Session) {
	session = &geminiSession{
		backend:  b,
		settings: settings,
		log:      &history{limit: b.cfg.HistoryLimit},
	}
	return session
}

// Close releases the SDK client, if one was created.
func (b *GeminiBackend) Close() (err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		err = b.client.Close()
		b.client = nil
	}
	return err
}

func (b *GeminiBackend) sdk(ctx context.Context) (client *genai.Client, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		client = b.client
		return client, err
	}

	if b.cfg.APIKey == "" {
		err = errors.Wrapf(ErrMissingCredential, "set %s", GeminiCredentialEnv)
		return client, err
	}

	opts := []option.ClientOption{option.WithAPIKey(b.cfg.APIKey)}
	if b.cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(b.cfg.BaseURL))
	}

	client, err = genai.NewClient(context.WithoutCancel(ctx), opts...)
	if err != nil {
		err = errors.Wrap(err, "failed to create Gemini client")
		return client, err
	}

	b.client = client
	return client, err
}

// ListModels lists the models visible to the configured key.
func (b *GeminiBackend) ListModels(ctx context.Context) (list ModelList, err error) {
	var client *genai.Client
	client, err = b.sdk(ctx)
	if err != nil {
		return list, err
	}

	list.Source = "sdk"
	iter := client.ListModels(ctx)
	for {
		var m *genai.ModelInfo
		m, err = iter.Next()
		if errors.Is(err, iterator.Done) {
			err = nil
			break
		}
		if err != nil {
			err = errors.Wrap(err, "failed to list Gemini models")
			return list, err
		}

		list.Models = append(list.Models, ModelInfo{
			ID:          strings.TrimPrefix(m.Name, "models/"),
			DisplayName: m.DisplayName,
			Methods:     m.SupportedGenerationMethods,
		})
	}
	return list, err
}

type geminiSession struct {
	backend  *GeminiBackend
	settings GenerationSettings
	log      *history
}

func (s *geminiSession) Send(ctx context.Context, prompt string, opts ...SendOption) (reply string, err error) {
	settings := s.settings.with(opts)
	logger := s.backend.cfg.Logger

	var client *genai.Client
	client, err = s.backend.sdk(ctx)
	if err != nil {
		err = classifyTransportError(logger, ProviderGemini, GeminiCredentialEnv, err)
		return reply, err
	}

	model := client.GenerativeModel(s.backend.cfg.Model)
	model.SetTemperature(settings.Temperature)
	model.SetTopP(settings.TopP)
	model.SetTopK(settings.TopK)
	model.SetMaxOutputTokens(settings.MaxOutputTokens)
	if settings.JSONMode {
		model.ResponseMIMEType = "application/json"
	}

	chat := model.StartChat()
	chat.History = geminiHistory(s.log.snapshot())

	var resp *genai.GenerateContentResponse
	resp, err = chat.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		err = classifyTransportError(logger, ProviderGemini, GeminiCredentialEnv, err)
		return reply, err
	}

	reply = geminiText(resp)
	s.log.commit(prompt, reply)
	return reply, err
}

func (s *geminiSession) Reset() {
	s.log.reset()
}

func (s *geminiSession) Turns() (n int) {
	n = s.log.exchanges()
	return n
}

func geminiHistory(turns []Turn) (contents []*genai.Content) {
	contents = make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		contents = append(contents, &genai.Content{
			Role:  t.Role,
			Parts: []genai.Part{genai.Text(t.Text)},
		})
	}
	return contents
}

// geminiText joins the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) (text string) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return text
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	text = sb.String()
	return text
}
