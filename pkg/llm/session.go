package llm

import (
	"context"
	"sync"
)

const (
	// DefaultTemperature and the values below are the generation defaults.
	DefaultTemperature     = 1.0
	DefaultTopP            = 0.95
	DefaultTopK            = 64
	DefaultMaxOutputTokens = 8192

	// RoleUser marks a prompt in session history.
	RoleUser = "user"
	// RoleModel marks a reply in session history.
	RoleModel = "model"
)

// GenerationSettings are the sampling parameters sent with each prompt.
type GenerationSettings struct {
	Temperature     float32 `json:"temperature"`
	TopP            float32 `json:"top_p"`
	TopK            int32   `json:"top_k"`
	MaxOutputTokens int32   `json:"max_output_tokens"`
	JSONMode        bool    `json:"json_mode"`
}

// DefaultGenerationSettings returns the stock sampling parameters with JSON output forced.
func DefaultGenerationSettings() (settings GenerationSettings) {
	settings = GenerationSettings{
		Temperature:     DefaultTemperature,
		TopP:            DefaultTopP,
		TopK:            DefaultTopK,
		MaxOutputTokens: DefaultMaxOutputTokens,
		JSONMode:        true,
	}
	return settings
}

// SendOption overrides a generation setting for one Send.
type SendOption func(*GenerationSettings)

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float32) (opt SendOption) {
	opt = func(s *GenerationSettings) { s.Temperature = t }
	return opt
}

// WithTopP overrides nucleus sampling.
func WithTopP(p float32) (opt SendOption) {
	opt = func(s *GenerationSettings) { s.TopP = p }
	return opt
}

// WithTopK overrides top-k sampling.
func WithTopK(k int32) (opt SendOption) {
	opt = func(s *GenerationSettings) { s.TopK = k }
	return opt
}

// WithMaxOutputTokens overrides the output token ceiling.
func WithMaxOutputTokens(n int32) (opt SendOption) {
	opt = func(s *GenerationSettings) { s.MaxOutputTokens = n }
	return opt
}

// WithJSONMode forces or releases JSON response mode.
func WithJSONMode(on bool) (opt SendOption) {
	opt = func(s *GenerationSettings) { s.JSONMode = on }
	return opt
}

func (s GenerationSettings) with(opts []SendOption) (out GenerationSettings) {
	out = s
	for _, opt := range opts {
		opt(&out)
	}
	return out
}

// Session is one conversational channel to a model backend. Each successful
// Send appends the prompt and the reply to the session's history.
type Session interface {
	Send(ctx context.Context, prompt string, opts ...SendOption) (reply string, err error)
	Reset()
	Turns() (n int)
}

// Backend starts sessions against one model provider.
type Backend interface {
	Name() (name string)
	StartSession(settings GenerationSettings) (session Session)
	Close() (err error)
}

// Turn is one message in a session's history.
type Turn struct {
	Role string
	Text string
}

// history is the mutex-guarded turn log shared by the backend sessions.
// The lock is held only to copy or append, never across a network call,
// so concurrent Sends may interleave their exchanges.
type history struct {
	mu    sync.Mutex
	turns []Turn
	limit int // Maximum retained exchanges; 0 keeps everything
}

func (h *history) snapshot() (turns []Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	turns = make([]Turn, len(h.turns))
	copy(turns, h.turns)
	return turns
}

func (h *history) commit(prompt, reply string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, Turn{Role: RoleUser, Text: prompt}, Turn{Role: RoleModel, Text: reply})
	if h.limit > 0 && len(h.turns) > 2*h.limit {
		h.turns = append([]Turn(nil), h.turns[len(h.turns)-2*h.limit:]...)
	}
}

func (h *history) reset() {
	h.mu.Lock()
	h.turns = nil
	h.mu.Unlock()
}

// exchanges counts completed prompt/reply pairs.
func (h *history) exchanges() (n int) {
	h.mu.Lock()
	n = len(h.turns) / 2
	h.mu.Unlock()
	return n
}
