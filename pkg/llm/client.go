package llm

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nikogura/resume-ai/pkg/schema"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Call outcomes recorded in the per-call log entry.
const (
	OutcomeNormalized      = "normalized"
	OutcomeParseFailed     = "parse_failed"
	OutcomeTransportFailed = "transport_failed"
	OutcomeGenerated       = "generated"
)

// Client is the task façade. It owns one current Session on its Backend
// and runs every task as build prompt, send, extract and normalize.
type Client struct {
	backend  Backend
	registry *schema.Registry
	settings GenerationSettings
	logger   logrus.FieldLogger
	fixer    *Fixer
	lister   ModelLister

	mu      sync.Mutex
	session Session
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for per-call entries.
func WithLogger(logger logrus.FieldLogger) (opt Option) {
	opt = func(c *Client) { c.logger = logger }
	return opt
}

// WithRegistry replaces the default schema registry.
func WithRegistry(registry *schema.Registry) (opt Option) {
	opt = func(c *Client) { c.registry = registry }
	return opt
}

// WithGenerationSettings sets the settings new sessions start with.
func WithGenerationSettings(settings GenerationSettings) (opt Option) {
	opt = func(c *Client) { c.settings = settings }
	return opt
}

// WithModelLister overrides model discovery.
func WithModelLister(lister ModelLister) (opt Option) {
	opt = func(c *Client) { c.lister = lister }
	return opt
}

func defaultLogger() (logger logrus.FieldLogger) {
	logger = logrus.StandardLogger()
	return logger
}

// NewClient creates a façade over backend and starts its first session.
func NewClient(backend Backend, opts ...Option) (client *Client) {
	client = &Client{
		backend:  backend,
		registry: schema.Default(),
		settings: DefaultGenerationSettings(),
		logger:   defaultLogger(),
		fixer:    NewFixer(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.lister == nil {
		client.lister = NewModelLister(backend, "", "")
	}
	client.session = backend.StartSession(client.settings)
	return client
}

// Backend returns the backend the client talks to.
func (c *Client) Backend() (backend Backend) {
	backend = c.backend
	return backend
}

// Session returns the current session.
func (c *Client) Session() (session Session) {
	c.mu.Lock()
	session = c.session
	c.mu.Unlock()
	return session
}

// NewSession replaces the current session with a fresh one, dropping all
// prior conversational context. Calls already in flight finish on the old one.
func (c *Client) NewSession() (session Session) {
	session = c.backend.StartSession(c.settings)
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
	return session
}

// WithSession returns a client that runs its tasks on session instead of
// the shared one. It shares everything else with c.
func (c *Client) WithSession(session Session) (scoped *Client) {
	scoped = &Client{
		backend:  c.backend,
		registry: c.registry,
		settings: c.settings,
		logger:   c.logger,
		fixer:    c.fixer,
		lister:   c.lister,
		session:  session,
	}
	return scoped
}

// Close releases the backend.
func (c *Client) Close() (err error) {
	err = c.backend.Close()
	return err
}

// GenerateSectionText drafts an HTML résumé summary for a position title.
// A transport failure is returned as a *TransportError.
func (c *Client) GenerateSectionText(ctx context.Context, positionTitle string) (html string, err error) {
	start := time.Now()
	callID := uuid.NewString()
	kind := schema.FreeTextGeneration

	var prompt string
	prompt, err = buildPrompt(c.registry, kind, Args{PositionTitle: positionTitle})
	if err != nil {
		return html, err
	}

	session := c.Session()

	var reply string
	reply, err = session.Send(ctx, prompt, WithJSONMode(false))
	if err != nil {
		c.logCall(callID, kind, OutcomeTransportFailed, start, session).WithError(err).Error("AI call failed")
		return html, err
	}

	var applied []string
	html, applied = c.fixer.Fix(reply)

	c.logCall(callID, kind, OutcomeGenerated, start, session).WithFields(logrus.Fields{
		"fixes":       applied,
		"reply_chars": len(reply),
	}).Info("AI call completed")

	return html, err
}

// AnalyzeStructured runs a structured task. A reply that cannot be parsed
// is reported in Result.Failure, not as an error. The returned error is a
// *TransportError, or ErrUnknownKind / ErrUnstructuredKind for a bad kind.
func (c *Client) AnalyzeStructured(ctx context.Context, kind schema.TaskKind, args Args) (result Result, err error) {
	start := time.Now()
	callID := uuid.NewString()

	if kind == schema.FreeTextGeneration {
		err = errors.Wrapf(ErrUnstructuredKind, "%s", kind)
		return result, err
	}

	d, ok := c.registry.Lookup(kind)
	if !ok {
		err = errors.Wrapf(ErrUnknownKind, "no descriptor for %s", kind)
		return result, err
	}

	var prompt string
	prompt, err = buildPrompt(c.registry, kind, args)
	if err != nil {
		return result, err
	}

	session := c.Session()

	var reply string
	reply, err = session.Send(ctx, prompt)
	if err != nil {
		c.logCall(callID, kind, OutcomeTransportFailed, start, session).WithError(err).Error("AI call failed")
		return result, err
	}

	result = Normalize(ExtractJSONCandidate(reply), d)

	outcome := OutcomeNormalized
	if !result.OK() {
		outcome = OutcomeParseFailed
	}
	c.logCall(callID, kind, outcome, start, session).WithFields(logrus.Fields{
		"prompt_chars": len(prompt),
		"reply_chars":  len(reply),
	}).Info("AI call completed")

	return result, err
}

// AnalyzeSkillGap compares résumé skills with a job description, which may be empty.
func (c *Client) AnalyzeSkillGap(ctx context.Context, resumeText, jobDescription string) (result Result, err error) {
	result, err = c.AnalyzeStructured(ctx, schema.SkillGapAnalysis, Args{
		ResumeText:     resumeText,
		JobDescription: jobDescription,
	})
	return result, err
}

// ComputeATSScore rates a résumé for applicant tracking systems.
func (c *Client) ComputeATSScore(ctx context.Context, resumeText string) (result Result, err error) {
	result, err = c.AnalyzeStructured(ctx, schema.AtsScoring, Args{ResumeText: resumeText})
	return result, err
}

// SuggestSummaries drafts one résumé summary per experience level.
func (c *Client) SuggestSummaries(ctx context.Context, jobTitle string) (result Result, err error) {
	result, err = c.AnalyzeStructured(ctx, schema.SummarySuggestions, Args{JobTitle: jobTitle})
	return result, err
}

// ListModels reports the models the backend accepts.
func (c *Client) ListModels(ctx context.Context) (list ModelList, err error) {
	list, err = c.lister.ListModels(ctx)
	return list, err
}

func (c *Client) logCall(callID string, kind schema.TaskKind, outcome string, start time.Time, session Session) (entry *logrus.Entry) {
	entry = c.logger.WithFields(logrus.Fields{
		"call_id":  callID,
		"backend":  c.backend.Name(),
		"kind":     kind.String(),
		"outcome":  outcome,
		"duration": time.Since(start),
		"turns":    session.Turns(),
	})
	return entry
}
