package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/nikogura/resume-ai/pkg/llm"
	"github.com/nikogura/resume-ai/pkg/resume"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

func quietLogger() (logger *logrus.Logger) {
	logger = logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// cannedSession answers every prompt with the next reply, or fails with err.
type cannedSession struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
}

func (s *cannedSession) Send(_ context.Context, prompt string, _ ...llm.SendOption) (reply string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		err = s.err
		return reply, err
	}

	i := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	if i < len(s.replies) {
		reply = s.replies[i]
	}
	return reply, err
}

func (s *cannedSession) Reset() {
	s.mu.Lock()
	s.prompts = nil
	s.mu.Unlock()
}

func (s *cannedSession) Turns() (n int) {
	s.mu.Lock()
	n = len(s.prompts)
	s.mu.Unlock()
	return n
}

type cannedBackend struct {
	replies  []string
	err      error
	sessions []*cannedSession
}

func (b *cannedBackend) Name() (name string) {
	name = "canned"
	return name
}

func (b *cannedBackend) StartSession(_ llm.GenerationSettings) (session llm.Session) {
	s := &cannedSession{replies: b.replies, err: b.err}
	b.sessions = append(b.sessions, s)
	session = s
	return session
}

func (b *cannedBackend) Close() (err error) {
	return err
}

type fixedLister struct {
	list llm.ModelList
	err  error
}

func (l fixedLister) ListModels(_ context.Context) (list llm.ModelList, err error) {
	list, err = l.list, l.err
	return list, err
}

func seededStore(t *testing.T) (store *resume.MemoryStore, id uuid.UUID) {
	t.Helper()
	store = resume.NewMemoryStore()
	id = uuid.New()
	doc := resume.Document{
		ID:        id,
		FirstName: "Jane",
		LastName:  "Roe",
		JobTitle:  "Backend Engineer",
		Experience: []resume.Experience{
			{ID: 1, Title: "Platform Engineer", CompanyName: "Acme"},
		},
		Skills: []resume.Skill{{ID: 1, Name: "Go", Rating: 90}},
	}
	if err := store.Save(context.Background(), doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return store, id
}

func newTestServer(t *testing.T, backend *cannedBackend, opts ...llm.Option) (srv *Server, store *resume.MemoryStore, id uuid.UUID) {
	t.Helper()
	store, id = seededStore(t)
	opts = append([]llm.Option{llm.WithLogger(quietLogger())}, opts...)
	client := llm.NewClient(backend, opts...)
	srv = New(client, store, WithLogger(quietLogger()), WithResultCheck(true))
	return srv, store, id
}

func do(t *testing.T, srv *Server, method, path, body string) (status int, payload gjson.Result) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}

	status = resp.StatusCode
	payload = gjson.ParseBytes(data)
	return status, payload
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, &cannedBackend{})

	status, body := do(t, srv, http.MethodGet, "/healthz", "")
	if status != http.StatusOK {
		t.Errorf("Expected 200, got %d", status)
	}

	if body.Get("backend").String() != "canned" {
		t.Errorf("Expected backend 'canned', got '%s'", body.Get("backend").String())
	}
}

func TestATSScore(t *testing.T) {
	backend := &cannedBackend{replies: []string{"```json\n{\"score\": 150, \"breakdown\": {\"Keywords\": 40}, \"suggestions\": [\"Add metrics\"]}\n```"}}
	srv, _, id := newTestServer(t, backend)

	status, body := do(t, srv, http.MethodPost, "/api/resumes/"+id.String()+"/ats", "")
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", status, body.Raw)
	}

	if body.Get("score").Float() != 100 {
		t.Errorf("Expected clamped score 100, got %v", body.Get("score").Value())
	}

	if body.Get("breakdown.Keywords").Float() != 30 {
		t.Errorf("Expected Keywords clamped to 30, got %v", body.Get("breakdown.Keywords").Value())
	}

	if !body.Get("topMissingKeywords").IsArray() {
		t.Error("Expected topMissingKeywords to default to an array")
	}

	if !strings.Contains(backend.sessions[0].prompts[0], "Jane Roe") {
		t.Error("Expected résumé text in prompt")
	}
}

func TestATSScoreParseFailure(t *testing.T) {
	srv, _, id := newTestServer(t, &cannedBackend{replies: []string{"I cannot score this résumé."}})

	status, body := do(t, srv, http.MethodPost, "/api/resumes/"+id.String()+"/ats", "")
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}

	if body.Get("error").String() != llm.ParseFailureMessage {
		t.Errorf("Expected parse failure message, got '%s'", body.Get("error").String())
	}

	if body.Get("raw").String() != "I cannot score this résumé." {
		t.Errorf("Expected raw reply, got '%s'", body.Get("raw").String())
	}
}

func TestSkillGap(t *testing.T) {
	reply := `{"resumeSkills":["Go"],"jobSkills":["Go","Rust"],"matchedSkills":["Go"],"missingSkills":[{"skill":"Rust","priority":"high"}],"quickFixes":[]}`
	backend := &cannedBackend{replies: []string{reply}}
	srv, _, id := newTestServer(t, backend)

	status, body := do(t, srv, http.MethodPost, "/api/resumes/"+id.String()+"/skill-gap", `{"jobDescription":"Rust services"}`)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", status, body.Raw)
	}

	if body.Get("missingSkills.0.priority").String() != "High" {
		t.Errorf("Expected canonical priority 'High', got '%s'", body.Get("missingSkills.0.priority").String())
	}

	if !strings.Contains(backend.sessions[0].prompts[0], "Rust services") {
		t.Error("Expected job description in prompt")
	}
}

func TestSkillGapBadPayload(t *testing.T) {
	srv, _, id := newTestServer(t, &cannedBackend{})

	status, _ := do(t, srv, http.MethodPost, "/api/resumes/"+id.String()+"/skill-gap", `{"jobDescription":`)
	if status != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", status)
	}
}

func TestSummarySuggestionsUsesResumeTitle(t *testing.T) {
	reply := `[{"experienceLevel":"Fresher","summary":"Eager engineer."}]`
	backend := &cannedBackend{replies: []string{reply}}
	srv, _, id := newTestServer(t, backend)

	status, body := do(t, srv, http.MethodPost, "/api/resumes/"+id.String()+"/summary-suggestions", "")
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", status, body.Raw)
	}

	if body.Get("summaries.0.summary").String() != "Eager engineer." {
		t.Errorf("Expected wrapped summaries, got %s", body.Raw)
	}

	if !strings.Contains(backend.sessions[0].prompts[0], "Job Title: Backend Engineer") {
		t.Error("Expected résumé job title in prompt")
	}
}

func TestExperienceSummaryPersists(t *testing.T) {
	backend := &cannedBackend{replies: []string{"```html\n<ul><li>**Scaled** APIs</li></ul>\n```"}}
	srv, store, id := newTestServer(t, backend)

	status, body := do(t, srv, http.MethodPost, "/api/resumes/"+id.String()+"/experience/0/summary", "")
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", status, body.Raw)
	}

	want := "<ul><li><b>Scaled</b> APIs</li></ul>"
	if body.Get("html").String() != want {
		t.Errorf("Expected '%s', got '%s'", want, body.Get("html").String())
	}

	doc, err := store.Fetch(context.Background(), id)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if doc.Experience[0].WorkSummary != want {
		t.Errorf("Expected persisted summary, got '%s'", doc.Experience[0].WorkSummary)
	}

	if !strings.Contains(backend.sessions[0].prompts[0], "Platform Engineer") {
		t.Error("Expected position title in prompt")
	}
}

func TestRequestErrors(t *testing.T) {
	srv, _, id := newTestServer(t, &cannedBackend{})

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{name: "bad id", path: "/api/resumes/not-a-uuid/ats", status: http.StatusBadRequest},
		{name: "unknown id", path: "/api/resumes/" + uuid.NewString() + "/ats", status: http.StatusNotFound},
		{name: "bad index", path: "/api/resumes/" + id.String() + "/experience/x/summary", status: http.StatusBadRequest},
		{name: "negative index", path: "/api/resumes/" + id.String() + "/experience/-1/summary", status: http.StatusBadRequest},
		{name: "missing position", path: "/api/resumes/" + id.String() + "/experience/3/summary", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, srv, http.MethodPost, tt.path, "")
			if status != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, status)
			}
			if body.Get("error").String() == "" {
				t.Error("Expected error message")
			}
		})
	}
}

func TestTransportFailure(t *testing.T) {
	backend := &cannedBackend{err: &llm.TransportError{
		Message:    "models/gemini-x is not found",
		Suggestion: " Check your GOOGLE_API_KEY and model name.",
	}}
	srv, _, id := newTestServer(t, backend)

	status, body := do(t, srv, http.MethodPost, "/api/resumes/"+id.String()+"/ats", "")
	if status != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", status)
	}

	if body.Get("error").String() != llm.ErrorPrefix+"models/gemini-x is not found" {
		t.Errorf("Expected prefixed message, got '%s'", body.Get("error").String())
	}

	if body.Get("suggestion").String() != "Check your GOOGLE_API_KEY and model name." {
		t.Errorf("Expected suggestion, got '%s'", body.Get("suggestion").String())
	}
}

func TestModels(t *testing.T) {
	lister := fixedLister{list: llm.ModelList{
		Source: "sdk",
		Models: []llm.ModelInfo{{ID: "gemini-2.5-flash", DisplayName: "Gemini 2.5 Flash"}},
	}}
	srv, _, _ := newTestServer(t, &cannedBackend{}, llm.WithModelLister(lister))

	status, body := do(t, srv, http.MethodGet, "/api/models", "")
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}

	var list llm.ModelList
	if err := json.Unmarshal([]byte(body.Raw), &list); err != nil {
		t.Fatalf("Failed to decode model list: %v", err)
	}

	if len(list.Models) != 1 || list.Models[0].ID != "gemini-2.5-flash" {
		t.Errorf("Expected one gemini model, got %+v", list.Models)
	}
}

func TestModelsError(t *testing.T) {
	lister := fixedLister{err: context.DeadlineExceeded}
	srv, _, _ := newTestServer(t, &cannedBackend{}, llm.WithModelLister(lister))

	status, body := do(t, srv, http.MethodGet, "/api/models", "")
	if status != http.StatusBadGateway {
		t.Errorf("Expected 502, got %d", status)
	}

	if !body.Get("error").Exists() {
		t.Error("Expected error field")
	}
}

func TestResetSession(t *testing.T) {
	backend := &cannedBackend{}
	srv, _, _ := newTestServer(t, backend)

	status, _ := do(t, srv, http.MethodPost, "/api/session/reset", "")
	if status != http.StatusOK {
		t.Errorf("Expected 200, got %d", status)
	}

	if len(backend.sessions) != 2 {
		t.Errorf("Expected a fresh session, got %d sessions", len(backend.sessions))
	}
}
