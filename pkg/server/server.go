package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/nikogura/resume-ai/pkg/llm"
	"github.com/nikogura/resume-ai/pkg/resume"
	"github.com/nikogura/resume-ai/pkg/schema"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Server exposes the AI tasks over HTTP for the résumé editor.
type Server struct {
	app    *fiber.App
	ai     *llm.Client
	store  resume.Store
	logger logrus.FieldLogger
	check  bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger logrus.FieldLogger) (opt Option) {
	opt = func(s *Server) { s.logger = logger }
	return opt
}

// WithResultCheck validates every normalized result against its descriptor's
// JSON Schema and logs mismatches.
func WithResultCheck(enabled bool) (opt Option) {
	opt = func(s *Server) { s.check = enabled }
	return opt
}

type skillGapReq struct {
	JobDescription string `json:"jobDescription"`
}

type summariesReq struct {
	JobTitle string `json:"jobTitle"`
}

type sectionReq struct {
	PositionTitle string `json:"positionTitle"`
}

// New creates a Server and registers its routes.
func New(ai *llm.Client, store resume.Store, opts ...Option) (s *Server) {
	s = &Server{
		ai:     ai,
		store:  store,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "resume-ai",
		DisableStartupMessage: true,
	})

	s.app.Get("/healthz", s.Health)

	api := s.app.Group("/api")
	api.Get("/models", s.Models)
	api.Post("/session/reset", s.ResetSession)
	api.Post("/resumes/:id/ats", s.ATSScore)
	api.Post("/resumes/:id/skill-gap", s.SkillGap)
	api.Post("/resumes/:id/summary-suggestions", s.SummarySuggestions)
	api.Post("/resumes/:id/experience/:index/summary", s.ExperienceSummary)

	return s
}

// App returns the underlying fiber application.
func (s *Server) App() (app *fiber.App) {
	app = s.app
	return app
}

// Listen serves until the listener fails or Shutdown is called.
func (s *Server) Listen(addr string) (err error) {
	s.logger.WithField("addr", addr).Info("HTTP API listening")
	err = s.app.Listen(addr)
	if err != nil {
		err = errors.Wrapf(err, "failed to serve on %s", addr)
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown() (err error) {
	err = s.app.Shutdown()
	return err
}

// Health reports liveness and the configured backend.
func (s *Server) Health(c *fiber.Ctx) (err error) {
	err = c.JSON(fiber.Map{"status": "ok", "backend": s.ai.Backend().Name()})
	return err
}

// Models lists the models the backend accepts.
func (s *Server) Models(c *fiber.Ctx) (err error) {
	list, listErr := s.ai.ListModels(c.UserContext())
	if listErr != nil {
		s.logger.WithError(listErr).Error("model listing failed")
		err = c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": listErr.Error()})
		return err
	}
	err = c.JSON(list)
	return err
}

// ResetSession drops the shared conversational context.
func (s *Server) ResetSession(c *fiber.Ctx) (err error) {
	s.ai.NewSession()
	s.logger.Info("AI session reset")
	err = c.JSON(fiber.Map{"status": "reset"})
	return err
}

// ATSScore rates a stored résumé.
func (s *Server) ATSScore(c *fiber.Ctx) (err error) {
	doc, fetchErr := s.document(c)
	if fetchErr != nil {
		err = s.fail(c, fetchErr)
		return err
	}

	result, aiErr := s.ai.ComputeATSScore(c.UserContext(), doc.Text())
	if aiErr != nil {
		err = s.fail(c, aiErr)
		return err
	}

	err = s.respondResult(c, result)
	return err
}

// SkillGap compares a stored résumé with the posted job description.
func (s *Server) SkillGap(c *fiber.Ctx) (err error) {
	var req skillGapReq
	if len(c.Body()) > 0 {
		if parseErr := c.BodyParser(&req); parseErr != nil {
			err = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
			return err
		}
	}

	doc, fetchErr := s.document(c)
	if fetchErr != nil {
		err = s.fail(c, fetchErr)
		return err
	}

	result, aiErr := s.ai.AnalyzeSkillGap(c.UserContext(), doc.Text(), req.JobDescription)
	if aiErr != nil {
		err = s.fail(c, aiErr)
		return err
	}

	err = s.respondResult(c, result)
	return err
}

// SummarySuggestions drafts summaries for the posted job title, falling back
// to the résumé's own title.
func (s *Server) SummarySuggestions(c *fiber.Ctx) (err error) {
	var req summariesReq
	if len(c.Body()) > 0 {
		if parseErr := c.BodyParser(&req); parseErr != nil {
			err = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
			return err
		}
	}

	doc, fetchErr := s.document(c)
	if fetchErr != nil {
		err = s.fail(c, fetchErr)
		return err
	}

	jobTitle := strings.TrimSpace(req.JobTitle)
	if jobTitle == "" {
		jobTitle = doc.JobTitle
	}

	result, aiErr := s.ai.SuggestSummaries(c.UserContext(), jobTitle)
	if aiErr != nil {
		err = s.fail(c, aiErr)
		return err
	}

	err = s.respondResult(c, result)
	return err
}

// ExperienceSummary drafts the HTML work summary of one position and
// stores it on the résumé.
func (s *Server) ExperienceSummary(c *fiber.Ctx) (err error) {
	index, convErr := strconv.Atoi(c.Params("index"))
	if convErr != nil || index < 0 {
		err = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid experience index"})
		return err
	}

	var req sectionReq
	if len(c.Body()) > 0 {
		if parseErr := c.BodyParser(&req); parseErr != nil {
			err = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
			return err
		}
	}

	doc, fetchErr := s.document(c)
	if fetchErr != nil {
		err = s.fail(c, fetchErr)
		return err
	}

	if index >= len(doc.Experience) {
		err = s.fail(c, errors.Wrapf(resume.ErrNotFound, "experience %d", index))
		return err
	}

	title := strings.TrimSpace(req.PositionTitle)
	if title == "" {
		title = doc.Experience[index].Title
	}

	html, aiErr := s.ai.GenerateSectionText(c.UserContext(), title)
	if aiErr != nil {
		err = s.fail(c, aiErr)
		return err
	}

	section := fmt.Sprintf("experience.%d.workSummary", index)
	if persistErr := s.store.PersistSection(c.UserContext(), doc.ID, section, html); persistErr != nil {
		err = s.fail(c, persistErr)
		return err
	}

	err = c.JSON(fiber.Map{"html": html})
	return err
}

func (s *Server) document(c *fiber.Ctx) (doc resume.Document, err error) {
	var id uuid.UUID
	id, err = uuid.Parse(c.Params("id"))
	if err != nil {
		err = fiber.NewError(fiber.StatusBadRequest, "invalid resume id")
		return doc, err
	}

	doc, err = s.store.Fetch(c.UserContext(), id)
	return doc, err
}

func (s *Server) respondResult(c *fiber.Ctx, result llm.Result) (err error) {
	if s.check && result.OK() {
		s.checkResult(result)
	}
	err = c.JSON(result)
	return err
}

func (s *Server) checkResult(result llm.Result) {
	d, ok := schema.Default().Lookup(result.Kind)
	if !ok {
		return
	}
	if err := d.Validate(result.Fields); err != nil {
		s.logger.WithError(err).WithField("kind", result.Kind.String()).Warn("normalized result off schema")
	}
}

// fail maps an error onto a status code and an {error, suggestion} body.
func (s *Server) fail(c *fiber.Ctx, cause error) (err error) {
	status := fiber.StatusInternalServerError
	body := fiber.Map{"error": cause.Error()}

	var terr *llm.TransportError
	var ferr *fiber.Error

	switch {
	case errors.As(cause, &terr):
		status = fiber.StatusBadGateway
		body["error"] = llm.ErrorPrefix + terr.Message
		body["suggestion"] = strings.TrimSpace(terr.Suggestion)
	case errors.As(cause, &ferr):
		status = ferr.Code
		body["error"] = ferr.Message
	case errors.Is(cause, resume.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(cause, llm.ErrUnknownKind), errors.Is(cause, llm.ErrUnstructuredKind):
		status = fiber.StatusBadRequest
	}

	entry := s.logger.WithFields(logrus.Fields{
		"path":   c.Path(),
		"status": status,
	}).WithError(cause)
	if status >= fiber.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}

	err = c.Status(status).JSON(body)
	return err
}
