package llm

import (
	"net/http"
	"regexp"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
)

// ErrorPrefix starts the text of every TransportError.
const ErrorPrefix = "[AI API Error] "

//nolint:gochecknoglobals // Compiled once, read-only
var modelNotFoundPattern = regexp.MustCompile(`(?i)not found|not supported|404`)

var (
	// ErrUnknownKind is returned for a task kind with no registered descriptor.
	ErrUnknownKind = errors.New("unknown task kind")
	// ErrUnstructuredKind is returned when free-text generation is asked for structured output.
	ErrUnstructuredKind = errors.New("task kind has no structured output")
	// ErrMissingCredential is returned by a backend whose API key is empty.
	ErrMissingCredential = errors.New("no API key configured")
)

// TransportError is a classified failure of the round trip to the model backend.
type TransportError struct {
	Message    string
	Suggestion string
	Err        error
}

func (e *TransportError) Error() (msg string) {
	msg = ErrorPrefix + e.Message + e.Suggestion
	return msg
}

// Unwrap exposes the underlying failure to errors.Is and errors.As.
func (e *TransportError) Unwrap() (cause error) {
	cause = e.Err
	return cause
}

// Cause satisfies github.com/pkg/errors causer.
func (e *TransportError) Cause() (cause error) {
	cause = e.Err
	return cause
}

// modelSuggestion is the remediation hint for a wrong or unsupported model name.
func modelSuggestion(credentialEnv string) (suggestion string) {
	suggestion = " Model may be unsupported for this API version or the model name is incorrect." +
		" Run ListModels or pick a supported model." +
		" Check your " + credentialEnv + " and model name."
	return suggestion
}

// classifyTransportError converts any backend failure into a *TransportError,
// logging the original cause. It returns nil for a nil cause.
func classifyTransportError(logger logrus.FieldLogger, backend, credentialEnv string, cause error) (terr *TransportError) {
	if cause == nil {
		return terr
	}
	if errors.As(cause, &terr) {
		return terr
	}

	msg := cause.Error()
	if msg == "" {
		msg = "Unknown AI error"
	}

	terr = &TransportError{
		Message: msg,
		Err:     cause,
	}
	if modelNotFoundPattern.MatchString(msg) || isNotFoundStatus(cause) {
		terr.Suggestion = modelSuggestion(credentialEnv)
	}

	logger.WithFields(logrus.Fields{
		"backend": backend,
		"error":   cause,
	}).Error("AI API call error")

	return terr
}

func isNotFoundStatus(err error) (notFound bool) {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		notFound = true
		return notFound
	}

	var aerr *anthropic.Error
	if errors.As(err, &aerr) && aerr.StatusCode == http.StatusNotFound {
		notFound = true
	}
	return notFound
}
