package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// ModelsEndpoint is the Generative Language model listing used by the HTTP fallback.
const ModelsEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"

// ModelLister discovers the model identifiers a backend accepts.
type ModelLister interface {
	ListModels(ctx context.Context) (list ModelList, err error)
}

// NewModelLister picks the SDK listing when backend supports one, and the
// bearer-authenticated HTTP listing otherwise. The Gemini SDK listing falls
// back to the HTTP listing when it fails, since both read the same catalogue.
func NewModelLister(backend Backend, baseURL, apiKey string) (lister ModelLister) {
	endpoint := ModelsEndpoint
	if baseURL != "" {
		endpoint = strings.TrimRight(baseURL, "/") + "/v1beta/models"
	}

	l, ok := backend.(ModelLister)
	if !ok {
		lister = NewHTTPModelLister(endpoint, apiKey)
		return lister
	}

	if _, gemini := backend.(*GeminiBackend); gemini {
		lister = &fallbackLister{primary: l, secondary: NewHTTPModelLister(endpoint, apiKey)}
		return lister
	}

	lister = l
	return lister
}

// fallbackLister asks secondary only when primary fails.
type fallbackLister struct {
	primary   ModelLister
	secondary ModelLister
}

func (f *fallbackLister) ListModels(ctx context.Context) (list ModelList, err error) {
	list, err = f.primary.ListModels(ctx)
	if err == nil {
		return list, err
	}

	var httpErr error
	list, httpErr = f.secondary.ListModels(ctx)
	if httpErr != nil {
		err = errors.Wrapf(err, "HTTP listing also failed: %v", httpErr)
		return list, err
	}

	err = nil
	return list, err
}

// HTTPModelLister fetches the model listing with a plain GET.
type HTTPModelLister struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPModelLister creates a lister for endpoint.
func NewHTTPModelLister(endpoint, apiKey string) (lister *HTTPModelLister) {
	lister = &HTTPModelLister{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	return lister
}

// ListModels fetches and decodes the listing.
func (l *HTTPModelLister) ListModels(ctx context.Context) (list ModelList, err error) {
	var req *http.Request
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint, nil)
	if err != nil {
		err = errors.Wrap(err, "failed to create HTTP request")
		return list, err
	}

	req.Header.Set("Authorization", "Bearer "+l.apiKey)
	req.Header.Set("Accept", "application/json")

	var resp *http.Response
	resp, err = l.httpClient.Do(req)
	if err != nil {
		err = errors.Wrap(err, "HTTP request failed")
		return list, err
	}
	defer resp.Body.Close()

	var body []byte
	body, err = io.ReadAll(resp.Body)
	if err != nil {
		err = errors.Wrap(err, "failed to read response body")
		return list, err
	}

	if resp.StatusCode != http.StatusOK {
		err = errors.Errorf("model listing failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return list, err
	}

	err = json.Unmarshal(body, &list.Raw)
	if err != nil {
		err = errors.Wrapf(err, "failed to parse model listing: %s", string(body))
		return list, err
	}

	list.Source = "http"
	list.Models = []ModelInfo{}
	gjson.GetBytes(body, "models").ForEach(func(_, m gjson.Result) bool {
		info := ModelInfo{
			ID:          strings.TrimPrefix(m.Get("name").String(), "models/"),
			DisplayName: m.Get("displayName").String(),
		}
		for _, method := range m.Get("supportedGenerationMethods").Array() {
			info.Methods = append(info.Methods, method.String())
		}
		list.Models = append(list.Models, info)
		return true
	})

	return list, err
}
