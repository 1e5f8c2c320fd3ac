package llm

import (
	"encoding/json"

	"github.com/nikogura/resume-ai/pkg/schema"
	"github.com/pkg/errors"
	"github.com/tidwall/sjson"
)

// ParseFailure reports a reply that could not be read as JSON. Raw holds
// the extracted candidate for diagnosis.
type ParseFailure struct {
	Error string `json:"error"`
	Raw   string `json:"raw"`
}

// Result is the outcome of a structured task: either every descriptor
// field, normalized, or a ParseFailure. Never both.
type Result struct {
	Kind    schema.TaskKind
	Fields  map[string]any
	Failure *ParseFailure

	order []string
}

// OK reports whether the reply parsed.
func (r Result) OK() (ok bool) {
	ok = r.Failure == nil
	return ok
}

// Get returns a normalized field value.
func (r Result) Get(name string) (value any) {
	value = r.Fields[name]
	return value
}

// MarshalJSON writes the fields in descriptor order, or the
// {"error","raw"} pair for a parse failure.
func (r Result) MarshalJSON() (data []byte, err error) {
	if r.Failure != nil {
		data, err = json.Marshal(r.Failure)
		return data, err
	}

	order := r.order
	if len(order) == 0 {
		if d, ok := schema.Default().Lookup(r.Kind); ok {
			order = d.Names()
		}
	}

	doc := "{}"
	for _, name := range order {
		value, present := r.Fields[name]
		if !present {
			continue
		}

		var raw []byte
		raw, err = json.Marshal(value)
		if err != nil {
			err = errors.Wrapf(err, "failed to marshal field %q", name)
			return data, err
		}

		doc, err = sjson.SetRaw(doc, schema.PathKey(name), string(raw))
		if err != nil {
			err = errors.Wrapf(err, "failed to set field %q", name)
			return data, err
		}
	}

	data = []byte(doc)
	return data, err
}

// Decode fills v, typically one of ATSScore, SkillGap or
// SummarySuggestions, from the normalized fields.
func (r Result) Decode(v any) (err error) {
	if r.Failure != nil {
		err = errors.New(r.Failure.Error)
		return err
	}

	var data []byte
	data, err = r.MarshalJSON()
	if err != nil {
		return err
	}

	err = json.Unmarshal(data, v)
	if err != nil {
		err = errors.Wrapf(err, "failed to decode %s result", r.Kind)
		return err
	}
	return err
}

// ATSScore is a decoded AtsScoring result.
type ATSScore struct {
	Score              *float64           `json:"score"`
	Breakdown          map[string]float64 `json:"breakdown"`
	TopMatchedKeywords []string           `json:"topMatchedKeywords"`
	TopMissingKeywords []string           `json:"topMissingKeywords"`
	Suggestions        []string           `json:"suggestions"`
	ExampleBullets     []string           `json:"exampleBullets"`
}

// MissingSkill is a skill the job asks for that the résumé lacks.
type MissingSkill struct {
	Skill         string   `json:"skill"`
	Priority      string   `json:"priority"`
	Reason        string   `json:"reason"`
	EstimatedTime string   `json:"estimatedTime"`
	Resources     []string `json:"resources"`
}

// SkillGap is a decoded SkillGapAnalysis result.
type SkillGap struct {
	ResumeSkills  []string       `json:"resumeSkills"`
	JobSkills     []string       `json:"jobSkills"`
	MatchedSkills []string       `json:"matchedSkills"`
	MissingSkills []MissingSkill `json:"missingSkills"`
	QuickFixes    []string       `json:"quickFixes"`
}

// SummarySuggestion is one drafted summary.
type SummarySuggestion struct {
	ExperienceLevel string `json:"experienceLevel"`
	Summary         string `json:"summary"`
}

// SummarySuggestions is a decoded SummarySuggestions result.
type SummarySuggestions struct {
	Summaries []SummarySuggestion `json:"summaries"`
}

// ModelInfo describes one model offered by a backend.
type ModelInfo struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName,omitempty"`
	Methods     []string `json:"supportedGenerationMethods,omitempty"`
}

// ModelList is the outcome of model discovery. Raw carries the decoded
// body when the listing came from the HTTP fallback.
type ModelList struct {
	Source string         `json:"source"`
	Models []ModelInfo    `json:"models"`
	Raw    map[string]any `json:"raw,omitempty"`
}
