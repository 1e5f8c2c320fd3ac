package llm

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/nikogura/resume-ai/pkg/schema"
)

func atsDescriptor(t *testing.T) (d schema.Descriptor) {
	t.Helper()
	d, ok := schema.Default().Lookup(schema.AtsScoring)
	if !ok {
		t.Fatal("Expected built-in ATS descriptor")
	}
	return d
}

func TestNormalizeClampsScore(t *testing.T) {
	d := atsDescriptor(t)

	tests := []struct {
		name string
		in   string
		want any
	}{
		{name: "above range", in: `{"score":150}`, want: float64(100)},
		{name: "below range", in: `{"score":-5}`, want: float64(0)},
		{name: "in range", in: `{"score":73.5}`, want: float64(73.5)},
		{name: "not a number", in: `{"score":"80"}`, want: nil},
		{name: "missing", in: `{}`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Normalize(tt.in, d)
			if !result.OK() {
				t.Fatalf("Unexpected failure: %+v", result.Failure)
			}
			if got := result.Get("score"); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNormalizeClampsBreakdown(t *testing.T) {
	d := atsDescriptor(t)

	result := Normalize(`{"breakdown":{"ContactInfo":25,"Keywords":-3,"Formatting":"high","Bogus":5}}`, d)
	breakdown, ok := result.Get("breakdown").(map[string]any)
	if !ok {
		t.Fatalf("Expected breakdown object, got %T", result.Get("breakdown"))
	}

	if breakdown["ContactInfo"] != float64(10) {
		t.Errorf("Expected ContactInfo clamped to 10, got %v", breakdown["ContactInfo"])
	}

	if breakdown["Keywords"] != float64(0) {
		t.Errorf("Expected Keywords clamped to 0, got %v", breakdown["Keywords"])
	}

	if _, present := breakdown["Formatting"]; present {
		t.Error("Expected non-numeric member to be omitted")
	}

	if _, present := breakdown["Bogus"]; present {
		t.Error("Expected unknown member to be dropped")
	}
}

func TestNormalizeDefaultsMissingKeywords(t *testing.T) {
	d := atsDescriptor(t)

	result := Normalize(`{"score":50,"topMatchedKeywords":["Go"]}`, d)

	missing, ok := result.Get("topMissingKeywords").([]any)
	if !ok {
		t.Fatalf("Expected a sequence, got %T", result.Get("topMissingKeywords"))
	}

	if len(missing) != 0 {
		t.Errorf("Expected empty sequence, got %v", missing)
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	if !strings.Contains(string(data), `"topMissingKeywords":[]`) {
		t.Errorf("Expected topMissingKeywords as [], got %s", data)
	}
}

func TestNormalizeFieldOrder(t *testing.T) {
	d := atsDescriptor(t)

	result := Normalize(`{"exampleBullets":[],"score":1}`, d)
	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	last := -1
	for _, name := range d.Names() {
		idx := strings.Index(string(data), `"`+name+`"`)
		if idx < last {
			t.Errorf("Field %q out of descriptor order in %s", name, data)
		}
		last = idx
	}
}

func TestNormalizeRepairs(t *testing.T) {
	d := atsDescriptor(t)

	tests := []struct {
		name string
		in   string
	}{
		{name: "trailing comma", in: `{"score":40,"suggestions":["a","b",],}`},
		{name: "smart quotes", in: "{“score”:40,“suggestions”:[“a”,“b”]}"},
		{name: "byte order mark", in: "\ufeff{\"score\":40,\"suggestions\":[\"a\",\"b\"]}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Normalize(tt.in, d)
			if !result.OK() {
				t.Fatalf("Expected repair to succeed, got %+v", result.Failure)
			}
			if result.Get("score") != float64(40) {
				t.Errorf("Expected score 40, got %v", result.Get("score"))
			}
			if !reflect.DeepEqual(result.Get("suggestions"), []any{"a", "b"}) {
				t.Errorf("Expected [a b], got %v", result.Get("suggestions"))
			}
		})
	}
}

func TestNormalizeRepairKeepsQuotedText(t *testing.T) {
	d := atsDescriptor(t)

	result := Normalize(`{"score":50,"suggestions":["Use “action” verbs"],}`, d)
	if !result.OK() {
		t.Fatalf("Expected trailing comma repair to succeed, got %+v", result.Failure)
	}

	if !reflect.DeepEqual(result.Get("suggestions"), []any{"Use “action” verbs"}) {
		t.Errorf("Expected typographic quotes kept inside the string, got %v", result.Get("suggestions"))
	}
}

func TestNormalizeFailureKeepsCandidate(t *testing.T) {
	d := atsDescriptor(t)
	candidate := `{"score": 40, "suggestions": [unquoted]}`

	result := Normalize(candidate, d)
	if result.OK() {
		t.Fatal("Expected parse failure")
	}

	if result.Failure.Raw != candidate {
		t.Errorf("Expected raw to be the original candidate, got '%s'", result.Failure.Raw)
	}
}

func TestNormalizeFenceRoundTrip(t *testing.T) {
	plain := `{"resumeSkills":["Go"],"jobSkills":["Go","Kafka"],"matchedSkills":["Go"],` +
		`"missingSkills":[{"skill":"Kafka","priority":"Medium","reason":"Streaming","estimatedTime":"2 weeks","resources":["Kafka docs"]}],"quickFixes":[]}`
	d, _ := schema.Default().Lookup(schema.SkillGapAnalysis)

	for _, fenced := range []string{
		"```json\n" + plain + "\n```",
		"```\n" + plain + "\n```",
		"Here you go:\n```json\n" + plain + "\n```\nGood luck!",
	} {
		direct := Normalize(ExtractJSONCandidate(plain), d)
		wrapped := Normalize(ExtractJSONCandidate(fenced), d)

		if !reflect.DeepEqual(direct.Fields, wrapped.Fields) {
			t.Errorf("Expected fenced reply to normalize like the plain one:\n%v\n%v", direct.Fields, wrapped.Fields)
		}
	}
}

func TestNormalizeIsStable(t *testing.T) {
	d := atsDescriptor(t)

	first := Normalize(`{"score":150,"breakdown":{"Keywords":99},"suggestions":["x",1]}`, d)
	data, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	second := Normalize(string(data), d)
	if !reflect.DeepEqual(first.Fields, second.Fields) {
		t.Errorf("Expected normalizing a normalized result to change nothing:\n%v\n%v", first.Fields, second.Fields)
	}
}

func TestNormalizeWrapsTopLevelArray(t *testing.T) {
	d, _ := schema.Default().Lookup(schema.SummarySuggestions)

	result := Normalize(`[{"experienceLevel":"Fresher","summary":"New grad."}]`, d)
	summaries, ok := result.Get("summaries").([]any)
	if !ok || len(summaries) != 1 {
		t.Fatalf("Expected one wrapped summary, got %v", result.Get("summaries"))
	}

	// Without Wrap, an array top level defaults every field.
	ats := Normalize(`[1,2]`, atsDescriptor(t))
	if ats.Get("score") != nil {
		t.Errorf("Expected default score, got %v", ats.Get("score"))
	}
}

func TestResultDecodeFailure(t *testing.T) {
	result := Normalize("nope", atsDescriptor(t))

	var score ATSScore
	if err := result.Decode(&score); err == nil {
		t.Error("Expected error decoding a parse failure")
	}
}
