package llm

import (
	"regexp"
	"strings"

	"github.com/nikogura/resume-ai/pkg/schema"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ParseFailureMessage is the error text of an unparseable reply.
const ParseFailureMessage = "Failed to parse AI response as JSON"

//nolint:gochecknoglobals // Compiled once, read-only
var (
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
	smartQuoteReplacer   = strings.NewReplacer("\u201c", `"`, "\u201d", `"`, "\u201e", `"`, "\u2018", "'", "\u2019", "'")
)

// Normalize parses a JSON candidate and shapes it to d. Every declared
// field is present in the result, holding either a value of the declared
// kind or the field's default. Undeclared fields are dropped. A candidate
// that cannot be parsed, even after light repair, yields a Result carrying
// a ParseFailure instead of fields.
func Normalize(candidate string, d schema.Descriptor) (result Result) {
	result = Result{Kind: d.Task, order: d.Names()}

	text, ok := repairJSON(candidate)
	if !ok {
		result.Failure = &ParseFailure{Error: ParseFailureMessage, Raw: candidate}
		return result
	}

	root := gjson.Parse(text)
	if root.IsArray() && d.Wrap != "" {
		wrapped, err := sjson.SetRaw("{}", schema.PathKey(d.Wrap), root.Raw)
		if err == nil {
			root = gjson.Parse(wrapped)
		}
	}

	result.Fields, _ = normalizeObject(root, d, true)
	return result
}

// repairJSON fixes the most common model slips in stages and stops at the
// first stage that yields valid JSON. A byte order mark and trailing commas
// go first. Typographic quotes are only rewritten when that is not enough,
// since the replacement also reaches quotes inside string values.
func repairJSON(text string) (repaired string, ok bool) {
	repaired = text
	if gjson.Valid(repaired) {
		ok = true
		return repaired, ok
	}

	repaired = strings.TrimSpace(strings.TrimPrefix(repaired, "\ufeff"))
	repaired = trailingCommaPattern.ReplaceAllString(repaired, "$1")
	if gjson.Valid(repaired) {
		ok = true
		return repaired, ok
	}

	repaired = smartQuoteReplacer.Replace(repaired)
	repaired = trailingCommaPattern.ReplaceAllString(repaired, "$1")
	ok = gjson.Valid(repaired)
	return repaired, ok
}

// normalizeObject shapes obj to d. Dense objects default every invalid
// field; sparse ones omit it. complete reports whether every Required
// field held a valid value.
func normalizeObject(obj gjson.Result, d schema.Descriptor, dense bool) (fields map[string]any, complete bool) {
	fields = make(map[string]any, len(d.Fields))
	complete = true
	if !obj.IsObject() {
		obj = gjson.Result{}
	}

	for _, f := range d.Fields {
		value, ok := normalizeValue(obj.Get(schema.PathKey(f.Name)), f)
		switch {
		case ok:
			fields[f.Name] = value
		case dense:
			fields[f.Name] = f.DefaultValue()
		}
		if !ok && f.Required {
			complete = false
		}
	}
	return fields, complete
}

func normalizeValue(v gjson.Result, f schema.Field) (value any, ok bool) {
	if !v.Exists() {
		return value, ok
	}

	switch f.Kind {
	case schema.String:
		if v.Type != gjson.String {
			return value, ok
		}
		value, ok = matchEnum(v.String(), f.Enum)

	case schema.Number:
		if v.Type != gjson.Number {
			return value, ok
		}
		n := v.Float()
		if f.Bounds != nil {
			n = f.Bounds.Clamp(n)
		}
		value, ok = n, true

	case schema.StringArray:
		if !v.IsArray() {
			return value, ok
		}
		items := []any{}
		v.ForEach(func(_, e gjson.Result) bool {
			if e.Type == gjson.String {
				items = append(items, e.String())
			}
			return true
		})
		value, ok = items, true

	case schema.ObjectArray:
		if !v.IsArray() {
			return value, ok
		}
		items := []any{}
		v.ForEach(func(_, e gjson.Result) bool {
			if !e.IsObject() {
				return true
			}
			if f.Item == nil {
				items = append(items, e.Value())
				return true
			}
			if item, complete := normalizeObject(e, *f.Item, true); complete {
				items = append(items, item)
			}
			return true
		})
		value, ok = items, true

	case schema.Object:
		if !v.IsObject() {
			return value, ok
		}
		if f.Item == nil {
			value, ok = v.Value(), true
			return value, ok
		}
		value, _ = normalizeObject(v, *f.Item, false)
		ok = true
	}

	return value, ok
}

// matchEnum accepts s when enum is empty, or when s equals one of its
// members ignoring case, returning the canonical spelling.
func matchEnum(s string, enum []string) (value string, ok bool) {
	if len(enum) == 0 {
		value, ok = s, true
		return value, ok
	}
	for _, e := range enum {
		if strings.EqualFold(strings.TrimSpace(s), e) {
			value, ok = e, true
			return value, ok
		}
	}
	return value, ok
}
