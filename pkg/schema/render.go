package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"github.com/xeipuuv/gojsonschema"
)

// PathKey escapes a field name for use as a gjson/sjson path component.
func PathKey(name string) (key string) {
	replacer := strings.NewReplacer(`\`, `\\`, ".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)
	key = replacer.Replace(name)
	return key
}

// Skeleton renders an indented JSON example of the descriptor, in field
// order, for embedding in prompts.
func (d Descriptor) Skeleton() (skeleton string) {
	skeleton = string(pretty.Pretty([]byte(skeletonRaw(d))))
	skeleton = strings.TrimSpace(skeleton)
	return skeleton
}

// Constraints lists the numeric bounds of the descriptor, one line per
// bounded field, using dotted paths for nested members.
func (d Descriptor) Constraints() (lines []string) {
	lines = constraintLines("", d)
	return lines
}

func constraintLines(prefix string, d Descriptor) (lines []string) {
	for _, f := range d.Fields {
		path := prefix + f.Name
		if f.Bounds != nil {
			lines = append(lines, fmt.Sprintf("%s: number between %g and %g", path, f.Bounds.Min, f.Bounds.Max))
		}
		if len(f.Enum) > 0 {
			lines = append(lines, fmt.Sprintf("%s: one of %s", path, strings.Join(f.Enum, ", ")))
		}
		if f.Item != nil {
			nested := path + "."
			if f.Kind == ObjectArray {
				nested = path + "[]."
			}
			lines = append(lines, constraintLines(nested, *f.Item)...)
		}
	}
	return lines
}

func skeletonRaw(d Descriptor) (raw string) {
	raw = "{}"
	for _, f := range d.Fields {
		// Names are validated on Register and values are built here, so
		// SetRaw cannot fail on a well-formed descriptor.
		raw, _ = sjson.SetRaw(raw, PathKey(f.Name), fieldSkeleton(f))
	}
	return raw
}

func fieldSkeleton(f Field) (raw string) {
	placeholder := "..."
	if f.Hint != "" {
		placeholder = f.Hint
	}
	if len(f.Enum) > 0 {
		placeholder = strings.Join(f.Enum, "|")
	}
	quoted, _ := json.Marshal(placeholder)

	switch f.Kind {
	case String:
		raw = string(quoted)
	case Number:
		raw = "0"
	case StringArray:
		raw = "[" + string(quoted) + "]"
	case ObjectArray:
		item := "{}"
		if f.Item != nil {
			item = skeletonRaw(*f.Item)
		}
		raw = "[" + item + "]"
	case Object:
		raw = "{}"
		if f.Item != nil {
			raw = skeletonRaw(*f.Item)
		}
	default:
		raw = "null"
	}
	return raw
}

// JSONSchema returns a JSON Schema document describing a normalized
// result for the descriptor. Object members with a nested descriptor are
// sparse: declared members are typed but optional.
func (d Descriptor) JSONSchema() (doc map[string]any) {
	doc = objectSchema(d, true)
	doc["$schema"] = "http://json-schema.org/draft-07/schema#"
	return doc
}

func objectSchema(d Descriptor, requireAll bool) (doc map[string]any) {
	props := make(map[string]any, len(d.Fields))
	required := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		props[f.Name] = fieldSchema(f)
		if requireAll {
			required = append(required, f.Name)
		}
	}

	doc = map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}

func fieldSchema(f Field) (doc map[string]any) {
	switch f.Kind {
	case String:
		doc = map[string]any{"type": "string"}
		if len(f.Enum) > 0 {
			doc["enum"] = f.Enum
		}
	case Number:
		doc = map[string]any{"type": "number"}
		if f.Default == nil {
			doc["type"] = []string{"number", "null"}
		}
		if f.Bounds != nil {
			doc["minimum"] = f.Bounds.Min
			doc["maximum"] = f.Bounds.Max
		}
	case StringArray:
		doc = map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		}
	case ObjectArray:
		items := map[string]any{"type": "object"}
		if f.Item != nil {
			items = objectSchema(*f.Item, true)
		}
		doc = map[string]any{"type": "array", "items": items}
	case Object:
		doc = map[string]any{"type": "object"}
		if f.Item != nil {
			doc = objectSchema(*f.Item, false)
		}
	default:
		doc = map[string]any{}
	}
	return doc
}

// Validate checks a decoded document against the descriptor's JSON Schema.
func (d Descriptor) Validate(document any) (err error) {
	schemaLoader := gojsonschema.NewGoLoader(d.JSONSchema())
	docLoader := gojsonschema.NewGoLoader(document)

	var res *gojsonschema.Result
	res, err = gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		err = errors.Wrapf(err, "failed to validate %s result", d.Task)
		return err
	}
	if res.Valid() {
		return err
	}

	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	err = errors.Errorf("%s result does not match schema: %s", d.Task, strings.Join(msgs, "; "))
	return err
}
