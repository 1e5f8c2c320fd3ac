package schema

import (
	"sync"

	"github.com/pkg/errors"
)

// TaskKind identifies the AI-backed operation a caller is requesting.
type TaskKind int

const (
	// FreeTextGeneration returns an HTML fragment, not JSON.
	FreeTextGeneration TaskKind = iota
	// SkillGapAnalysis compares résumé skills to a job description.
	SkillGapAnalysis
	// AtsScoring rates a résumé for applicant tracking systems.
	AtsScoring
	// SummarySuggestions drafts résumé summaries per experience level.
	SummarySuggestions
)

// String returns the kind's wire name.
func (k TaskKind) String() (name string) {
	switch k {
	case FreeTextGeneration:
		name = "free-text"
	case SkillGapAnalysis:
		name = "skill-gap"
	case AtsScoring:
		name = "ats-score"
	case SummarySuggestions:
		name = "summary-suggestions"
	default:
		name = "unknown"
	}
	return name
}

// ParseTaskKind maps a wire name back to its TaskKind.
func ParseTaskKind(name string) (kind TaskKind, err error) {
	for _, k := range []TaskKind{FreeTextGeneration, SkillGapAnalysis, AtsScoring, SummarySuggestions} {
		if k.String() == name {
			kind = k
			return kind, err
		}
	}
	err = errors.Errorf("unknown task kind %q", name)
	return kind, err
}

// Kind is the expected JSON shape of a field.
type Kind int

const (
	String Kind = iota
	Number
	StringArray
	ObjectArray
	Object
)

// Bounds is an inclusive numeric range.
type Bounds struct {
	Min float64
	Max float64
}

// Clamp pins v into the range.
func (b Bounds) Clamp(v float64) (clamped float64) {
	clamped = v
	if clamped < b.Min {
		clamped = b.Min
	}
	if clamped > b.Max {
		clamped = b.Max
	}
	return clamped
}

// Field declares one member of a structured response.
type Field struct {
	Name string
	Kind Kind

	// Default replaces a missing or wrong-typed value. Nil means the
	// kind's zero: "" for strings, null for numbers, [] for arrays and
	// {} for objects.
	Default any

	Bounds *Bounds
	Enum   []string

	// Item describes array elements (ObjectArray) or members (Object).
	Item *Descriptor

	// Required fields must be present for an array element to be kept.
	Required bool

	// Hint is the placeholder text shown in the prompt skeleton.
	Hint string
}

// DefaultValue returns a fresh copy of the field's default.
func (f Field) DefaultValue() (value any) {
	if f.Default != nil {
		switch d := f.Default.(type) {
		case []any:
			value = append([]any{}, d...)
		case map[string]any:
			m := make(map[string]any, len(d))
			for k, v := range d {
				m[k] = v
			}
			value = m
		default:
			value = d
		}
		return value
	}

	switch f.Kind {
	case String:
		value = ""
	case Number:
		value = nil
	case StringArray, ObjectArray:
		value = []any{}
	case Object:
		value = map[string]any{}
	}
	return value
}

// Descriptor is the declared output shape of one task kind.
type Descriptor struct {
	Task   TaskKind
	Fields []Field

	// Wrap names the field a bare top-level JSON array is assigned to.
	Wrap string
}

// Names returns the declared field names in order.
func (d Descriptor) Names() (names []string) {
	names = make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Field looks up a declared field by name.
func (d Descriptor) Field(name string) (field Field, ok bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			field = f
			ok = true
			return field, ok
		}
	}
	return field, ok
}

// Registry maps task kinds to their descriptors. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[TaskKind]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() (registry *Registry) {
	registry = &Registry{descriptors: make(map[TaskKind]Descriptor)}
	return registry
}

// Register adds or replaces the descriptor for d.Task.
func (r *Registry) Register(d Descriptor) (err error) {
	if d.Task == FreeTextGeneration {
		err = errors.New("free-text generation has no output schema")
		return err
	}
	if len(d.Fields) == 0 {
		err = errors.Errorf("descriptor for %s declares no fields", d.Task)
		return err
	}
	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name == "" {
			err = errors.Errorf("descriptor for %s has an unnamed field", d.Task)
			return err
		}
		if seen[f.Name] {
			err = errors.Errorf("descriptor for %s declares %q twice", d.Task, f.Name)
			return err
		}
		seen[f.Name] = true
	}
	if d.Wrap != "" && !seen[d.Wrap] {
		err = errors.Errorf("descriptor for %s wraps undeclared field %q", d.Task, d.Wrap)
		return err
	}

	r.mu.Lock()
	r.descriptors[d.Task] = d
	r.mu.Unlock()
	return err
}

// Lookup returns the descriptor for kind.
func (r *Registry) Lookup(kind TaskKind) (d Descriptor, ok bool) {
	r.mu.RLock()
	d, ok = r.descriptors[kind]
	r.mu.RUnlock()
	return d, ok
}

//nolint:gochecknoglobals // Lazily built default registry
var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry holding the built-in descriptors.
func Default() (registry *Registry) {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		for _, d := range builtinDescriptors() {
			if err := defaultRegistry.Register(d); err != nil {
				panic(err)
			}
		}
	})
	registry = defaultRegistry
	return registry
}
