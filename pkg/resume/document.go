package resume

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/nikogura/resume-ai/pkg/jd"
	"github.com/pkg/errors"
)

// MaxSkillRating is the top of the skill rating scale.
const MaxSkillRating = 100

//nolint:gochecknoglobals // Compiled once, read-only
var themeColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Load reads a résumé document from a JSON file. A document without an id
// is given a fresh one.
func Load(path string) (doc Document, err error) {
	var fileData []byte
	fileData, err = os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to read resume file: %s", path)
		return doc, err
	}

	doc, err = Parse(fileData)
	if err != nil {
		err = errors.Wrapf(err, "invalid resume file: %s", path)
		return doc, err
	}

	return doc, err
}

// Parse decodes and validates a résumé document.
func Parse(data []byte) (doc Document, err error) {
	err = json.Unmarshal(data, &doc)
	if err != nil {
		err = errors.Wrap(err, "failed to parse resume JSON")
		return doc, err
	}

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}

	err = doc.Validate()
	if err != nil {
		err = errors.Wrap(err, "resume validation failed")
		return doc, err
	}

	return doc, err
}

// Validate checks that the document is well-formed.
func (d *Document) Validate() (err error) {
	if d.Email != "" && !strings.Contains(d.Email, "@") {
		err = errors.Errorf("email %q is not an address", d.Email)
		return err
	}

	if d.ThemeColor != "" && !themeColorPattern.MatchString(d.ThemeColor) {
		err = errors.Errorf("theme color %q is not a hex color", d.ThemeColor)
		return err
	}

	for i, exp := range d.Experience {
		if exp.Title == "" && exp.CompanyName == "" {
			err = errors.Errorf("experience at index %d needs a title or company", i)
			return err
		}
	}

	for i, edu := range d.Education {
		if edu.UniversityName == "" && edu.Degree == "" {
			err = errors.Errorf("education at index %d needs a university or degree", i)
			return err
		}
	}

	for i, skill := range d.Skills {
		if skill.Name == "" {
			err = errors.Errorf("skill at index %d missing name", i)
			return err
		}
		if skill.Rating < 0 || skill.Rating > MaxSkillRating {
			err = errors.Errorf("skill %s rating %d outside 0-%d", skill.Name, skill.Rating, MaxSkillRating)
			return err
		}
	}

	return err
}

// FullName joins the first and last name.
func (d *Document) FullName() (name string) {
	name = strings.TrimSpace(d.FirstName + " " + d.LastName)
	return name
}

// Text flattens the document into the plain résumé text the AI tasks read:
// contact line, summary, one line per position and per degree, then the
// skills. Parts are separated by blank lines and empty parts are skipped.
func (d *Document) Text() (text string) {
	parts := make([]string, 0, 3+len(d.Experience)+len(d.Education))

	parts = appendPart(parts, joinNonEmpty(", ", d.FullName(), d.JobTitle, d.Email, d.Phone, d.Address))
	parts = appendPart(parts, jd.StripHTML(d.Summary))

	for _, exp := range d.Experience {
		parts = appendPart(parts, joinNonEmpty(" ", exp.Title, exp.CompanyName, jd.StripHTML(exp.WorkSummary)))
	}

	for _, edu := range d.Education {
		parts = appendPart(parts, joinNonEmpty(" ", edu.Degree, edu.Major, edu.UniversityName))
	}

	names := make([]string, 0, len(d.Skills))
	for _, skill := range d.Skills {
		names = append(names, skill.Name)
	}
	parts = appendPart(parts, strings.Join(names, ", "))

	text = strings.Join(parts, "\n\n")
	return text
}

func appendPart(parts []string, part string) (out []string) {
	out = parts
	if part = strings.TrimSpace(part); part != "" {
		out = append(out, part)
	}
	return out
}

func joinNonEmpty(sep string, values ...string) (joined string) {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	joined = strings.Join(kept, sep)
	return joined
}
