package llm

import (
	"regexp"
	"strings"
)

// Fixer cleans up HTML fragments returned by free-text generation.
type Fixer struct {
	// Fix patterns organized by concern
	fencePatterns    []FixPattern
	markdownPatterns []FixPattern
	layoutPatterns   []FixPattern
}

// FixPattern defines a search-and-fix pattern.
type FixPattern struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// NewFixer creates a new fixer with predefined fix patterns.
func NewFixer() (fixer *Fixer) {
	fixer = &Fixer{
		fencePatterns:    buildFencePatterns(),
		markdownPatterns: buildMarkdownPatterns(),
		layoutPatterns:   buildLayoutPatterns(),
	}
	return fixer
}

// Fix applies every pattern to fragment and returns the names of those that matched.
func (f *Fixer) Fix(fragment string) (fixed string, applied []string) {
	fixed = fragment
	applied = []string{}

	for _, group := range [][]FixPattern{f.fencePatterns, f.markdownPatterns, f.layoutPatterns} {
		for _, pattern := range group {
			if pattern.Pattern.MatchString(fixed) {
				fixed = pattern.Pattern.ReplaceAllString(fixed, pattern.Replacement)
				applied = append(applied, pattern.Name)
			}
		}
	}

	fixed = strings.TrimSpace(fixed)
	return fixed, applied
}

// buildFencePatterns creates patterns that unwrap code fences around the fragment.
func buildFencePatterns() (patterns []FixPattern) {
	patterns = []FixPattern{
		{
			Name:        "Fenced fragment",
			Pattern:     regexp.MustCompile("(?s)^\\s*```(?:html|HTML)?[ \\t]*\\r?\\n?(.*?)\\r?\\n?```\\s*$"),
			Replacement: "$1",
		},
		{
			Name:        "Stray fence marker",
			Pattern:     regexp.MustCompile("```(?:html|HTML)?"),
			Replacement: "",
		},
	}

	return patterns
}

// buildMarkdownPatterns creates patterns that turn markdown emphasis into HTML.
func buildMarkdownPatterns() (patterns []FixPattern) {
	patterns = []FixPattern{
		{
			Name:        "Markdown bold",
			Pattern:     regexp.MustCompile(`\*\*([^*\n]+?)\*\*`),
			Replacement: `<b>$1</b>`,
		},
		{
			Name:        "Markdown heading",
			Pattern:     regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+(.+)$`),
			Replacement: `<b>$1</b>`,
		},
	}

	return patterns
}

// buildLayoutPatterns creates patterns that tidy document-level wrapping.
func buildLayoutPatterns() (patterns []FixPattern) {
	patterns = []FixPattern{
		{
			Name:        "Document wrapper",
			Pattern:     regexp.MustCompile(`(?is)</?(?:html|body)[^>]*>`),
			Replacement: "",
		},
		{
			Name:        "Blank lines",
			Pattern:     regexp.MustCompile(`\n{3,}`),
			Replacement: "\n\n",
		},
	}

	return patterns
}
