package llm

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

//nolint:gochecknoglobals // Compiled once, read-only
var (
	fencedBlockPattern = regexp.MustCompile("(?s)```[A-Za-z]*[ \\t]*\\r?\\n?(.*?)```")
	widestBlockPattern = regexp.MustCompile("(?s)```[A-Za-z]*[ \\t]*\\r?\\n?(.*)```")
	strayFencePattern  = regexp.MustCompile("(?i)```(?:json)?")
)

// ExtractJSONCandidate isolates the JSON payload in a model reply. When the
// reply holds a fenced block its body is returned and surrounding prose is
// dropped. A block that closes early on a fence inside a string value is
// widened to the last fence in the reply. Without a block, stray fence
// markers are removed. The result is always trimmed.
func ExtractJSONCandidate(raw string) (candidate string) {
	m := fencedBlockPattern.FindStringSubmatch(raw)
	if m == nil {
		candidate = strayFencePattern.ReplaceAllString(raw, "")
		candidate = strings.TrimSpace(candidate)
		return candidate
	}

	candidate = strings.TrimSpace(m[1])
	if gjson.Valid(candidate) {
		return candidate
	}

	if w := widestBlockPattern.FindStringSubmatch(raw); w != nil {
		if widest := strings.TrimSpace(w[1]); gjson.Valid(widest) {
			candidate = widest
		}
	}
	return candidate
}
