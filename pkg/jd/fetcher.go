package jd

import (
	"context"
	"html"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// StdinMarker is the input that selects standard input.
const StdinMarker = "-"

//nolint:gochecknoglobals // Compiled once, read-only
var (
	blockTagPattern  = regexp.MustCompile(`(?i)<\s*(?:br|/p|/div|/li|/h[1-6]|/tr)\s*/?>`)
	blankLinePattern = regexp.MustCompile(`\n[ \t]*(?:\n[ \t]*)+`)
	spaceRunPattern  = regexp.MustCompile(`[ \t]+`)
)

// Fetch resolves a job description input using standard input for "-".
func Fetch(input string) (content string, err error) {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	content, err = FetchWithContext(ctx, input, os.Stdin)
	return content, err
}

// FetchWithContext resolves a job description input. The input may be "-"
// (read stdin), an http(s) URL (fetched, HTML stripped), a path to an
// existing file, or the job description text itself. An empty input yields
// an empty description.
func FetchWithContext(ctx context.Context, input string, stdin io.Reader) (content string, err error) {
	trimmed := strings.TrimSpace(input)

	switch {
	case trimmed == "":
		return content, err

	case trimmed == StdinMarker:
		content, err = fetchFromReader(stdin)
		if err != nil {
			err = errors.Wrap(err, "failed to read JD from stdin")
		}
		return content, err

	case isURL(trimmed):
		content, err = fetchFromURL(ctx, trimmed)
		if err != nil {
			err = errors.Wrapf(err, "failed to fetch JD from URL: %s", trimmed)
		}
		return content, err

	case isFile(trimmed):
		content, err = fetchFromFile(trimmed)
		if err != nil {
			err = errors.Wrapf(err, "failed to fetch JD from file: %s", trimmed)
		}
		return content, err
	}

	content = trimmed
	return content, err
}

func isURL(input string) (ok bool) {
	parsedURL, urlErr := url.Parse(input)
	ok = urlErr == nil && (parsedURL.Scheme == "http" || parsedURL.Scheme == "https") && parsedURL.Host != ""
	return ok
}

func isFile(input string) (ok bool) {
	if strings.ContainsAny(input, "\n") {
		return ok
	}
	info, statErr := os.Stat(input)
	ok = statErr == nil && info.Mode().IsRegular()
	return ok
}

// fetchFromReader reads a job description from r.
func fetchFromReader(r io.Reader) (content string, err error) {
	if r == nil {
		err = errors.New("no input stream")
		return content, err
	}

	var data []byte
	data, err = io.ReadAll(r)
	if err != nil {
		err = errors.Wrap(err, "failed to read input")
		return content, err
	}

	content = strings.TrimSpace(string(data))
	return content, err
}

// fetchFromFile reads job description from a file.
func fetchFromFile(path string) (content string, err error) {
	var data []byte
	data, err = os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to read file: %s", path)
		return content, err
	}

	content = string(data)
	if content == "" {
		err = errors.New("file is empty")
		return content, err
	}

	return content, err
}

// fetchFromURL retrieves job description from a URL.
func fetchFromURL(ctx context.Context, urlStr string) (content string, err error) {
	var req *http.Request
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		err = errors.Wrap(err, "failed to create HTTP request")
		return content, err
	}

	req.Header.Set("User-Agent", "resume-ai/1.0")

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	var resp *http.Response
	resp, err = client.Do(req)
	if err != nil {
		err = errors.Wrap(err, "HTTP request failed")
		return content, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = errors.Errorf("HTTP request failed with status: %d", resp.StatusCode)
		return content, err
	}

	var bodyBytes []byte
	bodyBytes, err = io.ReadAll(resp.Body)
	if err != nil {
		err = errors.Wrap(err, "failed to read response body")
		return content, err
	}

	content = StripHTML(string(bodyBytes))

	if content == "" {
		err = errors.New("fetched content is empty after processing")
		return content, err
	}

	return content, err
}

// StripHTML reduces an HTML page or fragment to plain text. Block-level
// closing tags become line breaks and entities are decoded.
func StripHTML(markup string) (text string) {
	text = markup

	// Remove script and style tags with their content
	text = removeTagAndContent(text, "script")
	text = removeTagAndContent(text, "style")

	text = blockTagPattern.ReplaceAllString(text, "\n")

	inTag := false
	result := strings.Builder{}
	for _, char := range text {
		if char == '<' {
			inTag = true
			continue
		}
		if char == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(char)
		}
	}

	text = html.UnescapeString(result.String())
	text = spaceRunPattern.ReplaceAllString(text, " ")
	text = blankLinePattern.ReplaceAllString(text, "\n")
	text = strings.TrimSpace(text)

	return text
}

// removeTagAndContent removes a specific HTML tag and its content.
func removeTagAndContent(markup, tag string) (result string) {
	result = markup
	openTag := "<" + tag
	closeTag := "</" + tag + ">"

	for {
		startIdx := strings.Index(result, openTag)
		if startIdx == -1 {
			break
		}

		endIdx := strings.Index(result[startIdx:], closeTag)
		if endIdx == -1 {
			break
		}

		endIdx += startIdx + len(closeTag)
		result = result[:startIdx] + result[endIdx:]
	}

	return result
}
