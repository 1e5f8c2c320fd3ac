package jd

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const postingHTML = `<html><head><style>h1{color:red}</style></head><body>
<h1>Staff Backend Engineer</h1>
<p>Own the billing platform.</p>
<ul><li>Go &amp; PostgreSQL</li><li>Kubernetes</li></ul>
<script>track('view')</script>
</body></html>`

const postingText = "Staff Backend Engineer\nOwn the billing platform.\nGo & PostgreSQL\nKubernetes"

func writePosting(t *testing.T, content string) (path string) {
	t.Helper()
	path = filepath.Join(t.TempDir(), "posting.txt")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write posting: %v", err)
	}
	return path
}

func postingServer(t *testing.T, status int, body string) (server *httptest.Server) {
	t.Helper()
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "resume-ai/1.0" {
			t.Errorf("Expected resume-ai user agent, got '%s'", r.Header.Get("User-Agent"))
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchWithContextInputs(t *testing.T) {
	server := postingServer(t, http.StatusOK, postingHTML)
	file := writePosting(t, "Platform engineer, remote, Go required.")

	tests := []struct {
		name     string
		input    string
		stdin    io.Reader
		expected string
	}{
		{name: "empty", input: "  \n ", expected: ""},
		{name: "stdin", input: StdinMarker, stdin: strings.NewReader("\n  SRE on call rotation.  \n"), expected: "SRE on call rotation."},
		{name: "url", input: server.URL, expected: postingText},
		{name: "file", input: file, expected: "Platform engineer, remote, Go required."},
		{name: "inline", input: "  Looking for a Go engineer.\nTerraform a plus.  ", expected: "Looking for a Go engineer.\nTerraform a plus."},
		{name: "missing path is inline text", input: "/no/such/posting.txt", expected: "/no/such/posting.txt"},
		{name: "ftp is inline text", input: "ftp://jobs.example.com/posting", expected: "ftp://jobs.example.com/posting"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := FetchWithContext(context.Background(), tt.input, tt.stdin)
			if err != nil {
				t.Fatalf("FetchWithContext failed: %v", err)
			}

			if content != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, content)
			}
		})
	}
}

func TestFetchWithContextErrors(t *testing.T) {
	missing := postingServer(t, http.StatusNotFound, "gone")
	empty := postingServer(t, http.StatusOK, "<html><script>x()</script></html>")
	emptyFile := writePosting(t, "")

	tests := []struct {
		name  string
		input string
		stdin io.Reader
		want  string
	}{
		{name: "stdin without stream", input: StdinMarker, want: "failed to read JD from stdin"},
		{name: "url not found", input: missing.URL, want: "status: 404"},
		{name: "url with no text", input: empty.URL, want: "empty after processing"},
		{name: "empty file", input: emptyFile, want: "file is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FetchWithContext(context.Background(), tt.input, tt.stdin)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}

			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing '%s', got '%s'", tt.want, err.Error())
			}
		})
	}
}

func TestFetchWithContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := FetchWithContext(ctx, server.URL, nil)
	if err == nil {
		t.Error("Expected deadline error, got nil")
	}
}

func TestFetch(t *testing.T) {
	file := writePosting(t, "Data engineer, Spark and Go.")

	content, err := Fetch(file)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if content != "Data engineer, Spark and Go." {
		t.Errorf("Expected file content, got '%s'", content)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "posting", input: postingHTML, expected: postingText},
		{name: "inline markup", input: "<p>Ship <b>reliable</b> <i>services</i></p>", expected: "Ship reliable services"},
		{name: "line breaks", input: "Remote<br>Full time<br/>EU hours", expected: "Remote\nFull time\nEU hours"},
		{name: "headings and rows", input: "<h2>Perks</h2><table><tr><td>Equity</td></tr><tr><td>Learning budget</td></tr></table>", expected: "Perks\nEquity\nLearning budget"},
		{name: "entities", input: "<li>5&nbsp;years</li><li>&lt;3 on-call pages/week</li>", expected: "5\u00a0years\n<3 on-call pages/week"},
		{name: "blank runs collapse", input: "<div>Team</div>\n\n\n<div>  Platform   group </div>", expected: "Team\nPlatform group"},
		{name: "work summary", input: "<ul><li><b>Scaled</b> APIs</li></ul>", expected: "Scaled APIs"},
		{name: "plain text", input: "Plain text", expected: "Plain text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StripHTML(tt.input)
			if result != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}
