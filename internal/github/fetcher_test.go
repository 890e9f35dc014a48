package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/nahidhasan98/review-relay/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSHA = "abcdef1234567890abcdef1234567890abcdef12"

type fakeGitHub struct {
	repoStatus int
	files      map[string]string
	fileStatus map[string]int

	// delays holds paths answered only after the given wait
	delays map[string]time.Duration

	// dropped holds paths whose connection is closed without a response
	dropped map[string]bool

	requests     atomic.Int32
	authHeader   atomic.Value
	acceptHeader atomic.Value
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	f.authHeader.Store(r.Header.Get("Authorization"))
	f.acceptHeader.Store(r.Header.Get("Accept"))
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path == "/repos/acme/widgets" {
		status := f.repoStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"id":7,"full_name":"acme/widgets"}`))
		} else {
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
		}
		return
	}

	path, ok := strings.CutPrefix(r.URL.Path, "/repos/acme/widgets/contents/")
	if !ok || r.URL.Query().Get("ref") != testSHA {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
		return
	}

	if f.dropped[path] {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			_ = conn.Close()
		}
		return
	}

	if delay, ok := f.delays[path]; ok {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if status, ok := f.fileStatus[path]; ok {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message":"error"}`))
		return
	}

	content, ok := f.files[path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]string{
		"type":     "file",
		"encoding": "base64",
		"path":     path,
		"content":  wrapBase64(base64.StdEncoding.EncodeToString([]byte(content))),
	})
}

// wrapBase64 mimics the 60 column line wrapping of the contents API
func wrapBase64(encoded string) string {
	var b strings.Builder
	for len(encoded) > 60 {
		b.WriteString(encoded[:60])
		b.WriteString("\n")
		encoded = encoded[60:]
	}
	b.WriteString(encoded)
	return b.String()
}

func newTestFetcher(t *testing.T, fake *fakeGitHub) *Fetcher {
	t.Helper()
	return newTestFetcherWithTimeout(t, fake, 5*time.Second)
}

func newTestFetcherWithTimeout(t *testing.T, fake *fakeGitHub, timeout time.Duration) *Fetcher {
	t.Helper()

	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	fetcher, err := NewFetcher(Config{
		Token:       "ghp_test",
		BaseURL:     server.URL,
		Timeout:     timeout,
		Concurrency: 2,
	}, logger.Nop())
	require.NoError(t, err)
	return fetcher
}

func TestFetch(t *testing.T) {
	long := strings.Repeat("line of code\n", 20)
	fake := &fakeGitHub{files: map[string]string{
		"x.py":        "print(1)",
		"pkg/long.go": long,
	}}
	fetcher := newTestFetcher(t, fake)

	result := fetcher.Fetch(context.Background(), "acme", "widgets", testSHA, []string{"pkg/long.go", "x.py"})

	assert.False(t, result.Degraded())
	require.Len(t, result.Blocks, 2)
	assert.Equal(t,
		"--- FILE: pkg/long.go ---\n"+long+"\n--- END FILE ---\n"+
			"\n"+
			"--- FILE: x.py ---\nprint(1)\n--- END FILE ---\n",
		result.Document)
	assert.Equal(t, "token ghp_test", fake.authHeader.Load())
	assert.Equal(t, "application/vnd.github.v3+json", fake.acceptHeader.Load())
	assert.Equal(t, int32(3), fake.requests.Load())
}

func TestFetchPerFileFailure(t *testing.T) {
	fake := &fakeGitHub{
		files:      map[string]string{"ok.txt": "fine"},
		fileStatus: map[string]int{"secret.txt": http.StatusForbidden},
	}
	fetcher := newTestFetcher(t, fake)

	result := fetcher.Fetch(context.Background(), "acme", "widgets", testSHA,
		[]string{"missing.txt", "ok.txt", "secret.txt"})

	require.Len(t, result.Blocks, 3)
	assert.Equal(t, "--- FILE: missing.txt ---\n<ERROR: 404>\n--- END FILE ---\n", result.Blocks[0].String())
	assert.Equal(t, "--- FILE: ok.txt ---\nfine\n--- END FILE ---\n", result.Blocks[1].String())
	assert.Equal(t, "--- FILE: secret.txt ---\n<ERROR: 403>\n--- END FILE ---\n", result.Blocks[2].String())
	assert.False(t, result.Degraded())
}

func TestFetchRepositoryLookupFailure(t *testing.T) {
	fake := &fakeGitHub{repoStatus: http.StatusNotFound}
	fetcher := newTestFetcher(t, fake)

	result := fetcher.Fetch(context.Background(), "acme", "widgets", testSHA, []string{"x.py", "y.py"})

	assert.True(t, result.Degraded())
	assert.Equal(t, "repository acme/widgets: 404", result.Document)
	assert.Empty(t, result.Blocks)
	assert.Equal(t, int32(1), fake.requests.Load(), "no file requests after a failed lookup")
}

func TestFetchNoPaths(t *testing.T) {
	fake := &fakeGitHub{}
	fetcher := newTestFetcher(t, fake)

	result := fetcher.Fetch(context.Background(), "acme", "widgets", testSHA, nil)

	assert.Equal(t, "", result.Document)
	assert.Zero(t, fake.requests.Load())
}

func TestFetchUnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	fetcher, err := NewFetcher(Config{BaseURL: url, Timeout: time.Second}, logger.Nop())
	require.NoError(t, err)

	result := fetcher.Fetch(context.Background(), "acme", "widgets", testSHA, []string{"x.py"})

	assert.True(t, result.Degraded())
	assert.True(t, strings.HasPrefix(result.Document, "repository acme/widgets: "))
}

func TestFetchDoubleDotFileNames(t *testing.T) {
	fake := &fakeGitHub{files: map[string]string{
		"CHANGELOG..md":  "# Changes",
		"src/a..b.py":    "pass",
		"with space.txt": "spaced",
	}}
	fetcher := newTestFetcher(t, fake)

	result := fetcher.Fetch(context.Background(), "acme", "widgets", testSHA,
		[]string{"CHANGELOG..md", "src/a..b.py", "with space.txt"})

	require.Len(t, result.Blocks, 3)
	assert.Equal(t, "--- FILE: CHANGELOG..md ---\n# Changes\n--- END FILE ---\n", result.Blocks[0].String())
	assert.Equal(t, "--- FILE: src/a..b.py ---\npass\n--- END FILE ---\n", result.Blocks[1].String())
	assert.Equal(t, "--- FILE: with space.txt ---\nspaced\n--- END FILE ---\n", result.Blocks[2].String())
	assert.Equal(t, int32(4), fake.requests.Load())
	assert.Equal(t, "token ghp_test", fake.authHeader.Load())
}

func TestFetchRefusesDotSegments(t *testing.T) {
	fake := &fakeGitHub{files: map[string]string{"x.py": "print(1)"}}
	fetcher := newTestFetcher(t, fake)

	result := fetcher.Fetch(context.Background(), "acme", "widgets", testSHA, []string{"docs/../x.py"})

	require.Len(t, result.Blocks, 1)
	assert.True(t, result.Blocks[0].Failed())
	assert.Equal(t, int32(1), fake.requests.Load(), "only the repository lookup is sent")
}

func TestFetchTimeoutIsolatedToOneFile(t *testing.T) {
	fake := &fakeGitHub{
		files:  map[string]string{"fast.py": "fast", "slow.py": "slow"},
		delays: map[string]time.Duration{"slow.py": 2 * time.Second},
	}
	fetcher := newTestFetcherWithTimeout(t, fake, 200*time.Millisecond)

	result := fetcher.Fetch(context.Background(), "acme", "widgets", testSHA, []string{"fast.py", "slow.py"})

	require.Len(t, result.Blocks, 2)
	assert.Equal(t, "--- FILE: fast.py ---\nfast\n--- END FILE ---\n", result.Blocks[0].String())
	assert.True(t, result.Blocks[1].Failed())
	assert.Contains(t, result.Blocks[1].Err, "context deadline exceeded")
	assert.False(t, result.Degraded())
}

func TestFetchTransportErrorIsolatedToOneFile(t *testing.T) {
	fake := &fakeGitHub{
		files:   map[string]string{"ok.py": "ok"},
		dropped: map[string]bool{"broken.py": true},
	}
	fetcher := newTestFetcher(t, fake)

	result := fetcher.Fetch(context.Background(), "acme", "widgets", testSHA, []string{"broken.py", "ok.py"})

	require.Len(t, result.Blocks, 2)
	assert.True(t, result.Blocks[0].Failed())
	assert.True(t, strings.HasPrefix(result.Blocks[0].String(), "--- FILE: broken.py ---\n<ERROR: "))
	assert.Equal(t, "--- FILE: ok.py ---\nok\n--- END FILE ---\n", result.Blocks[1].String())
}

func TestFileContent(t *testing.T) {
	text := "héllo wörld, this is long enough to wrap at sixty columns"
	encoded := wrapBase64(base64.StdEncoding.EncodeToString([]byte(text)))

	content, err := fileContent(&github.RepositoryContent{
		Encoding: github.String("base64"),
		Content:  github.String(encoded),
	})
	require.NoError(t, err)
	assert.Equal(t, text, content)

	_, err = fileContent(&github.RepositoryContent{
		Encoding: github.String("base64"),
		Content:  github.String(base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, 0xfd})),
	})
	assert.ErrorContains(t, err, "UTF-8")

	_, err = fileContent(&github.RepositoryContent{
		Encoding: github.String("base64"),
		Content:  github.String("!!!"),
	})
	assert.Error(t, err)

	_, err = fileContent(&github.RepositoryContent{Encoding: github.String("none")})
	assert.Error(t, err)
}
