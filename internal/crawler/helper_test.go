// internal/crawler/helper_test.go
package crawler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/config"
)

func testCrawlerConfig(controllerURL string) config.CrawlerConfig {
	return config.CrawlerConfig{
		ControllerURL:  controllerURL,
		Concurrency:    2,
		MaxDepth:       2,
		RateLimit:      1000,
		RequestTimeout: 5 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// -- Fake controller --

// fakePage scripts what the fake controller serves for one URL. An empty
// text makes the interact route answer with JSON, the way the real route
// does when an action sequence captured nothing.
type fakePage struct {
	text  string
	links []string
}

// fakeController fakes the slice of the controller API the crawler talks
// to, recording traffic for assertions.
type fakeController struct {
	t     *testing.T
	pages map[string]fakePage

	mu       sync.Mutex
	started  int
	ended    []string
	captures []string
	harvests []string
}

func newFakeController(t *testing.T, pages map[string]fakePage) (*fakeController, *httptest.Server) {
	t.Helper()
	fc := &fakeController{t: t, pages: pages}

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, schemas.PingResponse{Status: "ok", Message: "pong"})
	})
	mux.HandleFunc("/start_session", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		fc.mu.Lock()
		fc.started++
		id := fmt.Sprintf("sess-%d", fc.started)
		fc.mu.Unlock()
		writeJSON(w, http.StatusOK, schemas.SessionResponse{SessionID: id, Message: "session started"})
	})
	mux.HandleFunc("/end_session", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		fc.mu.Lock()
		fc.ended = append(fc.ended, r.Header.Get(schemas.HeaderSessionID))
		fc.mu.Unlock()
		writeJSON(w, http.StatusOK, schemas.StatusResponse{Status: "ok", Message: "session ended"})
	})
	mux.HandleFunc("/interact", func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get(schemas.HeaderSessionID))
		var req struct {
			URL string `json:"url"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		fc.mu.Lock()
		fc.captures = append(fc.captures, req.URL)
		fc.mu.Unlock()

		page, ok := fc.pages[req.URL]
		if !ok {
			writeJSON(w, http.StatusUnprocessableEntity, schemas.ErrorResponse{Detail: "unknown page " + req.URL})
			return
		}
		if page.text == "" {
			writeJSON(w, http.StatusOK, schemas.InteractPayload{Status: "ok", Actions: []string{"scrolled to bottom"}})
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(page.text))
	})
	mux.HandleFunc("/selectors", func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get(schemas.HeaderSessionID))
		var req struct {
			URL string `json:"url"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		fc.mu.Lock()
		fc.harvests = append(fc.harvests, req.URL)
		fc.mu.Unlock()

		writeJSON(w, http.StatusOK, []schemas.SelectorResult{{
			Name:    "links",
			Results: []schemas.ActionResult{{Action: "attribute", Values: fc.pages[req.URL].links}},
		}})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return fc, server
}

func (f *fakeController) Started() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

func (f *fakeController) Ended() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ended...)
}

func (f *fakeController) Captures() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.captures...)
}

func (f *fakeController) Harvests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.harvests...)
}

// -- Fake LLM endpoint --

type llmRequest struct {
	model  string
	system string
	user   string
	format string
}

// fakeLLM serves an OpenAI-compatible chat completions endpoint with canned
// replies keyed on substrings of the user message. Unmatched requests get an
// empty object, the no-product answer.
type fakeLLM struct {
	t       *testing.T
	replies map[string]string

	mu       sync.Mutex
	requests []llmRequest
}

func newFakeLLM(t *testing.T, replies map[string]string) (*fakeLLM, *httptest.Server) {
	t.Helper()
	f := &fakeLLM{t: t, replies: replies}
	server := httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeLLM) handle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec := llmRequest{model: req.Model, format: req.ResponseFormat.Type}
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			rec.system = m.Content
		case "user":
			rec.user = m.Content
		}
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()

	content := "{}"
	for needle, reply := range f.replies {
		if strings.Contains(rec.user, needle) {
			content = reply
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 0,
		"model":   req.Model,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
}

func (f *fakeLLM) Requests() []llmRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llmRequest(nil), f.requests...)
}

// newTestExtractor points an extractor at a fake endpoint with a fast,
// bounded retry policy.
func newTestExtractor(t *testing.T, baseURL string) *Extractor {
	t.Helper()
	ex, err := NewExtractor(config.LLMConfig{
		BaseURL:         baseURL,
		Model:           "test-model",
		APIKey:          "test-key",
		MaxContentChars: 30000,
	}, newTestLogger(t))
	require.NoError(t, err)
	ex.backoffFactory = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(5*time.Millisecond), 5)
	}
	return ex
}

// newTestLogger builds a zap logger that writes through the test runner so
// output from parallel tests stays attached to the right test.
func newTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(&testingWriter{t: t}),
		zapcore.DebugLevel,
	)
	return zap.New(core).With(zap.String("test", t.Name()))
}

type testingWriter struct {
	t *testing.T
}

func (w *testingWriter) Write(p []byte) (n int, err error) {
	// t.Log panics when the test already finished; swallow late writes.
	defer func() {
		if recover() != nil {
			n, err = len(p), nil
		}
	}()
	w.t.Log(string(p))
	return len(p), nil
}
