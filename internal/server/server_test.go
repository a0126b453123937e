package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/backend"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/capture"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/conversation"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/infrastructure/config"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFaultMaven stands in for the FaultMaven backend and serves a page to capture.
type fakeFaultMaven struct {
	mu        sync.Mutex
	queries   []string
	data      []string
	failQuery bool
}

func (f *fakeFaultMaven) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/":
		w.Write([]byte(`{"status": "ok"}`))
	case "/query":
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.queries = append(f.queries, body["query"])
		fail := f.failQuery
		f.mu.Unlock()

		w.Header().Set(backend.SessionHeader, "sess-42")
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message": "model unavailable"}`))
			return
		}
		w.Write([]byte(`{"response": "## Fix\nSolution: restart nginx"}`))
	case "/data":
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.data = append(f.data, body["text"])
		f.mu.Unlock()

		w.Write([]byte(`{"summary": "1 error found"}`))
	case "/page":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Status</title></head><body><p>db-1 degraded</p></body></html>`))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeFaultMaven) setFailQuery(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failQuery = fail
}

func (f *fakeFaultMaven) received() (queries, data []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...), append([]string(nil), f.data...)
}

func newTestServer(t *testing.T) (*Server, *fakeFaultMaven, *httptest.Server) {
	t.Helper()
	fake := &fakeFaultMaven{}
	upstream := httptest.NewServer(fake)
	t.Cleanup(upstream.Close)

	cfg := config.Default()
	cfg.Backend.URL = upstream.URL
	cfg.Backend.Timeout = 5 * time.Second
	cfg.Logging.Development = true
	cfg.RateLimit.Enabled = false

	srv, err := New(cfg, nil)
	require.NoError(t, err)
	return srv, fake, upstream
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.URL = "not a url"

	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestIndex(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `id="conversation-history"`)
}

func TestIndexGzip(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}

func TestHealth(t *testing.T) {
	srv, _, upstream := newTestServer(t)

	w, body := doJSON(t, srv, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["sanitize"])
	assert.Equal(t, false, body["session"])
	assert.Equal(t, "closed", body["backend"].(map[string]interface{})["circuit"])

	upstream.Close()
	w, body = doJSON(t, srv, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, false, body["backend"].(map[string]interface{})["reachable"])
}

func TestQuery(t *testing.T) {
	srv, fake, _ := newTestServer(t)

	w, body := doJSON(t, srv, "POST", "/api/query", map[string]string{"query": " nginx 502 "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	item := body["item"].(map[string]interface{})
	assert.Equal(t, "nginx 502", item["query"])
	assert.Equal(t, `<h2 class="response-heading">Fix</h2><div class="solution-block">💡 Solution: restart nginx</div>`, item["response"])
	assert.Equal(t, "sess-42", body["session_id"])
	queries, _ := fake.received()
	assert.Equal(t, []string{"nginx 502"}, queries)

	_, history := doJSON(t, srv, "GET", "/api/history", nil)
	assert.Len(t, history["items"], 1)
	assert.Equal(t, "sess-42", history["session_id"])
}

func TestQueryErrors(t *testing.T) {
	srv, fake, _ := newTestServer(t)

	w, body := doJSON(t, srv, "POST", "/api/query", map[string]string{"query": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, conversation.ErrEmptyQuery.Error(), body["error"])

	req := httptest.NewRequest("POST", "/api/query", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	fake.setFailQuery(true)
	w, body = doJSON(t, srv, "POST", "/api/query", map[string]string{"query": "q"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "HTTP error! Status: 500 - model unavailable", body["error"])

	// Both failures are visible in the conversation.
	items := srv.Controller().History()
	require.Len(t, items, 2)
	assert.True(t, items[1].IsError)
	assert.Contains(t, items[1].Response, "Error processing request: HTTP error! Status: 500 - model unavailable. Please try again.")
}

func TestData(t *testing.T) {
	srv, fake, _ := newTestServer(t)

	w, body := doJSON(t, srv, "POST", "/api/data", map[string]string{"source": "text", "text": "ERROR disk full"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Data Upload Success: 1 error found", body["item"].(map[string]interface{})["response"])
	_, data := fake.received()
	assert.Equal(t, []string{"ERROR disk full"}, data)

	w, _ = doJSON(t, srv, "POST", "/api/data", map[string]string{"source": "clipboard", "text": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, srv, "POST", "/api/data", map[string]string{"source": "page"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, srv, "POST", "/api/data", map[string]string{"source": "text", "text": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPageWithHTMLThenSubmit(t *testing.T) {
	srv, fake, _ := newTestServer(t)

	w, body := doJSON(t, srv, "POST", "/api/page", map[string]string{
		"url":  "https://grafana.example.com/d/abc",
		"html": "<html><head><title>Dashboard</title></head><body><h1>CPU</h1><p>98% on web-1</p></body></html>",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Dashboard", body["title"])
	assert.Equal(t, "CPU\n98% on web-1", body["text"])

	w, _ = doJSON(t, srv, "POST", "/api/data", map[string]string{"source": "page"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, data := fake.received()
	assert.Equal(t, []string{"CPU\n98% on web-1"}, data)
	assert.Nil(t, srv.Controller().Page())
}

func TestPageFetch(t *testing.T) {
	srv, _, upstream := newTestServer(t)

	w, body := doJSON(t, srv, "POST", "/api/page", map[string]string{"url": upstream.URL + "/page"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Status", body["title"])
	assert.Equal(t, "db-1 degraded", body["text"])

	w, _ = doJSON(t, srv, "POST", "/api/page", map[string]string{"url": upstream.URL + "/missing"})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w, _ = doJSON(t, srv, "POST", "/api/page", map[string]string{"url": "chrome://extensions"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpload(t *testing.T) {
	srv, _, _ := newTestServer(t)

	upload := func(name string, data []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest("POST", "/api/upload", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		return w
	}

	w := upload("app.log", []byte("2024-01-01 ERROR oom-killed\n"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got capture.Upload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "app.log", got.Name)
	assert.True(t, strings.HasPrefix(got.MIME, "text/plain"))
	assert.Equal(t, "2024-01-01 ERROR oom-killed\n", got.Text)

	w = upload("shot.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest("POST", "/api/upload", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSourceAndNewConversation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w, body := doJSON(t, srv, "POST", "/api/source", map[string]string{"source": "file"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "file", body["source"])

	w, _ = doJSON(t, srv, "POST", "/api/source", map[string]string{"source": "clipboard"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, _ = doJSON(t, srv, "POST", "/api/query", map[string]string{"query": "q"})
	require.NotEmpty(t, srv.Controller().History())

	w, _ = doJSON(t, srv, "POST", "/api/conversation/new", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	_, history := doJSON(t, srv, "GET", "/api/history", nil)
	assert.Empty(t, history["items"])
	assert.Equal(t, "", history["session_id"])
	assert.Equal(t, "file", history["source"])
}

func TestFormat(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w, body := doJSON(t, srv, "POST", "/api/format", map[string]string{
		"text": "Warning: check <script>alert(1)</script>quota\n```bash\nkubectl get pods\n```",
	})
	require.Equal(t, http.StatusOK, w.Code)

	out := body["html"].(string)
	assert.Contains(t, out, `class="warning-block"`)
	assert.Contains(t, out, `<pre class="language-bash"><code>kubectl get pods</code></pre>`)
	assert.NotContains(t, out, "<script>")
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	doJSON(t, srv, "GET", "/api/history", nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `sidebar_http_requests_total{method="GET",path="/api/history",status="200"} 1`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{conversation.ErrBusy, http.StatusConflict},
		{conversation.ErrEmptyQuery, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", backend.ErrUnknownSource), http.StatusBadRequest},
		{&utils.SizeError{Name: "data", Size: 10, Max: 5}, http.StatusBadRequest},
		{capture.ErrUnsupportedFile, http.StatusBadRequest},
		{conversation.ErrNoFetcher, http.StatusServiceUnavailable},
		{resilience.ErrCircuitOpen, http.StatusServiceUnavailable},
		{&backend.HTTPError{StatusCode: 500, Message: "x"}, http.StatusBadGateway},
		{backend.ErrUnexpectedResponse, http.StatusBadGateway},
		{errors.New("connection refused"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRunAndClose(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = "0"
	cfg.Logging.Development = true

	srv, err := New(cfg, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Run() }()

	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Close(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}
