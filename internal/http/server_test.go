package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"errors"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/sovereign/internal/logging"
	"github.com/fyrsmithlabs/sovereign/internal/memory"
	"github.com/fyrsmithlabs/sovereign/internal/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoLLM struct{}

func (echoLLM) Generate(_ context.Context, prompt string) (string, error) {
	return "answer: " + prompt, nil
}

func setupTestServer(t *testing.T) (*Server, *orchestrator.Orchestrator) {
	t.Helper()
	orch := orchestrator.New(orchestrator.Providers{LLM: echoLLM{}})
	server, err := NewServer(orch, nil, logging.NewNop(), nil)
	require.NoError(t, err)
	return server, orch
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestNewServer(t *testing.T) {
	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, _ := setupTestServer(t)
		assert.Equal(t, "localhost", server.config.Host)
		assert.Equal(t, 9090, server.config.Port)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(orchestrator.New(orchestrator.Providers{}), nil, nil, nil)
		assert.ErrorContains(t, err, "logger is required")
	})

	t.Run("returns error when orchestrator is nil", func(t *testing.T) {
		_, err := NewServer(nil, nil, logging.NewNop(), nil)
		assert.ErrorContains(t, err, "orchestrator cannot be nil")
	})
}

func TestHandleHealth(t *testing.T) {
	server, _ := setupTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestHandleProcess(t *testing.T) {
	t.Run("runs command", func(t *testing.T) {
		server, _ := setupTestServer(t)

		rec := doRequest(t, server, http.MethodPost, "/api/v1/process",
			`{"command": "query llm hello", "context_id": "ctx-7"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp ProcessResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ctx-7", resp.ContextID)
		assert.Equal(t, []string{"answer: hello"}, resp.Outputs)
		assert.False(t, resp.Aborted)
	})

	t.Run("generates context id", func(t *testing.T) {
		server, _ := setupTestServer(t)

		rec := doRequest(t, server, http.MethodPost, "/api/v1/process", `{"command": "compile"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp ProcessResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.ContextID)
		assert.Equal(t, []string{"Unknown task"}, resp.Outputs)
	})

	t.Run("nl flag adds marker", func(t *testing.T) {
		server, orch := setupTestServer(t)

		rec := doRequest(t, server, http.MethodPost, "/api/v1/process", `{"command": "create repo", "nl": true}`)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp ProcessResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		// parse_nl is an unknown task and no git actor is configured,
		// neither failure is classified so all five stages run.
		assert.Equal(t, []string{"Unknown task", "Git Err", "Git Err", "Git Err", "Git Err"}, resp.Outputs)
		assert.Equal(t, []string{"--nl create repo"}, orch.ActiveGoals())
	})

	t.Run("rejects empty command", func(t *testing.T) {
		server, _ := setupTestServer(t)

		rec := doRequest(t, server, http.MethodPost, "/api/v1/process", `{"command": "  "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects invalid json", func(t *testing.T) {
		server, _ := setupTestServer(t)

		rec := doRequest(t, server, http.MethodPost, "/api/v1/process", `{not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleGoals(t *testing.T) {
	server, _ := setupTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/goals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"goals": []}`, rec.Body.String())

	doRequest(t, server, http.MethodPost, "/api/v1/process", `{"command": "first"}`)
	doRequest(t, server, http.MethodPost, "/api/v1/process", `{"command": "second"}`)

	rec = doRequest(t, server, http.MethodGet, "/api/v1/goals", "")
	var resp GoalsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"first", "second"}, resp.Goals)
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)
	doRequest(t, server, http.MethodPost, "/api/v1/process", `{"command": "query llm hi"}`)

	rec := doRequest(t, server, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "sovereign_orchestrator_dispatch_total"))
	assert.True(t, strings.Contains(body, `sovereign_http_requests_total{endpoint="/api/v1/process",method="POST",status="200"}`))
}

type fakeSearcher struct {
	records []memory.Record
	err     error
	query   string
	limit   int
}

func (f *fakeSearcher) SearchSimilar(_ context.Context, query string, limit int) ([]memory.Record, error) {
	f.query, f.limit = query, limit
	return f.records, f.err
}

func TestHandleAnomalies(t *testing.T) {
	newServer := func(t *testing.T, mem Searcher) *Server {
		t.Helper()
		server, err := NewServer(orchestrator.New(orchestrator.Providers{}), mem, logging.NewNop(), nil)
		require.NoError(t, err)
		return server
	}

	t.Run("returns matching anomalies", func(t *testing.T) {
		mem := &fakeSearcher{records: []memory.Record{
			{Message: "Anomaly: Git Err", ContextID: "ctx-1", Score: 0.9},
		}}
		server := newServer(t, mem)

		rec := doRequest(t, server, http.MethodGet, "/api/v1/anomalies?q=git+push&limit=3", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var resp AnomaliesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "git push", resp.Query)
		require.Len(t, resp.Anomalies, 1)
		assert.Equal(t, "Anomaly: Git Err", resp.Anomalies[0].Message)
		assert.Equal(t, "ctx-1", resp.Anomalies[0].ContextID)
		assert.Equal(t, "git push", mem.query)
		assert.Equal(t, 3, mem.limit)
	})

	t.Run("defaults limit and returns empty list", func(t *testing.T) {
		mem := &fakeSearcher{}
		server := newServer(t, mem)

		rec := doRequest(t, server, http.MethodGet, "/api/v1/anomalies?q=deps", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"query": "deps", "anomalies": []}`, rec.Body.String())
		assert.Equal(t, defaultAnomalyLimit, mem.limit)
	})

	t.Run("rejects bad parameters", func(t *testing.T) {
		server := newServer(t, &fakeSearcher{})

		for _, path := range []string{
			"/api/v1/anomalies",
			"/api/v1/anomalies?q=+",
			"/api/v1/anomalies?q=x&limit=0",
			"/api/v1/anomalies?q=x&limit=many",
			"/api/v1/anomalies?q=x&limit=101",
		} {
			rec := doRequest(t, server, http.MethodGet, path, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		}
	})

	t.Run("search failure is a bad gateway", func(t *testing.T) {
		server := newServer(t, &fakeSearcher{err: errors.New("qdrant down")})

		rec := doRequest(t, server, http.MethodGet, "/api/v1/anomalies?q=x", "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("unavailable without a memory store", func(t *testing.T) {
		server := newServer(t, nil)

		rec := doRequest(t, server, http.MethodGet, "/api/v1/anomalies?q=x", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
