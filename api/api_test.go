package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/carebook/agent"
	"github.com/hupe1980/carebook/core"
	"github.com/hupe1980/carebook/engine"
	"github.com/hupe1980/carebook/model"
	"github.com/hupe1980/carebook/schedule"
)

type mockEngine struct{ mock.Mock }

func (m *mockEngine) Ask(ctx context.Context, threadID, query string) (engine.Reply, error) {
	args := m.Called(ctx, threadID, query)
	return args.Get(0).(engine.Reply), args.Error(1)
}

func (m *mockEngine) Reset(ctx context.Context, threadID string) error {
	return m.Called(ctx, threadID).Error(0)
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestGenerate_Success(t *testing.T) {
	eng := new(mockEngine)
	eng.On("Ask", mock.Anything, "abc", "Hi").
		Return(engine.Reply{Answer: "Hello!", DialogState: core.ContextRouter, ThreadID: "abc"}, nil).Once()

	rec := do(t, NewRouter(eng), http.MethodPost, "/generate-stream/", `{"query":"Hi"}`, map[string]string{ThreadHeader: "abc"})

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[GenerationResponse](t, rec)
	assert.Equal(t, "Hello!", resp.Answer)
	assert.Equal(t, "router", resp.DialogState)
	eng.AssertExpectations(t)
}

func TestGenerate_DefaultThread(t *testing.T) {
	eng := new(mockEngine)
	eng.On("Ask", mock.Anything, DefaultThreadID, "Hi").
		Return(engine.Reply{Answer: "ok", DialogState: core.ContextInfo}, nil).Once()

	rec := do(t, NewRouter(eng), http.MethodPost, "/execute", `{"query":"Hi"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "info_specialist", decode[GenerationResponse](t, rec).DialogState)
	eng.AssertExpectations(t)
}

func TestGenerate_BadRequests(t *testing.T) {
	eng := new(mockEngine)
	h := NewRouter(eng)

	for name, body := range map[string]string{
		"malformed": `{"query":`,
		"empty":     `{"query":"   "}`,
		"missing":   `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/generate-stream/", body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}

	eng.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerate_TurnErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"routing", &core.RoutingError{Node: "router", Reason: "unknown tool \"x\""}, http.StatusInternalServerError, "the assistant could not route the request"},
		{"adapter", &core.AdapterFailure{Provider: "gemini", Err: errors.New("503")}, http.StatusBadGateway, "the language model is unavailable"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "the request took too long"},
		{"store", errors.New("save state: disk full"), http.StatusInternalServerError, "internal error processing the request"},
		{"panic", fmt.Errorf("node router: %w", errors.New("node panicked: nil map")), http.StatusInternalServerError, "internal error processing the request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := new(mockEngine)
			eng.On("Ask", mock.Anything, mock.Anything, mock.Anything).
				Return(engine.Reply{}, &core.TurnError{ThreadID: "t", Err: tt.err}).Once()

			rec := do(t, NewRouter(eng), http.MethodPost, "/generate-stream/", `{"query":"Hi"}`, nil)

			assert.Equal(t, tt.status, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, "Error processing request", resp.Error)
			assert.Equal(t, tt.detail, resp.Detail)
			assert.NotContains(t, resp.Detail, "panicked")
			assert.NotContains(t, resp.Detail, "disk full")
		})
	}
}

func TestResetThread(t *testing.T) {
	eng := new(mockEngine)
	eng.On("Reset", mock.Anything, "abc").Return(nil).Once()

	rec := do(t, NewRouter(eng), http.MethodDelete, "/threads/abc", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	eng.AssertExpectations(t)
}

func TestResetThread_HidesCause(t *testing.T) {
	eng := new(mockEngine)
	eng.On("Reset", mock.Anything, "abc").Return(errors.New("redis: connection refused at 10.0.0.7:6379")).Once()

	rec := do(t, NewRouter(eng), http.MethodDelete, "/threads/abc", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "internal error processing the request", resp.Detail)
	assert.NotContains(t, rec.Body.String(), "10.0.0.7")
}

func TestHealthAndRoot(t *testing.T) {
	h := NewRouter(new(mockEngine))

	rec := do(t, h, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"status": "healthy", "service": ServiceName}, decode[map[string]string](t, rec))

	rec = do(t, h, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/generate-stream/")

	rec = do(t, h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("carebook_turns_total 0")) })
	h := NewRouter(new(mockEngine), func(o *Options) { o.Metrics = metrics })

	rec := do(t, h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "carebook_turns_total")
}

func TestCORS(t *testing.T) {
	h := NewRouter(new(mockEngine), func(o *Options) { o.CORSOrigins = []string{"http://ui.example"} })

	rec := do(t, h, http.MethodOptions, "/generate-stream/", "", map[string]string{"Origin": "http://ui.example"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://ui.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), ThreadHeader)

	rec = do(t, h, http.MethodOptions, "/generate-stream/", "", map[string]string{"Origin": "http://evil.example"})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	wild := NewRouter(new(mockEngine))
	rec = do(t, wild, http.MethodGet, "/health", "", map[string]string{"Origin": "http://any.example"})
	assert.Equal(t, "http://any.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestGenerate_EndToEnd(t *testing.T) {
	store, err := schedule.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ds, err := agent.NewDescriptors(store)
	require.NoError(t, err)

	llm := model.NewScriptedModel(model.TextStep("Hello! How can I help you today?"))
	eng, err := engine.New(ds, llm)
	require.NoError(t, err)

	rec := do(t, NewRouter(eng), http.MethodPost, "/generate-stream/", `{"query":"Hi"}`, map[string]string{ThreadHeader: "e2e"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"answer":"Hello! How can I help you today?","dialog_state":"router"}`, rec.Body.String())
}
