package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/formstack/internal/domain/asset"
	"github.com/GriffinCanCode/formstack/internal/domain/form"
	"github.com/GriffinCanCode/formstack/internal/domain/manager"
	"github.com/GriffinCanCode/formstack/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/formstack/internal/shared/dispatch"
	"github.com/GriffinCanCode/formstack/internal/shared/types"
)

type staticAssets []asset.Entry

func (s staticAssets) List() []asset.Entry { return s }

type testServer struct {
	router *gin.Engine
	mgr    *manager.Manager
	logs   *observer.ObservedLogs

	mu    sync.Mutex
	fails map[string]error
}

// newTestServer runs a manager ticked by a background goroutine, the way
// the host drives it, with groups Main (0) and Popup (100).
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{fails: make(map[string]error)}
	loader := asset.LoaderFunc(func(ctx context.Context, assetName string) (*asset.Document, error) {
		ts.mu.Lock()
		err := ts.fails[assetName]
		ts.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return &asset.Document{Name: assetName, Title: assetName}, nil
	})

	core, logs := observer.New(zapcore.DebugLevel)
	ts.logs = logs
	logger := zap.New(core)

	reg := prometheus.NewRegistry()
	mgr, err := manager.NewManager(manager.Config{CacheCapacity: 4, StartSerialID: 1}, loader, logger)
	require.NoError(t, err)
	mgr.WithMetrics(monitoring.NewMetrics(reg))
	require.True(t, mgr.AddGroup("Main", 0))
	require.True(t, mgr.AddGroup("Popup", 100))
	ts.mgr = mgr

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-mgr.Queue().Ready():
				mgr.Tick(0)
			}
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	handlers := NewHandlers(mgr, staticAssets{{Name: "Dialog", Path: "/assets/Dialog.yaml", Format: asset.FormatYAML}}, logger).
		WithTimeout(2 * time.Second)
	ts.router = gin.New()
	RegisterRoutes(ts.router, handlers, reg)
	return ts
}

func (ts *testServer) failAsset(name string, err error) {
	ts.mu.Lock()
	ts.fails[name] = err
	ts.mu.Unlock()
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
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
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type openResponse struct {
	Success bool               `json:"success"`
	Form    types.FormSnapshot `json:"form"`
}

func (ts *testServer) open(t *testing.T, assetName, group string) types.FormSnapshot {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/forms/open", OpenRequest{Asset: assetName, Group: group})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[openResponse](t, w).Form
}

func TestOpenCloseRefocus(t *testing.T) {
	ts := newTestServer(t)

	a := ts.open(t, "A", "Main")
	assert.Equal(t, int64(1), a.SerialID)
	assert.Equal(t, "Main", a.Group)
	assert.True(t, a.Open)
	assert.False(t, a.Covered)

	b := ts.open(t, "B", "Main")
	assert.Equal(t, int64(2), b.SerialID)

	w := ts.do(t, http.MethodGet, "/groups/Main", nil)
	require.Equal(t, http.StatusOK, w.Code)
	main := decode[types.GroupSnapshot](t, w)
	require.Len(t, main.Forms, 2)
	assert.Equal(t, "B", main.Forms[0].AssetName)
	assert.True(t, main.Forms[1].Covered)

	w = ts.do(t, http.MethodPost, "/forms/refocus", AssetRequest{Asset: "A"})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/forms/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	refocused := decode[types.FormSnapshot](t, w)
	assert.Equal(t, 1, refocused.Depth)
	assert.False(t, refocused.Covered)

	w = ts.do(t, http.MethodPost, "/forms/close", AssetRequest{Asset: "A"})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/forms/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/forms/close", AssetRequest{Asset: "A"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Reopening reuses the cached instance
	again := ts.open(t, "A", "Popup")
	assert.Equal(t, int64(1), again.SerialID)
	assert.Equal(t, "Popup", again.Group)
}

func TestOpenErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.failAsset("Broken", errors.New("origin exploded"))

	tests := []struct {
		name string
		body any
		want int
	}{
		{"missing fields", map[string]string{"asset": "A"}, http.StatusBadRequest},
		{"unknown group", OpenRequest{Asset: "A", Group: "Nope"}, http.StatusBadRequest},
		{"bad asset name", OpenRequest{Asset: "../x", Group: "Main"}, http.StatusBadRequest},
		{"load failure", OpenRequest{Asset: "Broken", Group: "Main"}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/forms/open", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestGroups(t *testing.T) {
	ts := newTestServer(t)
	ts.open(t, "A", "Main")

	w := ts.do(t, http.MethodPost, "/groups", GroupRequest{Name: "HUD", Depth: 50})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, http.MethodPost, "/groups", GroupRequest{Name: "HUD", Depth: 50})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, "/groups", GroupRequest{Name: "bad name!"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/groups", nil)
	require.Equal(t, http.StatusOK, w.Code)
	groups := decode[struct {
		Groups []types.GroupSnapshot `json:"groups"`
	}](t, w).Groups
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"Main", "HUD", "Popup"}, names)

	w = ts.do(t, http.MethodPost, "/groups/Main/pause", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, "/groups/Main", nil)
	main := decode[types.GroupSnapshot](t, w)
	assert.True(t, main.Paused)
	assert.True(t, main.Forms[0].Paused)

	w = ts.do(t, http.MethodPost, "/groups/Main/resume", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodDelete, "/groups/Main", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodDelete, "/groups/Main", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodPost, "/groups/Main/pause", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The removed group's form was closed but stays cached
	w = ts.do(t, http.MethodGet, "/cache", nil)
	cache := decode[types.CacheSnapshot](t, w)
	require.Len(t, cache.Entries, 1)
	assert.False(t, cache.Entries[0].Open)
}

func TestCacheCapacity(t *testing.T) {
	ts := newTestServer(t)
	for _, name := range []string{"A", "B", "C"} {
		ts.open(t, name, "Main")
		require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/forms/close", AssetRequest{Asset: name}).Code)
	}

	w := ts.do(t, http.MethodPut, "/cache/capacity", map[string]int{"capacity": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/cache", nil)
	cache := decode[types.CacheSnapshot](t, w)
	assert.Equal(t, 1, cache.Capacity)
	require.Len(t, cache.Entries, 1)
	assert.Equal(t, "C", cache.Entries[0].AssetName)

	w = ts.do(t, http.MethodPut, "/cache/capacity", map[string]int{"capacity": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPut, "/cache/capacity", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/stats", nil)
	stats := decode[types.Stats](t, w)
	assert.Equal(t, 1, stats.Capacity)
	assert.Equal(t, int64(4), stats.NextSerialID)
}

func TestHealthAfterShutdown(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, ts.mgr.Queue().Invoke(context.Background(), ts.mgr.Shutdown))

	w = ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = ts.do(t, http.MethodPost, "/forms/open", OpenRequest{Asset: "A", Group: "Main"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAssetsMetricsAndLogs(t *testing.T) {
	ts := newTestServer(t)
	ts.open(t, "A", "Main")

	w := ts.do(t, http.MethodGet, "/assets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Dialog"`)

	w = ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "formstack_forms_open")

	w = ts.do(t, http.MethodPost, "/logs", FormLogRequest{
		Source: "display",
		Entries: []FormLogEntry{
			{Level: "warn", Message: "button missing", SerialID: 1, Asset: "A", Context: map[string]interface{}{"button": "ok"}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	warned := ts.logs.FilterMessage("button missing").All()
	require.Len(t, warned, 1)
	assert.Equal(t, zapcore.WarnLevel, warned[0].Level)
	assert.Equal(t, "A", warned[0].ContextMap()["asset"])

	w = ts.do(t, http.MethodPost, "/logs", FormLogRequest{Source: "display"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", form.ErrValidation), http.StatusBadRequest},
		{form.ErrNotFound, http.StatusNotFound},
		{form.ErrInvalidState, http.StatusConflict},
		{fmt.Errorf("%w: boom", form.ErrLoad), http.StatusBadGateway},
		{form.ErrShutdown, http.StatusServiceUnavailable},
		{dispatch.ErrClosed, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(strings.ReplaceAll(tt.err.Error(), " ", "_"), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}
