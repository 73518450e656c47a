package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/continuum/execctx"
	"github.com/wudi/continuum/runner"
	"github.com/wudi/continuum/scheduler"
	"github.com/wudi/continuum/values"
)

func completingEntry(ctx *execctx.ExecutionContext) (values.Value, error) {
	return values.Int64(1), nil
}

func TestHandleListScripts(t *testing.T) {
	sch := scheduler.New(runner.New(), 1000)
	sch.AddScript(completingEntry, "job-a", 1)
	sch.AddScript(completingEntry, "job-b", 2)

	srv := NewServer(sch, NewMetrics())
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/scripts", nil)
	srv.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var views []scriptView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, "job-a", views[0].Name)
	assert.Equal(t, "job-b", views[1].Name)
}

func TestHandleGetScriptNotFound(t *testing.T) {
	sch := scheduler.New(runner.New(), 1000)
	srv := NewServer(sch, NewMetrics())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/scripts/does-not-exist", nil)
	srv.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	sch := scheduler.New(runner.New(), 1000)
	sch.AddScript(completingEntry, "job", 1)

	srv := NewServer(sch, NewMetrics())
	sch.Run()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	srv.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "continuum_scheduler_ticks_total")
}
