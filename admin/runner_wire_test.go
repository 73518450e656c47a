package admin

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/continuum/execctx"
	"github.com/wudi/continuum/frame"
	"github.com/wudi/continuum/registry"
	"github.com/wudi/continuum/runner"
	"github.com/wudi/continuum/validator"
	"github.com/wudi/continuum/values"
)

func TestWireRunnerRecordsValidatorRejection(t *testing.T) {
	r := runner.New()
	r.EntryPoints = registry.New()
	r.Validator = validator.New(validator.Default())

	m := NewMetrics()
	WireRunner(r, m)

	badState := frame.ContinuationState{Version: frame.CurrentVersion + 1}
	var entry registry.Entry = func(ctx *execctx.ExecutionContext) (values.Value, error) { return values.Null(), nil }
	_, err := r.Resume(badState, values.Null(), entry)
	require.Error(t, err)
	var verr *validator.ValidationError
	require.ErrorAs(t, err, &verr)

	rr := httptest.NewRecorder()
	promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rr.Body.String(), "continuum_validator_rejections_total 1")
}
