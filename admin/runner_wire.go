package admin

import (
	"github.com/wudi/continuum/runner"
	"github.com/wudi/continuum/validator"
)

// WireRunner attaches m to r the same way NewServer wires a Scheduler's
// events: through r's existing public hook, so runner never needs to know
// admin exists. Call it once after constructing both.
func WireRunner(r *runner.Runner, m *Metrics) {
	r.OnValidationRejected = func(validator.Result) {
		m.RecordValidatorRejection()
	}
}
