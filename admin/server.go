package admin

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wudi/continuum/scheduler"
)

// Server is a read-only introspection HTTP surface over a Scheduler: list
// its scripts, fetch one by id, and scrape Prometheus metrics. It never
// mutates the Scheduler — AddScript/Wake/Stop stay the caller's
// responsibility, reached some other way (a CLI, a message queue consumer),
// keeping this package's blast radius to "read state, serve it as JSON."
type Server struct {
	sch     *scheduler.Scheduler
	metrics *Metrics
	router  *mux.Router
}

// NewServer wires routes for sch and m onto a fresh mux.Router, and
// registers listeners on sch so every tick's outcome updates m without
// scheduler needing to know admin exists.
func NewServer(sch *scheduler.Scheduler, m *Metrics) *Server {
	s := &Server{sch: sch, metrics: m, router: mux.NewRouter()}
	s.router.HandleFunc("/scripts", s.handleListScripts).Methods(http.MethodGet)
	s.router.HandleFunc("/scripts/{id}", s.handleGetScript).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.wireMetrics()
	return s
}

// wireMetrics attaches listeners to the Scheduler's fixed event names.
// "state_changed" fires exactly once per Tick (when an instance is
// dequeued), so it alone drives the tick counter; the three outcome events
// each fire once per Tick too but reflect the post-run state, so they alone
// drive the suspended-scripts gauge refresh.
func (s *Server) wireMetrics() {
	s.sch.AddEventListener("state_changed", func(scheduler.Event) {
		s.metrics.RecordTick()
	})
	refreshSuspended := func(scheduler.Event) {
		// Listeners run while the Scheduler holds its lock, and Scripts takes
		// that same lock, so the count is taken on a separate goroutine.
		go func() {
			suspended := 0
			for _, inst := range s.sch.Scripts() {
				if inst.State == scheduler.Suspended {
					suspended++
				}
			}
			s.metrics.SetSuspendedCount(suspended)
		}()
	}
	for _, evt := range []string{"yielded", "completed", "failed"} {
		s.sch.AddEventListener(evt, refreshSuspended)
	}
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// scriptView is the JSON shape returned for a ScriptInstance — a projection,
// not the struct itself, so callers outside this module never depend on
// scheduler's internal field layout.
type scriptView struct {
	ID         uint32 `json:"id"`
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Priority   uint8  `json:"priority"`
	State      string `json:"state"`
	YieldCount int64  `json:"yield_count"`
	TickCount  int64  `json:"tick_count"`
}

func toView(inst *scheduler.ScriptInstance) scriptView {
	return scriptView{
		ID:         inst.ID,
		ExternalID: inst.ExternalID.String(),
		Name:       inst.Name,
		Priority:   inst.Priority,
		State:      inst.State.String(),
		YieldCount: inst.YieldCount,
		TickCount:  inst.TickCount,
	}
}

func (s *Server) handleListScripts(w http.ResponseWriter, r *http.Request) {
	insts := s.sch.Scripts()
	views := make([]scriptView, len(insts))
	for i, inst := range insts {
		views[i] = toView(inst)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetScript(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]
	for _, inst := range s.sch.Scripts() {
		if inst.ExternalID.String() == idStr {
			writeJSON(w, http.StatusOK, toView(inst))
			return
		}
	}
	http.Error(w, "script not found", http.StatusNotFound)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
