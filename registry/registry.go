// Package registry implements the entry-point registry: the concurrent
// method-token -> callable map a Runner consults to resume a continuation
// without being handed its entry point again (spec §4.G). It is grounded on
// the teacher's registry.Registry — a mutex-guarded map of case-insensitive
// name -> *Function, register-once-lookup-many — generalized from
// string-keyed PHP functions to int32-keyed continuable entry points. Every
// entry has the one Entry signature (returning values.Value), so Lookup
// performs no return-type check.
package registry

import (
	"sync"

	"github.com/wudi/continuum/execctx"
	"github.com/wudi/continuum/values"
)

// Entry is a continuable entry point. It is handed the ExecutionContext the
// Runner installed for this invocation — design note §9's "pass the context
// explicitly" rendition of the spec's thread-static current() lookup — and
// reads ctx.IsRestoring/RestoreChain/ResumeValue to decide whether it is
// starting fresh or rebuilding locals from a restore chain.
type Entry func(ctx *execctx.ExecutionContext) (values.Value, error)

// Registry is the concurrent entry-point registry. The zero value is not
// usable; use New.
type Registry struct {
	mu      sync.RWMutex
	entries map[int32]Entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[int32]Entry)}
}

// Register binds token to entry, replacing any prior binding — later
// registrations win, matching the teacher's RegisterFunction semantics for
// redeclaration.
func (r *Registry) Register(token int32, entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[token] = entry
}

// Unregister removes whatever is bound to token, if anything.
func (r *Registry) Unregister(token int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, token)
}

// Lookup returns the entry bound to token, if any.
func (r *Registry) Lookup(token int32) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[token]
	return e, ok
}

// Contains reports whether token is bound.
func (r *Registry) Contains(token int32) bool {
	_, ok := r.Lookup(token)
	return ok
}

// Clear empties the registry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[int32]Entry)
}

// Count returns the number of registered entries.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
