package execctx

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// current is a goroutine-scoped registry of the installed ExecutionContext.
// Design note §9 treats the thread-static "current context" lookup as a
// convenience over explicit passing; Go has no goroutine-local storage, so
// this keys on the calling goroutine's id (parsed from its own stack trace
// header, the same trick the runtime itself uses internally) rather than
// reaching for a single process-wide pointer, which would race the moment
// two schedulers run on different goroutines at once (spec §5).
var current sync.Map // goroutine id (uint64) -> *ExecutionContext

func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	// "goroutine 123 [running]:\n..."
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}

// Current returns the ExecutionContext installed for the calling goroutine,
// if any.
func Current() (*ExecutionContext, bool) {
	v, ok := current.Load(goroutineID())
	if !ok {
		return nil, false
	}
	return v.(*ExecutionContext), true
}

// EnsureCurrent returns the calling goroutine's installed context, lazily
// creating and installing a fresh one if none is set. Transformed code calls
// this on entry (spec §4.E's skeleton: `ctx = ensure_current()`).
func EnsureCurrent() *ExecutionContext {
	gid := goroutineID()
	if v, ok := current.Load(gid); ok {
		return v.(*ExecutionContext)
	}
	ctx := New()
	current.Store(gid, ctx)
	return ctx
}

// RunWith installs ctx as current for the calling goroutine, invokes entry,
// and restores whatever was previously installed on every exit path —
// including panic unwinding, so a suspension signal propagating through
// entry still leaves current() correctly scoped afterward (spec §4.D
// run_with, property P10).
func RunWith(ctx *ExecutionContext, entry func() (any, error)) (any, error) {
	gid := goroutineID()
	prev, hadPrev := current.Load(gid)
	current.Store(gid, ctx)
	defer func() {
		if hadPrev {
			current.Store(gid, prev)
		} else {
			current.Delete(gid)
		}
	}()
	return entry()
}
