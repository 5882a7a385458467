package scone

import "sync/atomic"

// AbortFlags holds the two shared mutable booleans a controller uses to
// steer an in-progress conversion (see §5 of the design: cooperative,
// two-phase cancellation). They are polled between models and between
// tiles, never inside an inner decode loop, so a plain atomic load/store
// is sufficient -- no mutex is needed.
type AbortFlags struct {
	cancel atomic.Bool
	save   atomic.Bool
}

// Cancel requests that the pipeline stop immediately with no further
// writes once the running tile notices the flag.
func (f *AbortFlags) Cancel() {
	f.cancel.Store(true)
}

// Save requests that the pipeline finish the current tile (so it is
// still written to disk) and then stop; subsequent tiles are skipped.
func (f *AbortFlags) Save() {
	f.save.Store(true)
}

// ShouldCancel reports whether AbortAndCancel has been observed.
func (f *AbortFlags) ShouldCancel() bool {
	return f.cancel.Load()
}

// ShouldSave reports whether AbortAndSave has been observed.
func (f *AbortFlags) ShouldSave() bool {
	return f.save.Load()
}
