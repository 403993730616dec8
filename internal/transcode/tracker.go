package transcode

import "sync"

// Tracker forwards progress to a callback, dropping any value that does not
// strictly exceed the last one delivered. Values are clamped to [0, 1].
type Tracker struct {
	mu   sync.Mutex
	fn   func(float64)
	last float64
}

func NewTracker(fn func(float64)) *Tracker {
	return &Tracker{fn: fn, last: -1}
}

func (t *Tracker) Report(v float64) {
	if t == nil || t.fn == nil {
		return
	}
	v = min(max(v, 0), 1)

	t.mu.Lock()
	defer t.mu.Unlock()
	if v <= t.last {
		return
	}
	t.last = v
	t.fn(v)
}

// Range maps a pass's own [0, 1] progress onto [lo, hi] of the whole request.
func (t *Tracker) Range(lo, hi float64) func(float64) {
	return func(f float64) {
		f = min(max(f, 0), 1)
		t.Report(lo + f*(hi-lo))
	}
}

// Finish reports completion.
func (t *Tracker) Finish() { t.Report(1) }
