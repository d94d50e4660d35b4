package workctl

// Func is a cyclic work routine. Returning an error terminates the worker.
type Func func() error

// CyclicWorker runs a routine over and over on its own goroutine, sleeping
// for the configured delay between runs, until it is stopped or its wait
// times out while paused.
type CyclicWorker struct {
	*loop
	fn Func
}

// Creates a cyclic worker for fn. A worker without a routine stops itself on
// its first iteration.
func NewCyclic(fn Func, opts ...Option) (*CyclicWorker, error) {
	l, err := newLoop(opts)
	if err != nil {
		return nil, err
	}
	w := &CyclicWorker{loop: l, fn: fn}
	l.iterate = w.iterate
	l.release = func() { w.fn = nil }
	return w, nil
}

func (w *CyclicWorker) iterate() error {
	if w.fn == nil {
		return w.Stop()
	}
	return w.unit(func() (bool, error) {
		return true, w.fn()
	})
}
