// workctl runs long-lived background work on a dedicated goroutine which
// callers can start, pause, resume and stop at any time.
//
// Two worker shapes are provided. A CyclicWorker repeats a routine with a
// configurable delay between runs:
//
//	import (
//		"time"
//
//		"git.sr.ht/~sircmpwn/workctl"
//	)
//
//	// ...
//	w, err := workctl.NewCyclic(func() error {
//		// Poll something...
//		return nil
//	}, workctl.WithDelay(time.Second))
//	w.Start()
//
// A TaskWorker drains a caller-owned Queue, handing each task to a handler,
// and stops once the queue is empty:
//
//	q := workctl.NewFIFO("a.txt", "b.txt")
//	w, err := workctl.NewTaskWorker[string](q, func(path string) error {
//		return process(path)
//	})
//	w.Start()
//	err = w.Join(ctx)
//
// Pause takes effect between work units: a unit already executing is never
// interrupted, and IsWorking reports whether one is in flight. A paused
// worker that is not resumed within its timeout stops itself. Stop releases a
// paused worker immediately.
//
// A work unit which returns an error (or panics) terminates the worker. The
// error is returned from Join and passed to the handler set with
// WithErrorHandler.
//
// Non-daemon workers are tracked while they run; Wait blocks until all of
// them exit and Shutdown stops them first.
package workctl
