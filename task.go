package workctl

import (
	"errors"
)

// Returned by NewTaskWorker when no handler is given.
var ErrNoHandler = errors.New("task worker requires a handler")

// TaskHandler processes one task. Returning an error terminates the worker.
type TaskHandler[T any] func(task T) error

// TaskWorker takes tasks one at a time from a caller-owned Queue and hands
// each to its handler, stopping once the queue is found empty.
type TaskWorker[T any] struct {
	*loop
	queue   Queue[T]
	handler TaskHandler[T]
}

// Creates a task worker draining q with h.
func NewTaskWorker[T any](q Queue[T], h TaskHandler[T], opts ...Option) (*TaskWorker[T], error) {
	if h == nil {
		return nil, ErrNoHandler
	}
	if q == nil {
		return nil, errors.New("task worker requires a queue")
	}
	l, err := newLoop(opts)
	if err != nil {
		return nil, err
	}
	w := &TaskWorker[T]{loop: l, queue: q, handler: h}
	l.iterate = w.iterate
	l.release = func() {
		w.queue = nil
		w.handler = nil
	}
	return w, nil
}

func (w *TaskWorker[T]) iterate() error {
	if w.queue.Len() == 0 {
		return w.Stop()
	}
	var empty bool
	err := w.unit(func() (bool, error) {
		task, err := w.queue.Get()
		if errors.Is(err, ErrQueueEmpty) {
			// another consumer got there first
			empty = true
			return false, nil
		}
		if err != nil {
			return false, err
		}
		defer w.queue.TaskDone()
		return true, w.handler(task)
	})
	if err != nil {
		return err
	}
	if empty {
		return w.Stop()
	}
	return nil
}
