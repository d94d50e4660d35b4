package workctl

import (
	"context"
	"errors"
	"sync"
)

// Returned by Queue.Get when there is nothing to take.
var ErrQueueEmpty = errors.New("queue is empty")

// Queue is the task source drained by a TaskWorker. It is owned by the caller
// and may be shared with other producers and consumers, so implementations
// must be safe for concurrent use.
type Queue[T any] interface {
	// Returns the number of tasks waiting to be taken.
	Len() int
	// Removes and returns the oldest task, or ErrQueueEmpty.
	Get() (T, error)
	// Signals that a task previously returned by Get has been processed.
	TaskDone()
}

// FIFO is an unbounded first-in first-out Queue which also tracks how many
// taken tasks are still unfinished, so producers can Join on completion. The
// zero value is an empty queue ready to use.
type FIFO[T any] struct {
	mutex      sync.Mutex
	tasks      []T
	unfinished int
	// closed and replaced whenever unfinished drops to zero
	idle chan struct{}
}

var _ Queue[int] = (*FIFO[int])(nil)

// Creates a new FIFO queue holding the given tasks in order.
func NewFIFO[T any](tasks ...T) *FIFO[T] {
	q := &FIFO[T]{}
	for _, t := range tasks {
		q.Put(t)
	}
	return q
}

// Appends a task to the queue.
func (q *FIFO[T]) Put(t T) {
	q.mutex.Lock()
	if q.idle == nil {
		q.idle = make(chan struct{})
	}
	q.tasks = append(q.tasks, t)
	q.unfinished++
	q.mutex.Unlock()
}

// Returns the number of queued tasks.
func (q *FIFO[T]) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.tasks)
}

// Removes and returns the oldest task without blocking.
func (q *FIFO[T]) Get() (T, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	var t T
	if len(q.tasks) == 0 {
		return t, ErrQueueEmpty
	}
	t = q.tasks[0]
	var zero T
	q.tasks[0] = zero
	q.tasks = q.tasks[1:]
	return t, nil
}

// Marks one taken task as processed. Panics if called more times than tasks
// were put.
func (q *FIFO[T]) TaskDone() {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if q.unfinished <= 0 {
		panic(errors.New("FIFO.TaskDone called too many times"))
	}
	q.unfinished--
	if q.unfinished == 0 {
		close(q.idle)
		q.idle = make(chan struct{})
	}
}

// Returns the number of tasks put but not yet marked done.
func (q *FIFO[T]) Unfinished() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.unfinished
}

// Blocks until every task put on the queue has been marked done, or the
// context is cancelled.
func (q *FIFO[T]) Join(ctx context.Context) error {
	q.mutex.Lock()
	if q.unfinished == 0 {
		q.mutex.Unlock()
		return nil
	}
	idle := q.idle
	q.mutex.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ChanQueue adapts a receive-only channel to the Queue interface. Closing the
// channel makes it permanently empty. The channel must be buffered: Len of an
// unbuffered channel is always 0, so a TaskWorker would stop at once even
// while a sender is blocked.
type ChanQueue[T any] struct {
	ch <-chan T
}

var _ Queue[int] = ChanQueue[int]{}

// Wraps a channel as a Queue.
func NewChanQueue[T any](ch <-chan T) ChanQueue[T] {
	return ChanQueue[T]{ch: ch}
}

func (q ChanQueue[T]) Len() int {
	return len(q.ch)
}

func (q ChanQueue[T]) Get() (T, error) {
	select {
	case t, ok := <-q.ch:
		if ok {
			return t, nil
		}
	default:
	}
	var zero T
	return zero, ErrQueueEmpty
}

// Channels carry no completion tracking.
func (q ChanQueue[T]) TaskDone() {}
