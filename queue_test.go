package workctl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFO(t *testing.T) {
	var q FIFO[string]
	assert.Equal(t, 0, q.Len())

	_, err := q.Get()
	assert.True(t, errors.Is(err, ErrQueueEmpty))

	q.Put("a")
	q.Put("b")
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 2, q.Unfinished())

	task, err := q.Get()
	require.NoError(t, err)
	assert.Equal(t, "a", task)
	task, err = q.Get()
	require.NoError(t, err)
	assert.Equal(t, "b", task)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 2, q.Unfinished())

	q.TaskDone()
	q.TaskDone()
	assert.Equal(t, 0, q.Unfinished())
	assert.Panics(t, q.TaskDone)
}

func TestFIFOJoin(t *testing.T) {
	q := NewFIFO(1, 2)
	assert.NoError(t, NewFIFO[int]().Join(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.True(t, errors.Is(q.Join(ctx), context.DeadlineExceeded))

	go func() {
		for {
			if _, err := q.Get(); err != nil {
				return
			}
			time.Sleep(10 * time.Millisecond)
			q.TaskDone()
		}
	}()

	ctx, cancel = context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, q.Join(ctx))
	assert.Equal(t, 0, q.Unfinished())
}

func TestFIFOConcurrentConsumers(t *testing.T) {
	q := NewFIFO[int]()
	for i := 0; i < 1000; i++ {
		q.Put(i)
	}

	var (
		wg    sync.WaitGroup
		mutex sync.Mutex
		seen  = make(map[int]int)
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, err := q.Get()
				if err != nil {
					return
				}
				mutex.Lock()
				seen[task]++
				mutex.Unlock()
				q.TaskDone()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000)
	for task, n := range seen {
		assert.Equal(t, 1, n, "task %d", task)
	}
	assert.Equal(t, 0, q.Unfinished())
}

func TestChanQueue(t *testing.T) {
	ch := make(chan int, 2)
	q := NewChanQueue[int](ch)
	_, err := q.Get()
	assert.True(t, errors.Is(err, ErrQueueEmpty))

	ch <- 7
	assert.Equal(t, 1, q.Len())
	task, err := q.Get()
	require.NoError(t, err)
	assert.Equal(t, 7, task)

	close(ch)
	_, err = q.Get()
	assert.True(t, errors.Is(err, ErrQueueEmpty))
}

func TestChanQueueUnbuffered(t *testing.T) {
	ch := make(chan int)
	q := NewChanQueue[int](ch)
	go func() { ch <- 1 }()
	time.Sleep(20 * time.Millisecond)

	// A blocked sender is invisible to Len.
	assert.Equal(t, 0, q.Len())
	task, err := q.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, task)
}
