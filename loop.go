package workctl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// loop is the goroutine skeleton shared by CyclicWorker and TaskWorker. The
// owning worker supplies iterate, which runs at most one work unit per call
// and may stop the control to end the loop.
type loop struct {
	name    string
	daemon  bool
	control *Control
	log     zerolog.Logger
	metrics *Metrics

	delay   atomic.Int64
	timeout atomic.Int64
	busy    atomic.Bool
	alive   atomic.Bool
	// signalled by SetTimeout
	retimed chan struct{}

	preparation    func() error
	postProcessing func() error
	onError        func(error)
	iterate        func() error
	release        func()

	// serialises transitions with the state they publish
	transitionMutex sync.Mutex

	done chan struct{}
	// written before done is closed
	err error
}

func newLoop(opts []Option) (*loop, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	if s.name == "" {
		// Generated names would leave one metric series behind per worker.
		if s.metrics != nil {
			return nil, ErrUnnamedMetrics
		}
		s.name = "worker-" + uuid.NewString()[:8]
	}
	log := defaultLogger()
	if s.logger != nil {
		log = *s.logger
	}

	l := &loop{
		name:           s.name,
		daemon:         s.daemon,
		control:        NewControl(),
		log:            log.With().Str("worker", s.name).Logger(),
		metrics:        s.metrics,
		preparation:    s.preparation,
		postProcessing: s.postProcessing,
		onError:        s.onError,
		retimed:        make(chan struct{}, 1),
		done:           make(chan struct{}),
	}
	l.delay.Store(int64(s.delay))
	l.timeout.Store(int64(s.timeout))
	l.metrics.setState(l.name, StateInitial)
	return l, nil
}

// Launches the worker goroutine. A worker can only be started once.
func (l *loop) Start() error {
	if err := l.transition(l.control.Start); err != nil {
		return err
	}
	l.alive.Store(true)
	if !l.daemon {
		register(l)
	}
	l.log.Debug().Msg("worker started")
	go l.run()
	return nil
}

// Asks the worker to block before its next work unit. A unit already in
// flight runs to completion; poll IsWorking to see when it has.
func (l *loop) Pause() error {
	if err := l.transition(l.control.Pause); err != nil {
		return err
	}
	l.log.Debug().Msg("worker paused")
	return nil
}

// Lets a paused worker continue.
func (l *loop) Resume() error {
	if err := l.transition(l.control.Resume); err != nil {
		return err
	}
	l.log.Debug().Msg("worker resumed")
	return nil
}

// Ends the worker after the current work unit, if any. A worker blocked
// while paused is released immediately.
func (l *loop) Stop() error {
	if err := l.transition(l.control.Stop); err != nil {
		return err
	}
	l.log.Debug().Msg("worker stopped")
	return nil
}

func (l *loop) transition(op func() error) error {
	l.transitionMutex.Lock()
	defer l.transitionMutex.Unlock()
	if err := op(); err != nil {
		return err
	}
	l.metrics.setState(l.name, l.control.State())
	return nil
}

// Blocks until the worker goroutine exits and returns the error that
// terminated it, if any. Returns the context's error if it is done first.
func (l *loop) Join(ctx context.Context) error {
	if l.control.State() == StateInitial {
		return fmt.Errorf("cannot join before start: %w", ErrNotStarted)
	}
	select {
	case <-l.done:
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Closed when the worker goroutine has exited.
func (l *loop) Done() <-chan struct{} {
	return l.done
}

// Returns the error that terminated the worker. Only meaningful once Done
// is closed.
func (l *loop) Err() error {
	select {
	case <-l.done:
		return l.err
	default:
		return nil
	}
}

// Reports whether the worker goroutine is running.
func (l *loop) IsAlive() bool {
	return l.alive.Load()
}

// Reports whether a work unit is executing right now.
func (l *loop) IsWorking() bool {
	return l.busy.Load()
}

func (l *loop) Delay() time.Duration {
	return time.Duration(l.delay.Load())
}

// Changes the pause after each work unit, starting with the next one.
func (l *loop) SetDelay(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid delay %s: %w", d, ErrNegativeDelay)
	}
	l.delay.Store(int64(d))
	return nil
}

func (l *loop) Timeout() time.Duration {
	return time.Duration(l.timeout.Load())
}

// Changes the wait timeout. A wait already in progress is abandoned and a
// fresh one begins with the new timeout.
func (l *loop) SetTimeout(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid timeout %s: %w", d, ErrNegativeTimeout)
	}
	l.timeout.Store(int64(d))
	select {
	case l.retimed <- struct{}{}:
	default:
	}
	return nil
}

func (l *loop) State() State {
	return l.control.State()
}

func (l *loop) Name() string {
	return l.name
}

func (l *loop) Daemon() bool {
	return l.daemon
}

// Returns a status such as "worker-1a2b3c4d(started, paused)".
func (l *loop) String() string {
	var b strings.Builder
	b.WriteString(l.name)
	b.WriteByte('(')
	state := l.control.State()
	switch {
	case l.IsAlive():
		b.WriteString("started, ")
		b.WriteString(state.String())
	case state == StateInitial:
		b.WriteString("initial")
	default:
		b.WriteString("stopped")
	}
	if l.daemon {
		b.WriteString(", daemon")
	}
	b.WriteByte(')')
	return b.String()
}

func (l *loop) run() {
	defer l.exit()

	if err := call(l.preparation); err != nil {
		l.fail("preparation", err)
		return
	}
	for !l.control.IsStopped() {
		ok, err := l.wait()
		if err != nil {
			break
		}
		if !ok {
			l.log.Warn().Dur("timeout", l.Timeout()).Msg("wait timed out, forcing stop")
			_ = l.Stop()
			break
		}
		if l.control.IsStopped() {
			break
		}
		if err := l.iterate(); err != nil {
			l.fail("work unit", err)
			return
		}
		if l.control.IsStopped() {
			break
		}
		time.Sleep(l.Delay())
	}
	if err := call(l.postProcessing); err != nil {
		l.fail("post-processing", err)
	}
}

func (l *loop) wait() (bool, error) {
	for {
		ok, err := l.control.wait(l.Timeout(), l.retimed)
		if !errors.Is(err, errInterrupted) {
			return ok, err
		}
	}
}

// unit runs fn as one work unit: busy for exactly its duration, with panics
// turned into errors. fn reports whether it did any work; units that did not
// are left out of the metrics.
func (l *loop) unit(fn func() (bool, error)) (err error) {
	var worked bool
	l.busy.Store(true)
	l.metrics.setBusy(l.name, true)
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		l.busy.Store(false)
		l.metrics.setBusy(l.name, false)
		if err == nil && worked {
			l.metrics.observeUnit(l.name, time.Since(started))
		}
	}()
	worked, err = fn()
	return err
}

func (l *loop) fail(stage string, err error) {
	l.err = fmt.Errorf("worker %s: %s failed: %w", l.name, stage, err)
	_ = l.Stop()
	l.metrics.recordFailure(l.name)
	l.log.Error().Err(err).Str("stage", stage).Msg("worker terminated")
	if l.onError != nil {
		l.onError(l.err)
	}
}

func (l *loop) exit() {
	if l.release != nil {
		l.release()
	}
	l.preparation, l.postProcessing, l.iterate = nil, nil, nil
	l.alive.Store(false)
	if !l.daemon {
		unregister(l)
	}
	l.log.Debug().Msg("worker exited")
	close(l.done)
}

func call(fn func() error) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
