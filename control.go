package workctl

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// Returned when a control is paused, resumed, stopped or waited on before
	// it was started.
	ErrNotStarted = errors.New("not started")

	// Returned when a control is paused, resumed or waited on after it was
	// stopped.
	ErrStopped = errors.New("already stopped")

	// Returned when a control (or the worker owning it) is started twice.
	ErrAlreadyStarted = errors.New("can only be started once")

	errInterrupted = errors.New("wait interrupted")
)

// State is the lifecycle stage of a worker.
type State int

const (
	StateInitial State = iota
	StateRunning
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Control is the state machine governing one worker goroutine. It couples
// the four-valued State with a gate that is open exactly while the state is
// running; Wait blocks on that gate.
//
// All methods are safe for concurrent use.
type Control struct {
	mutex sync.Mutex
	state State
	// closed == gate open
	gate chan struct{}
}

// Creates a new control in the initial state with its gate closed.
func NewControl() *Control {
	return &Control{gate: make(chan struct{})}
}

// Moves the control from initial to running and opens the gate.
func (c *Control) Start() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.state != StateInitial {
		return fmt.Errorf("cannot start: %w", ErrAlreadyStarted)
	}
	c.state = StateRunning
	c.open()
	return nil
}

// Closes the gate. Pausing a paused control is a no-op.
func (c *Control) Pause() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err := c.check("pause"); err != nil {
		return err
	}
	if c.state == StateRunning {
		c.state = StatePaused
		c.gate = make(chan struct{})
	}
	return nil
}

// Reopens the gate. Resuming a running control is a no-op.
func (c *Control) Resume() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err := c.check("resume"); err != nil {
		return err
	}
	if c.state == StatePaused {
		c.state = StateRunning
		c.open()
	}
	return nil
}

// Stops the control permanently. Any goroutine blocked in Wait is released.
// Stopping a stopped control is a no-op.
func (c *Control) Stop() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	switch c.state {
	case StateInitial:
		return fmt.Errorf("cannot stop before start: %w", ErrNotStarted)
	case StateStopped:
		return nil
	}
	c.state = StateStopped
	c.open()
	return nil
}

// Blocks until the gate opens or the timeout elapses and reports whether the
// gate was open on return. A waiter released by Stop also sees true; callers
// must check IsStopped afterwards.
func (c *Control) Wait(timeout time.Duration) (bool, error) {
	return c.wait(timeout, nil)
}

// wait is Wait that also returns errInterrupted as soon as interrupt
// receives, if the gate is still closed.
func (c *Control) wait(timeout time.Duration, interrupt <-chan struct{}) (bool, error) {
	c.mutex.Lock()
	if err := c.check("wait"); err != nil {
		c.mutex.Unlock()
		return false, err
	}
	gate := c.gate
	c.mutex.Unlock()

	select {
	case <-gate:
		return true, nil
	default:
	}
	if timeout <= 0 {
		return false, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-gate:
		return true, nil
	case <-timer.C:
		return false, nil
	case <-interrupt:
		return false, errInterrupted
	}
}

// Returns the current state.
func (c *Control) State() State {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.state
}

// Reports whether the state is running.
func (c *Control) IsRunning() bool {
	return c.State() == StateRunning
}

// Reports whether the state is stopped.
func (c *Control) IsStopped() bool {
	return c.State() == StateStopped
}

func (c *Control) String() string {
	return c.State().String()
}

// check rejects operations from the initial and stopped states. Must be
// called with the mutex held.
func (c *Control) check(op string) error {
	switch c.state {
	case StateInitial:
		return fmt.Errorf("cannot %s before start: %w", op, ErrNotStarted)
	case StateStopped:
		return fmt.Errorf("cannot %s after stop: %w", op, ErrStopped)
	}
	return nil
}

func (c *Control) open() {
	select {
	case <-c.gate:
	default:
		close(c.gate)
	}
}
