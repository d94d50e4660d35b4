package workctl

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Returned when a negative delay is configured.
	ErrNegativeDelay = errors.New("delay must be non-negative")

	// Returned when a negative timeout is configured.
	ErrNegativeTimeout = errors.New("timeout must be non-negative")

	// Returned when metrics are enabled for a worker without a name.
	ErrUnnamedMetrics = errors.New("workers with metrics must be named")
)

const (
	// Delay inserted after each work unit unless configured otherwise.
	DefaultDelay time.Duration = 0

	// Longest a worker waits on a closed gate before stopping itself, unless
	// configured otherwise.
	DefaultTimeout = 1000 * time.Second
)

// Option configures a worker at construction time.
type Option func(*settings) error

type settings struct {
	name           string
	delay          time.Duration
	timeout        time.Duration
	daemon         bool
	logger         *zerolog.Logger
	metrics        *Metrics
	preparation    func() error
	postProcessing func() error
	onError        func(error)
}

// Sets the pause inserted after each completed work unit.
func WithDelay(d time.Duration) Option {
	return func(s *settings) error {
		if d < 0 {
			return fmt.Errorf("invalid delay %s: %w", d, ErrNegativeDelay)
		}
		s.delay = d
		return nil
	}
}

// Sets how long the worker may block on a closed gate before it is forced to
// stop.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) error {
		if d < 0 {
			return fmt.Errorf("invalid timeout %s: %w", d, ErrNegativeTimeout)
		}
		s.timeout = d
		return nil
	}
}

// Names the worker. Names appear in logs, metrics labels and String output.
func WithName(name string) Option {
	return func(s *settings) error {
		s.name = name
		return nil
	}
}

// Marks the worker as a daemon. Daemon workers are not waited for by Wait
// and Shutdown.
func WithDaemon(daemon bool) Option {
	return func(s *settings) error {
		s.daemon = daemon
		return nil
	}
}

// Overrides the package logger for this worker.
func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) error {
		s.logger = &l
		return nil
	}
}

// Records the worker's activity in the given metrics, labelled with the
// worker's name. Such workers must be named with WithName or WithConfig.
func WithMetrics(m *Metrics) Option {
	return func(s *settings) error {
		s.metrics = m
		return nil
	}
}

// Sets a function run once on the worker goroutine before the first work
// unit. If it fails the worker stops without running any work.
func WithPreparation(fn func() error) Option {
	return func(s *settings) error {
		s.preparation = fn
		return nil
	}
}

// Sets a function run once on the worker goroutine after the loop ends
// normally. It is skipped when a work unit fails.
func WithPostProcessing(fn func() error) Option {
	return func(s *settings) error {
		s.postProcessing = fn
		return nil
	}
}

// Sets a callback receiving the error that terminated the worker. It runs on
// the worker goroutine before Join returns.
func WithErrorHandler(fn func(error)) Option {
	return func(s *settings) error {
		s.onError = fn
		return nil
	}
}

// Applies every field of a Config, zero values included: a zero Timeout makes
// a paused worker stop at its next wait, and Daemon overrides any earlier
// WithDaemon. Start from DefaultConfig (or LoadConfig) rather than a literal.
// An empty Name keeps the current name.
func WithConfig(c Config) Option {
	return func(s *settings) error {
		if err := c.Validate(); err != nil {
			return err
		}
		if c.Name != "" {
			s.name = c.Name
		}
		s.delay = c.Delay
		s.timeout = c.Timeout
		s.daemon = c.Daemon
		return nil
	}
}

func newSettings(opts []Option) (*settings, error) {
	s := &settings{
		delay:   DefaultDelay,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}
