package workctl

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var allStates = []State{StateInitial, StateRunning, StatePaused, StateStopped}

// Metrics exports worker activity as Prometheus collectors, labelled by
// worker name. A nil *Metrics records nothing.
type Metrics struct {
	units    *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	busy     *prometheus.GaugeVec
	state    *prometheus.GaugeVec
}

// Creates the collectors and registers them with reg, or with the default
// registerer if reg is nil. Registering twice against the same registry
// reuses the collectors already there.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	if namespace == "" {
		namespace = "workctl"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_total",
			Help:      "Total number of completed work units.",
		}, []string{"worker"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Total number of failures that terminated a worker.",
		}, []string{"worker"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "unit_duration_seconds",
			Help:      "Work unit execution time in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"worker"}),
		busy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "busy",
			Help:      "1 while the worker is executing a work unit.",
		}, []string{"worker"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "1 for the worker's current control state, 0 otherwise.",
		}, []string{"worker", "state"}),
	}

	var err error
	if m.units, err = registerCollector(reg, m.units); err != nil {
		return nil, err
	}
	if m.failures, err = registerCollector(reg, m.failures); err != nil {
		return nil, err
	}
	if m.duration, err = registerCollector(reg, m.duration); err != nil {
		return nil, err
	}
	if m.busy, err = registerCollector(reg, m.busy); err != nil {
		return nil, err
	}
	if m.state, err = registerCollector(reg, m.state); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) observeUnit(worker string, d time.Duration) {
	if m == nil {
		return
	}
	m.units.WithLabelValues(worker).Inc()
	m.duration.WithLabelValues(worker).Observe(d.Seconds())
}

func (m *Metrics) recordFailure(worker string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(worker).Inc()
}

func (m *Metrics) setBusy(worker string, busy bool) {
	if m == nil {
		return
	}
	v := 0.0
	if busy {
		v = 1
	}
	m.busy.WithLabelValues(worker).Set(v)
}

func (m *Metrics) setState(worker string, state State) {
	if m == nil {
		return
	}
	for _, s := range allStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.state.WithLabelValues(worker, s.String()).Set(v)
	}
}

func registerCollector[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		existing, ok := already.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}
	return collector, err
}
