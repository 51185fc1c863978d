package errorlog

import (
	stderrors "errors"

	"github.com/prometheus/client_golang/prometheus"
)

// View labels.
const (
	viewIndex   = "index"
	viewEntry   = "entry"
	viewExpired = "expired"
)

// metrics holds the Prometheus collectors of one dispatcher.
type metrics struct {
	captured *prometheus.CounterVec
	ignored  *prometheus.CounterVec
	entries  prometheus.Gauge
	views    *prometheus.CounterVec
}

// newMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered. Collectors already registered by another
// dispatcher on the same registry are shared; the ring gauge is labelled
// with instance so each dispatcher reports its own ring.
func newMetrics(reg prometheus.Registerer, instance string) (*metrics, error) {
	entries := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "errorlog",
		Name:      "ring_entries",
		Help:      "Records currently held by the error log, by dispatcher instance.",
	}, []string{"instance"})

	m := &metrics{
		captured: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "errorlog",
			Name:      "faults_captured_total",
			Help:      "Faults recorded by the error log, by category.",
		}, []string{"category"}),
		ignored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "errorlog",
			Name:      "faults_ignored_total",
			Help:      "Faults passed through unrecorded because their category is ignored.",
		}, []string{"category"}),
		views: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "errorlog",
			Name:      "view_requests_total",
			Help:      "Requests for the error log view, by view.",
		}, []string{"view"}),
	}

	if reg == nil {
		m.entries = entries.WithLabelValues(instance)
		return m, nil
	}

	var err error
	if m.captured, err = register(reg, m.captured); err != nil {
		return nil, err
	}
	if m.ignored, err = register(reg, m.ignored); err != nil {
		return nil, err
	}
	if entries, err = register(reg, entries); err != nil {
		return nil, err
	}
	m.entries = entries.WithLabelValues(instance)
	if m.views, err = register(reg, m.views); err != nil {
		return nil, err
	}

	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if stderrors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}

	return c, nil
}
