package engine

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "lsmkv"

// Metrics collects the engine's prometheus metrics. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	flushes       prometheus.Counter
	flushDuration prometheus.Histogram
	sstables      prometheus.Gauge
	memtableSize  prometheus.Gauge
	gets          *prometheus.CounterVec
}

// NewMetrics registers the engine metrics with reg. It returns nil when reg
// is nil. Metrics already registered by an earlier engine are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{}
	var err error
	m.flushes, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "flushes_total",
		Help:      "Number of memtables flushed to sstables",
	}))
	if err != nil {
		return nil, err
	}
	m.flushDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "flush_duration_seconds",
		Help:      "Duration of memtable flushes",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	}))
	if err != nil {
		return nil, err
	}
	m.sstables, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "sstables",
		Help:      "Number of open sstables",
	}))
	if err != nil {
		return nil, err
	}
	m.memtableSize, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "memtable_size_bytes",
		Help:      "Approximate size of the active memtable",
	}))
	if err != nil {
		return nil, err
	}
	m.gets, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "gets_total",
		Help:      "Point lookups by where they were resolved",
	}, []string{"source"}))
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, errors.Wrap(err, "register metric")
	}
	return c, nil
}

func (m *Metrics) flushed(start time.Time) {
	if m == nil {
		return
	}
	m.flushes.Inc()
	m.flushDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) setTables(n int) {
	if m == nil {
		return
	}
	m.sstables.Set(float64(n))
}

func (m *Metrics) setMemtableSize(n int) {
	if m == nil {
		return
	}
	m.memtableSize.Set(float64(n))
}

func (m *Metrics) get(source string) {
	if m == nil {
		return
	}
	m.gets.WithLabelValues(source).Inc()
}
