// Package metrics exposes keyboard counters, gauges and latency histograms
// in the Prometheus text format.
package metrics

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Labels are constant labels attached to a metric.
type Labels map[string]string

// String renders the labels as {k="v",...} in key order.
func (l Labels) String() string {
	if len(l) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range slices.Sorted(maps.Keys(l)) {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(l[k]))
	}
	b.WriteByte('}')
	return b.String()
}

// with renders the labels plus one extra pair, for histogram buckets.
func (l Labels) with(key, value string) string {
	extra := make(Labels, len(l)+1)
	maps.Copy(extra, l)
	extra[key] = value
	return extra.String()
}

type desc struct {
	name   string
	help   string
	labels Labels
}

// Name returns the fully qualified metric name.
func (d *desc) Name() string { return d.name }

func (d *desc) header(w io.Writer, kind string) error {
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", d.name, d.help, d.name, kind)
	return err
}

type collector interface {
	write(w io.Writer) error
}

// Counter only goes up.
type Counter struct {
	desc
	value atomic.Uint64
}

// NewCounter creates an unregistered counter.
func NewCounter(name, help string, labels Labels) *Counter {
	return &Counter{desc: desc{name, help, labels}}
}

func (c *Counter) Inc()          { c.value.Add(1) }
func (c *Counter) Add(v uint64)  { c.value.Add(v) }
func (c *Counter) Value() uint64 { return c.value.Load() }

func (c *Counter) write(w io.Writer) error {
	if err := c.header(w, "counter"); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s%s %d\n", c.name, c.labels, c.Value())
	return err
}

// Gauge holds a value that moves both ways.
type Gauge struct {
	desc
	value atomic.Int64
}

// NewGauge creates an unregistered gauge.
func NewGauge(name, help string, labels Labels) *Gauge {
	return &Gauge{desc: desc{name, help, labels}}
}

func (g *Gauge) Set(v int64)  { g.value.Store(v) }
func (g *Gauge) Add(v int64)  { g.value.Add(v) }
func (g *Gauge) Value() int64 { return g.value.Load() }

func (g *Gauge) write(w io.Writer) error {
	if err := g.header(w, "gauge"); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s%s %d\n", g.name, g.labels, g.Value())
	return err
}

// LatencyBuckets suit candidate lookups, in seconds.
var LatencyBuckets = []float64{
	0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

// Histogram counts observations into cumulative buckets.
type Histogram struct {
	desc
	bounds []float64

	mu     sync.Mutex
	counts []uint64 // last slot is +Inf
	sum    float64
	total  uint64
}

// NewHistogram creates an unregistered histogram. Nil bounds mean
// LatencyBuckets.
func NewHistogram(name, help string, labels Labels, bounds []float64) *Histogram {
	if bounds == nil {
		bounds = LatencyBuckets
	}
	sorted := slices.Clone(bounds)
	slices.Sort(sorted)
	return &Histogram{
		desc:   desc{name, help, labels},
		bounds: sorted,
		counts: make([]uint64, len(sorted)+1),
	}
}

// Observe records one value.
func (h *Histogram) Observe(v float64) {
	i, _ := slices.BinarySearch(h.bounds, v)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts[i]++
	h.sum += v
	h.total++
}

// ObserveDuration records d in seconds.
func (h *Histogram) ObserveDuration(d time.Duration) { h.Observe(d.Seconds()) }

// Count returns the number of observations.
func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}

func (h *Histogram) write(w io.Writer) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.header(w, "histogram"); err != nil {
		return err
	}
	var cumulative uint64
	for i, c := range h.counts {
		cumulative += c
		le := "+Inf"
		if i < len(h.bounds) {
			le = strconv.FormatFloat(h.bounds[i], 'g', -1, 64)
		}
		if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, h.labels.with("le", le), cumulative); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%s_sum%s %g\n%s_count%s %d\n",
		h.name, h.labels, h.sum, h.name, h.labels, h.total)
	return err
}

// Registry names metrics under a namespace and subsystem.
type Registry struct {
	namespace string
	subsystem string

	mu      sync.RWMutex
	metrics map[string]collector
}

// NewRegistry creates an empty registry.
func NewRegistry(namespace, subsystem string) *Registry {
	return &Registry{
		namespace: namespace,
		subsystem: subsystem,
		metrics:   make(map[string]collector),
	}
}

func (r *Registry) qualify(name string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.namespace, r.subsystem, name} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "_")
}

// register returns the metric already registered under name, or stores the
// one built by create. Reusing a name for another metric kind panics.
func register[T collector](r *Registry, name string, create func(full string) T) T {
	full := r.qualify(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.metrics[full]; ok {
		m, ok := existing.(T)
		if !ok {
			panic(fmt.Sprintf("metrics: %s registered with another type", full))
		}
		return m
	}
	m := create(full)
	r.metrics[full] = m
	return m
}

func lookup[T collector](r *Registry, name string) T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, _ := r.metrics[r.qualify(name)].(T)
	return m
}

// RegisterCounter registers a counter, or returns the existing one.
func (r *Registry) RegisterCounter(name, help string, labels Labels) *Counter {
	return register(r, name, func(full string) *Counter { return NewCounter(full, help, labels) })
}

// RegisterGauge registers a gauge, or returns the existing one.
func (r *Registry) RegisterGauge(name, help string, labels Labels) *Gauge {
	return register(r, name, func(full string) *Gauge { return NewGauge(full, help, labels) })
}

// RegisterHistogram registers a histogram, or returns the existing one.
func (r *Registry) RegisterHistogram(name, help string, labels Labels, bounds []float64) *Histogram {
	return register(r, name, func(full string) *Histogram { return NewHistogram(full, help, labels, bounds) })
}

// GetCounter returns the counter registered under name, or nil.
func (r *Registry) GetCounter(name string) *Counter { return lookup[*Counter](r, name) }

// GetGauge returns the gauge registered under name, or nil.
func (r *Registry) GetGauge(name string) *Gauge { return lookup[*Gauge](r, name) }

// WritePrometheus writes every metric in name order.
func (r *Registry) WritePrometheus(w io.Writer) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range slices.Sorted(maps.Keys(r.metrics)) {
		if err := r.metrics[name].write(w); err != nil {
			return err
		}
	}
	return nil
}

var defaultRegistry = NewRegistry("maliit", "keyboard")

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }
