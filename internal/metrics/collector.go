// Package metrics is the operational telemetry sink: counters, gauges and
// histograms rendered in Prometheus text exposition format.
package metrics

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the process-wide registry the handlers report into.
var Collector = NewRegistry()

type kind string

const (
	kindCounter   kind = "counter"
	kindGauge     kind = "gauge"
	kindHistogram kind = "histogram"
)

// Registry groups series into families keyed by metric name. A family has a
// single type and help text; its series differ only by label set.
type Registry struct {
	mu       sync.Mutex
	families map[string]*family
	started  time.Time
}

type family struct {
	help   string
	kind   kind
	series map[string]series // label set -> series
}

type series interface {
	render(sb *strings.Builder, name, labels string)
}

func NewRegistry() *Registry {
	return &Registry{families: make(map[string]*family), started: time.Now()}
}

// Uptime returns how long the registry has existed.
func (r *Registry) Uptime() time.Duration {
	return time.Since(r.started)
}

// Counter returns the counter series for name and labels, creating it on first use.
// labels is a rendered label set such as `intent="todo"`, or "".
func (r *Registry) Counter(name, help, labels string) *Counter {
	return r.lookup(name, help, kindCounter, labels, func() series { return &Counter{} }).(*Counter)
}

// Gauge returns the gauge series for name and labels, creating it on first use.
func (r *Registry) Gauge(name, help, labels string) *Gauge {
	return r.lookup(name, help, kindGauge, labels, func() series { return &Gauge{} }).(*Gauge)
}

// Histogram returns the histogram series for name and labels. bounds only
// applies when the series is created; +Inf is implicit.
func (r *Registry) Histogram(name, help, labels string, bounds []float64) *Histogram {
	return r.lookup(name, help, kindHistogram, labels, func() series { return newHistogram(bounds) }).(*Histogram)
}

func (r *Registry) lookup(name, help string, k kind, labels string, create func() series) series {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.families[name]
	if !ok {
		f = &family{help: help, kind: k, series: make(map[string]series)}
		r.families[name] = f
	} else if f.kind != k {
		panic(fmt.Sprintf("metrics: %s is a %s, not a %s", name, f.kind, k))
	}
	s, ok := f.series[labels]
	if !ok {
		s = create()
		f.series[labels] = s
	}
	return s
}

// WriteText renders every family in name order, each as one contiguous
// block: HELP and TYPE once, then its series sorted by label set.
func (r *Registry) WriteText(w io.Writer) error {
	var sb strings.Builder
	writeHeader(&sb, "assistbot_uptime_seconds", "Time since start in seconds", kindGauge)
	writeSample(&sb, "assistbot_uptime_seconds", "", strconv.FormatInt(int64(r.Uptime().Seconds()), 10))

	r.mu.Lock()
	names := make([]string, 0, len(r.families))
	for name := range r.families {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := r.families[name]
		writeHeader(&sb, name, f.help, f.kind)
		labelSets := make([]string, 0, len(f.series))
		for ls := range f.series {
			labelSets = append(labelSets, ls)
		}
		sort.Strings(labelSets)
		for _, ls := range labelSets {
			f.series[ls].render(&sb, name, ls)
		}
	}
	r.mu.Unlock()

	_, err := io.WriteString(w, sb.String())
	return err
}

// Handler serves WriteText over HTTP.
func (r *Registry) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_ = r.WriteText(w)
	}
}

func writeHeader(sb *strings.Builder, name, help string, k kind) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, k)
}

func writeSample(sb *strings.Builder, name, labels, value string) {
	if labels == "" {
		fmt.Fprintf(sb, "%s %s\n", name, value)
		return
	}
	fmt.Fprintf(sb, "%s{%s} %s\n", name, labels, value)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Counter only goes up.
type Counter struct{ n atomic.Int64 }

func (c *Counter) Inc() { c.n.Add(1) }
func (c *Counter) Add(n int64) { c.n.Add(n) }
func (c *Counter) Value() int64 { return c.n.Load() }
func (c *Counter) render(sb *strings.Builder, name, labels string) {
	writeSample(sb, name, labels, strconv.FormatInt(c.Value(), 10))
}

type Gauge struct{ n atomic.Int64 }

func (g *Gauge) Set(v int64) { g.n.Store(v) }
func (g *Gauge) Inc() { g.n.Add(1) }
func (g *Gauge) Dec() { g.n.Add(-1) }
func (g *Gauge) Value() int64 { return g.n.Load() }
func (g *Gauge) render(sb *strings.Builder, name, labels string) {
	writeSample(sb, name, labels, strconv.FormatInt(g.Value(), 10))
}

// Histogram keeps cumulative counts per upper bound.
type Histogram struct {
	mu     sync.Mutex
	bounds []float64
	counts []int64
	count  int64
	sum    float64
}

func newHistogram(bounds []float64) *Histogram {
	finite := make([]float64, 0, len(bounds))
	for _, b := range bounds {
		if !math.IsInf(b, 1) {
			finite = append(finite, b)
		}
	}
	sort.Float64s(finite)
	return &Histogram{bounds: finite, counts: make([]int64, len(finite))}
}

// Observe records one value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i, b := range h.bounds {
		if v <= b {
			h.counts[i]++
		}
	}
}

// Count returns the number of observations.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *Histogram) render(sb *strings.Builder, name, labels string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	bucketLabels := ""
	if labels != "" {
		bucketLabels = labels + ","
	}
	for i, b := range h.bounds {
		fmt.Fprintf(sb, "%s_bucket{%sle=%q} %d\n", name, bucketLabels, formatFloat(b), h.counts[i])
	}
	fmt.Fprintf(sb, "%s_bucket{%sle=\"+Inf\"} %d\n", name, bucketLabels, h.count)
	writeSample(sb, name+"_sum", labels, formatFloat(h.sum))
	writeSample(sb, name+"_count", labels, strconv.FormatInt(h.count, 10))
}

// --- Series reported by the assistant ---

var (
	InFlight = Collector.Gauge("assistbot_in_flight_messages", "Messages currently being handled", "")

	HandleLatency = Collector.Histogram("assistbot_handle_latency_seconds", "Time to produce a reply in seconds", "",
		[]float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30})
)

// MessagesTotal returns the per-intent message counter.
func MessagesTotal(intent string) *Counter {
	return Collector.Counter("assistbot_messages_total", "Total messages handled", fmt.Sprintf(`intent=%q`, intent))
}

// CollaboratorErrors returns the failure counter for one external collaborator
// (storage, vision, model, download).
func CollaboratorErrors(collaborator string) *Counter {
	return Collector.Counter("assistbot_collaborator_errors_total", "Failed collaborator calls", fmt.Sprintf(`collaborator=%q`, collaborator))
}
