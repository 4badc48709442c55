package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
)

// DefaultTimeout is the default timeout for remote write requests.
const DefaultTimeout = 30 * time.Second

// PushConfig configures a PushRegistry.
type PushConfig struct {
	// URL is the base URL of the remote write endpoint, e.g. "http://localhost:8428".
	URL string
	// Prefix is prepended to every metric name, followed by an underscore.
	Prefix string
	// Job is the job label for all series.
	Job string
	// Instance is the instance label for all series.
	Instance string
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
}

// PushRegistry implements Registry for short-lived commands. Samples are kept
// in memory, last value wins per series, and sent in a single remote write
// request by Flush.
type PushRegistry struct {
	url        string
	httpClient *http.Client
	prefix     string
	job        string
	instance   string

	mu     sync.Mutex
	series map[string]*pushSeries
}

type pushSeries struct {
	name   string
	labels map[string]string
	value  float64
}

// NewPushRegistry creates a PushRegistry that writes to cfg.URL.
func NewPushRegistry(cfg PushConfig) *PushRegistry {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &PushRegistry{
		url:        strings.TrimRight(cfg.URL, "/") + "/api/v1/write",
		httpClient: &http.Client{Timeout: timeout},
		prefix:     cfg.Prefix,
		job:        cfg.Job,
		instance:   cfg.Instance,
		series:     make(map[string]*pushSeries),
	}
}

// NewGaugeVec creates a push-based GaugeVec.
func (r *PushRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error) {
	return &pushGaugeVec{registry: r, name: opts.Name}, nil
}

// NewCounterVec creates a push-based CounterVec.
func (r *PushRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error) {
	return &pushCounterVec{registry: r, name: opts.Name}, nil
}

// Pending returns the number of buffered series.
func (r *PushRegistry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.series)
}

// Flush sends every buffered series and clears the buffer on success.
func (r *PushRegistry) Flush(ctx context.Context) error {
	r.mu.Lock()
	keys := slices.Sorted(maps.Keys(r.series))
	timeseries := make([]prompb.TimeSeries, 0, len(keys))
	now := time.Now().UnixMilli()
	for _, k := range keys {
		timeseries = append(timeseries, r.toTimeSeries(r.series[k], now))
	}
	r.mu.Unlock()

	if len(timeseries) == 0 {
		return nil
	}

	data, err := proto.Marshal(&prompb.WriteRequest{Timeseries: timeseries})
	if err != nil {
		return fmt.Errorf("marshaling write request: %w", err)
	}
	compressed := snappy.Encode(nil, data)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	r.mu.Lock()
	for _, k := range keys {
		delete(r.series, k)
	}
	r.mu.Unlock()
	return nil
}

func (r *PushRegistry) update(name string, labels prometheus.Labels, fn func(*pushSeries)) {
	key := seriesKey(name, labels)

	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.series[key]
	if !ok {
		s = &pushSeries{name: name, labels: maps.Clone(labels)}
		r.series[key] = s
	}
	fn(s)
}

func (r *PushRegistry) remove(name string, labels prometheus.Labels) bool {
	key := seriesKey(name, labels)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.series[key]; !ok {
		return false
	}
	delete(r.series, key)
	return true
}

func (r *PushRegistry) toTimeSeries(s *pushSeries, timestamp int64) prompb.TimeSeries {
	name := s.name
	if r.prefix != "" {
		name = r.prefix + "_" + name
	}

	labels := make([]prompb.Label, 0, len(s.labels)+3)
	labels = append(labels, prompb.Label{Name: "__name__", Value: name})
	if r.job != "" {
		labels = append(labels, prompb.Label{Name: "job", Value: r.job})
	}
	if r.instance != "" {
		labels = append(labels, prompb.Label{Name: "instance", Value: r.instance})
	}
	for _, k := range slices.Sorted(maps.Keys(s.labels)) {
		labels = append(labels, prompb.Label{Name: k, Value: s.labels[k]})
	}

	return prompb.TimeSeries{
		Labels:  labels,
		Samples: []prompb.Sample{{Value: s.value, Timestamp: timestamp}},
	}
}

// seriesKey identifies a series independent of label map order.
func seriesKey(name string, labels prometheus.Labels) string {
	var b strings.Builder
	b.WriteString(name)
	for _, k := range slices.Sorted(maps.Keys(labels)) {
		b.WriteString(",")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(labels[k])
	}
	return b.String()
}

type pushGaugeVec struct {
	registry *PushRegistry
	name     string
}

func (g *pushGaugeVec) With(labels prometheus.Labels) Gauge {
	return &pushGauge{registry: g.registry, name: g.name, labels: labels}
}

// Delete drops a buffered series that has not been flushed yet.
func (g *pushGaugeVec) Delete(labels prometheus.Labels) bool {
	return g.registry.remove(g.name, labels)
}

type pushGauge struct {
	registry *PushRegistry
	name     string
	labels   prometheus.Labels
}

func (g *pushGauge) Set(v float64) {
	g.registry.update(g.name, g.labels, func(s *pushSeries) { s.value = v })
}

type pushCounterVec struct {
	registry *PushRegistry
	name     string
}

func (c *pushCounterVec) With(labels prometheus.Labels) Counter {
	return &pushCounter{registry: c.registry, name: c.name, labels: labels}
}

type pushCounter struct {
	registry *PushRegistry
	name     string
	labels   prometheus.Labels
}

func (c *pushCounter) Inc() {
	c.Add(1)
}

func (c *pushCounter) Add(v float64) {
	if v < 0 {
		panic("counter cannot decrease in value")
	}
	c.registry.update(c.name, c.labels, func(s *pushSeries) { s.value += v })
}
