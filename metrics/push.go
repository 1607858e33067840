package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
)

// DefaultTimeout is the default timeout for remote write requests.
const DefaultTimeout = 30 * time.Second

// Pusher sends a snapshot of a Prometheus registry to a
// VictoriaMetrics/Prometheus remote write endpoint. One-shot orchestrator
// runs use this to publish their final counters before exiting.
type Pusher struct {
	url        string
	httpClient *http.Client
	job        string
	instance   string
}

// PusherOption configures a Pusher.
type PusherOption func(*Pusher)

// WithTimeout overrides the HTTP client timeout.
func WithTimeout(timeout time.Duration) PusherOption {
	return func(p *Pusher) {
		p.httpClient.Timeout = timeout
	}
}

// WithInstance sets the instance label attached to all pushed series,
// e.g. the hostname or the messenger run ID.
func WithInstance(instance string) PusherOption {
	return func(p *Pusher) {
		p.instance = instance
	}
}

// NewPusher creates a Pusher for the given remote write base URL. The
// job label is attached to every pushed series.
func NewPusher(url, job string, opts ...PusherOption) *Pusher {
	p := &Pusher{
		url:        url + "/api/v1/write",
		httpClient: &http.Client{Timeout: DefaultTimeout},
		job:        job,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Push gathers the registry and sends all series in one write request.
func (p *Pusher) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	timestamp := time.Now().UnixMilli()
	var timeseries []prompb.TimeSeries
	for _, family := range families {
		timeseries = append(timeseries, p.familyToTimeSeries(family, timestamp)...)
	}
	if len(timeseries) == 0 {
		return nil
	}

	req := &prompb.WriteRequest{
		Timeseries: timeseries,
	}

	data, err := proto.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling write request: %w", err)
	}

	compressed := snappy.Encode(nil, data)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// familyToTimeSeries converts one metric family to remote write series.
// Only counters and gauges are pushed; that covers everything the
// Recorder produces.
func (p *Pusher) familyToTimeSeries(family *dto.MetricFamily, timestamp int64) []prompb.TimeSeries {
	var out []prompb.TimeSeries
	for _, metric := range family.GetMetric() {
		var value float64
		switch {
		case metric.Counter != nil:
			value = metric.Counter.GetValue()
		case metric.Gauge != nil:
			value = metric.Gauge.GetValue()
		default:
			continue
		}

		labels := make([]prompb.Label, 0, len(metric.GetLabel())+3)
		labels = append(labels, prompb.Label{
			Name:  "__name__",
			Value: family.GetName(),
		})
		labels = append(labels, prompb.Label{Name: "job", Value: p.job})
		if p.instance != "" {
			labels = append(labels, prompb.Label{Name: "instance", Value: p.instance})
		}
		for _, label := range metric.GetLabel() {
			labels = append(labels, prompb.Label{
				Name:  label.GetName(),
				Value: label.GetValue(),
			})
		}

		out = append(out, prompb.TimeSeries{
			Labels: labels,
			Samples: []prompb.Sample{{
				Value:     value,
				Timestamp: timestamp,
			}},
		})
	}
	return out
}
