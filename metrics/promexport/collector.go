// Package promexport exposes a divecore.Metrics instance as a
// Prometheus collector, so a long-running process downloading from
// several dive computers can scrape one /metrics endpoint instead of
// polling each Session's Snapshot individually.
package promexport

import (
	"github.com/divebridge/divecore"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector adapts a *divecore.Metrics to prometheus.Collector.
type Collector struct {
	metrics     *divecore.Metrics
	constLabels prometheus.Labels

	transferOps     *prometheus.Desc
	transferRetries *prometheus.Desc
	transferErrors  *prometheus.Desc
	bytesRead       *prometheus.Desc
	divesExtracted  *prometheus.Desc
	diveErrors      *prometheus.Desc
	avgLatencyNs    *prometheus.Desc
	p99LatencyNs    *prometheus.Desc
}

// NewCollector builds a Collector for metrics. constLabels are attached
// to every exported series (e.g. a device family or session id).
func NewCollector(metrics *divecore.Metrics, constLabels prometheus.Labels) *Collector {
	return &Collector{
		metrics:     metrics,
		constLabels: constLabels,
		transferOps: prometheus.NewDesc(
			"divecore_transfer_ops_total", "Total framed request/response exchanges attempted.", nil, constLabels),
		transferRetries: prometheus.NewDesc(
			"divecore_transfer_retries_total", "Total retry attempts beyond the first, across all exchanges.", nil, constLabels),
		transferErrors: prometheus.NewDesc(
			"divecore_transfer_errors_total", "Exchanges that failed after exhausting retries.", nil, constLabels),
		bytesRead: prometheus.NewDesc(
			"divecore_bytes_read_total", "Payload bytes returned by successful exchanges.", nil, constLabels),
		divesExtracted: prometheus.NewDesc(
			"divecore_dives_extracted_total", "Dive records successfully decoded from a ringbuffer traversal.", nil, constLabels),
		diveErrors: prometheus.NewDesc(
			"divecore_dive_errors_total", "Dive records that failed to decode during a traversal.", nil, constLabels),
		avgLatencyNs: prometheus.NewDesc(
			"divecore_transfer_latency_avg_ns", "Average transfer round-trip latency in nanoseconds.", nil, constLabels),
		p99LatencyNs: prometheus.NewDesc(
			"divecore_transfer_latency_p99_ns", "99th percentile transfer round-trip latency in nanoseconds.", nil, constLabels),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.transferOps
	ch <- c.transferRetries
	ch <- c.transferErrors
	ch <- c.bytesRead
	ch <- c.divesExtracted
	ch <- c.diveErrors
	ch <- c.avgLatencyNs
	ch <- c.p99LatencyNs
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.metrics.Snapshot()

	ch <- prometheus.MustNewConstMetric(c.transferOps, prometheus.CounterValue, float64(snap.TransferOps))
	ch <- prometheus.MustNewConstMetric(c.transferRetries, prometheus.CounterValue, float64(snap.TransferRetries))
	ch <- prometheus.MustNewConstMetric(c.transferErrors, prometheus.CounterValue, float64(snap.TransferErrors))
	ch <- prometheus.MustNewConstMetric(c.bytesRead, prometheus.CounterValue, float64(snap.BytesRead))
	ch <- prometheus.MustNewConstMetric(c.divesExtracted, prometheus.CounterValue, float64(snap.DivesExtracted))
	ch <- prometheus.MustNewConstMetric(c.diveErrors, prometheus.CounterValue, float64(snap.DiveErrors))
	ch <- prometheus.MustNewConstMetric(c.avgLatencyNs, prometheus.GaugeValue, float64(snap.AvgLatencyNs))
	ch <- prometheus.MustNewConstMetric(c.p99LatencyNs, prometheus.GaugeValue, float64(snap.LatencyP99Ns))
}

var _ prometheus.Collector = (*Collector)(nil)
