package divecore

import (
	"sync/atomic"
	"time"

	"github.com/divebridge/divecore/internal/interfaces"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds.
// Buckets cover from 1ms to 10s with logarithmic spacing, matching the
// expected range of a serial request/response round trip rather than
// block-device I/O.
var LatencyBuckets = []uint64{
	1_000_000,      // 1ms
	5_000_000,      // 5ms
	10_000_000,     // 10ms
	50_000_000,     // 50ms
	100_000_000,    // 100ms
	500_000_000,    // 500ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks transfer and dive-extraction statistics for a
// download session. A single Metrics instance may be shared across
// several Sessions running on independent goroutines.
type Metrics struct {
	// Transfer (request/response round trip) counters.
	TransferOps     atomic.Uint64 // Total framed exchanges attempted
	TransferRetries atomic.Uint64 // Additional attempts beyond the first
	TransferErrors  atomic.Uint64 // Exchanges that failed after all retries
	BytesRead       atomic.Uint64 // Payload bytes returned by successful exchanges

	// Dive extraction counters.
	DivesExtracted atomic.Uint64
	DiveErrors     atomic.Uint64

	// Performance tracking.
	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	// LatencyBuckets holds cumulative counts: bucket[i] counts
	// exchanges with latency <= LatencyBuckets[i].
	LatencyHistogram [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordTransfer records one framed exchange: its payload size,
// latency, the number of retries beyond the first attempt, and whether
// it ultimately succeeded.
func (m *Metrics) RecordTransfer(bytes uint64, latencyNs uint64, retries int, success bool) {
	m.TransferOps.Add(1)
	if retries > 0 {
		m.TransferRetries.Add(uint64(retries))
	}
	if success {
		m.BytesRead.Add(bytes)
	} else {
		m.TransferErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordDive records the extraction of one dive record.
func (m *Metrics) RecordDive(bytes uint64, success bool) {
	if success {
		m.DivesExtracted.Add(1)
	} else {
		m.DiveErrors.Add(1)
	}
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyHistogram[i].Add(1)
		}
	}
}

// Stop marks the session as finished, fixing UptimeNs in subsequent snapshots.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time, non-atomic copy of Metrics
// suitable for logging or exposing to a caller.
type MetricsSnapshot struct {
	TransferOps     uint64
	TransferRetries uint64
	TransferErrors  uint64
	BytesRead       uint64

	DivesExtracted uint64
	DiveErrors     uint64

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns uint64
	LatencyP99Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	TransferIOPS float64
	Bandwidth    float64
	ErrorRate    float64
}

// Snapshot returns a point-in-time snapshot of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		TransferOps:     m.TransferOps.Load(),
		TransferRetries: m.TransferRetries.Load(),
		TransferErrors:  m.TransferErrors.Load(),
		BytesRead:       m.BytesRead.Load(),
		DivesExtracted:  m.DivesExtracted.Load(),
		DiveErrors:      m.DiveErrors.Load(),
	}

	opCount := m.OpCount.Load()
	totalLatencyNs := m.TotalLatencyNs.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.TransferIOPS = float64(snap.TransferOps) / uptimeSeconds
		snap.Bandwidth = float64(snap.BytesRead) / uptimeSeconds
	}

	if snap.TransferOps > 0 {
		snap.ErrorRate = float64(snap.TransferErrors) / float64(snap.TransferOps) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyHistogram[i].Load()
	}
	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile
// (0.0-1.0) using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}
	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyHistogram[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyHistogram[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}
	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset zeroes all counters, useful between test runs.
func (m *Metrics) Reset() {
	m.TransferOps.Store(0)
	m.TransferRetries.Store(0)
	m.TransferErrors.Store(0)
	m.BytesRead.Store(0)
	m.DivesExtracted.Store(0)
	m.DiveErrors.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyHistogram[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// MetricsObserver implements Observer (internal/interfaces.Observer) by
// recording every event into a Metrics instance. Pass it as
// Options.Observer to have a Session's transfers and dives counted.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an Observer that records into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveTransfer(bytes uint64, latencyNs uint64, retries int, success bool) {
	o.metrics.RecordTransfer(bytes, latencyNs, retries, success)
}

func (o *MetricsObserver) ObserveDive(bytes uint64, success bool) {
	o.metrics.RecordDive(bytes, success)
}

func (o *MetricsObserver) ObserveProgress(current, total uint64) {}

// NoOpObserver discards every event. It is the default when
// Options.Observer is nil only in the sense that a nil Observer is
// simply never called; NoOpObserver exists for callers that want to
// pass a concrete value instead.
type NoOpObserver struct{}

func (NoOpObserver) ObserveTransfer(uint64, uint64, int, bool) {}
func (NoOpObserver) ObserveDive(uint64, bool)                  {}
func (NoOpObserver) ObserveProgress(uint64, uint64)            {}

var _ interfaces.Observer = (*MetricsObserver)(nil)
var _ interfaces.Observer = (*NoOpObserver)(nil)
