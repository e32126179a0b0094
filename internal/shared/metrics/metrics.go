package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	extractionStartedTotal   atomic.Uint64
	extractionCompletedTotal atomic.Uint64
	extractionFailedTotal    atomic.Uint64
	textTruncatedTotal       atomic.Uint64

	uploadRejected = newLabeledCounter()

	extractionDuration = newHistogram([]float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000})
)

// IncExtractionStarted increments the started counter.
func IncExtractionStarted() {
	extractionStartedTotal.Add(1)
}

// IncExtractionCompleted increments the completed counter.
func IncExtractionCompleted() {
	extractionCompletedTotal.Add(1)
}

// IncExtractionFailed increments the failed counter.
func IncExtractionFailed() {
	extractionFailedTotal.Add(1)
}

// IncTextTruncated counts free-tier results cut to the text limit.
func IncTextTruncated() {
	textTruncatedTotal.Add(1)
}

// IncUploadRejected counts rejected uploads by reason
// (no_file, invalid_extension, too_large).
func IncUploadRejected(reason string) {
	uploadRejected.Inc(reason)
}

// ObserveExtractionDurationMs records an extraction duration in milliseconds.
func ObserveExtractionDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	extractionDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "extraction_started_total", "Total extractions started", extractionStartedTotal.Load())
	writeCounter(&buf, "extraction_completed_total", "Total extractions completed", extractionCompletedTotal.Load())
	writeCounter(&buf, "extraction_failed_total", "Total extractions failed", extractionFailedTotal.Load())
	writeCounter(&buf, "text_truncated_total", "Free-tier results truncated to the text limit", textTruncatedTotal.Load())
	writeLabeledCounter(&buf, "upload_rejected_total", "Uploads rejected before extraction", "reason", uploadRejected.Snapshot())
	writeHistogram(&buf, "extraction_duration_ms", "Extraction duration in milliseconds", extractionDuration.Snapshot())
	return buf.String()
}

type labeledCounter struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newLabeledCounter() *labeledCounter {
	return &labeledCounter{values: map[string]uint64{}}
}

func (l *labeledCounter) Inc(label string) {
	l.mu.Lock()
	l.values[label]++
	l.mu.Unlock()
}

func (l *labeledCounter) Snapshot() map[string]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]uint64, len(l.values))
	for k, v := range l.values {
		out[k] = v
	}
	return out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe adds value to the first bucket whose bound it fits under;
// writeHistogram accumulates the buckets on render.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeLabeledCounter(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
