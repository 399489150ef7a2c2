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

// Outcomes recorded per extraction request.
const (
	OutcomeSuccess    = "success"
	OutcomeUnreadable = "unreadable"
	OutcomeError      = "error"
)

var (
	extractions = &counterVec{values: map[[2]string]uint64{}}

	recordsExtractedTotal atomic.Uint64
	imagesExtractedTotal  atomic.Uint64

	extractionDuration = newHistogram([]float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000})
)

// ObserveExtraction records one finished extraction.
func ObserveExtraction(mode, outcome string, durationMs float64) {
	extractions.inc(mode, outcome)
	if durationMs < 0 {
		durationMs = 0
	}
	extractionDuration.Observe(durationMs)
}

// AddRecords counts recommendation records produced.
func AddRecords(n int) {
	if n > 0 {
		recordsExtractedTotal.Add(uint64(n))
	}
}

// AddImages counts images produced.
func AddImages(n int) {
	if n > 0 {
		imagesExtractedTotal.Add(uint64(n))
	}
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
	writeCounterVec(&buf, "extractions_total", "Extractions by mode and outcome", extractions.snapshot())
	writeCounter(&buf, "recommendations_extracted_total", "Recommendation records extracted", recordsExtractedTotal.Load())
	writeCounter(&buf, "images_extracted_total", "Images extracted", imagesExtractedTotal.Load())
	writeHistogram(&buf, "extraction_duration_ms", "Extraction duration in milliseconds", extractionDuration.Snapshot())
	return buf.String()
}

type counterVec struct {
	mu     sync.Mutex
	values map[[2]string]uint64
}

func (v *counterVec) inc(mode, outcome string) {
	v.mu.Lock()
	v.values[[2]string{mode, outcome}]++
	v.mu.Unlock()
}

type labeledValue struct {
	mode, outcome string
	value         uint64
}

func (v *counterVec) snapshot() []labeledValue {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]labeledValue, 0, len(v.values))
	for k, n := range v.values {
		out = append(out, labeledValue{mode: k[0], outcome: k[1], value: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].mode != out[j].mode {
			return out[i].mode < out[j].mode
		}
		return out[i].outcome < out[j].outcome
	})
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

// Observe counts value in the first bucket whose bound holds it.
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

func writeCounterVec(buf *bytes.Buffer, name, help string, values []labeledValue) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	for _, v := range values {
		fmt.Fprintf(buf, "%s{mode=%q,outcome=%q} %d\n", name, v.mode, v.outcome, v.value)
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
