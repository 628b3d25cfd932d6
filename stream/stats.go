package stream

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// latencyWindow is the number of recent frames latency statistics cover
const latencyWindow = 100

// Timing holds the timers of one frame passing through the loop
type Timing struct {
	ProcessStart time.Time
	DetectStart  time.Time
	DetectEnd    time.Time
	RenderStart  time.Time
	ProcessEnd   time.Time
}

// Stats are the counters of a loop run shown on the control panel
type Stats struct {
	Frames      int64   `json:"frames"`
	Detections  int64   `json:"detections"`
	Alerts      int64   `json:"alerts"`
	AlertErrors int64   `json:"alert_errors"`
	FPS         float64 `json:"fps"`
	// LatencyMean and LatencyStdDev are in milliseconds over the last
	// frames processed
	LatencyMean   float64 `json:"latency_mean_ms"`
	LatencyStdDev float64 `json:"latency_stddev_ms"`
	// InferenceMean is the mean model time in milliseconds
	InferenceMean float64 `json:"inference_mean_ms"`
}

// recorder accumulates Stats, frame latencies are kept in ring buffers
type recorder struct {
	mu        sync.Mutex
	stats     Stats
	latency   []float64
	inference []float64
	next      int
	size      int

	// fps is recalculated about once a second
	fpsStart time.Time
	fpsCount int
}

func newRecorder(size int) *recorder {
	return &recorder{
		latency:   make([]float64, size),
		inference: make([]float64, size),
		size:      size,
	}
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats = Stats{}
	r.next = 0
	r.fpsStart = time.Time{}
	r.fpsCount = 0

	for i := range r.latency {
		r.latency[i] = 0
		r.inference[i] = 0
	}
}

func (r *recorder) frame(detections int, t *Timing) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Frames++
	r.stats.Detections += int64(detections)

	r.latency[r.next%r.size] = ms(t.ProcessEnd.Sub(t.ProcessStart))
	r.inference[r.next%r.size] = ms(t.DetectEnd.Sub(t.DetectStart))
	r.next++

	n := r.next
	if n > r.size {
		n = r.size
	}

	r.stats.LatencyMean, r.stats.LatencyStdDev = stat.MeanStdDev(r.latency[:n], nil)
	r.stats.InferenceMean = stat.Mean(r.inference[:n], nil)

	if n == 1 {
		// sample standard deviation of one value is NaN
		r.stats.LatencyStdDev = 0
	}

	if r.fpsStart.IsZero() {
		r.fpsStart = t.ProcessStart
	}

	r.fpsCount++

	if elapsed := t.ProcessEnd.Sub(r.fpsStart).Seconds(); elapsed >= 1.0 {
		r.stats.FPS = float64(r.fpsCount) / elapsed
		r.fpsCount = 0
		r.fpsStart = t.ProcessEnd
	}
}

func (r *recorder) alertSent() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Alerts++
}

func (r *recorder) alertFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.AlertErrors++
}

func (r *recorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
