package stream

import (
	"testing"
	"time"

	"go.viam.com/test"
)

func TestRecorderLatency(t *testing.T) {

	r := newRecorder(3)
	start := time.Unix(1000, 0)

	for i, d := range []time.Duration{10, 20, 30, 40} {
		s := start.Add(time.Duration(i) * time.Second)
		r.frame(1, &Timing{
			ProcessStart: s,
			DetectStart:  s,
			DetectEnd:    s.Add(5 * time.Millisecond),
			ProcessEnd:   s.Add(d * time.Millisecond),
		})
	}

	st := r.snapshot()
	test.That(t, st.Frames, test.ShouldEqual, 4)
	test.That(t, st.Detections, test.ShouldEqual, 4)
	// window holds the last three frames, 20, 30 and 40ms
	test.That(t, st.LatencyMean, test.ShouldAlmostEqual, 30.0)
	test.That(t, st.LatencyStdDev, test.ShouldAlmostEqual, 10.0)
	test.That(t, st.InferenceMean, test.ShouldAlmostEqual, 5.0)
	test.That(t, st.FPS, test.ShouldBeGreaterThan, 0)

	r.reset()
	test.That(t, r.snapshot(), test.ShouldResemble, Stats{})
}

func TestRecorderSingleFrame(t *testing.T) {

	r := newRecorder(5)
	s := time.Unix(0, 0)
	r.frame(0, &Timing{ProcessStart: s, ProcessEnd: s.Add(8 * time.Millisecond)})

	st := r.snapshot()
	test.That(t, st.LatencyMean, test.ShouldAlmostEqual, 8.0)
	test.That(t, st.LatencyStdDev, test.ShouldEqual, 0.0)
}

func TestStateString(t *testing.T) {
	test.That(t, Idle.String(), test.ShouldEqual, "idle")
	test.That(t, Running.String(), test.ShouldEqual, "running")
	test.That(t, Stopping.String(), test.ShouldEqual, "stopping")
}
