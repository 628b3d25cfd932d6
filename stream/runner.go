// Package stream runs the inference loop: it reads frames from the selected
// source, detects objects with the loaded model, raises alerts and feeds the
// original and annotated frames to the control panel panes.
package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/rangerlab/wildwatch"
	"github.com/rangerlab/wildwatch/alert"
	"github.com/rangerlab/wildwatch/detector"
	"github.com/rangerlab/wildwatch/postprocess/result"
	"github.com/rangerlab/wildwatch/render"
	"github.com/rangerlab/wildwatch/source"
)

// State of the inference loop
type State int32

const (
	Idle State = iota
	Running
	Stopping
)

// String returns the state name shown on the control panel
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// ErrRunning is returned by Start while a loop is still running or stopping
var ErrRunning = errors.New("inference loop already running")

// Pane receives the JPEG encoded frames of one live view, it is satisfied
// by *mjpeg.Stream
type Pane interface {
	UpdateJPEG(jpeg []byte)
}

// Detector runs inference with whatever model is currently loaded
type Detector interface {
	Detect(img gocv.Mat, p detector.Params) ([]result.DetectResult, wildwatch.Labels, error)
	Loaded() (string, wildwatch.Labels, bool)
}

// Dispatcher sends the alert for a frame
type Dispatcher interface {
	Dispatch(ctx context.Context, message string, frame *gocv.Mat) error
}

// Config holds the collaborators of a Runner
type Config struct {
	Settings   *wildwatch.Settings
	Opener     source.Opener
	Detector   Detector
	Trigger    alert.Trigger
	Dispatcher Dispatcher
	// Message is the alert text
	Message   string
	Original  Pane
	Annotated Pane
	Reporter  wildwatch.Reporter
}

// Runner owns the inference loop.  Only one loop runs at a time, the state
// moves Idle -> Running on Start, Running -> Stopping on Stop and back to
// Idle when the loop exits.
type Runner struct {
	cfg    Config
	logger *zap.SugaredLogger
	font   render.Font
	stats  *recorder

	// mu serialises Start and guards done
	mu    sync.Mutex
	state atomic.Int32
	done  chan struct{}
}

// NewRunner returns an idle Runner
func NewRunner(cfg Config, logger *zap.SugaredLogger) *Runner {

	done := make(chan struct{})
	close(done)

	return &Runner{
		cfg:    cfg,
		logger: logger,
		font:   render.LabelFont(),
		stats:  newRecorder(latencyWindow),
		done:   done,
	}
}

// State returns the current loop state
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Done returns a channel closed once the current loop has exited.  When no
// loop has been started the channel is already closed.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Stats returns the counters of the current or last run
func (r *Runner) Stats() Stats {
	return r.stats.snapshot()
}

// Start opens the selected source and starts the loop on its own goroutine.
// The loop keeps running until Stop is called, ctx is cancelled or a frame
// can not be read, so ctx must outlive the caller, eg: not be an HTTP
// request context.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.State() != Idle {
		return ErrRunning
	}

	if _, _, ok := r.cfg.Detector.Loaded(); !ok {
		return detector.ErrNoModel
	}

	kind := r.cfg.Settings.Snapshot().Source
	src, err := r.cfg.Opener.Open(kind)

	if err != nil {
		r.report(wildwatch.LevelError, "Could not open the video source", "")
		return errors.Wrapf(err, "error opening %s source", kind)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	r.done = done
	r.stats.reset()
	r.state.Store(int32(Running))
	r.logger.Infow("inference started", "source", kind)
	r.report(wildwatch.LevelInfo, "Inference started", Running.String())

	go r.run(loopCtx, cancel, src, done)

	return nil
}

// Stop asks the running loop to exit, it is observed before the next frame
// is read.  It reports false if no loop was running.
func (r *Runner) Stop() bool {
	if !r.state.CompareAndSwap(int32(Running), int32(Stopping)) {
		return false
	}

	r.logger.Infow("stop requested")
	r.report(wildwatch.LevelInfo, "Stopping inference", Stopping.String())

	return true
}

func (r *Runner) run(ctx context.Context, cancel context.CancelFunc, src source.Source,
	done chan struct{}) {

	frame := gocv.NewMat()
	annotated := gocv.NewMat()

	defer func() {
		if err := src.Close(); err != nil {
			r.logger.Warnw("error closing source", "error", err)
		}

		frame.Close()
		annotated.Close()
		cancel()

		r.state.Store(int32(Idle))
		r.logger.Infow("inference stopped", "frames", r.stats.snapshot().Frames)
		r.report(wildwatch.LevelInfo, "Inference stopped", Idle.String())
		close(done)
	}()

	for {
		if r.State() == Stopping || ctx.Err() != nil {
			return
		}

		if err := src.Read(&frame); err != nil {
			r.logger.Warnw("frame read failed", "error", err)
			r.report(wildwatch.LevelWarning, "Failed to read frame from source. Exiting...", "")
			return
		}

		if err := r.process(ctx, frame, &annotated); err != nil {
			r.logger.Errorw("frame processing failed", "error", err)
			r.report(wildwatch.LevelError, err.Error(), "")
			return
		}
	}
}

// process runs one frame through detection, alerting and the panes
func (r *Runner) process(ctx context.Context, frame gocv.Mat, annotated *gocv.Mat) error {

	timing := &Timing{ProcessStart: time.Now()}

	v := r.cfg.Settings.Snapshot()

	timing.DetectStart = time.Now()
	results, labels, err := r.cfg.Detector.Detect(frame, detector.Params{
		Confidence: v.Confidence,
		IoU:        v.IoU,
		Classes:    v.Classes,
	})
	timing.DetectEnd = time.Now()

	if err != nil {
		return errors.Wrap(err, "inference failed")
	}

	timing.RenderStart = time.Now()
	frame.CopyTo(annotated)
	render.DetectionBoxes(annotated, results, labels, r.font, 2)

	if r.cfg.Trigger.Match(result.ClassSet(results, labels)) {
		r.alert(ctx, annotated)
	}

	r.publish(r.cfg.Original, frame)
	r.publish(r.cfg.Annotated, *annotated)
	timing.ProcessEnd = time.Now()

	r.stats.frame(len(results), timing)

	return nil
}

func (r *Runner) alert(ctx context.Context, frame *gocv.Mat) {

	err := r.cfg.Dispatcher.Dispatch(ctx, r.cfg.Message, frame)

	if err != nil {
		r.stats.alertFailed()
		r.logger.Warnw("alert failed", "error", err)
		r.report(wildwatch.LevelError, "Failed to send alert: "+err.Error(), "")
		return
	}

	r.stats.alertSent()
	r.report(wildwatch.LevelWarning, r.cfg.Message, "")
}

// publish encodes the frame as JPEG for a pane
func (r *Runner) publish(p Pane, img gocv.Mat) {

	if p == nil {
		return
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)

	if err != nil {
		r.logger.Warnw("error encoding frame", "error", err)
		return
	}

	defer buf.Close()

	// the native buffer is freed on return so the pane gets a copy
	p.UpdateJPEG(append([]byte(nil), buf.GetBytes()...))
}

func (r *Runner) report(level wildwatch.Level, msg, state string) {

	if r.cfg.Reporter == nil {
		return
	}

	n := wildwatch.NewNotice(level, msg)
	n.State = state
	r.cfg.Reporter.Report(n)
}
