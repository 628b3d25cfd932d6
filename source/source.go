// Package source provides the sequential frame streams the inference loop
// reads from, either the default webcam or the last uploaded video file.
package source

import (
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/rangerlab/wildwatch"
)

var (
	// ErrOpen is returned when the capture device or file can not be opened
	ErrOpen = errors.New("could not open video source")
	// ErrNoUpload is returned when the video source is selected before any
	// file has been uploaded
	ErrNoUpload = errors.New("no video file uploaded")
	// ErrEndOfStream is returned by Read when no further frame is available,
	// either the file ended, the device failed or the frame was corrupt
	ErrEndOfStream = errors.New("failed to read frame from source")
)

// Source is a blocking, sequential stream of BGR frames
type Source interface {
	// Read the next frame into dst
	Read(dst *gocv.Mat) error
	// Close releases the underlying capture.  Calling it more than once is
	// allowed, only the first call releases anything.
	Close() error
}

// Opener resolves a source kind into an open Source
type Opener interface {
	Open(kind wildwatch.SourceKind) (Source, error)
}

// Capture is a Source backed by an OpenCV VideoCapture
type Capture struct {
	vc        *gocv.VideoCapture
	name      string
	closeOnce sync.Once
	closeErr  error
}

// Read the next frame into dst
func (c *Capture) Read(dst *gocv.Mat) error {

	if ok := c.vc.Read(dst); !ok {
		return ErrEndOfStream
	}

	if dst.Empty() {
		return ErrEndOfStream
	}

	return nil
}

// Close releases the capture device or file
func (c *Capture) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.vc.Close()
	})

	return c.closeErr
}

// String returns the device or file the capture reads from
func (c *Capture) String() string {
	return c.name
}

// CaptureOpener opens webcam and uploaded file sources through OpenCV
type CaptureOpener struct {
	// WebcamIndex is the camera device index, 0 for the default camera
	WebcamIndex int
	// Uploads is where the uploaded video file is kept
	Uploads *UploadStore
}

// NewCaptureOpener returns an Opener for the given capture configuration
func NewCaptureOpener(cfg wildwatch.CaptureConfig) *CaptureOpener {
	return &CaptureOpener{
		WebcamIndex: cfg.WebcamIndex,
		Uploads:     NewUploadStore(cfg.UploadPath),
	}
}

// Open the source of the given kind
func (o *CaptureOpener) Open(kind wildwatch.SourceKind) (Source, error) {

	switch kind {
	case wildwatch.SourceWebcam:
		vc, err := gocv.OpenVideoCapture(o.WebcamIndex)

		if err != nil {
			return nil, errors.Wrapf(ErrOpen, "webcam %d: %v", o.WebcamIndex, err)
		}

		return newCapture(vc, "webcam")

	case wildwatch.SourceVideo:
		if !o.Uploads.Exists() {
			return nil, ErrNoUpload
		}

		vc, err := gocv.VideoCaptureFile(o.Uploads.Path())

		if err != nil {
			return nil, errors.Wrapf(ErrOpen, "file %s: %v", o.Uploads.Path(), err)
		}

		return newCapture(vc, o.Uploads.Path())

	default:
		return nil, errors.Wrapf(ErrOpen, "unknown source kind %q", kind)
	}
}

func newCapture(vc *gocv.VideoCapture, name string) (*Capture, error) {

	if !vc.IsOpened() {
		vc.Close()
		return nil, errors.Wrap(ErrOpen, name)
	}

	return &Capture{vc: vc, name: name}, nil
}
