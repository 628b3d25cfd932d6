// Package alert raises the poaching alert: it decides from the classes
// detected in a frame if an alert is due, stamps the frame and sends it with
// a text message to the configured chat.
package alert

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/rangerlab/wildwatch/render"
)

// Trigger is the alert condition, a predator and a protected species seen in
// the same frame
type Trigger struct {
	Predator  string
	Protected string
}

// Match reports if the set of class names detected in one frame contains
// both the predator and the protected label
func (t Trigger) Match(classes map[string]struct{}) bool {
	_, predator := classes[t.Predator]
	_, protected := classes[t.Protected]

	return predator && protected
}

// Notifier delivers alerts to a chat
type Notifier interface {
	// SendMessage posts a text message
	SendMessage(ctx context.Context, text string) error
	// SendPhoto posts the image file at path
	SendPhoto(ctx context.Context, path string) error
}

// Dispatcher stamps and saves alert snapshots and hands them to a Notifier.
// Every call sends, there is no cooldown between alerts and failed sends
// are not retried.
type Dispatcher struct {
	notifier  Notifier
	imagePath string
	now       func() time.Time
	logger    *zap.SugaredLogger
}

// NewDispatcher returns a Dispatcher writing snapshots to imagePath
func NewDispatcher(notifier Notifier, imagePath string, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		notifier:  notifier,
		imagePath: imagePath,
		now:       time.Now,
		logger:    logger,
	}
}

// ImagePath is the fixed file the latest alert snapshot is written to
func (d *Dispatcher) ImagePath() string {
	return d.imagePath
}

// Dispatch stamps frame with the alert banner, writes it over the previous
// snapshot, then sends the message followed by the photo.  The banner is
// drawn onto frame itself so it also shows wherever the frame is displayed.
// The photo is sent even when the message fails, errors of both are
// returned.
func (d *Dispatcher) Dispatch(ctx context.Context, message string, frame *gocv.Mat) error {

	render.AlertBanner(frame, d.now())

	if ok := gocv.IMWrite(d.imagePath, *frame); !ok {
		return errors.Errorf("error writing alert image %s", d.imagePath)
	}

	err := multierr.Combine(
		errors.Wrap(d.notifier.SendMessage(ctx, message), "error sending alert message"),
		errors.Wrap(d.notifier.SendPhoto(ctx, d.imagePath), "error sending alert photo"),
	)

	if err != nil {
		return err
	}

	d.logger.Infow("alert sent", "image", d.imagePath)

	return nil
}
