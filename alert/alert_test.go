package alert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"go.viam.com/test"
	"gocv.io/x/gocv"

	"github.com/rangerlab/wildwatch/render"
)

func classSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func TestTriggerMatch(t *testing.T) {

	trig := Trigger{Predator: "hunter", Protected: "animal"}

	test.That(t, trig.Match(classSet("hunter", "animal")), test.ShouldBeTrue)
	test.That(t, trig.Match(classSet("hunter", "animal", "vehicle")), test.ShouldBeTrue)
	test.That(t, trig.Match(classSet("hunter")), test.ShouldBeFalse)
	test.That(t, trig.Match(classSet("animal")), test.ShouldBeFalse)
	test.That(t, trig.Match(classSet()), test.ShouldBeFalse)
	test.That(t, trig.Match(nil), test.ShouldBeFalse)
}

type recordingNotifier struct {
	calls      []string
	photoSize  int64
	messageErr error
	photoErr   error
}

func (r *recordingNotifier) SendMessage(ctx context.Context, text string) error {
	r.calls = append(r.calls, "message:"+text)
	return r.messageErr
}

func (r *recordingNotifier) SendPhoto(ctx context.Context, path string) error {
	r.calls = append(r.calls, "photo:"+path)

	if st, err := os.Stat(path); err == nil {
		r.photoSize = st.Size()
	}

	return r.photoErr
}

func newFrame(t *testing.T) gocv.Mat {
	t.Helper()
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 80, 40, 0), 240, 320, gocv.MatTypeCV8UC3)
}

func TestDispatchSendsMessageThenPhoto(t *testing.T) {

	frame := newFrame(t)
	defer frame.Close()

	imagePath := filepath.Join(t.TempDir(), "detected_frame.jpg")
	notifier := &recordingNotifier{}

	d := NewDispatcher(notifier, imagePath, zaptest.NewLogger(t).Sugar())
	d.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local) }

	err := d.Dispatch(context.Background(), "alert!", &frame)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, notifier.calls, test.ShouldResemble, []string{
		"message:alert!",
		"photo:" + imagePath,
	})
	test.That(t, notifier.photoSize, test.ShouldBeGreaterThan, 0)

	// the banner is stamped onto the frame itself, the timestamp box is white
	rect := render.DefaultBanner().TimestampRect("09-03-2024 14:05:07")
	pix := frame.GetVecbAt(rect.Max.Y-1, rect.Min.X+1)
	test.That(t, []uint8(pix), test.ShouldResemble, []uint8{255, 255, 255})

	// away from the banner the frame is untouched
	pix = frame.GetVecbAt(200, 300)
	test.That(t, []uint8(pix), test.ShouldResemble, []uint8{40, 80, 40})

	saved := gocv.IMRead(imagePath, gocv.IMReadColor)
	defer saved.Close()
	test.That(t, saved.Cols(), test.ShouldEqual, 320)
	test.That(t, saved.Rows(), test.ShouldEqual, 240)
}

func TestDispatchOverwritesSnapshot(t *testing.T) {

	imagePath := filepath.Join(t.TempDir(), "detected_frame.jpg")
	d := NewDispatcher(&recordingNotifier{}, imagePath, zaptest.NewLogger(t).Sugar())

	small := gocv.NewMatWithSize(100, 120, gocv.MatTypeCV8UC3)
	defer small.Close()
	large := gocv.NewMatWithSize(200, 260, gocv.MatTypeCV8UC3)
	defer large.Close()

	test.That(t, d.Dispatch(context.Background(), "one", &small), test.ShouldBeNil)
	test.That(t, d.Dispatch(context.Background(), "two", &large), test.ShouldBeNil)

	saved := gocv.IMRead(imagePath, gocv.IMReadColor)
	defer saved.Close()
	test.That(t, saved.Cols(), test.ShouldEqual, 260)
}

func TestDispatchPhotoSentWhenMessageFails(t *testing.T) {

	frame := newFrame(t)
	defer frame.Close()

	imagePath := filepath.Join(t.TempDir(), "detected_frame.jpg")
	msgErr := errors.New("network down")
	notifier := &recordingNotifier{messageErr: msgErr}

	d := NewDispatcher(notifier, imagePath, zaptest.NewLogger(t).Sugar())

	err := d.Dispatch(context.Background(), "alert!", &frame)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, msgErr), test.ShouldBeTrue)
	test.That(t, len(notifier.calls), test.ShouldEqual, 2)
}

func TestDispatchImageWriteFailure(t *testing.T) {

	frame := newFrame(t)
	defer frame.Close()

	imagePath := filepath.Join(t.TempDir(), "missing", "detected_frame.jpg")
	notifier := &recordingNotifier{}

	d := NewDispatcher(notifier, imagePath, zaptest.NewLogger(t).Sugar())

	err := d.Dispatch(context.Background(), "alert!", &frame)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, notifier.calls, test.ShouldBeEmpty)
}
