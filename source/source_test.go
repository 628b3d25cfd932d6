package source

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/rangerlab/wildwatch"
)

func TestOpenVideoWithoutUpload(t *testing.T) {

	opener := NewCaptureOpener(wildwatch.CaptureConfig{
		UploadPath: filepath.Join(t.TempDir(), "wildlife_video.mp4"),
	})

	_, err := opener.Open(wildwatch.SourceVideo)
	test.That(t, errors.Is(err, ErrNoUpload), test.ShouldBeTrue)
}

func TestOpenUnknownKind(t *testing.T) {

	opener := NewCaptureOpener(wildwatch.CaptureConfig{UploadPath: "unused.mp4"})

	_, err := opener.Open(wildwatch.SourceKind("rtsp"))
	test.That(t, errors.Is(err, ErrOpen), test.ShouldBeTrue)
}
