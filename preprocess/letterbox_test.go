package preprocess

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
	"gocv.io/x/gocv"
)

func TestNewLetterbox(t *testing.T) {

	tests := []struct {
		srcWidth      int
		srcHeight     int
		expectedXPad  int
		expectedYPad  int
		expectedScale float32
	}{
		{1280, 720, 0, 140, 0.50},
		{800, 1000, 64, 0, 0.64},
		{800, 800, 0, 0, 0.8},
	}

	for _, tc := range tests {
		box := NewLetterbox(tc.srcWidth, tc.srcHeight, 640, 640)

		test.That(t, box.XPad, test.ShouldEqual, tc.expectedXPad)
		test.That(t, box.YPad, test.ShouldEqual, tc.expectedYPad)
		test.That(t, box.Scale, test.ShouldEqual, tc.expectedScale)
	}
}

func TestLetterboxToSource(t *testing.T) {

	box := NewLetterbox(1280, 720, 640, 640)

	x, y := box.ToSource(320, 320)
	test.That(t, x, test.ShouldAlmostEqual, 640.0, 0.01)
	test.That(t, y, test.ShouldAlmostEqual, 360.0, 0.01)

	x, y = box.ToSource(0, 140)
	test.That(t, x, test.ShouldAlmostEqual, 0.0, 0.01)
	test.That(t, y, test.ShouldAlmostEqual, 0.0, 0.01)
}

func TestLetterBoxResize(t *testing.T) {

	img := gocv.NewMatWithSize(720, 1280, gocv.MatTypeCV8UC3)
	defer img.Close()

	dest := gocv.NewMat()
	defer dest.Close()

	resizer := NewResizer(640, 640)
	defer resizer.Close()

	box := resizer.LetterBoxResize(img, &dest)

	test.That(t, box.YPad, test.ShouldEqual, 140)
	test.That(t, dest.Cols(), test.ShouldEqual, 640)
	test.That(t, dest.Rows(), test.ShouldEqual, 640)

	// a different frame size recalculates the scaling
	small := gocv.NewMatWithSize(800, 800, gocv.MatTypeCV8UC3)
	defer small.Close()

	box = resizer.LetterBoxResize(small, &dest)
	test.That(t, box.YPad, test.ShouldEqual, 0)
	test.That(t, box.Scale, test.ShouldEqual, float32(0.8))
}

func TestLetterBoxImage(t *testing.T) {

	src := image.NewRGBA(image.Rect(0, 0, 200, 100))

	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			src.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	dst, box := LetterBoxImage(src, 64, 64)

	test.That(t, dst.Bounds().Dx(), test.ShouldEqual, 64)
	test.That(t, box.YPad, test.ShouldEqual, 16)
	test.That(t, dst.RGBAAt(32, 2), test.ShouldResemble, PadColor)
	test.That(t, dst.RGBAAt(32, 32).R, test.ShouldEqual, uint8(255))

	tensor := make([]float32, 3*64*64)
	CHWFloat32(dst, tensor)

	i := 32*64 + 32
	test.That(t, tensor[i], test.ShouldEqual, float32(1))
	test.That(t, tensor[64*64+i], test.ShouldEqual, float32(0))
	test.That(t, tensor[2*64*64+i], test.ShouldEqual, float32(0))
}
