package preprocess

import (
	"image"

	"gocv.io/x/gocv"
)

// Resizer letterboxes gocv frames to the model input size.  The scaling is
// recalculated whenever the source frame dimensions change.
type Resizer struct {
	destWidth  int
	destHeight int
	box        Letterbox
	// tempMat holds the scaled frame before padding
	tempMat gocv.Mat
}

// NewResizer returns a resizer scaling frames to destWidth x destHeight
func NewResizer(destWidth, destHeight int) *Resizer {
	return &Resizer{
		destWidth:  destWidth,
		destHeight: destHeight,
		tempMat:    gocv.NewMat(),
	}
}

// Close frees memory allocated during resize process
func (r *Resizer) Close() error {
	return r.tempMat.Close()
}

// LetterBoxResize scales src into dest keeping its aspect ratio, padding the
// remainder with PadColor, and returns the scaling applied
func (r *Resizer) LetterBoxResize(src gocv.Mat, dest *gocv.Mat) Letterbox {

	if r.box.SrcWidth != src.Cols() || r.box.SrcHeight != src.Rows() {
		r.box = NewLetterbox(src.Cols(), src.Rows(), r.destWidth, r.destHeight)
	}

	gocv.Resize(src, &r.tempMat, image.Pt(r.box.ResizeWidth, r.box.ResizeHeight),
		0, 0, gocv.InterpolationArea)

	top, bottom, left, right := r.box.padding()

	gocv.CopyMakeBorder(r.tempMat, dest, top, bottom, left, right,
		gocv.BorderConstant, PadColor)

	return r.box
}
