package preprocess

import (
	"image/color"
)

// PadColor is the grey used for letterbox padding, matching the value the
// YOLO models were trained with
var PadColor = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// Letterbox describes how a source image was scaled and padded to fit the
// model input tensor whilst keeping its aspect ratio
type Letterbox struct {
	// SrcWidth and SrcHeight are the source image dimensions
	SrcWidth  int
	SrcHeight int
	// DestWidth and DestHeight are the input tensor dimensions
	DestWidth  int
	DestHeight int
	// ResizeWidth and ResizeHeight are the scaled image dimensions before
	// padding
	ResizeWidth  int
	ResizeHeight int
	// XPad and YPad are the left and top padding
	XPad int
	YPad int
	// Scale is the factor applied to the source image
	Scale float32
}

// NewLetterbox calculates the scaling of a srcWidth x srcHeight image into a
// destWidth x destHeight tensor
func NewLetterbox(srcWidth, srcHeight, destWidth, destHeight int) Letterbox {

	l := Letterbox{
		SrcWidth:     srcWidth,
		SrcHeight:    srcHeight,
		DestWidth:    destWidth,
		DestHeight:   destHeight,
		ResizeWidth:  destWidth,
		ResizeHeight: destHeight,
	}

	scaleW := float32(destWidth) / float32(srcWidth)
	scaleH := float32(destHeight) / float32(srcHeight)
	l.Scale = scaleH

	if scaleW < scaleH {
		l.Scale = scaleW
		l.ResizeHeight = int(float32(srcHeight) * l.Scale)
	} else {
		l.ResizeWidth = int(float32(srcWidth) * l.Scale)
	}

	l.YPad = (destHeight - l.ResizeHeight) / 2
	l.XPad = (destWidth - l.ResizeWidth) / 2

	return l
}

// ToSource maps a point in tensor coordinates back onto the source image
func (l Letterbox) ToSource(x, y float32) (float32, float32) {
	return (x - float32(l.XPad)) / l.Scale, (y - float32(l.YPad)) / l.Scale
}

// padding returns the top, bottom, left and right border sizes
func (l Letterbox) padding() (top, bottom, left, right int) {
	return l.YPad, l.DestHeight - l.ResizeHeight - l.YPad,
		l.XPad, l.DestWidth - l.ResizeWidth - l.XPad
}
