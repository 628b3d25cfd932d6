package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Alignment places a detection label along the top edge of its box
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// Font is the text style of the captions drawn on frames, the class labels
// above detection boxes and the alert banner on snapshots
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// PadX is the space left and right of the text inside its background
	PadX int
	// PadTop and PadBottom are the space above and below the text
	PadTop    int
	PadBottom int
	// Alignment only applies to box labels
	Alignment Alignment
}

// Size returns the rendered width and height of text
func (f Font) Size(text string) image.Point {
	return gocv.GetTextSize(text, f.Face, f.Scale, f.Thickness)
}

// Background returns the box behind text drawn with its baseline at origin
func (f Font) Background(text string, origin image.Point) image.Rectangle {
	size := f.Size(text)
	return image.Rect(origin.X-f.PadX, origin.Y-size.Y-f.PadTop,
		origin.X+size.X+f.PadX, origin.Y+f.PadBottom)
}

// Put draws text with its baseline starting at origin
func (f Font) Put(img *gocv.Mat, text string, origin image.Point) {
	gocv.PutTextWithParams(img, text, origin, f.Face, f.Scale, f.Color,
		f.Thickness, f.LineType, false)
}

// LabelFont is the small white font of class labels on the annotated pane
func LabelFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		PadX:      4,
		PadTop:    4,
		PadBottom: 6,
		Alignment: AlignLeft,
	}
}

// AlertFont is the red caption of alert snapshots
func AlertFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     1,
		Color:     Red,
		Thickness: 2,
		LineType:  gocv.Line8,
	}
}

// TimestampFont is the black timestamp of alert snapshots, drawn over a
// white box padded 5px above and below
func TimestampFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.7,
		Color:     Black,
		Thickness: 2,
		LineType:  gocv.Line8,
		PadTop:    5,
		PadBottom: 5,
	}
}
