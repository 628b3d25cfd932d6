// Package render draws detection results and alert banners onto frames.
package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/rangerlab/wildwatch/postprocess/result"
)

// boxLabel holds a precalculated label so all labels can be drawn after the
// boxes
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// LabelText returns the caption drawn above a detection box, eg:
// "hunter 0.87"
func LabelText(det result.DetectResult, classNames []string) string {

	name := fmt.Sprintf("class %d", det.Class)

	if det.Class >= 0 && det.Class < len(classNames) {
		name = classNames[det.Class]
	}

	return fmt.Sprintf("%s %.2f", name, det.Probability)
}

// DetectionBoxes renders the bounding boxes around the objects detected
// with a class name and confidence label above each one
func DetectionBoxes(img *gocv.Mat, detectResults []result.DetectResult,
	classNames []string, font Font, lineThickness int) {

	boxLabels := make([]boxLabel, 0, len(detectResults))

	for _, detResult := range detectResults {

		useClr := ClassColor(detResult.Class)

		rect := image.Rect(detResult.Box.Left, detResult.Box.Top, detResult.Box.Right,
			detResult.Box.Bottom)
		gocv.Rectangle(img, rect, useClr, lineThickness)

		text := LabelText(detResult, classNames)
		textSize := font.Size(text)

		var left int

		switch font.Alignment {
		case AlignCenter:
			left = (detResult.Box.Left+detResult.Box.Right)/2 - textSize.X/2

		case AlignRight:
			left = detResult.Box.Right - textSize.X - font.PadX + lineThickness/2

		default:
			left = detResult.Box.Left + font.PadX - lineThickness/2
		}

		// keep labels of boxes touching the top edge inside the frame
		top := detResult.Box.Top
		if min := textSize.Y + font.PadTop + font.PadBottom; top < min {
			top = min
		}

		origin := image.Pt(left, top-font.PadBottom)

		boxLabels = append(boxLabels, boxLabel{
			rect:    font.Background(text, origin),
			clr:     useClr,
			text:    text,
			textPos: origin,
		})
	}

	// labels are the top most layer so later boxes don't cover them
	for _, box := range boxLabels {
		gocv.Rectangle(img, box.rect, box.clr, -1)

		font.Put(img, box.text, box.textPos)
	}
}
