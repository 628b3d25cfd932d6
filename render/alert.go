package render

import (
	"image"
	"time"

	"gocv.io/x/gocv"
)

// TimestampLayout is the day-month-year layout stamped onto alert images
const TimestampLayout = "02-01-2006 15:04:05"

// Banner places a short alert label and a timestamp in the top left corner
// of a frame
type Banner struct {
	// Label is the alert caption
	Label     string
	LabelPos  image.Point
	LabelFont Font
	// TimePos is the baseline origin of the timestamp
	TimePos  image.Point
	TimeFont Font
}

// DefaultBanner returns the banner layout used on alert snapshots
func DefaultBanner() Banner {
	return Banner{
		Label:     "Alert",
		LabelPos:  image.Pt(10, 30),
		LabelFont: AlertFont(),
		TimePos:   image.Pt(10, 60),
		TimeFont:  TimestampFont(),
	}
}

// TimestampRect returns the white background box drawn behind the timestamp
// text, sized from the rendered extent of the text
func (b Banner) TimestampRect(text string) image.Rectangle {
	return b.TimeFont.Background(text, b.TimePos)
}

// Draw stamps the label and the local time of now onto img
func (b Banner) Draw(img *gocv.Mat, now time.Time) {

	stamp := now.Local().Format(TimestampLayout)

	gocv.Rectangle(img, b.TimestampRect(stamp), White, -1)

	b.LabelFont.Put(img, b.Label, b.LabelPos)
	b.TimeFont.Put(img, stamp, b.TimePos)
}

// AlertBanner stamps the default banner onto img
func AlertBanner(img *gocv.Mat, now time.Time) {
	DefaultBanner().Draw(img, now)
}
