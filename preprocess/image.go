package preprocess

import (
	"image"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// LetterBoxImage scales src into a new destWidth x destHeight RGBA image
// keeping its aspect ratio, padding the remainder with PadColor.  It is used
// by backends that consume Go images rather than gocv Mats.
func LetterBoxImage(src image.Image, destWidth, destHeight int) (*image.RGBA, Letterbox) {

	b := src.Bounds()
	box := NewLetterbox(b.Dx(), b.Dy(), destWidth, destHeight)

	dst := image.NewRGBA(image.Rect(0, 0, destWidth, destHeight))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(PadColor), image.Point{}, draw.Src)

	scaled := resize.Resize(uint(box.ResizeWidth), uint(box.ResizeHeight), src, resize.Bilinear)
	draw.Copy(dst, image.Pt(box.XPad, box.YPad), scaled, scaled.Bounds(), draw.Src, nil)

	return dst, box
}

// CHWFloat32 converts an RGB image into a planar, channel first float32
// tensor with values normalised to 0.0 to 1.0
func CHWFloat32(img *image.RGBA, dst []float32) {

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			i := y*w + x

			dst[i] = float32(img.Pix[off]) / 255.0
			dst[plane+i] = float32(img.Pix[off+1]) / 255.0
			dst[2*plane+i] = float32(img.Pix[off+2]) / 255.0
		}
	}
}
