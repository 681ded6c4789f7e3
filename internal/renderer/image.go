package renderer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/zafaroo/postcraft/internal/geometry"
	"github.com/zafaroo/postcraft/internal/layout"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var (
	gradientTop    = color.RGBA{0x4a, 0x4a, 0x4a, 0xff}
	gradientBottom = color.RGBA{0x2a, 0x2a, 0x2a, 0xff}
)

// ErrEmptyImage is returned when a decoded image has no pixels
var ErrEmptyImage = errors.New("image has zero size")

// Decode decodes background image bytes, applying EXIF orientation.
// PNG, JPEG, GIF, BMP, TIFF and WebP are supported.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, ErrEmptyImage
	}

	return img, nil
}

// EncodePNG writes img as PNG
func EncodePNG(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}

// drawImage scales src to cover the region, applies the user transform and
// draws it clipped to the region. It returns the unclipped image rectangle.
func drawImage(dst *image.RGBA, src image.Image, region geometry.Rect, scale float64, offset geometry.Point, ratio float64, mode layout.Mode) geometry.Rect {
	b := src.Bounds()
	size := geometry.FitDimensions(float64(b.Dx()), float64(b.Dy()), region.Width, region.Height, scale)
	rect := geometry.PlaceImage(region, size, geometry.Point{X: offset.X * ratio, Y: offset.Y * ratio})

	clip := dst.SubImage(toImageRect(region)).(*image.RGBA)
	dr := toImageRect(rect)
	if dr.Empty() {
		return rect
	}

	// Scaling only touches dr ∩ clip bounds, so pixels outside the region
	// are never written.
	interp := xdraw.Interpolator(xdraw.ApproxBiLinear)
	if mode == layout.ModeFinal {
		interp = xdraw.CatmullRom
	}
	interp.Scale(clip, dr, src, b, xdraw.Over, nil)

	return rect
}

// drawGradient fills the region with the fallback vertical gradient
func drawGradient(dc *gg.Context, region geometry.Rect) {
	grad := gg.NewLinearGradient(0, region.Y, 0, region.Bottom())
	grad.AddColorStop(0, gradientTop)
	grad.AddColorStop(1, gradientBottom)

	dc.Push()
	dc.SetFillStyle(grad)
	dc.DrawRectangle(region.X, region.Y, region.Width, region.Height)
	dc.Fill()
	dc.Pop()
}

func toImageRect(r geometry.Rect) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)),
		int(math.Round(r.Y)),
		int(math.Round(r.Right())),
		int(math.Round(r.Bottom())),
	)
}
