package renderer

import (
	"image/color"

	"github.com/fogleman/gg"
	"github.com/zafaroo/postcraft/internal/geometry"
)

var (
	handleFill   = color.NRGBA{0xff, 0xff, 0xff, 0xe6}
	handleStroke = color.RGBA{0x66, 0x66, 0x66, 0xff}
	handleInner  = color.RGBA{0x33, 0x33, 0x33, 0xff}
)

// drawHandles draws the resize markers on the corners of the drawn image.
// Markers are clipped to the image region like the image itself.
func drawHandles(dc *gg.Context, rect, region geometry.Rect, ratio float64) {
	size := geometry.HandleSize * ratio
	inset := 3 * ratio

	// gg keeps the clip mask across Push/Pop, so reset it explicitly
	dc.DrawRectangle(region.X, region.Y, region.Width, region.Height)
	dc.Clip()
	defer dc.ResetClip()

	for _, c := range geometry.Corners {
		zone := geometry.HitZone(rect, c, size)

		dc.SetColor(handleFill)
		dc.DrawRectangle(zone.X, zone.Y, zone.Width, zone.Height)
		dc.Fill()

		dc.SetColor(handleStroke)
		dc.SetLineWidth(ratio)
		dc.DrawRectangle(zone.X, zone.Y, zone.Width, zone.Height)
		dc.Stroke()

		dc.SetColor(handleInner)
		dc.DrawRectangle(zone.X+inset, zone.Y+inset, zone.Width-2*inset, zone.Height-2*inset)
		dc.Fill()
	}
}
