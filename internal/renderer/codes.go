package renderer

import (
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/skip2/go-qrcode"
	"github.com/zafaroo/postcraft/internal/geometry"
)

// Link badge geometry in reference units
const (
	qrSize    = 48.0
	qrMargin  = 8.0
	qrPadding = 3.0
)

// drawLinkQR draws a QR code of the article link in the bottom-right corner
// of the image region, on a white card
func drawLinkQR(dc *gg.Context, link string, region geometry.Rect, ratio float64) error {
	qr, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return err
	}
	qr.DisableBorder = true

	// Long links may come back larger than requested; size the card
	// from the actual bitmap
	img := qr.Image(int(math.Round(qrSize * ratio)))
	size := float64(img.Bounds().Dx())
	pad := qrPadding * ratio
	x := math.Round(region.Right() - qrMargin*ratio - size)
	y := math.Round(region.Bottom() - qrMargin*ratio - size)

	dc.SetColor(color.White)
	dc.DrawRectangle(x-pad, y-pad, size+2*pad, size+2*pad)
	dc.Fill()

	dc.DrawImage(img, int(x), int(y))
	return nil
}
