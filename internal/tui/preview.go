package tui

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/disintegration/imaging"
	"github.com/zafaroo/postcraft/internal/geometry"
	"github.com/zafaroo/postcraft/internal/layout"
)

// halfBlock draws two vertically stacked pixels per cell: the foreground
// colors the upper half, the background the lower one
const halfBlock = "▀"

// thumbnailRows returns the number of text rows a thumbnail of img with the
// given column count occupies
func thumbnailRows(img image.Image, cols int) int {
	b := img.Bounds()
	if b.Dx() == 0 || cols <= 0 {
		return 0
	}
	return int(math.Round(float64(cols) * float64(b.Dy()) / float64(b.Dx()) / 2))
}

// Thumbnail renders img as colored half-block characters, cols wide
func Thumbnail(img image.Image, cols int) []string {
	rows := thumbnailRows(img, cols)
	if rows == 0 {
		return nil
	}

	small := imaging.Resize(img, cols, rows*2, imaging.Box)

	lines := make([]string, rows)
	for y := 0; y < rows; y++ {
		var b strings.Builder
		for x := 0; x < cols; x++ {
			top := small.NRGBAAt(x, 2*y)
			bottom := small.NRGBAAt(x, 2*y+1)
			b.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(hex(top.R, top.G, top.B))).
				Background(lipgloss.Color(hex(bottom.R, bottom.G, bottom.B))).
				Render(halfBlock))
		}
		lines[y] = b.String()
	}
	return lines
}

func hex(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// cellToReference maps a cell of a cols x rows thumbnail to the center of
// the area it covers in reference units
func cellToReference(cx, cy, cols, rows int) geometry.Point {
	return geometry.Point{
		X: (float64(cx) + 0.5) * layout.ReferenceWidth / float64(cols),
		Y: (float64(cy) + 0.5) * layout.ReferenceHeight / float64(rows),
	}
}
