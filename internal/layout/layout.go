// Package layout places the brand line, the wrapped title and the footer
// inside the text panel at any output resolution.
//
// Font sizes are configured at the 320 unit reference width and grow with
// the output width up to MaxScaleCap, so a 1080 wide export gets 2.5x text
// rather than 3.375x.
package layout

import (
	"fmt"
	"math"
	"time"
)

const (
	ReferenceWidth  = 320.0
	ReferenceHeight = 400.0
	MaxScaleCap     = 2.5

	// MaxTitleLines is the number of wrapped title lines drawn; the rest
	// are dropped without an ellipsis.
	MaxTitleLines = 4

	Brand = "Zafaroo News"

	// WrapWidth is the title budget at the reference width: 320 minus
	// the 10 unit preview padding on each side.
	WrapWidth = ReferenceWidth - 2*10

	brandSizeRatio  = 0.85
	footerSizeRatio = 0.7
	footerDateFmt   = "2/1/2006"
)

// Align is the horizontal alignment shared by every text element
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// ParseAlign maps a string to an Align, falling back to left
func ParseAlign(s string) Align {
	switch Align(s) {
	case AlignCenter:
		return AlignCenter
	case AlignRight:
		return AlignRight
	default:
		return AlignLeft
	}
}

// Next cycles left -> center -> right -> left
func (a Align) Next() Align {
	switch a {
	case AlignLeft:
		return AlignCenter
	case AlignCenter:
		return AlignRight
	default:
		return AlignLeft
	}
}

// Anchor returns the horizontal anchor fraction for a, as used by
// gg's DrawStringAnchored: 0 grows right, 0.5 centered, 1 grows left.
func (a Align) Anchor() float64 {
	switch a {
	case AlignCenter:
		return 0.5
	case AlignRight:
		return 1
	default:
		return 0
	}
}

// AnchorX returns the x coordinate text of alignment a is anchored at
func AnchorX(a Align, canvasWidth, padding float64) float64 {
	switch a {
	case AlignCenter:
		return canvasWidth / 2
	case AlignRight:
		return canvasWidth - padding
	default:
		return padding
	}
}

// Mode selects the fixed panel offsets of a render target
type Mode int

const (
	ModePreview Mode = iota
	ModeFinal
)

func (m Mode) String() string {
	if m == ModeFinal {
		return "final"
	}
	return "preview"
}

// Metrics are the unscaled panel offsets of a mode
type Metrics struct {
	Padding      float64
	BrandTop     float64
	TitleTop     float64
	FooterBottom float64
}

// Metrics returns the panel offsets for m. Final values are absolute
// pixels chosen for the 1080 wide export and are not scaled.
func (m Mode) Metrics() Metrics {
	if m == ModeFinal {
		return Metrics{Padding: 40, BrandTop: 30, TitleTop: 120, FooterBottom: 60}
	}
	return Metrics{Padding: 10, BrandTop: 10, TitleTop: 40, FooterBottom: 15}
}

// ScaleFactor is the text scale for a canvas of the given width
func ScaleFactor(targetWidth float64) float64 {
	return math.Min(targetWidth/ReferenceWidth, MaxScaleCap)
}

// Style carries the text styling parameters, in reference units
type Style struct {
	TitleFontSize float64
	MetaFontSize  float64
	LineHeight    float64 // multiplier of the title font size
	Align         Align
	Shadow        bool
}

// Sizes are font sizes and line height at a target resolution
type Sizes struct {
	Brand      float64
	Title      float64
	Footer     float64
	LineHeight float64
}

// ComputeSizes derives target sizes from reference sizes and a scale factor
func ComputeSizes(s Style, scale float64) Sizes {
	return Sizes{
		Brand:      s.MetaFontSize * brandSizeRatio * scale,
		Title:      s.TitleFontSize * scale,
		Footer:     s.MetaFontSize * footerSizeRatio * scale,
		LineHeight: s.TitleFontSize * s.LineHeight * scale,
	}
}

// Shadow describes the soft text shadow at a target resolution
type Shadow struct {
	OffsetX, OffsetY float64
	Blur             float64
}

// ShadowAt returns the shadow geometry for a scale factor
func ShadowAt(scale float64) Shadow {
	return Shadow{OffsetX: scale, OffsetY: scale, Blur: 2 * scale}
}

// Footer builds the "location | date" footer line
func Footer(location string, date time.Time) string {
	d := ""
	if !date.IsZero() {
		d = date.Format(footerDateFmt)
	}
	return fmt.Sprintf("%s | %s", location, d)
}
