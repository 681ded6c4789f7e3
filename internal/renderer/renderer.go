// Package renderer draws a post onto a canvas: background image or
// gradient in the image region, the styled text panel below it, and the
// preview-only resize handles.
package renderer

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/zafaroo/postcraft/internal/geometry"
	"github.com/zafaroo/postcraft/internal/layout"
)

// Target is a concrete canvas size. Every target is 4:5 with the image
// region taking the top 60% of the height.
type Target struct {
	Width  int
	Height int
	Mode   layout.Mode
}

var (
	PreviewTarget = Target{Width: 320, Height: 400, Mode: layout.ModePreview}
	FinalTarget   = Target{Width: 1080, Height: 1350, Mode: layout.ModeFinal}
)

// Ratio converts reference units to target pixels
func (t Target) Ratio() float64 {
	return float64(t.Width) / layout.ReferenceWidth
}

// ImageRegion returns the top 60% of the canvas
func (t Target) ImageRegion() geometry.Rect {
	return geometry.Rect{Width: float64(t.Width), Height: float64(t.Height * 3 / 5)}
}

// TextPanel returns the bottom 40% of the canvas
func (t Target) TextPanel() geometry.Rect {
	top := float64(t.Height * 3 / 5)
	return geometry.Rect{Y: top, Width: float64(t.Width), Height: float64(t.Height) - top}
}

// Scene is everything needed to draw one post. Offset and Scale are in
// reference units and are converted to pixels per target.
type Scene struct {
	Background image.Image // nil draws the gradient
	Offset     geometry.Point
	Scale      float64

	Title  string
	Footer string
	Link   string
	LinkQR bool

	PanelColor color.Color
	TitleColor color.Color
	Text       layout.Style
}

// Result is a rendered canvas plus the layout facts callers hit-test against
type Result struct {
	Target       Target
	Image        *image.RGBA
	ImageRect    geometry.Rect // drawn image in target pixels, unclipped
	HasImageRect bool
	TitleLines   []string
	Truncated    int
	LinkCodeErr  error // set when the link badge could not be encoded; the badge is skipped
}

// Renderer converts scenes to images
type Renderer struct {
	fonts *Fonts
}

// New creates a new renderer. A nil fonts uses the embedded Go fonts.
func New(fonts *Fonts) (*Renderer, error) {
	if fonts == nil {
		var err error
		fonts, err = DefaultFonts()
		if err != nil {
			return nil, fmt.Errorf("failed to load fonts: %w", err)
		}
	}
	return &Renderer{fonts: fonts}, nil
}

// Render draws the scene onto a fresh canvas of the target size. The whole
// canvas is recomputed on every call.
func (r *Renderer) Render(s *Scene, t Target) (*Result, error) {
	im := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
	dc := gg.NewContextForRGBA(im)
	region := t.ImageRegion()
	ratio := t.Ratio()

	res := &Result{Target: t, Image: im}

	if s.Background != nil {
		res.ImageRect = drawImage(im, s.Background, region, s.Scale, s.Offset, ratio, t.Mode)
		res.HasImageRect = true
	} else {
		drawGradient(dc, region)
	}

	if s.LinkQR && s.Link != "" {
		if err := drawLinkQR(dc, s.Link, region, ratio); err != nil {
			res.LinkCodeErr = fmt.Errorf("failed to render link code: %w", err)
		}
	}

	faces := r.fonts.newFaceSet()
	defer faces.close()

	plan := drawPanel(dc, faces, s, t)
	res.TitleLines = plan.TitleLines
	res.Truncated = plan.Truncated

	if t.Mode == layout.ModePreview && res.HasImageRect {
		drawHandles(dc, res.ImageRect, region, ratio)
	}

	return res, nil
}

// Measure returns a layout.Measure backed by the renderer's fonts. It is
// meant for callers that need wrap decisions without drawing.
func (r *Renderer) Measure() (layout.Measure, func()) {
	faces := r.fonts.newFaceSet()
	return func(role layout.Role, size float64, s string) float64 {
		return faces.measure(role != layout.RoleFooter, size, s)
	}, faces.close
}
