package renderer

import (
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/zafaroo/postcraft/internal/layout"
)

var (
	brandColor  = color.White
	footerColor = color.RGBA{0xcc, 0xcc, 0xcc, 0xff}
	shadowColor = color.RGBA{0x33, 0x33, 0x33, 0xff}
)

// drawPanel fills the text panel and draws the brand, title and footer
func drawPanel(dc *gg.Context, faces *faceSet, s *Scene, t Target) layout.Plan {
	panel := t.TextPanel()

	dc.SetColor(s.PanelColor)
	dc.DrawRectangle(panel.X, panel.Y, panel.Width, panel.Height)
	dc.Fill()

	plan := layout.Layout(layout.Panel{
		CanvasWidth: float64(t.Width),
		Top:         panel.Y,
		Height:      panel.Height,
		Mode:        t.Mode,
		Style:       s.Text,
		Title:       s.Title,
		Footer:      s.Footer,
	}, func(role layout.Role, size float64, text string) float64 {
		return faces.measure(role != layout.RoleFooter, size, text)
	})

	if s.Text.Shadow {
		drawShadows(dc, faces, plan)
	}

	for _, line := range plan.Lines {
		dc.SetColor(lineColor(line.Role, s))
		drawLine(dc, faces, line, 0, 0)
	}

	return plan
}

// drawShadows renders every shadowed line into a separate layer, blurs it
// and composites it under the text
func drawShadows(dc *gg.Context, faces *faceSet, plan layout.Plan) {
	layer := gg.NewContext(dc.Width(), dc.Height())
	layer.SetColor(shadowColor)

	for _, line := range plan.Lines {
		if line.Shadowed {
			drawLine(layer, faces, line, plan.Shadow.OffsetX, plan.Shadow.OffsetY)
		}
	}

	// A canvas shadow blur of b approximates a Gaussian with sigma b/2
	blurred := imaging.Blur(layer.Image(), plan.Shadow.Blur/2)
	dc.DrawImage(blurred, 0, 0)
}

func drawLine(dc *gg.Context, faces *faceSet, line layout.Line, dx, dy float64) {
	if line.Text == "" {
		return
	}
	face := faces.face(line.Role != layout.RoleFooter, line.Size)
	dc.SetFontFace(face)

	// Line.Y is the top of the text; gg draws on the baseline
	ascent := float64(face.Metrics().Ascent) / 64
	dc.DrawStringAnchored(line.Text, line.X+dx, line.Y+ascent+dy, line.Anchor, 0)
}

func lineColor(role layout.Role, s *Scene) color.Color {
	switch role {
	case layout.RoleBrand:
		return brandColor
	case layout.RoleTitle:
		return s.TitleColor
	default:
		return footerColor
	}
}
