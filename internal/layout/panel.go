package layout

import "strings"

// Role tells the renderer which face and color a line uses
type Role int

const (
	RoleBrand Role = iota
	RoleTitle
	RoleFooter
)

func (r Role) String() string {
	return []string{"brand", "title", "footer"}[r]
}

// Measure returns the advance width of s for a role at a font size
type Measure func(role Role, size float64, s string) float64

// Line is one positioned piece of text. Y is the top of the text box.
type Line struct {
	Role     Role
	Text     string
	X, Y     float64
	Anchor   float64
	Size     float64
	Shadowed bool
}

// Panel is the input to Plan
type Panel struct {
	CanvasWidth float64
	Top         float64 // y of the panel's top edge
	Height      float64
	Mode        Mode
	Style       Style
	Title       string
	Footer      string
}

// Plan is the computed layout of the text panel
type Plan struct {
	Lines      []Line
	Sizes      Sizes
	Scale      float64
	Padding    float64
	Shadow     Shadow
	TitleLines []string // wrapped title lines that are drawn
	Truncated  int      // wrapped lines dropped past MaxTitleLines
}

// Layout computes every text draw for the panel
func Layout(p Panel, measure Measure) Plan {
	scale := ScaleFactor(p.CanvasWidth)
	metrics := p.Mode.Metrics()
	sizes := ComputeSizes(p.Style, scale)
	x := AnchorX(p.Style.Align, p.CanvasWidth, metrics.Padding)
	anchor := p.Style.Align.Anchor()

	plan := Plan{
		Sizes:   sizes,
		Scale:   scale,
		Padding: metrics.Padding,
		Shadow:  ShadowAt(scale),
	}

	plan.Lines = append(plan.Lines, Line{
		Role:     RoleBrand,
		Text:     Brand,
		X:        x,
		Y:        p.Top + metrics.BrandTop,
		Anchor:   anchor,
		Size:     sizes.Brand,
		Shadowed: p.Style.Shadow,
	})

	// Wrap once in reference units so every target breaks the title at
	// the same words. The final canvas's own budget (1080-2*40 px at the
	// scaled font) would fit more words per line than the preview does
	// and break titles differently. Scaled lines still fit that budget
	// because the text scale is capped below the canvas ratio.
	wrapped := Wrap(p.Title, WrapWidth, func(s string) float64 {
		return measure(RoleTitle, p.Style.TitleFontSize, s)
	})
	if len(wrapped) > MaxTitleLines {
		plan.Truncated = len(wrapped) - MaxTitleLines
		wrapped = wrapped[:MaxTitleLines]
	}
	plan.TitleLines = wrapped

	startY := p.Top + metrics.TitleTop
	for i, text := range wrapped {
		plan.Lines = append(plan.Lines, Line{
			Role:     RoleTitle,
			Text:     text,
			X:        x,
			Y:        startY + float64(i)*sizes.LineHeight,
			Anchor:   anchor,
			Size:     sizes.Title,
			Shadowed: p.Style.Shadow,
		})
	}

	plan.Lines = append(plan.Lines, Line{
		Role:   RoleFooter,
		Text:   p.Footer,
		X:      x,
		Y:      p.Top + p.Height - metrics.FooterBottom,
		Anchor: anchor,
		Size:   sizes.Footer,
	})

	return plan
}

// Wrap greedily packs words into lines no wider than maxWidth. A single
// word wider than maxWidth still gets a line of its own.
func Wrap(text string, maxWidth float64, measure func(string) float64) []string {
	var lines []string
	current := ""

	for _, word := range strings.Fields(text) {
		if current == "" {
			current = word
			continue
		}
		candidate := current + " " + word
		if measure(candidate) > maxWidth {
			lines = append(lines, current)
			current = word
		} else {
			current = candidate
		}
	}

	if current != "" {
		lines = append(lines, current)
	}

	return lines
}
