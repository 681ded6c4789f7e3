package layout

import (
	"math"
	"strings"
	"testing"
	"time"
)

// monospace measures every rune as 0.5 em
func monospace(role Role, size float64, s string) float64 {
	return float64(len([]rune(s))) * size * 0.5
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func defaultStyle() Style {
	return Style{TitleFontSize: 24, MetaFontSize: 14, LineHeight: 1.2, Align: AlignLeft, Shadow: true}
}

func TestScaleFactor(t *testing.T) {
	tests := []struct {
		width float64
		want  float64
	}{
		{320, 1},
		{640, 2},
		{800, 2.5},
		{1080, 2.5},
		{160, 0.5},
	}

	for _, tt := range tests {
		if got := ScaleFactor(tt.width); got != tt.want {
			t.Errorf("ScaleFactor(%v) = %v, want %v", tt.width, got, tt.want)
		}
	}
}

func TestComputeSizes(t *testing.T) {
	got := ComputeSizes(defaultStyle(), 2.5)

	want := Sizes{Brand: 29.75, Title: 60, Footer: 24.5, LineHeight: 72}
	if !approx(got.Brand, want.Brand) || !approx(got.Title, want.Title) ||
		!approx(got.Footer, want.Footer) || !approx(got.LineHeight, want.LineHeight) {
		t.Errorf("ComputeSizes = %+v, want %+v", got, want)
	}
}

func TestWrap(t *testing.T) {
	measure := func(s string) float64 { return float64(len(s)) }

	tests := []struct {
		name     string
		text     string
		width    float64
		expected []string
	}{
		{"fits", "one two", 10, []string{"one two"}},
		{"breaks", "one two three", 8, []string{"one two", "three"}},
		{"long word alone", "a extraordinarily b", 5, []string{"a", "extraordinarily", "b"}},
		{"collapses spaces", "  one   two  ", 20, []string{"one two"}},
		{"empty", "", 10, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.text, tt.width, measure)
			if strings.Join(got, "|") != strings.Join(tt.expected, "|") || len(got) != len(tt.expected) {
				t.Errorf("Wrap(%q, %v) = %q, want %q", tt.text, tt.width, got, tt.expected)
			}
		})
	}
}

func TestLayout_ScenarioA(t *testing.T) {
	plan := Layout(Panel{
		CanvasWidth: 320,
		Top:         240,
		Height:      160,
		Mode:        ModePreview,
		Style:       defaultStyle(),
		Title:       "Fire breaks out near market",
		Footer:      "Indore | 17/10/2026",
	}, monospace)

	if len(plan.TitleLines) == 0 || len(plan.TitleLines) > MaxTitleLines {
		t.Fatalf("Expected 1..4 title lines, got %d", len(plan.TitleLines))
	}
	for _, line := range plan.TitleLines {
		if w := monospace(RoleTitle, 24, line); w > 320-2*10 {
			t.Errorf("Line %q is %vpx wide, budget 300", line, w)
		}
	}
}

func TestLayout_TruncatesAfterFourLines(t *testing.T) {
	title := strings.Repeat("word ", 60)
	plan := Layout(Panel{
		CanvasWidth: 320, Top: 240, Height: 160, Mode: ModePreview,
		Style: defaultStyle(), Title: title,
	}, monospace)

	if len(plan.TitleLines) != MaxTitleLines {
		t.Fatalf("Expected %d lines, got %d", MaxTitleLines, len(plan.TitleLines))
	}
	if plan.Truncated == 0 {
		t.Error("Expected dropped lines to be reported")
	}

	titles := 0
	for _, l := range plan.Lines {
		if l.Role == RoleTitle {
			titles++
			if strings.HasSuffix(l.Text, "…") || strings.HasSuffix(l.Text, "...") {
				t.Errorf("Unexpected ellipsis on %q", l.Text)
			}
		}
	}
	if titles != MaxTitleLines {
		t.Errorf("Expected %d title draws, got %d", MaxTitleLines, titles)
	}
}

func TestLayout_Positions(t *testing.T) {
	tests := []struct {
		align   Align
		mode    Mode
		width   float64
		wantX   float64
		anchor  float64
		brandY  float64
		titleY  float64
		footerY float64
	}{
		{AlignLeft, ModePreview, 320, 10, 0, 250, 280, 385},
		{AlignCenter, ModePreview, 320, 160, 0.5, 250, 280, 385},
		{AlignRight, ModePreview, 320, 310, 1, 250, 280, 385},
		{AlignLeft, ModeFinal, 1080, 40, 0, 810 + 30, 810 + 120, 1350 - 60},
		{AlignRight, ModeFinal, 1080, 1040, 1, 810 + 30, 810 + 120, 1350 - 60},
	}

	for _, tt := range tests {
		height := tt.width * 5 / 4
		top := height * 3 / 5
		style := defaultStyle()
		style.Align = tt.align

		plan := Layout(Panel{
			CanvasWidth: tt.width, Top: top, Height: height - top, Mode: tt.mode,
			Style: style, Title: "Short", Footer: "Bhopal | 1/2/2026",
		}, monospace)

		if len(plan.Lines) != 3 {
			t.Fatalf("Expected brand, one title line and footer, got %d lines", len(plan.Lines))
		}
		for _, l := range plan.Lines {
			if l.X != tt.wantX || l.Anchor != tt.anchor {
				t.Errorf("%s/%s %s: x=%v anchor=%v, want %v/%v", tt.mode, tt.align, l.Role, l.X, l.Anchor, tt.wantX, tt.anchor)
			}
		}
		if plan.Lines[0].Y != tt.brandY || plan.Lines[1].Y != tt.titleY || plan.Lines[2].Y != tt.footerY {
			t.Errorf("%s/%s: y = %v/%v/%v", tt.mode, tt.align, plan.Lines[0].Y, plan.Lines[1].Y, plan.Lines[2].Y)
		}
	}
}

func TestLayout_FooterNeverShadowed(t *testing.T) {
	plan := Layout(Panel{
		CanvasWidth: 320, Top: 240, Height: 160, Mode: ModePreview,
		Style: defaultStyle(), Title: "Title", Footer: "x | y",
	}, monospace)

	for _, l := range plan.Lines {
		if l.Role == RoleFooter && l.Shadowed {
			t.Error("Footer must not be shadowed")
		}
		if l.Role != RoleFooter && !l.Shadowed {
			t.Errorf("%s should be shadowed when shadow is enabled", l.Role)
		}
	}
}

func TestFooter(t *testing.T) {
	date := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	if got := Footer("Indore", date); got != "Indore | 7/3/2026" {
		t.Errorf("Footer = %q", got)
	}
	if got := Footer("Indore", time.Time{}); got != "Indore | " {
		t.Errorf("Footer with zero date = %q", got)
	}
}

func TestAlign(t *testing.T) {
	if ParseAlign("justify") != AlignLeft {
		t.Error("Unknown alignment should fall back to left")
	}
	if AlignLeft.Next().Next().Next() != AlignLeft {
		t.Error("Next should cycle through three alignments")
	}
}

func TestLayout_WrapIsResolutionIndependent(t *testing.T) {
	titles := []string{
		"Fire breaks out near market",
		"Heavy rain expected across Madhya Pradesh as monsoon strengthens over the weekend",
		"Municipal corporation announces new water supply schedule for the old city wards starting Monday morning",
	}

	for _, title := range titles {
		preview := Layout(Panel{
			CanvasWidth: 320, Top: 240, Height: 160, Mode: ModePreview,
			Style: defaultStyle(), Title: title,
		}, monospace)
		final := Layout(Panel{
			CanvasWidth: 1080, Top: 810, Height: 540, Mode: ModeFinal,
			Style: defaultStyle(), Title: title,
		}, monospace)

		if strings.Join(preview.TitleLines, "|") != strings.Join(final.TitleLines, "|") {
			t.Errorf("Wrap differs for %q:\npreview %q\nfinal   %q", title, preview.TitleLines, final.TitleLines)
		}
		for _, line := range final.TitleLines {
			if w := monospace(RoleTitle, final.Sizes.Title, line); w > 1080-2*40 {
				t.Errorf("Final line %q is %vpx wide, budget 1000", line, w)
			}
		}
	}
}
