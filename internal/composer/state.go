package composer

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/zafaroo/postcraft/internal/geometry"
	"github.com/zafaroo/postcraft/internal/layout"
	"github.com/zafaroo/postcraft/internal/renderer"
	"github.com/zafaroo/postcraft/pkg/postformat"
)

// Slider bounds of the style controls, in reference units
const (
	MinTitleFontSize = 16.0
	MaxTitleFontSize = 40.0
	MinMetaFontSize  = 10.0
	MaxMetaFontSize  = 20.0
	MinLineHeight    = 1.0
	MaxLineHeight    = 2.0
)

// State is the composition of one editing session. Setters clamp out of
// range values to the nearest bound instead of failing.
type State struct {
	Title    string
	Location string
	Date     time.Time
	Link     string

	// ItemTitle is drawn whenever Title is blank
	ItemTitle string

	PanelColor    color.RGBA
	TitleColor    color.RGBA
	Shadow        bool
	TitleFontSize float64
	MetaFontSize  float64
	LineHeight    float64
	Align         layout.Align
	LinkQR        bool

	Scale  float64
	Offset geometry.Point
}

// NewState builds a state for item with style applied on top of the defaults
func NewState(item postformat.NewsItem, style postformat.Style) (State, error) {
	s := State{
		Title:     item.DisplayTitle(),
		Location:  item.Location,
		Date:      item.Date,
		Link:      item.Link,
		ItemTitle: item.DisplayTitle(),
	}
	if err := s.ApplyStyle(style.WithDefaults()); err != nil {
		return State{}, err
	}
	return s, nil
}

// ApplyStyle copies every set field of style into s. Zero numeric fields
// and empty strings are left alone; Shadow and LinkQR apply only when
// non-nil.
func (s *State) ApplyStyle(style postformat.Style) error {
	if style.PanelColor != "" {
		c, err := postformat.ParseHexColor(style.PanelColor)
		if err != nil {
			return fmt.Errorf("panel color: %w", err)
		}
		s.PanelColor = c
	}
	if style.TitleColor != "" {
		c, err := postformat.ParseHexColor(style.TitleColor)
		if err != nil {
			return fmt.Errorf("title color: %w", err)
		}
		s.TitleColor = c
	}
	if style.Align != "" {
		if !postformat.IsAlign(style.Align) {
			return fmt.Errorf("invalid align: %q", style.Align)
		}
		s.SetAlign(style.Align)
	}
	if style.Shadow != nil {
		s.Shadow = *style.Shadow
	}
	if style.TitleFontSize != 0 {
		s.SetTitleFontSize(style.TitleFontSize)
	}
	if style.MetaFontSize != 0 {
		s.SetMetaFontSize(style.MetaFontSize)
	}
	if style.LineHeight != 0 {
		s.SetLineHeight(style.LineHeight)
	}
	if style.ImageScale != 0 {
		s.SetScale(style.ImageScale)
	}
	if style.ImageOffset != (postformat.Offset{}) {
		s.SetOffset(geometry.Point{X: style.ImageOffset.X, Y: style.ImageOffset.Y})
	}
	if style.LinkQR != nil {
		s.LinkQR = *style.LinkQR
	}
	return nil
}

// Style returns the state's style in document form
func (s State) Style() postformat.Style {
	shadow, linkQR := s.Shadow, s.LinkQR
	return postformat.Style{
		PanelColor:    postformat.FormatHexColor(s.PanelColor),
		TitleColor:    postformat.FormatHexColor(s.TitleColor),
		Shadow:        &shadow,
		TitleFontSize: s.TitleFontSize,
		MetaFontSize:  s.MetaFontSize,
		LineHeight:    s.LineHeight,
		Align:         string(s.Align),
		ImageScale:    s.Scale,
		ImageOffset:   postformat.Offset{X: s.Offset.X, Y: s.Offset.Y},
		LinkQR:        &linkQR,
	}
}

func (s *State) SetScale(v float64) {
	s.Scale = geometry.ClampScale(v)
}

func (s *State) SetOffset(p geometry.Point) {
	s.Offset = geometry.ClampOffset(p)
}

func (s *State) SetTitleFontSize(v float64) {
	s.TitleFontSize = geometry.Clamp(v, MinTitleFontSize, MaxTitleFontSize)
}

func (s *State) SetMetaFontSize(v float64) {
	s.MetaFontSize = geometry.Clamp(v, MinMetaFontSize, MaxMetaFontSize)
}

func (s *State) SetLineHeight(v float64) {
	s.LineHeight = geometry.Clamp(v, MinLineHeight, MaxLineHeight)
}

// SetAlign sets the alignment; unknown values mean left
func (s *State) SetAlign(a string) {
	s.Align = layout.ParseAlign(a)
}

// ResetTransform puts the image back at its fitted position
func (s *State) ResetTransform() {
	s.Offset = geometry.Point{}
	s.Scale = 1
}

// DrawnTitle returns the headline that is rendered: Title, or the news
// item's title when Title is blank
func (s State) DrawnTitle() string {
	if strings.TrimSpace(s.Title) == "" {
		return s.ItemTitle
	}
	return s.Title
}

// Footer returns the "location | date" footer line
func (s State) Footer() string {
	return layout.Footer(s.Location, s.Date)
}

func (s State) scene(bg image.Image) *renderer.Scene {
	return &renderer.Scene{
		Background: bg,
		Offset:     s.Offset,
		Scale:      s.Scale,
		Title:      s.DrawnTitle(),
		Footer:     s.Footer(),
		Link:       s.Link,
		LinkQR:     s.LinkQR,
		PanelColor: s.PanelColor,
		TitleColor: s.TitleColor,
		Text: layout.Style{
			TitleFontSize: s.TitleFontSize,
			MetaFontSize:  s.MetaFontSize,
			LineHeight:    s.LineHeight,
			Align:         s.Align,
			Shadow:        s.Shadow,
		},
	}
}
