// Package postformat defines the types for the .post file format
package postformat

import (
	"strings"
	"time"
)

// Version is the only supported document version
const Version = "1.0"

// Alignment values shared by the brand line, title and footer
const (
	AlignLeft   = "left"
	AlignCenter = "center"
	AlignRight  = "right"
)

// titleSourceSeparator separates a headline from its publisher in feed titles
const titleSourceSeparator = " - "

// Post represents the root structure of a .post file
type Post struct {
	Version    string      `json:"version"`
	Item       NewsItem    `json:"item"`
	Title      string      `json:"title,omitempty"` // Overrides the item's display title
	Style      Style       `json:"style"`
	Background *Background `json:"background,omitempty"`
}

// NewsItem is one headline handed over by the news list
type NewsItem struct {
	Title    string    `json:"title"`
	Link     string    `json:"link,omitempty"`
	Date     time.Time `json:"date"`
	Location string    `json:"location,omitempty"`
}

// DisplayTitle strips a trailing " - <source>" suffix from the feed title.
// Only the text left of the first separator is kept.
func (n NewsItem) DisplayTitle() string {
	if i := strings.Index(n.Title, titleSourceSeparator); i >= 0 {
		return n.Title[:i]
	}
	return n.Title
}

// Style is the style configuration surface of the composer
type Style struct {
	PanelColor    string  `json:"panel_color,omitempty"`
	TitleColor    string  `json:"title_color,omitempty"`
	Shadow        *bool   `json:"shadow,omitempty"`
	TitleFontSize float64 `json:"title_font_size,omitempty"`
	MetaFontSize  float64 `json:"meta_font_size,omitempty"`
	LineHeight    float64 `json:"line_height,omitempty"`
	Align         string  `json:"align,omitempty"`
	ImageScale    float64 `json:"image_scale,omitempty"`
	ImageOffset   Offset  `json:"image_offset"`
	LinkQR        *bool   `json:"link_qr,omitempty"`
}

// Offset is an image offset in reference (320 wide) units
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Background references the background image of a post.
// Exactly one of Path or Base64 is expected.
type Background struct {
	Path   string `json:"path,omitempty"`
	Base64 string `json:"base64,omitempty"`
}

// DefaultStyle returns the style a fresh composer starts with
func DefaultStyle() Style {
	shadow := true
	return Style{
		PanelColor:    "#000000",
		TitleColor:    "#FFFF00",
		Shadow:        &shadow,
		TitleFontSize: 24,
		MetaFontSize:  14,
		LineHeight:    1.2,
		Align:         AlignLeft,
		ImageScale:    1.0,
	}
}

// WithDefaults fills zero-valued fields from DefaultStyle
func (s Style) WithDefaults() Style {
	d := DefaultStyle()
	if s.PanelColor == "" {
		s.PanelColor = d.PanelColor
	}
	if s.TitleColor == "" {
		s.TitleColor = d.TitleColor
	}
	if s.Shadow == nil {
		s.Shadow = d.Shadow
	}
	if s.TitleFontSize == 0 {
		s.TitleFontSize = d.TitleFontSize
	}
	if s.MetaFontSize == 0 {
		s.MetaFontSize = d.MetaFontSize
	}
	if s.LineHeight == 0 {
		s.LineHeight = d.LineHeight
	}
	if s.Align == "" {
		s.Align = d.Align
	}
	if s.ImageScale == 0 {
		s.ImageScale = d.ImageScale
	}
	return s
}

// ShadowEnabled reports the shadow flag, defaulting to on
func (s Style) ShadowEnabled() bool {
	return s.Shadow == nil || *s.Shadow
}
