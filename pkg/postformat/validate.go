package postformat

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Validate validates a Post structure. Out-of-range numeric style values
// are not errors; the composer clamps them to the nearest bound.
func Validate(p *Post) error {
	if p.Version == "" {
		return fmt.Errorf("version is required")
	}
	if p.Version != Version {
		return fmt.Errorf("unsupported version: %s (expected %s)", p.Version, Version)
	}

	if strings.TrimSpace(p.Item.Title) == "" {
		return fmt.Errorf("item: 'title' is required")
	}

	if err := ValidateStyle(&p.Style); err != nil {
		return fmt.Errorf("style: %w", err)
	}

	if bg := p.Background; bg != nil {
		if bg.Path != "" && bg.Base64 != "" {
			return fmt.Errorf("background: only one of 'path' or 'base64' may be set")
		}
	}

	return nil
}

// ValidateStyle checks the non-numeric style fields
func ValidateStyle(s *Style) error {
	if s.PanelColor != "" {
		if _, err := ParseHexColor(s.PanelColor); err != nil {
			return fmt.Errorf("panel_color: %w", err)
		}
	}
	if s.TitleColor != "" {
		if _, err := ParseHexColor(s.TitleColor); err != nil {
			return fmt.Errorf("title_color: %w", err)
		}
	}
	if s.Align != "" && !IsAlign(s.Align) {
		return fmt.Errorf("invalid align: %s (must be left, center, or right)", s.Align)
	}
	return nil
}

// IsAlign reports whether a is a known alignment
func IsAlign(a string) bool {
	switch a {
	case AlignLeft, AlignCenter, AlignRight:
		return true
	}
	return false
}

// ParseHexColor parses "#rrggbb" or "#rgb" into an opaque color
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q: expected 6-char hex", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}

	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// FormatHexColor formats a color as "#RRGGBB", dropping alpha
func FormatHexColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02X%02X%02X", r>>8, g>>8, b>>8)
}
