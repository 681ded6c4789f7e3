package postformat

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Parse parses a .post file from a byte slice
func Parse(data []byte) (*Post, error) {
	// Unmarshal into a temporary struct to capture the legacy color fields
	var temp struct {
		Post
		Style struct {
			Style
			BgColor   string `json:"bg_color,omitempty"`   // Legacy
			TextColor string `json:"text_color,omitempty"` // Legacy
		} `json:"style"`
	}

	if err := json.Unmarshal(data, &temp); err != nil {
		return nil, fmt.Errorf("failed to parse post: %w", err)
	}

	post := temp.Post
	post.Style = temp.Style.Style

	// Migrate legacy colors only when the current field is absent
	if post.Style.PanelColor == "" && temp.Style.BgColor != "" {
		post.Style.PanelColor = temp.Style.BgColor
	}
	if post.Style.TitleColor == "" && temp.Style.TextColor != "" {
		post.Style.TitleColor = temp.Style.TextColor
	}

	post.Style = post.Style.WithDefaults()

	if err := Validate(&post); err != nil {
		return nil, err
	}

	return &post, nil
}

// ParseFile parses a .post file from disk. A relative background path is
// resolved against the directory of the file.
func ParseFile(path string) (*Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read post file: %w", err)
	}

	post, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if bg := post.Background; bg != nil && bg.Path != "" && !filepath.IsAbs(bg.Path) {
		bg.Path = filepath.Join(filepath.Dir(path), bg.Path)
	}

	return post, nil
}

// BackgroundBytes returns the raw background image, or nil when the post has none
func (p *Post) BackgroundBytes() ([]byte, error) {
	if p.Background == nil {
		return nil, nil
	}

	if p.Background.Base64 != "" {
		data, err := base64.StdEncoding.DecodeString(p.Background.Base64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode background base64: %w", err)
		}
		return data, nil
	}

	if p.Background.Path != "" {
		data, err := os.ReadFile(p.Background.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read background: %w", err)
		}
		return data, nil
	}

	return nil, nil
}

// ToJSON converts a Post to JSON bytes
func (p *Post) ToJSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// SaveToFile saves a Post to a file
func (p *Post) SaveToFile(path string) error {
	data, err := p.ToJSON()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
