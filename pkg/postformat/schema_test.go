package postformat

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDisplayTitle(t *testing.T) {
	tests := []struct {
		title    string
		expected string
	}{
		{"Fire breaks out near market - Dainik Bhaskar", "Fire breaks out near market"},
		{"No source here", "No source here"},
		{"A - B - C", "A"},
		{"Dash-without-spaces", "Dash-without-spaces"},
	}

	for _, tt := range tests {
		item := NewsItem{Title: tt.title}
		if got := item.DisplayTitle(); got != tt.expected {
			t.Errorf("DisplayTitle(%q) = %q, want %q", tt.title, got, tt.expected)
		}
	}
}

func TestParse_AppliesDefaults(t *testing.T) {
	data := []byte(`{"version":"1.0","item":{"title":"Rain in Indore - News18","date":"2026-10-17T08:00:00Z"},"style":{}}`)

	post, err := Parse(data)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	if post.Style.TitleFontSize != 24 {
		t.Errorf("Expected default title font size 24, got %v", post.Style.TitleFontSize)
	}
	if post.Style.Align != AlignLeft {
		t.Errorf("Expected default align left, got %q", post.Style.Align)
	}
	if !post.Style.ShadowEnabled() {
		t.Error("Expected shadow to default to on")
	}
	if !post.Item.Date.Equal(time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected date: %v", post.Item.Date)
	}
}

func TestParse_ShadowOff(t *testing.T) {
	data := []byte(`{"version":"1.0","item":{"title":"x","date":"2026-10-17T08:00:00Z"},"style":{"shadow":false}}`)

	post, err := Parse(data)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if post.Style.ShadowEnabled() {
		t.Error("Expected explicit shadow=false to survive defaults")
	}
}

func TestParse_LegacyColors(t *testing.T) {
	data := []byte(`{"version":"1.0","item":{"title":"x","date":"2026-10-17T08:00:00Z"},"style":{"bg_color":"#112233","text_color":"#ffffff"}}`)

	post, err := Parse(data)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if post.Style.PanelColor != "#112233" {
		t.Errorf("Expected migrated panel color, got %q", post.Style.PanelColor)
	}
	if post.Style.TitleColor != "#ffffff" {
		t.Errorf("Expected migrated title color, got %q", post.Style.TitleColor)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Post {
		return &Post{Version: "1.0", Item: NewsItem{Title: "Headline"}, Style: DefaultStyle()}
	}

	tests := []struct {
		name    string
		mutate  func(p *Post)
		wantErr bool
	}{
		{"valid", func(p *Post) {}, false},
		{"missing version", func(p *Post) { p.Version = "" }, true},
		{"wrong version", func(p *Post) { p.Version = "2.0" }, true},
		{"empty title", func(p *Post) { p.Item.Title = "  " }, true},
		{"bad align", func(p *Post) { p.Style.Align = "justify" }, true},
		{"bad color", func(p *Post) { p.Style.PanelColor = "#12" }, true},
		{"out of range scale is not an error", func(p *Post) { p.Style.ImageScale = 9 }, false},
		{"both background sources", func(p *Post) { p.Background = &Background{Path: "a.png", Base64: "AA=="} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := Validate(p)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#4a4a4a", color.RGBA{0x4a, 0x4a, 0x4a, 255}, false},
		{"FFFF00", color.RGBA{255, 255, 0, 255}, false},
		{"#333", color.RGBA{0x33, 0x33, 0x33, 255}, false},
		{"#GGGGGG", color.RGBA{}, true},
		{"", color.RGBA{}, true},
	}

	for _, tt := range tests {
		got, err := ParseHexColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHexColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseHexColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if got := FormatHexColor(color.RGBA{0x12, 0xAB, 0x00, 255}); got != "#12AB00" {
		t.Errorf("FormatHexColor = %q", got)
	}
}

func TestParseFile_ResolvesBackground(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bg.png"), []byte("not really a png"), 0644); err != nil {
		t.Fatal(err)
	}

	post := &Post{
		Version:    Version,
		Item:       NewsItem{Title: "Headline"},
		Style:      DefaultStyle(),
		Background: &Background{Path: "bg.png"},
	}
	path := filepath.Join(dir, "item.post")
	if err := post.SaveToFile(path); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	loaded, err := ParseFile(path)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}

	data, err := loaded.BackgroundBytes()
	if err != nil {
		t.Fatalf("Failed to read background: %v", err)
	}
	if string(data) != "not really a png" {
		t.Errorf("Unexpected background bytes: %q", data)
	}
}
