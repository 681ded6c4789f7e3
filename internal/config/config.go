// Package config loads the optional postcraft.yaml configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/zafaroo/postcraft/pkg/postformat"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory
const DefaultPath = "postcraft.yaml"

// Defaults
const (
	DefaultPort       = "12212"
	DefaultExportDir  = "."
	DefaultAssetDir   = "assets"
	DefaultRetries    = 3
	DefaultRetryDelay = time.Second
)

// Config represents the optional postcraft.yaml configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Export ExportConfig `yaml:"export"`
	Fonts  FontsConfig  `yaml:"fonts"`
	Style  StyleConfig  `yaml:"style"`
}

// ServerConfig contains API server settings. AssetDir is the only
// directory the "background <path>" command may read from.
type ServerConfig struct {
	Addr      string `yaml:"addr,omitempty"`
	AssetDir  string `yaml:"asset_dir,omitempty"`
	AllowURLs bool   `yaml:"allow_url_backgrounds,omitempty"`
}

// ExportConfig controls where and how final images are written.
type ExportConfig struct {
	Dir        string        `yaml:"dir,omitempty"`
	Retries    int           `yaml:"retries,omitempty"`
	RetryDelay time.Duration `yaml:"retry_delay,omitempty"`
}

// FontsConfig points at TTF files replacing the embedded faces.
type FontsConfig struct {
	Bold    string `yaml:"bold,omitempty"`
	Regular string `yaml:"regular,omitempty"`
}

// StyleConfig overrides the default style of new compositions.
type StyleConfig struct {
	PanelColor    string  `yaml:"panel_color,omitempty"`
	TitleColor    string  `yaml:"title_color,omitempty"`
	Shadow        *bool   `yaml:"shadow,omitempty"`
	TitleFontSize float64 `yaml:"title_font_size,omitempty"`
	MetaFontSize  float64 `yaml:"meta_font_size,omitempty"`
	LineHeight    float64 `yaml:"line_height,omitempty"`
	Align         string  `yaml:"align,omitempty"`
	LinkQR        *bool   `yaml:"link_qr,omitempty"`
}

// PostStyle converts the overrides to a document style
func (s StyleConfig) PostStyle() postformat.Style {
	return postformat.Style{
		PanelColor:    s.PanelColor,
		TitleColor:    s.TitleColor,
		Shadow:        s.Shadow,
		TitleFontSize: s.TitleFontSize,
		MetaFontSize:  s.MetaFontSize,
		LineHeight:    s.LineHeight,
		Align:         s.Align,
		LinkQR:        s.LinkQR,
	}
}

// LoadOptional reads the config file at path if present.
func LoadOptional(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return &cfg, nil
}

// Load reads the config file at path (if present), applies environment
// overrides and fills defaults.
func Load(path string) (*Config, error) {
	cfg, err := LoadOptional(path)
	if err != nil {
		return nil, err
	}

	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}

	return cfg, nil
}

// applyEnv applies SERVER_PORT and POSTCRAFT_EXPORT_DIR
func (c *Config) applyEnv(getenv func(string) string) {
	if port := strings.TrimSpace(getenv("SERVER_PORT")); port != "" {
		c.Server.Addr = "0.0.0.0:" + port
	}
	if dir := strings.TrimSpace(getenv("POSTCRAFT_EXPORT_DIR")); dir != "" {
		c.Export.Dir = dir
	}
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = "0.0.0.0:" + DefaultPort
	}
	if strings.TrimSpace(c.Server.AssetDir) == "" {
		c.Server.AssetDir = DefaultAssetDir
	}
	if strings.TrimSpace(c.Export.Dir) == "" {
		c.Export.Dir = DefaultExportDir
	}
	if c.Export.Retries == 0 {
		c.Export.Retries = DefaultRetries
	}
	if c.Export.RetryDelay == 0 {
		c.Export.RetryDelay = DefaultRetryDelay
	}
}

// Validate checks values the rest of the program cannot clamp.
func (c *Config) Validate() error {
	if c.Export.Retries < 0 {
		return fmt.Errorf("export.retries must not be negative (got %d)", c.Export.Retries)
	}
	if c.Export.RetryDelay < 0 {
		return fmt.Errorf("export.retry_delay must not be negative (got %s)", c.Export.RetryDelay)
	}
	style := c.Style.PostStyle()
	if err := postformat.ValidateStyle(&style); err != nil {
		return fmt.Errorf("style: %w", err)
	}
	return nil
}
