package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// RenderBackend selects how the overlay surface gets its pixels.
type RenderBackend string

const (
	RenderBackendAuto     RenderBackend = "auto"
	RenderBackendSoftware RenderBackend = "software"
)

// Color is an 8-bit RGBA color serialized as a hex string
// ("#rrggbb" or "#rrggbbaa") in config files.
type Color struct {
	R, G, B, A uint8
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R) * 0x101
	g = uint32(c.G) * 0x101
	b = uint32(c.B) * 0x101
	a = uint32(c.A) * 0x101
	return
}

// ParseColor parses "#rrggbb" or "#rrggbbaa". Missing alpha means opaque.
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("invalid color %q: expected #rrggbb or #rrggbbaa", s)
	}

	parse := func(h string) (uint8, error) {
		var v uint8
		for _, r := range h {
			var d uint8
			switch {
			case r >= '0' && r <= '9':
				d = uint8(r - '0')
			case r >= 'a' && r <= 'f':
				d = uint8(r-'a') + 10
			case r >= 'A' && r <= 'F':
				d = uint8(r-'A') + 10
			default:
				return 0, fmt.Errorf("invalid hex digit %q", r)
			}
			v = v<<4 | d
		}
		return v, nil
	}

	var c Color
	var err error
	if c.R, err = parse(hex[0:2]); err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	if c.G, err = parse(hex[2:4]); err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	if c.B, err = parse(hex[4:6]); err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	c.A = 0xff
	if len(hex) == 8 {
		if c.A, err = parse(hex[6:8]); err != nil {
			return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
	}
	return c, nil
}

// String renders the color back to its config form.
func (c Color) String() string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Color) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (c Color) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// WindowConfig controls the switcher panel itself.
type WindowConfig struct {
	MaxWidth   uint32 `json:"max_width" yaml:"max_width"`
	Padding    uint32 `json:"padding" yaml:"padding"`
	Background Color  `json:"background" yaml:"background"`
	Border     Color  `json:"border" yaml:"border"`
}

// ItemConfig controls per-window entries inside the panel.
type ItemConfig struct {
	PreviewHeight   uint32 `json:"preview_height" yaml:"preview_height"`
	PreviewMinWidth uint32 `json:"preview_min_width" yaml:"preview_min_width"`
	PreviewMaxWidth uint32 `json:"preview_max_width" yaml:"preview_max_width"`
	TitleHeight     uint32 `json:"title_height" yaml:"title_height"`
	Spacing         uint32 `json:"spacing" yaml:"spacing"`
	Background      Color  `json:"background" yaml:"background"`
	SelectedBorder  Color  `json:"selected_border" yaml:"selected_border"`
	TitleColor      Color  `json:"title_color" yaml:"title_color"`
}

// TimerConfig controls the preview-capture cadence. Period is the idle
// refresh interval; DebounceMs is how long after an activation burst
// the capture fires.
type TimerConfig struct {
	PeriodMs   int `json:"period_ms" yaml:"period_ms"`
	DebounceMs int `json:"debounce_ms" yaml:"debounce_ms"`
}

// DebugConfig gates the HTTP inspection server. Off unless asked for.
type DebugConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Port    int  `json:"port" yaml:"port"`
}

// Config is the daemon configuration.
type Config struct {
	LogLevel  string        `json:"log_level" yaml:"log_level"`
	Modifiers []string      `json:"modifiers" yaml:"modifiers"`
	Backend   RenderBackend `json:"render_backend" yaml:"render_backend"`
	Window    WindowConfig  `json:"window" yaml:"window"`
	Item      ItemConfig    `json:"item" yaml:"item"`
	Timer     TimerConfig   `json:"timer" yaml:"timer"`
	Debug     DebugConfig   `json:"debug" yaml:"debug"`
}

// Defaults returns the configuration written on first run.
func Defaults() *Config {
	return &Config{
		LogLevel:  "info",
		Modifiers: []string{"alt"},
		Backend:   RenderBackendAuto,
		Window: WindowConfig{
			MaxWidth:   800,
			Padding:    10,
			Background: Color{R: 0x19, G: 0x19, B: 0x19, A: 0xee},
			Border:     Color{R: 0x44, G: 0x44, B: 0x44, A: 0xff},
		},
		Item: ItemConfig{
			PreviewHeight:   100,
			PreviewMinWidth: 100,
			PreviewMaxWidth: 200,
			TitleHeight:     25,
			Spacing:         10,
			Background:      Color{R: 0x2a, G: 0x2a, B: 0x2a, A: 0xff},
			SelectedBorder:  Color{R: 0x5e, G: 0x81, B: 0xac, A: 0xff},
			TitleColor:      Color{R: 0xec, G: 0xec, B: 0xec, A: 0xff},
		},
		Timer: TimerConfig{
			PeriodMs:   10000,
			DebounceMs: 500,
		},
		Debug: DebugConfig{
			Enabled: false,
			Port:    8391,
		},
	}
}

// normalize fills zero values left by partial config files.
func (c *Config) normalize() {
	d := Defaults()
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if len(c.Modifiers) == 0 {
		c.Modifiers = d.Modifiers
	}
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.Window.MaxWidth == 0 {
		c.Window.MaxWidth = d.Window.MaxWidth
	}
	if c.Item.PreviewHeight == 0 {
		c.Item.PreviewHeight = d.Item.PreviewHeight
	}
	if c.Item.PreviewMinWidth == 0 {
		c.Item.PreviewMinWidth = d.Item.PreviewMinWidth
	}
	if c.Item.PreviewMaxWidth == 0 {
		c.Item.PreviewMaxWidth = d.Item.PreviewMaxWidth
	}
	if c.Item.TitleHeight == 0 {
		c.Item.TitleHeight = d.Item.TitleHeight
	}
	if c.Timer.PeriodMs <= 0 {
		c.Timer.PeriodMs = d.Timer.PeriodMs
	}
	if c.Timer.DebounceMs <= 0 {
		c.Timer.DebounceMs = d.Timer.DebounceMs
	}
	if c.Debug.Port == 0 {
		c.Debug.Port = d.Debug.Port
	}
}
