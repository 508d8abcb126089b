package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Bounds applied exactly once, when a VideoConfig is built at job creation.
// Downstream components assume clamped values and never re-check.
const (
	MinWPM = 100
	MaxWPM = 5000

	MinWordGrouping = 1
	MaxWordGrouping = 3

	DefaultWidth  = 1920
	DefaultHeight = 1080
)

// FontSelector names one of the configured font resources.
type FontSelector string

const (
	FontDefault   FontSelector = "default"
	FontSerif     FontSelector = "serif"
	FontMonospace FontSelector = "monospace"
)

// RGB is an 8-bit color triple.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// ParseHexColor parses "#RRGGBB" (leading '#' optional) into an RGB triple.
func ParseHexColor(s string) (RGB, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return RGB{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid hex color %q", s)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// VideoConfig carries every knob the rendering pipeline needs. Instances are
// built through NewVideoConfig so that clamping and color parsing happen
// once; the struct then travels as-is through the task queue to the worker.
type VideoConfig struct {
	WPM                int          `json:"wpm"`
	Font               FontSelector `json:"font"`
	TextColor          RGB          `json:"text_color"`
	BackgroundColor    RGB          `json:"bg_color"`
	HighlightColor     RGB          `json:"highlight_color"`
	PauseOnPunctuation bool         `json:"pause_on_punctuation"`
	WordGrouping       int          `json:"word_grouping"`
	Width              int          `json:"width"`
	Height             int          `json:"height"`
}

// NewVideoConfig builds a VideoConfig from raw request values, clamping the
// bounded fields and parsing colors. Color parse failures are ContentErrors:
// the job is rejected before it exists.
func NewVideoConfig(wpm int, font string, textColor, bgColor, highlightColor string, pausePunct bool, grouping, width, height int) (VideoConfig, error) {
	cfg := VideoConfig{
		WPM:                clamp(wpm, MinWPM, MaxWPM),
		Font:               normalizeFont(font),
		PauseOnPunctuation: pausePunct,
		WordGrouping:       clamp(grouping, MinWordGrouping, MaxWordGrouping),
		Width:              width,
		Height:             height,
	}
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}

	var err error
	if cfg.TextColor, err = ParseHexColor(textColor); err != nil {
		return VideoConfig{}, &ContentError{Reason: fmt.Sprintf("bad text color: %v", err)}
	}
	if cfg.BackgroundColor, err = ParseHexColor(bgColor); err != nil {
		return VideoConfig{}, &ContentError{Reason: fmt.Sprintf("bad background color: %v", err)}
	}
	if cfg.HighlightColor, err = ParseHexColor(highlightColor); err != nil {
		return VideoConfig{}, &ContentError{Reason: fmt.Sprintf("bad highlight color: %v", err)}
	}
	return cfg, nil
}

func normalizeFont(s string) FontSelector {
	switch FontSelector(strings.ToLower(strings.TrimSpace(s))) {
	case FontSerif:
		return FontSerif
	case FontMonospace:
		return FontMonospace
	default:
		return FontDefault
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
