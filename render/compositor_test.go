package render

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/jleboube/RSVP-Speed-Reading/types"
)

// A table with unresolvable paths forces the embedded fallback font, which
// keeps the test hermetic.
func fallbackTable() *FontTable {
	return NewFontTable(map[types.FontSelector]string{
		types.FontDefault: "/nonexistent/font.ttf",
	})
}

func frameConfig() types.VideoConfig {
	return types.VideoConfig{
		WPM:             300,
		Font:            types.FontDefault,
		TextColor:       types.RGB{R: 0, G: 0, B: 0},
		BackgroundColor: types.RGB{R: 255, G: 255, B: 255},
		HighlightColor:  types.RGB{R: 255, G: 0, B: 0},
		WordGrouping:    1,
		Width:           320,
		Height:          180,
	}
}

func decodeFrame(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open frame: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return img
}

func countColor(img image.Image, want color.RGBA) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if uint8(r>>8) == want.R && uint8(g>>8) == want.G && uint8(bl>>8) == want.B {
				n++
			}
		}
	}
	return n
}

func TestRenderFrame(t *testing.T) {
	cfg := frameConfig()
	path := filepath.Join(t.TempDir(), "frame_000000.png")

	comp := NewCompositor(fallbackTable())
	if err := comp.RenderFrame("reading", cfg, path); err != nil {
		t.Fatalf("RenderFrame error: %v", err)
	}

	img := decodeFrame(t, path)
	b := img.Bounds()
	if b.Dx() != cfg.Width || b.Dy() != cfg.Height {
		t.Fatalf("frame is %dx%d; want %dx%d", b.Dx(), b.Dy(), cfg.Width, cfg.Height)
	}

	// Corners stay background; text and highlight ink must both be present.
	r, g, bl, _ := img.At(0, 0).RGBA()
	if uint8(r>>8) != 255 || uint8(g>>8) != 255 || uint8(bl>>8) != 255 {
		t.Fatalf("corner pixel is not background: %d %d %d", r>>8, g>>8, bl>>8)
	}
	if countColor(img, color.RGBA{R: 0, G: 0, B: 0, A: 255}) == 0 {
		t.Fatal("no text-color pixels drawn")
	}
	if countColor(img, color.RGBA{R: 255, G: 0, B: 0, A: 255}) == 0 {
		t.Fatal("no highlight-color pixels drawn")
	}
}

func TestRenderFrameTickAtCenterColumn(t *testing.T) {
	cfg := frameConfig()
	path := filepath.Join(t.TempDir(), "frame.png")

	comp := NewCompositor(fallbackTable())
	if err := comp.RenderFrame("word", cfg, path); err != nil {
		t.Fatalf("RenderFrame error: %v", err)
	}

	img := decodeFrame(t, path)
	found := false
	cx := cfg.Width / 2
	for y := 0; y < cfg.Height; y++ {
		r, g, bl, _ := img.At(cx, y).RGBA()
		if uint8(r>>8) == 255 && uint8(g>>8) == 0 && uint8(bl>>8) == 0 {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("no highlight pixel in the center column (tick or ORP glyph expected)")
	}
}

func TestRenderFrameEmptyGroup(t *testing.T) {
	cfg := frameConfig()
	path := filepath.Join(t.TempDir(), "frame.png")

	comp := NewCompositor(fallbackTable())
	if err := comp.RenderFrame("", cfg, path); err != nil {
		t.Fatalf("RenderFrame on empty group: %v", err)
	}
	img := decodeFrame(t, path)
	if img.Bounds().Dx() != cfg.Width {
		t.Fatalf("unexpected frame width %d", img.Bounds().Dx())
	}
}

func TestFontTableFallback(t *testing.T) {
	face, err := fallbackTable().Face(types.FontSerif, 40)
	if err != nil {
		t.Fatalf("Face with missing file should fall back, got error: %v", err)
	}
	face.Close()
}
