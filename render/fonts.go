// Package render composites the per-group frame images: every frame places
// the group's ORP character at the exact horizontal center of the screen.
package render

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"github.com/jleboube/RSVP-Speed-Reading/types"
)

// Default TTF locations, the Debian/Ubuntu DejaVu set.
var defaultFontPaths = map[types.FontSelector]string{
	types.FontDefault:   "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	types.FontSerif:     "/usr/share/fonts/truetype/dejavu/DejaVuSerif.ttf",
	types.FontMonospace: "/usr/share/fonts/truetype/dejavu/DejaVuSansMono.ttf",
}

// FontTable maps font selectors to font resources. The mapping is fixed at
// construction and injected into the Compositor; a missing or unparseable
// file falls back to the embedded Go Regular face instead of failing the
// job. Parsed fonts are cached per selector.
type FontTable struct {
	mu     sync.Mutex
	paths  map[types.FontSelector]string
	parsed map[types.FontSelector]*sfnt.Font
}

// NewFontTable builds a table from an explicit selector-to-path mapping.
// Selectors absent from the mapping resolve to the embedded fallback.
func NewFontTable(paths map[types.FontSelector]string) *FontTable {
	merged := make(map[types.FontSelector]string, len(paths))
	for sel, p := range paths {
		merged[sel] = p
	}
	return &FontTable{
		paths:  merged,
		parsed: make(map[types.FontSelector]*sfnt.Font),
	}
}

// DefaultFontTable returns a table over the system DejaVu fonts.
func DefaultFontTable() *FontTable {
	return NewFontTable(defaultFontPaths)
}

// Face returns a rendering face for the selector at the given pixel size.
// The caller owns the face and must Close it.
func (t *FontTable) Face(sel types.FontSelector, size float64) (font.Face, error) {
	f, err := t.load(sel)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face for %q: %w", sel, err)
	}
	return face, nil
}

func (t *FontTable) load(sel types.FontSelector) (*sfnt.Font, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if f, ok := t.parsed[sel]; ok {
		return f, nil
	}

	f := t.parsePath(t.paths[sel])
	if f == nil {
		var err error
		f, err = opentype.Parse(goregular.TTF)
		if err != nil {
			return nil, fmt.Errorf("parse embedded fallback font: %w", err)
		}
	}
	t.parsed[sel] = f
	return f, nil
}

func (t *FontTable) parsePath(path string) *sfnt.Font {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil
	}
	return f
}
