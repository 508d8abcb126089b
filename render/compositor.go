package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/jleboube/RSVP-Speed-Reading/rsvp"
	"github.com/jleboube/RSVP-Speed-Reading/types"
)

// Tick mark geometry: a short vertical line above the text marking the
// fixation column, independent of word length.
const (
	tickGap    = 20 // px between text top and tick bottom
	tickHeight = 10
	tickWidth  = 3
)

// Compositor renders one PNG frame per word group. The font mapping is
// injected at construction; nothing is read from ambient state.
type Compositor struct {
	fonts *FontTable
}

func NewCompositor(fonts *FontTable) *Compositor {
	return &Compositor{fonts: fonts}
}

type charLayout struct {
	r       rune
	advance fixed.Int26_6
	center  fixed.Int26_6 // visual center when drawn starting at x=0
}

// RenderFrame draws the group onto a Width x Height canvas and writes it to
// path as PNG. The ORP character is colored with the highlight color and
// its visual center lands exactly at Width/2; the rest of the string uses
// the text color on the background color. The ORP index is computed on the
// space-stripped group and applied to the display string, matching the
// per-character positioning the timing alignment checks assume.
func (c *Compositor) RenderFrame(group string, cfg types.VideoConfig, path string) error {
	fontSize := cfg.Width
	if cfg.Height < fontSize {
		fontSize = cfg.Height
	}
	fontSize /= 8

	face, err := c.fonts.Face(cfg.Font, float64(fontSize))
	if err != nil {
		return err
	}
	defer face.Close()

	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(rgba(cfg.BackgroundColor)), image.Point{}, draw.Src)

	runes := []rune(group)
	layout := measure(face, runes)

	orp := -1
	if despaced := strings.ReplaceAll(group, " ", ""); despaced != "" {
		orp = rsvp.FixationPoint(despaced)
	}

	var orpCenter fixed.Int26_6
	if orp >= 0 && orp < len(layout) {
		orpCenter = layout[orp].center
	}

	screenCenterX := cfg.Width / 2
	startX := fixed.I(screenCenterX) - orpCenter

	// Vertically center the full string's rendered bounding box.
	bounds, _ := font.BoundString(face, group)
	textHeight := (bounds.Max.Y - bounds.Min.Y).Ceil()
	textTop := (cfg.Height - textHeight) / 2
	baseline := fixed.I(textTop) - bounds.Min.Y

	textSrc := image.NewUniform(rgba(cfg.TextColor))
	highlightSrc := image.NewUniform(rgba(cfg.HighlightColor))

	x := startX
	for i, cl := range layout {
		src := textSrc
		if i == orp {
			src = highlightSrc
		}
		d := &font.Drawer{
			Dst:  img,
			Src:  src,
			Face: face,
			Dot:  fixed.Point26_6{X: x, Y: baseline},
		}
		d.DrawString(string(cl.r))
		x += cl.advance
	}

	if len(layout) == 0 {
		textTop = cfg.Height / 2
	}
	drawTick(img, screenCenterX, textTop, rgba(cfg.HighlightColor))

	return writePNG(img, path)
}

// measure computes each character's advance and visual center as if the
// whole string were drawn starting at x=0.
func measure(face font.Face, runes []rune) []charLayout {
	layout := make([]charLayout, 0, len(runes))
	var x fixed.Int26_6
	for _, r := range runes {
		b, adv, ok := face.GlyphBounds(r)
		if !ok {
			b, adv, _ = face.GlyphBounds('�')
		}
		layout = append(layout, charLayout{
			r:       r,
			advance: adv,
			center:  x + (b.Min.X+b.Max.X)/2,
		})
		x += adv
	}
	return layout
}

func drawTick(img *image.RGBA, centerX, textTop int, c color.RGBA) {
	top := textTop - tickGap
	rect := image.Rect(centerX-tickWidth/2, top, centerX-tickWidth/2+tickWidth, top+tickHeight)
	draw.Draw(img, rect.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

func rgba(c types.RGB) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

func writePNG(img image.Image, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create frame file: %w", err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close frame file: %w", err)
	}
	return nil
}
