package wall

import (
	"fmt"
	"sync"

	"github.com/tdewolff/canvas"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

var (
	labelFontOnce sync.Once
	labelFont     *sfnt.Font
	labelFontErr  error
)

func loadLabelFont() (*sfnt.Font, error) {
	labelFontOnce.Do(func() {
		labelFont, labelFontErr = sfnt.Parse(goregular.TTF)
	})
	return labelFont, labelFontErr
}

// labelPath outlines text centred horizontally on (cx, baseline). Both
// arguments are in image space (y grows down); the returned path is in
// canvas space for a surface of the given height (y grows up).
func labelPath(text string, size, cx, baseline, height float64) (*canvas.Path, error) {
	f, err := loadLabelFont()
	if err != nil {
		return nil, fmt.Errorf("loading label font: %w", err)
	}

	var buf sfnt.Buffer
	ppem := fixed.Int26_6(size * 64)

	type glyph struct {
		segs    sfnt.Segments
		advance float64
	}
	glyphs := make([]glyph, 0, len(text))
	width := 0.0
	for _, r := range text {
		idx, err := f.GlyphIndex(&buf, r)
		if err != nil {
			return nil, fmt.Errorf("glyph index for %q: %w", r, err)
		}
		segs, err := f.LoadGlyph(&buf, idx, ppem, nil)
		if err != nil {
			return nil, fmt.Errorf("loading glyph %q: %w", r, err)
		}
		adv, err := f.GlyphAdvance(&buf, idx, ppem, font.HintingNone)
		if err != nil {
			return nil, fmt.Errorf("glyph advance for %q: %w", r, err)
		}
		// LoadGlyph reuses buf, so keep a copy of the segments
		glyphs = append(glyphs, glyph{segs: append(sfnt.Segments(nil), segs...), advance: fromFixed(adv)})
		width += fromFixed(adv)
	}

	p := &canvas.Path{}
	penX := cx - width/2
	pt := func(v fixed.Point26_6) (float64, float64) {
		return penX + fromFixed(v.X), height - (baseline + fromFixed(v.Y))
	}
	for _, g := range glyphs {
		open := false
		for _, seg := range g.segs {
			switch seg.Op {
			case sfnt.SegmentOpMoveTo:
				if open {
					p.Close()
				}
				p.MoveTo(pt(seg.Args[0]))
				open = true
			case sfnt.SegmentOpLineTo:
				p.LineTo(pt(seg.Args[0]))
			case sfnt.SegmentOpQuadTo:
				x1, y1 := pt(seg.Args[0])
				x2, y2 := pt(seg.Args[1])
				p.QuadTo(x1, y1, x2, y2)
			case sfnt.SegmentOpCubeTo:
				x1, y1 := pt(seg.Args[0])
				x2, y2 := pt(seg.Args[1])
				x3, y3 := pt(seg.Args[2])
				p.CubeTo(x1, y1, x2, y2, x3, y3)
			}
		}
		if open {
			p.Close()
		}
		penX += g.advance
	}
	return p, nil
}

func fromFixed(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
