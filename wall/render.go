package wall

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/draw"
)

// ExportFilename is the download name of the exported problem image
const ExportFilename = "climbing-problem.png"

// labelScale and baselineShift place the label the way an SVG <text> with
// font-size 0.8r and dy=0.35em would
const (
	labelScale    = 0.8
	baselineShift = 0.35
)

// MarkerStyle is how one hold state is drawn
type MarkerStyle struct {
	Fill  color.RGBA
	Label string
}

// Labels for each state, always a single letter
var stateLabels = map[HoldState]string{
	StateStart:        "S",
	StateIntermediate: "N",
	StateFinish:       "F",
}

// Style returns the color and label for a state. It is a pure function of
// the state and the configured palette.
func (m MarkerConfig) Style(s HoldState) MarkerStyle {
	hex := m.Colors.Start
	switch s {
	case StateIntermediate:
		hex = m.Colors.Intermediate
	case StateFinish:
		hex = m.Colors.Finish
	}
	c, err := ParseHexColor(hex)
	if err != nil {
		c = color.RGBA{255, 0, 0, 255}
	}
	return MarkerStyle{Fill: c, Label: stateLabels[s]}
}

// IsMobile reports whether a viewport falls in the touch-sized class
func (m MarkerConfig) IsMobile(vp Viewport) bool {
	if vp.Mobile {
		return true
	}
	return vp.Width > 0 && vp.Width <= m.MobileBreakpoint
}

// Radius returns the marker radius in natural image pixels
func (m MarkerConfig) Radius(natural Size, vp Viewport) float64 {
	base := float64(min(natural.Width, natural.Height)) * m.Scale
	if m.IsMobile(vp) {
		return base * m.MobileScale
	}
	return base
}

// ParseHexColor parses "#RRGGBB" or "RRGGBB"
func ParseHexColor(hex string) (color.RGBA, error) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", hex)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return color.RGBA{r, g, b, 255}, nil
}

func mustColor(hex string, fallback color.RGBA) color.RGBA {
	if c, err := ParseHexColor(hex); err == nil {
		return c
	}
	return fallback
}

// canvasRenderer is implemented by both the svg and rasterizer renderers
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// Overlay draws hold markers in the reference image's natural pixel space,
// so the same drawing scales with the displayed surface and rasterizes
// one-to-one at native resolution
type Overlay struct {
	Size    Size
	Markers MarkerConfig
}

// NewOverlay creates an overlay for an image of the given natural size
func NewOverlay(size Size, markers MarkerConfig) *Overlay {
	if size.Width <= 0 || size.Height <= 0 {
		size = DefaultImageSize
	}
	return &Overlay{Size: size, Markers: markers}
}

// Center returns the marker centre for a hold in image space (y down)
func (o *Overlay) Center(h Hold) (float64, float64) {
	return h.X / 100 * float64(o.Size.Width), h.Y / 100 * float64(o.Size.Height)
}

// RenderSVG writes the marker overlay as a transparent SVG. The selected
// hold, if any, gets the highlight ring.
func (o *Overlay) RenderSVG(w io.Writer, holds HoldCollection, selected string, vp Viewport) error {
	width, height := float64(o.Size.Width), float64(o.Size.Height)
	svgRenderer := svg.New(w, width, height, nil)

	if err := o.renderToCanvas(svgRenderer, holds, selected, vp); err != nil {
		return err
	}

	return svgRenderer.Close()
}

// Rasterize draws the overlay on a transparent image of the natural size,
// one canvas unit per pixel
func (o *Overlay) Rasterize(holds HoldCollection, selected string, vp Viewport) (image.Image, error) {
	rast := rasterizer.New(float64(o.Size.Width), float64(o.Size.Height), canvas.DPMM(1.0), canvas.DefaultColorSpace)
	if err := o.renderToCanvas(rast, holds, selected, vp); err != nil {
		return nil, err
	}
	return rast, nil
}

// renderToCanvas draws every marker in collection order so later holds sit
// on top, matching hit testing
func (o *Overlay) renderToCanvas(renderer canvasRenderer, holds HoldCollection, selected string, vp Viewport) error {
	height := float64(o.Size.Height)
	radius := o.Markers.Radius(o.Size, vp)
	outline := mustColor(o.Markers.Outline, color.RGBA{255, 255, 255, 255})
	highlight := mustColor(o.Markers.Selected, color.RGBA{250, 204, 21, 255})

	for _, h := range holds {
		style := o.Markers.Style(h.State)
		x, y := o.Center(h)
		cy := height - y

		markerStyle := canvas.DefaultStyle
		markerStyle.Fill = canvas.Paint{Color: style.Fill}
		markerStyle.Stroke = canvas.Paint{Color: outline}
		markerStyle.StrokeWidth = 1.0
		if h.ID == selected {
			markerStyle.Stroke = canvas.Paint{Color: highlight}
			markerStyle.StrokeWidth = math.Max(1.0, radius*0.2)
		}
		renderer.RenderPath(canvas.Circle(radius).Translate(x, cy), markerStyle, canvas.Identity)

		fontSize := radius * labelScale
		label, err := labelPath(style.Label, fontSize, x, y+baselineShift*fontSize, height)
		if err != nil {
			return err
		}
		textStyle := canvas.DefaultStyle
		textStyle.Fill = canvas.Paint{Color: canvas.White}
		textStyle.Stroke = canvas.Paint{Color: canvas.Transparent}
		renderer.RenderPath(label, textStyle, canvas.Identity)
	}
	return nil
}

// Composite draws the overlay over the wall image at the image's native
// resolution. Marker geometry is identical to RenderSVG's.
func (o *Overlay) Composite(wall image.Image, holds HoldCollection, selected string, vp Viewport) (*image.RGBA, error) {
	bounds := image.Rect(0, 0, o.Size.Width, o.Size.Height)
	dst := image.NewRGBA(bounds)
	if wall != nil {
		draw.Draw(dst, bounds, wall, wall.Bounds().Min, draw.Src)
	}

	overlay, err := o.Rasterize(holds, selected, vp)
	if err != nil {
		return nil, err
	}
	draw.Draw(dst, bounds, overlay, overlay.Bounds().Min, draw.Over)
	return dst, nil
}

// ExportPNG writes the composited problem image as PNG at the wall image's
// native size, with the layout embedded so the file can be decoded back.
// Markers are sized for vp, as they were on screen.
func ExportPNG(w io.Writer, wall *WallImage, holds HoldCollection, markers MarkerConfig, vp Viewport) error {
	if wall == nil || wall.Image == nil {
		return ErrNoWallImage
	}
	overlay := NewOverlay(wall.Size, markers)
	img, err := overlay.Composite(wall.Image, holds, "", vp)
	if err != nil {
		return fmt.Errorf("compositing overlay: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	tagged, err := EmbedLayout(buf.Bytes(), holds)
	if err != nil {
		return fmt.Errorf("embedding layout: %w", err)
	}
	_, err = w.Write(tagged)
	return err
}
