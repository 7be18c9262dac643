package wall

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrEmptySurface is returned when the measured surface has no area
var ErrEmptySurface = errors.New("surface rectangle has zero area")

// SurfaceRect is the on-screen bounding rectangle of the wall surface, in
// client pixels. It is measured by the client on every event.
type SurfaceRect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bound returns the rectangle as an orb.Bound in client space (y grows down)
func (r SurfaceRect) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{r.Left, r.Top},
		Max: orb.Point{r.Left + r.Width, r.Top + r.Height},
	}
}

// Empty reports whether the rectangle cannot be mapped onto
func (r SurfaceRect) Empty() bool {
	return !(r.Width > 0) || !(r.Height > 0)
}

// MapToSurface converts a client-space point into wall percentages.
// The result is rounded to two decimals and not clamped: a
// point just outside the measured rectangle maps slightly outside [0,100].
func MapToSurface(p orb.Point, r SurfaceRect) orb.Point {
	return orb.Point{
		Round2((p.X() - r.Left) / r.Width * 100),
		Round2((p.Y() - r.Top) / r.Height * 100),
	}
}

// MapPointer is MapToSurface with a guard against unmeasured surfaces
func MapPointer(p orb.Point, r SurfaceRect) (orb.Point, error) {
	if r.Empty() {
		return orb.Point{}, ErrEmptySurface
	}
	pct := MapToSurface(p, r)
	if math.IsNaN(pct.X()) || math.IsNaN(pct.Y()) || math.IsInf(pct.X(), 0) || math.IsInf(pct.Y(), 0) {
		return orb.Point{}, ErrEmptySurface
	}
	return pct, nil
}

// SurfaceToClient is the inverse mapping, from percentages back to client pixels
func SurfaceToClient(pct orb.Point, r SurfaceRect) orb.Point {
	return orb.Point{
		r.Left + pct.X()/100*r.Width,
		r.Top + pct.Y()/100*r.Height,
	}
}

// Clamp limits a percentage point to [0,100] on both axes
func Clamp(pct orb.Point) orb.Point {
	return orb.Point{clamp100(pct.X()), clamp100(pct.Y())}
}

func clamp100(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// Touch is one contact point of a touch event
type Touch struct {
	ClientX float64 `json:"clientX"`
	ClientY float64 `json:"clientY"`
}

// DeviceEvent is a raw pointer, touch or keyboard event as reported by the
// client. Mouse events carry ClientX/ClientY; touch events carry Touches
// (and ChangedTouches on touchend).
type DeviceEvent struct {
	Type           string  `json:"type"`
	ClientX        float64 `json:"clientX"`
	ClientY        float64 `json:"clientY"`
	Touches        []Touch `json:"touches,omitempty"`
	ChangedTouches []Touch `json:"changedTouches,omitempty"`
	Key            string  `json:"key,omitempty"`

	// Manual adjustment values, used by the "adjust" event only.
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
}

// IsTouch reports whether the event came from a touch device
func (e DeviceEvent) IsTouch() bool {
	switch e.Type {
	case EventTouchStart, EventTouchMove, EventTouchEnd:
		return true
	}
	return false
}

// Normalize reduces mouse and touch events to one client-space point. The
// second result is false for touch events without any contact point.
func Normalize(e DeviceEvent) (orb.Point, bool) {
	if !e.IsTouch() {
		return orb.Point{e.ClientX, e.ClientY}, true
	}
	if len(e.Touches) > 0 {
		return orb.Point{e.Touches[0].ClientX, e.Touches[0].ClientY}, true
	}
	if len(e.ChangedTouches) > 0 {
		return orb.Point{e.ChangedTouches[0].ClientX, e.ChangedTouches[0].ClientY}, true
	}
	return orb.Point{}, false
}

// HitTest returns the id of the hold whose displayed marker contains the
// client point p. Markers drawn later sit on top, so the search runs from
// the end of the collection. radius is the marker radius in natural image
// pixels; it is scaled to display pixels using the surface width.
func HitTest(holds HoldCollection, p orb.Point, r SurfaceRect, natural Size, radius float64) (string, bool) {
	if r.Empty() || natural.Width <= 0 {
		return "", false
	}
	displayRadius := radius * r.Width / float64(natural.Width)
	for i := len(holds) - 1; i >= 0; i-- {
		centre := SurfaceToClient(orb.Point{holds[i].X, holds[i].Y}, r)
		if planar.Distance(centre, p) <= displayRadius {
			return holds[i].ID, true
		}
	}
	return "", false
}
