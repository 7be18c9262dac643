package wall

import (
	"errors"
	"log"

	"github.com/paulmach/orb"
)

// Device event types understood by the annotator. Pointer and touch names
// follow the DOM; the rest are issued by page controls.
const (
	EventMouseDown  = "mousedown"
	EventMouseMove  = "mousemove"
	EventMouseUp    = "mouseup"
	EventMouseLeave = "mouseleave"
	EventClick      = "click"
	EventTouchStart = "touchstart"
	EventTouchMove  = "touchmove"
	EventTouchEnd   = "touchend"
	EventKeyDown    = "keydown"
	EventAdjust     = "adjust"
	EventToggleAdd  = "toggle-add"
	EventReset      = "reset"
)

// KeyCancel deselects and leaves add mode
const KeyCancel = "Escape"

// Action names what a dispatched event did
type Action string

const (
	ActionIgnored    Action = "ignored"
	ActionAdded      Action = "added"
	ActionSelected   Action = "selected"
	ActionDeselected Action = "deselected"
	ActionMoved      Action = "moved"
	ActionAdjusted   Action = "adjusted"
	ActionCycled     Action = "cycled"
	ActionCancelled  Action = "cancelled"
	ActionToggled    Action = "toggled"
	ActionCleared    Action = "cleared"
)

// Navigator owns the navigable URL. Replace swaps the current query string
// in place: no new history entry, no reload.
type Navigator interface {
	Replace(query string)
}

// NavigatorFunc adapts a function to the Navigator interface
type NavigatorFunc func(query string)

// Replace calls f(query)
func (f NavigatorFunc) Replace(query string) { f(query) }

// Result describes the outcome of one dispatched event
type Result struct {
	Action    Action `json:"action"`
	HoldID    string `json:"holdId,omitempty"`
	Persisted bool   `json:"persisted"`
}

// Annotator is one wall annotation session. It wires device events through
// the coordinate mapper into the store and pushes every mutation to the
// navigator as a share query.
type Annotator struct {
	store     *Store
	nav       Navigator
	natural   Size
	markers   MarkerConfig
	lastParam *string
	pushes    int
}

// AnnotatorOption configures an Annotator
type AnnotatorOption func(*Annotator)

// WithNaturalSize sets the reference image's natural pixel size
func WithNaturalSize(s Size) AnnotatorOption {
	return func(a *Annotator) {
		if s.Width > 0 && s.Height > 0 {
			a.natural = s
		}
	}
}

// WithMarkers sets the marker sizing used for hit testing
func WithMarkers(m MarkerConfig) AnnotatorOption {
	return func(a *Annotator) {
		a.markers = m
	}
}

// WithIDSource overrides hold id generation
func WithIDSource(src IDSource) AnnotatorOption {
	return func(a *Annotator) {
		a.store.SetIDSource(src)
	}
}

// NewAnnotator creates an empty session. nav may be nil.
func NewAnnotator(nav Navigator, opts ...AnnotatorOption) *Annotator {
	a := &Annotator{
		nav:     nav,
		natural: DefaultImageSize,
		markers: DefaultMarkerConfig(),
	}
	a.store = NewStore(PersisterFunc(a.push))
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Store exposes the underlying hold store
func (a *Annotator) Store() *Store {
	return a.store
}

// NaturalSize returns the reference image size markers are laid out in
func (a *Annotator) NaturalSize() Size {
	return a.natural
}

func (a *Annotator) push(c HoldCollection) {
	a.pushes++
	param := Encode(c)
	a.lastParam = &param
	if a.nav != nil {
		a.nav.Replace("?" + QueryParam + "=" + param)
	}
}

// Navigate hydrates the store from the still-encoded holds query value of
// an external navigation. Repeating the value that was last seen (including
// one this session pushed itself) does nothing. A value that fails to
// decode is logged and replaced with an empty layout.
func (a *Annotator) Navigate(param string) error {
	if a.lastParam != nil && *a.lastParam == param {
		return nil
	}
	a.lastParam = &param

	holds, err := Decode(param)
	if err != nil {
		log.Printf("[WALL] ignoring shared layout: %v", err)
		a.store.Replace(HoldCollection{})
		return err
	}
	a.store.Replace(holds)
	return nil
}

// Restore re-applies UI state carried by a stateless client: the selected
// hold and whether add mode is on
func (a *Annotator) Restore(selected string, addMode bool) {
	a.store.SetAddMode(addMode)
	if selected == "" {
		a.store.Deselect()
		return
	}
	a.store.Select(selected)
}

// MarkerRadius is the marker radius for the given viewport, in natural
// image pixels
func (a *Annotator) MarkerRadius(vp Viewport) float64 {
	return a.markers.Radius(a.natural, vp)
}

// Dispatch applies one device event. rect must be measured for this event.
func (a *Annotator) Dispatch(e DeviceEvent, rect SurfaceRect, vp Viewport) (Result, error) {
	before := a.pushes
	res, err := a.dispatch(e, rect, vp)
	res.Persisted = a.pushes > before
	return res, err
}

func (a *Annotator) dispatch(e DeviceEvent, rect SurfaceRect, vp Viewport) (Result, error) {
	switch e.Type {
	case EventMouseDown, EventTouchStart:
		id, ok, err := a.hit(e, rect, vp)
		if err != nil || !ok {
			return Result{Action: ActionIgnored}, err
		}
		a.store.Select(id)
		return Result{Action: ActionSelected, HoldID: id}, nil

	case EventMouseMove, EventTouchMove:
		id := a.store.SelectedID()
		if id == "" {
			return Result{Action: ActionIgnored}, nil
		}
		pct, err := a.pointer(e, rect)
		if err != nil {
			return Result{Action: ActionIgnored}, err
		}
		pct = Clamp(pct)
		a.store.Reposition(id, pct.X(), pct.Y())
		return Result{Action: ActionMoved, HoldID: id}, nil

	case EventMouseUp, EventMouseLeave, EventTouchEnd:
		id := a.store.SelectedID()
		if id == "" {
			return Result{Action: ActionIgnored}, nil
		}
		a.store.Deselect()
		return Result{Action: ActionDeselected, HoldID: id}, nil

	case EventClick:
		id, ok, err := a.hit(e, rect, vp)
		if err != nil {
			return Result{Action: ActionIgnored}, err
		}
		if ok {
			a.store.CycleState(id)
			return Result{Action: ActionCycled, HoldID: id}, nil
		}
		if !a.store.AddMode() {
			return Result{Action: ActionIgnored}, nil
		}
		pct, err := a.pointer(e, rect)
		if err != nil {
			return Result{Action: ActionIgnored}, err
		}
		pct = Clamp(pct)
		h, _ := a.store.Add(pct.X(), pct.Y())
		return Result{Action: ActionAdded, HoldID: h.ID}, nil

	case EventKeyDown:
		if e.Key != KeyCancel {
			return Result{Action: ActionIgnored}, nil
		}
		a.store.Deselect()
		a.store.SetAddMode(false)
		return Result{Action: ActionCancelled}, nil

	case EventAdjust:
		return a.adjust(e), nil

	case EventToggleAdd:
		a.store.ToggleAddMode()
		return Result{Action: ActionToggled}, nil

	case EventReset:
		a.store.Clear()
		return Result{Action: ActionCleared}, nil
	}
	return Result{Action: ActionIgnored}, errors.New("unknown event type " + e.Type)
}

// adjust applies manual numeric coordinates to the selected hold. Values
// are rounded but not clamped.
func (a *Annotator) adjust(e DeviceEvent) Result {
	h, ok := a.store.Selected()
	if !ok {
		return Result{Action: ActionIgnored}
	}
	x, y := h.X, h.Y
	if e.X != nil {
		x = *e.X
	}
	if e.Y != nil {
		y = *e.Y
	}
	a.store.Reposition(h.ID, x, y)
	return Result{Action: ActionAdjusted, HoldID: h.ID}
}

func (a *Annotator) pointer(e DeviceEvent, rect SurfaceRect) (orb.Point, error) {
	p, ok := Normalize(e)
	if !ok {
		return orb.Point{}, errors.New("touch event without contact points")
	}
	return MapPointer(p, rect)
}

func (a *Annotator) hit(e DeviceEvent, rect SurfaceRect, vp Viewport) (string, bool, error) {
	p, ok := Normalize(e)
	if !ok {
		return "", false, errors.New("touch event without contact points")
	}
	if rect.Empty() {
		return "", false, ErrEmptySurface
	}
	id, found := HitTest(a.store.holds, p, rect, a.natural, a.MarkerRadius(vp))
	return id, found, nil
}
