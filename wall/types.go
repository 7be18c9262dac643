package wall

import (
	"fmt"
	"math"
)

// HoldState is a marker's role in the climbing sequence
type HoldState string

const (
	StateStart        HoldState = "start"
	StateIntermediate HoldState = "intermediate"
	StateFinish       HoldState = "finish"
)

// legacyIntermediate is the name older share links use for StateIntermediate
const legacyIntermediate = "next"

// HoldStates lists every state in cycle order
var HoldStates = []HoldState{StateStart, StateIntermediate, StateFinish}

// Index returns the position of s in HoldStates, or -1 for an unknown state
func (s HoldState) Index() int {
	for i, hs := range HoldStates {
		if hs == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the defined states
func (s HoldState) Valid() bool {
	return s.Index() >= 0
}

// MarshalText implements encoding.TextMarshaler
func (s HoldState) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid hold state %q", string(s))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. The legacy name "next"
// is read as StateIntermediate.
func (s *HoldState) UnmarshalText(text []byte) error {
	v := HoldState(text)
	if string(text) == legacyIntermediate {
		v = StateIntermediate
	}
	if !v.Valid() {
		return fmt.Errorf("invalid hold state %q", string(text))
	}
	*s = v
	return nil
}

// Hold is a single annotated point on the wall image
type Hold struct {
	ID    string    `json:"id"`
	X     float64   `json:"x"` // percent of image width
	Y     float64   `json:"y"` // percent of image height
	State HoldState `json:"state"`
}

// HoldCollection is an ordered set of holds; order is insertion order
type HoldCollection []Hold

// Index returns the position of the hold with the given id, or -1
func (c HoldCollection) Index(id string) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the hold with the given id
func (c HoldCollection) Find(id string) (Hold, bool) {
	if i := c.Index(id); i >= 0 {
		return c[i], true
	}
	return Hold{}, false
}

// Clone returns an independent copy. A nil collection clones to an empty one
// so that it serializes as [] rather than null.
func (c HoldCollection) Clone() HoldCollection {
	out := make(HoldCollection, len(c))
	copy(out, c)
	return out
}

// Equal compares two collections element by element, in order
func (c HoldCollection) Equal(other HoldCollection) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// Count returns how many holds are in each state
func (c HoldCollection) Count() map[HoldState]int {
	counts := make(map[HoldState]int, len(HoldStates))
	for _, h := range c {
		counts[h.State]++
	}
	return counts
}

// Round2 rounds v to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Size is a pixel size of the reference image
type Size struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// DefaultImageSize is used until the reference image reports its own size
var DefaultImageSize = Size{Width: 1235, Height: 1674}

// Viewport describes the client's display class
type Viewport struct {
	Width  int  `json:"width"`
	Mobile bool `json:"mobile"`
}
