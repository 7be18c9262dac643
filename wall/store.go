package wall

import "github.com/google/uuid"

// Persister receives the full collection after every successful mutation
type Persister interface {
	Persist(HoldCollection)
}

// PersisterFunc adapts a function to the Persister interface
type PersisterFunc func(HoldCollection)

// Persist calls f(c)
func (f PersisterFunc) Persist(c HoldCollection) { f(c) }

// IDSource produces hold ids. Ids must never repeat within a collection.
type IDSource func() string

// NewUUID is the default IDSource
func NewUUID() string {
	return uuid.NewString()
}

// Store is the single source of truth for the holds on the wall, the
// current selection and add mode. It is owned by one annotator session and
// is not safe for concurrent use.
type Store struct {
	holds     HoldCollection
	selected  string
	addMode   bool
	persister Persister
	newID     IDSource
}

// NewStore creates an empty store. A nil persister disables persistence.
func NewStore(p Persister) *Store {
	return &Store{
		holds:     HoldCollection{},
		persister: p,
		newID:     NewUUID,
	}
}

// SetIDSource overrides how new hold ids are generated
func (s *Store) SetIDSource(src IDSource) {
	if src != nil {
		s.newID = src
	}
}

// Holds returns a copy of the current collection
func (s *Store) Holds() HoldCollection {
	return s.holds.Clone()
}

// Len returns the number of holds
func (s *Store) Len() int {
	return len(s.holds)
}

// AddMode reports whether clicks on the surface create holds
func (s *Store) AddMode() bool {
	return s.addMode
}

// SetAddMode switches add mode on or off
func (s *Store) SetAddMode(on bool) {
	s.addMode = on
}

// ToggleAddMode flips add mode and returns the new value
func (s *Store) ToggleAddMode() bool {
	s.addMode = !s.addMode
	return s.addMode
}

// Add appends a new start hold at the given percentages. It does nothing
// unless add mode is active.
func (s *Store) Add(x, y float64) (Hold, bool) {
	if !s.addMode {
		return Hold{}, false
	}
	id := s.newID()
	for id == "" || s.holds.Index(id) >= 0 {
		id = NewUUID()
	}
	h := Hold{ID: id, X: Round2(x), Y: Round2(y), State: StateStart}
	s.holds = append(s.holds, h)
	s.persist()
	return h, true
}

// Reposition moves the hold with the given id. Unknown ids are ignored.
func (s *Store) Reposition(id string, x, y float64) bool {
	i := s.holds.Index(id)
	if i < 0 {
		return false
	}
	s.holds[i].X = Round2(x)
	s.holds[i].Y = Round2(y)
	s.persist()
	return true
}

// CycleState advances a hold start -> intermediate -> finish -> removed.
// The selection is cleared whenever the id is known.
func (s *Store) CycleState(id string) bool {
	i := s.holds.Index(id)
	if i < 0 {
		return false
	}
	next := (s.holds[i].State.Index() + 1) % (len(HoldStates) + 1)
	if next < len(HoldStates) {
		s.holds[i].State = HoldStates[next]
	} else {
		s.holds = append(s.holds[:i], s.holds[i+1:]...)
	}
	s.selected = ""
	s.persist()
	return true
}

// Clear removes every hold, drops the selection and leaves add mode
func (s *Store) Clear() {
	s.holds = HoldCollection{}
	s.selected = ""
	s.addMode = false
	s.persist()
}

// Select makes id the drag/adjust target. Selecting an unknown id is a no-op.
func (s *Store) Select(id string) bool {
	if s.holds.Index(id) < 0 {
		return false
	}
	s.selected = id
	return true
}

// Deselect clears the selection
func (s *Store) Deselect() {
	s.selected = ""
}

// SelectedID returns the selected hold id, or "" when nothing is selected
func (s *Store) SelectedID() string {
	return s.selected
}

// Selected returns the selected hold
func (s *Store) Selected() (Hold, bool) {
	if s.selected == "" {
		return Hold{}, false
	}
	return s.holds.Find(s.selected)
}

// Replace swaps in a whole collection, as on hydration from a URL. It does
// not persist. A selection that no longer exists is dropped.
func (s *Store) Replace(c HoldCollection) {
	s.holds = c.Clone()
	if s.selected != "" && s.holds.Index(s.selected) < 0 {
		s.selected = ""
	}
}

func (s *Store) persist() {
	if s.persister != nil {
		s.persister.Persist(s.holds.Clone())
	}
}
