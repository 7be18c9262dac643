package wall

import (
	"sync"
	"time"
)

// BoardSnapshot is the point-in-time view reported on /health
type BoardSnapshot struct {
	BrokerConnected bool      `json:"brokerConnected"`
	BoardStatus     string    `json:"boardStatus,omitempty"`
	StatusAt        time.Time `json:"statusAt,omitzero"`
	LastPublished   string    `json:"lastPublished,omitempty"`
	PublishedAt     time.Time `json:"publishedAt,omitzero"`
	Published       int       `json:"published"`
}

// StatusTracker records board connectivity for HTTP endpoints
type StatusTracker struct {
	mu   sync.RWMutex
	snap BoardSnapshot
	now  func() time.Time
}

// NewStatusTracker creates an empty tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{now: time.Now}
}

// SetBrokerConnected records the broker connection state
func (st *StatusTracker) SetBrokerConnected(connected bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.snap.BrokerConnected = connected
}

// SetBoardStatus records the latest status the board announced
func (st *StatusTracker) SetBoardStatus(status string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.snap.BoardStatus = status
	st.snap.StatusAt = st.now()
}

// RecordPublish notes a layout query sent to the board
func (st *StatusTracker) RecordPublish(query string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.snap.LastPublished = query
	st.snap.PublishedAt = st.now()
	st.snap.Published++
}

// Snapshot returns a copy of the current state
func (st *StatusTracker) Snapshot() BoardSnapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.snap
}
