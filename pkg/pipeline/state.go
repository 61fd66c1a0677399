package pipeline

import (
	"sync"
	"time"
)

// FetchState is the lifecycle of a backend fetch as seen by a caller.
//
//	Idle → Loading → Ready | Failed
//
// A Ready or Failed fetch may start Loading again.
type FetchState int

const (
	Idle FetchState = iota
	Loading
	Ready
	Failed
)

func (s FetchState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s FetchState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Status is a snapshot of one tracked fetch.
type Status struct {
	State     FetchState `json:"state"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Tracker records the FetchState of fetches keyed by an arbitrary ID.
// It is safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	m        map[string]Status
	inflight map[string]int
	now      func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{m: make(map[string]Status), inflight: make(map[string]int), now: time.Now}
}

// Start moves id to Loading and counts one more fetch in flight. It reports
// false if id was already loading. Every Start must be paired with a Finish.
func (t *Tracker) Start(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id]++
	if t.inflight[id] > 1 {
		return false
	}
	t.m[id] = Status{State: Loading, UpdatedAt: t.now()}
	return true
}

// Finish ends one fetch of id. When it was the last in flight, id moves to
// Ready, or to Failed when err is non-nil; otherwise id stays Loading.
func (t *Tracker) Finish(id string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n := t.inflight[id]; n > 1 {
		t.inflight[id] = n - 1
		return
	}
	delete(t.inflight, id)

	st := Status{State: Ready, UpdatedAt: t.now()}
	if err != nil {
		st.State = Failed
		st.Error = err.Error()
	}
	t.m[id] = st
}

// Get returns the status of id. Unknown IDs are Idle.
func (t *Tracker) Get(id string) Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.m[id]
}
