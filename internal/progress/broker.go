// Package progress relays upload progress from the pipeline to any number
// of watchers. Each in-flight upload owns one Tracker; the upload goroutine
// is the single writer, subscribers only read.
package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Update is one progress observation. Percent is non-decreasing in [0,100];
// the final Update has Done set and, on failure, a short Error message.
type Update struct {
	Percent float64 `json:"percent"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

// sessionTTL bounds how long a session stays registered. A page can mint a
// session and never post the upload (closed tab, cancelled picker), so every
// registration carries an expiry.
const sessionTTL = time.Hour

// Broker hands out Trackers keyed by an opaque session id.
type Broker struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*session
}

type session struct {
	tracker *Tracker
	expire  *time.Timer
}

func NewBroker() *Broker {
	return &Broker{ttl: sessionTTL, sessions: make(map[string]*session)}
}

// Start registers a new tracker and returns its session id. The registration
// expires after the TTL unless released first.
func (b *Broker) Start() (string, *Tracker) {
	id := uuid.NewString()
	t := newTracker()

	b.mu.Lock()
	b.sessions[id] = &session{
		tracker: t,
		expire:  time.AfterFunc(b.ttl, func() { b.Release(id) }),
	}
	b.mu.Unlock()

	return id, t
}

// Get returns the tracker for a session id, if it is still registered.
func (b *Broker) Get(id string) (*Tracker, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[id]
	if !ok {
		return nil, false
	}
	return s.tracker, true
}

// Release removes a finished session. Existing subscribers keep their
// channels; only new lookups miss.
func (b *Broker) Release(id string) {
	b.mu.Lock()
	if s, ok := b.sessions[id]; ok {
		s.expire.Stop()
		delete(b.sessions, id)
	}
	b.mu.Unlock()
}

// Tracker carries the progress of one upload.
type Tracker struct {
	mu      sync.Mutex
	current Update
	subs    map[chan Update]struct{}
}

func newTracker() *Tracker {
	return &Tracker{subs: make(map[chan Update]struct{})}
}

// Report records a new percentage. Values are clamped to [0,100] and
// regressions are dropped, so subscribers always observe a non-decreasing
// sequence. Reports after Finish are ignored.
func (t *Tracker) Report(percent float64) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current.Done || percent < t.current.Percent {
		return
	}
	t.current.Percent = percent
	t.broadcastLocked()
}

// Finish marks the upload terminal and closes all subscriber channels.
// A nil err means success.
func (t *Tracker) Finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current.Done {
		return
	}
	t.current.Done = true
	if err != nil {
		t.current.Error = err.Error()
	}
	t.broadcastLocked()

	for ch := range t.subs {
		close(ch)
	}
	t.subs = make(map[chan Update]struct{})
}

// Subscribe returns a channel of updates and a cancel function. The channel
// immediately yields the latest state, then every subsequent change, and is
// closed when the upload finishes. A subscriber that falls behind loses
// intermediate values, never the terminal one.
func (t *Tracker) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 16)

	t.mu.Lock()
	ch <- t.current
	if t.current.Done {
		t.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	t.subs[ch] = struct{}{}
	t.mu.Unlock()

	cancel := func() {
		t.mu.Lock()
		if _, ok := t.subs[ch]; ok {
			delete(t.subs, ch)
			close(ch)
		}
		t.mu.Unlock()
	}
	return ch, cancel
}

// Current returns the latest observed state.
func (t *Tracker) Current() Update {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *Tracker) broadcastLocked() {
	for ch := range t.subs {
		select {
		case ch <- t.current:
		default:
			// Slow subscriber: drop the intermediate value. The terminal
			// update still arrives because Finish closes after sending.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- t.current:
			default:
			}
		}
	}
}
