// Package sessions tracks open /v1/live relays so the gateway can cap
// concurrency and drain them on shutdown.
package sessions

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Handle lets the tracker reach into a running relay.
type Handle struct {
	// Cancel stops the relay and its live session.
	Cancel func()
	// Warn sends a non-fatal notice to the client.
	Warn func(code, message string) error
}

// Info describes a tracked relay.
type Info struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

type Tracker struct {
	limit int

	mu       sync.Mutex
	sessions map[string]*trackedSession
	wg       sync.WaitGroup
}

type trackedSession struct {
	handle  Handle
	started time.Time
	once    sync.Once
}

// NewTracker returns a tracker admitting at most limit concurrent
// sessions. A limit <= 0 means unlimited.
func NewTracker(limit int) *Tracker {
	return &Tracker{
		limit:    limit,
		sessions: make(map[string]*trackedSession),
	}
}

// Register adds a session, replacing any entry with the same id. It returns
// ok=false without registering when the tracker is full.
func (t *Tracker) Register(sessionID string, h Handle) (unregister func(), ok bool) {
	if t == nil {
		return func() {}, true
	}

	entry := &trackedSession{handle: h, started: time.Now()}

	t.mu.Lock()
	if t.sessions == nil {
		t.sessions = make(map[string]*trackedSession)
	}
	old := t.sessions[sessionID]
	if old == nil && t.limit > 0 && len(t.sessions) >= t.limit {
		t.mu.Unlock()
		return func() {}, false
	}
	t.sessions[sessionID] = entry
	t.wg.Add(1)
	t.mu.Unlock()

	if old != nil {
		t.unregister(sessionID, old)
	}

	return func() { t.unregister(sessionID, entry) }, true
}

func (t *Tracker) unregister(sessionID string, entry *trackedSession) {
	if t == nil || entry == nil {
		return
	}
	entry.once.Do(func() {
		t.mu.Lock()
		if t.sessions != nil && t.sessions[sessionID] == entry {
			delete(t.sessions, sessionID)
		}
		t.mu.Unlock()
		t.wg.Done()
	})
}

func (t *Tracker) Count() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// Limit returns the configured cap, 0 when unlimited.
func (t *Tracker) Limit() int {
	if t == nil || t.limit < 0 {
		return 0
	}
	return t.limit
}

// List returns the tracked sessions, oldest first.
func (t *Tracker) List() []Info {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	out := make([]Info, 0, len(t.sessions))
	for id, entry := range t.sessions {
		out = append(out, Info{ID: id, StartedAt: entry.started})
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// WarnAll notifies every session, ignoring send errors.
func (t *Tracker) WarnAll(code, message string) (sent int) {
	if t == nil {
		return 0
	}

	var warns []func(code, message string) error
	t.mu.Lock()
	for _, entry := range t.sessions {
		if entry == nil || entry.handle.Warn == nil {
			continue
		}
		warns = append(warns, entry.handle.Warn)
	}
	t.mu.Unlock()

	for _, warn := range warns {
		_ = warn(code, message)
		sent++
	}
	return sent
}

func (t *Tracker) CancelAll() (canceled int) {
	if t == nil {
		return 0
	}

	var cancels []func()
	t.mu.Lock()
	for _, entry := range t.sessions {
		if entry == nil || entry.handle.Cancel == nil {
			continue
		}
		cancels = append(cancels, entry.handle.Cancel)
	}
	t.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
		canceled++
	}
	return canceled
}

// Wait blocks until every session unregisters or ctx ends. It reports
// whether the tracker drained.
func (t *Tracker) Wait(ctx context.Context) bool {
	if t == nil {
		return true
	}
	if ctx == nil {
		t.wg.Wait()
		return true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		t.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
