// Package playback schedules decoded audio buffers back to back on a clock
// so that chunks arriving with network jitter play without gaps or overlap.
package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/boncukgram/boncuk/pkg/core/codec"
)

// Sink renders a buffer starting at an absolute clock position.
type Sink interface {
	Play(at time.Duration, buf codec.PlayableBuffer) error
}

// Options tunes a Scheduler.
type Options struct {
	// HoldSpeakingUntilDrained keeps the speaking flag set until the last
	// pending buffer ends. When false every buffer end clears the flag, so
	// the indicator can flicker between back-to-back buffers.
	HoldSpeakingUntilDrained bool
	// OnSpeaking is called on every speaking flag change, outside the lock.
	OnSpeaking func(speaking bool)
	Logger     *slog.Logger
}

// Slot is where a buffer landed on the timeline.
type Slot struct {
	Start    time.Duration
	Duration time.Duration
}

// End returns Start + Duration.
func (s Slot) End() time.Duration { return s.Start + s.Duration }

// Scheduler owns the playback cursor. Schedule must be called in arrival
// order; it is the only writer of the cursor.
type Scheduler struct {
	clock Clock
	sink  Sink
	opts  Options

	mu        sync.Mutex
	nextStart time.Duration
	speaking  bool
	pending   int
	timers    map[uint64]Timer
	seq       uint64
	closed    bool
}

// New creates a scheduler with its cursor at zero.
func New(clock Clock, sink Sink, opts Options) *Scheduler {
	if clock == nil {
		clock = NewWallClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scheduler{
		clock:  clock,
		sink:   sink,
		opts:   opts,
		timers: make(map[uint64]Timer),
	}
}

// Schedule starts buf at max(now, cursor) and advances the cursor by the
// buffer's duration.
func (s *Scheduler) Schedule(buf codec.PlayableBuffer) (Slot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Slot{}, ErrClosed
	}

	now := s.clock.Now()
	start := s.nextStart
	if now > start {
		start = now
	}
	slot := Slot{Start: start, Duration: buf.Duration()}

	if s.sink != nil {
		if err := s.sink.Play(start, buf); err != nil {
			s.mu.Unlock()
			return Slot{}, err
		}
	}
	s.nextStart = slot.End()
	s.pending++
	s.seq++
	id := s.seq
	s.timers[id] = s.clock.AfterFunc(slot.End()-now, func() { s.ended(id) })
	changed := !s.speaking
	s.speaking = true
	s.mu.Unlock()

	if changed {
		s.notify(true)
	}
	return slot, nil
}

func (s *Scheduler) ended(id uint64) {
	s.mu.Lock()
	if _, ok := s.timers[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	s.pending--
	release := !s.opts.HoldSpeakingUntilDrained || s.pending == 0
	changed := release && s.speaking
	if release {
		s.speaking = false
	}
	s.mu.Unlock()

	if changed {
		s.notify(false)
	}
}

func (s *Scheduler) notify(speaking bool) {
	if s.opts.OnSpeaking != nil {
		s.opts.OnSpeaking(speaking)
	}
}

// NextStartTime returns the playback cursor.
func (s *Scheduler) NextStartTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}

// Speaking reports whether the remote side is considered to be speaking.
func (s *Scheduler) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// Pending returns the number of scheduled buffers that have not ended.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Now returns the scheduler's clock position.
func (s *Scheduler) Now() time.Duration {
	return s.clock.Now()
}

// Close cancels end-of-buffer callbacks and clears the speaking flag.
// Further Schedule calls fail with ErrClosed.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.pending = 0
	changed := s.speaking
	s.speaking = false
	s.mu.Unlock()

	if changed {
		s.notify(false)
	}
}
