package media

import (
	"context"
	"image"
	"sync"
)

// SampleQueue buffers mono float samples between a capture source and a
// block reader. When more than maxSamples are buffered the oldest samples
// are discarded.
type SampleQueue struct {
	mu         sync.Mutex
	buf        []float32
	maxSamples int
	closed     bool
	notify     chan struct{}
}

// NewSampleQueue creates a queue that holds at most maxSamples samples.
func NewSampleQueue(maxSamples int) *SampleQueue {
	if maxSamples <= 0 {
		maxSamples = 16000 * 10
	}
	return &SampleQueue{
		maxSamples: maxSamples,
		notify:     make(chan struct{}),
	}
}

// Push appends samples and wakes blocked readers.
func (q *SampleQueue) Push(samples []float32) {
	if len(samples) == 0 {
		return
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.buf = append(q.buf, samples...)
	if excess := len(q.buf) - q.maxSamples; excess > 0 {
		q.buf = append(q.buf[:0], q.buf[excess:]...)
	}
	q.wakeLocked()
	q.mu.Unlock()
}

// ReadBlock waits for exactly n samples.
func (q *SampleQueue) ReadBlock(ctx context.Context, n int) ([]float32, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, ErrTrackEnded
		}
		if n > 0 && len(q.buf) >= n {
			out := make([]float32, n)
			copy(out, q.buf[:n])
			q.buf = append(q.buf[:0], q.buf[n:]...)
			q.mu.Unlock()
			return out, nil
		}
		wait := q.notify
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wait:
		}
	}
}

// Buffered returns the number of samples waiting.
func (q *SampleQueue) Buffered() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Close ends the queue; pending and future reads return ErrTrackEnded.
func (q *SampleQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.buf = nil
	q.wakeLocked()
}

// Closed reports whether Close has been called.
func (q *SampleQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *SampleQueue) wakeLocked() {
	close(q.notify)
	q.notify = make(chan struct{})
}

// FrameSlot holds the latest decoded video frame.
type FrameSlot struct {
	mu     sync.Mutex
	frame  image.Image
	closed bool
}

// Store replaces the current frame.
func (s *FrameSlot) Store(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.frame = img
}

// Load returns the current frame.
func (s *FrameSlot) Load() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrTrackEnded
	}
	if s.frame == nil {
		return nil, ErrNoFrame
	}
	return s.frame, nil
}

// Close drops the frame and makes future loads fail with ErrTrackEnded.
func (s *FrameSlot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.frame = nil
}

// Closed reports whether Close has been called.
func (s *FrameSlot) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
