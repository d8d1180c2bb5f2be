package media

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"sync"

	"github.com/boncukgram/boncuk/pkg/core"
)

// PushDevices hands out tracks that are fed by the caller, typically a
// WebSocket client that owns the real camera and microphone.
type PushDevices struct {
	SampleRate int
	// MaxBufferedSamples bounds the audio backlog per track.
	MaxBufferedSamples int
}

// GetUserMedia returns fresh push tracks for every requested kind.
func (d *PushDevices) GetUserMedia(ctx context.Context, c Constraints) (Tracks, error) {
	if err := ctx.Err(); err != nil {
		return Tracks{}, err
	}
	var t Tracks
	if c.Audio {
		rate := d.SampleRate
		if rate <= 0 {
			rate = 16000
		}
		backlog := d.MaxBufferedSamples
		if backlog <= 0 {
			backlog = rate * 10
		}
		t.Audio = &PushAudioTrack{rate: rate, queue: NewSampleQueue(backlog)}
	}
	if c.Video {
		t.Video = &PushVideoTrack{}
	}
	return t, nil
}

// PushAudioTrack is an AudioTrack fed through Push.
type PushAudioTrack struct {
	rate  int
	queue *SampleQueue
}

func (t *PushAudioTrack) Kind() TrackKind { return KindAudio }
func (t *PushAudioTrack) SampleRate() int { return t.rate }
func (t *PushAudioTrack) Stop()           { t.queue.Close() }
func (t *PushAudioTrack) Live() bool      { return !t.queue.Closed() }

// ReadBlock implements AudioTrack.
func (t *PushAudioTrack) ReadBlock(ctx context.Context, n int) ([]float32, error) {
	return t.queue.ReadBlock(ctx, n)
}

// Push appends captured samples.
func (t *PushAudioTrack) Push(samples []float32) {
	t.queue.Push(samples)
}

// PushVideoTrack is a VideoTrack fed with encoded frames. Frames are decoded
// lazily, only when a snapshot is taken.
type PushVideoTrack struct {
	mu      sync.Mutex
	encoded []byte
	decoded image.Image
	stopped bool
}

func (t *PushVideoTrack) Kind() TrackKind { return KindVideo }

func (t *PushVideoTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.encoded = nil
	t.decoded = nil
}

func (t *PushVideoTrack) Live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.stopped
}

// PushJPEG replaces the current frame with a JPEG image.
func (t *PushVideoTrack) PushJPEG(b []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.encoded = b
	t.decoded = nil
}

// Snapshot implements VideoTrack.
func (t *PushVideoTrack) Snapshot() (image.Image, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return nil, ErrTrackEnded
	}
	if t.decoded != nil {
		return t.decoded, nil
	}
	if len(t.encoded) == 0 {
		return nil, ErrNoFrame
	}
	img, err := jpeg.Decode(bytes.NewReader(t.encoded))
	if err != nil {
		t.encoded = nil
		return nil, core.NewDecodeError("client frame is not a valid jpeg", err)
	}
	t.decoded = img
	return img, nil
}
