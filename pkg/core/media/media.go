// Package media acquires camera and microphone streams and exposes the
// current video frame and raw audio samples to the session producers.
package media

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/google/uuid"

	"github.com/boncukgram/boncuk/pkg/core"
)

// FacingMode selects the camera orientation.
type FacingMode string

const (
	FacingUser        FacingMode = "user"
	FacingEnvironment FacingMode = "environment"
)

// Valid reports whether m is a known facing mode.
func (m FacingMode) Valid() bool {
	return m == FacingUser || m == FacingEnvironment
}

// Opposite returns the other facing mode.
func (m FacingMode) Opposite() FacingMode {
	if m == FacingUser {
		return FacingEnvironment
	}
	return FacingUser
}

// ParseFacingMode parses s, falling back to def when s is empty.
func ParseFacingMode(s string, def FacingMode) (FacingMode, error) {
	if s == "" {
		return def, nil
	}
	m := FacingMode(s)
	if !m.Valid() {
		return "", core.NewInvalidRequestErrorWithParam("facing_mode must be user or environment", "facing_mode")
	}
	return m, nil
}

// TrackKind distinguishes audio and video tracks.
type TrackKind string

const (
	KindAudio TrackKind = "audio"
	KindVideo TrackKind = "video"
)

var (
	// ErrTrackEnded is returned by reads on a stopped track.
	ErrTrackEnded = errors.New("media: track ended")
	// ErrNoFrame is returned by Snapshot before the first frame is available.
	ErrNoFrame = errors.New("media: no frame available")
)

// Track is a single capture source.
type Track interface {
	Kind() TrackKind
	// Stop releases the underlying device. It is safe to call more than once.
	Stop()
	Live() bool
}

// AudioTrack yields mono float samples in [-1, 1].
type AudioTrack interface {
	Track
	SampleRate() int
	// ReadBlock blocks until n samples are available, the track ends, or ctx is done.
	ReadBlock(ctx context.Context, n int) ([]float32, error)
}

// VideoTrack exposes the most recent camera frame.
type VideoTrack interface {
	Track
	Snapshot() (image.Image, error)
}

// Constraints describes a capture request.
type Constraints struct {
	Audio  bool
	Video  bool
	Facing FacingMode
	// Ideal capture resolution; devices may deliver something else.
	Width  int
	Height int
}

// DefaultConstraints requests microphone plus camera at an ideal 1280x720.
func DefaultConstraints(facing FacingMode) Constraints {
	return Constraints{
		Audio:  true,
		Video:  true,
		Facing: facing,
		Width:  1280,
		Height: 720,
	}
}

// Tracks is what a device backend hands back for one request.
type Tracks struct {
	Audio AudioTrack
	Video VideoTrack
}

func (t Tracks) stop() {
	if t.Audio != nil {
		t.Audio.Stop()
	}
	if t.Video != nil {
		t.Video.Stop()
	}
}

// Devices is the getUserMedia equivalent. Implementations return
// core errors of type permission_denied or device_unavailable.
type Devices interface {
	GetUserMedia(ctx context.Context, c Constraints) (Tracks, error)
}

// CaptureStream owns one set of live capture tracks.
type CaptureStream struct {
	ID          string
	Facing      FacingMode
	Constraints Constraints

	audio AudioTrack
	video VideoTrack

	releaseOnce sync.Once
	mu          sync.Mutex
	released    bool
}

// Audio returns the microphone track, or nil for video-only streams.
func (s *CaptureStream) Audio() AudioTrack { return s.audio }

// Video returns the camera track, or nil for audio-only streams.
func (s *CaptureStream) Video() VideoTrack { return s.video }

// Tracks returns every non-nil track of the stream.
func (s *CaptureStream) Tracks() []Track {
	var out []Track
	if s.audio != nil {
		out = append(out, s.audio)
	}
	if s.video != nil {
		out = append(out, s.video)
	}
	return out
}

// Live reports whether the stream has not been released and still has a live track.
func (s *CaptureStream) Live() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if released {
		return false
	}
	for _, t := range s.Tracks() {
		if t.Live() {
			return true
		}
	}
	return false
}

// Acquire requests microphone and camera with the given facing mode.
func Acquire(ctx context.Context, d Devices, facing FacingMode) (*CaptureStream, error) {
	return AcquireWith(ctx, d, DefaultConstraints(facing))
}

// AcquireWith requests a stream with explicit constraints.
func AcquireWith(ctx context.Context, d Devices, c Constraints) (*CaptureStream, error) {
	if d == nil {
		return nil, core.NewDeviceUnavailableError("no capture devices configured", nil)
	}
	if !c.Audio && !c.Video {
		return nil, core.NewInvalidRequestError("at least one of audio or video must be requested")
	}
	if c.Facing == "" {
		c.Facing = FacingUser
	}

	tracks, err := d.GetUserMedia(ctx, c)
	if err != nil {
		if core.TypeOf(err) == "" {
			return nil, core.NewDeviceUnavailableError("capture request failed", err)
		}
		return nil, err
	}
	if (c.Audio && tracks.Audio == nil) || (c.Video && tracks.Video == nil) {
		tracks.stop()
		return nil, core.NewDeviceUnavailableError("requested track was not delivered", nil)
	}

	return &CaptureStream{
		ID:          uuid.NewString(),
		Facing:      c.Facing,
		Constraints: c,
		audio:       tracks.Audio,
		video:       tracks.Video,
	}, nil
}

// Switch stops every track of old and only then requests a new stream with
// the same constraints and the new facing mode. Holding the old device while
// opening the new one fails on common platforms.
func Switch(ctx context.Context, d Devices, old *CaptureStream, facing FacingMode) (*CaptureStream, error) {
	c := DefaultConstraints(facing)
	if old != nil {
		c = old.Constraints
		c.Facing = facing
	}
	Release(old)
	return AcquireWith(ctx, d, c)
}

// Release stops all tracks of s. It is nil-safe and idempotent.
func Release(s *CaptureStream) {
	if s == nil {
		return
	}
	s.releaseOnce.Do(func() {
		for _, t := range s.Tracks() {
			t.Stop()
		}
		s.mu.Lock()
		s.released = true
		s.mu.Unlock()
	})
}
