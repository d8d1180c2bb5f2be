// Package mediatest provides in-memory capture devices for tests.
package mediatest

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/boncukgram/boncuk/pkg/core/media"
)

// Devices records every capture request and track stop in order.
type Devices struct {
	mu     sync.Mutex
	events []string
	tracks []*track
	seq    int

	// Err, when set, is returned by the next GetUserMedia call and then cleared.
	Err error
	// Gate, when set, blocks GetUserMedia until it is closed or ctx ends.
	Gate chan struct{}
	// Frame is served by video tracks; a gray 64x48 image when nil.
	Frame image.Image
}

// GetUserMedia implements media.Devices.
func (d *Devices) GetUserMedia(ctx context.Context, c media.Constraints) (media.Tracks, error) {
	d.mu.Lock()
	gate := d.Gate
	d.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return media.Tracks{}, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, "getUserMedia:"+string(c.Facing))
	if err := d.Err; err != nil {
		d.Err = nil
		return media.Tracks{}, err
	}

	frame := d.Frame
	if frame == nil {
		frame = grayFrame()
	}
	var out media.Tracks
	if c.Audio {
		t := d.newTrackLocked(media.KindAudio)
		out.Audio = &AudioTrack{track: t, Queue: media.NewSampleQueue(16000 * 10)}
	}
	if c.Video {
		t := d.newTrackLocked(media.KindVideo)
		v := &VideoTrack{track: t}
		v.Slot.Store(frame)
		out.Video = v
	}
	return out, nil
}

// Events returns a copy of the ordered event log.
func (d *Devices) Events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

// LiveTracks counts tracks that have not been stopped.
func (d *Devices) LiveTracks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, t := range d.tracks {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Requests counts GetUserMedia calls that reached the device.
func (d *Devices) Requests() int {
	n := 0
	for _, ev := range d.Events() {
		if len(ev) > 13 && ev[:13] == "getUserMedia:" {
			n++
		}
	}
	return n
}

func (d *Devices) newTrackLocked(kind media.TrackKind) *track {
	d.seq++
	t := &track{owner: d, kind: kind, id: d.seq}
	d.tracks = append(d.tracks, t)
	return t
}

type track struct {
	owner   *Devices
	kind    media.TrackKind
	id      int
	stopped bool
}

func (t *track) stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	t.owner.events = append(t.owner.events, fmt.Sprintf("stop:%s:%d", t.kind, t.id))
	return true
}

func (t *track) live() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	return !t.stopped
}

// AudioTrack is a fake microphone; tests feed it through Queue.
type AudioTrack struct {
	*track
	Queue *media.SampleQueue
}

func (a *AudioTrack) Kind() media.TrackKind { return media.KindAudio }
func (a *AudioTrack) SampleRate() int       { return 16000 }
func (a *AudioTrack) Live() bool            { return a.live() }

func (a *AudioTrack) Stop() {
	if a.stop() {
		a.Queue.Close()
	}
}

func (a *AudioTrack) ReadBlock(ctx context.Context, n int) ([]float32, error) {
	return a.Queue.ReadBlock(ctx, n)
}

// VideoTrack is a fake camera serving a fixed frame.
type VideoTrack struct {
	*track
	Slot media.FrameSlot
}

func (v *VideoTrack) Kind() media.TrackKind { return media.KindVideo }
func (v *VideoTrack) Live() bool            { return v.live() }

func (v *VideoTrack) Stop() {
	if v.stop() {
		v.Slot.Close()
	}
}

func (v *VideoTrack) Snapshot() (image.Image, error) {
	return v.Slot.Load()
}

func grayFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	return img
}
