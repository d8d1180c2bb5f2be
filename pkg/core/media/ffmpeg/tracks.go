package ffmpeg

import (
	"bufio"
	"context"
	"encoding/binary"
	"image"
	"io"
	"math"
	"time"

	"github.com/boncukgram/boncuk/pkg/core/codec"
	"github.com/boncukgram/boncuk/pkg/core/media"
)

type audioTrack struct {
	proc  *process
	queue *media.SampleQueue
	rate  int
}

func startAudio(cfg Config, args []string) (*audioTrack, error) {
	t := &audioTrack{
		queue: media.NewSampleQueue(cfg.SampleRate * 10),
		rate:  cfg.SampleRate,
	}
	logger := cfg.Logger.With("track", "audio")
	p, err := startProcess(cfg.Path, args, logger, func(r io.Reader) {
		defer t.queue.Close()
		reader := bufio.NewReaderSize(r, 64*1024)
		raw := make([]byte, 4*1024)
		pending := make([]byte, 0, 4*1024)
		startedAt := time.Now()
		warnedSilent := false
		var peak float64
		for {
			n, err := reader.Read(raw)
			if n > 0 {
				pending = append(pending, raw[:n]...)
				whole := len(pending) / 4 * 4
				samples := make([]float32, whole/4)
				for i := range samples {
					samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(pending[i*4:]))
				}
				pending = append(pending[:0], pending[whole:]...)
				if p := codec.PeakFloat(samples); p > peak {
					peak = p
				}
				if !warnedSilent && peak == 0 && time.Since(startedAt) > 3*time.Second {
					warnedSilent = true
					logger.Warn("microphone audio is all zeros; check the input device and microphone permission")
				}
				t.queue.Push(samples)
			}
			if err != nil {
				return
			}
		}
	})
	if err != nil {
		return nil, err
	}
	t.proc = p
	return t, nil
}

func (t *audioTrack) Kind() media.TrackKind { return media.KindAudio }
func (t *audioTrack) SampleRate() int       { return t.rate }
func (t *audioTrack) Live() bool            { return !t.queue.Closed() }

func (t *audioTrack) Stop() {
	t.proc.stop()
	t.queue.Close()
}

func (t *audioTrack) ReadBlock(ctx context.Context, n int) ([]float32, error) {
	return t.queue.ReadBlock(ctx, n)
}

type videoTrack struct {
	proc *process
	slot media.FrameSlot
}

func startVideo(cfg Config, args []string) (*videoTrack, error) {
	t := &videoTrack{}
	w, h := cfg.OutputWidth, cfg.OutputHeight
	p, err := startProcess(cfg.Path, args, cfg.Logger.With("track", "video"), func(r io.Reader) {
		defer t.slot.Close()
		frame := make([]byte, w*h*3)
		for {
			if _, err := io.ReadFull(r, frame); err != nil {
				return
			}
			t.slot.Store(rgb24ToRGBA(frame, w, h))
		}
	})
	if err != nil {
		return nil, err
	}
	t.proc = p
	return t, nil
}

func (t *videoTrack) Kind() media.TrackKind { return media.KindVideo }
func (t *videoTrack) Live() bool            { return !t.slot.Closed() }

func (t *videoTrack) Stop() {
	t.proc.stop()
	t.slot.Close()
}

func (t *videoTrack) Snapshot() (image.Image, error) {
	return t.slot.Load()
}

func rgb24ToRGBA(src []byte, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, j := 0, 0; i+2 < len(src) && j+3 < len(img.Pix); i, j = i+3, j+4 {
		img.Pix[j] = src[i]
		img.Pix[j+1] = src[i+1]
		img.Pix[j+2] = src[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}
