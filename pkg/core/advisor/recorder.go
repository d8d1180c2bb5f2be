package advisor

import (
	"context"
	"errors"
	"time"

	"github.com/boncukgram/boncuk/pkg/core/media"
)

// RecordOptions configures a mood frame burst.
type RecordOptions struct {
	// Frames to capture. Default: 6.
	Frames int
	// Interval between captures. Default: 1s.
	Interval time.Duration
	// Frame defaults to media.MoodFrameSpec (320x240, quality 50).
	Frame media.FrameSpec
	// OnProgress is called after every tick with the ticks elapsed.
	OnProgress func(tick, total int)
}

func (o RecordOptions) withDefaults() RecordOptions {
	if o.Frames <= 0 {
		o.Frames = 6
	}
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Frame.Width <= 0 || o.Frame.Height <= 0 {
		o.Frame = media.MoodFrameSpec
	}
	return o
}

// RecordMoodFrames snapshots v once per interval for the configured number
// of ticks. Ticks where the camera has no frame yet are skipped, so fewer
// frames than requested may come back.
func RecordMoodFrames(ctx context.Context, v media.VideoTrack, opts RecordOptions) ([][]byte, error) {
	opts = opts.withDefaults()
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	frames := make([][]byte, 0, opts.Frames)
	for tick := 1; tick <= opts.Frames; tick++ {
		select {
		case <-ctx.Done():
			return frames, ctx.Err()
		case <-ticker.C:
		}

		jpeg, err := media.SnapshotJPEG(v, opts.Frame)
		switch {
		case err == nil:
			frames = append(frames, jpeg)
		case errors.Is(err, media.ErrNoFrame):
		default:
			return frames, err
		}
		if opts.OnProgress != nil {
			opts.OnProgress(tick, opts.Frames)
		}
	}
	return frames, nil
}

// AnalyzeMood records a frame burst from v and runs MoodFromFrameSequence.
func (a *Advisor) AnalyzeMood(ctx context.Context, v media.VideoTrack, opts RecordOptions) (string, error) {
	frames, err := RecordMoodFrames(ctx, v, opts)
	if err != nil {
		return "", err
	}
	a.logger.Debug("mood frames recorded", "frames", len(frames))
	return a.MoodFromFrameSequence(ctx, frames)
}
