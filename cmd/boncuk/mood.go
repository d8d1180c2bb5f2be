package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/boncukgram/boncuk/pkg/core/advisor"
	"github.com/boncukgram/boncuk/pkg/core/media"
)

type moodOptions struct {
	capture  captureOptions
	facing   string
	frames   int
	interval time.Duration
	timeout  time.Duration
}

func newMoodCommand(a *app) *cobra.Command {
	opts := &moodOptions{}
	cmd := &cobra.Command{
		Use:   "mood",
		Short: "Record a few seconds of the bird and analyze its mood",
		Long: `Record a short burst of camera frames, one per second by default, and ask
the model to read the bird's body language.`,
		Example: `  boncuk mood
  boncuk mood --facing environment --frames 8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			facing, err := media.ParseFacingMode(opts.facing, media.FacingUser)
			if err != nil {
				return err
			}
			adv, err := a.advisor(cmd.Context())
			if err != nil {
				return err
			}
			return runMood(cmd.Context(), adv, opts.capture.devices(a), facing, *opts, cmd.OutOrStdout())
		},
	}

	opts.capture.register(cmd)
	flags := cmd.Flags()
	flags.StringVar(&opts.facing, "facing", string(media.FacingUser), "Camera to record: user or environment")
	flags.IntVar(&opts.frames, "frames", 6, "Frames to record")
	flags.DurationVar(&opts.interval, "interval", time.Second, "Time between frames")
	flags.DurationVar(&opts.timeout, "timeout", defaultTurnTimeout, "Analysis request timeout")
	return cmd
}

func runMood(ctx context.Context, adv *advisor.Advisor, devices media.Devices, facing media.FacingMode, opts moodOptions, out io.Writer) error {
	stream, err := media.AcquireWith(ctx, devices, media.Constraints{
		Video:  true,
		Facing: facing,
		Width:  1280,
		Height: 720,
	})
	if err != nil {
		return err
	}
	defer media.Release(stream)

	faint.Fprintf(out, "kayıt başlıyor (%s kamera)\n", facing)
	frames, err := advisor.RecordMoodFrames(ctx, stream.Video(), advisor.RecordOptions{
		Frames:   opts.frames,
		Interval: opts.interval,
		OnProgress: func(tick, total int) {
			fmt.Fprintf(out, "\r%s %d/%d", progressBar(tick, total, 20), tick, total)
		},
	})
	fmt.Fprintln(out)
	if err != nil {
		return err
	}
	// The camera is not needed while the model thinks.
	media.Release(stream)

	timeout := opts.timeout
	if timeout <= 0 {
		timeout = defaultTurnTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	faint.Fprintf(out, "%d kare analiz ediliyor...\n", len(frames))
	result, err := adv.MoodFromFrameSequence(ctx, frames)
	if err != nil {
		return err
	}
	botLabel.Fprint(out, "Ruh hali: ")
	fmt.Fprintln(out, result)
	return nil
}

func progressBar(done, total, width int) string {
	if total <= 0 {
		return ""
	}
	filled := done * width / total
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
