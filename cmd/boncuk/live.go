package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/boncukgram/boncuk/pkg/core/live"
	"github.com/boncukgram/boncuk/pkg/core/media"
	"github.com/boncukgram/boncuk/pkg/core/playback"
)

var (
	statusConnecting = color.New(color.FgYellow, color.Bold)
	statusActive     = color.New(color.FgGreen, color.Bold)
	statusFailed     = color.New(color.FgRed, color.Bold)
	speakingOn       = color.New(color.FgMagenta)
)

type liveOptions struct {
	capture   captureOptions
	facing    string
	ffplay    string
	volume    int
	noSpeaker bool
}

// liveDeps are the pieces a terminal live session is assembled from.
type liveDeps struct {
	connector live.Connector
	devices   media.Devices
	clock     playback.Clock
	sink      playback.Sink
	logger    *slog.Logger
}

func newLiveCommand(a *app) *cobra.Command {
	opts := &liveOptions{}
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Start a live audio and video session with the model",
		Long: `Stream the microphone and camera to the realtime model and play its
spoken answers through ffplay.

While the session runs, type "s" and Enter to switch between the front and
back camera, or "q" to stop. Ctrl-C also stops the session.`,
		Example: `  boncuk live
  boncuk live --facing user --no-speaker`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			facing, err := media.ParseFacingMode(opts.facing, media.FacingEnvironment)
			if err != nil {
				return err
			}
			provider, err := a.provider(cmd.Context())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps := liveDeps{
				connector: provider,
				devices:   opts.capture.devices(a),
				clock:     playback.NewWallClock(),
				logger:    a.logger,
			}
			if opts.noSpeaker {
				deps.sink = playback.DiscardSink{}
			} else {
				speaker := playback.NewFFPlaySink(deps.clock, playback.FFPlayConfig{
					Path:   opts.ffplay,
					Volume: opts.volume,
					Logger: a.logger,
				})
				if err := speaker.Start(); err != nil {
					return fmt.Errorf("start speaker: %w", err)
				}
				defer speaker.Close()
				deps.sink = speaker
			}

			cfg := a.clientConfig()
			return runLive(ctx, deps, live.Config{Model: cfg.LiveModel, Voice: cfg.LiveVoice}, facing, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	opts.capture.register(cmd)
	flags := cmd.Flags()
	flags.StringVar(&opts.facing, "facing", string(media.FacingEnvironment), "Camera to start with: user or environment")
	flags.StringVar(&opts.ffplay, "ffplay", "ffplay", "Path to the ffplay executable")
	flags.IntVar(&opts.volume, "volume", 80, "Speaker volume, 0-100")
	flags.BoolVar(&opts.noSpeaker, "no-speaker", false, "Do not play the model's audio")
	return cmd
}

// runLive starts a session and renders its events until it closes. Lines
// read from in control the session.
func runLive(ctx context.Context, deps liveDeps, cfg live.Config, facing media.FacingMode, in io.Reader, out io.Writer) error {
	mgr := live.NewManager(live.Options{
		Connector: deps.connector,
		Devices:   deps.devices,
		Config:    cfg,
		Clock:     deps.clock,
		Sink:      deps.sink,
		Logger:    deps.logger,
	})

	printStatus(out, live.StateIdle, live.StatusReady)
	sess, err := mgr.StartCapture(ctx, facing)
	if err != nil {
		printStatus(out, live.StateClosed, live.StatusFailed)
		return err
	}
	defer sess.Stop()

	go readLiveCommands(ctx, sess, in, out)

	for ev := range sess.Events() {
		switch e := ev.(type) {
		case *live.StateChangedEvent:
			printStatus(out, e.To, e.Text)
		case *live.SpeakingEvent:
			if e.Speaking {
				speakingOn.Fprintln(out, "Boncuk konuşuyor...")
			} else {
				faint.Fprintln(out, "dinliyor")
			}
		case *live.CameraSwitchedEvent:
			faint.Fprintf(out, "kamera: %s\n", e.Facing)
		}
	}

	stats := sess.Stats()
	faint.Fprintf(out, "gönderilen ses: %d, kare: %d, çalınan yanıt: %d\n", stats.AudioSent, stats.FramesSent, stats.BuffersPlayed)
	return sess.Err()
}

func readLiveCommands(ctx context.Context, sess *live.Session, in io.Reader, out io.Writer) {
	if in == nil {
		return
	}
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "s", "switch":
			stream := sess.Stream()
			if stream == nil {
				continue
			}
			err := sess.SwitchCamera(ctx, stream.Facing.Opposite())
			switch {
			case err == nil:
			case errors.Is(err, live.ErrNotActive), errors.Is(err, live.ErrSwitchInProgress):
				faint.Fprintf(out, "kamera değiştirilemedi: %v\n", err)
			default:
				return
			}
		case "q", "quit", "stop":
			sess.Stop()
			return
		}
	}
}

func printStatus(out io.Writer, state live.State, text string) {
	c := faint
	switch state {
	case live.StateConnecting:
		c = statusConnecting
	case live.StateActive:
		c = statusActive
	case live.StateClosed:
		if text == live.StatusFailed {
			c = statusFailed
		}
	}
	c.Fprintf(out, "● %s\n", text)
}
