// Package ffmpeg captures microphone and camera through ffmpeg child
// processes. Audio is read as f32le mono at 16 kHz and video as raw rgb24
// frames, so no decoding happens on the hot path.
package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/boncukgram/boncuk/pkg/core"
	"github.com/boncukgram/boncuk/pkg/core/media"
)

// Config selects the ffmpeg binary and the platform devices.
type Config struct {
	Path string

	// AudioFormat/AudioDevice feed ffmpeg's -f/-i for the microphone.
	AudioFormat string
	AudioDevice string
	SampleRate  int

	// VideoFormat is the ffmpeg input format for cameras; VideoDevices maps
	// facing modes to device names.
	VideoFormat  string
	VideoDevices map[media.FacingMode]string
	FrameRate    int
	// OutputWidth/OutputHeight is the size ffmpeg scales frames to.
	OutputWidth  int
	OutputHeight int

	// StartupTimeout bounds how long Acquire waits for the first bytes.
	StartupTimeout time.Duration

	Logger *slog.Logger
	Debug  bool
}

// DefaultConfig returns device defaults for the current platform.
func DefaultConfig() Config {
	cfg := Config{
		Path:           "ffmpeg",
		SampleRate:     16000,
		FrameRate:      5,
		OutputWidth:    640,
		OutputHeight:   480,
		StartupTimeout: 5 * time.Second,
	}
	switch runtime.GOOS {
	case "darwin":
		cfg.AudioFormat = "avfoundation"
		cfg.AudioDevice = "none:0"
		cfg.VideoFormat = "avfoundation"
		cfg.VideoDevices = map[media.FacingMode]string{
			media.FacingUser:        "0:none",
			media.FacingEnvironment: "1:none",
		}
	default:
		cfg.AudioFormat = "alsa"
		cfg.AudioDevice = "default"
		cfg.VideoFormat = "v4l2"
		cfg.VideoDevices = map[media.FacingMode]string{
			media.FacingUser:        "/dev/video0",
			media.FacingEnvironment: "/dev/video2",
		}
	}
	return cfg
}

// Devices implements media.Devices with ffmpeg.
type Devices struct {
	cfg Config
}

// New returns ffmpeg-backed devices. Zero fields of cfg take platform defaults.
func New(cfg Config) *Devices {
	def := DefaultConfig()
	if strings.TrimSpace(cfg.Path) == "" {
		cfg.Path = def.Path
	}
	if cfg.AudioFormat == "" {
		cfg.AudioFormat = def.AudioFormat
	}
	if cfg.AudioDevice == "" {
		cfg.AudioDevice = def.AudioDevice
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.VideoFormat == "" {
		cfg.VideoFormat = def.VideoFormat
	}
	if len(cfg.VideoDevices) == 0 {
		cfg.VideoDevices = def.VideoDevices
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = def.FrameRate
	}
	if cfg.OutputWidth <= 0 || cfg.OutputHeight <= 0 {
		cfg.OutputWidth, cfg.OutputHeight = def.OutputWidth, def.OutputHeight
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = def.StartupTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Devices{cfg: cfg}
}

// GetUserMedia starts one ffmpeg process per requested track and waits for
// each to deliver its first bytes.
func (d *Devices) GetUserMedia(ctx context.Context, c media.Constraints) (media.Tracks, error) {
	var out media.Tracks
	if c.Audio {
		a, err := startAudio(d.cfg, d.audioArgs())
		if err != nil {
			return media.Tracks{}, err
		}
		if err := a.proc.awaitReady(ctx, d.cfg.StartupTimeout); err != nil {
			a.Stop()
			return media.Tracks{}, err
		}
		out.Audio = a
	}
	if c.Video {
		args, err := d.videoArgs(c)
		if err != nil {
			if out.Audio != nil {
				out.Audio.Stop()
			}
			return media.Tracks{}, err
		}
		v, err := startVideo(d.cfg, args)
		if err == nil {
			err = v.proc.awaitReady(ctx, d.cfg.StartupTimeout)
			if err != nil {
				v.Stop()
			}
		}
		if err != nil {
			if out.Audio != nil {
				out.Audio.Stop()
			}
			return media.Tracks{}, err
		}
		out.Video = v
	}
	return out, nil
}

func (d *Devices) audioArgs() []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", d.cfg.AudioFormat,
		"-i", d.cfg.AudioDevice,
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", d.cfg.SampleRate),
		"-f", "f32le",
		"-",
	}
}

func (d *Devices) videoArgs(c media.Constraints) ([]string, error) {
	device, ok := d.cfg.VideoDevices[c.Facing]
	if !ok || device == "" {
		return nil, core.NewDeviceUnavailableError(fmt.Sprintf("no camera configured for facing mode %q", c.Facing), nil)
	}
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", d.cfg.VideoFormat,
	}
	if c.Width > 0 && c.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", c.Width, c.Height))
	}
	args = append(args,
		"-i", device,
		"-vf", fmt.Sprintf("scale=%d:%d", d.cfg.OutputWidth, d.cfg.OutputHeight),
		"-r", fmt.Sprintf("%d", d.cfg.FrameRate),
		"-pix_fmt", "rgb24",
		"-f", "rawvideo",
		"-",
	)
	return args, nil
}

// classify maps ffmpeg stderr output to a capture error.
func classify(stderr string, cause error) error {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "permission denied"),
		strings.Contains(lower, "not authorized"),
		strings.Contains(lower, "operation not permitted"):
		return core.NewPermissionDeniedError("capture access was refused", fmt.Errorf("%w: %s", cause, strings.TrimSpace(stderr)))
	default:
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = "capture device did not start"
		}
		return core.NewDeviceUnavailableError(msg, cause)
	}
}
