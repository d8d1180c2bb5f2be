package main

import (
	"github.com/spf13/cobra"

	"github.com/boncukgram/boncuk/pkg/core/media"
	"github.com/boncukgram/boncuk/pkg/core/media/ffmpeg"
)

// captureOptions select the ffmpeg binary and local devices.
type captureOptions struct {
	ffmpegPath  string
	audioDevice string
	userCamera  string
	envCamera   string
}

func (o *captureOptions) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&o.ffmpegPath, "ffmpeg", "ffmpeg", "Path to the ffmpeg executable")
	flags.StringVar(&o.audioDevice, "audio-device", "", "ffmpeg microphone input (default: platform default)")
	flags.StringVar(&o.userCamera, "user-camera", "", "ffmpeg input for the front (user) camera")
	flags.StringVar(&o.envCamera, "environment-camera", "", "ffmpeg input for the back (environment) camera")
}

func (o captureOptions) devices(a *app) *ffmpeg.Devices {
	cfg := ffmpeg.DefaultConfig()
	cfg.Path = o.ffmpegPath
	if o.audioDevice != "" {
		cfg.AudioDevice = o.audioDevice
	}
	if o.userCamera != "" {
		cfg.VideoDevices[media.FacingUser] = o.userCamera
	}
	if o.envCamera != "" {
		cfg.VideoDevices[media.FacingEnvironment] = o.envCamera
	}
	cfg.Logger = a.logger
	cfg.Debug = a.debug
	return ffmpeg.New(cfg)
}
