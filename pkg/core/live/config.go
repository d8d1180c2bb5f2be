package live

import (
	"time"

	"github.com/boncukgram/boncuk/pkg/core/codec"
	"github.com/boncukgram/boncuk/pkg/core/media"
)

const (
	// DefaultModel is the native-audio model used for live calls.
	DefaultModel = "gemini-2.5-flash-native-audio-preview-12-2025"
	// DefaultVoice is the prebuilt voice the model answers with.
	DefaultVoice = "Kore"
	// DefaultSystemInstruction frames the model as the bird vision assistant.
	DefaultSystemInstruction = "Sen 'Boncuk Vision' adlı bir AI analiz sistemisin. Kuşu analiz et ve samimi cevaplar ver."

	// ModalityAudio requests spoken responses.
	ModalityAudio = "AUDIO"

	// MIME types of outbound realtime chunks.
	AudioMIMEType = "audio/pcm;rate=16000"
	FrameMIMEType = "image/jpeg"
)

// State is the session lifecycle state.
type State int

const (
	// StateIdle means no session exists.
	StateIdle State = iota
	// StateConnecting means the connection is being opened.
	StateConnecting
	// StateActive means producers and the inbound loop are running.
	StateActive
	// StateClosed is terminal.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateActive:
		return "ACTIVE"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Status lines shown to the user.
const (
	StatusReady       = "SİSTEM HAZIR"
	StatusCalibrating = "KALİBRE EDİLİYOR..."
	StatusActive      = "ANALİZ AKTİF"
	StatusFailed      = "BAĞLANTI KURULAMADI"
)

// StatusText returns the user-visible status line for entering state to.
// A closed session reads as ready again unless it ended with an error.
func StatusText(to State, err error) string {
	switch to {
	case StateConnecting:
		return StatusCalibrating
	case StateActive:
		return StatusActive
	case StateClosed:
		if err != nil {
			return StatusFailed
		}
		return StatusReady
	default:
		return StatusReady
	}
}

// Config is fixed when a session starts.
type Config struct {
	Model             string
	Voice             string
	SystemInstruction string
	// ResponseModality is always ModalityAudio for live calls.
	ResponseModality string

	// AudioBlockSamples is the size of each outbound microphone block.
	AudioBlockSamples int
	// FrameInterval is the camera snapshot cadence.
	FrameInterval time.Duration
	FrameSpec     media.FrameSpec

	InputSampleRate  int
	OutputSampleRate int
	OutputChannels   int
}

// DefaultConfig returns the live call configuration.
func DefaultConfig() Config {
	return Config{
		Model:             DefaultModel,
		Voice:             DefaultVoice,
		SystemInstruction: DefaultSystemInstruction,
		ResponseModality:  ModalityAudio,
		AudioBlockSamples: 4096,
		FrameInterval:     600 * time.Millisecond,
		FrameSpec:         media.LiveFrameSpec,
		InputSampleRate:   codec.InputSampleRate,
		OutputSampleRate:  codec.OutputSampleRate,
		OutputChannels:    1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.Voice == "" {
		c.Voice = d.Voice
	}
	if c.SystemInstruction == "" {
		c.SystemInstruction = d.SystemInstruction
	}
	if c.ResponseModality == "" {
		c.ResponseModality = d.ResponseModality
	}
	if c.AudioBlockSamples <= 0 {
		c.AudioBlockSamples = d.AudioBlockSamples
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = d.FrameInterval
	}
	if c.FrameSpec.Width <= 0 || c.FrameSpec.Height <= 0 {
		c.FrameSpec = d.FrameSpec
	}
	if c.InputSampleRate <= 0 {
		c.InputSampleRate = d.InputSampleRate
	}
	if c.OutputSampleRate <= 0 {
		c.OutputSampleRate = d.OutputSampleRate
	}
	if c.OutputChannels <= 0 {
		c.OutputChannels = d.OutputChannels
	}
	return c
}
