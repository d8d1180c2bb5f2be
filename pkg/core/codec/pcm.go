package codec

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/boncukgram/boncuk/pkg/core"
)

const (
	// InputSampleRate is the microphone rate sent to the model.
	InputSampleRate = 16000
	// OutputSampleRate is the rate of model audio responses.
	OutputSampleRate = 24000

	pcmScale = 32768.0
)

// EncodePCM16 converts float samples to little-endian signed 16-bit PCM.
//
// Each sample is multiplied by 32768 and truncated toward zero. There is no
// clipping: a sample of exactly 1.0 (or any value outside [-1, 1)) wraps
// around modulo 2^16, so 1.0 encodes as -32768.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		var v int16
		if s == s { // NaN encodes as silence
			v = int16(int64(float64(s) * pcmScale))
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// PlayableBuffer is decoded float audio ready for scheduling.
type PlayableBuffer struct {
	SampleRate int
	// Channels holds one slice of Frames samples per channel.
	Channels [][]float32
	Frames   int
}

// NumChannels returns the channel count.
func (b PlayableBuffer) NumChannels() int {
	return len(b.Channels)
}

// Duration returns the playback length of the buffer.
func (b PlayableBuffer) Duration() time.Duration {
	if b.SampleRate <= 0 || b.Frames <= 0 {
		return 0
	}
	return time.Duration(b.Frames) * time.Second / time.Duration(b.SampleRate)
}

// PCM16 re-encodes the buffer as interleaved little-endian 16-bit PCM.
func (b PlayableBuffer) PCM16() []byte {
	n := len(b.Channels)
	if n == 0 {
		return nil
	}
	interleaved := make([]float32, b.Frames*n)
	for ch, data := range b.Channels {
		for i := 0; i < b.Frames && i < len(data); i++ {
			interleaved[i*n+ch] = data[i]
		}
	}
	return EncodePCM16(interleaved)
}

// DecodeToAudioBuffer interprets data as channel-interleaved little-endian
// 16-bit samples and converts them to floats by dividing by 32768.
//
// The frame count is len(data) / (2*channels); trailing bytes that do not
// complete a frame are ignored. An odd byte length cannot be viewed as
// 16-bit samples and is reported as a decode failure.
func DecodeToAudioBuffer(data []byte, sampleRate, channels int) (PlayableBuffer, error) {
	if sampleRate <= 0 {
		return PlayableBuffer{}, core.NewDecodeError(fmt.Sprintf("invalid sample rate %d", sampleRate), nil)
	}
	if channels <= 0 {
		return PlayableBuffer{}, core.NewDecodeError(fmt.Sprintf("invalid channel count %d", channels), nil)
	}
	if len(data)%2 != 0 {
		return PlayableBuffer{}, core.NewDecodeError(fmt.Sprintf("pcm16 payload has odd length %d", len(data)), nil)
	}

	frames := len(data) / (2 * channels)
	buf := PlayableBuffer{
		SampleRate: sampleRate,
		Channels:   make([][]float32, channels),
		Frames:     frames,
	}
	for ch := 0; ch < channels; ch++ {
		out := make([]float32, frames)
		for i := 0; i < frames; i++ {
			off := (i*channels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(data[off : off+2]))
			out[i] = float32(float64(sample) / pcmScale)
		}
		buf.Channels[ch] = out
	}
	return buf, nil
}
