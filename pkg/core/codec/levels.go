package codec

import (
	"encoding/binary"
	"math"
)

// RMSEnergy computes the root-mean-square energy of 16-bit little-endian PCM.
// Returns a value between 0.0 and 1.0.
func RMSEnergy(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}

	var sum float64
	for i := 0; i+1 < len(pcm); i += 2 {
		normalized := float64(int16(binary.LittleEndian.Uint16(pcm[i:]))) / pcmScale
		sum += normalized * normalized
	}
	return math.Sqrt(sum / float64(samples))
}

// PeakAmplitude returns the maximum absolute amplitude of 16-bit PCM, 0.0 to 1.0.
func PeakAmplitude(pcm []byte) float64 {
	if len(pcm) < 2 {
		return 0
	}

	var maxAbs float64
	for i := 0; i+1 < len(pcm); i += 2 {
		// float64 so that -32768 does not overflow when negated
		abs := math.Abs(float64(int16(binary.LittleEndian.Uint16(pcm[i:]))))
		if abs > maxAbs {
			maxAbs = abs
		}
	}
	return maxAbs / pcmScale
}

// PeakFloat returns the maximum absolute value of float samples.
func PeakFloat(samples []float32) float64 {
	var maxAbs float64
	for _, s := range samples {
		if a := math.Abs(float64(s)); a > maxAbs {
			maxAbs = a
		}
	}
	return maxAbs
}
