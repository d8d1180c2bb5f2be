// Package codec converts audio between the float sample domain used by
// capture and playback and the 16-bit PCM bytes carried over the wire.
//
// Outbound microphone blocks are float32 samples in [-1, 1] that become
// pcm_s16le bytes via EncodePCM16. Inbound model audio arrives as pcm_s16le
// bytes at 24 kHz and becomes a PlayableBuffer via DecodeToAudioBuffer.
// BytesToTransportText and TransportTextToBytes wrap binary payloads for
// text-only transports.
package codec
