// Package protocol defines the JSON frames exchanged over /v1/live.
//
// The client owns the camera and microphone: it streams 16 kHz mono
// pcm_s16le audio and JPEG frames, and plays the 24 kHz audio the gateway
// relays back at the start offsets the gateway computed.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/boncukgram/boncuk/pkg/core/media"
)

// Client frame types.
const (
	TypeHello        = "hello"
	TypeAudio        = "audio"
	TypeFrame        = "frame"
	TypeSwitchCamera = "switch_camera"
	TypeStop         = "stop"
)

// Server frame types.
const (
	TypeStatus   = "status"
	TypeSpeaking = "speaking"
	TypeError    = "error"
	TypeCamera   = "camera"
	TypeTurn     = "turn_complete"
)

// Audio formats on the wire.
const (
	AudioInEncoding  = "pcm_s16le"
	AudioInRateHz    = 16000
	AudioOutEncoding = "pcm_s16le"
	AudioOutRateHz   = 24000
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

// ClientHello opens a session. FacingMode defaults to environment.
type ClientHello struct {
	Type       string           `json:"type"`
	FacingMode media.FacingMode `json:"facing_mode,omitempty"`
}

// ClientAudio carries 16 kHz mono pcm_s16le microphone samples.
type ClientAudio struct {
	Type    string `json:"type"`
	DataB64 string `json:"data_b64"`
}

// ClientFrame carries one JPEG camera frame.
type ClientFrame struct {
	Type    string `json:"type"`
	DataB64 string `json:"data_b64"`
}

type ClientSwitchCamera struct {
	Type       string           `json:"type"`
	FacingMode media.FacingMode `json:"facing_mode,omitempty"`
}

type ClientStop struct {
	Type string `json:"type"`
}

// DecodeClientMessage parses one client text frame into its typed form.
func DecodeClientMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, badRequest("missing type", "type")
	}

	switch typ {
	case TypeHello:
		var msg ClientHello
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid hello frame", "")
		}
		facing, err := media.ParseFacingMode(string(msg.FacingMode), media.FacingEnvironment)
		if err != nil {
			return nil, badRequest("hello.facing_mode must be user or environment", "facing_mode")
		}
		msg.FacingMode = facing
		return msg, nil
	case TypeAudio:
		var msg ClientAudio
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid audio frame", "")
		}
		if strings.TrimSpace(msg.DataB64) == "" {
			return nil, badRequest("audio.data_b64 is required", "data_b64")
		}
		return msg, nil
	case TypeFrame:
		var msg ClientFrame
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid frame", "")
		}
		if strings.TrimSpace(msg.DataB64) == "" {
			return nil, badRequest("frame.data_b64 is required", "data_b64")
		}
		return msg, nil
	case TypeSwitchCamera:
		var msg ClientSwitchCamera
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid switch_camera", "")
		}
		if msg.FacingMode != "" && !msg.FacingMode.Valid() {
			return nil, badRequest("switch_camera.facing_mode must be user or environment", "facing_mode")
		}
		return msg, nil
	case TypeStop:
		return ClientStop{Type: TypeStop}, nil
	default:
		return nil, badRequest("unsupported message type", "type")
	}
}

// ServerStatus mirrors a session state change. Text is the user-facing
// status line.
type ServerStatus struct {
	Type    string `json:"type"`
	State   string `json:"state"`
	Text    string `json:"text"`
	Session string `json:"session_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ServerAudio is one decoded model audio buffer placed on the session
// timeline. Clients start playback at StartMS.
type ServerAudio struct {
	Type       string `json:"type"`
	DataB64    string `json:"data_b64"`
	StartMS    int64  `json:"start_ms"`
	DurationMS int64  `json:"duration_ms"`
}

type ServerSpeaking struct {
	Type     string `json:"type"`
	Speaking bool   `json:"speaking"`
}

type ServerCamera struct {
	Type       string           `json:"type"`
	FacingMode media.FacingMode `json:"facing_mode"`
	StreamID   string           `json:"stream_id"`
}

type ServerTurnComplete struct {
	Type string `json:"type"`
}

type ServerError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Close   bool   `json:"close,omitempty"`
}
