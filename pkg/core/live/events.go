package live

import "github.com/boncukgram/boncuk/pkg/core/media"

// Event is the interface for all live session events.
type Event interface {
	// EventType returns the event type string for serialization.
	EventType() string
}

// StateChangedEvent is emitted on every lifecycle transition.
type StateChangedEvent struct {
	From State  `json:"from"`
	To   State  `json:"to"`
	Text string `json:"text"`
	// Err is set when the session closed because of a failure.
	Err error `json:"-"`
}

func (e *StateChangedEvent) EventType() string { return "state.changed" }

// SpeakingEvent is emitted when the remote-is-speaking flag flips.
type SpeakingEvent struct {
	Speaking bool `json:"speaking"`
}

func (e *SpeakingEvent) EventType() string { return "speaking" }

// CameraSwitchedEvent is emitted after the capture stream was replaced.
type CameraSwitchedEvent struct {
	Facing   media.FacingMode `json:"facing_mode"`
	StreamID string           `json:"stream_id"`
}

func (e *CameraSwitchedEvent) EventType() string { return "camera.switched" }

// TurnCompleteEvent is emitted when the model finishes a turn.
type TurnCompleteEvent struct{}

func (e *TurnCompleteEvent) EventType() string { return "turn.complete" }
