package playback

import "errors"

// ErrClosed is returned when scheduling on a closed scheduler.
var ErrClosed = errors.New("playback: scheduler closed")
