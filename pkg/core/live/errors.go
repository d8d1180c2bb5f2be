package live

import "errors"

var (
	// ErrSessionBusy is returned by Start while another session is open.
	ErrSessionBusy = errors.New("live: a session is already running")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("live: session closed")
	// ErrNotActive is returned by SwitchCamera before the session is ACTIVE.
	ErrNotActive = errors.New("live: session is not active")
	// ErrSwitchInProgress is returned when a camera switch is already running.
	ErrSwitchInProgress = errors.New("live: camera switch in progress")
)
