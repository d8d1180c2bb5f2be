package live

import (
	"context"
	"log/slog"
	"sync"

	"github.com/boncukgram/boncuk/pkg/core"
	"github.com/boncukgram/boncuk/pkg/core/media"
	"github.com/boncukgram/boncuk/pkg/core/playback"
)

// Options configures a Manager.
type Options struct {
	Connector Connector
	// Devices is used by StartCapture and camera switches.
	Devices media.Devices
	Config  Config

	// Clock and Sink drive playback of the model's audio. A nil clock uses
	// the wall clock; a nil sink discards audio.
	Clock    playback.Clock
	Sink     playback.Sink
	Playback playback.Options

	// EventBuffer is the per-session event channel capacity. Default: 64.
	EventBuffer int
	Logger      *slog.Logger
}

// Manager owns at most one live session.
type Manager struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	current *Session
}

// NewManager creates an idle manager.
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = playback.NewWallClock()
	}
	if opts.Sink == nil {
		opts.Sink = playback.DiscardSink{}
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	opts.Config = opts.Config.withDefaults()
	return &Manager{opts: opts, logger: opts.Logger}
}

// State returns IDLE when no session is open, otherwise the session's state.
func (m *Manager) State() State {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s == nil {
		return StateIdle
	}
	if st := s.State(); st != StateClosed {
		return st
	}
	return StateIdle
}

// Current returns the open session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// StartCapture acquires microphone and camera with facing and starts a
// session on the resulting stream. The stream is released if the session
// cannot be started.
func (m *Manager) StartCapture(ctx context.Context, facing media.FacingMode) (*Session, error) {
	if m.busy() {
		return nil, ErrSessionBusy
	}
	stream, err := media.Acquire(ctx, m.opts.Devices, facing)
	if err != nil {
		m.logger.Warn("live capture failed", "facing_mode", facing, "err", err)
		return nil, err
	}
	sess, err := m.Start(ctx, stream)
	if err != nil {
		media.Release(stream)
		return nil, err
	}
	return sess, nil
}

// Start opens a session on stream and returns it in CONNECTING. The
// connection is established in the background; watch Ready, Done or
// Events. The session takes ownership of stream and releases it on close.
//
// ctx bounds the whole session, not only the connect.
func (m *Manager) Start(ctx context.Context, stream *media.CaptureStream) (*Session, error) {
	if m.opts.Connector == nil {
		return nil, core.NewCredentialMissingError("live connector is not configured")
	}
	if stream == nil {
		return nil, core.NewInvalidRequestError("capture stream is required")
	}

	m.mu.Lock()
	if m.current != nil {
		m.mu.Unlock()
		return nil, ErrSessionBusy
	}
	s := newSession(ctx, m, stream)
	m.current = s
	m.mu.Unlock()

	m.logger.Info("live session starting",
		"session_id", s.id,
		"stream_id", stream.ID,
		"facing_mode", stream.Facing,
		"model", s.cfg.Model,
	)
	s.emitState(StateIdle, StateConnecting, nil)
	go s.connect()
	return s, nil
}

// Stop stops the open session, if any, and waits for cleanup.
func (m *Manager) Stop() {
	if s := m.Current(); s != nil {
		s.Stop()
	}
}

func (m *Manager) busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

func (m *Manager) release(s *Session) {
	m.mu.Lock()
	if m.current == s {
		m.current = nil
	}
	m.mu.Unlock()
}
