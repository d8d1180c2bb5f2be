package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/boncukgram/boncuk/pkg/core"
	"github.com/boncukgram/boncuk/pkg/core/codec"
	"github.com/boncukgram/boncuk/pkg/core/media"
	"github.com/boncukgram/boncuk/pkg/core/playback"
)

// Stats counts chunks handled by a session.
type Stats struct {
	AudioSent       int64
	FramesSent      int64
	SendsDropped    int64
	BuffersPlayed   int64
	DecodeFailures  int64
	SchedulerErrors int64
}

// Session is one live call. It is created by Manager.Start.
type Session struct {
	id     string
	m      *Manager
	cfg    Config
	logger *slog.Logger
	sched  *playback.Scheduler

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	state         State
	err           error
	stream        *media.CaptureStream
	streamChanged chan struct{}
	switching     bool
	conn          Conn
	group         *errgroup.Group

	sendMu    sync.Mutex
	closeConn sync.Once

	events       chan Event
	emitMu       sync.Mutex
	eventsClosed bool

	ready    chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	audioSent      atomic.Int64
	framesSent     atomic.Int64
	sendsDropped   atomic.Int64
	buffersPlayed  atomic.Int64
	decodeFailures atomic.Int64
	schedErr       atomic.Int64
}

func newSession(parent context.Context, m *Manager, stream *media.CaptureStream) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:            uuid.NewString(),
		m:             m,
		cfg:           m.opts.Config,
		ctx:           ctx,
		cancel:        cancel,
		state:         StateConnecting,
		stream:        stream,
		streamChanged: make(chan struct{}),
		events:        make(chan Event, m.opts.EventBuffer),
		ready:         make(chan struct{}),
		done:          make(chan struct{}),
	}
	s.logger = m.logger.With("session_id", s.id)

	popts := m.opts.Playback
	popts.Logger = s.logger
	user := popts.OnSpeaking
	popts.OnSpeaking = func(speaking bool) {
		s.emit(&SpeakingEvent{Speaking: speaking})
		if user != nil {
			user(speaking)
		}
	}
	s.sched = playback.New(m.opts.Clock, m.opts.Sink, popts)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Config returns the configuration the session was started with.
func (s *Session) Config() Config { return s.cfg }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that closed the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stream returns the capture stream currently feeding the session.
func (s *Session) Stream() *media.CaptureStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream
}

// Events returns the event channel. It is closed after the final
// StateChangedEvent to CLOSED. Events are dropped when the channel is full.
func (s *Session) Events() <-chan Event { return s.events }

// Ready is closed when the session reaches ACTIVE.
func (s *Session) Ready() <-chan struct{} { return s.ready }

// Done is closed once the session is CLOSED and all resources are released.
func (s *Session) Done() <-chan struct{} { return s.done }

// Speaking reports whether model audio is currently considered playing.
func (s *Session) Speaking() bool { return s.sched.Speaking() }

// Scheduler exposes the playback scheduler of this session.
func (s *Session) Scheduler() *playback.Scheduler { return s.sched }

// Stats returns a snapshot of the chunk counters.
func (s *Session) Stats() Stats {
	return Stats{
		AudioSent:       s.audioSent.Load(),
		FramesSent:      s.framesSent.Load(),
		SendsDropped:    s.sendsDropped.Load(),
		BuffersPlayed:   s.buffersPlayed.Load(),
		DecodeFailures:  s.decodeFailures.Load(),
		SchedulerErrors: s.schedErr.Load(),
	}
}

// Stop halts both producers, closes the connection, releases the capture
// stream and waits until all of it is done. It is safe in any state and
// may be called more than once.
func (s *Session) Stop() {
	s.shutdown(nil)
	<-s.done
}

func (s *Session) connect() {
	conn, err := s.m.opts.Connector.Connect(s.ctx, s.cfg)
	if err != nil {
		if s.ctx.Err() != nil {
			// Cancelled while connecting.
			s.shutdown(nil)
			return
		}
		if core.TypeOf(err) == "" {
			err = core.NewConnectionError("live connect failed", err)
		}
		s.logger.Warn("live connect failed", "err", err)
		s.shutdown(err)
		return
	}

	s.mu.Lock()
	if s.state != StateConnecting {
		// Stopped while the connection was being opened.
		s.mu.Unlock()
		if err := conn.Close(); err != nil {
			s.logger.Debug("close after cancelled connect", "err", err)
		}
		return
	}
	s.conn = conn
	s.state = StateActive
	g, gctx := errgroup.WithContext(s.ctx)
	g.Go(func() error { return s.runAudio(gctx) })
	g.Go(func() error { return s.runFrames(gctx) })
	g.Go(func() error { return s.runInbound(gctx, conn) })
	g.Go(func() error {
		<-gctx.Done()
		s.closeConnection()
		return nil
	})
	s.group = g
	s.emitState(StateConnecting, StateActive, nil)
	close(s.ready)
	s.mu.Unlock()

	s.logger.Info("live session active")

	go func() {
		err := g.Wait()
		if s.ctx.Err() != nil {
			err = nil
		}
		if err != nil {
			s.logger.Warn("live session failed", "err", err)
		}
		s.shutdown(err)
	}()
}

func (s *Session) shutdown(cause error) {
	s.stopOnce.Do(func() { s.teardown(cause) })
}

func (s *Session) teardown(cause error) {
	s.mu.Lock()
	from := s.state
	s.state = StateClosed
	s.err = cause
	g := s.group
	s.mu.Unlock()

	s.cancel()
	s.closeConnection()
	if g != nil {
		_ = g.Wait()
	}
	s.sched.Close()

	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	media.Release(stream)
	s.m.release(s)

	stats := s.Stats()
	s.logger.Info("live session closed",
		"from", from.String(),
		"audio_sent", stats.AudioSent,
		"frames_sent", stats.FramesSent,
		"sends_dropped", stats.SendsDropped,
		"buffers_played", stats.BuffersPlayed,
		"decode_failures", stats.DecodeFailures,
	)
	s.emitState(from, StateClosed, cause)

	s.emitMu.Lock()
	s.eventsClosed = true
	close(s.events)
	s.emitMu.Unlock()
	close(s.done)
}

func (s *Session) closeConnection() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	s.closeConn.Do(func() {
		// Close is best-effort.
		if err := conn.Close(); err != nil {
			s.logger.Debug("live close failed", "err", err)
		}
	})
}

// currentStream returns the active stream and a channel closed when it is
// replaced.
func (s *Session) currentStream() (*media.CaptureStream, <-chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream, s.streamChanged, s.switching
}

func (s *Session) runAudio(ctx context.Context) error {
	for {
		stream, changed, switching := s.currentStream()
		track := stream.Audio()
		if track == nil {
			select {
			case <-changed:
				continue
			case <-ctx.Done():
				return nil
			}
		}

		block, err := track.ReadBlock(ctx, s.cfg.AudioBlockSamples)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if !errors.Is(err, media.ErrTrackEnded) {
				return core.NewDeviceUnavailableError("microphone read failed", err)
			}
			if _, _, nowSwitching := s.currentStream(); !switching && !nowSwitching {
				select {
				case <-changed:
				default:
					return core.NewDeviceUnavailableError("microphone track ended", err)
				}
			}
			select {
			case <-changed:
				continue
			case <-ctx.Done():
				return nil
			}
		}

		s.send(func(c Conn) error { return c.SendAudio(codec.EncodePCM16(block)) }, &s.audioSent, "audio")
	}
}

func (s *Session) runFrames(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.FrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		stream, _, _ := s.currentStream()
		jpeg, err := media.SnapshotJPEG(stream.Video(), s.cfg.FrameSpec)
		if err != nil {
			// Camera not ready yet, or mid-switch.
			if !errors.Is(err, media.ErrNoFrame) && !errors.Is(err, media.ErrTrackEnded) {
				s.logger.Debug("frame snapshot failed", "err", err)
			}
			continue
		}
		s.send(func(c Conn) error { return c.SendFrame(jpeg) }, &s.framesSent, "frame")
	}
}

func (s *Session) send(fn func(Conn) error, counter *atomic.Int64, kind string) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}

	s.sendMu.Lock()
	err := fn(conn)
	s.sendMu.Unlock()
	if err != nil {
		s.sendsDropped.Add(1)
		s.logger.Debug("dropped outbound chunk", "kind", kind, "err", err)
		return
	}
	counter.Add(1)
}

func (s *Session) runInbound(ctx context.Context, conn Conn) error {
	for {
		msg, err := conn.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return core.NewConnectionError("live receive failed", err)
		}
		if msg == nil {
			continue
		}
		for _, part := range msg.Audio {
			s.playInbound(part)
		}
		if msg.TurnComplete {
			s.emit(&TurnCompleteEvent{})
		}
	}
}

// playInbound decodes one audio part and schedules it. Undecodable parts are
// dropped; the session continues.
func (s *Session) playInbound(data []byte) {
	if len(data) == 0 {
		return
	}
	buf, err := codec.DecodeToAudioBuffer(data, s.cfg.OutputSampleRate, s.cfg.OutputChannels)
	if err != nil {
		s.decodeFailures.Add(1)
		s.logger.Warn("dropping undecodable audio chunk", "bytes", len(data), "err", err)
		return
	}
	if _, err := s.sched.Schedule(buf); err != nil {
		if !errors.Is(err, playback.ErrClosed) {
			s.schedErr.Add(1)
			s.logger.Warn("playback schedule failed", "err", err)
		}
		return
	}
	s.buffersPlayed.Add(1)
}

// SwitchCamera replaces the capture stream with one using facing. The old
// stream's tracks are stopped before the new stream is requested. If the new
// stream cannot be acquired the session is stopped.
func (s *Session) SwitchCamera(ctx context.Context, facing media.FacingMode) error {
	if !facing.Valid() {
		return core.NewInvalidRequestErrorWithParam("facing_mode must be user or environment", "facing_mode")
	}
	s.mu.Lock()
	switch {
	case s.state == StateClosed:
		s.mu.Unlock()
		return ErrSessionClosed
	case s.state != StateActive:
		s.mu.Unlock()
		return ErrNotActive
	case s.switching:
		s.mu.Unlock()
		return ErrSwitchInProgress
	}
	s.switching = true
	old := s.stream
	s.mu.Unlock()

	next, err := media.Switch(ctx, s.m.opts.Devices, old, facing)
	if err != nil {
		s.logger.Warn("camera switch failed", "facing_mode", facing, "err", err)
		s.shutdown(err)
		<-s.done
		return err
	}

	s.mu.Lock()
	if s.state != StateActive {
		s.switching = false
		s.mu.Unlock()
		media.Release(next)
		return ErrSessionClosed
	}
	s.stream = next
	s.switching = false
	changed := s.streamChanged
	s.streamChanged = make(chan struct{})
	close(changed)
	s.mu.Unlock()

	s.logger.Info("camera switched", "facing_mode", facing, "stream_id", next.ID)
	s.emit(&CameraSwitchedEvent{Facing: facing, StreamID: next.ID})
	return nil
}

func (s *Session) emitState(from, to State, err error) {
	s.emit(&StateChangedEvent{From: from, To: to, Text: StatusText(to, err), Err: err})
}

// emit sends an event without blocking; events are dropped when the buffer
// is full or the session has closed.
func (s *Session) emit(ev Event) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if s.eventsClosed {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}
