package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/boncukgram/boncuk/pkg/core"
	"github.com/boncukgram/boncuk/pkg/core/codec"
	"github.com/boncukgram/boncuk/pkg/core/live"
	"github.com/boncukgram/boncuk/pkg/core/media"
	"github.com/boncukgram/boncuk/pkg/core/playback"
	"github.com/boncukgram/boncuk/pkg/gateway/config"
	"github.com/boncukgram/boncuk/pkg/gateway/lifecycle"
	"github.com/boncukgram/boncuk/pkg/gateway/live/protocol"
	"github.com/boncukgram/boncuk/pkg/gateway/live/sessions"
	"github.com/boncukgram/boncuk/pkg/gateway/metrics"
	"github.com/boncukgram/boncuk/pkg/gateway/mw"
)

// CodeMaxDuration is sent when an operator-configured session cap ends a
// live session.
const CodeMaxDuration = "max_duration"

// LiveHandler relays a browser's camera and microphone to a realtime model
// session over /v1/live and streams the model's voice back.
type LiveHandler struct {
	Config       config.Config
	Connector    live.Connector
	Logger       *slog.Logger
	Lifecycle    *lifecycle.Lifecycle
	LiveSessions *sessions.Tracker
	Metrics      *metrics.Metrics
}

func (h LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if h.Lifecycle.IsDraining() {
		writeCoreErrorJSON(w, reqID, &core.Error{
			Type:    core.ErrOverloaded,
			Message: "gateway is draining",
			Code:    "draining",
		}, 529)
		return
	}
	if !h.originAllowed(r) {
		writeCoreErrorJSON(w, reqID, &core.Error{
			Type:    core.ErrPermissionDenied,
			Message: "origin not allowed",
		}, http.StatusForbidden)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	logger := h.logger().With("request_id", reqID)
	rl := &relay{
		conn:         conn,
		logger:       logger,
		writeTimeout: h.Config.LiveWriteTimeout,
		metrics:      h.Metrics,
	}
	if h.Config.LiveMaxMessageBytes > 0 {
		conn.SetReadLimit(h.Config.LiveMaxMessageBytes)
	}
	_ = rl.write(protocol.ServerStatus{Type: protocol.TypeStatus, State: live.StateIdle.String(), Text: live.StatusText(live.StateIdle, nil)})

	hello, ok := h.readHello(rl)
	if !ok {
		return
	}

	relayID := "live_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	// The session outlives the hijacked request's context.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	unregister, ok := h.LiveSessions.Register(relayID, sessions.Handle{
		Cancel: cancel,
		Warn: func(code, message string) error {
			return rl.write(protocol.ServerError{Type: protocol.TypeError, Code: code, Message: message})
		},
	})
	if !ok {
		rl.fail("rate_limited", "too many live sessions")
		return
	}
	defer unregister()

	started := time.Now()
	outcome := metrics.OutcomeFailed
	h.Metrics.RecordLiveSessionStart()
	defer func() {
		h.Metrics.RecordLiveSessionEnd(outcome, time.Since(started))
		h.Metrics.RecordLiveDropped("audio", rl.audioDropped.Load())
		h.Metrics.RecordLiveDropped("frame", rl.framesDropped.Load())
	}()

	mgr := live.NewManager(live.Options{
		Connector: h.Connector,
		Devices:   &media.PushDevices{SampleRate: protocol.AudioInRateHz},
		Config: live.Config{
			Model: h.Config.LiveModel,
			Voice: h.Config.LiveVoice,
		},
		Clock:  playback.NewWallClock(),
		Sink:   rl,
		Logger: logger,
	})
	sess, err := mgr.StartCapture(ctx, hello.FacingMode)
	if err != nil {
		logger.Warn("live session failed to start", "error", err)
		rl.fail(errorCode(err), err.Error())
		return
	}
	logger = logger.With("session_id", sess.ID())
	rl.logger = logger

	if d := h.Config.LiveMaxDuration; d > 0 {
		capTimer := time.AfterFunc(d, func() {
			logger.Info("live session reached max duration", "max_duration", d)
			_ = rl.write(protocol.ServerError{
				Type:    protocol.TypeError,
				Code:    CodeMaxDuration,
				Message: "live session reached its maximum duration",
				Close:   true,
			})
			sess.Stop()
		})
		defer capTimer.Stop()
	}

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		rl.pump(sess)
	}()
	go rl.keepalive(sess, h.Config.LivePingInterval)
	go func() {
		<-pumpDone
		// Give the client a moment to answer the close frame, then
		// unblock the read loop.
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	}()

	h.readLoop(ctx, rl, sess)

	sess.Stop()
	<-pumpDone

	if sess.Err() == nil {
		outcome = metrics.OutcomeOK
	}
	stats := sess.Stats()
	logger.Info("live relay closed",
		"audio_dropped", rl.audioDropped.Load(),
		"frames_dropped", rl.framesDropped.Load(),
		"audio_sent", stats.AudioSent,
		"frames_sent", stats.FramesSent,
		"sends_dropped", stats.SendsDropped,
		"buffers_played", stats.BuffersPlayed,
		"decode_failures", stats.DecodeFailures,
	)
}

func (h LiveHandler) readHello(rl *relay) (protocol.ClientHello, bool) {
	timeout := h.Config.LiveHandshakeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	_ = rl.conn.SetReadDeadline(time.Now().Add(timeout))
	defer func() { _ = rl.conn.SetReadDeadline(time.Time{}) }()

	msgType, data, err := rl.conn.ReadMessage()
	if err != nil {
		return protocol.ClientHello{}, false
	}
	if msgType != websocket.TextMessage {
		rl.fail("bad_request", "expected hello text frame")
		return protocol.ClientHello{}, false
	}
	msg, err := protocol.DecodeClientMessage(data)
	if err != nil {
		rl.fail(decodeErrorCode(err), err.Error())
		return protocol.ClientHello{}, false
	}
	hello, ok := msg.(protocol.ClientHello)
	if !ok {
		rl.fail("bad_request", "first frame must be hello")
		return protocol.ClientHello{}, false
	}
	return hello, true
}

// readLoop feeds client frames into the session until the client stops,
// disconnects, or the session ends.
func (h LiveHandler) readLoop(ctx context.Context, rl *relay, sess *live.Session) {
	for {
		msgType, data, err := rl.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			_ = rl.write(protocol.ServerError{Type: protocol.TypeError, Code: "bad_request", Message: "binary frames are not supported"})
			continue
		}
		msg, err := protocol.DecodeClientMessage(data)
		if err != nil {
			_ = rl.write(protocol.ServerError{Type: protocol.TypeError, Code: decodeErrorCode(err), Message: err.Error()})
			continue
		}

		switch m := msg.(type) {
		case protocol.ClientAudio:
			rl.pushAudio(sess, m.DataB64)
		case protocol.ClientFrame:
			rl.pushFrame(sess, m.DataB64)
		case protocol.ClientSwitchCamera:
			facing := m.FacingMode
			if facing == "" {
				if stream := sess.Stream(); stream != nil {
					facing = stream.Facing.Opposite()
				} else {
					facing = media.FacingEnvironment
				}
			}
			if err := sess.SwitchCamera(ctx, facing); err != nil {
				switch {
				case errors.Is(err, live.ErrNotActive):
					_ = rl.write(protocol.ServerError{Type: protocol.TypeError, Code: "not_active", Message: err.Error()})
				case errors.Is(err, live.ErrSwitchInProgress):
					_ = rl.write(protocol.ServerError{Type: protocol.TypeError, Code: "switch_in_progress", Message: err.Error()})
				}
			}
		case protocol.ClientStop:
			return
		case protocol.ClientHello:
			_ = rl.write(protocol.ServerError{Type: protocol.TypeError, Code: "bad_request", Message: "session already started"})
		}
	}
}

func (h LiveHandler) originAllowed(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	if len(h.Config.CORSAllowedOrigins) == 0 {
		return false
	}
	_, ok := h.Config.CORSAllowedOrigins[origin]
	return ok
}

func (h LiveHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// relay owns the client connection. All writes go through write.
type relay struct {
	conn         *websocket.Conn
	logger       *slog.Logger
	writeTimeout time.Duration
	metrics      *metrics.Metrics

	writeMu sync.Mutex
	closed  bool

	audioDropped  atomic.Int64
	framesDropped atomic.Int64
}

func (rl *relay) write(v any) error {
	rl.writeMu.Lock()
	defer rl.writeMu.Unlock()
	if rl.closed {
		return websocket.ErrCloseSent
	}
	if rl.writeTimeout > 0 {
		_ = rl.conn.SetWriteDeadline(time.Now().Add(rl.writeTimeout))
	}
	return rl.conn.WriteJSON(v)
}

// close sends a close frame; later writes fail with ErrCloseSent.
func (rl *relay) close(code int, text string) {
	rl.writeMu.Lock()
	defer rl.writeMu.Unlock()
	if rl.closed {
		return
	}
	rl.closed = true
	_ = rl.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(2*time.Second))
}

// fail reports a fatal error and closes the connection.
func (rl *relay) fail(code, message string) {
	_ = rl.write(protocol.ServerError{Type: protocol.TypeError, Code: code, Message: message, Close: true})
	rl.close(websocket.ClosePolicyViolation, message)
}

// Play implements playback.Sink by forwarding the buffer to the client with
// its place on the session timeline.
func (rl *relay) Play(at time.Duration, buf codec.PlayableBuffer) error {
	pcm := buf.PCM16()
	if err := rl.write(protocol.ServerAudio{
		Type:       protocol.TypeAudio,
		DataB64:    codec.BytesToTransportText(pcm),
		StartMS:    at.Milliseconds(),
		DurationMS: buf.Duration().Milliseconds(),
	}); err != nil {
		return err
	}
	rl.metrics.RecordLiveAudio("out", len(pcm))
	return nil
}

func (rl *relay) keepalive(sess *live.Session, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-sess.Done():
			return
		case <-t.C:
			rl.writeMu.Lock()
			var err error
			if !rl.closed {
				err = rl.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(2*time.Second))
			}
			rl.writeMu.Unlock()
			if err != nil {
				rl.logger.Debug("live ping failed", "error", err)
				sess.Stop()
				return
			}
		}
	}
}

// pump translates session events into server frames until the session's
// event channel closes.
func (rl *relay) pump(sess *live.Session) {
	for ev := range sess.Events() {
		var err error
		switch e := ev.(type) {
		case *live.StateChangedEvent:
			status := protocol.ServerStatus{
				Type:    protocol.TypeStatus,
				State:   e.To.String(),
				Text:    e.Text,
				Session: sess.ID(),
			}
			if e.Err != nil {
				status.Error = e.Err.Error()
			}
			err = rl.write(status)
			if e.To == live.StateClosed && e.Err != nil {
				_ = rl.write(protocol.ServerError{Type: protocol.TypeError, Code: errorCode(e.Err), Message: e.Err.Error(), Close: true})
			}
		case *live.SpeakingEvent:
			err = rl.write(protocol.ServerSpeaking{Type: protocol.TypeSpeaking, Speaking: e.Speaking})
		case *live.CameraSwitchedEvent:
			err = rl.write(protocol.ServerCamera{Type: protocol.TypeCamera, FacingMode: e.Facing, StreamID: e.StreamID})
		case *live.TurnCompleteEvent:
			err = rl.write(protocol.ServerTurnComplete{Type: protocol.TypeTurn})
		}
		if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			rl.logger.Debug("live write failed", "error", err)
			sess.Stop()
		}
	}
	rl.close(websocket.CloseNormalClosure, "session closed")
}

func (rl *relay) pushAudio(sess *live.Session, b64 string) {
	data, err := codec.TransportTextToBytes(b64)
	if err != nil {
		rl.dropAudio("invalid base64", err)
		return
	}
	buf, err := codec.DecodeToAudioBuffer(data, protocol.AudioInRateHz, 1)
	if err != nil {
		rl.dropAudio("invalid pcm", err)
		return
	}
	stream := sess.Stream()
	if stream == nil {
		rl.audioDropped.Add(1)
		return
	}
	track, ok := stream.Audio().(*media.PushAudioTrack)
	if !ok {
		rl.audioDropped.Add(1)
		return
	}
	track.Push(buf.Channels[0])
	rl.metrics.RecordLiveAudio("in", len(data))
}

func (rl *relay) dropAudio(reason string, err error) {
	rl.audioDropped.Add(1)
	rl.logger.Debug("dropping client audio", "reason", reason, "error", err)
}

func (rl *relay) pushFrame(sess *live.Session, b64 string) {
	data, err := codec.DecodeInlineImage(b64)
	if err != nil || len(data) == 0 {
		rl.framesDropped.Add(1)
		rl.logger.Debug("dropping client frame", "error", err)
		return
	}
	stream := sess.Stream()
	if stream == nil {
		rl.framesDropped.Add(1)
		return
	}
	track, ok := stream.Video().(*media.PushVideoTrack)
	if !ok {
		rl.framesDropped.Add(1)
		return
	}
	track.PushJPEG(data)
}

func errorCode(err error) string {
	if t := core.TypeOf(err); t != "" {
		return string(t)
	}
	if errors.Is(err, live.ErrSessionBusy) {
		return "session_busy"
	}
	return "internal"
}

func decodeErrorCode(err error) string {
	var de *protocol.DecodeError
	if errors.As(err, &de) && de.Code != "" {
		return de.Code
	}
	return "bad_request"
}
