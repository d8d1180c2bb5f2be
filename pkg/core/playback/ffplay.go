package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/boncukgram/boncuk/pkg/core/codec"
)

// FFPlayConfig configures the ffplay speaker.
type FFPlayConfig struct {
	Path       string
	LogLevel   string
	Volume     int
	SampleRate int
	Channels   int
	// Lead is how far ahead of its start time a buffer is written to ffplay,
	// covering pipe and device latency.
	Lead   time.Duration
	Logger *slog.Logger
}

type scheduledPCM struct {
	at  time.Duration
	pcm []byte
}

// FFPlaySink streams scheduled buffers into an ffplay child reading s16le
// from stdin. Buffers are written in schedule order once their start time is
// within Lead of the clock.
type FFPlaySink struct {
	cfg   FFPlayConfig
	clock Clock

	runningMu sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser

	queue     chan scheduledPCM
	done      chan struct{}
	closeOnce sync.Once
}

// NewFFPlaySink creates a sink on clock. Call Start to spawn ffplay.
func NewFFPlaySink(clock Clock, cfg FFPlayConfig) *FFPlaySink {
	if strings.TrimSpace(cfg.Path) == "" {
		cfg.Path = "ffplay"
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "error"
	}
	if cfg.Volume <= 0 {
		cfg.Volume = 80
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = codec.OutputSampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.Lead <= 0 {
		cfg.Lead = 50 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &FFPlaySink{
		cfg:   cfg,
		clock: clock,
		queue: make(chan scheduledPCM, 256),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

// Start spawns ffplay if it is not already running.
func (s *FFPlaySink) Start() error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	return s.startLocked()
}

func (s *FFPlaySink) startLocked() error {
	if s.cmd != nil && s.cmd.Process != nil {
		return nil
	}
	// ffplay does not accept ffmpeg-style -ac; it wants -ch_layout.
	chLayout := "mono"
	if s.cfg.Channels == 2 {
		chLayout = "stereo"
	}
	args := []string{
		"-hide_banner",
		"-loglevel", s.cfg.LogLevel,
		"-nostats",
		"-volume", fmt.Sprintf("%d", s.cfg.Volume),
		"-nodisp",
		"-f", "s16le",
		"-ch_layout", chLayout,
		"-ar", fmt.Sprintf("%d", s.cfg.SampleRate),
		"-i", "-",
	}
	cmd := exec.Command(s.cfg.Path, args...)
	if runtime.GOOS == "darwin" && os.Getenv("SDL_AUDIODRIVER") == "" {
		// SDL can pick a silent dummy backend on macOS.
		cmd.Env = append(os.Environ(), "SDL_AUDIODRIVER=coreaudio")
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start ffplay: %w", err)
	}
	s.cfg.Logger.Debug("ffplay started", "pid", cmd.Process.Pid)
	s.cmd = cmd
	s.stdin = stdin
	go func(c *exec.Cmd) {
		_ = c.Wait()
		s.runningMu.Lock()
		if s.cmd == c {
			s.cmd = nil
			s.stdin = nil
		}
		s.runningMu.Unlock()
	}(cmd)
	return nil
}

// Play implements Sink. It never blocks; a full queue drops the buffer.
func (s *FFPlaySink) Play(at time.Duration, buf codec.PlayableBuffer) error {
	item := scheduledPCM{at: at, pcm: buf.PCM16()}
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.queue <- item:
		return nil
	default:
		return errors.New("playback: ffplay queue full")
	}
}

func (s *FFPlaySink) run() {
	for {
		var item scheduledPCM
		select {
		case <-s.done:
			return
		case item = <-s.queue:
		}

		if wait := item.at - s.clock.Now() - s.cfg.Lead; wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-s.done:
				timer.Stop()
				return
			}
		}
		if err := s.write(item.pcm); err != nil {
			s.cfg.Logger.Warn("ffplay write failed; restarting", "err", err)
			if err := s.restart(); err == nil {
				_ = s.write(item.pcm)
			}
		}
	}
}

func (s *FFPlaySink) write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	s.runningMu.Lock()
	stdin := s.stdin
	s.runningMu.Unlock()
	if stdin == nil {
		return errors.New("ffplay is not running")
	}
	_, err := stdin.Write(p)
	return err
}

func (s *FFPlaySink) restart() error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	s.closeLocked()
	return s.startLocked()
}

// Close stops the writer and kills ffplay.
func (s *FFPlaySink) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	s.closeLocked()
	return nil
}

func (s *FFPlaySink) closeLocked() {
	if s.stdin != nil {
		_ = s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.cmd = nil
	s.stdin = nil
}

// DiscardSink accepts buffers without rendering them.
type DiscardSink struct{}

func (DiscardSink) Play(time.Duration, codec.PlayableBuffer) error { return nil }
