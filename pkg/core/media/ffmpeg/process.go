package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"
)

const stderrTailBytes = 4096

// tailBuffer keeps the last stderrTailBytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - stderrTailBytes; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

// process is one ffmpeg child whose stdout is handed to a consumer.
type process struct {
	cmd    *exec.Cmd
	stderr *tailBuffer
	logger *slog.Logger

	readyOnce sync.Once
	ready     chan struct{}
	exited    chan struct{}
	waitErr   error
	stopOnce  sync.Once
}

// startProcess launches path with args. consume runs on its own goroutine and
// must return when stdout reaches EOF.
func startProcess(path string, args []string, logger *slog.Logger, consume func(io.Reader)) (*process, error) {
	cmd := exec.Command(path, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	p := &process{
		cmd:    cmd,
		stderr: &tailBuffer{},
		logger: logger,
		ready:  make(chan struct{}),
		exited: make(chan struct{}),
	}
	cmd.Stderr = p.stderr
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, classify("", fmt.Errorf("ffmpeg not found at %q: %w", path, err))
		}
		return nil, classify("", err)
	}
	logger.Debug("ffmpeg started", "pid", cmd.Process.Pid, "args", args)

	go func() {
		consume(&firstByteReader{r: stdout, onFirst: p.markReady})
		p.waitErr = cmd.Wait()
		close(p.exited)
		if tail := p.stderr.String(); tail != "" {
			logger.Debug("ffmpeg exited", "pid", cmd.Process.Pid, "err", p.waitErr, "stderr", tail)
		}
	}()
	return p, nil
}

func (p *process) markReady() {
	p.readyOnce.Do(func() { close(p.ready) })
}

// awaitReady waits for the first stdout bytes or classifies an early exit.
func (p *process) awaitReady(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-p.ready:
		return nil
	case <-p.exited:
		return classify(p.stderr.String(), errOrExit(p.waitErr))
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return classify(p.stderr.String(), fmt.Errorf("no data within %s", timeout))
	}
}

func (p *process) stop() {
	p.stopOnce.Do(func() {
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
	})
}

func errOrExit(err error) error {
	if err == nil {
		return errors.New("ffmpeg exited")
	}
	return err
}

type firstByteReader struct {
	r       io.Reader
	onFirst func()
	seen    bool
}

func (f *firstByteReader) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if n > 0 && !f.seen {
		f.seen = true
		f.onFirst()
	}
	return n, err
}
