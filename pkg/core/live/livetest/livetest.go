// Package livetest provides an in-memory realtime endpoint for tests.
package livetest

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/boncukgram/boncuk/pkg/core/live"
)

// Connector hands out Conns and records the configs it was called with.
type Connector struct {
	// Err, when set, is returned by Connect.
	Err error
	// Gate, when set, blocks Connect until it is closed.
	Gate chan struct{}
	// IgnoreCancel keeps Connect blocked on Gate even after ctx is done,
	// simulating a connect that completes after the caller gave up.
	IgnoreCancel bool

	mu      sync.Mutex
	conns   []*Conn
	configs []live.Config
}

// Connect implements live.Connector.
func (c *Connector) Connect(ctx context.Context, cfg live.Config) (live.Conn, error) {
	c.mu.Lock()
	c.configs = append(c.configs, cfg)
	gate := c.Gate
	c.mu.Unlock()

	if gate != nil {
		if c.IgnoreCancel {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if c.Err != nil {
		return nil, c.Err
	}
	conn := NewConn()
	c.mu.Lock()
	c.conns = append(c.conns, conn)
	c.mu.Unlock()
	return conn, nil
}

// Conns returns every connection opened so far.
func (c *Connector) Conns() []*Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Conn(nil), c.conns...)
}

// Last returns the most recent connection, or nil.
func (c *Connector) Last() *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.conns) == 0 {
		return nil
	}
	return c.conns[len(c.conns)-1]
}

// Configs returns the configs passed to Connect.
func (c *Connector) Configs() []live.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]live.Config(nil), c.configs...)
}

// Conn records outbound chunks and serves scripted inbound messages.
type Conn struct {
	mu         sync.Mutex
	sendErr    error
	audio      [][]byte
	frames     [][]byte
	closeCalls int

	inbound   chan *live.Message
	done      chan struct{}
	closeOnce sync.Once
}

// NewConn creates an open connection.
func NewConn() *Conn {
	return &Conn{
		inbound: make(chan *live.Message, 64),
		done:    make(chan struct{}),
	}
}

func (c *Conn) SendAudio(pcm []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.sendErrLocked(); err != nil {
		return err
	}
	c.audio = append(c.audio, append([]byte(nil), pcm...))
	return nil
}

func (c *Conn) SendFrame(jpeg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.sendErrLocked(); err != nil {
		return err
	}
	c.frames = append(c.frames, append([]byte(nil), jpeg...))
	return nil
}

func (c *Conn) sendErrLocked() error {
	select {
	case <-c.done:
		return errors.New("livetest: send on closed connection")
	default:
	}
	return c.sendErr
}

// FailSends makes every following send return err; nil restores sends.
func (c *Conn) FailSends(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// Receive returns delivered messages in order, then io.EOF once closed.
func (c *Conn) Receive() (*live.Message, error) {
	select {
	case msg := <-c.inbound:
		return msg, nil
	case <-c.done:
		return nil, io.EOF
	}
}

func (c *Conn) Close() error {
	c.mu.Lock()
	c.closeCalls++
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// Deliver queues an inbound message.
func (c *Conn) Deliver(msg *live.Message) {
	c.inbound <- msg
}

// DeliverAudio queues a message carrying the given PCM parts.
func (c *Conn) DeliverAudio(parts ...[]byte) {
	c.Deliver(&live.Message{Audio: parts})
}

// Disconnect simulates the remote side closing the connection.
func (c *Conn) Disconnect() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCalls > 0
}

// Audio returns the PCM chunks sent so far.
func (c *Conn) Audio() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.audio...)
}

// Frames returns the JPEG frames sent so far.
func (c *Conn) Frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.frames...)
}
