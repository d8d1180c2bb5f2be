package live

import "context"

// Connector opens connections to the remote realtime endpoint.
type Connector interface {
	Connect(ctx context.Context, cfg Config) (Conn, error)
}

// Conn is one open realtime connection. Receive is called from a single
// goroutine; sends are serialized by the session.
type Conn interface {
	// SendAudio sends 16-bit little-endian PCM at 16 kHz.
	SendAudio(pcm []byte) error
	// SendFrame sends one JPEG image.
	SendFrame(jpeg []byte) error
	// Receive blocks for the next server message. It returns an error once
	// the connection is closed from either side.
	Receive() (*Message, error)
	Close() error
}

// Message is the subset of a server message the session acts on.
type Message struct {
	// Audio holds raw PCM payloads of the model turn's inline audio parts,
	// in part order.
	Audio        [][]byte
	TurnComplete bool
	Interrupted  bool
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, cfg Config) (Conn, error)

func (f ConnectorFunc) Connect(ctx context.Context, cfg Config) (Conn, error) {
	return f(ctx, cfg)
}
