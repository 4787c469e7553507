package realtime

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrSlowConsumer is returned by Send when the client's queue is full.
	ErrSlowConsumer = errors.New("realtime: send queue full")
	// ErrClientClosed is returned by Send after the client disconnected.
	ErrClientClosed = errors.New("realtime: client disconnected")
)

// State is a connection's lifecycle stage.
type State int32

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Conn abstracts a WebSocket connection for testability. It is satisfied by
// *github.com/gorilla/websocket.Conn.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is one live session. Outbound frames go through a bounded queue
// drained by the client's own writer, so a stalled socket only ever costs
// its own deliveries.
type Client struct {
	ID        string
	CreatedAt time.Time

	state atomic.Int32
	queue chan []byte
	done  chan struct{}
	once  sync.Once
	conn  Conn
}

func newClient(id string, conn Conn, buffer int) *Client {
	if buffer <= 0 {
		buffer = 256
	}
	c := &Client{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		queue:     make(chan []byte, buffer),
		done:      make(chan struct{}),
		conn:      conn,
	}
	c.state.Store(int32(StateConnecting))
	return c
}

// State returns the client's current lifecycle stage.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Send queues e for the writer. It never blocks.
func (c *Client) Send(e Event) error {
	if c.State() == StateDisconnected {
		return ErrClientClosed
	}
	frame, err := e.Frame()
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.queue <- frame:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// markConnected moves Connecting → Connected. It reports false if the
// client already left Connecting.
func (c *Client) markConnected() bool {
	return c.state.CompareAndSwap(int32(StateConnecting), int32(StateConnected))
}

// markDisconnected moves the client to its terminal state exactly once and
// reports whether this call did it.
func (c *Client) markDisconnected() bool {
	first := false
	c.once.Do(func() {
		c.state.Store(int32(StateDisconnected))
		close(c.done)
		first = true
	})
	return first
}
