package gossip

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Transport represents the duplex message channel under a connection. A
// *websocket.Conn implements this interface.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// connState is the lifecycle of a connection. A connection starts Active
// and the only transition is to Closed.
type connState int32

const (
	stateActive connState = iota
	stateClosed
)

// =============================================================================

// connection is a single peer connection. Writes are funnelled through the
// send queue so only the write loop touches the transport for writing.
type connection struct {
	id        string
	host      string
	transport Transport
	send      chan []byte
	shut      chan struct{}
	closeOnce sync.Once
	state     atomic.Int32
}

func newConnection(t Transport, host string, sendQueue int) *connection {
	return &connection{
		id:        uuid.NewString(),
		host:      host,
		transport: t,
		send:      make(chan []byte, sendQueue),
		shut:      make(chan struct{}),
	}
}

// ID implements the peer.Conn interface.
func (c *connection) ID() string {
	return c.id
}

// Host implements the peer.Conn interface.
func (c *connection) Host() string {
	return c.host
}

// Send queues the message for the write loop. It returns false if the
// connection is closed or the queue is full; the message is dropped.
func (c *connection) Send(msg []byte) bool {
	if c.isClosed() {
		return false
	}

	select {
	case c.send <- msg:
		return true
	case <-c.shut:
		return false
	default:
		return false
	}
}

// Close moves the connection to Closed and closes the transport, which
// unblocks the read loop.
func (c *connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.state.Store(int32(stateClosed))
		close(c.shut)
		err = c.transport.Close()
	})
	return err
}

func (c *connection) isClosed() bool {
	return connState(c.state.Load()) == stateClosed
}

// =============================================================================

// writeLoop drains the send queue onto the transport until the connection
// closes or a write fails.
func (c *connection) writeLoop() error {
	for {
		select {
		case msg := <-c.send:
			if err := c.transport.WriteMessage(websocket.TextMessage, msg); err != nil {
				if c.isClosed() {
					return nil
				}
				return err
			}

		case <-c.shut:
			return nil
		}
	}
}

// readLoop hands every message read from the transport to the handler until
// the connection closes or a read fails.
func (c *connection) readLoop(handle func(c *connection, data []byte)) error {
	for {
		_, data, err := c.transport.ReadMessage()
		if err != nil {
			if c.isClosed() {
				return nil
			}
			return err
		}

		handle(c, data)
	}
}
