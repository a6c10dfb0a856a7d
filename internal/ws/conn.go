package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/parleyhq/parley/pkg/logger"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Send pings to peer with this period to detect dead connections
	pingPeriod = 30 * time.Second
)

// ErrQueueFull is returned when a frame cannot be enqueued because the
// connection's egress queue is at capacity. The connection is force-closed;
// the client sees a lost connection and reconnects.
var ErrQueueFull = errors.New("send queue full")

var errConnClosed = errors.New("connection closed")

// Conn is one authenticated client socket. Identity is bound at upgrade time
// from the verified token and never changes for the life of the connection.
type Conn struct {
	id          string
	userID      string
	displayName string

	sock *websocket.Conn
	send chan []byte

	closed    chan struct{}
	closeOnce sync.Once

	log *logger.Logger
}

func newConn(id, userID, displayName string, sock *websocket.Conn, queueDepth int, log *logger.Logger) *Conn {
	return &Conn{
		id:          id,
		userID:      userID,
		displayName: displayName,
		sock:        sock,
		send:        make(chan []byte, queueDepth),
		closed:      make(chan struct{}),
		log:         log,
	}
}

func (c *Conn) ID() string          { return c.id }
func (c *Conn) UserID() string      { return c.userID }
func (c *Conn) DisplayName() string { return c.displayName }

// Send marshals and enqueues one frame. It never blocks: overflow means the
// client can't keep up, and the only safe move is to drop the connection so
// ordering is never violated by selective drops.
func (c *Conn) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	select {
	case <-c.closed:
		return errConnClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.log.Warn("send queue overflow, closing connection",
			"conn_id", c.id,
			"user_id", c.userID,
		)
		c.close(websocket.StatusPolicyViolation, "send queue overflow")
		return ErrQueueFull
	}
}

func (c *Conn) close(status websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.sock.Close(status, reason)
	})
}

// writePump drains the egress queue onto the socket and keeps the
// connection alive with pings. One per connection.
func (c *Conn) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case data := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.sock.Write(writeCtx, websocket.MessageText, data)
			cancel()

			if err != nil {
				c.log.Debug("write failed",
					"conn_id", c.id,
					"user_id", c.userID,
					"error", err,
				)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.sock.Ping(pingCtx)
			cancel()

			if err != nil {
				c.log.Debug("ping failed",
					"conn_id", c.id,
					"user_id", c.userID,
					"error", err,
				)
				return
			}

		case <-c.closed:
			return

		case <-ctx.Done():
			return
		}
	}
}
