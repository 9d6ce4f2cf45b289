package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/noobsquad/chatcore/internal/domain"
	"nhooyr.io/websocket"
)

const (
	writeWait         = 10 * time.Second
	pingInterval      = 30 * time.Second
	defaultSendBuffer = 256
)

var (
	ErrChannelClosed  = errors.New("connection closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Connection is one user's websocket. Outgoing frames are queued on a
// bounded buffer and written by WritePump.
type Connection struct {
	conn   *websocket.Conn
	userID int64
	logger *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewConnection(conn *websocket.Conn, userID int64, sendBuffer int, logger *slog.Logger) *Connection {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	return &Connection{
		conn:   conn,
		userID: userID,
		logger: logger,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *Connection) UserID() int64 { return c.userID }

// Push queues data without blocking.
func (c *Connection) Push(data []byte) error {
	select {
	case <-c.done:
		return &domain.ChannelError{UserID: c.userID, Err: ErrChannelClosed}
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return &domain.ChannelError{UserID: c.userID, Err: ErrChannelClosed}
	default:
		return &domain.ChannelError{UserID: c.userID, Err: ErrSendBufferFull}
	}
}

// Read blocks for the next frame.
func (c *Connection) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return nil, &domain.ChannelError{UserID: c.userID, Err: err}
	}
	return data, nil
}

// Close stops the write pump and closes the socket. Only the first call has
// any effect.
func (c *Connection) Close(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.conn.Close(code, reason); err != nil {
			c.logger.Debug("ws: close", "user_id", c.userID, "error", err)
		}
	})
}

// WritePump writes queued frames and keeps the connection alive with pings
// until the connection is closed.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.logger.Warn("ws: write error", "user_id", c.userID, "error", err)
				c.Close(websocket.StatusInternalError, "write failed")
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				c.logger.Warn("ws: ping error", "user_id", c.userID, "error", err)
				c.Close(websocket.StatusPolicyViolation, "ping timeout")
				return
			}

		case <-c.done:
			return
		}
	}
}
