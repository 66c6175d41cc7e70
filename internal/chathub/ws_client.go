package chathub

import (
	"sync"
	"time"

	"anonchat/backend/internal/config"
	"anonchat/backend/internal/logger"
	"anonchat/backend/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 8192
)

// FrameHandler consumes one raw inbound frame.
type FrameHandler func(raw []byte)

// WSClient implements Client over a gorilla WebSocket connection. The write
// pump is the sole owner of the connection's write side; the read pump
// feeds frames to the session router.
type WSClient struct {
	conn *websocket.Conn
	send chan models.OutFrame

	closeOnce sync.Once
	done      chan struct{}
}

// NewWSClient wraps an upgraded connection.
func NewWSClient(conn *websocket.Conn) *WSClient {
	return &WSClient{
		conn: conn,
		send: make(chan models.OutFrame, config.OutboundQueueSize),
		done: make(chan struct{}),
	}
}

// Enqueue places a frame on the outbound queue without blocking. Frames to
// a closed client are dropped; a full queue returns false.
func (c *WSClient) Enqueue(frame models.OutFrame) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close stops the write pump, which closes the connection and in turn ends
// the read pump. Idempotent.
func (c *WSClient) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Run starts both pumps. onFrame receives each inbound frame in order;
// onClose runs exactly once when the read side ends.
func (c *WSClient) Run(onFrame FrameHandler, onClose func()) {
	go c.writePump()
	go c.readPump(onFrame, onClose)
}

func (c *WSClient) readPump(onFrame FrameHandler, onClose func()) {
	defer func() {
		onClose()
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger.Log.Warnf("Read error: %v", err)
			}
			return
		}
		onFrame(raw)
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			// Drain whatever was queued before the close, then say goodbye.
			for {
				select {
				case frame := <-c.send:
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.conn.WriteJSON(frame); err != nil {
						return
					}
				default:
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
			}
		}
	}
}
