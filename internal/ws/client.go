package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jaymasl/frtl-arcade/internal/logger"
	"github.com/jaymasl/frtl-arcade/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	// maxFrameSize caps inbound frames; the whole message set fits well under it.
	maxFrameSize = 1024
)

// Client bridges one websocket connection to its snake session. The read
// pump feeds inbound frames into the coordinator; the write pump drains the
// session's outbound channel until the session is torn down.
type Client struct {
	sessionID string
	conn      *websocket.Conn
	snake     *service.SnakeService
	outbound  <-chan string
}

func NewClient(sessionID string, conn *websocket.Conn, snake *service.SnakeService, outbound <-chan string) *Client {
	return &Client{
		sessionID: sessionID,
		conn:      conn,
		snake:     snake,
		outbound:  outbound,
	}
}

func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.snake.Close(c.sessionID)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		alive, allowed := c.snake.RecordInbound(c.sessionID)
		if !alive {
			return
		}
		if !allowed {
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Debug("snake frame rejected", "session", c.sessionID, "error", err)
			continue
		}

		switch msg.Kind {
		case KindStart:
			err = c.snake.Start(c.sessionID)
		case KindChangeDirection:
			err = c.snake.ChangeDirection(c.sessionID, msg.Direction)
		}
		if err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	done := c.snake.Done(c.sessionID)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.outbound:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		case <-done:
			// Drain what the scheduler managed to queue, then close politely.
			for {
				select {
				case frame := <-c.outbound:
					_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					_ = c.conn.WriteMessage(websocket.TextMessage, []byte(frame))
					continue
				default:
				}
				break
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
