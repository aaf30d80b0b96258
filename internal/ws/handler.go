package ws

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/jaymasl/frtl-arcade/internal/auth"
	"github.com/jaymasl/frtl-arcade/internal/logger"
	"github.com/jaymasl/frtl-arcade/internal/service"
)

// authWait bounds how long an upgraded connection may sit silent before
// sending its credential frame.
const authWait = 5 * time.Second

// HandleSnake upgrades the connection and authenticates it with the first
// frame, which must be "Bearer <jwt>". Everything after that is the snake
// message protocol.
func HandleSnake(snake *service.SnakeService, verifier *auth.Verifier, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("snake upgrade failed", "error", err)
			return
		}

		conn.SetReadLimit(maxFrameSize)
		_ = conn.SetReadDeadline(time.Now().Add(authWait))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			return
		}

		token, ok := strings.CutPrefix(string(raw), "Bearer ")
		if !ok {
			closeWith(conn, websocket.ClosePolicyViolation, "credential frame required")
			return
		}
		userID, err := verifier.Authenticate(token)
		if err != nil {
			closeWith(conn, websocket.ClosePolicyViolation, "unauthorized")
			return
		}

		sessionID, outbound, err := snake.Open(c.Request.Context(), userID)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrRateLimited):
				closeWith(conn, websocket.ClosePolicyViolation, "too many new games")
			case errors.Is(err, service.ErrCapacityExceeded):
				closeWith(conn, websocket.CloseTryAgainLater, "session capacity exceeded")
			default:
				closeWith(conn, websocket.CloseInternalServerErr, "unavailable")
			}
			return
		}

		logger.Info("snake session opened", "session", sessionID, "user", userID.String())
		go NewClient(sessionID, conn, snake, outbound).Run()
	}
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	_ = conn.Close()
}
