package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaymasl/frtl-arcade/internal/game"
)

type moveRequest struct {
	SessionID string         `json:"session_id" binding:"required"`
	Direction game.Direction `json:"direction" binding:"required"`
}

// Game2048New starts a fresh 2048 board for the authenticated user.
func (h *Handler) Game2048New(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	view, err := h.Game2048.NewGame(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Game2048Move slides the board in one direction.
func (h *Handler) Game2048Move(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	sig := c.GetHeader(sessionSignatureHeader)
	res, err := h.Game2048.Move(c.Request.Context(), userID, req.SessionID, sig, req.Direction)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Game2048Refresh returns the current board.
func (h *Handler) Game2048Refresh(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	sig := c.GetHeader(sessionSignatureHeader)
	view, err := h.Game2048.Refresh(c.Request.Context(), userID, sessionID, sig)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
