package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// sessionSignatureHeader carries the HMAC issued at session creation. Every
// call after new must echo it.
const sessionSignatureHeader = "X-Session-Signature"

type revealRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	First     int    `json:"first_index"`
	Second    int    `json:"second_index"`
}

// MatchNew deals a new card-match board for the authenticated user.
func (h *Handler) MatchNew(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	view, err := h.Match.NewGame(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// MatchReveal flips two cards and reports whether they paired.
func (h *Handler) MatchReveal(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req revealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	sig := c.GetHeader(sessionSignatureHeader)
	res, err := h.Match.Reveal(c.Request.Context(), userID, req.SessionID, sig, req.First, req.Second)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// MatchRevealOne flips a single card face up and returns only that card.
func (h *Handler) MatchRevealOne(c *gin.Context) {
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
	index, err := strconv.Atoi(c.Query("card_index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "card_index must be an integer"})
		return
	}

	sig := c.GetHeader(sessionSignatureHeader)
	card, err := h.Match.RevealOne(c.Request.Context(), userID, sessionID, sig, index)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"card": card})
}

// MatchRefresh settles pending hides and returns the current board.
func (h *Handler) MatchRefresh(c *gin.Context) {
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
	res, err := h.Match.Refresh(c.Request.Context(), userID, sessionID, sig)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
