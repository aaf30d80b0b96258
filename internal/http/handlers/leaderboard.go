package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jaymasl/frtl-arcade/internal/reward"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

// Leaderboard returns the best scores for one game kind, highest first.
func (h *Handler) Leaderboard(c *gin.Context) {
	gameKind := c.Param("game")
	switch gameKind {
	case reward.KindMatch, reward.KindSnake, reward.Kind2048:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown game"})
		return
	}

	limit := defaultLeaderboardSize
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxLeaderboardSize)
	}

	rows, err := h.Rewards.TopScores(c.Request.Context(), gameKind, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "leaderboard unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": gameKind, "scores": rows})
}
