package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jaymasl/frtl-arcade/internal/http/middleware"
	"github.com/jaymasl/frtl-arcade/internal/repository"
	"github.com/jaymasl/frtl-arcade/internal/service"
)

// Handler bundles the game coordinators behind the HTTP surface.
type Handler struct {
	Match    *service.MatchService
	Game2048 *service.Game2048Service
	Rewards  *repository.RewardRepository
}

func NewHandler(match *service.MatchService, game2048 *service.Game2048Service, rewards *repository.RewardRepository) *Handler {
	return &Handler{Match: match, Game2048: game2048, Rewards: rewards}
}

// getUserID pulls the user id the JWT middleware resolved.
func getUserID(c *gin.Context) (uuid.UUID, bool) {
	val, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	userID, ok := val.(uuid.UUID)
	return userID, ok
}

// respondError maps coordinator error kinds onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrGone):
		status = http.StatusGone
	case errors.Is(err, service.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, service.ErrCapacityExceeded),
		errors.Is(err, service.ErrGatewayUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
