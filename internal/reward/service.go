package reward

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jaymasl/frtl-arcade/internal/logger"
	"github.com/jaymasl/frtl-arcade/internal/repository"
	"github.com/jaymasl/frtl-arcade/internal/signer"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// TokenTTL bounds how long an opened gateway session stays creditable.
const TokenTTL = 2 * time.Hour

var (
	rewardsGranted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_rewards_granted_total",
			Help: "Reward gateway calls that committed",
		},
		[]string{"kind"},
	)
	rewardsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_rewards_failed_total",
			Help: "Reward gateway calls that failed or were rejected",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(rewardsGranted)
	prometheus.MustRegister(rewardsFailed)
}

// Service implements Gateway over postgres (balances, inventory, scores) and
// redis (token store, idempotency claims). Tokens have the form
// "<session-id>:<mac>" where the mac covers the session id alone.
type Service struct {
	rewards *repository.RewardRepository
	tokens  *repository.TokenRepository
	signer  *signer.Signer
}

func NewService(rewards *repository.RewardRepository, tokens *repository.TokenRepository, sig *signer.Signer) *Service {
	return &Service{rewards: rewards, tokens: tokens, signer: sig}
}

func (s *Service) OpenSession(ctx context.Context, userID uuid.UUID, gameKind string) (string, error) {
	if !validKind(gameKind) {
		return "", ErrBadGameKind
	}

	sessionID := uuid.New().String()
	if err := s.tokens.StoreSession(ctx, userID, sessionID, TokenTTL); err != nil {
		rewardsFailed.WithLabelValues(gameKind).Inc()
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	logger.Info("gateway session opened", "user_id", userID, "game", gameKind)
	return sessionID + ":" + s.signer.Sign(sessionID), nil
}

// validateToken checks structure, MAC and the redis session record.
func (s *Service) validateToken(ctx context.Context, userID uuid.UUID, token string) error {
	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return ErrInvalidToken
	}
	sessionID, mac := parts[0], parts[1]

	if !s.signer.Verify(sessionID, mac) {
		return ErrInvalidToken
	}

	exists, err := s.tokens.SessionExists(ctx, userID, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !exists {
		return ErrInvalidToken
	}
	return nil
}

func (s *Service) CreditCurrency(ctx context.Context, userID uuid.UUID, token string, amount int) (int, error) {
	if amount <= 0 || amount > 1000 {
		rewardsFailed.WithLabelValues("currency").Inc()
		return 0, fmt.Errorf("reward amount %d out of range", amount)
	}
	if err := s.validateToken(ctx, userID, token); err != nil {
		rewardsFailed.WithLabelValues("currency").Inc()
		return 0, err
	}

	balance, err := s.rewards.CreditCurrency(ctx, userID, amount)
	if err != nil {
		rewardsFailed.WithLabelValues("currency").Inc()
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rewardsGranted.WithLabelValues("currency").Inc()
	return balance, nil
}

func (s *Service) CreditItem(ctx context.Context, userID uuid.UUID, token, itemKind string, qty int) error {
	if qty <= 0 {
		rewardsFailed.WithLabelValues("item").Inc()
		return fmt.Errorf("item quantity %d out of range", qty)
	}
	if err := s.validateToken(ctx, userID, token); err != nil {
		rewardsFailed.WithLabelValues("item").Inc()
		return err
	}

	if err := s.rewards.CreditItem(ctx, userID, itemKind, qty); err != nil {
		rewardsFailed.WithLabelValues("item").Inc()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rewardsGranted.WithLabelValues("item").Inc()
	return nil
}

func (s *Service) RecordLeaderboard(ctx context.Context, userID uuid.UUID, gameKind string, score int) error {
	if !validKind(gameKind) {
		return ErrBadGameKind
	}
	if score < 0 {
		return fmt.Errorf("score %d out of range", score)
	}

	if err := s.rewards.RecordScore(ctx, userID, gameKind, score); err != nil {
		rewardsFailed.WithLabelValues("leaderboard").Inc()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rewardsGranted.WithLabelValues("leaderboard").Inc()
	return nil
}

// ClaimGameOverReward takes the once-only idempotency claim for a terminal
// reward, keyed by user and token. Sessions whose game can end exactly once
// (2048) route their final currency grant through this guard.
func (s *Service) ClaimGameOverReward(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
	return s.tokens.ClaimOnce(ctx, userID.String()+":"+token, TokenTTL)
}
