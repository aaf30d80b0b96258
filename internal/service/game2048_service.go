package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/jaymasl/frtl-arcade/internal/game"
	"github.com/jaymasl/frtl-arcade/internal/logger"
	"github.com/jaymasl/frtl-arcade/internal/reward"
	"github.com/jaymasl/frtl-arcade/internal/session"
	"github.com/jaymasl/frtl-arcade/internal/signer"
)

// GameOverClaimer marks a session's terminal reward as claimed exactly once
// across restarts. Nil disables the external guard and leaves idempotence to
// the engine's own once-flag.
type GameOverClaimer interface {
	ClaimGameOverReward(ctx context.Context, userID uuid.UUID, token string) (bool, error)
}

type game2048Session struct {
	meta     session.Meta
	game     *game.Game2048
	lastMove time.Time
}

func (s *game2048Session) Meta() *session.Meta { return &s.meta }

// Game2048Service coordinates 2048 sessions. Moves arriving faster than the
// minimum interval are ignored rather than rejected, so an eager client
// never sees an error for double-tapping.
type Game2048Service struct {
	registry *session.Registry[*game2048Session]
	signer   *signer.Signer
	gateway  reward.Gateway
	limiter  *session.UserLimiter
	claimer  GameOverClaimer

	idleTimeout  time.Duration
	moveInterval time.Duration

	now     func() time.Time
	newRand func() *rand.Rand
}

func New2048Service(cap *session.Cap, sig *signer.Signer, gw reward.Gateway, limiter *session.UserLimiter, claimer GameOverClaimer, idleTimeout, moveInterval time.Duration) *Game2048Service {
	return &Game2048Service{
		registry:     session.NewRegistry[*game2048Session](cap, idleTimeout),
		signer:       sig,
		gateway:      gw,
		limiter:      limiter,
		claimer:      claimer,
		idleTimeout:  idleTimeout,
		moveInterval: moveInterval,
		now:          time.Now,
		newRand:      newRNG,
	}
}

type View2048 struct {
	SessionID string          `json:"session_id"`
	Signature string          `json:"session_signature,omitempty"`
	Game      game.Public2048 `json:"game"`
}

func (s *Game2048Service) NewGame(ctx context.Context, userID uuid.UUID) (*View2048, error) {
	now := s.now()
	if !s.limiter.Allow(userID, now) {
		return nil, ErrRateLimited
	}

	ctx, cancel := context.WithTimeout(ctx, newGameTimeout)
	defer cancel()
	token, err := s.gateway.OpenSession(ctx, userID, reward.Kind2048)
	if err != nil {
		logger.Error("2048 open session", "user", userID.String(), "error", err)
		return nil, ErrGatewayUnavailable
	}

	sess := &game2048Session{
		meta: session.NewMeta(newSessionID(), userID, token, now),
		game: game.New2048(s.newRand()),
	}
	if err := s.registry.Insert(sess); err != nil {
		// Cap pressure first reclaims expired sessions, then displaces
		// the least-recently-active one.
		s.Sweep(now)
		if err = s.registry.Insert(sess); err != nil {
			if _, ok := s.registry.EvictOldestIdle(); ok {
				session.SweptSessions.WithLabelValues(reward.Kind2048).Inc()
			}
			err = s.registry.Insert(sess)
		}
		if err != nil {
			return nil, ErrCapacityExceeded
		}
	}

	return &View2048{
		SessionID: sess.meta.ID,
		Signature: s.signer.Sign(signer.SessionMessage(sess.meta.ID)),
		Game:      sess.game.Public(),
	}, nil
}

type MoveResult struct {
	Moved      bool            `json:"moved"`
	Ignored    bool            `json:"ignored,omitempty"`
	Score      int             `json:"score"`
	Game       game.Public2048 `json:"game"`
	NewBalance *int            `json:"new_balance,omitempty"`
}

func (s *Game2048Service) Move(ctx context.Context, userID uuid.UUID, sessionID, sig string, dir game.Direction) (*MoveResult, error) {
	now := s.now()
	var (
		result MoveResult
		events []game.Event
		token  string
	)
	err := s.withSession(userID, sessionID, sig, now, func(sess *game2048Session) error {
		sess.meta.Touch(now)
		result.Score = sess.game.Score
		result.Game = sess.game.Public()
		if !sess.lastMove.IsZero() && now.Sub(sess.lastMove) < s.moveInterval {
			result.Ignored = true
			return nil
		}
		sess.lastMove = now

		moved, evs, err := sess.game.Move(dir)
		if err != nil {
			return badRequest(err)
		}
		result.Moved = moved
		result.Score = sess.game.Score
		result.Game = sess.game.Public()
		events = evs
		token = sess.meta.GatewayToken
		return nil
	})
	if err != nil {
		return nil, err
	}

	events = s.claimGameOver(ctx, userID, token, events)
	result.NewBalance = dispatch(ctx, s.gateway, userID, token, reward.Kind2048, events)
	return &result, nil
}

func (s *Game2048Service) Refresh(ctx context.Context, userID uuid.UUID, sessionID, sig string) (*View2048, error) {
	now := s.now()
	var view View2048
	err := s.withSession(userID, sessionID, sig, now, func(sess *game2048Session) error {
		sess.meta.Touch(now)
		view = View2048{SessionID: sessionID, Game: sess.game.Public()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// claimGameOver drops the terminal reward batch when another process has
// already claimed it for this session token.
func (s *Game2048Service) claimGameOver(ctx context.Context, userID uuid.UUID, token string, events []game.Event) []game.Event {
	if len(events) == 0 || s.claimer == nil {
		return events
	}
	ok, err := s.claimer.ClaimGameOverReward(ctx, userID, token)
	if err != nil {
		logger.Error("2048 reward claim", "user", userID.String(), "error", err)
		return nil
	}
	if !ok {
		logger.Warn("2048 reward already claimed", "user", userID.String())
		return nil
	}
	return events
}

func (s *Game2048Service) withSession(userID uuid.UUID, sessionID, sig string, now time.Time, fn func(*game2048Session) error) error {
	if !s.signer.Verify(signer.SessionMessage(sessionID), sig) {
		return ErrForbidden
	}

	terminate := false
	err := s.registry.With(sessionID, func(sess *game2048Session) (retErr error) {
		if sess.meta.UserID != userID {
			return ErrForbidden
		}
		if sess.meta.Expired(now, s.idleTimeout) {
			terminate = true
			return ErrGone
		}
		defer func() {
			if r := recover(); r != nil {
				logger.Error("2048 engine panic", "session", sessionID, "panic", r)
				terminate = true
				retErr = ErrInternal
			}
		}()
		return fn(sess)
	})
	if terminate {
		s.registry.Remove(sessionID)
	}
	if errors.Is(err, session.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Game2048Service) Sweep(now time.Time) {
	for range s.registry.Sweep(now) {
		session.SweptSessions.WithLabelValues(reward.Kind2048).Inc()
	}
}

func (s *Game2048Service) Live() int { return s.registry.Len() }
