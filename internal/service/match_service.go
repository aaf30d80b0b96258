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

type matchSession struct {
	meta session.Meta
	game *game.Match
}

func (s *matchSession) Meta() *session.Meta { return &s.meta }

// MatchService coordinates card-match sessions: it owns the registry, checks
// signatures and rate limits, runs the engine under the session guard, and
// dispatches reward events after release.
type MatchService struct {
	registry *session.Registry[*matchSession]
	signer   *signer.Signer
	gateway  reward.Gateway
	limiter  *session.UserLimiter

	idleTimeout time.Duration
	revealLimit int

	now     func() time.Time
	newRand func() *rand.Rand
	// after schedules the delayed hide of a failed pair.
	after func(d time.Duration, f func()) *time.Timer
}

func NewMatchService(cap *session.Cap, sig *signer.Signer, gw reward.Gateway, limiter *session.UserLimiter, idleTimeout time.Duration, revealLimit int) *MatchService {
	return &MatchService{
		registry:    session.NewRegistry[*matchSession](cap, idleTimeout),
		signer:      sig,
		gateway:     gw,
		limiter:     limiter,
		idleTimeout: idleTimeout,
		revealLimit: revealLimit,
		now:         time.Now,
		newRand:     newRNG,
		after:       time.AfterFunc,
	}
}

type MatchView struct {
	SessionID string           `json:"session_id"`
	Signature string           `json:"session_signature,omitempty"`
	Game      game.PublicMatch `json:"game"`
}

// NewGame opens a gateway session, deals a board, and registers it. The
// signature in the result must be echoed on every later call.
func (s *MatchService) NewGame(ctx context.Context, userID uuid.UUID) (*MatchView, error) {
	now := s.now()
	if !s.limiter.Allow(userID, now) {
		return nil, ErrRateLimited
	}

	ctx, cancel := context.WithTimeout(ctx, newGameTimeout)
	defer cancel()
	token, err := s.gateway.OpenSession(ctx, userID, reward.KindMatch)
	if err != nil {
		logger.Error("match open session", "user", userID.String(), "error", err)
		return nil, ErrGatewayUnavailable
	}

	sess := &matchSession{
		meta: session.NewMeta(newSessionID(), userID, token, now),
		game: game.NewMatch(s.newRand()),
	}
	if err := s.registry.Insert(sess); err != nil {
		// Cap pressure first reclaims expired sessions, then displaces
		// the least-recently-active one.
		s.Sweep(now)
		if err = s.registry.Insert(sess); err != nil {
			if _, ok := s.registry.EvictOldestIdle(); ok {
				session.SweptSessions.WithLabelValues(reward.KindMatch).Inc()
			}
			err = s.registry.Insert(sess)
		}
		if err != nil {
			return nil, ErrCapacityExceeded
		}
	}

	return &MatchView{
		SessionID: sess.meta.ID,
		Signature: s.signer.Sign(signer.SessionMessage(sess.meta.ID)),
		Game:      sess.game.Public(),
	}, nil
}

type RevealResult struct {
	MatchFound bool             `json:"match_found"`
	Score      int              `json:"score"`
	Game       game.PublicMatch `json:"game"`
	NewBalance *int             `json:"new_balance,omitempty"`
}

// Reveal flips two cards. A failed pair stays visible and is hidden again by
// a timer one second later; a matched pair credits rewards through the
// gateway once the session guard is released.
func (s *MatchService) Reveal(ctx context.Context, userID uuid.UUID, sessionID, sig string, first, second int) (*RevealResult, error) {
	now := s.now()
	var (
		result RevealResult
		events []game.Event
		token  string
	)
	err := s.withSession(userID, sessionID, sig, now, func(sess *matchSession) error {
		count := sess.meta.CountEvent(now, time.Minute)
		if count > 2*s.revealLimit {
			return ErrRateLimited
		}
		if count > s.revealLimit {
			logger.Warn("match reveal rate above limit", "session", sessionID, "count", count)
		}
		sess.meta.Touch(now)

		matched, evs, err := sess.game.Reveal(first, second, now)
		if err != nil {
			return badRequest(err)
		}
		result.MatchFound = matched
		result.Score = sess.game.Score
		result.Game = sess.game.Public()
		events = evs
		token = sess.meta.GatewayToken
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.MatchFound {
		s.after(game.HideDelay, func() { s.hideUnmatched(sessionID) })
	}
	result.NewBalance = dispatch(ctx, s.gateway, userID, token, reward.KindMatch, events)
	return &result, nil
}

// RevealOne flips a single card face up and returns just that card. No
// pairing, no reward.
func (s *MatchService) RevealOne(ctx context.Context, userID uuid.UUID, sessionID, sig string, index int) (*game.PublicCard, error) {
	now := s.now()
	var card game.PublicCard
	err := s.withSession(userID, sessionID, sig, now, func(sess *matchSession) error {
		sess.meta.Touch(now)
		if err := sess.game.RevealOne(index); err != nil {
			return badRequest(err)
		}
		card = sess.game.Public().Cards[index]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// Refresh settles any pending hide and returns the current board.
func (s *MatchService) Refresh(ctx context.Context, userID uuid.UUID, sessionID, sig string) (*RevealResult, error) {
	now := s.now()
	var result RevealResult
	err := s.withSession(userID, sessionID, sig, now, func(sess *matchSession) error {
		sess.meta.Touch(now)
		sess.game.HideUnmatched(now)
		result.Score = sess.game.Score
		result.Game = sess.game.Public()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// withSession verifies the signature, rejects expired or foreign sessions,
// and runs fn under the session guard with engine panics contained.
func (s *MatchService) withSession(userID uuid.UUID, sessionID, sig string, now time.Time, fn func(*matchSession) error) error {
	if !s.signer.Verify(signer.SessionMessage(sessionID), sig) {
		return ErrForbidden
	}

	terminate := false
	err := s.registry.With(sessionID, func(sess *matchSession) (retErr error) {
		if sess.meta.UserID != userID {
			return ErrForbidden
		}
		if sess.meta.Expired(now, s.idleTimeout) {
			terminate = true
			return ErrGone
		}
		defer func() {
			if r := recover(); r != nil {
				logger.Error("match engine panic", "session", sessionID, "panic", r)
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

func (s *MatchService) hideUnmatched(sessionID string) {
	_ = s.registry.With(sessionID, func(sess *matchSession) error {
		sess.game.HideUnmatched(s.now())
		return nil
	})
}

// Sweep evicts idle sessions and compacts the per-user limiter.
func (s *MatchService) Sweep(now time.Time) {
	for range s.registry.Sweep(now) {
		session.SweptSessions.WithLabelValues(reward.KindMatch).Inc()
	}
	s.limiter.GC(now)
}

func (s *MatchService) Live() int { return s.registry.Len() }

// badRequest folds engine validation errors into the request-error kind
// while keeping the engine's message for the response body.
func badRequest(err error) error {
	return errors.Join(ErrBadRequest, err)
}
