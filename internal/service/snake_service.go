package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaymasl/frtl-arcade/internal/game"
	"github.com/jaymasl/frtl-arcade/internal/logger"
	"github.com/jaymasl/frtl-arcade/internal/reward"
	"github.com/jaymasl/frtl-arcade/internal/session"
)

const (
	// snakeDirQueueCap bounds how many pending turns a client may stack.
	snakeDirQueueCap = 2
	// snakeGraceDelay keeps a finished session alive so the client can read
	// the terminal frame before teardown.
	snakeGraceDelay = 5 * time.Second
	// snakeOutboundDepth is the frame buffer per session; full means drop.
	snakeOutboundDepth = 64
)

// Frames the snake transport sends besides state snapshots.
const (
	FrameGameOver        = `"GameOver"`
	FrameScrollCollected = `"ScrollCollected"`
)

type snakeSession struct {
	meta session.Meta
	game *game.Snake

	dirQueue []game.Direction
	lastTurn time.Time

	outbound chan string
	done     chan struct{}
	stop     sync.Once
}

func (s *snakeSession) Meta() *session.Meta { return &s.meta }

func (s *snakeSession) shutdown() {
	s.stop.Do(func() { close(s.done) })
}

// queueTail is the direction a new turn is checked against: the last queued
// one, or the current heading when nothing is pending.
func (s *snakeSession) queueTail() game.Direction {
	if n := len(s.dirQueue); n > 0 {
		return s.dirQueue[n-1]
	}
	return s.game.Dir
}

// SnakeService coordinates snake sessions over the outbound frame channels
// the transport reads from. Every session gets its own ticker goroutine;
// all engine access funnels through the registry guard.
type SnakeService struct {
	registry *session.Registry[*snakeSession]
	gateway  reward.Gateway
	limiter  *session.UserLimiter

	idleTimeout  time.Duration
	tickInterval time.Duration
	turnInterval time.Duration
	msgsPerSec   int

	now     func() time.Time
	newRand func() *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSnakeService(cap *session.Cap, gw reward.Gateway, limiter *session.UserLimiter, idleTimeout, tickInterval, turnInterval time.Duration, msgsPerSec int) *SnakeService {
	ctx, cancel := context.WithCancel(context.Background())
	return &SnakeService{
		registry:     session.NewRegistry[*snakeSession](cap, idleTimeout),
		gateway:      gw,
		limiter:      limiter,
		idleTimeout:  idleTimeout,
		tickInterval: tickInterval,
		turnInterval: turnInterval,
		msgsPerSec:   msgsPerSec,
		now:          time.Now,
		newRand:      newRNG,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Open registers a snake session for an authenticated connection and starts
// its ticker. The returned channel carries JSON frames until Close.
func (s *SnakeService) Open(ctx context.Context, userID uuid.UUID) (string, <-chan string, error) {
	now := s.now()
	if !s.limiter.Allow(userID, now) {
		return "", nil, ErrRateLimited
	}

	ctx, cancel := context.WithTimeout(ctx, newGameTimeout)
	defer cancel()
	token, err := s.gateway.OpenSession(ctx, userID, reward.KindSnake)
	if err != nil {
		logger.Error("snake open session", "user", userID.String(), "error", err)
		return "", nil, ErrGatewayUnavailable
	}

	sess := &snakeSession{
		meta:     session.NewMeta(newSessionID(), userID, token, now),
		game:     game.NewSnake(s.newRand()),
		outbound: make(chan string, snakeOutboundDepth),
		done:     make(chan struct{}),
	}
	if err := s.registry.Insert(sess); err != nil {
		// Cap pressure first reclaims expired sessions, then displaces
		// the least-recently-active one.
		s.Sweep(now)
		if err = s.registry.Insert(sess); err != nil {
			if old, ok := s.registry.EvictOldestIdle(); ok {
				old.shutdown()
				session.SweptSessions.WithLabelValues(reward.KindSnake).Inc()
			}
			err = s.registry.Insert(sess)
		}
		if err != nil {
			return "", nil, ErrCapacityExceeded
		}
	}

	s.wg.Add(1)
	go s.run(sess)
	return sess.meta.ID, sess.outbound, nil
}

// Done reports when the session has been torn down; the transport's write
// loop selects on it alongside the outbound channel.
func (s *SnakeService) Done(sessionID string) <-chan struct{} {
	var done chan struct{}
	if err := s.registry.With(sessionID, func(sess *snakeSession) error {
		done = sess.done
		return nil
	}); err != nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return done
}

// RecordInbound counts one client frame against the per-second budget.
// allowed flips to false once the count passes double the limit; smaller
// overshoots are only logged. alive is false when the session is gone.
func (s *SnakeService) RecordInbound(sessionID string) (alive, allowed bool) {
	now := s.now()
	allowed = true
	err := s.registry.With(sessionID, func(sess *snakeSession) error {
		sess.meta.Touch(now)
		count := sess.meta.CountEvent(now, time.Second)
		if count > 2*s.msgsPerSec {
			allowed = false
		} else if count > s.msgsPerSec {
			logger.Warn("snake message rate above limit", "session", sessionID, "count", count)
		}
		return nil
	})
	return err == nil, allowed
}

// Start resets the session to a fresh board and pushes the initial frame.
// Safe to call again after game over for a rematch on the same session.
func (s *SnakeService) Start(sessionID string) error {
	var frame string
	err := s.registry.With(sessionID, func(sess *snakeSession) error {
		sess.game = game.NewSnake(s.newRand())
		sess.dirQueue = sess.dirQueue[:0]
		sess.lastTurn = time.Time{}
		frame = marshalFrame(sess.game.State())
		return nil
	})
	if errors.Is(err, session.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	s.send(sessionID, frame)
	return nil
}

// ChangeDirection queues a turn. Reversals and duplicates of the pending
// heading are dropped silently, as is anything past the queue cap. The first
// accepted turn starts the game.
func (s *SnakeService) ChangeDirection(sessionID string, dir game.Direction) error {
	err := s.registry.With(sessionID, func(sess *snakeSession) error {
		if !dir.Valid() {
			return badRequest(game.ErrBadDirection)
		}
		if sess.game.GameOver {
			return nil
		}
		tail := sess.queueTail()
		if dir == tail || tail.Opposite(dir) {
			return nil
		}
		if !sess.game.Started {
			sess.game.Dir = dir
			sess.game.Started = true
			return nil
		}
		if len(sess.dirQueue) < snakeDirQueueCap {
			sess.dirQueue = append(sess.dirQueue, dir)
		}
		return nil
	})
	if errors.Is(err, session.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// Close tears the session down: the ticker exits on the next lookup, the
// done channel releases the transport, and the registry slot is freed.
func (s *SnakeService) Close(sessionID string) {
	var sess *snakeSession
	_ = s.registry.With(sessionID, func(x *snakeSession) error {
		sess = x
		return nil
	})
	if s.registry.Remove(sessionID) {
		session.SweptSessions.WithLabelValues(reward.KindSnake).Inc()
	}
	if sess != nil {
		sess.shutdown()
	}
}

// run drives one session at the fixed tick rate until the session dies or
// the service shuts down.
func (s *SnakeService) run(sess *snakeSession) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	id := sess.meta.ID
	for {
		select {
		case <-s.ctx.Done():
			s.Close(id)
			return
		case <-sess.done:
			return
		case <-ticker.C:
			if !s.tick(id) {
				return
			}
		}
	}
}

// tick runs one scheduler step: consume at most one queued turn, advance the
// engine, then dispatch rewards and frames outside the guard. Returns false
// when the ticker should stop.
func (s *SnakeService) tick(sessionID string) bool {
	now := s.now()
	var (
		frames   []string
		events   []game.Event
		gameOver bool
		started  bool
		userID   uuid.UUID
		token    string
	)
	err := s.registry.With(sessionID, func(sess *snakeSession) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("snake engine panic", "session", sessionID, "panic", r)
				retErr = ErrInternal
			}
		}()

		if sess.game.Started && len(sess.dirQueue) > 0 && now.Sub(sess.lastTurn) >= s.turnInterval {
			next := sess.dirQueue[0]
			sess.dirQueue = sess.dirQueue[1:]
			if sess.game.CanTurn(sess.game.Dir, next) {
				sess.game.Dir = next
			}
			sess.lastTurn = now
		}

		events = sess.game.Step()
		started = sess.game.Started
		gameOver = sess.game.GameOver
		userID = sess.meta.UserID
		token = sess.meta.GatewayToken
		if !started {
			return nil
		}

		for _, ev := range events {
			if ev.Kind == game.EventItem {
				frames = append(frames, FrameScrollCollected)
			}
		}
		frames = append(frames, marshalFrame(sess.game.State()))
		if gameOver {
			frames = append(frames, FrameGameOver)
		}
		return nil
	})
	if errors.Is(err, session.ErrNotFound) {
		return false
	}
	if err != nil {
		s.Close(sessionID)
		return false
	}

	dispatch(s.ctx, s.gateway, userID, token, reward.KindSnake, events)
	for _, frame := range frames {
		s.send(sessionID, frame)
	}

	if gameOver {
		// Leave the terminal state readable for a short grace window.
		time.AfterFunc(snakeGraceDelay, func() { s.Close(sessionID) })
		return false
	}
	return true
}

// send pushes a frame without ever blocking the scheduler. A full buffer
// means the client is not keeping up and the frame is dropped.
func (s *SnakeService) send(sessionID string, frame string) {
	var (
		out  chan string
		done chan struct{}
	)
	if err := s.registry.With(sessionID, func(sess *snakeSession) error {
		out = sess.outbound
		done = sess.done
		return nil
	}); err != nil {
		return
	}
	select {
	case out <- frame:
	case <-done:
	default:
		logger.Warn("snake outbound buffer full, dropping frame", "session", sessionID)
	}
}

func (s *SnakeService) Sweep(now time.Time) {
	for _, sess := range s.registry.Sweep(now) {
		sess.shutdown()
		session.SweptSessions.WithLabelValues(reward.KindSnake).Inc()
	}
}

// Stop cancels every ticker and waits for them to drain. Called once on
// process shutdown.
func (s *SnakeService) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *SnakeService) Live() int { return s.registry.Len() }

func marshalFrame(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Error("snake frame marshal", "error", err)
		return "{}"
	}
	return string(b)
}
