package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jaymasl/frtl-arcade/internal/game"
	"github.com/jaymasl/frtl-arcade/internal/session"
)

// newTestSnakeService uses an hour-long tick so the background ticker never
// fires; tests drive the scheduler by calling tick directly.
func newTestSnakeService(t *testing.T, gw *fakeGateway) (*SnakeService, *testClock) {
	t.Helper()
	clock := newTestClock()
	s := NewSnakeService(
		session.NewCap(1000), gw,
		session.NewUserLimiter(100, time.Minute),
		2*time.Hour, time.Hour, 50*time.Millisecond, 50,
	)
	s.now = clock.Now
	s.newRand = fixedRand
	t.Cleanup(s.Stop)
	return s, clock
}

func mutateSnake(t *testing.T, s *SnakeService, id string, fn func(*snakeSession)) {
	t.Helper()
	if err := s.registry.With(id, func(sess *snakeSession) error {
		fn(sess)
		return nil
	}); err != nil {
		t.Fatalf("mutate session: %v", err)
	}
}

func drainFrames(out <-chan string) []string {
	var frames []string
	for {
		select {
		case f := <-out:
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func lastState(t *testing.T, frames []string) game.SnakeState {
	t.Helper()
	for i := len(frames) - 1; i >= 0; i-- {
		var st game.SnakeState
		if err := json.Unmarshal([]byte(frames[i]), &st); err == nil && len(st.Snake) > 0 {
			return st
		}
	}
	t.Fatal("no state frame received")
	return game.SnakeState{}
}

func TestSnakeOpenAndStart(t *testing.T) {
	gw := newFakeGateway()
	s, _ := newTestSnakeService(t, gw)

	id, out, err := s.Open(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Start(id); err != nil {
		t.Fatalf("Start: %v", err)
	}

	st := lastState(t, drainFrames(out))
	if st.Started || st.GameOver {
		t.Fatalf("fresh board should be idle: %+v", st)
	}
	if len(st.Snake) != 1 || st.Snake[0] != (game.Cell{X: 10, Y: 10}) {
		t.Fatalf("snake = %v, want single segment at center", st.Snake)
	}
}

func TestSnakeIdleUntilFirstDirection(t *testing.T) {
	gw := newFakeGateway()
	s, _ := newTestSnakeService(t, gw)
	id, out, _ := s.Open(context.Background(), uuid.New())

	if !s.tick(id) {
		t.Fatal("idle tick should keep the session alive")
	}
	if frames := drainFrames(out); len(frames) != 0 {
		t.Fatalf("idle session pushed %d frames", len(frames))
	}

	if err := s.ChangeDirection(id, game.DirUp); err != nil {
		t.Fatalf("ChangeDirection: %v", err)
	}
	if !s.tick(id) {
		t.Fatal("running tick should keep the session alive")
	}
	st := lastState(t, drainFrames(out))
	if !st.Started {
		t.Fatal("first direction should start the game")
	}
	if st.Snake[0] != (game.Cell{X: 10, Y: 9}) {
		t.Fatalf("head = %v, want one cell up", st.Snake[0])
	}
}

func TestSnakeFirstReversalRejected(t *testing.T) {
	gw := newFakeGateway()
	s, _ := newTestSnakeService(t, gw)
	id, _, _ := s.Open(context.Background(), uuid.New())

	// Heading starts Right, so Left is a reversal even before the game runs.
	if err := s.ChangeDirection(id, game.DirLeft); err != nil {
		t.Fatalf("ChangeDirection: %v", err)
	}
	mutateSnake(t, s, id, func(sess *snakeSession) {
		if sess.game.Started {
			t.Error("reversal must not start the game")
		}
	})
}

func TestSnakeDirectionQueue(t *testing.T) {
	gw := newFakeGateway()
	s, clock := newTestSnakeService(t, gw)
	id, _, _ := s.Open(context.Background(), uuid.New())

	// Up starts the game; Left and Down queue; Right exceeds the cap.
	for _, dir := range []game.Direction{game.DirUp, game.DirLeft, game.DirDown, game.DirRight} {
		if err := s.ChangeDirection(id, dir); err != nil {
			t.Fatalf("ChangeDirection(%s): %v", dir, err)
		}
	}
	mutateSnake(t, s, id, func(sess *snakeSession) {
		if len(sess.dirQueue) != 2 {
			t.Fatalf("queue = %v, want [Left Down]", sess.dirQueue)
		}
	})

	clock.Advance(50 * time.Millisecond)
	s.tick(id)
	mutateSnake(t, s, id, func(sess *snakeSession) {
		if sess.game.Dir != game.DirLeft {
			t.Errorf("dir = %s, want Left", sess.game.Dir)
		}
		if len(sess.dirQueue) != 1 {
			t.Errorf("queue = %v, want [Down]", sess.dirQueue)
		}
	})

	// The next turn waits out the minimum turn interval.
	s.tick(id)
	mutateSnake(t, s, id, func(sess *snakeSession) {
		if sess.game.Dir != game.DirLeft {
			t.Errorf("dir = %s, turn consumed too early", sess.game.Dir)
		}
	})
	clock.Advance(50 * time.Millisecond)
	s.tick(id)
	mutateSnake(t, s, id, func(sess *snakeSession) {
		if sess.game.Dir != game.DirDown {
			t.Errorf("dir = %s, want Down", sess.game.Dir)
		}
	})
}

func TestSnakeDuplicateDirectionDropped(t *testing.T) {
	gw := newFakeGateway()
	s, _ := newTestSnakeService(t, gw)
	id, _, _ := s.Open(context.Background(), uuid.New())

	s.ChangeDirection(id, game.DirUp)
	s.ChangeDirection(id, game.DirUp)
	mutateSnake(t, s, id, func(sess *snakeSession) {
		if len(sess.dirQueue) != 0 {
			t.Fatalf("queue = %v, duplicate should be dropped", sess.dirQueue)
		}
	})
	// Down reverses the pending Up heading and is dropped too.
	s.ChangeDirection(id, game.DirDown)
	mutateSnake(t, s, id, func(sess *snakeSession) {
		if len(sess.dirQueue) != 0 {
			t.Fatalf("queue = %v, reversal should be dropped", sess.dirQueue)
		}
	})
}

func TestSnakeWallCollisionEndsGame(t *testing.T) {
	gw := newFakeGateway()
	s, _ := newTestSnakeService(t, gw)
	id, out, _ := s.Open(context.Background(), uuid.New())

	mutateSnake(t, s, id, func(sess *snakeSession) {
		sess.game.Started = true
		sess.game.Body = []game.Cell{{X: 19, Y: 10}}
		sess.game.Dir = game.DirRight
		sess.game.Score = 12
		sess.game.Food = game.Food{Position: game.Cell{X: 0, Y: 0}, Type: game.FoodRegular}
	})

	if s.tick(id) {
		t.Fatal("game-over tick should stop the ticker")
	}

	frames := drainFrames(out)
	if len(frames) == 0 || frames[len(frames)-1] != FrameGameOver {
		t.Fatalf("frames = %v, want terminal GameOver frame", frames)
	}
	st := lastState(t, frames)
	if !st.GameOver {
		t.Fatal("state frame should carry game over")
	}
	if scores := gw.scores["snake"]; len(scores) != 1 || scores[0] != 12 {
		t.Fatalf("leaderboard = %v, want [12]", scores)
	}
}

func TestSnakeFoodRewardDispatch(t *testing.T) {
	gw := newFakeGateway()
	s, _ := newTestSnakeService(t, gw)
	id, out, _ := s.Open(context.Background(), uuid.New())

	// Score 4 and food directly ahead: eating makes 5, worth one pax.
	mutateSnake(t, s, id, func(sess *snakeSession) {
		sess.game.Started = true
		sess.game.Body = []game.Cell{{X: 5, Y: 5}}
		sess.game.Dir = game.DirRight
		sess.game.Score = 4
		sess.game.Food = game.Food{Position: game.Cell{X: 6, Y: 5}, Type: game.FoodRegular}
	})

	if !s.tick(id) {
		t.Fatal("session should stay alive")
	}
	if got := gw.creditedTotal(); got != 1 {
		t.Fatalf("credited %d, want 1", got)
	}
	st := lastState(t, drainFrames(out))
	if st.Score != 5 || len(st.Snake) != 2 {
		t.Fatalf("state = %+v, want score 5 and length 2", st)
	}
}

func TestSnakeScrollFoodGrantsItem(t *testing.T) {
	gw := newFakeGateway()
	s, _ := newTestSnakeService(t, gw)
	id, out, _ := s.Open(context.Background(), uuid.New())

	mutateSnake(t, s, id, func(sess *snakeSession) {
		sess.game.Started = true
		sess.game.Body = []game.Cell{{X: 5, Y: 5}}
		sess.game.Dir = game.DirRight
		sess.game.Food = game.Food{Position: game.Cell{X: 6, Y: 5}, Type: game.FoodScroll}
	})

	s.tick(id)
	if got := gw.items[game.ScrollItem]; got != 1 {
		t.Fatalf("scroll grants = %d, want 1", got)
	}
	frames := drainFrames(out)
	if len(frames) < 2 || frames[0] != FrameScrollCollected {
		t.Fatalf("frames = %v, want leading ScrollCollected", frames)
	}
}

func TestSnakeStartResetsAfterGameOver(t *testing.T) {
	gw := newFakeGateway()
	s, _ := newTestSnakeService(t, gw)
	id, out, _ := s.Open(context.Background(), uuid.New())

	mutateSnake(t, s, id, func(sess *snakeSession) {
		sess.game.Started = true
		sess.game.GameOver = true
		sess.game.Score = 7
	})
	if err := s.Start(id); err != nil {
		t.Fatalf("Start: %v", err)
	}
	st := lastState(t, drainFrames(out))
	if st.GameOver || st.Score != 0 {
		t.Fatalf("state = %+v, want fresh board", st)
	}
}

func TestSnakeInboundRateLimit(t *testing.T) {
	gw := newFakeGateway()
	s, _ := newTestSnakeService(t, gw)
	s.msgsPerSec = 3
	id, _, _ := s.Open(context.Background(), uuid.New())

	for i := 0; i < 6; i++ {
		alive, allowed := s.RecordInbound(id)
		if !alive || !allowed {
			t.Fatalf("frame %d rejected below double the limit", i+1)
		}
	}
	if _, allowed := s.RecordInbound(id); allowed {
		t.Fatal("frame past double the limit should be rejected")
	}

	s.Close(id)
	if alive, _ := s.RecordInbound(id); alive {
		t.Fatal("closed session should report not alive")
	}
}

func TestSnakeCloseIsIdempotent(t *testing.T) {
	gw := newFakeGateway()
	s, _ := newTestSnakeService(t, gw)
	id, _, _ := s.Open(context.Background(), uuid.New())

	s.Close(id)
	s.Close(id)
	if s.Live() != 0 {
		t.Fatal("session should be gone")
	}
	select {
	case <-s.Done(id):
	default:
		t.Fatal("Done of a closed session should be released")
	}
	if err := s.ChangeDirection(id, game.DirUp); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSnakeSweepEvictsIdle(t *testing.T) {
	gw := newFakeGateway()
	s, clock := newTestSnakeService(t, gw)
	id, _, _ := s.Open(context.Background(), uuid.New())

	clock.Advance(3 * time.Hour)
	s.Sweep(clock.Now())
	if s.Live() != 0 {
		t.Fatal("idle session must be evicted")
	}
	select {
	case <-s.Done(id):
	default:
		t.Fatal("sweep must release the transport")
	}
}
