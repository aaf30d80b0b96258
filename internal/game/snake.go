package game

import "math/rand"

// Direction is shared by the snake and 2048 engines. Values match the wire
// encoding clients send.
type Direction string

const (
	DirUp    Direction = "Up"
	DirDown  Direction = "Down"
	DirLeft  Direction = "Left"
	DirRight Direction = "Right"
)

func (d Direction) Valid() bool {
	switch d {
	case DirUp, DirDown, DirLeft, DirRight:
		return true
	}
	return false
}

func (d Direction) Opposite(other Direction) bool {
	switch {
	case d == DirUp && other == DirDown,
		d == DirDown && other == DirUp,
		d == DirLeft && other == DirRight,
		d == DirRight && other == DirLeft:
		return true
	}
	return false
}

const (
	SnakeGridWidth  = 20
	SnakeGridHeight = 20
	// ScrollFoodChance applies to every spawned food cell.
	ScrollFoodChance = 0.05
)

const (
	FoodRegular = "Regular"
	FoodScroll  = "Scroll"
)

type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Food struct {
	Position Cell   `json:"position"`
	Type     string `json:"food_type"`
}

// Snake is the tick-driven snake engine on a 20x20 grid. Body is head first.
// The engine owns no clock and no queue; the coordinator feeds it one
// direction per tick and dispatches the events it returns.
type Snake struct {
	Body     []Cell
	Dir      Direction
	Food     Food
	Score    int
	GameOver bool
	Started  bool

	Width  int
	Height int

	scrollJustEaten bool
	rng             *rand.Rand
}

// SnakeState is the per-tick frame pushed to the client.
type SnakeState struct {
	Snake           []Cell    `json:"snake"`
	Food            Food      `json:"food"`
	Direction       Direction `json:"direction"`
	Score           int       `json:"score"`
	GridSize        [2]int    `json:"grid_size"`
	GameOver        bool      `json:"game_over"`
	Started         bool      `json:"started"`
	ScrollCollected bool      `json:"scroll_collected"`
}

// NewSnake starts a length-one snake at the grid center heading right, with
// food on a random empty cell.
func NewSnake(rng *rand.Rand) *Snake {
	s := &Snake{
		Body:   []Cell{{X: SnakeGridWidth / 2, Y: SnakeGridHeight / 2}},
		Dir:    DirRight,
		Width:  SnakeGridWidth,
		Height: SnakeGridHeight,
		rng:    rng,
	}
	s.Food = s.spawnFood()
	return s
}

// Step advances the snake by exactly one cell. It returns the reward events
// of this tick: a currency delta on qualifying regular food, an item grant on
// scroll food, and a single leaderboard post on the transition to game over.
func (s *Snake) Step() []Event {
	if s.GameOver || !s.Started {
		return nil
	}
	s.scrollJustEaten = false

	head := s.Body[0]
	next := head
	switch s.Dir {
	case DirUp:
		next.Y--
	case DirDown:
		next.Y++
	case DirLeft:
		next.X--
	case DirRight:
		next.X++
	}

	if next.X < 0 || next.X >= s.Width || next.Y < 0 || next.Y >= s.Height || s.occupied(next) {
		s.GameOver = true
		return []Event{LeaderboardPost(s.Score)}
	}

	s.Body = append([]Cell{next}, s.Body...)

	if next != s.Food.Position {
		s.Body = s.Body[:len(s.Body)-1]
		return nil
	}

	s.Score++
	eaten := s.Food.Type
	s.Food = s.spawnFood()

	switch eaten {
	case FoodScroll:
		s.scrollJustEaten = true
		return []Event{ItemGrant(ScrollItem, 1)}
	default:
		if s.Score%5 == 0 {
			return []Event{CurrencyDelta(PaxReward(s.Score))}
		}
	}
	return nil
}

// PaxReward is the progressive currency table keyed by score.
func PaxReward(score int) int {
	switch {
	case score < 20:
		return 1
	case score < 35:
		return 2
	case score < 60:
		return 3
	default:
		return 4
	}
}

// CanTurn reports whether a queued direction is legal relative to from.
// Reversals are rejected.
func (s *Snake) CanTurn(from, to Direction) bool {
	return to.Valid() && !from.Opposite(to)
}

func (s *Snake) occupied(c Cell) bool {
	for _, seg := range s.Body {
		if seg == c {
			return true
		}
	}
	return false
}

func (s *Snake) spawnFood() Food {
	var pos Cell
	for {
		pos = Cell{X: s.rng.Intn(s.Width), Y: s.rng.Intn(s.Height)}
		if !s.occupied(pos) {
			break
		}
	}
	foodType := FoodRegular
	if s.rng.Float64() < ScrollFoodChance {
		foodType = FoodScroll
	}
	return Food{Position: pos, Type: foodType}
}

// State snapshots the engine for the outbound channel.
func (s *Snake) State() SnakeState {
	body := make([]Cell, len(s.Body))
	copy(body, s.Body)
	return SnakeState{
		Snake:           body,
		Food:            s.Food,
		Direction:       s.Dir,
		Score:           s.Score,
		GridSize:        [2]int{s.Width, s.Height},
		GameOver:        s.GameOver,
		Started:         s.Started,
		ScrollCollected: s.scrollJustEaten,
	}
}
