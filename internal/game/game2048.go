package game

import (
	"errors"
	"math/rand"
)

const (
	BoardSize2048 = 4
	// FourTileChance is the spawn probability of a 4; otherwise a 2 spawns.
	FourTileChance = 0.1
)

var ErrBadDirection = errors.New("invalid move direction")

// Board2048 is a 4x4 grid; zero means empty.
type Board2048 [BoardSize2048][BoardSize2048]int

// Game2048 is the sliding-tile engine. Merges follow standard rules: each
// tile participates in at most one merge per move, ties break toward the
// move direction, score grows by the merged tile value.
type Game2048 struct {
	Board    Board2048
	Score    int
	GameOver bool

	rewardEmitted bool
	rng           *rand.Rand
}

type Public2048 struct {
	Board    Board2048 `json:"board"`
	Score    int       `json:"score"`
	GameOver bool      `json:"game_over"`
}

// New2048 places two starting tiles on distinct random empty cells.
func New2048(rng *rand.Rand) *Game2048 {
	g := &Game2048{rng: rng}
	g.spawnTile()
	g.spawnTile()
	return g
}

// slideRow compacts and merges a single row leftward.
func slideRow(row [BoardSize2048]int) (result [BoardSize2048]int, score int) {
	writePos := 0
	merged := false
	for i := range row {
		if row[i] == 0 {
			continue
		}
		if writePos > 0 && !merged && result[writePos-1] == row[i] {
			result[writePos-1] *= 2
			score += result[writePos-1]
			merged = true
			continue
		}
		result[writePos] = row[i]
		writePos++
		merged = false
	}
	return result, score
}

func reverseRow(row [BoardSize2048]int) [BoardSize2048]int {
	var result [BoardSize2048]int
	for i := range row {
		result[i] = row[BoardSize2048-1-i]
	}
	return result
}

func transpose(b Board2048) Board2048 {
	var result Board2048
	for y := range b {
		for x := range b[y] {
			result[y][x] = b[x][y]
		}
	}
	return result
}

// slide applies a move to a board without spawning. Returns the new board,
// score gained, and whether anything moved.
func slide(b Board2048, dir Direction) (Board2048, int, bool) {
	var out Board2048
	score := 0

	apply := func(b Board2048, reverse bool) Board2048 {
		var nb Board2048
		for y := range b {
			row := b[y]
			if reverse {
				row = reverseRow(row)
			}
			newRow, s := slideRow(row)
			score += s
			if reverse {
				newRow = reverseRow(newRow)
			}
			nb[y] = newRow
		}
		return nb
	}

	switch dir {
	case DirLeft:
		out = apply(b, false)
	case DirRight:
		out = apply(b, true)
	case DirUp:
		out = transpose(apply(transpose(b), false))
	case DirDown:
		out = transpose(apply(transpose(b), true))
	}

	return out, score, out != b
}

// Move slides the board. A move that changes nothing spawns no tile and
// returns moved=false. On the first transition to game over the engine
// emits the final currency reward and a leaderboard post.
func (g *Game2048) Move(dir Direction) (bool, []Event, error) {
	if !dir.Valid() {
		return false, nil, ErrBadDirection
	}
	if g.GameOver {
		return false, nil, nil
	}

	board, score, moved := slide(g.Board, dir)
	if !moved {
		// A full board with no move in this direction may still be live.
		g.checkGameOver()
		return false, g.gameOverEvents(), nil
	}

	g.Board = board
	g.Score += score
	g.spawnTile()
	g.checkGameOver()
	return true, g.gameOverEvents(), nil
}

func (g *Game2048) gameOverEvents() []Event {
	if !g.GameOver || g.rewardEmitted {
		return nil
	}
	g.rewardEmitted = true

	var events []Event
	if pax := g.Score / 50; pax > 0 {
		events = append(events, CurrencyDelta(pax))
	}
	return append(events, LeaderboardPost(g.Score))
}

func (g *Game2048) emptyCells() []Cell {
	var cells []Cell
	for y := range g.Board {
		for x := range g.Board[y] {
			if g.Board[y][x] == 0 {
				cells = append(cells, Cell{X: x, Y: y})
			}
		}
	}
	return cells
}

func (g *Game2048) spawnTile() {
	empties := g.emptyCells()
	if len(empties) == 0 {
		return
	}
	cell := empties[g.rng.Intn(len(empties))]
	value := 2
	if g.rng.Float64() < FourTileChance {
		value = 4
	}
	g.Board[cell.Y][cell.X] = value
}

// checkGameOver marks the game over when no direction can change the board.
func (g *Game2048) checkGameOver() {
	if len(g.emptyCells()) > 0 {
		return
	}
	for _, dir := range []Direction{DirLeft, DirRight, DirUp, DirDown} {
		if _, _, moved := slide(g.Board, dir); moved {
			return
		}
	}
	g.GameOver = true
}

func (g *Game2048) Public() Public2048 {
	return Public2048{Board: g.Board, Score: g.Score, GameOver: g.GameOver}
}
