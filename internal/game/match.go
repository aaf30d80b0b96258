package game

import (
	"errors"
	"math/rand"
	"time"
)

// Card colors. Gold only appears on the shiny pair.
const (
	ColorRed    = "Red"
	ColorBlue   = "Blue"
	ColorGreen  = "Green"
	ColorLime   = "Lime"
	ColorPurple = "Purple"
	ColorOrange = "Orange"
	ColorPink   = "Pink"
	ColorTeal   = "Teal"
	ColorGold   = "Gold"
)

const (
	VariantNormal = "Normal"
	VariantShiny  = "Shiny"
)

const (
	MatchBoardSize = 16
	// ShinyGameChance is rolled once per game, not per pair.
	ShinyGameChance = 0.05
	// HideDelay is how long a failed reveal stays visible.
	HideDelay = time.Second
)

var (
	ErrIndexOutOfRange  = errors.New("card index out of range")
	ErrSameCard         = errors.New("cannot reveal a card against itself")
	ErrCardAlreadyFaced = errors.New("card already revealed or matched")
)

var matchColors = []string{
	ColorRed, ColorBlue, ColorGreen, ColorLime,
	ColorPurple, ColorOrange, ColorPink, ColorTeal,
}

type Card struct {
	ID       int    `json:"id"`
	Color    string `json:"color"`
	Variant  string `json:"variant"`
	Revealed bool   `json:"revealed"`
	Matched  bool   `json:"matched"`
}

// PublicCard hides color and variant for cards that are face down.
type PublicCard struct {
	ID       int    `json:"id"`
	Color    string `json:"color,omitempty"`
	Variant  string `json:"variant,omitempty"`
	Revealed bool   `json:"revealed"`
	Matched  bool   `json:"matched"`
}

// Match is the card-matching engine: 16 cards in 8 pairs, one of which may be
// the shiny gold pair. Pure state machine, all I/O stays with the caller.
type Match struct {
	Cards []Card
	Score int

	// Last revealed non-matching pair, face up until HideDelay passes.
	lastReveal     [2]int
	hasLastReveal  bool
	lastRevealTime time.Time
}

type PublicMatch struct {
	Cards []PublicCard `json:"cards"`
	Score int          `json:"score"`
}

// NewMatch deals a shuffled board. With ShinyGameChance the board carries one
// gold shiny pair and seven normal pairs, otherwise eight normal pairs.
func NewMatch(rng *rand.Rand) *Match {
	cards := make([]Card, 0, MatchBoardSize)
	id := 0
	add := func(color, variant string) {
		cards = append(cards, Card{ID: id, Color: color, Variant: variant})
		id++
	}

	if rng.Float64() < ShinyGameChance {
		add(ColorGold, VariantShiny)
		add(ColorGold, VariantShiny)
		for _, color := range matchColors[:7] {
			add(color, VariantNormal)
			add(color, VariantNormal)
		}
	} else {
		for _, color := range matchColors {
			add(color, VariantNormal)
			add(color, VariantNormal)
		}
	}

	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})

	return &Match{Cards: cards}
}

// Reveal turns two cards face up and checks for a pair. On a pair both cards
// flip to matched atomically and reward events are emitted: an item grant for
// the shiny gold pair, a currency delta otherwise, plus the completion bonus
// when the board finishes. A failed pair stays visible until HideDelay.
func (m *Match) Reveal(first, second int, now time.Time) (bool, []Event, error) {
	if first < 0 || first >= len(m.Cards) || second < 0 || second >= len(m.Cards) {
		return false, nil, ErrIndexOutOfRange
	}
	if first == second {
		return false, nil, ErrSameCard
	}

	m.HideUnmatched(now)

	if m.Cards[first].Matched || m.Cards[second].Matched {
		return false, nil, ErrCardAlreadyFaced
	}

	a, b := &m.Cards[first], &m.Cards[second]
	a.Revealed = true
	b.Revealed = true

	if a.Color != b.Color || a.Variant != b.Variant {
		m.lastReveal = [2]int{first, second}
		m.hasLastReveal = true
		m.lastRevealTime = now
		return false, nil, nil
	}

	a.Matched = true
	b.Matched = true
	m.Score++
	m.hasLastReveal = false

	var events []Event
	if a.Color == ColorGold && a.Variant == VariantShiny {
		events = append(events, ItemGrant(ScrollItem, 1))
	} else {
		events = append(events, CurrencyDelta(1))
	}
	if m.AllMatched() {
		events = append(events, CurrencyDelta(2))
	}
	return true, events, nil
}

// RevealOne turns a single card face up. No reward, no pairing.
func (m *Match) RevealOne(index int) error {
	if index < 0 || index >= len(m.Cards) {
		return ErrIndexOutOfRange
	}
	if m.Cards[index].Revealed || m.Cards[index].Matched {
		return ErrCardAlreadyFaced
	}
	m.Cards[index].Revealed = true
	return nil
}

// HideUnmatched flips a failed pair back down once HideDelay has passed.
// Idempotent against the wall clock.
func (m *Match) HideUnmatched(now time.Time) {
	if !m.hasLastReveal || now.Sub(m.lastRevealTime) < HideDelay {
		return
	}
	for _, idx := range m.lastReveal {
		if !m.Cards[idx].Matched {
			m.Cards[idx].Revealed = false
		}
	}
	m.hasLastReveal = false
}

func (m *Match) AllMatched() bool {
	for _, c := range m.Cards {
		if !c.Matched {
			return false
		}
	}
	return true
}

// Public returns the client view with face-down cards redacted.
func (m *Match) Public() PublicMatch {
	cards := make([]PublicCard, len(m.Cards))
	for i, c := range m.Cards {
		pc := PublicCard{ID: c.ID, Revealed: c.Revealed, Matched: c.Matched}
		if c.Revealed || c.Matched {
			pc.Color = c.Color
			pc.Variant = c.Variant
		}
		cards[i] = pc
	}
	return PublicMatch{Cards: cards, Score: m.Score}
}
