package game

import (
	"math/rand"
	"testing"
	"time"
)

// pairedBoard builds a deterministic board laid out pair by pair:
// index 2k and 2k+1 always hold the same color.
func pairedBoard(shiny bool) *Match {
	var cards []Card
	id := 0
	add := func(color, variant string) {
		cards = append(cards, Card{ID: id, Color: color, Variant: variant})
		id++
	}
	if shiny {
		add(ColorGold, VariantShiny)
		add(ColorGold, VariantShiny)
		for _, c := range matchColors[:7] {
			add(c, VariantNormal)
			add(c, VariantNormal)
		}
	} else {
		for _, c := range matchColors {
			add(c, VariantNormal)
			add(c, VariantNormal)
		}
	}
	return &Match{Cards: cards}
}

func TestNewMatchDealsSixteenPairedCards(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := NewMatch(rng)

	if len(m.Cards) != MatchBoardSize {
		t.Fatalf("got %d cards, want %d", len(m.Cards), MatchBoardSize)
	}

	counts := make(map[[2]string]int)
	for _, c := range m.Cards {
		counts[[2]string{c.Color, c.Variant}]++
	}
	for key, n := range counts {
		if n != 2 {
			t.Fatalf("color %v appears %d times, want 2", key, n)
		}
	}
}

func TestRevealMatchingPair(t *testing.T) {
	m := pairedBoard(false)
	now := time.Now()

	found, events, err := m.Reveal(0, 1, now)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if !found {
		t.Fatal("expected a match for a paired board")
	}
	if !m.Cards[0].Matched || !m.Cards[1].Matched {
		t.Fatal("matched flags must flip together")
	}
	if len(events) != 1 || events[0].Kind != EventCurrency || events[0].Amount != 1 {
		t.Fatalf("events = %+v, want single CurrencyDelta(1)", events)
	}
	if m.Score != 1 {
		t.Fatalf("score = %d, want 1", m.Score)
	}
}

func TestRevealShinyGoldPairGrantsScroll(t *testing.T) {
	m := pairedBoard(true)

	found, events, err := m.Reveal(0, 1, time.Now())
	if err != nil || !found {
		t.Fatalf("Reveal = %v, %v; want match", found, err)
	}
	if len(events) != 1 || events[0].Kind != EventItem || events[0].ItemKind != ScrollItem || events[0].Qty != 1 {
		t.Fatalf("events = %+v, want ItemGrant(%q, 1)", events, ScrollItem)
	}
}

func TestCompletionBonusEmittedOnce(t *testing.T) {
	m := pairedBoard(true)
	now := time.Now()

	var currency, items int
	for i := 0; i < MatchBoardSize; i += 2 {
		_, events, err := m.Reveal(i, i+1, now)
		if err != nil {
			t.Fatalf("Reveal(%d,%d): %v", i, i+1, err)
		}
		for _, e := range events {
			switch e.Kind {
			case EventCurrency:
				currency += e.Amount
			case EventItem:
				items += e.Qty
			}
		}
	}

	if !m.AllMatched() {
		t.Fatal("board should be complete")
	}
	// 7 normal pairs at 1 each + completion bonus 2; the shiny pair pays in scrolls.
	if currency != 9 {
		t.Fatalf("total currency = %d, want 9", currency)
	}
	if items != 1 {
		t.Fatalf("total scrolls = %d, want 1", items)
	}
}

func TestRevealMismatchHidesAfterDelay(t *testing.T) {
	m := pairedBoard(false)
	now := time.Now()

	found, events, err := m.Reveal(0, 2, now)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if found || len(events) != 0 {
		t.Fatalf("mismatch must emit nothing, got found=%v events=%v", found, events)
	}
	if !m.Cards[0].Revealed || !m.Cards[2].Revealed {
		t.Fatal("mismatched cards stay revealed inside the hide window")
	}

	m.HideUnmatched(now.Add(HideDelay / 2))
	if !m.Cards[0].Revealed {
		t.Fatal("hide fired before the delay elapsed")
	}

	m.HideUnmatched(now.Add(HideDelay))
	if m.Cards[0].Revealed || m.Cards[2].Revealed {
		t.Fatal("cards still revealed after the hide delay")
	}
}

func TestHideUnmatchedIdempotent(t *testing.T) {
	m := pairedBoard(false)
	now := time.Now()
	if _, _, err := m.Reveal(0, 2, now); err != nil {
		t.Fatalf("Reveal: %v", err)
	}

	later := now.Add(2 * HideDelay)
	m.HideUnmatched(later)
	first := m.Public()
	m.HideUnmatched(later)
	second := m.Public()

	for i := range first.Cards {
		if first.Cards[i] != second.Cards[i] {
			t.Fatalf("state changed on repeated hide at card %d", i)
		}
	}
}

func TestRevealErrors(t *testing.T) {
	m := pairedBoard(false)
	now := time.Now()

	cases := []struct {
		name          string
		first, second int
		want          error
	}{
		{"first out of range", 16, 0, ErrIndexOutOfRange},
		{"second out of range", 0, 16, ErrIndexOutOfRange},
		{"negative", -1, 0, ErrIndexOutOfRange},
		{"same card", 3, 3, ErrSameCard},
	}
	for _, tc := range cases {
		if _, _, err := m.Reveal(tc.first, tc.second, now); err != tc.want {
			t.Fatalf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestRevealReplayOnMatchedPairRejected(t *testing.T) {
	m := pairedBoard(false)
	now := time.Now()
	if _, _, err := m.Reveal(0, 1, now); err != nil {
		t.Fatalf("Reveal: %v", err)
	}

	_, events, err := m.Reveal(0, 1, now)
	if err != ErrCardAlreadyFaced {
		t.Fatalf("replay err = %v, want ErrCardAlreadyFaced", err)
	}
	if len(events) != 0 {
		t.Fatalf("replay emitted events: %v", events)
	}
}

func TestPublicHidesFaceDownCards(t *testing.T) {
	m := pairedBoard(false)
	if err := m.RevealOne(5); err != nil {
		t.Fatalf("RevealOne: %v", err)
	}

	pub := m.Public()
	for i, c := range pub.Cards {
		if i == 5 {
			if c.Color == "" {
				t.Fatal("revealed card must expose its color")
			}
			continue
		}
		if c.Color != "" || c.Variant != "" {
			t.Fatalf("face-down card %d leaks color %q", i, c.Color)
		}
	}
}

func TestMatchedCountAlwaysEven(t *testing.T) {
	m := pairedBoard(false)
	now := time.Now()

	reveals := [][2]int{{0, 1}, {0, 2}, {2, 3}, {4, 7}, {4, 5}}
	for _, r := range reveals {
		_, _, _ = m.Reveal(r[0], r[1], now)
		matched := 0
		for _, c := range m.Cards {
			if c.Matched {
				matched++
			}
		}
		if matched%2 != 0 {
			t.Fatalf("matched count %d is odd after reveal %v", matched, r)
		}
	}
}
