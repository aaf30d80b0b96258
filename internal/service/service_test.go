package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeGateway records every grant in memory and can be told to fail.
type fakeGateway struct {
	mu sync.Mutex

	openErr   error
	creditErr error

	balance  int
	currency []int
	items    map[string]int
	scores   map[string][]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		items:  make(map[string]int),
		scores: make(map[string][]int),
	}
}

func (f *fakeGateway) OpenSession(_ context.Context, _ uuid.UUID, gameKind string) (string, error) {
	if f.openErr != nil {
		return "", f.openErr
	}
	return "token-" + gameKind, nil
}

func (f *fakeGateway) CreditCurrency(_ context.Context, _ uuid.UUID, _ string, amount int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.creditErr != nil {
		return 0, f.creditErr
	}
	f.balance += amount
	f.currency = append(f.currency, amount)
	return f.balance, nil
}

func (f *fakeGateway) CreditItem(_ context.Context, _ uuid.UUID, _, itemKind string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.creditErr != nil {
		return f.creditErr
	}
	f.items[itemKind] += qty
	return nil
}

func (f *fakeGateway) RecordLeaderboard(_ context.Context, _ uuid.UUID, gameKind string, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores[gameKind] = append(f.scores[gameKind], score)
	return nil
}

func (f *fakeGateway) creditedTotal() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, c := range f.currency {
		total += c
	}
	return total
}

// fakeClaimer approves or denies the terminal reward claim.
type fakeClaimer struct {
	allow  bool
	err    error
	claims int
}

func (f *fakeClaimer) ClaimGameOverReward(context.Context, uuid.UUID, string) (bool, error) {
	f.claims++
	return f.allow, f.err
}

// testClock lets a test move a service's notion of now.
type testClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newTestClock() *testClock {
	return &testClock{cur: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.cur = c.cur.Add(d)
	c.mu.Unlock()
}

// fixedRand yields deterministic boards. Seed 1 deals a non-shiny match
// board; anything works for snake and 2048.
func fixedRand() *rand.Rand { return rand.New(rand.NewSource(1)) }
