package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/jaymasl/frtl-arcade/internal/game"
	"github.com/jaymasl/frtl-arcade/internal/logger"
	"github.com/jaymasl/frtl-arcade/internal/reward"
)

const (
	newGameTimeout = 2 * time.Second
	stepTimeout    = time.Second
)

// newRNG seeds a math/rand source from the OS entropy pool. Engines get
// their own generator so tests can substitute a deterministic one.
func newRNG() *mrand.Rand {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return mrand.New(mrand.NewSource(time.Now().UnixNano()))
	}
	return mrand.New(mrand.NewSource(int64(binary.LittleEndian.Uint64(b[:]))))
}

func newSessionID() string { return uuid.New().String() }

// dispatch applies engine events against the gateway after the session
// guard has been released. Grant failures are logged and swallowed; the
// step already happened and the client keeps its state.
func dispatch(ctx context.Context, gw reward.Gateway, userID uuid.UUID, token, gameKind string, events []game.Event) (newBalance *int) {
	for _, ev := range events {
		evCtx, cancel := context.WithTimeout(ctx, stepTimeout)
		var err error
		switch ev.Kind {
		case game.EventCurrency:
			var bal int
			bal, err = gw.CreditCurrency(evCtx, userID, token, ev.Amount)
			if err == nil {
				newBalance = &bal
			}
		case game.EventItem:
			err = gw.CreditItem(evCtx, userID, token, ev.ItemKind, ev.Qty)
		case game.EventLeaderboard:
			err = gw.RecordLeaderboard(evCtx, userID, gameKind, ev.Score)
		}
		cancel()
		if err != nil {
			logger.Error("reward dispatch failed", "game", gameKind, "user", userID.String(), "event", ev.Kind, "error", err)
		}
	}
	return newBalance
}
