// Package watch polls a RentableToken account and reports state changes.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/Catorpilor/rentsol/internal/rentable"
	"github.com/Catorpilor/rentsol/internal/schedule"
)

type Fetcher interface {
	FetchRentableToken(ctx context.Context, owner solana.PublicKey) (*rentable.RentableToken, solana.PublicKey, error)
}

// Change is emitted when the account appears, changes or disappears. State is
// nil while the account does not exist.
type Change struct {
	PDA   solana.PublicKey
	State *rentable.RentableToken
	At    time.Time
}

type Watcher struct {
	fetcher   Fetcher
	owner     solana.PublicKey
	interval  time.Duration
	jitterPct float64
	last      *rentable.RentableToken
	seen      bool
}

func New(f Fetcher, owner solana.PublicKey, interval time.Duration, jitterPct float64) *Watcher {
	return &Watcher{fetcher: f, owner: owner, interval: interval, jitterPct: jitterPct}
}

// Run polls once immediately and then on every scheduler tick, calling
// onChange for each observed change, until ctx is done. Fetch errors other
// than a missing account are logged and retried on the next tick.
func (w *Watcher) Run(ctx context.Context, onChange func(Change)) error {
	sched := schedule.New(ctx, w.interval, w.jitterPct)
	slog.Info("watching rentable token", "owner", w.owner.String(), "interval", w.interval.String(), "jitter_pct", w.jitterPct)
	for {
		if err := w.Poll(ctx, onChange); err != nil {
			slog.Error("watch poll", "owner", w.owner.String(), "err", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sched.Next():
		}
	}
}

// Poll fetches the account once and calls onChange if it differs from the
// previous poll.
func (w *Watcher) Poll(ctx context.Context, onChange func(Change)) error {
	state, pda, err := w.fetcher.FetchRentableToken(ctx, w.owner)
	if err != nil && !errors.Is(err, rentable.ErrAccountNotFound) {
		return err
	}
	if w.seen && reflect.DeepEqual(state, w.last) {
		return nil
	}
	w.seen = true
	w.last = state
	slog.Debug("rentable token changed", "pda", pda.String(), "exists", state != nil)
	onChange(Change{PDA: pda, State: state, At: time.Now()})
	return nil
}
