package schedule

import (
	"context"
	"math/rand"
	"time"
)

// MinInterval bounds how often a Scheduler can tick.
var MinInterval = time.Second

type Scheduler struct {
	base   time.Duration
	jitter float64
	ch     chan time.Time
	rnd    *rand.Rand
}

// New returns a scheduler that ticks at base ± jitter% until ctx is done.
func New(ctx context.Context, base time.Duration, jitterPct float64) *Scheduler {
	s := &Scheduler{
		base:   base,
		jitter: jitterPct,
		ch:     make(chan time.Time),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	go s.loop(ctx)
	return s
}

func (s *Scheduler) Next() <-chan time.Time { return s.ch }

// delay draws the next wait; jitter is uniform in [-j, +j].
func (s *Scheduler) delay() time.Duration {
	j := (s.rnd.Float64()*2 - 1) * s.jitter
	d := time.Duration(float64(s.base) * (1 + j))
	if d < MinInterval {
		d = MinInterval
	}
	return d
}

func (s *Scheduler) loop(ctx context.Context) {
	for {
		t := time.NewTimer(s.delay())
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case now := <-t.C:
			select {
			case s.ch <- now:
			case <-ctx.Done():
				return
			}
		}
	}
}
