package control

import (
	"context"
	"time"
)

// CooldownOutcome describes how a cooldown ended.
type CooldownOutcome int

const (
	CooldownCompleted CooldownOutcome = iota
	CooldownSkipped
)

func (o CooldownOutcome) String() string {
	if o == CooldownSkipped {
		return "skipped"
	}
	return "completed"
}

// CooldownOptions tunes a single cooldown wait.
type CooldownOptions struct {
	// SkipAck is the short delay between a skip and the end of the wait.
	SkipAck time.Duration
	// Tick is the reporting granularity for OnTick. Defaults to one second.
	Tick time.Duration
	// OnTick receives the remaining time after each tick. Rate limiting is the
	// caller's job.
	OnTick func(remaining time.Duration)
	// OnSkip fires once when a skip is consumed.
	OnSkip func(remaining time.Duration)
}

// Cooldown waits for d, honouring pause and skip. Pausing freezes the
// remaining time exactly; resuming continues from it. A pending skip ends the
// wait after opts.SkipAck and clears the flag.
func (s *State) Cooldown(ctx context.Context, d time.Duration, opts CooldownOptions) (CooldownOutcome, error) {
	tick := opts.Tick
	if tick <= 0 {
		tick = time.Second
	}

	s.mu.Lock()
	s.inCooldown = true
	s.remaining = d
	s.segmentStart = s.now()
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inCooldown = false
		s.remaining = 0
		s.mu.Unlock()
	}()

	for {
		s.mu.Lock()
		if s.skip {
			s.skip = false
			remaining := s.remainingLocked()
			s.mu.Unlock()
			if opts.OnSkip != nil {
				opts.OnSkip(remaining)
			}
			if err := sleep(ctx, opts.SkipAck); err != nil {
				return CooldownSkipped, err
			}
			return CooldownSkipped, nil
		}
		if s.paused {
			ch := s.changed
			s.mu.Unlock()
			select {
			case <-ch:
				continue
			case <-ctx.Done():
				return CooldownCompleted, ctx.Err()
			}
		}
		remaining := s.remainingLocked()
		if remaining <= 0 {
			s.mu.Unlock()
			return CooldownCompleted, nil
		}
		ch := s.changed
		s.mu.Unlock()

		step := remaining % tick
		if step == 0 {
			step = tick
		}
		timer := time.NewTimer(step)
		select {
		case <-timer.C:
			if opts.OnTick != nil {
				s.mu.Lock()
				left := s.remainingLocked()
				s.mu.Unlock()
				opts.OnTick(left)
			}
		case <-ch:
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
			return CooldownCompleted, ctx.Err()
		}
	}
}

// remainingLocked must be called with mu held while a cooldown is active.
func (s *State) remainingLocked() time.Duration {
	left := s.remaining
	if !s.paused {
		left -= s.now().Sub(s.segmentStart)
	}
	if left < 0 {
		return 0
	}
	return left
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
