// Package control holds the process-wide batch control state shared between
// the orchestrator and operator commands.
//
// Operator commands are idempotent signals: they flip a flag and broadcast the
// change by closing the current notification channel. Readers never poll; they
// wait on the channel captured while holding the lock.
package control

import (
	"context"
	"fmt"
	"sync"
	"time"

	"relay/internal/services"
)

// Snapshot is a point-in-time copy of the control state.
type Snapshot struct {
	Paused      bool          `json:"paused"`
	SkipPending bool          `json:"skip_pending"`
	Cooldown    time.Duration `json:"cooldown"`
	InCooldown  bool          `json:"in_cooldown"`
	Remaining   time.Duration `json:"remaining"`
}

// State is the BatchControlState. The zero value is not usable; call New.
type State struct {
	mu       sync.Mutex
	paused   bool
	skip     bool
	cooldown time.Duration
	changed  chan struct{}

	inCooldown   bool
	remaining    time.Duration
	segmentStart time.Time

	now func() time.Time
}

// New returns a running state with the given default cooldown.
func New(cooldown time.Duration) *State {
	if cooldown < 0 {
		cooldown = 0
	}
	return &State{
		cooldown: cooldown,
		changed:  make(chan struct{}),
		now:      time.Now,
	}
}

// broadcast must be called with mu held.
func (s *State) broadcast() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// Pause suspends the batch at the next suspension point. It reports whether
// the state changed.
func (s *State) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return false
	}
	if s.inCooldown {
		s.remaining -= s.now().Sub(s.segmentStart)
		if s.remaining < 0 {
			s.remaining = 0
		}
	}
	s.paused = true
	s.broadcast()
	return true
}

// Resume clears the pause flag. It reports whether the state changed.
func (s *State) Resume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return false
	}
	s.paused = false
	s.segmentStart = s.now()
	s.broadcast()
	return true
}

// Skip raises the one-shot skip flag. An active cooldown consumes it at once;
// otherwise it stays latched until the next cooldown starts.
func (s *State) Skip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skip = true
	s.broadcast()
}

// ConsumeSkip clears a pending skip and reports whether one was latched. A
// batch calls it where a cooldown would run but the wait is disabled, so the
// skip does not carry over to a later wait.
func (s *State) ConsumeSkip() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.skip {
		return false
	}
	s.skip = false
	s.broadcast()
	return true
}

// SetCooldown changes the duration used by subsequent cooldowns.
func (s *State) SetCooldown(d time.Duration) error {
	if d < 0 {
		return services.Wrap(services.ErrValidation, "control", "set cooldown",
			fmt.Sprintf("cooldown must be >= 0, got %s", d), nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldown = d
	s.broadcast()
	return nil
}

// CooldownDuration returns the configured cooldown.
func (s *State) CooldownDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cooldown
}

// Paused reports whether the batch is paused.
func (s *State) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Snapshot returns a copy of the state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Paused:      s.paused,
		SkipPending: s.skip,
		Cooldown:    s.cooldown,
		InCooldown:  s.inCooldown,
	}
	if s.inCooldown {
		snap.Remaining = s.remaining
		if !s.paused {
			snap.Remaining -= s.now().Sub(s.segmentStart)
		}
		if snap.Remaining < 0 {
			snap.Remaining = 0
		}
	}
	return snap
}

// WaitIfPaused blocks while the state is paused. It returns ctx.Err() if the
// context ends first.
func (s *State) WaitIfPaused(ctx context.Context) error {
	for {
		s.mu.Lock()
		if !s.paused {
			s.mu.Unlock()
			return nil
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
