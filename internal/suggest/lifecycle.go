package suggest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/basalcoach/basalcoach/internal/therapy"
)

var (
	// ErrNoPending is returned when accepting or dismissing with an empty slot.
	ErrNoPending = errors.New("no pending recommendation")

	// ErrIDMismatch is returned when the id given does not match the
	// pending recommendation.
	ErrIDMismatch = errors.New("recommendation id does not match the pending one")
)

// State is the state of a Slot.
type State string

const (
	StateEmpty   State = "empty"
	StatePending State = "pending"
)

// Slot holds the single current recommendation. Offering replaces whatever
// is pending; accepting or dismissing consumes it and leaves the slot empty.
type Slot struct {
	mu      sync.Mutex
	current *Recommendation
	now     func() time.Time
}

// NewSlot returns an empty slot. The zero Slot is also ready to use.
func NewSlot() *Slot {
	return &Slot{now: time.Now}
}

// Outcome is the result of accepting a recommendation.
type Outcome struct {
	// Recommendation is the accepted recommendation, stamped applied.
	Recommendation Recommendation

	// Settings are the settings with the change applied.
	Settings therapy.Settings

	// Changed is false when no segment matched and Settings equal the input.
	Changed bool
}

// Offer makes rec the current recommendation, replacing any pending one.
// A nil rec empties the slot.
func (s *Slot) Offer(rec *Recommendation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec == nil {
		s.current = nil
		return
	}
	cp := *rec
	s.current = &cp
}

// Current returns a copy of the pending recommendation.
func (s *Slot) Current() (Recommendation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Recommendation{}, false
	}
	return *s.current, true
}

// State reports whether a recommendation is pending.
func (s *Slot) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return StateEmpty
	}
	return StatePending
}

// Accept applies the pending recommendation to settings and empties the
// slot. An empty id accepts whatever is pending.
func (s *Slot) Accept(id string, settings therapy.Settings) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.take(id)
	if err != nil {
		return Outcome{}, err
	}
	out, changed := Apply(rec, settings)

	at := s.stamp()
	prev := rec.CurrentValue
	rec.Status = StatusApplied
	rec.AppliedAt = &at
	rec.PreviousValue = &prev

	return Outcome{Recommendation: rec, Settings: out, Changed: changed}, nil
}

// Dismiss discards the pending recommendation without changing settings.
func (s *Slot) Dismiss(id string) (Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.take(id)
	if err != nil {
		return Recommendation{}, err
	}
	at := s.stamp()
	rec.Status = StatusDismissed
	rec.DismissedAt = &at
	return rec, nil
}

func (s *Slot) stamp() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

// take removes and returns the pending recommendation. Callers hold mu.
func (s *Slot) take(id string) (Recommendation, error) {
	if s.current == nil {
		return Recommendation{}, ErrNoPending
	}
	if id != "" && id != s.current.ID {
		return Recommendation{}, fmt.Errorf("%w: pending is %s", ErrIDMismatch, s.current.ID)
	}
	rec := *s.current
	s.current = nil
	return rec, nil
}
