package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when a breaker rejects a call without making it
var ErrCircuitOpen = errors.New("circuit open")

// State is the breaker state
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Breaker guards calls to one named service. All callers of that service
// share the same instance, so concurrent failures count toward the same
// threshold.
type Breaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration

	mu            sync.Mutex
	state         State
	failureCount  int
	lastFailureAt time.Time
	probing       bool

	now func() time.Time
}

// NewBreaker creates a closed breaker for the named service
func NewBreaker(name string, failureThreshold int, recoveryTimeout time.Duration) *Breaker {
	return &Breaker{
		name:             name,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            StateClosed,
		now:              time.Now,
	}
}

// Do runs fn under the breaker. While open it rejects immediately with an
// error wrapping ErrCircuitOpen; after the recovery window exactly one probe
// call is let through in half-open state.
func (b *Breaker) Do(fn func() error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}
	err := fn()
	b.afterCall(err)
	return err
}

func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.lastFailureAt) < b.recoveryTimeout {
			return fmt.Errorf("%s: %w", b.name, ErrCircuitOpen)
		}
		b.state = StateHalfOpen
		b.probing = true
	case StateHalfOpen:
		if b.probing {
			return fmt.Errorf("%s: probe in flight: %w", b.name, ErrCircuitOpen)
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) afterCall(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false

	if err != nil {
		b.failureCount++
		b.lastFailureAt = b.now()
		if b.state == StateHalfOpen || b.failureCount >= b.failureThreshold {
			b.state = StateOpen
		}
		return
	}

	b.failureCount = 0
	b.state = StateClosed
}

// Snapshot returns the current state and failure count
func (b *Breaker) Snapshot() (State, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state, b.failureCount
}

// BreakerSet hands out one breaker per service name
type BreakerSet struct {
	failureThreshold int
	recoveryTimeout  time.Duration

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewBreakerSet creates a set whose breakers share the given thresholds
func NewBreakerSet(failureThreshold int, recoveryTimeout time.Duration) *BreakerSet {
	return &BreakerSet{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		breakers:         make(map[string]*Breaker),
	}
}

// Get returns the breaker for name, creating it on first use
func (s *BreakerSet) Get(name string) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.breakers[name]
	if !ok {
		b = NewBreaker(name, s.failureThreshold, s.recoveryTimeout)
		s.breakers[name] = b
	}
	return b
}

// Names returns all known breaker names
func (s *BreakerSet) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.breakers))
	for name := range s.breakers {
		names = append(names, name)
	}
	return names
}
