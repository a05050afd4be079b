// Package breaker implements a sliding-window circuit breaker per
// external provider: closed under normal operation, opens once the
// failure rate within the window crosses a threshold, cools down, then
// allows a single half-open probe before fully closing again.
package breaker

import (
	"errors"
	"sync"
	"time"
)

var ErrOpen = errors.New("circuit breaker open")

type state int

const (
	closed state = iota
	open
	halfOpen
)

type sample struct {
	at      time.Time
	success bool
}

// Breaker tracks one provider's recent call outcomes.
type Breaker struct {
	mu sync.Mutex

	failureThreshold float64
	window           time.Duration
	cooldown         time.Duration
	minSamples       int

	state       state
	samples     []sample
	openedAt    time.Time
	probeInFlight bool
}

func New(failureThreshold float64, window, cooldown time.Duration, minSamples int) *Breaker {
	return &Breaker{
		failureThreshold: failureThreshold,
		window:           window,
		cooldown:         cooldown,
		minSamples:       minSamples,
		state:            closed,
	}
}

// Allow reports whether a call should proceed. In the open state it
// transitions to half-open exactly once the cooldown elapses, granting
// a single probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case closed:
		return true
	case halfOpen:
		return !b.probeInFlight
	case open:
		if time.Since(b.openedAt) >= b.cooldown {
			b.state = halfOpen
			b.probeInFlight = true
			return true
		}
		return false
	}
	return false
}

// Record reports the outcome of a call that Allow permitted.
func (b *Breaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()

	if b.state == halfOpen {
		b.probeInFlight = false
		if success {
			b.state = closed
			b.samples = nil
		} else {
			b.state = open
			b.openedAt = now
		}
		return
	}

	b.samples = append(b.samples, sample{at: now, success: success})
	b.prune(now)

	if len(b.samples) < b.minSamples {
		return
	}
	failures := 0
	for _, s := range b.samples {
		if !s.success {
			failures++
		}
	}
	if float64(failures)/float64(len(b.samples)) >= b.failureThreshold {
		b.state = open
		b.openedAt = now
	}
}

func (b *Breaker) prune(now time.Time) {
	cutoff := now.Add(-b.window)
	i := 0
	for i < len(b.samples) && b.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		b.samples = b.samples[i:]
	}
}

// StateValue returns 0=closed 1=open 2=half-open, for metrics export.
func (b *Breaker) StateValue() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case open:
		return 1
	case halfOpen:
		return 2
	default:
		return 0
	}
}

// Registry holds one Breaker per provider name, created lazily.
type Registry struct {
	mu               sync.Mutex
	breakers         map[string]*Breaker
	failureThreshold float64
	window           time.Duration
	cooldown         time.Duration
	minSamples       int
}

func NewRegistry(failureThreshold float64, window, cooldown time.Duration, minSamples int) *Registry {
	return &Registry{
		breakers:         make(map[string]*Breaker),
		failureThreshold: failureThreshold,
		window:           window,
		cooldown:         cooldown,
		minSamples:       minSamples,
	}
}

func (r *Registry) For(provider string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[provider]
	if !ok {
		b = New(r.failureThreshold, r.window, r.cooldown, r.minSamples)
		r.breakers[provider] = b
	}
	return b
}

// All returns a snapshot of every tracked provider's breaker, for
// metrics export.
func (r *Registry) All() map[string]*Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*Breaker, len(r.breakers))
	for k, v := range r.breakers {
		out[k] = v
	}
	return out
}
