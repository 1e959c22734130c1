// Package clock provides the scheduling source that drives session
// countdowns. The session engine itself is a pure state machine; separating
// the repeating-callback source lets tests synthesize tick sequences without
// waiting on real time.
package clock

import (
	"sync"
	"time"
)

// Scheduler delivers repeating callbacks at a fixed cadence. The returned
// stop function cancels future deliveries; it is safe to call more than once.
// One callback delivery may already be in flight when stop returns.
type Scheduler interface {
	ScheduleRepeating(interval time.Duration, fn func()) (stop func())
}

// Ticker is the production Scheduler, backed by time.Ticker. Each scheduled
// callback runs on its own goroutine; callbacks for a single registration
// are delivered sequentially.
type Ticker struct{}

func (Ticker) ScheduleRepeating(interval time.Duration, fn func()) func() {
	t := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-t.C:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.Stop()
			close(done)
		})
	}
}

// Manual is a test Scheduler fired explicitly with Fire. Registrations are
// invoked in order; stopped registrations are skipped.
type Manual struct {
	mu   sync.Mutex
	fns  []func()
	dead []bool
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) ScheduleRepeating(_ time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := len(m.fns)
	m.fns = append(m.fns, fn)
	m.dead = append(m.dead, false)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.dead[idx] = true
	}
}

// Fire invokes every live registration once, simulating one interval elapsing.
func (m *Manual) Fire() {
	m.mu.Lock()
	fns := make([]func(), 0, len(m.fns))
	for i, fn := range m.fns {
		if !m.dead[i] {
			fns = append(fns, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// FireN calls Fire n times.
func (m *Manual) FireN(n int) {
	for i := 0; i < n; i++ {
		m.Fire()
	}
}

// Live returns the number of registrations that have not been stopped.
func (m *Manual) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, d := range m.dead {
		if !d {
			count++
		}
	}
	return count
}
