package quiz

import (
	"sync"
	"time"

	"github.com/kailas-cloud/vecquiz/internal/metrics"
)

// timerSet holds one countdown per game.
type timerSet struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

func newTimerSet() *timerSet {
	return &timerSet{timers: make(map[string]*time.Timer)}
}

// schedule replaces any countdown for id with one that runs fn after d.
// It is a no-op after stopAll.
func (t *timerSet) schedule(id string, d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if old, ok := t.timers[id]; ok {
		old.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		if t.timers[id] == timer {
			delete(t.timers, id)
			t.report()
		}
		t.mu.Unlock()
		fn()
	})
	t.timers[id] = timer
	t.report()
}

// stop cancels the countdown for id.
func (t *timerSet) stop(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[id]; ok {
		timer.Stop()
		delete(t.timers, id)
		t.report()
	}
}

// stopAll cancels every countdown and refuses new ones.
func (t *timerSet) stopAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.timers)
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
	t.closed = true
	t.report()
	return n
}

func (t *timerSet) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

// report must be called with mu held.
func (t *timerSet) report() {
	metrics.OpenRounds.Set(float64(len(t.timers)))
}
