package scheduler

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/longwelwind/spacebo-go/internal/domain/shared"
)

// Task is a unit of work fired at its scheduled instant. Each fire receives
// a fresh trace id for log correlation.
type Task func(traceID string)

// Scheduler runs tasks at precomputed future instants using one timer per
// registration. Zero CPU between fires (no polling).
//
// Timers are an optimization, not the source of truth: pending work is
// always reconstructible from persisted entity state, which is what the boot
// recovery scan and the reconciliation sweeper rely on. Tasks fire at most
// once per registration, may fire late, never early.
type Scheduler struct {
	clock shared.Clock

	mu     sync.Mutex
	timers map[string]*time.Timer

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a Scheduler. The scheduler is owned by the composition root;
// there is deliberately no package-level instance.
func New(clock shared.Clock) *Scheduler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &Scheduler{
		clock:  clock,
		timers: make(map[string]*time.Timer),
		stopCh: make(chan struct{}),
	}
}

// Schedule registers task to run once, no earlier than fireAt. A past fireAt
// runs the task immediately. Scheduling again under the same key replaces
// the previous registration, which keeps a recovery scan racing live timers
// harmless.
func (s *Scheduler) Schedule(key string, fireAt time.Time, task Task) {
	delay := fireAt.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[key]; ok {
		existing.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		// Only evict our own registration: by the time this callback gets
		// the lock, Schedule may already have replaced the entry, and the
		// replacement must stay cancellable.
		s.mu.Lock()
		if s.timers[key] == timer {
			delete(s.timers, key)
		}
		s.mu.Unlock()

		task(uuid.NewString())
	})
	s.timers[key] = timer
}

// CancelAll cancels every pending registration. For process shutdown and
// test teardown only; there is no per-entity business cancellation.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}

// PendingCount returns the number of pending timers (for tests/monitoring).
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// StartSweeper periodically runs sweep in a background goroutine until Stop.
// The sweep re-derives past-due completions from entity state, catching
// tasks lost to an aborted fire. Completion tasks re-validate entity state
// under a row lock, so a sweep racing a live timer is a no-op.
func (s *Scheduler) StartSweeper(interval time.Duration, sweep func()) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				sweep()
			}
		}
	}()
	log.Printf("[scheduler] reconciliation sweeper started (interval: %v)", interval)
}

// Stop stops the sweeper and cancels all pending timers.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.CancelAll()
}
