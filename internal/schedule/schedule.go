// Package schedule runs named recurring timers and dispatches each fire to
// the handler registered for that timer.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TimerID identifies one recurring timer.
type TimerID int

const (
	// TimerPoll fires a full poll cycle.
	TimerPoll TimerID = iota + 1
	// TimerRotate advances the badge to the next instrument.
	TimerRotate
)

func (id TimerID) String() string {
	switch id {
	case TimerPoll:
		return "poll"
	case TimerRotate:
		return "rotate"
	}
	return fmt.Sprintf("TimerID(%d)", int(id))
}

type Handler func(ctx context.Context)

type Scheduler struct {
	logger *zap.Logger

	mu       sync.Mutex
	periods  map[TimerID]time.Duration
	handlers map[TimerID]Handler
	wg       sync.WaitGroup
}

func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		logger:   logger,
		periods:  make(map[TimerID]time.Duration),
		handlers: make(map[TimerID]Handler),
	}
}

// Register creates or replaces a recurring timer. It takes effect on the
// next Run.
func (s *Scheduler) Register(id TimerID, period time.Duration) error {
	if period <= 0 {
		return fmt.Errorf("timer %s: period must be positive, got %s", id, period)
	}
	s.mu.Lock()
	s.periods[id] = period
	s.mu.Unlock()
	return nil
}

// Handle sets the callback for a timer.
func (s *Scheduler) Handle(id TimerID, fn Handler) {
	s.mu.Lock()
	s.handlers[id] = fn
	s.mu.Unlock()
}

// Run blocks until ctx is done. Every fire runs in its own goroutine, so a
// slow handler never delays another timer; handlers that must not overlap
// themselves guard against it.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	periods := make(map[TimerID]time.Duration, len(s.periods))
	for id, p := range s.periods {
		periods[id] = p
	}
	s.mu.Unlock()

	var loops sync.WaitGroup
	for id, period := range periods {
		loops.Add(1)
		go func(id TimerID, period time.Duration) {
			defer loops.Done()
			s.loop(ctx, id, period)
		}(id, period)
	}
	loops.Wait()
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, id TimerID, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	s.logger.Debug("timer started", zap.Stringer("timer", id), zap.Duration("period", period))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatch(ctx, id)
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, id TimerID) {
	s.mu.Lock()
	fn, ok := s.handlers[id]
	s.mu.Unlock()
	if !ok {
		s.logger.Warn("no handler for timer", zap.Stringer("timer", id))
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(ctx)
	}()
}
