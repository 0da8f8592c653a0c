package sim

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"sandbox/logging"
)

// Option configures a Scheduler
type Option func(*Scheduler)

// WithCommandsPerStep limits how many queued commands are applied after
// each step. n <= 0 applies every pending command.
func WithCommandsPerStep(n int) Option {
	return func(s *Scheduler) { s.commandsPerStep = n }
}

// WithLogger sets the logger for command failures
func WithLogger(l logging.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// SchedulerStats counts what the scheduler loop has done so far
type SchedulerStats struct {
	Steps         uint64
	DroppedTicks  uint64
	DroppedStatus uint64
	Commands      uint64
	CommandErrors uint64
}

// Scheduler consumes timesteps from a link and advances the owner's world.
// A tick that finds the world locked is dropped, never retried.
type Scheduler struct {
	owner           *Owner
	link            *Link
	log             logging.Logger
	commandsPerStep int

	startOnce sync.Once
	done      chan struct{}

	steps         atomic.Uint64
	droppedTicks  atomic.Uint64
	droppedStatus atomic.Uint64
	commands      atomic.Uint64
	commandErrors atomic.Uint64
	lastSolve     atomic.Int64
}

// NewScheduler creates a scheduler applying one command per step
func NewScheduler(owner *Owner, link *Link, opts ...Option) *Scheduler {
	s := &Scheduler{
		owner:           owner,
		link:            link,
		log:             logging.Nop(),
		commandsPerStep: 1,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the loop on its own goroutine. Calling it again has no effect.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		go s.Run()
	})
}

// Run processes timesteps until the link is closed. A delta still queued
// when the link closes is never stepped.
func (s *Scheduler) Run() {
	defer close(s.done)
	for {
		select {
		case <-s.link.closed:
			return
		default:
		}
		select {
		case <-s.link.closed:
			return
		case dt := <-s.link.deltas:
			s.tick(dt)
		}
	}
}

// Done is closed when the loop has exited
func (s *Scheduler) Done() <-chan struct{} { return s.done }

// Dropped returns how many ticks were skipped because the world was busy
func (s *Scheduler) Dropped() uint64 { return s.droppedTicks.Load() }

// LastSolveTime returns the duration of the latest step
func (s *Scheduler) LastSolveTime() time.Duration {
	return time.Duration(s.lastSolve.Load())
}

// Stats returns a snapshot of the loop counters
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Steps:         s.steps.Load(),
		DroppedTicks:  s.droppedTicks.Load(),
		DroppedStatus: s.droppedStatus.Load(),
		Commands:      s.commands.Load(),
		CommandErrors: s.commandErrors.Load(),
	}
}

func (s *Scheduler) tick(dt float32) {
	if !s.owner.TryLock() {
		s.droppedTicks.Add(1)
		return
	}
	status := s.stepLocked(dt)
	s.owner.Unlock()

	if !s.link.publish(status) {
		s.droppedStatus.Add(1)
	}
}

// stepLocked advances the world then applies queued commands. The caller
// holds the owner lock.
func (s *Scheduler) stepLocked(dt float32) Status {
	w := s.owner.world

	start := time.Now()
	w.Step(s.owner.gravity, dt)
	solve := time.Since(start)
	s.lastSolve.Store(int64(solve))
	step := s.steps.Add(1)

	var errs []error
	for n := 0; s.commandsPerStep <= 0 || n < s.commandsPerStep; n++ {
		cmd, ok := s.link.nextCommand()
		if !ok {
			break
		}
		s.commands.Add(1)
		if err := cmd.apply(w); err != nil {
			s.commandErrors.Add(1)
			s.log.Warn("command failed", "step", step, "body", cmd.Target().String(), "error", err)
			errs = append(errs, err)
		}
	}

	return Status{
		SolveTime:  solve,
		Step:       step,
		Bodies:     w.Bodies.Len(),
		CommandErr: errors.Join(errs...),
	}
}
