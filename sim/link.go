package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Status is published after every successful step
type Status struct {
	// SolveTime is how long the physics step took
	SolveTime time.Duration

	// Step increases by one per successful step, so gaps reveal dropped records
	Step   uint64
	Bodies int

	// CommandErr reports the commands that failed during this step, if any
	CommandErr error
}

// LinkOption configures queue capacities
type LinkOption func(*linkConfig)

type linkConfig struct {
	commandCap int
	statusCap  int
}

// WithCommandCapacity sets how many commands may wait before producers block
func WithCommandCapacity(n int) LinkOption {
	return func(c *linkConfig) {
		if n > 0 {
			c.commandCap = n
		}
	}
}

// WithStatusCapacity sets how many status records are buffered before new
// ones are dropped
func WithStatusCapacity(n int) LinkOption {
	return func(c *linkConfig) {
		if n > 0 {
			c.statusCap = n
		}
	}
}

// Link holds the three queues between the frame loop and the scheduler.
// The delta queue holds a single entry so the frame loop can run at most
// one step ahead of the simulation.
type Link struct {
	deltas   chan float32
	commands chan Command
	status   chan Status

	latest    atomic.Pointer[Status]
	closed    chan struct{}
	closeOnce sync.Once
}

// NewLink creates a link with a delta capacity of one and default command
// and status capacities of 16
func NewLink(opts ...LinkOption) *Link {
	cfg := linkConfig{commandCap: 16, statusCap: 16}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Link{
		deltas:   make(chan float32, 1),
		commands: make(chan Command, cfg.commandCap),
		status:   make(chan Status, cfg.statusCap),
		closed:   make(chan struct{}),
	}
}

// SubmitDelta queues a timestep, blocking while the previous one has not
// been consumed
func (l *Link) SubmitDelta(ctx context.Context, dt float32) error {
	select {
	case <-l.closed:
		return ErrClosed
	default:
	}
	select {
	case l.deltas <- dt:
		return nil
	case <-l.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitCommand queues a command, blocking while the queue is full
func (l *Link) SubmitCommand(ctx context.Context, cmd Command) error {
	select {
	case <-l.closed:
		return ErrClosed
	default:
	}
	select {
	case l.commands <- cmd:
		return nil
	case <-l.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmitCommand queues a command if a slot is free and never blocks.
// Callers on the frame loop use it since commands only drain during steps.
func (l *Link) TrySubmitCommand(cmd Command) error {
	select {
	case <-l.closed:
		return ErrClosed
	default:
	}
	select {
	case l.commands <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Poll drains the status queue without blocking and returns the newest record
func (l *Link) Poll() (Status, bool) {
	var (
		last Status
		ok   bool
	)
	for {
		select {
		case s := <-l.status:
			last, ok = s, true
		default:
			return last, ok
		}
	}
}

// Latest returns the newest published status, including ones dropped from
// the queue. Safe from any goroutine.
func (l *Link) Latest() (Status, bool) {
	s := l.latest.Load()
	if s == nil {
		return Status{}, false
	}
	return *s, true
}

// PendingCommands returns how many commands are waiting
func (l *Link) PendingCommands() int { return len(l.commands) }

// Close stops the scheduler loop. Later submits fail with ErrClosed.
func (l *Link) Close() {
	l.closeOnce.Do(func() { close(l.closed) })
}

// Closed is closed once Close has been called
func (l *Link) Closed() <-chan struct{} { return l.closed }

// publish stores s as the latest status and queues it, dropping it when
// the queue is full
func (l *Link) publish(s Status) bool {
	l.latest.Store(&s)
	select {
	case l.status <- s:
		return true
	default:
		return false
	}
}

func (l *Link) nextCommand() (Command, bool) {
	select {
	case cmd := <-l.commands:
		return cmd, true
	default:
		return nil, false
	}
}
