package sim

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"sandbox/core"
)

// SyncOption configures a FrontendSync
type SyncOption func(*FrontendSync)

// WithForceEvery makes every nth Sync wait for the lock instead of skipping.
// Zero disables forced frames.
func WithForceEvery(n int) SyncOption {
	return func(f *FrontendSync) {
		if n > 0 {
			f.forceEvery = uint64(n)
		}
	}
}

// FrontendSync copies simulated poses into the renderer once per frame and
// then hands the frame's timestep to the scheduler. Poses are read before
// the timestep is submitted, so a frame never shows a half-applied step.
type FrontendSync struct {
	registry   *Registry
	link       *Link
	forceEvery uint64

	frames  atomic.Uint64
	skipped atomic.Uint64

	mu       sync.Mutex
	watch    core.Handle
	watched  EntityState
	hasWatch bool
}

// NewFrontendSync creates a sync for registry's entities feeding link
func NewFrontendSync(registry *Registry, link *Link, opts ...SyncOption) *FrontendSync {
	f := &FrontendSync{registry: registry, link: link}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Sync copies poses if the world is free, then submits dt. It reports
// whether the copy happened. Submitting blocks while the previous timestep
// is still queued.
func (f *FrontendSync) Sync(ctx context.Context, dt float32) (bool, error) {
	frame := f.frames.Add(1)
	owner := f.registry.owner

	var copyErr error
	synced := false
	if f.forceEvery > 0 && frame%f.forceEvery == 0 {
		owner.Lock()
		copyErr = f.copyLocked()
		owner.Unlock()
		synced = true
	} else if owner.TryLock() {
		copyErr = f.copyLocked()
		owner.Unlock()
		synced = true
	} else {
		f.skipped.Add(1)
	}

	if err := f.link.SubmitDelta(ctx, dt); err != nil {
		return synced, errors.Join(copyErr, err)
	}
	return synced, copyErr
}

// ForceSync waits for the lock, copies poses and submits dt
func (f *FrontendSync) ForceSync(ctx context.Context, dt float32) error {
	f.frames.Add(1)
	owner := f.registry.owner
	owner.Lock()
	copyErr := f.copyLocked()
	owner.Unlock()

	if err := f.link.SubmitDelta(ctx, dt); err != nil {
		return errors.Join(copyErr, err)
	}
	return copyErr
}

func (f *FrontendSync) copyLocked() error {
	err := f.registry.syncLocked()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watch != core.InvalidHandle {
		f.watched, f.hasWatch = f.registry.stateLocked(f.watch)
	}
	return err
}

// Watch selects an entity whose state is captured on every successful
// copy. InvalidHandle stops watching.
func (f *FrontendSync) Watch(h core.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watch = h
	f.hasWatch = false
}

// Watched returns the watched entity's state as of the last copy
func (f *FrontendSync) Watched() (EntityState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.watched, f.hasWatch
}

// Frames returns how many frames have been synced or skipped
func (f *FrontendSync) Frames() uint64 { return f.frames.Load() }

// Skipped returns how many frames reused the previous poses
func (f *FrontendSync) Skipped() uint64 { return f.skipped.Load() }
