package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"sandbox/core"
	"sandbox/physics"
)

const frameDt = 1.0 / 60.0

func bodyOf(t *testing.T, f *fixture, h core.Handle) physics.BodyHandle {
	t.Helper()
	e, ok := f.registry.Lookup(h)
	if !ok {
		t.Fatalf("no entity %v", h)
	}
	return e.Body
}

func TestLink_SecondDeltaWaitsForScheduler(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.link.SubmitDelta(ctx, frameDt); err != nil {
		t.Fatalf("first SubmitDelta: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- f.link.SubmitDelta(ctx, frameDt) }()

	select {
	case err := <-done:
		t.Fatalf("second SubmitDelta returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	sched := NewScheduler(f.owner, f.link)
	sched.Start()
	defer func() {
		f.link.Close()
		<-sched.Done()
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("second SubmitDelta: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second SubmitDelta still blocked after the scheduler started")
	}
}

func TestLink_SubmitDeltaHonoursContext(t *testing.T) {
	f := newFixture(t)
	if err := f.link.SubmitDelta(context.Background(), frameDt); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := f.link.SubmitDelta(ctx, frameDt); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestLink_TrySubmitCommandNeverBlocks(t *testing.T) {
	f := newFixture(t, WithCommandCapacity(2))
	for i := 0; i < 2; i++ {
		if err := f.link.TrySubmitCommand(Impulse{}); err != nil {
			t.Fatalf("TrySubmitCommand %d: %v", i, err)
		}
	}
	if err := f.link.TrySubmitCommand(Impulse{}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("err = %v, want ErrQueueFull", err)
	}
	if f.link.PendingCommands() != 2 {
		t.Errorf("PendingCommands() = %d, want 2", f.link.PendingCommands())
	}
	f.link.Close()
	if err := f.link.TrySubmitCommand(Impulse{}); !errors.Is(err, ErrClosed) {
		t.Errorf("err after close = %v, want ErrClosed", err)
	}
}

func TestScheduler_StaleCommandFailsAlone(t *testing.T) {
	f := newFixture(t)
	sched := NewScheduler(f.owner, f.link)
	ctx := context.Background()

	gone, _ := f.registry.Create(core.ShapeSphere, 0.5)
	live, _ := f.registry.Create(core.ShapeSphere, 0.5)
	goneBody, liveBody := bodyOf(t, f, gone), bodyOf(t, f, live)
	if err := f.registry.Destroy(gone); err != nil {
		t.Fatal(err)
	}

	if err := f.link.SubmitCommand(ctx, Impulse{Vector: mgl32.Vec3{1, 0, 0}, Body: goneBody}); err != nil {
		t.Fatal(err)
	}
	if err := f.link.SubmitCommand(ctx, Impulse{Vector: mgl32.Vec3{1, 0, 0}, Body: liveBody}); err != nil {
		t.Fatal(err)
	}

	sched.tick(frameDt)
	st, ok := f.link.Poll()
	if !ok {
		t.Fatal("no status after the first step")
	}
	if !errors.Is(st.CommandErr, ErrStaleBody) || !errors.Is(st.CommandErr, physics.ErrBodyNotFound) {
		t.Errorf("first step CommandErr = %v, want ErrStaleBody", st.CommandErr)
	}

	sched.tick(frameDt)
	st, _ = f.link.Poll()
	if st.CommandErr != nil {
		t.Errorf("second step CommandErr = %v, want nil", st.CommandErr)
	}
	f.owner.With(func(w *physics.World) {
		b, _ := w.Bodies.Get(liveBody)
		if b.Linvel().X() <= 0 {
			t.Errorf("impulse not applied to the live body: linvel %v", b.Linvel())
		}
	})
	if got := sched.Stats(); got.Commands != 2 || got.CommandErrors != 1 {
		t.Errorf("stats = %+v, want 2 commands and 1 error", got)
	}
}

func TestScheduler_CommandsPerStep(t *testing.T) {
	tests := []struct {
		name    string
		perStep int
		want    uint64
	}{
		{"default rate limit", 1, 1},
		{"two per step", 2, 2},
		{"drain all", 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			h, _ := f.registry.Create(core.ShapeCube, 0.5)
			body := bodyOf(t, f, h)
			for i := 0; i < 5; i++ {
				if err := f.link.SubmitCommand(context.Background(), Translate{Vector: mgl32.Vec3{float32(i), 3, 0}, Body: body}); err != nil {
					t.Fatal(err)
				}
			}
			sched := NewScheduler(f.owner, f.link, WithCommandsPerStep(tt.perStep))
			sched.tick(frameDt)
			if got := sched.Stats().Commands; got != tt.want {
				t.Errorf("applied %d commands, want %d", got, tt.want)
			}
			if got := f.link.PendingCommands(); got != 5-int(tt.want) {
				t.Errorf("%d commands pending, want %d", got, 5-int(tt.want))
			}
		})
	}
}

func TestScheduler_SetBodyTypeCommand(t *testing.T) {
	f := newFixture(t)
	h, _ := f.registry.Create(core.ShapeSphere, 0.5)
	body := bodyOf(t, f, h)
	f.link.SubmitCommand(context.Background(), SetBodyType{Type: physics.BodyTypeFixed, Body: body})

	sched := NewScheduler(f.owner, f.link)
	sched.tick(frameDt)
	var before mgl32.Vec3
	f.owner.With(func(w *physics.World) {
		b, _ := w.Bodies.Get(body)
		if b.BodyType() != physics.BodyTypeFixed {
			t.Fatalf("body type = %v, want fixed", b.BodyType())
		}
		before = b.Translation()
	})
	sched.tick(frameDt)
	f.owner.With(func(w *physics.World) {
		b, _ := w.Bodies.Get(body)
		if b.Translation() != before {
			t.Errorf("fixed body moved from %v to %v", before, b.Translation())
		}
	})
}

func TestScheduler_DropsTickWhileLocked(t *testing.T) {
	f := newFixture(t)
	sched := NewScheduler(f.owner, f.link)

	f.owner.Lock()
	sched.tick(frameDt)
	f.owner.Unlock()

	if sched.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", sched.Dropped())
	}
	if _, ok := f.link.Poll(); ok {
		t.Error("status published for a dropped tick")
	}

	sched.tick(frameDt)
	st, ok := f.link.Poll()
	if !ok || st.Step != 1 {
		t.Errorf("status after first real step = %+v (ok=%v), want step 1", st, ok)
	}
}

func TestScheduler_StatusDropsWhenFull(t *testing.T) {
	f := newFixture(t, WithStatusCapacity(1))
	sched := NewScheduler(f.owner, f.link)
	for i := 0; i < 3; i++ {
		sched.tick(frameDt)
	}

	if got := sched.Stats().DroppedStatus; got != 2 {
		t.Errorf("DroppedStatus = %d, want 2", got)
	}
	latest, ok := f.link.Latest()
	if !ok || latest.Step != 3 {
		t.Errorf("Latest() = %+v, want step 3", latest)
	}
	queued, ok := f.link.Poll()
	if !ok || queued.Step != 1 {
		t.Errorf("Poll() = %+v, want the queued step 1", queued)
	}
	if latest.Step-queued.Step != 2 {
		t.Error("step counter does not expose the gap")
	}
}

func TestScheduler_StopsWhenLinkCloses(t *testing.T) {
	f := newFixture(t)
	sched := NewScheduler(f.owner, f.link)
	sched.Start()
	sched.Start()

	f.link.Close()
	select {
	case <-sched.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	ctx := context.Background()
	if err := f.link.SubmitDelta(ctx, frameDt); !errors.Is(err, ErrClosed) {
		t.Errorf("SubmitDelta after close err = %v, want ErrClosed", err)
	}
	if err := f.link.SubmitCommand(ctx, Impulse{}); !errors.Is(err, ErrClosed) {
		t.Errorf("SubmitCommand after close err = %v, want ErrClosed", err)
	}
}

func TestScheduler_CloseWinsOverQueuedDelta(t *testing.T) {
	for i := 0; i < 200; i++ {
		f := newFixture(t)
		sched := NewScheduler(f.owner, f.link)
		if err := f.link.SubmitDelta(context.Background(), frameDt); err != nil {
			t.Fatal(err)
		}
		f.link.Close()
		sched.Run()
		if got := sched.Stats().Steps; got != 0 {
			t.Fatalf("run %d: stepped %d times after Close", i, got)
		}
	}
}

func TestFrontendSync_SkipsWhileWorldLocked(t *testing.T) {
	f := newFixture(t)
	sched := NewScheduler(f.owner, f.link)
	sched.Start()
	defer func() {
		f.link.Close()
		<-sched.Done()
	}()
	fs := NewFrontendSync(f.registry, f.link)
	ctx := context.Background()

	h, _ := f.registry.Create(core.ShapeSphere, 0.5)
	e, _ := f.registry.Lookup(h)
	initial, _ := f.scene.Get(e.Mesh)

	f.owner.Lock()
	b, _ := f.world.Bodies.Get(e.Body)
	b.SetTranslation(mgl32.Vec3{4, 4, 4}, true)
	for i := 0; i < 5; i++ {
		synced, err := fs.Sync(ctx, frameDt)
		if err != nil {
			f.owner.Unlock()
			t.Fatalf("Sync: %v", err)
		}
		if synced {
			t.Error("Sync copied poses while the world was locked")
		}
		m, _ := f.scene.Get(e.Mesh)
		if m.Transform != initial.Transform {
			t.Errorf("mesh moved to %v while the world was locked", m.Transform.Translation)
		}
	}
	dropped := sched.Dropped()
	f.owner.Unlock()

	if fs.Skipped() != 5 || fs.Frames() != 5 {
		t.Errorf("Skipped() = %d Frames() = %d, want 5 and 5", fs.Skipped(), fs.Frames())
	}
	if dropped < 3 {
		t.Errorf("scheduler dropped %d ticks while locked, want at least 3", dropped)
	}

	if err := fs.ForceSync(ctx, frameDt); err != nil {
		t.Fatalf("ForceSync: %v", err)
	}
	m, _ := f.scene.Get(e.Mesh)
	if m.Transform == initial.Transform {
		t.Error("mesh not updated after the lock was released")
	}
}

func TestFrontendSync_ForceEvery(t *testing.T) {
	f := newFixture(t)
	sched := NewScheduler(f.owner, f.link)
	sched.Start()
	defer func() {
		f.link.Close()
		<-sched.Done()
	}()
	fs := NewFrontendSync(f.registry, f.link, WithForceEvery(2))

	f.owner.Lock()
	if synced, _ := fs.Sync(context.Background(), frameDt); synced {
		t.Error("frame 1 synced while locked")
	}
	released := make(chan struct{})
	go func() {
		time.Sleep(30 * time.Millisecond)
		close(released)
		f.owner.Unlock()
	}()
	synced, err := fs.Sync(context.Background(), frameDt)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	select {
	case <-released:
	default:
		t.Error("forced frame did not wait for the lock")
	}
	if !synced {
		t.Error("forced frame reported no copy")
	}
}

func TestFrontendSync_WatchCapturesState(t *testing.T) {
	f := newFixture(t)
	sched := NewScheduler(f.owner, f.link)
	sched.Start()
	defer func() {
		f.link.Close()
		<-sched.Done()
	}()
	fs := NewFrontendSync(f.registry, f.link)

	h, _ := f.registry.Create(core.ShapeCube, 0.5)
	fs.Watch(h)
	if err := fs.ForceSync(context.Background(), frameDt); err != nil {
		t.Fatal(err)
	}
	st, ok := fs.Watched()
	if !ok || st.Handle != h || st.Kind != core.ShapeCube {
		t.Fatalf("Watched() = %+v (ok=%v)", st, ok)
	}
	if st.Potential <= 0 {
		t.Errorf("potential energy %v, want positive above the ground", st.Potential)
	}
	fs.Watch(core.InvalidHandle)
	if _, ok := fs.Watched(); ok {
		t.Error("still watching after clearing")
	}
}

func TestOwner_CastRay(t *testing.T) {
	const radius = 1.0
	tests := []struct {
		name    string
		origin  mgl32.Vec3
		wantHit bool
	}{
		{"through the centre", mgl32.Vec3{0, 0, 10}, true},
		{"inside the radius", mgl32.Vec3{0.9, 0, 10}, true},
		{"lateral offset beyond the radius", mgl32.Vec3{radius + 0.1, 0, 10}, false},
	}

	f := newFixture(t)
	h, err := f.registry.CreateAt(core.ShapeSphere, radius, mgl32.Vec3{})
	if err != nil {
		t.Fatal(err)
	}
	body := bodyOf(t, f, h)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, ok := f.owner.CastRay(tt.origin, mgl32.Vec3{0, 0, -1})
			if ok != tt.wantHit {
				t.Fatalf("hit = %v, want %v", ok, tt.wantHit)
			}
			if !ok {
				return
			}
			f.owner.With(func(w *physics.World) {
				c, _ := w.Colliders.Get(hit.Collider)
				if parent, _ := c.Parent(); parent != body {
					t.Errorf("hit body %v, want %v", parent, body)
				}
			})
		})
	}
}

func TestPicker_ResolvesHandlesAndFloor(t *testing.T) {
	f := newFixture(t)
	f.owner.With(func(w *physics.World) {
		w.AddFloor(mgl32.Vec3{20, 0.1, 20})
	})
	h, _ := f.registry.CreateAt(core.ShapeCube, 0.5, mgl32.Vec3{0, 0.5, 0})
	p := NewPicker(f.registry)
	down := mgl32.Vec3{0, -1, 0}

	got, ok := p.PickHandle(mgl32.Vec3{0, 10, 0}, down)
	if !ok || got != h {
		t.Errorf("PickHandle = %v (ok=%v), want %v", got, ok, h)
	}
	if body, ok := p.PickBody(mgl32.Vec3{0, 10, 0}, down); !ok || body != bodyOf(t, f, h) {
		t.Errorf("PickBody = %v (ok=%v)", body, ok)
	}

	floorRay := mgl32.Vec3{5, 10, 5}
	if _, ok := p.PickBody(floorRay, down); ok {
		t.Error("PickBody returned a body for the floor")
	}
	point, ok := p.PickPoint(floorRay, down)
	if !ok || point.Y() > 1e-4 || point.Y() < -1e-4 {
		t.Errorf("PickPoint = %v (ok=%v), want a point on y=0", point, ok)
	}

	if handle, ok := f.registry.ResolveBody(bodyOf(t, f, h)); !ok || handle != h {
		t.Errorf("ResolveBody = %v (ok=%v), want %v", handle, ok, h)
	}
}

func TestAdaptiveTimeStep_Bounds(t *testing.T) {
	a := NewAdaptiveTimeStep()
	tests := []struct {
		frame float32
		want  float32
		info  string
	}{
		{0, a.MinStep, "Padded"},
		{frameDt, frameDt, "Real Time"},
		{2, a.MaxStep, "Slow Motion"},
	}
	for _, tt := range tests {
		if got := a.Next(tt.frame); got != tt.want {
			t.Errorf("Next(%v) = %v, want %v", tt.frame, got, tt.want)
		}
		if a.StepInfo() != tt.info {
			t.Errorf("StepInfo() after %v = %q, want %q", tt.frame, a.StepInfo(), tt.info)
		}
	}
}
