package main

import (
	"context"
	"errors"
	"time"

	"sandbox/editor"
	"sandbox/rendering/rlview"
	"sandbox/sim"
)

// runWindow is the interactive frame loop. Each frame reads input, applies
// editor actions, copies poses if the world is free, hands the frame time
// to the scheduler and draws.
func (a *app) runWindow(ctx context.Context) error {
	w := a.settings.Window
	rlview.Window("Physics Sandbox", w.Width, w.Height, w.TargetFPS)
	defer rlview.CloseWindow()

	view := rlview.NewView(a.scene, floorHalfExtents)
	defer view.Unload()

	steps := sim.NewAdaptiveTimeStep()
	var (
		status     sim.Status
		renderTime time.Duration
	)
	for !rlview.ShouldClose() {
		if ctx.Err() != nil {
			return nil
		}
		frameStart := time.Now()

		actions := rlview.Poll()
		a.editor.Apply(actions)

		dt := steps.Next(actions.Dt)
		if done, err := a.advance(ctx, dt); done {
			return err
		}
		if st, ok := a.link.Poll(); ok {
			status = st
		}

		rlview.BeginFrame()
		view.Draw(a.editor.Camera)
		rlview.DrawHUD(a.editor.HUD(editor.FrameStats{
			RenderTime: renderTime,
			Dt:         dt,
			Info:       steps.StepInfo(),
		}, status, a.scene.Len()))
		rlview.DrawFooter("F spawn | R clear | left click select | right click place | Tab HUD | Esc quit")
		rlview.EndFrame()
		renderTime = time.Since(frameStart)
	}
	return nil
}

// runHeadless paces the scheduler from a ticker and spawns one batch so
// telemetry clients have something to watch
func (a *app) runHeadless(ctx context.Context) error {
	if n, err := a.editor.SpawnBatch(); err != nil {
		a.log.Warn("initial spawn failed", "spawned", n, "error", err)
	}
	fps := a.settings.Window.TargetFPS
	if fps <= 0 {
		fps = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	steps := sim.NewAdaptiveTimeStep()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := steps.Next(float32(now.Sub(last).Seconds()))
			last = now
			if done, err := a.advance(ctx, dt); done {
				return err
			}
			if st, ok := a.link.Poll(); ok && st.CommandErr != nil {
				a.log.Debug("step had command errors", "step", st.Step, "error", st.CommandErr)
			}
		}
	}
}

// advance syncs poses and submits dt. It reports done when the loop should
// stop; err is nil for a normal shutdown.
func (a *app) advance(ctx context.Context, dt float32) (bool, error) {
	_, err := a.sync.Sync(ctx, dt)
	switch {
	case err == nil:
		return false, nil
	case ctx.Err() != nil, errors.Is(err, sim.ErrClosed):
		return true, nil
	}
	a.log.Warn("frame sync failed", "error", err)
	return false, nil
}
