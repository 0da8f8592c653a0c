package editor

import (
	"fmt"
	"time"

	"sandbox/core"
	"sandbox/sim"
)

// FrameStats is what the frame loop measured this frame
type FrameStats struct {
	RenderTime time.Duration
	Dt         float32
	Info       string
}

// HUD returns the overlay lines for the current frame. Outside edit mode
// only the controls hint is shown.
func (e *Editor) HUD(frame FrameStats, status sim.Status, entities int) []string {
	if !e.editMode {
		return []string{"Tab: edit mode"}
	}
	lines := []string{
		fmt.Sprintf("render %.2f ms | solve %.2f ms | dt %.4f s (%s)",
			ms(frame.RenderTime), ms(status.SolveTime), frame.Dt, frame.Info),
		fmt.Sprintf("step %d | entities %d | skipped syncs %d/%d",
			status.Step, entities, e.sync.Skipped(), e.sync.Frames()),
		fmt.Sprintf("size %.1f | F spawn %d | R clear | [ ] size | right click place", e.scale, e.batch),
	}
	if status.CommandErr != nil {
		lines = append(lines, "command error: "+status.CommandErr.Error())
	}
	if st, ok := e.sync.Watched(); ok && e.selected != core.InvalidHandle {
		lines = append(lines,
			fmt.Sprintf("selected %v %v (%v)", st.Handle, st.Kind, st.BodyType),
			fmt.Sprintf("  linvel (%.2f, %.2f, %.2f) |v| %.2f", st.Linvel[0], st.Linvel[1], st.Linvel[2], st.Linvel.Len()),
			fmt.Sprintf("  potential energy %.2f J", st.Potential),
		)
		if st.Sleeping {
			lines = append(lines, "  sleeping")
		}
	}
	return lines
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
