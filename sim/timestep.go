package sim

// AdaptiveTimeStep bounds the frame time handed to the scheduler so a long
// stall does not become one huge step and a zero frame time does not stall
// the simulation
type AdaptiveTimeStep struct {
	MinStep     float32
	MaxStep     float32
	CurrentStep float32
	LastFrame   float32
}

// NewAdaptiveTimeStep bounds steps between 240 Hz and 15 Hz
func NewAdaptiveTimeStep() *AdaptiveTimeStep {
	return &AdaptiveTimeStep{
		MinStep:     1.0 / 240.0,
		MaxStep:     1.0 / 15.0,
		CurrentStep: 1.0 / 60.0,
	}
}

// Next returns the step to submit for a frame that took frameDt seconds
func (a *AdaptiveTimeStep) Next(frameDt float32) float32 {
	a.LastFrame = frameDt
	step := frameDt
	if step < a.MinStep {
		step = a.MinStep
	}
	if step > a.MaxStep {
		step = a.MaxStep
	}
	a.CurrentStep = step
	return step
}

// StepInfo describes how the last frame time was treated
func (a *AdaptiveTimeStep) StepInfo() string {
	switch {
	case a.LastFrame > a.MaxStep:
		return "Slow Motion"
	case a.LastFrame < a.MinStep:
		return "Padded"
	}
	return "Real Time"
}
