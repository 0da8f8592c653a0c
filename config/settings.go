package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

type Settings struct {
	Window     WindowSettings     `json:"window"`
	Simulation SimulationSettings `json:"simulation"`
	Network    NetworkSettings    `json:"network"`
	Log        LogSettings        `json:"log"`
}

type WindowSettings struct {
	Width     int `json:"width"`
	Height    int `json:"height"`
	TargetFPS int `json:"targetFps"`

	// Paddings offset the pointer when the viewport does not fill the window
	PaddingX float32 `json:"paddingX"`
	PaddingY float32 `json:"paddingY"`
}

type SimulationSettings struct {
	Gravity          [3]float32 `json:"gravity"`
	SolverIterations int        `json:"solverIterations"`
	CommandCapacity  int        `json:"commandCapacity"`
	StatusCapacity   int        `json:"statusCapacity"`
	CommandsPerStep  int        `json:"commandsPerStep"`
	ForceSyncEvery   int        `json:"forceSyncEvery"`
	SizeScale        float32    `json:"sizeScale"`
	SpawnBatch       int        `json:"spawnBatch"`
}

type NetworkSettings struct {
	EchoAddr          string `json:"echoAddr"`
	TelemetryAddr     string `json:"telemetryAddr"`
	TelemetryInterval int    `json:"telemetryIntervalMs"`
}

type LogSettings struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Default returns the settings used when no file is present
func Default() Settings {
	return Settings{
		Window: WindowSettings{
			Width:     1280,
			Height:    720,
			TargetFPS: 60,
		},
		Simulation: SimulationSettings{
			Gravity:          [3]float32{0, -9.81, 0},
			SolverIterations: 8,
			CommandCapacity:  16,
			StatusCapacity:   16,
			CommandsPerStep:  1,
			SizeScale:        0.5,
			SpawnBatch:       128,
		},
		Network: NetworkSettings{
			EchoAddr:          "127.0.0.1:4242",
			TelemetryAddr:     "127.0.0.1:8080",
			TelemetryInterval: 100,
		},
		Log: LogSettings{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Settings, error) {
	s := Default()

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&s); err != nil {
		return s, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return s, s.Validate()
}

// TelemetryEvery returns the telemetry broadcast interval
func (s Settings) TelemetryEvery() time.Duration {
	return time.Duration(s.Network.TelemetryInterval) * time.Millisecond
}

func (s Settings) Validate() error {
	var errs []error
	if s.Window.Width <= 0 || s.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", s.Window.Width, s.Window.Height))
	}
	if s.Window.TargetFPS < 0 {
		errs = append(errs, fmt.Errorf("target fps %d is negative", s.Window.TargetFPS))
	}
	if s.Simulation.SolverIterations <= 0 {
		errs = append(errs, fmt.Errorf("solver iterations %d must be positive", s.Simulation.SolverIterations))
	}
	if s.Simulation.CommandCapacity <= 0 || s.Simulation.StatusCapacity <= 0 {
		errs = append(errs, errors.New("queue capacities must be positive"))
	}
	if s.Simulation.ForceSyncEvery < 0 {
		errs = append(errs, fmt.Errorf("force sync interval %d is negative", s.Simulation.ForceSyncEvery))
	}
	if s.Simulation.SizeScale <= 0 {
		errs = append(errs, fmt.Errorf("size scale %v must be positive", s.Simulation.SizeScale))
	}
	if s.Simulation.SpawnBatch < 0 {
		errs = append(errs, fmt.Errorf("spawn batch %d is negative", s.Simulation.SpawnBatch))
	}
	if s.Network.TelemetryInterval <= 0 {
		errs = append(errs, fmt.Errorf("telemetry interval %dms must be positive", s.Network.TelemetryInterval))
	}
	switch s.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", s.Log.Format))
	}
	return errors.Join(errs...)
}
