package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"sandbox/config"
	"sandbox/editor"
	"sandbox/logging"
	"sandbox/netcheck"
	"sandbox/physics"
	"sandbox/rendering"
	"sandbox/server"
	"sandbox/sim"
)

var floorHalfExtents = mgl32.Vec3{20, 0.1, 20}

func main() {
	// raylib must stay on the main thread
	runtime.LockOSThread()

	var (
		configPath = flag.String("config", "settings.json", "Settings file")
		width      = flag.Int("width", 0, "Window width (overrides settings)")
		height     = flag.Int("height", 0, "Window height (overrides settings)")
		logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error")
		telemetry  = flag.String("telemetry", "", "Telemetry listen address (overrides settings)")
		echoAddr   = flag.String("echo", "", "Echo smoke test address (overrides settings)")
		perStep    = flag.Int("commands-per-step", -1, "Commands applied per step, 0 drains all (overrides settings)")
		headless   = flag.Bool("headless", false, "Run the simulation without a window")
	)
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	if *width > 0 {
		settings.Window.Width = *width
	}
	if *height > 0 {
		settings.Window.Height = *height
	}
	if *logLevel != "" {
		settings.Log.Level = *logLevel
	}
	if *telemetry != "" {
		settings.Network.TelemetryAddr = *telemetry
	}
	if *echoAddr != "" {
		settings.Network.EchoAddr = *echoAddr
	}
	if *perStep >= 0 {
		settings.Simulation.CommandsPerStep = *perStep
	}
	if err := settings.Validate(); err != nil {
		log.Fatalf("Invalid settings: %v", err)
	}

	logger, err := logging.New(settings.Log.Level, settings.Log.Format, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if err := run(settings, *headless, logger); err != nil {
		logger.Error("sandbox stopped", "error", err)
		os.Exit(1)
	}
}

// app is everything the frame loop drives
type app struct {
	settings config.Settings
	log      logging.Logger
	scene    *rendering.Scene
	link     *sim.Link
	sync     *sim.FrontendSync
	editor   *editor.Editor
}

func run(settings config.Settings, headless bool, logger logging.Logger) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	simCfg := settings.Simulation
	world := physics.NewWorld()
	world.Params.SolverIterations = simCfg.SolverIterations
	world.AddFloor(floorHalfExtents)

	owner := sim.NewOwner(world, mgl32.Vec3(simCfg.Gravity))
	scene := rendering.NewScene()
	registry := sim.NewRegistry(owner, scene, logger.With("component", "registry"))
	link := sim.NewLink(
		sim.WithCommandCapacity(simCfg.CommandCapacity),
		sim.WithStatusCapacity(simCfg.StatusCapacity),
	)
	sched := sim.NewScheduler(owner, link,
		sim.WithCommandsPerStep(simCfg.CommandsPerStep),
		sim.WithLogger(logger.With("component", "scheduler")),
	)
	fs := sim.NewFrontendSync(registry, link, sim.WithForceEvery(simCfg.ForceSyncEvery))
	ed := editor.New(editor.Config{
		Scale:      simCfg.SizeScale,
		SpawnBatch: simCfg.SpawnBatch,
		Offset:     mgl32.Vec2{settings.Window.PaddingX, settings.Window.PaddingY},
	}, registry, link, fs, scene, logger.With("component", "editor"))

	g, gctx := errgroup.WithContext(ctx)

	echo, err := netcheck.Listen(settings.Network.EchoAddr, logger.With("component", "echo"))
	if err != nil {
		return err
	}
	g.Go(func() error { return echo.Serve(gctx) })
	g.Go(func() error {
		checkCtx, cancel := context.WithTimeout(gctx, 5*time.Second)
		defer cancel()
		rtt, err := netcheck.Check(checkCtx, echo.Addr().String(), "hello from the sandbox")
		if err != nil {
			logger.Warn("echo smoke test failed", "error", err)
			return nil
		}
		logger.Info("echo smoke test passed", "rtt", rtt)
		return nil
	})

	hub := server.NewHub(registry, link, settings.TelemetryEvery(), logger.With("component", "telemetry"))
	srv := &http.Server{Addr: settings.Network.TelemetryAddr, Handler: hub.Handler()}
	g.Go(func() error {
		logger.Info("telemetry listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("telemetry server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return hub.Run(gctx) })

	sched.Start()

	a := &app{
		settings: settings,
		log:      logger,
		scene:    scene,
		link:     link,
		sync:     fs,
		editor:   ed,
	}
	var loopErr error
	if headless {
		loopErr = a.runHeadless(gctx)
	} else {
		loopErr = a.runWindow(gctx)
	}

	cancel()
	link.Close()
	<-sched.Done()
	stats := sched.Stats()
	logger.Info("scheduler stopped",
		"steps", stats.Steps,
		"droppedTicks", stats.DroppedTicks,
		"droppedStatus", stats.DroppedStatus,
		"commands", stats.Commands,
		"commandErrors", stats.CommandErrors)

	return errors.Join(loopErr, g.Wait())
}
