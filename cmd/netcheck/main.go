package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"sandbox/logging"
	"sandbox/netcheck"
)

func main() {
	var (
		listen   = flag.String("listen", "", "Run an echo server on this address")
		addr     = flag.String("addr", "127.0.0.1:4242", "Echo server to check")
		message  = flag.String("msg", "ping", "Payload to echo")
		count    = flag.Int("n", 3, "Number of round trips")
		datagram = flag.Bool("datagram", false, "Echo over datagrams instead of streams")
		level    = flag.String("log-level", "info", "Log level")
	)
	flag.Parse()

	logger, err := logging.New(*level, "text", os.Stderr)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if *listen != "" {
		srv, err := netcheck.Listen(*listen, logger)
		if err != nil {
			log.Fatalf("Failed to start echo server: %v", err)
		}
		g.Go(func() error { return srv.Serve(ctx) })
		*addr = srv.Addr().String()
		if *count == 0 {
			// serve only
			if err := g.Wait(); err != nil {
				log.Fatal(err)
			}
			return
		}
	}

	g.Go(func() error {
		defer stop()
		return check(ctx, logger, *addr, *message, *count, *datagram)
	})
	if err := g.Wait(); err != nil {
		logger.Error("echo check failed", "addr", *addr, "error", err)
		os.Exit(1)
	}
}

func check(ctx context.Context, logger logging.Logger, addr, msg string, n int, datagram bool) error {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	c, err := netcheck.Dial(dialCtx, addr)
	if err != nil {
		return err
	}
	defer c.Close()

	for i := 0; i < n; i++ {
		rtCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		start := time.Now()
		var reply []byte
		if datagram {
			reply, err = c.EchoDatagram(rtCtx, []byte(msg))
		} else {
			reply, err = c.Echo(rtCtx, []byte(msg))
		}
		cancel()
		if err != nil {
			return err
		}
		logger.Info("echo", "seq", i, "bytes", len(reply), "rtt", time.Since(start))
	}
	return nil
}
