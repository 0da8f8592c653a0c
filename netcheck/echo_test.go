package netcheck

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"sandbox/logging"
)

func startServer(t *testing.T) string {
	t.Helper()
	srv, err := Listen("127.0.0.1:0", logging.Nop())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve: %v", err)
		}
	})
	return srv.Addr().String()
}

func TestEcho_Stream(t *testing.T) {
	addr := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	for _, msg := range []string{"hello", "ping from the sandbox", ""} {
		reply, err := c.Echo(ctx, []byte(msg))
		if err != nil {
			t.Fatalf("Echo(%q): %v", msg, err)
		}
		if string(reply) != msg {
			t.Errorf("Echo(%q) = %q", msg, reply)
		}
	}
}

func TestEcho_RejectsOversizedMessage(t *testing.T) {
	addr := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()
	if _, err := c.Echo(ctx, make([]byte, maxMessage+1)); err == nil {
		t.Error("expected oversized message to fail")
	}
}

func TestEcho_Datagram(t *testing.T) {
	addr := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	msg := []byte("datagram")
	// datagrams may be lost, so allow a few attempts
	for attempt := 0; attempt < 5; attempt++ {
		attemptCtx, cancelAttempt := context.WithTimeout(ctx, 500*time.Millisecond)
		reply, err := c.EchoDatagram(attemptCtx, msg)
		cancelAttempt()
		if err == nil {
			if !bytes.Equal(reply, msg) {
				t.Fatalf("EchoDatagram = %q", reply)
			}
			return
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("EchoDatagram: %v", err)
		}
	}
	t.Error("no datagram echoed")
}

func TestCheck(t *testing.T) {
	addr := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rtt, err := Check(ctx, addr, "smoke test")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rtt <= 0 {
		t.Errorf("rtt = %v", rtt)
	}
}

func TestCheck_NoServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if _, err := Check(ctx, "127.0.0.1:1", "nobody home"); err == nil {
		t.Error("expected dial to fail")
	}
}
