// Package netcheck runs a QUIC echo server and client used as a start-up
// smoke test of the network stack.
package netcheck

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"time"

	"github.com/quic-go/quic-go"

	"sandbox/logging"
)

const (
	// Protocol is the ALPN token both sides negotiate
	Protocol = "sandbox-echo"

	maxMessage = 1024
)

// ErrMismatch is returned when the echoed payload differs from what was sent
var ErrMismatch = errors.New("echo mismatch")

var quicConfig = &quic.Config{
	EnableDatagrams: true,
	MaxIdleTimeout:  30 * time.Second,
}

// Server echoes every stream and datagram back to its sender
type Server struct {
	listener *quic.Listener
	log      logging.Logger
}

// Listen binds addr with a freshly generated self-signed certificate
func Listen(addr string, log logging.Logger) (*Server, error) {
	if log == nil {
		log = logging.Nop()
	}
	tlsConf, err := selfSignedTLS()
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	listener, err := quic.ListenAddr(addr, tlsConf, quicConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	log.Info("echo server listening", "addr", listener.Addr().String())
	return &Server{listener: listener, log: log}, nil
}

// Addr returns the bound address
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Serve accepts connections until ctx is done, then closes the listener
func (s *Server) Serve(ctx context.Context) error {
	defer s.listener.Close()
	for {
		conn, err := s.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed accepting connection: %w", err)
		}
		log := s.log.With("remote", conn.RemoteAddr().String())
		go s.echoStreams(conn, log)
		go s.echoDatagrams(conn, log)
	}
}

func (s *Server) echoStreams(conn quic.Connection, log logging.Logger) {
	ctx := conn.Context()
	for {
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			return
		}
		go func() {
			defer stream.Close()
			buf, err := io.ReadAll(io.LimitReader(stream, maxMessage))
			if err != nil {
				log.Warn("echo read failed", "error", err)
				return
			}
			log.Debug("echo stream", "bytes", len(buf))
			if _, err := stream.Write(buf); err != nil {
				log.Warn("echo write failed", "error", err)
			}
		}()
	}
}

func (s *Server) echoDatagrams(conn quic.Connection, log logging.Logger) {
	ctx := conn.Context()
	for {
		msg, err := conn.ReceiveDatagram(ctx)
		if err != nil {
			return
		}
		log.Debug("echo datagram", "bytes", len(msg))
		if err := conn.SendDatagram(msg); err != nil {
			log.Warn("echo datagram failed", "error", err)
		}
	}
}

// Client dials an echo server
type Client struct {
	conn quic.Connection
}

// Dial connects to addr, skipping certificate verification
func Dial(ctx context.Context, addr string) (*Client, error) {
	tlsConf := &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{Protocol},
	}
	conn, err := quic.DialAddr(ctx, addr, tlsConf, quicConfig)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Echo sends msg on a new stream and returns the reply
func (c *Client) Echo(ctx context.Context, msg []byte) ([]byte, error) {
	if len(msg) > maxMessage {
		return nil, fmt.Errorf("message of %d bytes exceeds %d", len(msg), maxMessage)
	}
	stream, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		stream.SetDeadline(deadline)
	}
	if _, err := stream.Write(msg); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	// Close only ends our send side; the reply can still be read
	if err := stream.Close(); err != nil {
		return nil, err
	}
	reply, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if string(reply) != string(msg) {
		return reply, fmt.Errorf("%w: sent %d bytes, got %d", ErrMismatch, len(msg), len(reply))
	}
	return reply, nil
}

// EchoDatagram sends msg as an unreliable datagram and waits for the reply
func (c *Client) EchoDatagram(ctx context.Context, msg []byte) ([]byte, error) {
	if err := c.conn.SendDatagram(msg); err != nil {
		return nil, fmt.Errorf("send datagram: %w", err)
	}
	reply, err := c.conn.ReceiveDatagram(ctx)
	if err != nil {
		return nil, fmt.Errorf("receive datagram: %w", err)
	}
	return reply, nil
}

func (c *Client) Close() error {
	return c.conn.CloseWithError(0, "bye")
}

// Check dials addr, echoes msg once and reports the round-trip time
func Check(ctx context.Context, addr, msg string) (time.Duration, error) {
	start := time.Now()
	c, err := Dial(ctx, addr)
	if err != nil {
		return 0, err
	}
	defer c.Close()
	if _, err := c.Echo(ctx, []byte(msg)); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

func selfSignedTLS() (*tls.Config, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: priv}},
		NextProtos:   []string{Protocol},
	}, nil
}
