package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/config"
)

var (
	ErrTransportUnavailable = errors.New("transport unavailable")
	ErrConnectTimeout       = errors.New("connection timed out")
	ErrConnectRefused       = errors.New("connection refused")
	ErrNetworkUnreachable   = errors.New("network unreachable")
	ErrSocket               = errors.New("socket error")
)

// DialFunc opens a raw byte-stream socket. It exists so tests can substitute
// the network.
type DialFunc func(ctx context.Context, address string, timeout time.Duration) (net.Conn, error)

func netDial(ctx context.Context, address string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, "tcp", address)
}

// Client delivers exact byte buffers to ip:port over TCP. The socket
// capability is checked once at construction: a client built without it is a
// deliberate degraded mode whose every call reports ErrTransportUnavailable.
type Client struct {
	dial           DialFunc
	connectTimeout time.Duration
	unavailable    string
}

func NewClient(cfg *config.TransportConfig) *Client {
	c := &Client{
		dial:           netDial,
		connectTimeout: cfg.ConnectTimeout,
	}
	if c.connectTimeout <= 0 {
		c.connectTimeout = 5 * time.Second
	}
	if cfg.Disabled {
		c.dial = nil
		c.unavailable = "transport disabled by configuration"
	}
	return c
}

// SetDialFunc replaces the dialer. Passing nil marks the transport
// unavailable.
func (c *Client) SetDialFunc(dial DialFunc) {
	c.dial = dial
	if dial == nil {
		c.unavailable = "no socket capability"
	} else {
		c.unavailable = ""
	}
}

func (c *Client) Available() bool {
	return c.dial != nil
}

// Send writes payload to ip:port and closes the socket. Exactly one outcome
// is produced per call; the connect timer is released on every path.
func (c *Client) Send(ctx context.Context, ip string, port int, payload []byte) error {
	if c.dial == nil {
		return fmt.Errorf("%w: %s", ErrTransportUnavailable, c.unavailable)
	}

	address := net.JoinHostPort(ip, fmt.Sprintf("%d", port))
	conn, err := c.dial(ctx, address, c.connectTimeout)
	if err != nil {
		return classify(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.connectTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)

	if _, err := conn.Write(payload); err != nil {
		return classify(err)
	}

	return nil
}

// Probe attempts a connect-only check and reports the round-trip latency of
// the handshake. No payload is exchanged; the connection is closed
// immediately.
func (c *Client) Probe(ctx context.Context, ip string, port int, timeout time.Duration) (time.Duration, error) {
	if c.dial == nil {
		return 0, fmt.Errorf("%w: %s", ErrTransportUnavailable, c.unavailable)
	}

	address := net.JoinHostPort(ip, fmt.Sprintf("%d", port))
	start := time.Now()
	conn, err := c.dial(ctx, address, timeout)
	if err != nil {
		return 0, classify(err)
	}
	latency := time.Since(start)
	conn.Close()
	return latency, nil
}

// classify folds a raw network error into the client's error taxonomy while
// keeping the original message for display.
func classify(err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %v", ErrConnectTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrConnectTimeout, err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w: %v", ErrConnectRefused, err)
	}
	if errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) {
		return fmt.Errorf("%w: %v", ErrNetworkUnreachable, err)
	}
	// Some platforms surface these only as strings.
	msg := err.Error()
	if strings.Contains(msg, "connection refused") {
		return fmt.Errorf("%w: %v", ErrConnectRefused, err)
	}
	if strings.Contains(msg, "unreachable") {
		return fmt.Errorf("%w: %v", ErrNetworkUnreachable, err)
	}
	return fmt.Errorf("%w: %v", ErrSocket, err)
}
