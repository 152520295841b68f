// Package transport exchanges one request message for the raw response
// bytes over a fresh TCP or TLS connection, directly or through a proxy.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/WhileEndless/go-hur/pkg/constants"
	"github.com/WhileEndless/go-hur/pkg/errors"
	"github.com/WhileEndless/go-hur/pkg/logger"
	"github.com/WhileEndless/go-hur/pkg/timing"
	"github.com/WhileEndless/go-hur/pkg/tlsconfig"
)

// Connector sends a message to one address and returns everything the
// server wrote until it closed the connection.
type Connector interface {
	HTTPRequest(ctx context.Context, addr netip.AddrPort, message []byte, timer *timing.Timer) ([]byte, error)
	HTTPSRequest(ctx context.Context, addr netip.AddrPort, server Endpoint, message []byte, timer *timing.Timer) ([]byte, error)
}

// Endpoint names the origin server: the TLS server name and the CONNECT
// authority.
type Endpoint struct {
	// Host is a domain or a bare IP.
	Host string
	Port uint16
}

// Address returns "host:port".
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

// Config holds transport configuration.
type Config struct {
	// ReadTimeout bounds the write and the read of the response
	ReadTimeout time.Duration
	// TLSConfig is the base for https handshakes; nil uses the defaults
	TLSConfig *tls.Config
	Logger    *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = constants.DefaultReadTimeout
	}
	if c.Logger == nil {
		c.Logger = logger.L()
	}
	return c
}

// Regular connects straight to the server.
type Regular struct {
	config Config
}

// NewRegular creates a direct connector.
func NewRegular(config Config) *Regular {
	return &Regular{config: config.withDefaults()}
}

// HTTPRequest implements Connector.
func (r *Regular) HTTPRequest(ctx context.Context, addr netip.AddrPort, message []byte, timer *timing.Timer) ([]byte, error) {
	conn, err := dial(ctx, addr, timer)
	if err != nil {
		return nil, err
	}
	return exchange(ctx, conn, message, r.config.ReadTimeout, timer)
}

// HTTPSRequest implements Connector.
func (r *Regular) HTTPSRequest(ctx context.Context, addr netip.AddrPort, server Endpoint, message []byte, timer *timing.Timer) ([]byte, error) {
	conn, err := dial(ctx, addr, timer)
	if err != nil {
		return nil, err
	}
	tlsConn, err := handshake(ctx, conn, server, r.config, timer)
	if err != nil {
		return nil, err
	}
	return exchange(ctx, tlsConn, message, r.config.ReadTimeout, timer)
}

// Proxy connects to an HTTP proxy. Plain requests are written to the proxy
// as is, https requests go through a CONNECT tunnel.
type Proxy struct {
	config Config
}

// NewProxy creates a proxy connector. The addresses passed to it are the
// proxy's.
func NewProxy(config Config) *Proxy {
	return &Proxy{config: config.withDefaults()}
}

// HTTPRequest implements Connector. message must carry an absolute URI.
func (p *Proxy) HTTPRequest(ctx context.Context, addr netip.AddrPort, message []byte, timer *timing.Timer) ([]byte, error) {
	conn, err := dial(ctx, addr, timer)
	if err != nil {
		return nil, err
	}
	return exchange(ctx, conn, message, p.config.ReadTimeout, timer)
}

// HTTPSRequest implements Connector.
func (p *Proxy) HTTPSRequest(ctx context.Context, addr netip.AddrPort, server Endpoint, message []byte, timer *timing.Timer) ([]byte, error) {
	conn, err := dial(ctx, addr, timer)
	if err != nil {
		return nil, err
	}
	if err := p.tunnel(ctx, conn, addr, server, timer); err != nil {
		conn.Close()
		return nil, err
	}
	tlsConn, err := handshake(ctx, conn, server, p.config, timer)
	if err != nil {
		return nil, err
	}
	return exchange(ctx, tlsConn, message, p.config.ReadTimeout, timer)
}

// tunnel asks the proxy to open a connection to server.
func (p *Proxy) tunnel(ctx context.Context, conn net.Conn, addr netip.AddrPort, server Endpoint, timer *timing.Timer) error {
	timer.StartTunnel()
	defer timer.EndTunnel()

	proxyHost, proxyPort := addr.Addr().String(), int(addr.Port())
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.SetDeadline(time.Now().Add(p.config.ReadTimeout)); err != nil {
		return errors.NewTunnelError(proxyHost, proxyPort, err)
	}

	authority := server.Address()
	req := fmt.Sprintf("CONNECT %s %s\r\nHost: %s\r\nConnection: keep-alive\r\n\r\n", authority, constants.Protocol, authority)
	p.config.Logger.Info("sending CONNECT request", zap.String("proxy", addr.String()), zap.String("target", authority))
	if _, err := io.WriteString(conn, req); err != nil {
		return errors.NewTunnelError(proxyHost, proxyPort, err)
	}

	head, err := readHead(conn, constants.MaxConnectResponseSize)
	if err != nil {
		return errors.NewTunnelError(proxyHost, proxyPort, err)
	}
	statusLine, _, _ := strings.Cut(string(head), "\r\n")
	if !tunnelEstablished(statusLine) {
		return errors.NewTunnelError(proxyHost, proxyPort, fmt.Errorf("proxy answered %q", statusLine))
	}

	p.config.Logger.Info("CONNECT tunnel established", zap.String("proxy", addr.String()), zap.String("target", authority))
	return conn.SetDeadline(time.Time{})
}

// readHead reads one byte at a time up to and including the blank line so
// no byte of the tunneled stream is consumed.
func readHead(r io.Reader, limit int) ([]byte, error) {
	terminator := []byte("\r\n\r\n")
	head := make([]byte, 0, 128)
	b := make([]byte, 1)
	for len(head) < limit {
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, err
		}
		head = append(head, b[0])
		if bytes.HasSuffix(head, terminator) {
			return head, nil
		}
	}
	return nil, fmt.Errorf("proxy reply exceeds %d bytes", limit)
}

func tunnelEstablished(statusLine string) bool {
	fields := strings.Fields(statusLine)
	return len(fields) >= 2 && strings.HasPrefix(fields[0], "HTTP/1.") && fields[1] == "200"
}

func dial(ctx context.Context, addr netip.AddrPort, timer *timing.Timer) (net.Conn, error) {
	timer.StartTCP()
	defer timer.EndTCP()

	dialer := &net.Dialer{Timeout: constants.ConnTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		return nil, errors.NewConnectionError(addr.Addr().String(), int(addr.Port()), err)
	}
	return conn, nil
}

// handshake wraps conn in TLS. conn is closed on failure.
func handshake(ctx context.Context, conn net.Conn, server Endpoint, config Config, timer *timing.Timer) (net.Conn, error) {
	timer.StartTLS()
	defer timer.EndTLS()

	tlsCtx, cancel := context.WithTimeout(ctx, constants.TLSHandshakeTimeout)
	defer cancel()

	tlsConn := tls.Client(conn, tlsconfig.Client(config.TLSConfig, server.Host))
	if err := tlsConn.HandshakeContext(tlsCtx); err != nil {
		conn.Close()
		return nil, errors.NewTLSError(server.Host, int(server.Port), err)
	}

	state := tlsConn.ConnectionState()
	config.Logger.Debug("TLS handshake complete",
		zap.String("server", server.Address()),
		zap.String("version", tlsconfig.GetVersionName(state.Version)),
	)
	return tlsConn, nil
}

// exchange writes message and reads until EOF. conn is always closed.
func exchange(ctx context.Context, conn net.Conn, message []byte, readTimeout time.Duration, timer *timing.Timer) ([]byte, error) {
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.SetDeadline(time.Now().Add(readTimeout)); err != nil {
		return nil, errors.NewIOError("set deadline", err)
	}

	if _, err := conn.Write(message); err != nil {
		return nil, classify(ctx, "write", readTimeout, err)
	}

	timer.StartTTFB()
	raw, err := io.ReadAll(&firstByteReader{r: conn, timer: timer})
	if err != nil && !(stderrors.Is(err, io.ErrUnexpectedEOF) && len(raw) > 0) {
		return nil, classify(ctx, "read", readTimeout, err)
	}
	return raw, nil
}

func classify(ctx context.Context, op string, timeout time.Duration, err error) error {
	if ctx.Err() != nil {
		return errors.NewIOError(op, ctx.Err())
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewTimeoutError(op, timeout)
	}
	return errors.NewIOError(op, err)
}

// firstByteReader stops the TTFB clock on the first successful read.
type firstByteReader struct {
	r     io.Reader
	timer *timing.Timer
	seen  bool
}

func (f *firstByteReader) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if n > 0 && !f.seen {
		f.seen = true
		f.timer.EndTTFB()
	}
	return n, err
}
