package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/bassosimone/errclass"
	"github.com/bassosimone/safeconn"
	"golang.org/x/net/idna"

	"github.com/nao1215/remi/internal/log"
	"github.com/nao1215/remi/internal/protocol"
	"github.com/nao1215/remi/internal/tor"
)

const (
	// DefaultTimeout bounds a whole request when the context has no deadline.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResponseSize is the largest response accepted by default.
	DefaultMaxResponseSize int64 = 5 << 20
)

// Option configures a Client.
type Option func(*Client)

// WithDialer sets the dialer used for clearnet hosts.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// WithProxyDialer routes every request through d. It is required for .onion hosts.
func WithProxyDialer(d Dialer) Option {
	return func(c *Client) {
		c.proxy = d
	}
}

// WithTLSEngine sets the TLS engine.
func WithTLSEngine(e TLSEngine) Option {
	return func(c *Client) {
		c.engine = e
	}
}

// WithPolicy sets the default certificate policy.
func WithPolicy(p Policy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithHostPolicy overrides the certificate policy for host.
func WithHostPolicy(host string, hp HostPolicy) Option {
	return func(c *Client) {
		c.hosts[strings.ToLower(host)] = hp
	}
}

// WithTimeout sets the request timeout applied when the context has no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxResponseSize sets the response size limit in bytes.
func WithMaxResponseSize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResponseSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRootCAs sets the root pool used by PolicyVerify instead of the system roots.
func WithRootCAs(pool *x509.CertPool) Option {
	return func(c *Client) {
		c.rootCAs = pool
	}
}

// Client sends Gemini requests. A Client is safe for concurrent use.
type Client struct {
	dialer          Dialer
	proxy           Dialer
	engine          TLSEngine
	policy          Policy
	hosts           map[string]HostPolicy
	timeout         time.Duration
	maxResponseSize int64
	logger          *slog.Logger
	rootCAs         *x509.CertPool
	timeNow         func() time.Time
}

// NewClient creates a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		dialer:          &net.Dialer{},
		engine:          TLSEngineStdlib{},
		policy:          PolicyVerify,
		hosts:           make(map[string]HostPolicy),
		timeout:         DefaultTimeout,
		maxResponseSize: DefaultMaxResponseSize,
		logger:          slog.New(slog.DiscardHandler),
		timeNow:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send writes payload to hostAndPort over TLS and returns the raw response.
// The port defaults to 1965.
func (c *Client) Send(ctx context.Context, hostAndPort string, payload []byte) ([]byte, error) {
	host, port := splitHostPort(hostAndPort)

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	asciiHost, err := toASCII(host)
	if err != nil {
		return nil, c.newError(OpDial, host, port, err)
	}

	logger := c.logger.With(
		slog.String("spanID", log.SpanIDFromContext(ctx)),
		slog.String("host", host),
		slog.String("port", port),
	)
	t0 := c.timeNow()
	logger.Debug("fetchStart", slog.Time("t", t0))

	raw, conn, state, err := c.exchange(ctx, asciiHost, port, payload)

	attrs := []any{
		slog.Any("err", err),
		slog.String("errClass", classify(err)),
	}
	if conn != nil {
		attrs = append(attrs,
			slog.String("localAddr", safeconn.LocalAddr(conn)),
			slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
			slog.String("protocol", safeconn.Network(conn)),
		)
	}
	attrs = append(attrs,
		slog.String("tlsVersion", tls.VersionName(state.Version)),
		slog.String("tlsCipherSuite", tls.CipherSuiteName(state.CipherSuite)),
		slog.Int("bytes", len(raw)),
		slog.Time("t0", t0),
		slog.Time("t", c.timeNow()),
	)
	logger.Debug("fetchDone", attrs...)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) exchange(ctx context.Context, host, port string, payload []byte) ([]byte, net.Conn, tls.ConnectionState, error) {
	var state tls.ConnectionState

	dialer := c.dialer
	if c.proxy != nil {
		dialer = c.proxy
	}
	if tor.IsOnion(host) {
		if c.proxy == nil {
			return nil, nil, state, c.newError(OpDial, host, port, ErrOnionNeedsProxy)
		}
		if err := tor.CheckHost(host); err != nil {
			return nil, nil, state, c.newError(OpDial, host, port, err)
		}
	}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, nil, state, c.newError(OpDial, host, port, err)
	}
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	tconn := c.engine.Client(conn, c.tlsConfig(host))
	defer tconn.Close()

	if err := tconn.HandshakeContext(ctx); err != nil {
		var verr *tls.CertificateVerificationError
		if errors.As(err, &verr) && !errors.Is(err, ErrCertificateRejected) {
			err = fmt.Errorf("%w: %w", ErrCertificateRejected, err)
		}
		return nil, conn, state, c.newError(OpHandshake, host, port, c.contextError(ctx, err))
	}
	state = tconn.ConnectionState()

	if _, err := tconn.Write(payload); err != nil {
		return nil, conn, state, c.newError(OpWrite, host, port, c.contextError(ctx, err))
	}

	raw, err := io.ReadAll(io.LimitReader(tconn, c.maxResponseSize+1))
	if err != nil && !(errors.Is(err, io.ErrUnexpectedEOF) && len(raw) > 0) {
		return nil, conn, state, c.newError(OpRead, host, port, c.contextError(ctx, err))
	}
	if int64(len(raw)) > c.maxResponseSize {
		return nil, conn, state, c.newError(OpRead, host, port, ErrResponseTooLarge)
	}
	return raw, conn, state, nil
}

func (c *Client) tlsConfig(host string) *tls.Config {
	config := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
		RootCAs:    c.rootCAs,
		Time:       c.timeNow,
	}

	hp, ok := c.hosts[strings.ToLower(host)]
	if !ok {
		hp = HostPolicy{Policy: c.policy}
	}
	switch hp.Policy {
	case PolicyPinned:
		config.InsecureSkipVerify = true
		config.VerifyPeerCertificate = verifyPinned(hp.Fingerprints)
	case PolicyInsecure:
		config.InsecureSkipVerify = true
	}
	return config
}

// contextError prefers the context error once the context is done, since the
// cancel watch closes the connection and hides the cause.
func (c *Client) contextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	return err
}

func (c *Client) newError(op, host, port string, err error) *Error {
	return &Error{Op: op, Host: host, Port: port, Class: classify(err), Err: err}
}

func classify(err error) string {
	if err == nil {
		return ""
	}
	return errclass.New(err)
}

// splitHostPort splits hostAndPort, defaulting the port to 1965.
func splitHostPort(hostAndPort string) (string, string) {
	host, port, err := net.SplitHostPort(hostAndPort)
	if err != nil {
		return strings.Trim(hostAndPort, "[]"), protocol.DefaultPort
	}
	if port == "" {
		port = protocol.DefaultPort
	}
	return host, port
}

func toASCII(host string) (string, error) {
	if host == "" {
		return "", fmt.Errorf("%w: empty host", ErrInvalidHost)
	}
	if net.ParseIP(host) != nil {
		return host, nil
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidHost, err)
	}
	return ascii, nil
}
