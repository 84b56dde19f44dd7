package tor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds the SOCKS5 handshake performed by CheckConnection.
const checkProxyTimeout = 2 * time.Second

// Client dials TCP connections through a SOCKS5 proxy.
type Client struct {
	// proxyAddress is the SOCKS5 proxy address in "host:port" format.
	proxyAddress string

	// auth holds the username/password credentials, or nil.
	auth *proxy.Auth

	// dialer is the SOCKS5 dialer, created once in NewClient.
	dialer proxy.Dialer

	// timeout bounds each dial when the caller's context has no deadline.
	timeout time.Duration
}

// NewClient creates a client for the proxy at proxyAddress, given either as
// "host:port" or as a socks5:// (or socks5h://) URL that may carry
// "user:password@" credentials.
//
// The proxy is not contacted; call CheckConnection to verify it.
func NewClient(proxyAddress string, timeout time.Duration) (*Client, error) {
	addr, auth, err := parseProxyAddress(proxyAddress)
	if err != nil {
		return nil, err
	}

	dialer, err := proxy.SOCKS5("tcp", addr, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	return &Client{
		proxyAddress: addr,
		auth:         auth,
		dialer:       dialer,
		timeout:      timeout,
	}, nil
}

// parseProxyAddress splits a proxy setting into the dial address and the
// optional credentials.
func parseProxyAddress(s string) (string, *proxy.Auth, error) {
	var auth *proxy.Auth
	addr := s
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %w", ErrInvalidProxyAddress, err)
		}
		if u.Scheme != "socks5" && u.Scheme != "socks5h" {
			return "", nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxyAddress, u.Scheme)
		}
		if (u.Path != "" && u.Path != "/") || u.RawQuery != "" {
			return "", nil, ErrInvalidProxyAddress
		}
		if u.User != nil {
			password, _ := u.User.Password()
			auth = &proxy.Auth{User: u.User.Username(), Password: password}
		}
		addr = u.Host
	}
	if !isValidProxyAddress(addr) {
		return "", nil, ErrInvalidProxyAddress
	}
	return addr, auth, nil
}

// isValidProxyAddress checks for a non-empty host and a port in 1-65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// SOCKS5 protocol constants
const (
	socks5Version       = 0x05
	socks5AuthNone      = 0x00
	socks5AuthPassword  = 0x02
	socks5AuthNoAccept  = 0xFF
	socks5AuthVersion   = 0x01
	socks5CmdConnect    = 0x01
	socks5AddrTypeDomID = 0x03

	// socks5TestOnion is a well-formed but unassigned address; only the
	// proxy's reply matters, not whether the connection succeeds.
	socks5TestOnion = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.onion"
	socks5TestPort  = 1965
)

// CheckConnection performs a SOCKS5 greeting and a CONNECT to a test .onion
// address and reports whether the proxy behaves like Tor's SOCKS port.
func (c *Client) CheckConnection(ctx context.Context) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	if status := c.negotiate(conn); status != ProxyStatusOK {
		return status
	}

	connectReq := []byte{
		socks5Version,
		socks5CmdConnect,
		0x00, // reserved
		socks5AddrTypeDomID,
		byte(len(socks5TestOnion)),
	}
	connectReq = append(connectReq, socks5TestOnion...)
	connectReq = append(connectReq, byte(socks5TestPort>>8), byte(socks5TestPort&0xFF))
	if _, err := conn.Write(connectReq); err != nil {
		return ProxyStatusCannotConnect
	}

	// Any reply code is fine; Tor answers 0x04 (host unreachable) here.
	connectResp := make([]byte, 4)
	if _, err := io.ReadFull(conn, connectResp); err != nil {
		return readFailure(err)
	}
	if connectResp[0] != socks5Version {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

// negotiate sends the method greeting and, when the proxy selects it, the
// username/password sub-negotiation of RFC 1929.
func (c *Client) negotiate(conn net.Conn) ProxyStatus {
	greeting := []byte{socks5Version, 0x01, socks5AuthNone}
	if c.auth != nil {
		greeting = []byte{socks5Version, 0x02, socks5AuthNone, socks5AuthPassword}
	}
	if _, err := conn.Write(greeting); err != nil {
		return ProxyStatusCannotConnect
	}

	reply := make([]byte, 2)
	if _, err := io.ReadFull(conn, reply); err != nil {
		return readFailure(err)
	}
	if reply[0] != socks5Version {
		return ProxyStatusWrongType
	}

	switch reply[1] {
	case socks5AuthNone:
		return ProxyStatusOK
	case socks5AuthPassword:
		if c.auth == nil {
			return ProxyStatusWrongType
		}
	default:
		return ProxyStatusWrongType
	}

	req := []byte{socks5AuthVersion, byte(len(c.auth.User))}
	req = append(req, c.auth.User...)
	req = append(req, byte(len(c.auth.Password)))
	req = append(req, c.auth.Password...)
	if _, err := conn.Write(req); err != nil {
		return ProxyStatusCannotConnect
	}
	if _, err := io.ReadFull(conn, reply); err != nil {
		return readFailure(err)
	}
	if reply[1] != 0x00 {
		return ProxyStatusAuthFailed
	}
	return ProxyStatusOK
}

// readFailure maps a failed read from the proxy to a status.
func readFailure(err error) ProxyStatus {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return ProxyStatusTimeout
	}
	return ProxyStatusWrongType
}

// DialContext connects to address through the proxy.
// .onion host names are validated with CheckHost first.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	if err := CheckHost(host); err != nil {
		return nil, err
	}

	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if cd, ok := c.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}

	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)
	go func() {
		conn, err := c.dialer.Dial(network, address)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case result := <-resultCh:
		return result.conn, result.err
	case <-ctx.Done():
		go func() {
			if result := <-resultCh; result.conn != nil {
				result.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// ProxyAddress returns the configured proxy address.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}
