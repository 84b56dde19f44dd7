package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/remi/internal/config"
	"github.com/nao1215/remi/internal/database"
	"github.com/nao1215/remi/internal/gemtext"
	"github.com/nao1215/remi/internal/model"
	"github.com/nao1215/remi/internal/navigation"
	"github.com/nao1215/remi/internal/tor"
	"github.com/nao1215/remi/internal/transport"
)

// session holds what a networked command needs: the transport client, the
// visit database and, with --tor, the embedded daemon.
type session struct {
	cfg         *config.Config
	logger      *slog.Logger
	client      *transport.Client
	db          *database.VisitDB
	embeddedTor *tor.EmbeddedTor
}

// openSession opens the visit database and builds the transport client.
// Progress messages for Tor startup go to status.
func openSession(ctx context.Context, cfg *config.Config, logger *slog.Logger, status io.Writer) (*session, error) {
	s := &session{cfg: cfg, logger: logger}

	db, err := database.Open(cfg.DataDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db
	logger.Debug("database opened", "path", db.Path())

	opts, err := transportOptions(cfg, logger)
	if err != nil {
		s.Close()
		return nil, err
	}

	proxyClient, err := s.connectProxy(ctx, status)
	if err != nil {
		s.Close()
		return nil, err
	}
	if proxyClient != nil {
		opts = append(opts, transport.WithProxyDialer(proxyClient))
	}

	s.client = transport.NewClient(opts...)
	return s, nil
}

// transportOptions maps the configuration onto transport options,
// including the per-host certificate policies of the configuration file.
func transportOptions(cfg *config.Config, logger *slog.Logger) ([]transport.Option, error) {
	policy, err := transport.ParsePolicy(cfg.TLSPolicy)
	if err != nil {
		return nil, err
	}

	opts := []transport.Option{
		transport.WithPolicy(policy),
		transport.WithTimeout(cfg.Timeout),
		transport.WithMaxResponseSize(cfg.MaxResponseSize),
		transport.WithLogger(logger),
	}

	if cfg.File == nil {
		return opts, nil
	}
	for host := range cfg.File.Hosts {
		hc := cfg.File.GetHostConfig(host)
		hostPolicy, err := transport.ParsePolicy(hc.TLS)
		if err != nil {
			return nil, &config.HostError{Host: host, Err: err}
		}
		// --insecure wins over per-host settings.
		if policy == transport.PolicyInsecure {
			hostPolicy = transport.PolicyInsecure
		}
		opts = append(opts, transport.WithHostPolicy(host, transport.HostPolicy{
			Policy:       hostPolicy,
			Fingerprints: hc.Fingerprints,
		}))
	}
	return opts, nil
}

// connectProxy returns the SOCKS5 client selected by the configuration,
// or nil for direct connections. The proxy is checked before use.
func (s *session) connectProxy(ctx context.Context, status io.Writer) (*tor.Client, error) {
	cfg := s.cfg

	if cfg.UseEmbeddedTor {
		client, embeddedTor, err := startEmbeddedTor(ctx, cfg, s.logger, status)
		if err != nil {
			return nil, err
		}
		s.embeddedTor = embeddedTor
		return client, nil
	}

	if cfg.ProxyAddress == "" {
		return nil, nil
	}

	client, err := tor.NewClient(cfg.ProxyAddress, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy client: %w", err)
	}
	if st := client.CheckConnection(ctx); st != tor.ProxyStatusOK {
		return nil, fmt.Errorf("proxy check failed: %w (make sure a SOCKS5 proxy is running at %s)",
			st.Error(), client.ProxyAddress())
	}
	s.logger.Info("proxy connection verified", "address", client.ProxyAddress())
	return client, nil
}

// startEmbeddedTor starts an embedded Tor daemon using tornago and returns
// a client dialing through its SOCKS port.
func startEmbeddedTor(ctx context.Context, cfg *config.Config, logger *slog.Logger, status io.Writer) (*tor.Client, *tor.EmbeddedTor, error) {
	fmt.Fprintln(status, "Starting embedded Tor daemon...")
	fmt.Fprintf(status, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embeddedTor := tor.NewEmbeddedTor(
		tor.WithStartupTimeout(cfg.TorStartupTimeout),
	)
	if err := embeddedTor.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	logger.Info("embedded Tor daemon started",
		"socksAddr", embeddedTor.SocksAddr(),
		"controlAddr", embeddedTor.ControlAddr(),
	)

	client, err := embeddedTor.NewClient(cfg.Timeout)
	if err != nil {
		_ = embeddedTor.Stop() //nolint:errcheck // Best effort cleanup
		return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
	}

	if st := client.CheckConnection(ctx); st != tor.ProxyStatusOK {
		_ = embeddedTor.Stop() //nolint:errcheck // Best effort cleanup
		return nil, nil, fmt.Errorf("embedded Tor proxy check failed: %w", st.Error())
	}

	return client, embeddedTor, nil
}

// newEngine creates a navigation engine sending through the session client.
// The configured home is the default location.
func (s *session) newEngine(opts ...navigation.Option) *navigation.Engine {
	base := []navigation.Option{
		navigation.WithLogger(s.logger),
		navigation.WithMaxRedirects(s.cfg.MaxRedirects),
	}
	// Validate has already checked Home.
	if home, err := model.ParseLocation(s.cfg.Home); err == nil {
		base = append(base, navigation.WithDefaultLocation(home))
	}
	if s.cfg.FlushPreformatted {
		base = append(base, navigation.WithParseOptions(gemtext.WithFlushUnterminated()))
	}
	return navigation.NewEngine(s.client, append(base, opts...)...)
}

// Close stops the embedded Tor daemon, if any, and closes the database.
func (s *session) Close() error {
	var errs []error
	if s.embeddedTor != nil && s.embeddedTor.IsRunning() {
		s.logger.Info("stopping embedded Tor daemon...")
		if err := s.embeddedTor.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop embedded Tor: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
