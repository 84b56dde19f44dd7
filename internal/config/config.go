package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/remi/internal/model"
	"github.com/nao1215/remi/internal/transport"
)

// Default configuration values.
const (
	// DefaultHome is the capsule opened when no URL is given.
	DefaultHome = "gemini://geminiprotocol.net/"

	// DefaultTimeout bounds a single request, from dial to the end of the body.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRedirects is the length of the longest permanent redirect chain followed.
	DefaultMaxRedirects = 5

	// DefaultMaxResponseSize limits the size of a response, header included.
	DefaultMaxResponseSize = 5 * 1024 * 1024 // 5MB

	// DefaultTLSPolicy is the certificate policy applied to hosts without an override.
	DefaultTLSPolicy = "verify"

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultBatchSize is the number of bookmarks checked concurrently.
	DefaultBatchSize = 4

	// DefaultRequestInterval is the minimum delay between two requests of a
	// bookmark check.
	DefaultRequestInterval = 250 * time.Millisecond

	// AppName is the application name used for XDG directory paths.
	AppName = "remi"

	// BookmarksFile is the name of the bookmark file inside the data directory.
	BookmarksFile = "bookmarks"

	// DatabaseFile is the name of the visit database inside the data directory.
	DatabaseFile = "remi.db"
)

// Config holds all configuration options for remi.
// It is populated from defaults, the configuration file and CLI flags, in
// that order, and passed down explicitly.
type Config struct {
	// Home is the absolute gemini:// request opened when no URL is given.
	Home string

	// Timeout bounds a single request.
	Timeout time.Duration

	// MaxRedirects is the longest permanent redirect chain followed.
	MaxRedirects int

	// MaxResponseSize is the largest response accepted, in bytes.
	MaxResponseSize int64

	// TLSPolicy is the default certificate policy: verify, pinned or insecure.
	TLSPolicy string

	// ProxyAddress is the SOCKS5 proxy, as "host:port" or a socks5:// URL.
	// When empty, connections are direct.
	ProxyAddress string

	// UseEmbeddedTor starts an embedded Tor daemon and routes every request through it.
	UseEmbeddedTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded Tor daemon.
	TorStartupTimeout time.Duration

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON writes log records as JSON instead of text.
	LogJSON bool

	// FlushPreformatted shows a preformatted block whose closing fence is
	// missing instead of dropping it.
	FlushPreformatted bool

	// ConfigFilePath is the explicit configuration file path, if any.
	ConfigFilePath string

	// File holds the loaded configuration file. It is never nil after NewConfig.
	File *File

	// JSONOutput prints the page as JSON.
	JSONOutput bool

	// MarkdownOutput prints the page as Markdown.
	MarkdownOutput bool

	// OutputFile is the path the page is written to instead of stdout.
	OutputFile string

	// DataDir holds the bookmark file and the visit database.
	DataDir string

	// BatchSize is the number of bookmarks checked concurrently.
	BatchSize int

	// RequestInterval is the minimum delay between requests of a bookmark check.
	RequestInterval time.Duration
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Home:              DefaultHome,
		Timeout:           DefaultTimeout,
		MaxRedirects:      DefaultMaxRedirects,
		MaxResponseSize:   DefaultMaxResponseSize,
		TLSPolicy:         DefaultTLSPolicy,
		TorStartupTimeout: DefaultTorStartupTimeout,
		File:              NewFile(),
		DataDir:           XDGDataDir(),
		BatchSize:         DefaultBatchSize,
		RequestInterval:   DefaultRequestInterval,
	}
}

// ApplyFile copies the values set in f over c and keeps f for per-host lookups.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.File = f
	if f.Home != "" {
		c.Home = f.Home
	}
	if f.Timeout > 0 {
		c.Timeout = f.Timeout
	}
	if f.MaxRedirects > 0 {
		c.MaxRedirects = f.MaxRedirects
	}
	if f.MaxResponseSize > 0 {
		c.MaxResponseSize = f.MaxResponseSize
	}
	if f.Proxy != "" {
		c.ProxyAddress = f.Proxy
	}
	if f.FlushPreformatted {
		c.FlushPreformatted = true
	}
	if f.Defaults.TLS != "" {
		c.TLSPolicy = f.Defaults.TLS
	}
}

// BookmarksPath returns the path of the bookmark file.
func (c *Config) BookmarksPath() string {
	return filepath.Join(c.DataDir, BookmarksFile)
}

// DatabasePath returns the path of the visit database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, DatabaseFile)
}

// XDGDataDir returns the XDG data directory for remi.
// On Linux: ~/.local/share/remi
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for remi.
// On Linux: ~/.config/remi
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first problem found.
func (c *Config) Validate() error {
	if _, err := model.ParseLocation(c.Home); err != nil {
		return ErrInvalidHome
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxRedirects <= 0 {
		return ErrInvalidMaxRedirects
	}
	if c.MaxResponseSize <= 0 {
		return ErrInvalidMaxResponseSize
	}
	if _, err := transport.ParsePolicy(c.TLSPolicy); err != nil {
		return ErrInvalidTLSPolicy
	}
	if c.JSONOutput && c.MarkdownOutput {
		return ErrConflictingOutputFormats
	}
	if c.UseEmbeddedTor && c.ProxyAddress != "" {
		return ErrConflictingProxy
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.File != nil {
		for host, hc := range c.File.Hosts {
			if _, err := transport.ParsePolicy(hc.TLS); err != nil {
				return &HostError{Host: host, Err: ErrInvalidTLSPolicy}
			}
		}
	}
	return nil
}
