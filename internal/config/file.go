package config

import (
	"strings"
	"time"
)

// HostConfig holds per-host settings.
type HostConfig struct {
	// TLS is the certificate policy for the host: verify, pinned or insecure.
	TLS string `yaml:"tls,omitempty"`

	// Fingerprints are the accepted leaf certificate fingerprints for the
	// pinned policy, formatted as "sha256:<hex>".
	Fingerprints []string `yaml:"fingerprints,omitempty"`
}

// File represents the structure of the remi configuration file.
type File struct {
	// Home overrides the default home page.
	Home string `yaml:"home,omitempty"`

	// Timeout overrides the request timeout, e.g. "45s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// MaxRedirects overrides the redirect limit.
	MaxRedirects int `yaml:"maxRedirects,omitempty"`

	// MaxResponseSize overrides the response size limit in bytes.
	MaxResponseSize int64 `yaml:"maxResponseSize,omitempty"`

	// Proxy is a SOCKS5 proxy address used for every request.
	Proxy string `yaml:"proxy,omitempty"`

	// FlushPreformatted keeps a preformatted block left open at the end of
	// a document.
	FlushPreformatted bool `yaml:"flushPreformatted,omitempty"`

	// Defaults applies to every host unless overridden in Hosts.
	Defaults HostConfig `yaml:"defaults,omitempty"`

	// Hosts maps host names (without port) to their settings.
	Hosts map[string]HostConfig `yaml:"hosts,omitempty"`
}

// NewFile returns an empty configuration file.
func NewFile() *File {
	return &File{Hosts: make(map[string]HostConfig)}
}

// GetHostConfig returns the configuration for host, merging the host
// entry over the defaults. Host names are matched case-insensitively.
func (f *File) GetHostConfig(host string) HostConfig {
	result := f.Defaults

	hc, ok := f.Hosts[host]
	if !ok {
		for name, candidate := range f.Hosts {
			if strings.EqualFold(name, host) {
				hc, ok = candidate, true
				break
			}
		}
	}
	if !ok {
		return result
	}
	if hc.TLS != "" {
		result.TLS = hc.TLS
	}
	if len(hc.Fingerprints) > 0 {
		result.Fingerprints = hc.Fingerprints
	}
	return result
}
