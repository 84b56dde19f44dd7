// Package config provides configuration structures and utilities for remi.
// It defines the client options (home capsule, timeouts, limits, certificate
// policy, proxy), the YAML configuration file with per-host overrides, and
// the XDG locations of the bookmark file and the visit database.
package config
