package transport

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"strings"
)

// Policy decides which server certificates are accepted.
type Policy int

const (
	// PolicyVerify verifies the chain against the system roots and the host name.
	PolicyVerify Policy = iota

	// PolicyPinned accepts only configured leaf fingerprints.
	PolicyPinned

	// PolicyInsecure accepts any certificate.
	PolicyInsecure
)

// TODO: add a trust-on-first-use policy that records fingerprints in the visit database.

// String returns the policy name used in configuration files.
func (p Policy) String() string {
	switch p {
	case PolicyPinned:
		return "pinned"
	case PolicyInsecure:
		return "insecure"
	default:
		return "verify"
	}
}

// ParsePolicy parses "verify", "pinned" or "insecure". An empty name is PolicyVerify.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "verify":
		return PolicyVerify, nil
	case "pinned":
		return PolicyPinned, nil
	case "insecure":
		return PolicyInsecure, nil
	default:
		return PolicyVerify, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// HostPolicy overrides the client policy for one host.
type HostPolicy struct {
	Policy Policy

	// Fingerprints lists accepted leaf fingerprints for PolicyPinned,
	// in any format accepted by NormalizeFingerprint.
	Fingerprints []string
}

// Fingerprint returns "sha256:" followed by the lowercase hex SHA-256 of
// the certificate's DER encoding.
func Fingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// NormalizeFingerprint lowercases fp, removes colons and adds the "sha256:"
// prefix when missing.
func NormalizeFingerprint(fp string) string {
	fp = strings.ToLower(strings.TrimSpace(fp))
	fp = strings.TrimPrefix(fp, "sha256:")
	fp = strings.ReplaceAll(fp, ":", "")
	return "sha256:" + fp
}

// verifyPinned returns a VerifyPeerCertificate callback accepting only the
// given fingerprints.
func verifyPinned(fingerprints []string) func([][]byte, [][]*x509.Certificate) error {
	allowed := make(map[string]bool, len(fingerprints))
	for _, fp := range fingerprints {
		allowed[NormalizeFingerprint(fp)] = true
	}
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return fmt.Errorf("%w: no certificate presented", ErrCertificateRejected)
		}
		leaf, err := x509.ParseCertificate(rawCerts[0])
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCertificateRejected, err)
		}
		fp := Fingerprint(leaf)
		if !allowed[fp] {
			return fmt.Errorf("%w: fingerprint %s is not pinned", ErrCertificateRejected, fp)
		}
		return nil
	}
}
