// Package transport sends Gemini requests over TLS.
//
// Client implements navigation.Sender: it dials host:port (port 1965 when
// absent), performs the TLS handshake, writes the request, and reads the
// response until the server closes the connection.
//
// # Certificate Policy
//
// Gemini servers commonly use self-signed certificates, so the policy is
// configurable per client and per host:
//   - PolicyVerify (default): system roots and host name verification
//   - PolicyPinned: accept only leaf certificates whose SHA-256 fingerprint
//     is configured for the host
//   - PolicyInsecure: accept any certificate
//
// # Logging
//
// Each request emits a fetchStart and a fetchDone record carrying the span
// ID from the context, the local and remote addresses, the TLS parameters
// and the classified error, if any.
package transport
