// Package tor routes Gemini connections through a Tor SOCKS5 proxy.
//
// Client wraps golang.org/x/net/proxy and satisfies the transport dialer
// interface, so the Gemini transport can reach both clearnet capsules and
// .onion capsules through Tor. EmbeddedTor starts a private Tor daemon with
// tornago for users who do not run one.
//
// CheckHost validates .onion host names (v3 checksum) before a connection
// is attempted, so typos fail fast instead of timing out inside Tor.
//
//	embedded := tor.NewEmbeddedTor(tor.WithStartupTimeout(3 * time.Minute))
//	if err := embedded.Start(ctx); err != nil {
//		return err
//	}
//	defer embedded.Stop()
//	dialer, err := embedded.NewClient(30 * time.Second)
package tor
