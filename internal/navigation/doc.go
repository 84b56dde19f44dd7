// Package navigation resolves link targets and drives the fetch cycle.
//
// # Resolution
//
// Resolve computes the next absolute request from the current location and
// a target string, applying these rules in order:
//  1. a target containing "://" must be an absolute gemini:// URL and is
//     used unchanged
//  2. a target starting with "/" is appended to gemini://<current host>
//  3. a target ending in ".gmi" replaces the last path segment when the
//     current request also ends in ".gmi", otherwise it is appended
//  4. any other target is appended to the current request, after adding a
//     trailing "/" when missing
//
// A current location with no path ("gemini://host") is treated as
// "gemini://host/" for rules 3 and 4.
//
// # Engine
//
// Engine owns the active location, the history and the current document.
// Each navigation sends one request through the injected Sender, classifies
// the response and then:
//   - Success: parses the body and commits a history entry, unless the
//     navigation replays an existing entry (Back, Forward, Reload)
//   - PermanentFailure/NotFound: rolls back to the current history entry
//   - Redirection/Permanent: resolves the target and fetches again without
//     committing the intermediate location
//   - transport error: rolls back; with an empty history the default
//     location is seeded and fetched once
//   - anything else: fails with ErrUnsupportedResponse
//
// At most one navigation runs at a time; a concurrent call fails with
// ErrNavigationInFlight instead of blocking.
//
// # Usage
//
//	eng := navigation.NewEngine(client, navigation.WithLogger(logger))
//	res, err := eng.Start(ctx, "gemini://geminiprotocol.net/")
//	if err != nil && res != nil && res.Outcome == navigation.OutcomeRecoverable {
//		// the previous document is still displayed
//	}
//	res, err = eng.Navigate(ctx, "docs/")
package navigation
