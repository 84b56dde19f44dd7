// Package log provides the structured logger used across remi, built on
// log/slog.
//
// NewSecureLogger wraps a text or JSON handler with SecureHandler, which
// masks:
//   - attributes whose key names a secret (password, token, input, query)
//   - values that look like credentials or private keys
//   - the query of any gemini URL, since it carries answers to input prompts
//   - user:password pairs embedded in proxy URLs
//
// Verbose mode lowers the level to Debug; masking stays on.
//
// Span IDs tie together the records of one navigation:
//
//	ctx = log.ContextWithSpanID(ctx, log.NewSpanID())
//	id := log.SpanIDFromContext(ctx)
//
// The same ID is stored with the visit in the database.
package log
