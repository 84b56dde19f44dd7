// Package main provides the entry point for the remi CLI.
//
// remi is a command line client for the Gemini protocol. It fetches a
// capsule, follows permanent redirects and prints the document as text,
// Markdown or JSON.
//
// Usage:
//
//	remi [gemini://host/path]
//	remi bookmark add gemini://host/
//	remi bookmark check
//	remi history
//
// See --help for all available options.
package main

// main is the entry point for remi.
func main() {
	Execute()
}
