// Package bookmark stores bookmarked requests in a newline-separated text
// file, one absolute gemini:// request per line, in insertion order.
package bookmark
