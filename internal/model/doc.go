// Package model defines the data structures shared by remi's packages.
//
// This package contains the following main types:
//   - Location: an absolute gemini:// request with its derived host
//   - History: the committed locations and the current position
//   - Page: a fetched and parsed document
//
// The models are kept apart from the packages that produce them (navigation,
// transport) and the ones that consume them (report, database) so that none
// of those need to import each other.
package model
