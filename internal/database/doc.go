// Package database provides SQLite-based storage for remi.
//
// The VisitDB stores:
//   - one row per completed navigation (the visit log shown by "remi history")
//   - the latest snapshot of every successfully fetched page, used to detect
//     changes between visits
//
// The driver is modernc.org/sqlite, a CGO-free implementation, so the
// database is a single file in the XDG data directory.
package database
