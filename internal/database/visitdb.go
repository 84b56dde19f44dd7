package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	remilog "github.com/nao1215/remi/internal/log"
	"github.com/nao1215/remi/internal/model"
	"github.com/nao1215/remi/internal/protocol"
)

// FileName is the database file name inside the data directory.
const FileName = "remi.db"

// DefaultLimit is the number of visits returned when no limit is given.
const DefaultLimit = 20

// VisitDB provides SQLite-based storage for visits and page snapshots.
type VisitDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures VisitDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if they don't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a VisitDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*VisitDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	vdb := &VisitDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := vdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return vdb, nil
}

// Path returns the database file path.
func (vdb *VisitDB) Path() string {
	return vdb.dbPath
}

// Close closes the database connection.
func (vdb *VisitDB) Close() error {
	return vdb.db.Close()
}

func (vdb *VisitDB) createTables() error {
	schema := `
	-- One row per completed navigation
	CREATE TABLE IF NOT EXISTS visits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		span_id TEXT NOT NULL,
		request TEXT NOT NULL,
		location TEXT,
		host TEXT NOT NULL,
		status INTEGER,
		outcome TEXT NOT NULL,
		replay INTEGER DEFAULT 0,
		redirects INTEGER DEFAULT 0,
		error TEXT,
		title TEXT,
		raw_hash TEXT,
		duration_ms INTEGER,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_visits_host ON visits(host);
	CREATE INDEX IF NOT EXISTS idx_visits_request ON visits(request);
	CREATE INDEX IF NOT EXISTS idx_visits_timestamp ON visits(timestamp);

	-- Latest snapshot of each successfully fetched page
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		status INTEGER,
		title TEXT,
		body TEXT,
		raw_hash TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := vdb.db.ExecContext(context.Background(), schema)
	return err
}

// Visit is a stored navigation result.
type Visit struct {
	ID        int64         `json:"id"`
	SpanID    string        `json:"span_id"`
	Request   string        `json:"request"`
	Location  string        `json:"location,omitempty"`
	Host      string        `json:"host"`
	Status    int           `json:"status"`
	Outcome   string        `json:"outcome"`
	Replay    bool          `json:"replay"`
	Redirects int           `json:"redirects"`
	Error     string        `json:"error,omitempty"`
	Title     string        `json:"title,omitempty"`
	RawHash   string        `json:"hash,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// RecordVisit inserts a visit and returns its ID.
func (vdb *VisitDB) RecordVisit(ctx context.Context, v *Visit) (int64, error) {
	query := `
	INSERT INTO visits (span_id, request, location, host, status, outcome, replay, redirects, error, title, raw_hash, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := vdb.db.ExecContext(ctx, query,
		v.SpanID,
		v.Request,
		v.Location,
		v.Host,
		v.Status,
		v.Outcome,
		v.Replay,
		v.Redirects,
		v.Error,
		v.Title,
		v.RawHash,
		v.Duration.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert visit: %w", err)
	}

	return result.LastInsertId()
}

// RecentVisits returns the latest visits, newest first.
// A non-positive limit means DefaultLimit.
func (vdb *VisitDB) RecentVisits(ctx context.Context, limit int) ([]Visit, error) {
	return vdb.queryVisits(ctx, "", limit)
}

// VisitsForHost returns the latest visits to host, newest first.
// The host is compared case-insensitively with the host[:port] part of the request.
func (vdb *VisitDB) VisitsForHost(ctx context.Context, host string, limit int) ([]Visit, error) {
	return vdb.queryVisits(ctx, host, limit)
}

func (vdb *VisitDB) queryVisits(ctx context.Context, host string, limit int) ([]Visit, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `
	SELECT id, span_id, request, location, host, status, outcome, replay, redirects, error, title, raw_hash, duration_ms, timestamp
	FROM visits
	WHERE 1=1
	`
	args := make([]any, 0, 2)
	if host != "" {
		query += " AND host = ? COLLATE NOCASE"
		args = append(args, host)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := vdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	var results []Visit
	for rows.Next() {
		var v Visit
		var location, errText, title, rawHash sql.NullString
		var durationMS int64
		var timestamp string

		err := rows.Scan(
			&v.ID,
			&v.SpanID,
			&v.Request,
			&location,
			&v.Host,
			&v.Status,
			&v.Outcome,
			&v.Replay,
			&v.Redirects,
			&errText,
			&title,
			&rawHash,
			&durationMS,
			&timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}

		v.Location = location.String
		v.Error = errText.String
		v.Title = title.String
		v.RawHash = rawHash.String
		v.Duration = time.Duration(durationMS) * time.Millisecond
		v.Timestamp = parseTimestamp(timestamp)
		results = append(results, v)
	}

	return results, rows.Err()
}

// HasRecentVisit checks if request was successfully fetched within the specified duration.
// request is masked the same way as stored visits.
func (vdb *VisitDB) HasRecentVisit(ctx context.Context, request string, duration time.Duration) (bool, error) {
	request = remilog.RedactURLs(request)

	query := `
	SELECT COUNT(*) FROM visits
	WHERE request = ? AND outcome = 'success' AND timestamp > datetime('now', ?)
	`

	modifier := fmt.Sprintf("-%d seconds", int(duration.Seconds()))

	var count int
	if err := vdb.db.QueryRowContext(ctx, query, request, modifier).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check recent visit: %w", err)
	}

	return count > 0, nil
}

// SavePage stores the latest snapshot of a page and reports whether its
// content differs from the previous snapshot. The first snapshot of a URL
// counts as changed.
func (vdb *VisitDB) SavePage(ctx context.Context, page *model.Page) (bool, error) {
	previous, err := vdb.GetPage(ctx, page.URL)
	if err != nil {
		return false, err
	}

	query := `
	INSERT INTO pages (url, status, title, body, raw_hash)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		status = excluded.status,
		title = excluded.title,
		body = excluded.body,
		raw_hash = excluded.raw_hash,
		timestamp = CURRENT_TIMESTAMP
	`

	_, err = vdb.db.ExecContext(ctx, query,
		page.URL,
		int(page.Status),
		page.Title,
		page.Body,
		page.Hash,
	)
	if err != nil {
		return false, fmt.Errorf("failed to save page: %w", err)
	}

	return previous == nil || previous.Hash != page.Hash, nil
}

// GetPage retrieves the latest snapshot of url, or nil if it was never fetched.
func (vdb *VisitDB) GetPage(ctx context.Context, url string) (*model.Page, error) {
	query := `
	SELECT url, status, title, body, raw_hash, timestamp
	FROM pages
	WHERE url = ?
	`

	var (
		pageURL   string
		status    int
		title     sql.NullString
		body      sql.NullString
		rawHash   sql.NullString
		timestamp string
	)
	err := vdb.db.QueryRowContext(ctx, query, url).Scan(&pageURL, &status, &title, &body, &rawHash, &timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	page := model.NewPage(pageURL, protocol.Status(status), body.String, nil)
	page.Hash = rawHash.String
	page.FetchedAt = parseTimestamp(timestamp)
	return page, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each known format and returns the zero time if none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
