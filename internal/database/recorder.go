package database

import (
	"context"
	"log/slog"
	"strings"

	remilog "github.com/nao1215/remi/internal/log"
	"github.com/nao1215/remi/internal/navigation"
)

// Recorder writes every navigation result to a VisitDB.
type Recorder struct {
	db        *VisitDB
	logger    *slog.Logger
	snapshots bool
}

var _ navigation.Observer = (*Recorder)(nil)

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithSnapshots controls whether successful pages are saved. Enabled by default.
func WithSnapshots(enabled bool) RecorderOption {
	return func(r *Recorder) {
		r.snapshots = enabled
	}
}

// NewRecorder creates a Recorder. A nil logger means slog.Default().
func NewRecorder(db *VisitDB, logger *slog.Logger, opts ...RecorderOption) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{db: db, logger: logger, snapshots: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Observe implements navigation.Observer. Storage failures are logged, not
// returned, so the visit log never interferes with browsing.
func (r *Recorder) Observe(ctx context.Context, res *navigation.Result) {
	// The navigation may have ended because ctx was cancelled; record it anyway.
	ctx = context.WithoutCancel(ctx)

	visit := NewVisit(res)
	if _, err := r.db.RecordVisit(ctx, visit); err != nil {
		r.logger.Warn("failed to record visit", "spanID", res.SpanID, "error", err)
		return
	}

	// A query may hold the answer to a sensitive input prompt.
	if res.Page == nil || !r.snapshots || strings.Contains(res.Page.URL, "?") {
		return
	}
	changed, err := r.db.SavePage(ctx, res.Page)
	if err != nil {
		r.logger.Warn("failed to save page", "spanID", res.SpanID, "url", res.Page.URL, "error", err)
		return
	}
	r.logger.Debug("page saved", "spanID", res.SpanID, "url", res.Page.URL, "changed", changed)
}

// NewVisit converts a navigation result into a Visit row. Query strings in
// the stored URLs and error are masked.
func NewVisit(res *navigation.Result) *Visit {
	v := &Visit{
		SpanID:    res.SpanID,
		Request:   remilog.RedactURLs(res.Requested.Request()),
		Location:  remilog.RedactURLs(res.Location.Request()),
		Host:      res.Requested.HostAndPort(),
		Outcome:   res.Outcome.String(),
		Replay:    res.Replay,
		Redirects: len(res.Redirects),
		Duration:  res.Duration,
	}
	if res.Response != nil {
		v.Status = int(res.Response.Status())
	}
	if res.Err != nil {
		v.Error = remilog.RedactURLs(res.Err.Error())
	}
	if res.Page != nil {
		v.Title = res.Page.Title
		v.RawHash = res.Page.Hash
	}
	return v
}
