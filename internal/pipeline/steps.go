package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/remi/internal/database"
	"github.com/nao1215/remi/internal/model"
	"github.com/nao1215/remi/internal/navigation"
)

// EngineFactory returns a fresh engine for one check.
type EngineFactory func() *navigation.Engine

// FetchStep navigates to the report target and fills the outcome fields.
type FetchStep struct {
	newEngine EngineFactory
	logger    *slog.Logger
}

// NewFetchStep creates a FetchStep. Each call to Do uses a new engine from newEngine.
func NewFetchStep(newEngine EngineFactory, logger *slog.Logger) *FetchStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &FetchStep{newEngine: newEngine, logger: logger}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return "fetch"
}

// Do executes the fetch step. Navigation failures are returned as errors
// after the report fields are filled.
func (s *FetchStep) Do(ctx context.Context, report *model.CheckReport) error {
	engine := s.newEngine()
	res, err := engine.Start(ctx, report.Target)
	if res == nil {
		return err
	}

	report.Location = res.Location.Request()
	report.Outcome = res.Outcome.String()
	report.Redirects = len(res.Redirects)
	report.Duration = res.Duration
	if res.Response != nil {
		report.Status = int(res.Response.Status())
	}
	if res.Page != nil {
		report.Page = res.Page
		report.Title = res.Page.Title
		report.Hash = res.Page.Hash
	}

	s.logger.Debug("bookmark fetched",
		"target", report.Target,
		"spanID", res.SpanID,
		"outcome", report.Outcome,
		"status", report.Status,
	)
	return err
}

// SnapshotStep stores the fetched page and records whether it changed
// since the previous snapshot.
type SnapshotStep struct {
	db *database.VisitDB
}

// NewSnapshotStep creates a SnapshotStep backed by db.
func NewSnapshotStep(db *database.VisitDB) *SnapshotStep {
	return &SnapshotStep{db: db}
}

// Name returns the step name.
func (s *SnapshotStep) Name() string {
	return "snapshot"
}

// Do executes the snapshot step. Reports without a page are left unchanged.
func (s *SnapshotStep) Do(ctx context.Context, report *model.CheckReport) error {
	if report.Page == nil {
		return nil
	}
	changed, err := s.db.SavePage(ctx, report.Page)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", report.Page.URL, err)
	}
	report.Changed = changed
	return nil
}
