package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/remi/internal/bookmark"
	"github.com/nao1215/remi/internal/config"
	"github.com/nao1215/remi/internal/database"
	"github.com/nao1215/remi/internal/model"
	"github.com/nao1215/remi/internal/navigation"
	"github.com/nao1215/remi/internal/pipeline"
)

// errChecksFailed is returned by bookmark check when a bookmark could not be fetched.
var errChecksFailed = errors.New("bookmark check failed")

// NewBookmarkCmd creates the bookmark command and its subcommands.
func NewBookmarkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookmark",
		Short: "Manage bookmarks",
		Long: `Manage the bookmark file stored in the data directory.

The file holds one gemini:// URL per line.

Examples:
  remi bookmark add gemini://geminiprotocol.net/
  remi bookmark list
  remi bookmark remove gemini://geminiprotocol.net/

  # Fetch every bookmark and report which ones changed
  remi bookmark check --batch 8`,
	}

	cmd.AddCommand(newBookmarkListCmd())
	cmd.AddCommand(newBookmarkAddCmd())
	cmd.AddCommand(newBookmarkRemoveCmd())
	cmd.AddCommand(newBookmarkCheckCmd())

	return cmd
}

func newBookmarkListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List bookmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := loadBookmarks(cmd)
			if err != nil {
				return err
			}
			for _, entry := range store.List() {
				fmt.Fprintln(cmd.OutOrStdout(), entry)
			}
			return nil
		},
	}
}

func newBookmarkAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <url>",
		Short: "Add a bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadBookmarks(cmd)
			if err != nil {
				return err
			}

			target := normalizeTarget(args[0])
			added, err := store.Add(target)
			if err != nil {
				return fmt.Errorf("cannot bookmark %s: %w", target, err)
			}
			if !added {
				fmt.Fprintf(cmd.OutOrStdout(), "Already bookmarked: %s\n", target)
				return nil
			}
			if err := store.Save(); err != nil {
				return fmt.Errorf("failed to save bookmarks: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bookmarked: %s\n", target)
			return nil
		},
	}
}

func newBookmarkRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <url>",
		Aliases: []string{"rm"},
		Short:   "Remove a bookmark",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadBookmarks(cmd)
			if err != nil {
				return err
			}

			target := normalizeTarget(args[0])
			if err := store.Remove(target); err != nil {
				return fmt.Errorf("%s: %w", target, err)
			}
			if err := store.Save(); err != nil {
				return fmt.Errorf("failed to save bookmarks: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed: %s\n", target)
			return nil
		},
	}
}

func newBookmarkCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Fetch every bookmark and report the results",
		Long: `Check fetches every bookmark concurrently and reports its status.

A bookmark is marked as changed when its body differs from the snapshot
stored by the previous check. Permanent redirects are followed and the
new location is reported, but the bookmark file is left unchanged.

Bookmarks fetched successfully within --skip-recent are not requested
again. With --verbose, a progress line is printed as each check ends.

The command exits with status 1 when any bookmark fails.`,
		Args: cobra.NoArgs,
		RunE: runBookmarkCheckCmd,
	}

	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent checks")
	cmd.Flags().Duration("interval", config.DefaultRequestInterval,
		"Minimum delay between the start of two checks")
	cmd.Flags().Duration("skip-recent", 0,
		"Skip bookmarks fetched successfully within this duration (e.g. 1h)")

	return cmd
}

// runBookmarkCheckCmd executes the bookmark check command.
func runBookmarkCheckCmd(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return err
	}
	if cfg.RequestInterval, err = cmd.Flags().GetDuration("interval"); err != nil {
		return err
	}
	skipRecent, err := cmd.Flags().GetDuration("skip-recent")
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	store, err := bookmark.Load(cfg.BookmarksPath())
	if err != nil {
		return fmt.Errorf("failed to load bookmarks: %w", err)
	}

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	sess, err := openSession(ctx, cfg, logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Error("failed to close session", "error", err)
		}
	}()

	targets := store.List()
	if skipRecent > 0 {
		if targets, err = skipRecentlyVisited(ctx, sess.db, targets, skipRecent, cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	// Snapshots are written by the snapshot step so that it can report changes.
	recorder := database.NewRecorder(sess.db, logger, database.WithSnapshots(false))
	newEngine := func() *navigation.Engine {
		return sess.newEngine(
			navigation.WithoutDefaultSeeding(),
			navigation.WithObserver(recorder),
		)
	}

	newPipeline := func() *pipeline.Pipeline {
		p := pipeline.New(pipeline.WithLogger(logger))
		p.AddSteps(
			pipeline.NewFetchStep(newEngine, logger),
			pipeline.NewSnapshotStep(sess.db),
		)
		return p
	}
	logger.Debug("check pipeline", "steps", newPipeline().StepNames())

	bp := pipeline.NewBatchProcessor(newPipeline,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithRequestInterval(cfg.RequestInterval),
		pipeline.WithBatchLogger(logger),
	)

	var reports []*model.CheckReport
	if cfg.Verbose {
		reports, err = checkWithProgress(ctx, bp, targets, cmd.ErrOrStderr())
	} else {
		reports, err = bp.ProcessBatch(ctx, targets)
	}
	if err != nil {
		return err
	}

	output, closeOutput, err := openOutput(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOutput() //nolint:errcheck // Closed explicitly below on success

	if _, err := newWriter(cfg, output).WriteChecks(reports); err != nil {
		return fmt.Errorf("failed to write check results: %w", err)
	}
	if err := closeOutput(); err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		if !r.OK() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d bookmarks", errChecksFailed, failed, len(reports))
	}
	return nil
}

// skipRecentlyVisited drops the targets fetched successfully within d.
func skipRecentlyVisited(ctx context.Context, db *database.VisitDB, targets []string, d time.Duration, status io.Writer) ([]string, error) {
	kept := make([]string, 0, len(targets))
	for _, target := range targets {
		recent, err := db.HasRecentVisit(ctx, target, d)
		if err != nil {
			return nil, err
		}
		if recent {
			fmt.Fprintf(status, "Skipping %s (visited within %s)\n", target, d)
			continue
		}
		kept = append(kept, target)
	}
	return kept, nil
}

// checkWithProgress runs the batch and prints a line to status as each
// check ends. Reports are returned in target order.
func checkWithProgress(ctx context.Context, bp *pipeline.BatchProcessor, targets []string, status io.Writer) ([]*model.CheckReport, error) {
	reports := make([]*model.CheckReport, len(targets))
	var (
		mu   sync.Mutex
		done int
	)
	err := bp.ProcessBatchWithCallback(ctx, targets, func(r *model.CheckReport, index int) {
		mu.Lock()
		defer mu.Unlock()
		reports[index] = r
		done++
		result := "ok"
		if !r.OK() {
			result = "failed"
		}
		fmt.Fprintf(status, "[%d/%d] %s %s\n", done, len(targets), r.Target, result)
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// loadBookmarks reads the bookmark file from the data directory.
func loadBookmarks(cmd *cobra.Command) (*bookmark.Store, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	store, err := bookmark.Load(cfg.BookmarksPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load bookmarks: %w", err)
	}
	return store, nil
}
