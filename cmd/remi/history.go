package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/remi/internal/database"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently visited pages",
		Long: `History lists the most recent navigations recorded in the visit
database, newest first. Failed navigations are listed too.

Examples:
  remi history
  remi history --limit 50
  remi history --host geminiprotocol.net --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", database.DefaultLimit,
		"Maximum number of visits to show")
	cmd.Flags().String("host", "",
		"Only show visits to this host (host or host:port)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit <= 0 {
		return fmt.Errorf("invalid limit %d: must be positive", limit)
	}
	host, err := cmd.Flags().GetString("host")
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DataDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var visits []database.Visit
	if host != "" {
		visits, err = db.VisitsForHost(cmd.Context(), host, limit)
	} else {
		visits, err = db.RecentVisits(cmd.Context(), limit)
	}
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	output, closeOutput, err := openOutput(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOutput() //nolint:errcheck // Closed explicitly below on success

	if _, err := newWriter(cfg, output).WriteVisits(visits); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return closeOutput()
}
