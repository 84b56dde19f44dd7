package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/remi/internal/config"
	"github.com/nao1215/remi/internal/database"
	"github.com/nao1215/remi/internal/gemtext"
	"github.com/nao1215/remi/internal/model"
	"github.com/nao1215/remi/internal/navigation"
	"github.com/nao1215/remi/internal/protocol"
	"github.com/nao1215/remi/internal/report"
)

// errNoSnapshot is returned by --cached for a page that was never stored.
var errNoSnapshot = errors.New("no stored snapshot")

// runRootCmd opens a page and prints it.
func runRootCmd(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	target := ""
	if len(args) > 0 {
		target = normalizeTarget(args[0])
	}

	query, err := cmd.Flags().GetString("query")
	if err != nil {
		return err
	}
	if query != "" {
		if target == "" {
			target = cfg.Home
		}
		target = withQuery(target, query)
	}

	tee, err := cmd.Flags().GetBool("tee")
	if err != nil {
		return err
	}
	cached, err := cmd.Flags().GetBool("cached")
	if err != nil {
		return err
	}
	if cached {
		return showSnapshot(cmd, cfg, target, tee)
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

	engine := sess.newEngine(navigation.WithObserver(database.NewRecorder(sess.db, logger)))

	res, err := engine.Start(ctx, target)
	if res == nil {
		return err
	}
	if res.Page == nil {
		return describeFailure(res)
	}

	stderr := cmd.ErrOrStderr()
	if res.Seeded {
		fmt.Fprintf(stderr, "Warning: could not reach %s; showing %s instead\n",
			res.Requested.Request(), res.Location.Request())
	} else if len(res.Redirects) > 0 {
		fmt.Fprintf(stderr, "Moved permanently to %s\n", res.Location.Request())
	}

	return writePage(cmd, cfg, res.Page, tee)
}

// showSnapshot prints the page stored by the last successful visit of
// target without sending a request.
func showSnapshot(cmd *cobra.Command, cfg *config.Config, target string, tee bool) error {
	if target == "" {
		target = cfg.Home
	}
	loc, err := model.ParseLocation(target)
	if err != nil {
		return fmt.Errorf("%s: %w", target, err)
	}

	db, err := database.Open(cfg.DataDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck // Nothing is written

	page, err := db.GetPage(cmd.Context(), loc.Request())
	if err != nil {
		return err
	}
	if page == nil {
		return fmt.Errorf("%w: %s", errNoSnapshot, loc.Request())
	}
	if cfg.FlushPreformatted {
		doc := gemtext.Parse(page.Body, gemtext.WithFlushUnterminated())
		page.Document, page.Title, page.Links = doc, doc.Title(), doc.Links()
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Showing snapshot of %s from %s\n",
		page.URL, page.FetchedAt.Local().Format(time.DateTime))
	return writePage(cmd, cfg, page, tee)
}

// writePage writes page in the selected format to the selected destination.
func writePage(cmd *cobra.Command, cfg *config.Config, page *model.Page, tee bool) error {
	output, closeOutput, err := openOutput(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOutput() //nolint:errcheck // Closed explicitly below on success

	w := newWriter(cfg, output)
	if tee && cfg.OutputFile != "" {
		w = report.NewMultiWriter(w, report.NewSimpleWriter(cmd.OutOrStdout()))
	}
	if _, err := w.Write(page); err != nil {
		return fmt.Errorf("failed to write page: %w", err)
	}
	return closeOutput()
}

// normalizeTarget adds the gemini scheme to a URL given without one.
func normalizeTarget(arg string) string {
	if strings.Contains(arg, "://") {
		return arg
	}
	return protocol.SchemePrefix + arg
}

// withQuery replaces the query of request with the percent-encoded text.
func withQuery(request, text string) string {
	if i := strings.IndexAny(request, "?#"); i >= 0 {
		request = request[:i]
	}
	return request + "?" + url.PathEscape(text)
}

// describeFailure turns a navigation without a document into an error that
// tells the user what the server asked for.
func describeFailure(res *navigation.Result) error {
	requested := res.Requested.Request()

	var ure *navigation.UnsupportedResponseError
	if !errors.As(res.Err, &ure) {
		return fmt.Errorf("%s: %w", requested, res.Err)
	}

	switch r := ure.Response.(type) {
	case protocol.Input:
		kind := ""
		if r.Kind == protocol.InputSensitive {
			kind = " (sensitive)"
		}
		return fmt.Errorf("%s asks for input%s: %s (answer with --query)", requested, kind, r.Prompt)
	case protocol.Redirection:
		return fmt.Errorf("%s redirects temporarily to %s (open it explicitly to follow)", requested, r.To)
	case protocol.TemporaryFailure:
		return fmt.Errorf("%s: temporary failure (%s, status %s): %s", requested, r.Kind, r.Code, r.Msg)
	case protocol.PermanentFailure:
		return fmt.Errorf("%s: permanent failure (%s, status %s): %s", requested, r.Kind, r.Code, r.Msg)
	case protocol.ClientCertificate:
		return fmt.Errorf("%s requires a client certificate (%s): %s", requested, r.Kind, r.Msg)
	default:
		return fmt.Errorf("%s: %w", requested, res.Err)
	}
}
