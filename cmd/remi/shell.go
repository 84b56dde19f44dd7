package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/remi/internal/database"
	"github.com/nao1215/remi/internal/navigation"
	"github.com/nao1215/remi/internal/protocol"
	"github.com/nao1215/remi/internal/report"
)

// shellHistoryLimit bounds the history kept by a shell session.
const shellHistoryLimit = 100

const shellHelp = `Commands:
  <n>              follow link n of the current page
  go <url>         open a URL, absolute or relative to the current page
  input <text>     answer the last input prompt
  back, b          open the previous page
  forward, f       open the next page
  reload, r        fetch the current page again
  links, l         list the links of the current page
  history, h       list the pages of this session
  help, ?          show this help
  quit, q          leave the shell
`

// NewShellCmd creates the shell command.
func NewShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell [url]",
		Short: "Browse interactively with commands read from stdin",
		Long: `Shell opens a page and then reads one command per line from stdin.

Pages are printed as text on stdout with numbered links; type a number to
follow a link. Prompts and errors go to stderr. When the first page cannot
be reached, the home capsule is opened instead.

` + shellHelp,
		Args: cobra.MaximumNArgs(1),
		RunE: runShellCmd,
	}
}

// runShellCmd executes the shell command.
func runShellCmd(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	target := ""
	if len(args) > 0 {
		target = normalizeTarget(args[0])
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

	sh := &shell{
		engine: sess.newEngine(
			navigation.WithHistoryLimit(shellHistoryLimit),
			navigation.WithObserver(database.NewRecorder(sess.db, logger)),
		),
		writer: report.NewSimpleWriter(cmd.OutOrStdout(), report.WithVerbose(cfg.Verbose)),
		out:    cmd.OutOrStdout(),
		status: cmd.ErrOrStderr(),
	}
	sh.show(sh.engine.Start(ctx, target))
	return sh.run(ctx, cmd.InOrStdin())
}

// shell is one interactive session over an engine.
type shell struct {
	engine *navigation.Engine
	writer report.Writer
	out    io.Writer
	status io.Writer

	// input is the request of the last input prompt, if unanswered.
	input string
}

// run reads commands from in until quit, end of input or cancellation.
func (s *shell) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.status, "remi> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.status)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.exec(ctx, scanner.Text()) {
			return nil
		}
	}
}

// exec runs one command line and reports whether the shell should exit.
func (s *shell) exec(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "":
	case "q", "quit", "exit":
		return true
	case "?", "help":
		fmt.Fprint(s.out, shellHelp)
	case "b", "back":
		s.show(s.engine.Back(ctx))
	case "f", "forward":
		s.show(s.engine.Forward(ctx))
	case "r", "reload":
		s.show(s.engine.Reload(ctx))
	case "l", "links":
		s.listLinks()
	case "h", "history":
		s.listHistory()
	case "g", "go":
		if arg == "" {
			fmt.Fprintln(s.status, "Error: go needs a URL")
			return false
		}
		s.show(s.engine.Navigate(ctx, arg))
	case "i", "input":
		if s.input == "" {
			fmt.Fprintln(s.status, "Error: no input prompt to answer")
			return false
		}
		s.show(s.engine.Navigate(ctx, withQuery(s.input, arg)))
	default:
		n, err := strconv.Atoi(name)
		if err != nil {
			fmt.Fprintf(s.status, "Error: unknown command %q (type help)\n", name)
			return false
		}
		s.follow(ctx, n)
	}
	return false
}

// follow opens link n of the current page, counting from 1.
func (s *shell) follow(ctx context.Context, n int) {
	page := s.engine.Page()
	if page == nil || n < 1 || n > len(page.Links) {
		fmt.Fprintf(s.status, "Error: no link %d\n", n)
		return
	}
	s.show(s.engine.Navigate(ctx, page.Links[n-1].URL))
}

// show prints the page of a navigation, or what went wrong.
func (s *shell) show(res *navigation.Result, err error) {
	if res == nil {
		if errors.Is(err, navigation.ErrNoHistory) {
			fmt.Fprintln(s.status, "Error: no page to go to")
			return
		}
		fmt.Fprintf(s.status, "Error: %v\n", err)
		return
	}

	s.input = ""
	if res.Page == nil {
		var ure *navigation.UnsupportedResponseError
		if errors.As(res.Err, &ure) {
			if _, ok := ure.Response.(protocol.Input); ok {
				s.input = promptRequest(res)
			}
		}
		fmt.Fprintf(s.status, "Error: %v\n", describeFailure(res))
		return
	}

	switch {
	case res.Seeded:
		fmt.Fprintf(s.status, "Warning: could not reach %s; showing %s instead\n",
			res.Requested.Request(), res.Location.Request())
	case len(res.Redirects) > 0:
		fmt.Fprintf(s.status, "Moved permanently to %s\n", res.Location.Request())
	}
	if _, err := s.writer.Write(res.Page); err != nil {
		fmt.Fprintf(s.status, "Error: failed to write page: %v\n", err)
	}
}

// promptRequest returns the request that received the input prompt of res:
// the last permanent redirect target, or the requested location.
func promptRequest(res *navigation.Result) string {
	if n := len(res.Redirects); n > 0 {
		return res.Redirects[n-1].Request()
	}
	return res.Requested.Request()
}

// listLinks prints the links of the current page with their numbers.
func (s *shell) listLinks() {
	page := s.engine.Page()
	if page == nil || len(page.Links) == 0 {
		fmt.Fprintln(s.out, "No links")
		return
	}
	for i, link := range page.Links {
		if link.Label != "" {
			fmt.Fprintf(s.out, "[%d] %s <%s>\n", i+1, link.Label, link.URL)
		} else {
			fmt.Fprintf(s.out, "[%d] %s\n", i+1, link.URL)
		}
	}
}

// listHistory prints the session history and marks the current entry.
func (s *shell) listHistory() {
	history := s.engine.History()
	if len(history) == 0 {
		fmt.Fprintln(s.out, "No history")
		return
	}
	current := s.engine.Index()
	for i, loc := range history {
		marker := " "
		if i == current {
			marker = "*"
		}
		fmt.Fprintf(s.out, "%s %d %s\n", marker, i+1, loc.Request())
	}
}
