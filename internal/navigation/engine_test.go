package navigation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/remi/internal/gemtext"
	"github.com/nao1215/remi/internal/model"
	"github.com/nao1215/remi/internal/protocol"
)

var errUnreachable = errors.New("connection refused")

// scriptedSender answers requests from a fixed table.
type scriptedSender struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
	calls     []string
	hosts     []string
}

func newScriptedSender() *scriptedSender {
	return &scriptedSender{
		responses: make(map[string]string),
		failures:  make(map[string]error),
	}
}

func (s *scriptedSender) Send(_ context.Context, hostAndPort string, payload []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request := strings.TrimSuffix(string(payload), "\r\n")
	s.calls = append(s.calls, request)
	s.hosts = append(s.hosts, hostAndPort)
	if err, ok := s.failures[request]; ok {
		return nil, err
	}
	if resp, ok := s.responses[request]; ok {
		return []byte(resp), nil
	}
	return nil, errUnreachable
}

func (s *scriptedSender) page(request, body string) {
	s.responses[request] = "20 text/gemini\r\n" + body
}

func newTestEngine(s Sender, opts ...Option) *Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{WithLogger(logger)}, opts...)
	return NewEngine(s, opts...)
}

func requests(locs []model.Location) []string {
	out := make([]string, len(locs))
	for i, l := range locs {
		out[i] = l.Request()
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestEngineSuccess tests committing history on success.
func TestEngineSuccess(t *testing.T) {
	t.Parallel()

	t.Run("start fetches and parses", func(t *testing.T) {
		t.Parallel()

		s := newScriptedSender()
		s.page("gemini://example.org/", "# Hi\n")
		eng := newTestEngine(s)

		res, err := eng.Start(context.Background(), "gemini://example.org/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Outcome != OutcomeSuccess {
			t.Errorf("Outcome = %v", res.Outcome)
		}
		want := []gemtext.Block{gemtext.Heading{Level: 1, Text: "Hi"}}
		doc := eng.Document()
		if doc == nil || len(doc.Blocks) != 1 || doc.Blocks[0] != want[0] {
			t.Errorf("Document() = %#v", doc)
		}
		if got := requests(eng.History()); !equalStrings(got, []string{"gemini://example.org/"}) {
			t.Errorf("History() = %v", got)
		}
		if s.hosts[0] != "example.org" {
			t.Errorf("sent to %q", s.hosts[0])
		}
		if eng.State() != StateIdle {
			t.Errorf("State() = %v", eng.State())
		}
	})

	t.Run("empty initial uses default location", func(t *testing.T) {
		t.Parallel()

		s := newScriptedSender()
		s.page(DefaultLocation.Request(), "home")
		eng := newTestEngine(s)

		if _, err := eng.Start(context.Background(), ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if eng.Location() != DefaultLocation {
			t.Errorf("Location() = %v", eng.Location())
		}
	})

	t.Run("navigate resolves relative targets", func(t *testing.T) {
		t.Parallel()

		s := newScriptedSender()
		s.page("gemini://example.org/a/b.gmi", "b")
		s.page("gemini://example.org/a/c.gmi", "c")
		eng := newTestEngine(s)

		if _, err := eng.Start(context.Background(), "gemini://example.org/a/b.gmi"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := eng.Navigate(context.Background(), "c.gmi"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := requests(eng.History())
		want := []string{"gemini://example.org/a/b.gmi", "gemini://example.org/a/c.gmi"}
		if !equalStrings(got, want) {
			t.Errorf("History() = %v", got)
		}
		if eng.Index() != 1 || !eng.CanGoBack() || eng.CanGoForward() {
			t.Errorf("Index() = %d", eng.Index())
		}
	})

	t.Run("new navigation truncates forward history", func(t *testing.T) {
		t.Parallel()

		s := newScriptedSender()
		for _, p := range []string{"a", "b", "c", "d"} {
			s.page("gemini://example.org/"+p, p)
		}
		eng := newTestEngine(s)
		ctx := context.Background()

		for _, p := range []string{"gemini://example.org/a", "/b", "/c"} {
			if _, err := eng.Navigate(ctx, p); err != nil && p != "gemini://example.org/a" {
				t.Fatalf("Navigate(%q): %v", p, err)
			}
		}
		if _, err := eng.Back(ctx); err != nil {
			t.Fatalf("Back: %v", err)
		}
		if _, err := eng.Back(ctx); err != nil {
			t.Fatalf("Back: %v", err)
		}
		if _, err := eng.Navigate(ctx, "/d"); err != nil {
			t.Fatalf("Navigate: %v", err)
		}

		got := requests(eng.History())
		want := []string{"gemini://example.org/a", "gemini://example.org/d"}
		if !equalStrings(got, want) {
			t.Errorf("History() = %v", got)
		}
	})
}

// TestEngineStartRejectsRelativeTarget tests that a relative first target fails.
func TestEngineStartRejectsRelativeTarget(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(newScriptedSender())
	res, err := eng.Start(context.Background(), "docs/")
	if !errors.Is(err, ErrRejected) {
		t.Errorf("expected ErrRejected, got %v", err)
	}
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
}

// TestEngineReplay tests Back, Forward and Reload.
func TestEngineReplay(t *testing.T) {
	t.Parallel()

	t.Run("back and forward do not change entries", func(t *testing.T) {
		t.Parallel()

		s := newScriptedSender()
		s.page("gemini://example.org/1", "one")
		s.page("gemini://example.org/2", "two")
		eng := newTestEngine(s)
		ctx := context.Background()

		_, _ = eng.Start(ctx, "gemini://example.org/1")
		_, _ = eng.Navigate(ctx, "/2")

		res, err := eng.Back(ctx)
		if err != nil {
			t.Fatalf("Back: %v", err)
		}
		if !res.Replay {
			t.Error("expected replay result")
		}
		if eng.Index() != 0 || len(eng.History()) != 2 {
			t.Errorf("Index() = %d, len = %d", eng.Index(), len(eng.History()))
		}
		if eng.Page().Body != "one" {
			t.Errorf("Page().Body = %q", eng.Page().Body)
		}

		if _, err := eng.Forward(ctx); err != nil {
			t.Fatalf("Forward: %v", err)
		}
		if eng.Index() != 1 || len(eng.History()) != 2 {
			t.Errorf("Index() = %d, len = %d", eng.Index(), len(eng.History()))
		}

		if _, err := eng.Reload(ctx); err != nil {
			t.Fatalf("Reload: %v", err)
		}
		if len(eng.History()) != 2 {
			t.Errorf("Reload changed history: %v", eng.History())
		}
	})

	t.Run("moving past the ends fails", func(t *testing.T) {
		t.Parallel()

		s := newScriptedSender()
		s.page("gemini://example.org/", "x")
		eng := newTestEngine(s)
		ctx := context.Background()

		if _, err := eng.Back(ctx); !errors.Is(err, ErrNoHistory) {
			t.Errorf("Back on empty history: %v", err)
		}
		if _, err := eng.Reload(ctx); !errors.Is(err, ErrNoHistory) {
			t.Errorf("Reload on empty history: %v", err)
		}
		_, _ = eng.Start(ctx, "gemini://example.org/")
		if _, err := eng.Forward(ctx); !errors.Is(err, ErrNoHistory) {
			t.Errorf("Forward at end: %v", err)
		}
	})

	t.Run("failed back restores index", func(t *testing.T) {
		t.Parallel()

		s := newScriptedSender()
		s.page("gemini://example.org/1", "one")
		s.page("gemini://example.org/2", "two")
		eng := newTestEngine(s)
		ctx := context.Background()

		_, _ = eng.Start(ctx, "gemini://example.org/1")
		_, _ = eng.Navigate(ctx, "/2")
		s.failures["gemini://example.org/1"] = errUnreachable

		res, err := eng.Back(ctx)
		if !errors.Is(err, ErrTransport) {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
		if res.Outcome != OutcomeRecoverable {
			t.Errorf("Outcome = %v", res.Outcome)
		}
		if eng.Index() != 1 {
			t.Errorf("Index() = %d, expected 1", eng.Index())
		}
		if eng.Location().Request() != "gemini://example.org/2" {
			t.Errorf("Location() = %v", eng.Location())
		}
		if eng.Page().Body != "two" {
			t.Errorf("document changed to %q", eng.Page().Body)
		}

		// the replay flag must not leak into the next navigation
		s.page("gemini://example.org/3", "three")
		if _, err := eng.Navigate(ctx, "/3"); err != nil {
			t.Fatalf("Navigate: %v", err)
		}
		if len(eng.History()) != 3 {
			t.Errorf("History() = %v", eng.History())
		}
	})
}

// TestEngineNotFound tests rollback on 51.
func TestEngineNotFound(t *testing.T) {
	t.Parallel()

	s := newScriptedSender()
	s.page("gemini://example.org/", "home")
	s.responses["gemini://example.org/missing"] = "51 not here\r\n"
	eng := newTestEngine(s)
	ctx := context.Background()

	_, _ = eng.Start(ctx, "gemini://example.org/")
	res, err := eng.Navigate(ctx, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if res.Outcome != OutcomeRecoverable {
		t.Errorf("Outcome = %v", res.Outcome)
	}
	if eng.Location().Request() != "gemini://example.org/" {
		t.Errorf("Location() = %v", eng.Location())
	}
	if len(eng.History()) != 1 {
		t.Errorf("History() = %v", eng.History())
	}
	if eng.Page().Body != "home" {
		t.Errorf("document replaced: %q", eng.Page().Body)
	}
	if _, ok := res.Response.(protocol.PermanentFailure); !ok {
		t.Errorf("Response = %#v", res.Response)
	}
	// only the failing request was sent; rollback does not re-fetch
	if len(s.calls) != 2 {
		t.Errorf("calls = %v", s.calls)
	}
}

// TestEngineRedirect tests permanent redirects.
func TestEngineRedirect(t *testing.T) {
	t.Parallel()

	t.Run("follows without committing intermediate", func(t *testing.T) {
		t.Parallel()

		s := newScriptedSender()
		s.responses["gemini://example.org/old"] = "31 /new\r\n"
		s.page("gemini://example.org/new", "moved")
		eng := newTestEngine(s)

		res, err := eng.Start(context.Background(), "gemini://example.org/old")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := requests(eng.History()); !equalStrings(got, []string{"gemini://example.org/new"}) {
			t.Errorf("History() = %v", got)
		}
		if len(res.Redirects) != 1 || res.Location.Request() != "gemini://example.org/new" {
			t.Errorf("Result = %+v", res)
		}
	})

	t.Run("cross host redirect", func(t *testing.T) {
		t.Parallel()

		s := newScriptedSender()
		s.responses["gemini://example.org/"] = "31 gemini://other.net/\r\n"
		s.page("gemini://other.net/", "other")
		eng := newTestEngine(s)

		if _, err := eng.Start(context.Background(), "gemini://example.org/"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.hosts[1] != "other.net" {
			t.Errorf("second request sent to %q", s.hosts[1])
		}
	})

	t.Run("unresolvable target is fatal", func(t *testing.T) {
		t.Parallel()

		s := newScriptedSender()
		s.page("gemini://example.org/", "home")
		s.responses["gemini://example.org/bad"] = "31 https://example.org/\r\n"
		eng := newTestEngine(s)
		ctx := context.Background()

		_, _ = eng.Start(ctx, "gemini://example.org/")
		res, err := eng.Navigate(ctx, "/bad")
		if !errors.Is(err, ErrUnresolvableRedirect) || !errors.Is(err, ErrRejected) {
			t.Fatalf("expected ErrUnresolvableRedirect, got %v", err)
		}
		if res.Outcome != OutcomeFatal {
			t.Errorf("Outcome = %v", res.Outcome)
		}
		if eng.Location().Request() != "gemini://example.org/" {
			t.Errorf("Location() = %v", eng.Location())
		}
	})

	t.Run("loop is bounded", func(t *testing.T) {
		t.Parallel()

		s := newScriptedSender()
		s.responses["gemini://example.org/a"] = "31 /b\r\n"
		s.responses["gemini://example.org/b"] = "31 /a\r\n"
		eng := newTestEngine(s, WithMaxRedirects(3))

		res, err := eng.Start(context.Background(), "gemini://example.org/a")
		if !errors.Is(err, ErrTooManyRedirects) {
			t.Fatalf("expected ErrTooManyRedirects, got %v", err)
		}
		if res.Outcome != OutcomeFatal || len(s.calls) != 4 {
			t.Errorf("Outcome = %v, calls = %v", res.Outcome, s.calls)
		}
		if !eng.Location().IsZero() {
			t.Errorf("Location() = %v, expected zero", eng.Location())
		}
	})
}

// TestEngineUnsupported tests responses without automatic handling.
func TestEngineUnsupported(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"input", "10 Search\r\n"},
		{"temporary redirect", "30 /x\r\n"},
		{"temporary failure", "44 slow down\r\n"},
		{"gone", "52 gone\r\n"},
		{"client certificate", "60 cert\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newScriptedSender()
			s.responses["gemini://example.org/"] = tt.raw
			eng := newTestEngine(s)

			res, err := eng.Start(context.Background(), "gemini://example.org/")
			if !errors.Is(err, ErrUnsupportedResponse) {
				t.Fatalf("expected ErrUnsupportedResponse, got %v", err)
			}
			var ue *UnsupportedResponseError
			if !errors.As(err, &ue) || ue.Response == nil {
				t.Errorf("expected *UnsupportedResponseError, got %T", err)
			}
			if res.Outcome != OutcomeFatal {
				t.Errorf("Outcome = %v", res.Outcome)
			}
			if eng.Document() != nil {
				t.Error("no document expected after fatal first navigation")
			}
		})
	}
}

// TestEngineParseErrorIsFatal tests that malformed responses are not retried.
func TestEngineParseErrorIsFatal(t *testing.T) {
	t.Parallel()

	s := newScriptedSender()
	s.responses["gemini://example.org/"] = "xx garbage"
	eng := newTestEngine(s)

	res, err := eng.Start(context.Background(), "gemini://example.org/")
	if !errors.Is(err, protocol.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if res.Outcome != OutcomeFatal || len(s.calls) != 1 {
		t.Errorf("Outcome = %v, calls = %v", res.Outcome, s.calls)
	}
}

// TestEngineTransportFailure tests seeding the default location.
func TestEngineTransportFailure(t *testing.T) {
	t.Parallel()

	t.Run("empty history seeds and retries default", func(t *testing.T) {
		t.Parallel()

		s := newScriptedSender()
		s.page(DefaultLocation.Request(), "home")
		eng := newTestEngine(s)

		res, err := eng.Start(context.Background(), "gemini://down.example/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Outcome != OutcomeSuccess {
			t.Errorf("Outcome = %v", res.Outcome)
		}
		if !res.Seeded || !res.Replay {
			t.Errorf("Seeded = %v, Replay = %v, want both true", res.Seeded, res.Replay)
		}
		if got := requests(eng.History()); !equalStrings(got, []string{DefaultLocation.Request()}) {
			t.Errorf("History() = %v", got)
		}
		if eng.Location() != DefaultLocation {
			t.Errorf("Location() = %v", eng.Location())
		}
	})

	t.Run("retry happens once", func(t *testing.T) {
		t.Parallel()

		s := newScriptedSender()
		eng := newTestEngine(s)

		res, err := eng.Start(context.Background(), "gemini://down.example/")
		if !errors.Is(err, ErrTransport) || !errors.Is(err, errUnreachable) {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
		if res.Outcome != OutcomeRecoverable {
			t.Errorf("Outcome = %v", res.Outcome)
		}
		if len(s.calls) != 2 {
			t.Errorf("calls = %v", s.calls)
		}
		if eng.Location() != DefaultLocation {
			t.Errorf("Location() = %v", eng.Location())
		}
	})

	t.Run("seeding disabled fails without retry", func(t *testing.T) {
		t.Parallel()

		s := newScriptedSender()
		s.page(DefaultLocation.Request(), "home")
		eng := newTestEngine(s, WithoutDefaultSeeding())

		res, err := eng.Start(context.Background(), "gemini://down.example/")
		if !errors.Is(err, ErrTransport) {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
		if res.Outcome != OutcomeRecoverable {
			t.Errorf("Outcome = %v", res.Outcome)
		}
		if len(s.calls) != 1 {
			t.Errorf("calls = %v", s.calls)
		}
		if !eng.Location().IsZero() || len(eng.History()) != 0 {
			t.Errorf("Location() = %v, History() = %v", eng.Location(), eng.History())
		}
	})

	t.Run("non empty history rolls back without retry", func(t *testing.T) {
		t.Parallel()

		s := newScriptedSender()
		s.page("gemini://example.org/", "home")
		eng := newTestEngine(s)
		ctx := context.Background()

		_, _ = eng.Start(ctx, "gemini://example.org/")
		_, err := eng.Navigate(ctx, "gemini://down.example/")
		if !errors.Is(err, ErrTransport) {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
		if len(s.calls) != 2 {
			t.Errorf("calls = %v", s.calls)
		}
		if eng.Location().Request() != "gemini://example.org/" {
			t.Errorf("Location() = %v", eng.Location())
		}
	})
}

// TestEngineInFlight tests the single navigation guarantee.
func TestEngineInFlight(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	sender := SenderFunc(func(ctx context.Context, _ string, _ []byte) ([]byte, error) {
		close(entered)
		<-release
		return []byte("20 text/gemini\r\nok"), nil
	})
	eng := newTestEngine(sender)

	done := make(chan error, 1)
	go func() {
		_, err := eng.Start(context.Background(), "gemini://example.org/")
		done <- err
	}()

	<-entered
	if eng.State() != StatePendingFetch {
		t.Errorf("State() = %v", eng.State())
	}
	if _, err := eng.Navigate(context.Background(), "/other"); !errors.Is(err, ErrNavigationInFlight) {
		t.Errorf("expected ErrNavigationInFlight, got %v", err)
	}
	if _, err := eng.Back(context.Background()); !errors.Is(err, ErrNavigationInFlight) {
		t.Errorf("expected ErrNavigationInFlight, got %v", err)
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eng.State() != StateIdle {
		t.Errorf("State() = %v", eng.State())
	}
}

// TestEngineObserver tests that every navigation is reported.
func TestEngineObserver(t *testing.T) {
	t.Parallel()

	s := newScriptedSender()
	s.page("gemini://example.org/", "home")
	s.responses["gemini://example.org/missing"] = "51 nope\r\n"

	var got []*Result
	eng := newTestEngine(s, WithObserver(ObserverFunc(func(_ context.Context, res *Result) {
		got = append(got, res)
	})))
	ctx := context.Background()

	_, _ = eng.Start(ctx, "gemini://example.org/")
	_, _ = eng.Navigate(ctx, "/missing")

	if len(got) != 2 {
		t.Fatalf("observed %d results", len(got))
	}
	if got[0].Outcome != OutcomeSuccess || got[1].Outcome != OutcomeRecoverable {
		t.Errorf("outcomes = %v, %v", got[0].Outcome, got[1].Outcome)
	}
	if got[0].SpanID == "" || got[0].SpanID == got[1].SpanID {
		t.Errorf("span IDs = %q, %q", got[0].SpanID, got[1].SpanID)
	}
}

// TestOutcomeAndStateString tests the String methods.
func TestOutcomeAndStateString(t *testing.T) {
	t.Parallel()

	if OutcomeRecoverable.String() != "recoverable_failure" || OutcomeFatal.String() != "fatal" {
		t.Error("unexpected Outcome strings")
	}
	if StatePendingFetch.String() != "pending_fetch" || StateIdle.String() != "idle" {
		t.Error("unexpected State strings")
	}
}
