package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/remi/internal/gemtext"
	remilog "github.com/nao1215/remi/internal/log"
	"github.com/nao1215/remi/internal/model"
	"github.com/nao1215/remi/internal/protocol"
)

// DefaultLocation is fetched when no initial target is given, and seeded
// into an empty history after a transport failure.
var DefaultLocation = model.MustParseLocation("gemini://geminiprotocol.net/")

// DefaultMaxRedirects is the default length limit of a redirect chain.
const DefaultMaxRedirects = 5

// Sender delivers a request payload to hostAndPort and returns the raw
// response. A missing port means protocol.DefaultPort.
type Sender interface {
	Send(ctx context.Context, hostAndPort string, payload []byte) ([]byte, error)
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, hostAndPort string, payload []byte) ([]byte, error)

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, hostAndPort string, payload []byte) ([]byte, error) {
	return f(ctx, hostAndPort, payload)
}

// Observer receives the result of every completed navigation.
type Observer interface {
	Observe(ctx context.Context, res *Result)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, res *Result)

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, res *Result) {
	f(ctx, res)
}

// State is the engine state.
type State int

const (
	// StateIdle means no navigation is running.
	StateIdle State = iota
	// StatePendingFetch means a navigation is waiting for the transport.
	StatePendingFetch
)

// String returns the state name.
func (s State) String() string {
	if s == StatePendingFetch {
		return "pending_fetch"
	}
	return "idle"
}

// Outcome is how a navigation ended.
type Outcome int

const (
	// OutcomeSuccess means a document was received and is now current.
	OutcomeSuccess Outcome = iota
	// OutcomeRecoverable means the engine rolled back to the previous location.
	OutcomeRecoverable
	// OutcomeFatal means the navigation cannot make progress on its own.
	OutcomeFatal
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRecoverable:
		return "recoverable_failure"
	default:
		return "fatal"
	}
}

// Result describes a completed navigation.
type Result struct {
	// SpanID correlates the log records of this navigation.
	SpanID string

	// Requested is the location the navigation started from.
	Requested model.Location

	// Location is the active location once the navigation ended.
	Location model.Location

	// Outcome is how the navigation ended.
	Outcome Outcome

	// Response is the last response received, or nil.
	Response protocol.Response

	// Page is the new document on success.
	Page *model.Page

	// Redirects lists the locations reached through permanent redirects.
	Redirects []model.Location

	// Replay is true for Back, Forward and Reload, and once a navigation
	// falls back to the default location.
	Replay bool

	// Seeded is true when a transport failure on an empty history made the
	// navigation fall back to the default location.
	Seeded bool

	// Err is the failure cause; nil on success.
	Err error

	// Duration is the wall time spent in the navigation.
	Duration time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithObserver registers an observer called after each navigation.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithMaxRedirects sets the redirect chain limit.
func WithMaxRedirects(n int) Option {
	return func(e *Engine) {
		e.maxRedirects = n
	}
}

// WithDefaultLocation replaces DefaultLocation for this engine.
func WithDefaultLocation(loc model.Location) Option {
	return func(e *Engine) {
		e.defaultLocation = loc
	}
}

// WithHistoryLimit bounds the number of history entries.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		e.historyLimit = n
	}
}

// WithoutDefaultSeeding disables falling back to the default location
// after a transport failure on an empty history. Used by one-shot fetches
// where the failure itself is the answer.
func WithoutDefaultSeeding() Option {
	return func(e *Engine) {
		e.noSeed = true
	}
}

// WithParseOptions sets the options passed to gemtext.Parse.
func WithParseOptions(opts ...gemtext.Option) Option {
	return func(e *Engine) {
		e.parseOpts = opts
	}
}

// Engine drives navigation over a Sender.
//
// Engine is safe for concurrent use, but only one navigation runs at a time.
type Engine struct {
	sender          Sender
	logger          *slog.Logger
	observer        Observer
	maxRedirects    int
	historyLimit    int
	defaultLocation model.Location
	parseOpts       []gemtext.Option
	noSeed          bool

	// flight is held for the whole duration of a navigation.
	flight sync.Mutex

	// mu guards the fields below.
	mu       sync.RWMutex
	state    State
	location model.Location
	history  *model.History
	page     *model.Page
	replay   bool
}

// NewEngine creates an engine sending requests through sender.
func NewEngine(sender Sender, opts ...Option) *Engine {
	e := &Engine{
		sender:          sender,
		logger:          slog.Default(),
		maxRedirects:    DefaultMaxRedirects,
		defaultLocation: DefaultLocation,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.history = model.NewHistory(e.historyLimit)
	return e
}

// Start navigates to initial, or to the default location when initial is empty.
func (e *Engine) Start(ctx context.Context, initial string) (*Result, error) {
	if initial == "" {
		initial = e.defaultLocation.Request()
	}
	return e.Navigate(ctx, initial)
}

// Navigate resolves target against the active location and fetches it.
// A successful fetch commits a new history entry.
//
// The returned error is nil only on success. The Result is nil only when
// the navigation did not start.
func (e *Engine) Navigate(ctx context.Context, target string) (*Result, error) {
	if !e.flight.TryLock() {
		return nil, ErrNavigationInFlight
	}
	defer e.flight.Unlock()

	loc, err := Resolve(e.Location(), target)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.replay = false
	restore := e.history.Index()
	e.mu.Unlock()
	res := e.run(ctx, loc, restore)
	return res, res.Err
}

// Back fetches the previous history entry without changing the entries.
func (e *Engine) Back(ctx context.Context) (*Result, error) {
	return e.move(ctx, -1)
}

// Forward fetches the next history entry without changing the entries.
func (e *Engine) Forward(ctx context.Context) (*Result, error) {
	return e.move(ctx, 1)
}

// Reload fetches the current history entry again.
func (e *Engine) Reload(ctx context.Context) (*Result, error) {
	return e.move(ctx, 0)
}

func (e *Engine) move(ctx context.Context, delta int) (*Result, error) {
	if !e.flight.TryLock() {
		return nil, ErrNavigationInFlight
	}
	defer e.flight.Unlock()

	e.mu.Lock()
	restore := e.history.Index()
	loc, ok := e.history.Seek(restore + delta)
	if !ok {
		e.mu.Unlock()
		return nil, ErrNoHistory
	}
	e.replay = true
	e.mu.Unlock()
	res := e.run(ctx, loc, restore)
	return res, res.Err
}

// run performs the fetch cycle starting at target. restore is the history
// index to return to when a replay fails.
func (e *Engine) run(ctx context.Context, target model.Location, restore int) *Result {
	start := time.Now()
	spanID := remilog.NewSpanID()
	ctx = remilog.ContextWithSpanID(ctx, spanID)
	logger := e.logger.With(slog.String("spanID", spanID))

	e.mu.Lock()
	res := &Result{SpanID: spanID, Requested: target, Replay: e.replay}
	e.state = StatePendingFetch
	e.mu.Unlock()

	e.cycle(ctx, logger, res, target, restore)

	e.mu.Lock()
	e.replay = false
	e.state = StateIdle
	res.Location = e.location
	e.mu.Unlock()

	res.Duration = time.Since(start)
	logger.Info("navigateDone",
		slog.String("requested", res.Requested.Request()),
		slog.String("location", res.Location.Request()),
		slog.String("outcome", res.Outcome.String()),
		slog.Any("err", res.Err),
		slog.Duration("duration", res.Duration),
	)
	if e.observer != nil {
		e.observer.Observe(ctx, res)
	}
	return res
}

func (e *Engine) cycle(ctx context.Context, logger *slog.Logger, res *Result, loc model.Location, restore int) {
	seeded := false
	for {
		e.setLocation(loc)
		logger.Debug("navigateStart",
			slog.String("request", loc.Request()),
			slog.Bool("replay", res.Replay),
		)

		resp, err := e.fetch(ctx, loc)
		if err != nil {
			var pe *protocol.ParseError
			if errors.As(err, &pe) || errors.Is(err, protocol.ErrRequestTooLong) {
				e.fail(logger, res, OutcomeFatal, err, restore)
				return
			}
			if !seeded && e.seedDefault() {
				seeded = true
				res.Seeded, res.Replay = true, true
				logger.Warn("transport failed, seeding default location",
					slog.String("request", loc.Request()),
					slog.Any("err", err),
				)
				loc = e.defaultLocation
				continue
			}
			e.fail(logger, res, OutcomeRecoverable, fmt.Errorf("%w: %w", ErrTransport, err), restore)
			return
		}
		res.Response = resp

		switch r := resp.(type) {
		case protocol.Success:
			e.succeed(res, loc, r)
			return

		case protocol.PermanentFailure:
			if r.Kind != protocol.NotFound {
				e.fail(logger, res, OutcomeFatal, &UnsupportedResponseError{Response: resp}, restore)
				return
			}
			e.fail(logger, res, OutcomeRecoverable, fmt.Errorf("%w: %s", ErrNotFound, r.Msg), restore)
			return

		case protocol.Redirection:
			if r.Kind != protocol.RedirectPermanent {
				e.fail(logger, res, OutcomeFatal, &UnsupportedResponseError{Response: resp}, restore)
				return
			}
			if len(res.Redirects) >= e.maxRedirects {
				e.fail(logger, res, OutcomeFatal, ErrTooManyRedirects, restore)
				return
			}
			next, err := Resolve(loc, r.To)
			if err != nil {
				e.fail(logger, res, OutcomeFatal, fmt.Errorf("%w: %w", ErrUnresolvableRedirect, err), restore)
				return
			}
			logger.Info("redirect",
				slog.String("from", loc.Request()),
				slog.String("to", next.Request()),
			)
			res.Redirects = append(res.Redirects, next)
			loc = next

		default:
			e.fail(logger, res, OutcomeFatal, &UnsupportedResponseError{Response: resp}, restore)
			return
		}
	}
}

// fetch frames the request, sends it and parses the response.
func (e *Engine) fetch(ctx context.Context, loc model.Location) (protocol.Response, error) {
	payload, err := protocol.NewRequest(loc.Request())
	if err != nil {
		return nil, err
	}
	raw, err := e.sender.Send(ctx, loc.HostAndPort(), payload)
	if err != nil {
		return nil, err
	}
	return protocol.ParseResponse(raw)
}

// seedDefault commits the default location when history is empty and
// marks the retry as a replay. It reports whether it did so.
func (e *Engine) seedDefault() bool {
	if e.noSeed {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.history.IsEmpty() {
		return false
	}
	e.history.Commit(e.defaultLocation)
	e.replay = true
	return true
}

func (e *Engine) succeed(res *Result, loc model.Location, r protocol.Success) {
	doc := gemtext.Parse(r.Body, e.parseOpts...)
	page := model.NewPage(loc.Request(), r.Code, r.Body, doc)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.page = page
	if !e.replay {
		e.history.Commit(loc)
	}
	res.Outcome = OutcomeSuccess
	res.Page = page
}

// fail rolls the active location back to the history entry at restore, or
// clears it when history is empty.
func (e *Engine) fail(logger *slog.Logger, res *Result, outcome Outcome, err error, restore int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res.Outcome = outcome
	res.Err = err
	if e.replay {
		e.history.Seek(restore)
	}
	current, ok := e.history.Current()
	if !ok {
		current = model.Location{}
	}
	logger.Warn("rollback",
		slog.String("failed", e.location.Request()),
		slog.String("location", current.Request()),
		slog.String("outcome", outcome.String()),
		slog.Any("err", err),
	)
	e.location = current
}

func (e *Engine) setLocation(loc model.Location) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.location = loc
}

// Location returns the active location.
func (e *Engine) Location() model.Location {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.location
}

// Page returns the current page, or nil before the first success.
func (e *Engine) Page() *model.Page {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.page
}

// Document returns the current document, or nil before the first success.
func (e *Engine) Document() *gemtext.Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.page == nil {
		return nil
	}
	return e.page.Document
}

// History returns a copy of the history entries.
func (e *Engine) History() []model.Location {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.Entries()
}

// Index returns the current history index.
func (e *Engine) Index() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.Index()
}

// State returns the engine state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// CanGoBack reports whether Back has an entry to move to.
func (e *Engine) CanGoBack() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.CanGoBack()
}

// CanGoForward reports whether Forward has an entry to move to.
func (e *Engine) CanGoForward() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.CanGoForward()
}
