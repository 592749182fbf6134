// Package orchestrator sequences a run: candidate discovery, form navigation,
// field mapping, submission and ledger updates, with a human deciding what to
// do when a link fails.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/jonathan/scholarship-agent/internal/config"
	"github.com/jonathan/scholarship-agent/internal/human"
	"github.com/jonathan/scholarship-agent/internal/interpret"
	"github.com/jonathan/scholarship-agent/internal/ledger"
	"github.com/jonathan/scholarship-agent/internal/mapper"
	"github.com/jonathan/scholarship-agent/internal/navigator"
	"github.com/jonathan/scholarship-agent/internal/observability"
	"github.com/jonathan/scholarship-agent/internal/types"
)

// State is a step of the run state machine.
type State string

// Run states. Discovering through Retrying repeat per link.
const (
	StateInit         State = "init"
	StateProfileReady State = "profile_ready"
	StateSearching    State = "searching"
	StateDiscovering  State = "discovering"
	StateFilling      State = "filling"
	StateSubmitted    State = "submitted"
	StateSkipped      State = "skipped"
	StateFailed       State = "failed"
	StateRetrying     State = "retrying"
	StateDone         State = "done"
)

// Outcome is how one link ended.
type Outcome string

// Link outcomes.
const (
	OutcomeSubmitted Outcome = "submitted"
	OutcomeDryRun    Outcome = "dry_run"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeAborted   Outcome = "aborted"
)

// Choices offered to the human after a failed attempt.
const (
	ChoiceRetry = "retry"
	ChoiceSkip  = "skip"
	ChoiceQuit  = "quit"
)

// ErrNoCandidates is returned when discovery leaves nothing to process.
var ErrNoCandidates = errors.New("no candidate links found")

// ErrNoSubmit is an attempt failure: the form was filled but no submit
// affordance was found.
var ErrNoSubmit = errors.New("no submit affordance found")

// Session is one page-driver session: a browser the engine navigates and the
// mapper fills. It is torn down after every attempt.
type Session interface {
	navigator.Driver
	mapper.Filler
	Close()
}

// OpenSessionFunc starts a fresh Session.
type OpenSessionFunc func(ctx context.Context) (Session, error)

// Discoverer produces candidate links for a query.
type Discoverer interface {
	Discover(ctx context.Context, query string, limit int) ([]types.CandidateLink, error)
}

// Ledger is the part of the completed-link ledger the orchestrator writes.
type Ledger interface {
	Record(ctx context.Context, url string, status types.LinkStatus, details string) error
	Effective(ctx context.Context, url string) (types.LinkStatus, error)
}

// PageAnalyzer describes a form from a screenshot.
type PageAnalyzer interface {
	AnalyzePage(ctx context.Context, screenshot []byte) (*interpret.PageAnalysis, error)
}

// Deps are the collaborators of a run.
type Deps struct {
	Discoverer  Discoverer
	Ledger      Ledger
	OpenSession OpenSessionFunc
	Prompter    human.Prompter
	// Essays writes essay answers; nil skips essay fields.
	Essays mapper.EssayWriter
	// Analyzer is required in vision analysis mode.
	Analyzer PageAnalyzer
	// Printer shows navigation and fill details; nil disables it.
	Printer *observability.Printer
}

// Options control a run.
type Options struct {
	// Live clicks submit and records completed links. When false the run is a
	// dry run: nothing is submitted and the ledger is not written.
	Live           bool
	SearchLimit    int
	MaxSteps       int
	SubmitKeywords []string
	AnalysisMode   string
	// PreLoginURL is opened in every new session so the human can sign in first.
	PreLoginURL string
	Navigator   navigator.Options
	// Out receives progress lines; nil discards them.
	Out        io.Writer
	OnProgress ProgressCallback
}

// LinkResult is the outcome of one link.
type LinkResult struct {
	URL      string  `json:"url"`
	Outcome  Outcome `json:"outcome"`
	Detail   string  `json:"detail,omitempty"`
	Filled   int     `json:"filled"`
	Attempts int     `json:"attempts"`
}

// Summary is the outcome of a run.
type Summary struct {
	Query   string       `json:"query,omitempty"`
	Links   []LinkResult `json:"links"`
	Aborted bool         `json:"aborted"`
}

// Orchestrator runs the pipeline for one profile.
type Orchestrator struct {
	deps    Deps
	opts    Options
	logger  *zap.Logger
	state   State
	history []State
}

// New creates an Orchestrator. A nil logger disables logging.
func New(deps Deps, opts Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = navigator.DefaultOptions().MaxSteps
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = config.Defaults().SearchLimit
	}
	if opts.AnalysisMode == "" {
		opts.AnalysisMode = config.AnalysisDOM
	}
	return &Orchestrator{deps: deps, opts: opts, logger: logger.Named("orchestrator"), state: StateInit}
}

// State returns the current state.
func (o *Orchestrator) State() State { return o.state }

// History returns every state entered, in order.
func (o *Orchestrator) History() []State { return append([]State(nil), o.history...) }

func (o *Orchestrator) enter(s State, fields ...zap.Field) {
	o.state = s
	o.history = append(o.history, s)
	o.logger.Debug("state", append([]zap.Field{zap.String("state", string(s))}, fields...)...)
}

// Run validates the profile, discovers candidates for query and processes them
// in order. A missing required attribute or an empty candidate list ends the
// run before any page is opened.
func (o *Orchestrator) Run(ctx context.Context, p *types.Profile, query string) (*Summary, error) {
	o.enter(StateInit)
	if err := o.ready(p); err != nil {
		return nil, err
	}

	o.enter(StateSearching, zap.String("query", query))
	fmt.Fprintf(o.opts.Out, "Searching for candidates: %s\n", query)
	o.emit("search", "discovery", "searching for candidate links", query)
	links, err := o.deps.Discoverer.Discover(ctx, query, o.opts.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	if o.deps.Printer != nil {
		o.deps.Printer.PrintCandidates(links)
	}

	summary, err := o.process(ctx, p, links)
	if summary != nil {
		summary.Query = query
	}
	return summary, err
}

// RunLinks processes the given links without discovery.
func (o *Orchestrator) RunLinks(ctx context.Context, p *types.Profile, links []types.CandidateLink) (*Summary, error) {
	o.enter(StateInit)
	if err := o.ready(p); err != nil {
		return nil, err
	}
	return o.process(ctx, p, links)
}

func (o *Orchestrator) ready(p *types.Profile) error {
	if err := p.Validate(); err != nil {
		o.logger.Error("profile not ready", zap.Error(err))
		return err
	}
	o.enter(StateProfileReady)
	return nil
}

func (o *Orchestrator) process(ctx context.Context, p *types.Profile, links []types.CandidateLink) (*Summary, error) {
	summary := &Summary{}
	if len(links) == 0 {
		o.enter(StateDone)
		fmt.Fprintf(o.opts.Out, "No candidate links found.\n")
		return summary, ErrNoCandidates
	}

	for i, link := range links {
		fmt.Fprintf(o.opts.Out, "Link %d/%d: %s\n", i+1, len(links), link.URL)
		o.emit(fmt.Sprintf("link-%d", i+1), "link", "processing link", link.URL)

		res, err := o.ProcessLink(ctx, p, link.URL)
		summary.Links = append(summary.Links, res)
		if err != nil {
			o.enter(StateDone)
			return summary, err
		}
		if res.Outcome == OutcomeAborted {
			summary.Aborted = true
			fmt.Fprintf(o.opts.Out, "Stopping: %d link(s) left unprocessed.\n", len(links)-i-1)
			break
		}
	}
	o.enter(StateDone)
	o.logger.Info("run finished", zap.Int("links", len(summary.Links)), zap.Bool("aborted", summary.Aborted))
	return summary, nil
}

// ProcessLink runs one link to an outcome. A failed attempt asks the human to
// retry, skip or quit; a retry starts over with a new session and is allowed
// once, after which the link is skipped. The returned error is non-nil only
// when the context ends or the human cannot be asked.
func (o *Orchestrator) ProcessLink(ctx context.Context, p *types.Profile, url string) (LinkResult, error) {
	res := LinkResult{URL: url}
	log := o.logger.With(zap.String("url", url))

	status, err := o.deps.Ledger.Effective(ctx, url)
	if err != nil {
		// Without the ledger the link may already be completed.
		log.Warn("ledger lookup failed, skipping link", zap.Error(err))
		res.Outcome, res.Detail = OutcomeSkipped, "ledger lookup failed: "+err.Error()
		return res, nil
	}
	if ledger.Excluded(status) {
		log.Info("link already processed", zap.String("status", string(status)))
		res.Outcome, res.Detail = OutcomeSkipped, "already "+string(status)
		return res, nil
	}

	retried := false
	for {
		res.Attempts++
		outcome, filled, detail, err := o.attempt(ctx, p, url)
		res.Filled = filled
		if err == nil {
			res.Outcome, res.Detail = outcome, detail
			return res, nil
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		o.enter(StateFailed, zap.Error(err))
		log.Warn("attempt failed", zap.Int("attempt", res.Attempts), zap.Error(err))
		fmt.Fprintf(o.opts.Out, "  Failed: %v\n", err)

		if retried {
			o.skip(ctx, url, fmt.Sprintf("failed after retry: %v", err))
			res.Outcome, res.Detail = OutcomeSkipped, err.Error()
			return res, nil
		}

		choice, cerr := o.deps.Prompter.Choose(ctx,
			fmt.Sprintf("Filling %s failed: %v\nRetry, skip or quit?", url, err),
			[]string{ChoiceRetry, ChoiceSkip, ChoiceQuit})
		if cerr != nil {
			res.Outcome, res.Detail = OutcomeAborted, err.Error()
			return res, fmt.Errorf("no decision for %s: %w", url, cerr)
		}
		log.Info("human decision", zap.String("choice", choice))

		switch choice {
		case ChoiceRetry:
			retried = true
			o.enter(StateRetrying)
		case ChoiceSkip:
			o.skip(ctx, url, err.Error())
			res.Outcome, res.Detail = OutcomeSkipped, err.Error()
			return res, nil
		default:
			res.Outcome, res.Detail = OutcomeAborted, err.Error()
			return res, nil
		}
	}
}

// attempt opens a fresh session and runs navigation, filling and submission.
// A non-nil error is a failure the human decides about.
func (o *Orchestrator) attempt(ctx context.Context, p *types.Profile, url string) (Outcome, int, string, error) {
	session, err := o.deps.OpenSession(ctx)
	if err != nil {
		return "", 0, "", fmt.Errorf("could not start browser: %w", err)
	}
	defer session.Close()

	if o.opts.PreLoginURL != "" {
		if err := session.Load(ctx, o.opts.PreLoginURL); err != nil {
			return "", 0, "", err
		}
		if err := o.deps.Prompter.Confirm(ctx, fmt.Sprintf("Sign in at %s in the browser, then press Enter to continue...", o.opts.PreLoginURL)); err != nil {
			return "", 0, "", err
		}
	}

	o.enter(StateDiscovering)
	engine := navigator.New(session, o.deps.Prompter, o.opts.Navigator, o.logger)
	nav, err := engine.DiscoverForm(ctx, url, o.opts.MaxSteps)
	if err != nil {
		return "", 0, "", err
	}
	if o.deps.Printer != nil {
		o.deps.Printer.PrintNavigation(nav)
	}
	if nav.State.Terminal != types.TerminalFormFound {
		detail := fmt.Sprintf("no application form within %d steps", o.opts.MaxSteps)
		fmt.Fprintf(o.opts.Out, "  %s\n", detail)
		o.enter(StateSkipped)
		if o.opts.Live {
			o.record(ctx, url, types.StatusNotFound, detail)
		}
		return OutcomeNotFound, 0, detail, nil
	}

	o.enter(StateFilling)
	fields, err := o.describe(ctx, session, nav)
	if err != nil {
		return "", 0, "", err
	}
	m := mapper.New(session, o.deps.Essays, o.logger)
	report, err := m.MapAndFill(ctx, fields, p)
	if err != nil {
		return "", 0, "", err
	}
	if o.deps.Printer != nil {
		o.deps.Printer.PrintFillReport(report)
	}
	fmt.Fprintf(o.opts.Out, "  Filled %d field(s)\n", report.Filled())

	submit, found, err := m.Submit(ctx, fields, o.opts.SubmitKeywords, o.opts.Live)
	if err != nil {
		return "", report.Filled(), "", err
	}
	if !found {
		if !o.opts.Live {
			o.review(ctx, url, "no submit button was found")
			return OutcomeDryRun, report.Filled(), "no submit affordance", nil
		}
		return "", report.Filled(), "", ErrNoSubmit
	}

	if !o.opts.Live {
		detail := fmt.Sprintf("would click %q", submit.Label)
		fmt.Fprintf(o.opts.Out, "  Test mode: %s (%s)\n", detail, submit.Selector)
		o.review(ctx, url, detail)
		return OutcomeDryRun, report.Filled(), detail, nil
	}

	o.enter(StateSubmitted)
	detail := fmt.Sprintf("submitted via %q, %d field(s) filled", submit.Label, report.Filled())
	o.record(ctx, url, types.StatusCompleted, detail)
	fmt.Fprintf(o.opts.Out, "  Submitted\n")
	return OutcomeSubmitted, report.Filled(), detail, nil
}

// describe returns the form's field descriptors. In vision mode they come
// from a screenshot; a malformed answer is shown to the human and fails the
// attempt.
func (o *Orchestrator) describe(ctx context.Context, session Session, nav *navigator.Result) ([]types.PageFieldDescriptor, error) {
	if o.opts.AnalysisMode != config.AnalysisVision {
		return nav.Fields, nil
	}
	if o.deps.Analyzer == nil {
		return nil, errors.New("vision analysis requires a page analyzer")
	}
	shot, err := session.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	analysis, err := o.deps.Analyzer.AnalyzePage(ctx, shot)
	var perr *interpret.ParseError
	if errors.As(err, &perr) {
		o.logger.Warn("page analysis unreadable", zap.Error(err))
		if cerr := o.deps.Prompter.Confirm(ctx, "Could not read the form automatically. The model answered:\n"+perr.Raw+"\nPress Enter to continue..."); cerr != nil {
			return nil, cerr
		}
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("page analysis failed: %w", err)
	}
	return analysis.Descriptors(), nil
}

// review lets the human inspect a dry-run form before the session closes.
func (o *Orchestrator) review(ctx context.Context, url, detail string) {
	msg := fmt.Sprintf("Test mode: form at %s filled, %s. Review it in the browser, then press Enter to close...", url, detail)
	if err := o.deps.Prompter.Confirm(ctx, msg); err != nil {
		o.logger.Debug("review pause ended", zap.Error(err))
	}
}

func (o *Orchestrator) skip(ctx context.Context, url, detail string) {
	o.enter(StateSkipped)
	if o.opts.Live {
		o.record(ctx, url, types.StatusSkipped, detail)
	}
}

func (o *Orchestrator) record(ctx context.Context, url string, status types.LinkStatus, detail string) {
	err := o.deps.Ledger.Record(ctx, url, status, detail)
	switch {
	case errors.Is(err, ledger.ErrAlreadyTerminal):
		o.logger.Warn("ledger kept earlier terminal status", zap.String("url", url), zap.Error(err))
	case err != nil:
		o.logger.Error("ledger write failed", zap.String("url", url), zap.String("status", string(status)), zap.Error(err))
	}
}
