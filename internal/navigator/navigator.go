// Package navigator drives a page forward until it finds an application form.
//
// Each step reads the page, waits for a human on login or CAPTCHA walls,
// stops when the page carries a real multi-field form and otherwise follows
// the first "apply"-like link or button. The number of followed affordances is
// bounded, so the loop always terminates.
package navigator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/scholarship-agent/internal/types"
)

// DefaultApplyKeywords are tried in order; the first keyword with a clickable
// match wins.
var DefaultApplyKeywords = []string{
	"apply now",
	"apply here",
	"go to form",
	"start application",
	"begin application",
	"start your application",
	"continue to application",
	"application form",
	"apply",
	"proceed to application",
}

// CookieSelectors are tried before the text fallback when accepting cookie banners.
var CookieSelectors = []string{
	"#onetrust-accept-btn-handler",
	"button[aria-label='Accept Cookies']",
	"button[title='Accept Cookies']",
	"button.cookie-accept",
	"button#accept-cookies",
}

// Options bounds the engine.
type Options struct {
	MaxSteps        int
	PageLoadTimeout time.Duration
	FormWaitTimeout time.Duration
	PollInterval    time.Duration
	ApplyKeywords   []string
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		MaxSteps:        5,
		PageLoadTimeout: 30 * time.Second,
		FormWaitTimeout: 30 * time.Second,
		PollInterval:    500 * time.Millisecond,
		ApplyKeywords:   DefaultApplyKeywords,
	}
}

// Result is the outcome of DiscoverForm.
type Result struct {
	State  types.NavigationState
	Fields []types.PageFieldDescriptor
	// Interrupts lists every human wait raised, in order.
	Interrupts []types.Interrupt
}

// Engine runs the form-discovery loop against one driver session.
type Engine struct {
	driver Driver
	pauser Pauser
	opts   Options
	logger *zap.Logger
}

// New creates an Engine. Zero option values take the defaults.
func New(driver Driver, pauser Pauser, opts Options, logger *zap.Logger) *Engine {
	def := DefaultOptions()
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = def.MaxSteps
	}
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = def.PageLoadTimeout
	}
	if opts.FormWaitTimeout <= 0 {
		opts.FormWaitTimeout = def.FormWaitTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if len(opts.ApplyKeywords) == 0 {
		opts.ApplyKeywords = def.ApplyKeywords
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{driver: driver, pauser: pauser, opts: opts, logger: logger.Named("navigator")}
}

// DiscoverForm loads startURL and follows affordances until a form is found
// or maxSteps affordances have been followed. maxSteps <= 0 uses the engine
// default. The page reached by the last follow is still checked for a form.
//
// Only a failed initial load or a failed human wait returns an error; click
// failures and readiness timeouts are absorbed.
func (e *Engine) DiscoverForm(ctx context.Context, startURL string, maxSteps int) (*Result, error) {
	if maxSteps <= 0 {
		maxSteps = e.opts.MaxSteps
	}
	res := &Result{State: types.NavigationState{
		CurrentPage: startURL,
		Interrupt:   types.InterruptNone,
		Terminal:    types.TerminalNone,
	}}

	if err := e.driver.Load(ctx, startURL); err != nil {
		return res, fmt.Errorf("failed to load %s: %w", startURL, err)
	}
	e.waitReady(ctx)
	e.acceptCookies(ctx)

	for !res.State.Done() {
		snap, err := e.settle(ctx, res)
		if err != nil {
			return res, err
		}
		res.State.CurrentPage = snap.URL

		if snap.Summary.FormSufficient() {
			fields, err := ScanFields(snap.HTML)
			if err != nil {
				e.logger.Warn("form scan failed", zap.String("page", snap.URL), zap.Error(err))
			}
			res.Fields = types.ActionableFields(fields)
			res.State.Terminal = types.TerminalFormFound
			e.logger.Info("form found",
				zap.String("page", snap.URL),
				zap.Int("step", res.State.StepCount),
				zap.Int("controls", snap.Summary.DataControls),
				zap.Int("fields", len(res.Fields)))
			break
		}

		if res.State.StepCount >= maxSteps {
			e.logger.Info("step budget used up", zap.String("page", snap.URL), zap.Int("max_steps", maxSteps))
			res.State.Terminal = types.TerminalExhausted
			break
		}

		keyword, ok := e.followAffordance(ctx)
		if !ok {
			e.logger.Info("no apply affordance found", zap.String("page", snap.URL), zap.Int("step", res.State.StepCount))
			res.State.Terminal = types.TerminalExhausted
			break
		}
		res.State.StepCount++
		e.logger.Info("followed affordance", zap.String("keyword", keyword), zap.Int("step", res.State.StepCount))
		e.acceptCookies(ctx)
	}
	return res, nil
}

// settle reads the page and waits on each interrupt kind at most once for
// this step, re-reading after every wait. It returns the final snapshot.
func (e *Engine) settle(ctx context.Context, res *Result) (Snapshot, error) {
	raised := make(map[types.Interrupt]bool, 2)
	for {
		snap := e.snapshot(ctx)
		kind := DetectInterrupt(snap)
		if kind == types.InterruptNone || raised[kind] {
			res.State.Interrupt = types.InterruptNone
			return snap, nil
		}

		raised[kind] = true
		res.State.Interrupt = kind
		res.Interrupts = append(res.Interrupts, kind)
		e.logger.Warn("waiting for human", zap.String("interrupt", string(kind)), zap.String("page", snap.URL))
		if err := e.pauser.Confirm(ctx, interruptMessage(kind, snap.URL)); err != nil {
			return snap, fmt.Errorf("waiting on %s interrupt: %w", kind, err)
		}
		e.waitReady(ctx)
	}
}

// snapshot reads the current page. Driver errors leave the affected part empty.
func (e *Engine) snapshot(ctx context.Context) Snapshot {
	var s Snapshot
	var err error
	if s.URL, err = e.driver.URL(ctx); err != nil {
		e.logger.Debug("url unavailable", zap.Error(err))
	}
	if s.Title, err = e.driver.Title(ctx); err != nil {
		e.logger.Debug("title unavailable", zap.Error(err))
	}
	if s.BodyText, err = e.driver.BodyText(ctx); err != nil {
		e.logger.Debug("body text unavailable", zap.Error(err))
	}
	if s.HTML, err = e.driver.HTML(ctx); err != nil {
		e.logger.Debug("html unavailable", zap.Error(err))
	}
	if s.Summary, err = Summarize(s.HTML); err != nil {
		e.logger.Debug("html unreadable", zap.Error(err))
	}
	return s
}

// followAffordance clicks the first element whose text contains an apply
// keyword, trying keywords in order and elements in document order. A click
// that fails moves on to the next candidate.
func (e *Engine) followAffordance(ctx context.Context) (string, bool) {
	elements, err := e.driver.Query(ctx, "a, button")
	if err != nil {
		e.logger.Debug("affordance query failed", zap.Error(err))
		return "", false
	}

	texts := make([]string, len(elements))
	for i, el := range elements {
		text, err := el.Text(ctx)
		if err != nil {
			continue
		}
		texts[i] = strings.ToLower(collapse(text))
	}

	for _, keyword := range e.opts.ApplyKeywords {
		for i, el := range elements {
			if texts[i] == "" || !strings.Contains(texts[i], keyword) {
				continue
			}
			before, _ := e.driver.Contexts(ctx)
			if err := el.Click(ctx); err != nil {
				e.logger.Debug("click failed, trying next candidate", zap.String("keyword", keyword), zap.Error(err))
				continue
			}
			e.switchToNewContext(ctx, before)
			e.waitReady(ctx)
			e.waitForFormElements(ctx)
			return keyword, true
		}
	}
	return "", false
}

// switchToNewContext moves to the newest context if the click opened one.
func (e *Engine) switchToNewContext(ctx context.Context, before []string) {
	after, err := e.driver.Contexts(ctx)
	if err != nil || len(after) <= len(before) {
		return
	}
	known := make(map[string]bool, len(before))
	for _, h := range before {
		known[h] = true
	}
	for i := len(after) - 1; i >= 0; i-- {
		if known[after[i]] {
			continue
		}
		if err := e.driver.SwitchContext(ctx, after[i]); err != nil {
			e.logger.Warn("failed to switch to new tab", zap.Error(err))
			return
		}
		e.logger.Info("switched to new tab")
		return
	}
}

// acceptCookies clicks the first cookie-consent control found. Failures are ignored.
func (e *Engine) acceptCookies(ctx context.Context) bool {
	for _, sel := range CookieSelectors {
		elements, err := e.driver.Query(ctx, sel)
		if err != nil || len(elements) == 0 {
			continue
		}
		if err := elements[0].Click(ctx); err == nil {
			e.logger.Debug("accepted cookies", zap.String("selector", sel))
			return true
		}
	}
	buttons, err := e.driver.Query(ctx, "button")
	if err != nil {
		return false
	}
	for _, want := range []string{"accept cookies", "accept all", "accept"} {
		for _, b := range buttons {
			text, err := b.Text(ctx)
			if err != nil || strings.ToLower(collapse(text)) != want {
				continue
			}
			if b.Click(ctx) == nil {
				e.logger.Debug("accepted cookies", zap.String("button", want))
				return true
			}
		}
	}
	return false
}

func (e *Engine) waitReady(ctx context.Context) bool {
	ok := poll(ctx, e.opts.PageLoadTimeout, e.opts.PollInterval, func() bool {
		ready, err := e.driver.Ready(ctx)
		return err == nil && ready
	})
	if !ok {
		e.logger.Debug("page not ready before timeout, continuing")
	}
	return ok
}

func (e *Engine) waitForFormElements(ctx context.Context) bool {
	return poll(ctx, e.opts.FormWaitTimeout, e.opts.PollInterval, func() bool {
		elements, err := e.driver.Query(ctx, "form, input, textarea, select")
		return err == nil && len(elements) > 0
	})
}

// poll checks cond every interval until it holds or timeout elapses.
func poll(ctx context.Context, timeout, interval time.Duration, cond func() bool) bool {
	if cond() {
		return true
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return cond()
		case <-ticker.C:
			if cond() {
				return true
			}
		}
	}
}
