// Package browser drives a real Chrome session through chromedp. A Session is
// the page driver used by the navigator and the field mapper.
//
// Requires Chrome/Chromium to be installed on the system.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/jonathan/scholarship-agent/internal/navigator"
)

// Options configures a browser session.
type Options struct {
	Headless bool
	// PageLoadTimeout bounds a navigation. Reaching it is not an error.
	PageLoadTimeout time.Duration
	// ActionTimeout bounds every other browser round trip.
	ActionTimeout time.Duration
}

// DefaultOptions returns headless defaults.
func DefaultOptions() Options {
	return Options{
		Headless:        true,
		PageLoadTimeout: 30 * time.Second,
		ActionTimeout:   10 * time.Second,
	}
}

// Session is one browser process with one or more tabs. It is not safe for
// concurrent use beyond the internal bookkeeping lock.
type Session struct {
	opts          Options
	logger        *zap.Logger
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
	browser       context.Context

	mu      sync.Mutex
	tab     context.Context
	tabID   target.ID
	order   []target.ID
	cancels []context.CancelFunc
	refSeq  int
}

// Factory opens sessions. The orchestrator opens a fresh one per attempt.
type Factory struct {
	Options Options
	Logger  *zap.Logger
}

// Open starts a browser with the factory's options.
func (f Factory) Open(ctx context.Context) (*Session, error) {
	return Open(ctx, f.Options, f.Logger)
}

// Open launches a browser process and its first tab. The browser lives until
// Close is called; ctx only bounds startup.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = def.PageLoadTimeout
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = def.ActionTimeout
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx),
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(userAgent),
		)...,
	)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	s := &Session{
		opts:          opts,
		logger:        logger.Named("browser"),
		cancelAlloc:   cancelAlloc,
		cancelBrowser: cancelBrowser,
		browser:       browserCtx,
		tab:           browserCtx,
	}

	// The first Run starts the browser process.
	startCtx, cancel := context.WithTimeout(browserCtx, opts.PageLoadTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(startCtx); err != nil {
		s.Close()
		return nil, &Error{Op: "start", Cause: err}
	}
	if c := chromedp.FromContext(browserCtx); c != nil && c.Target != nil {
		s.tabID = c.Target.TargetID
		s.order = []target.ID{s.tabID}
	}
	s.logger.Debug("browser started", zap.Bool("headless", opts.Headless))
	return s, nil
}

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Close shuts down every tab and the browser process.
func (s *Session) Close() {
	s.mu.Lock()
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()
	for i := len(cancels) - 1; i >= 0; i-- {
		cancels[i]()
	}
	s.cancelBrowser()
	s.cancelAlloc()
}

// run executes actions in the active tab, bounded by timeout and by ctx.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	tab := s.tab
	s.mu.Unlock()

	runCtx, cancel := context.WithTimeout(tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *Session) eval(ctx context.Context, script string, res any) error {
	return s.run(ctx, s.opts.ActionTimeout, chromedp.Evaluate(script, res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
	}))
}

// Load navigates the active tab. A load that runs past PageLoadTimeout is
// logged and treated as loaded.
func (s *Session) Load(ctx context.Context, url string) error {
	err := s.run(ctx, s.opts.PageLoadTimeout, chromedp.Navigate(url))
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		s.logger.Warn("page load timed out, continuing", zap.String("url", url))
		return nil
	}
	if err != nil {
		return &Error{Op: "load " + url, Cause: err}
	}
	return nil
}

// URL returns the active tab's location.
func (s *Session) URL(ctx context.Context) (string, error) {
	var url string
	err := s.run(ctx, s.opts.ActionTimeout, chromedp.Location(&url))
	return url, err
}

// Title returns the document title.
func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	err := s.run(ctx, s.opts.ActionTimeout, chromedp.Title(&title))
	return title, err
}

// BodyText returns document.body.innerText.
func (s *Session) BodyText(ctx context.Context) (string, error) {
	var text string
	err := s.eval(ctx, `document.body ? document.body.innerText : ""`, &text)
	return text, err
}

// HTML returns the serialized document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	err := s.eval(ctx, `document.documentElement ? document.documentElement.outerHTML : ""`, &html)
	return html, err
}

// Ready reports whether document.readyState is "complete".
func (s *Session) Ready(ctx context.Context) (bool, error) {
	var state string
	if err := s.eval(ctx, `document.readyState`, &state); err != nil {
		return false, err
	}
	return state == "complete", nil
}

// Screenshot captures the full page as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, s.opts.ActionTimeout, chromedp.FullScreenshot(&buf, 100))
	return buf, err
}

// Contexts lists page targets, oldest first.
func (s *Session) Contexts(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := chromedp.Targets(s.browser)
	if err != nil {
		return nil, &Error{Op: "list tabs", Cause: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	live := make(map[target.ID]bool, len(infos))
	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		live[info.TargetID] = true
		if !containsID(s.order, info.TargetID) {
			s.order = append(s.order, info.TargetID)
		}
	}
	out := make([]string, 0, len(s.order))
	for _, id := range s.order {
		if live[id] {
			out = append(out, string(id))
		}
	}
	return out, nil
}

// SwitchContext makes the given tab the active one.
func (s *Session) SwitchContext(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := target.ID(handle)
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.tabID {
		return nil
	}
	tab, cancel := chromedp.NewContext(s.browser, chromedp.WithTargetID(id))
	if err := chromedp.Run(tab); err != nil {
		cancel()
		return &Error{Op: "attach tab " + handle, Cause: err}
	}
	s.tab, s.tabID = tab, id
	s.cancels = append(s.cancels, cancel)
	s.logger.Debug("switched tab", zap.String("target", handle))
	return nil
}

func containsID(ids []target.ID, id target.ID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// queryScript tags every match with a fresh data-sa-ref so later actions can
// address it by selector.
const queryScript = `(function(selector, seq) {
	const out = [];
	document.querySelectorAll(selector).forEach(function(el, i) {
		const ref = seq + "-" + i;
		el.setAttribute("data-sa-ref", ref);
		const attrs = {};
		for (const a of el.attributes) { attrs[a.name] = a.value; }
		out.push({ref: ref, text: (el.innerText || el.value || "").trim(), attrs: attrs});
	});
	return out;
})(%s, %s)`

type queried struct {
	Ref   string            `json:"ref"`
	Text  string            `json:"text"`
	Attrs map[string]string `json:"attrs"`
}

// Query returns every element matching selector, in document order.
func (s *Session) Query(ctx context.Context, selector string) ([]navigator.Element, error) {
	s.mu.Lock()
	s.refSeq++
	seq := s.refSeq
	s.mu.Unlock()

	var found []queried
	script := fmt.Sprintf(queryScript, jsonEncode(selector), jsonEncode(fmt.Sprint(seq)))
	if err := s.eval(ctx, script, &found); err != nil {
		return nil, &Error{Op: "query " + selector, Cause: err}
	}
	out := make([]navigator.Element, len(found))
	for i, q := range found {
		out[i] = &element{session: s, selector: fmt.Sprintf(`[data-sa-ref="%s"]`, q.Ref), text: q.Text, attrs: q.Attrs}
	}
	return out, nil
}

const clearScript = `(function(selector) {
	const el = document.querySelector(selector);
	if (!el || el.disabled || el.readOnly) return false;
	el.value = "";
	el.dispatchEvent(new Event("input", {bubbles: true}));
	el.dispatchEvent(new Event("change", {bubbles: true}));
	return true;
})(%s)`

// SetText clears the field and types value into it.
func (s *Session) SetText(ctx context.Context, selector, value string) error {
	var ok bool
	if err := s.eval(ctx, fmt.Sprintf(clearScript, jsonEncode(selector)), &ok); err != nil {
		return &Error{Op: "clear " + selector, Cause: err}
	}
	if !ok {
		return &Error{Op: "clear " + selector, Cause: ErrNotInteractable}
	}
	if err := s.run(ctx, s.opts.ActionTimeout,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	); err != nil {
		return &Error{Op: "type into " + selector, Cause: err}
	}
	return nil
}

const selectScript = `(function(selector, text) {
	const el = document.querySelector(selector);
	if (!el || !el.options) return "missing";
	for (let i = 0; i < el.options.length; i++) {
		if (el.options[i].text.trim() === text) {
			el.selectedIndex = i;
			el.dispatchEvent(new Event("input", {bubbles: true}));
			el.dispatchEvent(new Event("change", {bubbles: true}));
			return "ok";
		}
	}
	return "nomatch";
})(%s, %s)`

// SelectOption picks the option whose visible text equals optionText.
func (s *Session) SelectOption(ctx context.Context, selector, optionText string) error {
	var result string
	if err := s.eval(ctx, fmt.Sprintf(selectScript, jsonEncode(selector), jsonEncode(optionText)), &result); err != nil {
		return &Error{Op: "select " + selector, Cause: err}
	}
	switch result {
	case "ok":
		return nil
	case "nomatch":
		return &Error{Op: "select " + selector, Cause: fmt.Errorf("%w: %q", ErrNoSuchOption, optionText)}
	}
	return &Error{Op: "select " + selector, Cause: ErrNotInteractable}
}

// Click scrolls to and clicks the first element matching selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	if err := s.run(ctx, s.opts.ActionTimeout,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible),
	); err != nil {
		return &Error{Op: "click " + selector, Cause: err}
	}
	return nil
}

type element struct {
	session  *Session
	selector string
	text     string
	attrs    map[string]string
}

func (e *element) Text(context.Context) (string, error) { return e.text, nil }

func (e *element) Attribute(_ context.Context, name string) (string, error) {
	return e.attrs[strings.ToLower(name)], nil
}

func (e *element) Click(ctx context.Context) error { return e.session.Click(ctx, e.selector) }

func jsonEncode(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}
