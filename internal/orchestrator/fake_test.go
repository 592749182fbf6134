package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/scholarship-agent/internal/interpret"
	"github.com/jonathan/scholarship-agent/internal/navigator"
	"github.com/jonathan/scholarship-agent/internal/types"
)

// site is a tiny in-memory web: url -> page.
type site map[string]page

type page struct {
	title string
	html  string
	apply string // url reached by an "Apply now" link
}

type fakeSession struct {
	site    site
	url     string
	texts   map[string]string
	selects map[string]string
	clicks  []string
	loads   []string
	closed  bool
}

func (s *fakeSession) Load(_ context.Context, url string) error {
	if _, ok := s.site[url]; !ok {
		return fmt.Errorf("cannot reach %s", url)
	}
	s.url = url
	s.loads = append(s.loads, url)
	return nil
}

func (s *fakeSession) URL(context.Context) (string, error)      { return s.url, nil }
func (s *fakeSession) Title(context.Context) (string, error)    { return s.site[s.url].title, nil }
func (s *fakeSession) BodyText(context.Context) (string, error) { return s.site[s.url].title, nil }
func (s *fakeSession) HTML(context.Context) (string, error)     { return s.site[s.url].html, nil }
func (s *fakeSession) Ready(context.Context) (bool, error)      { return true, nil }
func (s *fakeSession) Contexts(context.Context) ([]string, error) {
	return []string{"tab"}, nil
}
func (s *fakeSession) SwitchContext(context.Context, string) error { return nil }
func (s *fakeSession) Screenshot(context.Context) ([]byte, error)  { return []byte("png"), nil }

func (s *fakeSession) Query(_ context.Context, selector string) ([]navigator.Element, error) {
	p := s.site[s.url]
	if selector == "a, button" && p.apply != "" {
		return []navigator.Element{&fakeLink{session: s, target: p.apply}}, nil
	}
	return nil, nil
}

func (s *fakeSession) SetText(_ context.Context, selector, value string) error {
	s.texts[selector] = value
	return nil
}

func (s *fakeSession) SelectOption(_ context.Context, selector, option string) error {
	s.selects[selector] = option
	return nil
}

func (s *fakeSession) Click(_ context.Context, selector string) error {
	s.clicks = append(s.clicks, selector)
	return nil
}

func (s *fakeSession) Close() { s.closed = true }

type fakeLink struct {
	session *fakeSession
	target  string
}

func (l *fakeLink) Text(context.Context) (string, error)              { return "Apply now", nil }
func (l *fakeLink) Attribute(context.Context, string) (string, error) { return "", nil }
func (l *fakeLink) Click(context.Context) error {
	l.session.url = l.target
	return nil
}

// opener hands out a new fakeSession per attempt. The first failures opens
// return an error.
type opener struct {
	site     site
	sessions []*fakeSession
	opens    int
	failures int
}

func (o *opener) open(context.Context) (Session, error) {
	o.opens++
	if o.opens <= o.failures {
		return nil, errors.New("chrome exited")
	}
	s := &fakeSession{site: o.site, texts: map[string]string{}, selects: map[string]string{}}
	o.sessions = append(o.sessions, s)
	return s, nil
}

type memLedger struct {
	records   []types.CandidateLink
	lookupErr error
}

func (l *memLedger) Record(_ context.Context, url string, status types.LinkStatus, details string) error {
	l.records = append(l.records, types.CandidateLink{URL: url, Status: status, Details: details})
	return nil
}

func (l *memLedger) Effective(_ context.Context, url string) (types.LinkStatus, error) {
	if l.lookupErr != nil {
		return types.StatusNone, l.lookupErr
	}
	status := types.StatusNone
	for _, r := range l.records {
		if r.URL == url && !status.IsTerminal() {
			status = r.Status
		}
	}
	return status, nil
}

type staticDiscoverer struct {
	links []types.CandidateLink
	err   error
	query string
}

func (d *staticDiscoverer) Discover(_ context.Context, query string, _ int) ([]types.CandidateLink, error) {
	d.query = query
	return d.links, d.err
}

type fakeAnalyzer struct {
	analysis *interpret.PageAnalysis
	err      error
}

func (a *fakeAnalyzer) AnalyzePage(context.Context, []byte) (*interpret.PageAnalysis, error) {
	return a.analysis, a.err
}

const alexForm = `<form>
<label for="a">Full Name</label><input id="a">
<label for="b">High School</label><input id="b">
<label for="c">Weighted GPA</label><input id="c">
<button id="s" type="submit">Submit</button>
</form>`

func testSite() site {
	return site{
		"https://award.example":      {title: "Future Leaders Award", apply: "https://award.example/form"},
		"https://award.example/form": {title: "Application", html: alexForm},
		"https://news.example":       {title: "Scholarship news"},
	}
}

func alexLee() *types.Profile {
	return &types.Profile{Name: "Alex Lee", GradeLevel: "12", School: "Lincoln HS", GPAWeighted: "3.9"}
}

func fastNav() navigator.Options {
	return navigator.Options{
		PageLoadTimeout: 10 * time.Millisecond,
		FormWaitTimeout: 10 * time.Millisecond,
		PollInterval:    time.Millisecond,
	}
}
