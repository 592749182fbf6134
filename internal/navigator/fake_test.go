package navigator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type fakeLink struct {
	text     string
	target   string
	newTab   bool
	clickErr error
	selector string // matched by Query besides "a, button"
}

type fakePage struct {
	title string
	body  string
	html  string
	links []fakeLink
}

type fakeDriver struct {
	pages   map[string]*fakePage
	tabs    []string // tabs[i] is the url shown in handles[i]
	handles []string
	active  int
	loads   []string
	clicks  []string
	readyIn int // Ready returns false this many times first
}

func newFakeDriver(pages map[string]*fakePage) *fakeDriver {
	return &fakeDriver{pages: pages}
}

func (d *fakeDriver) page() *fakePage {
	if len(d.tabs) == 0 {
		return &fakePage{}
	}
	if p, ok := d.pages[d.tabs[d.active]]; ok {
		return p
	}
	return &fakePage{}
}

func (d *fakeDriver) Load(_ context.Context, url string) error {
	if _, ok := d.pages[url]; !ok {
		return errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	d.loads = append(d.loads, url)
	if len(d.tabs) == 0 {
		d.tabs = []string{url}
		d.handles = []string{"tab-0"}
		return nil
	}
	d.tabs[d.active] = url
	return nil
}

func (d *fakeDriver) URL(context.Context) (string, error) {
	if len(d.tabs) == 0 {
		return "", errors.New("no page")
	}
	return d.tabs[d.active], nil
}

func (d *fakeDriver) Title(context.Context) (string, error)    { return d.page().title, nil }
func (d *fakeDriver) BodyText(context.Context) (string, error) { return d.page().body, nil }
func (d *fakeDriver) HTML(context.Context) (string, error)     { return d.page().html, nil }

func (d *fakeDriver) Query(_ context.Context, selector string) ([]Element, error) {
	p := d.page()
	var out []Element
	switch selector {
	case "a, button", "button":
		for i := range p.links {
			out = append(out, &fakeElement{driver: d, link: p.links[i]})
		}
	case "form, input, textarea, select":
		if strings.Contains(p.html, "<input") || strings.Contains(p.html, "<textarea") || strings.Contains(p.html, "<select") {
			out = append(out, &fakeElement{driver: d})
		}
	default:
		for i := range p.links {
			if p.links[i].selector == selector {
				out = append(out, &fakeElement{driver: d, link: p.links[i]})
			}
		}
	}
	return out, nil
}

func (d *fakeDriver) Ready(context.Context) (bool, error) {
	if d.readyIn > 0 {
		d.readyIn--
		return false, nil
	}
	return true, nil
}

func (d *fakeDriver) Contexts(context.Context) ([]string, error) {
	return append([]string(nil), d.handles...), nil
}

func (d *fakeDriver) SwitchContext(_ context.Context, handle string) error {
	for i, h := range d.handles {
		if h == handle {
			d.active = i
			return nil
		}
	}
	return fmt.Errorf("no context %s", handle)
}

func (d *fakeDriver) Screenshot(context.Context) ([]byte, error) {
	return []byte("png:" + d.tabs[d.active]), nil
}

type fakeElement struct {
	driver *fakeDriver
	link   fakeLink
}

func (e *fakeElement) Text(context.Context) (string, error) { return e.link.text, nil }

func (e *fakeElement) Attribute(context.Context, string) (string, error) { return "", nil }

func (e *fakeElement) Click(context.Context) error {
	if e.link.clickErr != nil {
		return e.link.clickErr
	}
	d := e.driver
	d.clicks = append(d.clicks, e.link.text)
	if e.link.target == "" {
		return nil
	}
	if e.link.newTab {
		d.tabs = append(d.tabs, e.link.target)
		d.handles = append(d.handles, fmt.Sprintf("tab-%d", len(d.handles)))
		return nil
	}
	d.tabs[d.active] = e.link.target
	return nil
}

type fakePauser struct {
	messages []string
	onPause  func()
	err      error
}

func (p *fakePauser) Confirm(_ context.Context, message string) error {
	p.messages = append(p.messages, message)
	if p.onPause != nil {
		p.onPause()
	}
	return p.err
}

func fastOptions() Options {
	return Options{
		MaxSteps:        5,
		PageLoadTimeout: 20 * time.Millisecond,
		FormWaitTimeout: 20 * time.Millisecond,
		PollInterval:    time.Millisecond,
	}
}

const formHTML = `<html><body><form>
<label for="fname">Full Name</label><input id="fname" type="text">
<label for="school">High School</label><input id="school" name="school">
<label>Weighted GPA <input name="gpa" type="number"></label>
<input type="hidden" name="csrf" value="x">
<button type="submit" id="go">Submit</button>
</form></body></html>`
