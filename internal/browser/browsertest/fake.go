// Package browsertest provides in-memory browser.Driver and browser.Factory
// implementations for tests that must not launch a real browser.
package browsertest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/seltzer-io/seltzerd/internal/browser"
)

// Driver is a scriptable in-memory browser.Driver. The zero value is not
// usable; call NewDriver.
type Driver struct {
	mu sync.Mutex

	// Page state visible to navigation and wait commands.
	url     string
	title   string
	back    []string
	forward []string

	// CookieValues backs Cookie lookups.
	CookieValues map[string]string

	// Elements maps a selector value to how many elements it resolves to.
	Elements map[string]int

	// FlakyResolves makes that many selector resolutions fail with
	// ErrNoSuchElement before they start succeeding. Exercises retry paths.
	FlakyResolves int

	// Err, when set, is returned by every driver call. Simulates a driver
	// that disappeared mid-operation.
	Err error

	calls      []string
	closeCount int
}

// NewDriver returns an empty fake positioned at about:blank.
func NewDriver() *Driver {
	return &Driver{
		url:          "about:blank",
		CookieValues: make(map[string]string),
		Elements:     make(map[string]int),
	}
}

// Calls returns the ordered operation log.
func (d *Driver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// CloseCount reports how many times Close ran.
func (d *Driver) CloseCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeCount
}

// SetTitle sets the fake page title.
func (d *Driver) SetTitle(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.title = title
}

func (d *Driver) record(op string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, op)
	return d.Err
}

func (d *Driver) Back(ctx context.Context) error {
	if err := d.record("back"); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := len(d.back); n > 0 {
		d.forward = append(d.forward, d.url)
		d.url = d.back[n-1]
		d.back = d.back[:n-1]
	}
	return nil
}

func (d *Driver) Forward(ctx context.Context) error {
	if err := d.record("forward"); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := len(d.forward); n > 0 {
		d.back = append(d.back, d.url)
		d.url = d.forward[n-1]
		d.forward = d.forward[:n-1]
	}
	return nil
}

func (d *Driver) GoTo(ctx context.Context, url string) error {
	if err := d.record("goTo " + url); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.back = append(d.back, d.url)
	d.url = url
	d.forward = nil
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	if err := d.record("currentURL"); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url, nil
}

func (d *Driver) Cookie(ctx context.Context, name string) (string, error) {
	if err := d.record("cookie " + name); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.CookieValues[name], nil
}

func (d *Driver) Click(ctx context.Context, sel browser.Selector) error {
	return d.elementOp("click", sel)
}

func (d *Driver) Delete(ctx context.Context, sel browser.Selector) error {
	return d.elementOp("delete", sel)
}

func (d *Driver) Fill(ctx context.Context, sel browser.Selector, text string) error {
	return d.elementOp("fill "+text, sel)
}

func (d *Driver) SendKey(ctx context.Context, sel browser.Selector, key string) error {
	return d.elementOp("sendKey "+key, sel)
}

func (d *Driver) SendKeys(ctx context.Context, sel browser.Selector, text string) error {
	return d.elementOp("sendKeys "+text, sel)
}

func (d *Driver) Count(ctx context.Context, sel browser.Selector) (int, error) {
	if err := d.record("count " + sel.Value); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Elements[sel.Value], nil
}

func (d *Driver) Submit(ctx context.Context, sel browser.Selector) error {
	return d.elementOp("submit", sel)
}

func (d *Driver) elementOp(op string, sel browser.Selector) error {
	if err := d.record(op + " " + sel.Value); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FlakyResolves > 0 {
		d.FlakyResolves--
		return browser.ErrNoSuchElement
	}
	if d.Elements[sel.Value] == 0 {
		return browser.ErrNoSuchElement
	}
	return nil
}

func (d *Driver) WaitUntil(ctx context.Context, cond browser.Condition, timeout time.Duration) error {
	if err := d.record("wait " + string(cond.Kind)); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ok := false
	switch cond.Kind {
	case browser.ConditionElementPresent:
		ok = d.Elements[cond.Selector.Value] > 0
	case browser.ConditionElementNotPresent:
		ok = d.Elements[cond.Selector.Value] == 0
	case browser.ConditionElementVisible:
		ok = d.Elements[cond.Selector.Value] > 0
	case browser.ConditionTitleIs:
		ok = d.title == cond.Match
	case browser.ConditionTitleContains:
		ok = strings.Contains(d.title, cond.Match)
	case browser.ConditionURLIs:
		ok = d.url == cond.Match
	case browser.ConditionURLContains:
		ok = strings.Contains(d.url, cond.Match)
	}
	if !ok {
		return browser.ErrWaitTimeout
	}
	return nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeCount++
	return nil
}

// Factory hands out fake drivers and records the options each open saw.
type Factory struct {
	mu sync.Mutex

	// OpenErr, when set, fails every Open call.
	OpenErr error

	// Prepare, when set, runs against each new driver before it is
	// returned, letting a test seed cookies or elements.
	Prepare func(*Driver)

	opened []*Driver
	opts   []browser.Options
}

func (f *Factory) Open(ctx context.Context, opts browser.Options) (browser.Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	d := NewDriver()
	if f.Prepare != nil {
		f.Prepare(d)
	}
	f.opened = append(f.opened, d)
	f.opts = append(f.opts, opts)
	return d, nil
}

// Opened returns every driver handed out so far.
func (f *Factory) Opened() []*Driver {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Driver(nil), f.opened...)
}

// Options returns the options of every Open call in order.
func (f *Factory) Options() []browser.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]browser.Options(nil), f.opts...)
}
