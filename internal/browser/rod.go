package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

const waitPollInterval = 250 * time.Millisecond

const defaultNavigationTimeout = 30 * time.Second

// RodFactory launches a dedicated Chromium per Open call.
type RodFactory struct{}

// NewFactory returns the production driver factory.
func NewFactory() Factory {
	return RodFactory{}
}

// Open launches Chromium with the session's profile directory and connects a
// control page. The returned driver owns the whole browser process.
func (RodFactory) Open(ctx context.Context, opts Options) (Driver, error) {
	l := launcher.New().Headless(opts.Headless).Leakless(true)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	if opts.UserDataDir != "" {
		l = l.UserDataDir(opts.UserDataDir)
	}
	if opts.Headless {
		l = l.Set(flags.Flag("disable-gpu"))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: launch chromium: %v", ErrDriverStart, err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: connect to chromium: %v", ErrDriverStart, err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("%w: open page: %v", ErrDriverStart, err)
	}

	navTimeout := opts.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = defaultNavigationTimeout
	}

	return &rodDriver{
		launcher:   l,
		browser:    b,
		page:       page,
		navTimeout: navTimeout,
	}, nil
}

type rodDriver struct {
	launcher   *launcher.Launcher
	browser    *rod.Browser
	page       *rod.Page
	navTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func (d *rodDriver) Back(ctx context.Context) error {
	return d.page.Context(ctx).NavigateBack()
}

func (d *rodDriver) Forward(ctx context.Context) error {
	return d.page.Context(ctx).NavigateForward()
}

func (d *rodDriver) GoTo(ctx context.Context, url string) error {
	p := d.page.Context(ctx).Timeout(d.navTimeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return p.WaitLoad()
}

func (d *rodDriver) CurrentURL(ctx context.Context) (string, error) {
	info, err := d.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, nil
}

func (d *rodDriver) Cookie(ctx context.Context, name string) (string, error) {
	res, err := proto.NetworkGetCookies{}.Call(d.page.Context(ctx))
	if err != nil {
		return "", fmt.Errorf("get cookies: %w", err)
	}
	for _, c := range res.Cookies {
		if c.Name == name {
			return c.Value, nil
		}
	}
	return "", nil
}

func (d *rodDriver) Click(ctx context.Context, sel Selector) error {
	el, err := d.first(ctx, sel)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (d *rodDriver) Delete(ctx context.Context, sel Selector) error {
	el, err := d.first(ctx, sel)
	if err != nil {
		return err
	}
	return el.Remove()
}

func (d *rodDriver) Fill(ctx context.Context, sel Selector, text string) error {
	el, err := d.first(ctx, sel)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select text: %w", err)
	}
	return el.Input(text)
}

// keyNames maps wire-level key names to CDP keys. Printable text goes
// through SendKeys instead.
var keyNames = map[string]input.Key{
	"enter":      input.Enter,
	"tab":        input.Tab,
	"escape":     input.Escape,
	"backspace":  input.Backspace,
	"delete":     input.Delete,
	"arrowUp":    input.ArrowUp,
	"arrowDown":  input.ArrowDown,
	"arrowLeft":  input.ArrowLeft,
	"arrowRight": input.ArrowRight,
}

func (d *rodDriver) SendKey(ctx context.Context, sel Selector, key string) error {
	k, ok := keyNames[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	el, err := d.first(ctx, sel)
	if err != nil {
		return err
	}
	return el.Type(k)
}

func (d *rodDriver) SendKeys(ctx context.Context, sel Selector, text string) error {
	el, err := d.first(ctx, sel)
	if err != nil {
		return err
	}
	return el.Input(text)
}

func (d *rodDriver) Count(ctx context.Context, sel Selector) (int, error) {
	els, err := d.elements(ctx, sel)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

func (d *rodDriver) Submit(ctx context.Context, sel Selector) error {
	el, err := d.first(ctx, sel)
	if err != nil {
		return err
	}
	_, err = el.Eval(`() => { const f = this.form || this; f.submit(); }`)
	return err
}

func (d *rodDriver) WaitUntil(ctx context.Context, cond Condition, timeout time.Duration) error {
	switch cond.Kind {
	case ConditionElementPresent, ConditionElementNotPresent, ConditionElementVisible,
		ConditionTitleIs, ConditionTitleContains, ConditionURLIs, ConditionURLContains:
	default:
		return fmt.Errorf("unsupported wait condition %q", cond.Kind)
	}

	deadline := time.Now().Add(timeout)
	for {
		ok, err := d.holds(ctx, cond)
		if err == nil && ok {
			return nil
		}
		if time.Now().After(deadline) {
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrWaitTimeout, cond.Kind, err)
			}
			return fmt.Errorf("%w: %s", ErrWaitTimeout, cond.Kind)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitPollInterval):
		}
	}
}

func (d *rodDriver) holds(ctx context.Context, cond Condition) (bool, error) {
	switch cond.Kind {
	case ConditionElementPresent:
		n, err := d.Count(ctx, cond.Selector)
		return n > 0, err
	case ConditionElementNotPresent:
		n, err := d.Count(ctx, cond.Selector)
		return n == 0, err
	case ConditionElementVisible:
		els, err := d.elements(ctx, cond.Selector)
		if err != nil || len(els) == 0 {
			return false, err
		}
		return els.First().Visible()
	case ConditionTitleIs:
		title, err := d.title(ctx)
		return title == cond.Match, err
	case ConditionTitleContains:
		title, err := d.title(ctx)
		return strings.Contains(title, cond.Match), err
	case ConditionURLIs:
		url, err := d.CurrentURL(ctx)
		return url == cond.Match, err
	case ConditionURLContains:
		url, err := d.CurrentURL(ctx)
		return strings.Contains(url, cond.Match), err
	}
	return false, nil
}

func (d *rodDriver) title(ctx context.Context) (string, error) {
	info, err := d.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

// Close tears down the whole browser process. Safe to call repeatedly; a
// session being reaped while a command is in flight leads to exactly that.
func (d *rodDriver) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.browser.Close()
		d.launcher.Kill()
	})
	return d.closeErr
}

func (d *rodDriver) first(ctx context.Context, sel Selector) (*rod.Element, error) {
	els, err := d.elements(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s=%q", ErrNoSuchElement, sel.Kind, sel.Value)
	}
	return els.First(), nil
}

func (d *rodDriver) elements(ctx context.Context, sel Selector) (rod.Elements, error) {
	p := d.page.Context(ctx)
	switch sel.Kind {
	case SelectorCSS:
		return p.Elements(sel.Value)
	case SelectorID:
		return p.Elements("#" + sel.Value)
	case SelectorClassName:
		return p.Elements("." + sel.Value)
	case SelectorTagName:
		return p.Elements(sel.Value)
	case SelectorName:
		return p.Elements(fmt.Sprintf("[name=%q]", sel.Value))
	case SelectorXPath:
		return p.ElementsX(sel.Value)
	case SelectorLinkText:
		return p.ElementsX(fmt.Sprintf("//a[normalize-space(text())=%q]", sel.Value))
	case SelectorPartialLinkText:
		return p.ElementsX(fmt.Sprintf("//a[contains(text(), %q)]", sel.Value))
	default:
		return nil, fmt.Errorf("unsupported selector kind %q", sel.Kind)
	}
}
