// Package browser drives one Chromium instance per automation session over
// CDP. The Driver interface is the capability a session owns exclusively;
// the rest of the server never touches rod directly.
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDriverStart reports that a browser instance could not be opened,
	// e.g. the Chromium binary is missing. Fatal to that one start only.
	ErrDriverStart = errors.New("browser: driver start failed")

	// ErrNoSuchElement reports that a selector resolved zero elements.
	ErrNoSuchElement = errors.New("browser: no matching element")

	// ErrUnknownKey reports an unrecognized key name in a sendKey command.
	ErrUnknownKey = errors.New("browser: unknown key name")

	// ErrWaitTimeout reports a wait condition that never held.
	ErrWaitTimeout = errors.New("browser: wait condition not met")
)

// SelectorKind names an element resolution strategy.
type SelectorKind string

const (
	SelectorCSS             SelectorKind = "css"
	SelectorID              SelectorKind = "id"
	SelectorName            SelectorKind = "name"
	SelectorClassName       SelectorKind = "class"
	SelectorTagName         SelectorKind = "tag"
	SelectorLinkText        SelectorKind = "linkText"
	SelectorPartialLinkText SelectorKind = "partialLinkText"
	SelectorXPath           SelectorKind = "xpath"
)

// Selector pairs a resolution strategy with its query text.
type Selector struct {
	Kind  SelectorKind
	Value string
}

// ConditionKind names a wait condition.
type ConditionKind string

const (
	ConditionElementPresent    ConditionKind = "elementPresent"
	ConditionElementNotPresent ConditionKind = "elementNotPresent"
	ConditionElementVisible    ConditionKind = "elementVisible"
	ConditionTitleIs           ConditionKind = "titleIs"
	ConditionTitleContains     ConditionKind = "titleContains"
	ConditionURLIs             ConditionKind = "urlIs"
	ConditionURLContains       ConditionKind = "urlContains"
)

// Condition is a predicate WaitUntil polls for. Selector is only read by the
// element conditions, Match only by the title and URL comparisons.
type Condition struct {
	Kind     ConditionKind
	Selector Selector
	Match    string
}

// Driver is the agent-control capability behind one session. Calls may block
// on browser I/O; Close must be safe to call more than once.
type Driver interface {
	Back(ctx context.Context) error
	Forward(ctx context.Context) error
	GoTo(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)

	// Cookie returns the named cookie's value, or "" if it is not set.
	Cookie(ctx context.Context, name string) (string, error)

	Click(ctx context.Context, sel Selector) error
	Delete(ctx context.Context, sel Selector) error
	Fill(ctx context.Context, sel Selector, text string) error
	SendKey(ctx context.Context, sel Selector, key string) error
	SendKeys(ctx context.Context, sel Selector, text string) error
	Count(ctx context.Context, sel Selector) (int, error)
	Submit(ctx context.Context, sel Selector) error

	WaitUntil(ctx context.Context, cond Condition, timeout time.Duration) error

	Close() error
}

// Options configure a new driver instance.
type Options struct {
	Headless          bool
	UserDataDir       string
	Bin               string
	NavigationTimeout time.Duration
}

// Factory opens driver instances. The production factory launches Chromium;
// tests substitute an in-memory one.
type Factory interface {
	Open(ctx context.Context, opts Options) (Driver, error)
}
