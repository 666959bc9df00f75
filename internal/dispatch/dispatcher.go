// Package dispatch routes command descriptors to their handlers and drives
// chain execution. It owns the failure policy: handler errors become failed
// responses, never crashes, and nothing here takes the process down.
package dispatch

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/seltzer-io/seltzerd/internal/browser"
	"github.com/seltzer-io/seltzerd/internal/protocol"
	"github.com/seltzer-io/seltzerd/internal/session"
)

const (
	// selectorRetries bounds how often a selector-based command is retried
	// when the element has not materialized yet.
	selectorRetries = 4

	defaultRetryWait   = 8 * time.Second
	defaultWaitTimeout = 30 * time.Second
)

// Dispatcher executes commands against sessions.
type Dispatcher struct {
	store     *session.Store
	lifecycle *session.Lifecycle
	logger    *zap.Logger

	// retryWait separates selector retry attempts; shortened in tests.
	retryWait time.Duration
}

// NewDispatcher wires a dispatcher over the registry and lifecycle.
func NewDispatcher(store *session.Store, lifecycle *session.Lifecycle, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		lifecycle: lifecycle,
		logger:    logger,
		retryWait: defaultRetryWait,
	}
}

// Execute is the boundary entry point: it resolves the command's target
// session and dispatches. Start commands create their session instead of
// resolving one; a command for an unknown session yields a failed response,
// never an error.
func (d *Dispatcher) Execute(ctx context.Context, cmd protocol.Command) protocol.Response {
	if cmd.Type == protocol.CommandStart {
		resp := d.startSession(ctx, cmd)
		resp.ID = cmd.ID
		return resp
	}

	sess, ok := d.store.Find(cmd.ID)
	if !ok {
		d.logger.Debug("command for unknown session",
			zap.String("session_id", cmd.ID),
			zap.String("command", string(cmd.Type)))
		return protocol.NewResponse(cmd.ID, false)
	}
	return d.Dispatch(ctx, sess, cmd)
}

// Dispatch routes one command against a resolved session. The session's
// last-used stamp is updated first, and the command's target id is attached
// to the response unconditionally, overwriting anything a handler set.
//
// Commands are not serialized per session: two clients racing the same
// session interleave at the driver, and the one that loses a race against
// the reaper sees its calls fail.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *session.Session, cmd protocol.Command) protocol.Response {
	sess.Touch()

	var resp protocol.Response
	switch cmd.Type {
	case protocol.CommandStart:
		resp = d.startSession(ctx, cmd)

	case protocol.CommandExit:
		resp = d.exit(sess)

	case protocol.CommandBack:
		resp = d.basic(cmd, sess.Driver.Back(ctx))

	case protocol.CommandForward:
		resp = d.basic(cmd, sess.Driver.Forward(ctx))

	case protocol.CommandGoTo:
		resp = d.basic(cmd, sess.Driver.GoTo(ctx, cmd.URL))

	case protocol.CommandGetURL:
		resp = d.getURL(ctx, sess, cmd)

	case protocol.CommandGetCookie:
		resp = d.getCookie(ctx, sess, cmd)

	case protocol.CommandGetCookies:
		resp = d.getCookies(ctx, sess, cmd)

	case protocol.CommandGetCookieFile:
		resp = d.getCookieFile(sess, cmd)

	case protocol.CommandClick, protocol.CommandDelete, protocol.CommandFillField,
		protocol.CommandSendKey, protocol.CommandSendKeys, protocol.CommandCount,
		protocol.CommandFormSubmit:
		resp = d.selectorCommand(ctx, sess, cmd)

	case protocol.CommandWait:
		resp = d.waitCommand(ctx, sess, cmd)

	case protocol.CommandChain:
		resp = d.executeChain(ctx, sess, cmd)

	default:
		d.logger.Debug("unrecognized command type", zap.String("type", string(cmd.Type)))
		resp = protocol.NewResponse(cmd.ID, false)
	}

	resp.ID = cmd.ID
	return resp
}

func (d *Dispatcher) startSession(ctx context.Context, cmd protocol.Command) protocol.Response {
	sess, err := d.lifecycle.Start(ctx)
	if err != nil {
		d.logger.Error("session start failed", zap.Error(err))
		return protocol.NewResponse(cmd.ID, false)
	}
	return protocol.SingleResult(cmd.ID, sess.ID)
}

func (d *Dispatcher) exit(sess *session.Session) protocol.Response {
	// Closure mostly succeeds even when cleanup grumbles; the session is
	// gone from the registry either way.
	if err := d.lifecycle.Close(sess); err != nil {
		d.logger.Warn("session exit", zap.String("session_id", sess.ID), zap.Error(err))
	}
	return protocol.NewResponse(sess.ID, true)
}

func (d *Dispatcher) basic(cmd protocol.Command, err error) protocol.Response {
	if err != nil {
		d.logger.Debug("command failed",
			zap.String("command", string(cmd.Type)),
			zap.String("session_id", cmd.ID),
			zap.Error(err))
		return protocol.NewResponse(cmd.ID, false)
	}
	return protocol.NewResponse(cmd.ID, true)
}

func (d *Dispatcher) getURL(ctx context.Context, sess *session.Session, cmd protocol.Command) protocol.Response {
	url, err := sess.Driver.CurrentURL(ctx)
	if err != nil {
		return d.basic(cmd, err)
	}
	return protocol.SingleResult(cmd.ID, url)
}

func (d *Dispatcher) getCookie(ctx context.Context, sess *session.Session, cmd protocol.Command) protocol.Response {
	value, err := sess.Driver.Cookie(ctx, cmd.CookieName)
	if err != nil {
		return d.basic(cmd, err)
	}
	if value == "" {
		return protocol.NewResponse(cmd.ID, false)
	}
	return protocol.SingleResult(cmd.ID, value)
}

// getCookies succeeds when at least one requested cookie is set; missing or
// empty values are skipped without failing the command. The single-cookie
// lookup above is stricter. Asymmetric on purpose, for wire compatibility
// with existing clients.
func (d *Dispatcher) getCookies(ctx context.Context, sess *session.Session, cmd protocol.Command) protocol.Response {
	resp := protocol.Response{Type: protocol.ResponseMultiResult, ID: cmd.ID}
	for _, name := range cmd.CookieNames {
		value, err := sess.Driver.Cookie(ctx, name)
		if err != nil {
			return d.basic(cmd, err)
		}
		if value == "" {
			continue
		}
		resp.Results = append(resp.Results, value)
		resp.Success = true
	}
	return resp
}

// getCookieFile returns the session's on-disk Chromium cookie store,
// base64-encoded. The file lives under the session's private profile
// directory.
func (d *Dispatcher) getCookieFile(sess *session.Session, cmd protocol.Command) protocol.Response {
	path := filepath.Join(sess.WorkDir, "Default", "Cookies")
	data, err := os.ReadFile(path)
	if err != nil {
		d.logger.Debug("cookie store read",
			zap.String("session_id", sess.ID),
			zap.String("path", path),
			zap.Error(err))
		return protocol.NewResponse(cmd.ID, false)
	}
	return protocol.SingleResult(cmd.ID, base64.StdEncoding.EncodeToString(data))
}

func (d *Dispatcher) waitCommand(ctx context.Context, sess *session.Session, cmd protocol.Command) protocol.Response {
	timeout := time.Duration(cmd.Seconds) * time.Second
	if timeout <= 0 {
		timeout = defaultWaitTimeout
	}
	cond := browser.Condition{
		Kind:     browser.ConditionKind(cmd.Condition),
		Selector: toSelector(cmd.Selector),
		Match:    cmd.Match,
	}
	return d.basic(cmd, sess.Driver.WaitUntil(ctx, cond, timeout))
}

func toSelector(sel protocol.Selector) browser.Selector {
	return browser.Selector{Kind: browser.SelectorKind(sel.Type), Value: sel.Value}
}
