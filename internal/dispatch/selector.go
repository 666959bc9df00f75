package dispatch

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/seltzer-io/seltzerd/internal/browser"
	"github.com/seltzer-io/seltzerd/internal/protocol"
	"github.com/seltzer-io/seltzerd/internal/session"
)

// selectorCommand runs one selector-based command, retrying when the target
// element has not resolved yet. Fresh navigations routinely race the DOM, so
// a miss is retried a few times before it becomes a failed response.
func (d *Dispatcher) selectorCommand(ctx context.Context, sess *session.Session, cmd protocol.Command) protocol.Response {
	sel := toSelector(cmd.Selector)

	var resp protocol.Response
	var err error
	for attempt := 1; ; attempt++ {
		resp, err = d.runSelector(ctx, sess.Driver, cmd, sel)
		if err == nil {
			return resp
		}
		if attempt >= selectorRetries || ctx.Err() != nil {
			break
		}
		d.logger.Debug("selector attempt failed",
			zap.String("command", string(cmd.Type)),
			zap.Int("attempt", attempt),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return protocol.NewResponse(cmd.ID, false)
		case <-time.After(d.retryWait):
		}
	}

	d.logger.Debug("selector command failed",
		zap.String("command", string(cmd.Type)),
		zap.String("selector", cmd.Selector.Value),
		zap.Error(err))
	return protocol.NewResponse(cmd.ID, false)
}

func (d *Dispatcher) runSelector(ctx context.Context, drv browser.Driver, cmd protocol.Command, sel browser.Selector) (protocol.Response, error) {
	var err error
	switch cmd.Type {
	case protocol.CommandClick:
		err = drv.Click(ctx, sel)
	case protocol.CommandDelete:
		err = drv.Delete(ctx, sel)
	case protocol.CommandFillField:
		err = drv.Fill(ctx, sel, cmd.Text)
	case protocol.CommandSendKey:
		err = drv.SendKey(ctx, sel, cmd.Key)
	case protocol.CommandSendKeys:
		err = drv.SendKeys(ctx, sel, cmd.Text)
	case protocol.CommandFormSubmit:
		err = drv.Submit(ctx, sel)
	case protocol.CommandCount:
		// Zero matches is a valid count, not a miss; no retry loop here.
		n, countErr := drv.Count(ctx, sel)
		if countErr != nil {
			return protocol.Response{}, countErr
		}
		return protocol.SingleResult(cmd.ID, strconv.Itoa(n)), nil
	}
	if err != nil {
		return protocol.Response{}, err
	}
	return protocol.NewResponse(cmd.ID, true), nil
}
