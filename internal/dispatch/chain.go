package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/seltzer-io/seltzerd/internal/protocol"
	"github.com/seltzer-io/seltzerd/internal/session"
)

// executeChain runs a chain's sub-commands in submission order against one
// session, fail-fast: the first failed sub-response stops the chain, and the
// aggregate success is the AND of everything that ran. Sub-commands may
// themselves be chains.
func (d *Dispatcher) executeChain(ctx context.Context, sess *session.Session, cmd protocol.Command) protocol.Response {
	resp := protocol.NewChainResponse(cmd.ID)

	for _, sub := range cmd.Commands {
		var subResp protocol.Response
		if sub.ID != cmd.ID {
			// A sub-command addressing a different session never reaches
			// the driver; it shows up as a failed sub-response carrying the
			// chain's own id.
			d.logger.Warn("chain sub-command id mismatch",
				zap.String("chain_id", cmd.ID),
				zap.String("sub_id", sub.ID),
				zap.String("command", string(sub.Type)))
			subResp = protocol.NewResponse(cmd.ID, false)
		} else {
			subResp = d.Dispatch(ctx, sess, sub)
		}

		resp.Success = resp.Success && subResp.Success
		resp.Responses = append(resp.Responses, subResp)

		if !resp.Success {
			break
		}
	}

	return resp
}
