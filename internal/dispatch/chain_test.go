package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seltzer-io/seltzerd/internal/browser/browsertest"
	"github.com/seltzer-io/seltzerd/internal/protocol"
)

func TestChainAllSucceed(t *testing.T) {
	d, store := newTestDispatcher(t, &browsertest.Factory{})
	sess, _ := startSession(t, d, store)

	resp := d.Execute(context.Background(), protocol.Command{
		Type: protocol.CommandChain,
		ID:   sess.ID,
		Commands: []protocol.Command{
			{Type: protocol.CommandGoTo, ID: sess.ID, URL: "http://x/y"},
			{Type: protocol.CommandGetURL, ID: sess.ID},
		},
	})

	require.True(t, resp.Success)
	require.Equal(t, protocol.ResponseChain, resp.Type)
	require.Len(t, resp.Responses, 2)
	require.Equal(t, "http://x/y", resp.Responses[1].Result)
	for _, sub := range resp.Responses {
		require.Equal(t, sess.ID, sub.ID)
	}
}

func TestChainShortCircuits(t *testing.T) {
	d, store := newTestDispatcher(t, &browsertest.Factory{})
	sess, drv := startSession(t, d, store)

	resp := d.Execute(context.Background(), protocol.Command{
		Type: protocol.CommandChain,
		ID:   sess.ID,
		Commands: []protocol.Command{
			{Type: protocol.CommandGoTo, ID: sess.ID, URL: "http://x"},
			{Type: protocol.CommandGetCookie, ID: sess.ID, CookieName: "absent"},
			{Type: protocol.CommandGoTo, ID: sess.ID, URL: "http://never-reached"},
		},
	})

	require.False(t, resp.Success)
	require.Len(t, resp.Responses, 2, "the failing sub-command stops the chain")
	require.True(t, resp.Responses[0].Success)
	require.False(t, resp.Responses[1].Success)
	require.NotContains(t, drv.Calls(), "goTo http://never-reached")
}

func TestChainIdentityGuard(t *testing.T) {
	d, store := newTestDispatcher(t, &browsertest.Factory{})
	sess, drv := startSession(t, d, store)

	resp := d.Execute(context.Background(), protocol.Command{
		Type: protocol.CommandChain,
		ID:   sess.ID,
		Commands: []protocol.Command{
			{Type: protocol.CommandGoTo, ID: "some-other-session", URL: "http://evil"},
		},
	})

	require.False(t, resp.Success)
	require.Len(t, resp.Responses, 1)
	require.Equal(t, sess.ID, resp.Responses[0].ID,
		"the synthetic failure carries the chain's id, not the stray one")
	require.NotContains(t, drv.Calls(), "goTo http://evil",
		"the mismatched sub-command never reaches the driver")
}

func TestChainNested(t *testing.T) {
	d, store := newTestDispatcher(t, &browsertest.Factory{})
	sess, _ := startSession(t, d, store)

	resp := d.Execute(context.Background(), protocol.Command{
		Type: protocol.CommandChain,
		ID:   sess.ID,
		Commands: []protocol.Command{
			{Type: protocol.CommandGoTo, ID: sess.ID, URL: "http://x"},
			{
				Type: protocol.CommandChain,
				ID:   sess.ID,
				Commands: []protocol.Command{
					{Type: protocol.CommandGetURL, ID: sess.ID},
				},
			},
		},
	})

	require.True(t, resp.Success)
	require.Len(t, resp.Responses, 2)
	inner := resp.Responses[1]
	require.Equal(t, protocol.ResponseChain, inner.Type)
	require.Len(t, inner.Responses, 1)
	require.Equal(t, "http://x", inner.Responses[0].Result)
}

func TestChainEmptySucceeds(t *testing.T) {
	d, store := newTestDispatcher(t, &browsertest.Factory{})
	sess, _ := startSession(t, d, store)

	resp := d.Execute(context.Background(), protocol.Command{
		Type: protocol.CommandChain,
		ID:   sess.ID,
	})
	require.True(t, resp.Success)
	require.Empty(t, resp.Responses)
}

func TestChainStampsLastUsedOnce(t *testing.T) {
	d, store := newTestDispatcher(t, &browsertest.Factory{})
	sess, _ := startSession(t, d, store)

	d.Execute(context.Background(), protocol.Command{
		Type: protocol.CommandChain,
		ID:   sess.ID,
		Commands: []protocol.Command{
			{Type: protocol.CommandGetURL, ID: sess.ID},
		},
	})
	require.NotZero(t, sess.LastUsed())
}
