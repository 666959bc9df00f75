//go:build integration

package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/seltzer-io/seltzerd/internal/browser"
)

func openDriver(t *testing.T) browser.Driver {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	drv, err := browser.NewFactory().Open(ctx, browser.Options{
		Headless:          true,
		UserDataDir:       t.TempDir(),
		NavigationTimeout: 10 * time.Second,
	})
	require.NoError(t, err, "failed to launch browser")
	t.Cleanup(func() {
		if err := drv.Close(); err != nil {
			t.Logf("close error: %v", err)
		}
	})
	return drv
}

func TestRodDriver_Navigation_Integration(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "flavor", Value: "lime"})
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintln(w, `<html><head><title>Landing</title></head><body><h1>Hello</h1></body></html>`)
	}))
	defer ts.Close()

	drv := openDriver(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, drv.GoTo(ctx, ts.URL+"/landing"))

	url, err := drv.CurrentURL(ctx)
	require.NoError(t, err)
	require.Equal(t, ts.URL+"/landing", url)

	require.NoError(t, drv.WaitUntil(ctx, browser.Condition{
		Kind:  browser.ConditionTitleIs,
		Match: "Landing",
	}, 5*time.Second))

	value, err := drv.Cookie(ctx, "flavor")
	require.NoError(t, err)
	require.Equal(t, "lime", value)

	missing, err := drv.Cookie(ctx, "no-such-cookie")
	require.NoError(t, err)
	require.Empty(t, missing)
}

func TestRodDriver_Elements_Integration(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintln(w, `
			<html>
			<body>
				<button id="btn1">Click Me</button>
				<input id="inp1" name="query" type="text" />
				<ul>
					<li class="item">a</li>
					<li class="item">b</li>
					<li class="item">c</li>
				</ul>
			</body>
			</html>
		`)
	}))
	defer ts.Close()

	drv := openDriver(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, drv.GoTo(ctx, ts.URL))

	n, err := drv.Count(ctx, browser.Selector{Kind: browser.SelectorClassName, Value: "item"})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	require.NoError(t, drv.Click(ctx, browser.Selector{Kind: browser.SelectorID, Value: "btn1"}))
	require.NoError(t, drv.SendKeys(ctx, browser.Selector{Kind: browser.SelectorName, Value: "query"}, "hello"))

	require.NoError(t, drv.Delete(ctx, browser.Selector{Kind: browser.SelectorID, Value: "btn1"}))
	n, err = drv.Count(ctx, browser.Selector{Kind: browser.SelectorID, Value: "btn1"})
	require.NoError(t, err)
	require.Equal(t, 0, n)

	err = drv.Click(ctx, browser.Selector{Kind: browser.SelectorID, Value: "btn1"})
	require.ErrorIs(t, err, browser.ErrNoSuchElement)
}
