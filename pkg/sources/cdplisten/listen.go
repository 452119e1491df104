// Package cdplisten ties chromedp event listeners to a subscription.
//
// chromedp drops a listener once the context it was registered with is done,
// so each listener gets its own child context and the action cancels it.
package cdplisten

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/disposer/pkg/dispose"
)

// ErrNotAllocated is returned before the first chromedp.Run on ctx.
var ErrNotAllocated = errors.New("chromedp: target not allocated")

// Handler receives raw CDP events (e.g. *network.EventResponseReceived).
type Handler func(ev any)

// Target listens for events on the tab owned by ctx.
func Target(ctx context.Context, fn Handler) (dispose.Action, error) {
	c, err := fromContext(ctx, fn)
	if err != nil {
		return nil, err
	}
	if c.Target == nil {
		return nil, fmt.Errorf("listen target: %w", ErrNotAllocated)
	}
	lctx, cancel := context.WithCancel(ctx)
	chromedp.ListenTarget(lctx, fn)
	return dispose.Action(cancel), nil
}

// Browser listens for browser-level events on the browser owning ctx.
func Browser(ctx context.Context, fn Handler) (dispose.Action, error) {
	c, err := fromContext(ctx, fn)
	if err != nil {
		return nil, err
	}
	if c.Browser == nil {
		return nil, fmt.Errorf("listen browser: %w", ErrNotAllocated)
	}
	lctx, cancel := context.WithCancel(ctx)
	chromedp.ListenBrowser(lctx, fn)
	return dispose.Action(cancel), nil
}

func fromContext(ctx context.Context, fn Handler) (*chromedp.Context, error) {
	if fn == nil {
		return nil, errors.New("listen: nil handler")
	}
	c := chromedp.FromContext(ctx)
	if c == nil {
		return nil, fmt.Errorf("listen: %w", chromedp.ErrInvalidContext)
	}
	return c, nil
}
