// Package collyhook registers colly collector callbacks as subscriptions.
//
// colly detaches HTML and XML callbacks by selector, so the action returned by
// OnHTML or OnXML removes every callback sharing that selector. Response and
// error callbacks cannot be detached at all; OnResponse and OnError register a
// gated callback and the action closes the gate.
package collyhook

import (
	"errors"
	"sync/atomic"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/disposer/pkg/dispose"
)

var errNilCollector = errors.New("nil collector")

// OnHTML attaches cb for selector and returns the matching detach action.
func OnHTML(c *colly.Collector, selector string, cb colly.HTMLCallback) (dispose.Action, error) {
	if c == nil {
		return nil, errNilCollector
	}
	if selector == "" || cb == nil {
		return nil, errors.New("on html: selector and callback are required")
	}
	c.OnHTML(selector, cb)
	return dispose.Once(func() { c.OnHTMLDetach(selector) }), nil
}

// OnXML attaches cb for the XPath query and returns the matching detach action.
func OnXML(c *colly.Collector, query string, cb colly.XMLCallback) (dispose.Action, error) {
	if c == nil {
		return nil, errNilCollector
	}
	if query == "" || cb == nil {
		return nil, errors.New("on xml: query and callback are required")
	}
	c.OnXML(query, cb)
	return dispose.Once(func() { c.OnXMLDetach(query) }), nil
}

// OnResponse attaches a gated response callback.
func OnResponse(c *colly.Collector, cb colly.ResponseCallback) (dispose.Action, error) {
	if c == nil {
		return nil, errNilCollector
	}
	if cb == nil {
		return nil, errors.New("on response: nil callback")
	}
	var closed atomic.Bool
	c.OnResponse(func(r *colly.Response) {
		if !closed.Load() {
			cb(r)
		}
	})
	return func() { closed.Store(true) }, nil
}

// OnError attaches a gated error callback.
func OnError(c *colly.Collector, cb colly.ErrorCallback) (dispose.Action, error) {
	if c == nil {
		return nil, errNilCollector
	}
	if cb == nil {
		return nil, errors.New("on error: nil callback")
	}
	var closed atomic.Bool
	c.OnError(func(r *colly.Response, err error) {
		if !closed.Load() {
			cb(r, err)
		}
	})
	return func() { closed.Store(true) }, nil
}
