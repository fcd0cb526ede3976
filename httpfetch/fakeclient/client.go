// Package fakeclient is an in-memory httpfetch.Client for unit tests, so
// scriptmgr/session tests never open a real socket. Grounded on
// EdgeComet-engine's tests/acceptance/*/testutil route-keyed fixture
// servers (TestServer mapping a URL path to a canned response) —
// generalized here to skip the real net/http.Server entirely and answer
// requests straight out of a registered-by-URL map.
package fakeclient

import (
	"fmt"
	"time"

	"github.com/kallowynd/pageruntime/httpfetch"
)

// Fixture is one canned response (or error) for a URL.
type Fixture struct {
	Status int
	Header map[string][]string
	Body   []byte
	Err    error
	// Delay defers this fixture's delivery until Tick has been called
	// Delay+1 times, to exercise callers that poll Tick in a loop instead
	// of assuming synchronous completion.
	Delay int
}

// Client is the fake httpfetch.Client.
type Client struct {
	fixtures map[string]Fixture
	ready    []func()
	aborted  map[*handle]bool
}

// New constructs an empty fake client. Register responses with Set before
// issuing requests; an unregistered URL resolves with a NetworkError-style
// "no fixture" error, mirroring a real client against an unreachable host.
func New() *Client {
	return &Client{
		fixtures: make(map[string]Fixture),
		aborted:  make(map[*handle]bool),
	}
}

// Set registers (or replaces) the fixture returned for url.
func (c *Client) Set(url string, fx Fixture) { c.fixtures[url] = fx }

type handle struct {
	client *Client
}

func (h *handle) Abort() { h.client.aborted[h] = true }

// Request looks up the fixture for opts.URL and schedules delivery either
// immediately or after Delay additional Tick calls.
func (c *Client) Request(opts httpfetch.RequestOptions) (httpfetch.RequestHandle, error) {
	if opts.StartCallback != nil {
		opts.StartCallback()
	}
	h := &handle{client: c}
	c.aborted[h] = false
	fx, ok := c.fixtures[opts.URL]
	if !ok {
		fx = Fixture{Err: fmt.Errorf("fakeclient: no fixture registered for %q", opts.URL)}
	}
	c.schedule(fx.Delay, func() {
		if c.aborted[h] {
			if opts.ErrorCallback != nil {
				opts.ErrorCallback(httpfetch.ErrAborted)
			}
			return
		}
		deliver(opts, fx)
	})
	return h, nil
}

// BlockingRequest resolves the fixture synchronously, ignoring Delay (a
// real blockingGet spin-ticks until the request resolves; here it already
// has).
func (c *Client) BlockingRequest(opts httpfetch.RequestOptions) (*httpfetch.Response, error) {
	fx, ok := c.fixtures[opts.URL]
	if !ok {
		return nil, fmt.Errorf("fakeclient: no fixture registered for %q", opts.URL)
	}
	if fx.Err != nil {
		return nil, fx.Err
	}
	if opts.HeaderCallback != nil {
		if err := opts.HeaderCallback(fx.Status, fx.Header); err != nil {
			return nil, err
		}
	}
	return &httpfetch.Response{Status: fx.Status, Header: fx.Header, Body: fx.Body}, nil
}

// schedule defers fn by delay extra Tick calls (delay==0 means "next Tick").
func (c *Client) schedule(delay int, fn func()) {
	if delay <= 0 {
		c.ready = append(c.ready, fn)
		return
	}
	c.ready = append(c.ready, func() { c.schedule(delay-1, fn) })
}

func deliver(opts httpfetch.RequestOptions, fx Fixture) {
	if fx.Err != nil {
		if opts.ErrorCallback != nil {
			opts.ErrorCallback(fx.Err)
		}
		return
	}
	if opts.HeaderCallback != nil {
		if err := opts.HeaderCallback(fx.Status, fx.Header); err != nil {
			if opts.ErrorCallback != nil {
				opts.ErrorCallback(err)
			}
			return
		}
	}
	if opts.DataCallback != nil {
		opts.DataCallback(fx.Body)
	}
	if opts.DoneCallback != nil {
		opts.DoneCallback()
	}
}

// Tick runs every callback queued so far, ignoring timeout — a fake never
// blocks on real I/O.
func (c *Client) Tick(timeout time.Duration) error {
	pending := c.ready
	c.ready = nil
	for _, fn := range pending {
		fn()
	}
	return nil
}

// Abort marks every currently-outstanding handle as aborted; their
// ErrorCallback fires on the next Tick that reaches them.
func (c *Client) Abort() {
	for h := range c.aborted {
		c.aborted[h] = true
	}
}
