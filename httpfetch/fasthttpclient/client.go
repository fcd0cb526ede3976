// Package fasthttpclient is the one concrete httpfetch.Client
// implementation, backed by github.com/valyala/fasthttp. It is the only
// package in the module allowed to import fasthttp directly.
//
// Grounded on EdgeComet-engine's bypass.BypassService and sharding.Client
// (fasthttp.AcquireRequest/AcquireResponse, zap-logged fasthttp.Client.Do
// round trips), adapted from a single synchronous call into the
// start/header/data/done/error callback shape spec.md §4.5/§6 requires:
// each request runs on its own background goroutine, but every callback is
// only ever invoked from Tick, on the caller's thread, via a ready queue —
// the concrete realization of async.go's WorkQueue/DoAsync split.
package fasthttpclient

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/kallowynd/pageruntime/httpfetch"
	"github.com/kallowynd/pageruntime/metrics"
)

// Client is the fasthttp-backed httpfetch.Client.
type Client struct {
	transport *fasthttp.Client
	logger    *zap.Logger

	ready chan func()

	mu      sync.Mutex
	pending map[*requestHandle]struct{}
}

// New constructs a Client. readTimeout/writeTimeout are applied to every
// request the same way EdgeComet-engine's BypassService configures its
// fasthttp.Client.
func New(readTimeout, writeTimeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		transport: &fasthttp.Client{
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		logger:  logger,
		ready:   make(chan func(), 64),
		pending: make(map[*requestHandle]struct{}),
	}
}

type requestHandle struct {
	cancel context.CancelFunc
}

func (h *requestHandle) Abort() { h.cancel() }

// Request starts an async request; its callbacks run later, from Tick.
func (c *Client) Request(opts httpfetch.RequestOptions) (httpfetch.RequestHandle, error) {
	ctx := opts.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	h := &requestHandle{cancel: cancel}

	c.mu.Lock()
	c.pending[h] = struct{}{}
	c.mu.Unlock()

	if opts.StartCallback != nil {
		opts.StartCallback()
	}

	go c.run(ctx, h, opts)
	return h, nil
}

// BlockingRequest performs one request synchronously on the calling
// goroutine, bypassing the ready queue entirely — this is the "reserved
// handle" spec.md §4.5 describes for blockingGet: it shares the same
// fasthttp.Client connection pool but never waits on the async ready
// queue, so it cannot deadlock behind other in-flight async requests.
func (c *Client) BlockingRequest(opts httpfetch.RequestOptions) (*httpfetch.Response, error) {
	ctx := opts.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	req, resp := fasthttp.AcquireRequest(), fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	prepareRequest(req, opts)

	done := make(chan error, 1)
	go func() { done <- c.transport.Do(req, resp) }()

	select {
	case <-ctx.Done():
		c.recordOutcome(methodOf(opts), 0)
		return nil, httpfetch.ErrAborted
	case err := <-done:
		if err != nil {
			c.recordOutcome(methodOf(opts), 0)
			return nil, err
		}
	}

	status := resp.StatusCode()
	c.recordOutcome(methodOf(opts), status)
	if opts.HeaderCallback != nil {
		if err := opts.HeaderCallback(status, copyHeaders(resp)); err != nil {
			return nil, err
		}
	}
	body := append([]byte(nil), resp.Body()...)
	return &httpfetch.Response{Status: status, Header: copyHeaders(resp), Body: body}, nil
}

func (c *Client) run(ctx context.Context, h *requestHandle, opts httpfetch.RequestOptions) {
	defer func() {
		c.mu.Lock()
		delete(c.pending, h)
		c.mu.Unlock()
	}()

	req, resp := fasthttp.AcquireRequest(), fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	prepareRequest(req, opts)

	done := make(chan error, 1)
	go func() { done <- c.transport.Do(req, resp) }()

	select {
	case <-ctx.Done():
		c.enqueue(func() {
			c.recordOutcome(methodOf(opts), 0)
			if opts.ErrorCallback != nil {
				opts.ErrorCallback(httpfetch.ErrAborted)
			}
		})
		return
	case err := <-done:
		if err != nil {
			c.logger.Warn("fasthttpclient: request failed", zap.String("url", opts.URL), zap.Error(err))
			c.enqueue(func() {
				c.recordOutcome(methodOf(opts), 0)
				if opts.ErrorCallback != nil {
					opts.ErrorCallback(err)
				}
			})
			return
		}
	}

	status := resp.StatusCode()
	headers := copyHeaders(resp)
	body := append([]byte(nil), resp.Body()...)

	c.enqueue(func() {
		c.recordOutcome(methodOf(opts), status)
		if opts.HeaderCallback != nil {
			if err := opts.HeaderCallback(status, headers); err != nil {
				if opts.ErrorCallback != nil {
					opts.ErrorCallback(err)
				}
				return
			}
		}
		if opts.DataCallback != nil {
			opts.DataCallback(body)
		}
		if opts.DoneCallback != nil {
			opts.DoneCallback()
		}
	})
}

func (c *Client) enqueue(fn func()) { c.ready <- fn }

// Tick drains the ready queue for at most timeout, running callbacks on
// the caller's thread. Grounded on async.go's WorkQueue, owned per-client
// here instead of as a package global.
func (c *Client) Tick(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case fn := <-c.ready:
		fn()
	case <-timer.C:
		return nil
	}
	for {
		select {
		case fn := <-c.ready:
			fn()
		default:
			return nil
		}
	}
}

// Abort cancels every outstanding async request.
func (c *Client) Abort() {
	c.mu.Lock()
	handles := make([]*requestHandle, 0, len(c.pending))
	for h := range c.pending {
		handles = append(handles, h)
		delete(c.pending, h)
	}
	c.mu.Unlock()

	for _, h := range handles {
		h.cancel()
	}
}

func prepareRequest(req *fasthttp.Request, opts httpfetch.RequestOptions) {
	req.SetRequestURI(opts.URL)
	method := methodOf(opts)
	req.Header.SetMethod(method)
	for name, value := range opts.Header {
		req.Header.Set(name, value)
	}
	if opts.Cookie != "" {
		req.Header.Set("Cookie", opts.Cookie)
	}
}

func methodOf(opts httpfetch.RequestOptions) string {
	if opts.Method == "" {
		return "GET"
	}
	return opts.Method
}

func copyHeaders(resp *fasthttp.Response) map[string][]string {
	headers := make(map[string][]string)
	for key, value := range resp.Header.All() {
		k := string(key)
		headers[k] = append(headers[k], string(value))
	}
	return headers
}

func (c *Client) recordOutcome(method string, status int) {
	metrics.FetchRequestsTotal.WithLabelValues(method, statusClass(status)).Inc()
}

func statusClass(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
