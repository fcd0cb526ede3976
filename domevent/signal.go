package domevent

import "context"

// AbortSignal lets a listener registration be cancelled from outside the
// event manager, generalizing the teacher's NavContext cancellation idiom
// (async.go's DoAsync selects on <-NavContext.Done()) to a per-listener
// granularity instead of a per-navigation one.
type AbortSignal struct {
	ctx context.Context
}

// NewAbortSignal wraps an existing context as a signal, for callers that
// already have one scoped appropriately (e.g. a page's navigation context).
func NewAbortSignal(ctx context.Context) *AbortSignal {
	return &AbortSignal{ctx: ctx}
}

// Aborted reports whether the signal has fired. A nil signal, or one with
// a nil context, is never aborted.
func (s *AbortSignal) Aborted() bool {
	if s == nil || s.ctx == nil {
		return false
	}
	select {
	case <-s.ctx.Done():
		return true
	default:
		return false
	}
}

// AbortController pairs a signal with the function that aborts it, the
// shape callers construct before passing Signal into Register.
type AbortController struct {
	Signal *AbortSignal
	cancel context.CancelFunc
}

// NewAbortController creates a fresh, unaborted controller.
func NewAbortController() *AbortController {
	ctx, cancel := context.WithCancel(context.Background())
	return &AbortController{Signal: &AbortSignal{ctx: ctx}, cancel: cancel}
}

// Abort fires the controller's signal, removing or skipping any listener
// registered with it.
func (c *AbortController) Abort() { c.cancel() }
