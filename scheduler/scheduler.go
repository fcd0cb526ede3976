// Package scheduler implements the two-priority-band timer scheduler from
// SPEC_FULL.md §4.3: a high-priority and a low-priority min-heap of tasks
// keyed by a monotonic deadline, each supporting one-shot and repeating
// tasks with an optional finalizer run at teardown.
//
// container/heap (stdlib) is used deliberately, not as a default fallback:
// no library in the retrieval pack implements a deadline-ordered timer
// min-heap (the nearest-named example, rohmanhakim-docs-crawler's
// "scheduler" package, is a crawl control-plane, not a heap) — see
// DESIGN.md.
package scheduler

import (
	"container/heap"
	"errors"
	"sync"
	"time"

	"github.com/kallowynd/pageruntime/metrics"
)

// Priority selects which heap a task is stored in.
type Priority int

const (
	// High is drained first by Run.
	High Priority = iota
	// Low is drained second by Run. Repeating tasks are always
	// re-inserted here regardless of their original priority — see
	// spec.md §9's flagged (possibly unintended) behavior, preserved here.
	Low
)

// Action runs when a task's deadline is reached. Returning ok==false means
// "do not repeat"; returning ok==true with repeatAfterMs>0 reschedules the
// task repeatAfterMs milliseconds from now, into the Low heap.
type Action func(ctx interface{}) (repeatAfterMs int64, ok bool)

// Finalize is invoked exactly once per task when the scheduler is torn
// down with pending tasks still queued.
type Finalize func(ctx interface{})

type task struct {
	deadline int64 // monotonic milliseconds
	ctx      interface{}
	action   Action
	finalize Finalize
	index    int // heap.Interface bookkeeping
}

type taskHeap []*task

func (h taskHeap) Len() int            { return len(h) }
func (h taskHeap) Less(i, j int) bool  { return h[i].deadline < h[j].deadline }
func (h taskHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *taskHeap) Push(x interface{}) {
	t := x.(*task)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Scheduler owns the high/low task heaps for exactly one page's lifetime.
// All operations are expected to run on the single owning goroutine; mu
// guards the two heaps, and the clock is injected through now for tests.
type Scheduler struct {
	mu   sync.Mutex
	high taskHeap
	low  taskHeap
	now  func() int64

	torn bool
}

// ErrRepeatDelayMustBePositive is returned (via panic, matching the
// spec's "Assertion:" wording) when an Action requests a non-positive
// repeat delay.
var ErrRepeatDelayMustBePositive = errors.New("scheduler: repeat delay must be > 0")

// New creates a Scheduler. nowFn defaults to a monotonic millisecond clock
// derived from time.Now if nil.
func New(nowFn func() int64) *Scheduler {
	if nowFn == nil {
		start := time.Now()
		nowFn = func() int64 { return time.Since(start).Milliseconds() }
	}
	s := &Scheduler{now: nowFn}
	heap.Init(&s.high)
	heap.Init(&s.low)
	return s
}

// ScheduleOnce enqueues action to run as soon as possible (at the current
// time) at the given priority.
func (s *Scheduler) ScheduleOnce(ctx interface{}, priority Priority, action Action, finalize Finalize) {
	s.scheduleAt(ctx, s.now(), priority, action, finalize)
}

// ScheduleAfter enqueues action to run delayMs from now, at the given
// priority.
func (s *Scheduler) ScheduleAfter(ctx interface{}, delayMs int64, priority Priority, action Action, finalize Finalize) {
	s.scheduleAt(ctx, s.now()+delayMs, priority, action, finalize)
}

func (s *Scheduler) scheduleAt(ctx interface{}, deadline int64, priority Priority, action Action, finalize Finalize) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &task{deadline: deadline, ctx: ctx, action: action, finalize: finalize}
	if priority == High {
		heap.Push(&s.high, t)
	} else {
		heap.Push(&s.low, t)
	}
	metrics.SchedulerQueueDepth.WithLabelValues("high").Set(float64(s.high.Len()))
	metrics.SchedulerQueueDepth.WithLabelValues("low").Set(float64(s.low.Len()))
}

// Run drains the Low heap of everything due, then the High heap of
// everything due — per spec.md §4.3, Low first so repeating timers (always
// re-inserted Low) never starve the caller. It returns the earliest
// still-pending High deadline so the driver knows how long it may safely
// sleep, or nil if High is empty.
func (s *Scheduler) Run() *int64 {
	s.drain(&s.low)
	s.drain(&s.high)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.high.Len() == 0 {
		return nil
	}
	d := s.high[0].deadline
	return &d
}

func (s *Scheduler) drain(h *taskHeap) {
	for {
		s.mu.Lock()
		if h.Len() == 0 || (*h)[0].deadline > s.now() {
			s.mu.Unlock()
			return
		}
		t := heap.Pop(h).(*task)
		metrics.SchedulerQueueDepth.WithLabelValues(labelFor(h, s)).Set(float64(h.Len()))
		s.mu.Unlock()

		repeatMs, again := t.action(t.ctx)
		if again {
			if repeatMs <= 0 {
				panic(ErrRepeatDelayMustBePositive)
			}
			s.ScheduleAfter(t.ctx, repeatMs, Low, t.action, t.finalize)
		}
	}
}

func labelFor(h *taskHeap, s *Scheduler) string {
	if h == &s.high {
		return "high"
	}
	return "low"
}

// Close tears the scheduler down: every remaining task in either heap has
// its finalizer invoked exactly once, then both heaps are cleared.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.torn {
		return
	}
	s.torn = true
	for _, h := range []*taskHeap{&s.high, &s.low} {
		for h.Len() > 0 {
			t := heap.Pop(h).(*task)
			if t.finalize != nil {
				t.finalize(t.ctx)
			}
		}
	}
	metrics.SchedulerQueueDepth.WithLabelValues("high").Set(0)
	metrics.SchedulerQueueDepth.WithLabelValues("low").Set(0)
}

// Len reports the combined number of pending tasks, for tests and metrics.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.high.Len() + s.low.Len()
}
