package domevent

import (
	"time"

	"github.com/kallowynd/pageruntime/domtree"
)

// Phase mirrors the three propagation stages named in spec §4.4.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseCapturing
	PhaseAtTarget
	PhaseBubbling
)

// Event generalizes the teacher's eventObject (event.go), adding the
// fields SPEC_FULL.md §3 calls out: Composed, NeedsRetargeting,
// OriginalTarget, TimeStamp.
type Event struct {
	Type       string
	Bubbles    bool
	Cancelable bool
	Composed   bool
	Trusted    bool
	TimeStamp  int64

	// Target is mutated during dispatch when retargeting is in play; it
	// always reflects what the currently-running listener should observe.
	Target        *domtree.Node
	CurrentTarget *domtree.Node

	// OriginalTarget is fixed at dispatch start and never retargeted,
	// preserved for default actions (the checkbox/radio flip needs the
	// real element, not whatever Target was adjusted to for some listener).
	OriginalTarget   *domtree.Node
	NeedsRetargeting bool

	// Value carries the event-specific payload (e.g. a key code for
	// keydown), left untyped since the event manager has no opinion on it.
	Value interface{}

	phase            Phase
	stopped          bool
	stoppedImmediate bool
	defaultPrevented bool
}

// NewEvent constructs a trusted event ready to dispatch.
func NewEvent(typ string, bubbles, cancelable bool) *Event {
	return &Event{
		Type:       typ,
		Bubbles:    bubbles,
		Cancelable: cancelable,
		Trusted:    true,
		TimeStamp:  time.Now().UnixNano(),
	}
}

func (e *Event) Phase() Phase     { return e.phase }
func (e *Event) SetPhase(p Phase) { e.phase = p }

// StopPropagation ends subsequent phases/nodes but lets the current
// listener list finish running.
func (e *Event) StopPropagation() { e.stopped = true }

// StopImmediatePropagation ends the current listener list as well.
func (e *Event) StopImmediatePropagation() {
	e.stopped = true
	e.stoppedImmediate = true
}

func (e *Event) Stopped() bool          { return e.stopped }
func (e *Event) StoppedImmediate() bool { return e.stoppedImmediate }

// PreventDefault is a no-op on a non-cancelable event, matching the DOM's
// own contract.
func (e *Event) PreventDefault() {
	if e.Cancelable {
		e.defaultPrevented = true
	}
}

func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }
