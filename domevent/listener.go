package domevent

import "github.com/kallowynd/pageruntime/domtree"

// EventKey identifies one (target, type) listener list, per spec §3.
type EventKey struct {
	Target domtree.Identity
	Type   string
}

// listener generalizes the teacher's EventHandler (Capture, Once, Bubble
// fields in event.go), adding Passive, Signal and the removed tombstone
// flag spec §4.4 needs for deferred removal during nested dispatch.
type listener struct {
	callback Callback
	capture  bool
	once     bool
	passive  bool
	signal   *AbortSignal
	removed  bool
}

func (l *listener) matches(cb Callback, capture bool) bool {
	return l.capture == capture && l.callback.isEqual(cb)
}

// ListenerOptions bundles register's {once, capture, passive, signal}
// argument group.
type ListenerOptions struct {
	Once    bool
	Capture bool
	Passive bool
	Signal  *AbortSignal
}
