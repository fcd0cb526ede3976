package domevent

import "github.com/kallowynd/pageruntime/jsengine"

// Callback is one of the three listener shapes spec §4.4 names: a
// persistent function handle, an inline source string (legacy attribute
// handlers, evaluated per call), or an object exposing handleEvent.
// Exactly one field is ever set.
type Callback struct {
	fn     jsengine.FunctionHandle
	obj    jsengine.ObjectHandle
	source string
	isSrc  bool
}

// FunctionCallback wraps a persistent function handle, e.g. from
// addEventListener(type, fn).
func FunctionCallback(fn jsengine.FunctionHandle) Callback { return Callback{fn: fn} }

// SourceCallback wraps an inline attribute handler's source text, e.g.
// el.setAttribute("onclick", "..."). isSrc distinguishes an empty string
// handler from the zero Callback.
func SourceCallback(source string) Callback { return Callback{source: source, isSrc: true} }

// HandleEventCallback wraps an EventListener-object-shaped callback.
func HandleEventCallback(obj jsengine.ObjectHandle) Callback { return Callback{obj: obj} }

// isEqual implements the de-duplication rule from spec §4.4: same
// callback-identity. Function and object handles use their own IsEqual;
// source callbacks compare their literal text (re-setting an attribute to
// the same string is a no-op registration).
func (c Callback) isEqual(other Callback) bool {
	switch {
	case c.fn != nil && other.fn != nil:
		return c.fn.IsEqual(other.fn)
	case c.obj != nil && other.obj != nil:
		return c.obj.IsEqual(other.obj)
	case c.isSrc && other.isSrc:
		return c.source == other.source
	default:
		return false
	}
}

// invoke calls the callback, funneling any panic or engine-reported error
// through engine.TryCatch so a listener failure is caught at the JS
// boundary and never escapes to abort propagation (spec §4.4's failure
// semantics).
func (c Callback) invoke(engine jsengine.Engine, thisArg interface{}, evt *Event) error {
	switch {
	case c.fn != nil:
		return engine.TryCatch(func() {
			if _, err := c.fn.Call(thisArg, evt); err != nil {
				panic(err)
			}
		})
	case c.obj != nil:
		return engine.TryCatch(func() {
			if !c.obj.HasMethod("handleEvent") {
				return
			}
			if _, err := c.obj.CallMethod("handleEvent", evt); err != nil {
				panic(err)
			}
		})
	default:
		return engine.TryCatch(func() {
			if err := engine.Eval([]byte(c.source), "inline-handler"); err != nil {
				panic(err)
			}
		})
	}
}
