// Package jsengine is the narrow façade the core uses to reach the
// embedded JavaScript engine — an External Collaborator per spec.md §1.
// The core never imports a concrete JS engine directly; it only calls
// this interface. jsengine/gojaengine supplies the one concrete
// implementation, backed by goja.
package jsengine

import "errors"

// ErrAborted is a sentinel for a fatal, non-recoverable interpreter
// state. The gojaengine adapter never returns it.
var ErrAborted = errors.New("jsengine: engine aborted")

// FunctionHandle is a persistent reference to a JS function value. Two
// handles referring to the same underlying function must satisfy
// IsEqual, matching spec.md §6's "persistent function/object handles with
// isEqual(other) identity semantics".
type FunctionHandle interface {
	// Call invokes the function with `this` bound to thisArg and args as
	// positional arguments.
	Call(thisArg interface{}, args ...interface{}) (interface{}, error)
	// IsEqual reports whether other refers to the same underlying
	// function, used by domevent's listener de-duplication.
	IsEqual(other FunctionHandle) bool
}

// ObjectHandle is a persistent reference to a JS object value, used for
// the `{handleEvent}` callback shape.
type ObjectHandle interface {
	// HasMethod reports whether the object exposes a callable method of
	// the given name (e.g. "handleEvent").
	HasMethod(name string) bool
	// CallMethod invokes the named method with `this` bound to the
	// object itself.
	CallMethod(name string, args ...interface{}) (interface{}, error)
	IsEqual(other ObjectHandle) bool
}

// Engine is the complete façade the core depends on. Every method is
// expected to run on the single core thread (spec.md §5).
type Engine interface {
	// Eval runs a classic script's source, attributing errors to url.
	Eval(source []byte, url string) error
	// EvalModule runs source as an ES module. cacheable hints that the
	// engine may cache the compiled module body keyed by url (true for
	// scripts fetched over the network, false for most inline modules).
	EvalModule(source []byte, url string, cacheable bool) error
	// RunMicrotasks drains the engine's microtask queue. Called after
	// every successful listener invocation, per spec.md §6.
	RunMicrotasks()
	// NewFunctionHandle resolves a named global function into a
	// persistent handle. gojaengine does not compile ad-hoc function
	// bodies here.
	NewFunctionHandle(name string) (FunctionHandle, error)
	// TryCatch runs fn, converting any panic/exception raised inside the
	// engine into a plain error rather than letting it escape, per
	// spec.md §6's "TryCatch boundary returning a printable error message".
	TryCatch(fn func()) error
}
