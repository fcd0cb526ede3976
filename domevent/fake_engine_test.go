package domevent

import (
	"errors"

	"github.com/kallowynd/pageruntime/jsengine"
)

// fakeEngine is a minimal jsengine.Engine stand-in for dispatch tests: it
// never interprets anything, it just counts microtask drains and runs
// TryCatch bodies, converting panics into errors the same way a real
// engine boundary would.
type fakeEngine struct {
	microtasks int
}

func (f *fakeEngine) Eval(source []byte, url string) error { return nil }

func (f *fakeEngine) EvalModule(source []byte, url string, cacheable bool) error { return nil }

func (f *fakeEngine) RunMicrotasks() { f.microtasks++ }

func (f *fakeEngine) NewFunctionHandle(name string) (jsengine.FunctionHandle, error) {
	return nil, errors.New("fakeEngine: NewFunctionHandle not supported")
}

func (f *fakeEngine) TryCatch(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = errors.New("fakeEngine: recovered panic")
			}
		}
	}()
	fn()
	return nil
}

// fakeFunc is a jsengine.FunctionHandle that records its own id into a
// shared call log and optionally runs an action against the dispatched
// event (stop propagation, prevent default, ...).
type fakeFunc struct {
	id     string
	calls  *[]string
	action func(evt *Event)
	err    error
}

func (f *fakeFunc) Call(thisArg interface{}, args ...interface{}) (interface{}, error) {
	*f.calls = append(*f.calls, f.id)
	if f.action != nil && len(args) > 0 {
		if evt, ok := args[0].(*Event); ok {
			f.action(evt)
		}
	}
	return nil, f.err
}

func (f *fakeFunc) IsEqual(other jsengine.FunctionHandle) bool {
	o, ok := other.(*fakeFunc)
	return ok && o == f
}

// fakeObject is a jsengine.ObjectHandle implementing handleEvent, for the
// third callback shape.
type fakeObject struct {
	id    string
	calls *[]string
}

func (o *fakeObject) HasMethod(name string) bool { return name == "handleEvent" }

func (o *fakeObject) CallMethod(name string, args ...interface{}) (interface{}, error) {
	*o.calls = append(*o.calls, o.id)
	return nil, nil
}

func (o *fakeObject) IsEqual(other jsengine.ObjectHandle) bool {
	p, ok := other.(*fakeObject)
	return ok && p == o
}
