package scriptmgr

import "github.com/kallowynd/pageruntime/jsengine"

// fakeEngine is a minimal jsengine.Engine for scriptmgr's own tests —
// domevent's richer fakeEngine lives in an internal test file of that
// package and isn't exported, so this one is deliberately small: it only
// needs to record which URLs were evaluated and optionally fail by URL.
type fakeEngine struct {
	evaluated []string
	failURLs  map[string]bool
}

func (e *fakeEngine) Eval(source []byte, url string) error {
	if e.failURLs[url] {
		return errAssert
	}
	e.evaluated = append(e.evaluated, url)
	return nil
}

func (e *fakeEngine) EvalModule(source []byte, url string, cacheable bool) error {
	return e.Eval(source, url)
}

func (e *fakeEngine) RunMicrotasks() {}

func (e *fakeEngine) NewFunctionHandle(name string) (jsengine.FunctionHandle, error) {
	return nil, errAssert
}

func (e *fakeEngine) TryCatch(fn func()) error {
	fn()
	return nil
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

var errAssert = fakeErr("scriptmgr: fake engine error")
