package session

import (
	"github.com/kallowynd/pageruntime/domtree"
	"github.com/kallowynd/pageruntime/jsengine"
)

type fakeEngine struct {
	evaluated []string
}

func (e *fakeEngine) Eval(source []byte, url string) error {
	e.evaluated = append(e.evaluated, url)
	return nil
}

func (e *fakeEngine) EvalModule(source []byte, url string, cacheable bool) error {
	return e.Eval(source, url)
}

func (e *fakeEngine) RunMicrotasks() {}

func (e *fakeEngine) NewFunctionHandle(name string) (jsengine.FunctionHandle, error) {
	return nil, nil
}

func (e *fakeEngine) TryCatch(fn func()) error {
	fn()
	return nil
}

type fakeDelegate struct {
	bodies [][]byte
	fail   bool
}

func (d *fakeDelegate) BuildDocument(url string, body []byte) (*domtree.Document, error) {
	d.bodies = append(d.bodies, body)
	if d.fail {
		return nil, errBuildFailed
	}
	doc := domtree.NewDocument()
	return doc, nil
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

var errBuildFailed = fakeErr("session: fake delegate build failure")
