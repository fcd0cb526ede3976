// Package scriptmgr orders execution of inline, external classic, defer,
// async and module <script> elements, per spec.md §4.5, and drives the
// page's DOMContentLoaded → load progression.
//
// Grounded on spec.md §4.5 directly; the fetch-callback wiring mirrors the
// teacher's NewDataFetcher/fetchData request lifecycle in async.go (start/
// header/data/done/error, re-entrancy guarded evaluation), and buffer
// reuse is grounded on objectpools.go's pool-with-capacity-threshold
// pattern (see pool.go).
package scriptmgr

import (
	"fmt"
	"time"

	"github.com/kallowynd/pageruntime/domevent"
	"github.com/kallowynd/pageruntime/domtree"
	"github.com/kallowynd/pageruntime/httpfetch"
	"github.com/kallowynd/pageruntime/jsengine"
	"github.com/kallowynd/pageruntime/metrics"
	"go.uber.org/zap"
)

// Page is the document-progression delegate, an External Collaborator
// boundary: scriptmgr never reaches into page internals beyond these two
// notifications (spec.md §4.5's "ultimately dispatches DOMContentLoaded"/
// "dispatches load").
type Page interface {
	DocumentIsLoaded()
	DocumentIsComplete()
}

// Manager is one page's script manager.
type Manager struct {
	engine     jsengine.Engine
	http       httpfetch.Client
	dispatcher *domevent.Manager
	page       Page
	logger     *zap.Logger
	pool       *bufferPool

	normal []*pendingScript
	deferQ []*pendingScript

	asyncPending int

	staticScriptsDone     bool
	evaluating            bool
	shutdownFlag          bool
	domContentLoadedFired bool
	loadFired             bool
}

// NewManager constructs an empty script manager for one page.
func NewManager(engine jsengine.Engine, client httpfetch.Client, dispatcher *domevent.Manager, page Page, logger *zap.Logger) *Manager {
	return &Manager{
		engine:     engine,
		http:       client,
		dispatcher: dispatcher,
		page:       page,
		logger:     logger,
		pool:       newBufferPool(8, 64, 4),
	}
}

// QueueScriptElement applies the §4.5 filtering rules to el (nomodule,
// type mapping, duplicate-processing guard) and, if it survives, queues or
// immediately runs it.
func (m *Manager) QueueScriptElement(el *domtree.Element, onload, onerror *domevent.Callback) {
	if hasBooleanAttr(el, "nomodule") {
		return
	}
	if el.Property("scriptProcessed") {
		return
	}
	el.SetProperty("scriptProcessed", true)

	typ, _ := el.GetAttribute("type")
	kind, recognized := classifyType(typ)
	if !recognized {
		if typ != "" && typ != "application/json" {
			if m.logger != nil {
				m.logger.Warn("scriptmgr: unrecognized script type, ignoring", zap.String("type", typ))
			}
		}
		return
	}

	async := hasBooleanAttr(el, "async")
	deferred := hasBooleanAttr(el, "defer") && !async

	ps := &pendingScript{
		kind:    kind,
		onload:  onload,
		onerror: onerror,
		element: el,
	}

	if url, ok := el.GetAttribute("src"); ok && url != "" {
		ps.url = url
		ps.async = async
		ps.defer_ = deferred
		m.queueExternal(ps)
		return
	}

	// Inline script fast path (spec §4.5): async/defer have no effect on
	// an inline script's ordering; it is always routed as "normal".
	ps.source = inlineText(el)
	ps.complete = true
	if len(m.normal) == 0 {
		m.runScript(ps)
		return
	}
	m.normal = append(m.normal, ps)
	m.evaluate()
}

func (m *Manager) queueExternal(ps *pendingScript) {
	switch {
	case ps.async:
		m.asyncPending++
	case ps.defer_:
		m.deferQ = append(m.deferQ, ps)
	default:
		m.normal = append(m.normal, ps)
	}
	m.startFetch(ps)
}

func (m *Manager) startFetch(ps *pendingScript) {
	start := time.Now()
	_, err := m.http.Request(httpfetch.RequestOptions{
		URL: ps.url,
		HeaderCallback: func(status int, header map[string][]string) error {
			if status != 200 {
				return fmt.Errorf("scriptmgr: non-200 status %d fetching %s", status, ps.url)
			}
			ps.buf = m.pool.Get()
			return nil
		},
		DataCallback: func(chunk []byte) {
			ps.buf = append(ps.buf, chunk...)
		},
		DoneCallback: func() {
			metrics.ScriptFetchDuration.WithLabelValues(classLabel(ps)).Observe(time.Since(start).Seconds())
			ps.source = ps.buf
			ps.complete = true
			m.onExternalResolved(ps)
		},
		ErrorCallback: func(err error) {
			if m.logger != nil {
				m.logger.Warn("scriptmgr: script fetch failed", zap.String("url", ps.url), zap.Error(err))
			}
			ps.failed = true
			ps.complete = true
			m.releaseBuffer(ps)
			m.fireOnError(ps)
			m.onExternalResolved(ps)
		},
	})
	if err != nil && m.logger != nil {
		m.logger.Warn("scriptmgr: failed to start script fetch", zap.String("url", ps.url), zap.Error(err))
	}
}

func (m *Manager) onExternalResolved(ps *pendingScript) {
	if ps.async {
		m.asyncPending--
		if !ps.failed {
			m.runScript(ps)
		}
		m.fireLoadIfReady()
		return
	}
	m.evaluate()
}

// evaluate drains normal (in order), then — once static_scripts_done and
// normal is empty — defer (in order), firing DOMContentLoaded/load as the
// queues empty out. Re-entrancy guarded per spec §4.5/§5.
func (m *Manager) evaluate() {
	if m.evaluating || m.shutdownFlag {
		return
	}
	m.evaluating = true
	defer func() { m.evaluating = false }()

	for len(m.normal) > 0 && m.normal[0].complete {
		ps := m.normal[0]
		m.normal = m.normal[1:]
		m.runScript(ps)
	}

	if m.staticScriptsDone && len(m.normal) == 0 {
		for len(m.deferQ) > 0 && m.deferQ[0].complete {
			ps := m.deferQ[0]
			m.deferQ = m.deferQ[1:]
			m.runScript(ps)
		}
		if len(m.deferQ) == 0 {
			m.fireDOMContentLoadedIfReady()
		}
	}
}

// StaticScriptsDone signals that HTML parsing will append no further
// <script> elements (spec §4.5's "static_scripts_done").
func (m *Manager) StaticScriptsDone() {
	m.staticScriptsDone = true
	m.evaluate()
}

func (m *Manager) fireDOMContentLoadedIfReady() {
	if m.domContentLoadedFired {
		return
	}
	if !m.staticScriptsDone || len(m.normal) != 0 || len(m.deferQ) != 0 {
		return
	}
	m.domContentLoadedFired = true
	if m.page != nil {
		m.page.DocumentIsLoaded()
	}
	m.fireLoadIfReady()
}

func (m *Manager) fireLoadIfReady() {
	if m.loadFired || !m.domContentLoadedFired || m.asyncPending != 0 {
		return
	}
	m.loadFired = true
	if m.page != nil {
		m.page.DocumentIsComplete()
	}
}

func (m *Manager) runScript(ps *pendingScript) {
	defer m.releaseBuffer(ps)

	if ps.failed {
		return
	}

	var err error
	url := ps.url
	if url == "" {
		url = "inline"
	}
	if ps.kind == ModuleKind {
		err = m.engine.EvalModule(ps.source, url, ps.url != "")
	} else {
		err = m.engine.Eval(ps.source, url)
	}

	if err != nil {
		if m.logger != nil {
			m.logger.Warn("scriptmgr: script eval failed", zap.String("url", url), zap.Error(err))
		}
		m.fireOnError(ps)
		return
	}

	metrics.ScriptsExecutedTotal.WithLabelValues(classLabel(ps)).Inc()
	m.fireOnLoad(ps)
}

func (m *Manager) fireOnLoad(ps *pendingScript) {
	if m.dispatcher == nil || ps.element == nil {
		return
	}
	evt := domevent.NewEvent("load", false, false)
	evt.Trusted = false
	if ps.onload != nil {
		m.dispatcher.DispatchWithFunctionIgnoring(&ps.element.Node, evt, *ps.onload)
		return
	}
	m.dispatcher.DispatchIgnoring(&ps.element.Node, evt)
}

func (m *Manager) fireOnError(ps *pendingScript) {
	if m.dispatcher == nil || ps.element == nil {
		return
	}
	evt := domevent.NewEvent("error", false, false)
	evt.Trusted = false
	if ps.onerror != nil {
		m.dispatcher.DispatchWithFunctionIgnoring(&ps.element.Node, evt, *ps.onerror)
		return
	}
	m.dispatcher.DispatchIgnoring(&ps.element.Node, evt)
}

func (m *Manager) releaseBuffer(ps *pendingScript) {
	if ps.buf != nil {
		m.pool.Put(ps.buf)
		ps.buf = nil
	}
}

// BlockingGet fetches url synchronously via the client's dedicated
// blocking path, for a module's import statements to resolve a dependency
// without re-entering the scheduler's wait loop (spec §4.5). The returned
// slice is the response body itself; it is not taken from the script
// buffer pool and is not returned to it.
func (m *Manager) BlockingGet(url string) ([]byte, error) {
	resp, err := m.http.BlockingRequest(httpfetch.RequestOptions{
		URL: url,
		HeaderCallback: func(status int, header map[string][]string) error {
			if status != 200 {
				return fmt.Errorf("scriptmgr: non-200 status %d fetching %s", status, url)
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Reset clears all three queues, releasing any pooled buffers — the
// "finalizer releases each pending buffer to the pool" teardown spec.md
// §4.5 describes.
func (m *Manager) Reset() {
	for _, ps := range m.normal {
		m.releaseBuffer(ps)
	}
	for _, ps := range m.deferQ {
		m.releaseBuffer(ps)
	}
	m.normal = nil
	m.deferQ = nil
	m.asyncPending = 0
}

// Shutdown suppresses further evaluate calls, per spec §4.5.
func (m *Manager) Shutdown() {
	m.shutdownFlag = true
	m.Reset()
}

func classLabel(ps *pendingScript) string {
	switch {
	case ps.kind == ModuleKind:
		return "module"
	case ps.async:
		return "async"
	case ps.defer_:
		return "defer"
	case ps.url == "":
		return "inline"
	default:
		return "normal"
	}
}
