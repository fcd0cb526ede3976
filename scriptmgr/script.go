package scriptmgr

import (
	"strings"

	"github.com/kallowynd/pageruntime/domevent"
	"github.com/kallowynd/pageruntime/domtree"
)

// Kind discriminates how a script's source is parsed, per spec.md §4.5.
type Kind int

const (
	// ClassicKind scripts run with jsengine.Engine.Eval.
	ClassicKind Kind = iota
	// ModuleKind scripts run with jsengine.Engine.EvalModule and may
	// trigger blockingGet for synchronous import resolution.
	ModuleKind
)

// pendingScript is one queued or in-flight script, per spec.md §3's
// Script (pending) entity. onload/onerror reuse domevent.Callback (source
// string or persistent function handle) so firing them can go through the
// same Manager.DispatchWithFunction machinery a script element's "load"/
// "error" DOM event already uses for on-property handlers — a nil pointer
// means no handler was supplied.
type pendingScript struct {
	kind    Kind
	source  []byte // inline text, or the accumulated remote buffer
	url     string // empty for inline scripts
	async   bool
	defer_  bool
	onload  *domevent.Callback
	onerror *domevent.Callback
	element *domtree.Element

	complete bool // true once source is ready to evaluate
	failed   bool // true if the fetch errored; script is dropped, not run
	buf      []byte
}

// classifyType maps a <script> type attribute to a Kind, per spec.md
// §4.5's case-insensitive table. recognized is false for an ignored or unknown
// type (the caller should drop the element in the latter case after
// logging a warning).
func classifyType(typ string) (kind Kind, recognized bool) {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "application/javascript", "text/javascript":
		return ClassicKind, true
	case "module":
		return ModuleKind, true
	case "application/json":
		return ClassicKind, false // explicitly ignored, not a warning case
	default:
		return ClassicKind, false // unrecognized: warn and ignore
	}
}

// hasBooleanAttr reports presence of an HTML boolean attribute (async,
// defer, nomodule): any value, including "", counts as true once present.
func hasBooleanAttr(el *domtree.Element, name string) bool {
	_, ok := el.GetAttribute(name)
	return ok
}

// inlineText concatenates the element's CData children, the model's
// stand-in for a <script>'s text content (domtree has no parser-backed
// textContent accessor, §1 excludes HTML parsing from this module).
func inlineText(el *domtree.Element) []byte {
	var b []byte
	for _, child := range el.Children() {
		if cd, ok := child.Self().(*domtree.CData); ok {
			b = append(b, []byte(cd.Text)...)
		}
	}
	return b
}
