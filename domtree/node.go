// Package domtree is the minimal typed-node surface the core needs to
// exercise event dispatch and script-element discovery against. It is not
// a parser: trees are built programmatically (by tests, or by whatever
// sits upstream of this module in a full browser) and this package only
// models the shape §6 names — node, element, document, document_type,
// document_fragment, cdata, attribute — plus shadow-root host/detection.
//
// Generalized from the teacher's Element{Parent, Children *Elements} graph
// in uielement.go: weak back-references (Parent, Host) are kept as plain
// pointers within one page arena, per SPEC_FULL.md's guidance that there is
// no cross-page aliasing here to guard against.
package domtree

import "sync/atomic"

// Kind discriminates the concrete node variants named in §6.
type Kind int

const (
	ElementKind Kind = iota
	DocumentKind
	DocumentTypeKind
	DocumentFragmentKind
	CDataKind // text/comment/CDATA leaf content
)

var nextIdentity uint64

// Identity is a stable, process-unique handle for a Target's lifetime,
// used as the first half of domevent.EventKey. It is assigned once at
// node construction and never reused, matching §3's "NOT a raw pointer"
// requirement — the counter is the stability guarantee, not the pointer.
type Identity uint64

func newIdentity() Identity {
	return Identity(atomic.AddUint64(&nextIdentity, 1))
}

// Node is the base of every tree member. Element, Document,
// DocumentFragment (including ShadowRoot) and CData all embed it.
type Node struct {
	identity Identity
	kind     Kind

	parent   *Node
	children []*Node

	// self points back at the concrete wrapper (Element, Document, ...)
	// that embeds this Node, so tree-walking code can recover it without
	// a type switch at every level.
	self interface{}
}

func newNode(kind Kind, self interface{}) Node {
	return Node{identity: newIdentity(), kind: kind, self: self}
}

// Identity returns the node's stable target identity.
func (n *Node) Identity() Identity { return n.identity }

// Kind reports the node's concrete variant.
func (n *Node) Kind() Kind { return n.kind }

// Parent returns the node's parent, or nil at the root.
func (n *Node) Parent() *Node { return n.parent }

// Self returns the concrete wrapper embedding this Node (an *Element,
// *Document, *DocumentFragment, or *CData).
func (n *Node) Self() interface{} { return n.self }

// Children returns the node's children in document order. The returned
// slice must not be mutated by callers.
func (n *Node) Children() []*Node { return n.children }

// AppendChild links child as the last child of n, detaching it from any
// previous parent first.
func (n *Node) AppendChild(child *Node) {
	if child.parent != nil {
		child.parent.RemoveChild(child)
	}
	child.parent = n
	n.children = append(n.children, child)
}

// RemoveChild unlinks child from n, if present.
func (n *Node) RemoveChild(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

// IsConnected reports whether walking Parent links from n eventually
// reaches a Document node.
func (n *Node) IsConnected() bool {
	cur := n
	for cur != nil {
		if cur.kind == DocumentKind {
			return true
		}
		cur = cur.parent
	}
	return false
}

// RootOfTree walks to the top-most ancestor, per §4.4's
// "the element's root of tree" wording used by findCheckedRadioInGroup.
// Does not cross shadow boundaries: a ShadowRoot's parent link is nil by
// design (it is reached from its Host via Element.ShadowRoot, not via
// Parent), so RootOfTree stops at the shadow root itself when invoked from
// inside one.
func (n *Node) RootOfTree() *Node {
	cur := n
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Walk runs fn in pre-order over n and its descendants (not crossing into
// any attached shadow roots). If fn returns false for a node, that node's
// descendants are skipped; the walk of its siblings continues.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// FormOwner returns the nearest ancestor element tagged "form", used by
// §4.4's findCheckedRadioInGroup to scope a radio group match to "both
// null or same form".
func (e *Element) FormOwner() *Element {
	cur := e.Node.parent
	for cur != nil {
		if el, ok := cur.self.(*Element); ok && el.Tag == "form" {
			return el
		}
		cur = cur.parent
	}
	return nil
}

// Attr is a single DOM attribute, named explicitly in §6's node variant
// list rather than folded into a generic map, to keep iteration order
// stable for tests that assert on attribute enumeration.
type Attr struct {
	Name  string
	Value string
}

// Element is the `element` variant: a tagged node with attributes and an
// optional attached shadow root.
type Element struct {
	Node
	Tag        string
	attrs      []Attr
	shadow     *DocumentFragment // non-nil iff this element hosts a shadow root
	properties map[string]bool   // DOM IDL boolean properties, e.g. "checked"
}

// NewElement constructs a detached element with the given tag name.
func NewElement(tag string) *Element {
	e := &Element{Tag: tag, properties: make(map[string]bool)}
	e.Node = newNode(ElementKind, e)
	return e
}

// GetAttribute returns an attribute's value and whether it was present.
func (e *Element) GetAttribute(name string) (string, bool) {
	for _, a := range e.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttribute sets or replaces an attribute's value.
func (e *Element) SetAttribute(name, value string) {
	for i, a := range e.attrs {
		if a.Name == name {
			e.attrs[i].Value = value
			return
		}
	}
	e.attrs = append(e.attrs, Attr{Name: name, Value: value})
}

// RemoveAttribute deletes an attribute if present.
func (e *Element) RemoveAttribute(name string) {
	for i, a := range e.attrs {
		if a.Name == name {
			e.attrs = append(e.attrs[:i], e.attrs[i+1:]...)
			return
		}
	}
}

// Attributes returns the element's attributes in insertion order. The
// returned slice must not be mutated by callers.
func (e *Element) Attributes() []Attr { return e.attrs }

// Property reads a boolean IDL property such as "checked" or "disabled",
// distinct from a content attribute of the same name (mirrors the
// attribute/property split the DOM makes for form controls).
func (e *Element) Property(name string) bool { return e.properties[name] }

// SetProperty sets a boolean IDL property.
func (e *Element) SetProperty(name string, value bool) { e.properties[name] = value }

// AttachShadow creates and attaches a new shadow root hosted by e. Only one
// shadow root is ever live per element in this model (no open/closed mode
// distinction — out of scope per spec.md's Non-goals on a full DOM).
func (e *Element) AttachShadow() *DocumentFragment {
	sr := &DocumentFragment{host: e}
	sr.Node = newNode(DocumentFragmentKind, sr)
	e.shadow = sr
	return sr
}

// ShadowRoot returns e's attached shadow root, or nil.
func (e *Element) ShadowRoot() *DocumentFragment { return e.shadow }

// DocumentFragment is the `document_fragment` variant; when it has a
// non-nil Host it functions as a shadow root (§6: "is(ShadowRoot) returns
// its _host").
type DocumentFragment struct {
	Node
	host *Element
}

// NewDocumentFragment constructs a detached, host-less fragment.
func NewDocumentFragment() *DocumentFragment {
	f := &DocumentFragment{}
	f.Node = newNode(DocumentFragmentKind, f)
	return f
}

// IsShadowRoot reports whether this fragment is attached as a shadow root.
func (f *DocumentFragment) IsShadowRoot() bool { return f.host != nil }

// Host returns the element hosting this fragment as a shadow root, or nil
// if this fragment is not a shadow root.
func (f *DocumentFragment) Host() *Element { return f.host }

// Document is the `document` variant, the root of a regular (non-shadow)
// tree.
type Document struct {
	Node
	DocType *DocumentType
}

// NewDocument constructs an empty document with no doctype declaration
// (DocType is nil).
func NewDocument() *Document {
	d := &Document{}
	d.Node = newNode(DocumentKind, d)
	return d
}

// DocumentType is the `document_type` variant (the `<!DOCTYPE ...>` node).
type DocumentType struct {
	Node
	Name string
}

// NewDocumentType constructs a detached doctype node.
func NewDocumentType(name string) *DocumentType {
	dt := &DocumentType{Name: name}
	dt.Node = newNode(DocumentTypeKind, dt)
	return dt
}

// CData is the `cdata` variant: text, comment or raw character data.
type CData struct {
	Node
	Text string
}

// NewCData constructs a detached text/comment leaf.
func NewCData(text string) *CData {
	c := &CData{Text: text}
	c.Node = newNode(CDataKind, c)
	return c
}
