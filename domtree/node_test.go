package domtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndRemoveChild(t *testing.T) {
	doc := NewDocument()
	root := NewElement("div")
	doc.Node.AppendChild(&root.Node)

	child := NewElement("span")
	root.Node.AppendChild(&child.Node)

	require.Len(t, root.Children(), 1)
	assert.Same(t, &child.Node, root.Children()[0])
	assert.Same(t, &root.Node, child.Parent())

	root.Node.RemoveChild(&child.Node)
	assert.Len(t, root.Children(), 0)
	assert.Nil(t, child.Parent())
}

func TestAppendChildDetachesFromPreviousParent(t *testing.T) {
	a := NewElement("a")
	b := NewElement("b")
	child := NewElement("child")

	a.Node.AppendChild(&child.Node)
	b.Node.AppendChild(&child.Node)

	assert.Len(t, a.Children(), 0)
	assert.Len(t, b.Children(), 1)
	assert.Same(t, &b.Node, child.Parent())
}

func TestIsConnected(t *testing.T) {
	doc := NewDocument()
	root := NewElement("html")
	doc.Node.AppendChild(&root.Node)

	child := NewElement("body")
	root.Node.AppendChild(&child.Node)

	assert.True(t, child.IsConnected())

	detached := NewElement("p")
	assert.False(t, detached.IsConnected())
}

func TestIdentityIsStableAndUnique(t *testing.T) {
	a := NewElement("a")
	b := NewElement("b")
	assert.NotEqual(t, a.Identity(), b.Identity())
	id := a.Identity()
	a.SetAttribute("x", "1")
	assert.Equal(t, id, a.Identity())
}

func TestAttributes(t *testing.T) {
	e := NewElement("input")
	_, ok := e.GetAttribute("type")
	assert.False(t, ok)

	e.SetAttribute("type", "checkbox")
	v, ok := e.GetAttribute("type")
	require.True(t, ok)
	assert.Equal(t, "checkbox", v)

	e.SetAttribute("type", "radio")
	v, _ = e.GetAttribute("type")
	assert.Equal(t, "radio", v)

	e.RemoveAttribute("type")
	_, ok = e.GetAttribute("type")
	assert.False(t, ok)
}

func TestShadowRootAttachmentAndHostDetection(t *testing.T) {
	host := NewElement("custom-widget")
	assert.Nil(t, host.ShadowRoot())

	sr := host.AttachShadow()
	require.NotNil(t, sr)
	assert.True(t, sr.IsShadowRoot())
	assert.Same(t, host, sr.Host())
	assert.Same(t, sr, host.ShadowRoot())

	plain := NewDocumentFragment()
	assert.False(t, plain.IsShadowRoot())
	assert.Nil(t, plain.Host())
}

func TestRootOfTree(t *testing.T) {
	doc := NewDocument()
	a := NewElement("a")
	b := NewElement("b")
	doc.Node.AppendChild(&a.Node)
	a.Node.AppendChild(&b.Node)

	assert.Same(t, &doc.Node, b.RootOfTree())
}

func TestWalkVisitsPreOrder(t *testing.T) {
	root := NewElement("root")
	a := NewElement("a")
	b := NewElement("b")
	root.Node.AppendChild(&a.Node)
	root.Node.AppendChild(&b.Node)
	c := NewElement("c")
	a.Node.AppendChild(&c.Node)

	var tags []string
	root.Node.Walk(func(n *Node) bool {
		if el, ok := n.Self().(*Element); ok {
			tags = append(tags, el.Tag)
		}
		return true
	})
	assert.Equal(t, []string{"root", "a", "c", "b"}, tags)
}

func TestFormOwnerFindsNearestAncestorForm(t *testing.T) {
	form := NewElement("form")
	fieldset := NewElement("fieldset")
	input := NewElement("input")
	form.Node.AppendChild(&fieldset.Node)
	fieldset.Node.AppendChild(&input.Node)

	assert.Same(t, form, input.FormOwner())

	orphan := NewElement("input")
	assert.Nil(t, orphan.FormOwner())
}

func TestBooleanProperties(t *testing.T) {
	e := NewElement("input")
	assert.False(t, e.Property("checked"))
	e.SetProperty("checked", true)
	assert.True(t, e.Property("checked"))
}
