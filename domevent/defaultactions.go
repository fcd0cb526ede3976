package domevent

import "github.com/kallowynd/pageruntime/domtree"

// checkboxRadioFlip records the state a click's default action flipped,
// so it can be rolled back if the listener calls prevent_default.
type checkboxRadioFlip struct {
	el                      *domtree.Element
	oldChecked              bool
	previousRadio           *domtree.Element
	previousRadioWasChecked bool
}

// prepareCheckboxRadioFlip implements spec §4.4's "before dispatch, flip
// the input's checked state" step. It returns nil for anything other than
// a click on an <input type=checkbox|radio>.
func (m *Manager) prepareCheckboxRadioFlip(target *domtree.Node) *checkboxRadioFlip {
	el, ok := target.Self().(*domtree.Element)
	if !ok || el.Tag != "input" {
		return nil
	}
	typ, _ := el.GetAttribute("type")
	if typ != "checkbox" && typ != "radio" {
		return nil
	}

	f := &checkboxRadioFlip{el: el, oldChecked: el.Property("checked")}
	if typ == "radio" {
		if prev := findCheckedRadioInGroup(el); prev != nil {
			f.previousRadio = prev
			f.previousRadioWasChecked = true
			prev.SetProperty("checked", false)
		}
		el.SetProperty("checked", true)
	} else {
		el.SetProperty("checked", !f.oldChecked)
	}
	return f
}

// finishCheckboxRadioFlip implements the "after dispatch" half: roll back
// on prevent_default, otherwise fire untrusted input/change if the state
// actually changed and the element is still connected.
func (m *Manager) finishCheckboxRadioFlip(f *checkboxRadioFlip, evt *Event) {
	if evt.DefaultPrevented() {
		f.el.SetProperty("checked", f.oldChecked)
		if f.previousRadio != nil {
			f.previousRadio.SetProperty("checked", f.previousRadioWasChecked)
		}
		return
	}
	if f.el.Property("checked") == f.oldChecked {
		return
	}
	if !f.el.IsConnected() {
		return
	}

	input := NewEvent("input", true, false)
	input.Trusted = false
	m.Dispatch(&f.el.Node, input)

	change := NewEvent("change", true, false)
	change.Trusted = false
	m.Dispatch(&f.el.Node, change)
}

// findCheckedRadioInGroup scans from el's root of tree for another radio
// input sharing el's name attribute and form scope (both null or the same
// form owner), per spec §4.4.
func findCheckedRadioInGroup(el *domtree.Element) *domtree.Element {
	name, ok := el.GetAttribute("name")
	if !ok || name == "" {
		return nil
	}
	form := el.FormOwner()

	var found *domtree.Element
	el.Node.RootOfTree().Walk(func(n *domtree.Node) bool {
		if found != nil {
			return false
		}
		cand, ok := n.Self().(*domtree.Element)
		if !ok || cand == el || cand.Tag != "input" {
			return true
		}
		if ctype, _ := cand.GetAttribute("type"); ctype != "radio" {
			return true
		}
		if cname, _ := cand.GetAttribute("name"); cname != name {
			return true
		}
		if cand.FormOwner() != form {
			return true
		}
		if cand.Property("checked") {
			found = cand
			return false
		}
		return true
	})
	return found
}
