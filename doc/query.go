package doc

import (
	"slices"
	"strings"
)

// Validate reports whether both ends of the selection resolve.
func (d *Document) Validate(sel Selection) error {
	_, _, _, err := d.orderedPoints(sel)
	return err
}

// CommonAncestor returns the deepest node containing both ends of the
// selection, and its path.
func (d *Document) CommonAncestor(sel Selection) ([]int, *Node, error) {
	if err := d.Validate(sel); err != nil {
		return nil, nil, err
	}
	path := sel.Anchor.Path[:commonPrefix(sel.Anchor.Path, sel.Focus.Path)]
	n, err := d.NodeAt(path)
	if err != nil {
		return nil, nil, err
	}
	return slices.Clone(path), n, nil
}

// Ancestors returns the blocks enclosing the selection, innermost first.
// The root is not included.
func (d *Document) Ancestors(sel Selection) []*Node {
	path, _, err := d.CommonAncestor(sel)
	if err != nil {
		return nil
	}
	var out []*Node
	for k := len(path); k > 0; k-- {
		n, _ := d.NodeAt(path[:k])
		if n.IsBlock() {
			out = append(out, n)
		}
	}
	return out
}

// EnclosingBlock returns the innermost block around the selection whose
// type is one of types, or the innermost block at all when types is empty.
func (d *Document) EnclosingBlock(sel Selection, types ...BlockType) ([]int, *Node, bool) {
	path, _, err := d.CommonAncestor(sel)
	if err != nil {
		return nil, nil, false
	}
	for k := len(path); k > 0; k-- {
		n, _ := d.NodeAt(path[:k])
		if !n.IsBlock() {
			continue
		}
		if len(types) == 0 || slices.Contains(types, n.Kind.Type) {
			return slices.Clone(path[:k]), n, true
		}
	}
	return nil, nil, false
}

// MarksAt returns the marks of the text leaf holding pos. Between two
// leaves the left one wins.
func (d *Document) MarksAt(pos Position) Marks {
	pt, err := d.point(pos)
	if err != nil {
		return Marks{}
	}
	p := d.position(pt)
	n, err := d.NodeAt(p.Path)
	if err != nil || !n.IsText() {
		return Marks{}
	}
	return n.Marks
}

// CommonMarks returns the marks shared by all text in the selection. A
// collapsed selection yields its stored marks, or the marks at the caret.
func (d *Document) CommonMarks(sel Selection) Marks {
	s, e, _, err := d.orderedPoints(sel)
	if err != nil {
		return Marks{}
	}
	if s == e {
		if sel.Stored != nil {
			return *sel.Stored
		}
		return d.MarksAt(sel.Anchor)
	}
	var out Marks
	seen := false
	d.eachLeaf(s, e, func(tb, leaf *Node) {
		if !leaf.IsText() {
			return
		}
		if !seen {
			out, seen = leaf.Marks, true
			return
		}
		out = out.intersect(leaf.Marks)
	})
	return out
}

// EnclosingMark returns the mark of type t when it covers the whole
// selection consistently.
func (d *Document) EnclosingMark(sel Selection, t MarkType) (Mark, bool) {
	m := d.CommonMarks(sel)
	if !m.Has(t) {
		return Mark{}, false
	}
	mk := Mark{Type: t}
	if t == Link {
		mk.Href = m.Href
	}
	return mk, true
}

// TextInRange returns the text covered by the selection, with blocks
// separated by newlines.
func (d *Document) TextInRange(sel Selection) string {
	s, e, _, err := d.orderedPoints(sel)
	if err != nil {
		return ""
	}
	var parts []string
	d.eachRange(s, e, func(tb *Node, from, to int) {
		var b strings.Builder
		for _, n := range copyInline(tb, from, to) {
			if n.IsText() {
				b.WriteString(n.Text)
			}
		}
		parts = append(parts, b.String())
	})
	return strings.Join(parts, "\n")
}

// Fragment returns copies of the inline content covered by the selection,
// with blocks joined by a newline text.
func (d *Document) Fragment(sel Selection) []*Node {
	s, e, _, err := d.orderedPoints(sel)
	if err != nil {
		return nil
	}
	var out []*Node
	first := true
	d.eachRange(s, e, func(tb *Node, from, to int) {
		if !first {
			out = append(out, Plain("\n"))
		}
		first = false
		out = append(out, copyInline(tb, from, to)...)
	})
	return out
}
