package doc

import (
	"fmt"
	"slices"
)

// Insert places n at the given position and returns the position right
// after the inserted content. Inline nodes go inside the textblock; a block
// splits the textblock (or follows the enclosing list) at the nearest root
// or blockquote level, and the returned position is the start of the new
// block.
func (d *Document) Insert(n *Node, at Position) (Position, error) {
	if n == nil {
		return Position{}, fmt.Errorf("%w: nil node", ErrInvalidTarget)
	}
	pt, err := d.point(at)
	if err != nil {
		return Position{}, err
	}
	tbs := d.textblocks()
	loc := tbs[pt.block]
	tb := loc.node

	if n.IsInline() {
		node := n.Clone()
		if tb.Kind.Type == CodeBlock {
			if node.IsEmbed() {
				return Position{}, fmt.Errorf("%w: %s inside a code block", ErrInvalidTarget, node.Embed)
			}
			node.Marks = Marks{}
		}
		insertInline(tb, pt.offset, node)
		d.Normalize()
		return d.position(point{block: pt.block, offset: pt.offset + node.Len()}), nil
	}
	if n.Kind.Type == Root {
		return Position{}, fmt.Errorf("%w: cannot insert a root", ErrInvalidTarget)
	}

	block := n.Clone()
	k := len(loc.path) - 1
	for k > 0 {
		parent, _ := d.NodeAt(loc.path[:k])
		if parent.Kind.Type == Root || parent.Kind.Type == Blockquote {
			break
		}
		k--
	}
	container, _ := d.NodeAt(loc.path[:k])
	idx := loc.path[k]

	if k == len(loc.path)-1 {
		total := tb.inlineLen()
		switch {
		case total == 0 && tb.Kind.Type == Paragraph:
			container.Children[idx] = block
		case pt.offset == 0:
			container.Children = slices.Insert(container.Children, idx, block)
		case pt.offset == total:
			container.Children = slices.Insert(container.Children, idx+1, block)
		default:
			rest := &Node{Type: BlockNode, Kind: tb.Kind, Align: tb.Align, Lang: tb.Lang}
			rest.Children = cutInline(tb, pt.offset, total)
			container.Children = slices.Insert(container.Children, idx+1, block, rest)
		}
	} else {
		container.Children = slices.Insert(container.Children, idx+1, block)
	}
	d.Normalize()
	return d.position(point{block: d.firstTextblockIn(block, pt.block)}), nil
}

// firstTextblockIn returns the ordinal of the first textblock inside n,
// or fallback when n holds none.
func (d *Document) firstTextblockIn(n *Node, fallback int) int {
	for i, loc := range d.textblocks() {
		if contains(n, loc.node) {
			return i
		}
	}
	return fallback
}

// InsertText inserts text carrying marks at the position.
func (d *Document) InsertText(text string, marks Marks, at Position) (Position, error) {
	return d.Insert(NewText(text, marks), at)
}

// SplitBlock splits the textblock at the position in two and returns the
// start of the second half. A list item's nested lists move to the new
// item. Splitting at the end of a heading starts a paragraph. Inside a code
// block a newline is inserted instead.
func (d *Document) SplitBlock(at Position) (Position, error) {
	pt, err := d.point(at)
	if err != nil {
		return Position{}, err
	}
	tb := d.textblocks()[pt.block].node
	if tb.Kind.Type == CodeBlock {
		return d.Insert(Plain("\n"), at)
	}
	total := tb.inlineLen()
	nested := slices.Clone(tb.Nested())
	right := cutInline(tb, pt.offset, total)
	if tb.Kind.Type == ListItem {
		tb.Children = slices.Clone(tb.Inline())
	}

	nb := &Node{Type: BlockNode, Kind: tb.Kind, Align: tb.Align}
	if tb.Kind.Type == Heading && pt.offset == total {
		nb.Kind = Kind(Paragraph)
	}
	nb.Children = right
	if tb.Kind.Type == ListItem {
		nb.Children = append(nb.Children, nested...)
	}
	parent, idx := d.parentOf(tb)
	parent.Children = slices.Insert(parent.Children, idx+1, nb)
	d.Normalize()
	return d.position(point{block: pt.block + 1}), nil
}

// Delete removes the content of the selection and returns the collapsed
// position where it was. Across blocks, the tail of the last block joins
// the first and the blocks in between disappear.
func (d *Document) Delete(sel Selection) (Position, error) {
	s, e, _, err := d.orderedPoints(sel)
	if err != nil {
		return Position{}, err
	}
	tbs := d.textblocks()
	if s.block == e.block {
		cutInline(tbs[s.block].node, s.offset, e.offset)
		d.Normalize()
		return d.position(s), nil
	}
	first, last := tbs[s.block].node, tbs[e.block].node
	tail := cutInline(last, e.offset, last.inlineLen())
	adopted := slices.Clone(last.Nested())
	last.Children = slices.Clone(last.Inline())
	for k := e.block; k > s.block; k-- {
		d.removeTextblock(tbs[k].node)
	}
	cutInline(first, s.offset, first.inlineLen())
	insertInline(first, first.inlineLen(), tail...)
	d.adoptLists(first, adopted)
	d.Normalize()
	return d.position(s), nil
}

// MergeBlocks appends the content of the textblock at b to the one at a
// and removes b. It returns the position at the join.
func (d *Document) MergeBlocks(a, b []int) (Position, error) {
	na, err := d.NodeAt(a)
	if err != nil {
		return Position{}, err
	}
	nb, err := d.NodeAt(b)
	if err != nil {
		return Position{}, err
	}
	if !na.IsTextblock() || !nb.IsTextblock() || na == nb || contains(nb, na) {
		return Position{}, fmt.Errorf("%w: cannot merge %v into %v", ErrInvalidTarget, b, a)
	}
	off := na.inlineLen()
	content := slices.Clone(nb.Inline())
	adopted := slices.Clone(nb.Nested())
	nb.Children = nil
	d.removeTextblock(nb)
	insertInline(na, off, content...)
	d.adoptLists(na, adopted)
	d.Normalize()
	return d.position(point{block: d.indexOf(na), offset: off}), nil
}

// ReplaceInline replaces the inline content of the textblock holding the
// position with copies of nodes.
func (d *Document) ReplaceInline(at Position, nodes []*Node) error {
	pt, err := d.point(at)
	if err != nil {
		return err
	}
	tb := d.textblocks()[pt.block].node
	repl := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n.IsInline() {
			repl = append(repl, n.Clone())
		}
	}
	tb.Children = append(repl, tb.Nested()...)
	d.Normalize()
	return nil
}

// Wrap wraps the blocks covered by the selection in a blockquote or list
// container. The run of sibling blocks is taken at the lowest root or
// blockquote level containing the whole selection.
func (d *Document) Wrap(sel Selection, kind BlockKind) error {
	if kind.Type != Blockquote && !kind.Type.IsList() {
		return fmt.Errorf("%w: cannot wrap in %s", ErrInvalidTarget, kind)
	}
	s, e, _, err := d.orderedPoints(sel)
	if err != nil {
		return err
	}
	tbs := d.textblocks()
	ps, pe := tbs[s.block].path, tbs[e.block].path
	m := commonPrefix(ps, pe)
	if m == len(ps) || m == len(pe) {
		m--
	}
	for m > 0 {
		n, _ := d.NodeAt(ps[:m])
		if n.Kind.Type == Blockquote {
			break
		}
		m--
	}
	container, _ := d.NodeAt(ps[:m])
	i, j := ps[m], pe[m]
	run := slices.Clone(container.Children[i : j+1])

	var wrapper *Node
	if kind.Type == Blockquote {
		wrapper = NewBlockquote(run...)
	} else {
		var items []*Node
		for _, b := range run {
			items = append(items, toItems(b)...)
		}
		wrapper = NewBlock(Kind(kind.Type), items...)
	}
	container.Children = slices.Replace(container.Children, i, j+1, wrapper)
	d.Normalize()
	return nil
}

func toItems(b *Node) []*Node {
	switch {
	case b.IsList():
		return b.Children
	case b.Kind.Type == Blockquote:
		var out []*Node
		for _, c := range b.Children {
			out = append(out, toItems(c)...)
		}
		return out
	}
	item := NewListItem(b.Inline()...)
	item.Align = b.Align
	return []*Node{item}
}

// Unwrap removes the innermost blockquote or list around the selection.
// For lists only the selected items are affected: items of a nested list
// move out one level (following siblings nest under the last one), items
// of a top-level list become paragraphs and the rest of the list is split
// around them.
func (d *Document) Unwrap(sel Selection) error {
	s, e, _, err := d.orderedPoints(sel)
	if err != nil {
		return err
	}
	tbs := d.textblocks()
	ps, pe := tbs[s.block].path, tbs[e.block].path
	m := commonPrefix(ps, pe)
	k := m
	var target *Node
	for ; k > 0; k-- {
		n, _ := d.NodeAt(ps[:k])
		if n.Kind.Type == Blockquote || n.IsList() {
			target = n
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: nothing to unwrap", ErrInvalidTarget)
	}
	parent, _ := d.NodeAt(ps[:k-1])
	idx := ps[k-1]
	if target.Kind.Type == Blockquote {
		parent.Children = slices.Replace(parent.Children, idx, idx+1, target.Children...)
		d.Normalize()
		return nil
	}

	items := target.Children
	i, j := ps[k], pe[k]
	before := slices.Clone(items[:i])
	selected := slices.Clone(items[i : j+1])
	after := slices.Clone(items[j+1:])

	if parent.Kind.Type == ListItem {
		outer, _ := d.NodeAt(ps[:k-2])
		at := ps[k-2]
		if len(after) > 0 {
			last := selected[len(selected)-1]
			last.Children = append(last.Children, NewBlock(target.Kind, after...))
		}
		if len(before) > 0 {
			target.Children = before
		} else {
			parent.Children = slices.Delete(parent.Children, idx, idx+1)
		}
		outer.Children = slices.Insert(outer.Children, at+1, selected...)
		d.Normalize()
		return nil
	}

	var repl []*Node
	if len(before) > 0 {
		repl = append(repl, NewBlock(target.Kind, before...))
	}
	for _, item := range selected {
		p := NewParagraph(item.Inline()...)
		p.Align = item.Align
		repl = append(repl, p)
		repl = append(repl, item.Nested()...)
	}
	if len(after) > 0 {
		repl = append(repl, NewBlock(target.Kind, after...))
	}
	parent.Children = slices.Replace(parent.Children, idx, idx+1, repl...)
	d.Normalize()
	return nil
}

func commonPrefix(a, b []int) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// SetBlockKind converts every non-item textblock covered by the selection
// to kind and lifts it out of any enclosing blockquote. List items are
// left unchanged. The returned selection covers the same content.
func (d *Document) SetBlockKind(sel Selection, kind BlockKind) (Selection, error) {
	if !kind.Type.IsTextblock() || kind.Type == ListItem {
		return sel, fmt.Errorf("%w: %s is not a textblock kind", ErrInvalidTarget, kind)
	}
	s, e, backward, err := d.orderedPoints(sel)
	if err != nil {
		return sel, err
	}
	var targets []*Node
	for _, loc := range d.textblocks()[s.block : e.block+1] {
		if loc.node.Kind.Type != ListItem {
			targets = append(targets, loc.node)
		}
	}
	for _, tb := range targets {
		if kind.Type == CodeBlock && tb.Kind.Type != CodeBlock {
			tb.Children = []*Node{Plain(tb.InlineText())}
		}
		tb.Kind = kind
		d.liftFromQuote(tb)
	}
	d.Normalize()
	return d.selectionFrom(s, e, backward, sel.Stored), nil
}

// liftFromQuote moves tb out of its enclosing blockquotes, splitting them
// around it.
func (d *Document) liftFromQuote(tb *Node) {
	for {
		parent, idx := d.parentOf(tb)
		if parent == nil || parent.Kind.Type != Blockquote {
			return
		}
		grand, gi := d.parentOf(parent)
		if grand == nil {
			return
		}
		var repl []*Node
		if before := slices.Clone(parent.Children[:idx]); len(before) > 0 {
			repl = append(repl, NewBlockquote(before...))
		}
		repl = append(repl, tb)
		if after := slices.Clone(parent.Children[idx+1:]); len(after) > 0 {
			repl = append(repl, NewBlockquote(after...))
		}
		grand.Children = slices.Replace(grand.Children, gi, gi+1, repl...)
	}
}

// SetAlign sets the alignment of every textblock covered by the selection.
func (d *Document) SetAlign(sel Selection, a Align) error {
	s, e, _, err := d.orderedPoints(sel)
	if err != nil {
		return err
	}
	for _, loc := range d.textblocks()[s.block : e.block+1] {
		loc.node.Align = a
	}
	d.Normalize()
	return nil
}

// ApplyMarks rewrites the marks of all text in the selection with fn.
// Code blocks are skipped. The returned selection covers the same text.
func (d *Document) ApplyMarks(sel Selection, fn func(Marks) Marks) (Selection, error) {
	s, e, backward, err := d.orderedPoints(sel)
	if err != nil {
		return sel, err
	}
	d.eachRange(s, e, func(tb *Node, from, to int) {
		if tb.Kind.Type != CodeBlock {
			markInline(tb, from, to, fn)
		}
	})
	d.Normalize()
	return d.selectionFrom(s, e, backward, sel.Stored), nil
}
