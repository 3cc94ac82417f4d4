package doc

import "strings"

// Normalize restores the tree invariants after a batch of edits:
//   - textblocks hold inline leaves only, adjacent texts with equal marks
//     are merged and empty texts dropped (an empty block keeps one empty
//     text as a caret placeholder);
//   - code blocks hold a single unmarked text;
//   - lists hold only items, a list nested directly in a list moves into
//     the preceding item, stray items get an unordered list;
//   - adjacent lists of the same kind are merged;
//   - empty lists and blockquotes disappear, the root is never empty.
//
// It also refreshes Stats.
func (d *Document) Normalize() {
	if d.Root == nil {
		d.Root = NewBlock(Kind(Root))
	}
	d.Root.Type = BlockNode
	d.Root.Kind = Kind(Root)
	d.Root.Children = normalizeBlocks(d.Root.Children)
	if len(d.Root.Children) == 0 {
		d.Root.Children = []*Node{NewParagraph(Plain(""))}
	}
	d.stats = d.computeStats()
}

// normalizeBlocks normalizes the children of the root or a blockquote.
func normalizeBlocks(children []*Node) []*Node {
	out := make([]*Node, 0, len(children))
	var inline, items []*Node
	flushInline := func() {
		if len(inline) > 0 {
			out = append(out, normalizeTextblock(NewParagraph(inline...)))
			inline = nil
		}
	}
	flushItems := func() {
		if len(items) > 0 {
			out = appendList(out, normalizeList(NewList(false, items...)))
			items = nil
		}
	}
	for _, c := range children {
		if c == nil {
			continue
		}
		if c.IsInline() {
			flushItems()
			inline = append(inline, c)
			continue
		}
		flushInline()
		if c.Kind.Type == ListItem {
			items = append(items, c)
			continue
		}
		flushItems()
		switch {
		case c.Kind.Type == Root:
			out = append(out, normalizeBlocks(c.Children)...)
		case c.Kind.Type == Blockquote:
			c.Children = normalizeBlocks(c.Children)
			c.Kind.Level = 0
			if len(c.Children) > 0 {
				out = append(out, c)
			}
		case c.IsList():
			out = appendList(out, normalizeList(c))
		default:
			out = append(out, normalizeTextblock(c))
		}
	}
	flushInline()
	flushItems()
	return out
}

func normalizeList(l *Node) *Node {
	items := make([]*Node, 0, len(l.Children))
	for _, c := range l.Children {
		switch {
		case c == nil:
		case c.IsInline():
			items = append(items, NewListItem(c))
		case c.IsList():
			if len(items) == 0 {
				items = append(items, NewListItem())
			}
			prev := items[len(items)-1]
			prev.Children = append(prev.Children, c)
		case c.Kind.Type == ListItem:
			items = append(items, c)
		default:
			item := NewListItem(flattenInline(c)...)
			item.Align = c.Align
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil
	}
	for i, it := range items {
		items[i] = normalizeItem(it)
	}
	l.Children = items
	l.Kind.Level = 0
	return l
}

// appendList appends a normalized list, folding it into the previous
// sibling when both have the same kind.
func appendList(out []*Node, l *Node) []*Node {
	if l == nil {
		return out
	}
	if n := len(out); n > 0 && out[n-1].IsList() && out[n-1].Kind.Type == l.Kind.Type {
		out[n-1].Children = append(out[n-1].Children, l.Children...)
		return out
	}
	return append(out, l)
}

func normalizeItem(it *Node) *Node {
	var inline, nested []*Node
	for _, c := range it.Children {
		switch {
		case c == nil:
		case c.IsInline():
			inline = append(inline, c)
		case c.IsList():
			nested = appendList(nested, normalizeList(c))
		case c.Kind.Type == ListItem:
			nested = appendList(nested, normalizeList(NewList(false, c)))
		default:
			if len(inline) > 0 {
				inline = append(inline, Plain("\n"))
			}
			inline = append(inline, flattenInline(c)...)
		}
	}
	it.Kind = Kind(ListItem)
	it.Lang = ""
	it.Children = append(normalizeInline(inline), nested...)
	return it
}

func normalizeTextblock(tb *Node) *Node {
	if !tb.Kind.Type.IsTextblock() || tb.Kind.Type == ListItem {
		tb.Kind = Kind(Paragraph)
	}
	children := flattenInline(tb)
	switch tb.Kind.Type {
	case CodeBlock:
		var b strings.Builder
		for _, c := range children {
			if c.IsText() {
				b.WriteString(c.Text)
			}
		}
		tb.Kind.Level = 0
		tb.Children = []*Node{Plain(b.String())}
		return tb
	case Heading:
		tb.Kind.Level = max(1, min(tb.Kind.Level, 6))
		for _, c := range children {
			if c.IsText() && strings.Contains(c.Text, "\n") {
				c.Text = strings.ReplaceAll(c.Text, "\n", " ")
			}
		}
	default:
		tb.Kind.Level = 0
	}
	tb.Lang = ""
	tb.Children = normalizeInline(children)
	return tb
}

// normalizeInline drops empty texts and merges neighbours with equal marks.
func normalizeInline(nodes []*Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, c := range nodes {
		if c.IsText() {
			if c.Text == "" {
				continue
			}
			if n := len(out); n > 0 && out[n-1].IsText() && out[n-1].Marks == c.Marks {
				out[n-1].Text += c.Text
				continue
			}
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		out = append(out, Plain(""))
	}
	return out
}

// flattenInline collects the inline leaves under b, separating the
// content of distinct blocks with a newline.
func flattenInline(b *Node) []*Node {
	if b.IsInline() {
		return []*Node{b}
	}
	var out []*Node
	for _, c := range b.Children {
		if c == nil {
			continue
		}
		if c.IsInline() {
			out = append(out, c)
			continue
		}
		part := flattenInline(c)
		if len(part) == 0 {
			continue
		}
		if len(out) > 0 {
			out = append(out, Plain("\n"))
		}
		out = append(out, part...)
	}
	return out
}
