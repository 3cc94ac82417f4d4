package doc

import "slices"

// splitRunes splits s after n runes.
func splitRunes(s string, n int) (string, string) {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}

// splitInline makes off fall on a child boundary of tb's inline part and
// returns the index of the first inline child at or after off.
func splitInline(tb *Node, off int) int {
	n := tb.inlineCount()
	pos := 0
	for i := 0; i < n; i++ {
		if off == pos {
			return i
		}
		c := tb.Children[i]
		l := c.Len()
		if off < pos+l {
			left, right := splitRunes(c.Text, off-pos)
			c.Text = left
			tb.Children = slices.Insert(tb.Children, i+1, NewText(right, c.Marks))
			return i + 1
		}
		pos += l
	}
	return n
}

// cutInline removes the inline content between from and to and returns it.
func cutInline(tb *Node, from, to int) []*Node {
	if from >= to {
		return nil
	}
	j := splitInline(tb, from)
	i := splitInline(tb, to)
	cut := slices.Clone(tb.Children[j:i])
	tb.Children = slices.Delete(tb.Children, j, i)
	return cut
}

// copyInline returns deep copies of the inline content between from and to.
func copyInline(tb *Node, from, to int) []*Node {
	return cutInline(tb.Clone(), from, to)
}

func insertInline(tb *Node, off int, nodes ...*Node) {
	i := splitInline(tb, off)
	tb.Children = slices.Insert(tb.Children, i, nodes...)
}

// markInline rewrites the marks of the text between from and to.
func markInline(tb *Node, from, to int, fn func(Marks) Marks) {
	if from >= to {
		return
	}
	j := splitInline(tb, from)
	i := splitInline(tb, to)
	for _, c := range tb.Children[j:i] {
		if c.IsText() {
			c.Marks = fn(c.Marks)
		}
	}
}

// eachRange calls fn for every textblock covered by [s, e] with the
// inline range inside it.
func (d *Document) eachRange(s, e point, fn func(tb *Node, from, to int)) {
	tbs := d.textblocks()
	for k := s.block; k <= e.block && k < len(tbs); k++ {
		tb := tbs[k].node
		from, to := 0, tb.inlineLen()
		if k == s.block {
			from = s.offset
		}
		if k == e.block {
			to = e.offset
		}
		fn(tb, from, to)
	}
}

// eachLeaf calls fn for every inline leaf overlapping [s, e).
func (d *Document) eachLeaf(s, e point, fn func(tb, leaf *Node)) {
	d.eachRange(s, e, func(tb *Node, from, to int) {
		pos := 0
		for _, c := range tb.Inline() {
			l := c.Len()
			if max(from, pos) < min(to, pos+l) {
				fn(tb, c)
			}
			pos += l
		}
	})
}

// parentOf returns the parent of target and its index.
func (d *Document) parentOf(target *Node) (*Node, int) {
	var find func(n *Node) (*Node, int)
	find = func(n *Node) (*Node, int) {
		for i, c := range n.Children {
			if c == target {
				return n, i
			}
			if c.IsBlock() {
				if p, idx := find(c); p != nil {
					return p, idx
				}
			}
		}
		return nil, -1
	}
	return find(d.Root)
}

func contains(n, target *Node) bool {
	if n == target {
		return true
	}
	for _, c := range n.Children {
		if contains(c, target) {
			return true
		}
	}
	return false
}

// removeTextblock removes tb from the tree. The items of its nested lists
// move up into the parent list at its place.
func (d *Document) removeTextblock(tb *Node) {
	parent, idx := d.parentOf(tb)
	if parent == nil {
		return
	}
	var repl []*Node
	for _, l := range tb.Nested() {
		if parent.IsList() {
			repl = append(repl, l.Children...)
		} else {
			repl = append(repl, l)
		}
	}
	parent.Children = slices.Replace(parent.Children, idx, idx+1, repl...)
}

// adoptLists attaches lists after tb: inside it when tb is a list item,
// as following siblings otherwise.
func (d *Document) adoptLists(tb *Node, lists []*Node) {
	if len(lists) == 0 {
		return
	}
	if tb.Kind.Type == ListItem {
		tb.Children = append(tb.Children, lists...)
		return
	}
	parent, idx := d.parentOf(tb)
	if parent == nil {
		return
	}
	parent.Children = slices.Insert(parent.Children, idx+1, lists...)
}
