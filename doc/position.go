package doc

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrInvalidPosition = errors.New("doc: invalid position")
	ErrInvalidTarget   = errors.New("doc: invalid target")
)

// Position addresses a point in the document. Path is the chain of child
// indices from the root to a leaf; Offset counts runes inside a text leaf
// (0 or 1 for an embed). A Path ending at a textblock is also accepted, in
// which case Offset counts across the block's whole inline content.
type Position struct {
	Path   []int
	Offset int
}

// Pos builds a Position from an offset and a path.
func Pos(offset int, path ...int) Position {
	return Position{Path: path, Offset: offset}
}

func (p Position) Equal(q Position) bool {
	return p.Offset == q.Offset && slices.Equal(p.Path, q.Path)
}

func (p Position) String() string {
	return fmt.Sprintf("%v:%d", p.Path, p.Offset)
}

// ComparePos orders positions structurally by path, then offset. Two
// positions written in different forms (leaf vs textblock) are not
// compared by document order; use Document.Compare for that.
func ComparePos(a, b Position) int {
	if c := slices.Compare(a.Path, b.Path); c != 0 {
		return c
	}
	return a.Offset - b.Offset
}

// point is the internal coordinate: ordinal of the textblock in document
// order and the rune offset inside its inline content.
type point struct {
	block  int
	offset int
}

func (p point) less(q point) bool {
	return p.block < q.block || (p.block == q.block && p.offset < q.offset)
}

type located struct {
	node *Node
	path []int
}

// textblocks lists every textblock in document order with its path.
func (d *Document) textblocks() []located {
	var out []located
	var walk func(n *Node, path []int)
	walk = func(n *Node, path []int) {
		for i, c := range n.Children {
			if !c.IsBlock() {
				continue
			}
			p := append(slices.Clone(path), i)
			if c.IsTextblock() {
				out = append(out, located{node: c, path: p})
			}
			walk(c, p)
		}
	}
	walk(d.Root, nil)
	return out
}

func (d *Document) indexOf(tb *Node) int {
	for i, loc := range d.textblocks() {
		if loc.node == tb {
			return i
		}
	}
	return -1
}

// NodeAt returns the node at path. An empty path is the root.
func (d *Document) NodeAt(path []int) (*Node, error) {
	n := d.Root
	for depth, i := range path {
		if n.Type != BlockNode || i < 0 || i >= len(n.Children) {
			return nil, fmt.Errorf("%w: no node at %v (depth %d)", ErrInvalidPosition, path, depth)
		}
		n = n.Children[i]
	}
	return n, nil
}

func (d *Document) point(p Position) (point, error) {
	if len(p.Path) == 0 {
		return point{}, fmt.Errorf("%w: empty path", ErrInvalidPosition)
	}
	n, err := d.NodeAt(p.Path)
	if err != nil {
		return point{}, err
	}
	var tb *Node
	base := 0
	switch {
	case n.IsTextblock():
		tb = n
		if p.Offset < 0 || p.Offset > tb.inlineLen() {
			return point{}, fmt.Errorf("%w: offset %d outside block %v", ErrInvalidPosition, p.Offset, p.Path)
		}
	case n.IsInline():
		if p.Offset < 0 || p.Offset > n.Len() {
			return point{}, fmt.Errorf("%w: offset %d outside leaf %v", ErrInvalidPosition, p.Offset, p.Path)
		}
		parentPath := p.Path[:len(p.Path)-1]
		tb, err = d.NodeAt(parentPath)
		if err != nil {
			return point{}, err
		}
		if !tb.IsTextblock() {
			return point{}, fmt.Errorf("%w: leaf %v outside a textblock", ErrInvalidPosition, p.Path)
		}
		for _, c := range tb.Children[:p.Path[len(p.Path)-1]] {
			base += c.Len()
		}
	default:
		return point{}, fmt.Errorf("%w: %v is a %s", ErrInvalidPosition, p.Path, n.Kind)
	}
	idx := d.indexOf(tb)
	if idx < 0 {
		return point{}, fmt.Errorf("%w: %v not reachable", ErrInvalidPosition, p.Path)
	}
	return point{block: idx, offset: base + p.Offset}, nil
}

// position converts an internal point back to a leaf Position, clamping
// out-of-range values. At a boundary between two leaves the text leaf on
// the left wins so typing continues its marks.
func (d *Document) position(pt point) Position {
	tbs := d.textblocks()
	if len(tbs) == 0 {
		return Position{}
	}
	pt.block = max(0, min(pt.block, len(tbs)-1))
	loc := tbs[pt.block]
	inline := loc.node.Inline()
	off := max(0, min(pt.offset, loc.node.inlineLen()))
	if len(inline) == 0 {
		return Position{Path: loc.path, Offset: 0}
	}
	pos := 0
	for i, c := range inline {
		l := c.Len()
		if c.IsText() && off <= pos+l {
			return Position{Path: append(slices.Clone(loc.path), i), Offset: off - pos}
		}
		if off < pos+l {
			return Position{Path: append(slices.Clone(loc.path), i), Offset: off - pos}
		}
		pos += l
	}
	last := len(inline) - 1
	return Position{Path: append(slices.Clone(loc.path), last), Offset: inline[last].Len()}
}

// orderedPoints resolves a selection into start and end points. backward
// is true when the focus precedes the anchor.
func (d *Document) orderedPoints(sel Selection) (start, end point, backward bool, err error) {
	a, err := d.point(sel.Anchor)
	if err != nil {
		return point{}, point{}, false, fmt.Errorf("anchor: %w", err)
	}
	f, err := d.point(sel.Focus)
	if err != nil {
		return point{}, point{}, false, fmt.Errorf("focus: %w", err)
	}
	if f.less(a) {
		return f, a, true, nil
	}
	return a, f, false, nil
}

// selectionFrom rebuilds a selection from points, keeping its direction.
func (d *Document) selectionFrom(start, end point, backward bool, stored *Marks) Selection {
	s, e := d.position(start), d.position(end)
	if backward {
		s, e = e, s
	}
	return Selection{Anchor: s, Focus: e, Stored: stored}
}

// Compare orders two positions by document order.
func (d *Document) Compare(a, b Position) (int, error) {
	pa, err := d.point(a)
	if err != nil {
		return 0, err
	}
	pb, err := d.point(b)
	if err != nil {
		return 0, err
	}
	switch {
	case pa.less(pb):
		return -1, nil
	case pb.less(pa):
		return 1, nil
	}
	return 0, nil
}

// BlockIndex returns the ordinal of the textblock holding pos and the
// offset inside its inline content.
func (d *Document) BlockIndex(pos Position) (block, offset int, err error) {
	pt, err := d.point(pos)
	if err != nil {
		return 0, 0, err
	}
	return pt.block, pt.offset, nil
}

// PositionAt returns the position at offset inside the block-th textblock.
// Out of range values are clamped.
func (d *Document) PositionAt(block, offset int) Position {
	return d.position(point{block: block, offset: offset})
}

// BlockCount returns the number of textblocks.
func (d *Document) BlockCount() int { return len(d.textblocks()) }

// BlockLen returns the inline length of the block-th textblock.
func (d *Document) BlockLen(block int) int {
	tbs := d.textblocks()
	if block < 0 || block >= len(tbs) {
		return 0
	}
	return tbs[block].node.inlineLen()
}

// Start returns the first position of the document.
func (d *Document) Start() Position { return d.position(point{}) }

// End returns the last position of the document.
func (d *Document) End() Position {
	n := d.BlockCount()
	return d.position(point{block: n - 1, offset: d.BlockLen(n - 1)})
}
