package doc

import (
	"fmt"
	"unicode/utf8"
)

// NodeType tags the variant held by a Node.
type NodeType uint8

const (
	TextNode NodeType = iota
	BlockNode
	EmbedNode
)

// BlockType identifies a block construct. The zero value is Paragraph so an
// empty BlockKind means "plain paragraph".
type BlockType uint8

const (
	Paragraph BlockType = iota
	Heading
	Blockquote
	CodeBlock
	ListItem
	UnorderedList
	OrderedList
	// Root is the kind of the document node itself.
	Root
)

var blockTypeNames = map[BlockType]string{
	Paragraph:     "paragraph",
	Heading:       "heading",
	Blockquote:    "blockquote",
	CodeBlock:     "codeBlock",
	ListItem:      "listItem",
	UnorderedList: "unorderedList",
	OrderedList:   "orderedList",
	Root:          "root",
}

func (t BlockType) String() string {
	if name, ok := blockTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("BlockType(%d)", t)
}

// BlockKind is a block type plus its level (headings only, 1..6).
type BlockKind struct {
	Type  BlockType
	Level int
}

func (k BlockKind) String() string {
	if k.Type == Heading {
		return fmt.Sprintf("heading(%d)", k.Level)
	}
	return k.Type.String()
}

// Kind returns the BlockKind for a non-heading block type.
func Kind(t BlockType) BlockKind { return BlockKind{Type: t} }

// HeadingKind returns the BlockKind for a heading of the given level.
func HeadingKind(level int) BlockKind { return BlockKind{Type: Heading, Level: level} }

// ListKind returns the list container kind for ordered or unordered lists.
func ListKind(ordered bool) BlockKind {
	if ordered {
		return BlockKind{Type: OrderedList}
	}
	return BlockKind{Type: UnorderedList}
}

// IsList reports whether t is a list container type.
func (t BlockType) IsList() bool { return t == UnorderedList || t == OrderedList }

// IsTextblock reports whether blocks of type t hold inline content.
func (t BlockType) IsTextblock() bool {
	switch t {
	case Paragraph, Heading, CodeBlock, ListItem:
		return true
	}
	return false
}

// EmbedKind identifies the kind of an embedded leaf.
type EmbedKind uint8

const (
	Image EmbedKind = iota
)

func (k EmbedKind) String() string {
	if k == Image {
		return "image"
	}
	return fmt.Sprintf("EmbedKind(%d)", k)
}

// Align is a block alignment attribute. The empty value means default.
type Align string

const (
	AlignDefault Align = ""
	AlignLeft    Align = "left"
	AlignCenter  Align = "center"
	AlignRight   Align = "right"
	AlignJustify Align = "justify"
)

// Node is a node of the document tree. Which fields are meaningful depends
// on Type: Text/Marks for text leaves, Kind/Align/Lang/Children for blocks,
// Embed/Src/Alt for embeds.
type Node struct {
	Type NodeType

	Text  string
	Marks Marks

	Kind     BlockKind
	Align    Align
	Lang     string
	Children []*Node

	Embed EmbedKind
	Src   string
	Alt   string
}

// NewText creates a text leaf.
func NewText(text string, marks Marks) *Node {
	return &Node{Type: TextNode, Text: text, Marks: marks}
}

// Plain creates an unmarked text leaf.
func Plain(text string) *Node { return NewText(text, Marks{}) }

// NewBlock creates a block of the given kind.
func NewBlock(kind BlockKind, children ...*Node) *Node {
	return &Node{Type: BlockNode, Kind: kind, Children: children}
}

func NewParagraph(children ...*Node) *Node { return NewBlock(Kind(Paragraph), children...) }

func NewHeading(level int, children ...*Node) *Node {
	return NewBlock(HeadingKind(level), children...)
}

func NewBlockquote(children ...*Node) *Node { return NewBlock(Kind(Blockquote), children...) }

// NewCodeBlock creates a code block holding text verbatim.
func NewCodeBlock(lang, text string) *Node {
	n := NewBlock(Kind(CodeBlock), Plain(text))
	n.Lang = lang
	return n
}

func NewListItem(children ...*Node) *Node { return NewBlock(Kind(ListItem), children...) }

// NewList creates a list container holding items.
func NewList(ordered bool, items ...*Node) *Node { return NewBlock(ListKind(ordered), items...) }

// NewImage creates an image embed.
func NewImage(src, alt string) *Node {
	return &Node{Type: EmbedNode, Embed: Image, Src: src, Alt: alt}
}

func (n *Node) IsText() bool   { return n.Type == TextNode }
func (n *Node) IsEmbed() bool  { return n.Type == EmbedNode }
func (n *Node) IsBlock() bool  { return n.Type == BlockNode }
func (n *Node) IsInline() bool { return n.Type == TextNode || n.Type == EmbedNode }

// IsTextblock reports whether n is a block holding inline content.
func (n *Node) IsTextblock() bool { return n.Type == BlockNode && n.Kind.Type.IsTextblock() }

// IsList reports whether n is a list container.
func (n *Node) IsList() bool { return n.Type == BlockNode && n.Kind.Type.IsList() }

// Len returns the inline length of a leaf: runes for text, 1 for embeds,
// 0 for blocks.
func (n *Node) Len() int {
	switch n.Type {
	case TextNode:
		return utf8.RuneCountInString(n.Text)
	case EmbedNode:
		return 1
	}
	return 0
}

// Inline returns the inline children of a textblock. List items keep
// their nested lists after the inline part; those are excluded.
func (n *Node) Inline() []*Node {
	return n.Children[:n.inlineCount()]
}

// Nested returns the nested list containers of a list item.
func (n *Node) Nested() []*Node {
	return n.Children[n.inlineCount():]
}

func (n *Node) inlineCount() int {
	i := 0
	for i < len(n.Children) && n.Children[i].IsInline() {
		i++
	}
	return i
}

// InlineText returns the concatenated text of a textblock's inline part.
func (n *Node) InlineText() string {
	var s []byte
	for _, c := range n.Inline() {
		if c.IsText() {
			s = append(s, c.Text...)
		}
	}
	return string(s)
}

// inlineLen returns the inline length of a textblock.
func (n *Node) inlineLen() int {
	total := 0
	for _, c := range n.Inline() {
		total += c.Len()
	}
	return total
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cp := *n
	if n.Children != nil {
		cp.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = c.Clone()
		}
	}
	return &cp
}

// Equal reports whether n and o are structurally identical.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Type != o.Type {
		return false
	}
	switch n.Type {
	case TextNode:
		return n.Text == o.Text && n.Marks == o.Marks
	case EmbedNode:
		return n.Embed == o.Embed && n.Src == o.Src && n.Alt == o.Alt
	}
	if n.Kind != o.Kind || n.Align != o.Align || n.Lang != o.Lang || len(n.Children) != len(o.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}

// String renders a compact debugging form of the subtree.
func (n *Node) String() string {
	switch n.Type {
	case TextNode:
		if n.Marks.IsZero() {
			return fmt.Sprintf("%q", n.Text)
		}
		return fmt.Sprintf("%q%v", n.Text, n.Marks)
	case EmbedNode:
		return fmt.Sprintf("%s(%s)", n.Embed, n.Src)
	}
	return fmt.Sprintf("%s%v", n.Kind, n.Children)
}
