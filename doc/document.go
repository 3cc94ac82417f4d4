// Package doc holds the structured document model edited by the composer:
// a tree of blocks, inline text leaves with marks, and embeds, plus the
// primitive tree operations and selection queries the command layer is
// built from.
package doc

import (
	"slices"
	"strings"

	"github.com/rivo/uniseg"
)

// Meta is document-level metadata carried through Markdown front matter.
type Meta struct {
	Title   string   `yaml:"title,omitempty" toml:"title,omitempty" json:"title,omitempty"`
	Author  string   `yaml:"author,omitempty" toml:"author,omitempty" json:"author,omitempty"`
	Summary string   `yaml:"summary,omitempty" toml:"summary,omitempty" json:"summary,omitempty"`
	Tags    []string `yaml:"tags,omitempty" toml:"tags,omitempty" json:"tags,omitempty"`
}

func (m Meta) IsZero() bool {
	return m.Title == "" && m.Author == "" && m.Summary == "" && len(m.Tags) == 0
}

func (m Meta) Equal(o Meta) bool {
	return m.Title == o.Title && m.Author == o.Author && m.Summary == o.Summary && slices.Equal(m.Tags, o.Tags)
}

// Stats are the derived counts shown to the user.
type Stats struct {
	Words      int
	Characters int
}

// Document is the root of the tree plus metadata. Every mutating method
// normalizes the tree and refreshes Stats before returning.
type Document struct {
	Root *Node
	Meta Meta

	stats Stats
}

// New creates a normalized document holding blocks. With no blocks the
// document contains a single empty paragraph.
func New(blocks ...*Node) *Document {
	d := &Document{Root: NewBlock(Kind(Root), blocks...)}
	d.Normalize()
	return d
}

// Blocks returns the top-level blocks.
func (d *Document) Blocks() []*Node { return d.Root.Children }

func (d *Document) Clone() *Document {
	meta := d.Meta
	meta.Tags = slices.Clone(d.Meta.Tags)
	return &Document{Root: d.Root.Clone(), Meta: meta, stats: d.stats}
}

// Equal reports whether both documents have the same tree and metadata.
func (d *Document) Equal(o *Document) bool {
	return d.Meta.Equal(o.Meta) && d.Root.Equal(o.Root)
}

// Replace swaps the content of d with src.
func (d *Document) Replace(src *Document) {
	d.Root = src.Root
	d.Meta = src.Meta
	d.stats = src.stats
}

// Stats returns the counts computed after the last mutation.
func (d *Document) Stats() Stats { return d.stats }

// PlainText returns the text of every textblock joined by newlines.
// Embeds contribute nothing.
func (d *Document) PlainText() string {
	tbs := d.textblocks()
	parts := make([]string, len(tbs))
	for i, loc := range tbs {
		parts[i] = loc.node.InlineText()
	}
	return strings.Join(parts, "\n")
}

func (d *Document) computeStats() Stats {
	chars := 0
	for _, loc := range d.textblocks() {
		for _, c := range loc.node.Inline() {
			if c.IsText() {
				chars += uniseg.GraphemeClusterCount(c.Text)
			}
		}
	}
	return Stats{
		Words:      len(strings.Fields(d.PlainText())),
		Characters: chars,
	}
}
