package command

import "github.com/alimasry/go-composer/doc"

// ListType is the kind of the innermost list around a selection.
type ListType uint8

const (
	ListNone ListType = iota
	ListUnordered
	ListOrdered
)

// BlockState describes the block context of a selection.
type BlockState struct {
	// Heading is the heading level, 0 outside headings.
	Heading int
	List    ListType
	Quote   bool
	Code    bool
}

// ActiveFormats is the formatting state reported to toolbars.
type ActiveFormats struct {
	Marks doc.Marks
	Block BlockState
	Align doc.Align
}

// Has reports whether mark t is active.
func (a ActiveFormats) Has(t doc.MarkType) bool { return a.Marks.Has(t) }

// QueryActiveFormats reports the marks shared by the whole selection and
// its block context. A mark present on only part of the selection is not
// active. A nil or unresolvable selection yields the zero value.
func QueryActiveFormats(d *doc.Document, sel *doc.Selection) ActiveFormats {
	if sel == nil || d.Validate(*sel) != nil {
		return ActiveFormats{}
	}
	out := ActiveFormats{Marks: d.CommonMarks(*sel)}
	for _, n := range d.Ancestors(*sel) {
		switch n.Kind.Type {
		case doc.Heading:
			if out.Block.Heading == 0 {
				out.Block.Heading = n.Kind.Level
			}
		case doc.UnorderedList:
			if out.Block.List == ListNone {
				out.Block.List = ListUnordered
			}
		case doc.OrderedList:
			if out.Block.List == ListNone {
				out.Block.List = ListOrdered
			}
		case doc.Blockquote:
			out.Block.Quote = true
		case doc.CodeBlock:
			out.Block.Code = true
		}
	}
	if _, tb, ok := d.EnclosingBlock(*sel, doc.Paragraph, doc.Heading, doc.CodeBlock, doc.ListItem); ok {
		out.Align = tb.Align
	}
	return out
}
