package command

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/alimasry/go-composer/doc"
)

// FontFamilies are the families offered by the font picker.
var FontFamilies = []string{"Arial", "Georgia", "Courier New", "Times New Roman", "sans-serif"}

// FontSizes are the sizes offered by the font picker. Any "<n>px" value is
// accepted.
var FontSizes = []string{"12px", "14px", "16px", "18px", "24px", "32px"}

var (
	fontSizePattern = regexp.MustCompile(`^\d{1,3}px$`)
	langPattern     = regexp.MustCompile(`^[A-Za-z0-9_+#.-]+$`)
)

func notBlank(code, msg string) validation.Rule {
	return validation.By(func(value any) error {
		if s, _ := value.(string); strings.TrimSpace(s) == "" {
			return validation.NewError(code, msg)
		}
		return nil
	})
}

// ToggleMark adds an inline mark to the selection, or removes it when the
// whole selection already carries it. On a caret it only changes the
// stored marks used by the next insertion.
type ToggleMark struct {
	Type doc.MarkType
	// Href is required for links.
	Href string
}

func (ToggleMark) Name() string { return "toggle_mark" }

func (c ToggleMark) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Type, validation.Required, validation.In(doc.Bold, doc.Italic, doc.Underline, doc.Code, doc.Link)),
		validation.Field(&c.Href, validation.When(c.Type == doc.Link, validation.Required)),
	)
}

func (c ToggleMark) apply(d *doc.Document, sel doc.Selection) (Result, error) {
	mk := doc.Mark{Type: c.Type, Href: c.Href}
	if sel.IsCollapsed() {
		return Result{Selection: sel.WithStored(d.CommonMarks(sel).Toggle(mk))}, nil
	}
	active, ok := d.EnclosingMark(sel, c.Type)
	remove := ok && (c.Type != doc.Link || active.Href == c.Href)
	next, err := d.ApplyMarks(sel, func(m doc.Marks) doc.Marks {
		if remove {
			return m.Without(c.Type)
		}
		return m.With(mk)
	})
	if err != nil {
		return Result{}, err
	}
	next.Stored = nil
	return Result{Selection: next, Changed: true}, nil
}

// SetBlockKind converts the selected blocks to a paragraph, heading or code
// block, or wraps them in a blockquote. The zero Kind means paragraph.
type SetBlockKind struct {
	Kind doc.BlockKind
}

func (SetBlockKind) Name() string { return "set_block_kind" }

func (c SetBlockKind) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Kind, validation.By(func(value any) error {
			k, _ := value.(doc.BlockKind)
			switch k.Type {
			case doc.Paragraph, doc.Blockquote, doc.CodeBlock:
				return nil
			case doc.Heading:
				if k.Level < 1 || k.Level > 6 {
					return validation.NewError("composer.block_kind.level", "heading level must be between 1 and 6")
				}
				return nil
			}
			return validation.NewError("composer.block_kind.type", fmt.Sprintf("%s cannot be set on a block", k.Type))
		})),
	)
}

func (c SetBlockKind) apply(d *doc.Document, sel doc.Selection) (Result, error) {
	if c.Kind.Type == doc.Blockquote {
		if _, _, ok := d.EnclosingBlock(sel, doc.Blockquote); ok {
			return Result{Selection: sel}, nil
		}
		remap := remapper(d, sel)
		if err := d.Wrap(sel, c.Kind); err != nil {
			return Result{}, err
		}
		return Result{Selection: remap(), Changed: true}, nil
	}
	next, err := d.SetBlockKind(sel, c.Kind)
	if err != nil {
		return Result{}, err
	}
	return Result{Selection: next, Changed: true}, nil
}

// ToggleList wraps the selection in a list, switches the kind of the
// enclosing list, or unwraps it when it already has the requested kind.
type ToggleList struct {
	Ordered bool
}

func (ToggleList) Name() string { return "toggle_list" }

func (ToggleList) Validate() error { return nil }

func (c ToggleList) apply(d *doc.Document, sel doc.Selection) (Result, error) {
	kind := doc.ListKind(c.Ordered)
	if _, list, ok := d.EnclosingBlock(sel, doc.UnorderedList, doc.OrderedList); ok {
		remap := remapper(d, sel)
		if list.Kind.Type == kind.Type {
			if err := d.Unwrap(sel); err != nil {
				return Result{}, err
			}
		} else {
			list.Kind = kind
			d.Normalize()
		}
		return Result{Selection: remap(), Changed: true}, nil
	}

	if sel.IsCollapsed() {
		remap := remapper(d, sel)
		if err := d.Wrap(sel, kind); err != nil {
			return Result{}, err
		}
		return Result{Selection: remap(), Changed: true}, nil
	}

	// The selected fragment becomes the sole content of the new item.
	frag := d.Fragment(sel)
	at, err := d.Delete(sel)
	if err != nil {
		return Result{}, err
	}
	block, _, err := d.BlockIndex(at)
	if err != nil {
		return Result{}, err
	}
	if err := d.ReplaceInline(at, frag); err != nil {
		return Result{}, err
	}
	if err := d.Wrap(doc.Caret(d.PositionAt(block, 0)), kind); err != nil {
		return Result{}, err
	}
	return Result{Selection: doc.Caret(d.PositionAt(block, d.BlockLen(block))), Changed: true}, nil
}

// InsertLink links the selected text to Href. It needs a non-collapsed
// selection.
type InsertLink struct {
	Href string
}

func (InsertLink) Name() string { return "insert_link" }

func (c InsertLink) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Href, validation.Required, notBlank("composer.link.href_required", "href is required")),
	)
}

func (c InsertLink) apply(d *doc.Document, sel doc.Selection) (Result, error) {
	if sel.IsCollapsed() {
		return Result{}, noSelection(c.Name())
	}
	href := strings.TrimSpace(c.Href)
	next, err := d.ApplyMarks(sel, func(m doc.Marks) doc.Marks {
		return m.With(doc.Mark{Type: doc.Link, Href: href})
	})
	if err != nil {
		return Result{}, err
	}
	next.Stored = nil
	return Result{Selection: next, Changed: true}, nil
}

// InsertEmbed replaces the selection with an image.
type InsertEmbed struct {
	Src string
	Alt string
}

func (InsertEmbed) Name() string { return "insert_embed" }

func (c InsertEmbed) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Src, validation.Required, notBlank("composer.embed.src_required", "src is required")),
	)
}

func (c InsertEmbed) apply(d *doc.Document, sel doc.Selection) (Result, error) {
	at, err := collapse(d, sel)
	if err != nil {
		return Result{}, err
	}
	pos, err := d.Insert(doc.NewImage(strings.TrimSpace(c.Src), c.Alt), at)
	if err != nil {
		return Result{}, err
	}
	return Result{Selection: doc.Caret(pos), Changed: true}, nil
}

// InsertCodeBlock replaces the selection with a code block holding the
// selected text, and selects the code.
type InsertCodeBlock struct {
	Lang string
}

func (InsertCodeBlock) Name() string { return "insert_code_block" }

func (c InsertCodeBlock) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Lang, validation.Match(langPattern)),
	)
}

func (c InsertCodeBlock) apply(d *doc.Document, sel doc.Selection) (Result, error) {
	text := d.TextInRange(sel)
	at, err := collapse(d, sel)
	if err != nil {
		return Result{}, err
	}
	pos, err := d.Insert(doc.NewCodeBlock(c.Lang, text), at)
	if err != nil {
		return Result{}, err
	}
	block, _, err := d.BlockIndex(pos)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Selection: doc.Range(d.PositionAt(block, 0), d.PositionAt(block, d.BlockLen(block))),
		Changed:   true,
	}, nil
}

// ClearFormatting removes every mark from the selection, resets the blocks
// to plain paragraphs with default alignment and drops stored marks.
type ClearFormatting struct{}

func (ClearFormatting) Name() string { return "clear_formatting" }

func (ClearFormatting) Validate() error { return nil }

func (ClearFormatting) apply(d *doc.Document, sel doc.Selection) (Result, error) {
	next := doc.Selection{Anchor: sel.Anchor, Focus: sel.Focus}
	var err error
	if !sel.IsCollapsed() {
		next, err = d.ApplyMarks(next, func(doc.Marks) doc.Marks { return doc.Marks{} })
		if err != nil {
			return Result{}, err
		}
	}
	next, err = d.SetBlockKind(next, doc.Kind(doc.Paragraph))
	if err != nil {
		return Result{}, err
	}
	if err := d.SetAlign(next, doc.AlignDefault); err != nil {
		return Result{}, err
	}
	return Result{Selection: next, Changed: true}, nil
}

// SetAlignment aligns the selected blocks. The empty value resets them.
type SetAlignment struct {
	Align doc.Align
}

func (SetAlignment) Name() string { return "set_alignment" }

func (c SetAlignment) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Align, validation.In(doc.AlignLeft, doc.AlignCenter, doc.AlignRight, doc.AlignJustify)),
	)
}

func (c SetAlignment) apply(d *doc.Document, sel doc.Selection) (Result, error) {
	if err := d.SetAlign(sel, c.Align); err != nil {
		return Result{}, err
	}
	return Result{Selection: sel, Changed: true}, nil
}

// SetFont sets the font family and/or size of the selection. On a caret it
// changes the stored marks.
type SetFont struct {
	Family string
	Size   string
}

func (SetFont) Name() string { return "set_font" }

func (c SetFont) Validate() error {
	families := make([]any, len(FontFamilies))
	for i, f := range FontFamilies {
		families[i] = f
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.Family, validation.When(c.Size == "", validation.Required), validation.In(families...)),
		validation.Field(&c.Size, validation.Match(fontSizePattern)),
	)
}

func (c SetFont) apply(d *doc.Document, sel doc.Selection) (Result, error) {
	fn := func(m doc.Marks) doc.Marks {
		if c.Family != "" {
			m.FontFamily = c.Family
		}
		if c.Size != "" {
			m.FontSize = c.Size
		}
		return m
	}
	if sel.IsCollapsed() {
		return Result{Selection: sel.WithStored(fn(d.CommonMarks(sel)))}, nil
	}
	next, err := d.ApplyMarks(sel, fn)
	if err != nil {
		return Result{}, err
	}
	next.Stored = nil
	return Result{Selection: next, Changed: true}, nil
}

// InsertText replaces the selection with text. The text takes the stored
// marks when present, the marks at the caret otherwise. Newlines become
// hard line breaks.
type InsertText struct {
	Text string
}

func (InsertText) Name() string { return "insert_text" }

func (c InsertText) Validate() error {
	return validation.ValidateStruct(&c, validation.Field(&c.Text, validation.Required))
}

func (c InsertText) apply(d *doc.Document, sel doc.Selection) (Result, error) {
	at, err := collapse(d, sel)
	if err != nil {
		return Result{}, err
	}
	marks := d.MarksAt(at)
	if sel.Stored != nil {
		marks = *sel.Stored
	}
	pos, err := d.InsertText(c.Text, marks, at)
	if err != nil {
		return Result{}, err
	}
	return Result{Selection: doc.Caret(pos), Changed: true}, nil
}

// SplitBlock replaces the selection with a block break.
type SplitBlock struct{}

func (SplitBlock) Name() string { return "split_block" }

func (SplitBlock) Validate() error { return nil }

func (SplitBlock) apply(d *doc.Document, sel doc.Selection) (Result, error) {
	at, err := collapse(d, sel)
	if err != nil {
		return Result{}, err
	}
	pos, err := d.SplitBlock(at)
	if err != nil {
		return Result{}, err
	}
	return Result{Selection: doc.Caret(pos), Changed: true}, nil
}

// DeleteBackward deletes the selection, or on a caret the rune before it.
// At the start of a block the block joins the previous one.
type DeleteBackward struct{}

func (DeleteBackward) Name() string { return "delete_backward" }

func (DeleteBackward) Validate() error { return nil }

func (DeleteBackward) apply(d *doc.Document, sel doc.Selection) (Result, error) {
	if !sel.IsCollapsed() {
		pos, err := d.Delete(sel)
		if err != nil {
			return Result{}, err
		}
		return Result{Selection: doc.Caret(pos), Changed: true}, nil
	}
	block, off, err := d.BlockIndex(sel.Anchor)
	if err != nil {
		return Result{}, err
	}
	if off > 0 {
		pos, err := d.Delete(doc.Range(d.PositionAt(block, off-1), sel.Anchor))
		if err != nil {
			return Result{}, err
		}
		return Result{Selection: doc.Caret(pos), Changed: true}, nil
	}
	if block == 0 {
		return Result{Selection: sel}, nil
	}
	prev := d.PositionAt(block-1, 0).Path
	cur := sel.Anchor.Path
	if n, _ := d.NodeAt(cur); n != nil && n.IsInline() {
		cur = cur[:len(cur)-1]
	}
	pos, err := d.MergeBlocks(prev[:len(prev)-1], cur)
	if err != nil {
		return Result{}, err
	}
	return Result{Selection: doc.Caret(pos), Changed: true}, nil
}

// Unwrap removes the innermost blockquote or list around the selection.
type Unwrap struct{}

func (Unwrap) Name() string { return "unwrap" }

func (Unwrap) Validate() error { return nil }

func (Unwrap) apply(d *doc.Document, sel doc.Selection) (Result, error) {
	remap := remapper(d, sel)
	if err := d.Unwrap(sel); err != nil {
		return Result{}, err
	}
	return Result{Selection: remap(), Changed: true}, nil
}
