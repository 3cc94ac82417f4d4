package command

import (
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/alimasry/go-composer/doc"
)

func para(text string) *doc.Node { return doc.NewParagraph(doc.Plain(text)) }

func run(t *testing.T, d *doc.Document, sel doc.Selection, cmd Command) Result {
	t.Helper()
	res, err := NewExecutor(nil).Execute(d, &sel, cmd)
	if err != nil {
		t.Fatalf("%s: %v", cmd.Name(), err)
	}
	return res
}

func textCode(err error) string {
	var ge *goerrors.Error
	if errors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

func TestToggleMarkTwiceRestoresDocument(t *testing.T) {
	marks := []ToggleMark{
		{Type: doc.Bold},
		{Type: doc.Italic},
		{Type: doc.Underline},
		{Type: doc.Code},
		{Type: doc.Link, Href: "https://example.com"},
	}
	for _, cmd := range marks {
		t.Run(cmd.Type.String(), func(t *testing.T) {
			d := doc.New(para("Hello world"))
			orig := d.Clone()
			sel := doc.Range(doc.Pos(0, 0, 0), doc.Pos(5, 0, 0))

			res := run(t, d, sel, cmd)
			if !res.Changed {
				t.Fatalf("expected a change")
			}
			if _, ok := d.EnclosingMark(res.Selection, cmd.Type); !ok {
				t.Fatalf("expected %s over the selection", cmd.Type)
			}
			run(t, d, res.Selection, cmd)
			if !d.Equal(orig) {
				t.Fatalf("document not restored: %v", d.Root)
			}
		})
	}
}

func TestToggleMarkOnMixedSelectionAddsMark(t *testing.T) {
	d := doc.New(doc.NewParagraph(doc.NewText("He", doc.Marks{Bold: true}), doc.Plain("llo")))
	run(t, d, doc.Range(doc.Pos(0, 0, 0), doc.Pos(3, 0, 1)), ToggleMark{Type: doc.Bold})
	children := d.Blocks()[0].Children
	if len(children) != 1 || children[0].Text != "Hello" || !children[0].Marks.Bold {
		t.Fatalf("unexpected children %v", children)
	}
}

func TestToggleMarkOnCaretStoresMarks(t *testing.T) {
	d := doc.New(para("Hello"))
	orig := d.Clone()

	res := run(t, d, doc.Caret(doc.Pos(5, 0, 0)), ToggleMark{Type: doc.Bold})
	if res.Changed || !d.Equal(orig) {
		t.Fatalf("caret toggle must not change the document")
	}
	if res.Selection.Stored == nil || !res.Selection.Stored.Bold {
		t.Fatalf("expected stored bold, got %v", res.Selection.Stored)
	}

	run(t, d, res.Selection, InsertText{Text: "x"})
	children := d.Blocks()[0].Children
	if len(children) != 2 || children[1].Text != "x" || !children[1].Marks.Bold {
		t.Fatalf("unexpected children %v", children)
	}
}

func TestBoldThenHeading(t *testing.T) {
	d := doc.New(para("Intro"))
	res := run(t, d, doc.Range(doc.Pos(0, 0, 0), doc.Pos(5, 0, 0)), ToggleMark{Type: doc.Bold})
	run(t, d, res.Selection, SetBlockKind{Kind: doc.HeadingKind(2)})

	b := d.Blocks()[0]
	if b.Kind != doc.HeadingKind(2) {
		t.Fatalf("expected heading 2, got %s", b.Kind)
	}
	if len(b.Children) != 1 || b.Children[0].Text != "Intro" || !b.Children[0].Marks.Bold {
		t.Fatalf("unexpected content %v", b.Children)
	}
}

func TestSetBlockKindBlockquote(t *testing.T) {
	d := doc.New(para("a"))
	res := run(t, d, doc.Caret(doc.Pos(0, 0, 0)), SetBlockKind{Kind: doc.Kind(doc.Blockquote)})
	if d.Blocks()[0].Kind.Type != doc.Blockquote {
		t.Fatalf("expected blockquote, got %v", d.Blocks())
	}
	// Already quoted: no nesting, no change.
	again := run(t, d, res.Selection, SetBlockKind{Kind: doc.Kind(doc.Blockquote)})
	if again.Changed || d.Blocks()[0].Children[0].Kind.Type != doc.Paragraph {
		t.Fatalf("expected no change, got %v", d.Root)
	}
	// Back to paragraph lifts it out.
	run(t, d, again.Selection, SetBlockKind{})
	if d.Blocks()[0].Kind.Type != doc.Paragraph {
		t.Fatalf("expected paragraph, got %v", d.Blocks())
	}
}

func TestToggleList(t *testing.T) {
	d := doc.New(para("a"))
	orig := d.Clone()

	res := run(t, d, doc.Caret(doc.Pos(0, 0, 0)), ToggleList{})
	if got := QueryActiveFormats(d, &res.Selection).Block.List; got != ListUnordered {
		t.Fatalf("List = %v, want unordered", got)
	}

	res = run(t, d, res.Selection, ToggleList{Ordered: true})
	if got := QueryActiveFormats(d, &res.Selection).Block.List; got != ListOrdered {
		t.Fatalf("List = %v, want ordered", got)
	}
	if len(d.Blocks()) != 1 || len(d.Blocks()[0].Children) != 1 {
		t.Fatalf("retyping must keep the items in place: %v", d.Root)
	}

	run(t, d, res.Selection, ToggleList{Ordered: true})
	if !d.Equal(orig) {
		t.Fatalf("toggling off should restore the paragraph: %v", d.Root)
	}
}

func TestToggleListOnRangeKeepsOnlySelection(t *testing.T) {
	d := doc.New(para("Hello world"))
	res := run(t, d, doc.Range(doc.Pos(6, 0, 0), doc.Pos(11, 0, 0)), ToggleList{})

	list := d.Blocks()[0]
	if len(d.Blocks()) != 1 || list.Kind.Type != doc.UnorderedList {
		t.Fatalf("unexpected blocks %v", d.Blocks())
	}
	if got := list.Children[0].InlineText(); got != "world" {
		t.Fatalf("item text = %q, want %q", got, "world")
	}
	if !res.Selection.Anchor.Equal(doc.Pos(5, 0, 0, 0)) || !res.Selection.IsCollapsed() {
		t.Fatalf("selection = %+v", res.Selection)
	}
}

func TestInsertLink(t *testing.T) {
	t.Run("collapsed selection", func(t *testing.T) {
		d := doc.New(para("Hello"))
		orig := d.Clone()
		sel := doc.Caret(doc.Pos(2, 0, 0))
		_, err := NewExecutor(nil).Execute(d, &sel, InsertLink{Href: "https://example.com"})
		if !errors.Is(err, ErrNoActiveSelection) {
			t.Fatalf("err = %v, want ErrNoActiveSelection", err)
		}
		if !goerrors.IsCategory(err, goerrors.CategoryCommand) || textCode(err) != TextCodeNoActiveSelection {
			t.Fatalf("unexpected error shape %v", err)
		}
		if !d.Equal(orig) {
			t.Fatalf("document changed on error")
		}
	})

	t.Run("no selection", func(t *testing.T) {
		d := doc.New(para("Hello"))
		_, err := NewExecutor(nil).Execute(d, nil, InsertLink{Href: "https://example.com"})
		if !errors.Is(err, ErrNoActiveSelection) {
			t.Fatalf("err = %v, want ErrNoActiveSelection", err)
		}
	})

	t.Run("range", func(t *testing.T) {
		d := doc.New(para("Hello world"))
		res := run(t, d, doc.Range(doc.Pos(0, 0, 0), doc.Pos(5, 0, 0)), InsertLink{Href: "https://example.com"})
		if got := QueryActiveFormats(d, &res.Selection).Marks.Href; got != "https://example.com" {
			t.Fatalf("Href = %q", got)
		}
	})
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
	}{
		{"mark without type", ToggleMark{}},
		{"link without href", ToggleMark{Type: doc.Link}},
		{"heading level", SetBlockKind{Kind: doc.HeadingKind(7)}},
		{"list item kind", SetBlockKind{Kind: doc.Kind(doc.ListItem)}},
		{"blank href", InsertLink{Href: "  "}},
		{"empty font", SetFont{}},
		{"bad font size", SetFont{Size: "big"}},
		{"unknown family", SetFont{Family: "Comic Sans"}},
		{"bad alignment", SetAlignment{Align: "middle"}},
		{"bad language", InsertCodeBlock{Lang: "c c"}},
		{"empty text", InsertText{}},
		{"empty src", InsertEmbed{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := doc.New(para("Hello"))
			orig := d.Clone()
			sel := doc.Range(doc.Pos(0, 0, 0), doc.Pos(5, 0, 0))
			_, err := NewExecutor(nil).Execute(d, &sel, tt.cmd)
			if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
			if textCode(err) != TextCodeInvalidCommand {
				t.Fatalf("text code = %q", textCode(err))
			}
			if !d.Equal(orig) {
				t.Fatalf("document changed on error")
			}
		})
	}
}

func TestInvalidTarget(t *testing.T) {
	t.Run("embed inside code block", func(t *testing.T) {
		d := doc.New(doc.NewCodeBlock("", "x"))
		orig := d.Clone()
		sel := doc.Caret(doc.Pos(1, 0, 0))
		_, err := NewExecutor(nil).Execute(d, &sel, InsertEmbed{Src: "a.png"})
		if !errors.Is(err, ErrInvalidTarget) || !errors.Is(err, doc.ErrInvalidTarget) {
			t.Fatalf("err = %v, want ErrInvalidTarget", err)
		}
		if textCode(err) != TextCodeInvalidTarget {
			t.Fatalf("text code = %q", textCode(err))
		}
		if !d.Equal(orig) {
			t.Fatalf("document changed on error")
		}
	})

	t.Run("unresolvable selection", func(t *testing.T) {
		d := doc.New(para("Hello"))
		sel := doc.Caret(doc.Pos(9, 0, 0))
		_, err := NewExecutor(nil).Execute(d, &sel, ToggleMark{Type: doc.Bold})
		if !errors.Is(err, ErrInvalidTarget) || !errors.Is(err, doc.ErrInvalidPosition) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("nil command", func(t *testing.T) {
		sel := doc.Caret(doc.Pos(0, 0, 0))
		if _, err := NewExecutor(nil).Execute(doc.New(), &sel, nil); !errors.Is(err, ErrInvalidTarget) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestClearFormatting(t *testing.T) {
	heading := doc.NewHeading(1, doc.NewText("Title", doc.Marks{Bold: true, Href: "https://x"}))
	heading.Align = doc.AlignCenter
	d := doc.New(doc.NewBlockquote(heading))

	res := run(t, d, doc.Range(doc.Pos(0, 0, 0, 0), doc.Pos(5, 0, 0, 0)), ClearFormatting{})
	if !d.Equal(doc.New(para("Title"))) {
		t.Fatalf("unexpected document %v", d.Root)
	}
	if res.Selection.Stored != nil {
		t.Fatalf("stored marks must be cleared")
	}
}

func TestSetAlignmentAndFont(t *testing.T) {
	d := doc.New(para("Hello world"))
	sel := doc.Range(doc.Pos(0, 0, 0), doc.Pos(5, 0, 0))

	res := run(t, d, sel, SetAlignment{Align: doc.AlignCenter})
	res = run(t, d, res.Selection, SetFont{Family: "Georgia", Size: "18px"})

	af := QueryActiveFormats(d, &res.Selection)
	if af.Align != doc.AlignCenter {
		t.Errorf("Align = %q", af.Align)
	}
	if af.Marks.FontFamily != "Georgia" || af.Marks.FontSize != "18px" {
		t.Errorf("Marks = %v", af.Marks)
	}
	whole := doc.Range(doc.Pos(0, 0, 0), d.End())
	if af := QueryActiveFormats(d, &whole); af.Marks.FontFamily != "" {
		t.Errorf("font must be inactive over a mixed range, got %v", af.Marks)
	}
}

func TestInsertCodeBlock(t *testing.T) {
	d := doc.New(para("Hello world"))
	res := run(t, d, doc.Range(doc.Pos(6, 0, 0), doc.Pos(11, 0, 0)), InsertCodeBlock{Lang: "go"})

	blocks := d.Blocks()
	if len(blocks) != 2 || blocks[1].Kind.Type != doc.CodeBlock || blocks[1].Lang != "go" {
		t.Fatalf("unexpected blocks %v", blocks)
	}
	if got := d.TextInRange(res.Selection); got != "world" {
		t.Fatalf("selection covers %q", got)
	}
	if !QueryActiveFormats(d, &res.Selection).Block.Code {
		t.Fatalf("expected code block to be active")
	}
}

func TestSplitAndDeleteBackward(t *testing.T) {
	d := doc.New(para("Hello"))

	res := run(t, d, doc.Caret(doc.Pos(2, 0, 0)), SplitBlock{})
	if d.PlainText() != "He\nllo" || !res.Selection.Anchor.Equal(doc.Pos(0, 1, 0)) {
		t.Fatalf("after split: %q at %v", d.PlainText(), res.Selection.Anchor)
	}

	res = run(t, d, res.Selection, DeleteBackward{})
	if d.PlainText() != "Hello" || !res.Selection.Anchor.Equal(doc.Pos(2, 0, 0)) {
		t.Fatalf("after join: %q at %v", d.PlainText(), res.Selection.Anchor)
	}

	res = run(t, d, res.Selection, DeleteBackward{})
	if d.PlainText() != "Hllo" || !res.Selection.Anchor.Equal(doc.Pos(1, 0, 0)) {
		t.Fatalf("after delete: %q at %v", d.PlainText(), res.Selection.Anchor)
	}

	res = run(t, d, doc.Caret(d.Start()), DeleteBackward{})
	if res.Changed {
		t.Fatalf("deleting at the document start must be a no-op")
	}
}

func TestQueryActiveFormats(t *testing.T) {
	d := doc.New(doc.NewBlockquote(doc.NewList(true, doc.NewListItem(doc.NewText("x", doc.Marks{Italic: true})))))
	sel := doc.Caret(doc.Pos(1, 0, 0, 0, 0))
	af := QueryActiveFormats(d, &sel)
	if !af.Block.Quote || af.Block.List != ListOrdered || !af.Has(doc.Italic) || af.Has(doc.Bold) {
		t.Fatalf("unexpected formats %+v", af)
	}

	h := doc.New(doc.NewHeading(3, doc.Plain("T")))
	sel = doc.Caret(doc.Pos(0, 0, 0))
	if got := QueryActiveFormats(h, &sel).Block.Heading; got != 3 {
		t.Fatalf("Heading = %d, want 3", got)
	}

	mixed := doc.New(doc.NewParagraph(doc.NewText("ab", doc.Marks{Bold: true}), doc.Plain("cd")))
	sel = doc.Range(doc.Pos(0, 0, 0), doc.Pos(2, 0, 1))
	if QueryActiveFormats(mixed, &sel).Has(doc.Bold) {
		t.Fatalf("bold on part of the selection must be inactive")
	}

	if af := QueryActiveFormats(d, nil); af != (ActiveFormats{}) {
		t.Fatalf("nil selection should report nothing, got %+v", af)
	}
}
