package markdown

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"github.com/adrg/frontmatter"
	goerrors "github.com/goliatone/go-errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"gopkg.in/yaml.v3"

	"github.com/alimasry/go-composer/doc"
)

// TextCodeMalformedMarkdown tags parse failures.
const TextCodeMalformedMarkdown = "MALFORMED_MARKDOWN"

// ParseError locates malformed input. Line and Column are 1-based, the
// column counted in runes.
type ParseError struct {
	Line   int
	Column int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed markdown at %d:%d: %s", e.Line, e.Column, e.Reason)
}

var (
	engine = goldmark.New()

	frontMatterFormats = []*frontmatter.Format{
		frontmatter.NewFormat("---", "---", yaml.Unmarshal),
		frontmatter.NewFormat("+++", "+++", toml.Unmarshal),
	}
)

// Parse builds a new document from Markdown. Failures are returned as a
// *ParseError wrapped in a CategoryBadInput error; a cancelled ctx aborts
// the conversion. Parse never touches an existing document.
func Parse(ctx context.Context, src string) (*doc.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	source := []byte(src)
	if err := checkEncoding(source); err != nil {
		return nil, malformed(err)
	}
	meta, body, offset, err := splitFrontMatter(source)
	if err != nil {
		return nil, malformed(err)
	}
	prepared, err := normalizeListIndent(string(body), offset)
	if err != nil {
		return nil, malformed(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	input := []byte(prepared)
	root := engine.Parser().Parse(text.NewReader(input))
	c := &converter{ctx: ctx, source: input}
	blocks, err := c.blocks(root)
	if err != nil {
		return nil, cancelled(err)
	}
	d := doc.New(blocks...)
	d.Meta = meta
	return d, nil
}

func malformed(err error) error {
	var pe *ParseError
	reason := err.Error()
	if errors.As(err, &pe) {
		reason = pe.Reason
	}
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "markdown: "+reason).
		WithTextCode(TextCodeMalformedMarkdown)
}

func cancelled(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, "markdown: parse cancelled")
}

func checkEncoding(src []byte) error {
	line, col := 1, 1
	for i := 0; i < len(src); {
		r, size := utf8.DecodeRune(src[i:])
		switch {
		case r == utf8.RuneError && size <= 1:
			return &ParseError{Line: line, Column: col, Reason: "invalid UTF-8"}
		case r == 0:
			return &ParseError{Line: line, Column: col, Reason: "NUL byte"}
		case r == '\n':
			line, col = line+1, 1
		default:
			col++
		}
		i += size
	}
	return nil
}

// splitFrontMatter decodes a YAML ("---") or TOML ("+++") block when the
// first non-blank line opens one. It returns the body and the number of
// lines consumed before it.
func splitFrontMatter(src []byte) (doc.Meta, []byte, int, error) {
	var meta doc.Meta
	first, lineNo := firstLine(src)
	if first != "---" && first != "+++" {
		return meta, src, 0, nil
	}
	rest, err := frontmatter.MustParse(bytes.NewReader(src), &meta, frontMatterFormats...)
	if err != nil {
		reason := "front matter: " + err.Error()
		if errors.Is(err, frontmatter.ErrNotFound) {
			reason = "unterminated front matter"
		}
		return meta, nil, 0, &ParseError{Line: lineNo, Column: 1, Reason: reason}
	}
	consumed := len(src) - len(rest)
	return meta, rest, bytes.Count(src[:consumed], []byte("\n")), nil
}

func firstLine(src []byte) (string, int) {
	for i, line := range strings.Split(string(src), "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t, i + 1
		}
	}
	return "", 0
}

type listFrame struct {
	// indent and content are the marker and content columns as written,
	// fixedIndent and fixedContent after rewriting.
	indent, content           int
	fixedIndent, fixedContent int
}

// normalizeListIndent rewrites list lines so that a marker indented
// deeper than its parent's marker nests under that parent, whatever the
// parent's content column. Continuation lines move with their item. It
// also rejects fenced code that is never closed.
func normalizeListIndent(src string, lineOffset int) (string, error) {
	lines := strings.Split(src, "\n")
	var (
		stack []listFrame
		fence fenceTracker
		depth int
		blank bool
	)
	for i, line := range lines {
		lineNo := lineOffset + i + 1
		prefix, rest, d := splitQuote(line)
		if d != depth {
			stack, depth = stack[:0], d
		}
		rest = expandIndent(rest)
		indent := len(rest) - len(strings.TrimLeft(rest, " "))
		body := rest[indent:]
		column := utf8.RuneCountInString(prefix) + 1

		if fence.open() {
			fence.feed(rest, lineNo, column)
			lines[i] = reindent(line, prefix, body, indent, shifted(stack, indent))
			continue
		}
		if body == "" {
			blank = true
			continue
		}

		if width := listMarker(body); width > 0 && (len(stack) > 0 || indent < 4) {
			for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
				stack = stack[:len(stack)-1]
			}
			fixed := indent
			if len(stack) > 0 {
				fixed = stack[len(stack)-1].fixedContent
			}
			stack = append(stack, listFrame{
				indent: indent, content: indent + width,
				fixedIndent: fixed, fixedContent: fixed + width,
			})
			lines[i] = reindent(line, prefix, body, indent, fixed)
			fence.feed(body[min(width, len(body)):], lineNo, column+fixed+width)
			blank = false
			continue
		}

		if blank && deepestFrame(stack, indent) < 0 {
			stack = stack[:0]
		}
		lines[i] = reindent(line, prefix, body, indent, shifted(stack, indent))
		fence.feed(body, lineNo, column+indent)
		blank = false
	}
	if fence.open() {
		return "", &ParseError{Line: fence.line, Column: fence.column, Reason: "unterminated code fence"}
	}
	return strings.Join(lines, "\n"), nil
}

func deepestFrame(stack []listFrame, indent int) int {
	for k := len(stack) - 1; k >= 0; k-- {
		if indent >= stack[k].content {
			return k
		}
	}
	return -1
}

// shifted moves a continuation line by the same amount as the item it
// belongs to.
func shifted(stack []listFrame, indent int) int {
	if k := deepestFrame(stack, indent); k >= 0 {
		return max(indent+stack[k].fixedContent-stack[k].content, 0)
	}
	return indent
}

// reindent rebuilds a line at a new indentation, leaving it untouched when
// the indentation does not change.
func reindent(line, prefix, body string, indent, to int) string {
	if to == indent {
		return line
	}
	return prefix + strings.Repeat(" ", to) + body
}

// listMarker returns the width of the list marker starting body, spaces
// after it included, or 0.
func listMarker(body string) int {
	n := 0
	switch {
	case body[0] == '-' || body[0] == '+' || body[0] == '*':
		n = 1
	default:
		for n < len(body) && n < 9 && body[n] >= '0' && body[n] <= '9' {
			n++
		}
		if n == 0 || n >= len(body) || (body[n] != '.' && body[n] != ')') {
			return 0
		}
		n++
	}
	if n == len(body) {
		return n + 1
	}
	if body[n] != ' ' {
		return 0
	}
	spaces := len(body[n:]) - len(strings.TrimLeft(body[n:], " "))
	if spaces > 4 || n+spaces == len(body) {
		spaces = 1
	}
	return n + spaces
}

// splitQuote separates blockquote markers from a line.
func splitQuote(line string) (prefix, rest string, depth int) {
	i := 0
	for {
		j := i
		for j < len(line) && j-i < 3 && line[j] == ' ' {
			j++
		}
		if j >= len(line) || line[j] != '>' {
			return line[:i], line[i:], depth
		}
		j++
		if j < len(line) && line[j] == ' ' {
			j++
		}
		i = j
		depth++
	}
}

func expandIndent(s string) string {
	lead := len(s) - len(strings.TrimLeft(s, " \t"))
	if !strings.Contains(s[:lead], "\t") {
		return s
	}
	col := 0
	for i := 0; i < lead; i++ {
		if s[i] == '\t' {
			col += 4 - col%4
		} else {
			col++
		}
	}
	return strings.Repeat(" ", col) + s[lead:]
}

type converter struct {
	ctx    context.Context
	source []byte
}

func (c *converter) blocks(parent ast.Node) ([]*doc.Node, error) {
	var out []*doc.Node
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if err := c.ctx.Err(); err != nil {
			return nil, err
		}
		b, err := c.block(n)
		if err != nil {
			return nil, err
		}
		if b != nil {
			out = append(out, b)
		}
	}
	return out, nil
}

func (c *converter) block(n ast.Node) (*doc.Node, error) {
	switch n := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return doc.NewParagraph(c.inline(n, doc.Marks{})...), nil
	case *ast.Heading:
		return doc.NewHeading(n.Level, c.inline(n, doc.Marks{})...), nil
	case *ast.Blockquote:
		children, err := c.blocks(n)
		if err != nil {
			return nil, err
		}
		return doc.NewBlockquote(children...), nil
	case *ast.FencedCodeBlock:
		return doc.NewCodeBlock(string(n.Language(c.source)), c.lines(n)), nil
	case *ast.CodeBlock:
		return doc.NewCodeBlock("", c.lines(n)), nil
	case *ast.List:
		var items []*doc.Node
		for it := n.FirstChild(); it != nil; it = it.NextSibling() {
			children, err := c.blocks(it)
			if err != nil {
				return nil, err
			}
			items = append(items, doc.NewListItem(children...))
		}
		return doc.NewList(n.IsOrdered(), items...), nil
	case *ast.ThematicBreak:
		return doc.NewParagraph(doc.Plain("---")), nil
	case *ast.HTMLBlock:
		raw := c.lines(n)
		if n.HasClosure() {
			raw = strings.TrimSuffix(raw+"\n"+string(n.ClosureLine.Value(c.source)), "\n")
		}
		return doc.NewParagraph(doc.Plain(raw)), nil
	}
	if n.HasChildren() {
		children, err := c.blocks(n)
		if err != nil {
			return nil, err
		}
		return doc.NewBlock(doc.Kind(doc.Root), children...), nil
	}
	return nil, nil
}

func (c *converter) lines(n ast.Node) string {
	var b bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(c.source))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (c *converter) inline(parent ast.Node, marks doc.Marks) []*doc.Node {
	var out []*doc.Node
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch n := n.(type) {
		case *ast.Text:
			out = append(out, doc.NewText(resolve(n.Segment.Value(c.source)), marks))
			switch {
			case n.HardLineBreak():
				out = append(out, doc.NewText("\n", marks.Without(doc.Code)))
			case n.SoftLineBreak():
				out = append(out, doc.NewText(" ", marks))
			}
		case *ast.String:
			v := string(n.Value)
			if !n.IsRaw() {
				v = resolve(n.Value)
			}
			out = append(out, doc.NewText(v, marks))
		case *ast.Emphasis:
			m := marks.With(doc.Mark{Type: doc.Italic})
			if n.Level >= 2 {
				m = marks.With(doc.Mark{Type: doc.Bold})
			}
			out = append(out, c.inline(n, m)...)
		case *ast.Link:
			out = append(out, c.inline(n, marks.With(doc.Mark{Type: doc.Link, Href: resolve(n.Destination)}))...)
		case *ast.AutoLink:
			href := string(n.URL(c.source))
			if n.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(strings.ToLower(href), "mailto:") {
				href = "mailto:" + href
			}
			label := string(n.Label(c.source))
			out = append(out, doc.NewText(label, marks.With(doc.Mark{Type: doc.Link, Href: href})))
		case *ast.Image:
			out = append(out, doc.NewImage(resolve(n.Destination), plainText(c.inline(n, doc.Marks{}))))
		case *ast.CodeSpan:
			out = append(out, doc.NewText(c.codeSpan(n), marks.With(doc.Mark{Type: doc.Code})))
		case *ast.RawHTML:
			var b bytes.Buffer
			for i := 0; i < n.Segments.Len(); i++ {
				seg := n.Segments.At(i)
				b.Write(seg.Value(c.source))
			}
			out = append(out, doc.NewText(b.String(), marks))
		default:
			out = append(out, c.inline(n, marks)...)
		}
	}
	return out
}

// codeSpan joins the raw segments of a code span. Line endings inside a
// span read as spaces.
func (c *converter) codeSpan(n *ast.CodeSpan) string {
	var b strings.Builder
	for t := n.FirstChild(); t != nil; t = t.NextSibling() {
		switch t := t.(type) {
		case *ast.Text:
			v := string(t.Segment.Value(c.source))
			if strings.HasSuffix(v, "\n") {
				v = strings.TrimSuffix(v, "\n") + " "
			}
			b.WriteString(v)
		case *ast.String:
			b.Write(t.Value)
		}
	}
	return b.String()
}

// resolve turns escaped source text into its literal value: character
// references first, then backslash escapes.
func resolve(v []byte) string {
	v = util.ResolveNumericReferences(v)
	v = util.ResolveEntityNames(v)
	return string(util.UnescapePunctuations(v))
}

func plainText(nodes []*doc.Node) string {
	var b strings.Builder
	for _, n := range nodes {
		if n.IsText() {
			b.WriteString(n.Text)
		} else if n.IsEmbed() {
			b.WriteString(n.Alt)
		}
	}
	return b.String()
}
