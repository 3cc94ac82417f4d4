// Package markdown converts documents to and from Markdown.
package markdown

import (
	"regexp"
	"strings"
	"unicode"

	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"

	"github.com/alimasry/go-composer/doc"
)

const (
	bulletMarker  = "- "
	orderedMarker = "1. "
	// emptyItem parses back to an item without content.
	emptyItem = "[]()"

	// Italic delimiters are placeholders until the surrounding text is
	// known, then become "_" or "*".
	italicOpen  = '\uE000'
	italicClose = '\uE001'
)

var entityLike = regexp.MustCompile(`^&(?:#[0-9]{1,7}|#[xX][0-9a-fA-F]{1,6}|[A-Za-z][A-Za-z0-9]{1,31});`)

// Serialize renders d as Markdown. Underline, font attributes and
// alignment have no Markdown form and are dropped. Metadata is written as
// YAML front matter. When it cannot be encoded the error is returned along
// with the body alone.
func Serialize(d *doc.Document) (string, error) {
	body := renderBlocks(d.Blocks())
	if d.Meta.IsZero() {
		return body, nil
	}
	fm, err := frontMatter(d.Meta)
	if err != nil {
		return body, err
	}
	if body == "" {
		return strings.TrimSuffix(fm, "\n"), nil
	}
	return fm + "\n" + body, nil
}

var marshalMeta = yaml.Marshal

func frontMatter(m doc.Meta) (string, error) {
	out, err := marshalMeta(m)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "markdown: encode front matter")
	}
	return "---\n" + string(out) + "---\n", nil
}

func renderBlocks(blocks []*doc.Node) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, renderBlock(b))
	}
	return collapseBlankLines(strings.Join(parts, "\n\n"))
}

func renderBlock(n *doc.Node) string {
	switch n.Kind.Type {
	case doc.Heading:
		text := strings.Join(inlineLines(n.Inline(), false), " ")
		if strings.HasSuffix(text, "#") {
			i := len(strings.TrimRight(text, "#"))
			text = text[:i] + `\` + text[i:]
		}
		return strings.TrimRight(strings.Repeat("#", n.Kind.Level)+" "+text, " ")
	case doc.Blockquote:
		lines := strings.Split(renderBlocks(n.Children), "\n")
		for i, line := range lines {
			if line == "" {
				lines[i] = ">"
			} else {
				lines[i] = "> " + line
			}
		}
		return strings.Join(lines, "\n")
	case doc.CodeBlock:
		return renderCode(n.Lang, n.InlineText())
	case doc.UnorderedList, doc.OrderedList:
		return "\n\n" + renderList(n) + "\n\n"
	default:
		return joinBreaks(inlineLines(n.Inline(), true))
	}
}

func renderCode(lang, text string) string {
	c := byte('`')
	if strings.ContainsRune(lang, '`') {
		c = '~'
	}
	fence := strings.Repeat(string(c), max(3, longestRun(text, c)+1))
	return fence + lang + "\n" + text + "\n" + fence
}

// renderList emits every item with the list's marker. Continuation lines
// of an item are indented by the marker width. Nested lists are indented
// by their own marker width, never deeper than an earlier nested list of
// the same item. A bare marker can neither interrupt a paragraph nor hold
// a nested list, so a nested list opening with an empty item follows a
// blank line and an empty item with nested lists is written as an empty
// link.
func renderList(l *doc.Node) string {
	marker := bulletMarker
	if l.Kind.Type == doc.OrderedList {
		marker = orderedMarker
	}
	pad := strings.Repeat(" ", len(marker))

	var out []string
	for _, item := range l.Children {
		body := itemBody(item)
		switch {
		case body == "" && len(item.Nested()) > 0:
			out = append(out, marker+emptyItem)
		case body == "":
			out = append(out, strings.TrimSpace(marker))
		default:
			for i, line := range strings.Split(body, "\n") {
				if i == 0 {
					out = append(out, marker+line)
				} else {
					out = append(out, pad+line)
				}
			}
		}
		width := len(orderedMarker)
		for _, sub := range item.Nested() {
			if sub.Kind.Type == doc.UnorderedList {
				width = len(bulletMarker)
			}
			indent := strings.Repeat(" ", width)
			if opensBare(sub) {
				out = append(out, "")
			}
			for _, line := range strings.Split(renderList(sub), "\n") {
				if line == "" {
					out = append(out, line)
				} else {
					out = append(out, indent+line)
				}
			}
		}
	}
	return strings.Join(out, "\n")
}

func itemBody(item *doc.Node) string {
	return joinBreaks(inlineLines(item.Inline(), true))
}

// opensBare reports whether the first item of l is written as a bare
// marker.
func opensBare(l *doc.Node) bool {
	if len(l.Children) == 0 {
		return false
	}
	first := l.Children[0]
	return len(first.Nested()) == 0 && itemBody(first) == ""
}

// joinBreaks joins the lines of a textblock with hard breaks. An empty
// line uses the backslash form since trailing spaces alone would read as a
// blank line.
func joinBreaks(lines []string) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			if lines[i-1] == "" {
				b.WriteString("\\\n")
			} else {
				b.WriteString("  \n")
			}
		}
		b.WriteString(line)
	}
	return b.String()
}

// inlineLines renders inline content split at hard breaks. Leading and
// trailing whitespace of each line is kept as a character reference, and
// with lineStart set, characters that would start a block construct are
// escaped.
func inlineLines(nodes []*doc.Node, lineStart bool) []string {
	lines := strings.Split(resolveItalics(renderInline(nodes)), "\n")
	for i, line := range lines {
		line = protectSpace(line)
		if lineStart {
			line = escapeLineStart(line)
		}
		lines[i] = line
	}
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	return lines
}

func protectSpace(line string) string {
	if line == "" {
		return line
	}
	if c := line[0]; c == ' ' || c == '\t' {
		line = charRef(c) + line[1:]
	}
	if c := line[len(line)-1]; c == ' ' || c == '\t' {
		line = line[:len(line)-1] + charRef(c)
	}
	return line
}

func charRef(c byte) string {
	if c == '\t' {
		return "&#9;"
	}
	return "&#32;"
}

var orderedStart = regexp.MustCompile(`^[0-9]{1,9}[.)]`)

func escapeLineStart(line string) string {
	if line == "" {
		return line
	}
	switch line[0] {
	case '#', '>', '-', '+', '=', '~':
		return `\` + line
	}
	if loc := orderedStart.FindStringIndex(line); loc != nil {
		return line[:loc[1]-1] + `\` + line[loc[1]-1:]
	}
	return line
}

// renderInline writes text leaves with their marks nested as link, bold,
// italic, code from the outside in. Whitespace at the edge of a marked run
// moves outside the delimiters so they stay flanking.
func renderInline(nodes []*doc.Node) string {
	type piece struct {
		node  *doc.Node
		text  string
		marks []doc.Mark
	}

	var pieces []piece
	var prev []doc.Mark
	for _, n := range nodes {
		if n.IsEmbed() {
			pieces = append(pieces, piece{node: n})
			prev = nil
			continue
		}
		want := markdownMarks(n.Marks)
		for i, part := range strings.Split(n.Text, "\n") {
			if i > 0 {
				br := withoutCode(want)
				br = br[:commonPrefix(prev, br)]
				pieces = append(pieces, piece{text: "\n", marks: br})
				prev = br
			}
			if part == "" {
				continue
			}
			marks := want
			if !n.Marks.Code && strings.TrimSpace(part) == "" {
				marks = marks[:commonPrefix(prev, marks)]
			}
			pieces = append(pieces, piece{text: part, marks: marks})
			prev = marks
		}
	}

	w := &inlineWriter{}
	for i, p := range pieces {
		var next []doc.Mark
		if i+1 < len(pieces) {
			next = pieces[i+1].marks
		}
		if p.node != nil {
			w.sync(nil, "")
			w.embed(p.node)
			continue
		}
		text := p.text
		lead, trail := "", ""
		if !hasMark(p.marks, doc.Code) && text != "\n" {
			if commonPrefix(w.open, p.marks) < len(p.marks) {
				trimmed := strings.TrimLeft(text, " \t")
				lead, text = text[:len(text)-len(trimmed)], trimmed
			}
			if commonPrefix(p.marks, next) < len(p.marks) {
				trimmed := strings.TrimRight(text, " \t")
				trail, text = text[len(trimmed):], trimmed
			}
		}
		w.sync(p.marks, lead)
		w.text(text)
		w.pending = trail
	}
	w.sync(nil, "")
	return w.b.String()
}

type inlineWriter struct {
	b    strings.Builder
	open []doc.Mark
	// code collects the content of an open code span.
	code    strings.Builder
	pending string
}

// sync closes and opens delimiters so that marks are open. Whitespace
// held back from the previous leaf is written after the closing
// delimiters, lead before the opening ones.
func (w *inlineWriter) sync(marks []doc.Mark, lead string) {
	keep := commonPrefix(w.open, marks)
	for i := len(w.open) - 1; i >= keep; i-- {
		w.close(w.open[i])
	}
	w.open = w.open[:keep]
	w.writeRaw(w.pending)
	w.pending = ""
	w.writeRaw(lead)
	for _, m := range marks[keep:] {
		w.start(m)
		w.open = append(w.open, m)
	}
}

func (w *inlineWriter) writeRaw(s string) {
	if s == "" {
		return
	}
	if hasMark(w.open, doc.Code) {
		w.code.WriteString(s)
		return
	}
	w.b.WriteString(escapeText(s))
}

func (w *inlineWriter) text(s string) { w.writeRaw(s) }

func (w *inlineWriter) start(m doc.Mark) {
	switch m.Type {
	case doc.Link:
		w.b.WriteByte('[')
	case doc.Bold:
		w.b.WriteString("**")
	case doc.Italic:
		w.b.WriteRune(italicOpen)
	case doc.Code:
		w.code.Reset()
	}
}

func (w *inlineWriter) close(m doc.Mark) {
	switch m.Type {
	case doc.Link:
		w.b.WriteString("](" + destination(m.Href) + ")")
	case doc.Bold:
		w.b.WriteString("**")
	case doc.Italic:
		w.b.WriteRune(italicClose)
	case doc.Code:
		w.b.WriteString(codeSpan(w.code.String()))
		w.code.Reset()
	}
}

func (w *inlineWriter) embed(n *doc.Node) {
	if n.Embed != doc.Image {
		return
	}
	w.b.WriteString("![" + escapeText(n.Alt) + "](" + destination(n.Src) + ")")
}

func codeSpan(s string) string {
	fence := strings.Repeat("`", longestRun(s, '`')+1)
	if strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") ||
		(strings.HasPrefix(s, " ") && strings.HasSuffix(s, " ") && strings.Trim(s, " ") != "") {
		s = " " + s + " "
	}
	return fence + s + fence
}

func destination(href string) string {
	href = escapeEntities(href)
	if strings.ContainsAny(href, " \t") {
		return "<" + strings.NewReplacer(`\`, `\\`, "<", `\<`, ">", `\>`).Replace(href) + ">"
	}
	return strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`, "<", `\<`).Replace(href)
}

func escapeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\', '*', '_', '`', '[', ']':
			b.WriteByte('\\')
		case '<':
			if i+1 < len(s) && (isASCIILetter(s[i+1]) || strings.IndexByte("/!?", s[i+1]) >= 0) {
				b.WriteByte('\\')
			}
		case '&':
			if entityLike.MatchString(s[i:]) {
				b.WriteString("&amp;")
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func escapeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '&' && entityLike.MatchString(s[i:]) {
			b.WriteString("&amp;")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isASCIILetter(c byte) bool { return (c|0x20) >= 'a' && (c|0x20) <= 'z' }

// resolveItalics picks "_" for each italic run unless a word character
// touches it (ignoring other delimiters), in which case "*" is needed.
func resolveItalics(s string) string {
	if !strings.ContainsRune(s, italicOpen) {
		return s
	}
	rs := []rune(s)
	var b strings.Builder
	delim := "_"
	for i, r := range rs {
		switch r {
		case italicOpen:
			j := i + 1
			for j < len(rs) && rs[j] != italicClose {
				j++
			}
			delim = "_"
			if wordBefore(rs, i) || wordAfter(rs, j) {
				delim = "*"
			}
			b.WriteString(delim)
		case italicClose:
			b.WriteString(delim)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isDelimiter(r rune) bool { return r == '*' || r == italicOpen || r == italicClose }

func isWord(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

func wordBefore(rs []rune, i int) bool {
	for i--; i >= 0; i-- {
		if !isDelimiter(rs[i]) {
			return isWord(rs[i])
		}
	}
	return false
}

func wordAfter(rs []rune, i int) bool {
	for i++; i < len(rs); i++ {
		if !isDelimiter(rs[i]) {
			return isWord(rs[i])
		}
	}
	return false
}

func markdownMarks(m doc.Marks) []doc.Mark {
	var out []doc.Mark
	if m.Href != "" {
		out = append(out, doc.Mark{Type: doc.Link, Href: m.Href})
	}
	if m.Bold {
		out = append(out, doc.Mark{Type: doc.Bold})
	}
	if m.Italic {
		out = append(out, doc.Mark{Type: doc.Italic})
	}
	if m.Code {
		out = append(out, doc.Mark{Type: doc.Code})
	}
	return out
}

func withoutCode(marks []doc.Mark) []doc.Mark {
	if hasMark(marks, doc.Code) {
		return marks[:len(marks)-1]
	}
	return marks
}

func hasMark(marks []doc.Mark, t doc.MarkType) bool {
	for _, m := range marks {
		if m.Type == t {
			return true
		}
	}
	return false
}

func commonPrefix(a, b []doc.Mark) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
