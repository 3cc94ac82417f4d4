package doc

import (
	"fmt"
	"strings"
)

// MarkType identifies an inline formatting attribute.
type MarkType uint8

const (
	Bold MarkType = iota + 1
	Italic
	Underline
	Code
	Link
)

var markNames = map[MarkType]string{
	Bold:      "bold",
	Italic:    "italic",
	Underline: "underline",
	Code:      "code",
	Link:      "link",
}

func (t MarkType) String() string {
	if name, ok := markNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MarkType(%d)", t)
}

// MarkTypes lists every mark type in a stable order.
var MarkTypes = []MarkType{Bold, Italic, Underline, Code, Link}

// Mark is a single formatting attribute. Href is only meaningful for links.
type Mark struct {
	Type MarkType
	Href string
}

// Marks is the set of marks carried by a text leaf. It is comparable so two
// leaves with equal Marks can be merged.
type Marks struct {
	Bold      bool
	Italic    bool
	Underline bool
	Code      bool
	// Href is non-empty when the text is a link.
	Href string

	FontFamily string
	FontSize   string
}

// Has reports whether the mark of type t is set.
func (m Marks) Has(t MarkType) bool {
	switch t {
	case Bold:
		return m.Bold
	case Italic:
		return m.Italic
	case Underline:
		return m.Underline
	case Code:
		return m.Code
	case Link:
		return m.Href != ""
	}
	return false
}

// With returns m with mk added. A link replaces any previous href.
func (m Marks) With(mk Mark) Marks {
	switch mk.Type {
	case Bold:
		m.Bold = true
	case Italic:
		m.Italic = true
	case Underline:
		m.Underline = true
	case Code:
		m.Code = true
	case Link:
		m.Href = mk.Href
	}
	return m
}

// Without returns m with the mark of type t removed.
func (m Marks) Without(t MarkType) Marks {
	switch t {
	case Bold:
		m.Bold = false
	case Italic:
		m.Italic = false
	case Underline:
		m.Underline = false
	case Code:
		m.Code = false
	case Link:
		m.Href = ""
	}
	return m
}

// Toggle returns m with mk removed when present and added otherwise.
func (m Marks) Toggle(mk Mark) Marks {
	if m.Has(mk.Type) && (mk.Type != Link || m.Href == mk.Href) {
		return m.Without(mk.Type)
	}
	return m.With(mk)
}

// List returns the set marks in MarkTypes order.
func (m Marks) List() []Mark {
	var out []Mark
	for _, t := range MarkTypes {
		if m.Has(t) {
			mk := Mark{Type: t}
			if t == Link {
				mk.Href = m.Href
			}
			out = append(out, mk)
		}
	}
	return out
}

func (m Marks) IsZero() bool { return m == Marks{} }

func (m Marks) String() string {
	var parts []string
	for _, mk := range m.List() {
		if mk.Type == Link {
			parts = append(parts, "link="+mk.Href)
			continue
		}
		parts = append(parts, mk.Type.String())
	}
	if m.FontFamily != "" {
		parts = append(parts, "font="+m.FontFamily)
	}
	if m.FontSize != "" {
		parts = append(parts, "size="+m.FontSize)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// intersect keeps only the attributes m and o agree on.
func (m Marks) intersect(o Marks) Marks {
	out := Marks{
		Bold:      m.Bold && o.Bold,
		Italic:    m.Italic && o.Italic,
		Underline: m.Underline && o.Underline,
		Code:      m.Code && o.Code,
	}
	if m.Href == o.Href {
		out.Href = m.Href
	}
	if m.FontFamily == o.FontFamily {
		out.FontFamily = m.FontFamily
	}
	if m.FontSize == o.FontSize {
		out.FontSize = m.FontSize
	}
	return out
}
