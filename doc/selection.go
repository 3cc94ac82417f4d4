package doc

// Selection is an anchor/focus pair. When both are equal the selection is
// a caret. Stored holds marks chosen while the caret was collapsed; they
// apply to the next inserted text.
type Selection struct {
	Anchor Position
	Focus  Position
	Stored *Marks
}

// Caret returns a collapsed selection at p.
func Caret(p Position) Selection {
	return Selection{Anchor: p, Focus: p}
}

// Range returns a selection from anchor to focus.
func Range(anchor, focus Position) Selection {
	return Selection{Anchor: anchor, Focus: focus}
}

func (s Selection) IsCollapsed() bool { return s.Anchor.Equal(s.Focus) }

// CollapseTo returns a caret at p. Stored marks are dropped.
func (s Selection) CollapseTo(p Position) Selection { return Caret(p) }

// ExtendTo moves the focus to p keeping the anchor.
func (s Selection) ExtendTo(p Position) Selection {
	return Selection{Anchor: s.Anchor, Focus: p}
}

// WithStored returns s carrying stored marks m.
func (s Selection) WithStored(m Marks) Selection {
	s.Stored = &m
	return s
}
