package data

import "strings"

// LabelSeparator joins the English and Hebrew halves of a node name.
const LabelSeparator = "|"

// Label is a dual-language display name.
type Label struct {
	EN string
	HE string
}

// ParseLabel splits "English | Hebrew" on the first separator. A name without a
// separator is treated as English only.
func ParseLabel(name string) Label {
	en, he, found := strings.Cut(name, LabelSeparator)
	if !found {
		return Label{EN: strings.TrimSpace(name)}
	}
	return Label{EN: strings.TrimSpace(en), HE: strings.TrimSpace(he)}
}

// String joins the halves back into a stored name.
func (l Label) String() string {
	switch {
	case l.HE == "":
		return l.EN
	case l.EN == "":
		return LabelSeparator + " " + l.HE
	default:
		return l.EN + " " + LabelSeparator + " " + l.HE
	}
}

// Primary returns the English half, falling back to Hebrew.
func (l Label) Primary() string {
	if l.EN != "" {
		return l.EN
	}
	return l.HE
}

// In returns the half for lang ("he" or anything else for English), falling back
// to the other half when empty.
func (l Label) In(lang string) string {
	if lang == "he" && l.HE != "" {
		return l.HE
	}
	return l.Primary()
}
