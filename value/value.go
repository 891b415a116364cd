// Package value implements KAON's property value model: a property is either
// a plain string or a composite value built from joining several strings
// together.
package value

import "strings"

// Join names the rule used to flatten a [Composite]'s parts into a string.
type Join string

const (
	// BrokenLine joins parts with the empty string.
	BrokenLine Join = "broken-line"
	// MultipleLines joins parts with a newline.
	MultipleLines Join = "multiple-lines"
)

// Value is a property value: either a plain string or a [Composite].
// The zero value is not meaningful; construct with [Plain] or [NewComposite].
type Value struct {
	plain     string
	composite *Composite
}

// Composite is a PropertyValue tagged with a [Join] rule over its parts.
type Composite struct {
	Join  Join
	Parts []string
}

// Plain wraps a string as a [Value].
func Plain(s string) Value {
	return Value{plain: s}
}

// NewComposite wraps a [Composite] as a [Value].
func NewComposite(join Join, parts ...string) Value {
	return Value{composite: &Composite{Join: join, Parts: parts}}
}

// IsComposite reports whether v holds a [Composite] rather than a plain string.
func (v Value) IsComposite() bool {
	return v.composite != nil
}

// Render flattens v to a string: identity for a plain value, or the parts of
// a composite joined per its [Join] rule.
func (v Value) Render() string {
	if v.composite == nil {
		return v.plain
	}

	switch v.composite.Join {
	case MultipleLines:
		return strings.Join(v.composite.Parts, "\n")
	default:
		return strings.Join(v.composite.Parts, "")
	}
}

// List is a PropertyValue literal that is a list of Values: an "any-of"
// membership set in select constraints, and a fan-out in modify phases. It is
// never itself a [Value].
type List []Value

// Render flattens every element, in order.
func (l List) Render() []string {
	out := make([]string, len(l))
	for i, v := range l {
		out[i] = v.Render()
	}

	return out
}
