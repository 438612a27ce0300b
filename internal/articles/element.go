// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package articles

import (
	"encoding/xml"
	"strings"
)

// element is an ordered XML subtree. Unlike struct-tag decoding it keeps
// character data interleaved with child elements, which the abstract and
// body extraction rules depend on.
type element struct {
	name  string
	attrs []xml.Attr
	items []item
}

// item is either a run of character data or a child element.
type item struct {
	text  string
	child *element
}

// UnmarshalXML implements xml.Unmarshaler.
func (e *element) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	e.name = start.Name.Local
	e.attrs = start.Attr
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child := &element{}
			if err := child.UnmarshalXML(d, t); err != nil {
				return err
			}
			e.items = append(e.items, item{child: child})
		case xml.CharData:
			if n := len(e.items); n > 0 && e.items[n-1].child == nil {
				e.items[n-1].text += string(t)
				continue
			}
			e.items = append(e.items, item{text: string(t)})
		case xml.EndElement:
			return nil
		}
	}
}

// attr returns the value of the named attribute, or "".
func (e *element) attr(name string) string {
	for _, a := range e.attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// leadingText returns the character data before the first child element.
func (e *element) leadingText() string {
	if len(e.items) > 0 && e.items[0].child == nil {
		return e.items[0].text
	}
	return ""
}

// textPieces returns every character data run in the subtree in document order.
func (e *element) textPieces() []string {
	var pieces []string
	for _, it := range e.items {
		if it.child != nil {
			pieces = append(pieces, it.child.textPieces()...)
			continue
		}
		pieces = append(pieces, it.text)
	}
	return pieces
}

// joinedText joins all text runs in the subtree with sep.
func (e *element) joinedText(sep string) string {
	return strings.Join(e.textPieces(), sep)
}

// children returns direct children with the given local name.
func (e *element) children(name string) []*element {
	var out []*element
	for _, it := range e.items {
		if it.child != nil && it.child.name == name {
			out = append(out, it.child)
		}
	}
	return out
}

// descendants returns all elements below e (not e itself) with the given
// local name, in document order.
func (e *element) descendants(name string) []*element {
	var out []*element
	for _, it := range e.items {
		if it.child == nil {
			continue
		}
		if it.child.name == name {
			out = append(out, it.child)
		}
		out = append(out, it.child.descendants(name)...)
	}
	return out
}

// first returns the first descendant with the given local name, or nil.
func (e *element) first(name string) *element {
	for _, it := range e.items {
		if it.child == nil {
			continue
		}
		if it.child.name == name {
			return it.child
		}
		if found := it.child.first(name); found != nil {
			return found
		}
	}
	return nil
}

// findAll resolves a descendant-anchored path such as "Abstract/AbstractText":
// the first segment matches at any depth, later segments match direct children.
func (e *element) findAll(path string) []*element {
	segments := strings.Split(path, "/")
	current := e.descendants(segments[0])
	for _, seg := range segments[1:] {
		var next []*element
		for _, el := range current {
			next = append(next, el.children(seg)...)
		}
		current = next
	}
	return current
}
