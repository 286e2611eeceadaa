// Package codec defines the document tree exchanged with cabinets and the
// Codec boundary that turns payload bytes into that tree and back.
//
// The on-wire binary-XML format itself is an external concern; this package
// ships the UTF-8 text form of the same documents, which is also what the
// diagnostic archive stores.
package codec

import "strings"

// AttrNone is the sentinel returned for absent attributes. Routing fields
// resolve to it instead of failing, matching cabinet expectations.
const AttrNone = "none"

// Binary-XML type annotations carried in the __type attribute.
const (
	TypeS8   = "s8"
	TypeU8   = "u8"
	TypeS16  = "s16"
	TypeU16  = "u16"
	TypeS32  = "s32"
	TypeU32  = "u32"
	TypeS64  = "s64"
	TypeU64  = "u64"
	TypeIP4  = "ip4"
	TypeTime = "time"
	TypeStr  = "str"
)

// Attr is a single named attribute. Order is preserved because the binary
// form is order-sensitive.
type Attr struct {
	Name  string
	Value string
}

// Node is one element of a document tree.
type Node struct {
	Name     string
	Attrs    []Attr
	Text     string
	Children []*Node
}

// New creates a node and applies the given attribute name/value pairs.
func New(name string, attrPairs ...string) *Node {
	n := &Node{Name: name}
	for i := 0; i+1 < len(attrPairs); i += 2 {
		n.SetAttr(attrPairs[i], attrPairs[i+1])
	}
	return n
}

// Typed creates a leaf node carrying a __type annotation.
func Typed(name, typ, text string) *Node {
	n := New(name, "__type", typ)
	n.Text = text
	return n
}

// TypedCount creates a typed leaf that also carries a __count annotation,
// used for fixed-width array values like ip4.
func TypedCount(name, typ, count, text string) *Node {
	n := New(name, "__type", typ, "__count", count)
	n.Text = text
	return n
}

// SetAttr sets or replaces an attribute, preserving insertion order.
func (n *Node) SetAttr(name, value string) *Node {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return n
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
	return n
}

// LookupAttr reports an attribute value and whether it was present.
func (n *Node) LookupAttr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Attr returns an attribute value, or AttrNone when absent.
func (n *Node) Attr(name string) string {
	if v, ok := n.LookupAttr(name); ok {
		return v
	}
	return AttrNone
}

// Add appends children and returns n for chaining.
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Child returns the first child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildText returns the text of the named child, or AttrNone when the child
// is absent.
func (n *Node) ChildText(name string) string {
	if c := n.Child(name); c != nil {
		return strings.TrimSpace(c.Text)
	}
	return AttrNone
}

// FirstChild returns the first child, or nil for a leaf.
func (n *Node) FirstChild() *Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[0]
}

// Equal reports structural equality: same names, same attribute sets, same
// trimmed text, same children in order. Attribute order is ignored.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Name != other.Name || len(n.Attrs) != len(other.Attrs) ||
		len(n.Children) != len(other.Children) {
		return false
	}
	if strings.TrimSpace(n.Text) != strings.TrimSpace(other.Text) {
		return false
	}
	for _, a := range n.Attrs {
		if v, ok := other.LookupAttr(a.Name); !ok || v != a.Value {
			return false
		}
	}
	for i := range n.Children {
		if !n.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// Codec converts between payload bytes and the document tree.
type Codec interface {
	Decode(data []byte) (*Node, error)
	Encode(doc *Node) ([]byte, error)
}
