package directory

import (
	"fmt"
	"strings"

	ber "github.com/go-asn1-ber/asn1-ber"
	goldap "github.com/go-ldap/ldap/v3"

	"dirbridge/internal/domain"
)

// NodeKind identifies a filter AST node.
type NodeKind int

const (
	KindAnd NodeKind = iota
	KindOr
	KindNot
	KindEqual
	KindSubstring
	KindGreaterOrEqual
	KindLessOrEqual
	KindPresent
	KindApprox
)

// Node is one node of a parsed RFC 4515 search filter.
type Node struct {
	Kind     NodeKind
	Attr     string
	Value    string
	Children []*Node
	Substr   *Substring
}

// Substring holds the pieces of an attr=initial*any*final assertion.
type Substring struct {
	Initial string
	Any     []string
	Final   string
}

// BER choice tags of the LDAP Filter ASN.1 type.
const (
	tagAnd             = 0
	tagOr              = 1
	tagNot             = 2
	tagEqualityMatch   = 3
	tagSubstrings      = 4
	tagGreaterOrEqual  = 5
	tagLessOrEqual     = 6
	tagPresent         = 7
	tagApproxMatch     = 8
	tagExtensibleMatch = 9

	tagSubInitial = 0
	tagSubAny     = 1
	tagSubFinal   = 2
)

// ParseFilter compiles an RFC 4515 filter string into an AST. Malformed
// strings fail with ValidationError; syntactically valid constructs the
// bridge does not implement (extensible match) fail with UnsupportedError
// so callers can tell "no match" from "not understood".
func ParseFilter(s string) (*Node, error) {
	if s == "" {
		return nil, domain.ErrValidation("empty search filter")
	}
	packet, err := goldap.CompileFilter(s)
	if err != nil {
		return nil, domain.ErrValidation("malformed search filter %q: %v", s, err)
	}
	return packetToNode(packet)
}

func packetToNode(p *ber.Packet) (*Node, error) {
	if p == nil {
		return nil, domain.ErrValidation("empty filter element")
	}

	switch int(p.Tag) {
	case tagAnd:
		return compoundNode(KindAnd, p)
	case tagOr:
		return compoundNode(KindOr, p)
	case tagNot:
		if len(p.Children) != 1 {
			return nil, domain.ErrValidation("NOT filter must have exactly one operand")
		}
		child, err := packetToNode(p.Children[0])
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindNot, Children: []*Node{child}}, nil
	case tagEqualityMatch:
		return comparisonNode(KindEqual, p)
	case tagSubstrings:
		return substringNode(p)
	case tagGreaterOrEqual:
		return comparisonNode(KindGreaterOrEqual, p)
	case tagLessOrEqual:
		return comparisonNode(KindLessOrEqual, p)
	case tagPresent:
		attr := packetString(p)
		if attr == "" {
			return nil, domain.ErrValidation("presence filter has empty attribute")
		}
		return &Node{Kind: KindPresent, Attr: attr}, nil
	case tagApproxMatch:
		return comparisonNode(KindApprox, p)
	case tagExtensibleMatch:
		return nil, domain.ErrUnsupported("extensible match filters are not supported")
	default:
		return nil, domain.ErrUnsupported("unknown filter element tag %d", p.Tag)
	}
}

func compoundNode(kind NodeKind, p *ber.Packet) (*Node, error) {
	n := &Node{Kind: kind}
	for _, child := range p.Children {
		cn, err := packetToNode(child)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, cn)
	}
	if len(n.Children) == 0 {
		return nil, domain.ErrValidation("compound filter has no operands")
	}
	return n, nil
}

func comparisonNode(kind NodeKind, p *ber.Packet) (*Node, error) {
	if len(p.Children) != 2 {
		return nil, domain.ErrValidation("comparison filter must carry attribute and value")
	}
	return &Node{
		Kind:  kind,
		Attr:  packetString(p.Children[0]),
		Value: packetString(p.Children[1]),
	}, nil
}

func substringNode(p *ber.Packet) (*Node, error) {
	if len(p.Children) < 2 {
		return nil, domain.ErrValidation("substring filter must carry attribute and sequence")
	}
	sub := &Substring{}
	for _, child := range p.Children[1].Children {
		val := packetString(child)
		switch int(child.Tag) {
		case tagSubInitial:
			sub.Initial = val
		case tagSubAny:
			sub.Any = append(sub.Any, val)
		case tagSubFinal:
			sub.Final = val
		default:
			return nil, domain.ErrValidation("unknown substring element tag %d", child.Tag)
		}
	}
	return &Node{Kind: KindSubstring, Attr: packetString(p.Children[0]), Substr: sub}, nil
}

// packetString pulls the string payload out of a BER leaf.
func packetString(p *ber.Packet) string {
	if p == nil {
		return ""
	}
	if s, ok := p.Value.(string); ok {
		return s
	}
	if p.Data != nil && p.Data.Len() > 0 {
		return p.Data.String()
	}
	return string(p.ByteValue)
}

// String renders the node back in filter syntax, mainly for logs and tests.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case KindAnd, KindOr:
		op := "&"
		if n.Kind == KindOr {
			op = "|"
		}
		var b strings.Builder
		b.WriteString("(" + op)
		for _, c := range n.Children {
			b.WriteString(c.String())
		}
		b.WriteString(")")
		return b.String()
	case KindNot:
		if len(n.Children) == 1 {
			return "(!" + n.Children[0].String() + ")"
		}
		return "(!)"
	case KindEqual:
		return fmt.Sprintf("(%s=%s)", n.Attr, n.Value)
	case KindPresent:
		return fmt.Sprintf("(%s=*)", n.Attr)
	case KindGreaterOrEqual:
		return fmt.Sprintf("(%s>=%s)", n.Attr, n.Value)
	case KindLessOrEqual:
		return fmt.Sprintf("(%s<=%s)", n.Attr, n.Value)
	case KindApprox:
		return fmt.Sprintf("(%s~=%s)", n.Attr, n.Value)
	case KindSubstring:
		var b strings.Builder
		fmt.Fprintf(&b, "(%s=%s*", n.Attr, n.Substr.Initial)
		for _, a := range n.Substr.Any {
			b.WriteString(a + "*")
		}
		b.WriteString(n.Substr.Final + ")")
		return b.String()
	default:
		return fmt.Sprintf("(?%d)", int(n.Kind))
	}
}

// UsernameEquality reports the username a filter pins down, when the whole
// filter is an equality over an attribute backed by the username field, or
// an AND containing such a clause. Search handlers use it to swap a full
// scan for a point lookup.
func (m *Mapper) UsernameEquality(n *Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Kind {
	case KindEqual:
		if f, ok := m.Field(n.Attr); ok && f == "username" {
			return n.Value, true
		}
	case KindAnd:
		for _, c := range n.Children {
			if c.Kind != KindEqual {
				continue
			}
			if f, ok := m.Field(c.Attr); ok && f == "username" {
				return c.Value, true
			}
		}
	}
	return "", false
}
