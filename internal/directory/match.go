package directory

import (
	"strings"

	"dirbridge/internal/domain"
)

// Matches evaluates a filter against a rendered attribute set. Attribute
// names compare case-insensitively and values use LDAP caseIgnore
// semantics. A filter over an attribute outside the mode's mapping fails
// with UnsupportedError rather than matching nothing.
func (m *Mapper) Matches(n *Node, attrs map[string][]string) (bool, error) {
	if n == nil {
		return false, domain.ErrValidation("nil filter")
	}

	switch n.Kind {
	case KindAnd:
		for _, c := range n.Children {
			ok, err := m.Matches(c, attrs)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case KindOr:
		matched := false
		for _, c := range n.Children {
			ok, err := m.Matches(c, attrs)
			if err != nil {
				return false, err
			}
			if ok {
				matched = true
			}
		}
		return matched, nil
	case KindNot:
		ok, err := m.Matches(n.Children[0], attrs)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case KindEqual, KindApprox:
		return m.matchValues(n.Attr, attrs, func(v string) bool {
			return strings.EqualFold(v, n.Value)
		})
	case KindPresent:
		if !m.KnownAttribute(n.Attr) {
			return false, domain.ErrUnsupported("attribute %q is not mapped", n.Attr)
		}
		return len(lookupAttr(attrs, n.Attr)) > 0, nil
	case KindSubstring:
		return m.matchValues(n.Attr, attrs, func(v string) bool {
			return matchSubstring(v, n.Substr)
		})
	case KindGreaterOrEqual:
		return m.matchValues(n.Attr, attrs, func(v string) bool {
			return strings.ToLower(v) >= strings.ToLower(n.Value)
		})
	case KindLessOrEqual:
		return m.matchValues(n.Attr, attrs, func(v string) bool {
			return strings.ToLower(v) <= strings.ToLower(n.Value)
		})
	default:
		return false, domain.ErrUnsupported("filter kind %d is not supported", int(n.Kind))
	}
}

func (m *Mapper) matchValues(attr string, attrs map[string][]string, pred func(string) bool) (bool, error) {
	if !m.KnownAttribute(attr) {
		return false, domain.ErrUnsupported("attribute %q is not mapped", attr)
	}
	for _, v := range lookupAttr(attrs, attr) {
		if pred(v) {
			return true, nil
		}
	}
	return false, nil
}

func lookupAttr(attrs map[string][]string, name string) []string {
	for k, vals := range attrs {
		if strings.EqualFold(k, name) {
			return vals
		}
	}
	return nil
}

// matchSubstring checks initial*any...*final against a value, case
// insensitively, consuming the any parts left to right.
func matchSubstring(value string, sub *Substring) bool {
	if sub == nil {
		return false
	}
	v := strings.ToLower(value)

	if sub.Initial != "" {
		p := strings.ToLower(sub.Initial)
		if !strings.HasPrefix(v, p) {
			return false
		}
		v = v[len(p):]
	}

	for _, any := range sub.Any {
		p := strings.ToLower(any)
		idx := strings.Index(v, p)
		if idx < 0 {
			return false
		}
		v = v[idx+len(p):]
	}

	if sub.Final != "" {
		p := strings.ToLower(sub.Final)
		if !strings.HasSuffix(v, p) {
			return false
		}
	}
	return true
}
