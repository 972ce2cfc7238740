package directory

import (
	"strings"

	goldap "github.com/go-ldap/ldap/v3"

	"dirbridge/internal/domain"
)

// RDN is one relative distinguished name component.
type RDN struct {
	Type  string
	Value string
}

func (r RDN) String() string {
	return r.Type + "=" + goldap.EscapeDN(r.Value)
}

// UserDN renders a user's DN. groupPath is the ancestor chain from the
// user's group outward to the root, nearest first; each element becomes an
// ou (OU in Active Directory mode) segment. An empty path places the user
// directly under the base DN.
func (m *Mapper) UserDN(username string, groupPath []string) string {
	var b strings.Builder
	if m.mode == domain.ModeActiveDirectory {
		b.WriteString("CN=")
	} else {
		b.WriteString("uid=")
	}
	b.WriteString(goldap.EscapeDN(username))
	writeGroupPath(&b, groupPath, m.mode)
	b.WriteString(",")
	b.WriteString(m.baseDN)
	return b.String()
}

// GroupDN renders a group's DN as cn=<name> under its ancestor path.
func (m *Mapper) GroupDN(name string, ancestors []string) string {
	var b strings.Builder
	if m.mode == domain.ModeActiveDirectory {
		b.WriteString("CN=")
	} else {
		b.WriteString("cn=")
	}
	b.WriteString(goldap.EscapeDN(name))
	writeGroupPath(&b, ancestors, m.mode)
	b.WriteString(",")
	b.WriteString(m.baseDN)
	return b.String()
}

func writeGroupPath(b *strings.Builder, path []string, mode domain.Mode) {
	prefix := ",ou="
	if mode == domain.ModeActiveDirectory {
		prefix = ",OU="
	}
	for _, name := range path {
		b.WriteString(prefix)
		b.WriteString(goldap.EscapeDN(name))
	}
}

// ParseUserDN inverts UserDN: it recovers the username and the group path
// (nearest first) from a DN under this mapper's base. The base DN suffix
// and attribute types are matched case-insensitively.
func (m *Mapper) ParseUserDN(dn string) (username string, groupPath []string, err error) {
	rdns, err := ParseDN(dn)
	if err != nil {
		return "", nil, err
	}

	base, err := ParseDN(m.baseDN)
	if err != nil {
		return "", nil, domain.ErrValidation("invalid base DN %q", m.baseDN)
	}
	if len(rdns) < len(base)+1 {
		return "", nil, domain.ErrValidation("DN %q is not under base %q", dn, m.baseDN)
	}
	for i := range base {
		got := rdns[len(rdns)-len(base)+i]
		if !strings.EqualFold(got.Type, base[i].Type) || !strings.EqualFold(got.Value, base[i].Value) {
			return "", nil, domain.ErrValidation("DN %q is not under base %q", dn, m.baseDN)
		}
	}

	first := rdns[0]
	wantType := "uid"
	if m.mode == domain.ModeActiveDirectory {
		wantType = "cn"
	}
	if !strings.EqualFold(first.Type, wantType) {
		return "", nil, domain.ErrValidation("expected %s= leading RDN in %q", wantType, dn)
	}

	for _, rdn := range rdns[1 : len(rdns)-len(base)] {
		if !strings.EqualFold(rdn.Type, "ou") {
			return "", nil, domain.ErrValidation("unexpected %s= segment in %q", rdn.Type, dn)
		}
		groupPath = append(groupPath, rdn.Value)
	}

	return first.Value, groupPath, nil
}

// ParseDN splits a DN into its RDN components. Parsing is delegated to
// go-ldap, which decodes RFC 4514 backslash and hex-pair escapes and keeps
// an escaped trailing space intact. Multi-valued RDNs are not served by
// this directory and are rejected.
func ParseDN(dn string) ([]RDN, error) {
	if strings.TrimSpace(dn) == "" {
		return nil, domain.ErrValidation("empty DN")
	}

	parsed, err := goldap.ParseDN(dn)
	if err != nil {
		return nil, domain.ErrValidation("malformed DN %q: %v", dn, err)
	}

	rdns := make([]RDN, 0, len(parsed.RDNs))
	for _, rdn := range parsed.RDNs {
		if len(rdn.Attributes) != 1 {
			return nil, domain.ErrValidation("multi-valued RDN in %q", dn)
		}
		attr := rdn.Attributes[0]
		rdns = append(rdns, RDN{Type: attr.Type, Value: attr.Value})
	}
	if len(rdns) == 0 {
		return nil, domain.ErrValidation("empty DN")
	}
	return rdns, nil
}
