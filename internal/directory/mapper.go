// Package directory translates between internal users and groups and their
// LDAP representation: distinguished names, attribute sets, and search
// filters, for both the OpenLDAP and Active Directory dialects.
package directory

import (
	"strings"

	"dirbridge/internal/domain"
)

// Mapper renders entities as LDAP entries for one base DN and mode. It holds
// no mutable state and is safe for concurrent use.
type Mapper struct {
	baseDN string
	mode   domain.Mode
}

func NewMapper(baseDN string, mode domain.Mode) *Mapper {
	return &Mapper{baseDN: baseDN, mode: mode}
}

func (m *Mapper) BaseDN() string { return m.baseDN }

func (m *Mapper) Mode() domain.Mode { return m.mode }

// UserAttrs renders a user's LDAP attribute set. groupDNs become memberOf
// values when present.
func (m *Mapper) UserAttrs(u *domain.User, groupDNs []string) map[string][]string {
	attrs := map[string][]string{
		"objectClass": m.UserObjectClasses(),
		"cn":          {u.DisplayName},
		"displayName": {u.DisplayName},
	}

	if m.mode == domain.ModeActiveDirectory {
		attrs["sAMAccountName"] = []string{u.Username}
		attrs["userAccountControl"] = []string{accountControl(u.Status)}
	} else {
		attrs["uid"] = []string{u.Username}
		// inetOrgPerson requires sn
		attrs["sn"] = []string{u.Username}
		attrs["status"] = []string{string(u.Status)}
	}

	if u.Email != "" {
		attrs["mail"] = []string{u.Email}
	}
	if u.Phone != "" {
		attrs["telephoneNumber"] = []string{u.Phone}
	}
	if len(groupDNs) > 0 {
		attrs["memberOf"] = groupDNs
	}

	return attrs
}

// GroupAttrs renders a group's LDAP attribute set with its member DNs.
func (m *Mapper) GroupAttrs(g *domain.Group, memberDNs []string) map[string][]string {
	attrs := map[string][]string{
		"objectClass": m.GroupObjectClasses(),
		"cn":          {g.Name},
		"ou":          {g.Name},
	}
	if g.Description != "" {
		attrs["description"] = []string{g.Description}
	}
	if len(memberDNs) > 0 {
		attrs["member"] = memberDNs
	}
	return attrs
}

func (m *Mapper) UserObjectClasses() []string {
	if m.mode == domain.ModeActiveDirectory {
		return []string{"top", "person", "organizationalPerson", "user"}
	}
	return []string{"top", "person", "organizationalPerson", "inetOrgPerson"}
}

func (m *Mapper) GroupObjectClasses() []string {
	if m.mode == domain.ModeActiveDirectory {
		return []string{"top", "group"}
	}
	return []string{"top", "groupOfNames"}
}

// KnownAttribute reports whether an attribute name participates in this
// mode's mapping. Filters over anything else are rejected rather than
// silently matching nothing.
func (m *Mapper) KnownAttribute(name string) bool {
	_, ok := m.attrTable()[normAttr(name)]
	return ok
}

// Field returns the user field carried by an LDAP attribute, for
// translating filters into store lookups.
func (m *Mapper) Field(name string) (string, bool) {
	f, ok := m.attrTable()[normAttr(name)]
	return f, ok
}

func (m *Mapper) attrTable() map[string]string {
	if m.mode == domain.ModeActiveDirectory {
		return adAttrs
	}
	return openLDAPAttrs
}

// Attribute tables keyed by lowercased LDAP attribute name; values are the
// user fields they expose. objectClass is handled structurally and listed
// here only so filters over it are accepted.
var openLDAPAttrs = map[string]string{
	"uid":             "username",
	"cn":              "display_name",
	"displayname":     "display_name",
	"sn":              "username",
	"mail":            "email",
	"telephonenumber": "phone",
	"status":          "status",
	"objectclass":     "object_class",
	"memberof":        "member_of",
	"member":          "member",
	"ou":              "name",
	"description":     "description",
}

var adAttrs = map[string]string{
	"samaccountname":     "username",
	"cn":                 "display_name",
	"displayname":        "display_name",
	"mail":               "email",
	"telephonenumber":    "phone",
	"useraccountcontrol": "status",
	"objectclass":        "object_class",
	"memberof":           "member_of",
	"member":             "member",
	"ou":                 "name",
	"description":        "description",
}

// accountControl renders userAccountControl: 512 normal, 514 disabled.
func accountControl(status domain.UserStatus) string {
	if status == domain.UserStatusEnabled {
		return "512"
	}
	return "514"
}

func normAttr(name string) string {
	return strings.ToLower(name)
}
