package bridge

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/nmcclain/ldap"

	"dirbridge/internal/directory"
	"dirbridge/internal/domain"
	"dirbridge/internal/service"
)

// sessionHandler serves bind and search for one bridge configuration. A
// reconfigure installs a fresh handler with a mapper for the new base DN
// and mode; in-flight sessions keep the handler they started with.
type sessionHandler struct {
	log    *slog.Logger
	users  *service.UserService
	groups *service.GroupService
	mapper *directory.Mapper
}

func newSessionHandler(log *slog.Logger, users *service.UserService, groups *service.GroupService, mapper *directory.Mapper) *sessionHandler {
	return &sessionHandler{log: log, users: users, groups: groups, mapper: mapper}
}

// Bind authenticates a DN and password. Anonymous binds (empty DN and
// password) succeed with no privileges; everything else resolves the DN to
// a username and verifies the credential. Disabled users are rejected even
// with a correct password.
func (h *sessionHandler) Bind(bindDN, bindSimplePw string, conn net.Conn) (ldap.LDAPResultCode, error) {
	if bindDN == "" && bindSimplePw == "" {
		return ldap.LDAPResultSuccess, nil
	}

	username, _, err := h.mapper.ParseUserDN(bindDN)
	if err != nil {
		h.log.Debug("bind with unparsable DN", "dn", bindDN, "err", err)
		return ldap.LDAPResultInvalidDNSyntax, nil
	}

	if _, err := h.users.Authenticate(context.Background(), username, bindSimplePw); err != nil {
		h.log.Info("bind rejected", "username", username, "remote", conn.RemoteAddr())
		return ldap.LDAPResultInvalidCredentials, nil
	}

	h.log.Debug("bind accepted", "username", username)
	return ldap.LDAPResultSuccess, nil
}

// Search evaluates the request filter against user and group entries under
// the base DN. Filters the mapper cannot express are refused rather than
// answered with an empty set.
func (h *sessionHandler) Search(boundDN string, req ldap.SearchRequest, conn net.Conn) (ldap.ServerSearchResult, error) {
	ctx := context.Background()

	node, err := directory.ParseFilter(req.Filter)
	if err != nil {
		return searchError(err)
	}

	var entries []*ldap.Entry

	// Equality on the login attribute swaps the full scan for a lookup.
	if username, ok := h.mapper.UsernameEquality(node); ok {
		u, err := h.users.GetByUsername(ctx, username)
		var nferr *domain.NotFoundError
		if errors.As(err, &nferr) {
			return ldap.ServerSearchResult{ResultCode: ldap.LDAPResultSuccess}, nil
		}
		if err != nil {
			return searchError(err)
		}
		entry, match, err := h.userEntry(ctx, u, node)
		if err != nil {
			return searchError(err)
		}
		if match {
			entries = append(entries, entry)
		}
		return h.limited(entries, req.SizeLimit), nil
	}

	users, err := h.users.All(ctx)
	if err != nil {
		return searchError(err)
	}
	for _, u := range users {
		entry, match, err := h.userEntry(ctx, u, node)
		if err != nil {
			return searchError(err)
		}
		if match {
			entries = append(entries, entry)
		}
	}

	groups, err := h.groups.List(ctx)
	if err != nil {
		return searchError(err)
	}
	for _, g := range groups {
		entry, match, err := h.groupEntry(ctx, g, node)
		if err != nil {
			return searchError(err)
		}
		if match {
			entries = append(entries, entry)
		}
	}

	return h.limited(entries, req.SizeLimit), nil
}

func (h *sessionHandler) Close(boundDN string, conn net.Conn) error {
	h.log.Debug("session closed", "remote", conn.RemoteAddr())
	return nil
}

// userEntry renders a user and evaluates the filter against it.
func (h *sessionHandler) userEntry(ctx context.Context, u *domain.User, node *directory.Node) (*ldap.Entry, bool, error) {
	groups, err := h.users.Groups(ctx, u.ID)
	if err != nil {
		return nil, false, err
	}

	var groupPath []string
	var groupDNs []string
	for i, g := range groups {
		path, err := h.groupPath(ctx, g)
		if err != nil {
			return nil, false, err
		}
		groupDNs = append(groupDNs, h.mapper.GroupDN(g.Name, path))
		if i == 0 {
			groupPath = append([]string{g.Name}, path...)
		}
	}

	attrs := h.mapper.UserAttrs(u, groupDNs)
	match, err := h.mapper.Matches(node, attrs)
	if err != nil {
		return nil, false, err
	}
	if !match {
		return nil, false, nil
	}

	return &ldap.Entry{
		DN:         h.mapper.UserDN(u.Username, groupPath),
		Attributes: entryAttributes(attrs),
	}, true, nil
}

// groupEntry renders a group with its member DNs and evaluates the filter.
func (h *sessionHandler) groupEntry(ctx context.Context, g *domain.Group, node *directory.Node) (*ldap.Entry, bool, error) {
	path, err := h.groupPath(ctx, g)
	if err != nil {
		return nil, false, err
	}

	members, err := h.groups.Members(ctx, g.ID)
	if err != nil {
		return nil, false, err
	}
	memberPath := append([]string{g.Name}, path...)
	var memberDNs []string
	for _, u := range members {
		memberDNs = append(memberDNs, h.mapper.UserDN(u.Username, memberPath))
	}

	attrs := h.mapper.GroupAttrs(g, memberDNs)
	match, err := h.mapper.Matches(node, attrs)
	if err != nil {
		return nil, false, err
	}
	if !match {
		return nil, false, nil
	}

	return &ldap.Entry{
		DN:         h.mapper.GroupDN(g.Name, path),
		Attributes: entryAttributes(attrs),
	}, true, nil
}

// groupPath returns the ancestor names of a group, nearest first.
func (h *sessionHandler) groupPath(ctx context.Context, g *domain.Group) ([]string, error) {
	ancestors, err := h.groups.Ancestors(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ancestors))
	for _, a := range ancestors {
		names = append(names, a.Name)
	}
	return names, nil
}

func (h *sessionHandler) limited(entries []*ldap.Entry, sizeLimit int) ldap.ServerSearchResult {
	var code ldap.LDAPResultCode = ldap.LDAPResultSuccess
	if sizeLimit > 0 && len(entries) > sizeLimit {
		entries = entries[:sizeLimit]
		code = ldap.LDAPResultSizeLimitExceeded
	}
	return ldap.ServerSearchResult{Entries: entries, ResultCode: code}
}

func entryAttributes(attrs map[string][]string) []*ldap.EntryAttribute {
	out := make([]*ldap.EntryAttribute, 0, len(attrs))
	for name, values := range attrs {
		out = append(out, &ldap.EntryAttribute{Name: name, Values: values})
	}
	return out
}

// searchError maps a domain error onto the closest LDAP result code.
func searchError(err error) (ldap.ServerSearchResult, error) {
	var uerr *domain.UnsupportedError
	if errors.As(err, &uerr) {
		return ldap.ServerSearchResult{ResultCode: ldap.LDAPResultUnwillingToPerform}, err
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return ldap.ServerSearchResult{ResultCode: ldap.LDAPResultProtocolError}, err
	}
	return ldap.ServerSearchResult{ResultCode: ldap.LDAPResultOperationsError}, err
}
