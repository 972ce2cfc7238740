package api

import (
	"net/http"

	"dirbridge/internal/domain"
)

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	var in domain.CreateGroupInput
	if err := decode(r, &in); err != nil {
		fail(w, err)
		return
	}

	g, err := h.groups.Create(r.Context(), in)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, g)
}

// listGroups returns the flat list by default; ?tree=1 nests the forest
// and ?sort=name orders siblings alphabetically instead of by creation.
func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("tree") == "1" || q.Get("tree") == "true" {
		tree, err := h.groups.Tree(r.Context(), q.Get("sort") == "name")
		if err != nil {
			fail(w, err)
			return
		}
		ok(w, tree)
		return
	}

	groups, err := h.groups.List(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	if groups == nil {
		groups = []*domain.Group{}
	}
	ok(w, groups)
}

func (h *Handler) getGroup(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, err)
		return
	}

	g, err := h.groups.Get(r.Context(), id)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, g)
}

func (h *Handler) updateGroup(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, err)
		return
	}

	var in domain.UpdateGroupInput
	if err := decode(r, &in); err != nil {
		fail(w, err)
		return
	}

	g, err := h.groups.Update(r.Context(), id, in)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, g)
}

func (h *Handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, err)
		return
	}

	if err := h.groups.Delete(r.Context(), id); err != nil {
		fail(w, err)
		return
	}
	ok(w, nil)
}

// listGroupDescendants feeds the console's reparent picker: a group must
// never be offered as its own descendant's parent.
func (h *Handler) listGroupDescendants(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, err)
		return
	}

	descendants, err := h.groups.Descendants(r.Context(), id)
	if err != nil {
		fail(w, err)
		return
	}
	if descendants == nil {
		descendants = []*domain.Group{}
	}
	ok(w, descendants)
}

func (h *Handler) listGroupMembers(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, err)
		return
	}

	members, err := h.groups.Members(r.Context(), id)
	if err != nil {
		fail(w, err)
		return
	}
	if members == nil {
		members = []*domain.User{}
	}
	ok(w, members)
}

type addMembersRequest struct {
	UserIDs []string `json:"user_ids"`
}

func (h *Handler) addGroupMembers(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, err)
		return
	}

	var req addMembersRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}

	if err := h.groups.AddMembers(r.Context(), id, req.UserIDs); err != nil {
		fail(w, err)
		return
	}
	ok(w, nil)
}

func (h *Handler) removeGroupMember(w http.ResponseWriter, r *http.Request) {
	groupID, err := idParam(r, "id")
	if err != nil {
		fail(w, err)
		return
	}
	userID, err := idParam(r, "userId")
	if err != nil {
		fail(w, err)
		return
	}

	if err := h.groups.RemoveMember(r.Context(), groupID, userID); err != nil {
		fail(w, err)
		return
	}
	ok(w, nil)
}
