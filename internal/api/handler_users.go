package api

import (
	"net/http"

	"dirbridge/internal/domain"
)

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var in domain.CreateUserInput
	if err := decode(r, &in); err != nil {
		fail(w, err)
		return
	}

	u, err := h.users.Create(r.Context(), in)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, u)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	result, err := h.users.List(r.Context(), pageFromQuery(r))
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, result)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, err)
		return
	}

	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, u)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, err)
		return
	}

	var in domain.UpdateUserInput
	if err := decode(r, &in); err != nil {
		fail(w, err)
		return
	}

	u, err := h.users.Update(r.Context(), id, in)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, u)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, err)
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		fail(w, err)
		return
	}
	ok(w, nil)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, err)
		return
	}

	var req changePasswordRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}

	if err := h.users.ChangePassword(r.Context(), id, req.OldPassword, req.NewPassword); err != nil {
		fail(w, err)
		return
	}
	ok(w, nil)
}

type setStatusRequest struct {
	Status domain.UserStatus `json:"status"`
}

func (h *Handler) setUserStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, err)
		return
	}

	var req setStatusRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}

	if err := h.users.SetStatus(r.Context(), id, req.Status); err != nil {
		fail(w, err)
		return
	}
	ok(w, nil)
}

func (h *Handler) listUserGroups(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, err)
		return
	}

	if _, err := h.users.Get(r.Context(), id); err != nil {
		fail(w, err)
		return
	}

	groups, err := h.users.Groups(r.Context(), id)
	if err != nil {
		fail(w, err)
		return
	}
	if groups == nil {
		groups = []*domain.Group{}
	}
	ok(w, groups)
}
