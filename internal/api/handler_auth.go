package api

import "net/http"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}

	token, user, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		fail(w, err)
		return
	}

	h.log.Info("login", "username", user.Username)
	ok(w, map[string]any{"token": token, "user": user})
}

// logout exists for the console; tokens are stateless so there is nothing
// to revoke server-side.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	ok(w, nil)
}
