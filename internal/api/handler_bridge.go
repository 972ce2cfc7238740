package api

import (
	"net/http"

	"dirbridge/internal/domain"
)

func (h *Handler) getLDAPConfig(w http.ResponseWriter, r *http.Request) {
	ok(w, h.bridge.Config())
}

func (h *Handler) updateLDAPConfig(w http.ResponseWriter, r *http.Request) {
	var cfg domain.BridgeConfig
	if err := decode(r, &cfg); err != nil {
		fail(w, err)
		return
	}

	if err := h.bridge.UpdateConfig(cfg); err != nil {
		fail(w, err)
		return
	}

	h.log.Info("ldap config updated", "port", cfg.Port, "mode", cfg.Mode, "base_dn", cfg.BaseDN)
	ok(w, h.bridge.Config())
}

func (h *Handler) getLDAPStatus(w http.ResponseWriter, r *http.Request) {
	ok(w, h.bridge.Status())
}
