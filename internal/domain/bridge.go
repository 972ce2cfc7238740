package domain

import "strings"

// Mode selects the LDAP attribute and DN dialect.
type Mode string

const (
	ModeOpenLDAP        Mode = "openldap"
	ModeActiveDirectory Mode = "activedirectory"
)

// ParseMode normalizes a mode string. Returns an error for unknown modes.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeOpenLDAP:
		return ModeOpenLDAP, nil
	case ModeActiveDirectory:
		return ModeActiveDirectory, nil
	default:
		return "", ErrValidation("unknown LDAP mode %q (want %q or %q)", s, ModeOpenLDAP, ModeActiveDirectory)
	}
}

// BridgeConfig is the active LDAP bridge configuration. Exactly one is in
// effect process-wide; it is owned by the bridge controller.
type BridgeConfig struct {
	BaseDN string `json:"base_dn"`
	Mode   Mode   `json:"mode"`
	Port   int    `json:"port"`
}

// Validate checks port range, mode, and base DN syntax at the shape level.
// Full DN parsing lives in the directory mapper.
func (c BridgeConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrValidation("ldap port %d out of range 1-65535", c.Port)
	}
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if strings.TrimSpace(c.BaseDN) == "" {
		return ErrValidation("base DN is required")
	}
	for _, rdn := range strings.Split(c.BaseDN, ",") {
		if !strings.Contains(rdn, "=") {
			return ErrValidation("base DN component %q is not of the form attr=value", strings.TrimSpace(rdn))
		}
	}
	return nil
}

// BridgeStatus reflects the bridge's live socket state. It is derived, never
// stored.
type BridgeStatus struct {
	State       string `json:"state"`
	Running     bool   `json:"running"`
	Port        int    `json:"port"`
	Connections int    `json:"connections"`
	LastError   string `json:"last_error,omitempty"`
}
