package domain

import "strings"

// Role enumerates the fixed set of account roles.
type Role string

const (
	RoleUsuario Role = "Usuario"
	RoleTecnico Role = "Técnico"
	RoleAdmin   Role = "Admin"
)

// Roles lists every role in display order.
var Roles = []Role{RoleUsuario, RoleTecnico, RoleAdmin}

// SelfServiceRoles are the roles a visitor may pick when registering.
var SelfServiceRoles = []Role{RoleUsuario, RoleTecnico}

// ParseRole maps user input to a Role. "Tecnico" without the accent is
// accepted for Técnico.
func ParseRole(value string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "usuario":
		return RoleUsuario, true
	case "técnico", "tecnico":
		return RoleTecnico, true
	case "admin":
		return RoleAdmin, true
	default:
		return "", false
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, candidate := range Roles {
		if r == candidate {
			return true
		}
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
