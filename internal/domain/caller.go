package domain

// Caller is the authenticated identity passed explicitly into every
// ticket and user operation.
type Caller struct {
	ID   int64
	Role Role
}

func (c Caller) IsAdmin() bool   { return c.Role == RoleAdmin }
func (c Caller) IsTecnico() bool { return c.Role == RoleTecnico }
func (c Caller) IsUsuario() bool { return c.Role == RoleUsuario }
