package domain

// User is an account able to sign in. Role is looked up through the
// roles table; every user has exactly one.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         Role
}

// Caller returns the identity used for authorization decisions.
func (u *User) Caller() Caller {
	return Caller{ID: u.ID, Role: u.Role}
}
