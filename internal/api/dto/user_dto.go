package dto

import "github.com/spec-kit/helpdesk/internal/domain"

// LoginForm payload for login.
type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// RegisterForm payload for new users.
type RegisterForm struct {
	Username        string `form:"username" validate:"required,max=64"`
	Email           string `form:"email" validate:"required,email,max=255"`
	Password        string `form:"password" validate:"required,min=6"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=Password"`
	Role            string `form:"role" validate:"required,selfrole"`
}

// ChangePasswordForm payload for the password page.
type ChangePasswordForm struct {
	OldPassword     string `form:"old_password" validate:"required"`
	NewPassword     string `form:"new_password" validate:"required,min=6"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// UserEditForm is the Admin account editor.
type UserEditForm struct {
	Username string `form:"username" validate:"required,max=64"`
	Email    string `form:"email" validate:"required,email,max=255"`
	Role     string `form:"role" validate:"required,role"`
}

// ParsedRole returns the canonical role for the submitted value.
func ParsedRole(value string) domain.Role {
	role, _ := domain.ParseRole(value)
	return role
}

// UserEditFormFromDomain fills the editor from a stored user.
func UserEditFormFromDomain(u *domain.User) UserEditForm {
	return UserEditForm{Username: u.Username, Email: u.Email, Role: string(u.Role)}
}
