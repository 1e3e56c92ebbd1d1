package models

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool { return emailRe.MatchString(s) }

// User is the profile returned by the backend.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Goals
}

// DisplayName prefers the name, then the username, then the email.
func (u User) DisplayName() string {
	switch {
	case u.Name != "":
		return u.Name
	case u.Username != "":
		return u.Username
	}
	return u.Email
}

// ProfileUpdate is the body of PUT /users/profile.
type ProfileUpdate struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() FieldErrors {
	errs := FieldErrors{}
	if !ValidEmail(r.Email) {
		errs.Add("email", "Please enter a valid email")
	}
	if r.Password == "" {
		errs.Add("password", "Password is required")
	}
	return errs
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Goals
}

// Validate runs the registration form checks.
func (r RegisterRequest) Validate() FieldErrors {
	errs := FieldErrors{}
	if !ValidEmail(r.Email) {
		errs.Add("email", "Please enter a valid email")
	}
	if len(strings.TrimSpace(r.Name)) < 3 {
		errs.Add("name", "Name must be at least 3 characters")
	}
	if len(r.Password) < 8 {
		errs.Add("password", "Password must be at least 8 characters")
	}
	if r.Password != r.ConfirmPassword {
		errs.Add("confirm_password", "Passwords do not match")
	}
	return errs
}

// AuthResponse is returned by login, register and refresh.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         *User  `json:"user,omitempty"`
	Message      string `json:"message,omitempty"`
}

// PasswordChange is the body of POST /users/change-password.
type PasswordChange struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (p PasswordChange) Validate() FieldErrors {
	errs := FieldErrors{}
	if p.OldPassword == "" {
		errs.Add("old_password", "Current password is required")
	}
	if len(p.NewPassword) < 8 {
		errs.Add("new_password", "Password must be at least 8 characters")
	}
	return errs
}
