package validation

import (
	"strings"
)

const minPasswordLength = 8

// RegisterRequest mirrors the fields needed for register validation.
type RegisterRequest struct {
	Email    string
	Username string
	Password string
}

// ValidateRegisterRequest validates the fields of a registration request.
func ValidateRegisterRequest(req RegisterRequest) []FieldError {
	var errs []FieldError

	errs = append(errs, validateEmail(req.Email)...)

	username := strings.TrimSpace(req.Username)
	if username == "" {
		errs = append(errs, FieldError{Field: "username", Message: "username is required"})
	} else if len(username) < 3 || len(username) > 50 {
		errs = append(errs, FieldError{Field: "username", Message: "username must be between 3 and 50 characters"})
	}

	if len(req.Password) < minPasswordLength {
		errs = append(errs, FieldError{Field: "password", Message: "password must be at least 8 characters"})
	}

	return errs
}

// LoginRequest mirrors the fields needed for login validation.
type LoginRequest struct {
	Email    string
	Password string
}

// ValidateLoginRequest validates the fields of a login request.
func ValidateLoginRequest(req LoginRequest) []FieldError {
	var errs []FieldError

	errs = append(errs, validateEmail(req.Email)...)

	if req.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "password is required"})
	}

	return errs
}

// ChangePasswordRequest mirrors the fields needed for password change validation.
type ChangePasswordRequest struct {
	CurrentPassword string
	NewPassword     string
}

// ValidateChangePasswordRequest validates the fields of a password change request.
func ValidateChangePasswordRequest(req ChangePasswordRequest) []FieldError {
	var errs []FieldError

	if req.CurrentPassword == "" {
		errs = append(errs, FieldError{Field: "currentPassword", Message: "currentPassword is required"})
	}

	if len(req.NewPassword) < minPasswordLength {
		errs = append(errs, FieldError{Field: "newPassword", Message: "newPassword must be at least 8 characters"})
	}

	return errs
}

func validateEmail(email string) []FieldError {
	email = strings.TrimSpace(email)
	if email == "" {
		return []FieldError{{Field: "email", Message: "email is required"}}
	}

	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || !strings.Contains(email[at:], ".") {
		return []FieldError{{Field: "email", Message: "email must be a valid address"}}
	}

	if len(email) > 255 {
		return []FieldError{{Field: "email", Message: "email must be at most 255 characters"}}
	}

	return nil
}
