package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/kosix/kosix/internal/account"
	"github.com/kosix/kosix/internal/api/middleware"
	"github.com/kosix/kosix/internal/api/response"
	"github.com/kosix/kosix/internal/api/validation"
	"github.com/kosix/kosix/internal/auth"
	"github.com/kosix/kosix/internal/session"
)

type registerRequest struct {
	Email    string  `json:"email"`
	Username string  `json:"username"`
	Password string  `json:"password"`
	Name     *string `json:"name,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type accountResponse struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	Username      string  `json:"username"`
	Name          *string `json:"name,omitempty"`
	Role          string  `json:"role"`
	AvatarURL     *string `json:"avatarUrl,omitempty"`
	EmailVerified bool    `json:"emailVerified"`
	CreatedAt     string  `json:"createdAt"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int    `json:"expiresIn"`
}

type authResponse struct {
	Account accountResponse `json:"account"`
	Tokens  tokenResponse   `json:"tokens"`
}

func toAccountResponse(a *account.Account) accountResponse {
	return accountResponse{
		ID:            a.ID.String(),
		Email:         a.Email,
		Username:      a.Username,
		Name:          a.Name,
		Role:          string(a.Role),
		AvatarURL:     a.AvatarURL,
		EmailVerified: a.EmailVerified,
		CreatedAt:     a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toTokenResponse(t *auth.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    t.ExpiresIn,
	}
}

// AuthHandler handles the /auth endpoints.
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateRegisterRequest(validation.RegisterRequest{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	result, err := h.authService.Register(r.Context(), req.Email, req.Username, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrDuplicateEmail):
			response.Err(w, http.StatusConflict, "DUPLICATE_EMAIL", "Email already registered", requestID)
		case errors.Is(err, account.ErrDuplicateUsername):
			response.Err(w, http.StatusConflict, "DUPLICATE_USERNAME", "Username already taken", requestID)
		default:
			slog.Error("failed to register account", "error", err)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register account", requestID)
		}
		return
	}

	response.Success(w, http.StatusCreated, authResponse{
		Account: toAccountResponse(result.Account),
		Tokens:  toTokenResponse(result.Tokens),
	}, requestID)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateLoginRequest(validation.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			response.Err(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", requestID)
			return
		}
		slog.Error("failed to log in", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to log in", requestID)
		return
	}

	response.Success(w, http.StatusOK, authResponse{
		Account: toAccountResponse(result.Account),
		Tokens:  toTokenResponse(result.Tokens),
	}, requestID)
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "refreshToken is required", requestID)
		return
	}

	tokens, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			response.Err(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", requestID)
		case errors.Is(err, auth.ErrWrongTokenType):
			response.Err(w, http.StatusUnauthorized, "INVALID_TOKEN_TYPE", "Invalid token type", requestID)
		case errors.Is(err, auth.ErrInvalidToken):
			response.Err(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token", requestID)
		case errors.Is(err, session.ErrSessionNotFound):
			response.Err(w, http.StatusUnauthorized, "SESSION_NOT_FOUND", "Session not found or expired", requestID)
		case errors.Is(err, account.ErrAccountNotFound):
			response.Err(w, http.StatusUnauthorized, "ACCOUNT_NOT_FOUND", "Account not found", requestID)
		default:
			slog.Error("failed to refresh tokens", "error", err)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to refresh tokens", requestID)
		}
		return
	}

	response.Success(w, http.StatusOK, toTokenResponse(tokens), requestID)
}

// Logout handles POST /auth/logout. Always succeeds, even for unknown tokens.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "refreshToken is required", requestID)
		return
	}

	if err := h.authService.Logout(r.Context(), req.RefreshToken); err != nil {
		slog.Error("failed to log out", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to log out", requestID)
		return
	}

	response.Success(w, http.StatusOK, map[string]string{"message": "Successfully logged out"}, requestID)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct := middleware.GetIdentity(r.Context())
	if acct == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", requestID)
		return
	}

	response.Success(w, http.StatusOK, toAccountResponse(acct), requestID)
}

// ChangePassword handles POST /auth/change-password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct := middleware.GetIdentity(r.Context())
	if acct == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", requestID)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateChangePasswordRequest(validation.ChangePasswordRequest{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	if err := h.authService.ChangePassword(r.Context(), acct, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrIncorrectPassword) {
			response.Err(w, http.StatusBadRequest, "INCORRECT_PASSWORD", "Current password is incorrect", requestID)
			return
		}
		slog.Error("failed to change password", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to change password", requestID)
		return
	}

	response.Success(w, http.StatusOK, map[string]string{"message": "Password changed successfully"}, requestID)
}

// clientIP extracts the caller's IP from the request, nil when unavailable.
func clientIP(r *http.Request) *string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return nil
	}
	return &host
}
