package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/kosix/kosix/internal/account"
	"github.com/kosix/kosix/internal/api/response"
	"github.com/kosix/kosix/internal/auth"
)

const identityKey contextKey = "identity"

const bearerPrefix = "Bearer "

// Auth is middleware that extracts the bearer access token from the
// Authorization header and resolves it to an account via the auth service.
// A missing or malformed header is rejected before the service is consulted.
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authorization header", requestID)
				return
			}

			token := strings.TrimPrefix(header, bearerPrefix)

			acct, err := authService.Identify(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrExpiredToken):
					response.Err(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", requestID)
				case errors.Is(err, auth.ErrWrongTokenType):
					response.Err(w, http.StatusUnauthorized, "INVALID_TOKEN_TYPE", "Invalid token type", requestID)
				case errors.Is(err, auth.ErrInvalidToken):
					response.Err(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token", requestID)
				case errors.Is(err, account.ErrAccountNotFound):
					response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Account not found", requestID)
				default:
					response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Authentication failed", requestID)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), acct)))
		})
	}
}

// WithIdentity returns a context carrying the authenticated account.
func WithIdentity(ctx context.Context, acct *account.Account) context.Context {
	return context.WithValue(ctx, identityKey, acct)
}

// GetIdentity retrieves the authenticated account from the request context.
func GetIdentity(ctx context.Context) *account.Account {
	if acct, ok := ctx.Value(identityKey).(*account.Account); ok {
		return acct
	}
	return nil
}
