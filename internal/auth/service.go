package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kosix/kosix/internal/account"
	"github.com/kosix/kosix/internal/session"
)

// ErrInvalidCredentials is returned on login failure. The message is the same
// whether the email is unknown or the password is wrong, so callers cannot
// probe which emails are registered.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrIncorrectPassword is returned when the current password supplied to a
// password change does not verify.
var ErrIncorrectPassword = errors.New("current password is incorrect")

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Account *account.Account
	Tokens  *TokenPair
}

// Service orchestrates accounts, sessions, and the token issuer.
type Service struct {
	accounts   account.Repository
	sessions   session.Repository
	tokens     *TokenIssuer
	bcryptCost int
}

// NewService creates a new auth Service.
func NewService(accounts account.Repository, sessions session.Repository, tokens *TokenIssuer, bcryptCost int) *Service {
	return &Service{
		accounts:   accounts,
		sessions:   sessions,
		tokens:     tokens,
		bcryptCost: bcryptCost,
	}
}

// HashPassword hashes a plaintext password with bcrypt. The salt is generated
// per call and embedded in the hash.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether the plaintext matches the stored hash.
func (s *Service) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Register creates a new email/password account and issues a token pair.
// No session row is created here; the first refresh token only becomes
// revocable after an explicit login.
func (s *Service) Register(ctx context.Context, email, username, password string, name *string) (*AuthResult, error) {
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		slog.Warn("registration rejected, email exists", "email", email)
		return nil, account.ErrDuplicateEmail
	} else if !errors.Is(err, account.ErrAccountNotFound) {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		slog.Warn("registration rejected, username exists", "username", username)
		return nil, account.ErrDuplicateUsername
	} else if !errors.Is(err, account.ErrAccountNotFound) {
		return nil, fmt.Errorf("checking username: %w", err)
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}

	acct := &account.Account{
		Email:         email,
		Username:      username,
		Name:          name,
		PasswordHash:  &hash,
		Role:          account.RoleUser,
		Provider:      account.ProviderEmail,
		EmailVerified: false,
	}

	if err := s.accounts.Create(ctx, acct); err != nil {
		return nil, err
	}

	tokens, err := s.tokens.IssuePair(acct.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing tokens: %w", err)
	}

	slog.Info("account registered", "accountId", acct.ID)

	return &AuthResult{Account: acct, Tokens: tokens}, nil
}

// Login verifies credentials, issues a token pair, and records an active
// session keyed by the new refresh token.
func (s *Service) Login(ctx context.Context, email, password string, clientIP *string) (*AuthResult, error) {
	acct, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			slog.Warn("login failed, account not found", "email", email)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up account: %w", err)
	}

	if acct.PasswordHash == nil || !s.VerifyPassword(password, *acct.PasswordHash) {
		slog.Warn("login failed, password mismatch", "accountId", acct.ID)
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.tokens.IssuePair(acct.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing tokens: %w", err)
	}

	sess := &session.Session{
		AccountID: acct.ID,
		Token:     tokens.RefreshToken,
		ExpiresAt: time.Now().UTC().Add(s.tokens.RefreshTTL()),
		IPAddress: clientIP,
		Active:    true,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	slog.Info("login succeeded", "accountId", acct.ID)

	return &AuthResult{Account: acct, Tokens: tokens}, nil
}

// Refresh rotates a refresh token: the presented token's session is
// deactivated and a replacement session is created for the new pair. The old
// token can never be used again, even before its expiry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	accountID, err := s.tokens.Validate(refreshToken, TokenRefresh)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.FindActiveByToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	tokens, err := s.tokens.IssuePair(acct.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing tokens: %w", err)
	}

	next := &session.Session{
		AccountID: acct.ID,
		Token:     tokens.RefreshToken,
		ExpiresAt: time.Now().UTC().Add(s.tokens.RefreshTTL()),
		IPAddress: sess.IPAddress,
		Active:    true,
	}
	if err := s.sessions.Rotate(ctx, refreshToken, next); err != nil {
		return nil, fmt.Errorf("rotating session: %w", err)
	}

	slog.Info("tokens refreshed", "accountId", acct.ID)

	return tokens, nil
}

// Logout deactivates the session for the given refresh token. It is
// idempotent: an unknown or already-inactive token is not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	deactivated, err := s.sessions.Deactivate(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("deactivating session: %w", err)
	}
	if deactivated {
		slog.Info("session logged out")
	}
	return nil
}

// Identify resolves an access token to its account. Used by the auth
// middleware as the precondition for every protected endpoint.
func (s *Service) Identify(ctx context.Context, accessToken string) (*account.Account, error) {
	accountID, err := s.tokens.Validate(accessToken, TokenAccess)
	if err != nil {
		return nil, err
	}

	return s.accounts.GetByID(ctx, accountID)
}

// ChangePassword verifies the current password and replaces the stored hash.
func (s *Service) ChangePassword(ctx context.Context, acct *account.Account, currentPassword, newPassword string) error {
	if acct.PasswordHash == nil || !s.VerifyPassword(currentPassword, *acct.PasswordHash) {
		slog.Warn("password change rejected", "accountId", acct.ID)
		return ErrIncorrectPassword
	}

	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.accounts.UpdatePasswordHash(ctx, acct.ID, hash); err != nil {
		return err
	}
	acct.PasswordHash = &hash

	slog.Info("password changed", "accountId", acct.ID)

	return nil
}
