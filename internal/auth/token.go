package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned when a token fails signature or structural checks.
var ErrInvalidToken = errors.New("invalid token")

// ErrExpiredToken is returned when a token is past its expiry.
var ErrExpiredToken = errors.New("token has expired")

// ErrWrongTokenType is returned when a token's type claim does not match the
// expected kind (e.g. an access token presented where a refresh token is required).
var ErrWrongTokenType = errors.New("invalid token type")

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

type tokenClaims struct {
	Kind TokenKind `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair bundles a freshly issued access and refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // access token lifetime in seconds
}

// TokenIssuer creates and validates HMAC-signed bearer tokens. Tokens carry
// only the subject account id, an expiry, and a type tag; revocation of
// refresh tokens happens through the session store, never here.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer creates a TokenIssuer signing with the given secret.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// RefreshTTL returns the configured refresh token lifetime.
func (i *TokenIssuer) RefreshTTL() time.Duration {
	return i.refreshTTL
}

// Issue signs a token of the given kind for the account.
func (i *TokenIssuer) Issue(accountID uuid.UUID, kind TokenKind) (string, error) {
	ttl := i.accessTTL
	if kind == TokenRefresh {
		ttl = i.refreshTTL
	}

	claims := &tokenClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			ExpiresAt: jwt.NewNumericDate(i.now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(i.now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// IssuePair signs an access and refresh token for the account.
func (i *TokenIssuer) IssuePair(accountID uuid.UUID) (*TokenPair, error) {
	access, err := i.Issue(accountID, TokenAccess)
	if err != nil {
		return nil, err
	}

	refresh, err := i.Issue(accountID, TokenRefresh)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(i.accessTTL.Seconds()),
	}, nil
}

// Validate verifies signature and expiry and checks the type claim, returning
// the subject account id. It returns a plain error value; mapping to transport
// status codes belongs to the HTTP boundary.
func (i *TokenIssuer) Validate(tokenString string, kind TokenKind) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrExpiredToken
		}
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	if claims.Kind != kind {
		return uuid.Nil, ErrWrongTokenType
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	return accountID, nil
}
