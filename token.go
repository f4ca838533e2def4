package sge

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenService mints and validates the access tokens bound to a
// Session. Callers treat the token as opaque; HS256 signing is an
// implementation detail of the authority and the offline fallback.
type TokenService struct {
	signingKey []byte
	issuer     string
	logger     Logger
}

// SessionClaims are the claims carried by an access token.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID  string      `json:"uid,omitempty"`
	Role Role        `json:"role,omitempty"`
	Mode SessionMode `json:"mode,omitempty"`
}

// NewTokenService creates a TokenService with the given signing key.
func NewTokenService(signingKey []byte, issuer string) *TokenService {
	return &TokenService{
		signingKey: signingKey,
		issuer:     issuer,
		logger:     defLogger{},
	}
}

func (ts *TokenService) WithLogger(logger Logger) *TokenService {
	if logger != nil {
		ts.logger = logger
	}
	return ts
}

// Generate mints a token for the identity. Tokens are deliberately
// unbounded in time: the design has no refresh protocol, logout is
// the only invalidation.
func (ts *TokenService) Generate(identity *Identity, mode SessionMode) (string, error) {
	if identity == nil {
		return "", goerrors.New("identity must not be nil", goerrors.CategoryInternal)
	}

	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   ts.issuer,
			Subject:  identity.ID.String(),
			IssuedAt: jwt.NewNumericDate(now),
			ID:       uuid.NewString(),
		},
		UID:  identity.ID.String(),
		Role: identity.Role,
		Mode: mode,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign access token")
	}
	return signed, nil
}

// Validate parses a token string and returns its claims.
func (ts *TokenService) Validate(tokenString string) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "unable to validate access token")
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, goerrors.New("unable to decode token claims", goerrors.CategoryAuth)
	}
	return claims, nil
}
