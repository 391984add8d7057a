// Package auth verifies the bearer tokens that guard the import endpoint.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/paramirez/deckzter-seed/pkg/middleware"
)

// RoleAdmin may trigger imports.
const RoleAdmin = "admin"

// Claims are the JWT claims accepted by Verifier.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a verifier. A non-empty issuer must match the
// token's iss claim.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Validate parses tokenString and returns the caller's claims. Expired,
// not-yet-valid and wrongly signed tokens are rejected.
func (v *Verifier) Validate(tokenString string) (*middleware.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	subject, err := claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("read subject: %w", err)
	}

	return &middleware.Claims{Subject: subject, Role: claims.Role}, nil
}
