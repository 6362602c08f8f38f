package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const devSecret = "dev-secret"

var (
	errMissingSecret = errors.New("jwt secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// Claims represents the identity contained in a JWT.
type Claims struct {
	Role       Role   `json:"role"`
	EmployeeID string `json:"employeeId,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer builds an Issuer. An empty secret is only tolerated outside production.
func NewIssuer(secret string, ttl time.Duration, production bool) (*Issuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		if production {
			return nil, fmt.Errorf("%w: JWT_SECRET required in production", errMissingSecret)
		}
		secret = devSecret
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Sign issues a token for the given principal.
func (i *Issuer) Sign(p Principal) (string, error) {
	if p.UserID == "" {
		return "", errors.New("sub is required")
	}
	now := i.now().UTC()
	claims := Claims{
		Role:       p.Role,
		EmployeeID: p.EmployeeID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify parses a token and returns the principal it carries.
func (i *Issuer) Verify(token string) (Principal, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return Principal{}, ErrInvalidToken
	}
	return Principal{UserID: claims.Subject, Role: claims.Role, EmployeeID: claims.EmployeeID}, nil
}

// Authenticate verifies token without consulting the user directory.
func (i *Issuer) Authenticate(_ context.Context, token string) (Principal, error) {
	return i.Verify(token)
}
