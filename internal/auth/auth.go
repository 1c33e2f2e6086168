// Package auth verifies bearer identities issued by the platform's auth service.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"service-dispatch/internal/apperr"
)

// Role is the kind of actor behind an identity.
type Role string

// Known roles.
const (
	RoleCourier  Role = "courier"
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Identity is the verified subject of a token.
type Identity struct {
	UserID string
	Role   Role
}

type claims struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier returns a Verifier for secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

// Verify parses token and returns its identity. Any failure is apperr.ErrUnauthorized.
func (v *Verifier) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return Identity{}, apperr.New(apperr.ErrUnauthorized, "missing token")
	}
	if len(v.secret) == 0 {
		return Identity{}, apperr.New(apperr.ErrUnauthorized, "token verification disabled")
	}

	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.now))
	if err != nil {
		return Identity{}, apperr.New(apperr.ErrUnauthorized, "invalid token")
	}
	if c.UserID == "" {
		return Identity{}, apperr.New(apperr.ErrUnauthorized, "user_id claim missing")
	}
	switch c.Role {
	case RoleCourier, RoleCustomer, RoleAdmin:
	default:
		return Identity{}, apperr.New(apperr.ErrUnauthorized, fmt.Sprintf("unknown role %q", c.Role))
	}
	return Identity{UserID: c.UserID, Role: c.Role}, nil
}

// Issue signs a token for id valid for ttl. Used by tooling and tests.
func (v *Verifier) Issue(id Identity, ttl time.Duration) (string, error) {
	now := v.now()
	c := claims{
		UserID: id.UserID,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
}

// SecretMatches compares a presented bearer secret with the configured one in constant time.
// An empty configured secret never matches.
func SecretMatches(header, secret string) bool {
	presented := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(header), "Bearer "))
	if secret == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) == 1
}

type ctxKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// ErrNoIdentity is returned when a handler requires an identity and none was attached.
var ErrNoIdentity = errors.New("no identity in context")
