// Package token issues and verifies signed identity tokens.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/eventure/eventure/internal/model"
)

// Claims represents the identity claims embedded in a token. The subject
// carries the user id; name, email and role ride alongside so callers need
// no session store lookup.
type Claims struct {
	jwt.RegisteredClaims
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

// Manager signs and verifies identity tokens with a symmetric HMAC secret.
// The issuing and verifying sides must be constructed with the same secret.
type Manager struct {
	secret string
}

// NewManager creates a token manager with the provided signing secret.
func NewManager(secret string) *Manager {
	return &Manager{secret: secret}
}

// Issue signs a token embedding the given identity. Tokens carry no expiry;
// they remain valid for as long as the signature checks out.
func (m *Manager) Issue(identity model.Identity) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  identity.ID.String(),
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		Name:  identity.Name,
		Email: identity.Email,
		Role:  identity.Role,
	})

	signed, err := t.SignedString([]byte(m.secret))
	if err != nil {
		return "", model.WrapError(model.KindAuthProvider, "failed to sign identity token", err)
	}
	return signed, nil
}

// Parse verifies the token's signature and structure and returns the
// embedded identity. Verification is pure: no state is consulted beyond
// the signing secret.
func (m *Manager) Parse(tokenString string) (model.Identity, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, model.NewError(model.KindUnauthenticated, "unexpected token signing method")
		}
		return []byte(m.secret), nil
	})
	if err != nil {
		return model.Identity{}, model.WrapError(model.KindUnauthenticated, "invalid identity token", err)
	}
	if !t.Valid {
		return model.Identity{}, model.NewError(model.KindUnauthenticated, "invalid identity token")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.Identity{}, model.WrapError(model.KindUnauthenticated, "malformed token subject", err)
	}

	return model.Identity{
		ID:    id,
		Name:  claims.Name,
		Email: claims.Email,
		Role:  claims.Role,
	}, nil
}
