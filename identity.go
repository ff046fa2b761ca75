package main

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UserInfo is what the identity provider resolves a credential to. ID keys
// the in-room player and must be unique per concurrent connection.
type UserInfo struct {
	ID       string
	Username string
}

// Identity validates the opaque credential presented on connect.
type Identity interface {
	Authenticate(credential string) (UserInfo, error)
}

// JWTIdentity validates HS256 tokens minted by the account service. The
// simulation core never mints tokens itself.
type JWTIdentity struct {
	secret []byte
}

// NewJWTIdentity creates a validator for the shared signing secret.
func NewJWTIdentity(secret []byte) *JWTIdentity {
	return &JWTIdentity{secret: secret}
}

// Authenticate parses and verifies a token, returning the stable user id
// and username from its claims.
func (a *JWTIdentity) Authenticate(credential string) (UserInfo, error) {
	if credential == "" {
		return UserInfo{}, fmt.Errorf("missing token")
	}
	token, err := jwt.Parse(credential, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return UserInfo{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return UserInfo{}, fmt.Errorf("invalid token")
	}
	id, ok := claims["sub"].(string)
	if !ok || id == "" {
		return UserInfo{}, fmt.Errorf("invalid token claims")
	}
	username, ok := claims["usr"].(string)
	if !ok || username == "" {
		return UserInfo{}, fmt.Errorf("invalid token claims")
	}

	return UserInfo{ID: id, Username: username}, nil
}

// GuestIdentity wraps another provider and admits credential-less
// connections as uniquely-named guests. Used in development setups.
type GuestIdentity struct {
	Next Identity
}

// Authenticate falls back to a fresh guest identity when the inner provider
// rejects the credential.
func (g *GuestIdentity) Authenticate(credential string) (UserInfo, error) {
	if g.Next != nil {
		if user, err := g.Next.Authenticate(credential); err == nil {
			return user, nil
		}
	}
	id := uuid.NewString()
	return UserInfo{ID: id, Username: "Guest_" + id[:6]}, nil
}
