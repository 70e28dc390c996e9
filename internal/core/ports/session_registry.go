package ports

import (
	"context"
	"time"

	"github.com/bizguardian/manager/internal/core/domain"
)

// SessionRegistry tracks issued tokens so they can be revoked before expiry.
type SessionRegistry interface {
	Register(ctx context.Context, tokenID, userID string, ttl time.Duration) error
	IsActive(ctx context.Context, tokenID string) (bool, error)
	Revoke(ctx context.Context, tokenID string) error
	// RevokeUser drops every registered token of userID.
	RevokeUser(ctx context.Context, userID string) error
	Ping(ctx context.Context) error
}

// TokenClaims is the decoded content of a session token.
type TokenClaims struct {
	TokenID   string
	Subject   string
	Role      domain.Role
	Shop      domain.Shop
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer mints and verifies signed session tokens.
type TokenIssuer interface {
	Issue(profile domain.Profile) (string, TokenClaims, error)
	Parse(token string) (TokenClaims, error)
	TTL() time.Duration
}
