// Package token issues and verifies HS256 session tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bizguardian/manager/internal/core/domain"
	"github.com/bizguardian/manager/internal/core/ports"
)

const defaultTTL = 24 * time.Hour

var ErrEmptySecret = errors.New("token: signing secret is empty")

// claims is the JWT payload. Role and shop are informational; the profile is
// always reloaded from the store when a token is resolved.
type claims struct {
	Role string `json:"role"`
	Shop string `json:"shop,omitempty"`
	jwt.RegisteredClaims
}

// JWTIssuer implements ports.TokenIssuer.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTIssuer(secret string, ttl time.Duration) (*JWTIssuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &JWTIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (j *JWTIssuer) TTL() time.Duration { return j.ttl }

// Issue signs a token for profile with a fresh token id.
func (j *JWTIssuer) Issue(profile domain.Profile) (string, ports.TokenClaims, error) {
	now := j.now().UTC().Truncate(time.Second)
	exp := now.Add(j.ttl)
	id := uuid.NewString()

	c := claims{
		Role: string(profile.Role),
		Shop: string(profile.AssignedShop),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   profile.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(j.secret)
	if err != nil {
		return "", ports.TokenClaims{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, ports.TokenClaims{
		TokenID:   id,
		Subject:   profile.ID,
		Role:      profile.Role,
		Shop:      profile.AssignedShop,
		IssuedAt:  now,
		ExpiresAt: exp,
	}, nil
}

// Parse verifies the signature and expiry of raw and returns its claims.
func (j *JWTIssuer) Parse(raw string) (ports.TokenClaims, error) {
	var c claims
	tkn, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return j.secret, nil
	}, jwt.WithTimeFunc(j.now), jwt.WithExpirationRequired())
	if err != nil {
		return ports.TokenClaims{}, fmt.Errorf("parse token: %w", err)
	}
	if !tkn.Valid || c.ID == "" || c.Subject == "" {
		return ports.TokenClaims{}, errors.New("parse token: incomplete claims")
	}

	out := ports.TokenClaims{
		TokenID: c.ID,
		Subject: c.Subject,
		Role:    domain.Role(c.Role),
		Shop:    domain.Shop(c.Shop),
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time.UTC()
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return out, nil
}
