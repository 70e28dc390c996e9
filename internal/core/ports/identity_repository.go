package ports

import (
	"context"
	"time"

	"github.com/bizguardian/manager/internal/core/domain"
)

// ProfileFilter narrows ListProfiles. Zero value lists everything.
type ProfileFilter struct {
	Role domain.Role // empty = any role
}

// IdentityRepository is the backend store for accounts and profiles.
// Missing rows are reported as domain.ErrProfileNotFound and identity
// collisions as domain.ErrDuplicateIdentity; everything else is a raw driver error.
type IdentityRepository interface {
	// Create persists the account and its profile atomically. An admin
	// profile is refused with domain.ErrAdminQuotaExceeded when domain.MaxAdmins
	// admins already exist; that check is part of the same atomic write.
	Create(ctx context.Context, account domain.Account, profile domain.Profile) error
	FindAccountByIdentity(ctx context.Context, identity string) (*domain.Account, error)
	FindProfile(ctx context.Context, id string) (*domain.Profile, error)
	CountByRole(ctx context.Context, role domain.Role) (int64, error)
	// ListProfiles returns profiles in insertion order.
	ListProfiles(ctx context.Context, filter ProfileFilter) ([]domain.Profile, error)
	UpdateAssignment(ctx context.Context, id string, shop domain.Shop, updatedAt time.Time) error
	// Delete removes the profile and its account.
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
