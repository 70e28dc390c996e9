package ports

import (
	"context"

	"github.com/bizguardian/manager/internal/core/domain"
)

// RegisterInput carries the data needed to create an account and profile.
type RegisterInput struct {
	FullName string
	Identity string
	Password string
	Role     domain.Role
}

// IdentityService defines the identity and assignment use cases.
type IdentityService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.Profile, error)
	Authenticate(ctx context.Context, identity, password string) (*domain.Session, error)
	// Resolve turns a previously issued token back into a live Session.
	Resolve(ctx context.Context, token string) (*domain.Session, error)
	// Revoke tears down the backend side of a session. Callers treat it as best-effort.
	Revoke(ctx context.Context, session domain.Session) error
	AssignEmployeeToShop(ctx context.Context, employeeID string, shop domain.Shop) (*domain.Profile, error)
	DeleteUser(ctx context.Context, userID string) error
	ListUsers(ctx context.Context) ([]domain.Profile, error)
	Overview(ctx context.Context) (*domain.Overview, error)
}
