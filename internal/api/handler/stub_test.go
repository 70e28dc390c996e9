package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/bizguardian/manager/internal/core/domain"
	"github.com/bizguardian/manager/internal/core/ports"
)

type stubIdentity struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.Profile, error)
	authFn     func(ctx context.Context, identity, password string) (*domain.Session, error)
	resolveFn  func(ctx context.Context, token string) (*domain.Session, error)
	revokeFn   func(ctx context.Context, s domain.Session) error
	assignFn   func(ctx context.Context, id string, shop domain.Shop) (*domain.Profile, error)
	deleteFn   func(ctx context.Context, id string) error
	listFn     func(ctx context.Context) ([]domain.Profile, error)
	overviewFn func(ctx context.Context) (*domain.Overview, error)
}

func (s *stubIdentity) Register(ctx context.Context, in ports.RegisterInput) (*domain.Profile, error) {
	return s.registerFn(ctx, in)
}

func (s *stubIdentity) Authenticate(ctx context.Context, identity, password string) (*domain.Session, error) {
	return s.authFn(ctx, identity, password)
}

func (s *stubIdentity) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	return s.resolveFn(ctx, token)
}

func (s *stubIdentity) Revoke(ctx context.Context, sess domain.Session) error {
	return s.revokeFn(ctx, sess)
}

func (s *stubIdentity) AssignEmployeeToShop(ctx context.Context, id string, shop domain.Shop) (*domain.Profile, error) {
	return s.assignFn(ctx, id, shop)
}

func (s *stubIdentity) DeleteUser(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

func (s *stubIdentity) ListUsers(ctx context.Context) ([]domain.Profile, error) {
	return s.listFn(ctx)
}

func (s *stubIdentity) Overview(ctx context.Context) (*domain.Overview, error) {
	return s.overviewFn(ctx)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}
