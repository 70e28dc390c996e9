package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/bizguardian/manager/internal/core/domain"
	"github.com/bizguardian/manager/internal/core/ports"
)

const (
	minPasswordLength = 6
	// bcrypt ignores everything past 72 bytes; refuse instead of silently truncating.
	maxPasswordLength = 72
)

// IdentityService implements registration, login and shop assignment against
// the backend store.
type IdentityService struct {
	repo     ports.IdentityRepository
	registry ports.SessionRegistry
	tokens   ports.TokenIssuer
	queue    ports.VerificationQueue
	log      zerolog.Logger

	now   func() time.Time
	newID func() string
}

// NewIdentityService wires the service. queue may be nil, in which case no
// verification is requested after registration.
func NewIdentityService(
	repo ports.IdentityRepository,
	registry ports.SessionRegistry,
	tokens ports.TokenIssuer,
	queue ports.VerificationQueue,
	log zerolog.Logger,
) *IdentityService {
	return &IdentityService{
		repo:     repo,
		registry: registry,
		tokens:   tokens,
		queue:    queue,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Register creates an account and its profile. New profiles never carry a shop.
func (s *IdentityService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Profile, error) {
	fullName := strings.TrimSpace(in.FullName)
	identity := domain.NormalizeIdentity(in.Identity)
	if fullName == "" || identity == "" {
		return nil, fmt.Errorf("register: %w: full name and identity are required", domain.ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLength || len(in.Password) > maxPasswordLength {
		return nil, fmt.Errorf("register: %w: password must be %d-%d characters", domain.ErrInvalidInput, minPasswordLength, maxPasswordLength)
	}
	if !in.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	_, err := s.repo.FindAccountByIdentity(ctx, identity)
	switch {
	case err == nil:
		return nil, domain.ErrDuplicateIdentity
	case !errors.Is(err, domain.ErrProfileNotFound):
		return nil, domain.Unavailable("register: lookup identity", err)
	}

	// Early refusal; the store enforces the cap again on Create.
	if in.Role == domain.RoleAdmin {
		admins, err := s.repo.CountByRole(ctx, domain.RoleAdmin)
		if err != nil {
			return nil, domain.Unavailable("register: count admins", err)
		}
		if admins >= domain.MaxAdmins {
			s.log.Info().Str("identity", identity).Int64("admins", admins).Msg("admin registration refused")
			return nil, domain.ErrAdminQuotaExceeded
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	id := s.newID()
	now := s.now().UTC()
	account := domain.Account{
		ID:           id,
		Identity:     identity,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	profile := domain.Profile{
		ID:        id,
		FullName:  fullName,
		Identity:  identity,
		Role:      in.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, account, profile); err != nil {
		if errors.Is(err, domain.ErrAdminQuotaExceeded) {
			s.log.Info().Str("identity", identity).Msg("admin registration refused")
		}
		return nil, domain.Unavailable("register: create", err)
	}

	s.log.Info().Str("profile_id", id).Str("role", string(in.Role)).Msg("profile registered")

	if s.queue != nil {
		req := domain.VerificationRequest{
			ProfileID:   id,
			Identity:    identity,
			FullName:    fullName,
			RequestedAt: now,
		}
		if !s.queue.Enqueue(req) {
			s.log.Warn().Str("profile_id", id).Msg("verification request dropped")
		}
	}

	return &profile, nil
}

// Authenticate verifies credentials and establishes a session. Employees
// without a shop are refused after the password check and before any token
// is issued, so a refused login leaves nothing behind on the backend.
func (s *IdentityService) Authenticate(ctx context.Context, identity, password string) (*domain.Session, error) {
	identity = domain.NormalizeIdentity(identity)
	if identity == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	account, err := s.repo.FindAccountByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, domain.Unavailable("authenticate: lookup identity", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	profile, err := s.repo.FindProfile(ctx, account.ID)
	if err != nil {
		return nil, domain.Unavailable("authenticate: load profile", err)
	}

	if profile.PendingAssignment() {
		s.log.Info().Str("profile_id", profile.ID).Msg("login refused: assignment pending")
		return nil, domain.ErrAssignmentPending
	}

	return s.establish(ctx, *profile)
}

func (s *IdentityService) establish(ctx context.Context, profile domain.Profile) (*domain.Session, error) {
	token, claims, err := s.tokens.Issue(profile)
	if err != nil {
		return nil, fmt.Errorf("authenticate: issue token: %w", err)
	}

	if err := s.registry.Register(ctx, claims.TokenID, profile.ID, s.tokens.TTL()); err != nil {
		return nil, domain.Unavailable("authenticate: register session", err)
	}

	s.log.Info().Str("profile_id", profile.ID).Str("token_id", claims.TokenID).Msg("session established")

	return &domain.Session{
		Token:     token,
		TokenID:   claims.TokenID,
		Profile:   profile,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// Resolve validates a token against the signature, the session registry and
// the current profile. The shop assignment is not re-checked here.
func (s *IdentityService) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w: %v", domain.ErrNotAuthenticated, err)
	}

	active, err := s.registry.IsActive(ctx, claims.TokenID)
	if err != nil {
		return nil, domain.Unavailable("resolve: check session", err)
	}
	if !active {
		return nil, domain.ErrNotAuthenticated
	}

	profile, err := s.repo.FindProfile(ctx, claims.Subject)
	if err != nil {
		return nil, domain.Unavailable("resolve: load profile", err)
	}

	return &domain.Session{
		Token:     token,
		TokenID:   claims.TokenID,
		Profile:   *profile,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// Revoke drops the session from the registry.
func (s *IdentityService) Revoke(ctx context.Context, session domain.Session) error {
	if session.TokenID == "" {
		return nil
	}
	if err := s.registry.Revoke(ctx, session.TokenID); err != nil {
		return domain.Unavailable("revoke", err)
	}
	s.log.Info().Str("profile_id", session.Profile.ID).Str("token_id", session.TokenID).Msg("session revoked")
	return nil
}

// AssignEmployeeToShop sets the shop of an employee. Caller authorisation is
// enforced by the transport layer. Re-assigning the current shop is a no-op.
func (s *IdentityService) AssignEmployeeToShop(ctx context.Context, employeeID string, shop domain.Shop) (*domain.Profile, error) {
	if !shop.Valid() {
		return nil, domain.ErrInvalidShop
	}

	profile, err := s.repo.FindProfile(ctx, employeeID)
	if err != nil {
		return nil, domain.Unavailable("assign: load profile", err)
	}
	if profile.Role != domain.RoleEmployee {
		return nil, fmt.Errorf("assign: %w: only employees can be assigned to a shop", domain.ErrInvalidRole)
	}
	if profile.AssignedShop == shop {
		return profile, nil
	}

	now := s.now().UTC()
	if err := s.repo.UpdateAssignment(ctx, employeeID, shop, now); err != nil {
		return nil, domain.Unavailable("assign: update", err)
	}
	profile.AssignedShop = shop
	profile.UpdatedAt = now

	s.log.Info().Str("profile_id", employeeID).Str("shop", string(shop)).Msg("employee assigned")
	return profile, nil
}

// DeleteUser removes the profile and account, then revokes the user's tokens
// on a best-effort basis. A token that survives revocation fails at the next
// Resolve because its profile is gone.
func (s *IdentityService) DeleteUser(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrProfileNotFound
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return domain.Unavailable("delete user", err)
	}

	if err := s.registry.RevokeUser(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("profile_id", userID).Msg("sessions of deleted user not revoked")
	}

	s.log.Info().Str("profile_id", userID).Msg("user deleted")
	return nil
}

// ListUsers returns every profile in insertion order.
func (s *IdentityService) ListUsers(ctx context.Context) ([]domain.Profile, error) {
	profiles, err := s.repo.ListProfiles(ctx, ports.ProfileFilter{})
	if err != nil {
		return nil, domain.Unavailable("list users", err)
	}
	return profiles, nil
}

// Overview returns the admin dashboard counters.
func (s *IdentityService) Overview(ctx context.Context) (*domain.Overview, error) {
	profiles, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	ov := domain.BuildOverview(profiles)
	return &ov, nil
}
