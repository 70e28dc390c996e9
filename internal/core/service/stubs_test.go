package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bizguardian/manager/internal/core/domain"
	"github.com/bizguardian/manager/internal/core/ports"
)

var errBackendDown = errors.New("connection refused")

type stubRepo struct {
	mu       sync.Mutex
	order    []string
	accounts map[string]domain.Account
	profiles map[string]domain.Profile

	err     error
	updates int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		accounts: make(map[string]domain.Account),
		profiles: make(map[string]domain.Profile),
	}
}

func (r *stubRepo) Create(_ context.Context, a domain.Account, p domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, existing := range r.accounts {
		if existing.Identity == a.Identity {
			return domain.ErrDuplicateIdentity
		}
	}
	if p.Role == domain.RoleAdmin {
		admins := 0
		for _, existing := range r.profiles {
			if existing.Role == domain.RoleAdmin {
				admins++
			}
		}
		if admins >= domain.MaxAdmins {
			return domain.ErrAdminQuotaExceeded
		}
	}
	r.accounts[a.ID] = a
	r.profiles[p.ID] = p
	r.order = append(r.order, p.ID)
	return nil
}

func (r *stubRepo) FindAccountByIdentity(_ context.Context, identity string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, a := range r.accounts {
		if a.Identity == identity {
			out := a
			return &out, nil
		}
	}
	return nil, domain.ErrProfileNotFound
}

func (r *stubRepo) FindProfile(_ context.Context, id string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &p, nil
}

func (r *stubRepo) CountByRole(_ context.Context, role domain.Role) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	var n int64
	for _, p := range r.profiles {
		if p.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *stubRepo) ListProfiles(_ context.Context, f ports.ProfileFilter) ([]domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]domain.Profile, 0, len(r.order))
	for _, id := range r.order {
		p := r.profiles[id]
		if f.Role != "" && p.Role != f.Role {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *stubRepo) UpdateAssignment(_ context.Context, id string, shop domain.Shop, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	p, ok := r.profiles[id]
	if !ok {
		return domain.ErrProfileNotFound
	}
	p.AssignedShop = shop
	p.UpdatedAt = at
	r.profiles[id] = p
	r.updates++
	return nil
}

func (r *stubRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.profiles[id]; !ok {
		return domain.ErrProfileNotFound
	}
	delete(r.profiles, id)
	delete(r.accounts, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *stubRepo) Ping(context.Context) error { return r.err }

func (r *stubRepo) setErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

type stubRegistry struct {
	mu        sync.Mutex
	active    map[string]string
	err       error
	revokeErr error
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{active: make(map[string]string)}
}

func (r *stubRegistry) Register(_ context.Context, tokenID, userID string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.active[tokenID] = userID
	return nil
}

func (r *stubRegistry) IsActive(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	_, ok := r.active[tokenID]
	return ok, nil
}

func (r *stubRegistry) Revoke(_ context.Context, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revokeErr != nil {
		return r.revokeErr
	}
	delete(r.active, tokenID)
	return nil
}

func (r *stubRegistry) RevokeUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revokeErr != nil {
		return r.revokeErr
	}
	for k, v := range r.active {
		if v == userID {
			delete(r.active, k)
		}
	}
	return nil
}

func (r *stubRegistry) Ping(context.Context) error { return r.err }

func (r *stubRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// stubTokens issues opaque "tok-N" tokens whose claims are kept in memory.
type stubTokens struct {
	mu     sync.Mutex
	seq    int
	issued map[string]ports.TokenClaims
}

func newStubTokens() *stubTokens {
	return &stubTokens{issued: make(map[string]ports.TokenClaims)}
}

func (t *stubTokens) Issue(p domain.Profile) (string, ports.TokenClaims, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	now := time.Now().UTC()
	c := ports.TokenClaims{
		TokenID:   fmt.Sprintf("jti-%d", t.seq),
		Subject:   p.ID,
		Role:      p.Role,
		Shop:      p.AssignedShop,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
	raw := fmt.Sprintf("tok-%d", t.seq)
	t.issued[raw] = c
	return raw, c, nil
}

func (t *stubTokens) Parse(raw string) (ports.TokenClaims, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.issued[raw]
	if !ok {
		return ports.TokenClaims{}, errors.New("unknown token")
	}
	return c, nil
}

func (t *stubTokens) TTL() time.Duration { return time.Hour }

type stubQueue struct {
	mu   sync.Mutex
	reqs []domain.VerificationRequest
	full bool
}

func (q *stubQueue) Enqueue(req domain.VerificationRequest) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.full {
		return false
	}
	q.reqs = append(q.reqs, req)
	return true
}

type fixture struct {
	repo     *stubRepo
	registry *stubRegistry
	tokens   *stubTokens
	queue    *stubQueue
	svc      *IdentityService
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newStubRepo(),
		registry: newStubRegistry(),
		tokens:   newStubTokens(),
		queue:    &stubQueue{},
	}
	f.svc = NewIdentityService(f.repo, f.registry, f.tokens, f.queue, zerolog.Nop())
	return f
}

func (f *fixture) mustRegister(name, identity string, role domain.Role) *domain.Profile {
	p, err := f.svc.Register(context.Background(), ports.RegisterInput{
		FullName: name,
		Identity: identity,
		Password: "secret1",
		Role:     role,
	})
	if err != nil {
		panic(fmt.Sprintf("register %s: %v", identity, err))
	}
	return p
}
