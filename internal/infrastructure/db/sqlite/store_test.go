package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizguardian/manager/internal/core/domain"
	"github.com/bizguardian/manager/internal/core/ports"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bizguard.db")
	store, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seed(t *testing.T, s *Store, id, identity string, role domain.Role, at time.Time) domain.Profile {
	t.Helper()
	p := domain.Profile{
		ID:        id,
		FullName:  "Name " + id,
		Identity:  identity,
		Role:      role,
		CreatedAt: at,
		UpdatedAt: at,
	}
	acc := domain.Account{ID: id, Identity: identity, PasswordHash: "hash-" + id, CreatedAt: at}
	require.NoError(t, s.Create(context.Background(), acc, p))
	return p
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bizguard.db")
	first, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer second.Close()

	var applied int
	require.NoError(t, second.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, 2, applied)
}

func TestCreateAndFind(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)
	want := seed(t, s, "p-1", "ana@example.com", domain.RoleEmployee, now)

	acc, err := s.FindAccountByIdentity(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "p-1", acc.ID)
	assert.Equal(t, "hash-p-1", acc.PasswordHash)

	got, err := s.FindProfile(ctx, "p-1")
	require.NoError(t, err)
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Fatalf("profile mismatch (-want +got):\n%s", diff)
	}

	_, err = s.FindProfile(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	_, err = s.FindAccountByIdentity(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestCreateDuplicateIdentity(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	now := time.Now().UTC()
	seed(t, s, "p-1", "ana@example.com", domain.RoleEmployee, now)

	err := s.Create(context.Background(),
		domain.Account{ID: "p-2", Identity: "ana@example.com", PasswordHash: "x", CreatedAt: now},
		domain.Profile{ID: "p-2", FullName: "Other", Identity: "ana@example.com", Role: domain.RoleAdmin, CreatedAt: now, UpdatedAt: now},
	)
	require.ErrorIs(t, err, domain.ErrDuplicateIdentity)

	// the failed insert left nothing behind
	n, err := s.CountByRole(context.Background(), domain.RoleAdmin)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateEnforcesAdminQuota(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	now := time.Now().UTC()
	for i := 1; i <= domain.MaxAdmins; i++ {
		seed(t, s, fmt.Sprintf("a-%d", i), fmt.Sprintf("a%d@example.com", i), domain.RoleAdmin, now)
	}

	err := s.Create(context.Background(),
		domain.Account{ID: "a-4", Identity: "a4@example.com", PasswordHash: "x", CreatedAt: now},
		domain.Profile{ID: "a-4", FullName: "Fourth", Identity: "a4@example.com", Role: domain.RoleAdmin, CreatedAt: now, UpdatedAt: now},
	)
	require.ErrorIs(t, err, domain.ErrAdminQuotaExceeded)

	// the account row was rolled back with the refused profile
	_, err = s.FindAccountByIdentity(context.Background(), "a4@example.com")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)

	// employees are not capped
	seed(t, s, "e-1", "e1@example.com", domain.RoleEmployee, now)
}

func TestCreateAdminQuotaConcurrent(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	now := time.Now().UTC()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("a-%d", i)
			identity := fmt.Sprintf("a%d@example.com", i)
			errs[i] = s.Create(context.Background(),
				domain.Account{ID: id, Identity: identity, PasswordHash: "x", CreatedAt: now},
				domain.Profile{ID: id, FullName: "Admin", Identity: identity, Role: domain.RoleAdmin, CreatedAt: now, UpdatedAt: now},
			)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrAdminQuotaExceeded):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, domain.MaxAdmins, created)

	n, err := s.CountByRole(context.Background(), domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(domain.MaxAdmins), n)
}

func TestListCountAndUpdate(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seed(t, s, "c", "c@example.com", domain.RoleAdmin, now)
	seed(t, s, "a", "a@example.com", domain.RoleEmployee, now)
	seed(t, s, "b", "b@example.com", domain.RoleEmployee, now)

	all, err := s.ListProfiles(ctx, ports.ProfileFilter{})
	require.NoError(t, err)
	var ids []string
	for _, p := range all {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids, "insertion order")

	employees, err := s.ListProfiles(ctx, ports.ProfileFilter{Role: domain.RoleEmployee})
	require.NoError(t, err)
	assert.Len(t, employees, 2)

	n, err := s.CountByRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	later := now.Add(time.Minute)
	require.NoError(t, s.UpdateAssignment(ctx, "a", domain.ShopBoutique, later))
	p, err := s.FindProfile(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.ShopBoutique, p.AssignedShop)
	assert.Equal(t, later.Truncate(time.Millisecond), p.UpdatedAt)

	assert.ErrorIs(t, s.UpdateAssignment(ctx, "zzz", domain.ShopBoutique, later), domain.ErrProfileNotFound)
}

func TestDelete(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx := context.Background()
	seed(t, s, "p-1", "ana@example.com", domain.RoleEmployee, time.Now().UTC())

	require.NoError(t, s.Delete(ctx, "p-1"))
	_, err := s.FindProfile(ctx, "p-1")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	_, err = s.FindAccountByIdentity(ctx, "ana@example.com")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)

	err = s.Delete(ctx, "p-1")
	assert.True(t, errors.Is(err, domain.ErrProfileNotFound), "got %v", err)

	// the identity is free again
	seed(t, s, "p-2", "ana@example.com", domain.RoleEmployee, time.Now().UTC())
}

func TestSessionRegistry(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	require.NoError(t, s.Register(ctx, "t-1", "u-1", time.Hour))
	require.NoError(t, s.Register(ctx, "t-2", "u-1", time.Hour))
	require.NoError(t, s.Register(ctx, "t-3", "u-2", time.Hour))

	active, err := s.IsActive(ctx, "t-1")
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, s.Revoke(ctx, "t-1"))
	active, err = s.IsActive(ctx, "t-1")
	require.NoError(t, err)
	assert.False(t, active)
	require.NoError(t, s.Revoke(ctx, "t-1"), "revoking twice is fine")

	require.NoError(t, s.RevokeUser(ctx, "u-1"))
	active, err = s.IsActive(ctx, "t-2")
	require.NoError(t, err)
	assert.False(t, active)

	active, err = s.IsActive(ctx, "t-3")
	require.NoError(t, err)
	assert.True(t, active)

	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	active, err = s.IsActive(ctx, "t-3")
	require.NoError(t, err)
	assert.False(t, active, "expired")
}
