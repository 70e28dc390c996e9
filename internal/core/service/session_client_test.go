package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizguardian/manager/internal/core/domain"
	"github.com/bizguardian/manager/internal/core/ports"
)

type memMarker struct {
	mu      sync.Mutex
	m       *ports.Marker
	loadErr error
	saves   int
}

func (s *memMarker) Load(context.Context) (*ports.Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.m == nil {
		return nil, nil
	}
	out := *s.m
	return &out, nil
}

func (s *memMarker) Save(_ context.Context, m ports.Marker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = &m
	s.saves++
	return nil
}

func (s *memMarker) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = nil
	s.loadErr = nil
	return nil
}

func (s *memMarker) token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		return ""
	}
	return s.m.Token
}

// gatedIdentity holds Authenticate until release is closed.
type gatedIdentity struct {
	ports.IdentityService
	entered chan struct{}
	release chan struct{}
}

func (g *gatedIdentity) Authenticate(ctx context.Context, identity, password string) (*domain.Session, error) {
	close(g.entered)
	<-g.release
	return g.IdentityService.Authenticate(ctx, identity, password)
}

func newClientFixture(t *testing.T) (*fixture, *memMarker, *SessionClient) {
	t.Helper()
	f := newFixture()
	marker := &memMarker{}
	return f, marker, NewSessionClient(f.svc, marker, zerolog.Nop())
}

func seedStaff(t *testing.T, f *fixture) (admin, employee *domain.Profile) {
	t.Helper()
	admin = f.mustRegister("A1", "a1@example.com", domain.RoleAdmin)
	employee = f.mustRegister("E1", "e1@example.com", domain.RoleEmployee)
	return admin, employee
}

func TestSessionClient_AuthenticatePersistsAndRestores(t *testing.T) {
	f, marker, client := newClientFixture(t)
	seedStaff(t, f)
	ctx := context.Background()

	sess, err := client.Authenticate(ctx, "a1@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateAuthenticated, client.Snapshot().State)
	assert.Equal(t, sess.Token, marker.token())

	// a new process picks the marker up
	next := NewSessionClient(f.svc, marker, zerolog.Nop())
	restored, err := next.RestoreSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, sess.Profile.ID, restored.Profile.ID)
	assert.True(t, next.Snapshot().IsAuthenticated)
}

func TestSessionClient_RestoreWithoutMarker(t *testing.T) {
	_, _, client := newClientFixture(t)

	sess, err := client.RestoreSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Equal(t, domain.StateUnauthenticated, client.Snapshot().State)
}

func TestSessionClient_LogoutThenRestoreFindsNothing(t *testing.T) {
	f, marker, client := newClientFixture(t)
	seedStaff(t, f)
	ctx := context.Background()

	_, err := client.Authenticate(ctx, "a1@example.com", "secret1")
	require.NoError(t, err)

	client.Logout(ctx)
	assert.Equal(t, domain.StateLoggedOut, client.Snapshot().State)
	assert.Nil(t, client.Session())
	assert.Empty(t, marker.token())
	assert.Zero(t, f.registry.count())

	sess, err := client.RestoreSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSessionClient_LogoutSucceedsWhenRevokeFails(t *testing.T) {
	f, marker, client := newClientFixture(t)
	seedStaff(t, f)
	ctx := context.Background()

	_, err := client.Authenticate(ctx, "a1@example.com", "secret1")
	require.NoError(t, err)

	f.registry.revokeErr = errBackendDown
	client.Logout(ctx)

	assert.Equal(t, domain.StateLoggedOut, client.Snapshot().State)
	assert.Empty(t, marker.token())
}

func TestSessionClient_RejectedLoginKeepsNoSession(t *testing.T) {
	f, marker, client := newClientFixture(t)
	seedStaff(t, f)

	_, err := client.Authenticate(context.Background(), "e1@example.com", "secret1")
	require.ErrorIs(t, err, domain.ErrAssignmentPending)

	snap := client.Snapshot()
	assert.Equal(t, domain.StateRejected, snap.State)
	assert.ErrorIs(t, snap.Reason, domain.ErrAssignmentPending)
	assert.False(t, snap.IsAuthenticated)
	assert.Nil(t, snap.Profile)
	assert.Nil(t, marker.m)
	assert.Zero(t, f.registry.count())
}

func TestSessionClient_RejectedLoginDiscardsEarlierMarker(t *testing.T) {
	f, marker, first := newClientFixture(t)
	seedStaff(t, f)
	ctx := context.Background()

	_, err := first.Authenticate(ctx, "a1@example.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, marker.token())

	// a fresh process that never restored tries another identity
	next := NewSessionClient(f.svc, marker, zerolog.Nop())
	_, err = next.Authenticate(ctx, "e1@example.com", "secret1")
	require.ErrorIs(t, err, domain.ErrAssignmentPending)
	assert.Nil(t, marker.m)

	sess, err := next.RestoreSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)

	snap := next.Snapshot()
	assert.Equal(t, domain.StateRejected, snap.State)
	assert.Nil(t, snap.Profile)
}

func TestSessionClient_AssignRefreshesOwnSession(t *testing.T) {
	f, _, admin := newClientFixture(t)
	_, e1 := seedStaff(t, f)
	ctx := context.Background()

	_, err := f.svc.AssignEmployeeToShop(ctx, e1.ID, domain.ShopBoutique)
	require.NoError(t, err)

	employee := NewSessionClient(f.svc, &memMarker{}, zerolog.Nop())
	_, err = employee.Authenticate(ctx, "e1@example.com", "secret1")
	require.NoError(t, err)

	_, err = admin.Authenticate(ctx, "a1@example.com", "secret1")
	require.NoError(t, err)

	// another client's change is only seen by the employee after a restore
	_, err = admin.AssignEmployeeToShop(ctx, e1.ID, domain.ShopHouseDecor)
	require.NoError(t, err)
	assert.Equal(t, domain.ShopBoutique, employee.Session().Profile.AssignedShop)

	// but a change made through the employee's own client applies at once
	updated, err := employee.AssignEmployeeToShop(ctx, e1.ID, domain.ShopHouseDecor)
	require.NoError(t, err)
	assert.Equal(t, domain.ShopHouseDecor, updated.AssignedShop)
	assert.Equal(t, domain.ShopHouseDecor, employee.Session().Profile.AssignedShop)
	assert.Equal(t, domain.ShopHouseDecor, employee.Snapshot().Profile.AssignedShop)
}

func TestSessionClient_UserCache(t *testing.T) {
	f, marker, client := newClientFixture(t)
	_, e1 := seedStaff(t, f)
	ctx := context.Background()

	_, err := client.Authenticate(ctx, "a1@example.com", "secret1")
	require.NoError(t, err)

	assert.True(t, client.Users().Stale, "empty cache is stale")

	list, err := client.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, list.Stale)
	require.Len(t, list.Profiles, 2)
	require.Len(t, marker.m.Users, 2)

	_, err = client.AssignEmployeeToShop(ctx, e1.ID, domain.ShopHouseDecor)
	require.NoError(t, err)
	got := client.Users()
	assert.False(t, got.Stale)
	assert.Equal(t, domain.ShopHouseDecor, got.Profiles[1].AssignedShop)

	_, err = client.Register(ctx, ports.RegisterInput{FullName: "E2", Identity: "e2@example.com", Password: "secret1", Role: domain.RoleEmployee})
	require.NoError(t, err)
	got = client.Users()
	assert.True(t, got.Stale)
	assert.Len(t, got.Profiles, 2)

	require.NoError(t, client.DeleteUser(ctx, e1.ID))
	got = client.Users()
	require.Len(t, got.Profiles, 1)
	assert.Equal(t, "a1@example.com", got.Profiles[0].Identity)

	fresh, err := client.Reload(ctx)
	require.NoError(t, err)
	want := []string{"a1@example.com", "e2@example.com"}
	var ids []string
	for _, p := range fresh.Profiles {
		ids = append(ids, p.Identity)
	}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("reloaded list mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionClient_DeleteMissingUserEvictsCache(t *testing.T) {
	f, _, client := newClientFixture(t)
	_, e1 := seedStaff(t, f)
	ctx := context.Background()

	_, err := client.Authenticate(ctx, "a1@example.com", "secret1")
	require.NoError(t, err)
	_, err = client.Reload(ctx)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteUser(ctx, e1.ID))

	err = client.DeleteUser(ctx, e1.ID)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	assert.Len(t, client.Users().Profiles, 1)
}

func TestSessionClient_DeleteSelfLogsOut(t *testing.T) {
	f, marker, client := newClientFixture(t)
	admin, _ := seedStaff(t, f)
	ctx := context.Background()

	_, err := client.Authenticate(ctx, "a1@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, client.DeleteUser(ctx, admin.ID))
	assert.Equal(t, domain.StateLoggedOut, client.Snapshot().State)
	assert.Nil(t, client.Session())
	assert.Nil(t, marker.m)
}

func TestSessionClient_CorruptMarkerIsCleared(t *testing.T) {
	_, marker, client := newClientFixture(t)
	marker.m = &ports.Marker{Token: "x"}
	marker.loadErr = errors.New("yaml: line 1: did not find expected key")

	sess, err := client.RestoreSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Nil(t, marker.m)
}

func TestSessionClient_InvalidTokenIsCleared(t *testing.T) {
	_, marker, client := newClientFixture(t)
	marker.m = &ports.Marker{Token: "tok-unknown"}

	sess, err := client.RestoreSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Nil(t, marker.m)
}

func TestSessionClient_RestoreBackendDownKeepsMarker(t *testing.T) {
	f, marker, client := newClientFixture(t)
	seedStaff(t, f)
	ctx := context.Background()

	sess, err := client.Authenticate(ctx, "a1@example.com", "secret1")
	require.NoError(t, err)

	next := NewSessionClient(f.svc, marker, zerolog.Nop())
	f.registry.err = errBackendDown

	_, err = next.RestoreSession(ctx)
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)
	assert.Equal(t, sess.Token, marker.token())
	assert.Equal(t, domain.StateUnauthenticated, next.Snapshot().State)
}

func TestSessionClient_LogoutDiscardsInFlightLogin(t *testing.T) {
	f := newFixture()
	seedStaff(t, f)
	gate := &gatedIdentity{IdentityService: f.svc, entered: make(chan struct{}), release: make(chan struct{})}
	marker := &memMarker{}
	client := NewSessionClient(gate, marker, zerolog.Nop())
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() {
		_, err := client.Authenticate(ctx, "a1@example.com", "secret1")
		errc <- err
	}()

	<-gate.entered
	assert.Equal(t, domain.StateAuthenticating, client.Snapshot().State)
	client.Logout(ctx)
	close(gate.release)

	require.ErrorIs(t, <-errc, domain.ErrSessionSuperseded)
	assert.Equal(t, domain.StateLoggedOut, client.Snapshot().State)
	assert.Nil(t, client.Session())
	assert.Nil(t, marker.m)
	assert.Zero(t, f.registry.count(), "superseded backend session must be revoked")
}

func TestSessionClient_Subscribe(t *testing.T) {
	f, _, client := newClientFixture(t)
	seedStaff(t, f)
	ctx := context.Background()

	ch, cancel := client.Subscribe()
	defer cancel()

	first := <-ch
	assert.Equal(t, domain.StateUnauthenticated, first.State)

	_, err := client.Authenticate(ctx, "a1@example.com", "secret1")
	require.NoError(t, err)

	// only the latest value is retained
	latest := <-ch
	assert.Equal(t, domain.StateAuthenticated, latest.State)
	assert.True(t, latest.IsAuthenticated)
	require.NotNil(t, latest.Profile)
	assert.Equal(t, "a1@example.com", latest.Profile.Identity)

	cancel()
	_, open := <-ch
	assert.False(t, open)
	cancel()
}

func TestSessionClient_ReauthenticateLogsOutFirst(t *testing.T) {
	f, _, client := newClientFixture(t)
	seedStaff(t, f)
	f.mustRegister("A2", "a2@example.com", domain.RoleAdmin)
	ctx := context.Background()

	first, err := client.Authenticate(ctx, "a1@example.com", "secret1")
	require.NoError(t, err)
	second, err := client.Authenticate(ctx, "a2@example.com", "secret1")
	require.NoError(t, err)

	assert.Equal(t, "a2@example.com", client.Session().Profile.Identity)
	_, err = f.svc.Resolve(ctx, first.Token)
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	_, err = f.svc.Resolve(ctx, second.Token)
	assert.NoError(t, err)
	assert.Equal(t, 1, f.registry.count())
}
