package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bizguardian/manager/internal/core/domain"
	"github.com/bizguardian/manager/internal/core/ports"
)

// Snapshot is the read-only view of a SessionClient handed to consumers.
type Snapshot struct {
	State           domain.SessionState
	Profile         *domain.Profile
	IsAuthenticated bool
	Generation      uint64
	// Reason is the error that moved the client to StateRejected.
	Reason error
}

// SessionClient owns the session of one client process. It is created once,
// initialised with RestoreSession and torn down with Logout.
//
// Every authenticate call is tagged with the generation it started in. A
// result that comes back after the generation moved (logout, a newer login)
// is discarded and never becomes the current session.
//
// mu is never held across a backend call. persistMu serialises marker writes
// so that a late save cannot resurrect a marker a logout already cleared.
type SessionClient struct {
	identity ports.IdentityService
	marker   ports.MarkerStore
	log      zerolog.Logger
	now      func() time.Time

	persistMu sync.Mutex

	mu         sync.Mutex
	state      domain.SessionState
	generation uint64
	session    *domain.Session
	reason     error
	cache      profileCache
	subs       map[int]chan Snapshot
	nextSub    int
}

// NewSessionClient returns an unauthenticated client.
func NewSessionClient(identity ports.IdentityService, marker ports.MarkerStore, log zerolog.Logger) *SessionClient {
	return &SessionClient{
		identity: identity,
		marker:   marker,
		log:      log,
		now:      time.Now,
		state:    domain.StateUnauthenticated,
		subs:     make(map[int]chan Snapshot),
	}
}

// RestoreSession rebuilds the session from the persisted marker. A missing,
// unreadable or no longer valid marker yields (nil, nil) and is cleared. The
// only error returned is a backend fault, in which case the marker is kept so
// a later call can retry.
func (c *SessionClient) RestoreSession(ctx context.Context) (*domain.Session, error) {
	c.mu.Lock()
	switch c.state {
	case domain.StateAuthenticated:
		s := *c.session
		c.mu.Unlock()
		return &s, nil
	case domain.StateAuthenticating:
		c.mu.Unlock()
		return nil, nil
	}
	gen := c.generation
	c.mu.Unlock()

	m, err := c.marker.Load(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("discarding unreadable session marker")
		c.clearMarker(ctx)
		return nil, nil
	}
	if m == nil {
		return nil, nil
	}
	if m.Token == "" {
		c.mu.Lock()
		c.seedCacheLocked(m)
		c.mu.Unlock()
		return nil, nil
	}

	sess, err := c.identity.Resolve(ctx, m.Token)
	if err != nil {
		if errors.Is(err, domain.ErrBackendUnavailable) {
			return nil, err
		}
		c.log.Info().Err(err).Msg("stored session is no longer valid")
		c.clearMarker(ctx)
		return nil, nil
	}

	c.mu.Lock()
	if gen != c.generation || c.state == domain.StateAuthenticating || c.state == domain.StateAuthenticated {
		c.mu.Unlock()
		return nil, domain.ErrSessionSuperseded
	}
	c.session = sess
	c.reason = nil
	c.transitionLocked(domain.StateAuthenticated)
	c.seedCacheLocked(m)
	c.publishLocked()
	out := *sess
	c.mu.Unlock()

	return &out, nil
}

// Authenticate logs in. An already authenticated client is logged out first.
// On any failure no session is retained and the client is Rejected.
func (c *SessionClient) Authenticate(ctx context.Context, identity, password string) (*domain.Session, error) {
	c.mu.Lock()
	authenticated := c.state == domain.StateAuthenticated
	c.mu.Unlock()
	if authenticated {
		c.Logout(ctx)
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.session = nil
	c.reason = nil
	c.transitionLocked(domain.StateAuthenticating)
	c.publishLocked()
	c.mu.Unlock()

	sess, err := c.identity.Authenticate(ctx, identity, password)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		if sess != nil {
			if rerr := c.identity.Revoke(ctx, *sess); rerr != nil {
				c.log.Warn().Err(rerr).Msg("failed to revoke superseded session")
			}
		}
		return nil, domain.ErrSessionSuperseded
	}
	if err != nil {
		c.reason = err
		c.transitionLocked(domain.StateRejected)
		c.publishLocked()
		c.mu.Unlock()
		// a marker left by an earlier login must not resurrect that session
		c.discardMarker(ctx, gen)
		return nil, err
	}
	c.session = sess
	c.transitionLocked(domain.StateAuthenticated)
	c.publishLocked()
	out := *sess
	c.mu.Unlock()

	c.persist(ctx, gen)
	return &out, nil
}

// Logout clears the local session and marker and revokes the backend token
// on a best-effort basis. It always succeeds.
func (c *SessionClient) Logout(ctx context.Context) {
	c.mu.Lock()
	c.generation++
	sess := c.session
	c.session = nil
	c.cache.reset()
	if c.state.CanTransitionTo(domain.StateLoggedOut) {
		c.transitionLocked(domain.StateLoggedOut)
	}
	c.publishLocked()
	c.mu.Unlock()

	c.clearMarker(ctx)

	if sess != nil {
		if err := c.identity.Revoke(ctx, *sess); err != nil {
			c.log.Warn().Err(err).Str("profile_id", sess.Profile.ID).Msg("backend revoke failed, local session cleared")
		}
	}
}

// Register creates a new profile. The cached user list becomes stale.
func (c *SessionClient) Register(ctx context.Context, in ports.RegisterInput) (*domain.Profile, error) {
	p, err := c.identity.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cache.invalidate()
	c.mu.Unlock()
	return p, nil
}

// AssignEmployeeToShop assigns the employee and, when the employee is the
// subject of this client's session, refreshes the session's profile at once.
func (c *SessionClient) AssignEmployeeToShop(ctx context.Context, employeeID string, shop domain.Shop) (*domain.Profile, error) {
	p, err := c.identity.AssignEmployeeToShop(ctx, employeeID, shop)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache.upsert(*p)
	if c.session != nil && c.session.Profile.ID == p.ID {
		c.session.Profile = *p
	}
	gen := c.generation
	c.publishLocked()
	c.mu.Unlock()

	c.persist(ctx, gen)
	return p, nil
}

// DeleteUser removes a user. The cached entry is evicted even when the backend
// reports the profile as already gone. Deleting the session's own subject
// ends the local session.
func (c *SessionClient) DeleteUser(ctx context.Context, userID string) error {
	err := c.identity.DeleteUser(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		return err
	}

	c.mu.Lock()
	c.cache.remove(userID)
	self := c.session != nil && c.session.Profile.ID == userID
	if self {
		c.generation++
		c.session = nil
		c.transitionLocked(domain.StateLoggedOut)
	}
	gen := c.generation
	c.publishLocked()
	c.mu.Unlock()

	if self {
		c.clearMarker(ctx)
	} else {
		c.persist(ctx, gen)
	}
	return err
}

// Users returns the cached profile list without touching the backend.
func (c *SessionClient) Users() UserList {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.snapshot()
}

// Reload refreshes the cached profile list from the backend.
func (c *SessionClient) Reload(ctx context.Context) (UserList, error) {
	profiles, err := c.identity.ListUsers(ctx)
	if err != nil {
		return UserList{}, err
	}

	c.mu.Lock()
	c.cache.replace(profiles, c.now().UTC())
	list := c.cache.snapshot()
	gen := c.generation
	c.mu.Unlock()

	c.persist(ctx, gen)
	return list, nil
}

// Session returns a copy of the current session, or nil.
func (c *SessionClient) Session() *domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// Snapshot returns the current consumer view.
func (c *SessionClient) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel that always holds the latest snapshot; older
// undelivered snapshots are replaced. The cancel func closes the channel.
func (c *SessionClient) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			close(ch)
			c.mu.Unlock()
		})
	}
	return ch, cancel
}

func (c *SessionClient) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:      c.state,
		Generation: c.generation,
		Reason:     c.reason,
	}
	if c.session != nil {
		p := c.session.Profile
		snap.Profile = &p
		snap.IsAuthenticated = c.state == domain.StateAuthenticated
	}
	return snap
}

func (c *SessionClient) publishLocked() {
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (c *SessionClient) transitionLocked(next domain.SessionState) {
	if !c.state.CanTransitionTo(next) {
		c.log.Error().Str("from", string(c.state)).Str("to", string(next)).Msg("invalid session transition")
		return
	}
	c.state = next
}

func (c *SessionClient) seedCacheLocked(m *ports.Marker) {
	if c.cache.loaded || len(m.Users) == 0 {
		return
	}
	c.cache.replace(m.Users, m.UsersLoadedAt)
}

// persist writes the marker unless the generation moved since gen.
func (c *SessionClient) persist(ctx context.Context, gen uint64) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	m := ports.Marker{SavedAt: c.now().UTC()}
	if c.session != nil {
		m.Token = c.session.Token
	}
	if c.cache.loaded {
		m.Users = c.cache.snapshot().Profiles
		m.UsersLoadedAt = c.cache.loadedAt
	}
	c.mu.Unlock()

	if err := c.marker.Save(ctx, m); err != nil {
		c.log.Warn().Err(err).Msg("failed to persist session marker")
	}
}

// discardMarker clears the marker unless a newer login or logout has run
// since gen was taken.
func (c *SessionClient) discardMarker(ctx context.Context, gen uint64) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	current := gen == c.generation
	c.mu.Unlock()
	if !current {
		return
	}
	if err := c.marker.Clear(ctx); err != nil {
		c.log.Warn().Err(err).Msg("failed to clear session marker")
	}
}

func (c *SessionClient) clearMarker(ctx context.Context) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	if err := c.marker.Clear(ctx); err != nil {
		c.log.Warn().Err(err).Msg("failed to clear session marker")
	}
}
