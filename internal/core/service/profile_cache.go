package service

import (
	"time"

	"github.com/bizguardian/manager/internal/core/domain"
)

// UserList is a point-in-time copy of the client's cached profiles.
//
// The cache lags the backend: it is only refreshed by Reload. Local mutations
// made through the same client are patched in place; anything the client
// cannot patch (a registration, an unknown id) marks the list Stale.
type UserList struct {
	Profiles []domain.Profile
	LoadedAt time.Time
	Stale    bool
}

type profileCache struct {
	profiles []domain.Profile
	loadedAt time.Time
	loaded   bool
	stale    bool
}

func (pc *profileCache) snapshot() UserList {
	out := make([]domain.Profile, len(pc.profiles))
	copy(out, pc.profiles)
	return UserList{
		Profiles: out,
		LoadedAt: pc.loadedAt,
		Stale:    pc.stale || !pc.loaded,
	}
}

func (pc *profileCache) replace(profiles []domain.Profile, at time.Time) {
	pc.profiles = make([]domain.Profile, len(profiles))
	copy(pc.profiles, profiles)
	pc.loadedAt = at
	pc.loaded = true
	pc.stale = false
}

func (pc *profileCache) upsert(p domain.Profile) {
	for i := range pc.profiles {
		if pc.profiles[i].ID == p.ID {
			pc.profiles[i] = p
			return
		}
	}
	pc.stale = true
}

func (pc *profileCache) remove(id string) {
	for i := range pc.profiles {
		if pc.profiles[i].ID == id {
			pc.profiles = append(pc.profiles[:i], pc.profiles[i+1:]...)
			return
		}
	}
}

func (pc *profileCache) invalidate() {
	pc.stale = true
}

func (pc *profileCache) reset() {
	*pc = profileCache{}
}
