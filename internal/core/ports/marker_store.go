package ports

import (
	"context"
	"time"

	"github.com/bizguardian/manager/internal/core/domain"
)

// Marker is the client-local persisted state: the current session token and
// an optional cached profile list.
type Marker struct {
	Token         string           `yaml:"token,omitempty"`
	Users         []domain.Profile `yaml:"users,omitempty"`
	UsersLoadedAt time.Time        `yaml:"users_loaded_at,omitempty"`
	SavedAt       time.Time        `yaml:"saved_at"`
}

// MarkerStore persists the Marker between process runs.
// Load returns (nil, nil) when nothing has been saved.
type MarkerStore interface {
	Load(ctx context.Context) (*Marker, error)
	Save(ctx context.Context, m Marker) error
	Clear(ctx context.Context) error
}
