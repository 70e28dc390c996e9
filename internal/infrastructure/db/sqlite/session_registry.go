package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/bizguardian/manager/internal/core/ports"
)

var _ ports.SessionRegistry = (*Store)(nil)

// Register records tokenID for userID and drops rows that already expired.
func (s *Store) Register(ctx context.Context, tokenID, userID string, ttl time.Duration) error {
	now := s.now()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, toMillis(now)); err != nil {
		return fmt.Errorf("purge sessions: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token_id, user_id, expires_at) VALUES (?, ?, ?)`,
		tokenID, userID, toMillis(now.Add(ttl)),
	); err != nil {
		return fmt.Errorf("register session: %w", err)
	}
	return nil
}

func (s *Store) IsActive(ctx context.Context, tokenID string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE token_id = ? AND expires_at > ?`,
		tokenID, toMillis(s.now()),
	).Scan(&n); err != nil {
		return false, fmt.Errorf("session check: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Revoke(ctx context.Context, tokenID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_id = ?`, tokenID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *Store) RevokeUser(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("revoke user sessions: %w", err)
	}
	return nil
}
