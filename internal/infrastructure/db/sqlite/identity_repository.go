package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bizguardian/manager/internal/core/domain"
	"github.com/bizguardian/manager/internal/core/ports"
)

var _ ports.IdentityRepository = (*Store)(nil)

const profileColumns = `id, full_name, identity, role, assigned_shop, created_at, updated_at`

// Create inserts the account and profile in one transaction. The admin
// quota is checked by the profile insert itself, and transactions start
// IMMEDIATE, so concurrent admin registrations cannot both pass the check.
func (s *Store) Create(ctx context.Context, account domain.Account, profile domain.Profile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (id, identity, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		account.ID, account.Identity, account.PasswordHash, toMillis(account.CreatedAt),
	); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateIdentity
		}
		return fmt.Errorf("insert account: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO profiles (`+profileColumns+`)
		 SELECT ?, ?, ?, ?, ?, ?, ?
		 WHERE ? <> 'admin' OR (SELECT COUNT(*) FROM profiles WHERE role = 'admin') < ?`,
		profile.ID,
		profile.FullName,
		profile.Identity,
		string(profile.Role),
		string(profile.AssignedShop),
		toMillis(profile.CreatedAt),
		toMillis(profile.UpdatedAt),
		string(profile.Role),
		domain.MaxAdmins,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateIdentity
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrAdminQuotaExceeded
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create: %w", err)
	}
	return nil
}

func (s *Store) FindAccountByIdentity(ctx context.Context, identity string) (*domain.Account, error) {
	var (
		a         domain.Account
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, identity, password_hash, created_at FROM accounts WHERE identity = ?`, identity,
	).Scan(&a.ID, &a.Identity, &a.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	a.CreatedAt = fromMillis(createdAt)
	return &a, nil
}

func (s *Store) FindProfile(ctx context.Context, id string) (*domain.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &p, nil
}

func (s *Store) CountByRole(ctx context.Context, role domain.Role) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM profiles WHERE role = ?`, string(role),
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return n, nil
}

func (s *Store) ListProfiles(ctx context.Context, filter ports.ProfileFilter) ([]domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles`
	var args []any
	if filter.Role != "" {
		query += ` WHERE role = ?`
		args = append(args, string(filter.Role))
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateAssignment(ctx context.Context, id string, shop domain.Shop, updatedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET assigned_shop = ?, updated_at = ? WHERE id = ?`,
		string(shop), toMillis(updatedAt), id,
	)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return requireRow(res)
}

// Delete removes the profile and its account together.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (domain.Profile, error) {
	var (
		p                    domain.Profile
		role, shop           string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&p.ID, &p.FullName, &p.Identity, &role, &shop, &createdAt, &updatedAt); err != nil {
		return domain.Profile{}, err
	}
	p.Role = domain.Role(role)
	p.AssignedShop = domain.Shop(shop)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}
