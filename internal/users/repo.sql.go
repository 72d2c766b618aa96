package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carmen-erp/carmen-erp/internal/platform/db"
)

// PGRepository implements Repository on postgres.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = "id, email, name, role, department, location, is_active, created_at, updated_at"

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Department, &u.Location, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// GetByID fetches a single user.
func (r *PGRepository) GetByID(ctx context.Context, id string) (User, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

// List returns users matching the filter ordered by name.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Department != "" {
		where += " AND department = " + arg(filter.Department)
	}
	if filter.Role != "" {
		where += " AND role = " + arg(filter.Role)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query := "SELECT " + userColumns + " FROM users" + where +
		" ORDER BY name LIMIT " + arg(perPage) + " OFFSET " + arg((page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Department, &u.Location, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, u)
	}
	return list, total, rows.Err()
}

// ListGrants returns the user's explicit permission grants.
func (r *PGRepository) ListGrants(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT permission FROM user_permissions WHERE user_id = $1 ORDER BY permission", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// UpdateRole changes a user's role.
func (r *PGRepository) UpdateRole(ctx context.Context, userID, role string) error {
	tag, err := r.pool.Exec(ctx, "UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1", userID, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceGrants swaps the user's explicit grants inside one transaction.
func (r *PGRepository) ReplaceGrants(ctx context.Context, userID string, grants []string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM user_permissions WHERE user_id = $1", userID); err != nil {
			return err
		}
		for _, g := range grants {
			if _, err := tx.Exec(ctx, "INSERT INTO user_permissions (user_id, permission) VALUES ($1, $2)", userID, g); err != nil {
				return err
			}
		}
		return nil
	})
}
