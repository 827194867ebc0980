package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tasktrack/apiserver/types"
)

const userColumns = `id, username, email, first_name, last_name, role, assigned_admin, is_active, password_hash, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.AssignedAdminID,
		&user.IsActive,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// ListByRole returns all users with the given role, newest first.
func (r *UserRepository) ListByRole(ctx context.Context, role types.Role) ([]types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = $1
		ORDER BY created_at DESC`
	return r.list(ctx, query, role)
}

// ListByAdmin returns the users supervised by the given admin, newest first.
func (r *UserRepository) ListByAdmin(ctx context.Context, adminID int) ([]types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = $1 AND assigned_admin = $2
		ORDER BY created_at DESC`
	return r.list(ctx, query, types.RoleUser, adminID)
}

func (r *UserRepository) list(ctx context.Context, query string, args ...any) ([]types.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// CountByRole returns the number of users with the given role.
func (r *UserRepository) CountByRole(ctx context.Context, role types.Role) (int, error) {
	const query = `SELECT COUNT(1) FROM users WHERE role = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, role).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountByAdmin returns the number of users supervised by the given admin.
func (r *UserRepository) CountByAdmin(ctx context.Context, adminID int) (int, error) {
	const query = `SELECT COUNT(1) FROM users WHERE assigned_admin = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, adminID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (username, email, first_name, last_name, role, assigned_admin, is_active, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Role,
		user.AssignedAdminID,
		user.IsActive,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now()

	const query = `
		UPDATE users
		SET username = $1,
			email = $2,
			first_name = $3,
			last_name = $4,
			role = $5,
			assigned_admin = $6,
			is_active = $7,
			password_hash = $8,
			updated_at = $9
		WHERE id = $10`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Role,
		user.AssignedAdminID,
		user.IsActive,
		user.PasswordHash,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return types.User{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

// Delete removes the user with the given id only if it has the expected
// role. A role mismatch reports ErrNotFound, so deleting an admin through
// the user endpoint (or vice versa) cannot succeed.
func (r *UserRepository) Delete(ctx context.Context, id int, expectedRole types.Role) error {
	const query = `DELETE FROM users WHERE id = $1 AND role = $2`
	result, err := r.db.ExecContext(ctx, query, id, expectedRole)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
