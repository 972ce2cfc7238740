package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dirbridge/internal/domain"
)

// UserRepo holds the write pool (single connection, immediate txlock) and
// the read pool. Mutations and read-before-write checks go through db;
// plain lookups and listings go through rdb.
type UserRepo struct {
	db  *sql.DB
	rdb *sql.DB
}

func NewUserRepo(writeDB, readDB *sql.DB) *UserRepo {
	return &UserRepo{db: writeDB, rdb: readDB}
}

const userColumns = "id, username, display_name, email, phone, password_hash, status, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Email, &u.Phone,
		&u.PasswordHash, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	now := time.Now().UTC()
	u.ID = domain.NewID()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Status == "" {
		u.Status = domain.UserStatusEnabled
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.DisplayName, u.Email, u.Phone, u.PasswordHash,
		u.Status, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.rdb.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return u, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.rdb.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return u, nil
}

// List returns a page of users plus the total match count. Search matches
// username, display name, and email by case-insensitive substring.
func (r *UserRepo) List(ctx context.Context, page domain.PageRequest) ([]*domain.User, int64, error) {
	where := ""
	args := []any{}
	if page.Search != "" {
		pattern := "%" + escapeLike(page.Search) + "%"
		where = ` WHERE username LIKE ? ESCAPE '\'
			OR display_name LIKE ? ESCAPE '\'
			OR email LIKE ? ESCAPE '\'`
		args = append(args, pattern, pattern, pattern)
	}

	var total int64
	if err := r.rdb.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.Limit(), page.Offset())
	rows, err := r.rdb.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+where+` ORDER BY username LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close() //nolint:errcheck

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// ListAll returns every user, ordered by username. Used by the LDAP bridge
// to enumerate directory entries.
func (r *UserRepo) ListAll(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.rdb.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update applies a partial update; nil fields are left unchanged.
func (r *UserRepo) Update(ctx context.Context, id string, in domain.UpdateUserInput) (*domain.User, error) {
	set := "updated_at = ?"
	args := []any{time.Now().UTC()}
	if in.DisplayName != nil {
		set += ", display_name = ?"
		args = append(args, *in.DisplayName)
	}
	if in.Email != nil {
		set += ", email = ?"
		args = append(args, *in.Email)
	}
	if in.Phone != nil {
		set += ", phone = ?"
		args = append(args, *in.Phone)
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, `UPDATE users SET `+set+` WHERE id = ?`, args...)
	if err != nil {
		return nil, mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound("user %s not found", id)
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("user %s not found", id)
	}
	return nil
}

// SetStatus flips the authorization gate. Credentials and memberships are
// untouched.
func (r *UserRepo) SetStatus(ctx context.Context, id string, status domain.UserStatus) error {
	if !status.Valid() {
		return domain.ErrValidation("invalid status %q", status)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("user %s not found", id)
	}
	return nil
}

// Delete removes the user. Memberships go with it in the same statement via
// ON DELETE CASCADE, so a partially-applied delete is never observable.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", mapDBError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("user %s not found", id)
	}
	return nil
}
