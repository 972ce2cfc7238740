package repository

import (
	"context"
	"database/sql"
	"time"

	"dirbridge/internal/domain"
)

// GroupRepo splits traffic across the write pool (db) and the read pool
// (rdb). Hierarchy walks that guard a mutation run inside the write
// transaction; standalone walks and listings use the read pool.
type GroupRepo struct {
	db  *sql.DB
	rdb *sql.DB
}

func NewGroupRepo(writeDB, readDB *sql.DB) *GroupRepo {
	return &GroupRepo{db: writeDB, rdb: readDB}
}

const groupColumns = "id, name, description, parent_id, created_at, updated_at"

func scanGroup(row interface{ Scan(...any) error }) (*domain.Group, error) {
	var g domain.Group
	var parent sql.NullString
	err := row.Scan(&g.ID, &g.Name, &g.Description, &parent, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		g.ParentID = &parent.String
	}
	return &g, nil
}

func nullableID(id *string) any {
	if id == nil {
		return nil
	}
	return *id
}

func (r *GroupRepo) Create(ctx context.Context, g *domain.Group) (*domain.Group, error) {
	now := time.Now().UTC()
	g.ID = domain.NewID()
	g.CreatedAt = now
	g.UpdatedAt = now

	if g.ParentID != nil {
		if _, err := r.GetByID(ctx, *g.ParentID); err != nil {
			return nil, domain.ErrNotFound("parent group %s not found", *g.ParentID)
		}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO groups (`+groupColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.Description, nullableID(g.ParentID), g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return g, nil
}

func (r *GroupRepo) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	row := r.rdb.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE id = ?`, id)
	g, err := scanGroup(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return g, nil
}

// List returns the flat forest. Siblings come back in insertion order
// (rowid); callers wanting alphabetic ordering sort on their side.
func (r *GroupRepo) List(ctx context.Context) ([]*domain.Group, error) {
	rows, err := r.rdb.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM groups ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var groups []*domain.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Update changes name and/or description. Reparenting goes through
// SetParent, which carries the cycle check.
func (r *GroupRepo) Update(ctx context.Context, id string, in domain.UpdateGroupInput) (*domain.Group, error) {
	set := "updated_at = ?"
	args := []any{time.Now().UTC()}
	if in.Name != nil {
		set += ", name = ?"
		args = append(args, *in.Name)
	}
	if in.Description != nil {
		set += ", description = ?"
		args = append(args, *in.Description)
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, `UPDATE groups SET `+set+` WHERE id = ?`, args...)
	if err != nil {
		return nil, mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound("group %s not found", id)
	}
	return r.GetByID(ctx, id)
}

// SetParent moves the group under newParentID (nil = root). The upward walk
// from the new parent runs inside the same transaction as the update so a
// concurrent reparent cannot slip a cycle past the check.
func (r *GroupRepo) SetParent(ctx context.Context, id string, newParentID *string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM groups WHERE id = ?`, id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return domain.ErrNotFound("group %s not found", id)
	}

	if newParentID != nil {
		if err := checkAncestry(ctx, tx, id, *newParentID); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE groups SET parent_id = ?, updated_at = ? WHERE id = ?`,
		nullableID(newParentID), time.Now().UTC(), id)
	if err != nil {
		return mapDBError(err)
	}
	return tx.Commit()
}

// checkAncestry walks from candidate up through parent references. Finding
// id on the way (or at the start) would create a cycle. The visited set
// guards the walk against pre-existing corruption.
func checkAncestry(ctx context.Context, tx *sql.Tx, id, candidate string) error {
	visited := map[string]bool{}
	cur := candidate
	for {
		if cur == id {
			return domain.ErrValidation("cannot set parent of group %s: would create cycle", id)
		}
		if visited[cur] {
			return domain.ErrValidation("group hierarchy contains a cycle at %s", cur)
		}
		visited[cur] = true

		var parent sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT parent_id FROM groups WHERE id = ?`, cur).Scan(&parent)
		if err == sql.ErrNoRows {
			return domain.ErrNotFound("parent group %s not found", cur)
		}
		if err != nil {
			return err
		}
		if !parent.Valid {
			return nil
		}
		cur = parent.String
	}
}

// Delete removes the group. Memberships cascade and children are re-rooted
// by the schema's FK actions, all within the single statement.
func (r *GroupRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("group %s not found", id)
	}
	return nil
}

// AddMembers adds users to the group all-or-nothing. Re-adding a current
// member is a silent no-op; an unknown user id aborts the whole batch.
func (r *GroupRepo) AddMembers(ctx context.Context, groupID string, userIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM groups WHERE id = ?`, groupID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return domain.ErrNotFound("group %s not found", groupID)
	}

	now := time.Now().UTC()
	for _, userID := range userIDs {
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, userID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrNotFound("user %s not found", userID)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO group_members (group_id, user_id, created_at) VALUES (?, ?, ?)`,
			groupID, userID, now)
		if err != nil {
			return mapDBError(err)
		}
	}
	return tx.Commit()
}

func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, userID string) error {
	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM groups WHERE id = ?`, groupID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return domain.ErrNotFound("group %s not found", groupID)
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`, groupID, userID)
	return mapDBError(err)
}

func (r *GroupRepo) ListMembers(ctx context.Context, groupID string) ([]*domain.User, error) {
	var exists int
	if err := r.rdb.QueryRowContext(ctx, `SELECT COUNT(*) FROM groups WHERE id = ?`, groupID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, domain.ErrNotFound("group %s not found", groupID)
	}

	rows, err := r.rdb.QueryContext(ctx,
		`SELECT u.id, u.username, u.display_name, u.email, u.phone, u.password_hash, u.status, u.created_at, u.updated_at
		 FROM users u
		 JOIN group_members gm ON gm.user_id = u.id
		 WHERE gm.group_id = ?
		 ORDER BY u.username`, groupID)
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

// ListGroupsForUser returns the groups a user is a direct member of, in
// group insertion order.
func (r *GroupRepo) ListGroupsForUser(ctx context.Context, userID string) ([]*domain.Group, error) {
	var exists int
	if err := r.rdb.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, userID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, domain.ErrNotFound("user %s not found", userID)
	}

	rows, err := r.rdb.QueryContext(ctx,
		`SELECT g.id, g.name, g.description, g.parent_id, g.created_at, g.updated_at
		 FROM groups g
		 JOIN group_members gm ON gm.group_id = g.id
		 WHERE gm.user_id = ?
		 ORDER BY g.rowid`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var groups []*domain.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Ancestors returns the chain from the group's parent up to its root,
// nearest first. The recursive CTE runs as one statement, so the walk sees
// a consistent snapshot.
func (r *GroupRepo) Ancestors(ctx context.Context, groupID string) ([]*domain.Group, error) {
	if _, err := r.GetByID(ctx, groupID); err != nil {
		return nil, err
	}

	rows, err := r.rdb.QueryContext(ctx,
		`WITH RECURSIVE chain(id, name, description, parent_id, created_at, updated_at, depth) AS (
			SELECT g.id, g.name, g.description, g.parent_id, g.created_at, g.updated_at, 0
			FROM groups g WHERE g.id = (SELECT parent_id FROM groups WHERE id = ?)
			UNION ALL
			SELECT g.id, g.name, g.description, g.parent_id, g.created_at, g.updated_at, c.depth + 1
			FROM groups g JOIN chain c ON g.id = c.parent_id
			WHERE c.depth < 64
		)
		SELECT id, name, description, parent_id, created_at, updated_at FROM chain ORDER BY depth`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var groups []*domain.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Descendants returns every group below groupID, breadth-first.
func (r *GroupRepo) Descendants(ctx context.Context, groupID string) ([]*domain.Group, error) {
	if _, err := r.GetByID(ctx, groupID); err != nil {
		return nil, err
	}

	rows, err := r.rdb.QueryContext(ctx,
		`WITH RECURSIVE sub(id, name, description, parent_id, created_at, updated_at, depth) AS (
			SELECT g.id, g.name, g.description, g.parent_id, g.created_at, g.updated_at, 0
			FROM groups g WHERE g.parent_id = ?
			UNION ALL
			SELECT g.id, g.name, g.description, g.parent_id, g.created_at, g.updated_at, s.depth + 1
			FROM groups g JOIN sub s ON g.parent_id = s.id
			WHERE s.depth < 64
		)
		SELECT id, name, description, parent_id, created_at, updated_at FROM sub ORDER BY depth, id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var groups []*domain.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
