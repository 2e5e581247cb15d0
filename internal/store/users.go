package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atlasherbaltea-design/otg-track-99/internal/model"
)

const userColumns = `id, username, name, password_hash, role, permissions, photo IS NOT NULL, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	var perms string
	if err := row.Scan(&u.ID, &u.Username, &u.Name, &u.PasswordHash, &u.Role, &perms, &u.HasPhoto, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Permissions = model.SplitPermissions(perms)
	return u, nil
}

// CreateUser creates a new user.
func CreateUser(ctx context.Context, db *sql.DB, username, name, passwordHash, role string, perms []string) (*model.User, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (username, name, password_hash, role, permissions) VALUES (?, ?, ?, ?, ?)`,
		username, name, passwordHash, role, model.JoinPermissions(perms),
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns a user by username.
func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// ListUsers returns all users ordered by ID.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUser updates a user's display name, role and permissions.
func UpdateUser(ctx context.Context, db *sql.DB, id int64, name, role string, perms []string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET name = ?, role = ?, permissions = ? WHERE id = ?`,
		name, role, model.JoinPermissions(perms), id,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// DeleteUser removes a user.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

// CountAdmins returns the number of admin accounts.
func CountAdmins(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = ?`, model.RoleAdmin,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting admins: %w", err)
	}
	return n, nil
}

// SetUserPhoto stores a user's photo.
func SetUserPhoto(ctx context.Context, db *sql.DB, id int64, data []byte, mimeType string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET photo = ?, photo_mime = ? WHERE id = ?`,
		data, mimeType, id,
	)
	if err != nil {
		return fmt.Errorf("setting user photo: %w", err)
	}
	return nil
}

// GetUserPhoto returns a user's photo and its MIME type, or nil data when
// the user has none.
func GetUserPhoto(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var data []byte
	var mimeType sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT photo, photo_mime FROM users WHERE id = ?`, id,
	).Scan(&data, &mimeType)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting user photo: %w", err)
	}
	return data, mimeType.String, nil
}
