package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/TWRT/task-manager/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Save inserts the user or, when the id already exists, updates its profile.
func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, role, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email, role = excluded.role
	`

	_, err := r.db.ExecContext(ctx, query,
		user.Id,
		user.Name,
		user.Email,
		user.Role,
		formatTime(user.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save user %s: %w", user.Id, err)
	}
	return nil
}

func (r *UserRepository) UserExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check user %s: %w", id, err)
	}
	return n > 0, nil
}

// GetUsers returns the users with the given ids keyed by id. Unknown ids are
// skipped.
func (r *UserRepository) GetUsers(ctx context.Context, ids []string) (map[string]models.User, error) {
	users := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, role, created_at FROM users WHERE id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users[u.Id] = u
	}
	return users, rows.Err()
}

func (r *UserRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, email, role, created_at FROM users ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(rows *sql.Rows) (models.User, error) {
	var (
		u         models.User
		createdAt string
	)
	if err := rows.Scan(&u.Id, &u.Name, &u.Email, &u.Role, &createdAt); err != nil {
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	var err error
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}
