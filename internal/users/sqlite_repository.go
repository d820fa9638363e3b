package users

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/authrouter/authrouter/internal/models"
)

// SQLiteUserRepository implements UserRepository over the single
// user(id PRIMARY KEY, provider, profile) table.
type SQLiteUserRepository struct {
	db *sql.DB
}

func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	var profile sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT id, provider, profile FROM user WHERE id = ?`, id).
		Scan(&u.ID, &u.Provider, &profile)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if profile.Valid {
		p := profile.String
		u.Profile = &p
	}
	return &u, nil
}

func (r *SQLiteUserRepository) Insert(ctx context.Context, u *models.User) error {
	var profile interface{}
	if u.Profile != nil {
		profile = *u.Profile
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO user (id, provider, profile) VALUES (?, ?, ?)`, u.ID, u.Provider, profile)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *SQLiteUserRepository) UpdateProfile(ctx context.Context, id, image string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE user SET profile = ? WHERE id = ?`, image, id)
	return err
}

// isUniqueViolation detects primary key conflicts reported by the SQLite driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARYKEY")
}
