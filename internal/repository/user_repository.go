package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/cafetec/cafetec-backend/internal/model"
	"github.com/cafetec/cafetec-backend/internal/utils"
)

// UserRepo provides persistence for users and their role assignments.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// Create inserts a user, assigns the customer role and returns the new ID.
// Administrator accounts are seeded by migration, not created through
// registration.  The two inserts run in a transaction so a failure on the
// role assignment does not leave a roleless user behind.
func (r *UserRepo) Create(ctx context.Context, name, email, password string, phone *string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, phone) VALUES (?,?,?,?)",
		name, email, hash, phone)
	if err != nil {
		// 1062 = MySQL duplicate entry, the email column is unique
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO user_roles (user_id, role_id) SELECT ?, id FROM roles WHERE name = ?",
		uint64(id), model.RoleCustomer); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	var phone sql.NullString
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,email,password_hash,phone,is_active,created_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &phone, &u.IsActive, &u.RegisteredAt)
	if phone.Valid {
		p := phone.String
		u.Phone = &p
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	var phone sql.NullString
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,email,password_hash,phone,is_active,created_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &phone, &u.IsActive, &u.RegisteredAt)
	if phone.Valid {
		p := phone.String
		u.Phone = &p
	}
	return u, err
}

// RolesFor returns the role names assigned to a user.  This runs once at
// login; the resulting role travels in the JWT so request handling never
// needs another role lookup.
func (r *UserRepo) RolesFor(ctx context.Context, userID uint64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.name FROM roles r JOIN user_roles ur ON ur.role_id = r.id WHERE ur.user_id = ? ORDER BY r.id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// PrimaryRole picks the role carried in the access token: administrator
// wins over customer when a user has both.
func PrimaryRole(roles []string) string {
	for _, r := range roles {
		if r == model.RoleAdmin {
			return model.RoleAdmin
		}
	}
	return model.RoleCustomer
}
