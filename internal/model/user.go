package model

import "time"

// User represents an application user record as stored in the `users`
// table.  Each field corresponds to a column.  Handlers define separate
// response types with JSON tags; these structs are used internally by the
// repository layer.  Roles are normalized through the `user_roles` join
// table, so a user may hold several roles (a staff member who also orders
// coffee is both an administrator and a customer).
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Name         – display name.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	Phone        – optional contact phone.
//	IsActive     – whether the account is active.
//	RegisteredAt – timestamp of registration.
type User struct {
	ID           uint64  // users.id
	Name         string  // users.name
	Email        string  // users.email
	PasswordHash string  // users.password_hash
	Phone        *string // users.phone (nullable)
	IsActive     bool    // users.is_active
	RegisteredAt time.Time
}

// Role represents a row in the `roles` table.  It maps a small integer ID
// to a role name.  Users reference roles through the user_roles join table.
type Role struct {
	ID   uint8  // roles.id
	Name string // roles.name
}

// Role names as stored in the roles table.  The access-control gate compares
// the JWT role claim against these values.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "administrator"
)

// RefreshToken models an entry in the `refresh_tokens` table.  Each refresh
// token belongs to a user and contains metadata for expiry and revocation.
// The plain token is never stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
