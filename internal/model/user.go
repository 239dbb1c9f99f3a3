package model

import "time"

// Back-office roles.  ADMIN manages events, discount codes, refunds and
// the waitlist; STAFF is the door-staff role used by the ticket
// scanning tool.
const (
	RoleAdmin = "ADMIN"
	RoleStaff = "STAFF"
)

// User represents a back-office account as stored in the `users`
// table.  The public booking flow is unauthenticated; only
// administrators and door staff log in.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – ADMIN or STAFF.
//  IsActive     – whether the account may log in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
