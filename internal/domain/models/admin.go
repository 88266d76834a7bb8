package models

import "time"

type AdminRole string

const (
	AdminRoleAdmin AdminRole = "admin"
	AdminRoleStaff AdminRole = "staff"
)

func (r AdminRole) Valid() bool {
	return r == AdminRoleAdmin || r == AdminRoleStaff
}

// Admin is a dashboard operator
type Admin struct {
	ID           string     `bson:"_id,omitempty" json:"id"`
	Username     string     `bson:"username" json:"username"`
	PasswordHash string     `bson:"password_hash" json:"-"`
	Name         string     `bson:"name" json:"name"`
	Role         AdminRole  `bson:"role" json:"role"`
	Active       bool       `bson:"active" json:"active"`
	LastLoginAt  *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updated_at"`
}
