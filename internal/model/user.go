package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the single role a user holds for the lifetime of the account
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleStaff    Role = "STAFF"
	RoleCustomer Role = "CUSTOMER"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleCustomer:
		return true
	}
	return false
}

// User represents the central user entity for logic and database structure
type User struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username       *string   `gorm:"type:varchar(150);uniqueIndex" json:"username,omitempty"` // Optional, email is the login identifier
	Email          string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FirstName      string    `gorm:"type:varchar(150)" json:"first_name"`
	LastName       string    `gorm:"type:varchar(150)" json:"last_name"`
	Phone          string    `gorm:"type:varchar(20)" json:"phone"`
	Address        string    `gorm:"type:text" json:"address"`
	Specialization string    `gorm:"type:varchar(100)" json:"specialization,omitempty"` // Staff only, e.g. Engine Repair
	Password       string    `gorm:"type:varchar(255);not null" json:"-"`               // Omit password from JSON requests/responses
	Role           Role      `gorm:"type:varchar(20);not null;index" json:"role"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FullName joins first and last name, falling back to the email address
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// RefreshToken stores long-lived tokens allowing users to request new access tokens
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
