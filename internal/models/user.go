package models

import (
	"time"
)

// User represents an admin console account. Source is "local" for
// password-backed accounts and "ldap" for directory-backed ones.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:100;not null;uniqueIndex" json:"username"`
	Password  string    `gorm:"size:255" json:"-"`
	Email     string    `gorm:"size:255" json:"email"`
	Role      string    `gorm:"size:20;default:user" json:"role"` // admin, user
	Source    string    `gorm:"size:20;default:local" json:"source"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }
