package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole accepts either case; anything else is rejected.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// User is the persisted account. Name and PasswordHash are nullable: a user
// created without a password (seed data, invitations) cannot log in.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:320;not null" json:"email"`
	Name         *string   `gorm:"size:120" json:"name"`
	PasswordHash *string   `gorm:"column:password;size:255" json:"-"`
	Role         Role      `gorm:"size:16;not null;default:USER" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// Identity is the minimal claim produced by a successful login.
type Identity struct {
	ID    uint    `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
	Role  Role    `json:"role"`
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// SessionRevocation marks every session of a user issued at or before
// RevokedAt (unix seconds) as dead.
type SessionRevocation struct {
	UserID    uint  `gorm:"primaryKey;autoIncrement:false" db:"user_id"`
	RevokedAt int64 `gorm:"not null" db:"revoked_at"`
}

func (SessionRevocation) TableName() string { return "session_revocations" }
