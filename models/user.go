package models

import (
	"time"
)

type PermissionsLevel string

const (
	LevelStandard PermissionsLevel = "standard"
	LevelAdvanced PermissionsLevel = "advanced"
)

func (l PermissionsLevel) Valid() bool {
	return l == LevelStandard || l == LevelAdvanced
}

// User is a login account. Accounts are provisioned by an administrator with
// an empty password hash; the owner completes registration by setting a
// password, so IsRegistered distinguishes provisioned from active accounts.
type User struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	Name             string           `gorm:"not null;size:200" json:"name"`
	Department       string           `gorm:"size:200" json:"department"`
	Login            string           `gorm:"uniqueIndex;not null;size:100" json:"login"`
	PasswordHash     string           `json:"-"`
	PermissionsLevel PermissionsLevel `gorm:"not null;size:20" json:"permissions_level"`
	Enabled          bool             `gorm:"not null;default:true" json:"enabled"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdvanced() bool {
	return u.PermissionsLevel == LevelAdvanced
}

func (u *User) IsRegistered() bool {
	return u.PasswordHash != ""
}
