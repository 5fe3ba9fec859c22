package models

import (
	"time"
)

// Role IDs as seeded in the roles table.
const (
	RoleContributor = 1
	RoleReviewer    = 2
	RoleAdmin       = 3
)

type User struct {
	UserID    uint       `gorm:"primaryKey;column:user_id" json:"user_id"`
	UserFname string     `gorm:"column:user_fname" json:"user_fname"`
	UserLname string     `gorm:"column:user_lname" json:"user_lname"`
	Email     string     `gorm:"column:email;unique" json:"email"`
	Password  string     `gorm:"column:password" json:"-"`
	RoleID    int        `gorm:"column:role_id" json:"role_id"`
	AvatarURL *string    `gorm:"column:avatar_url" json:"avatar_url,omitempty"`
	Bio       *string    `gorm:"column:bio" json:"bio,omitempty"`
	CreateAt  *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt  *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt  *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Role Role `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

type Role struct {
	RoleID   int        `gorm:"primaryKey;column:role_id" json:"role_id"`
	Role     string     `gorm:"column:role" json:"role"`
	CreateAt *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// TableName overrides
func (User) TableName() string {
	return "users"
}

func (Role) TableName() string {
	return "roles"
}

// IsReviewerRole reports whether the role may review submissions.
// Admins carry every reviewer capability.
func IsReviewerRole(roleID int) bool {
	return roleID == RoleReviewer || roleID == RoleAdmin
}

// DisplayName returns the human-facing name for activity feeds and emails.
func (u *User) DisplayName() string {
	if u.UserFname == "" && u.UserLname == "" {
		return u.Email
	}
	if u.UserLname == "" {
		return u.UserFname
	}
	return u.UserFname + " " + u.UserLname
}
