// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account on the Quad platform.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:30;not null;uniqueIndex" json:"username"`
	Email        string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password     string     `gorm:"not null" json:"-"`
	DisplayName  string     `gorm:"size:60" json:"display_name"`
	Bio          string     `gorm:"type:text" json:"bio"`
	Major        string     `gorm:"size:120" json:"major"`
	GradYear     int        `json:"grad_year"`
	AvatarURL    string     `json:"avatar_url"`
	CoverURL     string     `json:"cover_url"`
	IsAdmin      bool       `gorm:"default:false" json:"is_admin"`
	LastActiveAt *time.Time `json:"last_active_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Posts []Post `gorm:"foreignKey:UserID" json:"posts,omitempty"`
}
