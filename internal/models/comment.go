package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment represents a comment on a post.
type Comment struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Content     string `gorm:"type:text;not null" json:"content"`
	IsAnonymous bool   `gorm:"default:false" json:"is_anonymous"`
	UserID      uint   `gorm:"not null;index" json:"user_id"`
	User        User   `gorm:"foreignKey:UserID" json:"user"`
	PostID      uint   `gorm:"not null;index" json:"post_id"`
	Post        Post   `gorm:"foreignKey:PostID" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
