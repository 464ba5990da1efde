package models

import (
	"time"

	"gorm.io/gorm"
)

// Post categories understood by the feed.
const (
	PostCategoryGeneral    = "general"
	PostCategoryAcademic   = "academic"
	PostCategoryEvents     = "events"
	PostCategoryMarket     = "market"
	PostCategoryConfession = "confession"
)

// Post represents a post in the Quad application. It may belong to a
// community or to the campus-wide feed.
type Post struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Content       string     `gorm:"type:text;not null" json:"content"`
	Category      string     `gorm:"size:30;not null;default:'general';index" json:"category"`
	ImageURL      string     `json:"image_url"`
	ImageHash     string     `gorm:"size:64;index" json:"-"`
	IsAnonymous   bool       `gorm:"default:false" json:"is_anonymous"`
	AnonymousName string     `gorm:"size:60" json:"anonymous_name,omitempty"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	User          User       `gorm:"foreignKey:UserID" json:"user"`
	CommunityID   *uint      `gorm:"index" json:"community_id,omitempty"`
	Community     *Community `gorm:"foreignKey:CommunityID" json:"community,omitempty"`

	// Interaction counters are not persisted; each is computed at query
	// time as an aggregate over its join table, so a read can never drift
	// from the rows that back it.
	LikesCount     int `gorm:"->" json:"likes_count"`
	CommentsCount  int `gorm:"->" json:"comments_count"`
	RepostsCount   int `gorm:"->" json:"reposts_count"`
	BookmarksCount int `gorm:"->" json:"bookmarks_count"`

	// Per-viewer flags, computed for the requesting user.
	Liked      bool `gorm:"->" json:"liked"`
	Reposted   bool `gorm:"->" json:"reposted"`
	Bookmarked bool `gorm:"->" json:"bookmarked"`
	Commented  bool `gorm:"->" json:"commented"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ImageVariants map[string]string `gorm:"-" json:"image_variants,omitempty"`
}

// AuthorName returns the display name a post should be attributed to,
// honoring the anonymous flag.
func (p *Post) AuthorName() string {
	if p.IsAnonymous {
		if p.AnonymousName != "" {
			return p.AnonymousName
		}
		return "Anonymous"
	}
	if p.User.DisplayName != "" {
		return p.User.DisplayName
	}
	return p.User.Username
}
