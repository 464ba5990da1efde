package models

import "time"

// InteractionKind identifies a toggleable post interaction.
type InteractionKind string

const (
	// InteractionLike is a like on a post.
	InteractionLike InteractionKind = "like"
	// InteractionRepost is a repost of a post to the user's profile feed.
	InteractionRepost InteractionKind = "repost"
	// InteractionBookmark is a private bookmark of a post.
	InteractionBookmark InteractionKind = "bookmark"
)

// Valid reports whether k names a known interaction kind.
func (k InteractionKind) Valid() bool {
	switch k {
	case InteractionLike, InteractionRepost, InteractionBookmark:
		return true
	}
	return false
}

// PostLike records a user's like on a post.
// The combination of UserID and PostID is unique at the database level, so
// a duplicate insert is a no-op rather than a second row.
type PostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_like_user_post" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"user"`
	Post Post `gorm:"foreignKey:PostID" json:"post"`
}

// TableName specifies the table name for GORM.
func (PostLike) TableName() string {
	return "post_likes"
}

// Repost records a user's repost of a post. Unique per (user, post).
type Repost struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_repost_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_repost_user_post" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"user"`
	Post Post `gorm:"foreignKey:PostID" json:"post"`
}

// Bookmark records a user's bookmark of a post. Unique per (user, post).
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_bookmark_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_bookmark_user_post" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"user"`
	Post Post `gorm:"foreignKey:PostID" json:"post"`
}
