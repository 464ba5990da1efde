package models

import "time"

// NotificationType enumerates the kinds of notifications a user can receive.
type NotificationType string

const (
	NotificationTypeLike          NotificationType = "like"
	NotificationTypeComment       NotificationType = "comment"
	NotificationTypeFollow        NotificationType = "follow"
	NotificationTypeCommunityPost NotificationType = "community_post"
	NotificationTypeMention       NotificationType = "mention"
	NotificationTypeSystem        NotificationType = "system"
	NotificationTypeAchievement   NotificationType = "achievement"
	NotificationTypeRepost        NotificationType = "repost"
)

// Notification is a per-user inbox entry created as a side effect of other
// users' actions. Only the is_read flag is ever mutated after creation.
type Notification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UserID      uint             `gorm:"not null;index" json:"user_id"`
	Type        NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	ActorID     *uint            `json:"actor_id,omitempty"`
	Actor       *User            `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	PostID      *uint            `gorm:"index" json:"post_id,omitempty"`
	CommunityID *uint            `json:"community_id,omitempty"`
	Message     string           `gorm:"size:300" json:"message"`
	IsRead      bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt   time.Time        `json:"created_at"`
}
