package models

import "time"

// CommunityPrivacy defines who may join and read a community.
type CommunityPrivacy string

const (
	// CommunityPrivacyPublic allows anyone to browse and join.
	CommunityPrivacyPublic CommunityPrivacy = "public"
	// CommunityPrivacyPrivate requires an invitation to join; content is
	// visible to members only.
	CommunityPrivacyPrivate CommunityPrivacy = "private"
)

// Community represents a campus community (a club, dorm, class, or interest
// group) that members post into.
type Community struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	Name            string           `gorm:"size:120;not null" json:"name"`
	Slug            string           `gorm:"size:40;not null;uniqueIndex" json:"slug"`
	Description     string           `gorm:"type:text" json:"description"`
	Category        string           `gorm:"size:40;index" json:"category"`
	Privacy         CommunityPrivacy `gorm:"type:varchar(10);not null;default:'public'" json:"privacy"`
	CoverURL        string           `json:"cover_url"`
	CreatedByUserID *uint            `json:"created_by_user_id"`
	CreatedByUser   *User            `gorm:"foreignKey:CreatedByUserID" json:"created_by_user,omitempty"`

	// MemberCount is computed at query time from community_members.
	MemberCount int `gorm:"->" json:"member_count"`
	// IsMember reports whether the requesting user belongs to the community.
	IsMember bool `gorm:"->" json:"is_member"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Community) TableName() string {
	return "communities"
}
