package models

import "time"

// CommunityRole defines a member's role in a community.
type CommunityRole string

const (
	// CommunityRoleAdmin can manage members, settings, and delete the community.
	CommunityRoleAdmin CommunityRole = "admin"
	// CommunityRoleMember is the default role.
	CommunityRoleMember CommunityRole = "member"
)

// CommunityMember maps users to communities and tracks role.
type CommunityMember struct {
	CommunityID uint          `gorm:"primaryKey;autoIncrement:false" json:"community_id"`
	Community   *Community    `gorm:"foreignKey:CommunityID" json:"community,omitempty"`
	UserID      uint          `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	User        *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role        CommunityRole `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (CommunityMember) TableName() string {
	return "community_members"
}
