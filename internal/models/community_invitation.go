package models

import "time"

// InvitationStatus defines lifecycle states for community invitations.
type InvitationStatus string

const (
	// InvitationStatusPending indicates the invitation awaits a response.
	InvitationStatusPending InvitationStatus = "pending"
	// InvitationStatusAccepted indicates the invitee joined.
	InvitationStatusAccepted InvitationStatus = "accepted"
	// InvitationStatusDeclined indicates the invitee declined.
	InvitationStatusDeclined InvitationStatus = "declined"
)

// CommunityInvitation is how users enter private communities.
type CommunityInvitation struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	CommunityID   uint             `gorm:"not null;index" json:"community_id"`
	Community     *Community       `gorm:"foreignKey:CommunityID" json:"community,omitempty"`
	InviterUserID uint             `gorm:"not null" json:"inviter_user_id"`
	InviterUser   *User            `gorm:"foreignKey:InviterUserID" json:"inviter_user,omitempty"`
	InviteeUserID uint             `gorm:"not null;index" json:"invitee_user_id"`
	InviteeUser   *User            `gorm:"foreignKey:InviteeUserID" json:"invitee_user,omitempty"`
	Status        InvitationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (CommunityInvitation) TableName() string {
	return "community_invitations"
}
