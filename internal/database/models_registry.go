package database

import "quad/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.PostLike{},
		&models.Repost{},
		&models.Bookmark{},
		&models.Community{},
		&models.CommunityMember{},
		&models.CommunityInvitation{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.Notification{},
		&models.Donation{},
		&models.Image{},
		&models.ImageVariant{},
	}
}
