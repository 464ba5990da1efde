package repository

import (
	"context"
	"time"

	"quad/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository defines the interface for direct-message data operations
type ChatRepository interface {
	GetOrCreateDirectConversation(ctx context.Context, userID, recipientID uint) (*models.Conversation, bool, error)
	GetConversation(ctx context.Context, id uint) (*models.Conversation, error)
	GetUserConversations(ctx context.Context, userID uint) ([]*models.Conversation, error)
	IsParticipant(ctx context.Context, convID, userID uint) (bool, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessages(ctx context.Context, convID uint, limit, offset int) ([]*models.Message, error)
	UpdateLastRead(ctx context.Context, convID, userID uint) error
}

// chatRepository implements ChatRepository
type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// GetOrCreateDirectConversation resolves the DM thread for a (user,
// recipient) pair, creating it with both participants on first contact.
// The created flag reports whether a new thread came into being. The
// unique direct_key makes the insert race-safe: of two concurrent first
// messages, one inserts and the other adopts the inserted thread.
func (r *chatRepository) GetOrCreateDirectConversation(ctx context.Context, userID, recipientID uint) (*models.Conversation, bool, error) {
	key := models.DirectConversationKey(userID, recipientID)

	var conv models.Conversation
	err := r.db.WithContext(ctx).Where("direct_key = ?", key).First(&conv).Error
	if err == nil {
		return &conv, false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, false, err
	}

	conv = models.Conversation{DirectKey: key}
	created := false
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "direct_key"}},
			DoNothing: true,
		}).Create(&conv).Error; err != nil {
			return err
		}
		if conv.ID == 0 {
			// Lost the race; a concurrent request already made the thread.
			return tx.Where("direct_key = ?", key).First(&conv).Error
		}
		created = true
		participants := []models.ConversationParticipant{
			{ConversationID: conv.ID, UserID: userID},
			{ConversationID: conv.ID, UserID: recipientID},
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&participants).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &conv, created, nil
}

func (r *chatRepository) GetConversation(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Limit(50)
		}).
		Preload("Messages.Sender").
		First(&conv, id).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *chatRepository) GetUserConversations(ctx context.Context, userID uint) ([]*models.Conversation, error) {
	var conversations []*models.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants cp ON conversations.id = cp.conversation_id").
		Where("cp.user_id = ?", userID).
		Select("conversations.*, " +
			"(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = conversations.id " +
			"AND m.deleted_at IS NULL " +
			"AND m.sender_id <> cp.user_id " +
			"AND (cp.last_read_at IS NULL OR m.created_at > cp.last_read_at)) as unread_count").
		Preload("Participants").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Limit(1)
		}).
		Preload("Messages.Sender").
		Order("conversations.updated_at DESC").
		Find(&conversations).Error
	return conversations, err
}

func (r *chatRepository) IsParticipant(ctx context.Context, convID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *chatRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		// Bump the thread so conversation lists sort by latest activity.
		return tx.Model(&models.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Update("updated_at", time.Now().UTC()).Error
	})
}

func (r *chatRepository) GetMessages(ctx context.Context, convID uint, limit, offset int) ([]*models.Message, error) {
	var messages []*models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Preload("Sender").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Reverse messages to return them in chronological order (oldest -> newest)
	// We fetched DESC to get the *latest* messages, but client expects ASC
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *chatRepository) UpdateLastRead(ctx context.Context, convID, userID uint) error {
	return r.db.WithContext(ctx).Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Update("last_read_at", time.Now().UTC()).Error
}
