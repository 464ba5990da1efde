package service

import (
	"context"

	"quad/internal/models"
	"quad/internal/repository"
)

// ChatService provides direct-message business logic. Threads are resolved
// lazily: sending to a recipient finds or creates the conversation, so the
// client never creates a thread explicitly.
type ChatService struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
}

type SendMessageInput struct {
	SenderID    uint
	RecipientID uint
	Content     string
}

// SendMessageResult carries the stored message, its conversation, and
// whether the conversation was created by this send.
type SendMessageResult struct {
	Message             *models.Message
	Conversation        *models.Conversation
	ConversationCreated bool
}

func NewChatService(chatRepo repository.ChatRepository, userRepo repository.UserRepository) *ChatService {
	return &ChatService{chatRepo: chatRepo, userRepo: userRepo}
}

const maxMessageContentLen = 5000

func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageResult, error) {
	if in.Content == "" {
		return nil, models.NewValidationError("Message content is required")
	}
	if len(in.Content) > maxMessageContentLen {
		return nil, models.NewValidationError("Message content too long (max 5000 characters)")
	}
	if in.SenderID == in.RecipientID {
		return nil, models.NewValidationError("You cannot message yourself")
	}

	recipient, err := s.userRepo.GetByID(ctx, in.RecipientID)
	if err != nil {
		return nil, err
	}

	conv, created, err := s.chatRepo.GetOrCreateDirectConversation(ctx, in.SenderID, recipient.ID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       in.SenderID,
		Content:        in.Content,
	}
	if err := s.chatRepo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	// The sender has read everything up to their own message.
	if err := s.chatRepo.UpdateLastRead(ctx, conv.ID, in.SenderID); err != nil {
		return nil, err
	}

	return &SendMessageResult{
		Message:             msg,
		Conversation:        conv,
		ConversationCreated: created,
	}, nil
}

func (s *ChatService) GetConversations(ctx context.Context, userID uint) ([]*models.Conversation, error) {
	return s.chatRepo.GetUserConversations(ctx, userID)
}

func (s *ChatService) GetConversationForUser(ctx context.Context, convID, userID uint) (*models.Conversation, error) {
	ok, err := s.chatRepo.IsParticipant(ctx, convID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewUnauthorizedError("You are not a participant in this conversation")
	}
	return s.chatRepo.GetConversation(ctx, convID)
}

func (s *ChatService) GetMessages(ctx context.Context, convID, userID uint, limit, offset int) ([]*models.Message, error) {
	ok, err := s.chatRepo.IsParticipant(ctx, convID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewUnauthorizedError("You are not a participant in this conversation")
	}
	return s.chatRepo.GetMessages(ctx, convID, limit, offset)
}

// MarkRead advances the participant's read pointer to now. Unread counts
// are derived from it on the next read.
func (s *ChatService) MarkRead(ctx context.Context, convID, userID uint) error {
	ok, err := s.chatRepo.IsParticipant(ctx, convID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewUnauthorizedError("You are not a participant in this conversation")
	}
	return s.chatRepo.UpdateLastRead(ctx, convID, userID)
}

// RecipientOf returns the other participant's user ID in a direct
// conversation, or 0 if it cannot be determined.
func RecipientOf(conv *models.Conversation, senderID uint) uint {
	if conv == nil {
		return 0
	}
	for _, p := range conv.Participants {
		if p.ID != senderID {
			return p.ID
		}
	}
	return 0
}
