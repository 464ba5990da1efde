package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"quad/internal/models"
	"quad/internal/notifications"
	"quad/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockChatRepository is a mock of the ChatRepository interface
type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) GetOrCreateDirectConversation(ctx context.Context, userID, recipientID uint) (*models.Conversation, bool, error) {
	args := m.Called(ctx, userID, recipientID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Conversation), args.Bool(1), args.Error(2)
}

func (m *MockChatRepository) GetConversation(ctx context.Context, id uint) (*models.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockChatRepository) GetUserConversations(ctx context.Context, userID uint) ([]*models.Conversation, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*models.Conversation), args.Error(1)
}

func (m *MockChatRepository) IsParticipant(ctx context.Context, convID, userID uint) (bool, error) {
	args := m.Called(ctx, convID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockChatRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	if args.Error(0) == nil && msg.ID == 0 {
		msg.ID = 1
	}
	return args.Error(0)
}

func (m *MockChatRepository) GetMessages(ctx context.Context, convID uint, limit, offset int) ([]*models.Message, error) {
	args := m.Called(ctx, convID, limit, offset)
	return args.Get(0).([]*models.Message), args.Error(1)
}

func (m *MockChatRepository) UpdateLastRead(ctx context.Context, convID, userID uint) error {
	args := m.Called(ctx, convID, userID)
	return args.Error(0)
}

func newChatTestApp(chatRepo *MockChatRepository, userRepo *MockUserRepository) (*fiber.App, *Server) {
	s := &Server{chatRepo: chatRepo, userRepo: userRepo}
	s.chatService = service.NewChatService(chatRepo, userRepo)
	s.userService = service.NewUserService(userRepo)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", uint(1))
		return c.Next()
	})
	return app, s
}

func directConversation(id uint, userIDs ...uint) *models.Conversation {
	conv := &models.Conversation{ID: id}
	for _, uid := range userIDs {
		conv.Participants = append(conv.Participants, models.User{ID: uid})
	}
	return conv
}

func TestCreateConversation(t *testing.T) {
	t.Run("New conversation returns 201", func(t *testing.T) {
		chatRepo := new(MockChatRepository)
		userRepo := new(MockUserRepository)
		userRepo.On("GetByID", mock.Anything, uint(2)).Return(&models.User{ID: 2}, nil)
		chatRepo.On("GetOrCreateDirectConversation", mock.Anything, uint(1), uint(2)).
			Return(directConversation(10, 1, 2), true, nil)

		app, s := newChatTestApp(chatRepo, userRepo)
		app.Post("/conversations", s.CreateConversation)

		body, _ := json.Marshal(map[string]uint{"recipient_id": 2})
		req := httptest.NewRequest(http.MethodPost, "/conversations", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("Existing conversation returns 200", func(t *testing.T) {
		chatRepo := new(MockChatRepository)
		userRepo := new(MockUserRepository)
		userRepo.On("GetByID", mock.Anything, uint(2)).Return(&models.User{ID: 2}, nil)
		chatRepo.On("GetOrCreateDirectConversation", mock.Anything, uint(1), uint(2)).
			Return(directConversation(10, 1, 2), false, nil)

		app, s := newChatTestApp(chatRepo, userRepo)
		app.Post("/conversations", s.CreateConversation)

		body, _ := json.Marshal(map[string]uint{"recipient_id": 2})
		req := httptest.NewRequest(http.MethodPost, "/conversations", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Self conversation is rejected", func(t *testing.T) {
		app, s := newChatTestApp(new(MockChatRepository), new(MockUserRepository))
		app.Post("/conversations", s.CreateConversation)

		body, _ := json.Marshal(map[string]uint{"recipient_id": 1})
		req := httptest.NewRequest(http.MethodPost, "/conversations", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Opening message starts the chat", func(t *testing.T) {
		chatRepo := new(MockChatRepository)
		userRepo := new(MockUserRepository)
		userRepo.On("GetByID", mock.Anything, uint(2)).Return(&models.User{ID: 2}, nil)
		chatRepo.On("GetOrCreateDirectConversation", mock.Anything, uint(1), uint(2)).
			Return(directConversation(10, 1, 2), true, nil)
		chatRepo.On("CreateMessage", mock.Anything, mock.Anything).Return(nil)
		chatRepo.On("UpdateLastRead", mock.Anything, uint(10), uint(1)).Return(nil)

		app, s := newChatTestApp(chatRepo, userRepo)
		app.Post("/conversations", s.CreateConversation)

		body, _ := json.Marshal(map[string]interface{}{"recipient_id": 2, "content": "hey, study group tonight?"})
		req := httptest.NewRequest(http.MethodPost, "/conversations", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var respBody struct {
			ConversationCreated bool `json:"conversation_created"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&respBody))
		assert.True(t, respBody.ConversationCreated)
		chatRepo.AssertExpectations(t)
	})
}

func TestSendMessage(t *testing.T) {
	chatRepo := new(MockChatRepository)
	userRepo := new(MockUserRepository)
	chatRepo.On("IsParticipant", mock.Anything, uint(10), uint(1)).Return(true, nil)
	chatRepo.On("GetConversation", mock.Anything, uint(10)).
		Return(directConversation(10, 1, 2), nil)
	userRepo.On("GetByID", mock.Anything, uint(2)).Return(&models.User{ID: 2}, nil)
	chatRepo.On("GetOrCreateDirectConversation", mock.Anything, uint(1), uint(2)).
		Return(directConversation(10, 1, 2), false, nil)
	chatRepo.On("CreateMessage", mock.Anything, mock.Anything).Return(nil)
	chatRepo.On("UpdateLastRead", mock.Anything, uint(10), uint(1)).Return(nil)

	app, s := newChatTestApp(chatRepo, userRepo)

	// Both participants' user topics receive the message event.
	s.hub = notifications.NewHub()
	sender := notifications.NewClient(s.hub, nil, 1)
	recipient := notifications.NewClient(s.hub, nil, 2)
	s.hub.Subscribe(sender, notifications.UserTopic(1))
	s.hub.Subscribe(recipient, notifications.UserTopic(2))

	app.Post("/conversations/:id/messages", s.SendMessage)

	body, _ := json.Marshal(map[string]string{"content": "lab report due friday"})
	req := httptest.NewRequest(http.MethodPost, "/conversations/10/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var respBody struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&respBody))
	assert.Equal(t, "lab report due friday", respBody.Message.Content)

	for name, client := range map[string]*notifications.Client{"sender": sender, "recipient": recipient} {
		select {
		case raw := <-client.Send:
			var event notifications.Event
			require.NoError(t, json.Unmarshal(raw, &event))
			assert.Equal(t, EventMessageReceived, event.Type, "%s should see the message event", name)
		default:
			t.Fatalf("expected a message_received event for the %s", name)
		}
	}
	chatRepo.AssertExpectations(t)
}

func TestSendMessage_NotParticipant(t *testing.T) {
	chatRepo := new(MockChatRepository)
	chatRepo.On("IsParticipant", mock.Anything, uint(10), uint(1)).Return(false, nil)

	app, s := newChatTestApp(chatRepo, new(MockUserRepository))
	app.Post("/conversations/:id/messages", s.SendMessage)

	body, _ := json.Marshal(map[string]string{"content": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/conversations/10/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	chatRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestGetMessages(t *testing.T) {
	chatRepo := new(MockChatRepository)
	chatRepo.On("IsParticipant", mock.Anything, uint(10), uint(1)).Return(true, nil)
	chatRepo.On("GetMessages", mock.Anything, uint(10), 50, 0).
		Return([]*models.Message{
			{ID: 1, ConversationID: 10, SenderID: 2, Content: "hi"},
			{ID: 2, ConversationID: 10, SenderID: 1, Content: "hey"},
		}, nil)

	app, s := newChatTestApp(chatRepo, new(MockUserRepository))
	app.Get("/conversations/:id/messages", s.GetMessages)

	req := httptest.NewRequest(http.MethodGet, "/conversations/10/messages", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var messages []models.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&messages))
	assert.Len(t, messages, 2)
}

func TestMarkConversationRead(t *testing.T) {
	chatRepo := new(MockChatRepository)
	chatRepo.On("IsParticipant", mock.Anything, uint(10), uint(1)).Return(true, nil)
	chatRepo.On("UpdateLastRead", mock.Anything, uint(10), uint(1)).Return(nil)

	app, s := newChatTestApp(chatRepo, new(MockUserRepository))
	app.Post("/conversations/:id/read", s.MarkConversationRead)

	req := httptest.NewRequest(http.MethodPost, "/conversations/10/read", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	chatRepo.AssertExpectations(t)
}
