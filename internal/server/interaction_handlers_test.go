package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"quad/internal/featureflags"
	"quad/internal/models"
	"quad/internal/repository"
	"quad/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNotificationRepository is a mock of the NotificationRepository interface
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListForUser(ctx context.Context, userID uint, limit, offset int, unreadOnly bool) ([]*models.Notification, error) {
	args := m.Called(ctx, userID, limit, offset, unreadOnly)
	return args.Get(0).([]*models.Notification), args.Error(1)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, userID, notificationID uint) (bool, error) {
	args := m.Called(ctx, userID, notificationID)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) Delete(ctx context.Context, userID, notificationID uint) error {
	args := m.Called(ctx, userID, notificationID)
	return args.Error(0)
}

func newInteractionTestApp(postRepo *MockPostRepository, notifRepo *MockNotificationRepository) (*fiber.App, *Server) {
	return newInteractionTestAppWithFlags(postRepo, notifRepo, "reposts=on")
}

func newInteractionTestAppWithFlags(postRepo *MockPostRepository, notifRepo *MockNotificationRepository, flags string) (*fiber.App, *Server) {
	s := &Server{
		postRepo:         postRepo,
		notificationRepo: notifRepo,
		featureFlags:     featureflags.NewManager(flags),
	}
	s.interactionService = service.NewInteractionService(postRepo, notifRepo)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", uint(1))
		return c.Next()
	})
	app.Put("/posts/:id/interactions/:kind", s.SetInteraction)
	app.Post("/posts/:id/interactions/:kind", s.ToggleInteraction)
	app.Delete("/posts/:id/interactions/:kind", s.ClearInteraction)
	return app, s
}

func setInteractionRequest(t *testing.T, app *fiber.App, method, url string, on bool) *http.Response {
	t.Helper()
	var reqBody *bytes.Reader
	if method == http.MethodPut {
		body, _ := json.Marshal(map[string]bool{"on": on})
		reqBody = bytes.NewReader(body)
	} else {
		reqBody = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, url, reqBody)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestSetInteraction_Idempotent(t *testing.T) {
	postRepo := new(MockPostRepository)
	notifRepo := new(MockNotificationRepository)
	app, _ := newInteractionTestApp(postRepo, notifRepo)

	snapshot := &repository.InteractionSnapshot{LikesCount: 3, Liked: true}
	postRepo.On("GetByID", mock.Anything, uint(5), uint(1)).
		Return(&models.Post{ID: 5, UserID: 2}, nil)
	postRepo.On("GetInteractionSnapshot", mock.Anything, uint(5), uint(1)).
		Return(snapshot, nil)

	// First set flips state; the repeat is a no-op with the same counts.
	postRepo.On("SetInteraction", mock.Anything, models.InteractionLike, uint(1), uint(5), true).
		Return(true, nil).Once()
	postRepo.On("SetInteraction", mock.Anything, models.InteractionLike, uint(1), uint(5), true).
		Return(false, nil).Once()
	notifRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	resp := setInteractionRequest(t, app, http.MethodPut, "/posts/5/interactions/like", true)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var first service.InteractionResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&first))
	assert.True(t, first.Changed)
	assert.True(t, first.On)
	assert.Equal(t, 3, first.Counts.LikesCount)

	resp2 := setInteractionRequest(t, app, http.MethodPut, "/posts/5/interactions/like", true)
	defer func() { _ = resp2.Body.Close() }()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var second service.InteractionResult
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&second))
	assert.False(t, second.Changed, "Repeating a set must be a no-op, not an error")
	assert.Equal(t, 3, second.Counts.LikesCount)

	// Only the first, state-changing like notifies the author.
	notifRepo.AssertNumberOfCalls(t, "Create", 1)
	postRepo.AssertExpectations(t)
}

func TestSetInteraction_OwnPostDoesNotNotify(t *testing.T) {
	postRepo := new(MockPostRepository)
	notifRepo := new(MockNotificationRepository)
	app, _ := newInteractionTestApp(postRepo, notifRepo)

	postRepo.On("GetByID", mock.Anything, uint(5), uint(1)).
		Return(&models.Post{ID: 5, UserID: 1}, nil)
	postRepo.On("SetInteraction", mock.Anything, models.InteractionLike, uint(1), uint(5), true).
		Return(true, nil)
	postRepo.On("GetInteractionSnapshot", mock.Anything, uint(5), uint(1)).
		Return(&repository.InteractionSnapshot{LikesCount: 1, Liked: true}, nil)

	resp := setInteractionRequest(t, app, http.MethodPut, "/posts/5/interactions/like", true)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	notifRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSetInteraction_BookmarkIsPrivate(t *testing.T) {
	postRepo := new(MockPostRepository)
	notifRepo := new(MockNotificationRepository)
	app, _ := newInteractionTestApp(postRepo, notifRepo)

	postRepo.On("GetByID", mock.Anything, uint(5), uint(1)).
		Return(&models.Post{ID: 5, UserID: 2}, nil)
	postRepo.On("SetInteraction", mock.Anything, models.InteractionBookmark, uint(1), uint(5), true).
		Return(true, nil)
	postRepo.On("GetInteractionSnapshot", mock.Anything, uint(5), uint(1)).
		Return(&repository.InteractionSnapshot{BookmarksCount: 1, Bookmarked: true}, nil)

	resp := setInteractionRequest(t, app, http.MethodPut, "/posts/5/interactions/bookmark", true)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Bookmarks never notify the author.
	notifRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestToggleInteraction(t *testing.T) {
	postRepo := new(MockPostRepository)
	notifRepo := new(MockNotificationRepository)
	app, _ := newInteractionTestApp(postRepo, notifRepo)

	postRepo.On("HasInteraction", mock.Anything, models.InteractionRepost, uint(1), uint(5)).
		Return(true, nil)
	postRepo.On("GetByID", mock.Anything, uint(5), uint(1)).
		Return(&models.Post{ID: 5, UserID: 2}, nil)
	postRepo.On("SetInteraction", mock.Anything, models.InteractionRepost, uint(1), uint(5), false).
		Return(true, nil)
	postRepo.On("GetInteractionSnapshot", mock.Anything, uint(5), uint(1)).
		Return(&repository.InteractionSnapshot{RepostsCount: 0}, nil)

	resp := setInteractionRequest(t, app, http.MethodPost, "/posts/5/interactions/repost", false)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result service.InteractionResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.False(t, result.On, "Toggle flips the currently-on state off")
	postRepo.AssertExpectations(t)
}

func TestClearInteraction(t *testing.T) {
	postRepo := new(MockPostRepository)
	notifRepo := new(MockNotificationRepository)
	app, _ := newInteractionTestApp(postRepo, notifRepo)

	postRepo.On("GetByID", mock.Anything, uint(5), uint(1)).
		Return(&models.Post{ID: 5, UserID: 2}, nil)
	postRepo.On("SetInteraction", mock.Anything, models.InteractionLike, uint(1), uint(5), false).
		Return(false, nil)
	postRepo.On("GetInteractionSnapshot", mock.Anything, uint(5), uint(1)).
		Return(&repository.InteractionSnapshot{}, nil)

	resp := setInteractionRequest(t, app, http.MethodDelete, "/posts/5/interactions/like", false)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result service.InteractionResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.False(t, result.On)
	assert.False(t, result.Changed, "Clearing an absent interaction is a no-op")
}

func TestRepostRolloutGate(t *testing.T) {
	t.Run("creating a repost outside the cohort is rejected", func(t *testing.T) {
		postRepo := new(MockPostRepository)
		app, _ := newInteractionTestAppWithFlags(postRepo, new(MockNotificationRepository), "reposts=off")

		resp := setInteractionRequest(t, app, http.MethodPut, "/posts/5/interactions/repost", true)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		postRepo.AssertNotCalled(t, "SetInteraction", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("clearing an existing repost still works", func(t *testing.T) {
		postRepo := new(MockPostRepository)
		app, _ := newInteractionTestAppWithFlags(postRepo, new(MockNotificationRepository), "reposts=off")

		postRepo.On("GetByID", mock.Anything, uint(5), uint(1)).
			Return(&models.Post{ID: 5, UserID: 2}, nil)
		postRepo.On("SetInteraction", mock.Anything, models.InteractionRepost, uint(1), uint(5), false).
			Return(true, nil)
		postRepo.On("GetInteractionSnapshot", mock.Anything, uint(5), uint(1)).
			Return(&repository.InteractionSnapshot{}, nil)

		resp := setInteractionRequest(t, app, http.MethodDelete, "/posts/5/interactions/repost", false)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		postRepo.AssertExpectations(t)
	})

	t.Run("toggle may only turn an existing repost off", func(t *testing.T) {
		postRepo := new(MockPostRepository)
		app, _ := newInteractionTestAppWithFlags(postRepo, new(MockNotificationRepository), "reposts=off")

		postRepo.On("HasInteraction", mock.Anything, models.InteractionRepost, uint(1), uint(5)).
			Return(false, nil).Once()

		resp := setInteractionRequest(t, app, http.MethodPost, "/posts/5/interactions/repost", false)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		postRepo.AssertNotCalled(t, "SetInteraction", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("likes are not gated", func(t *testing.T) {
		postRepo := new(MockPostRepository)
		app, _ := newInteractionTestAppWithFlags(postRepo, new(MockNotificationRepository), "reposts=off")

		postRepo.On("GetByID", mock.Anything, uint(5), uint(1)).
			Return(&models.Post{ID: 5, UserID: 1}, nil)
		postRepo.On("SetInteraction", mock.Anything, models.InteractionLike, uint(1), uint(5), true).
			Return(true, nil)
		postRepo.On("GetInteractionSnapshot", mock.Anything, uint(5), uint(1)).
			Return(&repository.InteractionSnapshot{LikesCount: 1, Liked: true}, nil)

		resp := setInteractionRequest(t, app, http.MethodPut, "/posts/5/interactions/like", true)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestSetInteraction_UnknownKind(t *testing.T) {
	postRepo := new(MockPostRepository)
	notifRepo := new(MockNotificationRepository)
	app, _ := newInteractionTestApp(postRepo, notifRepo)

	resp := setInteractionRequest(t, app, http.MethodPut, "/posts/5/interactions/boost", true)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
