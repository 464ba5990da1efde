package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"quad/internal/models"
	"quad/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newNotificationTestApp(repo *MockNotificationRepository) (*fiber.App, *Server) {
	s := &Server{notificationRepo: repo}
	s.notificationService = service.NewNotificationService(repo)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", uint(1))
		return c.Next()
	})
	return app, s
}

func TestGetNotifications(t *testing.T) {
	repo := new(MockNotificationRepository)
	repo.On("ListForUser", mock.Anything, uint(1), 30, 0, false).
		Return([]*models.Notification{
			{ID: 1, UserID: 1, Type: models.NotificationTypeLike, Message: "liked your post"},
			{ID: 2, UserID: 1, Type: models.NotificationTypeComment, Message: "commented on your post", IsRead: true},
		}, nil)

	app, s := newNotificationTestApp(repo)
	app.Get("/notifications", s.GetNotifications)

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var items []models.Notification
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	assert.Len(t, items, 2)
}

func TestGetNotifications_UnreadOnly(t *testing.T) {
	repo := new(MockNotificationRepository)
	repo.On("ListForUser", mock.Anything, uint(1), 30, 0, true).
		Return([]*models.Notification{}, nil)

	app, s := newNotificationTestApp(repo)
	app.Get("/notifications", s.GetNotifications)

	req := httptest.NewRequest(http.MethodGet, "/notifications?unread=true", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	repo.AssertExpectations(t)
}

func TestGetUnreadNotificationCount(t *testing.T) {
	repo := new(MockNotificationRepository)
	repo.On("CountUnread", mock.Anything, uint(1)).Return(int64(4), nil)

	app, s := newNotificationTestApp(repo)
	app.Get("/notifications/unread-count", s.GetUnreadNotificationCount)

	req := httptest.NewRequest(http.MethodGet, "/notifications/unread-count", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]int64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(4), body["unread"])
}

func TestMarkNotificationRead(t *testing.T) {
	tests := []struct {
		name            string
		updated         bool
		expectedUpdated bool
	}{
		{"First read reports updated", true, true},
		{"Already read is a no-op", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockNotificationRepository)
			repo.On("MarkRead", mock.Anything, uint(1), uint(9)).Return(tt.updated, nil)

			app, s := newNotificationTestApp(repo)
			app.Post("/notifications/:id/read", s.MarkNotificationRead)

			req := httptest.NewRequest(http.MethodPost, "/notifications/9/read", nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var body map[string]bool
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.expectedUpdated, body["updated"])
		})
	}
}

func TestMarkAllNotificationsRead(t *testing.T) {
	repo := new(MockNotificationRepository)
	repo.On("MarkAllRead", mock.Anything, uint(1)).Return(int64(7), nil)

	app, s := newNotificationTestApp(repo)
	app.Post("/notifications/read-all", s.MarkAllNotificationsRead)

	req := httptest.NewRequest(http.MethodPost, "/notifications/read-all", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]int64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(7), body["updated"])
}

func TestDeleteNotification(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		repo.On("Delete", mock.Anything, uint(1), uint(9)).Return(nil)

		app, s := newNotificationTestApp(repo)
		app.Delete("/notifications/:id", s.DeleteNotification)

		req := httptest.NewRequest(http.MethodDelete, "/notifications/9", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("Not found", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		repo.On("Delete", mock.Anything, uint(1), uint(9)).
			Return(models.NewNotFoundError("Notification", uint(9)))

		app, s := newNotificationTestApp(repo)
		app.Delete("/notifications/:id", s.DeleteNotification)

		req := httptest.NewRequest(http.MethodDelete, "/notifications/9", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
