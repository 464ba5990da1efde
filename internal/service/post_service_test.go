package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"quad/internal/models"
	"quad/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn                 func(context.Context, *models.Post) error
	getByIDFn                func(context.Context, uint, uint) (*models.Post, error)
	getByUserIDFn            func(context.Context, uint, int, int, uint) ([]*models.Post, error)
	getByCommunityIDFn       func(context.Context, uint, int, int, uint, string) ([]*models.Post, error)
	listFn                   func(context.Context, int, int, uint, string, string) ([]*models.Post, error)
	listBookmarkedFn         func(context.Context, uint, int, int) ([]*models.Post, error)
	searchFn                 func(context.Context, string, int, int, uint) ([]*models.Post, error)
	updateFn                 func(context.Context, *models.Post) error
	deleteFn                 func(context.Context, uint) error
	setInteractionFn         func(context.Context, models.InteractionKind, uint, uint, bool) (bool, error)
	hasInteractionFn         func(context.Context, models.InteractionKind, uint, uint) (bool, error)
	getInteractionSnapshotFn func(context.Context, uint, uint) (*repository.InteractionSnapshot, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id, currentUserID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, currentUserID)
}
func (s *postRepoStub) GetByUserID(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.getByUserIDFn(ctx, userID, limit, offset, currentUserID)
}
func (s *postRepoStub) GetByCommunityID(ctx context.Context, communityID uint, limit, offset int, currentUserID uint, sort string) ([]*models.Post, error) {
	return s.getByCommunityIDFn(ctx, communityID, limit, offset, currentUserID, sort)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int, currentUserID uint, sort, category string) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset, currentUserID, sort, category)
}
func (s *postRepoStub) ListBookmarked(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	return s.listBookmarkedFn(ctx, userID, limit, offset)
}
func (s *postRepoStub) Search(ctx context.Context, query string, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.searchFn(ctx, query, limit, offset, currentUserID)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) SetInteraction(ctx context.Context, kind models.InteractionKind, userID, postID uint, on bool) (bool, error) {
	return s.setInteractionFn(ctx, kind, userID, postID, on)
}
func (s *postRepoStub) HasInteraction(ctx context.Context, kind models.InteractionKind, userID, postID uint) (bool, error) {
	return s.hasInteractionFn(ctx, kind, userID, postID)
}
func (s *postRepoStub) GetInteractionSnapshot(ctx context.Context, postID, currentUserID uint) (*repository.InteractionSnapshot, error) {
	return s.getInteractionSnapshotFn(ctx, postID, currentUserID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:  func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, _, _ uint) (*models.Post, error) { return &models.Post{}, nil },
		getByUserIDFn: func(_ context.Context, _ uint, _, _ int, _ uint) ([]*models.Post, error) {
			return nil, nil
		},
		getByCommunityIDFn: func(_ context.Context, _ uint, _, _ int, _ uint, _ string) ([]*models.Post, error) {
			return nil, nil
		},
		listFn: func(_ context.Context, _, _ int, _ uint, _, _ string) ([]*models.Post, error) {
			return nil, nil
		},
		listBookmarkedFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Post, error) { return nil, nil },
		searchFn: func(_ context.Context, _ string, _, _ int, _ uint) ([]*models.Post, error) {
			return nil, nil
		},
		updateFn: func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn: func(_ context.Context, _ uint) error { return nil },
		setInteractionFn: func(_ context.Context, _ models.InteractionKind, _, _ uint, _ bool) (bool, error) {
			return true, nil
		},
		hasInteractionFn: func(_ context.Context, _ models.InteractionKind, _, _ uint) (bool, error) {
			return false, nil
		},
		getInteractionSnapshotFn: func(_ context.Context, _, _ uint) (*repository.InteractionSnapshot, error) {
			return &repository.InteractionSnapshot{}, nil
		},
	}
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, models.ErrCodeValidation, appErr.Code)
}

// assertUnauthorizedError asserts that err is an AppError with code UNAUTHORIZED.
func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, models.ErrCodeUnauthorized, appErr.Code)
}

// assertConflictError asserts that err is an AppError with code CONFLICT.
func assertConflictError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, models.ErrCodeConflict, appErr.Code)
}

// assertNotFoundError asserts that err is an AppError with code NOT_FOUND.
func assertNotFoundError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, models.ErrCodeNotFound, appErr.Code)
}

func TestPostService_CreatePost_Validation(t *testing.T) {
	t.Parallel()

	svc := NewPostService(noopPostRepo(), noopCommunityRepo(), nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreatePostInput
	}{
		{
			name:  "empty content",
			input: CreatePostInput{UserID: 1},
		},
		{
			name:  "whitespace content",
			input: CreatePostInput{UserID: 1, Content: "   "},
		},
		{
			name:  "content too long",
			input: CreatePostInput{UserID: 1, Content: strings.Repeat("x", 10001)},
		},
		{
			name:  "unknown category",
			input: CreatePostInput{UserID: 1, Content: "hi", Category: "gossip"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.CreatePost(ctx, tt.input)
			assertValidationError(t, err)
		})
	}
}

func TestPostService_CreatePost_DefaultsCategory(t *testing.T) {
	t.Parallel()

	var created *models.Post
	postRepo := noopPostRepo()
	postRepo.createFn = func(_ context.Context, p *models.Post) error {
		p.ID = 7
		created = p
		return nil
	}
	postRepo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return &models.Post{ID: id}, nil
	}

	svc := NewPostService(postRepo, noopCommunityRepo(), nil)
	post, err := svc.CreatePost(context.Background(), CreatePostInput{UserID: 1, Content: "hello campus"})
	require.NoError(t, err)
	assert.Equal(t, uint(7), post.ID)
	require.NotNil(t, created)
	assert.Equal(t, models.PostCategoryGeneral, created.Category)
}

func TestPostService_CreatePost_AnonymousGetsName(t *testing.T) {
	t.Parallel()

	var created *models.Post
	postRepo := noopPostRepo()
	postRepo.createFn = func(_ context.Context, p *models.Post) error {
		created = p
		return nil
	}

	svc := NewPostService(postRepo, noopCommunityRepo(), nil)
	_, err := svc.CreatePost(context.Background(), CreatePostInput{
		UserID:      1,
		Content:     "confession time",
		Category:    models.PostCategoryConfession,
		IsAnonymous: true,
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.True(t, created.IsAnonymous)
	assert.NotEmpty(t, created.AnonymousName)
}

func TestPostService_CreatePost_CommunityMembershipRequired(t *testing.T) {
	t.Parallel()

	communityID := uint(3)

	t.Run("non-member rejected", func(t *testing.T) {
		t.Parallel()
		communityRepo := noopCommunityRepo()
		communityRepo.getMemberFn = func(_ context.Context, _, _ uint) (*models.CommunityMember, error) {
			return nil, nil
		}
		svc := NewPostService(noopPostRepo(), communityRepo, nil)
		_, err := svc.CreatePost(context.Background(), CreatePostInput{
			UserID:      1,
			Content:     "hi",
			CommunityID: &communityID,
		})
		assertUnauthorizedError(t, err)
	})

	t.Run("member allowed", func(t *testing.T) {
		t.Parallel()
		communityRepo := noopCommunityRepo()
		communityRepo.getMemberFn = func(_ context.Context, cid, uid uint) (*models.CommunityMember, error) {
			return &models.CommunityMember{CommunityID: cid, UserID: uid}, nil
		}
		svc := NewPostService(noopPostRepo(), communityRepo, nil)
		_, err := svc.CreatePost(context.Background(), CreatePostInput{
			UserID:      1,
			Content:     "hi",
			CommunityID: &communityID,
		})
		require.NoError(t, err)
	})
}

func TestPostService_DeletePost_Ownership(t *testing.T) {
	t.Parallel()

	ownerPost := func(_ context.Context, _, _ uint) (*models.Post, error) {
		return &models.Post{ID: 1, UserID: 10}, nil
	}

	t.Run("owner can delete", func(t *testing.T) {
		t.Parallel()
		postRepo := noopPostRepo()
		postRepo.getByIDFn = ownerPost
		svc := NewPostService(postRepo, noopCommunityRepo(), nil)
		err := svc.DeletePost(context.Background(), DeletePostInput{UserID: 10, PostID: 1})
		require.NoError(t, err)
	})

	t.Run("non-owner without admin check rejected", func(t *testing.T) {
		t.Parallel()
		postRepo := noopPostRepo()
		postRepo.getByIDFn = ownerPost
		svc := NewPostService(postRepo, noopCommunityRepo(), nil)
		err := svc.DeletePost(context.Background(), DeletePostInput{UserID: 2, PostID: 1})
		assertUnauthorizedError(t, err)
	})

	t.Run("admin can delete another user's post", func(t *testing.T) {
		t.Parallel()
		postRepo := noopPostRepo()
		postRepo.getByIDFn = ownerPost
		isAdmin := func(_ context.Context, _ uint) (bool, error) { return true, nil }
		svc := NewPostService(postRepo, noopCommunityRepo(), isAdmin)
		err := svc.DeletePost(context.Background(), DeletePostInput{UserID: 2, PostID: 1})
		require.NoError(t, err)
	})

	t.Run("non-admin rejected", func(t *testing.T) {
		t.Parallel()
		postRepo := noopPostRepo()
		postRepo.getByIDFn = ownerPost
		isAdmin := func(_ context.Context, _ uint) (bool, error) { return false, nil }
		svc := NewPostService(postRepo, noopCommunityRepo(), isAdmin)
		err := svc.DeletePost(context.Background(), DeletePostInput{UserID: 2, PostID: 1})
		assertUnauthorizedError(t, err)
	})
}

func TestPostService_SearchPosts_RequiresQuery(t *testing.T) {
	t.Parallel()

	svc := NewPostService(noopPostRepo(), noopCommunityRepo(), nil)
	_, err := svc.SearchPosts(context.Background(), "  ", 20, 0, 1)
	assertValidationError(t, err)
}

func TestExtractImageHash(t *testing.T) {
	t.Parallel()

	hash := strings.Repeat("ab", 32)

	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "empty", url: "", want: ""},
		{name: "media path", url: "/media/i/" + hash + "/640.webp", want: hash},
		{name: "absolute url", url: "https://quad.example.edu/media/i/" + hash + "/master.jpg", want: hash},
		{name: "not a media path", url: "/uploads/foo.png", want: ""},
		{name: "short hash rejected", url: "/media/i/abc123/640.webp", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, extractImageHash(tt.url))
		})
	}
}
