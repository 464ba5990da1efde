// Package service provides application business logic (posts, communities,
// chat, notifications, etc.).
package service

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strings"

	"quad/internal/cache"
	"quad/internal/models"
	"quad/internal/repository"
)

type PostService struct {
	postRepo      repository.PostRepository
	communityRepo repository.CommunityRepository
	isAdmin       func(ctx context.Context, userID uint) (bool, error)
}

type CreatePostInput struct {
	UserID      uint
	Content     string
	Category    string
	ImageURL    string
	IsAnonymous bool
	CommunityID *uint
}

type ListPostsInput struct {
	Limit         int
	Offset        int
	CurrentUserID uint
	Sort          string
	Category      string
	CommunityID   *uint
}

type UpdatePostInput struct {
	UserID   uint
	PostID   uint
	Content  string
	Category string
	ImageURL string
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

func NewPostService(
	postRepo repository.PostRepository,
	communityRepo repository.CommunityRepository,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *PostService {
	return &PostService{
		postRepo:      postRepo,
		communityRepo: communityRepo,
		isAdmin:       isAdmin,
	}
}

const maxPostContentLen = 10000 // 10K characters

var validPostCategories = map[string]bool{
	models.PostCategoryGeneral:    true,
	models.PostCategoryAcademic:   true,
	models.PostCategoryEvents:     true,
	models.PostCategoryMarket:     true,
	models.PostCategoryConfession: true,
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	category := in.Category
	if category == "" {
		category = models.PostCategoryGeneral
	}
	if !validPostCategories[category] {
		return nil, models.NewValidationError("Invalid category")
	}

	if strings.TrimSpace(in.Content) == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(in.Content) > maxPostContentLen {
		return nil, models.NewValidationError("Content too long (max 10000 characters)")
	}

	if in.CommunityID != nil {
		member, err := s.communityRepo.GetMember(ctx, *in.CommunityID, in.UserID)
		if err != nil {
			return nil, err
		}
		if member == nil {
			return nil, models.NewUnauthorizedError("You must be a member to post in this community")
		}
	}

	post := &models.Post{
		Content:     in.Content,
		Category:    category,
		ImageURL:    in.ImageURL,
		ImageHash:   extractImageHash(in.ImageURL),
		IsAnonymous: in.IsAnonymous,
		UserID:      in.UserID,
		CommunityID: in.CommunityID,
	}
	if in.IsAnonymous {
		post.AnonymousName = generateAnonymousName()
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	if in.CommunityID != nil {
		return s.postRepo.GetByCommunityID(ctx, *in.CommunityID, in.Limit, in.Offset, in.CurrentUserID, in.Sort)
	}

	// The anonymous first page of the campus feed is the hottest read, so
	// it is served from cache. Viewer flags are per-user and would poison a
	// shared entry, so any signed-in or filtered request goes to the source.
	if in.CurrentUserID == 0 && in.Offset == 0 && in.Limit <= 20 && in.Category == "" && (in.Sort == "" || in.Sort == "new") {
		var posts []*models.Post
		key := cache.PostsListKey()
		err := cache.Aside(ctx, key, &posts, cache.ListTTL, func() error {
			var fetchErr error
			posts, fetchErr = s.postRepo.List(ctx, in.Limit, in.Offset, 0, in.Sort, in.Category)
			return fetchErr
		})
		if err != nil {
			return nil, err
		}
		return posts, nil
	}

	return s.postRepo.List(ctx, in.Limit, in.Offset, in.CurrentUserID, in.Sort, in.Category)
}

func (s *PostService) GetPost(ctx context.Context, id uint, currentUserID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id, currentUserID)
}

func (s *PostService) GetUserPosts(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.postRepo.GetByUserID(ctx, userID, limit, offset, currentUserID)
}

func (s *PostService) GetBookmarkedPosts(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	return s.postRepo.ListBookmarked(ctx, userID, limit, offset)
}

func (s *PostService) SearchPosts(ctx context.Context, query string, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	return s.postRepo.Search(ctx, query, limit, offset, currentUserID)
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}

	if post.UserID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only update your own posts")
	}

	if in.Content != "" {
		if len(in.Content) > maxPostContentLen {
			return nil, models.NewValidationError("Content too long (max 10000 characters)")
		}
		post.Content = in.Content
	}
	if in.Category != "" {
		if !validPostCategories[in.Category] {
			return nil, models.NewValidationError("Invalid category")
		}
		post.Category = in.Category
	}
	if in.ImageURL != "" {
		post.ImageURL = in.ImageURL
		post.ImageHash = extractImageHash(in.ImageURL)
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return err
	}

	if post.UserID != in.UserID {
		if s.isAdmin == nil {
			return models.NewUnauthorizedError("You can only delete your own posts")
		}
		admin, err := s.isAdmin(ctx, in.UserID)
		if err != nil {
			return err
		}
		if !admin {
			return models.NewUnauthorizedError("You can only delete your own posts")
		}
	}

	return s.postRepo.Delete(ctx, in.PostID)
}

var (
	anonymousAdjectives = []string{
		"Quiet", "Curious", "Sleepy", "Caffeinated", "Wandering",
		"Studious", "Nocturnal", "Hungry", "Brave", "Lost",
	}
	anonymousNouns = []string{
		"Owl", "Badger", "Fox", "Raccoon", "Heron",
		"Squirrel", "Moth", "Otter", "Finch", "Newt",
	}
)

// generateAnonymousName picks a display name for an anonymous post. The name
// is stored on the post so it stays stable across reads.
func generateAnonymousName() string {
	adj := anonymousAdjectives[rand.Intn(len(anonymousAdjectives))]
	noun := anonymousNouns[rand.Intn(len(anonymousNouns))]
	return fmt.Sprintf("%s %s", adj, noun)
}

func extractImageHash(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ""
	}

	path := trimmed
	if parsed, err := url.Parse(trimmed); err == nil && parsed.Path != "" {
		path = parsed.Path
	}

	if strings.HasPrefix(path, "/media/i/") {
		parts := strings.Split(strings.TrimPrefix(path, "/media/i/"), "/")
		if len(parts) > 0 && isLikelySHA256(parts[0]) {
			return parts[0]
		}
	}
	return ""
}

func isLikelySHA256(v string) bool {
	if len(v) != 64 {
		return false
	}
	for _, r := range v {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
