package repository

import (
	"context"
	"fmt"
	"strings"

	"quad/internal/cache"
	"quad/internal/models"

	"gorm.io/gorm"
)

// InteractionSnapshot is the authoritative post-toggle read: every count is
// an aggregate over its join table, never an adjusted cached value.
type InteractionSnapshot struct {
	LikesCount     int  `json:"likes_count"`
	RepostsCount   int  `json:"reposts_count"`
	BookmarksCount int  `json:"bookmarks_count"`
	CommentsCount  int  `json:"comments_count"`
	Liked          bool `json:"liked"`
	Reposted       bool `json:"reposted"`
	Bookmarked     bool `json:"bookmarked"`
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Post, error)
	GetByUserID(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error)
	GetByCommunityID(ctx context.Context, communityID uint, limit, offset int, currentUserID uint, sort string) ([]*models.Post, error)
	List(ctx context.Context, limit, offset int, currentUserID uint, sort, category string) ([]*models.Post, error)
	ListBookmarked(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error)
	Search(ctx context.Context, query string, limit, offset int, currentUserID uint) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	SetInteraction(ctx context.Context, kind models.InteractionKind, userID, postID uint, on bool) (changed bool, err error)
	HasInteraction(ctx context.Context, kind models.InteractionKind, userID, postID uint) (bool, error)
	GetInteractionSnapshot(ctx context.Context, postID, currentUserID uint) (*InteractionSnapshot, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Create(post).Error
	if err == nil {
		cache.InvalidatePostsList(ctx)
	}
	return err
}

func (r *postRepository) GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Post, error) {
	var post models.Post
	key := cache.PostKey(id)

	var err error
	if currentUserID == 0 {
		// Anonymous reads carry no per-viewer flags, so they are cacheable.
		err = cache.Aside(ctx, key, &post, cache.PostTTL, func() error {
			return r.applyPostDetails(r.db.WithContext(ctx), 0).
				Preload("User").
				Preload("Community").
				First(&post, id).Error
		})
	} else {
		err = r.applyPostDetails(r.db.WithContext(ctx), currentUserID).
			Preload("User").
			Preload("Community").
			First(&post, id).Error
	}

	if err != nil {
		return nil, err
	}
	if err := r.enrichImageMetadata(ctx, []*models.Post{&post}); err != nil {
		return nil, err
	}

	return &post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), currentUserID).
		Preload("User").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	if enrichErr := r.enrichImageMetadata(ctx, posts); enrichErr != nil {
		return nil, enrichErr
	}
	return posts, nil
}

func (r *postRepository) GetByCommunityID(ctx context.Context, communityID uint, limit, offset int, currentUserID uint, sort string) ([]*models.Post, error) {
	var posts []*models.Post
	base := r.applyPostDetails(r.db.WithContext(ctx), currentUserID).
		Preload("User").
		Where("community_id = ?", communityID)
	err := r.applySort(base, sort).
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	if enrichErr := r.enrichImageMetadata(ctx, posts); enrichErr != nil {
		return nil, enrichErr
	}
	return posts, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int, currentUserID uint, sort, category string) ([]*models.Post, error) {
	var posts []*models.Post
	base := r.applyPostDetails(r.db.WithContext(ctx), currentUserID).
		Preload("User").
		Preload("Community")
	if category != "" {
		base = base.Where("category = ?", category)
	}
	err := r.applySort(base, sort).
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	if enrichErr := r.enrichImageMetadata(ctx, posts); enrichErr != nil {
		return nil, enrichErr
	}
	return posts, nil
}

func (r *postRepository) ListBookmarked(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), userID).
		Preload("User").
		Joins("JOIN bookmarks ON bookmarks.post_id = posts.id").
		Where("bookmarks.user_id = ?", userID).
		Order("bookmarks.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	if enrichErr := r.enrichImageMetadata(ctx, posts); enrichErr != nil {
		return nil, enrichErr
	}
	return posts, nil
}

// applySort appends the ORDER BY (and optional WHERE) clause for the requested sort type.
// likes_count and comments_count are SELECT aliases from applyPostDetails; PostgreSQL
// allows referencing them in ORDER BY within the same query level.
func (r *postRepository) applySort(db *gorm.DB, sort string) *gorm.DB {
	switch sort {
	case "hot":
		return db.Order(gorm.Expr(
			"(likes_count + comments_count * 2.0) / POWER(EXTRACT(EPOCH FROM (NOW() - posts.created_at)) / 3600.0 + 2, 1.5) DESC",
		))
	case "top":
		return db.Order("likes_count DESC, created_at DESC")
	case "rising":
		return db.
			Where("posts.created_at > NOW() - INTERVAL '48 hours'").
			Order("(likes_count + comments_count * 2) DESC")
	default: // "new" and anything unrecognized
		return db.Order("created_at DESC")
	}
}

func (r *postRepository) Search(ctx context.Context, query string, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	var posts []*models.Post
	like := "%" + query + "%"
	err := r.applyPostDetails(r.db.WithContext(ctx), currentUserID).
		Preload("User").
		Where("content ILIKE ?", like).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	if enrichErr := r.enrichImageMetadata(ctx, posts); enrichErr != nil {
		return nil, enrichErr
	}
	return posts, nil
}

// applyPostDetails adds subqueries to fetch counts and viewer flags in a single query.
func (r *postRepository) applyPostDetails(db *gorm.DB, currentUserID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id AND comments.deleted_at IS NULL) as comments_count, " +
		"(SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id) as likes_count, " +
		"(SELECT COUNT(*) FROM reposts WHERE reposts.post_id = posts.id) as reposts_count, " +
		"(SELECT COUNT(*) FROM bookmarks WHERE bookmarks.post_id = posts.id) as bookmarks_count"

	if currentUserID != 0 {
		return db.Select(selectQuery+
			", EXISTS(SELECT 1 FROM post_likes WHERE post_likes.post_id = posts.id AND post_likes.user_id = ?) as liked"+
			", EXISTS(SELECT 1 FROM reposts WHERE reposts.post_id = posts.id AND reposts.user_id = ?) as reposted"+
			", EXISTS(SELECT 1 FROM bookmarks WHERE bookmarks.post_id = posts.id AND bookmarks.user_id = ?) as bookmarked"+
			", EXISTS(SELECT 1 FROM comments WHERE comments.post_id = posts.id AND comments.user_id = ? AND comments.deleted_at IS NULL) as commented",
			currentUserID, currentUserID, currentUserID, currentUserID)
	}

	return db.Select(selectQuery + ", false as liked, false as reposted, false as bookmarked, false as commented")
}

func (r *postRepository) enrichImageMetadata(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	hashes := make([]string, 0, len(posts))
	seen := map[string]struct{}{}
	for _, p := range posts {
		h := strings.TrimSpace(p.ImageHash)
		if h == "" {
			continue
		}
		if _, exists := seen[h]; exists {
			continue
		}
		seen[h] = struct{}{}
		hashes = append(hashes, h)
	}
	if len(hashes) == 0 {
		return nil
	}

	var images []models.Image
	if err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("hash IN ?", hashes).
		Find(&images).Error; err != nil {
		return err
	}

	byHash := make(map[string]*models.Image, len(images))
	for i := range images {
		byHash[images[i].Hash] = &images[i]
	}

	for _, p := range posts {
		img := byHash[p.ImageHash]
		if img == nil || len(img.Variants) == 0 {
			continue
		}
		variants := make(map[string]string, len(img.Variants))
		for _, v := range img.Variants {
			key := fmt.Sprintf("%d_%s", v.SizePx, v.Format)
			variants[key] = fmt.Sprintf("/media/i/%s/%d.%s", img.Hash, v.SizePx, v.Format)
		}
		p.ImageVariants = variants
	}
	return nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.PostKey(post.ID))
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Post{}, id).Error; err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.PostKey(id))
	cache.InvalidatePostsList(ctx)
	return nil
}

// interactionTable maps a kind to its join table. Each table carries a unique
// constraint on (user_id, post_id).
func interactionTable(kind models.InteractionKind) (string, error) {
	switch kind {
	case models.InteractionLike:
		return "post_likes", nil
	case models.InteractionRepost:
		return "reposts", nil
	case models.InteractionBookmark:
		return "bookmarks", nil
	default:
		return "", fmt.Errorf("unknown interaction kind %q", kind)
	}
}

// SetInteraction turns an interaction on or off for a (user, post) pair.
// Both directions are idempotent: turning on uses INSERT ... ON CONFLICT
// DO NOTHING against the unique constraint, turning off deletes whatever row
// exists. The returned changed flag reports whether a row was actually
// written or removed, so retries and double-taps collapse to one state change.
func (r *postRepository) SetInteraction(ctx context.Context, kind models.InteractionKind, userID, postID uint, on bool) (bool, error) {
	table, err := interactionTable(kind)
	if err != nil {
		return false, err
	}

	var result *gorm.DB
	if on {
		result = r.db.WithContext(ctx).Exec(
			fmt.Sprintf(`INSERT INTO %s (user_id, post_id, created_at)
			 VALUES (?, ?, NOW())
			 ON CONFLICT (user_id, post_id) DO NOTHING`, table),
			userID, postID,
		)
	} else {
		// Hard delete the interaction row (not soft delete)
		result = r.db.WithContext(ctx).Unscoped().Exec(
			fmt.Sprintf(`DELETE FROM %s WHERE user_id = ? AND post_id = ?`, table),
			userID, postID,
		)
	}
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		cache.Invalidate(ctx, cache.PostKey(postID))
	}
	return result.RowsAffected > 0, nil
}

func (r *postRepository) HasInteraction(ctx context.Context, kind models.InteractionKind, userID, postID uint) (bool, error) {
	table, err := interactionTable(kind)
	if err != nil {
		return false, err
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Table(table).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetInteractionSnapshot re-reads counts and viewer flags from the join
// tables after a toggle. Clients replace their local state with this value.
func (r *postRepository) GetInteractionSnapshot(ctx context.Context, postID, currentUserID uint) (*InteractionSnapshot, error) {
	var snap InteractionSnapshot
	err := r.db.WithContext(ctx).Raw(`
SELECT
	(SELECT COUNT(*) FROM post_likes WHERE post_id = ?) as likes_count,
	(SELECT COUNT(*) FROM reposts WHERE post_id = ?) as reposts_count,
	(SELECT COUNT(*) FROM bookmarks WHERE post_id = ?) as bookmarks_count,
	(SELECT COUNT(*) FROM comments WHERE post_id = ? AND deleted_at IS NULL) as comments_count,
	EXISTS(SELECT 1 FROM post_likes WHERE post_id = ? AND user_id = ?) as liked,
	EXISTS(SELECT 1 FROM reposts WHERE post_id = ? AND user_id = ?) as reposted,
	EXISTS(SELECT 1 FROM bookmarks WHERE post_id = ? AND user_id = ?) as bookmarked`,
		postID, postID, postID, postID,
		postID, currentUserID, postID, currentUserID, postID, currentUserID,
	).Scan(&snap).Error
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
