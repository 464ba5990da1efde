package service

import (
	"context"

	"quad/internal/models"
	"quad/internal/observability"
	"quad/internal/repository"
)

type CommentService struct {
	commentRepo      repository.CommentRepository
	postRepo         repository.PostRepository
	notificationRepo repository.NotificationRepository
	isAdmin          func(ctx context.Context, userID uint) (bool, error)
}

type CreateCommentInput struct {
	UserID      uint
	PostID      uint
	Content     string
	IsAnonymous bool
}

type UpdateCommentInput struct {
	UserID    uint
	PostID    uint
	CommentID uint
	Content   string
}

type DeleteCommentInput struct {
	UserID    uint
	PostID    uint
	CommentID uint
}

// CreateCommentResult carries the stored comment and the post's re-read
// comment count so callers can broadcast the authoritative number.
type CreateCommentResult struct {
	Comment      *models.Comment
	Counts       *repository.InteractionSnapshot
	Notification *models.Notification
}

// DeleteCommentResult carries the deleted comment and the post's counts
// re-read after the delete.
type DeleteCommentResult struct {
	Comment *models.Comment
	Counts  *repository.InteractionSnapshot
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	notificationRepo repository.NotificationRepository,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *CommentService {
	return &CommentService{
		commentRepo:      commentRepo,
		postRepo:         postRepo,
		notificationRepo: notificationRepo,
		isAdmin:          isAdmin,
	}
}

const maxCommentLen = 5000

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*CreateCommentResult, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, 0)
	if err != nil {
		return nil, err
	}

	if in.Content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(in.Content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 5000 characters)")
	}

	comment := &models.Comment{
		Content:     in.Content,
		IsAnonymous: in.IsAnonymous,
		UserID:      in.UserID,
		PostID:      in.PostID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	stored, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.postRepo.GetInteractionSnapshot(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}

	result := &CreateCommentResult{Comment: stored, Counts: snapshot}

	if s.notificationRepo != nil && in.UserID != post.UserID {
		actorID := in.UserID
		postID := in.PostID
		n := &models.Notification{
			UserID:  post.UserID,
			Type:    models.NotificationTypeComment,
			ActorID: &actorID,
			PostID:  &postID,
			Message: "commented on your post",
		}
		if err := s.notificationRepo.Create(ctx, n); err == nil {
			observability.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
			result.Notification = n
		}
	}

	return result, nil
}

func (s *CommentService) ListComments(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByPost(ctx, postID, limit, offset)
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}

	// The route names a post; a comment ID under the wrong post is not found.
	if comment.PostID != in.PostID {
		return nil, models.NewNotFoundError("Comment", in.CommentID)
	}
	if comment.UserID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only update your own comments")
	}
	if in.Content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(in.Content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 5000 characters)")
	}

	comment.Content = in.Content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}

	return s.commentRepo.GetByID(ctx, comment.ID)
}

func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (*DeleteCommentResult, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}

	if comment.PostID != in.PostID {
		return nil, models.NewNotFoundError("Comment", in.CommentID)
	}
	if comment.UserID != in.UserID {
		if s.isAdmin == nil {
			return nil, models.NewUnauthorizedError("You can only delete your own comments")
		}
		admin, err := s.isAdmin(ctx, in.UserID)
		if err != nil {
			return nil, err
		}
		if !admin {
			return nil, models.NewUnauthorizedError("You can only delete your own comments")
		}
	}

	if err := s.commentRepo.Delete(ctx, in.CommentID); err != nil {
		return nil, err
	}

	snapshot, err := s.postRepo.GetInteractionSnapshot(ctx, comment.PostID, in.UserID)
	if err != nil {
		return nil, err
	}

	return &DeleteCommentResult{Comment: comment, Counts: snapshot}, nil
}
