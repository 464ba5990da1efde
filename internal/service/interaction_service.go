package service

import (
	"context"
	"fmt"

	"quad/internal/models"
	"quad/internal/observability"
	"quad/internal/repository"
)

// InteractionService applies like/repost/bookmark state server-side. Each
// operation declares the desired end state rather than a delta, so retries
// and double-taps converge on one row per (user, post) and the returned
// counts are always re-read from the join tables.
type InteractionService struct {
	postRepo         repository.PostRepository
	notificationRepo repository.NotificationRepository
}

type SetInteractionInput struct {
	Kind   models.InteractionKind
	UserID uint
	PostID uint
	On     bool
}

// InteractionResult reports the authoritative post state after the operation.
// Changed is false when the request was a no-op (already in the desired
// state), which a client treats the same as success.
type InteractionResult struct {
	PostID       uint                            `json:"post_id"`
	Kind         models.InteractionKind          `json:"kind"`
	On           bool                            `json:"on"`
	Changed      bool                            `json:"changed"`
	Counts       *repository.InteractionSnapshot `json:"counts"`
	Notification *models.Notification            `json:"-"`
}

func NewInteractionService(
	postRepo repository.PostRepository,
	notificationRepo repository.NotificationRepository,
) *InteractionService {
	return &InteractionService{
		postRepo:         postRepo,
		notificationRepo: notificationRepo,
	}
}

func (s *InteractionService) SetInteraction(ctx context.Context, in SetInteractionInput) (*InteractionResult, error) {
	if !in.Kind.Valid() {
		return nil, models.NewValidationError("Invalid interaction kind")
	}
	if in.UserID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}

	changed, err := s.postRepo.SetInteraction(ctx, in.Kind, in.UserID, in.PostID, in.On)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.postRepo.GetInteractionSnapshot(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}

	result := &InteractionResult{
		PostID:  in.PostID,
		Kind:    in.Kind,
		On:      in.On,
		Changed: changed,
		Counts:  snapshot,
	}

	// Notify the author on a first-time like or repost. Turning the state
	// off, repeating a set, bookmarking (private), or acting on your own
	// post never notifies.
	if changed && in.On && in.UserID != post.UserID {
		if n := s.buildInteractionNotification(in, post); n != nil {
			if err := s.notificationRepo.Create(ctx, n); err == nil {
				observability.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
				result.Notification = n
			}
		}
	}

	return result, nil
}

// ToggleInteraction flips the user's current state for the kind. Kept for
// clients that do not track local state; the set form is preferred.
func (s *InteractionService) ToggleInteraction(ctx context.Context, kind models.InteractionKind, userID, postID uint) (*InteractionResult, error) {
	if !kind.Valid() {
		return nil, models.NewValidationError("Invalid interaction kind")
	}
	has, err := s.postRepo.HasInteraction(ctx, kind, userID, postID)
	if err != nil {
		return nil, err
	}
	return s.SetInteraction(ctx, SetInteractionInput{
		Kind:   kind,
		UserID: userID,
		PostID: postID,
		On:     !has,
	})
}

func (s *InteractionService) buildInteractionNotification(in SetInteractionInput, post *models.Post) *models.Notification {
	if s.notificationRepo == nil {
		return nil
	}
	actorID := in.UserID
	postID := in.PostID
	switch in.Kind {
	case models.InteractionLike:
		return &models.Notification{
			UserID:  post.UserID,
			Type:    models.NotificationTypeLike,
			ActorID: &actorID,
			PostID:  &postID,
			Message: "liked your post",
		}
	case models.InteractionRepost:
		return &models.Notification{
			UserID:  post.UserID,
			Type:    models.NotificationTypeRepost,
			ActorID: &actorID,
			PostID:  &postID,
			Message: "reposted your post",
		}
	default:
		return nil
	}
}

// ParseInteractionKind maps a route segment to an interaction kind.
func ParseInteractionKind(v string) (models.InteractionKind, error) {
	kind := models.InteractionKind(v)
	if !kind.Valid() {
		return "", models.NewValidationError(fmt.Sprintf("Unknown interaction %q", v))
	}
	return kind, nil
}
