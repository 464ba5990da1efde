package service

import (
	"context"
	"time"

	"quad/internal/models"
	"quad/internal/repository"
	"quad/internal/validation"
)

type UserService struct {
	userRepo repository.UserRepository
}

type UpdateProfileInput struct {
	UserID      uint
	Username    string
	DisplayName string
	Bio         string
	Major       string
	GradYear    int
	AvatarURL   string
	CoverURL    string
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	const maxBioLen = 500
	const maxDisplayNameLen = 60

	if in.Username != "" && in.Username != user.Username {
		if err := validation.ValidateUsername(in.Username); err != nil {
			return nil, err
		}
		taken, err := s.userRepo.GetByUsername(ctx, in.Username)
		if err != nil {
			return nil, err
		}
		if taken != nil {
			return nil, models.NewConflictError("Username is already taken")
		}
		user.Username = in.Username
	}
	if in.DisplayName != "" {
		if len(in.DisplayName) > maxDisplayNameLen {
			return nil, models.NewValidationError("Display name too long (max 60 characters)")
		}
		user.DisplayName = in.DisplayName
	}
	if in.Bio != "" {
		if len(in.Bio) > maxBioLen {
			return nil, models.NewValidationError("Bio too long (max 500 characters)")
		}
		user.Bio = in.Bio
	}
	if in.Major != "" {
		user.Major = in.Major
	}
	if in.GradYear != 0 {
		if in.GradYear < 1900 || in.GradYear > 2100 {
			return nil, models.NewValidationError("Invalid graduation year")
		}
		user.GradYear = in.GradYear
	}
	if in.AvatarURL != "" {
		user.AvatarURL = in.AvatarURL
	}
	if in.CoverURL != "" {
		user.CoverURL = in.CoverURL
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Heartbeat marks the user active now. It is called by the client on an
// interval while a session is open and on resume from background.
func (s *UserService) Heartbeat(ctx context.Context, userID uint) (time.Time, error) {
	now := time.Now().UTC()
	if err := s.userRepo.TouchLastActive(ctx, userID, now); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

func (s *UserService) SetAdmin(ctx context.Context, targetID uint, isAdmin bool) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	user.IsAdmin = isAdmin
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}
