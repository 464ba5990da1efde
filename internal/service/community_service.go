package service

import (
	"context"
	"strings"

	"quad/internal/models"
	"quad/internal/observability"
	"quad/internal/repository"
	"quad/internal/validation"
)

type CommunityService struct {
	communityRepo    repository.CommunityRepository
	notificationRepo repository.NotificationRepository
	isAdmin          func(ctx context.Context, userID uint) (bool, error)
}

type CreateCommunityInput struct {
	UserID      uint
	Name        string
	Slug        string
	Description string
	Category    string
	Privacy     models.CommunityPrivacy
	CoverURL    string
}

type UpdateCommunityInput struct {
	UserID      uint
	CommunityID uint
	Name        string
	Description string
	Category    string
	CoverURL    string
}

type InviteInput struct {
	InviterID   uint
	CommunityID uint
	InviteeID   uint
}

// DeleteCommunityResult reports who must be told that the community is gone:
// the member IDs are captured before the rows are deleted.
type DeleteCommunityResult struct {
	Community     *models.Community
	MemberUserIDs []uint
}

func NewCommunityService(
	communityRepo repository.CommunityRepository,
	notificationRepo repository.NotificationRepository,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *CommunityService {
	return &CommunityService{
		communityRepo:    communityRepo,
		notificationRepo: notificationRepo,
		isAdmin:          isAdmin,
	}
}

func (s *CommunityService) CreateCommunity(ctx context.Context, in CreateCommunityInput) (*models.Community, error) {
	if err := validation.ValidateCommunityName(in.Name); err != nil {
		return nil, err
	}
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if err := validation.ValidateCommunitySlug(slug); err != nil {
		return nil, err
	}

	privacy := in.Privacy
	if privacy == "" {
		privacy = models.CommunityPrivacyPublic
	}
	if privacy != models.CommunityPrivacyPublic && privacy != models.CommunityPrivacyPrivate {
		return nil, models.NewValidationError("Privacy must be public or private")
	}

	if existing, err := s.communityRepo.GetBySlug(ctx, slug, 0); err == nil && existing != nil {
		return nil, models.NewConflictError("A community with this slug already exists")
	}

	creatorID := in.UserID
	community := &models.Community{
		Name:            strings.TrimSpace(in.Name),
		Slug:            slug,
		Description:     in.Description,
		Category:        in.Category,
		Privacy:         privacy,
		CoverURL:        in.CoverURL,
		CreatedByUserID: &creatorID,
	}
	if err := s.communityRepo.Create(ctx, community, in.UserID); err != nil {
		return nil, err
	}

	return s.communityRepo.GetByID(ctx, community.ID, in.UserID)
}

func (s *CommunityService) GetCommunity(ctx context.Context, id uint, currentUserID uint) (*models.Community, error) {
	return s.communityRepo.GetByID(ctx, id, currentUserID)
}

func (s *CommunityService) GetCommunityBySlug(ctx context.Context, slug string, currentUserID uint) (*models.Community, error) {
	return s.communityRepo.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)), currentUserID)
}

func (s *CommunityService) ListCommunities(ctx context.Context, limit, offset int, currentUserID uint, category string) ([]*models.Community, error) {
	return s.communityRepo.List(ctx, limit, offset, currentUserID, category)
}

func (s *CommunityService) ListJoined(ctx context.Context, userID uint) ([]*models.Community, error) {
	return s.communityRepo.ListJoined(ctx, userID)
}

func (s *CommunityService) UpdateCommunity(ctx context.Context, in UpdateCommunityInput) (*models.Community, error) {
	community, err := s.communityRepo.GetByID(ctx, in.CommunityID, in.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.requireCommunityAdmin(ctx, in.CommunityID, in.UserID); err != nil {
		return nil, err
	}

	if in.Name != "" {
		if err := validation.ValidateCommunityName(in.Name); err != nil {
			return nil, err
		}
		community.Name = strings.TrimSpace(in.Name)
	}
	if in.Description != "" {
		community.Description = in.Description
	}
	if in.Category != "" {
		community.Category = in.Category
	}
	if in.CoverURL != "" {
		community.CoverURL = in.CoverURL
	}

	if err := s.communityRepo.Update(ctx, community); err != nil {
		return nil, err
	}
	return s.communityRepo.GetByID(ctx, community.ID, in.UserID)
}

// DeleteCommunity removes the community and its membership rows. Posts made
// into the community survive and fall back to the campus feed.
func (s *CommunityService) DeleteCommunity(ctx context.Context, communityID, userID uint) (*DeleteCommunityResult, error) {
	community, err := s.communityRepo.GetByID(ctx, communityID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.requireCommunityAdmin(ctx, communityID, userID); err != nil {
		return nil, err
	}

	memberIDs, err := s.communityRepo.ListMemberUserIDs(ctx, communityID)
	if err != nil {
		return nil, err
	}

	if err := s.communityRepo.Delete(ctx, communityID); err != nil {
		return nil, err
	}

	return &DeleteCommunityResult{Community: community, MemberUserIDs: memberIDs}, nil
}

// JoinCommunity enrolls the user. Joining twice is a no-op; the returned
// community carries the re-read member count either way.
func (s *CommunityService) JoinCommunity(ctx context.Context, communityID, userID uint) (*models.Community, bool, error) {
	community, err := s.communityRepo.GetByID(ctx, communityID, userID)
	if err != nil {
		return nil, false, err
	}
	if community.Privacy == models.CommunityPrivacyPrivate {
		return nil, false, models.NewUnauthorizedError("This community is invitation-only")
	}

	added, err := s.communityRepo.AddMember(ctx, communityID, userID, models.CommunityRoleMember)
	if err != nil {
		return nil, false, err
	}

	community, err = s.communityRepo.GetByID(ctx, communityID, userID)
	if err != nil {
		return nil, false, err
	}
	return community, added, nil
}

func (s *CommunityService) LeaveCommunity(ctx context.Context, communityID, userID uint) (*models.Community, bool, error) {
	if _, err := s.communityRepo.GetByID(ctx, communityID, userID); err != nil {
		return nil, false, err
	}

	member, err := s.communityRepo.GetMember(ctx, communityID, userID)
	if err != nil {
		return nil, false, err
	}
	if member != nil && member.Role == models.CommunityRoleAdmin {
		admins, err := s.countAdmins(ctx, communityID)
		if err != nil {
			return nil, false, err
		}
		if admins <= 1 {
			return nil, false, models.NewConflictError("The last admin cannot leave; delete the community instead")
		}
	}

	removed, err := s.communityRepo.RemoveMember(ctx, communityID, userID)
	if err != nil {
		return nil, false, err
	}

	community, err := s.communityRepo.GetByID(ctx, communityID, userID)
	if err != nil {
		return nil, false, err
	}
	return community, removed, nil
}

func (s *CommunityService) ListMembers(ctx context.Context, communityID uint, limit, offset int) ([]*models.CommunityMember, error) {
	if _, err := s.communityRepo.GetByID(ctx, communityID, 0); err != nil {
		return nil, err
	}
	return s.communityRepo.ListMembers(ctx, communityID, limit, offset)
}

// SetMemberRole promotes or demotes a member. Only community admins (or
// platform admins) may change roles, and the last admin cannot be demoted.
func (s *CommunityService) SetMemberRole(ctx context.Context, communityID, actorID, targetUserID uint, role models.CommunityRole) (*models.CommunityMember, error) {
	if role != models.CommunityRoleMember && role != models.CommunityRoleAdmin {
		return nil, models.NewValidationError("Role must be member or admin")
	}
	if _, err := s.communityRepo.GetByID(ctx, communityID, actorID); err != nil {
		return nil, err
	}
	if err := s.requireCommunityAdmin(ctx, communityID, actorID); err != nil {
		return nil, err
	}

	target, err := s.communityRepo.GetMember(ctx, communityID, targetUserID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, models.NewNotFoundError("Member", targetUserID)
	}
	if target.Role == role {
		return target, nil
	}

	if target.Role == models.CommunityRoleAdmin && role == models.CommunityRoleMember {
		admins, err := s.countAdmins(ctx, communityID)
		if err != nil {
			return nil, err
		}
		if admins <= 1 {
			return nil, models.NewConflictError("The last admin cannot be demoted")
		}
	}

	if _, err := s.communityRepo.UpdateMemberRole(ctx, communityID, targetUserID, role); err != nil {
		return nil, err
	}
	target.Role = role
	return target, nil
}

func (s *CommunityService) Invite(ctx context.Context, in InviteInput) (*models.CommunityInvitation, error) {
	if in.InviterID == in.InviteeID {
		return nil, models.NewValidationError("You cannot invite yourself")
	}
	if _, err := s.communityRepo.GetByID(ctx, in.CommunityID, in.InviterID); err != nil {
		return nil, err
	}

	inviter, err := s.communityRepo.GetMember(ctx, in.CommunityID, in.InviterID)
	if err != nil {
		return nil, err
	}
	if inviter == nil {
		return nil, models.NewUnauthorizedError("Only members can invite")
	}

	existing, err := s.communityRepo.GetMember(ctx, in.CommunityID, in.InviteeID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("User is already a member")
	}

	inv := &models.CommunityInvitation{
		CommunityID:   in.CommunityID,
		InviterUserID: in.InviterID,
		InviteeUserID: in.InviteeID,
		Status:        models.InvitationStatusPending,
	}
	if err := s.communityRepo.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}

	if s.notificationRepo != nil {
		actorID := in.InviterID
		communityID := in.CommunityID
		n := &models.Notification{
			UserID:      in.InviteeID,
			Type:        models.NotificationTypeCommunityPost,
			ActorID:     &actorID,
			CommunityID: &communityID,
			Message:     "invited you to a community",
		}
		if err := s.notificationRepo.Create(ctx, n); err == nil {
			observability.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
		}
	}

	return inv, nil
}

func (s *CommunityService) ListInvitations(ctx context.Context, userID uint) ([]*models.CommunityInvitation, error) {
	return s.communityRepo.ListInvitationsForUser(ctx, userID)
}

// RespondToInvitation accepts or declines a pending invitation. Accepting
// enrolls the invitee as a member.
func (s *CommunityService) RespondToInvitation(ctx context.Context, invitationID, userID uint, accept bool) (*models.CommunityInvitation, error) {
	inv, err := s.communityRepo.GetInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.InviteeUserID != userID {
		return nil, models.NewUnauthorizedError("This invitation is not for you")
	}
	if inv.Status != models.InvitationStatusPending {
		return nil, models.NewConflictError("Invitation has already been answered")
	}

	status := models.InvitationStatusDeclined
	if accept {
		status = models.InvitationStatusAccepted
	}
	if err := s.communityRepo.UpdateInvitationStatus(ctx, invitationID, status); err != nil {
		return nil, err
	}
	inv.Status = status

	if accept {
		if _, err := s.communityRepo.AddMember(ctx, inv.CommunityID, userID, models.CommunityRoleMember); err != nil {
			return nil, err
		}
	}

	return inv, nil
}

// requireCommunityAdmin passes for community admins and platform admins.
func (s *CommunityService) requireCommunityAdmin(ctx context.Context, communityID, userID uint) error {
	member, err := s.communityRepo.GetMember(ctx, communityID, userID)
	if err != nil {
		return err
	}
	if member != nil && member.Role == models.CommunityRoleAdmin {
		return nil
	}
	if s.isAdmin != nil {
		admin, err := s.isAdmin(ctx, userID)
		if err != nil {
			return err
		}
		if admin {
			return nil
		}
	}
	return models.NewUnauthorizedError("Community admin access required")
}

func (s *CommunityService) countAdmins(ctx context.Context, communityID uint) (int, error) {
	members, err := s.communityRepo.ListMembers(ctx, communityID, 0, 0)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, m := range members {
		if m.Role == models.CommunityRoleAdmin {
			count++
		}
	}
	return count, nil
}
