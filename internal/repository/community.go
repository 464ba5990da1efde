package repository

import (
	"context"
	"errors"

	"quad/internal/cache"
	"quad/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommunityRepository defines persistence operations for communities,
// membership, and invitations.
type CommunityRepository interface {
	Create(ctx context.Context, community *models.Community, creatorID uint) error
	GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Community, error)
	GetBySlug(ctx context.Context, slug string, currentUserID uint) (*models.Community, error)
	List(ctx context.Context, limit, offset int, currentUserID uint, category string) ([]*models.Community, error)
	ListJoined(ctx context.Context, userID uint) ([]*models.Community, error)
	Update(ctx context.Context, community *models.Community) error
	Delete(ctx context.Context, id uint) error

	AddMember(ctx context.Context, communityID, userID uint, role models.CommunityRole) (added bool, err error)
	RemoveMember(ctx context.Context, communityID, userID uint) (removed bool, err error)
	GetMember(ctx context.Context, communityID, userID uint) (*models.CommunityMember, error)
	UpdateMemberRole(ctx context.Context, communityID, userID uint, role models.CommunityRole) (updated bool, err error)
	ListMembers(ctx context.Context, communityID uint, limit, offset int) ([]*models.CommunityMember, error)
	ListMemberUserIDs(ctx context.Context, communityID uint) ([]uint, error)
	CountMembers(ctx context.Context, communityID uint) (int64, error)

	CreateInvitation(ctx context.Context, inv *models.CommunityInvitation) error
	GetInvitation(ctx context.Context, id uint) (*models.CommunityInvitation, error)
	ListInvitationsForUser(ctx context.Context, userID uint) ([]*models.CommunityInvitation, error)
	UpdateInvitationStatus(ctx context.Context, id uint, status models.InvitationStatus) error
}

type communityRepository struct {
	db *gorm.DB
}

// NewCommunityRepository creates a new community repository
func NewCommunityRepository(db *gorm.DB) CommunityRepository {
	return &communityRepository{db: db}
}

// Create inserts the community and enrolls the creator as its admin in one
// transaction.
func (r *communityRepository) Create(ctx context.Context, community *models.Community, creatorID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(community).Error; err != nil {
			if isUniqueConstraintError(err) {
				return models.NewConflictError("A community with this slug already exists")
			}
			return err
		}
		member := models.CommunityMember{
			CommunityID: community.ID,
			UserID:      creatorID,
			Role:        models.CommunityRoleAdmin,
		}
		return tx.Create(&member).Error
	})
}

// applyCommunityDetails adds the member aggregate and viewer membership flag.
func (r *communityRepository) applyCommunityDetails(db *gorm.DB, currentUserID uint) *gorm.DB {
	selectQuery := "communities.*, " +
		"(SELECT COUNT(*) FROM community_members WHERE community_members.community_id = communities.id) as member_count"

	if currentUserID != 0 {
		return db.Select(selectQuery+
			", EXISTS(SELECT 1 FROM community_members WHERE community_members.community_id = communities.id AND community_members.user_id = ?) as is_member",
			currentUserID)
	}
	return db.Select(selectQuery + ", false as is_member")
}

func (r *communityRepository) GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Community, error) {
	var community models.Community
	err := r.applyCommunityDetails(r.db.WithContext(ctx), currentUserID).
		First(&community, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Community", id)
		}
		return nil, err
	}
	return &community, nil
}

func (r *communityRepository) GetBySlug(ctx context.Context, slug string, currentUserID uint) (*models.Community, error) {
	var community models.Community
	err := r.applyCommunityDetails(r.db.WithContext(ctx), currentUserID).
		Where("slug = ?", slug).
		First(&community).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Community", slug)
		}
		return nil, err
	}
	return &community, nil
}

func (r *communityRepository) List(ctx context.Context, limit, offset int, currentUserID uint, category string) ([]*models.Community, error) {
	var communities []*models.Community
	base := r.applyCommunityDetails(r.db.WithContext(ctx), currentUserID)
	if category != "" {
		base = base.Where("category = ?", category)
	}
	err := base.
		Order("member_count DESC, created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&communities).Error
	return communities, err
}

func (r *communityRepository) ListJoined(ctx context.Context, userID uint) ([]*models.Community, error) {
	var communities []*models.Community
	err := r.applyCommunityDetails(r.db.WithContext(ctx), userID).
		Joins("JOIN community_members cm ON cm.community_id = communities.id").
		Where("cm.user_id = ?", userID).
		Order("communities.name ASC").
		Find(&communities).Error
	return communities, err
}

func (r *communityRepository) Update(ctx context.Context, community *models.Community) error {
	if err := r.db.WithContext(ctx).Save(community).Error; err != nil {
		return err
	}
	cache.InvalidateCommunity(ctx, community.Slug)
	return nil
}

// Delete removes a community and everything hanging off it. Posts survive
// but are detached to the campus-wide feed.
func (r *communityRepository) Delete(ctx context.Context, id uint) error {
	var community models.Community
	if err := r.db.WithContext(ctx).First(&community, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Community", id)
		}
		return err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("community_id = ?", id).Delete(&models.CommunityMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("community_id = ?", id).Delete(&models.CommunityInvitation{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).Where("community_id = ?", id).Update("community_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Community{}, id).Error
	})
	if err != nil {
		return err
	}
	cache.InvalidateCommunity(ctx, community.Slug)
	return nil
}

// AddMember is idempotent: joining twice leaves a single membership row.
func (r *communityRepository) AddMember(ctx context.Context, communityID, userID uint, role models.CommunityRole) (bool, error) {
	member := models.CommunityMember{
		CommunityID: communityID,
		UserID:      userID,
		Role:        role,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&member)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *communityRepository) RemoveMember(ctx context.Context, communityID, userID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Delete(&models.CommunityMember{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *communityRepository) GetMember(ctx context.Context, communityID, userID uint) (*models.CommunityMember, error) {
	var member models.CommunityMember
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func (r *communityRepository) UpdateMemberRole(ctx context.Context, communityID, userID uint, role models.CommunityRole) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CommunityMember{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Update("role", role)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *communityRepository) ListMembers(ctx context.Context, communityID uint, limit, offset int) ([]*models.CommunityMember, error) {
	if limit <= 0 {
		limit = -1
	}
	var members []*models.CommunityMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("community_id = ?", communityID).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&members).Error
	return members, err
}

func (r *communityRepository) ListMemberUserIDs(ctx context.Context, communityID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.CommunityMember{}).
		Where("community_id = ?", communityID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *communityRepository) CountMembers(ctx context.Context, communityID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CommunityMember{}).
		Where("community_id = ?", communityID).
		Count(&count).Error
	return count, err
}

func (r *communityRepository) CreateInvitation(ctx context.Context, inv *models.CommunityInvitation) error {
	var existing int64
	err := r.db.WithContext(ctx).
		Model(&models.CommunityInvitation{}).
		Where("community_id = ? AND invitee_user_id = ? AND status = ?",
			inv.CommunityID, inv.InviteeUserID, models.InvitationStatusPending).
		Count(&existing).Error
	if err != nil {
		return err
	}
	if existing > 0 {
		return models.NewConflictError("An invitation is already pending for this user")
	}
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *communityRepository) GetInvitation(ctx context.Context, id uint) (*models.CommunityInvitation, error) {
	var inv models.CommunityInvitation
	err := r.db.WithContext(ctx).
		Preload("Community").
		Preload("InviterUser").
		First(&inv, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Invitation", id)
		}
		return nil, err
	}
	return &inv, nil
}

func (r *communityRepository) ListInvitationsForUser(ctx context.Context, userID uint) ([]*models.CommunityInvitation, error) {
	var invitations []*models.CommunityInvitation
	err := r.db.WithContext(ctx).
		Preload("Community").
		Preload("InviterUser").
		Where("invitee_user_id = ? AND status = ?", userID, models.InvitationStatusPending).
		Order("created_at DESC").
		Find(&invitations).Error
	return invitations, err
}

func (r *communityRepository) UpdateInvitationStatus(ctx context.Context, id uint, status models.InvitationStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.CommunityInvitation{}).
		Where("id = ?", id).
		Update("status", status).Error
}
