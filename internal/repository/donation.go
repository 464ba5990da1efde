package repository

import (
	"context"

	"quad/internal/cache"
	"quad/internal/models"

	"gorm.io/gorm"
)

// DonationRepository defines persistence operations for donations.
type DonationRepository interface {
	Create(ctx context.Context, d *models.Donation) error
	ListRecent(ctx context.Context, limit, offset int) ([]*models.Donation, error)
	Summary(ctx context.Context) (*models.DonationSummary, error)
}

type donationRepository struct {
	db *gorm.DB
}

// NewDonationRepository creates a new donation repository
func NewDonationRepository(db *gorm.DB) DonationRepository {
	return &donationRepository{db: db}
}

func (r *donationRepository) Create(ctx context.Context, d *models.Donation) error {
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.DonationSummaryKey)
	return nil
}

func (r *donationRepository) ListRecent(ctx context.Context, limit, offset int) ([]*models.Donation, error) {
	var donations []*models.Donation
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&donations).Error
	return donations, err
}

// Summary aggregates totals from the rows themselves on every read.
func (r *donationRepository) Summary(ctx context.Context) (*models.DonationSummary, error) {
	var summary models.DonationSummary
	err := cache.Aside(ctx, cache.DonationSummaryKey, &summary, cache.DonationSummaryTTL, func() error {
		return r.db.WithContext(ctx).
			Model(&models.Donation{}).
			Select("COALESCE(SUM(amount_cents), 0) as total_cents, COUNT(DISTINCT user_id) as donor_count").
			Scan(&summary).Error
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
