package service

import (
	"context"
	"strings"

	"quad/internal/models"
	"quad/internal/repository"
)

type DonationService struct {
	donationRepo repository.DonationRepository
}

type CreateDonationInput struct {
	UserID      uint
	AmountCents int64
	Currency    string
	Message     string
	IsAnonymous bool
}

func NewDonationService(donationRepo repository.DonationRepository) *DonationService {
	return &DonationService{donationRepo: donationRepo}
}

const (
	maxDonationCents      = 1_000_000_00 // $1M guard against fat fingers
	maxDonationMessageLen = 300
)

func (s *DonationService) CreateDonation(ctx context.Context, in CreateDonationInput) (*models.Donation, error) {
	if in.AmountCents <= 0 {
		return nil, models.NewValidationError("Amount must be positive")
	}
	if in.AmountCents > maxDonationCents {
		return nil, models.NewValidationError("Amount exceeds the maximum")
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return nil, models.NewValidationError("Currency must be a 3-letter code")
	}

	if len(in.Message) > maxDonationMessageLen {
		return nil, models.NewValidationError("Message too long (max 300 characters)")
	}

	donation := &models.Donation{
		UserID:      in.UserID,
		AmountCents: in.AmountCents,
		Currency:    currency,
		Message:     in.Message,
		IsAnonymous: in.IsAnonymous,
	}
	if err := s.donationRepo.Create(ctx, donation); err != nil {
		return nil, err
	}
	return donation, nil
}

func (s *DonationService) ListRecent(ctx context.Context, limit, offset int) ([]*models.Donation, error) {
	donations, err := s.donationRepo.ListRecent(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	// Anonymous donors are scrubbed before the list leaves the service.
	for _, d := range donations {
		if d.IsAnonymous {
			d.UserID = 0
			d.User = nil
		}
	}
	return donations, nil
}

func (s *DonationService) Summary(ctx context.Context) (*models.DonationSummary, error) {
	return s.donationRepo.Summary(ctx)
}
