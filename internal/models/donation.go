package models

import "time"

// Donation records a contribution to the platform's campus fund.
type Donation struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UserID      uint   `gorm:"not null;index" json:"user_id"`
	User        *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	AmountCents int64  `gorm:"not null" json:"amount_cents"`
	Currency    string `gorm:"size:3;not null;default:'USD'" json:"currency"`
	Message     string `gorm:"size:300" json:"message"`
	IsAnonymous bool   `gorm:"default:false" json:"is_anonymous"`

	CreatedAt time.Time `json:"created_at"`
}

// DonationSummary aggregates donations for display on the donate screen.
type DonationSummary struct {
	TotalCents int64 `json:"total_cents"`
	DonorCount int64 `json:"donor_count"`
}
