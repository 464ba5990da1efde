package models

import "time"

// Image is the metadata row for an uploaded image, content-addressed by the
// SHA-256 of its master encoding. Variants are derived renditions.
type Image struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	Hash                string     `gorm:"size:64;not null;uniqueIndex" json:"hash"`
	UploaderUserID      uint       `gorm:"not null;index" json:"uploader_user_id"`
	SourceMimeType      string     `gorm:"size:40" json:"source_mime_type"`
	Width               int        `json:"width"`
	Height              int        `json:"height"`
	CropMode            string     `gorm:"size:20" json:"crop_mode"`
	Status              string     `gorm:"size:20;not null;default:'queued';index" json:"status"`
	Error               string     `gorm:"type:text" json:"-"`
	ProcessingStartedAt *time.Time `json:"-"`
	ProcessingAttempts  int        `gorm:"not null;default:0" json:"-"`
	LastAccessedAt      *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	Variants []ImageVariant `gorm:"foreignKey:ImageID" json:"variants,omitempty"`
}

// ImageVariant is a single derived rendition of an image.
type ImageVariant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ImageID   uint      `gorm:"not null;uniqueIndex:idx_image_size_format" json:"image_id"`
	SizePx    int       `gorm:"not null;uniqueIndex:idx_image_size_format" json:"size_px"`
	Format    string    `gorm:"size:10;not null;uniqueIndex:idx_image_size_format" json:"format"`
	ByteSize  int64     `json:"byte_size"`
	CreatedAt time.Time `json:"created_at"`
}
