package seed

import (
	_ "embed"
	"fmt"

	"quad/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed communities.yml
var builtInCommunitiesYAML []byte

// BuiltInCommunity is a permanent system community shipped with the platform.
type BuiltInCommunity struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
}

// BuiltInCommunities returns the permanent system communities parsed from
// the embedded manifest.
func BuiltInCommunities() ([]BuiltInCommunity, error) {
	var items []BuiltInCommunity
	if err := yaml.Unmarshal(builtInCommunitiesYAML, &items); err != nil {
		return nil, fmt.Errorf("parse built-in communities manifest: %w", err)
	}
	return items, nil
}

// Communities upserts the permanent built-in communities. Safe to run on
// every startup: existing rows are refreshed in place, never duplicated.
func Communities(db *gorm.DB) error {
	items, err := BuiltInCommunities()
	if err != nil {
		return err
	}

	for _, item := range items {
		err := db.Transaction(func(tx *gorm.DB) error {
			community := models.Community{
				Name:        item.Name,
				Slug:        item.Slug,
				Description: item.Description,
				Category:    item.Category,
				Privacy:     models.CommunityPrivacyPublic,
			}

			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slug"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "description", "category", "updated_at"}),
			}).Create(&community).Error; err != nil {
				return err
			}

			return nil
		})
		if err != nil {
			return fmt.Errorf("seed built-in community %s: %w", item.Slug, err)
		}
	}

	return nil
}
