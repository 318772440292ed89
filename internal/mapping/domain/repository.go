package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// PreferenceRepository stores per-org mapping preferences. Upserts key on
// the normalized header or term so a correction overwrites the old choice.
type PreferenceRepository interface {
	UpsertColumnPreference(ctx context.Context, db *gorm.DB, pref *ColumnPreference) error
	ListColumnPreferences(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]*ColumnPreference, error)

	UpsertCategoryPreference(ctx context.Context, db *gorm.DB, pref *CategoryPreference) error
	ListCategoryPreferences(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]*CategoryPreference, error)
}
