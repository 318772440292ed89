// Package repository stores mapping preferences with upsert-on-term
// semantics.
package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regalia/internal/mapping/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type preferenceRepository struct{}

func New() domain.PreferenceRepository {
	return &preferenceRepository{}
}

func (r *preferenceRepository) UpsertColumnPreference(ctx context.Context, db *gorm.DB, pref *domain.ColumnPreference) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "org_id"}, {Name: "normalized_header"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"role":       pref.Role,
			"updated_at": time.Now().UTC(),
		}),
	}).Create(pref).Error
}

func (r *preferenceRepository) ListColumnPreferences(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]*domain.ColumnPreference, error) {
	var prefs []*domain.ColumnPreference
	err := db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Find(&prefs).Error
	return prefs, err
}

func (r *preferenceRepository) UpsertCategoryPreference(ctx context.Context, db *gorm.DB, pref *domain.CategoryPreference) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "org_id"}, {Name: "normalized_term"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"category":   pref.Category,
			"excluded":   pref.Excluded,
			"updated_at": time.Now().UTC(),
		}),
	}).Create(pref).Error
}

func (r *preferenceRepository) ListCategoryPreferences(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]*domain.CategoryPreference, error) {
	var prefs []*domain.CategoryPreference
	err := db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Find(&prefs).Error
	return prefs, err
}
