// Package repository stores contract-year finalizations.
package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regalia/internal/royalty/domain"
	"gorm.io/gorm"
)

type finalizationRepository struct{}

func New() domain.FinalizationRepository {
	return &finalizationRepository{}
}

func (r *finalizationRepository) Insert(ctx context.Context, db *gorm.DB, finalization *domain.ContractYearFinalization) error {
	return db.WithContext(ctx).Create(finalization).Error
}

func (r *finalizationRepository) FindByContractYear(ctx context.Context, db *gorm.DB, orgID, contractID snowflake.ID, yearIndex int) (*domain.ContractYearFinalization, error) {
	var finalization domain.ContractYearFinalization
	err := db.WithContext(ctx).
		Where("org_id = ? AND contract_id = ? AND year_index = ?", orgID, contractID, yearIndex).
		First(&finalization).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &finalization, nil
}

func (r *finalizationRepository) ListByContract(ctx context.Context, db *gorm.DB, orgID, contractID snowflake.ID) ([]*domain.ContractYearFinalization, error) {
	var finalizations []*domain.ContractYearFinalization
	err := db.WithContext(ctx).
		Where("org_id = ? AND contract_id = ?", orgID, contractID).
		Order("year_index ASC").
		Find(&finalizations).Error
	return finalizations, err
}
