// Package repository is the gorm-backed contract store.
package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regalia/internal/contract/domain"
	pkgdb "github.com/smallbiznis/regalia/pkg/db"
	"github.com/smallbiznis/regalia/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type contractRepository struct{}

func New() domain.Repository {
	return &contractRepository{}
}

func (r *contractRepository) Insert(ctx context.Context, db *gorm.DB, contract *domain.Contract) error {
	return db.WithContext(ctx).Create(contract).Error
}

func (r *contractRepository) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Contract, error) {
	var contract domain.Contract
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contract, nil
}

// FindByIDForUpdate is the serialization point for period confirmation: it
// holds the contract row until commit, so two overlapping confirms on the
// same contract cannot both pass the in-transaction overlap re-check. This
// works on every dialect, unlike the postgres-only exclusion constraint.
func (r *contractRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) (*domain.Contract, error) {
	stmt := tx.WithContext(ctx)
	if pkgdb.SupportsRowLocking(tx) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var contract domain.Contract
	err := stmt.Where("org_id = ? AND id = ?", orgID, id).First(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contract, nil
}

func (r *contractRepository) ListActive(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]*domain.Contract, error) {
	var contracts []*domain.Contract
	err := db.WithContext(ctx).
		Where("org_id = ? AND status = ?", orgID, domain.ContractStatusActive).
		Order("id ASC").
		Find(&contracts).Error
	return contracts, err
}

func (r *contractRepository) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListContractFilter, page pagination.Pagination) ([]*domain.Contract, error) {
	stmt := db.WithContext(ctx).Where("org_id = ?", orgID)

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.LicenseeName != "" {
		stmt = stmt.Where("LOWER(licensee_name) LIKE ?", "%"+strings.ToLower(filter.LicenseeName)+"%")
	}

	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("id > ?", cursor.ID)
	}

	limit := page.PageSize
	if limit <= 0 {
		limit = 25
	}

	var contracts []*domain.Contract
	err := stmt.Order("id ASC").Limit(limit + 1).Find(&contracts).Error
	return contracts, err
}

func (r *contractRepository) Update(ctx context.Context, db *gorm.DB, contract *domain.Contract) error {
	return db.WithContext(ctx).Save(contract).Error
}
