// Package repository is the gorm-backed sales period store.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regalia/internal/salesperiod/domain"
	pkgdb "github.com/smallbiznis/regalia/pkg/db"
	"github.com/smallbiznis/regalia/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type periodRepository struct{}

func New() domain.Repository {
	return &periodRepository{}
}

func (r *periodRepository) Insert(ctx context.Context, db *gorm.DB, period *domain.SalesPeriod) error {
	return db.WithContext(ctx).Create(period).Error
}

func (r *periodRepository) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.SalesPeriod, error) {
	var period domain.SalesPeriod
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&period).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &period, nil
}

// ListOverlapping matches the closed-interval collision rule: two ranges
// overlap unless one ends strictly before the other starts.
func (r *periodRepository) ListOverlapping(ctx context.Context, db *gorm.DB, orgID, contractID snowflake.ID, start, end time.Time, forUpdate bool) ([]*domain.SalesPeriod, error) {
	stmt := db.WithContext(ctx).
		Where("org_id = ? AND contract_id = ?", orgID, contractID).
		Where("status <> ?", domain.PeriodStatusVoided).
		Where("period_start <= ? AND ? <= period_end", end, start)

	if forUpdate && pkgdb.SupportsRowLocking(db) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var periods []*domain.SalesPeriod
	err := stmt.Order("period_start ASC").Find(&periods).Error
	return periods, err
}

// ListInWindow returns every confirmed period whose range intersects the
// window, including periods that merely extend into it from either side: a
// period straddling a contract-year boundary counts toward both years.
func (r *periodRepository) ListInWindow(ctx context.Context, db *gorm.DB, orgID, contractID snowflake.ID, start, end time.Time) ([]*domain.SalesPeriod, error) {
	var periods []*domain.SalesPeriod
	err := db.WithContext(ctx).
		Where("org_id = ? AND contract_id = ?", orgID, contractID).
		Where("status = ?", domain.PeriodStatusConfirmed).
		Where("period_start <= ? AND period_end >= ?", end, start).
		Order("period_start ASC").
		Find(&periods).Error
	return periods, err
}

func (r *periodRepository) ListConfirmedByContract(ctx context.Context, db *gorm.DB, orgID, contractID snowflake.ID) ([]*domain.SalesPeriod, error) {
	var periods []*domain.SalesPeriod
	err := db.WithContext(ctx).
		Where("org_id = ? AND contract_id = ?", orgID, contractID).
		Where("status = ?", domain.PeriodStatusConfirmed).
		Order("period_start ASC").
		Find(&periods).Error
	return periods, err
}

func (r *periodRepository) ListByContract(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListPeriodFilter, page pagination.Pagination) ([]*domain.SalesPeriod, error) {
	stmt := db.WithContext(ctx).Where("org_id = ?", orgID)

	if filter.ContractID != 0 {
		stmt = stmt.Where("contract_id = ?", filter.ContractID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if !filter.From.IsZero() {
		stmt = stmt.Where("period_start >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		stmt = stmt.Where("period_end <= ?", filter.To)
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

	var periods []*domain.SalesPeriod
	err := stmt.Order("id ASC").Limit(limit + 1).Find(&periods).Error
	return periods, err
}

func (r *periodRepository) Update(ctx context.Context, db *gorm.DB, period *domain.SalesPeriod) error {
	return db.WithContext(ctx).Save(period).Error
}
