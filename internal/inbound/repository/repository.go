// Package repository is the gorm-backed inbound report store.
package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regalia/internal/inbound/domain"
	"github.com/smallbiznis/regalia/pkg/db/pagination"
	"gorm.io/gorm"
)

type reportRepository struct{}

func New() domain.Repository {
	return &reportRepository{}
}

func (r *reportRepository) Insert(ctx context.Context, db *gorm.DB, report *domain.InboundReport) error {
	return db.WithContext(ctx).Create(report).Error
}

func (r *reportRepository) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.InboundReport, error) {
	var report domain.InboundReport
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListReportFilter, page pagination.Pagination) ([]*domain.InboundReport, error) {
	stmt := db.WithContext(ctx).Where("org_id = ?", orgID)

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Confidence != "" {
		stmt = stmt.Where("match_confidence = ?", filter.Confidence)
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

	var reports []*domain.InboundReport
	err := stmt.Order("id ASC").Limit(limit + 1).Find(&reports).Error
	return reports, err
}

func (r *reportRepository) Update(ctx context.Context, db *gorm.DB, report *domain.InboundReport) error {
	return db.WithContext(ctx).Save(report).Error
}
