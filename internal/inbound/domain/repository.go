package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regalia/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListReportFilter struct {
	Status     ReportStatus
	Confidence MatchConfidence
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, report *InboundReport) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*InboundReport, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListReportFilter, page pagination.Pagination) ([]*InboundReport, error)
	Update(ctx context.Context, db *gorm.DB, report *InboundReport) error
}
