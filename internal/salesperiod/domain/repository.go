package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regalia/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListPeriodFilter struct {
	ContractID snowflake.ID
	Status     PeriodStatus
	From       time.Time
	To         time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, period *SalesPeriod) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*SalesPeriod, error)

	// ListOverlapping returns non-voided periods of the contract touching
	// [start, end], endpoints inclusive. Inside a transaction it locks the
	// matched rows so a concurrent confirm cannot slip between check and
	// insert.
	ListOverlapping(ctx context.Context, db *gorm.DB, orgID, contractID snowflake.ID, start, end time.Time, forUpdate bool) ([]*SalesPeriod, error)

	// ListInWindow returns confirmed periods whose start falls inside
	// [start, end], ordered by period start.
	ListInWindow(ctx context.Context, db *gorm.DB, orgID, contractID snowflake.ID, start, end time.Time) ([]*SalesPeriod, error)

	// ListConfirmedByContract returns every confirmed period of the
	// contract, ordered by period start.
	ListConfirmedByContract(ctx context.Context, db *gorm.DB, orgID, contractID snowflake.ID) ([]*SalesPeriod, error)

	ListByContract(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListPeriodFilter, page pagination.Pagination) ([]*SalesPeriod, error)
	Update(ctx context.Context, db *gorm.DB, period *SalesPeriod) error
}
