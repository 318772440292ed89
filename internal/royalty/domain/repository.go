package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// FinalizationRepository stores explicit contract-year closes.
type FinalizationRepository interface {
	Insert(ctx context.Context, db *gorm.DB, finalization *ContractYearFinalization) error
	FindByContractYear(ctx context.Context, db *gorm.DB, orgID, contractID snowflake.ID, yearIndex int) (*ContractYearFinalization, error)
	ListByContract(ctx context.Context, db *gorm.DB, orgID, contractID snowflake.ID) ([]*ContractYearFinalization, error)
}
