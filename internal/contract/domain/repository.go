package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regalia/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListContractFilter struct {
	Status       ContractStatus
	LicenseeName string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, contract *Contract) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Contract, error)
	// FindByIDForUpdate locks the contract row for the rest of the
	// transaction, serializing writers that fan out from one contract.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Contract, error)
	ListActive(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]*Contract, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListContractFilter, page pagination.Pagination) ([]*Contract, error)
	Update(ctx context.Context, db *gorm.DB, contract *Contract) error
}
