package domain

import (
	"context"
	"errors"
	"time"
)

// CalculateRequest rates a single reporting period's declared sales against
// the contract terms in force.
type CalculateRequest struct {
	OrganizationID string
	ContractID     string

	PeriodStart time.Time
	PeriodEnd   time.Time
	Sales       SalesInput
}

type YearSummariesRequest struct {
	OrganizationID string
	ContractID     string

	// AsOf defaults to now. Years ending after AsOf are reported open with a
	// zero shortfall.
	AsOf time.Time
}

type AdvanceStatusRequest struct {
	OrganizationID string
	ContractID     string
}

// FinalizeYearRequest closes a contract year before its calendar end,
// fixing the guarantee shortfall as of finalization.
type FinalizeYearRequest struct {
	OrganizationID string
	ContractID     string
	YearIndex      int
}

// StatementRequest renders a royalty statement over the contract's
// confirmed periods. Deliver additionally emails the licensee a summary.
type StatementRequest struct {
	OrganizationID string
	ContractID     string
	Deliver        bool
}

type Statement struct {
	PDF       []byte `json:"-"`
	Delivered bool   `json:"delivered"`
}

type Service interface {
	Calculate(ctx context.Context, req CalculateRequest) (*CalculationResult, error)
	YearSummaries(ctx context.Context, req YearSummariesRequest) ([]YearSummary, error)
	AdvanceStatus(ctx context.Context, req AdvanceStatusRequest) (*AdvanceStatus, error)
	FinalizeYear(ctx context.Context, req FinalizeYearRequest) (*YearSummary, error)
	RenderStatement(ctx context.Context, req StatementRequest) (*Statement, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrContractNotFound    = errors.New("contract_not_found")
	ErrContractNotActive   = errors.New("contract_not_active")
	ErrInvalidPeriod       = errors.New("invalid_period")
	ErrInvalidYearIndex    = errors.New("invalid_year_index")
	ErrYearFinalized       = errors.New("year_already_finalized")
)
