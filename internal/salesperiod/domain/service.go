package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/regalia/pkg/db/pagination"
)

// ConfirmRequest records one reporting period of declared sales. The royalty
// is calculated and frozen onto the period at confirmation.
type ConfirmRequest struct {
	OrganizationID string
	ContractID     string

	PeriodStart time.Time
	PeriodEnd   time.Time

	NetSalesCents      int64
	GrossSalesCents    int64
	CategorySalesCents map[string]int64

	LicenseeReportedRoyaltyCents *int64
	Source                       PeriodSource
	Metadata                     map[string]interface{}
}

// ConfirmResponse carries the stored period plus any non-blocking findings.
type ConfirmResponse struct {
	Period   *SalesPeriod `json:"period"`
	Warnings []Warning    `json:"warnings,omitempty"`

	// ReportedDiscrepancyCents is calculated minus licensee-reported royalty
	// when the licensee declared one; nil otherwise.
	ReportedDiscrepancyCents *int64 `json:"reported_discrepancy_cents,omitempty"`
}

// PreviewRequest runs every validation and the royalty calculation without
// persisting anything.
type PreviewRequest struct {
	OrganizationID string
	ContractID     string

	PeriodStart time.Time
	PeriodEnd   time.Time

	NetSalesCents      int64
	CategorySalesCents map[string]int64
}

type PreviewResponse struct {
	RoyaltyCalculatedCents int64     `json:"royalty_calculated_cents"`
	MinimumApplied         bool      `json:"minimum_applied"`
	Warnings               []Warning `json:"warnings,omitempty"`
}

type GetRequest struct {
	OrganizationID string
	PeriodID       string
}

type VoidRequest struct {
	OrganizationID string
	PeriodID       string
	Reason         string
}

type ListRequest struct {
	OrganizationID string
	ContractID     string
	Status         string
	From           time.Time
	To             time.Time
	Page           pagination.Pagination
}

type ListResponse struct {
	pagination.PageInfo
	Periods []*SalesPeriod `json:"periods"`
}

type Service interface {
	Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResponse, error)
	Preview(ctx context.Context, req PreviewRequest) (*PreviewResponse, error)
	Get(ctx context.Context, req GetRequest) (*SalesPeriod, error)
	Void(ctx context.Context, req VoidRequest) (*SalesPeriod, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
	ErrContractNotFound    = errors.New("contract_not_found")
	ErrContractNotActive   = errors.New("contract_not_active")
	ErrAlreadyVoided       = errors.New("already_voided")
	ErrNegativeSales       = errors.New("negative_sales")
)
