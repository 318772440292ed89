package domain

import (
	"context"
	"errors"
)

// ResolveColumnsRequest resolves a sheet's header row for an organization.
type ResolveColumnsRequest struct {
	OrganizationID string
	Headers        []string
}

// ResolveCategoriesRequest resolves a sheet's raw category terms against a
// contract's canonical category list.
type ResolveCategoriesRequest struct {
	OrganizationID string
	ContractID     string
	RawTerms       []string
}

// SaveColumnPreferenceRequest persists an operator's correction so the same
// header resolves without review next time.
type SaveColumnPreferenceRequest struct {
	OrganizationID string
	Header         string
	Role           ColumnRole
}

type SaveCategoryPreferenceRequest struct {
	OrganizationID string
	RawTerm        string
	Category       string
	Excluded       bool
}

type Service interface {
	ResolveColumns(ctx context.Context, req ResolveColumnsRequest) (*ColumnResolution, error)
	ResolveCategories(ctx context.Context, req ResolveCategoriesRequest) (*CategoryResolution, error)
	SaveColumnPreference(ctx context.Context, req SaveColumnPreferenceRequest) (*ColumnPreference, error)
	SaveCategoryPreference(ctx context.Context, req SaveCategoryPreferenceRequest) (*CategoryPreference, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrContractNotFound    = errors.New("contract_not_found")
	ErrInvalidRole         = errors.New("invalid_role")
	ErrInvalidTerm         = errors.New("invalid_term")
	ErrInvalidAssignment   = errors.New("invalid_assignment")
)
