package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/smallbiznis/regalia/pkg/db/pagination"
)

// ExtractedTerms is the untrusted output of the document-extraction
// collaborator. Every field is a raw string (or raw JSON) of uncertain
// shape; the service normalizes and validates before anything is stored.
type ExtractedTerms struct {
	LicenseeName       string          `json:"licensee_name"`
	LicenseeEmail      string          `json:"licensee_email"`
	AgreementNumber    string          `json:"agreement_number"`
	Rate               json.RawMessage `json:"rate"`
	RoyaltyBase        string          `json:"royalty_base"`
	ReportingFrequency string          `json:"reporting_frequency"`
	StartDate          string          `json:"start_date"`
	EndDate            string          `json:"end_date"`
	MinimumGuarantee   string          `json:"minimum_guarantee"`
	GuaranteePeriod    string          `json:"guarantee_period"`
	Advance            string          `json:"advance"`
	Currency           string          `json:"currency"`
	Territories        []string        `json:"territories"`
	Categories         []string        `json:"categories"`
}

type CreateDraftRequest struct {
	OrganizationID string
	Terms          ExtractedTerms
}

// ActivateRequest confirms a draft's normalized fields. Zero-valued
// overrides keep the draft's value.
type ActivateRequest struct {
	OrganizationID string
	ContractID     string

	LicenseeEmail string
	Categories    []string
}

type GetRequest struct {
	OrganizationID string
	ContractID     string
}

type ListRequest struct {
	OrganizationID string
	Status         string
	LicenseeName   string
	Page           pagination.Pagination
}

type ListResponse struct {
	pagination.PageInfo
	Contracts []*Contract `json:"contracts"`
}

type Service interface {
	CreateDraft(ctx context.Context, req CreateDraftRequest) (*Contract, error)
	Activate(ctx context.Context, req ActivateRequest) (*Contract, error)
	Get(ctx context.Context, req GetRequest) (*Contract, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	ListActive(ctx context.Context, organizationID string) ([]*Contract, error)
}

// ContractWindow is the effective [start, end] date range of a contract.
type ContractWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

var (
	ErrInvalidOrganization         = errors.New("invalid_organization")
	ErrInvalidID                   = errors.New("invalid_id")
	ErrNotFound                    = errors.New("not_found")
	ErrNotDraft                    = errors.New("not_draft")
	ErrMissingLicensee             = errors.New("missing_licensee")
	ErrInvalidDates                = errors.New("invalid_dates")
	ErrInvalidFrequency            = errors.New("invalid_frequency")
	ErrInvalidGuarantee            = errors.New("invalid_guarantee")
	ErrInvalidAmount               = errors.New("invalid_amount")
	ErrInvalidRate                 = errors.New("invalid_rate")
	ErrGuaranteeFinerThanReporting = errors.New("guarantee_finer_than_reporting")
)
