package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/regalia/pkg/db/pagination"
)

// ReceiveRequest registers an inbound email and scores it against the org's
// active contracts.
type ReceiveRequest struct {
	OrganizationID string

	SenderEmail   string
	SenderName    string
	Subject       string
	Body          string
	AttachmentKey string
	ReceivedAt    time.Time
	Metadata      map[string]interface{}
}

// ConfirmMatchRequest is the operator resolving a pending report to one
// contract. For a high-confidence report ContractID may be empty, accepting
// the scorer's match.
type ConfirmMatchRequest struct {
	OrganizationID string
	ReportID       string
	ContractID     string
}

type RejectRequest struct {
	OrganizationID string
	ReportID       string
	Reason         string
}

// MarkProcessedRequest links the sales period created from the report's
// attachment.
type MarkProcessedRequest struct {
	OrganizationID string
	ReportID       string
	SalesPeriodID  string
}

type GetRequest struct {
	OrganizationID string
	ReportID       string
}

type ListRequest struct {
	OrganizationID string
	Status         string
	Confidence     string
	Page           pagination.Pagination
}

type ListResponse struct {
	pagination.PageInfo
	Reports []*InboundReport `json:"reports"`
}

type Service interface {
	Receive(ctx context.Context, req ReceiveRequest) (*InboundReport, error)
	ConfirmMatch(ctx context.Context, req ConfirmMatchRequest) (*InboundReport, error)
	Reject(ctx context.Context, req RejectRequest) (*InboundReport, error)
	MarkProcessed(ctx context.Context, req MarkProcessedRequest) (*InboundReport, error)
	Get(ctx context.Context, req GetRequest) (*InboundReport, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
	ErrMissingSender       = errors.New("missing_sender")
	ErrNotPending          = errors.New("not_pending")
	ErrNotConfirmed        = errors.New("not_confirmed")
	ErrContractRequired    = errors.New("contract_required")
	ErrContractNotFound    = errors.New("contract_not_found")
)
