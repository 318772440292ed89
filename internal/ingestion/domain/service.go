// Package domain defines the spreadsheet ingestion pipeline contract.
package domain

import (
	"context"
	"errors"
	"time"

	mappingdomain "github.com/smallbiznis/regalia/internal/mapping/domain"
	salesperioddomain "github.com/smallbiznis/regalia/internal/salesperiod/domain"
)

// IngestRequest runs one uploaded workbook through mapping resolution,
// normalization, and period confirmation. With DryRun set nothing is
// persisted; the caller gets the resolved mappings and the computed royalty
// for review.
type IngestRequest struct {
	OrganizationID string
	ContractID     string

	FileName  string
	Content   []byte
	SheetName string

	// PeriodStart and PeriodEnd override the sheet's period columns; both
	// must be set together or derivable from the sheet.
	PeriodStart time.Time
	PeriodEnd   time.Time

	DryRun bool
}

type IngestResult struct {
	Columns    *mappingdomain.ColumnResolution   `json:"columns"`
	Categories *mappingdomain.CategoryResolution `json:"categories,omitempty"`

	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	NetSalesCents        int64            `json:"net_sales_cents"`
	GrossSalesCents      int64            `json:"gross_sales_cents"`
	CategorySalesCents   map[string]int64 `json:"category_sales_cents,omitempty"`
	ExcludedSalesCents   int64            `json:"excluded_sales_cents"`
	ReportedRoyaltyCents *int64           `json:"reported_royalty_cents,omitempty"`

	// Metadata carries the values of columns mapped to the metadata role:
	// passed through onto the stored period, never rated.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// Confirmation is set on a real run, Preview on a dry run.
	Confirmation *salesperioddomain.ConfirmResponse `json:"confirmation,omitempty"`
	Preview      *salesperioddomain.PreviewResponse `json:"preview,omitempty"`
}

type Service interface {
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)
}

var (
	ErrEmptyFile          = errors.New("empty_file")
	ErrMissingPeriodDates = errors.New("missing_period_dates")
	ErrMalformedCell      = errors.New("malformed_cell")
)
