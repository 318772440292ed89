// Package domain contains the sales reporting period model and its
// validation rules.
package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type PeriodStatus string

const (
	PeriodStatusConfirmed PeriodStatus = "confirmed"
	PeriodStatusVoided    PeriodStatus = "voided"
)

// PeriodSource records how a period entered the system.
type PeriodSource string

const (
	SourceManual    PeriodSource = "manual"
	SourceIngestion PeriodSource = "ingestion"
	SourceInbound   PeriodSource = "inbound"
)

// SalesPeriod is one confirmed reporting window of licensee sales, with the
// royalty computed at confirmation time. Confirmed periods for one contract
// never overlap, endpoints included.
type SalesPeriod struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID `gorm:"not null;index" json:"organization_id"`
	ContractID snowflake.ID `gorm:"not null;index" json:"contract_id"`

	PeriodStart time.Time `gorm:"not null" json:"period_start"`
	PeriodEnd   time.Time `gorm:"not null" json:"period_end"`

	NetSalesCents   int64          `gorm:"not null;default:0" json:"net_sales_cents"`
	GrossSalesCents int64          `gorm:"not null;default:0" json:"gross_sales_cents"`
	CategorySales   datatypes.JSON `gorm:"type:jsonb" json:"category_sales,omitempty"`

	RoyaltyCalculatedCents int64 `gorm:"not null;default:0" json:"royalty_calculated_cents"`
	MinimumApplied         bool  `gorm:"not null;default:false" json:"minimum_applied"`

	// LicenseeReportedRoyaltyCents keeps the royalty figure the licensee
	// declared, when one was declared. Discrepancies against the calculated
	// figure are surfaced, never silently reconciled.
	LicenseeReportedRoyaltyCents *int64 `json:"licensee_reported_royalty_cents,omitempty"`

	Status PeriodStatus `gorm:"type:text;not null;default:'confirmed'" json:"status"`
	Source PeriodSource `gorm:"type:text;not null;default:'manual'" json:"source"`

	Currency string            `gorm:"type:text;not null;default:'USD'" json:"currency"`
	Metadata datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (SalesPeriod) TableName() string { return "sales_periods" }

// CategorySalesCents decodes the stored per-category sales breakdown.
func (p *SalesPeriod) CategorySalesCents() map[string]int64 {
	if len(p.CategorySales) == 0 {
		return nil
	}
	var out map[string]int64
	if err := json.Unmarshal(p.CategorySales, &out); err != nil {
		return nil
	}
	return out
}

// Overlaps reports whether two closed date ranges share at least one day.
// Touching endpoints count as overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}

// DayCount returns the inclusive number of days in [start, end].
func DayCount(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}
