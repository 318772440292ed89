package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// CalculationResult is the outcome of rating one reporting period.
type CalculationResult struct {
	ContractID             snowflake.ID `json:"contract_id"`
	PeriodStart            time.Time    `json:"period_start"`
	PeriodEnd              time.Time    `json:"period_end"`
	NetSalesCents          int64        `json:"net_sales_cents"`
	RoyaltyCalculatedCents int64        `json:"royalty_calculated_cents"`

	// MinimumApplied marks periods where a minimum guarantee exists and the
	// contract-year running total is still below the annualized guarantee.
	// It is informational; the guarantee itself settles at year close.
	MinimumApplied bool `json:"minimum_applied"`
}

// YearWindow is one contract year: a [Start, End] range anchored to the
// contract start date, not the calendar year.
type YearWindow struct {
	Index int       `json:"index"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ContractYearWindow returns the contract year containing at. Years are
// numbered from 1 and each runs from an anniversary of contractStart to the
// day before the next one.
func ContractYearWindow(contractStart, at time.Time) YearWindow {
	contractStart = contractStart.UTC()
	at = at.UTC()

	index := at.Year() - contractStart.Year()
	anniversary := contractStart.AddDate(index, 0, 0)
	if at.Before(anniversary) {
		index--
		anniversary = contractStart.AddDate(index, 0, 0)
	}
	if index < 0 {
		index = 0
		anniversary = contractStart
	}

	return YearWindow{
		Index: index + 1,
		Start: anniversary,
		End:   anniversary.AddDate(1, 0, 0).AddDate(0, 0, -1),
	}
}

// YearSummary aggregates one contract year of confirmed periods against the
// guarantee.
type YearSummary struct {
	Window YearWindow `json:"window"`

	RoyaltiesAccruedCents    int64 `json:"royalties_accrued_cents"`
	AnnualizedGuaranteeCents int64 `json:"annualized_guarantee_cents"`
	GuaranteeShortfallCents  int64 `json:"guarantee_shortfall_cents"`
	Closed                   bool  `json:"closed"`
	Finalized                bool  `json:"finalized"`
}

// AdvanceStatus reports advance recoupment for a contract. Unrecouped never
// goes below zero and never grows back once recouped.
type AdvanceStatus struct {
	AdvanceCents           int64 `json:"advance_cents"`
	CumulativeRoyaltyCents int64 `json:"cumulative_royalty_cents"`
	UnrecoupedCents        int64 `json:"unrecouped_cents"`
	FullyRecouped          bool  `json:"fully_recouped"`
}

// ContractYearFinalization records an explicit early close of a contract
// year, fixing its shortfall before the calendar would close it.
type ContractYearFinalization struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID `gorm:"not null;index" json:"organization_id"`
	ContractID snowflake.ID `gorm:"not null;index:idx_year_finalizations_contract_year,unique" json:"contract_id"`
	YearIndex  int          `gorm:"not null;index:idx_year_finalizations_contract_year,unique" json:"year_index"`

	ShortfallCents int64     `gorm:"not null" json:"shortfall_cents"`
	FinalizedAt    time.Time `gorm:"not null" json:"finalized_at"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ContractYearFinalization) TableName() string { return "contract_year_finalizations" }
