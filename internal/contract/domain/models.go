// Package domain contains the licensing contract model.
package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ContractStatus string

const (
	ContractStatusDraft   ContractStatus = "draft"
	ContractStatusActive  ContractStatus = "active"
	ContractStatusExpired ContractStatus = "expired"
)

// RoyaltyBase selects which sales figure the rate applies to.
type RoyaltyBase string

const (
	RoyaltyBaseNet   RoyaltyBase = "net"
	RoyaltyBaseGross RoyaltyBase = "gross"
)

type ReportingFrequency string

const (
	FrequencyMonthly    ReportingFrequency = "monthly"
	FrequencyQuarterly  ReportingFrequency = "quarterly"
	FrequencySemiAnnual ReportingFrequency = "semi_annual"
	FrequencyAnnual     ReportingFrequency = "annual"
)

type GuaranteePeriod string

const (
	GuaranteeMonthly   GuaranteePeriod = "monthly"
	GuaranteeQuarterly GuaranteePeriod = "quarterly"
	GuaranteeAnnual    GuaranteePeriod = "annual"
)

// Contract is a licensing agreement between the licensor (org) and one
// licensee. Core terms are frozen once the contract leaves draft.
type Contract struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID snowflake.ID `gorm:"not null;index" json:"organization_id"`

	LicenseeName    string `gorm:"not null" json:"licensee_name"`
	LicenseeEmail   string `gorm:"not null;index" json:"licensee_email"`
	AgreementNumber string `gorm:"not null" json:"agreement_number"`
	Slug            string `gorm:"not null;uniqueIndex" json:"slug"`

	Status ContractStatus `gorm:"type:text;not null;default:'draft'" json:"status"`

	// Rate is the stored royalty-rate document; it is only ever read
	// through royalty/domain.ParseRate.
	Rate        datatypes.JSON `gorm:"type:jsonb;not null" json:"rate"`
	RoyaltyBase RoyaltyBase    `gorm:"type:text;not null;default:'net'" json:"royalty_base"`

	ReportingFrequency ReportingFrequency `gorm:"type:text;not null" json:"reporting_frequency"`

	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`

	MinimumGuaranteeCents int64           `gorm:"not null;default:0" json:"minimum_guarantee_cents"`
	GuaranteePeriod       GuaranteePeriod `gorm:"type:text" json:"guarantee_period,omitempty"`
	GuaranteeRecoupable   bool            `gorm:"not null;default:false" json:"guarantee_recoupable"`
	AdvanceCents          int64           `gorm:"not null;default:0" json:"advance_cents"`

	Currency    string         `gorm:"type:text;not null;default:'USD'" json:"currency"`
	Territories datatypes.JSON `gorm:"type:jsonb" json:"territories,omitempty"`
	Categories  datatypes.JSON `gorm:"type:jsonb" json:"categories,omitempty"`

	Metadata datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Contract) TableName() string { return "contracts" }

// CategoryNames decodes the stored category list.
func (c *Contract) CategoryNames() []string {
	return decodeStringList(c.Categories)
}

// TerritoryNames decodes the stored territory list.
func (c *Contract) TerritoryNames() []string {
	return decodeStringList(c.Territories)
}

func decodeStringList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// AnnualizedGuaranteeCents converts the per-guarantee-period amount into the
// contract-year obligation used for shortfall evaluation.
func (c *Contract) AnnualizedGuaranteeCents() int64 {
	switch c.GuaranteePeriod {
	case GuaranteeMonthly:
		return c.MinimumGuaranteeCents * 12
	case GuaranteeQuarterly:
		return c.MinimumGuaranteeCents * 4
	default:
		return c.MinimumGuaranteeCents
	}
}

// frequencyRank orders reporting granularity from finest to coarsest.
func frequencyRank(f ReportingFrequency) int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 2
	case FrequencySemiAnnual:
		return 3
	case FrequencyAnnual:
		return 4
	default:
		return 0
	}
}

func guaranteeRank(g GuaranteePeriod) int {
	switch g {
	case GuaranteeMonthly:
		return 1
	case GuaranteeQuarterly:
		return 2
	case GuaranteeAnnual:
		return 4
	default:
		return 0
	}
}

// GuaranteeFinerThanReporting reports whether the guarantee window is shorter
// than the reporting window, a combination with no defined shortfall
// semantics. Such contracts cannot be activated.
func (c *Contract) GuaranteeFinerThanReporting() bool {
	if c.MinimumGuaranteeCents <= 0 || c.GuaranteePeriod == "" {
		return false
	}
	return guaranteeRank(c.GuaranteePeriod) < frequencyRank(c.ReportingFrequency)
}
