// Package domain contains spreadsheet mapping resolution: assigning roles
// to columns and canonical categories to raw terms.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ColumnRole is the meaning assigned to a spreadsheet column.
type ColumnRole string

const (
	RoleNetSales        ColumnRole = "net_sales"
	RoleGrossSales      ColumnRole = "gross_sales"
	RoleReturns         ColumnRole = "returns"
	RoleProductCategory ColumnRole = "product_category"
	RoleReportedRoyalty ColumnRole = "reported_royalty"
	RoleTerritory       ColumnRole = "territory"
	RoleReportPeriod    ColumnRole = "report_period"
	RolePeriodStart     ColumnRole = "period_start"
	RolePeriodEnd       ColumnRole = "period_end"
	RoleLicenseeName    ColumnRole = "licensee_name"
	RoleRoyaltyRate     ColumnRole = "royalty_rate"
	RoleUnits           ColumnRole = "units"
	RoleMetadata        ColumnRole = "metadata"
	RoleIgnore          ColumnRole = "ignore"
)

// Every role except metadata and ignore is unique: at most one column may
// carry it. When two columns resolve to the same unique role, the newer
// assignment wins and the earlier column is demoted to ignore.
func (r ColumnRole) Unique() bool {
	switch r {
	case RoleMetadata, RoleIgnore:
		return false
	}
	return ValidColumnRole(r)
}

func ValidColumnRole(r ColumnRole) bool {
	switch r {
	case RoleNetSales, RoleGrossSales, RoleReturns, RoleProductCategory,
		RoleReportedRoyalty, RoleTerritory, RoleReportPeriod, RolePeriodStart,
		RolePeriodEnd, RoleLicenseeName, RoleRoyaltyRate, RoleUnits,
		RoleMetadata, RoleIgnore:
		return true
	}
	return false
}

// MappingSource records which resolution stage produced an assignment.
// Stages are ordered; an earlier stage always wins.
type MappingSource string

const (
	SourceSaved      MappingSource = "saved"
	SourceKeyword    MappingSource = "keyword"
	SourceAI         MappingSource = "ai"
	SourceExact      MappingSource = "exact"
	SourceFallback   MappingSource = "fallback"
	SourceUnresolved MappingSource = "unresolved"
)

// ColumnMapping is one resolved column.
type ColumnMapping struct {
	Header     string        `json:"header"`
	Index      int           `json:"index"`
	Role       ColumnRole    `json:"role"`
	Source     MappingSource `json:"source"`
	Confidence float64       `json:"confidence"`
}

// Demotion is the audit record of a unique-role collision: the column kept
// its header but lost its role to a later column.
type Demotion struct {
	Header       string     `json:"header"`
	Index        int        `json:"index"`
	DemotedFrom  ColumnRole `json:"demoted_from"`
	KeptByHeader string     `json:"kept_by_header"`
	KeptByIndex  int        `json:"kept_by_index"`
}

// CategoryMapping is one resolved raw category term.
type CategoryMapping struct {
	RawTerm  string        `json:"raw_term"`
	Category string        `json:"category,omitempty"`
	Excluded bool          `json:"excluded"`
	Source   MappingSource `json:"source"`
}

// Resolved reports whether the term reached a terminal state: a canonical
// category or an explicit exclusion.
func (m CategoryMapping) Resolved() bool {
	return m.Excluded || m.Category != ""
}

// ColumnPreference is a saved per-org header-to-role assignment, keyed by the
// normalized header.
type ColumnPreference struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID snowflake.ID `gorm:"not null;index:idx_column_prefs_org_header,unique" json:"organization_id"`

	NormalizedHeader string     `gorm:"not null;index:idx_column_prefs_org_header,unique" json:"normalized_header"`
	Role             ColumnRole `gorm:"type:text;not null" json:"role"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ColumnPreference) TableName() string { return "column_preferences" }

// CategoryPreference is a saved per-org raw-term assignment: either a
// canonical contract category or an exclusion.
type CategoryPreference struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID snowflake.ID `gorm:"not null;index:idx_category_prefs_org_term,unique" json:"organization_id"`

	NormalizedTerm string `gorm:"not null;index:idx_category_prefs_org_term,unique" json:"normalized_term"`
	Category       string `gorm:"type:text" json:"category,omitempty"`
	Excluded       bool   `gorm:"not null;default:false" json:"excluded"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CategoryPreference) TableName() string { return "category_preferences" }

// Normalize collapses a header or category term for comparison: lower-cased,
// trimmed, inner whitespace runs reduced to single spaces.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
