package domain

import (
	"errors"
	"strings"
)

var ErrMissingSalesColumn = errors.New("missing_sales_column")

// ColumnSuggestion is an AI-proposed role for one header.
type ColumnSuggestion struct {
	Role       ColumnRole `json:"role"`
	Confidence float64    `json:"confidence"`
}

// ColumnResolution is the outcome of resolving a header row.
type ColumnResolution struct {
	Mappings  []ColumnMapping `json:"mappings"`
	Demotions []Demotion      `json:"demotions,omitempty"`
}

// RoleIndex returns the column index carrying role, or -1.
func (r ColumnResolution) RoleIndex(role ColumnRole) int {
	for _, m := range r.Mappings {
		if m.Role == role {
			return m.Index
		}
	}
	return -1
}

// RoleIndexes returns every column index carrying role, in column order.
// Useful for the non-unique roles (metadata, product_category on legacy
// sheets) where RoleIndex would only surface the first.
func (r ColumnResolution) RoleIndexes(role ColumnRole) []int {
	var indexes []int
	for _, m := range r.Mappings {
		if m.Role == role {
			indexes = append(indexes, m.Index)
		}
	}
	return indexes
}

// keywordRules map header fragments to roles. Rules are ordered; the first
// fragment found in the normalized header wins. More specific fragments come
// before shorter ones they contain.
var keywordRules = []struct {
	fragment string
	role     ColumnRole
}{
	{"net sales", RoleNetSales},
	{"net revenue", RoleNetSales},
	{"gross sales", RoleGrossSales},
	{"gross revenue", RoleGrossSales},
	{"royalty rate", RoleRoyaltyRate},
	{"royalty", RoleReportedRoyalty},
	{"return", RoleReturns},
	{"category", RoleProductCategory},
	{"product line", RoleProductCategory},
	{"territory", RoleTerritory},
	{"country", RoleTerritory},
	{"region", RoleTerritory},
	{"licensee", RoleLicenseeName},
	{"period start", RolePeriodStart},
	{"start date", RolePeriodStart},
	{"period end", RolePeriodEnd},
	{"end date", RolePeriodEnd},
	{"report period", RoleReportPeriod},
	{"reporting period", RoleReportPeriod},
	{"quantity", RoleUnits},
	{"units", RoleUnits},
	{"qty", RoleUnits},
	{"net", RoleNetSales},
	{"gross", RoleGrossSales},
}

func keywordRole(normalizedHeader string) (ColumnRole, bool) {
	for _, rule := range keywordRules {
		if strings.Contains(normalizedHeader, rule.fragment) {
			return rule.role, true
		}
	}
	return "", false
}

// ResolveColumns assigns a role to every header. Resolution stages, in
// order of precedence: saved per-org preference, keyword rule, AI
// suggestion, ignore. After assignment, unique-role collisions keep the
// most recent assignment: the later column takes the role and the earlier
// holder is demoted to ignore, recording each demotion.
//
// saved is keyed by Normalize(header); suggestions likewise.
func ResolveColumns(headers []string, saved map[string]ColumnRole, suggestions map[string]ColumnSuggestion) ColumnResolution {
	mappings := make([]ColumnMapping, 0, len(headers))

	for i, header := range headers {
		normalized := Normalize(header)
		mapping := ColumnMapping{Header: header, Index: i, Role: RoleIgnore, Source: SourceFallback}

		if role, ok := saved[normalized]; ok && ValidColumnRole(role) {
			mapping.Role = role
			mapping.Source = SourceSaved
			mapping.Confidence = 1
		} else if role, ok := keywordRole(normalized); ok {
			mapping.Role = role
			mapping.Source = SourceKeyword
			mapping.Confidence = 1
		} else if suggestion, ok := suggestions[normalized]; ok && ValidColumnRole(suggestion.Role) {
			mapping.Role = suggestion.Role
			mapping.Source = SourceAI
			mapping.Confidence = suggestion.Confidence
		}

		mappings = append(mappings, mapping)
	}

	resolution := ColumnResolution{Mappings: mappings}

	claimed := make(map[ColumnRole]int)
	for i := range resolution.Mappings {
		m := &resolution.Mappings[i]
		if !m.Role.Unique() {
			continue
		}
		prev, taken := claimed[m.Role]
		claimed[m.Role] = i
		if !taken {
			continue
		}
		earlier := &resolution.Mappings[prev]
		resolution.Demotions = append(resolution.Demotions, Demotion{
			Header:       earlier.Header,
			Index:        earlier.Index,
			DemotedFrom:  earlier.Role,
			KeptByHeader: m.Header,
			KeptByIndex:  m.Index,
		})
		earlier.Role = RoleIgnore
	}

	return resolution
}

// RequireSalesColumn enforces the one blocking rule of column resolution: a
// usable sheet carries net sales or gross sales.
func RequireSalesColumn(r ColumnResolution) error {
	if r.RoleIndex(RoleNetSales) >= 0 || r.RoleIndex(RoleGrossSales) >= 0 {
		return nil
	}
	return ErrMissingSalesColumn
}
