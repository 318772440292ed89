package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roleOf(t *testing.T, r ColumnResolution, header string) ColumnMapping {
	t.Helper()
	for _, m := range r.Mappings {
		if m.Header == header {
			return m
		}
	}
	t.Fatalf("no mapping for header %q", header)
	return ColumnMapping{}
}

func TestResolveColumns_KeywordStage(t *testing.T) {
	r := ResolveColumns([]string{"Net Sales ($)", "Gross Revenue", "Product Category", "Qty Sold", "Royalty Due"}, nil, nil)

	assert.Equal(t, RoleNetSales, roleOf(t, r, "Net Sales ($)").Role)
	assert.Equal(t, SourceKeyword, roleOf(t, r, "Net Sales ($)").Source)
	assert.Equal(t, RoleGrossSales, roleOf(t, r, "Gross Revenue").Role)
	assert.Equal(t, RoleProductCategory, roleOf(t, r, "Product Category").Role)
	assert.Equal(t, RoleUnits, roleOf(t, r, "Qty Sold").Role)
	assert.Equal(t, RoleReportedRoyalty, roleOf(t, r, "Royalty Due").Role)
	assert.Empty(t, r.Demotions)
}

func TestResolveColumns_SavedBeatsKeyword(t *testing.T) {
	saved := map[string]ColumnRole{
		Normalize("Net Sales"): RoleGrossSales,
	}
	r := ResolveColumns([]string{"Net Sales"}, saved, nil)

	m := roleOf(t, r, "Net Sales")
	assert.Equal(t, RoleGrossSales, m.Role)
	assert.Equal(t, SourceSaved, m.Source)
}

func TestResolveColumns_AIOnlyForUnrecognized(t *testing.T) {
	suggestions := map[string]ColumnSuggestion{
		Normalize("Wholesale Receipts"): {Role: RoleNetSales, Confidence: 0.8},
		Normalize("Net Sales"):          {Role: RoleIgnore, Confidence: 0.9},
	}
	r := ResolveColumns([]string{"Net Sales", "Wholesale Receipts"}, nil, suggestions)

	// The keyword stage claims "Net Sales" before AI is consulted, so the AI
	// suggestion for it never applies. The unrecognized header takes the AI
	// role, and being the later assignment it keeps it; the keyword column
	// is demoted.
	assert.Equal(t, RoleNetSales, roleOf(t, r, "Wholesale Receipts").Role)
	assert.Equal(t, SourceAI, roleOf(t, r, "Wholesale Receipts").Source)
	assert.Equal(t, RoleIgnore, roleOf(t, r, "Net Sales").Role)
	require.Len(t, r.Demotions, 1)
	assert.Equal(t, "Net Sales", r.Demotions[0].Header)
	assert.Equal(t, RoleNetSales, r.Demotions[0].DemotedFrom)
}

func TestResolveColumns_UnknownFallsToIgnore(t *testing.T) {
	r := ResolveColumns([]string{"Notes"}, nil, nil)

	m := roleOf(t, r, "Notes")
	assert.Equal(t, RoleIgnore, m.Role)
	assert.Equal(t, SourceFallback, m.Source)
}

func TestResolveColumns_NewerAssignmentWinsUniqueRole(t *testing.T) {
	r := ResolveColumns([]string{"Net Sales", "Net Amount"}, nil, nil)

	assert.Equal(t, RoleIgnore, roleOf(t, r, "Net Sales").Role)
	assert.Equal(t, RoleNetSales, roleOf(t, r, "Net Amount").Role)

	require.Len(t, r.Demotions, 1)
	d := r.Demotions[0]
	assert.Equal(t, "Net Sales", d.Header)
	assert.Equal(t, 0, d.Index)
	assert.Equal(t, RoleNetSales, d.DemotedFrom)
	assert.Equal(t, "Net Amount", d.KeptByHeader)
	assert.Equal(t, 1, d.KeptByIndex)
}

func TestResolveColumns_SavedPairKeepsLaterColumn(t *testing.T) {
	// Two saved preferences landing on the same unique role: the later
	// column takes it, the earlier one records a demotion.
	saved := map[string]ColumnRole{
		Normalize("Net Sales"):  RoleNetSales,
		Normalize("Net Amount"): RoleNetSales,
	}
	r := ResolveColumns([]string{"Net Sales", "Net Amount"}, saved, nil)

	assert.Equal(t, RoleIgnore, roleOf(t, r, "Net Sales").Role)
	assert.Equal(t, RoleNetSales, roleOf(t, r, "Net Amount").Role)
	assert.Equal(t, SourceSaved, roleOf(t, r, "Net Amount").Source)
	require.Len(t, r.Demotions, 1)
	assert.Equal(t, "Net Sales", r.Demotions[0].Header)
}

func TestResolveColumns_CategoryIsUnique(t *testing.T) {
	r := ResolveColumns([]string{"Category", "Sub Category"}, nil, nil)

	assert.Equal(t, RoleIgnore, roleOf(t, r, "Category").Role)
	assert.Equal(t, RoleProductCategory, roleOf(t, r, "Sub Category").Role)
	require.Len(t, r.Demotions, 1)
	assert.Equal(t, "Category", r.Demotions[0].Header)
}

func TestResolveColumns_MetadataNotUnique(t *testing.T) {
	saved := map[string]ColumnRole{
		Normalize("PO Number"): RoleMetadata,
		Normalize("Memo"):      RoleMetadata,
	}
	r := ResolveColumns([]string{"PO Number", "Memo"}, saved, nil)

	assert.Equal(t, RoleMetadata, roleOf(t, r, "PO Number").Role)
	assert.Equal(t, RoleMetadata, roleOf(t, r, "Memo").Role)
	assert.Empty(t, r.Demotions)
	assert.Equal(t, []int{0, 1}, r.RoleIndexes(RoleMetadata))
}

func TestResolveColumns_ExpandedKeywordRoles(t *testing.T) {
	r := ResolveColumns([]string{"Returns", "Territory", "Licensee Name", "Royalty Rate", "Report Period"}, nil, nil)

	assert.Equal(t, RoleReturns, roleOf(t, r, "Returns").Role)
	assert.Equal(t, RoleTerritory, roleOf(t, r, "Territory").Role)
	assert.Equal(t, RoleLicenseeName, roleOf(t, r, "Licensee Name").Role)
	assert.Equal(t, RoleRoyaltyRate, roleOf(t, r, "Royalty Rate").Role)
	assert.Equal(t, RoleReportPeriod, roleOf(t, r, "Report Period").Role)
	assert.Empty(t, r.Demotions)
}

func TestRequireSalesColumn(t *testing.T) {
	withNet := ResolveColumns([]string{"Net Sales"}, nil, nil)
	assert.NoError(t, RequireSalesColumn(withNet))

	withGross := ResolveColumns([]string{"Gross Sales"}, nil, nil)
	assert.NoError(t, RequireSalesColumn(withGross))

	without := ResolveColumns([]string{"Notes", "Region"}, nil, nil)
	assert.ErrorIs(t, RequireSalesColumn(without), ErrMissingSalesColumn)
}
