package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	contractdomain "github.com/smallbiznis/regalia/internal/contract/domain"
	contractrepo "github.com/smallbiznis/regalia/internal/contract/repository"
	"github.com/smallbiznis/regalia/internal/mapping/domain"
	mappingrepo "github.com/smallbiznis/regalia/internal/mapping/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type stubSuggester struct {
	columns    map[string]domain.ColumnSuggestion
	categories map[string]string
	err        error

	columnCalls [][]string
}

func (s *stubSuggester) SuggestColumns(ctx context.Context, headers []string) (map[string]domain.ColumnSuggestion, error) {
	s.columnCalls = append(s.columnCalls, headers)
	if s.err != nil {
		return nil, s.err
	}
	return s.columns, nil
}

func (s *stubSuggester) SuggestCategories(ctx context.Context, terms, canonical []string) (map[string]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.categories, nil
}

type mappingFixture struct {
	svc       domain.Service
	db        *gorm.DB
	node      *snowflake.Node
	orgID     snowflake.ID
	suggester *stubSuggester
}

func newMappingFixture(t *testing.T) *mappingFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&contractdomain.Contract{},
		&domain.ColumnPreference{},
		&domain.CategoryPreference{},
	))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	suggester := &stubSuggester{}
	svc := NewService(ServiceParam{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Repo:         mappingrepo.New(),
		ContractRepo: contractrepo.New(),
		Suggester:    suggester,
	})

	return &mappingFixture{
		svc:       svc,
		db:        db,
		node:      node,
		orgID:     node.Generate(),
		suggester: suggester,
	}
}

func (f *mappingFixture) seedContract(t *testing.T, categories string) *contractdomain.Contract {
	t.Helper()

	contract := &contractdomain.Contract{
		ID:                 f.node.Generate(),
		OrgID:              f.orgID,
		LicenseeName:       "Acme Toys",
		Slug:               "mapping-" + f.node.Generate().String(),
		Status:             contractdomain.ContractStatusActive,
		Rate:               datatypes.JSON([]byte(`{"type":"flat","rate":0.05}`)),
		ReportingFrequency: contractdomain.FrequencyQuarterly,
		StartDate:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:            time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		Currency:           "USD",
		Categories:         datatypes.JSON([]byte(categories)),
	}
	require.NoError(t, f.db.Create(contract).Error)
	return contract
}

func roleFor(t *testing.T, res *domain.ColumnResolution, header string) domain.ColumnMapping {
	t.Helper()
	for _, m := range res.Mappings {
		if m.Header == header {
			return m
		}
	}
	t.Fatalf("header %q not in resolution", header)
	return domain.ColumnMapping{}
}

func TestResolveColumnsKeywordStage(t *testing.T) {
	f := newMappingFixture(t)

	res, err := f.svc.ResolveColumns(context.Background(), domain.ResolveColumnsRequest{
		OrganizationID: f.orgID.String(),
		Headers:        []string{"Net Sales ($)", "Product Line", "Qty"},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RoleNetSales, roleFor(t, res, "Net Sales ($)").Role)
	assert.Equal(t, domain.RoleProductCategory, roleFor(t, res, "Product Line").Role)
	assert.Equal(t, domain.RoleUnits, roleFor(t, res, "Qty").Role)
	assert.Empty(t, f.suggester.columnCalls)
}

func TestResolveColumnsSavedBeatsKeyword(t *testing.T) {
	f := newMappingFixture(t)

	_, err := f.svc.SaveColumnPreference(context.Background(), domain.SaveColumnPreferenceRequest{
		OrganizationID: f.orgID.String(),
		Header:         "Net Sales",
		Role:           domain.RoleGrossSales,
	})
	require.NoError(t, err)

	res, err := f.svc.ResolveColumns(context.Background(), domain.ResolveColumnsRequest{
		OrganizationID: f.orgID.String(),
		Headers:        []string{"net   sales"},
	})
	require.NoError(t, err)

	mapping := roleFor(t, res, "net   sales")
	assert.Equal(t, domain.RoleGrossSales, mapping.Role)
	assert.Equal(t, domain.SourceSaved, mapping.Source)
}

func TestResolveColumnsConsultsAIForUnassignedOnly(t *testing.T) {
	f := newMappingFixture(t)
	f.suggester.columns = map[string]domain.ColumnSuggestion{
		domain.Normalize("Wholesale Amt"): {Role: domain.RoleNetSales, Confidence: 0.9},
	}

	res, err := f.svc.ResolveColumns(context.Background(), domain.ResolveColumnsRequest{
		OrganizationID: f.orgID.String(),
		Headers:        []string{"Period Start", "Wholesale Amt"},
	})
	require.NoError(t, err)

	require.Len(t, f.suggester.columnCalls, 1)
	assert.Equal(t, []string{"Wholesale Amt"}, f.suggester.columnCalls[0])

	mapping := roleFor(t, res, "Wholesale Amt")
	assert.Equal(t, domain.RoleNetSales, mapping.Role)
	assert.Equal(t, domain.SourceAI, mapping.Source)
}

func TestResolveColumnsSuggesterFailureDegrades(t *testing.T) {
	f := newMappingFixture(t)
	f.suggester.err = errors.New("backend down")

	res, err := f.svc.ResolveColumns(context.Background(), domain.ResolveColumnsRequest{
		OrganizationID: f.orgID.String(),
		Headers:        []string{"Mystery Column"},
	})
	require.NoError(t, err)

	mapping := roleFor(t, res, "Mystery Column")
	assert.Equal(t, domain.RoleIgnore, mapping.Role)
	assert.Equal(t, domain.SourceFallback, mapping.Source)
	assert.ErrorIs(t, domain.RequireSalesColumn(*res), domain.ErrMissingSalesColumn)
}

func TestResolveCategories(t *testing.T) {
	f := newMappingFixture(t)
	contract := f.seedContract(t, `["Plush","Die-cast"]`)
	f.suggester.categories = map[string]string{
		domain.Normalize("Stuffed Animals"): "Plush",
	}

	_, err := f.svc.SaveCategoryPreference(context.Background(), domain.SaveCategoryPreferenceRequest{
		OrganizationID: f.orgID.String(),
		RawTerm:        "Freight",
		Excluded:       true,
	})
	require.NoError(t, err)

	res, err := f.svc.ResolveCategories(context.Background(), domain.ResolveCategoriesRequest{
		OrganizationID: f.orgID.String(),
		ContractID:     contract.ID.String(),
		RawTerms:       []string{"plush", "Stuffed Animals", "Freight", "Unknown Thing"},
	})
	require.NoError(t, err)

	byTerm := make(map[string]domain.CategoryMapping, len(res.Mappings))
	for _, m := range res.Mappings {
		byTerm[m.RawTerm] = m
	}

	assert.Equal(t, "Plush", byTerm["plush"].Category)
	assert.Equal(t, domain.SourceExact, byTerm["plush"].Source)
	assert.Equal(t, "Plush", byTerm["Stuffed Animals"].Category)
	assert.Equal(t, domain.SourceAI, byTerm["Stuffed Animals"].Source)
	assert.True(t, byTerm["Freight"].Excluded)
	assert.Equal(t, []string{"Unknown Thing"}, res.Unresolved)
	assert.ErrorIs(t, domain.RequireResolved(*res), domain.ErrUnresolvedCategories)
}

func TestSaveColumnPreferenceValidation(t *testing.T) {
	f := newMappingFixture(t)

	_, err := f.svc.SaveColumnPreference(context.Background(), domain.SaveColumnPreferenceRequest{
		OrganizationID: f.orgID.String(),
		Header:         "  ",
		Role:           domain.RoleNetSales,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTerm)

	_, err = f.svc.SaveColumnPreference(context.Background(), domain.SaveColumnPreferenceRequest{
		OrganizationID: f.orgID.String(),
		Header:         "Revenue",
		Role:           domain.ColumnRole("bogus"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestSaveCategoryPreferenceValidation(t *testing.T) {
	f := newMappingFixture(t)

	// Both a category and the excluded flag.
	_, err := f.svc.SaveCategoryPreference(context.Background(), domain.SaveCategoryPreferenceRequest{
		OrganizationID: f.orgID.String(),
		RawTerm:        "Freight",
		Category:       "Plush",
		Excluded:       true,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAssignment)

	// Neither.
	_, err = f.svc.SaveCategoryPreference(context.Background(), domain.SaveCategoryPreferenceRequest{
		OrganizationID: f.orgID.String(),
		RawTerm:        "Freight",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAssignment)
}
