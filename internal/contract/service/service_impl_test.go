package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/regalia/internal/contract/domain"
	"github.com/smallbiznis/regalia/internal/contract/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type contractFixture struct {
	svc   domain.Service
	db    *gorm.DB
	node  *snowflake.Node
	orgID snowflake.ID
}

func newContractFixture(t *testing.T) *contractFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Contract{}))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.New(),
	})

	return &contractFixture{
		svc:   svc,
		db:    db,
		node:  node,
		orgID: node.Generate(),
	}
}

func fullTerms() domain.ExtractedTerms {
	return domain.ExtractedTerms{
		LicenseeName:       "Acme Toys, Inc.",
		LicenseeEmail:      "Reports@AcmeToys.example",
		AgreementNumber:    "LIC-2024-001",
		Rate:               json.RawMessage(`"7.5%"`),
		RoyaltyBase:        "net sales",
		ReportingFrequency: "Quarterly",
		StartDate:          "2024-01-01",
		EndDate:            "2026-12-31",
		MinimumGuarantee:   "$50,000",
		GuaranteePeriod:    "annual",
		Advance:            "$12,500",
		Currency:           "usd",
		Categories:         []string{"Plush", "Die-cast", ""},
	}
}

func TestCreateDraftNormalizesTerms(t *testing.T) {
	f := newContractFixture(t)

	contract, err := f.svc.CreateDraft(context.Background(), domain.CreateDraftRequest{
		OrganizationID: f.orgID.String(),
		Terms:          fullTerms(),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ContractStatusDraft, contract.Status)
	assert.Equal(t, "Acme Toys, Inc.", contract.LicenseeName)
	assert.Equal(t, "reports@acmetoys.example", contract.LicenseeEmail)
	assert.Equal(t, int64(5_000_000), contract.MinimumGuaranteeCents)
	assert.Equal(t, domain.GuaranteeAnnual, contract.GuaranteePeriod)
	assert.Equal(t, int64(1_250_000), contract.AdvanceCents)
	assert.True(t, contract.GuaranteeRecoupable)
	assert.Equal(t, "USD", contract.Currency)
	assert.Equal(t, domain.FrequencyQuarterly, contract.ReportingFrequency)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), contract.StartDate)
	assert.Equal(t, []string{"Plush", "Die-cast"}, contract.CategoryNames())
	assert.NotEmpty(t, contract.Slug)
}

func TestCreateDraftStoresTaggedRateDocument(t *testing.T) {
	f := newContractFixture(t)

	draft, err := f.svc.CreateDraft(context.Background(), domain.CreateDraftRequest{
		OrganizationID: f.orgID.String(),
		Terms:          fullTerms(),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"flat","rate":0.075}`, string(draft.Rate))

	// Reading back through the driver is the real check: the stored rate
	// document must stay textual and scan cleanly on sqlite.
	var stored domain.Contract
	require.NoError(t, f.db.Where("id = ?", draft.ID).First(&stored).Error)
	assert.JSONEq(t, `{"type":"flat","rate":0.075}`, string(stored.Rate))

	// A bare numeric rate from the extractor normalizes to the same shape.
	terms := fullTerms()
	terms.Rate = json.RawMessage(`0.06`)
	terms.AgreementNumber = "LIC-2024-009"
	bare, err := f.svc.CreateDraft(context.Background(), domain.CreateDraftRequest{
		OrganizationID: f.orgID.String(),
		Terms:          terms,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"flat","rate":0.06}`, string(bare.Rate))
}

func TestCreateDraftRequiresLicensee(t *testing.T) {
	f := newContractFixture(t)

	terms := fullTerms()
	terms.LicenseeName = "  "
	_, err := f.svc.CreateDraft(context.Background(), domain.CreateDraftRequest{
		OrganizationID: f.orgID.String(),
		Terms:          terms,
	})
	assert.ErrorIs(t, err, domain.ErrMissingLicensee)
}

func TestCreateDraftRejectsMalformedRate(t *testing.T) {
	f := newContractFixture(t)

	terms := fullTerms()
	terms.Rate = json.RawMessage(`"seven percent"`)
	_, err := f.svc.CreateDraft(context.Background(), domain.CreateDraftRequest{
		OrganizationID: f.orgID.String(),
		Terms:          terms,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRate)
}

func TestCreateDraftRejectsInvertedDates(t *testing.T) {
	f := newContractFixture(t)

	terms := fullTerms()
	terms.StartDate = "2026-01-01"
	terms.EndDate = "2024-01-01"
	_, err := f.svc.CreateDraft(context.Background(), domain.CreateDraftRequest{
		OrganizationID: f.orgID.String(),
		Terms:          terms,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDates)
}

func TestCreateDraftSlugCollisionRetries(t *testing.T) {
	f := newContractFixture(t)

	first, err := f.svc.CreateDraft(context.Background(), domain.CreateDraftRequest{
		OrganizationID: f.orgID.String(),
		Terms:          fullTerms(),
	})
	require.NoError(t, err)

	second, err := f.svc.CreateDraft(context.Background(), domain.CreateDraftRequest{
		OrganizationID: f.orgID.String(),
		Terms:          fullTerms(),
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.Slug, second.Slug)
}

func TestActivateHappyPath(t *testing.T) {
	f := newContractFixture(t)

	draft, err := f.svc.CreateDraft(context.Background(), domain.CreateDraftRequest{
		OrganizationID: f.orgID.String(),
		Terms:          fullTerms(),
	})
	require.NoError(t, err)

	active, err := f.svc.Activate(context.Background(), domain.ActivateRequest{
		OrganizationID: f.orgID.String(),
		ContractID:     draft.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ContractStatusActive, active.Status)

	// A second activation finds a non-draft contract.
	_, err = f.svc.Activate(context.Background(), domain.ActivateRequest{
		OrganizationID: f.orgID.String(),
		ContractID:     draft.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrNotDraft)
}

func TestActivateRequiresCompleteTerms(t *testing.T) {
	f := newContractFixture(t)

	terms := fullTerms()
	terms.ReportingFrequency = ""
	draft, err := f.svc.CreateDraft(context.Background(), domain.CreateDraftRequest{
		OrganizationID: f.orgID.String(),
		Terms:          terms,
	})
	require.NoError(t, err)

	_, err = f.svc.Activate(context.Background(), domain.ActivateRequest{
		OrganizationID: f.orgID.String(),
		ContractID:     draft.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidFrequency)
}

func TestActivateRejectsGuaranteeFinerThanReporting(t *testing.T) {
	f := newContractFixture(t)

	terms := fullTerms()
	terms.ReportingFrequency = "annual"
	terms.GuaranteePeriod = "quarterly"
	draft, err := f.svc.CreateDraft(context.Background(), domain.CreateDraftRequest{
		OrganizationID: f.orgID.String(),
		Terms:          terms,
	})
	require.NoError(t, err)

	_, err = f.svc.Activate(context.Background(), domain.ActivateRequest{
		OrganizationID: f.orgID.String(),
		ContractID:     draft.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrGuaranteeFinerThanReporting)
}

func TestActivateCategoryRateNeedsCategories(t *testing.T) {
	f := newContractFixture(t)

	terms := fullTerms()
	terms.Rate = json.RawMessage(`{"type":"category","rates":{"Plush":0.06}}`)
	terms.Categories = nil
	draft, err := f.svc.CreateDraft(context.Background(), domain.CreateDraftRequest{
		OrganizationID: f.orgID.String(),
		Terms:          terms,
	})
	require.NoError(t, err)

	_, err = f.svc.Activate(context.Background(), domain.ActivateRequest{
		OrganizationID: f.orgID.String(),
		ContractID:     draft.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRate)

	// Supplying the category list at activation clears the block.
	active, err := f.svc.Activate(context.Background(), domain.ActivateRequest{
		OrganizationID: f.orgID.String(),
		ContractID:     draft.ID.String(),
		Categories:     []string{"Plush"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ContractStatusActive, active.Status)
}

func TestListFiltersByStatus(t *testing.T) {
	f := newContractFixture(t)

	draft, err := f.svc.CreateDraft(context.Background(), domain.CreateDraftRequest{
		OrganizationID: f.orgID.String(),
		Terms:          fullTerms(),
	})
	require.NoError(t, err)

	terms := fullTerms()
	terms.LicenseeName = "Northwind Media"
	terms.AgreementNumber = "LIC-2024-002"
	other, err := f.svc.CreateDraft(context.Background(), domain.CreateDraftRequest{
		OrganizationID: f.orgID.String(),
		Terms:          terms,
	})
	require.NoError(t, err)

	_, err = f.svc.Activate(context.Background(), domain.ActivateRequest{
		OrganizationID: f.orgID.String(),
		ContractID:     other.ID.String(),
	})
	require.NoError(t, err)

	drafts, err := f.svc.List(context.Background(), domain.ListRequest{
		OrganizationID: f.orgID.String(),
		Status:         "draft",
	})
	require.NoError(t, err)
	require.Len(t, drafts.Contracts, 1)
	assert.Equal(t, draft.ID, drafts.Contracts[0].ID)

	active, err := f.svc.ListActive(context.Background(), f.orgID.String())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, other.ID, active[0].ID)
}
