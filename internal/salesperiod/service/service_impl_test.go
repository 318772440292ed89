package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/regalia/internal/clock"
	"github.com/smallbiznis/regalia/internal/config"
	contractdomain "github.com/smallbiznis/regalia/internal/contract/domain"
	contractrepo "github.com/smallbiznis/regalia/internal/contract/repository"
	"github.com/smallbiznis/regalia/internal/providers/email"
	"github.com/smallbiznis/regalia/internal/providers/pdf"
	royaltydomain "github.com/smallbiznis/regalia/internal/royalty/domain"
	royaltyrepo "github.com/smallbiznis/regalia/internal/royalty/repository"
	royaltyservice "github.com/smallbiznis/regalia/internal/royalty/service"
	"github.com/smallbiznis/regalia/internal/salesperiod/domain"
	salesperiodrepo "github.com/smallbiznis/regalia/internal/salesperiod/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type periodFixture struct {
	svc   domain.Service
	db    *gorm.DB
	node  *snowflake.Node
	orgID snowflake.ID
}

func newPeriodFixture(t *testing.T) *periodFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&contractdomain.Contract{},
		&domain.SalesPeriod{},
		&royaltydomain.ContractYearFinalization{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	royaltySvc := royaltyservice.NewService(royaltyservice.ServiceParam{
		DB:           db,
		Log:          log,
		GenID:        node,
		Clock:        fake,
		ContractRepo: contractrepo.New(),
		PeriodRepo:   salesperiodrepo.New(),
		FinalRepo:    royaltyrepo.New(),
		PDF:          &pdf.NoOpProvider{},
		Email:        &email.NoOpProvider{},
	})

	svc := NewService(ServiceParam{
		DB:           db,
		Log:          log,
		GenID:        node,
		Repo:         salesperiodrepo.New(),
		ContractRepo: contractrepo.New(),
		RoyaltySvc:   royaltySvc,
		Policy:       config.NewStaticPolicyHolder(config.DefaultRoyaltyPolicy()),
	})

	return &periodFixture{
		svc:   svc,
		db:    db,
		node:  node,
		orgID: node.Generate(),
	}
}

func (f *periodFixture) seedContract(t *testing.T, mutate func(*contractdomain.Contract)) *contractdomain.Contract {
	t.Helper()

	contract := &contractdomain.Contract{
		ID:                 f.node.Generate(),
		OrgID:              f.orgID,
		LicenseeName:       "Northwind Media",
		LicenseeEmail:      "royalty@northwind.example",
		AgreementNumber:    "LIC-2024-002",
		Slug:               "northwind-media-" + f.node.Generate().String(),
		Status:             contractdomain.ContractStatusActive,
		Rate:               datatypes.JSON([]byte(`{"type":"flat","rate":0.05}`)),
		RoyaltyBase:        contractdomain.RoyaltyBaseNet,
		ReportingFrequency: contractdomain.FrequencyQuarterly,
		StartDate:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:            time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		Currency:           "USD",
	}
	if mutate != nil {
		mutate(contract)
	}
	require.NoError(t, f.db.Create(contract).Error)
	return contract
}

func quarter(f *periodFixture, contract *contractdomain.Contract, net int64) domain.ConfirmRequest {
	return domain.ConfirmRequest{
		OrganizationID: f.orgID.String(),
		ContractID:     contract.ID.String(),
		PeriodStart:    time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:      time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		NetSalesCents:  net,
	}
}

func TestConfirmStoresCalculatedRoyalty(t *testing.T) {
	f := newPeriodFixture(t)
	contract := f.seedContract(t, nil)

	resp, err := f.svc.Confirm(context.Background(), quarter(f, contract, 1_000_000))
	require.NoError(t, err)
	assert.Equal(t, int64(50_000), resp.Period.RoyaltyCalculatedCents)
	assert.Equal(t, domain.PeriodStatusConfirmed, resp.Period.Status)
	assert.Empty(t, resp.Warnings)
	assert.Nil(t, resp.ReportedDiscrepancyCents)

	stored, err := f.svc.Get(context.Background(), domain.GetRequest{
		OrganizationID: f.orgID.String(),
		PeriodID:       resp.Period.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50_000), stored.RoyaltyCalculatedCents)
}

func TestConfirmRejectsOverlap(t *testing.T) {
	f := newPeriodFixture(t)
	contract := f.seedContract(t, nil)

	_, err := f.svc.Confirm(context.Background(), quarter(f, contract, 1_000_000))
	require.NoError(t, err)

	// Touching the previous end date collides: ranges are closed intervals.
	_, err = f.svc.Confirm(context.Background(), domain.ConfirmRequest{
		OrganizationID: f.orgID.String(),
		ContractID:     contract.ID.String(),
		PeriodStart:    time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		PeriodEnd:      time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC),
		NetSalesCents:  500_000,
	})
	assert.ErrorIs(t, err, domain.ErrPeriodOverlap)
}

func TestConfirmAfterVoidSucceeds(t *testing.T) {
	f := newPeriodFixture(t)
	contract := f.seedContract(t, nil)

	first, err := f.svc.Confirm(context.Background(), quarter(f, contract, 1_000_000))
	require.NoError(t, err)

	voided, err := f.svc.Void(context.Background(), domain.VoidRequest{
		OrganizationID: f.orgID.String(),
		PeriodID:       first.Period.ID.String(),
		Reason:         "restated by licensee",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PeriodStatusVoided, voided.Status)

	_, err = f.svc.Void(context.Background(), domain.VoidRequest{
		OrganizationID: f.orgID.String(),
		PeriodID:       first.Period.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyVoided)

	// The corrected restatement reuses the freed range.
	resp, err := f.svc.Confirm(context.Background(), quarter(f, contract, 1_200_000))
	require.NoError(t, err)
	assert.Equal(t, int64(60_000), resp.Period.RoyaltyCalculatedCents)
}

func TestConfirmWarnings(t *testing.T) {
	f := newPeriodFixture(t)
	contract := f.seedContract(t, nil)

	// Ten days is far off the quarterly band, and the start predates the
	// contract window.
	resp, err := f.svc.Confirm(context.Background(), domain.ConfirmRequest{
		OrganizationID: f.orgID.String(),
		ContractID:     contract.ID.String(),
		PeriodStart:    time.Date(2023, 12, 20, 0, 0, 0, 0, time.UTC),
		PeriodEnd:      time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC),
		NetSalesCents:  100_000,
	})
	require.NoError(t, err)

	codes := make([]string, 0, len(resp.Warnings))
	var suggested *time.Time
	for _, w := range resp.Warnings {
		codes = append(codes, w.Code)
		if w.SuggestedEnd != nil {
			suggested = w.SuggestedEnd
		}
	}
	assert.Contains(t, codes, domain.WarningOutsideContractWindow)
	assert.Contains(t, codes, domain.WarningUnexpectedDayCount)
	require.NotNil(t, suggested)
	assert.Equal(t, time.Date(2024, 3, 19, 0, 0, 0, 0, time.UTC), *suggested)
}

func TestConfirmReportedDiscrepancy(t *testing.T) {
	f := newPeriodFixture(t)
	contract := f.seedContract(t, nil)

	reported := int64(48_000)
	req := quarter(f, contract, 1_000_000)
	req.LicenseeReportedRoyaltyCents = &reported

	resp, err := f.svc.Confirm(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp.ReportedDiscrepancyCents)
	assert.Equal(t, int64(2_000), *resp.ReportedDiscrepancyCents)
}

func TestConfirmUsesGrossBase(t *testing.T) {
	f := newPeriodFixture(t)
	contract := f.seedContract(t, func(c *contractdomain.Contract) {
		c.RoyaltyBase = contractdomain.RoyaltyBaseGross
	})

	req := quarter(f, contract, 1_000_000)
	req.GrossSalesCents = 2_000_000

	resp, err := f.svc.Confirm(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), resp.Period.RoyaltyCalculatedCents)
}

func TestConfirmRejectsNegativeSales(t *testing.T) {
	f := newPeriodFixture(t)
	contract := f.seedContract(t, nil)

	req := quarter(f, contract, -1)
	_, err := f.svc.Confirm(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrNegativeSales)
}

func TestPreviewDoesNotPersist(t *testing.T) {
	f := newPeriodFixture(t)
	contract := f.seedContract(t, nil)

	preview, err := f.svc.Preview(context.Background(), domain.PreviewRequest{
		OrganizationID: f.orgID.String(),
		ContractID:     contract.ID.String(),
		PeriodStart:    time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:      time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		NetSalesCents:  1_000_000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50_000), preview.RoyaltyCalculatedCents)

	list, err := f.svc.List(context.Background(), domain.ListRequest{
		OrganizationID: f.orgID.String(),
		ContractID:     contract.ID.String(),
	})
	require.NoError(t, err)
	assert.Empty(t, list.Periods)
}
