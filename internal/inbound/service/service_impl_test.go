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
	"github.com/smallbiznis/regalia/internal/inbound/domain"
	inboundrepo "github.com/smallbiznis/regalia/internal/inbound/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type inboundFixture struct {
	svc   domain.Service
	db    *gorm.DB
	node  *snowflake.Node
	orgID snowflake.ID
}

func newInboundFixture(t *testing.T) *inboundFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&contractdomain.Contract{},
		&domain.InboundReport{},
	))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:   inboundrepo.New(),
		Policy: config.NewStaticPolicyHolder(config.DefaultRoyaltyPolicy()),
	})

	return &inboundFixture{
		svc:   svc,
		db:    db,
		node:  node,
		orgID: node.Generate(),
	}
}

func (f *inboundFixture) seedContract(t *testing.T, name, email, agreement string) *contractdomain.Contract {
	t.Helper()

	contract := &contractdomain.Contract{
		ID:                 f.node.Generate(),
		OrgID:              f.orgID,
		LicenseeName:       name,
		LicenseeEmail:      email,
		AgreementNumber:    agreement,
		Slug:               "inbound-" + f.node.Generate().String(),
		Status:             contractdomain.ContractStatusActive,
		Rate:               datatypes.JSON([]byte(`{"type":"flat","rate":0.05}`)),
		ReportingFrequency: contractdomain.FrequencyQuarterly,
		StartDate:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:            time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		Currency:           "USD",
	}
	require.NoError(t, f.db.Create(contract).Error)
	return contract
}

func TestReceiveMatchesSenderEmail(t *testing.T) {
	f := newInboundFixture(t)
	contract := f.seedContract(t, "Acme Toys", "reports@acmetoys.example", "LIC-2024-001")
	f.seedContract(t, "Northwind Media", "royalty@northwind.example", "LIC-2024-002")

	report, err := f.svc.Receive(context.Background(), domain.ReceiveRequest{
		OrganizationID: f.orgID.String(),
		SenderEmail:    "Reports@AcmeToys.example",
		Subject:        "Q2 sales report",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ReportStatusPending, report.Status)
	assert.Equal(t, domain.ConfidenceHigh, report.MatchConfidence)
	require.NotNil(t, report.MatchedContractID)
	assert.Equal(t, contract.ID, *report.MatchedContractID)
}

func TestReceiveNameCandidates(t *testing.T) {
	f := newInboundFixture(t)
	f.seedContract(t, "Acme Toys", "reports@acmetoys.example", "LIC-2024-001")
	f.seedContract(t, "Acme Home Goods", "home@acme.example", "LIC-2024-003")

	report, err := f.svc.Receive(context.Background(), domain.ReceiveRequest{
		OrganizationID: f.orgID.String(),
		SenderEmail:    "someone@gmail.example",
		Subject:        "Royalty report from Acme Toys",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ConfidenceMedium, report.MatchConfidence)
	assert.Nil(t, report.MatchedContractID)
	assert.NotEmpty(t, report.CandidateIDs)
}

func TestReceiveNoSignal(t *testing.T) {
	f := newInboundFixture(t)
	f.seedContract(t, "Acme Toys", "reports@acmetoys.example", "LIC-2024-001")

	report, err := f.svc.Receive(context.Background(), domain.ReceiveRequest{
		OrganizationID: f.orgID.String(),
		SenderEmail:    "unknown@example.com",
		Subject:        "hello",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ConfidenceNone, report.MatchConfidence)
	assert.Nil(t, report.MatchedContractID)
}

func TestReceiveRequiresSender(t *testing.T) {
	f := newInboundFixture(t)

	_, err := f.svc.Receive(context.Background(), domain.ReceiveRequest{
		OrganizationID: f.orgID.String(),
		Subject:        "no sender",
	})
	assert.ErrorIs(t, err, domain.ErrMissingSender)
}

func TestConfirmMatchLifecycle(t *testing.T) {
	f := newInboundFixture(t)
	contract := f.seedContract(t, "Acme Toys", "reports@acmetoys.example", "LIC-2024-001")

	report, err := f.svc.Receive(context.Background(), domain.ReceiveRequest{
		OrganizationID: f.orgID.String(),
		SenderEmail:    "reports@acmetoys.example",
		Subject:        "Q2 report",
	})
	require.NoError(t, err)

	// High confidence: the scorer's match is accepted without naming one.
	confirmed, err := f.svc.ConfirmMatch(context.Background(), domain.ConfirmMatchRequest{
		OrganizationID: f.orgID.String(),
		ReportID:       report.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusConfirmed, confirmed.Status)
	assert.Equal(t, contract.ID, *confirmed.MatchedContractID)

	_, err = f.svc.ConfirmMatch(context.Background(), domain.ConfirmMatchRequest{
		OrganizationID: f.orgID.String(),
		ReportID:       report.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrNotPending)

	periodID := f.node.Generate()
	processed, err := f.svc.MarkProcessed(context.Background(), domain.MarkProcessedRequest{
		OrganizationID: f.orgID.String(),
		ReportID:       report.ID.String(),
		SalesPeriodID:  periodID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusProcessed, processed.Status)
	assert.Equal(t, periodID, *processed.SalesPeriodID)
}

func TestConfirmMatchRequiresContractForMediumConfidence(t *testing.T) {
	f := newInboundFixture(t)
	contract := f.seedContract(t, "Acme Toys", "reports@acmetoys.example", "LIC-2024-001")

	report, err := f.svc.Receive(context.Background(), domain.ReceiveRequest{
		OrganizationID: f.orgID.String(),
		SenderEmail:    "assistant@other.example",
		Subject:        "Acme Toys royalties",
	})
	require.NoError(t, err)
	require.Equal(t, domain.ConfidenceMedium, report.MatchConfidence)

	_, err = f.svc.ConfirmMatch(context.Background(), domain.ConfirmMatchRequest{
		OrganizationID: f.orgID.String(),
		ReportID:       report.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrContractRequired)

	confirmed, err := f.svc.ConfirmMatch(context.Background(), domain.ConfirmMatchRequest{
		OrganizationID: f.orgID.String(),
		ReportID:       report.ID.String(),
		ContractID:     contract.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, contract.ID, *confirmed.MatchedContractID)
}

func TestRejectReport(t *testing.T) {
	f := newInboundFixture(t)
	f.seedContract(t, "Acme Toys", "reports@acmetoys.example", "LIC-2024-001")

	report, err := f.svc.Receive(context.Background(), domain.ReceiveRequest{
		OrganizationID: f.orgID.String(),
		SenderEmail:    "spam@example.com",
		Subject:        "unrelated",
	})
	require.NoError(t, err)

	rejected, err := f.svc.Reject(context.Background(), domain.RejectRequest{
		OrganizationID: f.orgID.String(),
		ReportID:       report.ID.String(),
		Reason:         "not a sales report",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusRejected, rejected.Status)
	assert.Equal(t, "not a sales report", rejected.RejectReason)

	_, err = f.svc.MarkProcessed(context.Background(), domain.MarkProcessedRequest{
		OrganizationID: f.orgID.String(),
		ReportID:       report.ID.String(),
		SalesPeriodID:  f.node.Generate().String(),
	})
	assert.ErrorIs(t, err, domain.ErrNotConfirmed)
}
