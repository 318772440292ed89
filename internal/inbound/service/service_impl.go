// Package service implements inbound report intake and contract matching.
package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regalia/internal/clock"
	"github.com/smallbiznis/regalia/internal/config"
	contractdomain "github.com/smallbiznis/regalia/internal/contract/domain"
	"github.com/smallbiznis/regalia/internal/inbound/domain"
	"github.com/smallbiznis/regalia/internal/observability/metrics"
	"github.com/smallbiznis/regalia/pkg/db/option"
	"github.com/smallbiznis/regalia/pkg/db/pagination"
	"github.com/smallbiznis/regalia/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Policy  *config.PolicyHolder
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	repo          domain.Repository
	contractStore repository.Repository[contractdomain.Contract]
	policy        *config.PolicyHolder
	metrics       *metrics.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("inbound.service"),
		genID: p.GenID,
		clock: p.Clock,

		repo:          p.Repo,
		contractStore: repository.ProvideStore[contractdomain.Contract](p.DB),
		policy:        p.Policy,
		metrics:       p.Metrics,
	}
}

// Receive registers an inbound email and scores it against the org's active
// contracts. Scoring can only narrow to contracts that exist; a report with
// no signal stays unmatched for the operator.
func (s *Service) Receive(ctx context.Context, req domain.ReceiveRequest) (*domain.InboundReport, error) {
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	senderEmail := strings.ToLower(strings.TrimSpace(req.SenderEmail))
	if senderEmail == "" {
		return nil, domain.ErrMissingSender
	}

	contracts, err := s.contractStore.Find(ctx,
		&contractdomain.Contract{OrgID: orgID, Status: contractdomain.ContractStatusActive},
		option.WithOrder("id ASC"),
	)
	if err != nil {
		return nil, err
	}

	refs := make([]*domain.ContractRef, 0, len(contracts))
	for _, c := range contracts {
		refs = append(refs, &domain.ContractRef{
			ID:              c.ID,
			LicenseeName:    c.LicenseeName,
			LicenseeEmail:   c.LicenseeEmail,
			AgreementNumber: c.AgreementNumber,
		})
	}

	matchPolicy := s.policy.Get().Match
	outcome := domain.Score(domain.Envelope{
		SenderEmail: senderEmail,
		SenderName:  req.SenderName,
		Subject:     req.Subject,
		Body:        req.Body,
	}, refs, domain.MatchPolicy{
		MinNameLength: matchPolicy.MinNameLength,
		MaxCandidates: matchPolicy.MaxCandidates,
	})

	receivedAt := req.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.clock.Now()
	}

	report := &domain.InboundReport{
		ID:    s.genID.Generate(),
		OrgID: orgID,

		SenderEmail:   senderEmail,
		SenderName:    strings.TrimSpace(req.SenderName),
		Subject:       strings.TrimSpace(req.Subject),
		AttachmentKey: strings.TrimSpace(req.AttachmentKey),

		Status:            domain.ReportStatusPending,
		MatchConfidence:   outcome.Confidence,
		MatchedContractID: outcome.ContractID,
		CandidateIDs:      encodeIDs(outcome.Candidates),
		MatchReason:       outcome.Reason,

		Metadata:   datatypes.JSONMap(req.Metadata),
		ReceivedAt: receivedAt.UTC(),
	}

	if err := s.repo.Insert(ctx, s.db, report); err != nil {
		return nil, err
	}

	s.metrics.RecordInboundReport(ctx, string(outcome.Confidence))
	s.log.Info("inbound report received",
		zap.String("org_id", orgID.String()),
		zap.String("report_id", report.ID.String()),
		zap.String("confidence", string(outcome.Confidence)),
	)
	return report, nil
}

// ConfirmMatch resolves a pending report to one contract. Without an
// explicit contract the scorer's high-confidence match is accepted; a medium
// or none report requires the operator to name the contract.
func (s *Service) ConfirmMatch(ctx context.Context, req domain.ConfirmMatchRequest) (*domain.InboundReport, error) {
	orgID, report, err := s.pendingReport(ctx, req.OrganizationID, req.ReportID)
	if err != nil {
		return nil, err
	}

	var contractID snowflake.ID
	if strings.TrimSpace(req.ContractID) != "" {
		contractID, err = parseID(req.ContractID, domain.ErrInvalidID)
		if err != nil {
			return nil, err
		}
		contract, err := s.contractStore.FindOne(ctx, &contractdomain.Contract{ID: contractID, OrgID: orgID})
		if err != nil {
			return nil, err
		}
		if contract == nil {
			return nil, domain.ErrContractNotFound
		}
	} else {
		if report.MatchConfidence != domain.ConfidenceHigh || report.MatchedContractID == nil {
			return nil, domain.ErrContractRequired
		}
		contractID = *report.MatchedContractID
	}

	report.Status = domain.ReportStatusConfirmed
	report.MatchedContractID = &contractID

	if err := s.repo.Update(ctx, s.db, report); err != nil {
		return nil, err
	}

	s.log.Info("inbound report matched",
		zap.String("org_id", orgID.String()),
		zap.String("report_id", report.ID.String()),
		zap.String("contract_id", contractID.String()),
	)
	return report, nil
}

func (s *Service) Reject(ctx context.Context, req domain.RejectRequest) (*domain.InboundReport, error) {
	orgID, report, err := s.pendingReport(ctx, req.OrganizationID, req.ReportID)
	if err != nil {
		return nil, err
	}

	report.Status = domain.ReportStatusRejected
	report.RejectReason = strings.TrimSpace(req.Reason)

	if err := s.repo.Update(ctx, s.db, report); err != nil {
		return nil, err
	}

	s.log.Info("inbound report rejected",
		zap.String("org_id", orgID.String()),
		zap.String("report_id", report.ID.String()),
	)
	return report, nil
}

// MarkProcessed links the sales period created from a confirmed report.
func (s *Service) MarkProcessed(ctx context.Context, req domain.MarkProcessedRequest) (*domain.InboundReport, error) {
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	reportID, err := parseID(req.ReportID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	periodID, err := parseID(req.SalesPeriodID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	report, err := s.repo.FindByID(ctx, s.db, orgID, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, domain.ErrNotFound
	}
	if report.Status != domain.ReportStatusConfirmed {
		return nil, domain.ErrNotConfirmed
	}

	report.Status = domain.ReportStatusProcessed
	report.SalesPeriodID = &periodID

	if err := s.repo.Update(ctx, s.db, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *Service) Get(ctx context.Context, req domain.GetRequest) (*domain.InboundReport, error) {
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	reportID, err := parseID(req.ReportID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	report, err := s.repo.FindByID(ctx, s.db, orgID, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, domain.ErrNotFound
	}
	return report, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}

	filter := domain.ListReportFilter{
		Status:     domain.ReportStatus(strings.TrimSpace(req.Status)),
		Confidence: domain.MatchConfidence(strings.TrimSpace(req.Confidence)),
	}

	reports, err := s.repo.List(ctx, s.db, orgID, filter, req.Page)
	if err != nil {
		return nil, err
	}

	limit := req.Page.PageSize
	if limit <= 0 {
		limit = 25
	}
	pageInfo, reports := pagination.BuildCursorPageInfo(reports, limit, func(r *domain.InboundReport) string {
		return r.ID.String()
	})

	return &domain.ListResponse{PageInfo: *pageInfo, Reports: reports}, nil
}

func (s *Service) pendingReport(ctx context.Context, organizationID, reportID string) (snowflake.ID, *domain.InboundReport, error) {
	orgID, err := parseID(organizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return 0, nil, err
	}
	id, err := parseID(reportID, domain.ErrInvalidID)
	if err != nil {
		return 0, nil, err
	}

	report, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return 0, nil, err
	}
	if report == nil {
		return 0, nil, domain.ErrNotFound
	}
	if report.Status != domain.ReportStatusPending {
		return 0, nil, domain.ErrNotPending
	}
	return orgID, report, nil
}

func encodeIDs(ids []snowflake.ID) datatypes.JSON {
	if len(ids) == 0 {
		return nil
	}
	values := make([]string, 0, len(ids))
	for _, id := range ids {
		values = append(values, id.String())
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func parseID(value string, sentinel error) (snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, sentinel
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		return 0, sentinel
	}
	return snowflake.ID(parsed), nil
}
