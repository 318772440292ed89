// Package service implements sales period intake: validation against the
// contract, overlap enforcement, and royalty capture at confirmation.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regalia/internal/config"
	contractdomain "github.com/smallbiznis/regalia/internal/contract/domain"
	"github.com/smallbiznis/regalia/internal/observability/metrics"
	royaltydomain "github.com/smallbiznis/regalia/internal/royalty/domain"
	"github.com/smallbiznis/regalia/internal/salesperiod/domain"
	"github.com/smallbiznis/regalia/pkg/db"
	"github.com/smallbiznis/regalia/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         domain.Repository
	ContractRepo contractdomain.Repository
	RoyaltySvc   royaltydomain.Service
	Policy       *config.PolicyHolder
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node

	repo         domain.Repository
	contractRepo contractdomain.Repository
	royaltySvc   royaltydomain.Service
	policy       *config.PolicyHolder
	metrics      *metrics.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("salesperiod.service"),
		genID: p.GenID,

		repo:         p.Repo,
		contractRepo: p.ContractRepo,
		royaltySvc:   p.RoyaltySvc,
		policy:       p.Policy,
		metrics:      p.Metrics,
	}
}

// Confirm validates and stores one reporting period. The overlap check runs
// inside the transaction after locking the contract row, so two concurrent
// confirms on the same contract serialize on every dialect. On postgres the
// exclusion constraint on (contract_id, daterange) is the final backstop.
func (s *Service) Confirm(ctx context.Context, req domain.ConfirmRequest) (*domain.ConfirmResponse, error) {
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	contractID, err := parseID(req.ContractID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	if err := validateSales(req.NetSalesCents, req.GrossSalesCents, req.CategorySalesCents); err != nil {
		return nil, err
	}
	if err := domain.ValidateRange(req.PeriodStart, req.PeriodEnd); err != nil {
		return nil, err
	}

	contract, err := s.activeContract(ctx, orgID, contractID)
	if err != nil {
		return nil, err
	}

	warnings := s.collectWarnings(contract, req.PeriodStart, req.PeriodEnd)

	calc, err := s.royaltySvc.Calculate(ctx, royaltydomain.CalculateRequest{
		OrganizationID: req.OrganizationID,
		ContractID:     req.ContractID,
		PeriodStart:    req.PeriodStart,
		PeriodEnd:      req.PeriodEnd,
		Sales: royaltydomain.SalesInput{
			// The contract's royalty base picks which declared figure is
			// rated.
			NetSalesCents:      baseSales(contract, req.NetSalesCents, req.GrossSalesCents),
			CategorySalesCents: req.CategorySalesCents,
		},
	})
	if err != nil {
		return nil, err
	}

	source := req.Source
	if source == "" {
		source = domain.SourceManual
	}

	period := &domain.SalesPeriod{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		ContractID: contractID,

		PeriodStart: req.PeriodStart.UTC(),
		PeriodEnd:   req.PeriodEnd.UTC(),

		NetSalesCents:   req.NetSalesCents,
		GrossSalesCents: req.GrossSalesCents,
		CategorySales:   encodeCategorySales(req.CategorySalesCents),

		RoyaltyCalculatedCents:       calc.RoyaltyCalculatedCents,
		MinimumApplied:               calc.MinimumApplied,
		LicenseeReportedRoyaltyCents: req.LicenseeReportedRoyaltyCents,

		Status:   domain.PeriodStatusConfirmed,
		Source:   source,
		Currency: contract.Currency,
		Metadata: datatypes.JSONMap(req.Metadata),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The contract row is the serialization point: overlapping confirms
		// may touch disjoint period rows, so locking only those is not
		// enough.
		locked, err := s.contractRepo.FindByIDForUpdate(ctx, tx, orgID, contractID)
		if err != nil {
			return err
		}
		if locked == nil {
			return domain.ErrContractNotFound
		}

		existing, err := s.repo.ListOverlapping(ctx, tx, orgID, contractID, period.PeriodStart, period.PeriodEnd, true)
		if err != nil {
			return err
		}
		if err := domain.CheckOverlap(period.PeriodStart, period.PeriodEnd, existing); err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, period); err != nil {
			if db.IsExclusionErr(err) {
				return fmt.Errorf("%w: concurrent confirmation for the same range", domain.ErrPeriodOverlap)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPeriodConfirmed(ctx, orgID.String())

	response := &domain.ConfirmResponse{Period: period, Warnings: warnings}
	if req.LicenseeReportedRoyaltyCents != nil {
		diff := calc.RoyaltyCalculatedCents - *req.LicenseeReportedRoyaltyCents
		response.ReportedDiscrepancyCents = &diff
		if diff != 0 {
			s.log.Warn("licensee-reported royalty differs from calculated",
				zap.String("org_id", orgID.String()),
				zap.String("contract_id", contractID.String()),
				zap.Int64("calculated_cents", calc.RoyaltyCalculatedCents),
				zap.Int64("reported_cents", *req.LicenseeReportedRoyaltyCents),
			)
		}
	}

	s.log.Info("sales period confirmed",
		zap.String("org_id", orgID.String()),
		zap.String("contract_id", contractID.String()),
		zap.String("period_id", period.ID.String()),
		zap.Int64("royalty_cents", period.RoyaltyCalculatedCents),
		zap.Int("warnings", len(warnings)),
	)
	return response, nil
}

// Preview runs the full validation and calculation path without writing
// anything.
func (s *Service) Preview(ctx context.Context, req domain.PreviewRequest) (*domain.PreviewResponse, error) {
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	contractID, err := parseID(req.ContractID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	if err := validateSales(req.NetSalesCents, 0, req.CategorySalesCents); err != nil {
		return nil, err
	}
	if err := domain.ValidateRange(req.PeriodStart, req.PeriodEnd); err != nil {
		return nil, err
	}

	contract, err := s.activeContract(ctx, orgID, contractID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ListOverlapping(ctx, s.db, orgID, contractID, req.PeriodStart, req.PeriodEnd, false)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckOverlap(req.PeriodStart, req.PeriodEnd, existing); err != nil {
		return nil, err
	}

	calc, err := s.royaltySvc.Calculate(ctx, royaltydomain.CalculateRequest{
		OrganizationID: req.OrganizationID,
		ContractID:     req.ContractID,
		PeriodStart:    req.PeriodStart,
		PeriodEnd:      req.PeriodEnd,
		Sales: royaltydomain.SalesInput{
			NetSalesCents:      req.NetSalesCents,
			CategorySalesCents: req.CategorySalesCents,
		},
	})
	if err != nil {
		return nil, err
	}

	return &domain.PreviewResponse{
		RoyaltyCalculatedCents: calc.RoyaltyCalculatedCents,
		MinimumApplied:         calc.MinimumApplied,
		Warnings:               s.collectWarnings(contract, req.PeriodStart, req.PeriodEnd),
	}, nil
}

func (s *Service) Get(ctx context.Context, req domain.GetRequest) (*domain.SalesPeriod, error) {
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	periodID, err := parseID(req.PeriodID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	period, err := s.repo.FindByID(ctx, s.db, orgID, periodID)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, domain.ErrNotFound
	}
	return period, nil
}

// Void retires a confirmed period. Derived figures correct themselves on the
// next calculation because nothing aggregates ahead of time.
func (s *Service) Void(ctx context.Context, req domain.VoidRequest) (*domain.SalesPeriod, error) {
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	periodID, err := parseID(req.PeriodID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	period, err := s.repo.FindByID(ctx, s.db, orgID, periodID)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, domain.ErrNotFound
	}
	if period.Status == domain.PeriodStatusVoided {
		return nil, domain.ErrAlreadyVoided
	}

	period.Status = domain.PeriodStatusVoided
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		if period.Metadata == nil {
			period.Metadata = datatypes.JSONMap{}
		}
		period.Metadata["void_reason"] = reason
	}

	if err := s.repo.Update(ctx, s.db, period); err != nil {
		return nil, err
	}

	s.log.Info("sales period voided",
		zap.String("org_id", orgID.String()),
		zap.String("period_id", period.ID.String()),
	)
	return period, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}

	filter := domain.ListPeriodFilter{
		Status: domain.PeriodStatus(strings.TrimSpace(req.Status)),
		From:   req.From,
		To:     req.To,
	}
	if strings.TrimSpace(req.ContractID) != "" {
		contractID, err := parseID(req.ContractID, domain.ErrInvalidID)
		if err != nil {
			return nil, err
		}
		filter.ContractID = contractID
	}

	periods, err := s.repo.ListByContract(ctx, s.db, orgID, filter, req.Page)
	if err != nil {
		return nil, err
	}

	limit := req.Page.PageSize
	if limit <= 0 {
		limit = 25
	}
	pageInfo, periods := pagination.BuildCursorPageInfo(periods, limit, func(p *domain.SalesPeriod) string {
		return p.ID.String()
	})

	return &domain.ListResponse{PageInfo: *pageInfo, Periods: periods}, nil
}

func (s *Service) activeContract(ctx context.Context, orgID, contractID snowflake.ID) (*contractdomain.Contract, error) {
	contract, err := s.contractRepo.FindByID(ctx, s.db, orgID, contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, domain.ErrContractNotFound
	}
	if contract.Status != contractdomain.ContractStatusActive {
		return nil, domain.ErrContractNotActive
	}
	return contract, nil
}

func (s *Service) collectWarnings(contract *contractdomain.Contract, start, end time.Time) []domain.Warning {
	var warnings []domain.Warning

	if w := domain.CheckContractWindow(start, end, contract.StartDate, contract.EndDate); w != nil {
		warnings = append(warnings, *w)
	}

	if window, ok := s.policy.Get().Window(string(contract.ReportingFrequency)); ok {
		band := domain.FrequencyBand{
			MinDays:     window.MinDays,
			MaxDays:     window.MaxDays,
			NominalDays: window.NominalDays,
		}
		if w := domain.CheckFrequencyLength(start, end, band); w != nil {
			warnings = append(warnings, *w)
		}
	}

	return warnings
}

func validateSales(netCents, grossCents int64, categories map[string]int64) error {
	if netCents < 0 || grossCents < 0 {
		return domain.ErrNegativeSales
	}
	for _, cents := range categories {
		if cents < 0 {
			return domain.ErrNegativeSales
		}
	}
	return nil
}

func baseSales(contract *contractdomain.Contract, netCents, grossCents int64) int64 {
	if contract.RoyaltyBase == contractdomain.RoyaltyBaseGross && grossCents > 0 {
		return grossCents
	}
	return netCents
}

func encodeCategorySales(sales map[string]int64) datatypes.JSON {
	if len(sales) == 0 {
		return nil
	}
	raw, err := json.Marshal(sales)
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
