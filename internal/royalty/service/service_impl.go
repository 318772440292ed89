// Package service implements the royalty calculation engine: rating sales
// against contract terms and tracking guarantees and advances.
package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regalia/internal/clock"
	contractdomain "github.com/smallbiznis/regalia/internal/contract/domain"
	"github.com/smallbiznis/regalia/internal/observability/metrics"
	"github.com/smallbiznis/regalia/internal/providers/email"
	"github.com/smallbiznis/regalia/internal/providers/pdf"
	"github.com/smallbiznis/regalia/internal/royalty/domain"
	salesperioddomain "github.com/smallbiznis/regalia/internal/salesperiod/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	ContractRepo contractdomain.Repository
	PeriodRepo   salesperioddomain.Repository
	FinalRepo    domain.FinalizationRepository
	PDF          pdf.Provider
	Email        email.Provider
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	contractRepo contractdomain.Repository
	periodRepo   salesperioddomain.Repository
	finalRepo    domain.FinalizationRepository
	pdf          pdf.Provider
	email        email.Provider
	metrics      *metrics.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("royalty.service"),
		genID: p.GenID,
		clock: p.Clock,

		contractRepo: p.ContractRepo,
		periodRepo:   p.PeriodRepo,
		finalRepo:    p.FinalRepo,
		pdf:          p.PDF,
		email:        p.Email,
		metrics:      p.Metrics,
	}
}

// Calculate rates one period of declared sales. Guarantee state is derived
// from stored periods on every call; nothing here is cached, so a voided
// period changes the answer on the next call with no invalidation step.
func (s *Service) Calculate(ctx context.Context, req domain.CalculateRequest) (*domain.CalculationResult, error) {
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	contractID, err := parseID(req.ContractID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() || req.PeriodEnd.Before(req.PeriodStart) {
		return nil, domain.ErrInvalidPeriod
	}

	contract, err := s.activeContract(ctx, orgID, contractID)
	if err != nil {
		return nil, err
	}

	rate, err := domain.ParseRate(contract.Rate)
	if err != nil {
		return nil, err
	}

	royaltyCents, err := rate.Evaluate(req.Sales)
	if err != nil {
		return nil, err
	}

	minimumApplied := false
	if annualized := contract.AnnualizedGuaranteeCents(); annualized > 0 {
		window := domain.ContractYearWindow(contract.StartDate, req.PeriodStart)
		yearTotal, err := s.yearTotal(ctx, orgID, contractID, window)
		if err != nil {
			return nil, err
		}
		minimumApplied = yearTotal+royaltyCents < annualized
	}

	s.metrics.RecordRoyaltyCalculated(ctx, orgID.String(), royaltyCents)

	return &domain.CalculationResult{
		ContractID:             contractID,
		PeriodStart:            req.PeriodStart,
		PeriodEnd:              req.PeriodEnd,
		NetSalesCents:          req.Sales.NetSalesCents,
		RoyaltyCalculatedCents: royaltyCents,
		MinimumApplied:         minimumApplied,
	}, nil
}

// YearSummaries walks every contract year from the start date up to AsOf,
// reporting accrued royalties against the annualized guarantee. A shortfall
// only exists once a year is closed, by the calendar or by an explicit
// finalization.
func (s *Service) YearSummaries(ctx context.Context, req domain.YearSummariesRequest) ([]domain.YearSummary, error) {
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	contractID, err := parseID(req.ContractID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	contract, err := s.contractRepo.FindByID(ctx, s.db, orgID, contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, domain.ErrContractNotFound
	}

	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}

	finalizations, err := s.finalRepo.ListByContract(ctx, s.db, orgID, contractID)
	if err != nil {
		return nil, err
	}
	finalized := make(map[int]*domain.ContractYearFinalization, len(finalizations))
	for _, f := range finalizations {
		finalized[f.YearIndex] = f
	}

	annualized := contract.AnnualizedGuaranteeCents()
	var summaries []domain.YearSummary

	for window := domain.ContractYearWindow(contract.StartDate, contract.StartDate); !window.Start.After(asOf) && !window.Start.After(contract.EndDate); window = domain.ContractYearWindow(contract.StartDate, window.End.AddDate(0, 0, 1)) {
		total, err := s.yearTotal(ctx, orgID, contractID, window)
		if err != nil {
			return nil, err
		}

		summary := domain.YearSummary{
			Window:                   window,
			RoyaltiesAccruedCents:    total,
			AnnualizedGuaranteeCents: annualized,
		}

		if f, ok := finalized[window.Index]; ok {
			summary.Finalized = true
			summary.Closed = true
			summary.GuaranteeShortfallCents = f.ShortfallCents
		} else if window.End.Before(asOf) {
			summary.Closed = true
			if annualized > total {
				summary.GuaranteeShortfallCents = annualized - total
			}
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// AdvanceStatus reports recoupment of the contract advance. The unrecouped
// balance floors at zero and, because royalties only accumulate, never grows
// back.
func (s *Service) AdvanceStatus(ctx context.Context, req domain.AdvanceStatusRequest) (*domain.AdvanceStatus, error) {
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	contractID, err := parseID(req.ContractID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	contract, err := s.contractRepo.FindByID(ctx, s.db, orgID, contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, domain.ErrContractNotFound
	}

	periods, err := s.periodRepo.ListConfirmedByContract(ctx, s.db, orgID, contractID)
	if err != nil {
		return nil, err
	}

	var cumulative int64
	for _, p := range periods {
		cumulative += p.RoyaltyCalculatedCents
	}

	unrecouped := contract.AdvanceCents - cumulative
	if unrecouped < 0 {
		unrecouped = 0
	}

	return &domain.AdvanceStatus{
		AdvanceCents:           contract.AdvanceCents,
		CumulativeRoyaltyCents: cumulative,
		UnrecoupedCents:        unrecouped,
		FullyRecouped:          contract.AdvanceCents > 0 && unrecouped == 0,
	}, nil
}

// FinalizeYear closes a contract year ahead of the calendar, fixing its
// shortfall at the accrued total. Used when a contract terminates early or
// the books close before the anniversary.
func (s *Service) FinalizeYear(ctx context.Context, req domain.FinalizeYearRequest) (*domain.YearSummary, error) {
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	contractID, err := parseID(req.ContractID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	contract, err := s.contractRepo.FindByID(ctx, s.db, orgID, contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, domain.ErrContractNotFound
	}

	if req.YearIndex < 1 {
		return nil, domain.ErrInvalidYearIndex
	}
	windowStart := contract.StartDate.AddDate(req.YearIndex-1, 0, 0)
	if windowStart.After(contract.EndDate) {
		return nil, fmt.Errorf("%w: year %d starts after the contract ends", domain.ErrInvalidYearIndex, req.YearIndex)
	}
	window := domain.ContractYearWindow(contract.StartDate, windowStart)

	annualized := contract.AnnualizedGuaranteeCents()

	var summary *domain.YearSummary
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.finalRepo.FindByContractYear(ctx, tx, orgID, contractID, req.YearIndex)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrYearFinalized
		}

		periods, err := s.periodRepo.ListInWindow(ctx, tx, orgID, contractID, window.Start, window.End)
		if err != nil {
			return err
		}
		var total int64
		for _, p := range periods {
			total += p.RoyaltyCalculatedCents
		}

		var shortfall int64
		if annualized > total {
			shortfall = annualized - total
		}

		finalization := &domain.ContractYearFinalization{
			ID:             s.genID.Generate(),
			OrgID:          orgID,
			ContractID:     contractID,
			YearIndex:      req.YearIndex,
			ShortfallCents: shortfall,
			FinalizedAt:    s.clock.Now(),
		}
		if err := s.finalRepo.Insert(ctx, tx, finalization); err != nil {
			return err
		}

		summary = &domain.YearSummary{
			Window:                   window,
			RoyaltiesAccruedCents:    total,
			AnnualizedGuaranteeCents: annualized,
			GuaranteeShortfallCents:  shortfall,
			Closed:                   true,
			Finalized:                true,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if summary.GuaranteeShortfallCents > 0 {
		s.metrics.RecordGuaranteeShortfall(ctx, orgID.String())
	}
	s.log.Info("contract year finalized",
		zap.String("org_id", orgID.String()),
		zap.String("contract_id", contractID.String()),
		zap.Int("year_index", req.YearIndex),
		zap.Int64("shortfall_cents", summary.GuaranteeShortfallCents),
	)
	return summary, nil
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

func (s *Service) yearTotal(ctx context.Context, orgID, contractID snowflake.ID, window domain.YearWindow) (int64, error) {
	periods, err := s.periodRepo.ListInWindow(ctx, s.db, orgID, contractID, window.Start, window.End)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, p := range periods {
		total += p.RoyaltyCalculatedCents
	}
	return total, nil
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
