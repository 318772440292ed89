package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/regalia/internal/contract/domain"
	royaltydomain "github.com/smallbiznis/regalia/internal/royalty/domain"
	"github.com/smallbiznis/regalia/pkg/db"
	"github.com/smallbiznis/regalia/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("contract.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// CreateDraft normalizes extracted terms into a draft contract. Drafts hold
// whatever survived normalization; activation is where completeness is
// enforced.
func (s *Service) CreateDraft(ctx context.Context, req domain.CreateDraftRequest) (*domain.Contract, error) {
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Terms.LicenseeName) == "" {
		return nil, domain.ErrMissingLicensee
	}

	contract, err := s.buildDraft(orgID, req.Terms)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, s.db, contract); err != nil {
		if db.IsDuplicateKeyErr(err) {
			// Slug collision: same licensee plus agreement number already
			// drafted. Retry once with the id appended.
			contract.Slug = fmt.Sprintf("%s-%s", contract.Slug, contract.ID)
			if retryErr := s.repo.Insert(ctx, s.db, contract); retryErr != nil {
				return nil, retryErr
			}
		} else {
			return nil, err
		}
	}

	s.log.Info("contract draft created",
		zap.String("org_id", orgID.String()),
		zap.String("contract_id", contract.ID.String()),
		zap.String("licensee", contract.LicenseeName),
	)
	return contract, nil
}

func (s *Service) buildDraft(orgID snowflake.ID, terms domain.ExtractedTerms) (*domain.Contract, error) {
	contract := &domain.Contract{
		ID:              s.genID.Generate(),
		OrgID:           orgID,
		Status:          domain.ContractStatusDraft,
		LicenseeName:    strings.TrimSpace(terms.LicenseeName),
		LicenseeEmail:   strings.ToLower(strings.TrimSpace(terms.LicenseeEmail)),
		AgreementNumber: strings.TrimSpace(terms.AgreementNumber),
		RoyaltyBase:     parseRoyaltyBase(terms.RoyaltyBase),
		Currency:        normalizeCurrency(terms.Currency),
	}
	contract.Slug = slug.Make(fmt.Sprintf("%s %s", contract.LicenseeName, contract.AgreementNumber))

	if len(terms.Rate) > 0 {
		rate, err := royaltydomain.ParseRate(terms.Rate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRate, err)
		}
		// Persist the normalized tagged document, never the extractor's raw
		// shape.
		normalized, err := rate.Document()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRate, err)
		}
		contract.Rate = datatypes.JSON(normalized)
	}

	if terms.ReportingFrequency != "" {
		frequency, err := parseFrequency(terms.ReportingFrequency)
		if err != nil {
			return nil, err
		}
		contract.ReportingFrequency = frequency
	}

	if terms.StartDate != "" {
		start, err := parseDate(terms.StartDate)
		if err != nil {
			return nil, err
		}
		contract.StartDate = start
	}
	if terms.EndDate != "" {
		end, err := parseDate(terms.EndDate)
		if err != nil {
			return nil, err
		}
		contract.EndDate = end
	}
	if !contract.StartDate.IsZero() && !contract.EndDate.IsZero() && contract.EndDate.Before(contract.StartDate) {
		return nil, fmt.Errorf("%w: end date precedes start date", domain.ErrInvalidDates)
	}

	guarantee, err := parseMoneyCents(terms.MinimumGuarantee)
	if err != nil {
		return nil, err
	}
	contract.MinimumGuaranteeCents = guarantee

	period, err := parseGuaranteePeriod(terms.GuaranteePeriod)
	if err != nil {
		return nil, err
	}
	contract.GuaranteePeriod = period
	if guarantee > 0 && period == "" {
		contract.GuaranteePeriod = domain.GuaranteeAnnual
	}

	advance, err := parseMoneyCents(terms.Advance)
	if err != nil {
		return nil, err
	}
	contract.AdvanceCents = advance
	contract.GuaranteeRecoupable = advance > 0

	if list := encodeStringList(terms.Territories); list != nil {
		contract.Territories = list
	}
	if list := encodeStringList(terms.Categories); list != nil {
		contract.Categories = list
	}

	return contract, nil
}

// Activate freezes a draft's terms. Everything a royalty calculation needs
// must be present and coherent here; afterwards the contract is immutable.
func (s *Service) Activate(ctx context.Context, req domain.ActivateRequest) (*domain.Contract, error) {
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	id, err := parseID(req.ContractID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	contract, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, domain.ErrNotFound
	}
	if contract.Status != domain.ContractStatusDraft {
		return nil, domain.ErrNotDraft
	}

	if email := strings.ToLower(strings.TrimSpace(req.LicenseeEmail)); email != "" {
		contract.LicenseeEmail = email
	}
	if len(req.Categories) > 0 {
		contract.Categories = encodeStringList(req.Categories)
	}

	if contract.LicenseeName == "" || contract.LicenseeEmail == "" {
		return nil, domain.ErrMissingLicensee
	}
	if len(contract.Rate) == 0 {
		return nil, domain.ErrInvalidRate
	}
	rate, err := royaltydomain.ParseRate(contract.Rate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRate, err)
	}
	if rate.Kind == royaltydomain.RateKindCategory && len(contract.CategoryNames()) == 0 {
		return nil, fmt.Errorf("%w: category rate without contract categories", domain.ErrInvalidRate)
	}
	if contract.ReportingFrequency == "" {
		return nil, domain.ErrInvalidFrequency
	}
	if contract.StartDate.IsZero() || contract.EndDate.IsZero() || contract.EndDate.Before(contract.StartDate) {
		return nil, domain.ErrInvalidDates
	}
	if contract.GuaranteeFinerThanReporting() {
		return nil, domain.ErrGuaranteeFinerThanReporting
	}

	contract.Status = domain.ContractStatusActive
	if err := s.repo.Update(ctx, s.db, contract); err != nil {
		return nil, err
	}

	s.log.Info("contract activated",
		zap.String("org_id", orgID.String()),
		zap.String("contract_id", contract.ID.String()),
	)
	return contract, nil
}

func (s *Service) Get(ctx context.Context, req domain.GetRequest) (*domain.Contract, error) {
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	id, err := parseID(req.ContractID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	contract, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, domain.ErrNotFound
	}
	return contract, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}

	filter := domain.ListContractFilter{
		Status:       domain.ContractStatus(strings.TrimSpace(req.Status)),
		LicenseeName: strings.TrimSpace(req.LicenseeName),
	}

	contracts, err := s.repo.List(ctx, s.db, orgID, filter, req.Page)
	if err != nil {
		return nil, err
	}

	limit := req.Page.PageSize
	if limit <= 0 {
		limit = 25
	}
	pageInfo, contracts := pagination.BuildCursorPageInfo(contracts, limit, func(c *domain.Contract) string {
		return c.ID.String()
	})

	return &domain.ListResponse{PageInfo: *pageInfo, Contracts: contracts}, nil
}

func (s *Service) ListActive(ctx context.Context, organizationID string) ([]*domain.Contract, error) {
	orgID, err := parseID(organizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	return s.repo.ListActive(ctx, s.db, orgID)
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

func normalizeCurrency(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	if len(value) != 3 {
		return "USD"
	}
	return value
}

func encodeStringList(values []string) datatypes.JSON {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		cleaned = append(cleaned, v)
	}
	if len(cleaned) == 0 {
		return nil
	}
	raw, err := json.Marshal(cleaned)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
