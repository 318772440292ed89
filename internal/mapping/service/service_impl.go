// Package service implements mapping resolution over saved preferences,
// keyword rules, and AI suggestions.
package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	contractdomain "github.com/smallbiznis/regalia/internal/contract/domain"
	"github.com/smallbiznis/regalia/internal/mapping/domain"
	"github.com/smallbiznis/regalia/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         domain.PreferenceRepository
	ContractRepo contractdomain.Repository
	Suggester    domain.Suggester
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node

	repo         domain.PreferenceRepository
	contractRepo contractdomain.Repository
	suggester    domain.Suggester
	metrics      *metrics.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("mapping.service"),
		genID: p.GenID,

		repo:         p.Repo,
		contractRepo: p.ContractRepo,
		suggester:    p.Suggester,
		metrics:      p.Metrics,
	}
}

// ResolveColumns assigns roles to a header row. The AI stage is only
// consulted for headers the saved and keyword stages left unassigned, and a
// suggester failure degrades to ignore rather than failing the resolution.
func (s *Service) ResolveColumns(ctx context.Context, req domain.ResolveColumnsRequest) (*domain.ColumnResolution, error) {
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}

	prefs, err := s.repo.ListColumnPreferences(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	saved := make(map[string]domain.ColumnRole, len(prefs))
	for _, p := range prefs {
		saved[p.NormalizedHeader] = p.Role
	}

	first := domain.ResolveColumns(req.Headers, saved, nil)

	var unassigned []string
	for _, m := range first.Mappings {
		if m.Role == domain.RoleIgnore && m.Source == domain.SourceFallback {
			unassigned = append(unassigned, m.Header)
		}
	}

	var suggestions map[string]domain.ColumnSuggestion
	if len(unassigned) > 0 {
		suggestions, err = s.suggester.SuggestColumns(ctx, unassigned)
		if err != nil {
			s.log.Warn("column suggestion failed, continuing without",
				zap.String("org_id", orgID.String()),
				zap.Error(err),
			)
			suggestions = nil
		}
	}

	resolution := domain.ResolveColumns(req.Headers, saved, suggestions)
	for _, d := range resolution.Demotions {
		s.metrics.RecordMappingDemotion(ctx, string(d.DemotedFrom))
		s.log.Warn("column demoted on unique-role collision",
			zap.String("org_id", orgID.String()),
			zap.String("header", d.Header),
			zap.String("demoted_from", string(d.DemotedFrom)),
			zap.String("kept_by", d.KeptByHeader),
		)
	}

	return &resolution, nil
}

// ResolveCategories maps raw sheet terms onto the contract's canonical
// categories.
func (s *Service) ResolveCategories(ctx context.Context, req domain.ResolveCategoriesRequest) (*domain.CategoryResolution, error) {
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
	canonical := contract.CategoryNames()

	prefs, err := s.repo.ListCategoryPreferences(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	saved := make(map[string]domain.CategoryAssignment, len(prefs))
	for _, p := range prefs {
		saved[p.NormalizedTerm] = domain.CategoryAssignment{Category: p.Category, Excluded: p.Excluded}
	}

	first := domain.ResolveCategories(req.RawTerms, canonical, saved, nil)

	var suggestions map[string]string
	if len(first.Unresolved) > 0 {
		suggestions, err = s.suggester.SuggestCategories(ctx, first.Unresolved, canonical)
		if err != nil {
			s.log.Warn("category suggestion failed, continuing without",
				zap.String("org_id", orgID.String()),
				zap.Error(err),
			)
			suggestions = nil
		}
	}

	resolution := domain.ResolveCategories(req.RawTerms, canonical, saved, suggestions)
	return &resolution, nil
}

// SaveColumnPreference records an operator's header-to-role decision so the
// same header resolves silently next upload.
func (s *Service) SaveColumnPreference(ctx context.Context, req domain.SaveColumnPreferenceRequest) (*domain.ColumnPreference, error) {
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	normalized := domain.Normalize(req.Header)
	if normalized == "" {
		return nil, domain.ErrInvalidTerm
	}
	if !domain.ValidColumnRole(req.Role) {
		return nil, domain.ErrInvalidRole
	}

	pref := &domain.ColumnPreference{
		ID:               s.genID.Generate(),
		OrgID:            orgID,
		NormalizedHeader: normalized,
		Role:             req.Role,
	}
	if err := s.repo.UpsertColumnPreference(ctx, s.db, pref); err != nil {
		return nil, err
	}
	return pref, nil
}

func (s *Service) SaveCategoryPreference(ctx context.Context, req domain.SaveCategoryPreferenceRequest) (*domain.CategoryPreference, error) {
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	normalized := domain.Normalize(req.RawTerm)
	if normalized == "" {
		return nil, domain.ErrInvalidTerm
	}

	category := strings.TrimSpace(req.Category)
	if req.Excluded == (category != "") {
		// Exactly one of category or exclusion.
		return nil, domain.ErrInvalidAssignment
	}

	pref := &domain.CategoryPreference{
		ID:             s.genID.Generate(),
		OrgID:          orgID,
		NormalizedTerm: normalized,
		Category:       category,
		Excluded:       req.Excluded,
	}
	if err := s.repo.UpsertCategoryPreference(ctx, s.db, pref); err != nil {
		return nil, err
	}
	return pref, nil
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
