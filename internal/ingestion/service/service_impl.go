// Package service runs the spreadsheet ingestion pipeline: parse, resolve
// mappings, normalize, rate, confirm.
package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/regalia/internal/ingestion/domain"
	mappingdomain "github.com/smallbiznis/regalia/internal/mapping/domain"
	"github.com/smallbiznis/regalia/internal/providers/spreadsheet"
	salesperioddomain "github.com/smallbiznis/regalia/internal/salesperiod/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log        *zap.Logger
	MappingSvc mappingdomain.Service
	PeriodSvc  salesperioddomain.Service
}

type Service struct {
	log        *zap.Logger
	mappingSvc mappingdomain.Service
	periodSvc  salesperioddomain.Service
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		log:        p.Log.Named("ingestion.service"),
		mappingSvc: p.MappingSvc,
		periodSvc:  p.PeriodSvc,
	}
}

// Ingest is deliberately strict: an unparseable cell in a mapped column
// fails the whole upload rather than dropping the row, because a silently
// short total underpays the licensor.
func (s *Service) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	if len(req.Content) == 0 {
		return nil, domain.ErrEmptyFile
	}

	sheet, err := s.parse(req)
	if err != nil {
		return nil, err
	}

	columns, err := s.mappingSvc.ResolveColumns(ctx, mappingdomain.ResolveColumnsRequest{
		OrganizationID: req.OrganizationID,
		Headers:        sheet.Headers,
	})
	if err != nil {
		return nil, err
	}
	if err := mappingdomain.RequireSalesColumn(*columns); err != nil {
		return nil, err
	}

	result := &domain.IngestResult{Columns: columns}

	categoryIdx := columns.RoleIndex(mappingdomain.RoleProductCategory)
	var categoryLookup map[string]mappingdomain.CategoryMapping
	if categoryIdx >= 0 {
		categories, err := s.mappingSvc.ResolveCategories(ctx, mappingdomain.ResolveCategoriesRequest{
			OrganizationID: req.OrganizationID,
			ContractID:     req.ContractID,
			RawTerms:       sheet.Column(categoryIdx),
		})
		if err != nil {
			return nil, err
		}
		if err := mappingdomain.RequireResolved(*categories); err != nil {
			return nil, err
		}
		result.Categories = categories

		categoryLookup = make(map[string]mappingdomain.CategoryMapping, len(categories.Mappings))
		for _, m := range categories.Mappings {
			categoryLookup[mappingdomain.Normalize(m.RawTerm)] = m
		}
	}

	if err := s.accumulate(sheet, columns, categoryIdx, categoryLookup, result); err != nil {
		return nil, err
	}
	result.Metadata = collectMetadata(sheet, columns)

	start, end, err := s.periodRange(req, sheet, columns)
	if err != nil {
		return nil, err
	}
	result.PeriodStart = start
	result.PeriodEnd = end

	if req.DryRun {
		preview, err := s.periodSvc.Preview(ctx, salesperioddomain.PreviewRequest{
			OrganizationID:     req.OrganizationID,
			ContractID:         req.ContractID,
			PeriodStart:        start,
			PeriodEnd:          end,
			NetSalesCents:      result.NetSalesCents,
			CategorySalesCents: result.CategorySalesCents,
		})
		if err != nil {
			return nil, err
		}
		result.Preview = preview
		return result, nil
	}

	confirmation, err := s.periodSvc.Confirm(ctx, salesperioddomain.ConfirmRequest{
		OrganizationID:               req.OrganizationID,
		ContractID:                   req.ContractID,
		PeriodStart:                  start,
		PeriodEnd:                    end,
		NetSalesCents:                result.NetSalesCents,
		GrossSalesCents:              result.GrossSalesCents,
		CategorySalesCents:           result.CategorySalesCents,
		LicenseeReportedRoyaltyCents: result.ReportedRoyaltyCents,
		Source:                       salesperioddomain.SourceIngestion,
		Metadata:                     confirmMetadata(req, sheet, result),
	})
	if err != nil {
		return nil, err
	}
	result.Confirmation = confirmation

	s.log.Info("spreadsheet ingested",
		zap.String("org_id", req.OrganizationID),
		zap.String("contract_id", req.ContractID),
		zap.String("file", req.FileName),
		zap.Int("rows", len(sheet.Rows)),
		zap.Int64("net_sales_cents", result.NetSalesCents),
	)
	return result, nil
}

// collectMetadata gathers pass-through column values onto the period's
// metadata blob: one entry per metadata-mapped column, the distinct
// non-empty values in row order (a scalar when the column is constant).
func collectMetadata(sheet *spreadsheet.Sheet, columns *mappingdomain.ColumnResolution) map[string]interface{} {
	indexes := columns.RoleIndexes(mappingdomain.RoleMetadata)
	if len(indexes) == 0 {
		return nil
	}

	meta := make(map[string]interface{}, len(indexes))
	for _, idx := range indexes {
		seen := make(map[string]bool)
		var values []string
		for _, row := range sheet.Rows {
			v := strings.TrimSpace(row[idx])
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			values = append(values, v)
		}
		switch len(values) {
		case 0:
		case 1:
			meta[sheet.Headers[idx]] = values[0]
		default:
			meta[sheet.Headers[idx]] = values
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func confirmMetadata(req domain.IngestRequest, sheet *spreadsheet.Sheet, result *domain.IngestResult) map[string]interface{} {
	metadata := map[string]interface{}{
		"file_name": req.FileName,
		"sheet":     sheet.Name,
		"rows":      len(sheet.Rows),
	}
	for header, value := range result.Metadata {
		metadata[header] = value
	}
	return metadata
}

func (s *Service) parse(req domain.IngestRequest) (*spreadsheet.Sheet, error) {
	if strings.HasSuffix(strings.ToLower(req.FileName), ".csv") {
		return spreadsheet.OpenCSVBytes(req.Content)
	}
	return spreadsheet.OpenBytes(req.Content, spreadsheet.Options{SheetName: req.SheetName})
}

func (s *Service) accumulate(sheet *spreadsheet.Sheet, columns *mappingdomain.ColumnResolution, categoryIdx int, categoryLookup map[string]mappingdomain.CategoryMapping, result *domain.IngestResult) error {
	netIdx := columns.RoleIndex(mappingdomain.RoleNetSales)
	grossIdx := columns.RoleIndex(mappingdomain.RoleGrossSales)
	royaltyIdx := columns.RoleIndex(mappingdomain.RoleReportedRoyalty)

	var reportedRoyalty int64
	var hasReported bool

	for rowNum, row := range sheet.Rows {
		var excluded bool
		var category string
		if categoryIdx >= 0 {
			mapping, ok := categoryLookup[mappingdomain.Normalize(row[categoryIdx])]
			if ok {
				excluded = mapping.Excluded
				category = mapping.Category
			}
		}

		if netIdx >= 0 {
			cents, err := parseMoneyCell(row[netIdx], rowNum, sheet.Headers[netIdx])
			if err != nil {
				return err
			}
			if excluded {
				result.ExcludedSalesCents += cents
			} else {
				result.NetSalesCents += cents
				if category != "" {
					if result.CategorySalesCents == nil {
						result.CategorySalesCents = map[string]int64{}
					}
					result.CategorySalesCents[category] += cents
				}
			}
		}
		if grossIdx >= 0 {
			cents, err := parseMoneyCell(row[grossIdx], rowNum, sheet.Headers[grossIdx])
			if err != nil {
				return err
			}
			if !excluded {
				result.GrossSalesCents += cents
			}
		}
		if royaltyIdx >= 0 && strings.TrimSpace(row[royaltyIdx]) != "" {
			cents, err := parseMoneyCell(row[royaltyIdx], rowNum, sheet.Headers[royaltyIdx])
			if err != nil {
				return err
			}
			reportedRoyalty += cents
			hasReported = true
		}
	}

	if hasReported {
		result.ReportedRoyaltyCents = &reportedRoyalty
	}
	return nil
}

func (s *Service) periodRange(req domain.IngestRequest, sheet *spreadsheet.Sheet, columns *mappingdomain.ColumnResolution) (time.Time, time.Time, error) {
	if !req.PeriodStart.IsZero() && !req.PeriodEnd.IsZero() {
		return req.PeriodStart.UTC(), req.PeriodEnd.UTC(), nil
	}

	startIdx := columns.RoleIndex(mappingdomain.RolePeriodStart)
	endIdx := columns.RoleIndex(mappingdomain.RolePeriodEnd)
	if startIdx < 0 || endIdx < 0 || len(sheet.Rows) == 0 {
		return time.Time{}, time.Time{}, domain.ErrMissingPeriodDates
	}

	start, err := parseDateCell(sheet.Rows[0][startIdx])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDateCell(sheet.Rows[0][endIdx])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

var dateLayouts = []string{"2006-01-02", "01/02/2006", "1/2/2006", "Jan 2, 2006", "January 2, 2006"}

func parseDateCell(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable date %q", domain.ErrMissingPeriodDates, value)
}

func parseMoneyCell(value string, rowNum int, header string) (int64, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(value))
	if cleaned == "" {
		return 0, nil
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("%w: row %d column %q value %q", domain.ErrMalformedCell, rowNum+2, header, value)
	}
	return int64(math.Floor(amount*100 + 0.5)), nil
}
