package service

import (
	"context"
	"fmt"
	"io"

	"github.com/smallbiznis/regalia/internal/providers/pdf"
	"github.com/smallbiznis/regalia/internal/royalty/domain"
	"go.uber.org/zap"
)

// RenderStatement builds the licensee-facing statement over every confirmed
// period of the contract.
func (s *Service) RenderStatement(ctx context.Context, req domain.StatementRequest) (*domain.Statement, error) {
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

	var totalSales, totalRoyalty int64
	lines := make([]pdf.StatementLine, 0, len(periods))
	for _, p := range periods {
		totalSales += p.NetSalesCents
		totalRoyalty += p.RoyaltyCalculatedCents
		lines = append(lines, pdf.StatementLine{
			PeriodStart:    p.PeriodStart.Format("2006-01-02"),
			PeriodEnd:      p.PeriodEnd.Format("2006-01-02"),
			NetSales:       formatCents(p.NetSalesCents),
			Royalty:        formatCents(p.RoyaltyCalculatedCents),
			MinimumApplied: p.MinimumApplied,
		})
	}

	advance, err := s.AdvanceStatus(ctx, domain.AdvanceStatusRequest{
		OrganizationID: req.OrganizationID,
		ContractID:     req.ContractID,
	})
	if err != nil {
		return nil, err
	}

	data := pdf.StatementData{
		OrgName:         "Licensor",
		LicenseeName:    contract.LicenseeName,
		LicenseeEmail:   contract.LicenseeEmail,
		AgreementNumber: contract.AgreementNumber,
		StatementDate:   s.clock.Now().Format("2006-01-02"),
		Currency:        contract.Currency,

		Lines: lines,

		TotalSales:   formatCents(totalSales),
		TotalRoyalty: formatCents(totalRoyalty),
	}
	if annualized := contract.AnnualizedGuaranteeCents(); annualized > 0 {
		data.GuaranteeStatus = fmt.Sprintf("Annual minimum guarantee: %s", formatCents(annualized))
	}
	if contract.AdvanceCents > 0 {
		data.AdvanceUnrecouped = formatCents(advance.UnrecoupedCents)
	}

	reader, err := s.pdf.GenerateStatement(ctx, data)
	if err != nil {
		return nil, err
	}
	var doc []byte
	if reader != nil {
		doc, err = io.ReadAll(reader)
		if err != nil {
			return nil, err
		}
	}

	statement := &domain.Statement{PDF: doc}

	if req.Deliver && contract.LicenseeEmail != "" {
		subject := fmt.Sprintf("Royalty statement for agreement %s", contract.AgreementNumber)
		body := fmt.Sprintf(
			"<p>Dear %s,</p><p>Your royalty statement is ready. Total royalties to date: %s %s.</p>",
			contract.LicenseeName, formatCents(totalRoyalty), contract.Currency,
		)
		if err := s.email.Send(ctx, []string{contract.LicenseeEmail}, subject, body); err != nil {
			s.log.Warn("statement delivery failed",
				zap.String("org_id", orgID.String()),
				zap.String("contract_id", contractID.String()),
				zap.Error(err),
			)
		} else {
			statement.Delivered = true
		}
	}

	return statement, nil
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
