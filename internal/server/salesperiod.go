package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	salesperioddomain "github.com/smallbiznis/regalia/internal/salesperiod/domain"
	"github.com/smallbiznis/regalia/pkg/db/pagination"
)

type confirmPeriodRequest struct {
	ContractID  string `json:"contract_id"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`

	NetSalesCents      int64            `json:"net_sales_cents"`
	GrossSalesCents    int64            `json:"gross_sales_cents"`
	CategorySalesCents map[string]int64 `json:"category_sales_cents"`

	LicenseeReportedRoyaltyCents *int64                 `json:"licensee_reported_royalty_cents"`
	Metadata                     map[string]interface{} `json:"metadata"`
}

func (s *Server) ConfirmSalesPeriod(c *gin.Context) {
	var req confirmPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	start, err := parseDateField("period_start", req.PeriodStart)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	end, err := parseDateField("period_end", req.PeriodEnd)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.periodSvc.Confirm(c.Request.Context(), salesperioddomain.ConfirmRequest{
		OrganizationID:               s.orgID(c),
		ContractID:                   req.ContractID,
		PeriodStart:                  start,
		PeriodEnd:                    end,
		NetSalesCents:                req.NetSalesCents,
		GrossSalesCents:              req.GrossSalesCents,
		CategorySalesCents:           req.CategorySalesCents,
		LicenseeReportedRoyaltyCents: req.LicenseeReportedRoyaltyCents,
		Source:                       salesperioddomain.SourceManual,
		Metadata:                     req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type previewPeriodRequest struct {
	ContractID  string `json:"contract_id"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`

	NetSalesCents      int64            `json:"net_sales_cents"`
	CategorySalesCents map[string]int64 `json:"category_sales_cents"`
}

func (s *Server) PreviewSalesPeriod(c *gin.Context) {
	var req previewPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	start, err := parseDateField("period_start", req.PeriodStart)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	end, err := parseDateField("period_end", req.PeriodEnd)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.periodSvc.Preview(c.Request.Context(), salesperioddomain.PreviewRequest{
		OrganizationID:     s.orgID(c),
		ContractID:         req.ContractID,
		PeriodStart:        start,
		PeriodEnd:          end,
		NetSalesCents:      req.NetSalesCents,
		CategorySalesCents: req.CategorySalesCents,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSalesPeriod(c *gin.Context) {
	resp, err := s.periodSvc.Get(c.Request.Context(), salesperioddomain.GetRequest{
		OrganizationID: s.orgID(c),
		PeriodID:       c.Param("period_id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type voidPeriodRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) VoidSalesPeriod(c *gin.Context) {
	var req voidPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.periodSvc.Void(c.Request.Context(), salesperioddomain.VoidRequest{
		OrganizationID: s.orgID(c),
		PeriodID:       c.Param("period_id"),
		Reason:         strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSalesPeriods(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	from, err := parseOptionalTime(c.Query("from"), false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_date", "expected YYYY-MM-DD or RFC3339"))
		return
	}
	to, err := parseOptionalTime(c.Query("to"), true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_date", "expected YYYY-MM-DD or RFC3339"))
		return
	}

	req := salesperioddomain.ListRequest{
		OrganizationID: s.orgID(c),
		ContractID:     strings.TrimSpace(c.Query("contract_id")),
		Status:         strings.TrimSpace(c.Query("status")),
		Page:           page,
	}
	if from != nil {
		req.From = *from
	}
	if to != nil {
		req.To = *to
	}

	resp, err := s.periodSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
