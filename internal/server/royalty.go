package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	royaltydomain "github.com/smallbiznis/regalia/internal/royalty/domain"
)

type calculateRoyaltyRequest struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`

	NetSalesCents      int64            `json:"net_sales_cents"`
	CategorySalesCents map[string]int64 `json:"category_sales_cents"`
}

func (s *Server) CalculateRoyalty(c *gin.Context) {
	var req calculateRoyaltyRequest
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

	resp, err := s.royaltySvc.Calculate(c.Request.Context(), royaltydomain.CalculateRequest{
		OrganizationID: s.orgID(c),
		ContractID:     c.Param("contract_id"),
		PeriodStart:    start,
		PeriodEnd:      end,
		Sales: royaltydomain.SalesInput{
			NetSalesCents:      req.NetSalesCents,
			CategorySalesCents: req.CategorySalesCents,
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListYearSummaries(c *gin.Context) {
	asOf, err := parseOptionalTime(c.Query("as_of"), true)
	if err != nil {
		AbortWithError(c, newValidationError("as_of", "invalid_date", "expected YYYY-MM-DD or RFC3339"))
		return
	}

	req := royaltydomain.YearSummariesRequest{
		OrganizationID: s.orgID(c),
		ContractID:     c.Param("contract_id"),
	}
	if asOf != nil {
		req.AsOf = *asOf
	}

	resp, err := s.royaltySvc.YearSummaries(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) FinalizeYear(c *gin.Context) {
	yearIndex, err := strconv.Atoi(c.Param("year_index"))
	if err != nil {
		AbortWithError(c, newValidationError("year_index", "invalid_year_index", "expected a positive integer"))
		return
	}

	resp, err := s.royaltySvc.FinalizeYear(c.Request.Context(), royaltydomain.FinalizeYearRequest{
		OrganizationID: s.orgID(c),
		ContractID:     c.Param("contract_id"),
		YearIndex:      yearIndex,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAdvanceStatus(c *gin.Context) {
	resp, err := s.royaltySvc.AdvanceStatus(c.Request.Context(), royaltydomain.AdvanceStatusRequest{
		OrganizationID: s.orgID(c),
		ContractID:     c.Param("contract_id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// RenderStatement returns the rendered PDF directly; callers wanting the
// delivery outcome instead of the document pass Accept: application/json.
func (s *Server) RenderStatement(c *gin.Context) {
	deliver, err := parseOptionalBool(c.Query("deliver"))
	if err != nil {
		AbortWithError(c, newValidationError("deliver", "invalid_bool", "expected true or false"))
		return
	}

	contractID := c.Param("contract_id")
	resp, err := s.royaltySvc.RenderStatement(c.Request.Context(), royaltydomain.StatementRequest{
		OrganizationID: s.orgID(c),
		ContractID:     contractID,
		Deliver:        deliver,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if c.GetHeader("Accept") == "application/json" || len(resp.PDF) == 0 {
		c.JSON(http.StatusOK, gin.H{"data": resp})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "statement-"+contractID+".pdf"))
	c.Data(http.StatusOK, "application/pdf", resp.PDF)
}
