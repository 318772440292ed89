package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	contractdomain "github.com/smallbiznis/regalia/internal/contract/domain"
	"github.com/smallbiznis/regalia/pkg/db/pagination"
)

type createContractRequest struct {
	// Terms takes precedence when both are set. DocumentText is run through
	// the extraction provider first.
	Terms        *contractdomain.ExtractedTerms `json:"terms"`
	DocumentText string                         `json:"document_text"`
}

func (s *Server) CreateContract(c *gin.Context) {
	var req createContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	terms := req.Terms
	if terms == nil {
		if strings.TrimSpace(req.DocumentText) == "" {
			AbortWithError(c, newValidationError("terms", "missing_terms", "provide terms or document_text"))
			return
		}
		extracted, err := s.extractor.ExtractTerms(c.Request.Context(), req.DocumentText)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		terms = extracted
	}

	resp, err := s.contractSvc.CreateDraft(c.Request.Context(), contractdomain.CreateDraftRequest{
		OrganizationID: s.orgID(c),
		Terms:          *terms,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type activateContractRequest struct {
	LicenseeEmail string   `json:"licensee_email"`
	Categories    []string `json:"categories"`
}

func (s *Server) ActivateContract(c *gin.Context) {
	var req activateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contractSvc.Activate(c.Request.Context(), contractdomain.ActivateRequest{
		OrganizationID: s.orgID(c),
		ContractID:     c.Param("contract_id"),
		LicenseeEmail:  strings.TrimSpace(req.LicenseeEmail),
		Categories:     req.Categories,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetContract(c *gin.Context) {
	resp, err := s.contractSvc.Get(c.Request.Context(), contractdomain.GetRequest{
		OrganizationID: s.orgID(c),
		ContractID:     c.Param("contract_id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListContracts(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contractSvc.List(c.Request.Context(), contractdomain.ListRequest{
		OrganizationID: s.orgID(c),
		Status:         strings.TrimSpace(c.Query("status")),
		LicenseeName:   strings.TrimSpace(c.Query("licensee_name")),
		Page:           page,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
