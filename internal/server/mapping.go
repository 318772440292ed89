package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	mappingdomain "github.com/smallbiznis/regalia/internal/mapping/domain"
)

type resolveColumnsRequest struct {
	Headers []string `json:"headers"`
}

func (s *Server) ResolveColumns(c *gin.Context) {
	var req resolveColumnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.Headers) == 0 {
		AbortWithError(c, newValidationError("headers", "missing_headers", "at least one header is required"))
		return
	}

	resp, err := s.mappingSvc.ResolveColumns(c.Request.Context(), mappingdomain.ResolveColumnsRequest{
		OrganizationID: s.orgID(c),
		Headers:        req.Headers,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type resolveCategoriesRequest struct {
	ContractID string   `json:"contract_id"`
	RawTerms   []string `json:"raw_terms"`
}

func (s *Server) ResolveCategories(c *gin.Context) {
	var req resolveCategoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.mappingSvc.ResolveCategories(c.Request.Context(), mappingdomain.ResolveCategoriesRequest{
		OrganizationID: s.orgID(c),
		ContractID:     req.ContractID,
		RawTerms:       req.RawTerms,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type saveColumnPreferenceRequest struct {
	Header string `json:"header"`
	Role   string `json:"role"`
}

func (s *Server) SaveColumnPreference(c *gin.Context) {
	var req saveColumnPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.mappingSvc.SaveColumnPreference(c.Request.Context(), mappingdomain.SaveColumnPreferenceRequest{
		OrganizationID: s.orgID(c),
		Header:         strings.TrimSpace(req.Header),
		Role:           mappingdomain.ColumnRole(strings.TrimSpace(req.Role)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type saveCategoryPreferenceRequest struct {
	RawTerm  string `json:"raw_term"`
	Category string `json:"category"`
	Excluded bool   `json:"excluded"`
}

func (s *Server) SaveCategoryPreference(c *gin.Context) {
	var req saveCategoryPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.mappingSvc.SaveCategoryPreference(c.Request.Context(), mappingdomain.SaveCategoryPreferenceRequest{
		OrganizationID: s.orgID(c),
		RawTerm:        strings.TrimSpace(req.RawTerm),
		Category:       strings.TrimSpace(req.Category),
		Excluded:       req.Excluded,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
