package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	inbounddomain "github.com/smallbiznis/regalia/internal/inbound/domain"
	"github.com/smallbiznis/regalia/pkg/db/pagination"
)

type receiveReportRequest struct {
	SenderEmail   string                 `json:"sender_email"`
	SenderName    string                 `json:"sender_name"`
	Subject       string                 `json:"subject"`
	Body          string                 `json:"body"`
	AttachmentKey string                 `json:"attachment_key"`
	ReceivedAt    string                 `json:"received_at"`
	Metadata      map[string]interface{} `json:"metadata"`
}

func (s *Server) ReceiveInboundReport(c *gin.Context) {
	var req receiveReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var receivedAt time.Time
	if strings.TrimSpace(req.ReceivedAt) != "" {
		parsed, err := parseOptionalTime(req.ReceivedAt, false)
		if err != nil {
			AbortWithError(c, newValidationError("received_at", "invalid_date", "expected YYYY-MM-DD or RFC3339"))
			return
		}
		receivedAt = *parsed
	}

	resp, err := s.inboundSvc.Receive(c.Request.Context(), inbounddomain.ReceiveRequest{
		OrganizationID: s.orgID(c),
		SenderEmail:    strings.TrimSpace(req.SenderEmail),
		SenderName:     strings.TrimSpace(req.SenderName),
		Subject:        req.Subject,
		Body:           req.Body,
		AttachmentKey:  strings.TrimSpace(req.AttachmentKey),
		ReceivedAt:     receivedAt,
		Metadata:       req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type confirmMatchRequest struct {
	ContractID string `json:"contract_id"`
}

func (s *Server) ConfirmInboundMatch(c *gin.Context) {
	var req confirmMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inboundSvc.ConfirmMatch(c.Request.Context(), inbounddomain.ConfirmMatchRequest{
		OrganizationID: s.orgID(c),
		ReportID:       c.Param("report_id"),
		ContractID:     strings.TrimSpace(req.ContractID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type rejectReportRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) RejectInboundReport(c *gin.Context) {
	var req rejectReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inboundSvc.Reject(c.Request.Context(), inbounddomain.RejectRequest{
		OrganizationID: s.orgID(c),
		ReportID:       c.Param("report_id"),
		Reason:         strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type markProcessedRequest struct {
	SalesPeriodID string `json:"sales_period_id"`
}

func (s *Server) MarkInboundProcessed(c *gin.Context) {
	var req markProcessedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inboundSvc.MarkProcessed(c.Request.Context(), inbounddomain.MarkProcessedRequest{
		OrganizationID: s.orgID(c),
		ReportID:       c.Param("report_id"),
		SalesPeriodID:  strings.TrimSpace(req.SalesPeriodID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInboundReport(c *gin.Context) {
	resp, err := s.inboundSvc.Get(c.Request.Context(), inbounddomain.GetRequest{
		OrganizationID: s.orgID(c),
		ReportID:       c.Param("report_id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInboundReports(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inboundSvc.List(c.Request.Context(), inbounddomain.ListRequest{
		OrganizationID: s.orgID(c),
		Status:         strings.TrimSpace(c.Query("status")),
		Confidence:     strings.TrimSpace(c.Query("confidence")),
		Page:           page,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
