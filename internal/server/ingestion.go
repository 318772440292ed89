package server

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	ingestiondomain "github.com/smallbiznis/regalia/internal/ingestion/domain"
)

// maxUploadBytes bounds spreadsheet uploads; licensee reports are small.
const maxUploadBytes = 20 << 20

func (s *Server) UploadSalesReport(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "missing_file", "multipart field \"file\" is required"))
		return
	}
	if fileHeader.Size > maxUploadBytes {
		AbortWithError(c, newValidationError("file", "file_too_large", "upload exceeds 20MB"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	dryRun, err := parseOptionalBool(c.Query("dry_run"))
	if err != nil {
		AbortWithError(c, newValidationError("dry_run", "invalid_bool", "expected true or false"))
		return
	}

	var start, end time.Time
	if v := strings.TrimSpace(c.PostForm("period_start")); v != "" {
		start, err = parseDateField("period_start", v)
		if err != nil {
			AbortWithError(c, err)
			return
		}
	}
	if v := strings.TrimSpace(c.PostForm("period_end")); v != "" {
		end, err = parseDateField("period_end", v)
		if err != nil {
			AbortWithError(c, err)
			return
		}
	}

	resp, err := s.ingestionSvc.Ingest(c.Request.Context(), ingestiondomain.IngestRequest{
		OrganizationID: s.orgID(c),
		ContractID:     c.Param("contract_id"),
		FileName:       fileHeader.Filename,
		Content:        content,
		SheetName:      strings.TrimSpace(c.PostForm("sheet")),
		PeriodStart:    start,
		PeriodEnd:      end,
		DryRun:         dryRun,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
