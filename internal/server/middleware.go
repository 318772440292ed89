package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	HeaderOrg    = "X-Org-ID"
	contextOrgID = "org_id"
)

// RequireOrg resolves the acting organization from the request header. Every
// v1 route is org-scoped; a request without one is rejected before any
// handler runs.
func RequireOrg() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := strings.TrimSpace(c.GetHeader(HeaderOrg))
		if orgID == "" {
			AbortWithError(c, newValidationError("org_id", "missing_org", "missing X-Org-ID header"))
			return
		}

		c.Set(contextOrgID, orgID)
		c.Next()
	}
}

func (s *Server) orgID(c *gin.Context) string {
	return c.GetString(contextOrgID)
}
