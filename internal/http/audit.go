package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mlukasik/filmlog/internal/audit"
)

// AuditController exposes the import audit trail.
type AuditController struct {
	auditService *audit.Service
}

func NewAuditController(auditService *audit.Service) *AuditController {
	return &AuditController{auditService: auditService}
}

// ListEvents returns the caller's audit events, most recent first,
// paginated by ?limit= and ?offset=.
func (ac *AuditController) ListEvents(c *gin.Context) {
	userID := GetUserID(c)

	limit := parseIntQuery(c, "limit", 25)
	if limit < 1 || limit > 100 {
		limit = 25
	}
	offset := parseIntQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	events, total, err := ac.auditService.GetEvents(userID, limit, offset)
	if err != nil {
		respondInternalError(c, "load audit events", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
