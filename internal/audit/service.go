// Package audit provides a high-level audit trail of import activity.
package audit

import (
	"encoding/json"
	"log"

	"github.com/mlukasik/filmlog/internal/database/audit"
	"github.com/mlukasik/filmlog/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	go func() {
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// LogImportStarted records the acceptance of an upload.
func (s *Service) LogImportStarted(userID uint, source entities.ImportSource, jobID uint, totalItems, parseErrors int) {
	id := jobID
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventImport,
		Action:      string(source) + "_import",
		Description: "Accepted watch-history import",
		EntityType:  "import_job",
		EntityID:    &id,
		Status:      entities.AuditStatusSuccess,
	}

	metadata := map[string]any{
		"total_items":  totalItems,
		"parse_errors": parseErrors,
	}
	if mdBytes, err := json.Marshal(metadata); err == nil {
		event.Metadata = string(mdBytes)
	}

	s.LogAsync(event)
}

// LogImportRejected records an upload whose container could not be parsed.
// No job row exists in this case, so the event is the only trace.
func (s *Service) LogImportRejected(userID uint, source entities.ImportSource, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventImport,
		Action:      string(source) + "_import",
		Description: "Rejected watch-history export",
		Status:      entities.AuditStatusFailed,
	}
	if err != nil {
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(userID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(userID, limit, offset)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
