package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mlukasik/filmlog/internal/database"
)

// QueuePinger reports whether the task queue's backing store is reachable.
type QueuePinger interface {
	Ping() error
}

// HealthResponse carries one entry per dependency. The task queue runs on
// its own SQLite database next to the main one, so both are checked.
type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	db      *database.Database
	queue   QueuePinger
	version string
}

func NewHealthController(db *database.Database, queue QueuePinger, version string) *HealthController {
	return &HealthController{
		db:      db,
		queue:   queue,
		version: version,
	}
}

// Status reports liveness of the main database and the tasks database. A
// disabled queue is surfaced in the checks without marking the service
// unhealthy; uploads answer 503 on their own in that mode.
func (h *HealthController) Status(c *gin.Context) {
	checks := map[string]string{
		"database":   h.databaseCheck(),
		"task_queue": h.queueCheck(),
	}

	status := "healthy"
	statusCode := http.StatusOK
	for _, result := range checks {
		if strings.HasPrefix(result, "error") {
			status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
		}
	}

	c.IndentedJSON(statusCode, HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	})
}

func (h *HealthController) databaseCheck() string {
	if h.db == nil {
		return "not configured"
	}
	sqlDB, err := h.db.DB.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

func (h *HealthController) queueCheck() string {
	if h.queue == nil {
		return "disabled"
	}
	if err := h.queue.Ping(); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
