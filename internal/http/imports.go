package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mlukasik/filmlog/internal/audit"
	"github.com/mlukasik/filmlog/internal/database/importjobs"
	"github.com/mlukasik/filmlog/internal/entities"
	"github.com/mlukasik/filmlog/internal/importer"
	"github.com/mlukasik/filmlog/internal/parsers"
	"github.com/mlukasik/filmlog/internal/progress"
	"github.com/mlukasik/filmlog/internal/tasks"
)

// TaskEnqueuer schedules background tasks.
type TaskEnqueuer interface {
	Add(tasks ...backlite.Task) *backlite.TaskAddOp
}

// ImportController handles upload and progress endpoints for the import
// pipeline. Parsing happens synchronously in the upload request; matching
// and merging run in a background task the client observes by polling.
type ImportController struct {
	orchestrator *importer.Orchestrator
	reporter     *progress.Reporter
	queue        TaskEnqueuer
	auditService *audit.Service
}

func NewImportController(orchestrator *importer.Orchestrator, reporter *progress.Reporter, queue TaskEnqueuer, auditService *audit.Service) *ImportController {
	return &ImportController{
		orchestrator: orchestrator,
		reporter:     reporter,
		queue:        queue,
		auditService: auditService,
	}
}

// UploadResponse is returned once parsing has finished, before matching
// begins.
type UploadResponse struct {
	JobID       uint     `json:"job_id"`
	TotalItems  int      `json:"total_items"`
	ParseErrors []string `json:"parse_errors,omitempty"`
}

// jobResponse is a job snapshot with an optionally included item page.
type jobResponse struct {
	progress.JobProgress
	Items   []entities.ImportJobItem `json:"items,omitempty"`
	HasMore *bool                    `json:"has_more,omitempty"`
}

// Upload accepts a watch-history export, parses it synchronously and
// schedules the matching job. An unopenable container is rejected here and
// no job row is written.
func (ic *ImportController) Upload(c *gin.Context) {
	userID := GetUserID(c)

	if ic.queue == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "import processing is disabled"})
		return
	}

	cfg, err := importConfigFromForm(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	fileHeader, err := c.FormFile("export_file")
	if err != nil {
		respondBadRequest(c, "no export file provided")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondBadRequest(c, "could not open export file")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		respondInternalError(c, "read export file", err)
		return
	}

	result, err := parsers.Parse(cfg.Source, raw)
	if err != nil {
		if ic.auditService != nil {
			ic.auditService.LogImportRejected(userID, cfg.Source, err)
		}
		respondBadRequest(c, fmt.Sprintf("failed to parse export: %v", err))
		return
	}

	job, err := ic.orchestrator.CreateJob(userID, result.Items, cfg)
	if err != nil {
		respondInternalError(c, "create import job", err)
		return
	}

	if _, err := ic.queue.Add(tasks.ProcessImportJobTask{JobID: job.ID}).Save(); err != nil {
		// The job row already exists; fail it so it is not stranded in
		// pending, which the retention sweep never reclaims.
		ic.orchestrator.Abandon(job.ID, err)
		respondInternalError(c, "schedule import job", err)
		return
	}

	if ic.auditService != nil {
		ic.auditService.LogImportStarted(userID, cfg.Source, job.ID, job.TotalItems, len(result.Errors))
	}

	c.JSON(http.StatusAccepted, UploadResponse{
		JobID:       job.ID,
		TotalItems:  job.TotalItems,
		ParseErrors: result.Errors,
	})
}

// GetJob returns one job's progress snapshot. With ?items=true the response
// includes a page of item outcomes, optionally ?failed_only=true, paginated
// by ?limit= and ?offset=.
func (ic *ImportController) GetJob(c *gin.Context) {
	userID := GetUserID(c)
	jobID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	jobProgress, err := ic.reporter.GetJob(jobID, userID)
	if errors.Is(err, importjobs.ErrNotFound) {
		respondNotFound(c, "import job")
		return
	}
	if err != nil {
		respondInternalError(c, "load import job", err)
		return
	}

	resp := jobResponse{JobProgress: *jobProgress}

	if parseBoolQuery(c, "items") {
		page, err := ic.reporter.GetJobItems(
			jobID, userID,
			parseBoolQuery(c, "failed_only"),
			parseIntQuery(c, "limit", 100),
			parseIntQuery(c, "offset", 0),
		)
		if err != nil {
			respondInternalError(c, "load import job items", err)
			return
		}
		resp.Items = page.Items
		resp.HasMore = &page.HasMore
	}

	c.JSON(http.StatusOK, resp)
}

// ListJobs returns the caller's import jobs, most recent first.
func (ic *ImportController) ListJobs(c *gin.Context) {
	userID := GetUserID(c)

	jobs, err := ic.reporter.GetUserJobs(userID)
	if err != nil {
		respondInternalError(c, "list import jobs", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// importConfigFromForm reads and validates the upload form fields. Field
// gates default to importing everything; the conflict strategy defaults to
// skip.
func importConfigFromForm(c *gin.Context) (entities.ImportConfig, error) {
	cfg := entities.ImportConfig{}

	cfg.Source = entities.ImportSource(c.PostForm("source"))
	switch cfg.Source {
	case entities.ImportSourceLetterboxd, entities.ImportSourceIMDb:
	default:
		return cfg, fmt.Errorf("unknown source %q", cfg.Source)
	}

	cfg.ConflictStrategy = entities.ConflictStrategy(c.DefaultPostForm("conflict_strategy", string(entities.ConflictSkip)))
	switch cfg.ConflictStrategy {
	case entities.ConflictSkip, entities.ConflictOverwrite, entities.ConflictKeepHigherRating:
	default:
		return cfg, fmt.Errorf("unknown conflict strategy %q", cfg.ConflictStrategy)
	}

	var err error
	if cfg.ImportRatings, err = formBool(c, "import_ratings", true); err != nil {
		return cfg, err
	}
	if cfg.ImportWatched, err = formBool(c, "import_watched", true); err != nil {
		return cfg, err
	}
	if cfg.ImportWatchlist, err = formBool(c, "import_watchlist", true); err != nil {
		return cfg, err
	}
	if cfg.MarkRewatchAsTag, err = formBool(c, "mark_rewatch_as_tag", false); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func formBool(c *gin.Context, field string, fallback bool) (bool, error) {
	raw := c.PostForm(field)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for %s: %q", field, raw)
	}
	return value, nil
}
