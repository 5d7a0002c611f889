package entities

import (
	"strings"
	"time"
)

type ImportSource string

const (
	ImportSourceLetterboxd ImportSource = "letterboxd"
	ImportSourceIMDb       ImportSource = "imdb"
)

type ImportJobStatus string

const (
	ImportJobPending    ImportJobStatus = "pending"
	ImportJobProcessing ImportJobStatus = "processing"
	ImportJobCompleted  ImportJobStatus = "completed"
	ImportJobFailed     ImportJobStatus = "failed"
)

// IsTerminal reports whether the job can no longer change state.
func (s ImportJobStatus) IsTerminal() bool {
	return s == ImportJobCompleted || s == ImportJobFailed
}

type ImportItemStatus string

const (
	ImportItemPending ImportItemStatus = "pending"
	ImportItemSuccess ImportItemStatus = "success"
	ImportItemFailed  ImportItemStatus = "failed"
	ImportItemSkipped ImportItemStatus = "skipped"
)

type MatchConfidence string

const (
	MatchExact  MatchConfidence = "exact"
	MatchFuzzy  MatchConfidence = "fuzzy"
	MatchFailed MatchConfidence = "failed"
)

type ResultAction string

const (
	ActionCreated         ResultAction = "created"
	ActionUpdated         ResultAction = "updated"
	ActionSkippedExisting ResultAction = "skipped_existing"
)

type ConflictStrategy string

const (
	ConflictSkip             ConflictStrategy = "skip"
	ConflictOverwrite        ConflictStrategy = "overwrite"
	ConflictKeepHigherRating ConflictStrategy = "keep_higher_rating"
)

// ImportConfig carries the user's choices for one import run. It is stored
// on the job row so the background task can run from persisted state alone.
type ImportConfig struct {
	Source           ImportSource     `json:"source"`
	ConflictStrategy ConflictStrategy `json:"conflict_strategy"`
	ImportRatings    bool             `json:"import_ratings"`
	ImportWatched    bool             `json:"import_watched"`
	ImportWatchlist  bool             `json:"import_watchlist"`
	MarkRewatchAsTag bool             `json:"mark_rewatch_as_tag"`
}

// ImportJob is the persisted header for one upload. Counters satisfy
// processed = successful + failed + skipped at every observation point once
// the job has left pending, and processed never decreases.
type ImportJob struct {
	ID     uint            `gorm:"primaryKey" json:"id"`
	UserID uint            `gorm:"index" json:"user_id"`
	Source ImportSource    `gorm:"size:30" json:"source"`
	Status ImportJobStatus `gorm:"index;size:20;default:'pending'" json:"status"`

	TotalItems      int `json:"total_items"`
	ProcessedItems  int `json:"processed_items"`
	SuccessfulItems int `json:"successful_items"`
	FailedItems     int `json:"failed_items"`
	SkippedItems    int `json:"skipped_items"`

	ErrorMessage string `gorm:"size:1000" json:"error_message,omitempty"`

	// Conflict policy and field gates chosen at upload time.
	ConflictStrategy ConflictStrategy `gorm:"size:30;default:'skip'" json:"conflict_strategy"`
	ImportRatings    bool             `gorm:"default:true" json:"import_ratings"`
	ImportWatched    bool             `gorm:"default:true" json:"import_watched"`
	ImportWatchlist  bool             `gorm:"default:true" json:"import_watchlist"`
	MarkRewatchAsTag bool             `gorm:"default:false" json:"mark_rewatch_as_tag"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	User  User            `gorm:"foreignKey:UserID" json:"-"`
	Items []ImportJobItem `gorm:"foreignKey:ImportJobID" json:"items,omitempty"`
}

func (ImportJob) TableName() string {
	return "import_jobs"
}

// Config reassembles the ImportConfig stored on the job row.
func (j *ImportJob) Config() ImportConfig {
	return ImportConfig{
		Source:           j.Source,
		ConflictStrategy: j.ConflictStrategy,
		ImportRatings:    j.ImportRatings,
		ImportWatched:    j.ImportWatched,
		ImportWatchlist:  j.ImportWatchlist,
		MarkRewatchAsTag: j.MarkRewatchAsTag,
	}
}

// ImportJobItem is the persisted outcome for one parsed row. Items are
// created in pending state together with the job, then finalized exactly
// once by the orchestrator in source order.
type ImportJobItem struct {
	ID          uint `gorm:"primaryKey" json:"id"`
	ImportJobID uint `gorm:"index" json:"import_job_id"`

	// Source fields captured at parse time.
	SourceTitle  string      `gorm:"size:512" json:"source_title"`
	SourceYear   *int        `json:"source_year,omitempty"`
	SourceRating *float64    `json:"source_rating,omitempty"` // native scale of the export
	Rating       *int        `json:"rating,omitempty"`        // normalized to 1-5
	SourceStatus WatchStatus `gorm:"size:20" json:"source_status"`
	WatchedAt    *time.Time  `json:"watched_at,omitempty"`
	IsRewatch    bool        `json:"is_rewatch"`
	Tags         string      `gorm:"size:1000" json:"tags,omitempty"` // comma-separated

	// Match outcome.
	TmdbID          *int            `json:"tmdb_id,omitempty"`
	MatchedTitle    string          `gorm:"size:512" json:"matched_title,omitempty"`
	MatchConfidence MatchConfidence `gorm:"size:20" json:"match_confidence,omitempty"`

	Status       ImportItemStatus `gorm:"index;size:20;default:'pending'" json:"status"`
	ResultAction ResultAction     `gorm:"size:30" json:"result_action,omitempty"`
	ErrorMessage string           `gorm:"size:500" json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ImportJob ImportJob `gorm:"foreignKey:ImportJobID" json:"-"`
}

func (ImportJobItem) TableName() string {
	return "import_job_items"
}

// TagList splits the comma-separated tags column back into a slice.
func (i *ImportJobItem) TagList() []string {
	if i.Tags == "" {
		return nil
	}
	parts := strings.Split(i.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// JoinTags serializes a tag slice into the comma-separated column format.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}
