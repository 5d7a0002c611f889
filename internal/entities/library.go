package entities

import (
	"time"

	"gorm.io/gorm"
)

type WatchStatus string

const (
	WatchStatusWatched   WatchStatus = "watched"
	WatchStatusWatchlist WatchStatus = "watchlist"
	WatchStatusNone      WatchStatus = "none"
)

type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:100" json:"username"`
	Email     string         `gorm:"uniqueIndex;size:255" json:"email"`
	Token     string         `gorm:"uniqueIndex;size:64" json:"-"` // API token, hidden from JSON
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// LibraryEntry is one title in a user's permanent library. A user holds at
// most one entry per TMDB ID; imports merge into existing entries according
// to the configured conflict strategy.
type LibraryEntry struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"index:idx_library_user_tmdb,unique" json:"user_id"`
	TmdbID int  `gorm:"index:idx_library_user_tmdb,unique" json:"tmdb_id"`

	Title string `gorm:"index;size:512" json:"title"`
	Year  int    `json:"year,omitempty"`

	Status    WatchStatus `gorm:"size:20;default:'none'" json:"status"`
	Rating    *int        `json:"rating,omitempty"` // 1-5, nil when unrated
	WatchedAt *time.Time  `json:"watched_at,omitempty"`

	User User  `gorm:"foreignKey:UserID" json:"-"`
	Tags []Tag `gorm:"many2many:library_entry_tags;" json:"tags,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LibraryEntry) TableName() string {
	return "library_entries"
}
