// Package library provides database operations for the user's permanent
// library of titles.
//
// This is the write boundary used by the import conflict resolver: each
// create or update is a single atomic row write for one (user, TMDB ID)
// pair.
package library

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mlukasik/filmlog/internal/entities"
)

// EntryFields carries the fields applied on create or update. Nil pointers
// leave the corresponding column untouched on update and unset on create, so
// the resolver's config gates map directly onto them.
type EntryFields struct {
	Title     string
	Year      int
	Status    *entities.WatchStatus
	Rating    *int
	WatchedAt *time.Time
	Tags      []string
}

// Repository handles all library entry database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new library repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByTmdbID returns the user's entry for a catalog ID, or nil when the
// user has none.
func (r *Repository) FindByTmdbID(userID uint, tmdbID int) (*entities.LibraryEntry, error) {
	var entry entities.LibraryEntry
	err := r.db.Preload("Tags").
		Where("user_id = ? AND tmdb_id = ?", userID, tmdbID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Create inserts a new entry for the user. Status defaults to none when no
// status field is applied, leaving a bare catalog reference.
func (r *Repository) Create(userID uint, tmdbID int, fields EntryFields) (*entities.LibraryEntry, error) {
	entry := entities.LibraryEntry{
		UserID: userID,
		TmdbID: tmdbID,
		Title:  fields.Title,
		Year:   fields.Year,
		Status: entities.WatchStatusNone,
	}
	if fields.Status != nil {
		entry.Status = *fields.Status
	}
	entry.Rating = fields.Rating
	entry.WatchedAt = fields.WatchedAt

	tags, err := r.findOrCreateTags(fields.Tags)
	if err != nil {
		return nil, err
	}
	entry.Tags = tags

	if err := r.db.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("create library entry: %w", err)
	}
	return &entry, nil
}

// Update applies the provided fields to the user's existing entry. Only
// non-nil fields touch the row; tags are appended, never removed.
func (r *Repository) Update(userID uint, tmdbID int, fields EntryFields) error {
	var entry entities.LibraryEntry
	err := r.db.Where("user_id = ? AND tmdb_id = ?", userID, tmdbID).First(&entry).Error
	if err != nil {
		return fmt.Errorf("find library entry: %w", err)
	}

	updates := map[string]any{}
	if fields.Status != nil {
		updates["status"] = *fields.Status
	}
	if fields.Rating != nil {
		updates["rating"] = *fields.Rating
	}
	if fields.WatchedAt != nil {
		updates["watched_at"] = *fields.WatchedAt
	}

	if len(updates) > 0 {
		if err := r.db.Model(&entry).Updates(updates).Error; err != nil {
			return fmt.Errorf("update library entry: %w", err)
		}
	}

	if len(fields.Tags) > 0 {
		tags, err := r.findOrCreateTags(fields.Tags)
		if err != nil {
			return err
		}
		if err := r.db.Model(&entry).Association("Tags").Append(tags); err != nil {
			return fmt.Errorf("attach tags: %w", err)
		}
	}

	return nil
}

// ListForUser retrieves all library entries for a user, newest first.
func (r *Repository) ListForUser(userID uint) ([]entities.LibraryEntry, error) {
	var entries []entities.LibraryEntry
	err := r.db.Preload("Tags").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

func (r *Repository) findOrCreateTags(names []string) ([]entities.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}

	tags := make([]entities.Tag, 0, len(names))
	for _, name := range names {
		var tag entities.Tag
		err := r.db.Where("name = ?", name).First(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag = entities.Tag{Name: name}
			if err := r.db.Create(&tag).Error; err != nil {
				return nil, fmt.Errorf("create tag %q: %w", name, err)
			}
		} else if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
