// Command generate_demo creates a demo database with a sample library and a
// finished import job.
// Usage: go run cmd/generate_demo/main.go [-db path/to/demo.db]
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/mlukasik/filmlog/internal/database"
	"github.com/mlukasik/filmlog/internal/database/users"
	"github.com/mlukasik/filmlog/internal/entities"
)

const defaultDemoDatabasePath = "./demo/demo.db"

type demoFilm struct {
	tmdbID    int
	title     string
	year      int
	rating    int
	watchedAt string
	tags      []string
}

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	flag.Parse()

	log.Printf("Generating demo database at %s...", *dbPath)

	// Delete existing demo database to start fresh
	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing demo database: %v", err)
	}

	db, err := database.NewDatabase(*dbPath)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	user, err := users.NewRepository(db.DB).EnsureDefaultUser()
	if err != nil {
		log.Fatalf("Failed to create demo user: %v", err)
	}

	films := demoFilms()
	tags := createTags(db, films)

	for _, film := range films {
		entry := entities.LibraryEntry{
			UserID: user.ID,
			TmdbID: film.tmdbID,
			Title:  film.title,
			Year:   film.year,
			Status: entities.WatchStatusWatched,
		}
		if film.rating > 0 {
			rating := film.rating
			entry.Rating = &rating
		}
		if film.watchedAt != "" {
			if t, err := time.Parse("2006-01-02", film.watchedAt); err == nil {
				entry.WatchedAt = &t
			}
		}
		for _, name := range film.tags {
			entry.Tags = append(entry.Tags, tags[name])
		}
		if err := db.DB.Create(&entry).Error; err != nil {
			log.Fatalf("Failed to create library entry %q: %v", film.title, err)
		}
	}

	createFinishedImportJob(db, user.ID, films)

	log.Printf("Demo database ready: %d library entries for user %s", len(films), user.Username)
	log.Printf("API token: %s", user.Token)
}

func demoFilms() []demoFilm {
	return []demoFilm{
		{tmdbID: 949, title: "Heat", year: 1995, rating: 5, watchedAt: "2024-01-05", tags: []string{"crime"}},
		{tmdbID: 348, title: "Alien", year: 1979, rating: 5, watchedAt: "2024-02-10", tags: []string{"sci-fi", "horror"}},
		{tmdbID: 603, title: "The Matrix", year: 1999, rating: 4, watchedAt: "2024-03-01", tags: []string{"sci-fi"}},
		{tmdbID: 769, title: "GoodFellas", year: 1990, rating: 5, watchedAt: "2024-03-18", tags: []string{"crime"}},
		{tmdbID: 11216, title: "Cinema Paradiso", year: 1988, rating: 4, watchedAt: "2024-04-02"},
		{tmdbID: 1891, title: "The Empire Strikes Back", year: 1980, rating: 4, watchedAt: "2024-04-20", tags: []string{"sci-fi"}},
		{tmdbID: 539, title: "Psycho", year: 1960, rating: 5, watchedAt: "2024-05-11", tags: []string{"horror"}},
		{tmdbID: 335, title: "Once Upon a Time in the West", year: 1968, rating: 4, watchedAt: "2024-06-01"},
	}
}

func createTags(db *database.Database, films []demoFilm) map[string]entities.Tag {
	tags := make(map[string]entities.Tag)
	for _, film := range films {
		for _, name := range film.tags {
			if _, ok := tags[name]; ok {
				continue
			}
			tag := entities.Tag{Name: name}
			if err := db.DB.Create(&tag).Error; err != nil {
				log.Fatalf("Failed to create tag %q: %v", name, err)
			}
			tags[name] = tag
		}
	}
	return tags
}

// createFinishedImportJob records the import that would have produced the
// demo library, so the jobs endpoint has history to show.
func createFinishedImportJob(db *database.Database, userID uint, films []demoFilm) {
	started := time.Now().Add(-time.Hour)
	completed := started.Add(2 * time.Minute)

	job := entities.ImportJob{
		UserID:           userID,
		Source:           entities.ImportSourceLetterboxd,
		Status:           entities.ImportJobCompleted,
		TotalItems:       len(films),
		ProcessedItems:   len(films),
		SuccessfulItems:  len(films),
		ConflictStrategy: entities.ConflictSkip,
		ImportRatings:    true,
		ImportWatched:    true,
		ImportWatchlist:  true,
		StartedAt:        &started,
		CompletedAt:      &completed,
	}
	if err := db.DB.Create(&job).Error; err != nil {
		log.Fatalf("Failed to create demo import job: %v", err)
	}

	for _, film := range films {
		tmdbID := film.tmdbID
		year := film.year
		item := entities.ImportJobItem{
			ImportJobID:     job.ID,
			SourceTitle:     film.title,
			SourceYear:      &year,
			SourceStatus:    entities.WatchStatusWatched,
			TmdbID:          &tmdbID,
			MatchedTitle:    film.title,
			MatchConfidence: entities.MatchExact,
			Status:          entities.ImportItemSuccess,
			ResultAction:    entities.ActionCreated,
			Tags:            entities.JoinTags(film.tags),
		}
		if film.rating > 0 {
			rating := film.rating
			item.Rating = &rating
		}
		if err := db.DB.Create(&item).Error; err != nil {
			log.Fatalf("Failed to create demo import item %q: %v", film.title, err)
		}
	}
}
