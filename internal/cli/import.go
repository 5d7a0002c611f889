package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mlukasik/filmlog/internal/config"
	"github.com/mlukasik/filmlog/internal/database"
	"github.com/mlukasik/filmlog/internal/database/importjobs"
	"github.com/mlukasik/filmlog/internal/database/library"
	"github.com/mlukasik/filmlog/internal/database/users"
	"github.com/mlukasik/filmlog/internal/entities"
	"github.com/mlukasik/filmlog/internal/importer"
	"github.com/mlukasik/filmlog/internal/matcher"
	"github.com/mlukasik/filmlog/internal/parsers"
	"github.com/mlukasik/filmlog/internal/resolver"
	"github.com/mlukasik/filmlog/internal/tmdb"
)

// ImportCommand runs a watch-history import from a local file without going
// through the HTTP server. The job is persisted and processed synchronously.
type ImportCommand struct {
	FilePath     string
	DatabasePath string
	Source       string
	Strategy     string
	TmdbToken    string
	MarkRewatch  bool
	Verbose      bool
	DryRun       bool
}

func NewImportCommand() *ImportCommand {
	return &ImportCommand{}
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	fs.StringVar(&cmd.FilePath, "file", "", "Path to the export file (required)")
	fs.StringVar(&cmd.Source, "source", "", "Export source: letterboxd or imdb (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the local database file")
	fs.StringVar(&cmd.Strategy, "strategy", string(entities.ConflictSkip), "Conflict strategy: skip, overwrite or keep_higher_rating")
	fs.StringVar(&cmd.TmdbToken, "tmdb-token", "", "TMDB API token (defaults to TMDB_TOKEN env var)")
	fs.BoolVar(&cmd.MarkRewatch, "mark-rewatch", false, "Tag rewatched entries with 'rewatch'")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Parse the file and show what would be imported without making changes")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import -file <path> -source <letterboxd|imdb> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import a watch-history export into the local library.\n\n")
		fmt.Fprintf(os.Stderr, "Letterboxd exports are the ZIP archive from the account settings page.\n")
		fmt.Fprintf(os.Stderr, "IMDb exports are the ratings CSV from 'Your Ratings'.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Import a Letterboxd archive:\n")
		fmt.Fprintf(os.Stderr, "  %s import -file letterboxd-export.zip -source letterboxd\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Preview an IMDb ratings file:\n")
		fmt.Fprintf(os.Stderr, "  %s import -file ratings.csv -source imdb -dry-run -verbose\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	switch entities.ImportSource(cmd.Source) {
	case entities.ImportSourceLetterboxd, entities.ImportSourceIMDb:
	default:
		return fmt.Errorf("unknown source %q, expected letterboxd or imdb", cmd.Source)
	}
	switch entities.ConflictStrategy(cmd.Strategy) {
	case entities.ConflictSkip, entities.ConflictOverwrite, entities.ConflictKeepHigherRating:
	default:
		return fmt.Errorf("unknown strategy %q", cmd.Strategy)
	}

	if cmd.TmdbToken == "" {
		cmd.TmdbToken = os.Getenv("TMDB_TOKEN")
	}

	return nil
}

func (cmd *ImportCommand) Run() error {
	fmt.Println("Watch History Import")
	fmt.Println("====================")

	if cmd.DryRun {
		fmt.Println("DRY RUN MODE - No changes will be made")
		fmt.Println()
	}

	raw, err := os.ReadFile(cmd.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read export file: %w", err)
	}

	fmt.Printf("File: %s\n", cmd.FilePath)
	fmt.Println("\nParsing export...")

	result, err := parsers.Parse(entities.ImportSource(cmd.Source), raw)
	if err != nil {
		return fmt.Errorf("failed to parse export: %w", err)
	}

	fmt.Printf("Found %d titles (%d rows read, %d rows rejected)\n",
		len(result.Items), result.TotalRows, len(result.Errors))

	if len(result.Errors) > 0 && cmd.Verbose {
		fmt.Println("\n=== Rejected Rows ===")
		for _, e := range result.Errors {
			fmt.Printf("  %s\n", e)
		}
	}

	if cmd.DryRun {
		if cmd.Verbose {
			fmt.Println("\n=== Titles Found ===")
			for i, item := range result.Items {
				year := "?"
				if item.Year != nil {
					year = fmt.Sprintf("%d", *item.Year)
				}
				fmt.Printf("%d. %s (%s) [%s]\n", i+1, item.Title, year, item.Status)
			}
		}
		fmt.Println("\nDry run complete, nothing was imported")
		return nil
	}

	if cmd.TmdbToken == "" {
		return fmt.Errorf("no TMDB token, pass -tmdb-token or set TMDB_TOKEN")
	}

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	usersRepo := users.NewRepository(db.DB)
	if _, err := usersRepo.EnsureDefaultUser(); err != nil {
		return fmt.Errorf("failed to ensure default user: %w", err)
	}

	jobsRepo := importjobs.NewRepository(db.DB)
	orchestrator := importer.New(
		jobsRepo,
		matcher.New(tmdb.NewClient(cmd.TmdbToken)),
		resolver.New(library.NewRepository(db.DB)),
	)

	cfg := entities.ImportConfig{
		Source:           entities.ImportSource(cmd.Source),
		ConflictStrategy: entities.ConflictStrategy(cmd.Strategy),
		ImportRatings:    true,
		ImportWatched:    true,
		ImportWatchlist:  true,
		MarkRewatchAsTag: cmd.MarkRewatch,
	}

	job, err := orchestrator.CreateJob(users.DefaultUserID, result.Items, cfg)
	if err != nil {
		return fmt.Errorf("failed to create import job: %w", err)
	}

	fmt.Printf("\nProcessing job %d...\n", job.ID)

	if err := orchestrator.Run(context.Background(), job.ID); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	job, err = jobsRepo.GetJob(job.ID)
	if err != nil {
		return fmt.Errorf("failed to reload job: %w", err)
	}

	fmt.Println("\n=== Import Summary ===")
	fmt.Printf("Processed: %d\n", job.ProcessedItems)
	fmt.Printf("Imported:  %d\n", job.SuccessfulItems)
	fmt.Printf("Skipped:   %d\n", job.SkippedItems)
	fmt.Printf("Failed:    %d\n", job.FailedItems)

	if job.FailedItems > 0 && cmd.Verbose {
		failed, _, err := jobsRepo.GetJobItems(job.ID, true, job.FailedItems, 0)
		if err == nil {
			fmt.Println("\n=== Failed Items ===")
			for _, item := range failed {
				fmt.Printf("  %s: %s\n", item.SourceTitle, item.ErrorMessage)
			}
		}
	}

	return nil
}
