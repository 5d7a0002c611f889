package parsers

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/mlukasik/filmlog/internal/entities"
)

// Section filenames inside a Letterboxd data export archive.
const (
	letterboxdWatched   = "watched.csv"
	letterboxdRatings   = "ratings.csv"
	letterboxdDiary     = "diary.csv"
	letterboxdWatchlist = "watchlist.csv"
)

const letterboxdDateLayout = "2006-01-02"

// ParseLetterboxd parses a Letterboxd data export (a ZIP archive of CSV
// sections). Sections are merged by normalized (title, year): ratings and
// diary rows enrich the entries the watched section created, and watchlist
// rows never demote a title that was already watched.
func ParseLetterboxd(raw []byte) (Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return Result{}, fmt.Errorf("not a valid Letterboxd archive: %w", err)
	}

	// Exports nest sections under a dated directory on some platforms, so
	// index by base name.
	files := make(map[string]*zip.File)
	for _, f := range zr.File {
		files[strings.ToLower(path.Base(f.Name))] = f
	}

	if files[letterboxdWatched] == nil && files[letterboxdRatings] == nil && files[letterboxdWatchlist] == nil {
		return Result{}, fmt.Errorf("archive has no watched.csv, ratings.csv or watchlist.csv section")
	}

	acc := newAccumulator()
	result := Result{}

	// Order matters: later sections enrich items created by earlier ones.
	sections := []struct {
		name    string
		convert letterboxdRowFunc
	}{
		{letterboxdWatched, letterboxdWatchedRow},
		{letterboxdRatings, letterboxdRatingsRow},
		{letterboxdDiary, letterboxdDiaryRow},
		{letterboxdWatchlist, letterboxdWatchlistRow},
	}

	for _, section := range sections {
		f := files[section.name]
		if f == nil {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return Result{}, fmt.Errorf("open %s: %w", section.name, err)
		}
		rows, errs, err := parseLetterboxdSection(rc, section.name, section.convert, acc)
		rc.Close()
		if err != nil {
			return Result{}, fmt.Errorf("parse %s: %w", section.name, err)
		}

		result.TotalRows += rows
		result.Errors = append(result.Errors, errs...)
	}

	result.Items = acc.items
	return result, nil
}

// letterboxdRowFunc converts one CSV record into an ImportItem.
type letterboxdRowFunc func(record []string, headerIndex map[string]int) (ImportItem, error)

// parseLetterboxdSection runs the common per-section loop: header-indexed
// column access, per-row error collection, malformed rows excluded but never
// fatal. Only an unreadable header fails the section.
func parseLetterboxdSection(r io.Reader, section string, convert letterboxdRowFunc, acc *accumulator) (int, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields

	header, err := reader.Read()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read header: %w", err)
	}
	headerIndex := buildHeaderIndex(header)

	if _, ok := headerIndex["name"]; !ok {
		return 0, nil, fmt.Errorf("missing required header: name")
	}

	var errors []string
	rows := 0
	lineNum := 1 // header already read

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rows++
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s line %d: %v", section, lineNum, err))
			continue
		}

		item, err := convert(record, headerIndex)
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s line %d: %v", section, lineNum, err))
			continue
		}

		acc.add(item)
	}

	return rows, errors, nil
}

// letterboxdBaseItem extracts the title and year columns shared by every
// section. An empty title after trimming rejects the row.
func letterboxdBaseItem(record []string, headerIndex map[string]int) (ImportItem, error) {
	item := ImportItem{
		Title: getCSVValue(record, headerIndex, "name"),
	}
	if item.Title == "" {
		return ImportItem{}, fmt.Errorf("skipped - missing film name")
	}

	if yearStr := getCSVValue(record, headerIndex, "year"); yearStr != "" {
		if year, err := strconv.Atoi(yearStr); err == nil {
			item.Year = &year
		}
	}

	return item, nil
}

func letterboxdWatchedRow(record []string, headerIndex map[string]int) (ImportItem, error) {
	item, err := letterboxdBaseItem(record, headerIndex)
	if err != nil {
		return ImportItem{}, err
	}

	item.Status = entities.WatchStatusWatched
	item.WatchedAt = parseLetterboxdDate(getCSVValue(record, headerIndex, "date"))
	return item, nil
}

func letterboxdRatingsRow(record []string, headerIndex map[string]int) (ImportItem, error) {
	item, err := letterboxdBaseItem(record, headerIndex)
	if err != nil {
		return ImportItem{}, err
	}

	ratingStr := getCSVValue(record, headerIndex, "rating")
	if ratingStr != "" {
		rating, err := strconv.ParseFloat(ratingStr, 64)
		if err != nil {
			return ImportItem{}, fmt.Errorf("invalid rating %q", ratingStr)
		}
		item.SourceRating = &rating
		item.Rating = normalizeRating(rating, letterboxdScaleMax)
	}

	item.Status = entities.WatchStatusWatched
	return item, nil
}

func letterboxdDiaryRow(record []string, headerIndex map[string]int) (ImportItem, error) {
	item, err := letterboxdBaseItem(record, headerIndex)
	if err != nil {
		return ImportItem{}, err
	}

	item.Status = entities.WatchStatusWatched
	item.WatchedAt = parseLetterboxdDate(getCSVValue(record, headerIndex, "watched date"))
	item.IsRewatch = strings.EqualFold(getCSVValue(record, headerIndex, "rewatch"), "yes")

	if ratingStr := getCSVValue(record, headerIndex, "rating"); ratingStr != "" {
		if rating, err := strconv.ParseFloat(ratingStr, 64); err == nil {
			item.SourceRating = &rating
			item.Rating = normalizeRating(rating, letterboxdScaleMax)
		}
	}

	if tags := getCSVValue(record, headerIndex, "tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				item.Tags = append(item.Tags, tag)
			}
		}
	}

	return item, nil
}

func letterboxdWatchlistRow(record []string, headerIndex map[string]int) (ImportItem, error) {
	item, err := letterboxdBaseItem(record, headerIndex)
	if err != nil {
		return ImportItem{}, err
	}

	item.Status = entities.WatchStatusWatchlist
	return item, nil
}

func parseLetterboxdDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(letterboxdDateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}
