package parsers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/mlukasik/filmlog/internal/entities"
)

const imdbDateLayout = "2006-01-02"

// ParseIMDb parses an IMDb ratings export, a single CSV with one row per
// rated title. Every row counts as watched; IMDb has no watchlist section in
// this export.
func ParseIMDb(raw []byte) (Result, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1 // Allow variable number of fields

	header, err := reader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("failed to read header: %w", err)
	}
	headerIndex := buildHeaderIndex(header)

	requiredHeaders := []string{"title", "your rating"}
	for _, h := range requiredHeaders {
		if _, ok := headerIndex[h]; !ok {
			return Result{}, fmt.Errorf("missing required header: %s", h)
		}
	}

	acc := newAccumulator()
	result := Result{}
	lineNum := 1 // header already read

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		result.TotalRows++
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", lineNum, err))
			continue
		}

		item, err := imdbRow(record, headerIndex)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", lineNum, err))
			continue
		}

		acc.add(item)
	}

	result.Items = acc.items
	return result, nil
}

func imdbRow(record []string, headerIndex map[string]int) (ImportItem, error) {
	item := ImportItem{
		Title:  getCSVValue(record, headerIndex, "title"),
		Status: entities.WatchStatusWatched,
	}
	if item.Title == "" {
		return ImportItem{}, fmt.Errorf("skipped - missing title")
	}

	if yearStr := getCSVValue(record, headerIndex, "year"); yearStr != "" {
		if year, err := strconv.Atoi(yearStr); err == nil {
			item.Year = &year
		}
	}

	if ratingStr := getCSVValue(record, headerIndex, "your rating"); ratingStr != "" {
		rating, err := strconv.ParseFloat(ratingStr, 64)
		if err != nil {
			return ImportItem{}, fmt.Errorf("invalid rating %q", ratingStr)
		}
		item.SourceRating = &rating
		item.Rating = normalizeRating(rating, imdbScaleMax)
	}

	if dateStr := getCSVValue(record, headerIndex, "date rated"); dateStr != "" {
		if t, err := time.Parse(imdbDateLayout, dateStr); err == nil {
			item.WatchedAt = &t
		}
	}

	return item, nil
}
