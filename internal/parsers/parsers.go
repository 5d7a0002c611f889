// Package parsers converts third-party watch-history exports into a
// canonical sequence of ImportItems.
//
// Each supported export format implements one parse function:
//
//   - ParseLetterboxd (letterboxd.go) - Letterboxd data export (ZIP of CSVs)
//   - ParseIMDb (imdb.go) - IMDb ratings export (single CSV)
//
// Parsers are pure: they read the already-fetched bytes and perform no other
// I/O. A malformed row is recorded as an error string and excluded from the
// items; only an unopenable container (bad archive, missing mandatory
// section, unreadable header) fails the parse outright.
package parsers

import (
	"fmt"
	"strings"

	"github.com/mlukasik/filmlog/internal/entities"
)

// Result is the output of one parse run. TotalRows counts every data row the
// parser consumed, including rows that merged into an earlier item and rows
// rejected with an error.
type Result struct {
	Items     []ImportItem
	Errors    []string
	TotalRows int
}

// Parse dispatches raw export bytes to the parser for the given source. The
// source set is closed; adding a format means adding a case here.
func Parse(source entities.ImportSource, raw []byte) (Result, error) {
	switch source {
	case entities.ImportSourceLetterboxd:
		return ParseLetterboxd(raw)
	case entities.ImportSourceIMDb:
		return ParseIMDb(raw)
	default:
		return Result{}, fmt.Errorf("unsupported import source: %s", source)
	}
}

// buildHeaderIndex maps lowercased, trimmed header names to column indexes.
func buildHeaderIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return index
}

func getCSVValue(record []string, headerIndex map[string]int, header string) string {
	if idx, ok := headerIndex[header]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}
