package portfolio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Entry is one portfolio row: a tech-stack description and the link that
// evidences it. ID is assigned when the entry is written to the index.
type Entry struct {
	ID        string
	TechStack string
	Link      string
}

// Columns names the header cells holding the tech stack and the link.
type Columns struct {
	TechStack string
	Link      string
}

// ReadEntries loads portfolio rows from a .csv or .xlsx file with a header row.
func ReadEntries(path string, cols Columns) ([]Entry, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}
	return entriesFromRows(rows, cols)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open portfolio source: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read portfolio csv %s: %w", path, err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// readXLSX returns the rows of the first sheet.
func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open portfolio workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("portfolio workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func entriesFromRows(rows [][]string, cols Columns) ([]Entry, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("portfolio source is empty (missing header row)")
	}

	// Header cells may carry a UTF-8 BOM from spreadsheet exports.
	stackIdx, linkIdx := -1, -1
	for i, h := range rows[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch {
		case strings.EqualFold(h, cols.TechStack):
			stackIdx = i
		case strings.EqualFold(h, cols.Link):
			linkIdx = i
		}
	}
	if stackIdx < 0 {
		return nil, fmt.Errorf("portfolio source has no %q column", cols.TechStack)
	}
	if linkIdx < 0 {
		return nil, fmt.Errorf("portfolio source has no %q column", cols.Link)
	}

	entries := make([]Entry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		stack := strings.TrimSpace(cell(row, stackIdx))
		link := strings.TrimSpace(cell(row, linkIdx))
		if stack == "" && link == "" {
			continue
		}
		entries = append(entries, Entry{TechStack: stack, Link: link})
	}
	return entries, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
