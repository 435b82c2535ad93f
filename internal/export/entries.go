// Package export renders a user's reading log as a spreadsheet.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"chaplog/internal/models"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	SheetName   = "Reading Log"
)

var entryHeaders = []string{
	"Date", "Book", "Author", "Start Page", "End Page", "Pages Read",
	"Chapter", "Rating", "Notes", "Impression", "Learnings",
}

var columnWidths = map[string]float64{
	"A": 12, "B": 30, "C": 20, "D": 10, "E": 10, "F": 10,
	"G": 20, "H": 8, "I": 40, "J": 40, "K": 40,
}

// FileName is the download name for an export taken at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("reading_entries_%s.xlsx", now.Format("20060102"))
}

// WriteEntriesXLSX writes one row per entry, in the order given, below a
// header row.
func WriteEntriesXLSX(w io.Writer, entries []models.ReadingEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(entryHeaders))
	for i, h := range entryHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			e.ReadingDate.Format("2006-01-02"),
			e.Book.Title,
			e.Book.Author,
			e.StartPage,
			e.EndPage,
			e.PagesRead(),
			deref(e.Chapter),
			e.Rating,
			deref(e.Notes),
			deref(e.Impression),
			strings.Join(e.Learnings, "\n"),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write entry %s: %w", e.ID, err)
		}
	}

	for col, width := range columnWidths {
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
