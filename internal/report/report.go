// Package report writes user progress exports as JSON or XLSX workbooks.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/solvefy/solvefy/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want json or xlsx)", s)
	}
}

// Write encodes the export in the given format.
func Write(w io.Writer, format Format, exp model.ProgressExport) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, exp)
	case FormatXLSX:
		return WriteXLSX(w, exp)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteJSON writes the export as indented JSON with a trailing newline.
func WriteJSON(w io.Writer, exp model.ProgressExport) error {
	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	return nil
}

// Sheet names of the XLSX workbook.
const (
	SheetUsers     = "Users"
	SheetCompleted = "Completed"
	SheetBookmarks = "Bookmarks"
)

var (
	usersHeader     = []any{"User ID", "Username", "Full name", "Role", "Completed lessons", "Bookmarks"}
	completedHeader = []any{"Username", "Lesson ID", "Lesson", "Book", "Subject", "Completed at"}
	bookmarksHeader = []any{"Username", "Book ID", "Book", "Publisher", "Bookmarked at"}
)

// WriteXLSX writes the export as a workbook with one sheet per table.
func WriteXLSX(w io.Writer, exp model.ProgressExport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetUsers); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetCompleted, SheetBookmarks} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	users := [][]any{usersHeader}
	completed := [][]any{completedHeader}
	bookmarks := [][]any{bookmarksHeader}
	for _, r := range exp.Results {
		u := r.User
		users = append(users, []any{u.ID, u.Username, u.FullName, string(u.Role), r.Stats.TotalCompleted, r.Stats.TotalBookmarks})
		for _, c := range r.Completed {
			completed = append(completed, []any{u.Username, c.LessonID, c.LessonName, c.BookName, c.SubjectName, stamp(c.CompletedAt)})
		}
		for _, b := range r.Bookmarks {
			bookmarks = append(bookmarks, []any{u.Username, b.BookID, b.BookName, b.Publisher, stamp(b.BookmarkedAt)})
		}
	}

	for _, sheet := range []struct {
		name string
		rows [][]any
	}{
		{SheetUsers, users},
		{SheetCompleted, completed},
		{SheetBookmarks, bookmarks},
	} {
		if err := writeRows(f, sheet.name, sheet.rows, bold); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	last, err := excelize.ColumnNumberToName(len(rows[0]))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", last, 22)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
