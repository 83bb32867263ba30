package export

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/research-analyst/backend/internal/tabular"
)

const (
	// MIMEType is what the chat client offers the download as.
	MIMEType = "application/vnd.ms-excel"

	maxSheetNameLen = 31
	defaultSheet    = "Sheet1"
)

var ErrNoTables = errors.New("no tables to export")

// Workbook writes one sheet per table in set order, header row first.
func Workbook(set *tabular.Set) ([]byte, error) {
	if set.Len() == 0 {
		return nil, ErrNoTables
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	names := set.Names()
	sheets := SheetNames(names)
	for i, name := range names {
		table, _ := set.Get(name)
		sheet := sheets[i]

		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet); err != nil {
				return nil, fmt.Errorf("failed to name sheet %q: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("failed to add sheet %q: %w", sheet, err)
		}

		if err := writeTable(f, sheet, table, header); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTable(f *excelize.File, sheet string, t *tabular.Table, headerStyle int) error {
	for c, col := range t.Columns {
		if err := setCell(f, sheet, c+1, 1, col); err != nil {
			return err
		}
	}

	if len(t.Columns) > 0 {
		first, _ := excelize.CoordinatesToCellName(1, 1)
		last, _ := excelize.CoordinatesToCellName(len(t.Columns), 1)
		if err := f.SetCellStyle(sheet, first, last, headerStyle); err != nil {
			return fmt.Errorf("failed to style header of %q: %w", sheet, err)
		}
	}

	for r := range t.Rows {
		for c := range t.Columns {
			if err := setCell(f, sheet, c+1, r+2, t.Cell(r, c)); err != nil {
				return err
			}
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to address cell: %w", err)
	}
	if err := f.SetCellStr(sheet, cell, value); err != nil {
		return fmt.Errorf("failed to write %s!%s: %w", sheet, cell, err)
	}
	return nil
}

// SheetNames maps table names to valid, distinct sheet names. Excel compares
// sheet names case-insensitively.
func SheetNames(names []string) []string {
	out := make([]string, len(names))
	used := make(map[string]bool, len(names))

	for i, name := range names {
		base := sanitize(name)
		candidate := base
		for n := 2; used[strings.ToLower(candidate)]; n++ {
			suffix := fmt.Sprintf(" (%d)", n)
			candidate = truncate(base, maxSheetNameLen-len(suffix)) + suffix
		}
		used[strings.ToLower(candidate)] = true
		out[i] = candidate
	}
	return out
}

func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(strings.TrimSpace(name), "'")
	if name == "" || strings.EqualFold(name, "History") {
		name = "Sheet"
	}
	return truncate(name, maxSheetNameLen)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
