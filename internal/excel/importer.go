package excel

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/kidprogress/internal/badges"
	"github.com/example/kidprogress/pkg/models"
	"github.com/jmoiron/sqlx/types"
	"github.com/xuri/excelize/v2"
)

// ActivityStore upserts catalog activities
type ActivityStore interface {
	Upsert(ctx context.Context, activity *models.Activity) (bool, error)
}

// BadgeStore upserts badge definitions
type BadgeStore interface {
	Upsert(ctx context.Context, badge *models.Badge) (bool, error)
}

// ImportConfig defines the import configuration. Columns are spreadsheet
// letters and apply to both xlsx and csv input.
type ImportConfig struct {
	FilePath  string // Path to the Excel or CSV file
	SheetName string // Sheet to import; the first sheet when empty
	StartRow  int    // The row to start importing from (1-based index)

	IDColumn          string
	TitleColumn       string
	CategoryColumn    string // activities
	DifficultyColumn  string // activities
	DescriptionColumn string // badges
	IconColumn        string // badges
	CriteriaColumn    string // badges, JSON object
}

// DefaultActivityConfig returns the column layout id, title, category, difficulty
func DefaultActivityConfig() ImportConfig {
	return ImportConfig{
		StartRow:         2,
		IDColumn:         "A",
		TitleColumn:      "B",
		CategoryColumn:   "C",
		DifficultyColumn: "D",
	}
}

// DefaultBadgeConfig returns the column layout id, title, description, icon, criteria
func DefaultBadgeConfig() ImportConfig {
	return ImportConfig{
		StartRow:          2,
		IDColumn:          "A",
		TitleColumn:       "B",
		DescriptionColumn: "C",
		IconColumn:        "D",
		CriteriaColumn:    "E",
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Updated        int
	Skipped        int
	Errors         []string
}

var errBlankRow = errors.New("blank row")

// ImportActivities upserts catalog activities from an Excel or CSV file
func ImportActivities(ctx context.Context, store ActivityStore, config ImportConfig) (*ImportResult, error) {
	rows, err := readRows(config)
	if err != nil {
		return nil, err
	}
	cols, err := resolveColumns(config.IDColumn, config.TitleColumn, config.CategoryColumn, config.DifficultyColumn)
	if err != nil {
		return nil, err
	}

	return importRows(rows, config.StartRow, func(row []string) (bool, error) {
		activity := models.Activity{
			ID:         cell(row, cols[0]),
			Title:      cell(row, cols[1]),
			Category:   cell(row, cols[2]),
			Difficulty: cell(row, cols[3]),
		}
		if activity.ID == "" && activity.Title == "" {
			return false, errBlankRow
		}
		if activity.ID == "" {
			return false, fmt.Errorf("missing id")
		}
		return store.Upsert(ctx, &activity)
	})
}

// ImportBadges upserts badge definitions from an Excel or CSV file. The
// criteria cell must hold a JSON object that parses into a known rule.
func ImportBadges(ctx context.Context, store BadgeStore, config ImportConfig) (*ImportResult, error) {
	rows, err := readRows(config)
	if err != nil {
		return nil, err
	}
	cols, err := resolveColumns(config.IDColumn, config.TitleColumn, config.DescriptionColumn, config.IconColumn, config.CriteriaColumn)
	if err != nil {
		return nil, err
	}

	return importRows(rows, config.StartRow, func(row []string) (bool, error) {
		badge := models.Badge{
			ID:          cell(row, cols[0]),
			Title:       cell(row, cols[1]),
			Description: cell(row, cols[2]),
			Icon:        cell(row, cols[3]),
		}
		raw := cell(row, cols[4])
		if badge.ID == "" && badge.Title == "" && raw == "" {
			return false, errBlankRow
		}
		if badge.ID == "" {
			return false, fmt.Errorf("missing id")
		}

		var criteria map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &criteria); err != nil {
			return false, fmt.Errorf("criteria is not a JSON object: %w", err)
		}
		if _, err := badges.ParseCriteria(criteria); err != nil {
			return false, err
		}
		badge.Criteria = types.JSONText(raw)
		return store.Upsert(ctx, &badge)
	})
}

func importRows(rows [][]string, startRow int, upsert func(row []string) (bool, error)) (*ImportResult, error) {
	result := &ImportResult{Errors: make([]string, 0)}
	if startRow < 1 {
		startRow = 1
	}

	for i, row := range rows {
		if i < startRow-1 {
			continue
		}
		created, err := upsert(row)
		switch {
		case errors.Is(err, errBlankRow):
			continue
		case err != nil:
			result.TotalProcessed++
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		case created:
			result.TotalProcessed++
			result.Created++
		default:
			result.TotalProcessed++
			result.Updated++
		}
	}
	return result, nil
}

func readRows(config ImportConfig) ([][]string, error) {
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		return readCSV(config.FilePath)
	}
	return readExcel(config)
}

func readExcel(config ImportConfig) ([][]string, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := config.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// resolveColumns converts column letters into zero-based indexes
func resolveColumns(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		n, err := excelize.ColumnNameToNumber(name)
		if err != nil {
			return nil, fmt.Errorf("invalid column %q: %w", name, err)
		}
		idx[i] = n - 1
	}
	return idx, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
