package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"allocation-engine/internal/domain"
	"allocation-engine/internal/normalizer"
	"allocation-engine/pkg/logger"
)

// extractAliases lists the accepted header variants per extract field.
// The ledger system's exports have shipped with at least three namings of
// each column over time.
var extractAliases = map[string][]string{
	"effective_date": {"Effective Date", "effective_date", "EffectiveDate"},
	"membership_id":  {"MembershipID", "membership_id", "Membership ID"},
}

// ExtractResult carries the parsed ledger rows plus the per-row errors
// accumulated along the way. Row errors never abort the parse; only a
// missing header or unreadable file does.
type ExtractResult struct {
	Rows      []domain.LedgerRow
	RowErrors []*domain.ValidationError
}

// ParseLedgerExtract reads an uploaded external-ledger extract. CSV is
// streamed; .xlsx files are funneled through the same row pipeline.
func ParseLedgerExtract(filename string, r io.Reader) (*ExtractResult, error) {
	if isExcel(filename) {
		rows, err := excelRows(r)
		if err != nil {
			return nil, err
		}
		return parseExtractRows(rows)
	}
	return parseExtractCSV(r)
}

func parseExtractCSV(r io.Reader) (*ExtractResult, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read extract header: %w", err)
	}

	columns := mapColumns(header, extractAliases)
	if err := requireExtractColumns(columns); err != nil {
		return nil, err
	}

	result := &ExtractResult{Rows: make([]domain.LedgerRow, 0)}
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.RowErrors = append(result.RowErrors, &domain.ValidationError{
				Line: line, Field: "row", Message: err.Error(),
			})
			continue
		}
		appendExtractRow(result, record, columns, line)
	}

	logExtractParsed(len(result.Rows), len(result.RowErrors))
	return result, nil
}

func parseExtractRows(rows [][]string) (*ExtractResult, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("extract has no header row")
	}

	columns := mapColumns(rows[0], extractAliases)
	if err := requireExtractColumns(columns); err != nil {
		return nil, err
	}

	result := &ExtractResult{Rows: make([]domain.LedgerRow, 0, len(rows)-1)}
	for i, record := range rows[1:] {
		appendExtractRow(result, record, columns, i+2)
	}

	logExtractParsed(len(result.Rows), len(result.RowErrors))
	return result, nil
}

func appendExtractRow(result *ExtractResult, record []string, columns map[string]int, line int) {
	membershipID := cellAt(record, columns["membership_id"])
	dateStr := cellAt(record, columns["effective_date"])

	// Blank trailing rows are common in hand-edited extracts.
	if membershipID == "" && dateStr == "" {
		return
	}

	if membershipID == "" {
		result.RowErrors = append(result.RowErrors, &domain.ValidationError{
			Line: line, Field: "membership_id", Message: "missing membership identifier",
		})
		return
	}

	date, err := normalizer.ParseDate(dateStr)
	if err != nil {
		result.RowErrors = append(result.RowErrors, &domain.ValidationError{
			Line: line, Field: "effective_date", Message: err.Error(),
		})
		return
	}

	result.Rows = append(result.Rows, domain.LedgerRow{
		MembershipID:  membershipID,
		EffectiveDate: date,
		Line:          line,
	})
}

func requireExtractColumns(columns map[string]int) error {
	for _, field := range []string{"effective_date", "membership_id"} {
		if columns[field] < 0 {
			return fmt.Errorf("extract missing required column %q", field)
		}
	}
	return nil
}

func isExcel(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".xlsx" || ext == ".xlsm"
}

// excelRows loads the first sheet of a workbook as string rows.
func excelRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func logExtractParsed(rows, rowErrors int) {
	logger.GetLogger().WithFields(map[string]interface{}{
		"rows":       rows,
		"row_errors": rowErrors,
	}).Info("Ledger extract parsed")
}
