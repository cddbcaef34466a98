package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"allocation-engine/internal/domain"
	"allocation-engine/pkg/logger"
)

var referenceAliases = map[string][]string{
	"policy_number":      {"Policy Number", "policy_number", "PolicyNumber", "MembershipNo"},
	"external_reference": {"Reference", "external_reference", "ExternalReference", "Reference Number"},
	"member_name":        {"Member Name", "member_name", "MemberName", "Name"},
	"product":            {"Product", "product", "Scheme"},
}

// ReferenceFileResult carries the parsed policy reference rows and per-row
// errors.
type ReferenceFileResult struct {
	Records   []domain.PolicyRecord
	RowErrors []*domain.ValidationError
}

// ParseReferenceFile reads an uploaded policy reference file (CSV or
// .xlsx). Member name and product columns are optional; policy number is
// not. Rows are returned in file order.
func ParseReferenceFile(filename string, r io.Reader) (*ReferenceFileResult, error) {
	if isExcel(filename) {
		rows, err := excelRows(r)
		if err != nil {
			return nil, err
		}
		return parseReferenceRows(rows)
	}

	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read reference file header: %w", err)
	}

	rows := [][]string{header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Keep position: a placeholder row turns into a row error below.
			rows = append(rows, nil)
			continue
		}
		rows = append(rows, record)
	}
	return parseReferenceRows(rows)
}

func parseReferenceRows(rows [][]string) (*ReferenceFileResult, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("reference file has no header row")
	}

	columns := mapColumns(rows[0], referenceAliases)
	if columns["policy_number"] < 0 {
		return nil, fmt.Errorf("reference file missing required column %q", "policy_number")
	}

	result := &ReferenceFileResult{Records: make([]domain.PolicyRecord, 0, len(rows)-1)}

	for i, record := range rows[1:] {
		line := i + 2
		if record == nil {
			result.RowErrors = append(result.RowErrors, &domain.ValidationError{
				Line: line, Field: "row", Message: "unreadable row",
			})
			continue
		}

		policyNumber := cellAt(record, columns["policy_number"])
		reference := cellAt(record, columns["external_reference"])
		if policyNumber == "" && reference == "" {
			continue
		}
		if policyNumber == "" {
			result.RowErrors = append(result.RowErrors, &domain.ValidationError{
				Line: line, Field: "policy_number", Message: "missing policy number",
			})
			continue
		}

		result.Records = append(result.Records, domain.PolicyRecord{
			PolicyNumber:      policyNumber,
			ExternalReference: reference,
			MemberName:        cellAt(record, columns["member_name"]),
			Product:           cellAt(record, columns["product"]),
			Provenance:        domain.ProvenanceFile,
		})
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"records":    len(result.Records),
		"row_errors": len(result.RowErrors),
	}).Info("Reference file parsed")

	return result, nil
}
