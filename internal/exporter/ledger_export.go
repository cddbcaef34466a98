package exporter

import (
	"encoding/csv"
	"io"

	"github.com/shopspring/decimal"

	"allocation-engine/internal/normalizer"
)

// LedgerLine is one row of the file the external ledger system ingests.
type LedgerLine struct {
	MembershipNo  string
	DepositAmount decimal.Decimal
	DepositDate   normalizer.CanonicalDate
}

// WriteLedgerFile emits the fixed-format allocation file: header
// MembershipNo,DepositAmount,DepositDate, one row per line, dates as
// YYYY/MM/DD. Row order follows the input; the writer imposes no sort.
// The csv writer quotes fields containing commas or quotes.
func WriteLedgerFile(w io.Writer, lines []LedgerLine) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"MembershipNo", "DepositAmount", "DepositDate"}); err != nil {
		return err
	}

	for _, line := range lines {
		record := []string{
			line.MembershipNo,
			line.DepositAmount.String(),
			line.DepositDate.Ledger(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
