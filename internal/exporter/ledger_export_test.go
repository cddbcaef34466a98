package exporter

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"allocation-engine/internal/normalizer"
)

func date(y int, m time.Month, d int) normalizer.CanonicalDate {
	return normalizer.CanonicalDate{Year: y, Month: m, Day: d}
}

func TestWriteLedgerFile_RoundTrip(t *testing.T) {
	lines := []LedgerLine{
		{MembershipNo: "P-200", DepositAmount: decimal.NewFromFloat(150.50), DepositDate: date(2024, time.March, 1)},
		{MembershipNo: "P-100", DepositAmount: decimal.NewFromFloat(500), DepositDate: date(2024, time.January, 15)},
		{MembershipNo: "P-300", DepositAmount: decimal.RequireFromString("99.99"), DepositDate: date(2023, time.December, 31)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteLedgerFile(&buf, lines))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, []string{"MembershipNo", "DepositAmount", "DepositDate"}, records[0])

	// Input order preserved; no implicit sort.
	assert.Equal(t, []string{"P-200", "150.5", "2024/03/01"}, records[1])
	assert.Equal(t, []string{"P-100", "500", "2024/01/15"}, records[2])
	assert.Equal(t, []string{"P-300", "99.99", "2023/12/31"}, records[3])
}

func TestWriteLedgerFile_QuotesSpecialCharacters(t *testing.T) {
	lines := []LedgerLine{
		{MembershipNo: `P-1,00`, DepositAmount: decimal.NewFromInt(10), DepositDate: date(2024, time.January, 1)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteLedgerFile(&buf, lines))

	assert.Contains(t, buf.String(), `"P-1,00"`)

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "P-1,00", records[1][0])
}

func TestWriteLedgerFile_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLedgerFile(&buf, nil))
	assert.Equal(t, "MembershipNo,DepositAmount,DepositDate\n", buf.String())
}
